// Package api implements the `serve` sub-command.
package api

import (
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/MShafiMalik/lumio-portal-backend/api"
	cmdCommon "github.com/MShafiMalik/lumio-portal-backend/cmd/common"
	"github.com/MShafiMalik/lumio-portal-backend/config"
	"github.com/MShafiMalik/lumio-portal-backend/etherscan"
	"github.com/MShafiMalik/lumio-portal-backend/log"
	"github.com/MShafiMalik/lumio-portal-backend/prices"
	"github.com/MShafiMalik/lumio-portal-backend/storage"
	"github.com/MShafiMalik/lumio-portal-backend/storage/client"
)

const moduleName = "api"

var (
	// Path to the configuration file.
	configFile string

	apiCmd = &cobra.Command{
		Use:   "serve",
		Short: "Serve the wallet query API",
		Run:   runServer,
	}
)

func runServer(cmd *cobra.Command, args []string) {
	cfg, err := config.InitConfig(configFile)
	if err != nil {
		log.NewDefaultLogger("init").Error("config init failed",
			"error", err,
		)
		os.Exit(1)
	}

	if err = cmdCommon.Init(cfg); err != nil {
		log.NewDefaultLogger("init").Error("init failed",
			"error", err,
		)
		os.Exit(1)
	}
	logger := cmdCommon.Logger()

	if cfg.Server == nil {
		logger.Error("server config not provided")
		os.Exit(1)
	}

	service, err := Init(cfg.Server)
	if err != nil {
		os.Exit(1)
	}
	defer service.Shutdown()

	service.Start()
}

// Init initializes the API service.
func Init(cfg *config.ServerConfig) (*Service, error) {
	logger := cmdCommon.Logger()

	service, err := NewService(cfg)
	if err != nil {
		logger.Error("service failed to start",
			"error", err,
		)
		return nil, err
	}
	return service, nil
}

// Service is the portal's API service.
type Service struct {
	server string
	api    *api.PortalAPI
	target storage.TargetStorage
	logger *log.Logger
}

// NewService creates a new API service.
func NewService(cfg *config.ServerConfig) (*Service, error) {
	logger := cmdCommon.Logger().WithModule(moduleName)

	target, err := cmdCommon.NewClient(cfg.Storage, logger)
	if err != nil {
		return nil, err
	}
	storeClient := client.NewStorageClient(target, logger)

	portalAPI := api.NewPortalAPI(
		storeClient,
		prices.NewClient(cfg.Prices, logger),
		etherscan.NewClient(cfg.Etherscan, logger),
		logger,
	)

	return &Service{
		server: cfg.Endpoint,
		api:    portalAPI,
		target: target,
		logger: logger,
	}, nil
}

// Start starts the API service.
func (s *Service) Start() {
	s.logger.Info("starting api service at " + s.server)

	server := &http.Server{
		Addr:           s.server,
		Handler:        s.api.Router(),
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	s.logger.Error("shutting down",
		"error", server.ListenAndServe(),
	)
}

// Shutdown gracefully shuts down the service.
func (s *Service) Shutdown() {
	s.target.Close()
}

// Register registers the serve sub-command.
func Register(parentCmd *cobra.Command) {
	apiCmd.Flags().StringVar(&configFile, "config", "./config/local.yml", "path to the config.yml file")
	parentCmd.AddCommand(apiCmd)
}

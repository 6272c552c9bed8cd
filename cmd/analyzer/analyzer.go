// Package analyzer implements the `analyze` sub-command.
package analyzer

import (
	"context"
	"os"
	"sync"

	migrate "github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres" // postgres driver for golang_migrate
	_ "github.com/golang-migrate/migrate/v4/source/file"       // support file scheme for golang_migrate
	"github.com/spf13/cobra"

	"github.com/MShafiMalik/lumio-portal-backend/analyzer"
	"github.com/MShafiMalik/lumio-portal-backend/analyzer/bridge"
	cmdCommon "github.com/MShafiMalik/lumio-portal-backend/cmd/common"
	"github.com/MShafiMalik/lumio-portal-backend/config"
	"github.com/MShafiMalik/lumio-portal-backend/log"
	"github.com/MShafiMalik/lumio-portal-backend/storage"
	"github.com/MShafiMalik/lumio-portal-backend/storage/client"
	"github.com/MShafiMalik/lumio-portal-backend/storage/eth"
)

const moduleName = "analysis_service"

var (
	// Path to the configuration file.
	configFile string

	analyzeCmd = &cobra.Command{
		Use:   "analyze",
		Short: "Ingest bridge deposit events",
		Run:   runAnalyzer,
	}
)

func runAnalyzer(cmd *cobra.Command, args []string) {
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

	if cfg.Analysis == nil {
		logger.Error("analysis config not provided")
		os.Exit(1)
	}

	service, err := Init(cfg.Analysis)
	if err != nil {
		os.Exit(1)
	}
	service.Start()
}

// Init initializes the analysis service.
func Init(cfg *config.AnalysisConfig) (*Service, error) {
	logger := cmdCommon.Logger()

	if cfg.Storage.WipeStorage {
		logger.Warn("wiping storage")
		if err := wipeStorage(cfg.Storage); err != nil {
			return nil, err
		}
		logger.Info("storage wiped")
	}

	m, err := migrate.New(
		cfg.Storage.Migrations,
		cfg.Storage.Endpoint,
	)
	if err != nil {
		logger.Error("migrator failed to start",
			"error", err,
		)
		return nil, err
	}

	switch err = m.Up(); {
	case err == migrate.ErrNoChange:
		logger.Info("no migrations needed to be applied")
	case err != nil:
		logger.Error("migrations failed",
			"error", err,
		)
		return nil, err
	default:
		logger.Info("migrations completed")
	}

	service, err := NewService(cfg)
	if err != nil {
		logger.Error("service failed to start",
			"error", err,
		)
		return nil, err
	}
	return service, nil
}

func wipeStorage(cfg *config.StorageConfig) error {
	logger := cmdCommon.Logger().WithModule(moduleName)

	target, err := cmdCommon.NewClient(cfg, logger)
	if err != nil {
		return err
	}
	defer target.Close()

	ctx := context.Background()
	return target.Wipe(ctx)
}

// Service is the portal's analysis service.
type Service struct {
	Analyzers []analyzer.Analyzer

	source *eth.Client
	target storage.TargetStorage
	logger *log.Logger
}

// NewService creates a new analysis service: one ingestion worker per
// monitored event stream, all sharing the chain RPC connection and the
// target storage. A schema version mismatch wipes all ingestion state
// before the workers start.
func NewService(cfg *config.AnalysisConfig) (*Service, error) {
	ctx := context.Background()
	logger := cmdCommon.Logger().WithModule(moduleName)

	target, err := cmdCommon.NewClient(cfg.Storage, logger)
	if err != nil {
		return nil, err
	}
	storeClient := client.NewStorageClient(target, logger)
	if err = storeClient.ResetOnVersionMismatch(ctx); err != nil {
		return nil, err
	}

	source, err := eth.NewClient(ctx, cfg.Source.RPCEndpoint, logger)
	if err != nil {
		return nil, err
	}

	analyzers := []analyzer.Analyzer{}
	for _, job := range bridge.DefaultJobs() {
		a, err := bridge.NewAnalyzer(job, cfg, source, storeClient, logger)
		if err != nil {
			return nil, err
		}
		analyzers = append(analyzers, a)
	}

	logger.Info("initialized analyzers", "num_analyzers", len(analyzers))

	return &Service{
		Analyzers: analyzers,
		source:    source,
		target:    target,
		logger:    logger,
	}, nil
}

// Start starts the analysis service. Each analyzer runs its own perpetual
// pass loop; the jobs are fully independent of each other.
func (s *Service) Start() {
	s.logger.Info("starting analysis service")
	ctx := context.Background()

	var wg sync.WaitGroup
	for _, an := range s.Analyzers {
		wg.Add(1)
		go func(an analyzer.Analyzer) {
			defer wg.Done()
			an.Start(ctx)
		}(an)
	}
	wg.Wait()

	s.logger.Info("analysis service stopped")
	s.Shutdown()
}

// Shutdown gracefully shuts down the service.
func (s *Service) Shutdown() {
	s.source.Close()
	s.target.Close()
}

// Register registers the analyze sub-command.
func Register(parentCmd *cobra.Command) {
	analyzeCmd.Flags().StringVar(&configFile, "config", "./config/local.yml", "path to the config.yml file")
	parentCmd.AddCommand(analyzeCmd)
}

// Package api implements the wallet query API.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MShafiMalik/lumio-portal-backend/etherscan"
	"github.com/MShafiMalik/lumio-portal-backend/log"
	"github.com/MShafiMalik/lumio-portal-backend/metrics"
	"github.com/MShafiMalik/lumio-portal-backend/prices"
	"github.com/MShafiMalik/lumio-portal-backend/storage/client"
)

const moduleName = "api"

// InteractionProbe answers whether a wallet has ever interacted with a known
// swap router.
type InteractionProbe interface {
	HasRouterInteraction(ctx context.Context, walletAddress string) bool
}

// PriceSource provides the current token price table.
type PriceSource interface {
	TokenPrices(ctx context.Context) prices.Prices
}

// PortalAPI is the wallet query API surface.
type PortalAPI struct {
	client *client.StorageClient
	prices PriceSource
	probe  InteractionProbe

	logger  *log.Logger
	metrics metrics.RequestMetrics
}

var (
	_ InteractionProbe = (*etherscan.Client)(nil)
	_ PriceSource      = (*prices.Client)(nil)
)

// NewPortalAPI creates a new API handler set.
func NewPortalAPI(c *client.StorageClient, p PriceSource, probe InteractionProbe, l *log.Logger) *PortalAPI {
	return &PortalAPI{
		client:  c,
		prices:  p,
		probe:   probe,
		logger:  l.WithModule(moduleName),
		metrics: metrics.NewDefaultRequestMetrics("portal"),
	}
}

// Router constructs the HTTP routing tree served by the API service.
func (a *PortalAPI) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(metricsMiddleware(a.metrics, a.logger))
	r.Use(corsMiddleware)
	r.Get("/transactions/{walletAddress}", a.GetWalletTransactions)
	return r
}

// GetWalletTransactions serves the wallet volume/status endpoint. Unknown
// wallets get the all-zero response with HTTP 200; only storage failures
// surface as server errors.
func (a *PortalAPI) GetWalletTransactions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	walletAddress := chi.URLParam(r, "walletAddress")

	rec, err := a.client.WalletRecord(ctx, walletAddress)
	if err != nil {
		a.logger.Error("wallet record read failed",
			"wallet_address", walletAddress,
			"err", err,
		)
		a.writeError(w)
		return
	}

	interacted := false
	if rec != nil {
		interacted, err = a.uniswapStatus(ctx, walletAddress)
		if err != nil {
			a.logger.Error("uniswap status lookup failed",
				"wallet_address", walletAddress,
				"err", err,
			)
			a.writeError(w)
			return
		}
	}

	resp, err := computeResponse(rec, a.prices.TokenPrices(ctx), interacted)
	if err != nil {
		a.logger.Error("wallet status computation failed",
			"wallet_address", walletAddress,
			"err", err,
		)
		a.writeError(w)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		a.logger.Error("writing response failed", "err", err)
	}
}

// uniswapStatus resolves the wallet's router-interaction flag: cache hit
// wins, otherwise the external probe runs and only a positive result is
// cached. Negative results are recomputed on every query since interaction
// can begin at any later time.
func (a *PortalAPI) uniswapStatus(ctx context.Context, walletAddress string) (bool, error) {
	interacted, found, err := a.client.UniswapInteraction(ctx, walletAddress)
	if err != nil {
		return false, err
	}
	if found && interacted {
		return true, nil
	}

	if !a.probe.HasRouterInteraction(ctx, walletAddress) {
		return false, nil
	}
	if err := a.client.SetUniswapInteraction(ctx, walletAddress, true); err != nil {
		// The probe already answered; caching is best effort.
		a.logger.Warn("caching uniswap interaction failed",
			"wallet_address", walletAddress,
			"err", err,
		)
	}
	return true, nil
}

func (a *PortalAPI) writeError(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusInternalServerError)
	_ = json.NewEncoder(w).Encode(errorResponse{Msg: "internal server error"})
}

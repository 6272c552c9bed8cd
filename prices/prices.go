// Package prices implements the token price source, a thin memoized client
// for a coingecko-style simple-price API.
package prices

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/MShafiMalik/lumio-portal-backend/common"
	"github.com/MShafiMalik/lumio-portal-backend/config"
	"github.com/MShafiMalik/lumio-portal-backend/log"
)

const (
	moduleName = "prices"

	defaultEndpoint = "https://api.coingecko.com/api/v3"
	defaultCacheTTL = time.Minute

	requestTimeout = 10 * time.Second
)

// Upstream price identifiers for the fixed token set.
var tokenIDs = map[common.Token]string{
	common.TokenETH:  "ethereum",
	common.TokenPepe: "pepe",
	common.TokenPork: "pepefork",
	common.TokenUSDC: "usd-coin",
	common.TokenUSDT: "tether",
}

// Prices holds the current USD price of every tracked token. Tokens the
// upstream did not report default to 0.
type Prices map[common.Token]float64

// ByToken returns the USD price of the given token, or 0 if unknown.
func (p Prices) ByToken(t common.Token) float64 {
	return p[t]
}

// Client fetches token prices, memoizing the result for a bounded interval
// to avoid hammering the upstream on every wallet query.
type Client struct {
	endpoint string
	apiKey   string
	cacheTTL time.Duration

	httpClient *http.Client
	logger     *log.Logger

	mu        sync.Mutex
	cached    Prices
	fetchedAt time.Time
}

// NewClient creates a new price client.
func NewClient(cfg *config.PricesConfig, l *log.Logger) *Client {
	endpoint := defaultEndpoint
	apiKey := ""
	cacheTTL := defaultCacheTTL
	if cfg != nil {
		if cfg.Endpoint != "" {
			endpoint = cfg.Endpoint
		}
		if cfg.CacheTTL != 0 {
			cacheTTL = cfg.CacheTTL
		}
		apiKey = cfg.APIKey
	}
	return &Client{
		endpoint:   strings.TrimRight(endpoint, "/"),
		apiKey:     apiKey,
		cacheTTL:   cacheTTL,
		httpClient: &http.Client{Timeout: requestTimeout},
		logger:     l.WithModule(moduleName),
	}
}

// TokenPrices returns the current USD price table. Upstream failures
// degrade to zero prices rather than propagating; status computations then
// proceed with reduced accuracy instead of failing the request.
func (c *Client) TokenPrices(ctx context.Context) Prices {
	c.mu.Lock()
	if c.cached != nil && time.Since(c.fetchedAt) < c.cacheTTL {
		defer c.mu.Unlock()
		return c.cached
	}
	c.mu.Unlock()

	fetched, err := c.fetch(ctx)
	if err != nil {
		c.logger.Warn("price lookup failed, using zero prices", "err", err)
		return Prices{}
	}

	c.mu.Lock()
	c.cached = fetched
	c.fetchedAt = time.Now()
	c.mu.Unlock()
	return fetched
}

func (c *Client) fetch(ctx context.Context) (Prices, error) {
	ids := make([]string, 0, len(tokenIDs))
	for _, id := range tokenIDs {
		ids = append(ids, id)
	}

	params := url.Values{}
	params.Set("ids", strings.Join(ids, ","))
	params.Set("vs_currencies", "usd")
	if c.apiKey != "" {
		params.Set("x_cg_demo_api_key", c.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/simple/price?%s", c.endpoint, params.Encode()), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("price api returned status %d", resp.StatusCode)
	}

	var body map[string]struct {
		USD float64 `json:"usd"`
	}
	if err = json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, err
	}

	// Missing entries default to price 0.
	prices := Prices{}
	for token, id := range tokenIDs {
		if entry, ok := body[id]; ok {
			prices[token] = entry.USD
		}
	}
	return prices, nil
}

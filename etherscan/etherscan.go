// Package etherscan implements the wallet-history probe used by the uniswap
// interaction check.
package etherscan

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	ethCommon "github.com/ethereum/go-ethereum/common"

	"github.com/MShafiMalik/lumio-portal-backend/config"
	"github.com/MShafiMalik/lumio-portal-backend/log"
)

const (
	moduleName = "etherscan"

	defaultEndpoint = "https://api.etherscan.io/api"

	requestTimeout = 10 * time.Second
)

// Uniswap router contracts whose transaction history counts as interaction
// evidence: the v2 router, the v3 router and the universal router.
var uniswapRouters = []ethCommon.Address{
	ethCommon.HexToAddress("0x7a250d5630B4cF539739dF2C5dAcb4c659F2488D"),
	ethCommon.HexToAddress("0xE592427A0AEce92De3Edee1F18E0157C05861564"),
	ethCommon.HexToAddress("0x3fC91A3afd70395Cd496C647d5a6CC9D4B2b7FAD"),
}

// Client queries an etherscan-compatible account API.
type Client struct {
	endpoint string
	apiKey   string

	httpClient *http.Client
	logger     *log.Logger
}

// NewClient creates a new etherscan client.
func NewClient(cfg *config.EtherscanConfig, l *log.Logger) *Client {
	endpoint := defaultEndpoint
	apiKey := ""
	if cfg != nil {
		if cfg.Endpoint != "" {
			endpoint = cfg.Endpoint
		}
		apiKey = cfg.APIKey
	}
	return &Client{
		endpoint:   endpoint,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: requestTimeout},
		logger:     l.WithModule(moduleName),
	}
}

// HasRouterInteraction probes every known uniswap router in parallel and
// reports whether the wallet has ever transacted with any of them. All
// failures degrade to a not-interacted result.
func (c *Client) HasRouterInteraction(ctx context.Context, walletAddress string) bool {
	if c.apiKey == "" {
		c.logger.Warn("etherscan api key missing, skipping interaction check")
		return false
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	interacted := false
	for _, router := range uniswapRouters {
		wg.Add(1)
		go func(router ethCommon.Address) {
			defer wg.Done()
			if c.hasInteracted(ctx, router, walletAddress) {
				mu.Lock()
				interacted = true
				mu.Unlock()
			}
		}(router)
	}
	wg.Wait()
	return interacted
}

type txlistEntry struct {
	TimeStamp string `json:"timeStamp"`
}

// hasInteracted fetches one page of the wallet's transaction history against
// the router. Any transaction older than the current day counts as evidence
// of interaction.
func (c *Client) hasInteracted(ctx context.Context, router ethCommon.Address, walletAddress string) bool {
	params := url.Values{}
	params.Set("module", "account")
	params.Set("action", "txlist")
	params.Set("contractaddress", router.Hex())
	params.Set("address", walletAddress)
	params.Set("page", "1")
	params.Set("offset", "1")
	params.Set("apikey", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s?%s", c.endpoint, params.Encode()), nil)
	if err != nil {
		c.logger.Warn("interaction check failed", "router", router.Hex(), "err", err)
		return false
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("interaction check failed", "router", router.Hex(), "err", err)
		return false
	}
	defer resp.Body.Close()

	// The API reports errors by replacing the result array with a string;
	// treat any unparseable result as no interaction.
	var body struct {
		Result json.RawMessage `json:"result"`
	}
	if err = json.NewDecoder(resp.Body).Decode(&body); err != nil {
		c.logger.Warn("interaction check failed", "router", router.Hex(), "err", err)
		return false
	}
	var entries []txlistEntry
	if err = json.Unmarshal(body.Result, &entries); err != nil {
		return false
	}

	for _, entry := range entries {
		ts, err := strconv.ParseInt(entry.TimeStamp, 10, 64)
		if err != nil {
			continue
		}
		ageDays := int(time.Since(time.Unix(ts, 0)).Hours() / 24)
		if ageDays > 0 {
			return true
		}
	}
	return false
}

// Package eth implements the chain RPC source used by the bridge
// ingestion jobs.
package eth

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	ethCommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/MShafiMalik/lumio-portal-backend/log"
)

const moduleName = "eth"

// Total attempts for a single block timestamp resolution. Retries are issued
// back to back; once exhausted the whole ingestion pass for the window is
// abandoned and retried on the job's next scheduled run.
const blockTimestampAttempts = 6

// Client is a source storage client for an Ethereum JSON-RPC endpoint.
type Client struct {
	eth    *ethclient.Client
	rpc    *rpc.Client
	logger *log.Logger
}

// NewClient connects to the given Ethereum JSON-RPC endpoint.
func NewClient(ctx context.Context, url string, l *log.Logger) (*Client, error) {
	rc, err := rpc.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("rpc DialContext %s: %w", url, err)
	}
	return &Client{
		eth:    ethclient.NewClient(rc),
		rpc:    rc,
		logger: l.WithModule(moduleName),
	}, nil
}

// BlockNumber returns the current chain head height.
func (c *Client) BlockNumber(ctx context.Context) (uint64, error) {
	return c.eth.BlockNumber(ctx)
}

// FilterLogs fetches event logs for one contract and topic filter in the
// given inclusive block range. Errors are propagated untouched; the retry
// policy for throttling errors lives in the ingestion worker.
func (c *Client) FilterLogs(ctx context.Context, fromBlock, toBlock uint64, address ethCommon.Address, topic ethCommon.Hash) ([]types.Log, error) {
	return c.eth.FilterLogs(ctx, ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(fromBlock),
		ToBlock:   new(big.Int).SetUint64(toBlock),
		Addresses: []ethCommon.Address{address},
		Topics:    [][]ethCommon.Hash{{topic}},
	})
}

// Minimal view of an eth_getBlockByNumber response.
type blockHeader struct {
	Number    hexutil.Uint64 `json:"number"`
	Timestamp hexutil.Uint64 `json:"timestamp"`
}

// BlockTimestamp resolves the timestamp of the given block via a raw
// eth_getBlockByNumber call, retrying synchronously on any failure with no
// delay between attempts.
func (c *Client) BlockTimestamp(ctx context.Context, blockNumber uint64) (uint64, error) {
	var lastErr error
	for attempt := 0; attempt < blockTimestampAttempts; attempt++ {
		var header *blockHeader
		err := c.rpc.CallContext(ctx, &header, "eth_getBlockByNumber", hexutil.EncodeUint64(blockNumber), false)
		switch {
		case err != nil:
			lastErr = err
		case header == nil:
			lastErr = fmt.Errorf("block %d not found", blockNumber)
		default:
			return uint64(header.Timestamp), nil
		}
	}
	return 0, fmt.Errorf("resolving timestamp of block %d: %w", blockNumber, lastErr)
}

// Close shuts down the underlying RPC connection.
func (c *Client) Close() {
	c.eth.Close()
}

// Name returns the name of the source storage.
func (c *Client) Name() string {
	return moduleName
}

// RPC error codes that indicate the requested range was too large or the
// endpoint is rate limiting us. Both are recovered locally by shrinking the
// chunk size and retrying the same window.
var throttleErrorCodes = map[int]struct{}{
	-32602: {},
	-32005: {},
	-32020: {},
}

// IsThrottleError reports whether the error carries one of the RPC error
// codes that should trigger chunk-size backoff.
func IsThrottleError(err error) bool {
	var rpcErr rpc.Error
	if !errors.As(err, &rpcErr) {
		return false
	}
	_, ok := throttleErrorCodes[rpcErr.ErrorCode()]
	return ok
}

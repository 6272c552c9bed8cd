// Package bridge implements the per-job ingestion worker that pulls deposit
// event logs from the chain RPC in bounded block ranges and merges them into
// per-wallet transaction records.
package bridge

import (
	"context"
	"fmt"
	"sync"
	"time"

	ethCommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"golang.org/x/sync/errgroup"

	"github.com/MShafiMalik/lumio-portal-backend/analyzer"
	"github.com/MShafiMalik/lumio-portal-backend/analyzer/util"
	"github.com/MShafiMalik/lumio-portal-backend/config"
	"github.com/MShafiMalik/lumio-portal-backend/log"
	"github.com/MShafiMalik/lumio-portal-backend/metrics"
	"github.com/MShafiMalik/lumio-portal-backend/storage/client"
	"github.com/MShafiMalik/lumio-portal-backend/storage/eth"
)

const (
	// DefaultChunkSize is the block-range width a job resets to after each
	// successful pass.
	DefaultChunkSize = 10000

	// chunkFloorReset replaces a chunk size that halved to zero; the window
	// width must never reach zero or ingestion would stall.
	chunkFloorReset = 200

	defaultInterval = time.Second
)

// Source is the chain RPC boundary consumed by the worker.
type Source interface {
	// BlockNumber returns the current chain head height.
	BlockNumber(ctx context.Context) (uint64, error)

	// FilterLogs fetches event logs in the given inclusive block range.
	FilterLogs(ctx context.Context, fromBlock, toBlock uint64, address ethCommon.Address, topic ethCommon.Hash) ([]types.Log, error)

	// BlockTimestamp resolves the timestamp of the given block.
	BlockTimestamp(ctx context.Context, blockNumber uint64) (uint64, error)
}

// Store is the persistence boundary consumed by the worker.
type Store interface {
	BridgeProgress(ctx context.Context, jobID string) (*client.BridgeProgress, error)
	SetBridgeProgress(ctx context.Context, jobID string, p client.BridgeProgress) error
	MergeWalletEvents(ctx context.Context, jobID, walletAddress, bridgeName, contractAddress string, newEvents []client.ChainEvent) error
}

type bridgeAnalyzer struct {
	job          Job
	interval     time.Duration
	defaultChunk uint64

	source Source
	store  Store

	logger  *log.Logger
	metrics metrics.IngestMetrics
}

var _ analyzer.Analyzer = (*bridgeAnalyzer)(nil)

// NewAnalyzer returns an ingestion worker for the given job definition.
func NewAnalyzer(job Job, cfg *config.AnalysisConfig, source Source, store Store, logger *log.Logger) (analyzer.Analyzer, error) {
	interval := cfg.Interval
	if interval == 0 {
		interval = defaultInterval
	}
	defaultChunk := cfg.DefaultChunkSize
	if defaultChunk == 0 {
		defaultChunk = DefaultChunkSize
	}
	return &bridgeAnalyzer{
		job:          job,
		interval:     interval,
		defaultChunk: defaultChunk,
		source:       source,
		store:        store,
		logger:       logger.With("job", job.ID),
		metrics:      metrics.NewDefaultIngestMetrics("portal"),
	}, nil
}

// Start runs ingestion passes forever, one at a time, with a fixed delay
// between passes. A failed pass leaves the cursor untouched, so the next
// pass retries the identical window; hash dedup at merge time makes the
// re-ingestion idempotent. Consecutive failures widen the delay up to a
// bounded maximum.
func (a *bridgeAnalyzer) Start(ctx context.Context) {
	backoff, err := util.NewBackoff(a.interval, 32*a.interval)
	if err != nil {
		a.logger.Error("error configuring backoff policy", "err", err)
		return
	}

	for firstIter := true; ; firstIter = false {
		delay := backoff.Timeout()
		if firstIter {
			delay = 0
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			a.logger.Warn("shutting down bridge analyzer", "reason", ctx.Err())
			return
		}

		if err := a.processPass(ctx); err != nil {
			a.logger.Error("ingestion pass failed", "err", err)
			a.metrics.Passes(a.job.ID, "failure").Inc()
			backoff.Failure()
			continue
		}
		backoff.Success()
		a.metrics.Passes(a.job.ID, "success").Inc()
	}
}

func (a *bridgeAnalyzer) Name() string {
	return a.job.ID
}

// planWindow computes the next ingestion window from the persisted cursor,
// the chain head and the live chunk size. ok is false when the cursor has
// caught up with the head and there is nothing to do.
func planWindow(nextBlock, head, chunkSize uint64) (fromBlock, toBlock uint64, ok bool) {
	if nextBlock >= head {
		return 0, 0, false
	}
	toBlock = nextBlock + chunkSize
	if toBlock > head {
		toBlock = head
	}
	return nextBlock, toBlock, true
}

// shrinkChunk halves the chunk size, wrapping to chunkFloorReset when the
// halved value rounds to zero.
func shrinkChunk(chunkSize uint64) uint64 {
	chunkSize /= 2
	if chunkSize == 0 {
		return chunkFloorReset
	}
	return chunkSize
}

// processPass runs one ingestion pass: plan the window, fetch logs, resolve
// timestamps, decode, aggregate per wallet, merge into storage, advance the
// cursor. RPC throttling errors shrink the chunk size and restart the pass
// with the same fromBlock; all other errors abort the pass with the cursor
// untouched.
func (a *bridgeAnalyzer) processPass(ctx context.Context) error {
	prog, err := a.store.BridgeProgress(ctx, a.job.ID)
	if err != nil {
		return fmt.Errorf("loading progress: %w", err)
	}
	if prog == nil {
		// First run of this job; the cursor is created lazily at the
		// configured start block.
		prog = &client.BridgeProgress{NextBlock: a.job.StartBlock, ChunkSize: a.defaultChunk}
		if err = a.store.SetBridgeProgress(ctx, a.job.ID, *prog); err != nil {
			return fmt.Errorf("initializing progress: %w", err)
		}
	}

	for {
		head, err := a.source.BlockNumber(ctx)
		if err != nil {
			return fmt.Errorf("fetching chain head: %w", err)
		}
		fromBlock, toBlock, ok := planWindow(prog.NextBlock, head, prog.ChunkSize)
		if !ok {
			// Caught up with the chain head; poll again on the next pass.
			return nil
		}

		logs, err := a.source.FilterLogs(ctx, fromBlock, toBlock, a.job.ContractAddress, a.job.Topic)
		if err != nil {
			if !eth.IsThrottleError(err) {
				return fmt.Errorf("fetching logs [%d, %d]: %w", fromBlock, toBlock, err)
			}
			prog.ChunkSize = shrinkChunk(prog.ChunkSize)
			a.metrics.ChunkSize(a.job.ID).Set(float64(prog.ChunkSize))
			a.logger.Warn("rpc throttled, shrinking chunk size",
				"from_block", fromBlock,
				"chunk_size", prog.ChunkSize,
				"err", err,
			)
			// Persist the shrunken chunk with the cursor untouched, so a
			// restart resumes with the adapted width.
			if err = a.store.SetBridgeProgress(ctx, a.job.ID, *prog); err != nil {
				return fmt.Errorf("persisting chunk size: %w", err)
			}
			continue
		}

		a.logger.Info("processing window",
			"from_block", fromBlock,
			"to_block", toBlock,
			"chunk_size", prog.ChunkSize,
			"num_logs", len(logs),
		)
		a.metrics.LogsFetched(a.job.ID).Add(float64(len(logs)))

		groups, err := a.collectEvents(ctx, logs)
		if err != nil {
			return err
		}
		a.persistGroups(ctx, groups)

		// An empty log set still advances the cursor; absence of events is
		// not an error.
		prog.NextBlock = toBlock
		prog.ChunkSize = a.defaultChunk
		a.metrics.ChunkSize(a.job.ID).Set(float64(prog.ChunkSize))
		if err = a.store.SetBridgeProgress(ctx, a.job.ID, *prog); err != nil {
			return fmt.Errorf("advancing cursor to %d: %w", toBlock, err)
		}
		return nil
	}
}

// collectEvents resolves every log's block timestamp concurrently, decodes
// the logs and groups the resulting events per wallet. The first timestamp
// resolution or decode failure aborts the whole pass.
func (a *bridgeAnalyzer) collectEvents(ctx context.Context, logs []types.Log) (map[ethCommon.Address][]client.ChainEvent, error) {
	groups := make(map[ethCommon.Address][]client.ChainEvent)
	var mu sync.Mutex

	eg, egCtx := errgroup.WithContext(ctx)
	for _, lg := range logs {
		lg := lg
		eg.Go(func() error {
			timestamp, err := a.source.BlockTimestamp(egCtx, lg.BlockNumber)
			if err != nil {
				return err
			}
			decoded, err := a.job.Kind.Decode(lg)
			if err != nil {
				return err
			}
			event := client.ChainEvent{
				Hash:        lg.TxHash.Hex(),
				BlockNumber: lg.BlockNumber,
				Timestamp:   int64(timestamp),
				Value:       decoded.Amount.String(),
				Token:       string(decoded.Token),
			}
			mu.Lock()
			groups[decoded.Wallet] = append(groups[decoded.Wallet], event)
			mu.Unlock()
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return groups, nil
}

// persistGroups merges the aggregated events into storage, one wallet at a
// time, in parallel. Per-wallet failures are logged and skipped; the pass
// still advances.
func (a *bridgeAnalyzer) persistGroups(ctx context.Context, groups map[ethCommon.Address][]client.ChainEvent) {
	var wg sync.WaitGroup
	for wallet, events := range groups {
		wg.Add(1)
		go func(wallet ethCommon.Address, events []client.ChainEvent) {
			defer wg.Done()
			err := a.store.MergeWalletEvents(
				ctx,
				a.job.ID,
				wallet.Hex(),
				a.job.BridgeName,
				a.job.ContractAddress.Hex(),
				events,
			)
			if err != nil {
				a.logger.Error("wallet merge failed",
					"wallet_address", wallet.Hex(),
					"num_events", len(events),
					"err", err,
				)
			}
		}(wallet, events)
	}
	wg.Wait()
}

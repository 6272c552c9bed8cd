// Package client implements the portal datastore on top of target storage.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/MShafiMalik/lumio-portal-backend/log"
	"github.com/MShafiMalik/lumio-portal-backend/metrics"
	"github.com/MShafiMalik/lumio-portal-backend/storage"
)

const moduleName = "portal_storage"

// SchemaVersion is the compiled-in data schema version. If the persisted
// marker differs at startup, all ingestion state is wiped and jobs restart
// from their configured start blocks.
const SchemaVersion = "0.10"

// BridgeProgress is the persisted cursor of one ingestion job, together
// with its live chunk size.
type BridgeProgress struct {
	NextBlock uint64
	ChunkSize uint64
}

// StorageClient is a wrapper around the target storage with knowledge of
// the portal's data model.
type StorageClient struct {
	db      storage.TargetStorage
	logger  *log.Logger
	metrics metrics.IngestMetrics
}

// NewStorageClient creates a new portal storage client.
func NewStorageClient(db storage.TargetStorage, l *log.Logger) *StorageClient {
	return &StorageClient{
		db:      db,
		logger:  l.WithModule(moduleName),
		metrics: metrics.NewDefaultIngestMetrics("portal"),
	}
}

// ResetOnVersionMismatch compares the persisted schema version marker
// against the compiled-in constant. On mismatch (or missing marker) it
// truncates all ingestion and transaction state and writes the new marker.
func (c *StorageClient) ResetOnVersionMismatch(ctx context.Context) error {
	var stored string
	err := c.db.QueryRow(ctx, qSchemaVersion).Scan(&stored)
	switch {
	case err == nil && stored == SchemaVersion:
		return nil
	case err != nil && !errors.Is(err, pgx.ErrNoRows):
		return fmt.Errorf("reading schema version: %w", err)
	}

	c.logger.Warn("schema version mismatch, wiping ingestion state",
		"stored", stored,
		"current", SchemaVersion,
	)
	batch := &storage.QueryBatch{}
	batch.Queue(qTruncateWallets)
	batch.Queue(qTruncateProgress)
	batch.Queue(qTruncateInteractions)
	batch.Queue(qTruncateSchemaVersion)
	batch.Queue(qSchemaVersionInsert, SchemaVersion)
	if err := c.db.SendBatch(ctx, batch); err != nil {
		return fmt.Errorf("wiping ingestion state: %w", err)
	}
	return nil
}

// BridgeProgress returns the persisted cursor for the given job, or nil if
// the job has never run.
func (c *StorageClient) BridgeProgress(ctx context.Context, jobID string) (*BridgeProgress, error) {
	var p BridgeProgress
	err := c.db.QueryRow(ctx, qBridgeProgress, jobID).Scan(&p.NextBlock, &p.ChunkSize)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return nil, nil
	case err != nil:
		return nil, err
	}
	return &p, nil
}

// SetBridgeProgress persists the cursor and chunk size for the given job.
func (c *StorageClient) SetBridgeProgress(ctx context.Context, jobID string, p BridgeProgress) error {
	_, err := c.db.Exec(ctx, qBridgeProgressUpsert, jobID, p.NextBlock, p.ChunkSize)
	return err
}

// WalletRecord returns the transaction document for the given wallet, or
// nil if the wallet has never been seen.
func (c *StorageClient) WalletRecord(ctx context.Context, walletAddress string) (*WalletRecord, error) {
	rec, _, err := c.walletRecord(ctx, walletAddress)
	return rec, err
}

func (c *StorageClient) walletRecord(ctx context.Context, walletAddress string) (*WalletRecord, int64, error) {
	var (
		data       []byte
		rowVersion int64
		createdAt  time.Time
		updatedAt  time.Time
	)
	err := c.db.QueryRow(ctx, qWalletRecord, walletAddress).Scan(&data, &rowVersion, &createdAt, &updatedAt)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return nil, 0, nil
	case err != nil:
		return nil, 0, err
	}

	var bridges []BridgeEntry
	if err := json.Unmarshal(data, &bridges); err != nil {
		return nil, 0, fmt.Errorf("malformed wallet document %s: %w", walletAddress, err)
	}
	return &WalletRecord{
		WalletAddress: walletAddress,
		Bridges:       bridges,
		CreatedAt:     createdAt,
		UpdatedAt:     updatedAt,
	}, rowVersion, nil
}

// MergeWalletEvents merges newly ingested events into the wallet's record
// under the given bridge label, deduplicating by event hash. Conflicting
// concurrent merges are resolved by retrying from the read step; conflicts
// are rare and transient, so retries are unbounded.
func (c *StorageClient) MergeWalletEvents(ctx context.Context, jobID, walletAddress, bridgeName, contractAddress string, newEvents []ChainEvent) error {
	for {
		rec, rowVersion, err := c.walletRecord(ctx, walletAddress)
		if err != nil {
			return err
		}

		if rec == nil {
			doc, err := json.Marshal([]BridgeEntry{{
				BridgeName:      bridgeName,
				ContractAddress: contractAddress,
				Events:          newEvents,
			}})
			if err != nil {
				return err
			}
			n, err := c.db.Exec(ctx, qWalletRecordInsert, walletAddress, doc)
			if err != nil {
				return err
			}
			if n == 1 {
				return nil
			}
			// A concurrent merge created the record first; retry as an update.
			c.metrics.MergeConflicts(jobID).Inc()
			continue
		}

		if !mergeEvents(rec, bridgeName, contractAddress, newEvents) {
			return nil
		}
		doc, err := json.Marshal(rec.Bridges)
		if err != nil {
			return err
		}
		n, err := c.db.Exec(ctx, qWalletRecordUpdate, walletAddress, doc, rowVersion)
		if err != nil {
			return err
		}
		if n == 1 {
			return nil
		}
		c.metrics.MergeConflicts(jobID).Inc()
		c.logger.Debug("wallet merge conflict, retrying",
			"job", jobID,
			"wallet_address", walletAddress,
		)
	}
}

// UniswapInteraction returns the cached interaction flag for the wallet.
// found is false if the wallet has no cached result.
func (c *StorageClient) UniswapInteraction(ctx context.Context, walletAddress string) (interacted bool, found bool, err error) {
	err = c.db.QueryRow(ctx, qUniswapInteraction, walletAddress).Scan(&interacted)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return false, false, nil
	case err != nil:
		return false, false, err
	}
	return interacted, true, nil
}

// SetUniswapInteraction caches the interaction flag for the wallet. The
// cache is write-once; later writes for the same wallet are no-ops.
func (c *StorageClient) SetUniswapInteraction(ctx context.Context, walletAddress string, interacted bool) error {
	_, err := c.db.Exec(ctx, qUniswapInteractionInsert, walletAddress, interacted)
	return err
}

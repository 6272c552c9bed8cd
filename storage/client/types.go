package client

import "time"

// ChainEvent is one decoded deposit log. The transaction hash is the
// idempotency key: within a wallet record, a bridge entry never holds two
// events with the same hash, which makes re-ingestion of overlapping block
// ranges safe.
type ChainEvent struct {
	Hash        string `json:"hash"`
	BlockNumber uint64 `json:"block_number"`
	Timestamp   int64  `json:"timestamp"`
	// Value is the raw integer amount as a decimal string. Values can exceed
	// 64 bits (up to 256-bit magnitude), so they are never parsed into
	// machine integers.
	Value string `json:"value"`
	Token string `json:"token"`
}

// BridgeEntry is a wallet's accumulated event list for one bridge label.
type BridgeEntry struct {
	BridgeName      string       `json:"bridge_name"`
	ContractAddress string       `json:"contract_address"`
	Events          []ChainEvent `json:"events"`
}

// WalletRecord is the per-wallet transaction document.
type WalletRecord struct {
	WalletAddress string        `json:"-"`
	Bridges       []BridgeEntry `json:"-"`

	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

// Bridge returns the entry for the given bridge label, or nil.
func (r *WalletRecord) Bridge(bridgeName string) *BridgeEntry {
	for i := range r.Bridges {
		if r.Bridges[i].BridgeName == bridgeName {
			return &r.Bridges[i]
		}
	}
	return nil
}

// mergeEvents merges newEvents into the record's entry for the given bridge
// label, creating the entry if absent and skipping events whose hash is
// already present. Reports whether the record was modified.
func mergeEvents(rec *WalletRecord, bridgeName, contractAddress string, newEvents []ChainEvent) bool {
	entry := rec.Bridge(bridgeName)
	if entry == nil {
		rec.Bridges = append(rec.Bridges, BridgeEntry{
			BridgeName:      bridgeName,
			ContractAddress: contractAddress,
			Events:          append([]ChainEvent{}, newEvents...),
		})
		return true
	}

	seen := make(map[string]struct{}, len(entry.Events))
	for _, ev := range entry.Events {
		seen[ev.Hash] = struct{}{}
	}

	appended := false
	for _, ev := range newEvents {
		if _, ok := seen[ev.Hash]; ok {
			continue
		}
		seen[ev.Hash] = struct{}{}
		entry.Events = append(entry.Events, ev)
		appended = true
	}
	return appended
}

package client

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func ev(hash string) ChainEvent {
	return ChainEvent{
		Hash:        hash,
		BlockNumber: 100,
		Timestamp:   1700000000,
		Value:       "10000000000000000",
		Token:       "eth",
	}
}

func hashes(entry *BridgeEntry) []string {
	out := make([]string, 0, len(entry.Events))
	for _, e := range entry.Events {
		out = append(out, e.Hash)
	}
	return out
}

func TestMergeCreatesBridgeEntry(t *testing.T) {
	rec := &WalletRecord{WalletAddress: "0xabc"}

	modified := mergeEvents(rec, "Lumio", "0xbridge", []ChainEvent{ev("0x1"), ev("0x2")})
	require.True(t, modified)
	require.Len(t, rec.Bridges, 1)
	require.Equal(t, "Lumio", rec.Bridges[0].BridgeName)
	require.Equal(t, "0xbridge", rec.Bridges[0].ContractAddress)
	require.Equal(t, []string{"0x1", "0x2"}, hashes(&rec.Bridges[0]))
}

func TestMergeAppendsSecondBridge(t *testing.T) {
	rec := &WalletRecord{WalletAddress: "0xabc"}
	require.True(t, mergeEvents(rec, "Lumio", "0xbridge", []ChainEvent{ev("0x1")}))

	require.True(t, mergeEvents(rec, "Blast", "0xother", []ChainEvent{ev("0x1")}))
	require.Len(t, rec.Bridges, 2)
	// The same hash may appear under different bridge labels.
	require.Equal(t, []string{"0x1"}, hashes(rec.Bridge("Lumio")))
	require.Equal(t, []string{"0x1"}, hashes(rec.Bridge("Blast")))
}

func TestMergeIsUnionByHash(t *testing.T) {
	rec := &WalletRecord{WalletAddress: "0xabc"}
	require.True(t, mergeEvents(rec, "Lumio", "0xbridge", []ChainEvent{ev("0x1"), ev("0x2")}))

	// Overlapping batch: only the unseen hash is appended.
	require.True(t, mergeEvents(rec, "Lumio", "0xbridge", []ChainEvent{ev("0x2"), ev("0x3")}))
	require.Equal(t, []string{"0x1", "0x2", "0x3"}, hashes(rec.Bridge("Lumio")))
}

func TestMergeIdempotent(t *testing.T) {
	batch := []ChainEvent{ev("0x1"), ev("0x2")}
	rec := &WalletRecord{WalletAddress: "0xabc"}
	require.True(t, mergeEvents(rec, "Lumio", "0xbridge", batch))

	// Re-merging an already-ingested batch must not modify the record.
	require.False(t, mergeEvents(rec, "Lumio", "0xbridge", batch))
	require.Equal(t, []string{"0x1", "0x2"}, hashes(rec.Bridge("Lumio")))
}

func TestMergeDedupsWithinBatch(t *testing.T) {
	rec := &WalletRecord{WalletAddress: "0xabc"}
	require.True(t, mergeEvents(rec, "Lumio", "0xbridge", []ChainEvent{ev("0x1")}))
	require.True(t, mergeEvents(rec, "Lumio", "0xbridge", []ChainEvent{ev("0x2"), ev("0x2")}))
	require.Equal(t, []string{"0x1", "0x2"}, hashes(rec.Bridge("Lumio")))
}

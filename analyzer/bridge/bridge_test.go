package bridge

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"testing"

	ethCommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"

	"github.com/MShafiMalik/lumio-portal-backend/config"
	"github.com/MShafiMalik/lumio-portal-backend/log"
	"github.com/MShafiMalik/lumio-portal-backend/storage/client"
)

// throttleError mimics a JSON-RPC error response carrying an error code.
type throttleError struct {
	code int
}

func (e *throttleError) Error() string  { return fmt.Sprintf("rpc error %d", e.code) }
func (e *throttleError) ErrorCode() int { return e.code }

type mockSource struct {
	head       uint64
	timestamp  uint64
	logs       []types.Log
	filterErrs []error // consumed one per FilterLogs call, nil entries succeed

	mu      sync.Mutex
	windows [][2]uint64
}

func (s *mockSource) BlockNumber(ctx context.Context) (uint64, error) {
	return s.head, nil
}

func (s *mockSource) FilterLogs(ctx context.Context, fromBlock, toBlock uint64, address ethCommon.Address, topic ethCommon.Hash) ([]types.Log, error) {
	s.mu.Lock()
	s.windows = append(s.windows, [2]uint64{fromBlock, toBlock})
	var err error
	if len(s.filterErrs) > 0 {
		err = s.filterErrs[0]
		s.filterErrs = s.filterErrs[1:]
	}
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return s.logs, nil
}

func (s *mockSource) BlockTimestamp(ctx context.Context, blockNumber uint64) (uint64, error) {
	if s.timestamp == 0 {
		return 0, fmt.Errorf("timestamp unavailable for block %d", blockNumber)
	}
	return s.timestamp, nil
}

type mergeCall struct {
	walletAddress   string
	bridgeName      string
	contractAddress string
	events          []client.ChainEvent
}

type mockStore struct {
	mu       sync.Mutex
	progress map[string]client.BridgeProgress
	history  []client.BridgeProgress
	merges   []mergeCall
}

func newMockStore() *mockStore {
	return &mockStore{progress: map[string]client.BridgeProgress{}}
}

func (s *mockStore) BridgeProgress(ctx context.Context, jobID string) (*client.BridgeProgress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.progress[jobID]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (s *mockStore) SetBridgeProgress(ctx context.Context, jobID string, p client.BridgeProgress) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.progress[jobID] = p
	s.history = append(s.history, p)
	return nil
}

func (s *mockStore) MergeWalletEvents(ctx context.Context, jobID, walletAddress, bridgeName, contractAddress string, newEvents []client.ChainEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.merges = append(s.merges, mergeCall{walletAddress, bridgeName, contractAddress, newEvents})
	return nil
}

func newTestAnalyzer(t *testing.T, source Source, store Store) *bridgeAnalyzer {
	job := DefaultJobs()[0] // lumio_eth_deposit
	cfg := &config.AnalysisConfig{DefaultChunkSize: 30}
	a, err := NewAnalyzer(job, cfg, source, store, log.NewDefaultLogger("test"))
	require.NoError(t, err)
	return a.(*bridgeAnalyzer)
}

func TestPlanWindow(t *testing.T) {
	fromBlock, toBlock, ok := planWindow(100, 200, 30)
	require.True(t, ok)
	require.Equal(t, uint64(100), fromBlock)
	require.Equal(t, uint64(130), toBlock)

	// Chunk clamped to the chain head.
	_, toBlock, ok = planWindow(190, 200, 30)
	require.True(t, ok)
	require.Equal(t, uint64(200), toBlock)

	// Caught up: empty window.
	_, _, ok = planWindow(200, 200, 30)
	require.False(t, ok)
	_, _, ok = planWindow(250, 200, 30)
	require.False(t, ok)
}

func TestShrinkChunkConverges(t *testing.T) {
	chunk := uint64(10000)
	for i := 0; i < 20; i++ {
		next := shrinkChunk(chunk)
		require.NotZero(t, next)
		if chunk > 1 {
			require.Less(t, next, chunk)
		}
		chunk = next
	}
	// Halving 1 rounds to 0, which wraps to the floor reset value.
	require.Equal(t, uint64(chunkFloorReset), shrinkChunk(1))
}

func TestFirstPassCreatesCursor(t *testing.T) {
	source := &mockSource{head: DefaultJobs()[0].StartBlock + 100, timestamp: 1700000000}
	store := newMockStore()
	a := newTestAnalyzer(t, source, store)

	require.NoError(t, a.processPass(context.Background()))

	p, err := store.BridgeProgress(context.Background(), a.job.ID)
	require.NoError(t, err)
	require.NotNil(t, p)
	require.Equal(t, a.job.StartBlock+30, p.NextBlock)
	require.Equal(t, uint64(30), p.ChunkSize)
	require.Equal(t, [2]uint64{a.job.StartBlock, a.job.StartBlock + 30}, source.windows[0])
}

func TestCursorMonotonicAcrossPasses(t *testing.T) {
	source := &mockSource{head: DefaultJobs()[0].StartBlock + 100, timestamp: 1700000000}
	store := newMockStore()
	a := newTestAnalyzer(t, source, store)

	for i := 0; i < 5; i++ {
		require.NoError(t, a.processPass(context.Background()))
	}

	last := uint64(0)
	for _, p := range store.history {
		require.GreaterOrEqual(t, p.NextBlock, last)
		require.LessOrEqual(t, p.NextBlock, source.head)
		last = p.NextBlock
	}
	require.Equal(t, source.head, last)

	// Caught up: further passes are no-ops.
	n := len(store.history)
	require.NoError(t, a.processPass(context.Background()))
	require.Len(t, store.history, n)
}

func TestThrottleShrinksChunkAndRetainsCursor(t *testing.T) {
	source := &mockSource{
		head:      DefaultJobs()[0].StartBlock + 100,
		timestamp: 1700000000,
		filterErrs: []error{
			&throttleError{code: -32005},
			&throttleError{code: -32602},
			nil,
		},
	}
	store := newMockStore()
	a := newTestAnalyzer(t, source, store)

	require.NoError(t, a.processPass(context.Background()))

	// Every retry starts from the same block with a strictly smaller chunk.
	require.Len(t, source.windows, 3)
	start := a.job.StartBlock
	require.Equal(t, [2]uint64{start, start + 30}, source.windows[0])
	require.Equal(t, [2]uint64{start, start + 15}, source.windows[1])
	require.Equal(t, [2]uint64{start, start + 7}, source.windows[2])

	// Success advances the cursor and resets the chunk size.
	p, err := store.BridgeProgress(context.Background(), a.job.ID)
	require.NoError(t, err)
	require.Equal(t, start+7, p.NextBlock)
	require.Equal(t, uint64(30), p.ChunkSize)
}

func TestNonThrottleErrorAbortsPass(t *testing.T) {
	source := &mockSource{
		head:       DefaultJobs()[0].StartBlock + 100,
		timestamp:  1700000000,
		filterErrs: []error{fmt.Errorf("connection reset")},
	}
	store := newMockStore()
	a := newTestAnalyzer(t, source, store)

	require.Error(t, a.processPass(context.Background()))

	// The cursor stays at the start block for the next scheduled run.
	p, err := store.BridgeProgress(context.Background(), a.job.ID)
	require.NoError(t, err)
	require.Equal(t, a.job.StartBlock, p.NextBlock)
}

func TestTimestampFailureAbortsPass(t *testing.T) {
	source := &mockSource{
		head: DefaultJobs()[0].StartBlock + 100,
		logs: []types.Log{ethDepositLog(t, big.NewInt(10000000000000000))},
		// timestamp unset: every BlockTimestamp call fails
	}
	store := newMockStore()
	a := newTestAnalyzer(t, source, store)

	require.Error(t, a.processPass(context.Background()))
	require.Empty(t, store.merges)
	p, err := store.BridgeProgress(context.Background(), a.job.ID)
	require.NoError(t, err)
	require.Equal(t, a.job.StartBlock, p.NextBlock)
}

func TestPassMergesDecodedEvents(t *testing.T) {
	amount := big.NewInt(10000000000000000)
	source := &mockSource{
		head:      DefaultJobs()[0].StartBlock + 100,
		timestamp: 1700000000,
		logs:      []types.Log{ethDepositLog(t, amount)},
	}
	store := newMockStore()
	a := newTestAnalyzer(t, source, store)

	require.NoError(t, a.processPass(context.Background()))

	require.Len(t, store.merges, 1)
	merge := store.merges[0]
	require.Equal(t, testWallet.Hex(), merge.walletAddress)
	require.Equal(t, a.job.BridgeName, merge.bridgeName)
	require.Equal(t, a.job.ContractAddress.Hex(), merge.contractAddress)
	require.Len(t, merge.events, 1)
	require.Equal(t, client.ChainEvent{
		Hash:        ethCommon.HexToHash("0xaa").Hex(),
		BlockNumber: 19314600,
		Timestamp:   1700000000,
		Value:       amount.String(),
		Token:       "eth",
	}, merge.events[0])
}

func TestEmptyWindowStillAdvancesCursor(t *testing.T) {
	source := &mockSource{head: DefaultJobs()[0].StartBlock + 10, timestamp: 1700000000}
	store := newMockStore()
	a := newTestAnalyzer(t, source, store)

	require.NoError(t, a.processPass(context.Background()))
	require.Empty(t, store.merges)
	p, err := store.BridgeProgress(context.Background(), a.job.ID)
	require.NoError(t, err)
	require.Equal(t, source.head, p.NextBlock)
}

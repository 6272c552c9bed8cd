package bridge

import (
	ethCommon "github.com/ethereum/go-ethereum/common"

	"github.com/MShafiMalik/lumio-portal-backend/common"
)

// JobKind identifies the decode rule of a monitored event stream. Each kind
// carries its own static argument-position mapping; see decoder.go.
type JobKind uint8

const (
	// KindLumioETHDeposit is an ETHDepositInitiated stream on an
	// optimism-style bridge; the recipient is the second indexed argument.
	KindLumioETHDeposit JobKind = iota
	// KindLumioERC20Deposit is an ERC20DepositInitiated stream; the
	// deposited token is resolved from the first indexed argument.
	KindLumioERC20Deposit
	// KindBlastDeposit covers the Blast ETHDeposited/USDDeposited streams;
	// the depositor is the first indexed argument.
	KindBlastDeposit
)

// Job is the static definition of one monitored event stream.
type Job struct {
	// ID uniquely identifies the job; it keys the persisted cursor.
	ID string

	// BridgeName is the label under which the job's events are grouped in
	// wallet records. Multiple jobs can feed the same bridge label.
	BridgeName string

	Kind            JobKind
	ContractAddress ethCommon.Address
	Topic           ethCommon.Hash

	// StartBlock is the block the job begins at when no cursor exists.
	StartBlock uint64
}

// Contract addresses and event topics of the monitored bridges.
var (
	lumioBridgeAddress    = ethCommon.HexToAddress("0xdB5C6b73CB1c5875995a42D64C250BF8BC69a8bc")
	optimismBridgeAddress = ethCommon.HexToAddress("0x99C9fc46f92E8a1c0deC1b1747d010903E884bE1")
	blastBridgeAddress    = ethCommon.HexToAddress("0x5f6ae08b8aeb7078cf2f96afb089d7c9f51da47d")

	topicETHDepositInitiated   = ethCommon.HexToHash("0x35d79ab81f2b2017e19afb5c5571778877782d7a8786f5907f93b0f4702f4f23")
	topicERC20DepositInitiated = ethCommon.HexToHash("0x718594027abd4eaed59f95162563e0cc6d0e8d5b86b1c7be8b1b0ac3343d0396")
	topicBlastETHDeposited     = ethCommon.HexToHash("0x5fb1eada1aad82df33a14506173621652514a3b876b0157aec3ca284a0472f61")
	topicBlastUSDDeposited     = ethCommon.HexToHash("0x8f7ca6ae00dc0904e82dea1f2b4a15053fa68c9364faea9fa6a77c500f696fba")
)

// DefaultJobs returns the static table of monitored event streams. Jobs are
// enumerated here, not discovered.
func DefaultJobs() []Job {
	return []Job{
		{
			ID:              "lumio_eth_deposit",
			BridgeName:      common.BridgeLumio,
			Kind:            KindLumioETHDeposit,
			ContractAddress: lumioBridgeAddress,
			Topic:           topicETHDepositInitiated,
			StartBlock:      19314571,
		},
		{
			ID:              "lumio_erc20_deposit",
			BridgeName:      common.BridgeLumio,
			Kind:            KindLumioERC20Deposit,
			ContractAddress: lumioBridgeAddress,
			Topic:           topicERC20DepositInitiated,
			StartBlock:      19314571,
		},
		{
			ID:              "optimism_eth_deposit",
			BridgeName:      common.BridgeOptimism,
			Kind:            KindLumioETHDeposit,
			ContractAddress: optimismBridgeAddress,
			Topic:           topicETHDepositInitiated,
			StartBlock:      12686786,
		},
		{
			ID:              "blast_eth_deposit",
			BridgeName:      common.BridgeBlast,
			Kind:            KindBlastDeposit,
			ContractAddress: blastBridgeAddress,
			Topic:           topicBlastETHDeposited,
			StartBlock:      18602739,
		},
		{
			ID:              "blast_usd_deposit",
			BridgeName:      common.BridgeBlast,
			Kind:            KindBlastDeposit,
			ContractAddress: blastBridgeAddress,
			Topic:           topicBlastUSDDeposited,
			StartBlock:      18602739,
		},
	}
}

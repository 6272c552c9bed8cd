package bridge

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	ethCommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/MShafiMalik/lumio-portal-backend/common"
)

// DecodedEvent is the wallet-relevant view of one raw deposit log.
type DecodedEvent struct {
	Wallet ethCommon.Address
	Amount *big.Int
	Token  common.Token
}

func mustNewType(t string) abi.Type {
	typ, err := abi.NewType(t, "", nil)
	if err != nil {
		panic(err)
	}
	return typ
}

var (
	typeAddress = mustNewType("address")
	typeUint256 = mustNewType("uint256")
	typeBytes   = mustNewType("bytes")

	// ETHDepositInitiated(address indexed from, address indexed to,
	//                     uint256 amount, bytes extraData)
	ethDepositData = abi.Arguments{
		{Name: "amount", Type: typeUint256},
		{Name: "extraData", Type: typeBytes},
	}

	// ERC20DepositInitiated(address indexed l1Token, address indexed l2Token,
	//                       address indexed from, address to, uint256 amount,
	//                       bytes extraData)
	erc20DepositData = abi.Arguments{
		{Name: "to", Type: typeAddress},
		{Name: "amount", Type: typeUint256},
		{Name: "extraData", Type: typeBytes},
	}

	// ETHDeposited/USDDeposited(address indexed depositor, uint256 refId,
	//                           uint256 amount)
	blastDepositData = abi.Arguments{
		{Name: "refId", Type: typeUint256},
		{Name: "amount", Type: typeUint256},
	}
)

// Decode extracts the wallet, raw amount and token kind from a raw log
// according to the kind's static argument-position mapping. It never
// mutates shared state and is deterministic given the same log.
func (k JobKind) Decode(lg types.Log) (*DecodedEvent, error) {
	switch k {
	case KindLumioETHDeposit:
		if len(lg.Topics) < 3 {
			return nil, fmt.Errorf("eth deposit log %s: expected 3 topics, got %d", lg.TxHash, len(lg.Topics))
		}
		vals, err := ethDepositData.Unpack(lg.Data)
		if err != nil {
			return nil, fmt.Errorf("eth deposit log %s: %w", lg.TxHash, err)
		}
		return &DecodedEvent{
			Wallet: ethCommon.BytesToAddress(lg.Topics[2].Bytes()),
			Amount: vals[0].(*big.Int),
			Token:  common.TokenETH,
		}, nil

	case KindLumioERC20Deposit:
		if len(lg.Topics) < 4 {
			return nil, fmt.Errorf("erc20 deposit log %s: expected 4 topics, got %d", lg.TxHash, len(lg.Topics))
		}
		vals, err := erc20DepositData.Unpack(lg.Data)
		if err != nil {
			return nil, fmt.Errorf("erc20 deposit log %s: %w", lg.TxHash, err)
		}
		l1Token := ethCommon.BytesToAddress(lg.Topics[1].Bytes())
		token, ok := common.TokenAddresses[l1Token]
		if !ok {
			// Unlisted tokens are accounted as the native kind.
			token = common.TokenETH
		}
		return &DecodedEvent{
			Wallet: vals[0].(ethCommon.Address),
			Amount: vals[1].(*big.Int),
			Token:  token,
		}, nil

	case KindBlastDeposit:
		if len(lg.Topics) < 2 {
			return nil, fmt.Errorf("blast deposit log %s: expected 2 topics, got %d", lg.TxHash, len(lg.Topics))
		}
		vals, err := blastDepositData.Unpack(lg.Data)
		if err != nil {
			return nil, fmt.Errorf("blast deposit log %s: %w", lg.TxHash, err)
		}
		return &DecodedEvent{
			Wallet: ethCommon.BytesToAddress(lg.Topics[1].Bytes()),
			Amount: vals[1].(*big.Int),
			Token:  common.TokenETH,
		}, nil

	default:
		return nil, fmt.Errorf("unknown job kind %d", k)
	}
}

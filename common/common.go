// Package common contains types and constants shared across the portal.
package common

import (
	"time"

	ethCommon "github.com/ethereum/go-ethereum/common"
)

// ContextKey is used to define context keys of portal-internal values.
type ContextKey string

const (
	// RequestIDContextKey is the key to access the request ID of the current
	// API request.
	RequestIDContextKey ContextKey = "request_id"
)

// Bridge labels under which events are grouped in a wallet record.
const (
	BridgeLumio    = "Lumio"
	BridgeOptimism = "Optimism"
	BridgeBlast    = "Blast"
)

// Token is a token kind tracked by the portal.
type Token string

const (
	TokenETH  Token = "eth"
	TokenPepe Token = "pepe"
	TokenPork Token = "pork"
	TokenUSDC Token = "usdc"
	TokenUSDT Token = "usdt"
)

// Decimals returns the number of decimals the token's raw on-chain amounts
// are scaled by.
func (t Token) Decimals() uint32 {
	switch t {
	case TokenUSDC, TokenUSDT:
		return 6
	default:
		return 18
	}
}

// TokenAddresses maps L1 token contract addresses to token kinds. Logs
// whose token argument is not listed here fall back to TokenETH.
var TokenAddresses = map[ethCommon.Address]Token{
	ethCommon.HexToAddress("0xb9f599ce614Feb2e1BBe58F180F370D05b39344E"): TokenPork,
	ethCommon.HexToAddress("0x6982508145454Ce325dDbE47a25d4ec3d2311933"): TokenPepe,
	ethCommon.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"): TokenUSDC,
	ethCommon.HexToAddress("0xdAC17F958D2ee523a2206206994597C13D831ec7"): TokenUSDT,
}

// BlastCutoff is the historical cutoff for the Blast eligibility rule; only
// deposits strictly before it count towards the Blast volume.
var BlastCutoff = time.Date(2024, time.February, 29, 21, 0, 0, 0, time.UTC)

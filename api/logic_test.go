package api

import (
	"testing"

	"github.com/cockroachdb/apd"
	"github.com/stretchr/testify/require"

	"github.com/MShafiMalik/lumio-portal-backend/common"
	"github.com/MShafiMalik/lumio-portal-backend/prices"
	"github.com/MShafiMalik/lumio-portal-backend/storage/client"
)

func event(hash, value string, token common.Token, timestamp int64) client.ChainEvent {
	return client.ChainEvent{
		Hash:        hash,
		BlockNumber: 19314600,
		Timestamp:   timestamp,
		Value:       value,
		Token:       string(token),
	}
}

func record(bridges ...client.BridgeEntry) *client.WalletRecord {
	return &client.WalletRecord{
		WalletAddress: "0x2222222222222222222222222222222222222222",
		Bridges:       bridges,
	}
}

func TestComputeResponseSingleDeposit(t *testing.T) {
	rec := record(client.BridgeEntry{
		BridgeName: common.BridgeLumio,
		Events: []client.ChainEvent{
			event("0x1", "10000000000000000", common.TokenETH, 1700000000),
		},
	})
	p := prices.Prices{common.TokenETH: 36.338}

	resp, err := computeResponse(rec, p, false)
	require.NoError(t, err)
	require.Equal(t, "0.0100", resp.WalletInfo.TotalTransVolumeEth)
	require.Equal(t, "0.3634", resp.WalletInfo.TotalTransVolumeUsd)
	require.Equal(t, 1, resp.WalletInfo.TotalTrans)

	// 0.36 USD is below the eligibility threshold: only early bird is set.
	require.True(t, resp.WalletStatus.EarlyBird)
	require.False(t, resp.WalletStatus.Optimism)
	require.False(t, resp.WalletStatus.Blast)
	require.False(t, resp.WalletStatus.Uniswap)
	require.False(t, resp.WalletStatus.Pepe)
}

func TestComputeResponseUnknownWallet(t *testing.T) {
	resp, err := computeResponse(nil, prices.Prices{common.TokenETH: 36.338}, true)
	require.NoError(t, err)
	require.Equal(t, "0.0", resp.WalletInfo.TotalTransVolumeEth)
	require.Equal(t, "0.0", resp.WalletInfo.TotalTransVolumeUsd)
	require.Equal(t, 0, resp.WalletInfo.TotalTrans)
	require.Equal(t, WalletStatus{}, resp.WalletStatus)
}

func TestComputeResponseExactThreshold(t *testing.T) {
	// 0.01 ETH at 100 USD/ETH is exactly 1.00 USD.
	rec := record(client.BridgeEntry{
		BridgeName: common.BridgeLumio,
		Events: []client.ChainEvent{
			event("0x1", "10000000000000000", common.TokenETH, 1700000000),
		},
	})
	p := prices.Prices{common.TokenETH: 100}

	resp, err := computeResponse(rec, p, true)
	require.NoError(t, err)
	require.Equal(t, "1.0000", resp.WalletInfo.TotalTransVolumeUsd)
	require.True(t, resp.WalletStatus.EarlyBird)
	require.True(t, resp.WalletStatus.Uniswap)
}

func TestComputeResponseBaseGatesEverything(t *testing.T) {
	// Large Optimism volume, but the base bridge volume is far below 1 USD.
	rec := record(
		client.BridgeEntry{
			BridgeName: common.BridgeLumio,
			Events: []client.ChainEvent{
				event("0x1", "1000000000000", common.TokenETH, 1700000000),
			},
		},
		client.BridgeEntry{
			BridgeName: common.BridgeOptimism,
			Events: []client.ChainEvent{
				event("0x2", "5000000000000000000", common.TokenETH, 1700000000),
			},
		},
	)
	p := prices.Prices{common.TokenETH: 100}

	resp, err := computeResponse(rec, p, true)
	require.NoError(t, err)
	require.True(t, resp.WalletStatus.EarlyBird)
	require.False(t, resp.WalletStatus.Optimism)
	require.False(t, resp.WalletStatus.Uniswap)
}

func TestComputeResponseSubordinateBridges(t *testing.T) {
	beforeCutoff := common.BlastCutoff.Unix() - 3600
	afterCutoff := common.BlastCutoff.Unix() + 3600
	rec := record(
		client.BridgeEntry{
			BridgeName: common.BridgeLumio,
			Events: []client.ChainEvent{
				event("0x1", "100000000000000000", common.TokenETH, 1700000000),
			},
		},
		client.BridgeEntry{
			BridgeName: common.BridgeOptimism,
			Events: []client.ChainEvent{
				event("0x2", "20000000000000000", common.TokenETH, 1700000000),
			},
		},
		client.BridgeEntry{
			BridgeName: common.BridgeBlast,
			Events: []client.ChainEvent{
				// Only the pre-cutoff deposit counts: 0.005 ETH = 0.50 USD.
				event("0x3", "5000000000000000", common.TokenETH, beforeCutoff),
				event("0x4", "1000000000000000000", common.TokenETH, afterCutoff),
			},
		},
	)
	p := prices.Prices{common.TokenETH: 100}

	resp, err := computeResponse(rec, p, false)
	require.NoError(t, err)
	require.True(t, resp.WalletStatus.Optimism)
	require.False(t, resp.WalletStatus.Blast)
	require.False(t, resp.WalletStatus.Uniswap)
}

func TestComputeResponseBlastBeforeCutoff(t *testing.T) {
	rec := record(
		client.BridgeEntry{
			BridgeName: common.BridgeLumio,
			Events: []client.ChainEvent{
				event("0x1", "100000000000000000", common.TokenETH, 1700000000),
			},
		},
		client.BridgeEntry{
			BridgeName: common.BridgeBlast,
			Events: []client.ChainEvent{
				event("0x2", "20000000000000000", common.TokenETH, common.BlastCutoff.Unix()-3600),
			},
		},
	)
	p := prices.Prices{common.TokenETH: 100}

	resp, err := computeResponse(rec, p, false)
	require.NoError(t, err)
	require.True(t, resp.WalletStatus.Blast)
}

func TestComputeResponseTokenFlags(t *testing.T) {
	rec := record(client.BridgeEntry{
		BridgeName: common.BridgeLumio,
		Events: []client.ChainEvent{
			// 1000 PEPE at 0.001 USD = 1.00 USD, crosses the token threshold.
			event("0x1", "1000000000000000000000", common.TokenPepe, 1700000000),
			// 0.5 USDC (6 decimals) stays below it.
			event("0x2", "500000", common.TokenUSDC, 1700000000),
			// 0.02 ETH keeps the base bridge eligible on its own.
			event("0x3", "20000000000000000", common.TokenETH, 1700000000),
		},
	})
	p := prices.Prices{
		common.TokenETH:  100,
		common.TokenPepe: 0.001,
		common.TokenUSDC: 1,
	}

	resp, err := computeResponse(rec, p, false)
	require.NoError(t, err)
	require.Equal(t, 3, resp.WalletInfo.TotalTrans)
	require.True(t, resp.WalletStatus.Pepe)
	require.False(t, resp.WalletStatus.USDC)
	require.False(t, resp.WalletStatus.Pork)
	require.False(t, resp.WalletStatus.USDT)
}

func TestComputeResponseZeroPricesDegrade(t *testing.T) {
	rec := record(client.BridgeEntry{
		BridgeName: common.BridgeLumio,
		Events: []client.ChainEvent{
			event("0x1", "10000000000000000", common.TokenETH, 1700000000),
			event("0x2", "500000", common.TokenUSDC, 1700000000),
		},
	})

	resp, err := computeResponse(rec, prices.Prices{}, false)
	require.NoError(t, err)
	require.Equal(t, "0.0100", resp.WalletInfo.TotalTransVolumeEth)
	require.Equal(t, "0.0", resp.WalletInfo.TotalTransVolumeUsd)
	require.True(t, resp.WalletStatus.EarlyBird)
	require.False(t, resp.WalletStatus.USDC)
}

func TestComputeResponseMalformedValue(t *testing.T) {
	rec := record(client.BridgeEntry{
		BridgeName: common.BridgeLumio,
		Events: []client.ChainEvent{
			event("0x1", "not-a-number", common.TokenETH, 1700000000),
		},
	})
	_, err := computeResponse(rec, prices.Prices{common.TokenETH: 100}, false)
	require.Error(t, err)
}

func TestFormatVolume(t *testing.T) {
	mustDecimal := func(s string) string {
		d, _, err := apd.NewFromString(s)
		require.NoError(t, err)
		return formatVolume(d)
	}
	require.Equal(t, "0.0", mustDecimal("0"))
	require.Equal(t, "0.0100", mustDecimal("0.01"))
	require.Equal(t, "0.3634", mustDecimal("0.36338"))
	require.Equal(t, "12.3457", mustDecimal("12.345678"))
	// Nonzero volumes below the display floor render as the sentinel.
	require.Equal(t, "<0.01", mustDecimal("0.00005"))
}

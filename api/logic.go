package api

import (
	"fmt"
	"strconv"

	"github.com/cockroachdb/apd"

	"github.com/MShafiMalik/lumio-portal-backend/common"
	"github.com/MShafiMalik/lumio-portal-backend/prices"
	"github.com/MShafiMalik/lumio-portal-backend/storage/client"
)

// Raw event values can reach 256-bit magnitude; 60 digits of precision keeps
// all sums and conversions exact well past that.
var decCtx = func() *apd.Context {
	ctx := apd.BaseContext.WithPrecision(60)
	ctx.Rounding = apd.RoundHalfUp
	return ctx
}()

var (
	// Subordinate eligibility flags require a USD-equivalent volume of 1.0.
	usdThreshold = apd.New(1, 0)

	// Nonzero volumes below this render as the small-amount sentinel.
	displayFloor = apd.New(1, -4)
)

const smallAmount = "<0.01"

var allTokens = []common.Token{
	common.TokenETH,
	common.TokenPepe,
	common.TokenPork,
	common.TokenUSDC,
	common.TokenUSDT,
}

// parsePrice converts a fetched USD price into an exact decimal.
func parsePrice(price float64) *apd.Decimal {
	d, _, err := apd.NewFromString(strconv.FormatFloat(price, 'f', -1, 64))
	if err != nil {
		// FormatFloat output is always a valid decimal string.
		panic(err)
	}
	return d
}

// tokenVolume sums the raw values of the given token's events and scales the
// sum by the token's decimal base, yielding the volume in the token's own
// units. Raw values are summed exactly; they may exceed 64 bits.
func tokenVolume(events []client.ChainEvent, token common.Token) (*apd.Decimal, error) {
	sum := apd.New(0, 0)
	for _, ev := range events {
		if ev.Token != string(token) {
			continue
		}
		value, _, err := apd.NewFromString(ev.Value)
		if err != nil {
			return nil, fmt.Errorf("malformed event value %q in tx %s: %w", ev.Value, ev.Hash, err)
		}
		if _, err = decCtx.Add(sum, sum, value); err != nil {
			return nil, err
		}
	}
	scaled := new(apd.Decimal)
	if _, err := decCtx.Quo(scaled, sum, apd.New(1, int32(token.Decimals()))); err != nil {
		return nil, err
	}
	return scaled, nil
}

// tokenVolumeInNative converts the token's volume to native-asset terms via
// the price ratio. The native token converts at 1. A zero native price makes
// conversion impossible; the contribution degrades to 0.
func tokenVolumeInNative(events []client.ChainEvent, token common.Token, p prices.Prices) (*apd.Decimal, error) {
	volume, err := tokenVolume(events, token)
	if err != nil {
		return nil, err
	}
	if token == common.TokenETH {
		return volume, nil
	}

	nativePrice := parsePrice(p.ByToken(common.TokenETH))
	if nativePrice.Sign() == 0 {
		return apd.New(0, 0), nil
	}
	converted := new(apd.Decimal)
	if _, err = decCtx.Mul(converted, volume, parsePrice(p.ByToken(token))); err != nil {
		return nil, err
	}
	if _, err = decCtx.Quo(converted, converted, nativePrice); err != nil {
		return nil, err
	}
	return converted, nil
}

// bridgeVolumeInNative sums a bridge entry's per-token volumes converted to
// native-asset terms.
func bridgeVolumeInNative(events []client.ChainEvent, p prices.Prices) (*apd.Decimal, error) {
	total := apd.New(0, 0)
	for _, token := range allTokens {
		volume, err := tokenVolumeInNative(events, token, p)
		if err != nil {
			return nil, err
		}
		if _, err = decCtx.Add(total, total, volume); err != nil {
			return nil, err
		}
	}
	return total, nil
}

// dateRangeFilteredVolume is bridgeVolumeInNative restricted to events that
// happened strictly before the cutoff.
func dateRangeFilteredVolume(events []client.ChainEvent, cutoff int64, p prices.Prices) (*apd.Decimal, error) {
	filtered := make([]client.ChainEvent, 0, len(events))
	for _, ev := range events {
		if ev.Timestamp < cutoff {
			filtered = append(filtered, ev)
		}
	}
	return bridgeVolumeInNative(filtered, p)
}

// usdValue converts a native-asset volume to USD at the current price.
func usdValue(volume *apd.Decimal, p prices.Prices) (*apd.Decimal, error) {
	usd := new(apd.Decimal)
	if _, err := decCtx.Mul(usd, volume, parsePrice(p.ByToken(common.TokenETH))); err != nil {
		return nil, err
	}
	return usd, nil
}

// tokenVolumeUsd is the token's volume valued directly at its own USD price,
// used by per-token eligibility flags.
func tokenVolumeUsd(events []client.ChainEvent, token common.Token, p prices.Prices) (*apd.Decimal, error) {
	volume, err := tokenVolume(events, token)
	if err != nil {
		return nil, err
	}
	usd := new(apd.Decimal)
	if _, err = decCtx.Mul(usd, volume, parsePrice(p.ByToken(token))); err != nil {
		return nil, err
	}
	return usd, nil
}

func meetsThreshold(usd *apd.Decimal) bool {
	return usd.Cmp(usdThreshold) >= 0
}

// formatVolume renders a volume to 4 decimals. Exact zero renders as "0.0";
// nonzero volumes below the display floor render as a small-amount sentinel
// instead of rounding down to "0.0000".
func formatVolume(volume *apd.Decimal) string {
	if volume.Sign() == 0 {
		return "0.0"
	}
	if volume.Cmp(displayFloor) < 0 {
		return smallAmount
	}
	rounded := new(apd.Decimal)
	if _, err := decCtx.Quantize(rounded, volume, -4); err != nil {
		return smallAmount
	}
	return rounded.Text('f')
}

// computeResponse derives the wallet's volume summary and eligibility flags
// from its transaction record and the current price table. A nil record
// yields the all-zero response.
//
// The base bridge gates everything: no subordinate flag can be true unless
// the base bridge's USD volume reaches the threshold. The early-bird flag is
// the exception and only requires any nonzero base volume.
func computeResponse(rec *client.WalletRecord, p prices.Prices, uniswapInteracted bool) (*TransactionsResponse, error) {
	resp := &TransactionsResponse{
		WalletInfo: WalletInfo{
			TotalTransVolumeEth: "0.0",
			TotalTransVolumeUsd: "0.0",
		},
	}
	if rec == nil {
		return resp, nil
	}

	var baseEvents []client.ChainEvent
	if entry := rec.Bridge(common.BridgeLumio); entry != nil {
		baseEvents = entry.Events
	}

	baseVolume, err := bridgeVolumeInNative(baseEvents, p)
	if err != nil {
		return nil, err
	}
	baseUsd, err := usdValue(baseVolume, p)
	if err != nil {
		return nil, err
	}
	resp.WalletInfo.TotalTransVolumeEth = formatVolume(baseVolume)
	resp.WalletInfo.TotalTransVolumeUsd = formatVolume(baseUsd)
	resp.WalletInfo.TotalTrans = len(baseEvents)

	resp.WalletStatus.EarlyBird = baseVolume.Sign() > 0
	if !meetsThreshold(baseUsd) {
		return resp, nil
	}

	if entry := rec.Bridge(common.BridgeOptimism); entry != nil {
		volume, err := bridgeVolumeInNative(entry.Events, p)
		if err != nil {
			return nil, err
		}
		usd, err := usdValue(volume, p)
		if err != nil {
			return nil, err
		}
		resp.WalletStatus.Optimism = meetsThreshold(usd)
	}

	if entry := rec.Bridge(common.BridgeBlast); entry != nil {
		volume, err := dateRangeFilteredVolume(entry.Events, common.BlastCutoff.Unix(), p)
		if err != nil {
			return nil, err
		}
		usd, err := usdValue(volume, p)
		if err != nil {
			return nil, err
		}
		resp.WalletStatus.Blast = meetsThreshold(usd)
	}

	resp.WalletStatus.Uniswap = uniswapInteracted

	for token, flag := range map[common.Token]*bool{
		common.TokenPepe: &resp.WalletStatus.Pepe,
		common.TokenPork: &resp.WalletStatus.Pork,
		common.TokenUSDC: &resp.WalletStatus.USDC,
		common.TokenUSDT: &resp.WalletStatus.USDT,
	} {
		usd, err := tokenVolumeUsd(baseEvents, token, p)
		if err != nil {
			return nil, err
		}
		*flag = meetsThreshold(usd)
	}

	return resp, nil
}

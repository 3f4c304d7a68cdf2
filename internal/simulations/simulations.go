/*
Package simulations previews pool operations without executing them. Each
preview mirrors the validation order of the live operation and reports the
first rule the request would break, so callers can rehearse a stake, a
trade, or a withdrawal against current records before spending a
transaction on it.

Previews are pure: nothing here locks the pool row or moves funds, and a
passing preview is no reservation. Another operation can land between the
preview and the live call and change the outcome.
*/
package simulations

import (
	"fmt"
	"time"

	"github.com/agentstake/psl/internal/config"
	"github.com/agentstake/psl/internal/fees"
	"github.com/agentstake/psl/internal/invariant"
	"github.com/agentstake/psl/internal/types"
)

// PreviewStake reports how a gross deposit would land on the pool. Owner
// identity plays no part here, so the live operation can still reject a
// previewed stake for insufficient funds or a duplicate position.
func PreviewStake(pool *types.PoolState, amount uint64) types.StakePreview {
	preview := types.StakePreview{GrossAmount: amount}

	if !invariant.MeetsMinimumStake(amount) {
		preview.Reason = fmt.Sprintf("amount %d below minimum %d", amount, config.MinStakeAmount)
		return preview
	}
	if pool.Paused {
		preview.Reason = "pool is paused"
		return preview
	}

	preview.Fee, preview.StakeAmount = fees.StakeFee(amount)
	preview.ShareBps = fees.ShareBps(preview.StakeAmount, pool.TotalStaked)

	if !invariant.ShareAboveFloor(preview.ShareBps) {
		preview.Reason = fmt.Sprintf("share %d bps below floor %d", preview.ShareBps, config.MinShareBps)
		return preview
	}
	if !invariant.ShareCapRespected(pool.TotalSharesBps, preview.ShareBps) {
		preview.Reason = fmt.Sprintf("outstanding %d bps + %d bps exceeds cap %d",
			pool.TotalSharesBps, preview.ShareBps, config.BpsDenominator)
		return preview
	}

	preview.Accepted = true
	return preview
}

// PreviewTrade reports whether a delegated trade would pass sizing against
// the pool's recorded principal. Caller authorization is not previewed.
func PreviewTrade(pool *types.PoolState, amountIn uint64) types.TradePreview {
	preview := types.TradePreview{AmountIn: amountIn}

	if pool.Paused {
		preview.Reason = "pool is paused"
		return preview
	}
	if pool.TotalStaked == 0 {
		preview.Reason = "pool has no recorded principal"
		return preview
	}

	preview.MaxAmountIn = fees.MaxTradeAmount(pool.TotalStaked)

	tradeSizeBps := fees.TradeSizeBps(amountIn, pool.TotalStaked)
	preview.TradeSizeBps = tradeSizeBps.String()

	if !invariant.WithinTradeCap(tradeSizeBps) {
		preview.Reason = fmt.Sprintf("trade size %s bps exceeds cap %d", tradeSizeBps, config.MaxTradeSizeBps)
		return preview
	}

	preview.Accepted = true
	return preview
}

// PreviewWithdrawal reports what closing the position would settle against
// the vault's live balance at the given time. It mirrors the live
// operation's checks in order, including the principal decrement that
// fails once the vault's value has grown past the recorded principal.
func PreviewWithdrawal(pool *types.PoolState, position *types.Position, vaultBalance uint64, now time.Time) types.WithdrawPreview {
	preview := types.WithdrawPreview{
		ShareBps:  position.ShareBps,
		UnlocksAt: position.StakeTimestamp + int64(config.MinStakeDuration.Seconds()),
	}

	if !invariant.LockSatisfied(now.Unix(), position.StakeTimestamp, pool.EmergencyMode) {
		preview.Reason = fmt.Sprintf("position locked for %d more seconds", preview.UnlocksAt-now.Unix())
		return preview
	}

	preview.ShareAmount = fees.ShareAmount(vaultBalance, position.ShareBps)
	if !invariant.AboveDust(preview.ShareAmount) {
		preview.Reason = fmt.Sprintf("entitlement %d below threshold %d", preview.ShareAmount, config.DustThreshold)
		return preview
	}

	preview.Profit = fees.Profit(preview.ShareAmount, position.InitialStake)
	preview.Fee = fees.ProfitFee(preview.Profit)
	preview.WithdrawalAmount = preview.ShareAmount - preview.Fee

	if _, ok := invariant.CheckedSubU64(pool.TotalSharesBps, position.ShareBps); !ok {
		preview.Reason = "share books out of balance"
		return preview
	}
	// The live operation decrements recorded principal by the full
	// entitlement (withdrawal plus fee), never re-reading the vault.
	if _, ok := invariant.CheckedSubU64(pool.TotalStaked, preview.ShareAmount); !ok {
		preview.Reason = fmt.Sprintf("entitlement %d exceeds recorded principal %d", preview.ShareAmount, pool.TotalStaked)
		return preview
	}

	preview.Settleable = true
	return preview
}

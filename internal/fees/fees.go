/*

This file contains the fee and share arithmetic for the staking ledger.

Every function is pure and every division floors. Multiplications run on
arbitrary-precision integers because a u64 amount times the bps scale does
not fit in 64 bits; results are narrowed back to u64 only where the math
guarantees they fit.

*/

package fees

import (
	sdkmath "cosmossdk.io/math"

	"github.com/agentstake/psl/internal/config"
)

// StakeFee splits a gross deposit into the entry fee and the net stake amount.
func StakeFee(amount uint64) (fee uint64, stakeAmount uint64) {
	fee = mulDivBps(amount, config.StakeFeeBps)
	return fee, amount - fee
}

// ProfitFee returns the exit fee charged on a withdrawal's profit.
func ProfitFee(profit uint64) uint64 {
	return mulDivBps(profit, config.UnstakeFeeBps)
}

// ShareBps returns the share issued for a net stake against the pool's
// recorded principal. The first staker into an empty pool takes the whole
// pool; every later share is the staker's fraction of principal after their
// deposit, floored.
func ShareBps(stakeAmount, totalStaked uint64) uint64 {
	if totalStaked == 0 {
		return config.BpsDenominator
	}

	num := sdkmath.NewIntFromUint64(stakeAmount).
		Mul(sdkmath.NewIntFromUint64(config.BpsDenominator))
	den := sdkmath.NewIntFromUint64(totalStaked).
		Add(sdkmath.NewIntFromUint64(stakeAmount))

	// totalStaked > 0 keeps the quotient strictly below the bps scale, so the
	// narrowing cannot fail.
	return num.Quo(den).Uint64()
}

// TradeSizeBps returns a trade's size relative to recorded principal, in bps.
// The result stays wide: with tiny principal it can exceed the u64 range, and
// callers only ever compare it against the trade cap. totalStaked must be
// positive; callers reject trades against empty pools before sizing them.
func TradeSizeBps(amountIn, totalStaked uint64) sdkmath.Int {
	return sdkmath.NewIntFromUint64(amountIn).
		Mul(sdkmath.NewIntFromUint64(config.BpsDenominator)).
		Quo(sdkmath.NewIntFromUint64(totalStaked))
}

// ShareAmount returns the slice of the vault's live balance a share redeems,
// floored. shareBps never exceeds the bps scale, so the result never exceeds
// the balance.
func ShareAmount(vaultBalance, shareBps uint64) uint64 {
	return mulDivBps(vaultBalance, shareBps)
}

// MaxTradeAmount returns the largest single trade the sizing cap admits
// against the recorded principal, floored.
func MaxTradeAmount(totalStaked uint64) uint64 {
	return mulDivBps(totalStaked, config.MaxTradeSizeBps)
}

// Profit returns the withdrawal profit over the recorded principal, clamped
// at zero for flat or losing positions.
func Profit(shareAmount, initialStake uint64) uint64 {
	if shareAmount <= initialStake {
		return 0
	}
	return shareAmount - initialStake
}

// mulDivBps computes floor(amount * numeratorBps / 10000) with a wide
// intermediate. Callers guarantee numeratorBps <= 10000, which keeps the
// result within u64.
func mulDivBps(amount, numeratorBps uint64) uint64 {
	return sdkmath.NewIntFromUint64(amount).
		Mul(sdkmath.NewIntFromUint64(numeratorBps)).
		Quo(sdkmath.NewIntFromUint64(config.BpsDenominator)).
		Uint64()
}

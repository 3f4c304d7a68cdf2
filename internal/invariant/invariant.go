// Package invariant holds the pure predicates behind every operation
// precondition, plus the checked u64 arithmetic used for aggregate
// bookkeeping. Predicates return plain booleans; mapping a failed predicate
// to an error kind is the ledger's job.
package invariant

import (
	sdkmath "cosmossdk.io/math"

	"github.com/agentstake/psl/internal/config"
)

// MeetsMinimumStake reports whether a gross deposit clears the entry minimum.
func MeetsMinimumStake(amount uint64) bool {
	return amount >= config.MinStakeAmount
}

// ShareAboveFloor reports whether an issued share clears the minimum share.
func ShareAboveFloor(shareBps uint64) bool {
	return shareBps >= config.MinShareBps
}

// ShareCapRespected reports whether issuing shareBps on top of the pool's
// outstanding shares keeps total claims at or below 100% of principal.
// Both inputs are at most the bps scale, so the sum cannot overflow.
func ShareCapRespected(totalSharesBps, shareBps uint64) bool {
	return totalSharesBps+shareBps <= config.BpsDenominator
}

// WithinTradeCap reports whether a trade's size, in bps of recorded
// principal, is at or below the per-trade cap.
func WithinTradeCap(tradeSizeBps sdkmath.Int) bool {
	return tradeSizeBps.LTE(sdkmath.NewIntFromUint64(config.MaxTradeSizeBps))
}

// LockSatisfied reports whether a position is old enough to withdraw.
// Emergency mode waives the lock entirely.
func LockSatisfied(nowUnix, stakeTimestamp int64, emergencyMode bool) bool {
	if emergencyMode {
		return true
	}
	return nowUnix >= stakeTimestamp+int64(config.MinStakeDuration.Seconds())
}

// AboveDust reports whether a redemption amount is worth transferring.
func AboveDust(amount uint64) bool {
	return amount >= config.DustThreshold
}

// CheckedAddU64 adds two u64 aggregates, reporting false when the sum leaves
// the u64 range.
func CheckedAddU64(a, b uint64) (uint64, bool) {
	sum := sdkmath.NewIntFromUint64(a).Add(sdkmath.NewIntFromUint64(b))
	if !sum.IsUint64() {
		return 0, false
	}
	return sum.Uint64(), true
}

// CheckedSubU64 subtracts b from a, reporting false on underflow.
func CheckedSubU64(a, b uint64) (uint64, bool) {
	if b > a {
		return 0, false
	}
	return a - b, true
}

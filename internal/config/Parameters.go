/*

This file contains the protocol constants for the pooled-staking ledger.

Unlike the environment-driven settings in General.go, these are fixed protocol
behavior: every value must match the deployed program exactly, or records
written by this service stop agreeing with records written elsewhere.

*/

package config

import "time"

const (
	// BpsDenominator is the basis-point scale; 10000 bps = 100%.
	BpsDenominator uint64 = 10_000

	// MinStakeAmount is the smallest gross deposit accepted, in minor units.
	// Below this, the 3% entry fee rounds against the staker hard enough that
	// positions stop being economically meaningful.
	MinStakeAmount uint64 = 1_000_000_000

	// StakeFeeBps is the entry fee charged on the gross deposit (3%).
	StakeFeeBps uint64 = 300

	// UnstakeFeeBps is the exit fee charged on withdrawal profit only (10%).
	// Principal is never fee'd twice; a flat or losing position pays nothing
	// on the way out.
	UnstakeFeeBps uint64 = 1000

	// MinShareBps is the smallest share a stake may be issued.
	// A stake diluted below 10 bps of the pool is rejected rather than
	// recorded as a claim too small to ever clear the dust threshold.
	MinShareBps uint64 = 10

	// MaxTradeSizeBps caps a single delegated trade at 20% of recorded
	// principal. The agent can still deploy the whole pool, but only across
	// multiple trades, which bounds the damage of any one bad fill.
	MaxTradeSizeBps uint64 = 2000

	// DustThreshold is the smallest redemption worth transferring, in minor
	// units. Withdrawals computing below it fail and leave the position open
	// so the staker can retry after the pool's value recovers.
	DustThreshold uint64 = 1000

	// MinStakeDuration is the lock on every new position. Withdrawals before
	// it elapses fail unless the pool is in emergency mode.
	MinStakeDuration = 3600 * time.Second

	// RaydiumProgramID identifies the swap venue program. It is sent with
	// every trade instruction so the venue adapter can refuse a misrouted
	// request instead of executing it.
	RaydiumProgramID = "675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8"
)

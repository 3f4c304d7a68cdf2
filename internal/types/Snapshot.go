package types

import "time"

// PoolSnapshot is a periodic observation of one pool, recorded for drift
// monitoring. VaultBalance is the custody account's live balance at snapshot
// time, which diverges from TotalStaked whenever trades moved value in or out
// of the vault since the last stake or withdraw.
type PoolSnapshot struct {
	SnapshotID     int64     `json:"snapshot_id,omitempty"`
	Agent          Address   `json:"agent"`
	Timestamp      time.Time `json:"timestamp"`
	TotalStaked    uint64    `json:"total_staked"`
	TotalSharesBps uint64    `json:"total_shares_bps"`
	VaultBalance   uint64    `json:"vault_balance"`
	OpenPositions  int       `json:"open_positions"`
}

// PoolOverview is the query-surface view of one pool: the stored record plus
// the live vault balance it will settle withdrawals against.
type PoolOverview struct {
	Pool         PoolState `json:"pool"`
	VaultBalance uint64    `json:"vault_balance"`
}

// DriftReport summarizes how a pool's vault balance has diverged from its
// recorded principal over a snapshot window. All drift figures are signed
// basis points of recorded principal; VolatilityBps is the population
// standard deviation of the per-snapshot drift.
type DriftReport struct {
	Agent          Address   `json:"agent"`
	Samples        int       `json:"samples"`
	WindowStart    time.Time `json:"window_start"`
	WindowEnd      time.Time `json:"window_end"`
	LatestDriftBps float64   `json:"latest_drift_bps"`
	MeanDriftBps   float64   `json:"mean_drift_bps"`
	VolatilityBps  float64   `json:"volatility_bps"`
}

package analyzer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/agentstake/psl/internal/types"
)

var driftAgent = types.Address{0: 0xA1}

func snap(offsetHours int, staked, vault uint64) types.PoolSnapshot {
	base := time.Unix(1_700_000_000, 0).UTC()
	return types.PoolSnapshot{
		Agent:        driftAgent,
		Timestamp:    base.Add(time.Duration(offsetHours) * time.Hour),
		TotalStaked:  staked,
		VaultBalance: vault,
	}
}

func TestCalculateDriftRequiresTwoUsableSamples(t *testing.T) {
	tests := []struct {
		name      string
		snapshots []types.PoolSnapshot
	}{
		{"no snapshots", nil},
		{"one snapshot", []types.PoolSnapshot{snap(0, 1_000_000, 1_000_000)}},
		{"zero principal throughout", []types.PoolSnapshot{
			snap(0, 0, 500_000),
			snap(1, 0, 500_000),
		}},
		{"only one sample with principal", []types.PoolSnapshot{
			snap(0, 0, 0),
			snap(1, 1_000_000, 1_000_000),
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CalculateDrift(driftAgent, tt.snapshots)
			require.ErrorIs(t, err, ErrInsufficientData)
		})
	}
}

func TestCalculateDriftFlatVault(t *testing.T) {
	snapshots := []types.PoolSnapshot{
		snap(0, 1_940_000_000, 1_940_000_000),
		snap(1, 1_940_000_000, 1_940_000_000),
		snap(2, 1_940_000_000, 1_940_000_000),
	}

	report, err := CalculateDrift(driftAgent, snapshots)
	require.NoError(t, err)

	require.Equal(t, driftAgent, report.Agent)
	require.Equal(t, 3, report.Samples)
	require.Zero(t, report.LatestDriftBps)
	require.Zero(t, report.MeanDriftBps)
	require.Zero(t, report.VolatilityBps)
}

func TestCalculateDriftGainAndLoss(t *testing.T) {
	// +500 bps then -500 bps of a 1M principal.
	snapshots := []types.PoolSnapshot{
		snap(0, 1_000_000, 1_050_000),
		snap(1, 1_000_000, 950_000),
	}

	report, err := CalculateDrift(driftAgent, snapshots)
	require.NoError(t, err)

	require.Equal(t, 2, report.Samples)
	require.InDelta(t, -500.0, report.LatestDriftBps, 1e-9)
	require.InDelta(t, 0.0, report.MeanDriftBps, 1e-9)
	require.InDelta(t, 500.0, report.VolatilityBps, 1e-9, "population stddev of {+500, -500}")
}

func TestCalculateDriftSortsByTimestamp(t *testing.T) {
	// Newest first on purpose; the latest drift must still come from the
	// chronologically newest sample.
	snapshots := []types.PoolSnapshot{
		snap(5, 1_000_000, 1_050_000),
		snap(0, 1_000_000, 975_000),
	}

	report, err := CalculateDrift(driftAgent, snapshots)
	require.NoError(t, err)

	require.InDelta(t, 500.0, report.LatestDriftBps, 1e-9)
	require.Equal(t, snap(0, 0, 0).Timestamp, report.WindowStart)
	require.Equal(t, snap(5, 0, 0).Timestamp, report.WindowEnd)
}

func TestCalculateDriftSkipsZeroPrincipalSamples(t *testing.T) {
	snapshots := []types.PoolSnapshot{
		snap(0, 1_000_000, 1_010_000),
		snap(1, 0, 1_010_000),
		snap(2, 1_000_000, 1_020_000),
	}

	report, err := CalculateDrift(driftAgent, snapshots)
	require.NoError(t, err)

	require.Equal(t, 2, report.Samples)
	require.InDelta(t, 200.0, report.LatestDriftBps, 1e-9)
	require.Equal(t, snap(0, 0, 0).Timestamp, report.WindowStart)
	require.Equal(t, snap(2, 0, 0).Timestamp, report.WindowEnd)
}

func TestCalculateDriftTruncatesTowardZero(t *testing.T) {
	// A one-unit divergence on a 3M principal is below 1 bps either way.
	snapshots := []types.PoolSnapshot{
		snap(0, 3_000_000, 3_000_001),
		snap(1, 3_000_000, 2_999_999),
	}

	report, err := CalculateDrift(driftAgent, snapshots)
	require.NoError(t, err)

	require.Zero(t, report.LatestDriftBps)
	require.Zero(t, report.MeanDriftBps)
	require.Zero(t, report.VolatilityBps)
}

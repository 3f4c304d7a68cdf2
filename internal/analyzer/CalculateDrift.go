package analyzer

import (
	"errors"
	"math"
	"sort"
	"time"

	sdkmath "cosmossdk.io/math"

	"github.com/agentstake/psl/internal/config"
	"github.com/agentstake/psl/internal/types"
	"github.com/agentstake/psl/internal/utils"
)

// ErrInsufficientData indicates that not enough usable snapshots were
// provided to measure drift (need at least 2 samples taken while the
// pool had recorded principal).
var ErrInsufficientData = errors.New("insufficient snapshots to calculate drift")

// CalculateDrift measures how far a pool's vault has moved away from its
// recorded principal across a series of snapshots. Drift is signed basis
// points of recorded principal: positive when trading gains left the vault
// holding more than the books say, negative after losses. Snapshots taken
// while the pool had no recorded principal carry no drift signal and are
// skipped. Volatility is the population standard deviation of the
// per-snapshot drift over the window.
func CalculateDrift(agent types.Address, snapshots []types.PoolSnapshot) (*types.DriftReport, error) {
	if len(snapshots) < 2 {
		return nil, ErrInsufficientData
	}

	sort.Slice(snapshots, func(i, j int) bool {
		return snapshots[i].Timestamp.Before(snapshots[j].Timestamp)
	})

	driftBps := make([]float64, 0, len(snapshots))
	var windowStart, windowEnd time.Time
	for _, snapshot := range snapshots {
		// A vault with no recorded principal has nothing to drift from.
		if snapshot.TotalStaked == 0 {
			continue
		}

		bps, err := snapshotDriftBps(snapshot)
		if err != nil {
			return nil, err
		}

		if len(driftBps) == 0 {
			windowStart = snapshot.Timestamp
		}
		windowEnd = snapshot.Timestamp
		driftBps = append(driftBps, bps)
	}

	numSamples := len(driftBps)
	if numSamples < 2 {
		return nil, ErrInsufficientData
	}

	var sum float64
	for _, d := range driftBps {
		sum += d
	}
	mean := sum / float64(numSamples)

	var sumSqDiff float64
	for _, d := range driftBps {
		sumSqDiff += math.Pow(d-mean, 2)
	}

	// Population variance (N, not N-1): the window is the whole period
	// under report, not a sample drawn from it.
	variance := sumSqDiff / float64(numSamples)
	stdDev := math.Sqrt(variance)

	return &types.DriftReport{
		Agent:          agent,
		Samples:        numSamples,
		WindowStart:    windowStart,
		WindowEnd:      windowEnd,
		LatestDriftBps: driftBps[numSamples-1],
		MeanDriftBps:   mean,
		VolatilityBps:  stdDev,
	}, nil
}

// snapshotDriftBps returns (vault - principal) / principal in basis points
// for one snapshot. The intermediate product of a u64 balance and the bps
// scale does not fit in 64 bits, so the arithmetic runs wide.
func snapshotDriftBps(snapshot types.PoolSnapshot) (float64, error) {
	staked := sdkmath.NewIntFromUint64(snapshot.TotalStaked)
	bps := sdkmath.NewIntFromUint64(snapshot.VaultBalance).
		Sub(staked).
		Mul(sdkmath.NewIntFromUint64(config.BpsDenominator)).
		Quo(staked)
	return utils.SDKIntToFloat64(bps)
}

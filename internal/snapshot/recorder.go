/*
Package snapshot records periodic observations of every pool. The sweep
captures recorded principal next to the live vault balance, which is the
only durable trace of drift between the two while no stake or withdraw
happens.
*/
package snapshot

import (
	"fmt"
	"time"

	"github.com/agentstake/psl/internal/keys"
	"github.com/agentstake/psl/internal/logger"
	"github.com/agentstake/psl/internal/state"
	"github.com/agentstake/psl/internal/types"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Recorder sweeps all pools on a cron schedule.
type Recorder struct {
	logger   zerolog.Logger
	schedule string
	cron     *cron.Cron
}

// NewRecorder creates a recorder with a standard cron schedule string.
func NewRecorder(schedule string) (*Recorder, error) {
	if schedule == "" {
		return nil, fmt.Errorf("snapshot schedule cannot be empty")
	}

	return &Recorder{
		logger:   logger.GetForComponent("snapshot_recorder"),
		schedule: schedule,
		cron:     cron.New(),
	}, nil
}

// Start registers the sweep and starts the scheduler.
func (r *Recorder) Start() error {
	if _, err := r.cron.AddFunc(r.schedule, r.sweep); err != nil {
		return fmt.Errorf("register snapshot sweep: %w", err)
	}
	r.cron.Start()
	r.logger.Info().Str("schedule", r.schedule).Msg("Snapshot recorder started")
	return nil
}

// Stop halts the scheduler and waits for a running sweep to finish.
func (r *Recorder) Stop() {
	ctx := r.cron.Stop()
	<-ctx.Done()
	r.logger.Info().Msg("Snapshot recorder stopped")
}

// sweep observes every pool once. Pool failures are logged and skipped
// so one bad record cannot starve the rest of the sweep.
func (r *Recorder) sweep() {
	pools, err := state.ListPools()
	if err != nil {
		r.logger.Error().Err(err).Msg("Failed to list pools for snapshot sweep")
		return
	}

	observed := 0
	for _, pool := range pools {
		if err := r.observe(pool); err != nil {
			r.logger.Error().Err(err).Str("agent", pool.Agent.String()).Msg("Failed to snapshot pool")
			continue
		}
		observed++
	}

	if observed > 0 {
		r.logger.Info().Int("pools", observed).Msg("Snapshot sweep completed")
	}
}

func (r *Recorder) observe(pool types.PoolState) error {
	vaultBalance, err := state.AccountBalance(pool.Vault)
	if err != nil {
		return err
	}

	openPositions, err := state.CountOpenPositions(keys.PoolAddress(pool.Agent))
	if err != nil {
		return err
	}

	_, err = state.SavePoolSnapshot(types.PoolSnapshot{
		Agent:          pool.Agent,
		Timestamp:      time.Now().UTC(),
		TotalStaked:    pool.TotalStaked,
		TotalSharesBps: pool.TotalSharesBps,
		VaultBalance:   vaultBalance,
		OpenPositions:  openPositions,
	})
	return err
}

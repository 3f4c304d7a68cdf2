package ledger

import (
	"github.com/agentstake/psl/internal/keys"
	"github.com/agentstake/psl/internal/types"
)

// InitializePool creates the PoolState record for an agent. The pool
// starts empty and unpaused. The vault and fee destination are bound
// once here and never change for the life of the pool.
func (l *Ledger) InitializePool(uow UnitOfWork, agent, vault, feeDestination types.Address) (*types.PoolState, error) {
	poolAddress := keys.PoolAddress(agent)

	pool := &types.PoolState{
		Agent:          agent,
		TotalStaked:    0,
		FeeDestination: feeDestination,
		Vault:          vault,
		Paused:         false,
		TotalSharesBps: 0,
		Bump:           keys.Bump(poolAddress),
		EmergencyMode:  false,
	}

	if err := uow.CreatePool(poolAddress, pool); err != nil {
		return nil, err
	}

	l.logger.Info().
		Str("pool", poolAddress.String()).
		Str("agent", agent.String()).
		Str("vault", vault.String()).
		Str("feeDestination", feeDestination.String()).
		Msg("Agent pool initialized")

	return pool, nil
}

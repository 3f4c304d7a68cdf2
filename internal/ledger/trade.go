package ledger

import (
	"cosmossdk.io/errors"

	"github.com/agentstake/psl/internal/config"
	"github.com/agentstake/psl/internal/fees"
	"github.com/agentstake/psl/internal/invariant"
	"github.com/agentstake/psl/internal/keys"
	"github.com/agentstake/psl/internal/types"
)

// ExecuteTrade sizes a swap against the pool's recorded principal and
// delegates it to the venue. Only the pool's agent may trade. No pool
// field is mutated here: trading gains and losses settle inside the
// vault and re-enter the accounting only through withdrawal.
func (l *Ledger) ExecuteTrade(uow UnitOfWork, caller, agent types.Address, instruction types.TradeInstruction) (*types.TradeReceipt, error) {
	poolAddress := keys.PoolAddress(agent)
	pool, err := uow.GetPool(poolAddress)
	if err != nil {
		return nil, err
	}
	if pool.Paused {
		return nil, errors.Wrapf(ErrPoolPaused, "pool %s", poolAddress)
	}
	if !caller.Equal(pool.Agent) {
		return nil, errors.Wrapf(ErrUnauthorized, "caller %s is not pool agent %s", caller, pool.Agent)
	}
	if pool.TotalStaked == 0 {
		return nil, errors.Wrap(ErrMathOverflow, "pool has no recorded principal")
	}

	tradeSizeBps := fees.TradeSizeBps(instruction.AmountIn, pool.TotalStaked)
	if !invariant.WithinTradeCap(tradeSizeBps) {
		return nil, errors.Wrapf(ErrTradeSizeTooLarge, "trade size %s bps exceeds cap %d", tradeSizeBps, config.MaxTradeSizeBps)
	}

	if err := l.venue.Swap(pool.Vault, instruction); err != nil {
		return nil, errors.Wrapf(ErrRaydium, "swap of %d units failed: %v", instruction.AmountIn, err)
	}

	now := l.clock()

	l.logger.Info().
		Str("pool", poolAddress.String()).
		Str("agent", agent.String()).
		Uint64("amountIn", instruction.AmountIn).
		Uint64("minAmountOut", instruction.MinAmountOut).
		Str("tradeSizeBps", tradeSizeBps.String()).
		Msg("Trade executed")

	return &types.TradeReceipt{
		Agent:        agent,
		AmountIn:     instruction.AmountIn,
		MinAmountOut: instruction.MinAmountOut,
		TradeSizeBps: tradeSizeBps.Uint64(),
		Timestamp:    now,
	}, nil
}

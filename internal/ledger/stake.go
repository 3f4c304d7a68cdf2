package ledger

import (
	"cosmossdk.io/errors"

	"github.com/agentstake/psl/internal/config"
	"github.com/agentstake/psl/internal/fees"
	"github.com/agentstake/psl/internal/invariant"
	"github.com/agentstake/psl/internal/keys"
	"github.com/agentstake/psl/internal/types"
)

// Stake deposits amount into the agent's pool and opens a Position for
// owner. The entry fee is charged on the gross amount; the share is
// fixed in basis points against the recorded principal at entry and is
// never rebased afterwards.
func (l *Ledger) Stake(uow UnitOfWork, owner, agent types.Address, amount uint64) (*types.StakeReceipt, error) {
	if !invariant.MeetsMinimumStake(amount) {
		return nil, errors.Wrapf(ErrStakeTooSmall, "amount %d below minimum %d", amount, config.MinStakeAmount)
	}

	poolAddress := keys.PoolAddress(agent)
	pool, err := uow.GetPool(poolAddress)
	if err != nil {
		return nil, err
	}
	if pool.Paused {
		return nil, errors.Wrapf(ErrPoolPaused, "pool %s", poolAddress)
	}

	fee, stakeAmount := fees.StakeFee(amount)
	shareBps := fees.ShareBps(stakeAmount, pool.TotalStaked)

	if !invariant.ShareAboveFloor(shareBps) {
		return nil, errors.Wrapf(ErrShareTooSmall, "share %d bps below floor %d", shareBps, config.MinShareBps)
	}
	if !invariant.ShareCapRespected(pool.TotalSharesBps, shareBps) {
		return nil, errors.Wrapf(ErrInvalidShare, "outstanding %d bps + %d bps exceeds cap %d", pool.TotalSharesBps, shareBps, config.BpsDenominator)
	}

	if err := uow.Transfer(owner, pool.Vault, stakeAmount); err != nil {
		return nil, err
	}
	if err := uow.Transfer(owner, pool.FeeDestination, fee); err != nil {
		return nil, err
	}

	totalStaked, ok := invariant.CheckedAddU64(pool.TotalStaked, stakeAmount)
	if !ok {
		return nil, errors.Wrap(ErrMathOverflow, "total staked")
	}
	totalSharesBps, ok := invariant.CheckedAddU64(pool.TotalSharesBps, shareBps)
	if !ok {
		return nil, errors.Wrap(ErrMathOverflow, "total shares")
	}
	pool.TotalStaked = totalStaked
	pool.TotalSharesBps = totalSharesBps

	if err := uow.UpdatePool(poolAddress, pool); err != nil {
		return nil, err
	}

	now := l.clock()
	positionAddress := keys.PositionAddress(owner, poolAddress)
	position := &types.Position{
		Owner:          owner,
		AgentPool:      poolAddress,
		InitialStake:   stakeAmount,
		ShareBps:       shareBps,
		StakeTimestamp: now.Unix(),
		Bump:           keys.Bump(positionAddress),
	}
	if err := uow.CreatePosition(positionAddress, position); err != nil {
		return nil, err
	}

	l.logger.Info().
		Str("pool", poolAddress.String()).
		Str("owner", owner.String()).
		Uint64("grossAmount", amount).
		Uint64("fee", fee).
		Uint64("stakeAmount", stakeAmount).
		Uint64("shareBps", shareBps).
		Uint64("totalStaked", pool.TotalStaked).
		Uint64("totalSharesBps", pool.TotalSharesBps).
		Msg("Stake accepted")

	return &types.StakeReceipt{
		Agent:       agent,
		Owner:       owner,
		GrossAmount: amount,
		Fee:         fee,
		StakeAmount: stakeAmount,
		ShareBps:    shareBps,
		Timestamp:   now,
	}, nil
}

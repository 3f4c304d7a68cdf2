package ledger

import (
	"cosmossdk.io/errors"

	"github.com/agentstake/psl/internal/config"
	"github.com/agentstake/psl/internal/fees"
	"github.com/agentstake/psl/internal/invariant"
	"github.com/agentstake/psl/internal/keys"
	"github.com/agentstake/psl/internal/types"
)

// Withdraw closes the owner's Position in full against the vault's live
// balance; partial withdrawal is not supported. The recorded principal
// is decremented by the computed entitlement, never re-read from the
// vault, so the subtraction fails with MathOverflow once the vault's
// value has grown past the recorded principal.
func (l *Ledger) Withdraw(uow UnitOfWork, owner, agent types.Address) (*types.WithdrawReceipt, error) {
	poolAddress := keys.PoolAddress(agent)
	pool, err := uow.GetPool(poolAddress)
	if err != nil {
		return nil, err
	}

	positionAddress := keys.PositionAddress(owner, poolAddress)
	position, err := uow.GetPosition(positionAddress)
	if err != nil {
		return nil, err
	}

	now := l.clock()
	if !invariant.LockSatisfied(now.Unix(), position.StakeTimestamp, pool.EmergencyMode) {
		unlockAt := position.StakeTimestamp + int64(config.MinStakeDuration.Seconds())
		return nil, errors.Wrapf(ErrStakeDurationNotMet, "position locked for %d more seconds", unlockAt-now.Unix())
	}

	vaultBalance, err := uow.BalanceOf(pool.Vault)
	if err != nil {
		return nil, err
	}

	shareAmount := fees.ShareAmount(vaultBalance, position.ShareBps)
	if !invariant.AboveDust(shareAmount) {
		return nil, errors.Wrapf(ErrDustAmount, "entitlement %d below threshold %d", shareAmount, config.DustThreshold)
	}

	profit := fees.Profit(shareAmount, position.InitialStake)
	fee := fees.ProfitFee(profit)
	withdrawalAmount := shareAmount - fee

	if err := uow.Transfer(pool.Vault, owner, withdrawalAmount); err != nil {
		return nil, err
	}
	if fee > 0 {
		if err := uow.Transfer(pool.Vault, pool.FeeDestination, fee); err != nil {
			return nil, err
		}
	}

	totalSharesBps, ok := invariant.CheckedSubU64(pool.TotalSharesBps, position.ShareBps)
	if !ok {
		return nil, errors.Wrap(ErrMathOverflow, "total shares")
	}
	totalStaked, ok := invariant.CheckedSubU64(pool.TotalStaked, withdrawalAmount+fee)
	if !ok {
		return nil, errors.Wrap(ErrMathOverflow, "total staked")
	}
	pool.TotalSharesBps = totalSharesBps
	pool.TotalStaked = totalStaked

	if err := uow.UpdatePool(poolAddress, pool); err != nil {
		return nil, err
	}
	if err := uow.DeletePosition(positionAddress); err != nil {
		return nil, err
	}

	l.logger.Info().
		Str("pool", poolAddress.String()).
		Str("owner", owner.String()).
		Uint64("vaultBalance", vaultBalance).
		Uint64("shareAmount", shareAmount).
		Uint64("profit", profit).
		Uint64("fee", fee).
		Uint64("withdrawalAmount", withdrawalAmount).
		Msg("Position closed")

	return &types.WithdrawReceipt{
		Agent:            agent,
		Owner:            owner,
		ShareBps:         position.ShareBps,
		ShareAmount:      shareAmount,
		Profit:           profit,
		Fee:              fee,
		WithdrawalAmount: withdrawalAmount,
		Timestamp:        now,
	}, nil
}

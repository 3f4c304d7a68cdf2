package ledger

import (
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/agentstake/psl/internal/config"
	"github.com/agentstake/psl/internal/keys"
	"github.com/agentstake/psl/internal/types"
)

// fakeUnitOfWork keeps records in their encoded form, the same way the
// durable store holds them, so assertions about rejected operations can
// compare raw record bytes.
type fakeUnitOfWork struct {
	pools     map[types.Address][]byte
	positions map[types.Address][]byte
	balances  map[types.Address]uint64
}

var _ UnitOfWork = (*fakeUnitOfWork)(nil)

func newFakeUnitOfWork() *fakeUnitOfWork {
	return &fakeUnitOfWork{
		pools:     make(map[types.Address][]byte),
		positions: make(map[types.Address][]byte),
		balances:  make(map[types.Address]uint64),
	}
}

func (f *fakeUnitOfWork) clone() *fakeUnitOfWork {
	c := newFakeUnitOfWork()
	for k, v := range f.pools {
		c.pools[k] = append([]byte(nil), v...)
	}
	for k, v := range f.positions {
		c.positions[k] = append([]byte(nil), v...)
	}
	for k, v := range f.balances {
		c.balances[k] = v
	}
	return c
}

func (f *fakeUnitOfWork) GetPool(address types.Address) (*types.PoolState, error) {
	data, ok := f.pools[address]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPoolNotFound, address)
	}
	return types.UnmarshalPoolState(data)
}

func (f *fakeUnitOfWork) CreatePool(address types.Address, pool *types.PoolState) error {
	if _, ok := f.pools[address]; ok {
		return fmt.Errorf("%w: %s", ErrPoolExists, address)
	}
	f.pools[address] = pool.Marshal()
	return nil
}

func (f *fakeUnitOfWork) UpdatePool(address types.Address, pool *types.PoolState) error {
	if _, ok := f.pools[address]; !ok {
		return fmt.Errorf("%w: %s", ErrPoolNotFound, address)
	}
	f.pools[address] = pool.Marshal()
	return nil
}

func (f *fakeUnitOfWork) GetPosition(address types.Address) (*types.Position, error) {
	data, ok := f.positions[address]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPositionNotFound, address)
	}
	return types.UnmarshalPosition(data)
}

func (f *fakeUnitOfWork) CreatePosition(address types.Address, position *types.Position) error {
	if _, ok := f.positions[address]; ok {
		return fmt.Errorf("%w: %s", ErrPositionExists, address)
	}
	f.positions[address] = position.Marshal()
	return nil
}

func (f *fakeUnitOfWork) DeletePosition(address types.Address) error {
	if _, ok := f.positions[address]; !ok {
		return fmt.Errorf("%w: %s", ErrPositionNotFound, address)
	}
	delete(f.positions, address)
	return nil
}

func (f *fakeUnitOfWork) Transfer(from, to types.Address, amount uint64) error {
	if f.balances[from] < amount {
		return fmt.Errorf("%w: debit of %d from %s", ErrInsufficientFunds, amount, from)
	}
	f.balances[from] -= amount
	f.balances[to] += amount
	return nil
}

func (f *fakeUnitOfWork) BalanceOf(account types.Address) (uint64, error) {
	return f.balances[account], nil
}

// runAtomic mirrors the production transaction wrapper: the operation runs
// against a copy of the state, and the copy replaces the shared state only
// when the operation succeeds.
func runAtomic(f *fakeUnitOfWork, fn func(uow UnitOfWork) error) error {
	work := f.clone()
	if err := fn(work); err != nil {
		return err
	}
	*f = *work
	return nil
}

type fakeVenue struct {
	calls  []types.TradeInstruction
	vaults []types.Address
	err    error
}

func (v *fakeVenue) Swap(poolVault types.Address, instruction types.TradeInstruction) error {
	v.calls = append(v.calls, instruction)
	v.vaults = append(v.vaults, poolVault)
	return v.err
}

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time { return c.now }

func testAddr(tag byte) types.Address {
	var a types.Address
	for i := range a {
		a[i] = tag
	}
	return a
}

type fixture struct {
	t      *testing.T
	clk    *testClock
	venue  *fakeVenue
	ledger *Ledger
	uow    *fakeUnitOfWork

	agent       types.Address
	owner       types.Address
	treasury    types.Address
	vault       types.Address
	poolAddress types.Address
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	clk := &testClock{now: time.Unix(1_700_000_000, 0).UTC()}
	venue := &fakeVenue{}

	l, err := New(Config{Venue: venue, Clock: clk.Now})
	require.NoError(t, err)

	agent := testAddr(0x01)
	return &fixture{
		t:           t,
		clk:         clk,
		venue:       venue,
		ledger:      l,
		uow:         newFakeUnitOfWork(),
		agent:       agent,
		owner:       testAddr(0x02),
		treasury:    testAddr(0x03),
		vault:       keys.VaultAddress(agent),
		poolAddress: keys.PoolAddress(agent),
	}
}

func (fx *fixture) initializePool() *types.PoolState {
	fx.t.Helper()
	var pool *types.PoolState
	err := runAtomic(fx.uow, func(uow UnitOfWork) error {
		var err error
		pool, err = fx.ledger.InitializePool(uow, fx.agent, fx.vault, fx.treasury)
		return err
	})
	require.NoError(fx.t, err)
	return pool
}

func (fx *fixture) stake(owner types.Address, amount uint64) (*types.StakeReceipt, error) {
	var receipt *types.StakeReceipt
	err := runAtomic(fx.uow, func(uow UnitOfWork) error {
		var err error
		receipt, err = fx.ledger.Stake(uow, owner, fx.agent, amount)
		return err
	})
	return receipt, err
}

func (fx *fixture) trade(caller types.Address, instruction types.TradeInstruction) (*types.TradeReceipt, error) {
	var receipt *types.TradeReceipt
	err := runAtomic(fx.uow, func(uow UnitOfWork) error {
		var err error
		receipt, err = fx.ledger.ExecuteTrade(uow, caller, fx.agent, instruction)
		return err
	})
	return receipt, err
}

func (fx *fixture) withdraw(owner types.Address) (*types.WithdrawReceipt, error) {
	var receipt *types.WithdrawReceipt
	err := runAtomic(fx.uow, func(uow UnitOfWork) error {
		var err error
		receipt, err = fx.ledger.Withdraw(uow, owner, fx.agent)
		return err
	})
	return receipt, err
}

func (fx *fixture) credit(account types.Address, amount uint64) {
	fx.uow.balances[account] += amount
}

func (fx *fixture) setBalance(account types.Address, amount uint64) {
	fx.uow.balances[account] = amount
}

func (fx *fixture) advance(d time.Duration) {
	fx.clk.now = fx.clk.now.Add(d)
}

func (fx *fixture) pool() *types.PoolState {
	fx.t.Helper()
	pool, err := fx.uow.GetPool(fx.poolAddress)
	require.NoError(fx.t, err)
	return pool
}

// mutatePool rewrites the stored pool record directly, standing in for
// history (pauses, emergencies, past trading cycles) that the test does not
// need to replay step by step.
func (fx *fixture) mutatePool(mutate func(*types.PoolState)) {
	fx.t.Helper()
	pool := fx.pool()
	mutate(pool)
	fx.uow.pools[fx.poolAddress] = pool.Marshal()
}

func (fx *fixture) writePosition(owner types.Address, position *types.Position) {
	fx.t.Helper()
	fx.uow.positions[keys.PositionAddress(owner, fx.poolAddress)] = position.Marshal()
}

func (fx *fixture) position(owner types.Address) (*types.Position, bool) {
	fx.t.Helper()
	data, ok := fx.uow.positions[keys.PositionAddress(owner, fx.poolAddress)]
	if !ok {
		return nil, false
	}
	position, err := types.UnmarshalPosition(data)
	require.NoError(fx.t, err)
	return position, true
}

func requireStateUnchanged(t *testing.T, before, after *fakeUnitOfWork) {
	t.Helper()
	require.Equal(t, before.pools, after.pools, "pool records changed on a rejected operation")
	require.Equal(t, before.positions, after.positions, "position records changed on a rejected operation")
	require.Equal(t, before.balances, after.balances, "balances changed on a rejected operation")
}

func TestNewRequiresVenue(t *testing.T) {
	_, err := New(Config{})
	require.Error(t, err)

	l, err := New(Config{Venue: &fakeVenue{}})
	require.NoError(t, err)
	require.NotNil(t, l)
}

func TestInitializePool(t *testing.T) {
	fx := newFixture(t)

	pool := fx.initializePool()

	require.True(t, pool.Agent.Equal(fx.agent))
	require.True(t, pool.Vault.Equal(fx.vault))
	require.True(t, pool.FeeDestination.Equal(fx.treasury))
	require.Zero(t, pool.TotalStaked)
	require.Zero(t, pool.TotalSharesBps)
	require.False(t, pool.Paused)
	require.False(t, pool.EmergencyMode)
	require.Equal(t, keys.Bump(fx.poolAddress), pool.Bump)

	require.Equal(t, pool.Marshal(), fx.uow.pools[fx.poolAddress],
		"stored record must match the returned pool")
}

func TestInitializeDuplicatePool(t *testing.T) {
	fx := newFixture(t)
	fx.initializePool()

	before := fx.uow.clone()
	err := runAtomic(fx.uow, func(uow UnitOfWork) error {
		_, err := fx.ledger.InitializePool(uow, fx.agent, fx.vault, fx.treasury)
		return err
	})
	require.ErrorIs(t, err, ErrPoolExists)
	requireStateUnchanged(t, before, fx.uow)
}

func TestStakeFirstStakerTakesWholePool(t *testing.T) {
	fx := newFixture(t)
	fx.initializePool()
	fx.credit(fx.owner, 2_000_000_000)

	receipt, err := fx.stake(fx.owner, 2_000_000_000)
	require.NoError(t, err)

	require.Equal(t, uint64(2_000_000_000), receipt.GrossAmount)
	require.Equal(t, uint64(60_000_000), receipt.Fee)
	require.Equal(t, uint64(1_940_000_000), receipt.StakeAmount)
	require.Equal(t, config.BpsDenominator, receipt.ShareBps)
	require.Equal(t, fx.clk.now, receipt.Timestamp)

	pool := fx.pool()
	require.Equal(t, uint64(1_940_000_000), pool.TotalStaked)
	require.Equal(t, uint64(10_000), pool.TotalSharesBps)

	position, ok := fx.position(fx.owner)
	require.True(t, ok, "stake must open a position")
	require.Equal(t, uint64(1_940_000_000), position.InitialStake)
	require.Equal(t, uint64(10_000), position.ShareBps)
	require.Equal(t, fx.clk.now.Unix(), position.StakeTimestamp)
	require.True(t, position.AgentPool.Equal(fx.poolAddress))

	require.Equal(t, uint64(0), fx.uow.balances[fx.owner], "owner paid stake plus fee")
	require.Equal(t, uint64(1_940_000_000), fx.uow.balances[fx.vault])
	require.Equal(t, uint64(60_000_000), fx.uow.balances[fx.treasury])
}

// With the first staker holding the full 10000 bps, any further entry pushes
// outstanding claims past 100% of principal and must be rejected whole.
func TestStakeSecondStakerBlockedByShareCap(t *testing.T) {
	fx := newFixture(t)
	fx.initializePool()
	fx.credit(fx.owner, 2_000_000_000)
	_, err := fx.stake(fx.owner, 2_000_000_000)
	require.NoError(t, err)

	second := testAddr(0x04)
	fx.credit(second, 1_000_000_000)

	before := fx.uow.clone()
	_, err = fx.stake(second, 1_000_000_000)
	require.ErrorIs(t, err, ErrInvalidShare)
	requireStateUnchanged(t, before, fx.uow)
}

// A pool left with recorded principal but no outstanding shares, as after a
// lossy exit, accepts several stakers. Their issued shares must always sum to
// the pool's aggregate.
func TestStakeSharesSumMatchesPool(t *testing.T) {
	fx := newFixture(t)
	fx.initializePool()
	fx.mutatePool(func(pool *types.PoolState) {
		pool.TotalStaked = 1_940_000_000
	})

	first := testAddr(0x04)
	second := testAddr(0x05)
	fx.credit(first, 1_000_000_000)
	fx.credit(second, 1_000_000_000)

	receiptFirst, err := fx.stake(first, 1_000_000_000)
	require.NoError(t, err)
	require.Equal(t, uint64(3333), receiptFirst.ShareBps)

	receiptSecond, err := fx.stake(second, 1_000_000_000)
	require.NoError(t, err)
	require.Equal(t, uint64(2500), receiptSecond.ShareBps)

	pool := fx.pool()
	require.Equal(t, uint64(5833), pool.TotalSharesBps)
	require.Equal(t, uint64(1_940_000_000+970_000_000+970_000_000), pool.TotalStaked)

	positionFirst, _ := fx.position(first)
	positionSecond, _ := fx.position(second)
	require.Equal(t, pool.TotalSharesBps, positionFirst.ShareBps+positionSecond.ShareBps,
		"open positions must account for every outstanding share")
}

func TestStakeRejections(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(fx *fixture)
		amount  uint64
		wantErr error
	}{
		{
			name:    "below minimum",
			setup:   func(fx *fixture) { fx.initializePool(); fx.credit(fx.owner, 2_000_000_000) },
			amount:  config.MinStakeAmount - 1,
			wantErr: ErrStakeTooSmall,
		},
		{
			name:    "pool not initialized",
			setup:   func(fx *fixture) { fx.credit(fx.owner, 2_000_000_000) },
			amount:  2_000_000_000,
			wantErr: ErrPoolNotFound,
		},
		{
			name: "pool paused",
			setup: func(fx *fixture) {
				fx.initializePool()
				fx.credit(fx.owner, 2_000_000_000)
				fx.mutatePool(func(pool *types.PoolState) { pool.Paused = true })
			},
			amount:  2_000_000_000,
			wantErr: ErrPoolPaused,
		},
		{
			name: "share diluted below floor",
			setup: func(fx *fixture) {
				fx.initializePool()
				fx.credit(fx.owner, 2_000_000_000)
				fx.mutatePool(func(pool *types.PoolState) { pool.TotalStaked = 1_000_000_000_000_000_000 })
			},
			amount:  1_000_000_000,
			wantErr: ErrShareTooSmall,
		},
		{
			name: "owner cannot cover stake",
			setup: func(fx *fixture) {
				fx.initializePool()
				fx.credit(fx.owner, 1_000_000_000)
			},
			amount:  2_000_000_000,
			wantErr: ErrInsufficientFunds,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := newFixture(t)
			tt.setup(fx)

			before := fx.uow.clone()
			_, err := fx.stake(fx.owner, tt.amount)
			require.ErrorIs(t, err, tt.wantErr)
			requireStateUnchanged(t, before, fx.uow)
		})
	}
}

func TestStakeDuplicatePosition(t *testing.T) {
	fx := newFixture(t)
	fx.initializePool()
	fx.mutatePool(func(pool *types.PoolState) {
		pool.TotalStaked = 1_940_000_000
	})
	fx.credit(fx.owner, 3_000_000_000)

	_, err := fx.stake(fx.owner, 1_000_000_000)
	require.NoError(t, err)

	before := fx.uow.clone()
	_, err = fx.stake(fx.owner, 1_000_000_000)
	require.ErrorIs(t, err, ErrPositionExists, "an owner holds at most one open position per pool")
	requireStateUnchanged(t, before, fx.uow)
}

func TestExecuteTradeDelegatesToVenue(t *testing.T) {
	fx := newFixture(t)
	fx.initializePool()
	fx.credit(fx.owner, 2_000_000_000)
	_, err := fx.stake(fx.owner, 2_000_000_000)
	require.NoError(t, err)

	poolRecordBefore := append([]byte(nil), fx.uow.pools[fx.poolAddress]...)

	instruction := types.TradeInstruction{
		AmountIn:     388_000_000, // exactly 2000 bps of 1,940,000,000
		MinAmountOut: 370_000_000,
		SideAVault:   testAddr(0x0A),
		SideBVault:   testAddr(0x0B),
		AmmPool:      testAddr(0x0C),
	}

	receipt, err := fx.trade(fx.agent, instruction)
	require.NoError(t, err)
	require.Equal(t, uint64(2000), receipt.TradeSizeBps)
	require.Equal(t, instruction.AmountIn, receipt.AmountIn)
	require.Equal(t, instruction.MinAmountOut, receipt.MinAmountOut)

	require.Len(t, fx.venue.calls, 1)
	require.Equal(t, instruction, fx.venue.calls[0])
	require.True(t, fx.venue.vaults[0].Equal(fx.vault), "swap must run against the pool's vault")

	require.Equal(t, poolRecordBefore, fx.uow.pools[fx.poolAddress],
		"trading must not touch the pool record; value moves only inside the vault")
}

func TestExecuteTradeRejections(t *testing.T) {
	staked := func(fx *fixture) {
		fx.initializePool()
		fx.credit(fx.owner, 2_000_000_000)
		_, err := fx.stake(fx.owner, 2_000_000_000)
		require.NoError(fx.t, err)
	}

	tests := []struct {
		name       string
		setup      func(fx *fixture)
		caller     func(fx *fixture) types.Address
		amountIn   uint64
		venueErr   error
		wantErr    error
		venueCalls int
	}{
		{
			name:     "caller is not the agent",
			setup:    staked,
			caller:   func(fx *fixture) types.Address { return fx.owner },
			amountIn: 100_000_000,
			wantErr:  ErrUnauthorized,
		},
		{
			name: "pool paused",
			setup: func(fx *fixture) {
				staked(fx)
				fx.mutatePool(func(pool *types.PoolState) { pool.Paused = true })
			},
			caller:   func(fx *fixture) types.Address { return fx.agent },
			amountIn: 100_000_000,
			wantErr:  ErrPoolPaused,
		},
		{
			name:     "no recorded principal",
			setup:    func(fx *fixture) { fx.initializePool() },
			caller:   func(fx *fixture) types.Address { return fx.agent },
			amountIn: 100_000_000,
			wantErr:  ErrMathOverflow,
		},
		{
			name:     "over the per-trade cap",
			setup:    staked,
			caller:   func(fx *fixture) types.Address { return fx.agent },
			amountIn: 389_000_000, // 2005 bps of 1,940,000,000
			wantErr:  ErrTradeSizeTooLarge,
		},
		{
			name:     "huge trade cannot wrap the sizing arithmetic",
			setup:    staked,
			caller:   func(fx *fixture) types.Address { return fx.agent },
			amountIn: math.MaxUint64,
			wantErr:  ErrTradeSizeTooLarge,
		},
		{
			name:       "venue failure",
			setup:      staked,
			caller:     func(fx *fixture) types.Address { return fx.agent },
			amountIn:   100_000_000,
			venueErr:   fmt.Errorf("connection refused"),
			wantErr:    ErrRaydium,
			venueCalls: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := newFixture(t)
			tt.setup(fx)
			fx.venue.err = tt.venueErr

			before := fx.uow.clone()
			_, err := fx.trade(tt.caller(fx), types.TradeInstruction{AmountIn: tt.amountIn, MinAmountOut: 1})
			require.ErrorIs(t, err, tt.wantErr)
			requireStateUnchanged(t, before, fx.uow)
			require.Len(t, fx.venue.calls, tt.venueCalls,
				"failed preconditions must not reach the venue")
		})
	}
}

func TestWithdrawBeforeLockFails(t *testing.T) {
	fx := newFixture(t)
	fx.initializePool()
	fx.credit(fx.owner, 2_000_000_000)
	_, err := fx.stake(fx.owner, 2_000_000_000)
	require.NoError(t, err)

	fx.advance(config.MinStakeDuration - time.Second)

	before := fx.uow.clone()
	_, err = fx.withdraw(fx.owner)
	require.ErrorIs(t, err, ErrStakeDurationNotMet)
	requireStateUnchanged(t, before, fx.uow)

	_, ok := fx.position(fx.owner)
	require.True(t, ok, "position must remain open")
}

// A flat close at exactly the lock boundary: the full share comes back, no
// profit, no exit fee, and exactly one transfer leaves the vault.
func TestWithdrawFlatCloseAtLockBoundary(t *testing.T) {
	fx := newFixture(t)
	fx.initializePool()
	fx.credit(fx.owner, 2_000_000_000)
	_, err := fx.stake(fx.owner, 2_000_000_000)
	require.NoError(t, err)

	treasuryBefore := fx.uow.balances[fx.treasury]
	fx.advance(config.MinStakeDuration)

	receipt, err := fx.withdraw(fx.owner)
	require.NoError(t, err)

	require.Equal(t, uint64(1_940_000_000), receipt.ShareAmount)
	require.Zero(t, receipt.Profit)
	require.Zero(t, receipt.Fee)
	require.Equal(t, uint64(1_940_000_000), receipt.WithdrawalAmount)

	require.Equal(t, uint64(1_940_000_000), fx.uow.balances[fx.owner])
	require.Equal(t, uint64(0), fx.uow.balances[fx.vault])
	require.Equal(t, treasuryBefore, fx.uow.balances[fx.treasury],
		"a flat close must not pay an exit fee")

	pool := fx.pool()
	require.Zero(t, pool.TotalStaked)
	require.Zero(t, pool.TotalSharesBps)

	_, ok := fx.position(fx.owner)
	require.False(t, ok, "withdrawal must close the position")
}

func TestWithdrawEmergencyModeBypassesLock(t *testing.T) {
	fx := newFixture(t)
	fx.initializePool()
	fx.credit(fx.owner, 2_000_000_000)
	_, err := fx.stake(fx.owner, 2_000_000_000)
	require.NoError(t, err)

	fx.mutatePool(func(pool *types.PoolState) { pool.EmergencyMode = true })

	receipt, err := fx.withdraw(fx.owner)
	require.NoError(t, err, "emergency mode must waive the stake duration lock")
	require.Equal(t, uint64(1_940_000_000), receipt.WithdrawalAmount)
}

// After a losing trade cycle the vault settles below recorded principal. The
// exit pays out the diminished share and leaves the difference behind as
// residual principal with no shares against it, which is what lets the next
// staker back in below the cap.
func TestWithdrawAfterLossLeavesResidualPrincipal(t *testing.T) {
	fx := newFixture(t)
	fx.initializePool()
	fx.credit(fx.owner, 2_000_000_000)
	_, err := fx.stake(fx.owner, 2_000_000_000)
	require.NoError(t, err)

	fx.setBalance(fx.vault, 1_400_000_000)
	fx.advance(config.MinStakeDuration)

	receipt, err := fx.withdraw(fx.owner)
	require.NoError(t, err)
	require.Equal(t, uint64(1_400_000_000), receipt.ShareAmount)
	require.Zero(t, receipt.Profit)
	require.Zero(t, receipt.Fee)

	pool := fx.pool()
	require.Equal(t, uint64(540_000_000), pool.TotalStaked,
		"principal not covered by the vault stays recorded")
	require.Zero(t, pool.TotalSharesBps)

	// The residual principal dilutes the next entry below a full share, so
	// the cap no longer blocks it.
	next := testAddr(0x04)
	fx.credit(next, 1_000_000_000)
	nextReceipt, err := fx.stake(next, 1_000_000_000)
	require.NoError(t, err)
	require.Equal(t, uint64(6423), nextReceipt.ShareBps)
}

func TestWithdrawProfitPaysFeeOnProfitOnly(t *testing.T) {
	fx := newFixture(t)
	fx.initializePool()
	fx.mutatePool(func(pool *types.PoolState) {
		pool.TotalStaked = 2_910_000_000
		pool.TotalSharesBps = 3333
	})
	fx.writePosition(fx.owner, &types.Position{
		Owner:          fx.owner,
		AgentPool:      fx.poolAddress,
		InitialStake:   970_000_000,
		ShareBps:       3333,
		StakeTimestamp: fx.clk.now.Unix(),
		Bump:           keys.Bump(keys.PositionAddress(fx.owner, fx.poolAddress)),
	})
	fx.setBalance(fx.vault, 4_000_000_000)
	fx.advance(2 * time.Hour)

	receipt, err := fx.withdraw(fx.owner)
	require.NoError(t, err)

	require.Equal(t, uint64(1_333_200_000), receipt.ShareAmount)
	require.Equal(t, uint64(363_200_000), receipt.Profit)
	require.Equal(t, uint64(36_320_000), receipt.Fee, "exit fee is 10%% of profit, not of principal")
	require.Equal(t, uint64(1_296_880_000), receipt.WithdrawalAmount)

	require.Equal(t, uint64(1_296_880_000), fx.uow.balances[fx.owner])
	require.Equal(t, uint64(36_320_000), fx.uow.balances[fx.treasury])
	require.Equal(t, uint64(2_666_800_000), fx.uow.balances[fx.vault])

	pool := fx.pool()
	require.Equal(t, uint64(1_576_800_000), pool.TotalStaked)
	require.Zero(t, pool.TotalSharesBps)
}

func TestWithdrawDustLeavesPositionOpen(t *testing.T) {
	fx := newFixture(t)
	fx.initializePool()
	fx.mutatePool(func(pool *types.PoolState) {
		pool.TotalStaked = 1_000_000_000
		pool.TotalSharesBps = 3333
	})
	fx.writePosition(fx.owner, &types.Position{
		Owner:          fx.owner,
		AgentPool:      fx.poolAddress,
		InitialStake:   970_000_000,
		ShareBps:       3333,
		StakeTimestamp: fx.clk.now.Unix(),
		Bump:           keys.Bump(keys.PositionAddress(fx.owner, fx.poolAddress)),
	})
	fx.setBalance(fx.vault, 100)
	fx.advance(2 * time.Hour)

	before := fx.uow.clone()
	_, err := fx.withdraw(fx.owner)
	require.ErrorIs(t, err, ErrDustAmount)
	requireStateUnchanged(t, before, fx.uow)

	_, ok := fx.position(fx.owner)
	require.True(t, ok, "a dust rejection must leave the position open for a later retry")
}

// The principal decrement uses the computed entitlement, never a re-read of
// the vault. When the vault outgrew recorded principal, a full-share exit
// computes an entitlement larger than the recorded figure and the decrement
// fails, leaving every record and balance exactly as before the call.
func TestWithdrawFailsWhenVaultOutgrewPrincipal(t *testing.T) {
	fx := newFixture(t)
	fx.initializePool()
	fx.credit(fx.owner, 2_000_000_000)
	_, err := fx.stake(fx.owner, 2_000_000_000)
	require.NoError(t, err)

	fx.setBalance(fx.vault, 2_940_000_000)
	fx.advance(config.MinStakeDuration)

	before := fx.uow.clone()
	_, err = fx.withdraw(fx.owner)
	require.ErrorIs(t, err, ErrMathOverflow)
	requireStateUnchanged(t, before, fx.uow)
}

func TestWithdrawMissingRecords(t *testing.T) {
	fx := newFixture(t)

	_, err := fx.withdraw(fx.owner)
	require.ErrorIs(t, err, ErrPoolNotFound)

	fx.initializePool()
	_, err = fx.withdraw(fx.owner)
	require.ErrorIs(t, err, ErrPositionNotFound)
}

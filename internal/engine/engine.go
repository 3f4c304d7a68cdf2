/*
Package engine coordinates the accounting core with its durable state.
Each public method runs exactly one ledger operation inside one pool
transaction, tagged with an operation ID for tracing logs end to end.
*/
package engine

import (
	"fmt"
	"time"

	"github.com/agentstake/psl/internal/analyzer"
	"github.com/agentstake/psl/internal/keys"
	"github.com/agentstake/psl/internal/ledger"
	"github.com/agentstake/psl/internal/logger"
	"github.com/agentstake/psl/internal/simulations"
	"github.com/agentstake/psl/internal/state"
	"github.com/agentstake/psl/internal/types"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// driftWindow is how many recent snapshots feed one drift report.
const driftWindow = 100

// Engine executes pool operations against the shared database.
type Engine struct {
	logger      zerolog.Logger
	ledger      *ledger.Ledger
	feeTreasury types.Address
}

// Config holds the configuration for creating a new Engine instance.
type Config struct {
	Ledger      *ledger.Ledger
	FeeTreasury types.Address // custody account receiving all pool fees
}

// NewEngine creates a new Engine instance with dependency injection.
func NewEngine(cfg Config) (*Engine, error) {
	if err := validateEngineConfig(cfg); err != nil {
		return nil, fmt.Errorf("engine configuration validation failed: %w", err)
	}

	e := &Engine{
		logger:      logger.GetForComponent("engine"),
		ledger:      cfg.Ledger,
		feeTreasury: cfg.FeeTreasury,
	}

	e.logger.Info().
		Str("feeTreasury", e.feeTreasury.String()).
		Msg("Engine instance created successfully")

	return e, nil
}

// validateEngineConfig validates the engine configuration.
func validateEngineConfig(cfg Config) error {
	if cfg.Ledger == nil {
		return fmt.Errorf("ledger cannot be nil")
	}
	if cfg.FeeTreasury.IsZero() {
		return fmt.Errorf("fee treasury cannot be the zero address")
	}
	return nil
}

// InitializePool creates a pool for the agent. The vault account is
// derived from the agent identity; fees route to the engine's treasury.
func (e *Engine) InitializePool(agent types.Address) (*types.PoolState, error) {
	opID := uuid.New().String()
	opLogger := e.logger.With().Str("op_id", opID).Logger()
	startTime := time.Now()

	opLogger.Info().Str("agent", agent.String()).Msg("Starting initialize operation")

	poolAddress := keys.PoolAddress(agent)
	vault := keys.VaultAddress(agent)

	var pool *types.PoolState
	err := state.ExecutePoolTx(poolAddress, func(uow *state.PoolTx) error {
		var opErr error
		pool, opErr = e.ledger.InitializePool(uow, agent, vault, e.feeTreasury)
		return opErr
	})
	if err != nil {
		opLogger.Error().Err(err).Msg("Initialize operation failed")
		return nil, err
	}

	e.auditOperation(opLogger, types.OperationRecord{
		OpID: opID, Kind: types.OpKindInitialize, Agent: agent, Actor: agent,
	})

	opLogger.Info().Dur("duration", time.Since(startTime)).Msg("Initialize operation completed")
	return pool, nil
}

// Stake runs one stake operation for owner against the agent's pool.
func (e *Engine) Stake(owner, agent types.Address, amount uint64) (*types.StakeReceipt, error) {
	opID := uuid.New().String()
	opLogger := e.logger.With().Str("op_id", opID).Logger()
	startTime := time.Now()

	opLogger.Info().
		Str("owner", owner.String()).
		Str("agent", agent.String()).
		Uint64("amount", amount).
		Msg("Starting stake operation")

	var receipt *types.StakeReceipt
	err := state.ExecutePoolTx(keys.PoolAddress(agent), func(uow *state.PoolTx) error {
		var opErr error
		receipt, opErr = e.ledger.Stake(uow, owner, agent, amount)
		return opErr
	})
	if err != nil {
		opLogger.Error().Err(err).Msg("Stake operation failed")
		return nil, err
	}

	e.auditOperation(opLogger, types.OperationRecord{
		OpID: opID, Kind: types.OpKindStake, Agent: agent, Actor: owner, Amount: amount,
	})

	opLogger.Info().
		Uint64("shareBps", receipt.ShareBps).
		Dur("duration", time.Since(startTime)).
		Msg("Stake operation completed")
	return receipt, nil
}

// ExecuteTrade runs one trade operation on the agent's pool. caller is
// the verified identity of the requester; only the pool agent passes.
func (e *Engine) ExecuteTrade(caller, agent types.Address, instruction types.TradeInstruction) (*types.TradeReceipt, error) {
	opID := uuid.New().String()
	opLogger := e.logger.With().Str("op_id", opID).Logger()
	startTime := time.Now()

	opLogger.Info().
		Str("caller", caller.String()).
		Str("agent", agent.String()).
		Uint64("amountIn", instruction.AmountIn).
		Msg("Starting trade operation")

	var receipt *types.TradeReceipt
	err := state.ExecutePoolTx(keys.PoolAddress(agent), func(uow *state.PoolTx) error {
		var opErr error
		receipt, opErr = e.ledger.ExecuteTrade(uow, caller, agent, instruction)
		return opErr
	})
	if err != nil {
		opLogger.Error().Err(err).Msg("Trade operation failed")
		return nil, err
	}

	e.auditOperation(opLogger, types.OperationRecord{
		OpID: opID, Kind: types.OpKindTrade, Agent: agent, Actor: caller, Amount: instruction.AmountIn,
	})

	opLogger.Info().
		Uint64("tradeSizeBps", receipt.TradeSizeBps).
		Dur("duration", time.Since(startTime)).
		Msg("Trade operation completed")
	return receipt, nil
}

// Withdraw closes owner's position in the agent's pool.
func (e *Engine) Withdraw(owner, agent types.Address) (*types.WithdrawReceipt, error) {
	opID := uuid.New().String()
	opLogger := e.logger.With().Str("op_id", opID).Logger()
	startTime := time.Now()

	opLogger.Info().
		Str("owner", owner.String()).
		Str("agent", agent.String()).
		Msg("Starting withdraw operation")

	var receipt *types.WithdrawReceipt
	err := state.ExecutePoolTx(keys.PoolAddress(agent), func(uow *state.PoolTx) error {
		var opErr error
		receipt, opErr = e.ledger.Withdraw(uow, owner, agent)
		return opErr
	})
	if err != nil {
		opLogger.Error().Err(err).Msg("Withdraw operation failed")
		return nil, err
	}

	e.auditOperation(opLogger, types.OperationRecord{
		OpID: opID, Kind: types.OpKindWithdraw, Agent: agent, Actor: owner, Amount: receipt.WithdrawalAmount,
	})

	opLogger.Info().
		Uint64("withdrawalAmount", receipt.WithdrawalAmount).
		Dur("duration", time.Since(startTime)).
		Msg("Withdraw operation completed")
	return receipt, nil
}

// auditOperation appends a committed operation to the audit log. The
// operation itself already committed, so a write failure here is logged
// and swallowed rather than turned into a caller-visible error.
func (e *Engine) auditOperation(opLogger zerolog.Logger, record types.OperationRecord) {
	if err := state.RecordOperation(record); err != nil {
		opLogger.Warn().Err(err).Msg("Failed to append operation to audit log")
	}
}

// CreditAccount books an external deposit into a custody account so the
// holder can stake it. Deposit verification happens upstream.
func (e *Engine) CreditAccount(account types.Address, amount uint64) error {
	return state.CreditAccount(account, amount)
}

// PreviewStake reports how a gross deposit would land on the agent's pool
// without executing it.
func (e *Engine) PreviewStake(agent types.Address, amount uint64) (*types.StakePreview, error) {
	pool, err := state.LoadPool(keys.PoolAddress(agent))
	if err != nil {
		return nil, err
	}
	preview := simulations.PreviewStake(pool, amount)
	return &preview, nil
}

// PreviewTrade reports whether a trade of amountIn would pass sizing
// against the agent's pool right now.
func (e *Engine) PreviewTrade(agent types.Address, amountIn uint64) (*types.TradePreview, error) {
	pool, err := state.LoadPool(keys.PoolAddress(agent))
	if err != nil {
		return nil, err
	}
	preview := simulations.PreviewTrade(pool, amountIn)
	return &preview, nil
}

// PreviewWithdraw reports what closing owner's position would settle
// against the vault's live balance right now.
func (e *Engine) PreviewWithdraw(owner, agent types.Address) (*types.WithdrawPreview, error) {
	poolAddress := keys.PoolAddress(agent)
	pool, err := state.LoadPool(poolAddress)
	if err != nil {
		return nil, err
	}
	position, err := state.LoadPosition(keys.PositionAddress(owner, poolAddress))
	if err != nil {
		return nil, err
	}
	vaultBalance, err := state.AccountBalance(pool.Vault)
	if err != nil {
		return nil, err
	}
	preview := simulations.PreviewWithdrawal(pool, position, vaultBalance, time.Now())
	return &preview, nil
}

// GetPoolDrift reports how the agent's vault has diverged from recorded
// principal over the recent snapshot window.
func (e *Engine) GetPoolDrift(agent types.Address) (*types.DriftReport, error) {
	snapshots, err := state.GetRecentPoolSnapshots(agent, driftWindow)
	if err != nil {
		return nil, err
	}
	return analyzer.CalculateDrift(agent, snapshots)
}

// GetPoolOperations returns the newest audit log entries for the agent's
// pool.
func (e *Engine) GetPoolOperations(agent types.Address, limit int) ([]types.OperationRecord, error) {
	return state.GetRecentPoolOperations(agent, limit)
}

// GetPoolOperationStats aggregates the agent's audit log.
func (e *Engine) GetPoolOperationStats(agent types.Address) (*types.OperationStats, error) {
	return state.GetPoolOperationStats(agent)
}

// ListPools returns every pool record.
func (e *Engine) ListPools() ([]types.PoolState, error) {
	return state.ListPools()
}

// GetPoolOverview returns the stored pool record plus the live vault
// balance withdrawals would settle against.
func (e *Engine) GetPoolOverview(agent types.Address) (*types.PoolOverview, error) {
	pool, err := state.LoadPool(keys.PoolAddress(agent))
	if err != nil {
		return nil, err
	}
	vaultBalance, err := state.AccountBalance(pool.Vault)
	if err != nil {
		return nil, err
	}
	return &types.PoolOverview{Pool: *pool, VaultBalance: vaultBalance}, nil
}

// GetPosition returns owner's open position in the agent's pool.
func (e *Engine) GetPosition(owner, agent types.Address) (*types.Position, error) {
	poolAddress := keys.PoolAddress(agent)
	return state.LoadPosition(keys.PositionAddress(owner, poolAddress))
}

// GetPoolPositions returns all open positions in the agent's pool.
func (e *Engine) GetPoolPositions(agent types.Address) ([]types.Position, error) {
	return state.ListPoolPositions(keys.PoolAddress(agent))
}

// GetRecentSnapshots returns the newest periodic observations of the
// agent's pool.
func (e *Engine) GetRecentSnapshots(agent types.Address, limit int) ([]types.PoolSnapshot, error) {
	return state.GetRecentPoolSnapshots(agent, limit)
}

// GetAccountBalance returns the live balance of a custody account.
func (e *Engine) GetAccountBalance(account types.Address) (uint64, error) {
	return state.AccountBalance(account)
}

/*
Package ledger implements the share-accounting core for agent trading
pools: one PoolState record per agent, one Position per (owner, pool)
pair, shares fixed in basis points at stake time and never rebased.

Every operation runs against a UnitOfWork supplied by the caller. The
ledger never commits or rolls back itself; the caller owns the
transaction boundary, so all checks, record writes and custody
transfers of one operation land together or not at all.
*/
package ledger

import (
	"errors"
	"fmt"
	"time"

	"github.com/agentstake/psl/internal/logger"
	"github.com/agentstake/psl/internal/types"

	"github.com/rs/zerolog"
)

// Static errors returned by UnitOfWork implementations.
var (
	ErrPoolNotFound      = errors.New("pool record not found")
	ErrPoolExists        = errors.New("pool record already exists")
	ErrPositionNotFound  = errors.New("position record not found")
	ErrPositionExists    = errors.New("position record already exists")
	ErrInsufficientFunds = errors.New("insufficient account balance")
)

// Store is the record half of a unit of work: pool and position state
// keyed by derived address. Lookups signal missing or conflicting
// records with the static errors above.
type Store interface {
	GetPool(address types.Address) (*types.PoolState, error)
	CreatePool(address types.Address, pool *types.PoolState) error
	UpdatePool(address types.Address, pool *types.PoolState) error

	GetPosition(address types.Address) (*types.Position, error)
	CreatePosition(address types.Address, position *types.Position) error
	DeletePosition(address types.Address) error
}

// Custody is the balance half of a unit of work. Transfers must commit
// and roll back together with the record writes of the same operation.
type Custody interface {
	Transfer(from, to types.Address, amount uint64) error
	BalanceOf(account types.Address) (uint64, error)
}

// UnitOfWork scopes a single operation. Implementations serialize
// concurrent operations that target the same pool.
type UnitOfWork interface {
	Store
	Custody
}

// SwapExecutor submits a swap from the pool vault to the trading venue.
type SwapExecutor interface {
	Swap(poolVault types.Address, instruction types.TradeInstruction) error
}

// Ledger executes the pool operations. It is stateless between calls;
// all durable state lives behind the UnitOfWork passed to each method.
type Ledger struct {
	logger zerolog.Logger
	venue  SwapExecutor
	clock  func() time.Time
}

// Config holds the dependencies for creating a new Ledger instance.
type Config struct {
	Venue SwapExecutor
	Clock func() time.Time // defaults to time.Now when nil
}

// New creates a new Ledger instance with dependency injection.
func New(cfg Config) (*Ledger, error) {
	if err := validateLedgerConfig(cfg); err != nil {
		return nil, fmt.Errorf("ledger configuration validation failed: %w", err)
	}

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}

	l := &Ledger{
		logger: logger.GetForComponent("ledger"),
		venue:  cfg.Venue,
		clock:  clock,
	}

	l.logger.Info().Msg("Ledger instance created successfully")

	return l, nil
}

// validateLedgerConfig validates the ledger configuration.
func validateLedgerConfig(cfg Config) error {
	if cfg.Venue == nil {
		return fmt.Errorf("swap executor cannot be nil")
	}
	return nil
}

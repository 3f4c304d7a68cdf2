// ./internal/state/pool_tx.go
package state

import (
	"database/sql"
	"encoding/binary"
	"fmt"
	"strconv"

	"github.com/agentstake/psl/internal/ledger"
	"github.com/agentstake/psl/internal/types"
)

// Record kinds stored in the records table.
const (
	recordKindPool     = "pool"
	recordKindPosition = "position"
)

// PoolTx is one atomic unit of work against a single pool: record reads
// and writes plus custody transfers, all inside one database transaction.
type PoolTx struct {
	tx *sql.Tx
}

// PoolTx carries every operation of the accounting core.
var _ ledger.UnitOfWork = (*PoolTx)(nil)

// ExecutePoolTx runs fn as one unit of work for a single pool. A
// transaction-scoped advisory lock keyed by the pool address serializes
// concurrent operations on the same pool; operations on distinct pools
// proceed in parallel. Any error from fn rolls the whole unit back.
func ExecutePoolTx(poolAddress types.Address, fn func(uow *PoolTx) error) error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	tx, err := DB.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p) // Re-panic after rollback
		} else if err != nil {
			tx.Rollback() // Rollback if error occurred
		}
	}()

	if _, err = tx.Exec(`SELECT pg_advisory_xact_lock($1)`, poolLockKey(poolAddress)); err != nil {
		return fmt.Errorf("failed to acquire pool lock: %w", err)
	}

	if err = fn(&PoolTx{tx: tx}); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// poolLockKey folds a pool address into the signed 64-bit keyspace of
// pg_advisory_xact_lock. Eight bytes of a Blake2b-derived address are
// collision-resistant enough for lock granularity.
func poolLockKey(address types.Address) int64 {
	return int64(binary.BigEndian.Uint64(address[:8]))
}

// GetPool loads and deserializes one pool record.
func (p *PoolTx) GetPool(address types.Address) (*types.PoolState, error) {
	data, err := p.getRecord(recordKindPool, address)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ledger.ErrPoolNotFound, address)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load pool record: %w", err)
	}
	return types.UnmarshalPoolState(data)
}

// CreatePool persists a new pool record; fails if one exists for the address.
func (p *PoolTx) CreatePool(address types.Address, pool *types.PoolState) error {
	created, err := p.createRecord(recordKindPool, address, pool.Marshal())
	if err != nil {
		return fmt.Errorf("failed to create pool record: %w", err)
	}
	if !created {
		return fmt.Errorf("%w: %s", ledger.ErrPoolExists, address)
	}
	return nil
}

// UpdatePool overwrites an existing pool record.
func (p *PoolTx) UpdatePool(address types.Address, pool *types.PoolState) error {
	updated, err := p.updateRecord(recordKindPool, address, pool.Marshal())
	if err != nil {
		return fmt.Errorf("failed to update pool record: %w", err)
	}
	if !updated {
		return fmt.Errorf("%w: %s", ledger.ErrPoolNotFound, address)
	}
	return nil
}

// GetPosition loads and deserializes one position record.
func (p *PoolTx) GetPosition(address types.Address) (*types.Position, error) {
	data, err := p.getRecord(recordKindPosition, address)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ledger.ErrPositionNotFound, address)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load position record: %w", err)
	}
	return types.UnmarshalPosition(data)
}

// CreatePosition persists a new position record; fails if one exists for
// the address, which by derivation means the owner already has an open
// position in this pool.
func (p *PoolTx) CreatePosition(address types.Address, position *types.Position) error {
	created, err := p.createRecord(recordKindPosition, address, position.Marshal())
	if err != nil {
		return fmt.Errorf("failed to create position record: %w", err)
	}
	if !created {
		return fmt.Errorf("%w: %s", ledger.ErrPositionExists, address)
	}
	return nil
}

// DeletePosition removes a closed position record entirely.
func (p *PoolTx) DeletePosition(address types.Address) error {
	deleted, err := p.deleteRecord(recordKindPosition, address)
	if err != nil {
		return fmt.Errorf("failed to delete position record: %w", err)
	}
	if !deleted {
		return fmt.Errorf("%w: %s", ledger.ErrPositionNotFound, address)
	}
	return nil
}

// Transfer moves amount between custody accounts. The debit requires an
// existing row with sufficient balance; the credit creates the account
// row on first use. Amounts travel as decimal strings because the full
// unsigned 64-bit range does not fit the driver's signed integers.
func (p *PoolTx) Transfer(from, to types.Address, amount uint64) error {
	res, err := p.tx.Exec(
		`UPDATE accounts
		 SET balance = balance - $2::numeric, updated_at = CURRENT_TIMESTAMP
		 WHERE address = $1 AND balance >= $2::numeric`,
		from.Bytes(), numericString(amount),
	)
	if err != nil {
		return fmt.Errorf("failed to debit account: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to debit account: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: debit of %d from %s", ledger.ErrInsufficientFunds, amount, from)
	}

	_, err = p.tx.Exec(
		`INSERT INTO accounts (address, balance) VALUES ($1, $2::numeric)
		 ON CONFLICT (address) DO UPDATE
		 SET balance = accounts.balance + EXCLUDED.balance, updated_at = CURRENT_TIMESTAMP`,
		to.Bytes(), numericString(amount),
	)
	if err != nil {
		return fmt.Errorf("failed to credit account: %w", err)
	}
	return nil
}

// BalanceOf reports the live balance of a custody account. An account
// with no row has never been credited and holds zero.
func (p *PoolTx) BalanceOf(account types.Address) (uint64, error) {
	var balance string
	err := p.tx.QueryRow(
		`SELECT balance::text FROM accounts WHERE address = $1`,
		account.Bytes(),
	).Scan(&balance)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read account balance: %w", err)
	}
	return strconv.ParseUint(balance, 10, 64)
}

func (p *PoolTx) getRecord(kind string, address types.Address) ([]byte, error) {
	var data []byte
	err := p.tx.QueryRow(
		`SELECT data FROM records WHERE kind = $1 AND address = $2 FOR UPDATE`,
		kind, address.Bytes(),
	).Scan(&data)
	return data, err
}

func (p *PoolTx) createRecord(kind string, address types.Address, data []byte) (bool, error) {
	res, err := p.tx.Exec(
		`INSERT INTO records (kind, address, data) VALUES ($1, $2, $3)
		 ON CONFLICT (kind, address) DO NOTHING`,
		kind, address.Bytes(), data,
	)
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows == 1, nil
}

func (p *PoolTx) updateRecord(kind string, address types.Address, data []byte) (bool, error) {
	res, err := p.tx.Exec(
		`UPDATE records SET data = $3, updated_at = CURRENT_TIMESTAMP
		 WHERE kind = $1 AND address = $2`,
		kind, address.Bytes(), data,
	)
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows == 1, nil
}

func (p *PoolTx) deleteRecord(kind string, address types.Address) (bool, error) {
	res, err := p.tx.Exec(
		`DELETE FROM records WHERE kind = $1 AND address = $2`,
		kind, address.Bytes(),
	)
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows == 1, nil
}

// numericString renders an unsigned amount for a NUMERIC parameter.
func numericString(amount uint64) string {
	return strconv.FormatUint(amount, 10)
}

// ./internal/state/pool_store.go
package state

import (
	"database/sql"
	"fmt"

	"github.com/agentstake/psl/internal/ledger"
	"github.com/agentstake/psl/internal/types"
)

// LoadPool reads one pool record outside any operation.
func LoadPool(address types.Address) (*types.PoolState, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	var data []byte
	err := DB.QueryRow(
		`SELECT data FROM records WHERE kind = $1 AND address = $2`,
		recordKindPool, address.Bytes(),
	).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ledger.ErrPoolNotFound, address)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load pool record: %w", err)
	}
	return types.UnmarshalPoolState(data)
}

// LoadPosition reads one position record outside any operation.
func LoadPosition(address types.Address) (*types.Position, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	var data []byte
	err := DB.QueryRow(
		`SELECT data FROM records WHERE kind = $1 AND address = $2`,
		recordKindPosition, address.Bytes(),
	).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ledger.ErrPositionNotFound, address)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load position record: %w", err)
	}
	return types.UnmarshalPosition(data)
}

// ListPools returns every pool record, oldest first. The snapshot sweep
// iterates this to observe all pools.
func ListPools() ([]types.PoolState, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	rows, err := DB.Query(
		`SELECT data FROM records WHERE kind = $1 ORDER BY created_at`,
		recordKindPool,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list pool records: %w", err)
	}
	defer rows.Close()

	var pools []types.PoolState
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan pool record: %w", err)
		}
		pool, err := types.UnmarshalPoolState(data)
		if err != nil {
			return nil, err
		}
		pools = append(pools, *pool)
	}
	return pools, rows.Err()
}

// ListPoolPositions returns the open positions whose pool reference
// matches the given pool record address, oldest first. The filter
// decodes the fixed record layout in SQL: the pool reference occupies
// bytes 32..63 of a position record.
func ListPoolPositions(poolAddress types.Address) ([]types.Position, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	rows, err := DB.Query(
		`SELECT data FROM records
		 WHERE kind = $1 AND substring(data FROM 33 FOR 32) = $2
		 ORDER BY created_at`,
		recordKindPosition, poolAddress.Bytes(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list position records: %w", err)
	}
	defer rows.Close()

	var positions []types.Position
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan position record: %w", err)
		}
		position, err := types.UnmarshalPosition(data)
		if err != nil {
			return nil, err
		}
		positions = append(positions, *position)
	}
	return positions, rows.Err()
}

// CountOpenPositions counts the open positions referencing a pool.
func CountOpenPositions(poolAddress types.Address) (int, error) {
	if DB == nil {
		return 0, fmt.Errorf("database not initialized")
	}

	var count int
	err := DB.QueryRow(
		`SELECT COUNT(*) FROM records
		 WHERE kind = $1 AND substring(data FROM 33 FOR 32) = $2`,
		recordKindPosition, poolAddress.Bytes(),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count position records: %w", err)
	}
	return count, nil
}

// ./internal/state/snapshot_store.go
package state

import (
	"fmt"
	"strconv"

	"github.com/agentstake/psl/internal/types"
	"github.com/rs/zerolog/log"
)

// SavePoolSnapshot persists one periodic pool observation.
func SavePoolSnapshot(snapshot types.PoolSnapshot) (int64, error) {
	if DB == nil {
		return 0, fmt.Errorf("database not initialized")
	}

	query := `
		INSERT INTO pool_snapshots (
			agent, snapshot_timestamp, total_staked, total_shares_bps, vault_balance, open_positions
		) VALUES ($1, $2, $3::numeric, $4::numeric, $5::numeric, $6)
		RETURNING snapshot_id;
	`

	var snapshotID int64
	err := DB.QueryRow(
		query,
		snapshot.Agent.Bytes(), snapshot.Timestamp,
		numericString(snapshot.TotalStaked), numericString(snapshot.TotalSharesBps),
		numericString(snapshot.VaultBalance), snapshot.OpenPositions,
	).Scan(&snapshotID)
	if err != nil {
		return 0, fmt.Errorf("failed to save pool snapshot: %w", err)
	}

	log.Debug().
		Int64("snapshot_id", snapshotID).
		Str("agent", snapshot.Agent.String()).
		Uint64("vault_balance", snapshot.VaultBalance).
		Msg("Pool snapshot saved to database")

	return snapshotID, nil
}

// GetRecentPoolSnapshots returns the newest snapshots for one agent's
// pool, most recent first.
func GetRecentPoolSnapshots(agent types.Address, limit int) ([]types.PoolSnapshot, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	query := `
		SELECT snapshot_id, agent, snapshot_timestamp,
		       total_staked::text, total_shares_bps::text, vault_balance::text,
		       open_positions
		FROM pool_snapshots
		WHERE agent = $1
		ORDER BY snapshot_timestamp DESC
		LIMIT $2;
	`

	rows, err := DB.Query(query, agent.Bytes(), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query pool snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []types.PoolSnapshot
	for rows.Next() {
		var (
			snapshot    types.PoolSnapshot
			agentBytes  []byte
			totalStaked string
			totalShares string
			vaultBal    string
		)
		if err := rows.Scan(
			&snapshot.SnapshotID, &agentBytes, &snapshot.Timestamp,
			&totalStaked, &totalShares, &vaultBal,
			&snapshot.OpenPositions,
		); err != nil {
			return nil, fmt.Errorf("failed to scan pool snapshot: %w", err)
		}

		snapshot.Agent, err = types.AddressFromBytes(agentBytes)
		if err != nil {
			return nil, fmt.Errorf("failed to decode snapshot agent: %w", err)
		}
		if snapshot.TotalStaked, err = strconv.ParseUint(totalStaked, 10, 64); err != nil {
			return nil, fmt.Errorf("failed to parse snapshot total_staked: %w", err)
		}
		if snapshot.TotalSharesBps, err = strconv.ParseUint(totalShares, 10, 64); err != nil {
			return nil, fmt.Errorf("failed to parse snapshot total_shares_bps: %w", err)
		}
		if snapshot.VaultBalance, err = strconv.ParseUint(vaultBal, 10, 64); err != nil {
			return nil, fmt.Errorf("failed to parse snapshot vault_balance: %w", err)
		}

		snapshots = append(snapshots, snapshot)
	}
	return snapshots, rows.Err()
}

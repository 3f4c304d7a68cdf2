package state

import (
	"fmt"
	"strconv"

	"github.com/agentstake/psl/internal/types"
	"github.com/rs/zerolog/log"
)

// RecordOperation appends one committed operation to the audit log. The
// log is written after the operation's transaction commits, so a missing
// row means a logging gap, never a phantom operation.
func RecordOperation(record types.OperationRecord) error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	_, err := DB.Exec(
		`INSERT INTO operations_log (op_id, kind, agent, actor, amount)
		 VALUES ($1, $2, $3, $4, $5::numeric)`,
		record.OpID, record.Kind, record.Agent.Bytes(), record.Actor.Bytes(),
		numericString(record.Amount),
	)
	if err != nil {
		return fmt.Errorf("failed to record operation: %w", err)
	}

	log.Debug().
		Str("op_id", record.OpID).
		Str("kind", record.Kind).
		Str("agent", record.Agent.String()).
		Msg("Operation recorded in audit log")
	return nil
}

// GetRecentPoolOperations returns the newest audit log entries for one
// agent's pool, most recent first.
func GetRecentPoolOperations(agent types.Address, limit int) ([]types.OperationRecord, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	if limit <= 0 || limit > 100 {
		limit = 20
	}

	query := `
		SELECT op_seq, op_id, kind, agent, actor, amount::text, recorded_at
		FROM operations_log
		WHERE agent = $1
		ORDER BY op_seq DESC
		LIMIT $2;
	`

	rows, err := DB.Query(query, agent.Bytes(), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query operations log: %w", err)
	}
	defer rows.Close()

	var records []types.OperationRecord
	for rows.Next() {
		var (
			record     types.OperationRecord
			agentBytes []byte
			actorBytes []byte
			amount     string
		)
		if err := rows.Scan(
			&record.Seq, &record.OpID, &record.Kind,
			&agentBytes, &actorBytes, &amount, &record.RecordedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan operation record: %w", err)
		}

		if record.Agent, err = types.AddressFromBytes(agentBytes); err != nil {
			return nil, fmt.Errorf("failed to decode operation agent: %w", err)
		}
		if record.Actor, err = types.AddressFromBytes(actorBytes); err != nil {
			return nil, fmt.Errorf("failed to decode operation actor: %w", err)
		}
		if record.Amount, err = strconv.ParseUint(amount, 10, 64); err != nil {
			return nil, fmt.Errorf("failed to parse operation amount: %w", err)
		}

		records = append(records, record)
	}
	return records, rows.Err()
}

// GetPoolOperationStats aggregates one pool's audit log. The gross sums
// run on NUMERIC inside the database, so they stay exact past the u64
// range, but the narrowed result errors if a pool's lifetime volume ever
// exceeds it.
func GetPoolOperationStats(agent types.Address) (*types.OperationStats, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	query := `
		SELECT
			COUNT(*) as total_ops,
			COUNT(CASE WHEN kind = 'stake' THEN 1 END) as stakes,
			COUNT(CASE WHEN kind = 'trade' THEN 1 END) as trades,
			COUNT(CASE WHEN kind = 'withdraw' THEN 1 END) as withdrawals,
			COALESCE(SUM(CASE WHEN kind = 'stake' THEN amount END), 0)::text as gross_staked,
			COALESCE(SUM(CASE WHEN kind = 'trade' THEN amount END), 0)::text as gross_traded,
			COALESCE(SUM(CASE WHEN kind = 'withdraw' THEN amount END), 0)::text as gross_withdrawn
		FROM operations_log
		WHERE agent = $1;
	`

	stats := &types.OperationStats{Agent: agent}
	var grossStaked, grossTraded, grossWithdrawn string

	err := DB.QueryRow(query, agent.Bytes()).Scan(
		&stats.TotalOps, &stats.Stakes, &stats.Trades, &stats.Withdrawals,
		&grossStaked, &grossTraded, &grossWithdrawn,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get operation stats: %w", err)
	}

	if stats.GrossStaked, err = strconv.ParseUint(grossStaked, 10, 64); err != nil {
		return nil, fmt.Errorf("failed to parse gross staked: %w", err)
	}
	if stats.GrossTraded, err = strconv.ParseUint(grossTraded, 10, 64); err != nil {
		return nil, fmt.Errorf("failed to parse gross traded: %w", err)
	}
	if stats.GrossWithdrawn, err = strconv.ParseUint(grossWithdrawn, 10, 64); err != nil {
		return nil, fmt.Errorf("failed to parse gross withdrawn: %w", err)
	}

	log.Debug().
		Str("agent", agent.String()).
		Int64("total_ops", stats.TotalOps).
		Msg("Retrieved operation stats")
	return stats, nil
}

// ./internal/state/account_store.go
package state

import (
	"database/sql"
	"fmt"
	"strconv"

	"github.com/agentstake/psl/internal/types"
	"github.com/rs/zerolog/log"
)

// CreditAccount adds amount to a custody account, creating the account
// row on first use. External deposits enter the custody ledger here;
// everything after that moves through Transfer inside an operation.
func CreditAccount(address types.Address, amount uint64) error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	_, err := DB.Exec(
		`INSERT INTO accounts (address, balance) VALUES ($1, $2::numeric)
		 ON CONFLICT (address) DO UPDATE
		 SET balance = accounts.balance + EXCLUDED.balance, updated_at = CURRENT_TIMESTAMP`,
		address.Bytes(), numericString(amount),
	)
	if err != nil {
		return fmt.Errorf("failed to credit account: %w", err)
	}

	log.Info().
		Str("account", address.String()).
		Uint64("amount", amount).
		Msg("Account credited")
	return nil
}

// AccountBalance reads a custody account balance outside any operation.
// An account with no row has never been credited and holds zero.
func AccountBalance(address types.Address) (uint64, error) {
	if DB == nil {
		return 0, fmt.Errorf("database not initialized")
	}

	var balance string
	err := DB.QueryRow(
		`SELECT balance::text FROM accounts WHERE address = $1`,
		address.Bytes(),
	).Scan(&balance)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read account balance: %w", err)
	}
	return strconv.ParseUint(balance, 10, 64)
}

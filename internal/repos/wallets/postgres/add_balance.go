package wallets

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"refwallet/internal/repos/wallets"
)

// AddBalance applies a credit to a wallet row the caller has already locked
// and returns the resulting balance.
func (r *walletsRepo) AddBalance(tx *sql.Tx, walletID uint64, amount decimal.Decimal) (decimal.Decimal, error) {
	var balance decimal.Decimal

	err := tx.QueryRow(`
		UPDATE wallets
		SET balance = balance + $2, updated_at = now()
		WHERE id = $1
		RETURNING balance
	`, walletID, amount).Scan(&balance)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return decimal.Zero, wallets.ErrWalletNotFound
		}

		return decimal.Zero, fmt.Errorf("add balance: %w", err)
	}

	return balance, nil
}

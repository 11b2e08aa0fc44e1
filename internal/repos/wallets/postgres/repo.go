package wallets

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"refwallet/internal/repos/wallets"
)

var _ wallets.Wallets = (*walletsRepo)(nil)

type walletsRepo struct{ db *sql.DB }

func New(db *sql.DB) *walletsRepo {
	return &walletsRepo{db: db}
}

func (r *walletsRepo) Create(tx *sql.Tx, userID uint64) (wallets.Wallet, error) {
	w := wallets.Wallet{UserID: userID, Balance: decimal.Zero}

	err := tx.QueryRow(`
		INSERT INTO wallets (user_id, balance)
		VALUES ($1, 0)
		RETURNING id, created_at, updated_at
	`, userID).Scan(&w.ID, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		return wallets.Wallet{}, fmt.Errorf("insert wallet: %w", err)
	}

	return w, nil
}

func (r *walletsRepo) GetByUserID(ctx context.Context, userID uint64) (wallets.Wallet, error) {
	var w wallets.Wallet

	err := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, balance, created_at, updated_at
		FROM wallets
		WHERE user_id = $1
	`, userID).Scan(&w.ID, &w.UserID, &w.Balance, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return wallets.Wallet{}, wallets.ErrWalletNotFound
		}

		return wallets.Wallet{}, fmt.Errorf("get wallet: %w", err)
	}

	return w, nil
}

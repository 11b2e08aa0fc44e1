package transactions

import (
	"context"
	"database/sql"
	"fmt"

	"refwallet/internal/repos/transactions"
)

var _ transactions.Transactions = (*transactionsRepo)(nil)

type transactionsRepo struct{ db *sql.DB }

func New(db *sql.DB) *transactionsRepo {
	return &transactionsRepo{db: db}
}

func (r *transactionsRepo) Insert(tx *sql.Tx, e transactions.Entry) (uint64, error) {
	var id uint64

	err := tx.QueryRow(`
		INSERT INTO transactions (reference, user_id, wallet_id, amount, type, status, remark)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`, e.Reference, e.UserID, e.WalletID, e.Amount, e.Type, e.Status, e.Remark).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert transaction: %w", err)
	}

	return id, nil
}

func (r *transactionsRepo) ListByWalletID(ctx context.Context, walletID uint64, limit int) ([]transactions.Entry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, reference, user_id, wallet_id, amount, type, status, remark, created_at
		FROM transactions
		WHERE wallet_id = $1
		ORDER BY id DESC
		LIMIT $2
	`, walletID, limit)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []transactions.Entry

	for rows.Next() {
		var e transactions.Entry

		err = rows.Scan(
			&e.ID, &e.Reference, &e.UserID, &e.WalletID,
			&e.Amount, &e.Type, &e.Status, &e.Remark, &e.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}

		out = append(out, e)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}

	return out, nil
}

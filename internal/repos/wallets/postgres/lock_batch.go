package wallets

import (
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"refwallet/internal/repos/wallets"
)

// LockByUserIDs takes FOR UPDATE locks on every wallet of the given users in
// a single statement. ORDER BY user_id fixes the acquisition order across
// all concurrent deposits, so two deposits whose wallet sets overlap always
// contend in the same direction and cannot deadlock each other.
func (r *walletsRepo) LockByUserIDs(tx *sql.Tx, userIDs []uint64) ([]wallets.Wallet, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}

	ids := make([]int64, len(userIDs))
	for i, id := range userIDs {
		ids[i] = int64(id)
	}

	rows, err := tx.Query(`
		SELECT id, user_id, balance, created_at, updated_at
		FROM wallets
		WHERE user_id = ANY($1::bigint[])
		ORDER BY user_id
		FOR UPDATE
	`, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("lock wallets: %w", err)
	}
	defer rows.Close()

	out := make([]wallets.Wallet, 0, len(userIDs))

	for rows.Next() {
		var w wallets.Wallet

		err = rows.Scan(&w.ID, &w.UserID, &w.Balance, &w.CreatedAt, &w.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan wallet: %w", err)
		}

		out = append(out, w)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("iterate wallets: %w", err)
	}

	return out, nil
}

package users

import (
	"context"
	"fmt"
)

// AncestorIDsByPath returns the ids of users whose path is a proper prefix of
// the given path, nearest ancestor first. This is the storage-side twin of
// referral.Path.Ancestors: paths contain only digits and dots, so prefix
// containment via LIKE is exact (no pattern metacharacters to worry about),
// and ordering by path length descending puts the immediate referrer first.
func (r *usersRepo) AncestorIDsByPath(ctx context.Context, path string, limit int) ([]uint64, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id
		FROM users
		WHERE $1 LIKE path || '.%'
		ORDER BY length(path) DESC
		LIMIT $2
	`, path, limit)
	if err != nil {
		return nil, fmt.Errorf("query ancestors: %w", err)
	}
	defer rows.Close()

	var ids []uint64

	for rows.Next() {
		var id uint64

		err = rows.Scan(&id)
		if err != nil {
			return nil, fmt.Errorf("scan ancestor id: %w", err)
		}

		ids = append(ids, id)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("iterate ancestors: %w", err)
	}

	return ids, nil
}

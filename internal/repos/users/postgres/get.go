package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"refwallet/internal/repos/users"
)

const userColumns = `id, name, email, phone_number, password_hash, referral_code, referred_by, path, created_at, updated_at`

func scanUser(row *sql.Row) (users.User, error) {
	var (
		u          users.User
		referredBy sql.NullInt64
	)

	err := row.Scan(
		&u.ID, &u.Name, &u.Email, &u.PhoneNumber, &u.PasswordHash,
		&u.ReferralCode, &referredBy, &u.Path, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return users.User{}, err
	}

	if referredBy.Valid {
		id := uint64(referredBy.Int64)
		u.ReferredBy = &id
	}

	return u, nil
}

func (r *usersRepo) GetByID(ctx context.Context, userID uint64) (users.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE id = $1
	`, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return users.User{}, users.ErrUserNotFound
		}

		return users.User{}, fmt.Errorf("get user by id: %w", err)
	}

	return u, nil
}

func (r *usersRepo) GetByEmail(ctx context.Context, email string) (users.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE email = $1
	`, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return users.User{}, users.ErrUserNotFound
		}

		return users.User{}, fmt.Errorf("get user by email: %w", err)
	}

	return u, nil
}

func (r *usersRepo) GetByReferralCode(tx *sql.Tx, code string) (users.User, error) {
	u, err := scanUser(tx.QueryRow(`
		SELECT `+userColumns+`
		FROM users
		WHERE referral_code = $1
	`, code))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return users.User{}, users.ErrReferralCodeNotFound
		}

		return users.User{}, fmt.Errorf("get user by referral code: %w", err)
	}

	return u, nil
}

package users

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"refwallet/internal/repos/users"
)

var _ users.Users = (*usersRepo)(nil)

type usersRepo struct{ db *sql.DB }

func New(db *sql.DB) *usersRepo {
	return &usersRepo{db: db}
}

func (r *usersRepo) Create(tx *sql.Tx, nu users.NewUser) (users.User, error) {
	u := users.User{
		Name:         nu.Name,
		Email:        nu.Email,
		PhoneNumber:  nu.PhoneNumber,
		PasswordHash: nu.PasswordHash,
		ReferralCode: nu.ReferralCode,
		ReferredBy:   nu.ReferredBy,
	}

	var referredBy sql.NullInt64
	if nu.ReferredBy != nil {
		referredBy = sql.NullInt64{Int64: int64(*nu.ReferredBy), Valid: true}
	}

	err := tx.QueryRow(`
		INSERT INTO users (name, email, phone_number, password_hash, referral_code, referred_by, path)
		VALUES ($1, $2, $3, $4, $5, $6, '')
		RETURNING id, created_at, updated_at
	`, nu.Name, nu.Email, nu.PhoneNumber, nu.PasswordHash, nu.ReferralCode, referredBy).
		Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique_violation
			if pgErr.ConstraintName == "users_email_key" {
				return users.User{}, users.ErrEmailTaken
			}

			return users.User{}, fmt.Errorf("unique violation on %s: %w", pgErr.ConstraintName, err)
		}

		return users.User{}, fmt.Errorf("insert user: %w", err)
	}

	return u, nil
}

func (r *usersRepo) SetPath(tx *sql.Tx, userID uint64, path string) error {
	res, err := tx.Exec(`
		UPDATE users
		SET path = $2, updated_at = now()
		WHERE id = $1
	`, userID, path)
	if err != nil {
		return fmt.Errorf("set path: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}

	if affected == 0 {
		return users.ErrUserNotFound
	}

	return nil
}

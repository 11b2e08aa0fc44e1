package users

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

var (
	ErrUserNotFound         = errors.New("user not found")
	ErrEmailTaken           = errors.New("email already in use")
	ErrReferralCodeNotFound = errors.New("referral code not found")
)

type User struct {
	ID           uint64
	Name         string
	Email        string
	PhoneNumber  string
	PasswordHash string
	ReferralCode string
	ReferredBy   *uint64
	Path         string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type NewUser struct {
	Name         string
	Email        string
	PhoneNumber  string
	PasswordHash string
	ReferralCode string
	ReferredBy   *uint64
}

type Users interface {
	// Create inserts the row with an empty path and returns the assigned id.
	// The path is written afterwards via SetPath, once the id is known.
	Create(tx *sql.Tx, nu NewUser) (User, error)
	// SetPath writes the materialized path. Intended to be called exactly
	// once, inside the same transaction as Create.
	SetPath(tx *sql.Tx, userID uint64, path string) error
	GetByID(ctx context.Context, userID uint64) (User, error)
	GetByEmail(ctx context.Context, email string) (User, error)
	// GetByReferralCode resolves a referrer inside the signup transaction.
	GetByReferralCode(tx *sql.Tx, code string) (User, error)
	// AncestorIDsByPath resolves up to limit ancestors of the given path
	// directly from the persisted path column, nearest first. It must agree
	// with referral.Path.Ancestors on both membership and order.
	AncestorIDsByPath(ctx context.Context, path string, limit int) ([]uint64, error)
}

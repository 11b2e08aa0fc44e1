package wallets

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// ErrWalletNotFound indicates a user without a provisioned wallet. For the
// depositor this is fatal (a provisioning bug upstream); for ancestors the
// coordinator skips the bonus leg instead.
var ErrWalletNotFound = errors.New("wallet not found")

type Wallet struct {
	ID        uint64
	UserID    uint64
	Balance   decimal.Decimal
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Wallets interface {
	// Create provisions a zero-balance wallet for the user.
	Create(tx *sql.Tx, userID uint64) (Wallet, error)
	GetByUserID(ctx context.Context, userID uint64) (Wallet, error)
	// LockByUserIDs loads and exclusively locks the wallets of the given
	// users in one statement, rows ordered by ascending user id. Locking
	// every wallet of a unit of work in this single, globally consistent
	// order keeps concurrent deposits with overlapping ancestor sets
	// deadlock-free. Users without wallets are simply absent from the result.
	LockByUserIDs(tx *sql.Tx, userIDs []uint64) ([]Wallet, error)
	// AddBalance credits amount (already rounded to 2 digits) to a locked
	// wallet row and returns the new balance.
	AddBalance(tx *sql.Tx, walletID uint64, amount decimal.Decimal) (decimal.Decimal, error)
}

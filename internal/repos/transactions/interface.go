package transactions

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Type string

const (
	TypeDeposit  Type = "DEPOSIT"
	TypeBonus    Type = "BONUS"
	TypeWithdraw Type = "WITHDRAW"
)

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusCompleted Status = "COMPLETED"
	StatusFailed    Status = "FAILED"
)

// Entry is one immutable ledger row. Every balance mutation is paired with
// exactly one Entry written in the same transaction.
type Entry struct {
	ID        uint64
	Reference uuid.UUID
	UserID    uint64
	WalletID  uint64
	Amount    decimal.Decimal
	Type      Type
	Status    Status
	Remark    string
	CreatedAt time.Time
}

type Transactions interface {
	// Insert appends a ledger row and returns its id.
	Insert(tx *sql.Tx, e Entry) (uint64, error)
	// ListByWalletID returns the newest entries for a wallet.
	ListByWalletID(ctx context.Context, walletID uint64, limit int) ([]Entry, error)
}

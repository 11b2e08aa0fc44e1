package transactions

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"refwallet/internal/infra/pgtestutil"
	"refwallet/internal/repos/transactions"
)

func seedWallet(t *testing.T, db *sql.DB, userID uint64) uint64 {
	t.Helper()

	_, err := db.Exec(`
		INSERT INTO users (id, name, email, password_hash, referral_code, path)
		VALUES ($1, 'u', $2, 'x', $3, $4)
	`, userID,
		fmt.Sprintf("u%d@example.com", userID),
		fmt.Sprintf("CODE%d", userID),
		fmt.Sprintf("%d", userID),
	)
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}

	var walletID uint64
	err = db.QueryRow(`INSERT INTO wallets (user_id, balance) VALUES ($1, 0) RETURNING id`, userID).
		Scan(&walletID)
	if err != nil {
		t.Fatalf("seed wallet: %v", err)
	}

	return walletID
}

func TestTransactions_InsertAndList(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()

	walletID := seedWallet(t, db, 1)

	repo := New(db)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ref := uuid.New()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("begin tx: %v", err)
	}
	defer func() { _ = tx.Rollback() }()

	entries := []transactions.Entry{
		{
			Reference: ref, UserID: 1, WalletID: walletID,
			Amount: decimal.RequireFromString("50.00"),
			Type:   transactions.TypeDeposit, Status: transactions.StatusCompleted,
			Remark: "Deposit of 50.00",
		},
		{
			Reference: ref, UserID: 1, WalletID: walletID,
			Amount: decimal.RequireFromString("25.00"),
			Type:   transactions.TypeBonus, Status: transactions.StatusCompleted,
			Remark: "50% bonus from level 1 descendant (user 9) deposit",
		},
	}

	for _, e := range entries {
		id, err := repo.Insert(tx, e)
		if err != nil {
			t.Fatalf("insert: %v", err)
		}
		if id == 0 {
			t.Fatal("expected assigned id")
		}
	}

	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	got, err := repo.ListByWalletID(ctx, walletID, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("want 2 entries, got %d", len(got))
	}

	// Newest first.
	if got[0].Type != transactions.TypeBonus || got[1].Type != transactions.TypeDeposit {
		t.Fatalf("unexpected order: %v then %v", got[0].Type, got[1].Type)
	}
	if got[0].Reference != ref {
		t.Fatalf("reference mismatch: want %s, got %s", ref, got[0].Reference)
	}
	if !got[1].Amount.Equal(decimal.RequireFromString("50.00")) {
		t.Fatalf("amount mismatch: got %s", got[1].Amount)
	}
	if got[0].CreatedAt.IsZero() {
		t.Fatal("expected created_at")
	}
}

func TestTransactions_ListLimitAndIsolation(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()

	walletA := seedWallet(t, db, 1)
	walletB := seedWallet(t, db, 2)

	repo := New(db)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("begin tx: %v", err)
	}
	defer func() { _ = tx.Rollback() }()

	for i := 0; i < 5; i++ {
		_, err := repo.Insert(tx, transactions.Entry{
			Reference: uuid.New(), UserID: 1, WalletID: walletA,
			Amount: decimal.RequireFromString("1.00"),
			Type:   transactions.TypeDeposit, Status: transactions.StatusCompleted,
		})
		if err != nil {
			t.Fatalf("insert A: %v", err)
		}
	}
	_, err = repo.Insert(tx, transactions.Entry{
		Reference: uuid.New(), UserID: 2, WalletID: walletB,
		Amount: decimal.RequireFromString("2.00"),
		Type:   transactions.TypeDeposit, Status: transactions.StatusCompleted,
	})
	if err != nil {
		t.Fatalf("insert B: %v", err)
	}

	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	got, err := repo.ListByWalletID(ctx, walletA, 3)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("want 3 entries, got %d", len(got))
	}
	for _, e := range got {
		if e.WalletID != walletA {
			t.Fatalf("entry from wrong wallet: %d", e.WalletID)
		}
	}
}

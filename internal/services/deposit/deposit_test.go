package deposit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"refwallet/internal/infra/pgtestutil"
	"refwallet/internal/repos/transactions"
	"refwallet/internal/repos/wallets"
	pgwallets "refwallet/internal/repos/wallets/postgres"
)

// seedUser inserts a user with the given materialized path and, unless
// withWallet is false, a zero-balance wallet.
func seedUser(t *testing.T, db *sql.DB, id uint64, path string, withWallet bool) {
	t.Helper()

	_, err := db.Exec(`
		INSERT INTO users (id, name, email, password_hash, referral_code, path)
		VALUES ($1, $2, $3, 'x', $4, $5)
	`, id, fmt.Sprintf("u%d", id), fmt.Sprintf("u%d@example.com", id),
		fmt.Sprintf("DEP%05d", id), path)
	if err != nil {
		t.Fatalf("seed user %d: %v", id, err)
	}

	if !withWallet {
		return
	}

	_, err = db.Exec(`INSERT INTO wallets (user_id, balance) VALUES ($1, 0)`, id)
	if err != nil {
		t.Fatalf("seed wallet for user %d: %v", id, err)
	}
}

func walletBalance(t *testing.T, db *sql.DB, userID uint64) decimal.Decimal {
	t.Helper()

	var s string
	err := db.QueryRow(`SELECT balance FROM wallets WHERE user_id = $1`, userID).Scan(&s)
	if err != nil {
		t.Fatalf("read balance of user %d: %v", userID, err)
	}

	return decimal.RequireFromString(s)
}

func ledgerRows(t *testing.T, db *sql.DB, userID uint64) []transactions.Entry {
	t.Helper()

	rows, err := db.Query(`
		SELECT reference, user_id, amount, type, remark
		FROM transactions WHERE user_id = $1 ORDER BY id
	`, userID)
	if err != nil {
		t.Fatalf("read ledger of user %d: %v", userID, err)
	}
	defer rows.Close()

	var out []transactions.Entry
	for rows.Next() {
		var e transactions.Entry
		if err := rows.Scan(&e.Reference, &e.UserID, &e.Amount, &e.Type, &e.Remark); err != nil {
			t.Fatalf("scan ledger row: %v", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		t.Fatalf("iterate ledger: %v", err)
	}

	return out
}

func TestDeposit_RootUser(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()

	seedUser(t, db, 1, "1", true)

	svc := New(db)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	rcpt, err := svc.Deposit(ctx, 1, "1", decimal.RequireFromString("100.005"))
	if err != nil {
		t.Fatalf("deposit: %v", err)
	}

	want := decimal.RequireFromString("100.01") // rounded half up, once
	if !rcpt.DepositAmount.Equal(want) {
		t.Fatalf("deposit amount: want %s, got %s", want, rcpt.DepositAmount)
	}
	if !rcpt.NewBalance.Equal(want) {
		t.Fatalf("new balance: want %s, got %s", want, rcpt.NewBalance)
	}
	if !walletBalance(t, db, 1).Equal(want) {
		t.Fatalf("persisted balance mismatch")
	}

	rows := ledgerRows(t, db, 1)
	if len(rows) != 1 {
		t.Fatalf("want 1 ledger row, got %d", len(rows))
	}
	if rows[0].Type != transactions.TypeDeposit {
		t.Fatalf("want DEPOSIT row, got %s", rows[0].Type)
	}
	if rows[0].Remark != "Deposit of 100.01" {
		t.Fatalf("unexpected remark: %q", rows[0].Remark)
	}
}

func TestDeposit_CascadesBonuses(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()

	seedUser(t, db, 1, "1", true)
	seedUser(t, db, 2, "1.2", true)
	seedUser(t, db, 3, "1.2.3", true)

	svc := New(db)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	rcpt, err := svc.Deposit(ctx, 3, "1.2.3", decimal.RequireFromString("50.00"))
	if err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if !rcpt.NewBalance.Equal(decimal.RequireFromString("50.00")) {
		t.Fatalf("depositor balance: got %s", rcpt.NewBalance)
	}

	// 50% to the immediate referrer, 20% to the next level.
	if got := walletBalance(t, db, 2); !got.Equal(decimal.RequireFromString("25.00")) {
		t.Fatalf("level-1 bonus: want 25.00, got %s", got)
	}
	if got := walletBalance(t, db, 1); !got.Equal(decimal.RequireFromString("10.00")) {
		t.Fatalf("level-2 bonus: want 10.00, got %s", got)
	}

	depositRows := ledgerRows(t, db, 3)
	if len(depositRows) != 1 || depositRows[0].Type != transactions.TypeDeposit {
		t.Fatalf("unexpected depositor ledger: %+v", depositRows)
	}

	bonusRows := ledgerRows(t, db, 2)
	if len(bonusRows) != 1 || bonusRows[0].Type != transactions.TypeBonus {
		t.Fatalf("unexpected ancestor ledger: %+v", bonusRows)
	}
	wantRemark := "50% bonus from level 1 descendant (user 3) deposit"
	if bonusRows[0].Remark != wantRemark {
		t.Fatalf("remark: want %q, got %q", wantRemark, bonusRows[0].Remark)
	}

	// Every row of one deposit shares the reference.
	if bonusRows[0].Reference != depositRows[0].Reference {
		t.Fatal("bonus and deposit rows carry different references")
	}

	grandRows := ledgerRows(t, db, 1)
	wantRemark = "20% bonus from level 2 descendant (user 3) deposit"
	if len(grandRows) != 1 || grandRows[0].Remark != wantRemark {
		t.Fatalf("unexpected level-2 ledger: %+v", grandRows)
	}
}

func TestDeposit_CascadeStopsAtFiveLevels(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()

	// Chain 1..7, depositor is 7; only 6,5,4,3,2 get bonuses.
	path := ""
	for i := uint64(1); i <= 7; i++ {
		if path == "" {
			path = fmt.Sprintf("%d", i)
		} else {
			path = fmt.Sprintf("%s.%d", path, i)
		}
		seedUser(t, db, i, path, true)
	}

	svc := New(db)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := svc.Deposit(ctx, 7, "1.2.3.4.5.6.7", decimal.RequireFromString("100.00"))
	if err != nil {
		t.Fatalf("deposit: %v", err)
	}

	if got := walletBalance(t, db, 6); !got.Equal(decimal.RequireFromString("50.00")) {
		t.Fatalf("level-1 bonus: got %s", got)
	}
	for _, id := range []uint64{5, 4, 3, 2} {
		if got := walletBalance(t, db, id); !got.Equal(decimal.RequireFromString("20.00")) {
			t.Fatalf("user %d bonus: want 20.00, got %s", id, got)
		}
	}

	// Sixth-level ancestor is beyond the cascade.
	if got := walletBalance(t, db, 1); !got.IsZero() {
		t.Fatalf("user 1 should get nothing, got %s", got)
	}
	if rows := ledgerRows(t, db, 1); len(rows) != 0 {
		t.Fatalf("user 1 should have no ledger rows, got %d", len(rows))
	}
}

func TestDeposit_InvalidAmounts(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()

	seedUser(t, db, 1, "1", true)

	svc := New(db)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for _, raw := range []string{"0", "-5.00", "0.004"} {
		_, err := svc.Deposit(ctx, 1, "1", decimal.RequireFromString(raw))
		if !errors.Is(err, ErrInvalidAmount) {
			t.Fatalf("amount %s: expected ErrInvalidAmount, got: %v", raw, err)
		}
	}

	if got := walletBalance(t, db, 1); !got.IsZero() {
		t.Fatalf("balance should be untouched, got %s", got)
	}
}

func TestDeposit_DepositorWalletMissing(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()

	seedUser(t, db, 1, "1", true)
	seedUser(t, db, 2, "1.2", false) // no wallet

	svc := New(db)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := svc.Deposit(ctx, 2, "1.2", decimal.RequireFromString("10.00"))
	if !errors.Is(err, wallets.ErrWalletNotFound) {
		t.Fatalf("expected ErrWalletNotFound, got: %v", err)
	}

	// The ancestor must not have been credited either.
	if got := walletBalance(t, db, 1); !got.IsZero() {
		t.Fatalf("ancestor balance should be untouched, got %s", got)
	}
}

func TestDeposit_MissingAncestorWalletIsSkipped(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()

	seedUser(t, db, 1, "1", true)
	seedUser(t, db, 2, "1.2", false) // ancestor without wallet
	seedUser(t, db, 3, "1.2.3", true)

	svc := New(db)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	rcpt, err := svc.Deposit(ctx, 3, "1.2.3", decimal.RequireFromString("50.00"))
	if err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if !rcpt.NewBalance.Equal(decimal.RequireFromString("50.00")) {
		t.Fatalf("depositor balance: got %s", rcpt.NewBalance)
	}

	// User 2's leg is skipped, user 1 still gets its level-2 rate.
	if got := walletBalance(t, db, 1); !got.Equal(decimal.RequireFromString("10.00")) {
		t.Fatalf("level-2 bonus: want 10.00, got %s", got)
	}
	if rows := ledgerRows(t, db, 2); len(rows) != 0 {
		t.Fatalf("walletless ancestor must have no ledger rows, got %d", len(rows))
	}
}

func TestDeposit_MalformedPathDropsBonuses(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()

	seedUser(t, db, 1, "1", true)
	seedUser(t, db, 3, "1.x.3", true)

	svc := New(db)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	rcpt, err := svc.Deposit(ctx, 3, "1.x.3", decimal.RequireFromString("50.00"))
	if err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if !rcpt.NewBalance.Equal(decimal.RequireFromString("50.00")) {
		t.Fatalf("depositor balance: got %s", rcpt.NewBalance)
	}

	if got := walletBalance(t, db, 1); !got.IsZero() {
		t.Fatalf("no bonuses expected on malformed path, user 1 got %s", got)
	}
}

func TestDeposit_TinyBonusLegsAreSkipped(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()

	seedUser(t, db, 1, "1", true)
	seedUser(t, db, 2, "1.2", true)
	seedUser(t, db, 3, "1.2.3", true)

	svc := New(db)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// 0.01 * 20% rounds to 0.00: no ledger row, no credit for user 1.
	// 0.01 * 50% rounds to 0.01 (half up): user 2 still gets a cent.
	_, err := svc.Deposit(ctx, 3, "1.2.3", decimal.RequireFromString("0.01"))
	if err != nil {
		t.Fatalf("deposit: %v", err)
	}

	if got := walletBalance(t, db, 2); !got.Equal(decimal.RequireFromString("0.01")) {
		t.Fatalf("level-1 bonus: want 0.01, got %s", got)
	}
	if got := walletBalance(t, db, 1); !got.IsZero() {
		t.Fatalf("level-2 bonus should round away, got %s", got)
	}
	if rows := ledgerRows(t, db, 1); len(rows) != 0 {
		t.Fatalf("zero-valued leg must not produce ledger rows, got %d", len(rows))
	}
}

// failingTxns breaks the ledger write to force a rollback.
type failingTxns struct{}

func (failingTxns) Insert(*sql.Tx, transactions.Entry) (uint64, error) {
	return 0, errors.New("ledger unavailable")
}

func (failingTxns) ListByWalletID(context.Context, uint64, int) ([]transactions.Entry, error) {
	return nil, errors.New("ledger unavailable")
}

func TestDeposit_RollsBackOnLedgerFailure(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()

	seedUser(t, db, 1, "1", true)
	seedUser(t, db, 2, "1.2", true)

	svc := New(db, WithRepos(pgwallets.New(db), failingTxns{}))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := svc.Deposit(ctx, 2, "1.2", decimal.RequireFromString("50.00"))
	if err == nil {
		t.Fatal("expected error")
	}

	// Nothing of the unit of work may survive, including the self-credit.
	if got := walletBalance(t, db, 2); !got.IsZero() {
		t.Fatalf("depositor balance should roll back, got %s", got)
	}
	if got := walletBalance(t, db, 1); !got.IsZero() {
		t.Fatalf("ancestor balance should roll back, got %s", got)
	}

	var cnt int
	if err := db.QueryRow(`SELECT COUNT(*) FROM transactions`).Scan(&cnt); err != nil {
		t.Fatalf("count transactions: %v", err)
	}
	if cnt != 0 {
		t.Fatalf("expected empty ledger, got %d rows", cnt)
	}
}

// Sibling deposits share an ancestor; their bonus credits must serialize on
// the shared wallet row and both survive.
func TestDeposit_ConcurrentSiblingsShareAncestor(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()

	seedUser(t, db, 1, "1", true)
	seedUser(t, db, 2, "1.2", true)
	seedUser(t, db, 3, "1.3", true)

	svc := New(db)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	errCh := make(chan error, 2)

	deposit := func(userID uint64, path, amount string) {
		_, err := svc.Deposit(ctx, userID, path, decimal.RequireFromString(amount))
		errCh <- err
	}

	go deposit(2, "1.2", "100.00")
	go deposit(3, "1.3", "40.00")

	for i := 0; i < 2; i++ {
		select {
		case err := <-errCh:
			if err != nil {
				t.Fatalf("concurrent deposit: %v", err)
			}
		case <-ctx.Done():
			t.Fatal("timeout waiting for deposits")
		}
	}

	// 50% of 100.00 plus 50% of 40.00.
	if got := walletBalance(t, db, 1); !got.Equal(decimal.RequireFromString("70.00")) {
		t.Fatalf("shared ancestor balance: want 70.00, got %s", got)
	}
	if rows := ledgerRows(t, db, 1); len(rows) != 2 {
		t.Fatalf("shared ancestor should have 2 bonus rows, got %d", len(rows))
	}
}

func TestBalanceAndHistory(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()

	seedUser(t, db, 1, "1", true)
	seedUser(t, db, 2, "1.2", true)

	svc := New(db)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := svc.Deposit(ctx, 2, "1.2", decimal.RequireFromString("80.00"))
	if err != nil {
		t.Fatalf("deposit: %v", err)
	}

	bal, err := svc.Balance(ctx, 1)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if !bal.Equal(decimal.RequireFromString("40.00")) {
		t.Fatalf("ancestor balance: want 40.00, got %s", bal)
	}

	hist, err := svc.History(ctx, 1, 10)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(hist) != 1 || hist[0].Type != transactions.TypeBonus {
		t.Fatalf("unexpected history: %+v", hist)
	}

	_, err = svc.Balance(ctx, 404)
	if !errors.Is(err, wallets.ErrWalletNotFound) {
		t.Fatalf("expected ErrWalletNotFound, got: %v", err)
	}
}

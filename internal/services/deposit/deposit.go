// Package deposit implements the deposit-and-bonus-cascade coordinator.
//
// A deposit credits the depositor's wallet and pays a shrinking percentage
// bonus to up to five referral ancestors, all inside one database
// transaction: either the self-credit and every resolvable bonus commit
// together, or nothing does.
package deposit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"refwallet/internal/infra/cache"
	"refwallet/internal/infra/pgutils"
	"refwallet/internal/money"
	"refwallet/internal/referral"
	"refwallet/internal/repos/transactions"
	pgtransactions "refwallet/internal/repos/transactions/postgres"
	"refwallet/internal/repos/wallets"
	pgwallets "refwallet/internal/repos/wallets/postgres"
)

// ErrInvalidAmount rejects non-positive deposit amounts before any storage
// access. Amounts that round to zero at two digits count as non-positive.
var ErrInvalidAmount = errors.New("invalid deposit amount")

// DefaultRates is the bonus paid per ancestor level, nearest first: 50% to
// the immediate referrer, 20% to each of the next four. The table length
// bounds the cascade depth. Unused tail rates are simply not paid out.
var DefaultRates = []decimal.Decimal{
	decimal.NewFromFloat(0.5),
	decimal.NewFromFloat(0.2),
	decimal.NewFromFloat(0.2),
	decimal.NewFromFloat(0.2),
	decimal.NewFromFloat(0.2),
}

// Receipt is what the depositor gets back. Ancestor balances are not exposed.
type Receipt struct {
	DepositAmount decimal.Decimal
	NewBalance    decimal.Decimal
}

type Service struct {
	db      *sql.DB
	wallets wallets.Wallets
	txns    transactions.Transactions
	rates   []decimal.Decimal
	cache   *cache.Cache
}

type Option func(*Service)

// WithRates overrides the bonus-rate table.
func WithRates(rates []decimal.Decimal) Option {
	return func(s *Service) { s.rates = rates }
}

// WithCache enables best-effort balance caching.
func WithCache(c *cache.Cache) Option {
	return func(s *Service) { s.cache = c }
}

// WithRepos swaps the repo implementations; used by tests.
func WithRepos(w wallets.Wallets, t transactions.Transactions) Option {
	return func(s *Service) {
		s.wallets = w
		s.txns = t
	}
}

func New(db *sql.DB, opts ...Option) *Service {
	s := &Service{
		db:      db,
		wallets: pgwallets.New(db),
		txns:    pgtransactions.New(db),
		rates:   DefaultRates,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Deposit credits the user's own wallet with amount and cascades bonuses to
// the ancestors encoded in rawPath. userID and rawPath come from the
// authenticated session and are trusted as already verified.
//
// The whole operation is one unit of work: every wallet it touches is locked
// in a single batch (ascending user id), and on any storage failure nothing
// is applied. A malformed path or a missing ancestor wallet never blocks the
// depositor's own credit; both are logged as data-integrity signals.
func (s *Service) Deposit(ctx context.Context, userID uint64, rawPath string, amount decimal.Decimal) (Receipt, error) {
	if !amount.IsPositive() {
		return Receipt{}, ErrInvalidAmount
	}

	// The only rounding of the deposited amount happens here.
	amt := money.Round2(amount)
	if !amt.IsPositive() {
		return Receipt{}, ErrInvalidAmount
	}

	ancestors := s.resolveAncestors(userID, rawPath)

	var receipt Receipt

	err := pgutils.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		locked, err := s.wallets.LockByUserIDs(tx, lockOrder(userID, ancestors))
		if err != nil {
			return fmt.Errorf("lock wallets: %w", err)
		}

		byUser := make(map[uint64]wallets.Wallet, len(locked))
		for _, w := range locked {
			byUser[w.UserID] = w
		}

		self, ok := byUser[userID]
		if !ok {
			return fmt.Errorf("depositor %d: %w", userID, wallets.ErrWalletNotFound)
		}

		ref := uuid.New()

		newBalance, err := s.credit(tx, self, amt, transactions.TypeDeposit, ref,
			fmt.Sprintf("Deposit of %s", money.Format(amt)))
		if err != nil {
			return fmt.Errorf("credit depositor: %w", err)
		}

		for level, ancestorID := range ancestors {
			w, ok := byUser[ancestorID]
			if !ok {
				// Not fatal: a missing ancestor wallet must never block the
				// depositor, but it means provisioning skipped someone.
				slog.Warn("ancestor wallet missing, skipping bonus",
					"depositor_id", userID,
					"ancestor_id", ancestorID,
					"level", level+1,
				)

				continue
			}

			rate := s.rates[level]

			bonus := money.Round2(amt.Mul(rate))
			if !bonus.IsPositive() {
				continue
			}

			remark := fmt.Sprintf("%s%% bonus from level %d descendant (user %d) deposit",
				rate.Mul(decimal.NewFromInt(100)).String(), level+1, userID)

			_, err = s.credit(tx, w, bonus, transactions.TypeBonus, ref, remark)
			if err != nil {
				return fmt.Errorf("credit ancestor %d: %w", ancestorID, err)
			}
		}

		receipt = Receipt{DepositAmount: amt, NewBalance: newBalance}

		return nil
	})
	if err != nil {
		return Receipt{}, fmt.Errorf("deposit: %w", err)
	}

	s.invalidateBalances(ctx, userID, ancestors)

	return receipt, nil
}

// credit applies one balance mutation and its paired ledger row.
func (s *Service) credit(
	tx *sql.Tx,
	w wallets.Wallet,
	amount decimal.Decimal,
	txType transactions.Type,
	ref uuid.UUID,
	remark string,
) (decimal.Decimal, error) {
	newBalance, err := s.wallets.AddBalance(tx, w.ID, amount)
	if err != nil {
		return decimal.Zero, fmt.Errorf("add balance: %w", err)
	}

	_, err = s.txns.Insert(tx, transactions.Entry{
		Reference: ref,
		UserID:    w.UserID,
		WalletID:  w.ID,
		Amount:    amount,
		Type:      txType,
		Status:    transactions.StatusCompleted,
		Remark:    remark,
	})
	if err != nil {
		return decimal.Zero, fmt.Errorf("insert ledger row: %w", err)
	}

	return newBalance, nil
}

// resolveAncestors decodes the materialized path into at most len(rates)
// ancestor ids, nearest first. Broken paths degrade to "no ancestors" so the
// depositor still gets credited, but they are loud in the logs: a user row
// with a malformed path is a provisioning bug.
func (s *Service) resolveAncestors(userID uint64, rawPath string) []uint64 {
	p, err := referral.Parse(rawPath)
	if err != nil {
		slog.Error("malformed referral path, depositing without bonuses",
			"user_id", userID, "path", rawPath, "error", err)

		return nil
	}

	if len(p) > 0 && p.Owner() != userID {
		slog.Error("referral path does not end in depositor id, depositing without bonuses",
			"user_id", userID, "path", rawPath)

		return nil
	}

	return p.Ancestors(len(s.rates))
}

// lockOrder returns the depositor plus ancestors as a sorted, de-duplicated
// id list. The batch lock statement orders by user id as well; sorting here
// keeps the intent visible at the call site.
func lockOrder(userID uint64, ancestors []uint64) []uint64 {
	ids := make([]uint64, 0, len(ancestors)+1)
	ids = append(ids, userID)

	seen := map[uint64]struct{}{userID: {}}
	for _, id := range ancestors {
		if _, dup := seen[id]; dup {
			continue
		}

		seen[id] = struct{}{}
		ids = append(ids, id)
	}

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	return ids
}

func (s *Service) invalidateBalances(ctx context.Context, userID uint64, ancestors []uint64) {
	if s.cache == nil {
		return
	}

	keys := make([]string, 0, len(ancestors)+1)
	keys = append(keys, cache.BalanceKey(userID))

	for _, id := range ancestors {
		keys = append(keys, cache.BalanceKey(id))
	}

	err := s.cache.Delete(ctx, keys...)
	if err != nil {
		slog.Warn("balance cache invalidation failed", "error", err)
	}
}

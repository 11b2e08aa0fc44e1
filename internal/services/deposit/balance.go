package deposit

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"refwallet/internal/infra/cache"
	"refwallet/internal/repos/transactions"
)

// Balance returns the user's current wallet balance, read-through cached.
// Cache trouble is logged and degrades to a plain database read.
func (s *Service) Balance(ctx context.Context, userID uint64) (decimal.Decimal, error) {
	key := cache.BalanceKey(userID)

	var cached string

	hit, err := s.cache.Get(ctx, key, &cached)
	if err != nil {
		slog.Warn("balance cache read failed", "user_id", userID, "error", err)
	}

	if hit {
		d, perr := decimal.NewFromString(cached)
		if perr == nil {
			return d, nil
		}

		slog.Warn("dropping unparsable cached balance", "user_id", userID, "value", cached)
	}

	w, err := s.wallets.GetByUserID(ctx, userID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("get balance: %w", err)
	}

	err = s.cache.Set(ctx, key, w.Balance.String())
	if err != nil {
		slog.Warn("balance cache write failed", "user_id", userID, "error", err)
	}

	return w.Balance, nil
}

// History returns the newest ledger entries for the user's wallet.
func (s *Service) History(ctx context.Context, userID uint64, limit int) ([]transactions.Entry, error) {
	w, err := s.wallets.GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get wallet: %w", err)
	}

	entries, err := s.txns.ListByWalletID(ctx, w.ID, limit)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}

	return entries, nil
}

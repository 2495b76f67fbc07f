// Package reporting provides read-only aggregation over the ledger's
// persisted state. It consumes the storage read interfaces and never mutates.
package reporting

import (
	"context"
	"sort"
	"time"

	"github.com/egegvner/minibank/pkg/models"
	"github.com/egegvner/minibank/pkg/storage"
	"github.com/shopspring/decimal"
)

// DefaultWindow is used when a recent-metrics request does not name one.
const DefaultWindow = 24 * time.Hour

// Service aggregates account and transaction state for display.
type Service struct {
	accounts     storage.AccountReader
	transactions storage.TransactionReader
	clock        func() time.Time
}

// NewService creates a reporting Service. A nil clock defaults to time.Now.
func NewService(accounts storage.AccountReader, transactions storage.TransactionReader, clock func() time.Time) *Service {
	if clock == nil {
		clock = time.Now
	}
	return &Service{accounts: accounts, transactions: transactions, clock: clock}
}

// LifetimeMetrics is an account's running tallies.
type LifetimeMetrics struct {
	AccountID    string          `json:"account_id"`
	Username     string          `json:"username"`
	Balance      decimal.Decimal `json:"balance"`
	Deposits     int64           `json:"deposits"`
	Withdrawals  int64           `json:"withdrawals"`
	TransfersIn  int64           `json:"transfers_in"`
	TransfersOut int64           `json:"transfers_out"`
}

// WindowMetrics sums an account's activity inside a trailing window.
// Pending transfers count as outgoing volume: the funds are already escrowed.
type WindowMetrics struct {
	AccountID      string          `json:"account_id"`
	Window         time.Duration   `json:"-"`
	Deposited      decimal.Decimal `json:"deposited"`
	Withdrawn      decimal.Decimal `json:"withdrawn"`
	TransferredOut decimal.Decimal `json:"transferred_out"`
	TransferredIn  decimal.Decimal `json:"transferred_in"`
	Operations     int             `json:"operations"`
}

// LeaderboardEntry is one row of the balance leaderboard.
type LeaderboardEntry struct {
	Rank        int             `json:"rank"`
	AccountID   string          `json:"account_id"`
	Username    string          `json:"username"`
	VisibleName string          `json:"visible_name,omitempty"`
	Balance     decimal.Decimal `json:"balance"`
}

// Lifetime returns the lifetime counters and current balance for an account.
func (s *Service) Lifetime(ctx context.Context, accountID string) (*LifetimeMetrics, error) {
	acct, err := s.accounts.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return &LifetimeMetrics{
		AccountID:    acct.ID,
		Username:     acct.Username,
		Balance:      acct.Balance,
		Deposits:     acct.Deposits,
		Withdrawals:  acct.Withdrawals,
		TransfersIn:  acct.TransfersIn,
		TransfersOut: acct.TransfersOut,
	}, nil
}

// Recent sums the account's activity within the trailing window. A
// non-positive window falls back to DefaultWindow.
func (s *Service) Recent(ctx context.Context, accountID string, window time.Duration) (*WindowMetrics, error) {
	if window <= 0 {
		window = DefaultWindow
	}
	acct, err := s.accounts.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}

	cutoff := s.clock().Add(-window)
	metrics := &WindowMetrics{AccountID: accountID, Window: window}

	own, err := s.transactions.ListTransactionsByAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	for _, rec := range own {
		if rec.CreatedAt.Before(cutoff) {
			continue
		}
		switch rec.Kind {
		case models.KindDeposit:
			metrics.Deposited = metrics.Deposited.Add(rec.Amount)
		case models.KindWithdrawal:
			metrics.Withdrawn = metrics.Withdrawn.Add(rec.Amount)
		case models.KindTransferOut:
			// Rejected transfers were refunded; they moved no value.
			if rec.Status != models.StatusRejected {
				metrics.TransferredOut = metrics.TransferredOut.Add(rec.Amount)
			}
		}
		metrics.Operations++
	}

	incoming, err := s.transactions.ListTransfersToUsername(ctx, acct.Username)
	if err != nil {
		return nil, err
	}
	for _, rec := range incoming {
		// Incoming value lands at acceptance time, not initiation.
		if rec.Status == models.StatusAccepted && !rec.UpdatedAt.Before(cutoff) {
			metrics.TransferredIn = metrics.TransferredIn.Add(rec.Amount)
		}
	}
	return metrics, nil
}

// Leaderboard returns every account ordered by balance descending, ties
// broken by account id ascending for determinism.
func (s *Service) Leaderboard(ctx context.Context) ([]LeaderboardEntry, error) {
	accts, err := s.accounts.ListAccounts(ctx)
	if err != nil {
		return nil, err
	}
	sort.Slice(accts, func(i, j int) bool {
		if !accts[i].Balance.Equal(accts[j].Balance) {
			return accts[i].Balance.GreaterThan(accts[j].Balance)
		}
		return accts[i].ID < accts[j].ID
	})

	out := make([]LeaderboardEntry, len(accts))
	for i, acct := range accts {
		out[i] = LeaderboardEntry{
			Rank:        i + 1,
			AccountID:   acct.ID,
			Username:    acct.Username,
			VisibleName: acct.VisibleName,
			Balance:     acct.Balance,
		}
	}
	return out, nil
}

// Package ledger implements the core ledger engine: deposits, withdrawals and
// two-phase escrowed transfers over the storage contract, with per-account
// cooldown throttling and optimistic concurrency.
package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/egegvner/minibank/pkg/models"
	"github.com/egegvner/minibank/pkg/storage"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Config carries the engine's policy knobs. Zero values fall back to the
// defaults below.
type Config struct {
	// StartingBalance is credited to every account at registration.
	StartingBalance decimal.Decimal

	// MaxOperationAmount caps withdrawals and transfer initiations.
	MaxOperationAmount decimal.Decimal

	// DepositBalanceRatio caps a deposit at this fraction of the current
	// balance.
	DepositBalanceRatio decimal.Decimal

	// CooldownWindow is the minimum interval between an account's
	// self-initiated mutating operations.
	CooldownWindow time.Duration

	// Clock is injectable for tests.
	Clock func() time.Time

	Logger *slog.Logger
}

// Engine orchestrates all balance-affecting operations. Validation happens
// against an account snapshot; the storage layer commits conditionally on that
// snapshot, so a failed validation never leaves partial state and a stale
// snapshot surfaces as a retryable contention error.
type Engine struct {
	store  storage.Storage
	guard  CooldownGuard
	cfg    Config
	clock  func() time.Time
	logger *slog.Logger
}

// NewEngine creates an Engine over the given store.
func NewEngine(store storage.Storage, cfg Config) *Engine {
	if cfg.StartingBalance.IsZero() {
		cfg.StartingBalance = decimal.NewFromInt(100)
	}
	if cfg.MaxOperationAmount.IsZero() {
		cfg.MaxOperationAmount = decimal.NewFromInt(1_000_000)
	}
	if cfg.DepositBalanceRatio.IsZero() {
		cfg.DepositBalanceRatio = decimal.NewFromFloat(0.75)
	}
	if cfg.CooldownWindow == 0 {
		cfg.CooldownWindow = 60 * time.Second
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Engine{
		store:  store,
		guard:  CooldownGuard{Window: cfg.CooldownWindow},
		cfg:    cfg,
		clock:  cfg.Clock,
		logger: cfg.Logger,
	}
}

// Register creates a new account with the starting balance and zero counters.
// The password hash is opaque to the engine; hashing belongs to the auth
// gateway.
func (e *Engine) Register(ctx context.Context, username, passwordHash, visibleName, email string) (*models.Account, error) {
	if username == "" {
		return nil, fmt.Errorf("%w: username must not be empty", ErrValidation)
	}
	acct := &models.Account{
		ID:           uuid.NewString(),
		Username:     username,
		VisibleName:  visibleName,
		Email:        email,
		PasswordHash: passwordHash,
		Balance:      e.cfg.StartingBalance,
		CreatedAt:    e.clock(),
	}
	created, err := e.store.CreateAccount(ctx, acct)
	if err != nil {
		return nil, err
	}
	e.logger.Info("account registered", "account_id", created.ID, "username", created.Username)
	return created, nil
}

// GetAccount retrieves an account by id.
func (e *Engine) GetAccount(ctx context.Context, id string) (*models.Account, error) {
	return e.store.GetAccount(ctx, id)
}

// GetAccountByUsername retrieves an account by username.
func (e *Engine) GetAccountByUsername(ctx context.Context, username string) (*models.Account, error) {
	return e.store.GetAccountByUsername(ctx, username)
}

// Deposit credits amount to the account. The amount must be positive and at
// most DepositBalanceRatio of the current balance.
func (e *Engine) Deposit(ctx context.Context, accountID string, amount decimal.Decimal) (*models.TransactionRecord, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("%w: deposit amount must be positive", ErrValidation)
	}

	acct, now, err := e.mutableAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if amount.GreaterThan(acct.Balance.Mul(e.cfg.DepositBalanceRatio)) {
		return nil, ErrDepositLimitExceeded
	}

	rec := e.newRecord(acct.ID, models.KindDeposit, amount, acct.Balance.Add(amount), now)
	rec.Status = models.StatusComplete
	stored, err := e.store.ApplyDeposit(ctx, acct, rec)
	if err != nil {
		return nil, err
	}
	e.logger.Info("deposit applied", "account_id", acct.ID, "amount", amount.String(), "balance", stored.ResultingBalance.String())
	return stored, nil
}

// Withdraw debits amount from the account. The amount must be positive, at
// most MaxOperationAmount, and covered by the current balance.
func (e *Engine) Withdraw(ctx context.Context, accountID string, amount decimal.Decimal) (*models.TransactionRecord, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("%w: withdrawal amount must be positive", ErrValidation)
	}
	if amount.GreaterThan(e.cfg.MaxOperationAmount) {
		return nil, fmt.Errorf("%w: withdrawal amount exceeds the operation cap", ErrValidation)
	}

	acct, now, err := e.mutableAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if amount.GreaterThan(acct.Balance) {
		return nil, ErrInsufficientFunds
	}

	rec := e.newRecord(acct.ID, models.KindWithdrawal, amount, acct.Balance.Sub(amount), now)
	rec.Status = models.StatusComplete
	stored, err := e.store.ApplyWithdrawal(ctx, acct, rec)
	if err != nil {
		return nil, err
	}
	e.logger.Info("withdrawal applied", "account_id", acct.ID, "amount", amount.String(), "balance", stored.ResultingBalance.String())
	return stored, nil
}

// GetHistory returns the account's records newest first: everything it
// initiated, plus recipient-side views of transfers sent to it, materialised
// as TRANSFER_IN rows naming the sender as counterparty.
func (e *Engine) GetHistory(ctx context.Context, accountID string) ([]models.TransactionRecord, error) {
	acct, err := e.store.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}

	own, err := e.store.ListTransactionsByAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	incoming, err := e.store.ListTransfersToUsername(ctx, acct.Username)
	if err != nil {
		return nil, err
	}

	senders := map[string]string{} // sender account id -> username
	out := own
	for _, rec := range incoming {
		username, ok := senders[rec.AccountID]
		if !ok {
			if sender, err := e.store.GetAccount(ctx, rec.AccountID); err == nil {
				username = sender.Username
			}
			senders[rec.AccountID] = username
		}
		view := rec
		view.Kind = models.KindTransferIn
		view.AccountID = accountID
		view.CounterpartyUsername = username
		view.ResultingBalance = decimal.Zero // sender-side snapshot, not meaningful here
		out = append(out, view)
	}

	sortRecordsNewestFirst(out)
	return out, nil
}

// mutableAccount loads an account and applies the checks shared by every
// self-initiated mutation: suspension and cooldown.
func (e *Engine) mutableAccount(ctx context.Context, accountID string) (*models.Account, time.Time, error) {
	acct, err := e.store.GetAccount(ctx, accountID)
	if err != nil {
		return nil, time.Time{}, err
	}
	if acct.Suspended {
		return nil, time.Time{}, ErrSuspendedAccount
	}
	now := e.clock()
	if err := e.guard.Check(acct, now); err != nil {
		return nil, time.Time{}, err
	}
	return acct, now, nil
}

func (e *Engine) newRecord(accountID string, kind models.TransactionKind, amount, resulting decimal.Decimal, now time.Time) *models.TransactionRecord {
	return &models.TransactionRecord{
		AccountID:        accountID,
		Kind:             kind,
		Amount:           amount,
		ResultingBalance: resulting,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

func sortRecordsNewestFirst(recs []models.TransactionRecord) {
	sort.Slice(recs, func(i, j int) bool { return recs[i].CreatedAt.After(recs[j].CreatedAt) })
}

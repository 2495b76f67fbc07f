package storage

import (
	"context"

	"github.com/egegvner/minibank/pkg/models"
)

// LedgerWriter defines the balance-affecting atomic units. Each method commits
// its balance delta, lifetime counter increment, last-mutation timestamp and
// record append (or status transition) together or not at all.
//
// Every method takes the account snapshot the caller validated against, and
// commits conditionally on that snapshot's Version: if another writer got in
// between, the commit fails with ErrContention and no partial state is
// visible. Debits additionally fail with ErrInsufficientFunds rather than
// taking a balance negative.
type LedgerWriter interface {
	// ApplyDeposit credits rec.Amount to the account, increments its deposit
	// counter, and appends the COMPLETE deposit record. Assigns rec.ID.
	ApplyDeposit(ctx context.Context, acct *models.Account, rec *models.TransactionRecord) (*models.TransactionRecord, error)

	// ApplyWithdrawal debits rec.Amount from the account, increments its
	// withdrawal counter, and appends the COMPLETE withdrawal record.
	ApplyWithdrawal(ctx context.Context, acct *models.Account, rec *models.TransactionRecord) (*models.TransactionRecord, error)

	// InitiateTransfer escrows rec.Amount out of the sender's balance and
	// appends the PENDING transfer record. The recipient is not touched.
	InitiateTransfer(ctx context.Context, sender *models.Account, rec *models.TransactionRecord) (*models.TransactionRecord, error)

	// AcceptTransfer credits the escrowed amount to the recipient, increments
	// the transfer counters on both sides, and transitions the record
	// PENDING -> ACCEPTED. Fails with ErrInvalidStateTransition if the record
	// is no longer PENDING. A nil sender skips the sender-side counter update
	// (the sender account was deleted after initiation).
	AcceptTransfer(ctx context.Context, rec *models.TransactionRecord, sender, recipient *models.Account) error

	// RejectTransfer refunds the escrowed amount to the sender, increments
	// the transfer counters on both sides, and transitions the record
	// PENDING -> REJECTED. A nil sender drops the refund (the escrowed value
	// has no account to return to).
	RejectTransfer(ctx context.Context, rec *models.TransactionRecord, sender, recipient *models.Account) error
}

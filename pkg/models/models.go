package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionKind defines the possible kinds of ledger records.
type TransactionKind string

const (
	KindDeposit     TransactionKind = "DEPOSIT"
	KindWithdrawal  TransactionKind = "WITHDRAWAL"
	KindTransferOut TransactionKind = "TRANSFER_OUT"

	// KindTransferIn is a presentation-only kind. The persisted record for a
	// transfer is the sender's TRANSFER_OUT row; history reads materialise the
	// recipient-side view from it.
	KindTransferIn TransactionKind = "TRANSFER_IN"
)

// TransactionStatus defines the possible states of a ledger record.
// Deposits and withdrawals are COMPLETE at creation. Transfers start PENDING
// and transition exactly once, to either ACCEPTED or REJECTED.
type TransactionStatus string

const (
	StatusComplete TransactionStatus = "COMPLETE"
	StatusPending  TransactionStatus = "PENDING"
	StatusAccepted TransactionStatus = "ACCEPTED"
	StatusRejected TransactionStatus = "REJECTED"
)

// Account represents the internal domain model for a ledger account.
// Version is an optimistic concurrency counter: every committed mutation of
// the account increments it, and every conditional write is keyed on it.
type Account struct {
	ID           string
	Username     string
	VisibleName  string
	Email        string
	PasswordHash string
	Balance      decimal.Decimal
	Suspended    bool

	// Lifetime counters, reporting only. Incremented by the storage layer as
	// part of the same atomic unit as the balance mutation they belong to.
	Deposits     int64
	Withdrawals  int64
	TransfersIn  int64
	TransfersOut int64

	// LastMutation is the time of the most recent balance-affecting operation
	// this account initiated. Nil until the first one. Accepting or rejecting
	// a transfer as the recipient does not set it.
	LastMutation *time.Time

	Version   int64
	CreatedAt time.Time
}

// TransactionRecord represents a single balance-affecting event. Records are
// append-only; only a transfer's status may change after creation.
type TransactionRecord struct {
	ID        string
	AccountID string
	Kind      TransactionKind
	Amount    decimal.Decimal

	// ResultingBalance is the initiating account's balance immediately after
	// the operation took effect on that account.
	ResultingBalance decimal.Decimal

	// CounterpartyUsername is set for transfer kinds only, and names the
	// recipient. It is resolved back to an account at read time.
	CounterpartyUsername string

	Status    TransactionStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsTransfer reports whether the record is a transfer-kind record.
func (r *TransactionRecord) IsTransfer() bool {
	return r.Kind == KindTransferOut || r.Kind == KindTransferIn
}

// Identity is the resolved caller identity passed into engine operations.
// It replaces any notion of global session state.
type Identity struct {
	AccountID string
	Username  string
	Admin     bool
}

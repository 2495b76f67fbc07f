package storage

import "errors"

// ErrNotFound is returned when an account or transaction record does not exist.
var ErrNotFound = errors.New("not found")

// ErrAccountExists is returned when creating an account whose id or username is already taken.
var ErrAccountExists = errors.New("account already exists")

// ErrInsufficientFunds is returned when a debit would take an account's balance below zero.
var ErrInsufficientFunds = errors.New("insufficient funds")

// ErrInvalidStateTransition is returned when a transfer record is not in the
// expected status at commit time, e.g. a concurrent resolution already moved
// it out of PENDING.
var ErrInvalidStateTransition = errors.New("invalid state transition")

// ErrContention is returned when an atomic unit could not commit because the
// account snapshot it was built on went stale, or a lock could not be acquired
// in time. It is the only retryable storage error.
var ErrContention = errors.New("storage contention, retry")

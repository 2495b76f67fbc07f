package ledger

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/egegvner/minibank/pkg/storage"
)

// ErrValidation is returned for a malformed or out-of-range amount.
var ErrValidation = errors.New("validation failed")

// ErrDepositLimitExceeded is returned when a deposit exceeds the
// fraction-of-balance cap.
var ErrDepositLimitExceeded = errors.New("deposit limit exceeded")

// ErrUnknownRecipient is returned when a transfer names a username that does
// not resolve to an account.
var ErrUnknownRecipient = errors.New("unknown recipient")

// ErrDuplicatePendingTransfer is returned when the ordered (sender, recipient)
// pair already has an outstanding PENDING transfer.
var ErrDuplicatePendingTransfer = errors.New("a pending transfer to this recipient already exists")

// ErrForbidden is returned when the acting account is not the one a transfer
// names as recipient.
var ErrForbidden = errors.New("forbidden")

// ErrSuspendedAccount is returned when a suspended account tries to initiate a
// mutating operation.
var ErrSuspendedAccount = errors.New("account is suspended")

// Storage-level failures surface through the engine unchanged.
var (
	ErrNotFound               = storage.ErrNotFound
	ErrAccountExists          = storage.ErrAccountExists
	ErrInsufficientFunds      = storage.ErrInsufficientFunds
	ErrInvalidStateTransition = storage.ErrInvalidStateTransition
	ErrContention             = storage.ErrContention
)

// CooldownActiveError is returned when an account mutated too recently.
type CooldownActiveError struct {
	Remaining time.Duration
}

func (e *CooldownActiveError) Error() string {
	return fmt.Sprintf("cooldown active, retry in %d seconds", e.SecondsRemaining())
}

// SecondsRemaining rounds the remaining cooldown up to whole seconds.
func (e *CooldownActiveError) SecondsRemaining() int {
	return int(math.Ceil(e.Remaining.Seconds()))
}

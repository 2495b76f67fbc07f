package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/egegvner/minibank/pkg/models"
	"github.com/egegvner/minibank/pkg/storage"
	"github.com/shopspring/decimal"
)

// Decision is the recipient's verdict on a pending transfer.
type Decision string

const (
	DecisionAccept Decision = "ACCEPT"
	DecisionReject Decision = "REJECT"
)

// InitiateTransfer escrows amount out of the sender's balance and creates a
// PENDING transfer record for the recipient to resolve. The recipient's
// balance is not touched until acceptance.
//
// At most one PENDING transfer may exist per ordered (sender, recipient) pair.
func (e *Engine) InitiateTransfer(ctx context.Context, senderID, recipientUsername string, amount decimal.Decimal) (*models.TransactionRecord, error) {
	sender, now, err := e.mutableAccount(ctx, senderID)
	if err != nil {
		return nil, err
	}

	recipient, err := e.store.GetAccountByUsername(ctx, recipientUsername)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrUnknownRecipient
		}
		return nil, err
	}
	if recipient.ID == sender.ID {
		return nil, fmt.Errorf("%w: cannot transfer to yourself", ErrValidation)
	}

	if _, err := e.store.FindPendingTransfer(ctx, sender.ID, recipient.Username); err == nil {
		return nil, ErrDuplicatePendingTransfer
	} else if !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}

	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("%w: transfer amount must be positive", ErrValidation)
	}
	if amount.GreaterThan(e.cfg.MaxOperationAmount) {
		return nil, fmt.Errorf("%w: transfer amount exceeds the operation cap", ErrValidation)
	}
	if amount.GreaterThan(sender.Balance) {
		return nil, fmt.Errorf("%w: transfer amount exceeds the available balance", ErrValidation)
	}

	rec := e.newRecord(sender.ID, models.KindTransferOut, amount, sender.Balance.Sub(amount), now)
	rec.Status = models.StatusPending
	rec.CounterpartyUsername = recipient.Username

	stored, err := e.store.InitiateTransfer(ctx, sender, rec)
	if err != nil {
		return nil, err
	}
	e.logger.Info("transfer initiated",
		"transaction_id", stored.ID,
		"sender_id", sender.ID,
		"recipient", recipient.Username,
		"amount", amount.String(),
	)
	return stored, nil
}

// ResolveTransfer applies the recipient's decision to a pending transfer.
// Accepting credits the recipient with the escrowed amount; rejecting refunds
// the sender. Only the account the record names as counterparty may resolve.
//
// A sender suspended or deleted after initiation does not block resolution:
// the transfer proceeds against the stored identifiers. If a rejected
// transfer's sender no longer exists the refund is dropped, since the value
// was already escrowed out of circulation.
func (e *Engine) ResolveTransfer(ctx context.Context, transactionID string, decision Decision, actingAccountID string) (*models.TransactionRecord, error) {
	if decision != DecisionAccept && decision != DecisionReject {
		return nil, fmt.Errorf("%w: unknown decision %q", ErrValidation, decision)
	}

	rec, err := e.store.GetTransaction(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if rec.Kind != models.KindTransferOut || rec.Status != models.StatusPending {
		return nil, ErrNotFound
	}

	recipient, err := e.store.GetAccount(ctx, actingAccountID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrForbidden
		}
		return nil, err
	}
	if recipient.Username != rec.CounterpartyUsername {
		return nil, ErrForbidden
	}

	sender, err := e.store.GetAccount(ctx, rec.AccountID)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			return nil, err
		}
		sender = nil
	}

	rec.UpdatedAt = e.clock()
	switch decision {
	case DecisionAccept:
		rec.Status = models.StatusAccepted
		err = e.store.AcceptTransfer(ctx, rec, sender, recipient)
	case DecisionReject:
		rec.Status = models.StatusRejected
		if sender == nil {
			e.logger.Warn("rejecting transfer with deleted sender, refund dropped",
				"transaction_id", rec.ID, "sender_id", rec.AccountID)
		}
		err = e.store.RejectTransfer(ctx, rec, sender, recipient)
	}
	if err != nil {
		return nil, err
	}

	e.logger.Info("transfer resolved",
		"transaction_id", rec.ID,
		"decision", string(decision),
		"recipient_id", recipient.ID,
	)
	return rec, nil
}

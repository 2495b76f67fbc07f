package memory

import (
	"context"

	"github.com/egegvner/minibank/pkg/models"
	"github.com/egegvner/minibank/pkg/storage"
)

// ApplyDeposit credits the account and appends the deposit record atomically.
func (s *Store) ApplyDeposit(ctx context.Context, acct *models.Account, rec *models.TransactionRecord) (*models.TransactionRecord, error) {
	release, err := s.acquire(ctx, acct.ID)
	if err != nil {
		return nil, err
	}
	defer release()

	s.mu.Lock()
	defer s.mu.Unlock()
	cur, err := s.stale(acct)
	if err != nil {
		return nil, err
	}

	cur.Balance = cur.Balance.Add(rec.Amount)
	cur.Deposits++
	s.touch(cur, rec)
	return s.appendLocked(rec), nil
}

// ApplyWithdrawal debits the account and appends the withdrawal record atomically.
func (s *Store) ApplyWithdrawal(ctx context.Context, acct *models.Account, rec *models.TransactionRecord) (*models.TransactionRecord, error) {
	release, err := s.acquire(ctx, acct.ID)
	if err != nil {
		return nil, err
	}
	defer release()

	s.mu.Lock()
	defer s.mu.Unlock()
	cur, err := s.stale(acct)
	if err != nil {
		return nil, err
	}
	if cur.Balance.LessThan(rec.Amount) {
		return nil, storage.ErrInsufficientFunds
	}

	cur.Balance = cur.Balance.Sub(rec.Amount)
	cur.Withdrawals++
	s.touch(cur, rec)
	return s.appendLocked(rec), nil
}

// InitiateTransfer escrows the amount out of the sender's balance and appends
// the PENDING transfer record atomically. The recipient is untouched.
func (s *Store) InitiateTransfer(ctx context.Context, sender *models.Account, rec *models.TransactionRecord) (*models.TransactionRecord, error) {
	release, err := s.acquire(ctx, sender.ID)
	if err != nil {
		return nil, err
	}
	defer release()

	s.mu.Lock()
	defer s.mu.Unlock()
	cur, err := s.stale(sender)
	if err != nil {
		return nil, err
	}
	if cur.Balance.LessThan(rec.Amount) {
		return nil, storage.ErrInsufficientFunds
	}

	cur.Balance = cur.Balance.Sub(rec.Amount)
	s.touch(cur, rec)
	return s.appendLocked(rec), nil
}

// AcceptTransfer credits the recipient, bumps both transfer counters and
// transitions the record PENDING -> ACCEPTED, all atomically.
func (s *Store) AcceptTransfer(ctx context.Context, rec *models.TransactionRecord, sender, recipient *models.Account) error {
	return s.resolve(ctx, rec, sender, recipient, models.StatusAccepted)
}

// RejectTransfer refunds the sender, bumps both transfer counters and
// transitions the record PENDING -> REJECTED, all atomically. With a nil
// sender the refund is dropped.
func (s *Store) RejectTransfer(ctx context.Context, rec *models.TransactionRecord, sender, recipient *models.Account) error {
	return s.resolve(ctx, rec, sender, recipient, models.StatusRejected)
}

func (s *Store) resolve(ctx context.Context, rec *models.TransactionRecord, sender, recipient *models.Account, to models.TransactionStatus) error {
	ids := []string{recipient.ID}
	if sender != nil {
		ids = append(ids, sender.ID)
	}
	release, err := s.acquire(ctx, ids...)
	if err != nil {
		return err
	}
	defer release()

	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.records[rec.ID]
	if !ok {
		return storage.ErrNotFound
	}
	if stored.Status != models.StatusPending {
		return storage.ErrInvalidStateTransition
	}

	curRecipient, err := s.stale(recipient)
	if err != nil {
		return err
	}
	var curSender *models.Account
	if sender != nil {
		if curSender, err = s.stale(sender); err != nil {
			return err
		}
	}

	switch to {
	case models.StatusAccepted:
		curRecipient.Balance = curRecipient.Balance.Add(stored.Amount)
	case models.StatusRejected:
		if curSender != nil {
			curSender.Balance = curSender.Balance.Add(stored.Amount)
		}
	}

	curRecipient.TransfersIn++
	curRecipient.Version++
	if curSender != nil {
		curSender.TransfersOut++
		curSender.Version++
	}

	stored.Status = to
	stored.UpdatedAt = rec.UpdatedAt
	return nil
}

// touch records the mutation on the account row. Must be called with s.mu held.
func (s *Store) touch(cur *models.Account, rec *models.TransactionRecord) {
	t := rec.CreatedAt
	cur.LastMutation = &t
	cur.Version++
}

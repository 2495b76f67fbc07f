package memory

import (
	"context"

	"github.com/egegvner/minibank/pkg/models"
	"github.com/egegvner/minibank/pkg/storage"
)

// GetTransaction retrieves a transaction record by id.
func (s *Store) GetTransaction(ctx context.Context, id string) (*models.TransactionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return copyRecord(r), nil
}

// ListTransactionsByAccount retrieves all records initiated by an account,
// newest first.
func (s *Store) ListTransactionsByAccount(ctx context.Context, accountID string) ([]models.TransactionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.TransactionRecord
	for i := len(s.order) - 1; i >= 0; i-- {
		r := s.records[s.order[i]]
		if r.AccountID == accountID {
			out = append(out, *copyRecord(r))
		}
	}
	return out, nil
}

// ListTransfersToUsername retrieves all transfer records naming the username
// as counterparty, newest first.
func (s *Store) ListTransfersToUsername(ctx context.Context, username string) ([]models.TransactionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.TransactionRecord
	for i := len(s.order) - 1; i >= 0; i-- {
		r := s.records[s.order[i]]
		if r.Kind == models.KindTransferOut && r.CounterpartyUsername == username {
			out = append(out, *copyRecord(r))
		}
	}
	return out, nil
}

// FindPendingTransfer returns the PENDING transfer for the ordered
// (sender, recipient) pair, or ErrNotFound.
func (s *Store) FindPendingTransfer(ctx context.Context, senderID, recipientUsername string) (*models.TransactionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, id := range s.order {
		r := s.records[id]
		if r.Kind == models.KindTransferOut &&
			r.Status == models.StatusPending &&
			r.AccountID == senderID &&
			r.CounterpartyUsername == recipientUsername {
			return copyRecord(r), nil
		}
	}
	return nil, storage.ErrNotFound
}

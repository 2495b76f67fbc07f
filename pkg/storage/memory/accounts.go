package memory

import (
	"context"
	"sort"

	"github.com/egegvner/minibank/pkg/models"
	"github.com/egegvner/minibank/pkg/storage"
)

// GetAccount retrieves an account by id.
func (s *Store) GetAccount(ctx context.Context, id string) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.accounts[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return copyAccount(a), nil
}

// GetAccountByUsername retrieves an account by username.
func (s *Store) GetAccountByUsername(ctx context.Context, username string) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.usernames[username]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return copyAccount(s.accounts[id]), nil
}

// ListAccounts retrieves all accounts, ordered by id for determinism.
func (s *Store) ListAccounts(ctx context.Context) ([]models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Account, 0, len(s.accounts))
	for _, a := range s.accounts {
		out = append(out, *copyAccount(a))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// CreateAccount stores a new account, enforcing id and username uniqueness.
func (s *Store) CreateAccount(ctx context.Context, account *models.Account) (*models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[account.ID]; ok {
		return nil, storage.ErrAccountExists
	}
	if _, ok := s.usernames[account.Username]; ok {
		return nil, storage.ErrAccountExists
	}
	stored := copyAccount(account)
	s.accounts[stored.ID] = stored
	s.usernames[stored.Username] = stored.ID
	return copyAccount(stored), nil
}

// SetSuspended flips the suspension flag on an account.
func (s *Store) SetSuspended(ctx context.Context, id string, suspended bool) error {
	release, err := s.acquire(ctx, id)
	if err != nil {
		return err
	}
	defer release()

	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return storage.ErrNotFound
	}
	a.Suspended = suspended
	a.Version++
	return nil
}

// DeleteAccount removes an account and every record it initiated.
func (s *Store) DeleteAccount(ctx context.Context, id string) error {
	release, err := s.acquire(ctx, id)
	if err != nil {
		return err
	}
	defer release()

	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return storage.ErrNotFound
	}
	delete(s.usernames, a.Username)
	delete(s.accounts, id)

	kept := s.order[:0]
	for _, recID := range s.order {
		if s.records[recID].AccountID == id {
			delete(s.records, recID)
			continue
		}
		kept = append(kept, recID)
	}
	s.order = kept

	// The row is gone, so its operation lock has nothing left to guard.
	s.locksMu.Lock()
	delete(s.locks, id)
	s.locksMu.Unlock()
	return nil
}

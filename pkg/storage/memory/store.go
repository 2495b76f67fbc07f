// Package memory provides an in-process implementation of the storage
// contract. It backs the test suites and the local development mode.
//
// Concurrency discipline: every atomic unit acquires the per-account operation
// locks of all accounts it touches, in ascending account-id order, before
// mutating anything. Acquisition is bounded by LockTimeout and surfaces as
// ErrContention rather than blocking indefinitely.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/egegvner/minibank/pkg/models"
	"github.com/egegvner/minibank/pkg/storage"
	"github.com/google/uuid"
)

const defaultLockTimeout = 2 * time.Second

// Store implements the Storage interface with in-process maps.
type Store struct {
	mu        sync.RWMutex
	accounts  map[string]*models.Account
	usernames map[string]string // username -> account id
	records   map[string]*models.TransactionRecord
	order     []string // record ids in append order

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex

	// LockTimeout bounds per-account lock acquisition.
	LockTimeout time.Duration
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		accounts:    make(map[string]*models.Account),
		usernames:   make(map[string]string),
		records:     make(map[string]*models.TransactionRecord),
		locks:       make(map[string]*sync.Mutex),
		LockTimeout: defaultLockTimeout,
	}
}

// Make sure we conform to the interface
var _ storage.Storage = (*Store)(nil)

func (s *Store) lockFor(id string) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	if l, ok := s.locks[id]; ok {
		return l
	}
	l := &sync.Mutex{}
	s.locks[id] = l
	return l
}

// acquire locks the given accounts in ascending id order. The returned release
// function is safe to call exactly once.
func (s *Store) acquire(ctx context.Context, ids ...string) (func(), error) {
	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)

	deadline := time.Now().Add(s.LockTimeout)
	var held []*sync.Mutex
	release := func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].Unlock()
		}
	}

	for _, id := range sorted {
		l := s.lockFor(id)
		for !l.TryLock() {
			if time.Now().After(deadline) {
				release()
				return nil, storage.ErrContention
			}
			if err := ctx.Err(); err != nil {
				release()
				return nil, err
			}
			time.Sleep(time.Millisecond)
		}
		held = append(held, l)
	}
	return release, nil
}

func copyAccount(a *models.Account) *models.Account {
	c := *a
	if a.LastMutation != nil {
		t := *a.LastMutation
		c.LastMutation = &t
	}
	return &c
}

func copyRecord(r *models.TransactionRecord) *models.TransactionRecord {
	c := *r
	return &c
}

// stale reports whether the caller's account snapshot no longer matches the
// stored row. Must be called with s.mu held.
func (s *Store) stale(snapshot *models.Account) (*models.Account, error) {
	cur, ok := s.accounts[snapshot.ID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	if cur.Version != snapshot.Version {
		return nil, storage.ErrContention
	}
	return cur, nil
}

func (s *Store) appendLocked(rec *models.TransactionRecord) *models.TransactionRecord {
	stored := copyRecord(rec)
	stored.ID = uuid.NewString()
	s.records[stored.ID] = stored
	s.order = append(s.order, stored.ID)
	return copyRecord(stored)
}

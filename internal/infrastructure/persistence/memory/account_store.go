// Package memory provides in-memory repository implementations backing
// tests and the single-process development mode. Every store is safe for
// concurrent use.
package memory

import (
	"context"
	"sync"

	"github.com/edulearn/edulearn-platform/internal/domain/account"
	"github.com/edulearn/edulearn-platform/internal/domain/shared"
)

// AccountStore keeps bank accounts in memory.
type AccountStore struct {
	mu       sync.RWMutex
	accounts map[shared.AccountNumber]*account.Account
}

// NewAccountStore creates an empty store.
func NewAccountStore() *AccountStore {
	return &AccountStore{accounts: make(map[shared.AccountNumber]*account.Account)}
}

// Create opens a new account.
func (s *AccountStore) Create(ctx context.Context, acc *account.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.accounts[acc.Number]; exists {
		return shared.ErrDuplicateAccount
	}
	cp := *acc
	s.accounts[acc.Number] = &cp
	return nil
}

// GetByNumber retrieves an account copy.
func (s *AccountStore) GetByNumber(ctx context.Context, number shared.AccountNumber) (*account.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	acc, ok := s.accounts[number]
	if !ok {
		return nil, shared.ErrAccountNotFound
	}
	cp := *acc
	return &cp, nil
}

// Exists checks account registration.
func (s *AccountStore) Exists(ctx context.Context, number shared.AccountNumber) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.accounts[number]
	return ok, nil
}

func paginate[T any](items []T, p shared.Pagination) []T {
	off := p.Offset()
	if off >= len(items) {
		return nil
	}
	end := off + p.Limit()
	if end > len(items) {
		end = len(items)
	}
	return items[off:end]
}

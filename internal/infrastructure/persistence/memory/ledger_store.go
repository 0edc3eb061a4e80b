package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/edulearn/edulearn-platform/internal/domain/ledger"
	"github.com/edulearn/edulearn-platform/internal/domain/shared"
)

// TransactionStore keeps the append-only transaction log in memory.
type TransactionStore struct {
	mu   sync.RWMutex
	txns map[string]*ledger.Transaction
	log  []*ledger.Transaction
}

// NewTransactionStore creates an empty store.
func NewTransactionStore() *TransactionStore {
	return &TransactionStore{txns: make(map[string]*ledger.Transaction)}
}

// GetByID retrieves a transaction copy.
func (s *TransactionStore) GetByID(ctx context.Context, id string) (*ledger.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.txns[id]
	if !ok {
		return nil, shared.ErrTransactionNotFound
	}
	cp := *t
	return &cp, nil
}

// ListByAccount returns transactions touching the account, newest first.
func (s *TransactionStore) ListByAccount(ctx context.Context, number shared.AccountNumber, p shared.Pagination) ([]*ledger.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*ledger.Transaction
	for _, t := range s.log {
		if t.Payer == number || t.Payee == number {
			cp := *t
			out = append(out, &cp)
		}
	}
	sortNewestFirst(out)
	return paginate(out, p), nil
}

// ListByCourse returns transactions for a course, newest first.
func (s *TransactionStore) ListByCourse(ctx context.Context, courseID shared.CourseID, p shared.Pagination) ([]*ledger.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*ledger.Transaction
	for _, t := range s.log {
		if t.CourseID == courseID {
			cp := *t
			out = append(out, &cp)
		}
	}
	sortNewestFirst(out)
	return paginate(out, p), nil
}

// SumPlatformShare aggregates monthly platform income from purchases.
func (s *TransactionStore) SumPlatformShare(ctx context.Context, r shared.TimeRange) ([]ledger.MonthlyRevenue, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	buckets := make(map[time.Time]shared.Money)
	for _, t := range s.log {
		if t.Kind != ledger.KindPurchase || !r.Contains(t.CreatedAt) {
			continue
		}
		month := time.Date(t.CreatedAt.Year(), t.CreatedAt.Month(), 1, 0, 0, 0, 0, time.UTC)
		buckets[month] = buckets[month].Add(t.PlatformShare)
	}

	out := make([]ledger.MonthlyRevenue, 0, len(buckets))
	for month, revenue := range buckets {
		out = append(out, ledger.MonthlyRevenue{Month: month, Revenue: revenue})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month.Before(out[j].Month) })
	return out, nil
}

func (s *TransactionStore) append(t *ledger.Transaction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *t
	s.txns[t.ID] = &cp
	s.log = append(s.log, &cp)
}

func sortNewestFirst(txns []*ledger.Transaction) {
	sort.Slice(txns, func(i, j int) bool { return txns[i].CreatedAt.After(txns[j].CreatedAt) })
}

// ─────────────────────────────────────────────────────────────────────────────
// Settlement store
// ─────────────────────────────────────────────────────────────────────────────

// SettlementStore applies settlements atomically against the in-memory
// stores. The account lock is held across validation and mutation, so a
// concurrent settlement cannot overdraw an account between the check and
// the debit.
type SettlementStore struct {
	accounts *AccountStore
	users    *UserStore
	txns     *TransactionStore
}

// NewSettlementStore wires the settlement store over the given stores.
func NewSettlementStore(accounts *AccountStore, users *UserStore, txns *TransactionStore) *SettlementStore {
	return &SettlementStore{accounts: accounts, users: users, txns: txns}
}

// Apply implements ledger.SettlementStore.
func (s *SettlementStore) Apply(ctx context.Context, stl *ledger.Settlement) error {
	if err := stl.Validate(); err != nil {
		return err
	}

	s.accounts.mu.Lock()
	defer s.accounts.mu.Unlock()

	// Validate everything before touching any balance.
	for _, n := range stl.Accounts() {
		if _, ok := s.accounts.accounts[n]; !ok {
			return shared.ErrAccountNotFound
		}
	}
	for _, d := range stl.Debits {
		if s.accounts.accounts[d.Account].Balance.LessThan(d.Amount) {
			return shared.ErrNegativeBalance
		}
	}

	// Earnings check-and-update runs first: it can fail, balance
	// mutation below cannot.
	if !stl.EarningsFor.IsEmpty() && !stl.EarningsDelta.IsZero() {
		if err := s.users.adjustEarnings(stl.EarningsFor, stl.EarningsDelta); err != nil {
			return err
		}
	}

	now := time.Now().UTC()
	for _, d := range stl.Debits {
		acc := s.accounts.accounts[d.Account]
		acc.Balance = acc.Balance.Sub(d.Amount)
		acc.UpdatedAt = now
	}
	for _, c := range stl.Credits {
		acc := s.accounts.accounts[c.Account]
		acc.Balance = acc.Balance.Add(c.Amount)
		acc.UpdatedAt = now
	}

	s.txns.append(stl.Transaction)
	return nil
}

package ledger

import (
	"context"
	"time"

	"github.com/edulearn/edulearn-platform/internal/domain/shared"
)

// Repository provides read access to the append-only transaction log.
// Transactions are written only through SettlementStore.Apply.
type Repository interface {
	// GetByID retrieves a transaction.
	// Returns shared.ErrNotFound if it does not exist.
	GetByID(ctx context.Context, id string) (*Transaction, error)

	// ListByAccount returns transactions where the account is payer or
	// payee, newest first.
	ListByAccount(ctx context.Context, number shared.AccountNumber, p shared.Pagination) ([]*Transaction, error)

	// ListByCourse returns transactions attached to a course, newest first.
	ListByCourse(ctx context.Context, courseID shared.CourseID, p shared.Pagination) ([]*Transaction, error)

	// SumPlatformShare totals the platform share of purchase transactions
	// within the range, bucketed by calendar month.
	SumPlatformShare(ctx context.Context, r shared.TimeRange) ([]MonthlyRevenue, error)
}

// MonthlyRevenue is one month's aggregated platform income.
type MonthlyRevenue struct {
	Month   time.Time
	Revenue shared.Money
}

// SettlementStore applies settlements atomically.
//
// Apply must, as a single unit of work:
//  1. Lock every involved account (in a stable order, to avoid deadlock).
//  2. Re-check that every debtor still covers its leg under the lock,
//     and fail with shared.ErrInsufficientFunds if not.
//  3. Apply every debit leg, then every credit leg.
//  4. Increment the instructor earnings counter when the settlement asks.
//  5. Append the transaction record.
//
// A failed Apply leaves no balance changed and no transaction written.
type SettlementStore interface {
	Apply(ctx context.Context, s *Settlement) error
}

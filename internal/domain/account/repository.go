package account

import (
	"context"

	"github.com/edulearn/edulearn-platform/internal/domain/shared"
)

// Repository provides read and create access to bank accounts.
//
// Balance mutations are intentionally absent: every balance change goes
// through ledger.SettlementStore so that debits, credits, and the
// transaction record commit as one unit of work.
type Repository interface {
	// Create opens a new account.
	// Returns shared.ErrAlreadyExists if the number is taken.
	Create(ctx context.Context, acc *Account) error

	// GetByNumber retrieves an account by its number.
	// Returns shared.ErrNotFound if the account does not exist.
	GetByNumber(ctx context.Context, number shared.AccountNumber) (*Account, error)

	// Exists checks whether an account number is registered.
	Exists(ctx context.Context, number shared.AccountNumber) (bool, error)
}

// UserRepository provides access to platform users.
type UserRepository interface {
	// Create stores a new user.
	Create(ctx context.Context, user *User) error

	// GetByID retrieves a user by ID.
	// Returns shared.ErrNotFound if the user does not exist.
	GetByID(ctx context.Context, id shared.UserID) (*User, error)

	// Update persists changes to an existing user.
	Update(ctx context.Context, user *User) error

	// ListByRole returns users with the given role, paginated.
	ListByRole(ctx context.Context, role Role, p shared.Pagination) ([]*User, error)

	// CountByRole returns the number of users with the given role.
	CountByRole(ctx context.Context, role Role) (int, error)
}

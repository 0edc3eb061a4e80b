// Package account contains the bank-account ledger records and the user
// model of the platform. Accounts are the money-of-record: balances are
// mutated only by the settlement engine, never directly by callers.
package account

import (
	"strings"
	"time"

	"github.com/edulearn/edulearn-platform/internal/domain/shared"

	"golang.org/x/crypto/bcrypt"
)

// ══════════════════════════════════════════════════════════════════════════════
// BANK ACCOUNT
// ══════════════════════════════════════════════════════════════════════════════

// Account is a simulated bank account. The secret is stored as a bcrypt
// hash and verified against the caller-supplied secret at settlement time.
//
// Invariants:
//   - Balance is never negative; a settlement that would overdraw fails
//     instead of clamping.
//   - Accounts are never deleted.
type Account struct {
	// Number is the unique account number.
	Number shared.AccountNumber

	// Balance is the current balance. Mutated only through
	// ledger.SettlementStore.
	Balance shared.Money

	// SecretHash is the bcrypt hash of the account secret.
	SecretHash string

	// CreatedAt is when the account was opened.
	CreatedAt time.Time

	// UpdatedAt is when the balance last changed.
	UpdatedAt time.Time
}

// NewAccount opens an account with an initial balance, hashing the secret.
func NewAccount(number shared.AccountNumber, secret string, initial shared.Money) (*Account, error) {
	if !number.IsValid() {
		return nil, shared.NewDomainError("account", "New", shared.ErrInvalidFormat, "invalid account number")
	}
	if strings.TrimSpace(secret) == "" {
		return nil, shared.NewDomainError("account", "New", shared.ErrEmptyValue, "account secret is required")
	}
	if initial.IsNegative() {
		return nil, shared.NewDomainError("account", "New", shared.ErrNegativeValue, "initial balance cannot be negative")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return nil, shared.WrapError("account", "New", shared.ErrInvalidInput, "failed to hash secret", err)
	}

	now := time.Now().UTC()
	return &Account{
		Number:     number,
		Balance:    initial,
		SecretHash: string(hash),
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// VerifySecret checks the caller-supplied secret against the stored hash.
// Returns shared.ErrAuthentication on mismatch.
func (a *Account) VerifySecret(secret string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(a.SecretHash), []byte(secret)); err != nil {
		return shared.ErrBadSecret
	}
	return nil
}

// CanDebit reports whether the account can cover the given amount.
func (a *Account) CanDebit(amount shared.Money) bool {
	return !a.Balance.LessThan(amount)
}

// Debit subtracts the amount from the balance.
// Returns shared.ErrInsufficientFunds if the balance would go negative.
func (a *Account) Debit(amount shared.Money) error {
	if amount.IsNegative() {
		return shared.NewDomainError("account", "Debit", shared.ErrNegativeValue, "debit amount cannot be negative")
	}
	if !a.CanDebit(amount) {
		return shared.ErrNegativeBalance
	}
	a.Balance = a.Balance.Sub(amount)
	a.UpdatedAt = time.Now().UTC()
	return nil
}

// Credit adds the amount to the balance.
func (a *Account) Credit(amount shared.Money) error {
	if amount.IsNegative() {
		return shared.NewDomainError("account", "Credit", shared.ErrNegativeValue, "credit amount cannot be negative")
	}
	a.Balance = a.Balance.Add(amount)
	a.UpdatedAt = time.Now().UTC()
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// USER
// A single Person core plus a role tag selecting one variant payload.
// Role-specific data lives in the corresponding profile pointer; exactly
// one of Learner/Instructor/Admin is non-nil, matching the Role tag.
// ══════════════════════════════════════════════════════════════════════════════

// Role discriminates the user variant.
type Role string

const (
	RoleLearner    Role = "Learner"
	RoleInstructor Role = "Instructor"
	RoleAdmin      Role = "Admin"
)

// IsValid checks if the role is one of the known variants.
func (r Role) IsValid() bool {
	switch r {
	case RoleLearner, RoleInstructor, RoleAdmin:
		return true
	}
	return false
}

// String returns the string representation.
func (r Role) String() string {
	return string(r)
}

// LearnerProfile is the Learner variant payload. Enrollments and earned
// certificates are separate aggregates keyed by the user ID.
type LearnerProfile struct {
	// Headline is an optional self-description shown on certificates.
	Headline string
}

// InstructorProfile is the Instructor variant payload.
type InstructorProfile struct {
	// PayoutAccount receives the 80% purchase share and lump-sum funding.
	PayoutAccount shared.AccountNumber

	// TotalEarnings is the lifetime earnings counter, incremented inside
	// the same unit of work as every settlement crediting the instructor.
	TotalEarnings shared.Money

	// CoursesTaught lists the courses published by this instructor.
	CoursesTaught []shared.CourseID
}

// AdminProfile is the Admin variant payload.
type AdminProfile struct{}

// User is the person core shared by all roles.
type User struct {
	ID          shared.UserID
	FullName    string
	UserName    string
	Email       string
	Role        Role
	BankAccount shared.AccountNumber
	CreatedAt   time.Time
	UpdatedAt   time.Time

	// Variant payloads; exactly one non-nil, selected by Role.
	Learner    *LearnerProfile
	Instructor *InstructorProfile
	Admin      *AdminProfile
}

// Validate checks user integrity, including the role/payload match.
func (u *User) Validate() error {
	if u.ID.IsEmpty() {
		return shared.NewDomainError("account", "ValidateUser", shared.ErrInvalidID, "user ID is required")
	}
	if strings.TrimSpace(u.FullName) == "" {
		return shared.NewDomainError("account", "ValidateUser", shared.ErrEmptyValue, "full name is required")
	}
	if !u.Role.IsValid() {
		return shared.NewDomainError("account", "ValidateUser", shared.ErrInvalidInput, "unknown role")
	}
	switch u.Role {
	case RoleLearner:
		if u.Learner == nil || u.Instructor != nil || u.Admin != nil {
			return shared.NewDomainError("account", "ValidateUser", shared.ErrInvalidEntity, "learner payload mismatch")
		}
	case RoleInstructor:
		if u.Instructor == nil || u.Learner != nil || u.Admin != nil {
			return shared.NewDomainError("account", "ValidateUser", shared.ErrInvalidEntity, "instructor payload mismatch")
		}
	case RoleAdmin:
		if u.Admin == nil || u.Learner != nil || u.Instructor != nil {
			return shared.NewDomainError("account", "ValidateUser", shared.ErrInvalidEntity, "admin payload mismatch")
		}
	}
	return nil
}

// AsInstructor returns the instructor payload, or false for other roles.
func (u *User) AsInstructor() (*InstructorProfile, bool) {
	if u.Role != RoleInstructor || u.Instructor == nil {
		return nil, false
	}
	return u.Instructor, true
}

// AsLearner returns the learner payload, or false for other roles.
func (u *User) AsLearner() (*LearnerProfile, bool) {
	if u.Role != RoleLearner || u.Learner == nil {
		return nil, false
	}
	return u.Learner, true
}

// NewLearner creates a learner user.
func NewLearner(id shared.UserID, fullName, userName, email string, bank shared.AccountNumber) *User {
	now := time.Now().UTC()
	return &User{
		ID:          id,
		FullName:    fullName,
		UserName:    userName,
		Email:       strings.ToLower(strings.TrimSpace(email)),
		Role:        RoleLearner,
		BankAccount: bank,
		CreatedAt:   now,
		UpdatedAt:   now,
		Learner:     &LearnerProfile{},
	}
}

// NewInstructor creates an instructor user whose payout account is their
// own bank account.
func NewInstructor(id shared.UserID, fullName, userName, email string, bank shared.AccountNumber) *User {
	now := time.Now().UTC()
	return &User{
		ID:          id,
		FullName:    fullName,
		UserName:    userName,
		Email:       strings.ToLower(strings.TrimSpace(email)),
		Role:        RoleInstructor,
		BankAccount: bank,
		CreatedAt:   now,
		UpdatedAt:   now,
		Instructor: &InstructorProfile{
			PayoutAccount: bank,
			TotalEarnings: shared.Zero(),
		},
	}
}

// NewAdmin creates the platform operator user.
func NewAdmin(id shared.UserID, fullName, userName, email string, bank shared.AccountNumber) *User {
	now := time.Now().UTC()
	return &User{
		ID:          id,
		FullName:    fullName,
		UserName:    userName,
		Email:       strings.ToLower(strings.TrimSpace(email)),
		Role:        RoleAdmin,
		BankAccount: bank,
		CreatedAt:   now,
		UpdatedAt:   now,
		Admin:       &AdminProfile{},
	}
}

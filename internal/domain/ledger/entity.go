// Package ledger contains the money-movement records of the platform:
// transactions and the settlement unit of work that produces them.
package ledger

import (
	"fmt"
	"time"

	"github.com/edulearn/edulearn-platform/internal/domain/shared"

	"github.com/google/uuid"
)

// ══════════════════════════════════════════════════════════════════════════════
// TRANSACTION
// ══════════════════════════════════════════════════════════════════════════════

// TransactionKind classifies a money movement.
type TransactionKind string

const (
	// KindPurchase is a course purchase: payer debit split between the
	// instructor (80%) and the platform (remainder).
	KindPurchase TransactionKind = "PURCHASE"

	// KindLumpSum is a single-recipient transfer, used for the platform's
	// upfront funding of a newly created course.
	KindLumpSum TransactionKind = "LUMP_SUM"

	// KindRefund is a compensating transfer that reverses a purchase whose
	// enrollment could not be recorded.
	KindRefund TransactionKind = "REFUND"
)

// IsValid checks if the kind is known.
func (k TransactionKind) IsValid() bool {
	switch k {
	case KindPurchase, KindLumpSum, KindRefund:
		return true
	}
	return false
}

// TransactionStatus is the recorded outcome of a settlement.
// Failed settlements leave no transaction behind, so the only persisted
// status is COMPLETED; the type exists for the wire format and future
// async settlement modes.
type TransactionStatus string

const (
	StatusCompleted TransactionStatus = "COMPLETED"
)

// Transaction is an immutable record of one completed settlement.
type Transaction struct {
	// ID is the unique transaction identifier, "TXN-" + UUID.
	ID string

	// Kind classifies the movement.
	Kind TransactionKind

	// Status is always COMPLETED for persisted transactions.
	Status TransactionStatus

	// Payer is the debited account.
	Payer shared.AccountNumber

	// Payee is the primary credited account (instructor or recipient).
	Payee shared.AccountNumber

	// Amount is the full debited amount.
	Amount shared.Money

	// PayeeShare is the portion credited to the payee.
	// Equals Amount for LUMP_SUM and REFUND.
	PayeeShare shared.Money

	// PlatformShare is the portion credited to the platform account.
	// Zero for LUMP_SUM and REFUND.
	PlatformShare shared.Money

	// CourseID links the transaction to the course it paid for, when any.
	CourseID shared.CourseID

	// Reference optionally points at the transaction this one compensates.
	Reference string

	// CreatedAt is the settlement time.
	CreatedAt time.Time
}

// NewTransactionID generates a ledger transaction identifier.
func NewTransactionID() string {
	return fmt.Sprintf("TXN-%s", uuid.New().String())
}

// ══════════════════════════════════════════════════════════════════════════════
// SETTLEMENT
// ══════════════════════════════════════════════════════════════════════════════

// Settlement describes one atomic money movement to be applied against
// the account store. All legs commit together or not at all.
type Settlement struct {
	// Transaction is the record to append once the movement succeeds.
	Transaction *Transaction

	// Debits are the legs removing funds. A purchase has one (the
	// learner); a refund has two (instructor and platform paying back
	// their shares).
	Debits []Leg

	// Credits are the legs adding funds. A purchase has two (instructor
	// and platform); a lump sum or refund has one.
	Credits []Leg

	// EarningsFor, when set, names the instructor whose TotalEarnings
	// counter is incremented by EarningsDelta in the same unit of work.
	EarningsFor shared.UserID

	// EarningsDelta is the earnings increment; may be negative for refunds.
	EarningsDelta shared.Money
}

// Leg is one side of a settlement touching a single account.
type Leg struct {
	Account shared.AccountNumber
	Amount  shared.Money
}

// Validate checks that the settlement balances: the sum of debits equals
// the sum of credits exactly, and no account appears on both sides.
func (s *Settlement) Validate() error {
	if s.Transaction == nil {
		return shared.NewDomainError("ledger", "Validate", shared.ErrInvalidInput, "settlement has no transaction record")
	}
	if len(s.Debits) == 0 || len(s.Credits) == 0 {
		return shared.NewDomainError("ledger", "Validate", shared.ErrInvalidInput, "settlement needs at least one debit and one credit")
	}

	debited := make(map[shared.AccountNumber]struct{}, len(s.Debits))
	debitTotal := shared.Zero()
	for _, d := range s.Debits {
		if !d.Amount.IsPositive() {
			return shared.NewDomainError("ledger", "Validate", shared.ErrInvalidInput, "debit amount must be positive")
		}
		debited[d.Account] = struct{}{}
		debitTotal = debitTotal.Add(d.Amount)
	}

	creditTotal := shared.Zero()
	for _, c := range s.Credits {
		if c.Amount.IsNegative() {
			return shared.NewDomainError("ledger", "Validate", shared.ErrNegativeValue, "credit leg cannot be negative")
		}
		if _, clash := debited[c.Account]; clash {
			return shared.NewDomainError("ledger", "Validate", shared.ErrInvalidInput, "account cannot be debited and credited in one settlement")
		}
		creditTotal = creditTotal.Add(c.Amount)
	}

	if !creditTotal.Equal(debitTotal) {
		return shared.NewDomainError("ledger", "Validate", shared.ErrInvalidInput,
			fmt.Sprintf("settlement does not balance: debits %s, credits %s", debitTotal, creditTotal))
	}
	return nil
}

// Accounts returns every account touched by the settlement, deduplicated.
func (s *Settlement) Accounts() []shared.AccountNumber {
	seen := make(map[shared.AccountNumber]struct{}, len(s.Debits)+len(s.Credits))
	out := make([]shared.AccountNumber, 0, len(s.Debits)+len(s.Credits))
	for _, l := range s.Debits {
		if _, ok := seen[l.Account]; !ok {
			seen[l.Account] = struct{}{}
			out = append(out, l.Account)
		}
	}
	for _, l := range s.Credits {
		if _, ok := seen[l.Account]; !ok {
			seen[l.Account] = struct{}{}
			out = append(out, l.Account)
		}
	}
	return out
}

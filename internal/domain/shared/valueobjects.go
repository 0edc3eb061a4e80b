// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages.
package shared

import (
	"encoding/json"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ═══════════════════════════════════════════════════════════════════════════
// ID Value Objects
// ═══════════════════════════════════════════════════════════════════════════

// UUID validation regex (simple version).
var uuidRegex = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

// UserID represents a unique user identifier (UUID format).
// Learners, instructors and the platform admin all share this ID space.
type UserID string

// IsValid checks if the user ID is a valid UUID.
func (u UserID) IsValid() bool {
	return uuidRegex.MatchString(string(u))
}

// String returns the string representation.
func (u UserID) String() string {
	return string(u)
}

// IsEmpty checks if the ID is empty.
func (u UserID) IsEmpty() bool {
	return u == ""
}

// NewUserID creates a new UserID with validation.
func NewUserID(id string) (UserID, error) {
	uid := UserID(strings.ToLower(strings.TrimSpace(id)))
	if !uid.IsValid() {
		return "", NewDomainError("shared", "NewUserID", ErrInvalidID, "invalid user ID format")
	}
	return uid, nil
}

// CourseID represents a unique course identifier (UUID format).
type CourseID string

// IsValid checks if the course ID is a valid UUID.
func (c CourseID) IsValid() bool {
	return uuidRegex.MatchString(string(c))
}

// String returns the string representation.
func (c CourseID) String() string {
	return string(c)
}

// IsEmpty checks if the ID is empty.
func (c CourseID) IsEmpty() bool {
	return c == ""
}

// NewCourseID creates a new CourseID with validation.
func NewCourseID(id string) (CourseID, error) {
	cid := CourseID(strings.ToLower(strings.TrimSpace(id)))
	if !cid.IsValid() {
		return "", NewDomainError("shared", "NewCourseID", ErrInvalidID, "invalid course ID format")
	}
	return cid, nil
}

// VideoID represents a unique video identifier within a course (UUID format).
type VideoID string

// IsValid checks if the video ID is a valid UUID.
func (v VideoID) IsValid() bool {
	return uuidRegex.MatchString(string(v))
}

// String returns the string representation.
func (v VideoID) String() string {
	return string(v)
}

// ═══════════════════════════════════════════════════════════════════════════
// Account Number Value Object
// ═══════════════════════════════════════════════════════════════════════════

// AccountNumber represents a simulated bank account number.
// Format follows the seeded ledger convention: 6-16 digits.
type AccountNumber string

var accountNumberRegex = regexp.MustCompile(`^[0-9]{6,16}$`)

// IsValid checks if the account number format is valid.
func (a AccountNumber) IsValid() bool {
	return accountNumberRegex.MatchString(string(a))
}

// String returns the string representation.
func (a AccountNumber) String() string {
	return string(a)
}

// IsEmpty checks if the account number is empty.
func (a AccountNumber) IsEmpty() bool {
	return a == ""
}

// NewAccountNumber creates a new AccountNumber with validation.
func NewAccountNumber(number string) (AccountNumber, error) {
	n := AccountNumber(strings.TrimSpace(number))
	if !n.IsValid() {
		return "", NewDomainError("shared", "NewAccountNumber", ErrInvalidFormat, "account number must be 6-16 digits")
	}
	return n, nil
}

// ═══════════════════════════════════════════════════════════════════════════
// Money Value Object
// ═══════════════════════════════════════════════════════════════════════════

// Money represents a monetary amount with exact decimal arithmetic.
// All balances, prices and settlement amounts in the platform use Money;
// float math is never allowed to touch the ledger.
type Money struct {
	amount decimal.Decimal
}

// Revenue split for course purchases: the instructor receives 80%,
// the platform keeps 20%. The platform share is always computed as the
// remainder so that payer debit == payee credit + platform credit exactly.
var instructorShareRate = decimal.NewFromFloat(0.8)

// Zero returns a zero Money value.
func Zero() Money {
	return Money{amount: decimal.Zero}
}

// NewMoney creates Money from a decimal.
func NewMoney(d decimal.Decimal) Money {
	return Money{amount: d}
}

// NewMoneyFromInt creates Money from whole units.
func NewMoneyFromInt(v int64) Money {
	return Money{amount: decimal.NewFromInt(v)}
}

// NewMoneyFromString parses a Money value from its decimal string form.
func NewMoneyFromString(s string) (Money, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return Money{}, WrapError("shared", "NewMoneyFromString", ErrInvalidFormat, "invalid money amount", err)
	}
	return Money{amount: d}, nil
}

// Decimal returns the underlying decimal value.
func (m Money) Decimal() decimal.Decimal {
	return m.amount
}

// String returns the canonical decimal representation.
func (m Money) String() string {
	return m.amount.String()
}

// Float64 returns an approximate float representation (display only).
func (m Money) Float64() float64 {
	f, _ := m.amount.Float64()
	return f
}

// MarshalJSON encodes the amount as a decimal string.
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.amount.String())
}

// UnmarshalJSON decodes a decimal string.
func (m *Money) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := NewMoneyFromString(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Add returns m + other.
func (m Money) Add(other Money) Money {
	return Money{amount: m.amount.Add(other.amount)}
}

// Sub returns m - other.
func (m Money) Sub(other Money) Money {
	return Money{amount: m.amount.Sub(other.amount)}
}

// MulInt returns m × n.
func (m Money) MulInt(n int64) Money {
	return Money{amount: m.amount.Mul(decimal.NewFromInt(n))}
}

// IsZero reports whether the amount is exactly zero.
func (m Money) IsZero() bool {
	return m.amount.IsZero()
}

// IsNegative reports whether the amount is below zero.
func (m Money) IsNegative() bool {
	return m.amount.IsNegative()
}

// IsPositive reports whether the amount is above zero.
func (m Money) IsPositive() bool {
	return m.amount.IsPositive()
}

// LessThan reports whether m < other.
func (m Money) LessThan(other Money) bool {
	return m.amount.LessThan(other.amount)
}

// Equal reports whether m == other.
func (m Money) Equal(other Money) bool {
	return m.amount.Equal(other.amount)
}

// Split divides a purchase amount into the instructor (payee) share and
// the platform share. The platform share is the exact remainder, so
// payee + platform always reconstructs the original amount.
func (m Money) Split() (payee, platform Money) {
	payee = Money{amount: m.amount.Mul(instructorShareRate).Round(2)}
	platform = m.Sub(payee)
	return payee, platform
}

// ═══════════════════════════════════════════════════════════════════════════
// Percentage Value Object
// ═══════════════════════════════════════════════════════════════════════════

// Percentage represents a completion percentage, always within [0, 100].
type Percentage int

const (
	MinPercentage Percentage = 0
	MaxPercentage Percentage = 100
)

// IsValid checks if the percentage is within range.
func (p Percentage) IsValid() bool {
	return p >= MinPercentage && p <= MaxPercentage
}

// Int returns the underlying int value.
func (p Percentage) Int() int {
	return int(p)
}

// IsComplete reports whether the percentage is exactly 100.
func (p Percentage) IsComplete() bool {
	return p == MaxPercentage
}

// ClampPercentage forces a raw value into [0, 100].
func ClampPercentage(v int) Percentage {
	if v < int(MinPercentage) {
		return MinPercentage
	}
	if v > int(MaxPercentage) {
		return MaxPercentage
	}
	return Percentage(v)
}

// ═══════════════════════════════════════════════════════════════════════════
// Pagination Value Object
// ═══════════════════════════════════════════════════════════════════════════

// Pagination represents pagination parameters.
type Pagination struct {
	Page     int
	PageSize int
}

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Offset returns the offset for database queries.
func (p Pagination) Offset() int {
	if p.Page <= 0 {
		return 0
	}
	return (p.Page - 1) * p.Limit()
}

// Limit returns the limit for database queries.
func (p Pagination) Limit() int {
	if p.PageSize <= 0 {
		return DefaultPageSize
	}
	if p.PageSize > MaxPageSize {
		return MaxPageSize
	}
	return p.PageSize
}

// NewPagination creates a new Pagination with defaults.
func NewPagination(page, pageSize int) Pagination {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	return Pagination{Page: page, PageSize: pageSize}
}

// ═══════════════════════════════════════════════════════════════════════════
// TimeRange Value Object
// ═══════════════════════════════════════════════════════════════════════════

// TimeRange represents a time period, used by revenue aggregation queries.
type TimeRange struct {
	From time.Time
	To   time.Time
}

// IsValid checks if the time range is valid.
func (t TimeRange) IsValid() bool {
	return !t.From.IsZero() && !t.To.IsZero() && !t.From.After(t.To)
}

// Contains checks if a time is within the range.
func (t TimeRange) Contains(tm time.Time) bool {
	return (tm.Equal(t.From) || tm.After(t.From)) && (tm.Equal(t.To) || tm.Before(t.To))
}

// LastNMonths returns a TimeRange covering the last n calendar months
// including the current one.
func LastNMonths(n int, now time.Time) TimeRange {
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -(n - 1), 0)
	return TimeRange{From: start, To: now}
}

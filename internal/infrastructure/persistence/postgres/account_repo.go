package postgres

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/edulearn/edulearn-platform/internal/domain/account"
	"github.com/edulearn/edulearn-platform/internal/domain/ledger"
	"github.com/edulearn/edulearn-platform/internal/domain/shared"

	"github.com/jackc/pgx/v5"
)

// ══════════════════════════════════════════════════════════════════════════════
// ACCOUNT REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

// AccountRepository implements account.Repository for PostgreSQL.
type AccountRepository struct {
	conn *Connection
}

// NewAccountRepository creates a new AccountRepository.
func NewAccountRepository(conn *Connection) *AccountRepository {
	return &AccountRepository{conn: conn}
}

// Create opens a new account.
func (r *AccountRepository) Create(ctx context.Context, acc *account.Account) error {
	query := `
		INSERT INTO accounts (number, balance, secret_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.conn.Exec(ctx, query,
		acc.Number.String(), acc.Balance.String(), acc.SecretHash, acc.CreatedAt, acc.UpdatedAt)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.ErrDuplicateAccount
		}
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

// GetByNumber retrieves an account.
func (r *AccountRepository) GetByNumber(ctx context.Context, number shared.AccountNumber) (*account.Account, error) {
	query := `
		SELECT number, balance::text, secret_hash, created_at, updated_at
		FROM accounts
		WHERE number = $1
	`
	return scanAccount(r.conn.QueryRow(ctx, query, number.String()))
}

// Exists checks account registration.
func (r *AccountRepository) Exists(ctx context.Context, number shared.AccountNumber) (bool, error) {
	var exists bool
	err := r.conn.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM accounts WHERE number = $1)`, number.String()).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check account: %w", err)
	}
	return exists, nil
}

func scanAccount(row pgx.Row) (*account.Account, error) {
	var (
		acc     account.Account
		number  string
		balance string
	)
	err := row.Scan(&number, &balance, &acc.SecretHash, &acc.CreatedAt, &acc.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to scan account: %w", err)
	}
	acc.Number = shared.AccountNumber(number)
	if acc.Balance, err = shared.NewMoneyFromString(balance); err != nil {
		return nil, err
	}
	return &acc, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// SETTLEMENT STORE
// All legs of a settlement commit in one transaction. Touched rows are
// locked with SELECT ... FOR UPDATE in account-number order, so two
// settlements over overlapping accounts always acquire locks in the
// same sequence and cannot deadlock.
// ══════════════════════════════════════════════════════════════════════════════

// SettlementStore implements ledger.SettlementStore for PostgreSQL.
type SettlementStore struct {
	conn *Connection
}

// NewSettlementStore creates a new SettlementStore.
func NewSettlementStore(conn *Connection) *SettlementStore {
	return &SettlementStore{conn: conn}
}

// Apply implements ledger.SettlementStore.
func (s *SettlementStore) Apply(ctx context.Context, stl *ledger.Settlement) error {
	if err := stl.Validate(); err != nil {
		return err
	}

	numbers := stl.Accounts()
	sort.Slice(numbers, func(i, j int) bool { return numbers[i] < numbers[j] })

	return s.conn.WithTx(ctx, func(tx pgx.Tx) error {
		// Lock every touched account and re-read its balance under lock.
		balances := make(map[shared.AccountNumber]shared.Money, len(numbers))
		for _, n := range numbers {
			var raw string
			err := tx.QueryRow(ctx,
				`SELECT balance::text FROM accounts WHERE number = $1 FOR UPDATE`,
				n.String()).Scan(&raw)
			if err != nil {
				if errors.Is(err, pgx.ErrNoRows) {
					return shared.ErrAccountNotFound
				}
				return fmt.Errorf("failed to lock account %s: %w", n, err)
			}
			bal, err := shared.NewMoneyFromString(raw)
			if err != nil {
				return err
			}
			balances[n] = bal
		}

		// Funds re-check under lock: the pre-check outside the
		// transaction may be stale by now.
		for _, d := range stl.Debits {
			if balances[d.Account].LessThan(d.Amount) {
				return shared.ErrNegativeBalance
			}
		}

		now := time.Now().UTC()
		apply := func(n shared.AccountNumber, next shared.Money) error {
			_, err := tx.Exec(ctx,
				`UPDATE accounts SET balance = $1, updated_at = $2 WHERE number = $3`,
				next.String(), now, n.String())
			return err
		}
		for _, d := range stl.Debits {
			balances[d.Account] = balances[d.Account].Sub(d.Amount)
			if err := apply(d.Account, balances[d.Account]); err != nil {
				return fmt.Errorf("failed to debit %s: %w", d.Account, err)
			}
		}
		for _, c := range stl.Credits {
			balances[c.Account] = balances[c.Account].Add(c.Amount)
			if err := apply(c.Account, balances[c.Account]); err != nil {
				return fmt.Errorf("failed to credit %s: %w", c.Account, err)
			}
		}

		if !stl.EarningsFor.IsEmpty() && !stl.EarningsDelta.IsZero() {
			tag, err := tx.Exec(ctx, `
				UPDATE users
				SET total_earnings = total_earnings + $1, updated_at = $2
				WHERE id = $3 AND role = 'Instructor'
			`, stl.EarningsDelta.String(), now, stl.EarningsFor.String())
			if err != nil {
				return fmt.Errorf("failed to update earnings: %w", err)
			}
			if tag.RowsAffected() == 0 {
				return shared.ErrUserNotFound
			}
		}

		t := stl.Transaction
		var courseID *string
		if !t.CourseID.IsEmpty() {
			v := t.CourseID.String()
			courseID = &v
		}
		var reference *string
		if t.Reference != "" {
			reference = &t.Reference
		}
		_, err := tx.Exec(ctx, `
			INSERT INTO transactions (
				id, kind, status, payer, payee, amount,
				payee_share, platform_share, course_id, reference, created_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		`,
			t.ID, string(t.Kind), string(t.Status),
			t.Payer.String(), t.Payee.String(), t.Amount.String(),
			t.PayeeShare.String(), t.PlatformShare.String(),
			courseID, reference, t.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to record transaction: %w", err)
		}
		return nil
	})
}

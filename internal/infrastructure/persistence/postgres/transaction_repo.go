package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/edulearn/edulearn-platform/internal/domain/ledger"
	"github.com/edulearn/edulearn-platform/internal/domain/shared"

	"github.com/jackc/pgx/v5"
)

// ══════════════════════════════════════════════════════════════════════════════
// TRANSACTION REPOSITORY
// Read-only view over the append-only transaction log. Writes happen in
// SettlementStore.Apply.
// ══════════════════════════════════════════════════════════════════════════════

// TransactionRepository implements ledger.Repository for PostgreSQL.
type TransactionRepository struct {
	conn *Connection
}

// NewTransactionRepository creates a new TransactionRepository.
func NewTransactionRepository(conn *Connection) *TransactionRepository {
	return &TransactionRepository{conn: conn}
}

const transactionColumns = `
	id, kind, status, payer, payee,
	amount::text, payee_share::text, platform_share::text,
	course_id, reference, created_at
`

// GetByID retrieves a transaction.
func (r *TransactionRepository) GetByID(ctx context.Context, id string) (*ledger.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1`
	t, err := scanTransaction(r.conn.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrTransactionNotFound
		}
		return nil, err
	}
	return t, nil
}

// ListByAccount returns transactions where the account is payer or payee,
// newest first.
func (r *TransactionRepository) ListByAccount(ctx context.Context, number shared.AccountNumber, p shared.Pagination) ([]*ledger.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE payer = $1 OR payee = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	return r.list(ctx, query, number.String(), p.Limit(), p.Offset())
}

// ListByCourse returns transactions attached to a course, newest first.
func (r *TransactionRepository) ListByCourse(ctx context.Context, courseID shared.CourseID, p shared.Pagination) ([]*ledger.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE course_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	return r.list(ctx, query, courseID.String(), p.Limit(), p.Offset())
}

// SumPlatformShare totals purchase platform shares per calendar month.
// Months without purchases produce no row.
func (r *TransactionRepository) SumPlatformShare(ctx context.Context, tr shared.TimeRange) ([]ledger.MonthlyRevenue, error) {
	query := `
		SELECT date_trunc('month', created_at AT TIME ZONE 'UTC'), SUM(platform_share)::text
		FROM transactions
		WHERE kind = 'PURCHASE' AND created_at >= $1 AND created_at <= $2
		GROUP BY 1
		ORDER BY 1
	`
	rows, err := r.conn.Query(ctx, query, tr.From, tr.To)
	if err != nil {
		return nil, fmt.Errorf("failed to sum platform share: %w", err)
	}
	defer rows.Close()

	var out []ledger.MonthlyRevenue
	for rows.Next() {
		var m ledger.MonthlyRevenue
		var raw string
		if err := rows.Scan(&m.Month, &raw); err != nil {
			return nil, fmt.Errorf("failed to scan monthly revenue: %w", err)
		}
		if m.Revenue, err = shared.NewMoneyFromString(raw); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *TransactionRepository) list(ctx context.Context, query string, args ...interface{}) ([]*ledger.Transaction, error) {
	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var txns []*ledger.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txns = append(txns, t)
	}
	return txns, rows.Err()
}

func scanTransaction(row pgx.Row) (*ledger.Transaction, error) {
	var (
		t            ledger.Transaction
		kind, status string
		payer, payee string
		amount       string
		payeeShare   string
		platShare    string
		courseID     *string
		reference    *string
	)
	err := row.Scan(&t.ID, &kind, &status, &payer, &payee,
		&amount, &payeeShare, &platShare, &courseID, &reference, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan transaction: %w", err)
	}

	t.Kind = ledger.TransactionKind(kind)
	t.Status = ledger.TransactionStatus(status)
	t.Payer = shared.AccountNumber(payer)
	t.Payee = shared.AccountNumber(payee)
	if t.Amount, err = shared.NewMoneyFromString(amount); err != nil {
		return nil, err
	}
	if t.PayeeShare, err = shared.NewMoneyFromString(payeeShare); err != nil {
		return nil, err
	}
	if t.PlatformShare, err = shared.NewMoneyFromString(platShare); err != nil {
		return nil, err
	}
	if courseID != nil {
		t.CourseID = shared.CourseID(*courseID)
	}
	if reference != nil {
		t.Reference = *reference
	}
	return &t, nil
}

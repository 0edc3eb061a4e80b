package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/edulearn/edulearn-platform/internal/domain/account"
	"github.com/edulearn/edulearn-platform/internal/domain/shared"

	"github.com/jackc/pgx/v5"
)

// ══════════════════════════════════════════════════════════════════════════════
// USER REPOSITORY
// The person core lives in columns; the role-variant payload is a JSONB
// document selected by the role column. total_earnings is a plain column
// so the settlement store can increment it without JSON surgery.
// ══════════════════════════════════════════════════════════════════════════════

// UserRepository implements account.UserRepository for PostgreSQL.
type UserRepository struct {
	conn *Connection
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(conn *Connection) *UserRepository {
	return &UserRepository{conn: conn}
}

// profileDoc is the JSONB shape of the role payload.
type profileDoc struct {
	Headline      string   `json:"headline,omitempty"`
	PayoutAccount string   `json:"payout_account,omitempty"`
	CoursesTaught []string `json:"courses_taught,omitempty"`
}

// Create stores a new user.
func (r *UserRepository) Create(ctx context.Context, u *account.User) error {
	if err := u.Validate(); err != nil {
		return err
	}
	profile, earnings := encodeProfile(u)

	query := `
		INSERT INTO users (
			id, full_name, user_name, email, role, bank_account,
			profile, total_earnings, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.conn.Exec(ctx, query,
		u.ID.String(), u.FullName, u.UserName, u.Email, string(u.Role),
		u.BankAccount.String(), profile, earnings, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.NewDomainError("account", "CreateUser", shared.ErrAlreadyExists, "user already exists")
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetByID retrieves a user.
func (r *UserRepository) GetByID(ctx context.Context, id shared.UserID) (*account.User, error) {
	query := `
		SELECT id, full_name, user_name, email, role, bank_account,
		       profile, total_earnings::text, created_at, updated_at
		FROM users
		WHERE id = $1
	`
	return scanUser(r.conn.QueryRow(ctx, query, id.String()))
}

// Update persists user changes. total_earnings is owned by the
// settlement store and not written here.
func (r *UserRepository) Update(ctx context.Context, u *account.User) error {
	profile, _ := encodeProfile(u)
	query := `
		UPDATE users
		SET full_name = $1, user_name = $2, email = $3, profile = $4, updated_at = NOW()
		WHERE id = $5
	`
	tag, err := r.conn.Exec(ctx, query,
		u.FullName, u.UserName, u.Email, profile, u.ID.String())
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrUserNotFound
	}
	return nil
}

// ListByRole returns users with the given role.
func (r *UserRepository) ListByRole(ctx context.Context, role account.Role, p shared.Pagination) ([]*account.User, error) {
	query := `
		SELECT id, full_name, user_name, email, role, bank_account,
		       profile, total_earnings::text, created_at, updated_at
		FROM users
		WHERE role = $1
		ORDER BY created_at
		LIMIT $2 OFFSET $3
	`
	rows, err := r.conn.Query(ctx, query, string(role), p.Limit(), p.Offset())
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*account.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// CountByRole counts users with the given role.
func (r *UserRepository) CountByRole(ctx context.Context, role account.Role) (int, error) {
	var n int
	err := r.conn.QueryRow(ctx,
		`SELECT COUNT(*) FROM users WHERE role = $1`, string(role)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return n, nil
}

func encodeProfile(u *account.User) ([]byte, string) {
	doc := profileDoc{}
	earnings := "0"
	switch {
	case u.Learner != nil:
		doc.Headline = u.Learner.Headline
	case u.Instructor != nil:
		doc.PayoutAccount = u.Instructor.PayoutAccount.String()
		for _, c := range u.Instructor.CoursesTaught {
			doc.CoursesTaught = append(doc.CoursesTaught, c.String())
		}
		earnings = u.Instructor.TotalEarnings.String()
	}
	raw, _ := json.Marshal(doc)
	return raw, earnings
}

func scanUser(row pgx.Row) (*account.User, error) {
	var (
		u        account.User
		id       string
		role     string
		bank     string
		profile  []byte
		earnings string
	)
	err := row.Scan(&id, &u.FullName, &u.UserName, &u.Email, &role, &bank,
		&profile, &earnings, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}

	u.ID = shared.UserID(id)
	u.Role = account.Role(role)
	u.BankAccount = shared.AccountNumber(bank)

	var doc profileDoc
	if err := json.Unmarshal(profile, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode user profile: %w", err)
	}

	switch u.Role {
	case account.RoleLearner:
		u.Learner = &account.LearnerProfile{Headline: doc.Headline}
	case account.RoleInstructor:
		total, err := shared.NewMoneyFromString(earnings)
		if err != nil {
			return nil, err
		}
		p := &account.InstructorProfile{
			PayoutAccount: shared.AccountNumber(doc.PayoutAccount),
			TotalEarnings: total,
		}
		for _, c := range doc.CoursesTaught {
			p.CoursesTaught = append(p.CoursesTaught, shared.CourseID(c))
		}
		u.Instructor = p
	case account.RoleAdmin:
		u.Admin = &account.AdminProfile{}
	}
	return &u, nil
}

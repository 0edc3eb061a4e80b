package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/edulearn/edulearn-platform/internal/domain/certificate"
	"github.com/edulearn/edulearn-platform/internal/domain/shared"

	"github.com/jackc/pgx/v5"
)

// ══════════════════════════════════════════════════════════════════════════════
// CERTIFICATE REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

// CertificateRepository implements certificate.Repository for PostgreSQL.
type CertificateRepository struct {
	conn *Connection
}

// NewCertificateRepository creates a new CertificateRepository.
func NewCertificateRepository(conn *Connection) *CertificateRepository {
	return &CertificateRepository{conn: conn}
}

const certificateColumns = `
	id, serial, learner_id, course_id, learner_name, course_title,
	instructor_name, issued_at, revoked, revoked_at
`

// Create stores a new certificate. The unique constraints on serial and on
// (learner_id, course_id) arbitrate concurrent issuance.
func (r *CertificateRepository) Create(ctx context.Context, c *certificate.Certificate) error {
	query := `
		INSERT INTO certificates (` + certificateColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.conn.Exec(ctx, query,
		c.ID, c.Serial, c.LearnerID.String(), c.CourseID.String(),
		c.LearnerName, c.CourseTitle, c.InstructorName, c.IssuedAt, c.Revoked, c.RevokedAt)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.ErrCertificateDuplicate
		}
		return fmt.Errorf("failed to create certificate: %w", err)
	}
	return nil
}

// GetBySerial retrieves a certificate by its public serial.
func (r *CertificateRepository) GetBySerial(ctx context.Context, serial string) (*certificate.Certificate, error) {
	query := `SELECT ` + certificateColumns + ` FROM certificates WHERE serial = $1`
	return r.get(ctx, query, serial)
}

// GetByLearnerAndCourse retrieves the certificate for a pair.
func (r *CertificateRepository) GetByLearnerAndCourse(ctx context.Context, learnerID shared.UserID, courseID shared.CourseID) (*certificate.Certificate, error) {
	query := `
		SELECT ` + certificateColumns + `
		FROM certificates
		WHERE learner_id = $1 AND course_id = $2
	`
	return r.get(ctx, query, learnerID.String(), courseID.String())
}

// ListByLearner returns the learner's certificates, newest first.
func (r *CertificateRepository) ListByLearner(ctx context.Context, learnerID shared.UserID, p shared.Pagination) ([]*certificate.Certificate, error) {
	query := `
		SELECT ` + certificateColumns + `
		FROM certificates
		WHERE learner_id = $1
		ORDER BY issued_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.conn.Query(ctx, query, learnerID.String(), p.Limit(), p.Offset())
	if err != nil {
		return nil, fmt.Errorf("failed to list certificates: %w", err)
	}
	defer rows.Close()

	var out []*certificate.Certificate
	for rows.Next() {
		c, err := scanCertificate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Update persists revocation changes.
func (r *CertificateRepository) Update(ctx context.Context, c *certificate.Certificate) error {
	query := `
		UPDATE certificates
		SET revoked = $1, revoked_at = $2
		WHERE serial = $3
	`
	tag, err := r.conn.Exec(ctx, query, c.Revoked, c.RevokedAt, c.Serial)
	if err != nil {
		return fmt.Errorf("failed to update certificate: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrCertificateNotFound
	}
	return nil
}

func (r *CertificateRepository) get(ctx context.Context, query string, args ...interface{}) (*certificate.Certificate, error) {
	c, err := scanCertificate(r.conn.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrCertificateNotFound
		}
		return nil, err
	}
	return c, nil
}

func scanCertificate(row pgx.Row) (*certificate.Certificate, error) {
	var (
		c         certificate.Certificate
		learnerID string
		courseID  string
		revokedAt *time.Time
	)
	err := row.Scan(&c.ID, &c.Serial, &learnerID, &courseID,
		&c.LearnerName, &c.CourseTitle, &c.InstructorName, &c.IssuedAt, &c.Revoked, &revokedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan certificate: %w", err)
	}
	c.LearnerID = shared.UserID(learnerID)
	c.CourseID = shared.CourseID(courseID)
	c.RevokedAt = revokedAt
	return &c, nil
}

package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/edulearn/edulearn-platform/internal/domain/enrollment"
	"github.com/edulearn/edulearn-platform/internal/domain/shared"

	"github.com/jackc/pgx/v5"
)

// ══════════════════════════════════════════════════════════════════════════════
// ENROLLMENT REPOSITORY
// The watch history is a JSONB map keyed by video ID. Progress writes go
// through an optimistic-version UPDATE, so two concurrent watch reports
// never silently overwrite each other.
// ══════════════════════════════════════════════════════════════════════════════

// EnrollmentRepository implements enrollment.Repository for PostgreSQL.
type EnrollmentRepository struct {
	conn *Connection
}

// NewEnrollmentRepository creates a new EnrollmentRepository.
func NewEnrollmentRepository(conn *Connection) *EnrollmentRepository {
	return &EnrollmentRepository{conn: conn}
}

const enrollmentColumns = `
	id, learner_id, course_id, status, progress, watched,
	transaction_id, version, enrolled_at, completed_at, updated_at
`

// Create stores a new enrollment.
func (r *EnrollmentRepository) Create(ctx context.Context, e *enrollment.Enrollment) error {
	watched, err := encodeWatched(e.Watched)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO enrollments (` + enrollmentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	var txnID *string
	if e.TransactionID != "" {
		txnID = &e.TransactionID
	}
	_, err = r.conn.Exec(ctx, query,
		e.ID, e.LearnerID.String(), e.CourseID.String(),
		string(e.Status), int(e.Progress), watched,
		txnID, e.Version, e.EnrolledAt, e.CompletedAt, e.UpdatedAt)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.ErrEnrollmentExists
		}
		return fmt.Errorf("failed to create enrollment: %w", err)
	}
	return nil
}

// GetByLearnerAndCourse retrieves the learner's enrollment for a course.
func (r *EnrollmentRepository) GetByLearnerAndCourse(ctx context.Context, learnerID shared.UserID, courseID shared.CourseID) (*enrollment.Enrollment, error) {
	query := `
		SELECT ` + enrollmentColumns + `
		FROM enrollments
		WHERE learner_id = $1 AND course_id = $2
	`
	e, err := scanEnrollment(r.conn.QueryRow(ctx, query, learnerID.String(), courseID.String()))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrEnrollmentNotFound
		}
		return nil, err
	}
	return e, nil
}

// ListByLearner returns the learner's enrollments, newest first.
func (r *EnrollmentRepository) ListByLearner(ctx context.Context, learnerID shared.UserID, p shared.Pagination) ([]*enrollment.Enrollment, error) {
	query := `
		SELECT ` + enrollmentColumns + `
		FROM enrollments
		WHERE learner_id = $1
		ORDER BY enrolled_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.conn.Query(ctx, query, learnerID.String(), p.Limit(), p.Offset())
	if err != nil {
		return nil, fmt.Errorf("failed to list enrollments: %w", err)
	}
	defer rows.Close()

	var out []*enrollment.Enrollment
	for rows.Next() {
		e, err := scanEnrollment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// CountByCourse counts enrollments for a course.
func (r *EnrollmentRepository) CountByCourse(ctx context.Context, courseID shared.CourseID) (int, error) {
	var n int
	err := r.conn.QueryRow(ctx,
		`SELECT COUNT(*) FROM enrollments WHERE course_id = $1`, courseID.String()).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count enrollments: %w", err)
	}
	return n, nil
}

// Update persists progress changes. The WHERE clause pins the version the
// caller read; zero affected rows means someone else won the race.
func (r *EnrollmentRepository) Update(ctx context.Context, e *enrollment.Enrollment) error {
	watched, err := encodeWatched(e.Watched)
	if err != nil {
		return err
	}
	query := `
		UPDATE enrollments
		SET status = $1, progress = $2, watched = $3,
		    version = version + 1, completed_at = $4, updated_at = $5
		WHERE id = $6 AND version = $7
	`
	tag, err := r.conn.Exec(ctx, query,
		string(e.Status), int(e.Progress), watched,
		e.CompletedAt, time.Now().UTC(), e.ID, e.Version)
	if err != nil {
		return fmt.Errorf("failed to update enrollment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.WrapError("enrollment", "Update", shared.ErrConcurrentModification, "enrollment version changed", nil)
	}
	e.Version++
	return nil
}

// Delete removes an enrollment. Compensation path only.
func (r *EnrollmentRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.conn.Exec(ctx, `DELETE FROM enrollments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete enrollment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrEnrollmentNotFound
	}
	return nil
}

func encodeWatched(w map[shared.VideoID]enrollment.WatchEntry) ([]byte, error) {
	doc := make(map[string]enrollment.WatchEntry, len(w))
	for id, entry := range w {
		doc[id.String()] = entry
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to encode watch history: %w", err)
	}
	return raw, nil
}

func scanEnrollment(row pgx.Row) (*enrollment.Enrollment, error) {
	var (
		e           enrollment.Enrollment
		learnerID   string
		courseID    string
		status      string
		progress    int
		watched     []byte
		txnID       *string
		completedAt *time.Time
	)
	err := row.Scan(&e.ID, &learnerID, &courseID, &status, &progress, &watched,
		&txnID, &e.Version, &e.EnrolledAt, &completedAt, &e.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan enrollment: %w", err)
	}

	e.LearnerID = shared.UserID(learnerID)
	e.CourseID = shared.CourseID(courseID)
	e.Status = enrollment.Status(status)
	e.Progress = shared.ClampPercentage(progress)
	e.CompletedAt = completedAt
	if txnID != nil {
		e.TransactionID = *txnID
	}

	var doc map[string]enrollment.WatchEntry
	if err := json.Unmarshal(watched, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode watch history: %w", err)
	}
	e.Watched = make(map[shared.VideoID]enrollment.WatchEntry, len(doc))
	for id, entry := range doc {
		e.Watched[shared.VideoID(id)] = entry
	}
	return &e, nil
}

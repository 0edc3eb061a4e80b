package postgres

import (
	"context"
	"fmt"

	"github.com/edulearn/edulearn-platform/internal/domain/course"
	"github.com/edulearn/edulearn-platform/internal/domain/shared"

	"github.com/jackc/pgx/v5"
)

// ══════════════════════════════════════════════════════════════════════════════
// COURSE REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

// CourseRepository implements course.Repository for PostgreSQL.
type CourseRepository struct {
	conn *Connection
}

// NewCourseRepository creates a new CourseRepository.
func NewCourseRepository(conn *Connection) *CourseRepository {
	return &CourseRepository{conn: conn}
}

// Create stores a course with its videos and resources in one transaction.
func (r *CourseRepository) Create(ctx context.Context, c *course.Course) error {
	if err := c.Validate(); err != nil {
		return err
	}
	return r.conn.WithTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO courses (id, title, description, category, instructor_id,
				price, thumbnail_key, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`,
			c.ID.String(), c.Title, c.Description, c.Category,
			c.InstructorID.String(), c.Price.String(), c.ThumbnailKey,
			c.CreatedAt, c.UpdatedAt)
		if err != nil {
			if IsUniqueViolation(err) {
				return shared.NewDomainError("course", "Create", shared.ErrAlreadyExists, "course already exists")
			}
			return fmt.Errorf("failed to create course: %w", err)
		}

		for _, v := range c.Videos {
			_, err := tx.Exec(ctx, `
				INSERT INTO course_videos (id, course_id, title, duration_seconds, position, media_key)
				VALUES ($1, $2, $3, $4, $5, $6)
			`, v.ID.String(), c.ID.String(), v.Title, v.DurationSeconds, v.Position, v.MediaKey)
			if err != nil {
				return fmt.Errorf("failed to create video: %w", err)
			}
		}
		for _, res := range c.Resources {
			_, err := tx.Exec(ctx, `
				INSERT INTO course_resources (course_id, title, kind, media_key)
				VALUES ($1, $2, $3, $4)
			`, c.ID.String(), res.Title, string(res.Kind), res.MediaKey)
			if err != nil {
				return fmt.Errorf("failed to create resource: %w", err)
			}
		}
		return nil
	})
}

// GetByID retrieves a course with videos and resources loaded.
func (r *CourseRepository) GetByID(ctx context.Context, id shared.CourseID) (*course.Course, error) {
	courses, err := r.fetch(ctx, `WHERE c.id = $1`, id.String())
	if err != nil {
		return nil, err
	}
	if len(courses) == 0 {
		return nil, shared.ErrCourseNotFound
	}
	return courses[0], nil
}

// GetByIDs retrieves multiple courses, skipping missing IDs.
func (r *CourseRepository) GetByIDs(ctx context.Context, ids []shared.CourseID) ([]*course.Course, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	raw := make([]string, len(ids))
	for i, id := range ids {
		raw[i] = id.String()
	}
	return r.fetch(ctx, `WHERE c.id = ANY($1)`, raw)
}

// ListByInstructor returns the instructor's courses, newest first.
func (r *CourseRepository) ListByInstructor(ctx context.Context, instructorID shared.UserID, p shared.Pagination) ([]*course.Course, error) {
	return r.fetch(ctx,
		`WHERE c.instructor_id = $1 ORDER BY c.created_at DESC LIMIT $2 OFFSET $3`,
		instructorID.String(), p.Limit(), p.Offset())
}

// List returns catalog courses, newest first.
func (r *CourseRepository) List(ctx context.Context, p shared.Pagination) ([]*course.Course, error) {
	return r.fetch(ctx, `ORDER BY c.created_at DESC LIMIT $1 OFFSET $2`, p.Limit(), p.Offset())
}

// Count returns the catalog size.
func (r *CourseRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.conn.QueryRow(ctx, `SELECT COUNT(*) FROM courses`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count courses: %w", err)
	}
	return n, nil
}

// fetch loads course rows matching the clause, then attaches videos and
// resources in two follow-up queries.
func (r *CourseRepository) fetch(ctx context.Context, clause string, args ...interface{}) ([]*course.Course, error) {
	query := `
		SELECT c.id, c.title, c.description, c.category, c.instructor_id,
		       c.price::text, c.thumbnail_key, c.created_at, c.updated_at
		FROM courses c ` + clause

	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query courses: %w", err)
	}
	defer rows.Close()

	var courses []*course.Course
	byID := make(map[string]*course.Course)
	for rows.Next() {
		var (
			c         course.Course
			id, instr string
			price     string
		)
		err := rows.Scan(&id, &c.Title, &c.Description, &c.Category, &instr,
			&price, &c.ThumbnailKey, &c.CreatedAt, &c.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan course: %w", err)
		}
		c.ID = shared.CourseID(id)
		c.InstructorID = shared.UserID(instr)
		if c.Price, err = shared.NewMoneyFromString(price); err != nil {
			return nil, err
		}
		courses = append(courses, &c)
		byID[id] = &c
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(courses) == 0 {
		return courses, nil
	}

	ids := make([]string, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}

	vrows, err := r.conn.Query(ctx, `
		SELECT id, course_id, title, duration_seconds, position, media_key
		FROM course_videos
		WHERE course_id = ANY($1)
		ORDER BY course_id, position
	`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to query videos: %w", err)
	}
	defer vrows.Close()
	for vrows.Next() {
		var (
			v             course.Video
			vid, courseID string
		)
		if err := vrows.Scan(&vid, &courseID, &v.Title, &v.DurationSeconds, &v.Position, &v.MediaKey); err != nil {
			return nil, fmt.Errorf("failed to scan video: %w", err)
		}
		v.ID = shared.VideoID(vid)
		if c, ok := byID[courseID]; ok {
			c.Videos = append(c.Videos, v)
		}
	}
	if err := vrows.Err(); err != nil {
		return nil, err
	}

	rrows, err := r.conn.Query(ctx, `
		SELECT course_id, title, kind, media_key
		FROM course_resources
		WHERE course_id = ANY($1)
		ORDER BY id
	`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to query resources: %w", err)
	}
	defer rrows.Close()
	for rrows.Next() {
		var (
			res      course.Resource
			courseID string
			kind     string
		)
		if err := rrows.Scan(&courseID, &res.Title, &kind, &res.MediaKey); err != nil {
			return nil, fmt.Errorf("failed to scan resource: %w", err)
		}
		res.Kind = course.ResourceKind(kind)
		if c, ok := byID[courseID]; ok {
			c.Resources = append(c.Resources, res)
		}
	}
	return courses, rrows.Err()
}

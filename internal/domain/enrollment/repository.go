package enrollment

import (
	"context"

	"github.com/edulearn/edulearn-platform/internal/domain/shared"
)

// Repository provides access to enrollments.
type Repository interface {
	// Create stores a new enrollment.
	// Returns shared.ErrAlreadyEnrolled if the learner already holds an
	// enrollment for the course.
	Create(ctx context.Context, e *Enrollment) error

	// GetByLearnerAndCourse retrieves the learner's enrollment for a course.
	// Returns shared.ErrNotFound if none exists.
	GetByLearnerAndCourse(ctx context.Context, learnerID shared.UserID, courseID shared.CourseID) (*Enrollment, error)

	// ListByLearner returns the learner's enrollments, newest first.
	ListByLearner(ctx context.Context, learnerID shared.UserID, p shared.Pagination) ([]*Enrollment, error)

	// CountByCourse returns how many learners are enrolled in a course.
	CountByCourse(ctx context.Context, courseID shared.CourseID) (int, error)

	// Update persists progress changes using optimistic locking on
	// Version: the write succeeds only if the stored version still equals
	// e.Version, and increments it. Returns
	// shared.ErrConcurrentModification on a version mismatch.
	Update(ctx context.Context, e *Enrollment) error

	// Delete removes an enrollment. Used only by the enrollment saga's
	// compensation path.
	Delete(ctx context.Context, id string) error
}

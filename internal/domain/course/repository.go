package course

import (
	"context"

	"github.com/edulearn/edulearn-platform/internal/domain/shared"
)

// Repository provides access to the course catalog.
type Repository interface {
	// Create stores a new course with its videos and resources.
	Create(ctx context.Context, c *Course) error

	// GetByID retrieves a course with all videos loaded.
	// Returns shared.ErrNotFound if the course does not exist.
	GetByID(ctx context.Context, id shared.CourseID) (*Course, error)

	// GetByIDs retrieves multiple courses in one round trip. Missing IDs
	// are silently skipped.
	GetByIDs(ctx context.Context, ids []shared.CourseID) ([]*Course, error)

	// ListByInstructor returns the instructor's courses, newest first.
	ListByInstructor(ctx context.Context, instructorID shared.UserID, p shared.Pagination) ([]*Course, error)

	// List returns catalog courses, newest first.
	List(ctx context.Context, p shared.Pagination) ([]*Course, error)

	// Count returns the total number of courses.
	Count(ctx context.Context) (int, error)
}

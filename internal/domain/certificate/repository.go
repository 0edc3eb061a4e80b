package certificate

import (
	"context"

	"github.com/edulearn/edulearn-platform/internal/domain/shared"
)

// Repository provides access to issued certificates.
type Repository interface {
	// Create stores a new certificate.
	// Returns shared.ErrAlreadyExists if a certificate already exists for
	// the (learner, course) pair or the serial collides.
	Create(ctx context.Context, c *Certificate) error

	// GetBySerial retrieves a certificate by its public serial.
	// Returns shared.ErrNotFound if no certificate carries the serial.
	GetBySerial(ctx context.Context, serial string) (*Certificate, error)

	// GetByLearnerAndCourse retrieves the certificate for a pair.
	// Returns shared.ErrNotFound if none was issued.
	GetByLearnerAndCourse(ctx context.Context, learnerID shared.UserID, courseID shared.CourseID) (*Certificate, error)

	// ListByLearner returns the learner's certificates, newest first.
	ListByLearner(ctx context.Context, learnerID shared.UserID, p shared.Pagination) ([]*Certificate, error)

	// Update persists revocation changes.
	Update(ctx context.Context, c *Certificate) error
}

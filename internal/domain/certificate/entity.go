// Package certificate contains the completion-certificate aggregate and
// the issuing contract used by the progress pipeline.
package certificate

import (
	"context"
	"fmt"
	"time"

	"github.com/edulearn/edulearn-platform/internal/domain/shared"

	"github.com/google/uuid"
)

// Certificate proves that a learner completed a course. At most one
// certificate exists per (learner, course) pair; revocation flips a flag
// but never deletes the record.
type Certificate struct {
	// ID is the certificate's internal identifier.
	ID string

	// Serial is the public verification handle, "EDU-" + UUID.
	Serial string

	// LearnerID and CourseID identify the completed enrollment.
	LearnerID shared.UserID
	CourseID  shared.CourseID

	// LearnerName, CourseTitle and InstructorName are denormalized at
	// issuance so a verification response survives later profile or
	// catalog edits.
	LearnerName    string
	CourseTitle    string
	InstructorName string

	IssuedAt time.Time

	// Revoked certificates verify as invalid but remain listed.
	Revoked   bool
	RevokedAt *time.Time
}

// NewSerial generates a certificate serial number.
func NewSerial() string {
	return fmt.Sprintf("EDU-%s", uuid.New().String())
}

// NewCertificate issues a certificate for a completed enrollment.
func NewCertificate(learnerID shared.UserID, courseID shared.CourseID, learnerName, courseTitle, instructorName string) *Certificate {
	return &Certificate{
		ID:             uuid.New().String(),
		Serial:         NewSerial(),
		LearnerID:      learnerID,
		CourseID:       courseID,
		LearnerName:    learnerName,
		CourseTitle:    courseTitle,
		InstructorName: instructorName,
		IssuedAt:       time.Now().UTC(),
	}
}

// Revoke marks the certificate invalid. Idempotent.
func (c *Certificate) Revoke() {
	if c.Revoked {
		return
	}
	now := time.Now().UTC()
	c.Revoked = true
	c.RevokedAt = &now
}

// IsValid reports whether the certificate currently verifies.
func (c *Certificate) IsValid() bool {
	return !c.Revoked
}

// Issuer issues certificates for completed enrollments. The progress
// pipeline calls it synchronously when an enrollment completes; the
// implementation lives in the application layer.
type Issuer interface {
	// GetOrIssue returns the existing certificate for the pair, or issues
	// a new one. It never issues twice for the same (learner, course).
	GetOrIssue(ctx context.Context, learnerID shared.UserID, courseID shared.CourseID) (*Certificate, error)
}

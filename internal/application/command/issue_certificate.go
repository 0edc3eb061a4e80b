package command

import (
	"context"

	"github.com/edulearn/edulearn-platform/internal/domain/account"
	"github.com/edulearn/edulearn-platform/internal/domain/certificate"
	"github.com/edulearn/edulearn-platform/internal/domain/course"
	"github.com/edulearn/edulearn-platform/internal/domain/enrollment"
	"github.com/edulearn/edulearn-platform/internal/domain/shared"
	"github.com/edulearn/edulearn-platform/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// ISSUE CERTIFICATE
// Issues at most one certificate per (learner, course). The progress
// pipeline calls GetOrIssue synchronously on completion; the uniqueness
// constraint in the store backs the idempotency guarantee under races.
// ══════════════════════════════════════════════════════════════════════════════

// IssueCertificateHandler implements certificate.Issuer.
type IssueCertificateHandler struct {
	certificates certificate.Repository
	enrollments  enrollment.Repository
	users        account.UserRepository
	courses      course.Repository
	events       shared.EventPublisher
	log          *logger.Logger
}

// NewIssueCertificateHandler creates a new IssueCertificateHandler.
func NewIssueCertificateHandler(
	certificates certificate.Repository,
	enrollments enrollment.Repository,
	users account.UserRepository,
	courses course.Repository,
	events shared.EventPublisher,
	log *logger.Logger,
) *IssueCertificateHandler {
	if events == nil {
		events = shared.NopPublisher{}
	}
	return &IssueCertificateHandler{
		certificates: certificates,
		enrollments:  enrollments,
		users:        users,
		courses:      courses,
		events:       events,
		log:          log.With(logger.String("component", "issue_certificate")),
	}
}

// GetOrIssue returns the existing certificate for the pair or issues a
// new one. Issuance requires a completed enrollment.
//
// Two completing writers can race past the existence check; the store's
// uniqueness constraint rejects the second insert, which is then
// resolved by refetching the winner's certificate.
func (h *IssueCertificateHandler) GetOrIssue(ctx context.Context, learnerID shared.UserID, courseID shared.CourseID) (*certificate.Certificate, error) {
	existing, err := h.certificates.GetByLearnerAndCourse(ctx, learnerID, courseID)
	if err == nil {
		return existing, nil
	}
	if !shared.IsNotFound(err) {
		return nil, err
	}

	enr, err := h.enrollments.GetByLearnerAndCourse(ctx, learnerID, courseID)
	if err != nil {
		return nil, err
	}
	if !enr.IsCompleted() {
		return nil, shared.ErrCourseNotCompleted
	}

	learner, err := h.users.GetByID(ctx, learnerID)
	if err != nil {
		return nil, err
	}
	crs, err := h.courses.GetByID(ctx, courseID)
	if err != nil {
		return nil, err
	}
	instructor, err := h.users.GetByID(ctx, crs.InstructorID)
	if err != nil {
		return nil, err
	}

	cert := certificate.NewCertificate(learnerID, courseID, learner.FullName, crs.Title, instructor.FullName)
	if err := h.certificates.Create(ctx, cert); err != nil {
		if shared.IsAlreadyExists(err) {
			// Lost the race; the winner's certificate is the answer.
			return h.certificates.GetByLearnerAndCourse(ctx, learnerID, courseID)
		}
		return nil, err
	}

	h.log.Info("certificate issued",
		logger.String("serial", cert.Serial),
		logger.String("learner_id", learnerID.String()),
		logger.String("course_id", courseID.String()))

	if err := h.events.Publish(shared.NewCertificateIssuedEvent(
		cert.Serial, learnerID.String(), courseID.String())); err != nil {
		h.log.Warn("event publish failed", logger.Err(err))
	}
	return cert, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// REVOKE CERTIFICATE COMMAND
// ══════════════════════════════════════════════════════════════════════════════

// RevokeCertificateCommand marks a certificate invalid by serial.
type RevokeCertificateCommand struct {
	// Serial is the public certificate serial.
	Serial string

	// Reason is recorded in the audit event.
	Reason string
}

// Validate validates the command.
func (c RevokeCertificateCommand) Validate() error {
	if c.Serial == "" {
		return shared.NewDomainError("command", "RevokeCertificate", shared.ErrEmptyValue, "serial is required")
	}
	return nil
}

// RevokeCertificateResult contains the post-revocation state.
type RevokeCertificateResult struct {
	Serial         string
	AlreadyRevoked bool
}

// RevokeCertificateHandler handles the RevokeCertificateCommand.
type RevokeCertificateHandler struct {
	certificates certificate.Repository
	events       shared.EventPublisher
	log          *logger.Logger
}

// NewRevokeCertificateHandler creates a new RevokeCertificateHandler.
func NewRevokeCertificateHandler(certificates certificate.Repository, events shared.EventPublisher, log *logger.Logger) *RevokeCertificateHandler {
	if events == nil {
		events = shared.NopPublisher{}
	}
	return &RevokeCertificateHandler{
		certificates: certificates,
		events:       events,
		log:          log.With(logger.String("component", "revoke_certificate")),
	}
}

// Handle executes the command. Revocation is idempotent: revoking an
// already revoked certificate succeeds and reports the prior state.
func (h *RevokeCertificateHandler) Handle(ctx context.Context, cmd RevokeCertificateCommand) (*RevokeCertificateResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	cert, err := h.certificates.GetBySerial(ctx, cmd.Serial)
	if err != nil {
		return nil, err
	}
	if cert.Revoked {
		return &RevokeCertificateResult{Serial: cert.Serial, AlreadyRevoked: true}, nil
	}

	cert.Revoke()
	if err := h.certificates.Update(ctx, cert); err != nil {
		return nil, err
	}

	h.log.Info("certificate revoked",
		logger.String("serial", cert.Serial),
		logger.String("reason", cmd.Reason))
	if err := h.events.Publish(shared.NewCertificateRevokedEvent(cert.Serial, cmd.Reason)); err != nil {
		h.log.Warn("event publish failed", logger.Err(err))
	}
	return &RevokeCertificateResult{Serial: cert.Serial}, nil
}

// Package command contains write operations (CQRS - Commands).
package command

import (
	"context"
	"time"

	"github.com/edulearn/edulearn-platform/internal/application/saga"
	"github.com/edulearn/edulearn-platform/internal/domain/enrollment"
	"github.com/edulearn/edulearn-platform/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ENROLL LEARNER COMMAND
// Joins a learner to a course: payment first, enrollment second, with a
// compensating refund when the enrollment write fails after payment.
// ══════════════════════════════════════════════════════════════════════════════

// EnrollLearnerCommand contains the data to enroll a learner.
type EnrollLearnerCommand struct {
	// LearnerID is the enrolling learner.
	LearnerID string

	// CourseID is the course being purchased.
	CourseID string

	// PayerAccount is the learner's bank account number.
	PayerAccount string

	// Secret authenticates the payer account. Never logged.
	Secret string

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c EnrollLearnerCommand) Validate() error {
	if _, err := shared.NewUserID(c.LearnerID); err != nil {
		return err
	}
	if _, err := shared.NewCourseID(c.CourseID); err != nil {
		return err
	}
	return nil
}

// EnrollLearnerResult contains the result of an enrollment.
type EnrollLearnerResult struct {
	// EnrollmentID is the created enrollment.
	EnrollmentID string

	// Status is always InProgress for a fresh enrollment.
	Status enrollment.Status

	// TransactionID is the purchase settlement record, empty for free
	// courses.
	TransactionID string

	// AmountPaid is the settled amount as a decimal string.
	AmountPaid string

	// EnrolledAt is when the enrollment was created.
	EnrolledAt time.Time
}

// EnrollLearnerHandler handles the EnrollLearnerCommand.
type EnrollLearnerHandler struct {
	flow *saga.EnrollmentFlowSaga
}

// NewEnrollLearnerHandler creates a new EnrollLearnerHandler.
func NewEnrollLearnerHandler(flow *saga.EnrollmentFlowSaga) *EnrollLearnerHandler {
	return &EnrollLearnerHandler{flow: flow}
}

// Handle executes the command.
func (h *EnrollLearnerHandler) Handle(ctx context.Context, cmd EnrollLearnerCommand) (*EnrollLearnerResult, error) {
	learnerID, err := shared.NewUserID(cmd.LearnerID)
	if err != nil {
		return nil, err
	}
	courseID, err := shared.NewCourseID(cmd.CourseID)
	if err != nil {
		return nil, err
	}

	result, err := h.flow.Execute(ctx, saga.EnrollmentInput{
		LearnerID:    learnerID,
		CourseID:     courseID,
		PayerAccount: shared.AccountNumber(cmd.PayerAccount),
		Secret:       cmd.Secret,
	})
	if err != nil {
		return nil, err
	}

	res := &EnrollLearnerResult{
		EnrollmentID: result.Enrollment.ID,
		Status:       result.Enrollment.Status,
		AmountPaid:   "0",
		EnrolledAt:   result.Enrollment.EnrolledAt,
	}
	if result.Transaction != nil {
		res.TransactionID = result.Transaction.ID
		res.AmountPaid = result.Transaction.Amount.String()
	}
	return res, nil
}

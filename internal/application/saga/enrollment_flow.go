// Package saga contains multi-step business processes that coordinate
// several domain operations and compensate on partial failure.
package saga

import (
	"context"
	"time"

	"github.com/edulearn/edulearn-platform/internal/application/settlement"
	"github.com/edulearn/edulearn-platform/internal/domain/account"
	"github.com/edulearn/edulearn-platform/internal/domain/course"
	"github.com/edulearn/edulearn-platform/internal/domain/enrollment"
	"github.com/edulearn/edulearn-platform/internal/domain/ledger"
	"github.com/edulearn/edulearn-platform/internal/domain/shared"
	"github.com/edulearn/edulearn-platform/pkg/logger"

	"github.com/google/uuid"
)

// ══════════════════════════════════════════════════════════════════════════════
// ENROLLMENT FLOW SAGA
// Flow: Load Course + Learner → Reject Duplicate → Settle Purchase →
//
//	Create Enrollment → (on failure: Compensating Refund) → Publish Event
//
// Payment-then-enrollment ordering means a crash window can leave a paid
// learner without an enrollment; the compensating refund closes that
// window when the enrollment write itself fails.
// ══════════════════════════════════════════════════════════════════════════════

// EnrollmentFlowStep identifies a stage of the flow.
type EnrollmentFlowStep string

const (
	StepLoadCourse       EnrollmentFlowStep = "load_course"
	StepLoadLearner      EnrollmentFlowStep = "load_learner"
	StepCheckDuplicate   EnrollmentFlowStep = "check_duplicate"
	StepSettlePurchase   EnrollmentFlowStep = "settle_purchase"
	StepCreateEnrollment EnrollmentFlowStep = "create_enrollment"
	StepCompensate       EnrollmentFlowStep = "compensate_refund"
	StepComplete         EnrollmentFlowStep = "complete"
)

// EnrollmentInput is what a learner submits to join a course.
type EnrollmentInput struct {
	LearnerID shared.UserID
	CourseID  shared.CourseID

	// PayerAccount and Secret authenticate the learner's bank account.
	// Ignored for free courses.
	PayerAccount shared.AccountNumber
	Secret       string
}

// Validate checks the input.
func (i EnrollmentInput) Validate() error {
	if !i.LearnerID.IsValid() {
		return shared.NewDomainError("saga", "EnrollmentFlow", shared.ErrInvalidID, "invalid learner ID")
	}
	if !i.CourseID.IsValid() {
		return shared.NewDomainError("saga", "EnrollmentFlow", shared.ErrInvalidID, "invalid course ID")
	}
	return nil
}

// EnrollmentFlowResult is the outcome of a completed flow.
type EnrollmentFlowResult struct {
	Enrollment  *enrollment.Enrollment
	Transaction *ledger.Transaction
	CompletedAt time.Time
}

// EnrollmentFlowSaga orchestrates the purchase-then-enroll process.
type EnrollmentFlowSaga struct {
	courses     course.Repository
	users       account.UserRepository
	enrollments enrollment.Repository
	engine      *settlement.Engine
	events      shared.EventPublisher
	log         *logger.Logger
}

// NewEnrollmentFlowSaga creates the saga.
func NewEnrollmentFlowSaga(
	courses course.Repository,
	users account.UserRepository,
	enrollments enrollment.Repository,
	engine *settlement.Engine,
	events shared.EventPublisher,
	log *logger.Logger,
) *EnrollmentFlowSaga {
	if events == nil {
		events = shared.NopPublisher{}
	}
	return &EnrollmentFlowSaga{
		courses:     courses,
		users:       users,
		enrollments: enrollments,
		engine:      engine,
		events:      events,
		log:         log.With(logger.String("component", "enrollment_flow")),
	}
}

// Execute runs the flow to completion or to a compensated failure.
func (s *EnrollmentFlowSaga) Execute(ctx context.Context, input EnrollmentInput) (*EnrollmentFlowResult, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	// Step: load course.
	crs, err := s.courses.GetByID(ctx, input.CourseID)
	if err != nil {
		return nil, s.failed(StepLoadCourse, err)
	}

	// Step: load learner and instructor.
	learner, err := s.users.GetByID(ctx, input.LearnerID)
	if err != nil {
		return nil, s.failed(StepLoadLearner, err)
	}
	if _, ok := learner.AsLearner(); !ok {
		return nil, s.failed(StepLoadLearner,
			shared.NewDomainError("saga", "EnrollmentFlow", shared.ErrAccessDenied, "only learners can enroll"))
	}
	instructor, err := s.users.GetByID(ctx, crs.InstructorID)
	if err != nil {
		return nil, s.failed(StepLoadLearner, err)
	}
	payout, ok := instructor.AsInstructor()
	if !ok {
		return nil, s.failed(StepLoadLearner,
			shared.NewDomainError("saga", "EnrollmentFlow", shared.ErrInvalidState, "course owner is not an instructor"))
	}

	// Step: reject duplicate enrollment before touching money.
	if _, err := s.enrollments.GetByLearnerAndCourse(ctx, input.LearnerID, input.CourseID); err == nil {
		return nil, s.failed(StepCheckDuplicate, shared.ErrEnrollmentExists)
	} else if !shared.IsNotFound(err) {
		return nil, s.failed(StepCheckDuplicate, err)
	}

	// Step: settle the purchase. Free courses skip payment entirely.
	var txn *ledger.Transaction
	if !crs.IsFree() {
		txn, err = s.engine.Settle(ctx, settlement.PurchaseRequest{
			Payer:        input.PayerAccount,
			Secret:       input.Secret,
			Payee:        payout.PayoutAccount,
			Amount:       crs.Price,
			CourseID:     crs.ID,
			InstructorID: instructor.ID,
		})
		if err != nil {
			return nil, s.failed(StepSettlePurchase, err)
		}
	}

	// Step: create the enrollment; on failure, give the money back.
	txnID := ""
	if txn != nil {
		txnID = txn.ID
	}
	enr := enrollment.NewEnrollment(uuid.New().String(), input.LearnerID, input.CourseID, txnID)
	if err := s.enrollments.Create(ctx, enr); err != nil {
		if txn != nil {
			s.compensate(ctx, txn, instructor.ID)
		}
		return nil, s.failed(StepCreateEnrollment, err)
	}

	s.log.Info("enrollment created",
		logger.String("enrollment_id", enr.ID),
		logger.String("learner_id", input.LearnerID.String()),
		logger.String("course_id", input.CourseID.String()),
		logger.String("transaction_id", txnID))

	amount := "0"
	if txn != nil {
		amount = txn.Amount.String()
	}
	if err := s.events.Publish(shared.NewEnrollmentCreatedEvent(
		enr.ID, input.LearnerID.String(), input.CourseID.String(), txnID, amount)); err != nil {
		s.log.Warn("event publish failed", logger.Err(err))
	}

	return &EnrollmentFlowResult{
		Enrollment:  enr,
		Transaction: txn,
		CompletedAt: time.Now().UTC(),
	}, nil
}

// compensate reverses the purchase settlement after an enrollment write
// failure. A failed refund is logged loudly: it means money moved with
// no enrollment to show for it, and an operator has to reconcile.
func (s *EnrollmentFlowSaga) compensate(ctx context.Context, txn *ledger.Transaction, instructorID shared.UserID) {
	refund, err := s.engine.Refund(ctx, txn, instructorID)
	if err != nil {
		s.log.Error("compensating refund failed, manual reconciliation required",
			logger.String("step", string(StepCompensate)),
			logger.String("transaction_id", txn.ID),
			logger.Err(err))
		return
	}
	s.log.Warn("enrollment rolled back, purchase refunded",
		logger.String("transaction_id", txn.ID),
		logger.String("refund_id", refund.ID))
}

func (s *EnrollmentFlowSaga) failed(step EnrollmentFlowStep, err error) error {
	s.log.Debug("enrollment flow failed",
		logger.String("step", string(step)),
		logger.Err(err))
	return err
}

package command

import (
	"context"
	"time"

	"github.com/edulearn/edulearn-platform/internal/application/settlement"
	"github.com/edulearn/edulearn-platform/internal/domain/account"
	"github.com/edulearn/edulearn-platform/internal/domain/course"
	"github.com/edulearn/edulearn-platform/internal/domain/shared"
	"github.com/edulearn/edulearn-platform/pkg/logger"

	"github.com/google/uuid"
)

// ══════════════════════════════════════════════════════════════════════════════
// CREATE COURSE COMMAND
// Publishes an instructor's course and, when funding is enabled, pays
// the instructor an upfront lump sum from the platform account.
// ══════════════════════════════════════════════════════════════════════════════

// VideoInput describes one video at course creation.
type VideoInput struct {
	Title           string
	DurationSeconds int
	MediaKey        string
}

// ResourceInput describes one attachment at course creation.
type ResourceInput struct {
	Title    string
	Kind     string
	MediaKey string
}

// CreateCourseCommand contains the data to publish a course.
type CreateCourseCommand struct {
	// InstructorID is the publishing instructor.
	InstructorID string

	Title       string
	Description string
	Category    string

	// Price is the course price as a decimal string; "0" makes the
	// course free.
	Price string

	Videos    []VideoInput
	Resources []ResourceInput

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c CreateCourseCommand) Validate() error {
	if _, err := shared.NewUserID(c.InstructorID); err != nil {
		return err
	}
	if c.Title == "" {
		return shared.NewDomainError("command", "CreateCourse", shared.ErrEmptyValue, "title is required")
	}
	if len(c.Videos) == 0 {
		return shared.NewDomainError("command", "CreateCourse", shared.ErrInvalidInput, "a course needs at least one video")
	}
	for _, v := range c.Videos {
		if v.DurationSeconds <= 0 {
			return shared.NewDomainError("command", "CreateCourse", shared.ErrInvalidInput, "video duration must be positive")
		}
	}
	return nil
}

// CreateCourseResult contains the created course and funding outcome.
type CreateCourseResult struct {
	CourseID string
	VideoIDs []string

	// FundingTransactionID is set when the upfront lump sum settled.
	FundingTransactionID string

	CreatedAt time.Time
}

// CreateCourseHandler handles the CreateCourseCommand.
type CreateCourseHandler struct {
	courses course.Repository
	users   account.UserRepository
	engine  *settlement.Engine
	events  shared.EventPublisher
	log     *logger.Logger

	// fundOnCreate enables the upfront lump-sum payout; platformSecret
	// authenticates the platform account for it.
	fundOnCreate   bool
	platformSecret string
}

// NewCreateCourseHandler creates a new CreateCourseHandler.
func NewCreateCourseHandler(
	courses course.Repository,
	users account.UserRepository,
	engine *settlement.Engine,
	events shared.EventPublisher,
	log *logger.Logger,
	fundOnCreate bool,
	platformSecret string,
) *CreateCourseHandler {
	if events == nil {
		events = shared.NopPublisher{}
	}
	return &CreateCourseHandler{
		courses:        courses,
		users:          users,
		engine:         engine,
		events:         events,
		log:            log.With(logger.String("component", "create_course")),
		fundOnCreate:   fundOnCreate,
		platformSecret: platformSecret,
	}
}

// Handle executes the command. The course is published first; a failed
// funding settlement leaves the course live and is reported for
// operator follow-up rather than rolling the course back.
func (h *CreateCourseHandler) Handle(ctx context.Context, cmd CreateCourseCommand) (*CreateCourseResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	instructorID, _ := shared.NewUserID(cmd.InstructorID)
	instructor, err := h.users.GetByID(ctx, instructorID)
	if err != nil {
		return nil, err
	}
	payout, ok := instructor.AsInstructor()
	if !ok {
		return nil, shared.NewDomainError("command", "CreateCourse", shared.ErrAccessDenied, "only instructors can publish courses")
	}

	price, err := shared.NewMoneyFromString(cmd.Price)
	if err != nil {
		return nil, err
	}
	if price.IsNegative() {
		return nil, shared.NewDomainError("command", "CreateCourse", shared.ErrNegativeValue, "price cannot be negative")
	}

	videos := make([]course.Video, len(cmd.Videos))
	for i, v := range cmd.Videos {
		videos[i] = course.Video{
			ID:              shared.VideoID(uuid.New().String()),
			Title:           v.Title,
			DurationSeconds: v.DurationSeconds,
			Position:        i,
			MediaKey:        v.MediaKey,
		}
	}

	crs, err := course.NewCourse(
		shared.CourseID(uuid.New().String()),
		cmd.Title, cmd.Description, cmd.Category,
		instructorID, price, videos)
	if err != nil {
		return nil, err
	}
	for _, r := range cmd.Resources {
		crs.Resources = append(crs.Resources, course.Resource{
			Title:    r.Title,
			Kind:     course.ResourceKind(r.Kind),
			MediaKey: r.MediaKey,
		})
	}

	if err := h.courses.Create(ctx, crs); err != nil {
		return nil, err
	}

	payout.CoursesTaught = append(payout.CoursesTaught, crs.ID)
	if err := h.users.Update(ctx, instructor); err != nil {
		h.log.Warn("courses_taught update failed",
			logger.String("instructor_id", instructorID.String()),
			logger.Err(err))
	}

	h.publish(shared.NewCourseCreatedEvent(
		crs.ID.String(), instructorID.String(), crs.Title, price.String(), len(videos)))

	result := &CreateCourseResult{
		CourseID:  crs.ID.String(),
		CreatedAt: crs.CreatedAt,
	}
	for _, v := range videos {
		result.VideoIDs = append(result.VideoIDs, v.ID.String())
	}

	if h.fundOnCreate && price.IsPositive() {
		txn, err := h.engine.SettleLumpSum(ctx, settlement.LumpSumRequest{
			Secret:       h.platformSecret,
			Payee:        payout.PayoutAccount,
			Amount:       price,
			CourseID:     crs.ID,
			InstructorID: instructorID,
		})
		if err != nil {
			h.log.Error("course funding failed, course remains published",
				logger.String("course_id", crs.ID.String()),
				logger.Err(err))
		} else {
			result.FundingTransactionID = txn.ID
			h.publish(shared.NewCourseFundedEvent(
				crs.ID.String(), instructorID.String(), price.String(), txn.ID))
		}
	}

	return result, nil
}

func (h *CreateCourseHandler) publish(ev shared.Event) {
	if err := h.events.Publish(ev); err != nil {
		h.log.Warn("event publish failed",
			logger.String("event_type", string(ev.EventType())),
			logger.Err(err))
	}
}

package command

import (
	"context"

	"github.com/edulearn/edulearn-platform/internal/domain/certificate"
	"github.com/edulearn/edulearn-platform/internal/domain/course"
	"github.com/edulearn/edulearn-platform/internal/domain/enrollment"
	"github.com/edulearn/edulearn-platform/internal/domain/shared"
	"github.com/edulearn/edulearn-platform/pkg/logger"
	"github.com/edulearn/edulearn-platform/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// RECORD PROGRESS COMMAND
// Accepts a watch-position report for one video and drives the
// completion pipeline: clamp → high-water mark → 95% video completion →
// overall percentage → course completion → certificate issuance.
// ══════════════════════════════════════════════════════════════════════════════

// RecordProgressCommand contains one watch-position report.
type RecordProgressCommand struct {
	// LearnerID is the watching learner.
	LearnerID string

	// CourseID is the course containing the video.
	CourseID string

	// VideoID is the watched video.
	VideoID string

	// WatchedSeconds is the raw reported position. Out-of-range values
	// are clamped, never rejected.
	WatchedSeconds int

	// ExplicitlyCompleted is the player's own "finished" signal. It
	// completes the video even below the 95% watch threshold.
	ExplicitlyCompleted bool

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c RecordProgressCommand) Validate() error {
	if _, err := shared.NewUserID(c.LearnerID); err != nil {
		return err
	}
	if _, err := shared.NewCourseID(c.CourseID); err != nil {
		return err
	}
	if c.VideoID == "" {
		return shared.NewDomainError("command", "RecordProgress", shared.ErrEmptyValue, "video ID is required")
	}
	return nil
}

// RecordProgressResult contains the post-write state.
type RecordProgressResult struct {
	// Progress is the overall completion percentage after the write.
	Progress int

	// Status is the enrollment status after the write.
	Status enrollment.Status

	// VideoCompleted reports whether this video now counts as finished.
	VideoCompleted bool

	// CourseCompleted reports whether this write completed the course.
	CourseCompleted bool

	// CertificateSerial is set when this write triggered issuance, or
	// when the course was already completed and a certificate exists.
	CertificateSerial string
}

// RecordProgressHandler handles the RecordProgressCommand.
type RecordProgressHandler struct {
	enrollments enrollment.Repository
	courses     course.Repository
	issuer      certificate.Issuer
	events      shared.EventPublisher
	log         *logger.Logger
	retryCfg    retry.Config
}

// NewRecordProgressHandler creates a new RecordProgressHandler.
func NewRecordProgressHandler(
	enrollments enrollment.Repository,
	courses course.Repository,
	issuer certificate.Issuer,
	events shared.EventPublisher,
	log *logger.Logger,
) *RecordProgressHandler {
	if events == nil {
		events = shared.NopPublisher{}
	}
	cfg := retry.DefaultConfig()
	cfg.ShouldRetry = shared.IsRetryable
	return &RecordProgressHandler{
		enrollments: enrollments,
		courses:     courses,
		issuer:      issuer,
		events:      events,
		log:         log.With(logger.String("component", "record_progress")),
		retryCfg:    cfg,
	}
}

// Handle executes the command. Concurrent reports for the same
// enrollment are serialized through optimistic locking: the losing
// writer reloads and reapplies, so the high-water mark semantics make
// the outcome order-independent.
func (h *RecordProgressHandler) Handle(ctx context.Context, cmd RecordProgressCommand) (*RecordProgressResult, error) {
	learnerID, err := shared.NewUserID(cmd.LearnerID)
	if err != nil {
		return nil, err
	}
	courseID, err := shared.NewCourseID(cmd.CourseID)
	if err != nil {
		return nil, err
	}
	if cmd.VideoID == "" {
		return nil, shared.NewDomainError("command", "RecordProgress", shared.ErrEmptyValue, "video ID is required")
	}
	videoID := shared.VideoID(cmd.VideoID)

	crs, err := h.courses.GetByID(ctx, courseID)
	if err != nil {
		return nil, err
	}

	var result *RecordProgressResult
	err = retry.Do(ctx, h.retryCfg, func(ctx context.Context) error {
		enr, err := h.enrollments.GetByLearnerAndCourse(ctx, learnerID, courseID)
		if err != nil {
			if shared.IsNotFound(err) {
				return retry.Permanent(shared.ErrEnrollmentAccess)
			}
			return retry.Permanent(err)
		}

		wasCompleted := enr.IsCompleted()
		if err := enr.RecordWatch(crs, videoID, cmd.WatchedSeconds, cmd.ExplicitlyCompleted); err != nil {
			return retry.Permanent(err)
		}
		if err := h.enrollments.Update(ctx, enr); err != nil {
			// Version conflicts come back retryable; the next attempt
			// reloads fresh state.
			return err
		}

		result = &RecordProgressResult{
			Progress:        enr.Progress.Int(),
			Status:          enr.Status,
			VideoCompleted:  enr.Watched[videoID].Completed,
			CourseCompleted: !wasCompleted && enr.IsCompleted(),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	h.publish(shared.NewProgressRecordedEvent(
		learnerID.String()+"/"+courseID.String(),
		learnerID.String(), courseID.String(), string(videoID), result.Progress))

	if result.CourseCompleted {
		cert, err := h.issuer.GetOrIssue(ctx, learnerID, courseID)
		if err != nil {
			// The enrollment is already completed; certification can be
			// recovered on the next read path.
			h.log.Error("certificate issuance failed after completion",
				logger.String("learner_id", learnerID.String()),
				logger.String("course_id", courseID.String()),
				logger.Err(err))
			return nil, err
		}
		result.CertificateSerial = cert.Serial

		h.log.Info("course completed",
			logger.String("learner_id", learnerID.String()),
			logger.String("course_id", courseID.String()),
			logger.String("serial", cert.Serial))
		h.publish(shared.NewCourseCompletedEvent(
			learnerID.String()+"/"+courseID.String(),
			learnerID.String(), courseID.String(), cert.Serial))
	}

	return result, nil
}

func (h *RecordProgressHandler) publish(ev shared.Event) {
	if err := h.events.Publish(ev); err != nil {
		h.log.Warn("event publish failed",
			logger.String("event_type", string(ev.EventType())),
			logger.Err(err))
	}
}

package query

import (
	"context"

	"github.com/edulearn/edulearn-platform/internal/domain/account"
	"github.com/edulearn/edulearn-platform/internal/domain/course"
	"github.com/edulearn/edulearn-platform/internal/domain/enrollment"
	"github.com/edulearn/edulearn-platform/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET INSTRUCTOR EARNINGS QUERY
// ══════════════════════════════════════════════════════════════════════════════

// GetInstructorEarningsQuery requests an instructor's earnings breakdown.
type GetInstructorEarningsQuery struct {
	InstructorID string
}

// CourseEarningsView is one course's contribution.
type CourseEarningsView struct {
	CourseID        string `json:"course_id"`
	Title           string `json:"title"`
	Price           string `json:"price"`
	EnrollmentCount int    `json:"enrollment_count"`

	// Revenue is the instructor's share: enrollments × 80% of the price.
	Revenue string `json:"revenue"`
}

// InstructorEarningsView is the full earnings report.
type InstructorEarningsView struct {
	InstructorID string `json:"instructor_id"`

	// TotalEarnings is the lifetime counter maintained by settlements,
	// the money-of-record figure.
	TotalEarnings string `json:"total_earnings"`

	CourseCount int                  `json:"course_count"`
	Courses     []CourseEarningsView `json:"courses"`
}

// GetInstructorEarningsHandler handles the query.
type GetInstructorEarningsHandler struct {
	users       account.UserRepository
	courses     course.Repository
	enrollments enrollment.Repository
}

// NewGetInstructorEarningsHandler creates the handler.
func NewGetInstructorEarningsHandler(users account.UserRepository, courses course.Repository, enrollments enrollment.Repository) *GetInstructorEarningsHandler {
	return &GetInstructorEarningsHandler{users: users, courses: courses, enrollments: enrollments}
}

// Handle executes the query.
func (h *GetInstructorEarningsHandler) Handle(ctx context.Context, q GetInstructorEarningsQuery) (*InstructorEarningsView, error) {
	instructorID, err := shared.NewUserID(q.InstructorID)
	if err != nil {
		return nil, err
	}

	u, err := h.users.GetByID(ctx, instructorID)
	if err != nil {
		return nil, err
	}
	profile, ok := u.AsInstructor()
	if !ok {
		return nil, shared.NewDomainError("query", "GetInstructorEarnings", shared.ErrAccessDenied, "user is not an instructor")
	}

	owned, err := h.courses.ListByInstructor(ctx, instructorID, shared.NewPagination(1, shared.MaxPageSize))
	if err != nil {
		return nil, err
	}

	view := &InstructorEarningsView{
		InstructorID:  instructorID.String(),
		TotalEarnings: profile.TotalEarnings.String(),
		CourseCount:   len(owned),
		Courses:       make([]CourseEarningsView, 0, len(owned)),
	}
	for _, c := range owned {
		n, err := h.enrollments.CountByCourse(ctx, c.ID)
		if err != nil {
			return nil, err
		}
		share, _ := c.Price.Split()
		view.Courses = append(view.Courses, CourseEarningsView{
			CourseID:        c.ID.String(),
			Title:           c.Title,
			Price:           c.Price.String(),
			EnrollmentCount: n,
			Revenue:         share.MulInt(int64(n)).String(),
		})
	}
	return view, nil
}

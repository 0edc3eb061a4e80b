// Package query contains read operations (CQRS - Queries).
package query

import (
	"context"
	"time"

	"github.com/edulearn/edulearn-platform/internal/domain/course"
	"github.com/edulearn/edulearn-platform/internal/domain/enrollment"
	"github.com/edulearn/edulearn-platform/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET LEARNER COURSES QUERY
// The learner's "my courses" view: enrollments joined with catalog data.
// ══════════════════════════════════════════════════════════════════════════════

// GetLearnerCoursesQuery requests a learner's enrolled courses.
type GetLearnerCoursesQuery struct {
	LearnerID string
	Page      int
	PageSize  int
}

// LearnerCourseView is one row of the "my courses" listing.
type LearnerCourseView struct {
	CourseID    string            `json:"course_id"`
	Title       string            `json:"title"`
	Category    string            `json:"category"`
	Instructor  string            `json:"instructor_id"`
	Progress    int               `json:"progress"`
	Status      enrollment.Status `json:"status"`
	VideoCount  int               `json:"video_count"`
	EnrolledAt  time.Time         `json:"enrolled_at"`
	CompletedAt *time.Time        `json:"completed_at,omitempty"`
}

// GetLearnerCoursesHandler handles the query.
type GetLearnerCoursesHandler struct {
	enrollments enrollment.Repository
	courses     course.Repository
}

// NewGetLearnerCoursesHandler creates the handler.
func NewGetLearnerCoursesHandler(enrollments enrollment.Repository, courses course.Repository) *GetLearnerCoursesHandler {
	return &GetLearnerCoursesHandler{enrollments: enrollments, courses: courses}
}

// Handle executes the query.
func (h *GetLearnerCoursesHandler) Handle(ctx context.Context, q GetLearnerCoursesQuery) ([]LearnerCourseView, error) {
	learnerID, err := shared.NewUserID(q.LearnerID)
	if err != nil {
		return nil, err
	}

	enrs, err := h.enrollments.ListByLearner(ctx, learnerID, shared.NewPagination(q.Page, q.PageSize))
	if err != nil {
		return nil, err
	}
	if len(enrs) == 0 {
		return []LearnerCourseView{}, nil
	}

	ids := make([]shared.CourseID, len(enrs))
	for i, e := range enrs {
		ids[i] = e.CourseID
	}
	catalog, err := h.courses.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[shared.CourseID]*course.Course, len(catalog))
	for _, c := range catalog {
		byID[c.ID] = c
	}

	views := make([]LearnerCourseView, 0, len(enrs))
	for _, e := range enrs {
		c, ok := byID[e.CourseID]
		if !ok {
			// Catalog row gone; the enrollment still renders.
			views = append(views, LearnerCourseView{
				CourseID:    e.CourseID.String(),
				Progress:    e.Progress.Int(),
				Status:      e.Status,
				EnrolledAt:  e.EnrolledAt,
				CompletedAt: e.CompletedAt,
			})
			continue
		}
		views = append(views, LearnerCourseView{
			CourseID:    c.ID.String(),
			Title:       c.Title,
			Category:    c.Category,
			Instructor:  c.InstructorID.String(),
			Progress:    e.Progress.Int(),
			Status:      e.Status,
			VideoCount:  len(c.Videos),
			EnrolledAt:  e.EnrolledAt,
			CompletedAt: e.CompletedAt,
		})
	}
	return views, nil
}

package query

import (
	"context"

	"github.com/edulearn/edulearn-platform/internal/domain/course"
	"github.com/edulearn/edulearn-platform/internal/domain/enrollment"
	"github.com/edulearn/edulearn-platform/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET COURSE CONTENT QUERY
// The enrolled learner's course view: videos with resolved media URLs
// and the learner's watch positions. Enrollment gates access.
// ══════════════════════════════════════════════════════════════════════════════

// MediaResolver turns storage keys into time-limited playable URLs.
type MediaResolver interface {
	Resolve(ctx context.Context, key string) (string, error)
}

// GetCourseContentQuery requests a course's content for a learner.
type GetCourseContentQuery struct {
	LearnerID string
	CourseID  string
}

// VideoView is one video with the learner's progress on it.
type VideoView struct {
	VideoID         string `json:"video_id"`
	Title           string `json:"title"`
	DurationSeconds int    `json:"duration_seconds"`
	Position        int    `json:"position"`
	URL             string `json:"url"`
	WatchedSeconds  int    `json:"watched_seconds"`
	Completed       bool   `json:"completed"`
}

// ResourceView is one downloadable attachment.
type ResourceView struct {
	Title string `json:"title"`
	Kind  string `json:"kind"`
	URL   string `json:"url"`
}

// CourseContentView is the full enrolled-course page.
type CourseContentView struct {
	CourseID    string            `json:"course_id"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Progress    int               `json:"progress"`
	Status      enrollment.Status `json:"status"`
	Videos      []VideoView       `json:"videos"`
	Resources   []ResourceView    `json:"resources"`
}

// GetCourseContentHandler handles the query.
type GetCourseContentHandler struct {
	enrollments enrollment.Repository
	courses     course.Repository
	media       MediaResolver
}

// NewGetCourseContentHandler creates the handler.
func NewGetCourseContentHandler(enrollments enrollment.Repository, courses course.Repository, media MediaResolver) *GetCourseContentHandler {
	return &GetCourseContentHandler{enrollments: enrollments, courses: courses, media: media}
}

// Handle executes the query. Learners without an enrollment get an
// access error, not a not-found, so the course's existence leaks nothing
// beyond the public catalog.
func (h *GetCourseContentHandler) Handle(ctx context.Context, q GetCourseContentQuery) (*CourseContentView, error) {
	learnerID, err := shared.NewUserID(q.LearnerID)
	if err != nil {
		return nil, err
	}
	courseID, err := shared.NewCourseID(q.CourseID)
	if err != nil {
		return nil, err
	}

	enr, err := h.enrollments.GetByLearnerAndCourse(ctx, learnerID, courseID)
	if err != nil {
		if shared.IsNotFound(err) {
			return nil, shared.ErrEnrollmentAccess
		}
		return nil, err
	}

	crs, err := h.courses.GetByID(ctx, courseID)
	if err != nil {
		return nil, err
	}

	view := &CourseContentView{
		CourseID:    crs.ID.String(),
		Title:       crs.Title,
		Description: crs.Description,
		Progress:    enr.Progress.Int(),
		Status:      enr.Status,
		Videos:      make([]VideoView, 0, len(crs.Videos)),
		Resources:   make([]ResourceView, 0, len(crs.Resources)),
	}

	for _, v := range crs.Videos {
		url := ""
		if h.media != nil && v.MediaKey != "" {
			if url, err = h.media.Resolve(ctx, v.MediaKey); err != nil {
				// A broken media link degrades the row, not the page.
				url = ""
			}
		}
		entry := enr.Watched[v.ID]
		view.Videos = append(view.Videos, VideoView{
			VideoID:         v.ID.String(),
			Title:           v.Title,
			DurationSeconds: v.DurationSeconds,
			Position:        v.Position,
			URL:             url,
			WatchedSeconds:  entry.WatchedSeconds,
			Completed:       entry.Completed,
		})
	}
	for _, r := range crs.Resources {
		url := ""
		if h.media != nil && r.MediaKey != "" {
			if url, err = h.media.Resolve(ctx, r.MediaKey); err != nil {
				url = ""
			}
		}
		view.Resources = append(view.Resources, ResourceView{
			Title: r.Title,
			Kind:  string(r.Kind),
			URL:   url,
		})
	}
	return view, nil
}

// Package course contains the course catalog aggregate: courses, their
// ordered videos, and attached resources.
package course

import (
	"strings"
	"time"

	"github.com/edulearn/edulearn-platform/internal/domain/shared"
)

// Video is one lecture inside a course.
type Video struct {
	// ID identifies the video within the catalog.
	ID shared.VideoID

	// Title is the display title.
	Title string

	// DurationSeconds is the full length of the video. Watch positions
	// beyond this value are clamped at progress-recording time.
	DurationSeconds int

	// Position is the 0-based order of the video within the course.
	Position int

	// MediaKey is the storage key resolved to a playable URL by the
	// media resolver at content-delivery time.
	MediaKey string
}

// ResourceKind classifies a course attachment.
type ResourceKind string

const (
	ResourcePDF   ResourceKind = "pdf"
	ResourceSlide ResourceKind = "slides"
	ResourceCode  ResourceKind = "code"
)

// Resource is a downloadable attachment to a course.
type Resource struct {
	Title    string
	Kind     ResourceKind
	MediaKey string
}

// Course is the catalog aggregate. Videos are ordered by Position.
type Course struct {
	ID           shared.CourseID
	Title        string
	Description  string
	Category     string
	InstructorID shared.UserID
	Price        shared.Money
	ThumbnailKey string
	Videos       []Video
	Resources    []Resource
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewCourse creates a validated course.
func NewCourse(id shared.CourseID, title, description, category string, instructorID shared.UserID, price shared.Money, videos []Video) (*Course, error) {
	now := time.Now().UTC()
	c := &Course{
		ID:           id,
		Title:        strings.TrimSpace(title),
		Description:  strings.TrimSpace(description),
		Category:     strings.TrimSpace(category),
		InstructorID: instructorID,
		Price:        price,
		Videos:       videos,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks course integrity.
func (c *Course) Validate() error {
	if !c.ID.IsValid() {
		return shared.NewDomainError("course", "Validate", shared.ErrInvalidID, "invalid course ID")
	}
	if c.Title == "" {
		return shared.NewDomainError("course", "Validate", shared.ErrEmptyValue, "course title is required")
	}
	if c.InstructorID.IsEmpty() {
		return shared.NewDomainError("course", "Validate", shared.ErrInvalidID, "instructor ID is required")
	}
	if c.Price.IsNegative() {
		return shared.NewDomainError("course", "Validate", shared.ErrNegativeValue, "course price cannot be negative")
	}
	seen := make(map[shared.VideoID]struct{}, len(c.Videos))
	for _, v := range c.Videos {
		if !v.ID.IsValid() {
			return shared.NewDomainError("course", "Validate", shared.ErrInvalidID, "invalid video ID")
		}
		if _, dup := seen[v.ID]; dup {
			return shared.NewDomainError("course", "Validate", shared.ErrInvalidEntity, "duplicate video ID in course")
		}
		seen[v.ID] = struct{}{}
		if v.DurationSeconds <= 0 {
			return shared.NewDomainError("course", "Validate", shared.ErrInvalidInput, "video duration must be positive")
		}
	}
	return nil
}

// IsFree reports whether the course costs nothing. Free courses skip the
// settlement leg of enrollment entirely.
func (c *Course) IsFree() bool {
	return c.Price.IsZero()
}

// FindVideo returns the video with the given ID.
// Returns shared.ErrVideoNotFound if the course has no such video.
func (c *Course) FindVideo(id shared.VideoID) (*Video, error) {
	for i := range c.Videos {
		if c.Videos[i].ID == id {
			return &c.Videos[i], nil
		}
	}
	return nil, shared.ErrVideoNotFound
}

// VideoIDs returns the IDs of all videos in position order.
func (c *Course) VideoIDs() []shared.VideoID {
	ids := make([]shared.VideoID, len(c.Videos))
	for i, v := range c.Videos {
		ids[i] = v.ID
	}
	return ids
}

// TotalDurationSeconds sums all video durations.
func (c *Course) TotalDurationSeconds() int {
	total := 0
	for _, v := range c.Videos {
		total += v.DurationSeconds
	}
	return total
}

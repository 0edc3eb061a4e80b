// Package enrollment contains the learner-course enrollment aggregate and
// the progress arithmetic that drives completion and certification.
package enrollment

import (
	"time"

	"github.com/edulearn/edulearn-platform/internal/domain/course"
	"github.com/edulearn/edulearn-platform/internal/domain/shared"
)

// Status is the lifecycle state of an enrollment.
type Status string

const (
	// StatusInProgress is the initial state of every enrollment.
	StatusInProgress Status = "IN_PROGRESS"

	// StatusCompleted is terminal: once reached, an enrollment never
	// returns to IN_PROGRESS, even if the course later gains videos.
	StatusCompleted Status = "COMPLETED"
)

// completionThreshold: a video counts as completed once the learner has
// watched at least 95% of its duration.
const completionThresholdPct = 95

// WatchEntry records the furthest watch position for one video.
type WatchEntry struct {
	// WatchedSeconds is the high-water mark, clamped to the video
	// duration. It never decreases.
	WatchedSeconds int `json:"watched_seconds"`

	// Completed is set once the 95% threshold is reached or the player
	// reports the video finished, and never unset.
	Completed bool `json:"completed"`

	// UpdatedAt is the last time this entry advanced.
	UpdatedAt time.Time `json:"updated_at"`
}

// Enrollment links a learner to a purchased course and tracks progress.
type Enrollment struct {
	ID        string
	LearnerID shared.UserID
	CourseID  shared.CourseID

	// Status is IN_PROGRESS or COMPLETED; the transition is one-way.
	Status Status

	// Progress is the rounded overall completion percentage.
	Progress shared.Percentage

	// Watched maps video ID to its watch record.
	Watched map[shared.VideoID]WatchEntry

	// TransactionID references the purchase settlement, empty for free
	// courses.
	TransactionID string

	// Version guards concurrent progress writes with optimistic locking.
	Version int

	EnrolledAt  time.Time
	CompletedAt *time.Time
	UpdatedAt   time.Time
}

// NewEnrollment creates a fresh in-progress enrollment.
func NewEnrollment(id string, learnerID shared.UserID, courseID shared.CourseID, transactionID string) *Enrollment {
	now := time.Now().UTC()
	return &Enrollment{
		ID:            id,
		LearnerID:     learnerID,
		CourseID:      courseID,
		Status:        StatusInProgress,
		Progress:      shared.MinPercentage,
		Watched:       make(map[shared.VideoID]WatchEntry),
		TransactionID: transactionID,
		Version:       1,
		EnrolledAt:    now,
		UpdatedAt:     now,
	}
}

// IsCompleted reports whether the enrollment reached the terminal state.
func (e *Enrollment) IsCompleted() bool {
	return e.Status == StatusCompleted
}

// RecordWatch advances the watch position for one video and recomputes
// progress and status against the current course content.
//
// Rules:
//   - Watched seconds are clamped into [0, video duration].
//   - The stored position is a high-water mark: a lower report than the
//     stored one leaves the entry unchanged.
//   - A video is completed when the player marks it complete explicitly
//     or the position reaches >= 95% of its duration; completion is
//     sticky either way.
//   - Overall progress is round(100 * sum(watched) / sum(duration)).
//   - When every video in the course is completed, the enrollment moves
//     to COMPLETED. COMPLETED is never left again.
func (e *Enrollment) RecordWatch(c *course.Course, videoID shared.VideoID, watchedSeconds int, explicitlyCompleted bool) error {
	video, err := c.FindVideo(videoID)
	if err != nil {
		return err
	}

	if watchedSeconds < 0 {
		watchedSeconds = 0
	}
	if watchedSeconds > video.DurationSeconds {
		watchedSeconds = video.DurationSeconds
	}

	now := time.Now().UTC()
	entry := e.Watched[videoID]
	if watchedSeconds > entry.WatchedSeconds {
		entry.WatchedSeconds = watchedSeconds
		entry.UpdatedAt = now
	}
	if !entry.Completed && (explicitlyCompleted || videoCompleted(entry.WatchedSeconds, video.DurationSeconds)) {
		entry.Completed = true
		entry.UpdatedAt = now
	}
	e.Watched[videoID] = entry

	e.Progress = e.computeProgress(c)
	e.UpdatedAt = now

	if e.Status != StatusCompleted && e.allVideosCompleted(c) {
		e.Status = StatusCompleted
		completed := now
		e.CompletedAt = &completed
	}
	return nil
}

// videoCompleted applies the 95% threshold using integer arithmetic to
// avoid float drift at the boundary.
func videoCompleted(watched, duration int) bool {
	if duration <= 0 {
		return false
	}
	return watched*100 >= duration*completionThresholdPct
}

// computeProgress derives the overall percentage from the watch map and
// the course's current video set. Videos without a watch entry count as
// zero; entries for videos no longer in the course are ignored.
func (e *Enrollment) computeProgress(c *course.Course) shared.Percentage {
	totalDuration := 0
	totalWatched := 0
	for _, v := range c.Videos {
		totalDuration += v.DurationSeconds
		if entry, ok := e.Watched[v.ID]; ok {
			w := entry.WatchedSeconds
			if w > v.DurationSeconds {
				w = v.DurationSeconds
			}
			totalWatched += w
		}
	}
	if totalDuration == 0 {
		return shared.MinPercentage
	}
	// Round half up.
	pct := (totalWatched*100 + totalDuration/2) / totalDuration
	return shared.ClampPercentage(pct)
}

// allVideosCompleted reports whether every video in the course has a
// completed watch entry. A course with no videos never completes.
func (e *Enrollment) allVideosCompleted(c *course.Course) bool {
	if len(c.Videos) == 0 {
		return false
	}
	for _, v := range c.Videos {
		if entry, ok := e.Watched[v.ID]; !ok || !entry.Completed {
			return false
		}
	}
	return true
}

// CompletedVideoCount returns how many videos the learner has finished.
func (e *Enrollment) CompletedVideoCount() int {
	n := 0
	for _, entry := range e.Watched {
		if entry.Completed {
			n++
		}
	}
	return n
}

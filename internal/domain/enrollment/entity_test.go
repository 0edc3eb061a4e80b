package enrollment

import (
	"testing"

	"github.com/edulearn/edulearn-platform/internal/domain/course"
	"github.com/edulearn/edulearn-platform/internal/domain/shared"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCourse(t *testing.T, durations ...int) *course.Course {
	t.Helper()
	videos := make([]course.Video, len(durations))
	for i, d := range durations {
		videos[i] = course.Video{
			ID:              shared.VideoID(uuid.New().String()),
			Title:           "Lecture",
			DurationSeconds: d,
			Position:        i,
		}
	}
	c, err := course.NewCourse(
		shared.CourseID(uuid.New().String()),
		"Go Fundamentals", "desc", "programming",
		shared.UserID(uuid.New().String()),
		shared.NewMoneyFromInt(100),
		videos,
	)
	require.NoError(t, err)
	return c
}

func newTestEnrollment(c *course.Course) *Enrollment {
	return NewEnrollment(uuid.New().String(), shared.UserID(uuid.New().String()), c.ID, "TXN-"+uuid.New().String())
}

func TestRecordWatch_ClampsToDuration(t *testing.T) {
	c := newTestCourse(t, 300)
	e := newTestEnrollment(c)

	err := e.RecordWatch(c, c.Videos[0].ID, 9999, false)
	require.NoError(t, err)

	assert.Equal(t, 300, e.Watched[c.Videos[0].ID].WatchedSeconds)
	assert.True(t, e.Watched[c.Videos[0].ID].Completed)
}

func TestRecordWatch_NegativeTreatedAsZero(t *testing.T) {
	c := newTestCourse(t, 300)
	e := newTestEnrollment(c)

	err := e.RecordWatch(c, c.Videos[0].ID, -50, false)
	require.NoError(t, err)

	assert.Equal(t, 0, e.Watched[c.Videos[0].ID].WatchedSeconds)
	assert.False(t, e.Watched[c.Videos[0].ID].Completed)
}

func TestRecordWatch_HighWaterMark(t *testing.T) {
	c := newTestCourse(t, 300)
	e := newTestEnrollment(c)

	require.NoError(t, e.RecordWatch(c, c.Videos[0].ID, 200, false))
	require.NoError(t, e.RecordWatch(c, c.Videos[0].ID, 100, false))

	assert.Equal(t, 200, e.Watched[c.Videos[0].ID].WatchedSeconds)
}

func TestRecordWatch_CompletionThreshold(t *testing.T) {
	c := newTestCourse(t, 100)
	e := newTestEnrollment(c)

	require.NoError(t, e.RecordWatch(c, c.Videos[0].ID, 94, false))
	assert.False(t, e.Watched[c.Videos[0].ID].Completed)
	assert.Equal(t, StatusInProgress, e.Status)

	require.NoError(t, e.RecordWatch(c, c.Videos[0].ID, 95, false))
	assert.True(t, e.Watched[c.Videos[0].ID].Completed)
	assert.Equal(t, StatusCompleted, e.Status)
	require.NotNil(t, e.CompletedAt)
}

func TestRecordWatch_PlayerReportedCompletion(t *testing.T) {
	c := newTestCourse(t, 100)
	e := newTestEnrollment(c)

	// The player's own finished signal completes the video even though
	// the position sits below the 95% threshold.
	require.NoError(t, e.RecordWatch(c, c.Videos[0].ID, 90, true))
	assert.True(t, e.Watched[c.Videos[0].ID].Completed)
	assert.Equal(t, 90, e.Watched[c.Videos[0].ID].WatchedSeconds)
	assert.Equal(t, StatusCompleted, e.Status)
	require.NotNil(t, e.CompletedAt)

	// A later report without the flag does not clear completion.
	require.NoError(t, e.RecordWatch(c, c.Videos[0].ID, 10, false))
	assert.True(t, e.Watched[c.Videos[0].ID].Completed)
	assert.Equal(t, StatusCompleted, e.Status)
}

func TestRecordWatch_CompletionIsSticky(t *testing.T) {
	c := newTestCourse(t, 100)
	e := newTestEnrollment(c)

	require.NoError(t, e.RecordWatch(c, c.Videos[0].ID, 95, false))
	require.True(t, e.Watched[c.Videos[0].ID].Completed)

	// A lower later report neither lowers the mark nor clears completion.
	require.NoError(t, e.RecordWatch(c, c.Videos[0].ID, 10, false))
	assert.True(t, e.Watched[c.Videos[0].ID].Completed)
	assert.Equal(t, 95, e.Watched[c.Videos[0].ID].WatchedSeconds)
}

func TestRecordWatch_ProgressRounding(t *testing.T) {
	c := newTestCourse(t, 100, 200)
	e := newTestEnrollment(c)

	// 50 of 300 -> 16.66% -> rounds to 17.
	require.NoError(t, e.RecordWatch(c, c.Videos[0].ID, 50, false))
	assert.Equal(t, 17, e.Progress.Int())

	// 150 of 300 -> exactly 50.
	require.NoError(t, e.RecordWatch(c, c.Videos[1].ID, 100, false))
	assert.Equal(t, 50, e.Progress.Int())
}

func TestRecordWatch_AllVideosCompleted(t *testing.T) {
	c := newTestCourse(t, 100, 100, 100)
	e := newTestEnrollment(c)

	require.NoError(t, e.RecordWatch(c, c.Videos[0].ID, 100, false))
	require.NoError(t, e.RecordWatch(c, c.Videos[1].ID, 100, false))
	assert.Equal(t, StatusInProgress, e.Status)
	assert.Equal(t, 2, e.CompletedVideoCount())

	require.NoError(t, e.RecordWatch(c, c.Videos[2].ID, 96, false))
	assert.Equal(t, StatusCompleted, e.Status)
	assert.Equal(t, 3, e.CompletedVideoCount())
}

func TestRecordWatch_CompletedIsFinalAfterCourseGrows(t *testing.T) {
	c := newTestCourse(t, 100)
	e := newTestEnrollment(c)
	require.NoError(t, e.RecordWatch(c, c.Videos[0].ID, 100, false))
	require.Equal(t, StatusCompleted, e.Status)

	// Instructor adds a second video later; progress drops but the
	// enrollment stays completed.
	grown := newTestCourse(t, 100, 100)
	grown.Videos[0] = c.Videos[0]

	require.NoError(t, e.RecordWatch(grown, grown.Videos[1].ID, 10, false))
	assert.Equal(t, StatusCompleted, e.Status)
	assert.Equal(t, 55, e.Progress.Int())
}

func TestRecordWatch_UnknownVideo(t *testing.T) {
	c := newTestCourse(t, 100)
	e := newTestEnrollment(c)

	err := e.RecordWatch(c, shared.VideoID(uuid.New().String()), 50, false)
	require.Error(t, err)
	assert.True(t, shared.IsNotFound(err))
}

func TestNewEnrollment_Defaults(t *testing.T) {
	c := newTestCourse(t, 100)
	e := newTestEnrollment(c)

	assert.Equal(t, StatusInProgress, e.Status)
	assert.Equal(t, 0, e.Progress.Int())
	assert.Equal(t, 1, e.Version)
	assert.False(t, e.IsCompleted())
	assert.Nil(t, e.CompletedAt)
}

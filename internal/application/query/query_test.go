package query

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/edulearn/edulearn-platform/internal/domain/account"
	"github.com/edulearn/edulearn-platform/internal/domain/certificate"
	"github.com/edulearn/edulearn-platform/internal/domain/course"
	"github.com/edulearn/edulearn-platform/internal/domain/enrollment"
	"github.com/edulearn/edulearn-platform/internal/domain/shared"
	"github.com/edulearn/edulearn-platform/internal/infrastructure/persistence/memory"
	"github.com/edulearn/edulearn-platform/pkg/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeResolver struct{}

func (fakeResolver) Resolve(ctx context.Context, key string) (string, error) {
	return "https://cdn.example.com/" + key, nil
}

type fakeCache struct {
	data map[string][]byte
	hits int
}

func newFakeCache() *fakeCache { return &fakeCache{data: make(map[string][]byte)} }

func (c *fakeCache) Get(ctx context.Context, serial string) ([]byte, error) {
	if v, ok := c.data[serial]; ok {
		c.hits++
		return v, nil
	}
	return nil, nil
}

func (c *fakeCache) Set(ctx context.Context, serial string, payload []byte, ttl time.Duration) error {
	c.data[serial] = payload
	return nil
}

func (c *fakeCache) Delete(ctx context.Context, serial string) error {
	delete(c.data, serial)
	return nil
}

func seedCourse(t *testing.T, courses *memory.CourseStore, instructorID shared.UserID, price int64, durations ...int) *course.Course {
	t.Helper()
	videos := make([]course.Video, len(durations))
	for i, d := range durations {
		videos[i] = course.Video{
			ID:              shared.VideoID(uuid.New().String()),
			Title:           "Lecture",
			DurationSeconds: d,
			Position:        i,
			MediaKey:        "videos/lecture.mp4",
		}
	}
	c, err := course.NewCourse(shared.CourseID(uuid.New().String()),
		"Go Fundamentals", "desc", "programming", instructorID,
		shared.NewMoneyFromInt(price), videos)
	require.NoError(t, err)
	require.NoError(t, courses.Create(context.Background(), c))
	return c
}

func TestGetLearnerCourses_JoinsCatalog(t *testing.T) {
	ctx := context.Background()
	courses := memory.NewCourseStore()
	enrollments := memory.NewEnrollmentStore()

	instructorID := shared.UserID(uuid.New().String())
	learnerID := shared.UserID(uuid.New().String())
	c := seedCourse(t, courses, instructorID, 100, 300, 300)

	enr := enrollment.NewEnrollment(uuid.New().String(), learnerID, c.ID, "")
	require.NoError(t, enrollments.Create(ctx, enr))

	h := NewGetLearnerCoursesHandler(enrollments, courses)
	views, err := h.Handle(ctx, GetLearnerCoursesQuery{LearnerID: learnerID.String()})
	require.NoError(t, err)
	require.Len(t, views, 1)

	assert.Equal(t, "Go Fundamentals", views[0].Title)
	assert.Equal(t, 2, views[0].VideoCount)
	assert.Equal(t, 0, views[0].Progress)
	assert.Equal(t, enrollment.StatusInProgress, views[0].Status)
}

func TestGetCourseContent_RequiresEnrollment(t *testing.T) {
	ctx := context.Background()
	courses := memory.NewCourseStore()
	enrollments := memory.NewEnrollmentStore()
	c := seedCourse(t, courses, shared.UserID(uuid.New().String()), 100, 300)

	h := NewGetCourseContentHandler(enrollments, courses, fakeResolver{})
	_, err := h.Handle(ctx, GetCourseContentQuery{
		LearnerID: uuid.New().String(),
		CourseID:  c.ID.String(),
	})
	require.Error(t, err)
	assert.True(t, shared.IsAccessDenied(err))
}

func TestGetCourseContent_ResolvesMediaAndPositions(t *testing.T) {
	ctx := context.Background()
	courses := memory.NewCourseStore()
	enrollments := memory.NewEnrollmentStore()

	learnerID := shared.UserID(uuid.New().String())
	c := seedCourse(t, courses, shared.UserID(uuid.New().String()), 100, 300, 300)

	enr := enrollment.NewEnrollment(uuid.New().String(), learnerID, c.ID, "")
	require.NoError(t, enr.RecordWatch(c, c.Videos[0].ID, 150, false))
	require.NoError(t, enrollments.Create(ctx, enr))

	h := NewGetCourseContentHandler(enrollments, courses, fakeResolver{})
	view, err := h.Handle(ctx, GetCourseContentQuery{
		LearnerID: learnerID.String(),
		CourseID:  c.ID.String(),
	})
	require.NoError(t, err)

	require.Len(t, view.Videos, 2)
	assert.Equal(t, "https://cdn.example.com/videos/lecture.mp4", view.Videos[0].URL)
	assert.Equal(t, 150, view.Videos[0].WatchedSeconds)
	assert.False(t, view.Videos[0].Completed)
	assert.Equal(t, 0, view.Videos[1].WatchedSeconds)
	assert.Equal(t, 25, view.Progress)
}

func TestVerifyCertificate_ValidRevokedAndUnknown(t *testing.T) {
	ctx := context.Background()
	certificates := memory.NewCertificateStore()
	log := logger.New(io.Discard, logger.LevelError)

	learnerID := shared.UserID(uuid.New().String())
	courseID := shared.CourseID(uuid.New().String())
	cert := certificate.NewCertificate(learnerID, courseID, "Aliya Learner", "Go Fundamentals", "Dana Instructor")
	require.NoError(t, certificates.Create(ctx, cert))

	h := NewVerifyCertificateHandler(certificates, nil, 0, log)

	view, err := h.Handle(ctx, VerifyCertificateQuery{Serial: cert.Serial})
	require.NoError(t, err)
	assert.True(t, view.Valid)
	assert.Equal(t, "Aliya Learner", view.LearnerName)
	assert.Equal(t, "Go Fundamentals", view.CourseTitle)
	assert.Equal(t, "Dana Instructor", view.InstructorName)

	cert.Revoke()
	require.NoError(t, certificates.Update(ctx, cert))
	view, err = h.Handle(ctx, VerifyCertificateQuery{Serial: cert.Serial})
	require.NoError(t, err)
	assert.False(t, view.Valid)

	_, err = h.Handle(ctx, VerifyCertificateQuery{Serial: "EDU-" + uuid.New().String()})
	require.Error(t, err)
	assert.True(t, shared.IsNotFound(err))
}

func TestVerifyCertificate_UsesCache(t *testing.T) {
	ctx := context.Background()
	certificates := memory.NewCertificateStore()
	cache := newFakeCache()
	log := logger.New(io.Discard, logger.LevelError)

	cert := certificate.NewCertificate(
		shared.UserID(uuid.New().String()), shared.CourseID(uuid.New().String()),
		"Aliya Learner", "Go Fundamentals", "Dana Instructor")
	require.NoError(t, certificates.Create(ctx, cert))

	h := NewVerifyCertificateHandler(certificates, cache, time.Minute, log)

	_, err := h.Handle(ctx, VerifyCertificateQuery{Serial: cert.Serial})
	require.NoError(t, err)
	assert.Equal(t, 0, cache.hits)

	view, err := h.Handle(ctx, VerifyCertificateQuery{Serial: cert.Serial})
	require.NoError(t, err)
	assert.Equal(t, 1, cache.hits)
	assert.True(t, view.Valid)

	h.Invalidate(ctx, cert.Serial)
	_, err = h.Handle(ctx, VerifyCertificateQuery{Serial: cert.Serial})
	require.NoError(t, err)
	assert.Equal(t, 1, cache.hits)
}

func TestGetInstructorEarnings(t *testing.T) {
	ctx := context.Background()
	users := memory.NewUserStore()
	courses := memory.NewCourseStore()
	enrollments := memory.NewEnrollmentStore()

	instructor := account.NewInstructor(
		shared.UserID(uuid.New().String()), "Dana", "dana", "d@example.com",
		shared.AccountNumber("444555666"))
	instructor.Instructor.TotalEarnings = shared.NewMoneyFromInt(160)
	require.NoError(t, users.Create(ctx, instructor))

	c := seedCourse(t, courses, instructor.ID, 100, 300)
	for i := 0; i < 2; i++ {
		enr := enrollment.NewEnrollment(uuid.New().String(), shared.UserID(uuid.New().String()), c.ID, "")
		require.NoError(t, enrollments.Create(ctx, enr))
	}

	h := NewGetInstructorEarningsHandler(users, courses, enrollments)
	view, err := h.Handle(ctx, GetInstructorEarningsQuery{InstructorID: instructor.ID.String()})
	require.NoError(t, err)

	assert.Equal(t, "160", view.TotalEarnings)
	require.Len(t, view.Courses, 1)
	assert.Equal(t, 2, view.Courses[0].EnrollmentCount)
	assert.Equal(t, "160", view.Courses[0].Revenue)
}

func TestGetPlatformStats(t *testing.T) {
	ctx := context.Background()
	users := memory.NewUserStore()
	courses := memory.NewCourseStore()
	txns := memory.NewTransactionStore()

	for i := 0; i < 3; i++ {
		l := account.NewLearner(shared.UserID(uuid.New().String()), "L", "l", "l@example.com", shared.AccountNumber("100000001"))
		require.NoError(t, users.Create(ctx, l))
	}
	instructor := account.NewInstructor(shared.UserID(uuid.New().String()), "D", "d", "d@example.com", shared.AccountNumber("100000002"))
	require.NoError(t, users.Create(ctx, instructor))
	seedCourse(t, courses, instructor.ID, 100, 300)

	h := NewGetPlatformStatsHandler(users, courses, txns, nil)
	view, err := h.Handle(ctx, GetPlatformStatsQuery{})
	require.NoError(t, err)

	assert.Equal(t, 3, view.LearnerCount)
	assert.Equal(t, 1, view.InstructorCount)
	assert.Equal(t, 1, view.CourseCount)
	assert.Empty(t, view.MonthlyRevenue)
}

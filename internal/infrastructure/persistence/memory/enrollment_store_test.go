package memory

import (
	"context"
	"testing"

	"github.com/edulearn/edulearn-platform/internal/domain/enrollment"
	"github.com/edulearn/edulearn-platform/internal/domain/shared"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func storeEnrollment(t *testing.T, s *EnrollmentStore) *enrollment.Enrollment {
	t.Helper()
	e := enrollment.NewEnrollment(uuid.New().String(),
		shared.UserID(uuid.New().String()), shared.CourseID(uuid.New().String()), "")
	require.NoError(t, s.Create(context.Background(), e))
	return e
}

func TestEnrollmentStore_UpdateBumpsVersion(t *testing.T) {
	ctx := context.Background()
	s := NewEnrollmentStore()
	seed := storeEnrollment(t, s)

	enr, err := s.GetByLearnerAndCourse(ctx, seed.LearnerID, seed.CourseID)
	require.NoError(t, err)
	require.Equal(t, 1, enr.Version)

	require.NoError(t, s.Update(ctx, enr))
	assert.Equal(t, 2, enr.Version)

	stored, err := s.GetByLearnerAndCourse(ctx, seed.LearnerID, seed.CourseID)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.Version)
}

func TestEnrollmentStore_StaleVersionUpdateRejected(t *testing.T) {
	ctx := context.Background()
	s := NewEnrollmentStore()
	seed := storeEnrollment(t, s)

	first, err := s.GetByLearnerAndCourse(ctx, seed.LearnerID, seed.CourseID)
	require.NoError(t, err)
	second, err := s.GetByLearnerAndCourse(ctx, seed.LearnerID, seed.CourseID)
	require.NoError(t, err)

	require.NoError(t, s.Update(ctx, second))

	// The first copy still carries the old version; its write must come
	// back retryable so the caller reloads instead of clobbering.
	err = s.Update(ctx, first)
	require.Error(t, err)
	assert.True(t, shared.IsRetryable(err))
	assert.ErrorIs(t, err, shared.ErrConcurrentModification)

	stored, err := s.GetByLearnerAndCourse(ctx, seed.LearnerID, seed.CourseID)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.Version)
}

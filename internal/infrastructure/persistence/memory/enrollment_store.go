package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/edulearn/edulearn-platform/internal/domain/enrollment"
	"github.com/edulearn/edulearn-platform/internal/domain/shared"
)

type pairKey struct {
	learner shared.UserID
	course  shared.CourseID
}

// EnrollmentStore keeps enrollments in memory with optimistic locking on
// the Version field.
type EnrollmentStore struct {
	mu     sync.RWMutex
	byID   map[string]*enrollment.Enrollment
	byPair map[pairKey]string
}

// NewEnrollmentStore creates an empty store.
func NewEnrollmentStore() *EnrollmentStore {
	return &EnrollmentStore{
		byID:   make(map[string]*enrollment.Enrollment),
		byPair: make(map[pairKey]string),
	}
}

// Create stores a new enrollment, enforcing (learner, course) uniqueness.
func (s *EnrollmentStore) Create(ctx context.Context, e *enrollment.Enrollment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := pairKey{learner: e.LearnerID, course: e.CourseID}
	if _, exists := s.byPair[key]; exists {
		return shared.ErrEnrollmentExists
	}
	s.byID[e.ID] = cloneEnrollment(e)
	s.byPair[key] = e.ID
	return nil
}

// GetByLearnerAndCourse retrieves an enrollment copy.
func (s *EnrollmentStore) GetByLearnerAndCourse(ctx context.Context, learnerID shared.UserID, courseID shared.CourseID) (*enrollment.Enrollment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byPair[pairKey{learner: learnerID, course: courseID}]
	if !ok {
		return nil, shared.ErrEnrollmentNotFound
	}
	return cloneEnrollment(s.byID[id]), nil
}

// ListByLearner returns the learner's enrollments, newest first.
func (s *EnrollmentStore) ListByLearner(ctx context.Context, learnerID shared.UserID, p shared.Pagination) ([]*enrollment.Enrollment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*enrollment.Enrollment
	for _, e := range s.byID {
		if e.LearnerID == learnerID {
			out = append(out, cloneEnrollment(e))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EnrolledAt.After(out[j].EnrolledAt) })
	return paginate(out, p), nil
}

// CountByCourse counts enrollments in a course.
func (s *EnrollmentStore) CountByCourse(ctx context.Context, courseID shared.CourseID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, e := range s.byID {
		if e.CourseID == courseID {
			n++
		}
	}
	return n, nil
}

// Update persists progress changes if the caller's version still matches
// the stored one, then bumps the version.
func (s *EnrollmentStore) Update(ctx context.Context, e *enrollment.Enrollment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.byID[e.ID]
	if !ok {
		return shared.ErrEnrollmentNotFound
	}
	if stored.Version != e.Version {
		return shared.WrapError("enrollment", "Update", shared.ErrConcurrentModification, "enrollment version changed", nil)
	}
	cp := cloneEnrollment(e)
	cp.Version = e.Version + 1
	s.byID[e.ID] = cp
	e.Version = cp.Version
	return nil
}

// Delete removes an enrollment. Compensation path only.
func (s *EnrollmentStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.byID[id]
	if !ok {
		return shared.ErrEnrollmentNotFound
	}
	delete(s.byPair, pairKey{learner: e.LearnerID, course: e.CourseID})
	delete(s.byID, id)
	return nil
}

func cloneEnrollment(e *enrollment.Enrollment) *enrollment.Enrollment {
	cp := *e
	cp.Watched = make(map[shared.VideoID]enrollment.WatchEntry, len(e.Watched))
	for k, v := range e.Watched {
		cp.Watched[k] = v
	}
	if e.CompletedAt != nil {
		t := *e.CompletedAt
		cp.CompletedAt = &t
	}
	return &cp
}

package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/edulearn/edulearn-platform/internal/domain/course"
	"github.com/edulearn/edulearn-platform/internal/domain/shared"
)

// CourseStore keeps the course catalog in memory.
type CourseStore struct {
	mu      sync.RWMutex
	courses map[shared.CourseID]*course.Course
}

// NewCourseStore creates an empty store.
func NewCourseStore() *CourseStore {
	return &CourseStore{courses: make(map[shared.CourseID]*course.Course)}
}

// Create stores a new course.
func (s *CourseStore) Create(ctx context.Context, c *course.Course) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.courses[c.ID]; exists {
		return shared.NewDomainError("course", "Create", shared.ErrAlreadyExists, "course already exists")
	}
	s.courses[c.ID] = cloneCourse(c)
	return nil
}

// GetByID retrieves a course copy.
func (s *CourseStore) GetByID(ctx context.Context, id shared.CourseID) (*course.Course, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.courses[id]
	if !ok {
		return nil, shared.ErrCourseNotFound
	}
	return cloneCourse(c), nil
}

// GetByIDs retrieves multiple courses, skipping missing IDs.
func (s *CourseStore) GetByIDs(ctx context.Context, ids []shared.CourseID) ([]*course.Course, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*course.Course, 0, len(ids))
	for _, id := range ids {
		if c, ok := s.courses[id]; ok {
			out = append(out, cloneCourse(c))
		}
	}
	return out, nil
}

// ListByInstructor returns the instructor's courses, newest first.
func (s *CourseStore) ListByInstructor(ctx context.Context, instructorID shared.UserID, p shared.Pagination) ([]*course.Course, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*course.Course
	for _, c := range s.courses {
		if c.InstructorID == instructorID {
			out = append(out, cloneCourse(c))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return paginate(out, p), nil
}

// List returns catalog courses, newest first.
func (s *CourseStore) List(ctx context.Context, p shared.Pagination) ([]*course.Course, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*course.Course, 0, len(s.courses))
	for _, c := range s.courses {
		out = append(out, cloneCourse(c))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return paginate(out, p), nil
}

// Count returns the catalog size.
func (s *CourseStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.courses), nil
}

func cloneCourse(c *course.Course) *course.Course {
	cp := *c
	cp.Videos = append([]course.Video(nil), c.Videos...)
	cp.Resources = append([]course.Resource(nil), c.Resources...)
	return &cp
}

package redis

import (
	"context"

	"github.com/edulearn/edulearn-platform/internal/domain/course"
	"github.com/edulearn/edulearn-platform/internal/domain/shared"
)

// CachedCourseRepository is a read-through decorator around a
// course.Repository. Single-course lookups are the hot path of every
// watch report, so GetByID and GetByIDs consult the cache first; list
// queries always hit the backing store. Course content is immutable
// after creation, so entries never need invalidation beyond their TTL.
type CachedCourseRepository struct {
	inner course.Repository
	cache *Cache
}

// NewCachedCourseRepository wraps repo with a Redis read-through cache.
func NewCachedCourseRepository(repo course.Repository, cache *Cache) *CachedCourseRepository {
	return &CachedCourseRepository{inner: repo, cache: cache}
}

// Create stores a course and primes the cache.
func (r *CachedCourseRepository) Create(ctx context.Context, c *course.Course) error {
	if err := r.inner.Create(ctx, c); err != nil {
		return err
	}
	_ = r.cache.Set(ctx, CourseKey(c.ID.String()), c, TTLCourse)
	return nil
}

// GetByID retrieves a course, cache first.
func (r *CachedCourseRepository) GetByID(ctx context.Context, id shared.CourseID) (*course.Course, error) {
	// Cache trouble is not course trouble: any Get error, miss or
	// otherwise, falls through to the backing store.
	var cached course.Course
	if err := r.cache.Get(ctx, CourseKey(id.String()), &cached); err == nil {
		return &cached, nil
	}

	c, err := r.inner.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	_ = r.cache.Set(ctx, CourseKey(id.String()), c, TTLCourse)
	return c, nil
}

// GetByIDs retrieves multiple courses, serving hits from the cache and
// fetching only the misses from the backing store.
func (r *CachedCourseRepository) GetByIDs(ctx context.Context, ids []shared.CourseID) ([]*course.Course, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	out := make([]*course.Course, 0, len(ids))
	var misses []shared.CourseID
	for _, id := range ids {
		var cached course.Course
		if err := r.cache.Get(ctx, CourseKey(id.String()), &cached); err == nil {
			out = append(out, &cached)
			continue
		}
		misses = append(misses, id)
	}
	if len(misses) == 0 {
		return out, nil
	}

	fetched, err := r.inner.GetByIDs(ctx, misses)
	if err != nil {
		return nil, err
	}
	for _, c := range fetched {
		_ = r.cache.Set(ctx, CourseKey(c.ID.String()), c, TTLCourse)
		out = append(out, c)
	}
	return out, nil
}

// ListByInstructor delegates to the backing store.
func (r *CachedCourseRepository) ListByInstructor(ctx context.Context, instructorID shared.UserID, p shared.Pagination) ([]*course.Course, error) {
	return r.inner.ListByInstructor(ctx, instructorID, p)
}

// List delegates to the backing store.
func (r *CachedCourseRepository) List(ctx context.Context, p shared.Pagination) ([]*course.Course, error) {
	return r.inner.List(ctx, p)
}

// Count delegates to the backing store.
func (r *CachedCourseRepository) Count(ctx context.Context) (int, error) {
	return r.inner.Count(ctx)
}

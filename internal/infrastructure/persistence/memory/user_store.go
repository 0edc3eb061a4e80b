package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/edulearn/edulearn-platform/internal/domain/account"
	"github.com/edulearn/edulearn-platform/internal/domain/shared"
)

// UserStore keeps platform users in memory.
type UserStore struct {
	mu    sync.RWMutex
	users map[shared.UserID]*account.User
}

// NewUserStore creates an empty store.
func NewUserStore() *UserStore {
	return &UserStore{users: make(map[shared.UserID]*account.User)}
}

// Create stores a new user.
func (s *UserStore) Create(ctx context.Context, u *account.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[u.ID]; exists {
		return shared.NewDomainError("account", "CreateUser", shared.ErrAlreadyExists, "user already exists")
	}
	s.users[u.ID] = cloneUser(u)
	return nil
}

// GetByID retrieves a user copy.
func (s *UserStore) GetByID(ctx context.Context, id shared.UserID) (*account.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, shared.ErrUserNotFound
	}
	return cloneUser(u), nil
}

// Update persists user changes.
func (s *UserStore) Update(ctx context.Context, u *account.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.ID]; !ok {
		return shared.ErrUserNotFound
	}
	s.users[u.ID] = cloneUser(u)
	return nil
}

// ListByRole returns users with the given role, ordered by creation time.
func (s *UserStore) ListByRole(ctx context.Context, role account.Role, p shared.Pagination) ([]*account.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*account.User
	for _, u := range s.users {
		if u.Role == role {
			out = append(out, cloneUser(u))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return paginate(out, p), nil
}

// CountByRole counts users with the given role.
func (s *UserStore) CountByRole(ctx context.Context, role account.Role) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, u := range s.users {
		if u.Role == role {
			n++
		}
	}
	return n, nil
}

// adjustEarnings applies an earnings delta to an instructor under the
// store lock. Called by the settlement store inside its unit of work.
func (s *UserStore) adjustEarnings(id shared.UserID, delta shared.Money) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return shared.ErrUserNotFound
	}
	profile, ok := u.AsInstructor()
	if !ok {
		return shared.NewDomainError("account", "AdjustEarnings", shared.ErrInvalidState, "user is not an instructor")
	}
	profile.TotalEarnings = profile.TotalEarnings.Add(delta)
	return nil
}

func cloneUser(u *account.User) *account.User {
	cp := *u
	if u.Learner != nil {
		l := *u.Learner
		cp.Learner = &l
	}
	if u.Instructor != nil {
		i := *u.Instructor
		i.CoursesTaught = append([]shared.CourseID(nil), u.Instructor.CoursesTaught...)
		cp.Instructor = &i
	}
	if u.Admin != nil {
		a := *u.Admin
		cp.Admin = &a
	}
	return &cp
}

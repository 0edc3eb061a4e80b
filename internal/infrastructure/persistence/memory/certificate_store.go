package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/edulearn/edulearn-platform/internal/domain/certificate"
	"github.com/edulearn/edulearn-platform/internal/domain/shared"
)

// CertificateStore keeps issued certificates in memory, enforcing both
// serial and (learner, course) uniqueness.
type CertificateStore struct {
	mu       sync.RWMutex
	bySerial map[string]*certificate.Certificate
	byPair   map[pairKey]string
}

// NewCertificateStore creates an empty store.
func NewCertificateStore() *CertificateStore {
	return &CertificateStore{
		bySerial: make(map[string]*certificate.Certificate),
		byPair:   make(map[pairKey]string),
	}
}

// Create stores a new certificate.
func (s *CertificateStore) Create(ctx context.Context, c *certificate.Certificate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := pairKey{learner: c.LearnerID, course: c.CourseID}
	if _, exists := s.byPair[key]; exists {
		return shared.ErrCertificateDuplicate
	}
	if _, exists := s.bySerial[c.Serial]; exists {
		return shared.ErrCertificateDuplicate
	}
	cp := *c
	s.bySerial[c.Serial] = &cp
	s.byPair[key] = c.Serial
	return nil
}

// GetBySerial retrieves a certificate copy by its public serial.
func (s *CertificateStore) GetBySerial(ctx context.Context, serial string) (*certificate.Certificate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.bySerial[serial]
	if !ok {
		return nil, shared.ErrCertificateNotFound
	}
	cp := *c
	return &cp, nil
}

// GetByLearnerAndCourse retrieves the pair's certificate.
func (s *CertificateStore) GetByLearnerAndCourse(ctx context.Context, learnerID shared.UserID, courseID shared.CourseID) (*certificate.Certificate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	serial, ok := s.byPair[pairKey{learner: learnerID, course: courseID}]
	if !ok {
		return nil, shared.ErrCertificateNotFound
	}
	cp := *s.bySerial[serial]
	return &cp, nil
}

// ListByLearner returns the learner's certificates, newest first.
func (s *CertificateStore) ListByLearner(ctx context.Context, learnerID shared.UserID, p shared.Pagination) ([]*certificate.Certificate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*certificate.Certificate
	for _, c := range s.bySerial {
		if c.LearnerID == learnerID {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].IssuedAt.After(out[j].IssuedAt) })
	return paginate(out, p), nil
}

// Update persists revocation changes.
func (s *CertificateStore) Update(ctx context.Context, c *certificate.Certificate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.bySerial[c.Serial]; !ok {
		return shared.ErrCertificateNotFound
	}
	cp := *c
	s.bySerial[c.Serial] = &cp
	return nil
}

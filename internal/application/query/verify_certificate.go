package query

import (
	"context"
	"encoding/json"
	"time"

	"github.com/edulearn/edulearn-platform/internal/domain/certificate"
	"github.com/edulearn/edulearn-platform/internal/domain/shared"
	"github.com/edulearn/edulearn-platform/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// VERIFY CERTIFICATE QUERY
// Public verification endpoint: no authentication, serial in, validity
// and denormalized names out. Hot path, so results are cached.
// ══════════════════════════════════════════════════════════════════════════════

// VerificationCache caches verification payloads keyed by serial.
// Implementations must tolerate being unavailable; a cache error only
// means a repository round trip.
type VerificationCache interface {
	Get(ctx context.Context, serial string) ([]byte, error)
	Set(ctx context.Context, serial string, payload []byte, ttl time.Duration) error
	Delete(ctx context.Context, serial string) error
}

// VerifyCertificateQuery requests verification of one serial.
type VerifyCertificateQuery struct {
	Serial string
}

// CertificateVerificationView is the public verification payload.
type CertificateVerificationView struct {
	Serial         string    `json:"serial"`
	Valid          bool      `json:"valid"`
	LearnerName    string    `json:"learner_name"`
	CourseTitle    string    `json:"course_title"`
	InstructorName string    `json:"instructor_name"`
	IssuedAt       time.Time `json:"issued_at"`
}

// VerifyCertificateHandler handles the query.
type VerifyCertificateHandler struct {
	certificates certificate.Repository
	cache        VerificationCache
	cacheTTL     time.Duration
	log          *logger.Logger
}

// NewVerifyCertificateHandler creates the handler. cache may be nil.
func NewVerifyCertificateHandler(certificates certificate.Repository, cache VerificationCache, cacheTTL time.Duration, log *logger.Logger) *VerifyCertificateHandler {
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &VerifyCertificateHandler{
		certificates: certificates,
		cache:        cache,
		cacheTTL:     cacheTTL,
		log:          log.With(logger.String("component", "verify_certificate")),
	}
}

// Handle executes the query. Unknown serials return shared.ErrNotFound;
// revoked certificates return a payload with Valid=false.
func (h *VerifyCertificateHandler) Handle(ctx context.Context, q VerifyCertificateQuery) (*CertificateVerificationView, error) {
	if q.Serial == "" {
		return nil, shared.NewDomainError("query", "VerifyCertificate", shared.ErrEmptyValue, "serial is required")
	}

	if h.cache != nil {
		if raw, err := h.cache.Get(ctx, q.Serial); err == nil && raw != nil {
			var view CertificateVerificationView
			if err := json.Unmarshal(raw, &view); err == nil {
				return &view, nil
			}
		}
	}

	cert, err := h.certificates.GetBySerial(ctx, q.Serial)
	if err != nil {
		return nil, err
	}

	view := &CertificateVerificationView{
		Serial:         cert.Serial,
		Valid:          cert.IsValid(),
		LearnerName:    cert.LearnerName,
		CourseTitle:    cert.CourseTitle,
		InstructorName: cert.InstructorName,
		IssuedAt:       cert.IssuedAt,
	}

	if h.cache != nil {
		if raw, err := json.Marshal(view); err == nil {
			if err := h.cache.Set(ctx, q.Serial, raw, h.cacheTTL); err != nil {
				h.log.Debug("verification cache write failed", logger.Err(err))
			}
		}
	}
	return view, nil
}

// Invalidate drops a serial from the cache. Called after revocation so a
// stale "valid" answer does not outlive the TTL.
func (h *VerifyCertificateHandler) Invalidate(ctx context.Context, serial string) {
	if h.cache == nil {
		return
	}
	if err := h.cache.Delete(ctx, serial); err != nil {
		h.log.Debug("verification cache invalidation failed", logger.Err(err))
	}
}

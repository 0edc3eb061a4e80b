package query

import (
	"context"
	"time"

	"github.com/edulearn/edulearn-platform/internal/domain/certificate"
	"github.com/edulearn/edulearn-platform/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET LEARNER CERTIFICATES QUERY
// ══════════════════════════════════════════════════════════════════════════════

// GetLearnerCertificatesQuery requests a learner's certificates.
type GetLearnerCertificatesQuery struct {
	LearnerID string
	Page      int
	PageSize  int
}

// CertificateView is one certificate row. Revoked certificates stay in
// the listing, flagged.
type CertificateView struct {
	Serial      string    `json:"serial"`
	CourseID    string    `json:"course_id"`
	CourseTitle string    `json:"course_title"`
	IssuedAt    time.Time `json:"issued_at"`
	Revoked     bool      `json:"revoked"`
}

// GetLearnerCertificatesHandler handles the query.
type GetLearnerCertificatesHandler struct {
	certificates certificate.Repository
}

// NewGetLearnerCertificatesHandler creates the handler.
func NewGetLearnerCertificatesHandler(certificates certificate.Repository) *GetLearnerCertificatesHandler {
	return &GetLearnerCertificatesHandler{certificates: certificates}
}

// Handle executes the query.
func (h *GetLearnerCertificatesHandler) Handle(ctx context.Context, q GetLearnerCertificatesQuery) ([]CertificateView, error) {
	learnerID, err := shared.NewUserID(q.LearnerID)
	if err != nil {
		return nil, err
	}

	certs, err := h.certificates.ListByLearner(ctx, learnerID, shared.NewPagination(q.Page, q.PageSize))
	if err != nil {
		return nil, err
	}

	views := make([]CertificateView, 0, len(certs))
	for _, c := range certs {
		views = append(views, CertificateView{
			Serial:      c.Serial,
			CourseID:    c.CourseID.String(),
			CourseTitle: c.CourseTitle,
			IssuedAt:    c.IssuedAt,
			Revoked:     c.Revoked,
		})
	}
	return views, nil
}

package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/edulearn/edulearn-platform/internal/application/command"
	"github.com/edulearn/edulearn-platform/internal/application/query"
	"github.com/edulearn/edulearn-platform/internal/domain/certificate"
	"github.com/edulearn/edulearn-platform/internal/domain/shared"
	"github.com/edulearn/edulearn-platform/pkg/logger"
)

// CertificateRenderer produces the downloadable PDF for a certificate.
type CertificateRenderer interface {
	Render(ctx context.Context, cert *certificate.Certificate) ([]byte, error)
}

// ══════════════════════════════════════════════════════════════════════════════
// ERROR MAPPING
// ══════════════════════════════════════════════════════════════════════════════

// writeDomainError maps domain error kinds onto HTTP status codes.
func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case shared.IsValidation(err):
		writeJSONError(w, http.StatusBadRequest, "validation_failed", err.Error())
	case shared.IsAuthentication(err):
		writeJSONError(w, http.StatusUnauthorized, "authentication_failed", "Account secret is incorrect")
	case shared.IsInsufficientFunds(err):
		writeJSONError(w, http.StatusPaymentRequired, "insufficient_funds", "Account balance does not cover the amount")
	case shared.IsAccessDenied(err):
		writeJSONError(w, http.StatusForbidden, "access_denied", "Enrollment required for this course")
	case shared.IsAlreadyEnrolled(err):
		writeJSONError(w, http.StatusConflict, "already_enrolled", "Learner already holds an enrollment for this course")
	case shared.IsAlreadyExists(err):
		writeJSONError(w, http.StatusConflict, "already_exists", err.Error())
	case shared.IsNotFound(err):
		writeJSONError(w, http.StatusNotFound, "not_found", err.Error())
	case shared.IsRetryable(err):
		writeJSONError(w, http.StatusConflict, "concurrent_modification", "The resource changed underneath the request, retry")
	default:
		s.log.Error("unhandled request error",
			logger.String("path", r.URL.Path),
			logger.String("request_id", getRequestID(r.Context())),
			logger.Err(err))
		writeJSONError(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
	}
}

func decodeBody(r *http.Request, dest interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dest); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH AND STATUS
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeJSONError(w, http.StatusNotFound, "not_found", "Unknown route")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"service": "edulearn-platform",
		"status":  "ok",
	})
}

func (s *Server) handleLive(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.deps.HealthChecker == nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
		return
	}

	checks := s.deps.HealthChecker.Check(r.Context())
	status := http.StatusOK
	detail := make(map[string]string, len(checks))
	for name, err := range checks {
		if err != nil {
			status = http.StatusServiceUnavailable
			detail[name] = err.Error()
		} else {
			detail[name] = "ok"
		}
	}
	writeJSON(w, status, map[string]interface{}{
		"status": map[bool]string{true: "healthy", false: "degraded"}[status == http.StatusOK],
		"checks": detail,
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// COURSES
// ══════════════════════════════════════════════════════════════════════════════

type createCourseRequest struct {
	InstructorID string `json:"instructor_id"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	Category     string `json:"category"`
	Price        string `json:"price"`
	Videos       []struct {
		Title           string `json:"title"`
		DurationSeconds int    `json:"duration_seconds"`
		MediaKey        string `json:"media_key"`
	} `json:"videos"`
	Resources []struct {
		Title    string `json:"title"`
		Kind     string `json:"kind"`
		MediaKey string `json:"media_key"`
	} `json:"resources"`
}

func (s *Server) handleCreateCourse(w http.ResponseWriter, r *http.Request) {
	var req createCourseRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}

	cmd := command.CreateCourseCommand{
		InstructorID:  req.InstructorID,
		Title:         req.Title,
		Description:   req.Description,
		Category:      req.Category,
		Price:         req.Price,
		CorrelationID: getRequestID(r.Context()),
	}
	for _, v := range req.Videos {
		cmd.Videos = append(cmd.Videos, command.VideoInput{
			Title:           v.Title,
			DurationSeconds: v.DurationSeconds,
			MediaKey:        v.MediaKey,
		})
	}
	for _, res := range req.Resources {
		cmd.Resources = append(cmd.Resources, command.ResourceInput{
			Title:    res.Title,
			Kind:     res.Kind,
			MediaKey: res.MediaKey,
		})
	}

	result, err := s.deps.CreateCourse.Handle(r.Context(), cmd)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

// ══════════════════════════════════════════════════════════════════════════════
// ENROLLMENT AND PROGRESS
// ══════════════════════════════════════════════════════════════════════════════

type enrollRequest struct {
	LearnerID    string `json:"learner_id"`
	CourseID     string `json:"course_id"`
	PayerAccount string `json:"payer_account"`
	Secret       string `json:"secret"`
}

func (s *Server) handleEnroll(w http.ResponseWriter, r *http.Request) {
	var req enrollRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}

	result, err := s.deps.EnrollLearner.Handle(r.Context(), command.EnrollLearnerCommand{
		LearnerID:     req.LearnerID,
		CourseID:      req.CourseID,
		PayerAccount:  req.PayerAccount,
		Secret:        req.Secret,
		CorrelationID: getRequestID(r.Context()),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (s *Server) handleLearnerCourses(w http.ResponseWriter, r *http.Request) {
	views, err := s.deps.LearnerCourses.Handle(r.Context(), query.GetLearnerCoursesQuery{
		LearnerID: r.PathValue("id"),
		Page:      getQueryParamInt(r, "page", 1),
		PageSize:  getQueryParamInt(r, "page_size", 0),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleCourseContent(w http.ResponseWriter, r *http.Request) {
	view, err := s.deps.CourseContent.Handle(r.Context(), query.GetCourseContentQuery{
		LearnerID: r.PathValue("id"),
		CourseID:  r.PathValue("courseID"),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

type progressRequest struct {
	WatchedSeconds int  `json:"watched_seconds"`
	Completed      bool `json:"completed"`
}

func (s *Server) handleRecordProgress(w http.ResponseWriter, r *http.Request) {
	var req progressRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}

	result, err := s.deps.RecordProgress.Handle(r.Context(), command.RecordProgressCommand{
		LearnerID:           r.PathValue("id"),
		CourseID:            r.PathValue("courseID"),
		VideoID:             r.PathValue("videoID"),
		WatchedSeconds:      req.WatchedSeconds,
		ExplicitlyCompleted: req.Completed,
		CorrelationID:       getRequestID(r.Context()),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// ══════════════════════════════════════════════════════════════════════════════
// CERTIFICATES
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) handleLearnerCertificates(w http.ResponseWriter, r *http.Request) {
	views, err := s.deps.LearnerCertificates.Handle(r.Context(), query.GetLearnerCertificatesQuery{
		LearnerID: r.PathValue("id"),
		Page:      getQueryParamInt(r, "page", 1),
		PageSize:  getQueryParamInt(r, "page_size", 0),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleVerifyCertificate(w http.ResponseWriter, r *http.Request) {
	view, err := s.deps.VerifyCertificate.Handle(r.Context(), query.VerifyCertificateQuery{
		Serial: r.PathValue("serial"),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleCertificatePDF(w http.ResponseWriter, r *http.Request) {
	if s.deps.CertificateRenderer == nil || s.deps.Certificates == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "renderer_unavailable", "Certificate rendering is not configured")
		return
	}

	cert, err := s.deps.Certificates.GetBySerial(r.Context(), r.PathValue("serial"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	if !cert.IsValid() {
		writeJSONError(w, http.StatusGone, "certificate_revoked", "Certificate has been revoked")
		return
	}

	pdf, err := s.deps.CertificateRenderer.Render(r.Context(), cert)
	if err != nil {
		s.log.Warn("certificate render failed",
			logger.String("serial", cert.Serial),
			logger.Err(err))
		writeJSONError(w, http.StatusBadGateway, "render_failed", "Certificate could not be rendered")
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="certificate-%s.pdf"`, cert.Serial))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}

type revokeRequest struct {
	Reason string `json:"reason"`
}

func (s *Server) handleRevokeCertificate(w http.ResponseWriter, r *http.Request) {
	// The reason body is optional; an empty or missing body revokes
	// without one.
	var req revokeRequest
	_ = json.NewDecoder(r.Body).Decode(&req)

	result, err := s.deps.RevokeCertificate.Handle(r.Context(), command.RevokeCertificateCommand{
		Serial: r.PathValue("serial"),
		Reason: req.Reason,
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	// A stale verification answer must not outlive the revocation.
	if s.deps.VerifyCertificate != nil {
		s.deps.VerifyCertificate.Invalidate(r.Context(), result.Serial)
	}
	writeJSON(w, http.StatusOK, result)
}

// ══════════════════════════════════════════════════════════════════════════════
// REPORTING
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) handleInstructorEarnings(w http.ResponseWriter, r *http.Request) {
	view, err := s.deps.InstructorEarnings.Handle(r.Context(), query.GetInstructorEarningsQuery{
		InstructorID: r.PathValue("id"),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handlePlatformStats(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	view, err := s.deps.PlatformStats.Handle(ctx, query.GetPlatformStatsQuery{})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

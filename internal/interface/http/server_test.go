package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/edulearn/edulearn-platform/internal/application/command"
	"github.com/edulearn/edulearn-platform/internal/application/query"
	"github.com/edulearn/edulearn-platform/internal/application/saga"
	"github.com/edulearn/edulearn-platform/internal/application/settlement"
	"github.com/edulearn/edulearn-platform/internal/domain/account"
	"github.com/edulearn/edulearn-platform/internal/domain/certificate"
	"github.com/edulearn/edulearn-platform/internal/domain/course"
	"github.com/edulearn/edulearn-platform/internal/domain/shared"
	"github.com/edulearn/edulearn-platform/internal/infrastructure/persistence/memory"
	"github.com/edulearn/edulearn-platform/pkg/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testLearnerAcc    = shared.AccountNumber("111222333")
	testInstructorAcc = shared.AccountNumber("444555666")
	testPlatformAcc   = shared.AccountNumber("777888999")

	testLearnerSecret = "learner-pass"
)

type testEnv struct {
	server     *Server
	learner    *account.User
	instructor *account.User
	courses    *memory.CourseStore
}

// newTestEnv wires the full stack over in-memory stores, the same way
// the composition root does against real infrastructure.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()
	log := logger.New(io.Discard, logger.LevelError)

	accounts := memory.NewAccountStore()
	users := memory.NewUserStore()
	txns := memory.NewTransactionStore()
	courses := memory.NewCourseStore()
	enrollments := memory.NewEnrollmentStore()
	certificates := memory.NewCertificateStore()

	seed := func(number shared.AccountNumber, secret string, balance int64) {
		acc, err := account.NewAccount(number, secret, shared.NewMoneyFromInt(balance))
		require.NoError(t, err)
		require.NoError(t, accounts.Create(ctx, acc))
	}
	seed(testLearnerAcc, testLearnerSecret, 1000)
	seed(testInstructorAcc, "instructor-pass", 0)
	seed(testPlatformAcc, "platform-pass", 100000)

	learner := account.NewLearner(shared.UserID(uuid.New().String()), "Aliya Learner", "aliya", "aliya@example.com", testLearnerAcc)
	require.NoError(t, users.Create(ctx, learner))
	instructor := account.NewInstructor(shared.UserID(uuid.New().String()), "Dana Instructor", "dana", "dana@example.com", testInstructorAcc)
	require.NoError(t, users.Create(ctx, instructor))

	store := memory.NewSettlementStore(accounts, users, txns)
	engine := settlement.NewEngine(accounts, store, nil, log, testPlatformAcc)
	flow := saga.NewEnrollmentFlowSaga(courses, users, enrollments, engine, nil, log)
	issuer := command.NewIssueCertificateHandler(certificates, enrollments, users, courses, nil, log)

	cfg := DefaultConfig()
	cfg.RateLimitPerMinute = 0

	server := NewServer(cfg, Dependencies{
		EnrollLearner:     command.NewEnrollLearnerHandler(flow),
		RecordProgress:    command.NewRecordProgressHandler(enrollments, courses, issuer, nil, log),
		CreateCourse:      command.NewCreateCourseHandler(courses, users, engine, nil, log, false, ""),
		RevokeCertificate: command.NewRevokeCertificateHandler(certificates, nil, log),

		LearnerCourses:      query.NewGetLearnerCoursesHandler(enrollments, courses),
		CourseContent:       query.NewGetCourseContentHandler(enrollments, courses, nil),
		InstructorEarnings:  query.NewGetInstructorEarningsHandler(users, courses, enrollments),
		PlatformStats:       query.NewGetPlatformStatsHandler(users, courses, txns, nil),
		VerifyCertificate:   query.NewVerifyCertificateHandler(certificates, nil, 0, log),
		LearnerCertificates: query.NewGetLearnerCertificatesHandler(certificates),

		Certificates:        certificates,
		CertificateRenderer: stubRenderer{},
		Logger:              log,
	})

	return &testEnv{server: server, learner: learner, instructor: instructor, courses: courses}
}

type stubRenderer struct{}

func (stubRenderer) Render(_ context.Context, cert *certificate.Certificate) ([]byte, error) {
	return []byte("%PDF-1.4 " + cert.Serial), nil
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) addCourse(t *testing.T, price int64, durations ...int) *course.Course {
	t.Helper()
	videos := make([]course.Video, len(durations))
	for i, d := range durations {
		videos[i] = course.Video{
			ID:              shared.VideoID(uuid.New().String()),
			Title:           "Lecture",
			DurationSeconds: d,
			Position:        i,
		}
	}
	c, err := course.NewCourse(
		shared.CourseID(uuid.New().String()),
		"Go Fundamentals", "desc", "programming",
		e.instructor.ID, shared.NewMoneyFromInt(price), videos)
	require.NoError(t, err)
	require.NoError(t, e.courses.Create(context.Background(), c))
	return c
}

func (e *testEnv) enrollBody(c *course.Course) map[string]string {
	return map[string]string{
		"learner_id":    e.learner.ID.String(),
		"course_id":     c.ID.String(),
		"payer_account": testLearnerAcc.String(),
		"secret":        testLearnerSecret,
	}
}

func TestServer_HealthAndUnknownRoute(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = e.do(t, http.MethodGet, "/no-such-route", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_EnrollmentErrorMapping(t *testing.T) {
	e := newTestEnv(t)
	c := e.addCourse(t, 100, 300)

	// Malformed JSON body.
	req := httptest.NewRequest(http.MethodPost, "/api/v1/enrollments", bytes.NewBufferString("{nope"))
	rec := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Unknown course.
	body := e.enrollBody(c)
	body["course_id"] = uuid.New().String()
	rec = e.do(t, http.MethodPost, "/api/v1/enrollments", body)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Wrong secret.
	body = e.enrollBody(c)
	body["secret"] = "wrong"
	rec = e.do(t, http.MethodPost, "/api/v1/enrollments", body)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Happy path, then duplicate.
	rec = e.do(t, http.MethodPost, "/api/v1/enrollments", e.enrollBody(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = e.do(t, http.MethodPost, "/api/v1/enrollments", e.enrollBody(c))
	assert.Equal(t, http.StatusConflict, rec.Code)

	var apiErr struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &apiErr))
	assert.Equal(t, "already_enrolled", apiErr.Error.Code)
}

func TestServer_ProgressAcceptsPlayerCompletedFlag(t *testing.T) {
	e := newTestEnv(t)
	c := e.addCourse(t, 100, 100)

	rec := e.do(t, http.MethodPost, "/api/v1/enrollments", e.enrollBody(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	path := fmt.Sprintf("/api/v1/learners/%s/courses/%s/videos/%s/progress",
		e.learner.ID, c.ID, c.Videos[0].ID)

	// The player reports the video finished at 90 of 100 seconds; the
	// flag completes it below the watch threshold.
	rec = e.do(t, http.MethodPost, path, map[string]interface{}{
		"watched_seconds": 90,
		"completed":       true,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var result struct {
		VideoCompleted    bool   `json:"VideoCompleted"`
		CourseCompleted   bool   `json:"CourseCompleted"`
		CertificateSerial string `json:"CertificateSerial"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.True(t, result.VideoCompleted)
	assert.True(t, result.CourseCompleted)
	assert.NotEmpty(t, result.CertificateSerial)
}

func TestServer_ProgressToCertificateFlow(t *testing.T) {
	e := newTestEnv(t)
	c := e.addCourse(t, 100, 300, 200)

	rec := e.do(t, http.MethodPost, "/api/v1/enrollments", e.enrollBody(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	progressPath := func(videoID shared.VideoID) string {
		return fmt.Sprintf("/api/v1/learners/%s/courses/%s/videos/%s/progress",
			e.learner.ID, c.ID, videoID)
	}

	rec = e.do(t, http.MethodPost, progressPath(c.Videos[0].ID), map[string]int{"watched_seconds": 300})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = e.do(t, http.MethodPost, progressPath(c.Videos[1].ID), map[string]int{"watched_seconds": 200})
	require.Equal(t, http.StatusOK, rec.Code)

	var result struct {
		CourseCompleted   bool   `json:"CourseCompleted"`
		CertificateSerial string `json:"CertificateSerial"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.True(t, result.CourseCompleted)
	require.NotEmpty(t, result.CertificateSerial)
	serial := result.CertificateSerial

	// Public verification.
	rec = e.do(t, http.MethodGet, "/api/v1/verify/"+serial, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var view query.CertificateVerificationView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.True(t, view.Valid)
	assert.Equal(t, "Aliya Learner", view.LearnerName)
	assert.Equal(t, "Go Fundamentals", view.CourseTitle)
	assert.Equal(t, "Dana Instructor", view.InstructorName)

	// PDF download.
	rec = e.do(t, http.MethodGet, "/api/v1/certificates/"+serial+"/pdf", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))

	// Revocation flips verification and blocks the download.
	rec = e.do(t, http.MethodDelete, "/api/v1/certificates/"+serial, map[string]string{"reason": "academic misconduct"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = e.do(t, http.MethodGet, "/api/v1/verify/"+serial, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.False(t, view.Valid)

	rec = e.do(t, http.MethodGet, "/api/v1/certificates/"+serial+"/pdf", nil)
	assert.Equal(t, http.StatusGone, rec.Code)

	// Unknown serial verifies as not found.
	rec = e.do(t, http.MethodGet, "/api/v1/verify/EDU-"+uuid.New().String(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

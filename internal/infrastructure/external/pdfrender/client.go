// Package pdfrender implements the client for the certificate PDF
// rendering service.
package pdfrender

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/edulearn/edulearn-platform/internal/domain/certificate"
	"github.com/edulearn/edulearn-platform/pkg/circuitbreaker"
	"github.com/edulearn/edulearn-platform/pkg/logger"
	"github.com/edulearn/edulearn-platform/pkg/retry"
)

var (
	// ErrRenderFailed is returned when the rendering service rejects a
	// request.
	ErrRenderFailed = errors.New("pdfrender: render failed")

	// ErrServiceUnavailable is returned when the service cannot be
	// reached or the circuit is open.
	ErrServiceUnavailable = errors.New("pdfrender: service unavailable")
)

// ══════════════════════════════════════════════════════════════════════════════
// CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// Config contains configuration for the rendering client.
type Config struct {
	// BaseURL is the rendering service base URL.
	BaseURL string

	// APIKey authenticates requests to the service.
	APIKey string

	// Timeout is the HTTP request timeout.
	Timeout time.Duration

	// RetryConfig for transient failures.
	RetryConfig retry.Config

	// BreakerConfig for fault tolerance.
	BreakerConfig circuitbreaker.Config

	// Logger for structured logging.
	Logger *logger.Logger
}

// DefaultConfig returns sensible defaults for a base URL.
func DefaultConfig(baseURL string) Config {
	return Config{
		BaseURL:       baseURL,
		Timeout:       30 * time.Second,
		RetryConfig:   retry.DefaultConfig(),
		BreakerConfig: circuitbreaker.DefaultConfig("pdfrender"),
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// CLIENT
// ══════════════════════════════════════════════════════════════════════════════

// Client renders certificate PDFs through the external service.
// Transient failures are retried; sustained failure opens the circuit
// so certificate downloads degrade instead of piling up timeouts.
type Client struct {
	config  Config
	http    *http.Client
	breaker *circuitbreaker.Breaker
	log     *logger.Logger
}

// NewClient creates a rendering client.
func NewClient(cfg Config) *Client {
	log := cfg.Logger
	if log == nil {
		log = logger.NewDefault()
	}
	cfg.RetryConfig.ShouldRetry = isTransient
	return &Client{
		config:  cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		breaker: circuitbreaker.New(cfg.BreakerConfig),
		log:     log.With(logger.String("component", "pdfrender")),
	}
}

// renderRequest is the service's wire format.
type renderRequest struct {
	Serial         string    `json:"serial"`
	LearnerName    string    `json:"learner_name"`
	CourseTitle    string    `json:"course_title"`
	InstructorName string    `json:"instructor_name"`
	IssuedAt       time.Time `json:"issued_at"`
}

// Render produces the PDF bytes for a certificate.
func (c *Client) Render(ctx context.Context, cert *certificate.Certificate) ([]byte, error) {
	body, err := json.Marshal(renderRequest{
		Serial:         cert.Serial,
		LearnerName:    cert.LearnerName,
		CourseTitle:    cert.CourseTitle,
		InstructorName: cert.InstructorName,
		IssuedAt:       cert.IssuedAt,
	})
	if err != nil {
		return nil, fmt.Errorf("pdfrender: marshal request: %w", err)
	}

	var pdf []byte
	err = c.breaker.Execute(ctx, func(ctx context.Context) error {
		return retry.Do(ctx, c.config.RetryConfig, func(ctx context.Context) error {
			var reqErr error
			pdf, reqErr = c.post(ctx, body)
			return reqErr
		})
	})
	if err != nil {
		if errors.Is(err, circuitbreaker.ErrOpen) {
			c.log.Warn("render circuit open", logger.String("serial", cert.Serial))
			return nil, ErrServiceUnavailable
		}
		return nil, err
	}
	return pdf, nil
}

func (c *Client) post(ctx context.Context, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.config.BaseURL+"/v1/render/certificate", bytes.NewReader(body))
	if err != nil {
		return nil, retry.Permanent(fmt.Errorf("pdfrender: create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/pdf")
	if c.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		return io.ReadAll(resp.Body)
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: status %d", ErrServiceUnavailable, resp.StatusCode)
	default:
		// 4xx means the request itself is wrong; retrying won't help.
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, retry.Permanent(fmt.Errorf("%w: status %d: %s", ErrRenderFailed, resp.StatusCode, msg))
	}
}

func isTransient(err error) bool {
	return errors.Is(err, ErrServiceUnavailable)
}

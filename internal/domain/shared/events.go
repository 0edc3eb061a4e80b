// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages.
package shared

import (
	"encoding/json"
	"time"
)

// EventType represents the type of domain event.
type EventType string

// Domain event types. Each event represents something significant that
// happened in the platform core. Certificate issuance stays a synchronous
// call inside the progress flow; events only feed observers (caches,
// audit logging), never drive the flow itself.
const (
	// Enrollment events
	EventEnrollmentCreated EventType = "enrollment.created"
	EventProgressRecorded  EventType = "enrollment.progress_recorded"
	EventCourseCompleted   EventType = "enrollment.course_completed"

	// Settlement events
	EventSettlementCompleted EventType = "settlement.completed"
	EventSettlementRefunded  EventType = "settlement.refunded"

	// Certificate events
	EventCertificateIssued  EventType = "certificate.issued"
	EventCertificateRevoked EventType = "certificate.revoked"

	// Course events
	EventCourseCreated EventType = "course.created"
	EventCourseFunded  EventType = "course.funded"
)

// Event is the base interface for all domain events.
type Event interface {
	// EventType returns the type of the event.
	EventType() EventType

	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time

	// AggregateID returns the ID of the aggregate that produced this event.
	AggregateID() string

	// Payload returns the event data as a map for serialization.
	Payload() map[string]interface{}
}

// BaseEvent provides common event functionality.
type BaseEvent struct {
	Type          EventType `json:"type"`
	Timestamp     time.Time `json:"timestamp"`
	AggregateId   string    `json:"aggregate_id"`
	Version       int       `json:"version"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

// EventType implements Event interface.
func (e BaseEvent) EventType() EventType {
	return e.Type
}

// OccurredAt implements Event interface.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// AggregateID implements Event interface.
func (e BaseEvent) AggregateID() string {
	return e.AggregateId
}

// NewBaseEvent creates a new base event.
func NewBaseEvent(eventType EventType, aggregateID string) BaseEvent {
	return BaseEvent{
		Type:        eventType,
		Timestamp:   time.Now().UTC(),
		AggregateId: aggregateID,
		Version:     1,
	}
}

// WithCorrelationID sets the correlation ID for tracing.
func (e BaseEvent) WithCorrelationID(id string) BaseEvent {
	e.CorrelationID = id
	return e
}

// ═══════════════════════════════════════════════════════════════════════════
// Enrollment Events
// ═══════════════════════════════════════════════════════════════════════════

// EnrollmentCreatedEvent is emitted after a successful purchase + enrollment.
type EnrollmentCreatedEvent struct {
	BaseEvent
	LearnerID     string `json:"learner_id"`
	CourseID      string `json:"course_id"`
	TransactionID string `json:"transaction_id"`
	Amount        string `json:"amount"`
}

// Payload implements Event interface.
func (e EnrollmentCreatedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"learner_id":     e.LearnerID,
		"course_id":      e.CourseID,
		"transaction_id": e.TransactionID,
		"amount":         e.Amount,
	}
}

// NewEnrollmentCreatedEvent creates a new EnrollmentCreatedEvent.
func NewEnrollmentCreatedEvent(enrollmentID, learnerID, courseID, transactionID, amount string) EnrollmentCreatedEvent {
	return EnrollmentCreatedEvent{
		BaseEvent:     NewBaseEvent(EventEnrollmentCreated, enrollmentID),
		LearnerID:     learnerID,
		CourseID:      courseID,
		TransactionID: transactionID,
		Amount:        amount,
	}
}

// ProgressRecordedEvent is emitted after every accepted watch-progress write.
type ProgressRecordedEvent struct {
	BaseEvent
	LearnerID  string `json:"learner_id"`
	CourseID   string `json:"course_id"`
	VideoID    string `json:"video_id"`
	Percentage int    `json:"percentage"`
}

// Payload implements Event interface.
func (e ProgressRecordedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"learner_id": e.LearnerID,
		"course_id":  e.CourseID,
		"video_id":   e.VideoID,
		"percentage": e.Percentage,
	}
}

// NewProgressRecordedEvent creates a new ProgressRecordedEvent.
func NewProgressRecordedEvent(enrollmentID, learnerID, courseID, videoID string, percentage int) ProgressRecordedEvent {
	return ProgressRecordedEvent{
		BaseEvent:  NewBaseEvent(EventProgressRecorded, enrollmentID),
		LearnerID:  learnerID,
		CourseID:   courseID,
		VideoID:    videoID,
		Percentage: percentage,
	}
}

// CourseCompletedEvent is emitted exactly once, when an enrollment
// transitions InProgress → Completed.
type CourseCompletedEvent struct {
	BaseEvent
	LearnerID         string `json:"learner_id"`
	CourseID          string `json:"course_id"`
	CertificateSerial string `json:"certificate_serial,omitempty"`
}

// Payload implements Event interface.
func (e CourseCompletedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"learner_id":         e.LearnerID,
		"course_id":          e.CourseID,
		"certificate_serial": e.CertificateSerial,
	}
}

// NewCourseCompletedEvent creates a new CourseCompletedEvent.
func NewCourseCompletedEvent(enrollmentID, learnerID, courseID, serial string) CourseCompletedEvent {
	return CourseCompletedEvent{
		BaseEvent:         NewBaseEvent(EventCourseCompleted, enrollmentID),
		LearnerID:         learnerID,
		CourseID:          courseID,
		CertificateSerial: serial,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Settlement Events
// ═══════════════════════════════════════════════════════════════════════════

// SettlementCompletedEvent is emitted after a settlement commits.
type SettlementCompletedEvent struct {
	BaseEvent
	Kind          string `json:"kind"` // PURCHASE or LUMP_SUM
	Amount        string `json:"amount"`
	PayerAccount  string `json:"payer_account"`
	PayeeAccount  string `json:"payee_account"`
	CourseID      string `json:"course_id,omitempty"`
	PayeeShare    string `json:"payee_share"`
	PlatformShare string `json:"platform_share"`
}

// Payload implements Event interface.
func (e SettlementCompletedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"kind":           e.Kind,
		"amount":         e.Amount,
		"payer_account":  e.PayerAccount,
		"payee_account":  e.PayeeAccount,
		"course_id":      e.CourseID,
		"payee_share":    e.PayeeShare,
		"platform_share": e.PlatformShare,
	}
}

// NewSettlementCompletedEvent creates a new SettlementCompletedEvent.
func NewSettlementCompletedEvent(transactionID, kind, amount, payer, payee, courseID, payeeShare, platformShare string) SettlementCompletedEvent {
	return SettlementCompletedEvent{
		BaseEvent:     NewBaseEvent(EventSettlementCompleted, transactionID),
		Kind:          kind,
		Amount:        amount,
		PayerAccount:  payer,
		PayeeAccount:  payee,
		CourseID:      courseID,
		PayeeShare:    payeeShare,
		PlatformShare: platformShare,
	}
}

// SettlementRefundedEvent is emitted when the enrollment flow compensates
// a settlement because the enrollment write failed after payment.
type SettlementRefundedEvent struct {
	BaseEvent
	OriginalTransactionID string `json:"original_transaction_id"`
	Amount                string `json:"amount"`
	Reason                string `json:"reason"`
}

// Payload implements Event interface.
func (e SettlementRefundedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"original_transaction_id": e.OriginalTransactionID,
		"amount":                  e.Amount,
		"reason":                  e.Reason,
	}
}

// NewSettlementRefundedEvent creates a new SettlementRefundedEvent.
func NewSettlementRefundedEvent(refundTransactionID, originalTransactionID, amount, reason string) SettlementRefundedEvent {
	return SettlementRefundedEvent{
		BaseEvent:             NewBaseEvent(EventSettlementRefunded, refundTransactionID),
		OriginalTransactionID: originalTransactionID,
		Amount:                amount,
		Reason:                reason,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Certificate Events
// ═══════════════════════════════════════════════════════════════════════════

// CertificateIssuedEvent is emitted when a certificate is created.
// Idempotent re-reads of an existing certificate do not emit this event.
type CertificateIssuedEvent struct {
	BaseEvent
	Serial    string `json:"serial"`
	LearnerID string `json:"learner_id"`
	CourseID  string `json:"course_id"`
}

// Payload implements Event interface.
func (e CertificateIssuedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"serial":     e.Serial,
		"learner_id": e.LearnerID,
		"course_id":  e.CourseID,
	}
}

// NewCertificateIssuedEvent creates a new CertificateIssuedEvent.
func NewCertificateIssuedEvent(serial, learnerID, courseID string) CertificateIssuedEvent {
	return CertificateIssuedEvent{
		BaseEvent: NewBaseEvent(EventCertificateIssued, serial),
		Serial:    serial,
		LearnerID: learnerID,
		CourseID:  courseID,
	}
}

// CertificateRevokedEvent is emitted when an admin revokes a certificate.
type CertificateRevokedEvent struct {
	BaseEvent
	Serial string `json:"serial"`
	Reason string `json:"reason,omitempty"`
}

// Payload implements Event interface.
func (e CertificateRevokedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"serial": e.Serial,
		"reason": e.Reason,
	}
}

// NewCertificateRevokedEvent creates a new CertificateRevokedEvent.
func NewCertificateRevokedEvent(serial, reason string) CertificateRevokedEvent {
	return CertificateRevokedEvent{
		BaseEvent: NewBaseEvent(EventCertificateRevoked, serial),
		Serial:    serial,
		Reason:    reason,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Course Events
// ═══════════════════════════════════════════════════════════════════════════

// CourseCreatedEvent is emitted when an instructor publishes a course.
type CourseCreatedEvent struct {
	BaseEvent
	InstructorID string `json:"instructor_id"`
	Title        string `json:"title"`
	Price        string `json:"price"`
	VideoCount   int    `json:"video_count"`
}

// Payload implements Event interface.
func (e CourseCreatedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"instructor_id": e.InstructorID,
		"title":         e.Title,
		"price":         e.Price,
		"video_count":   e.VideoCount,
	}
}

// NewCourseCreatedEvent creates a new CourseCreatedEvent.
func NewCourseCreatedEvent(courseID, instructorID, title, price string, videoCount int) CourseCreatedEvent {
	return CourseCreatedEvent{
		BaseEvent:    NewBaseEvent(EventCourseCreated, courseID),
		InstructorID: instructorID,
		Title:        title,
		Price:        price,
		VideoCount:   videoCount,
	}
}

// CourseFundedEvent is emitted after the lump-sum funding settlement.
type CourseFundedEvent struct {
	BaseEvent
	InstructorID  string `json:"instructor_id"`
	Amount        string `json:"amount"`
	TransactionID string `json:"transaction_id"`
}

// Payload implements Event interface.
func (e CourseFundedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"instructor_id":  e.InstructorID,
		"amount":         e.Amount,
		"transaction_id": e.TransactionID,
	}
}

// NewCourseFundedEvent creates a new CourseFundedEvent.
func NewCourseFundedEvent(courseID, instructorID, amount, transactionID string) CourseFundedEvent {
	return CourseFundedEvent{
		BaseEvent:     NewBaseEvent(EventCourseFunded, courseID),
		InstructorID:  instructorID,
		Amount:        amount,
		TransactionID: transactionID,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Event Envelope (for serialization and transport)
// ═══════════════════════════════════════════════════════════════════════════

// EventEnvelope wraps an event for transport/storage.
type EventEnvelope struct {
	ID            string          `json:"id"`
	Type          EventType       `json:"type"`
	AggregateID   string          `json:"aggregate_id"`
	Timestamp     time.Time       `json:"timestamp"`
	Version       int             `json:"version"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

// EventHandler is a function that handles an event.
type EventHandler func(event Event) error

// EventPublisher defines the interface for publishing events.
type EventPublisher interface {
	// Publish sends an event to subscribers.
	Publish(event Event) error
}

// EventSubscriber defines the interface for subscribing to events.
type EventSubscriber interface {
	// Subscribe registers a handler for an event type.
	Subscribe(eventType EventType, handler EventHandler) error

	// SubscribeAll registers a handler for all events.
	SubscribeAll(handler EventHandler) error
}

// EventBus combines publishing and subscribing.
type EventBus interface {
	EventPublisher
	EventSubscriber
}

// NopPublisher discards all events. Used where observers are optional.
type NopPublisher struct{}

// Publish implements EventPublisher.
func (NopPublisher) Publish(Event) error { return nil }

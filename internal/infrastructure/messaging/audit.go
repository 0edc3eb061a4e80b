package messaging

import (
	"github.com/edulearn/edulearn-platform/internal/domain/shared"
	"github.com/edulearn/edulearn-platform/pkg/logger"
)

// NewAuditLogger returns a handler that writes every event to the
// structured log. Subscribed with SubscribeAll, it gives operators a
// flat trail of enrollments, settlements and certifications without a
// dedicated audit store.
func NewAuditLogger(log *logger.Logger) shared.EventHandler {
	audit := log.With(logger.String("component", "audit"))
	return func(event shared.Event) error {
		audit.Info("domain event",
			logger.String("event_type", string(event.EventType())),
			logger.String("aggregate_id", event.AggregateID()),
			logger.Any("payload", event.Payload()))
		return nil
	}
}

package vulnerabilities

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// ErrInvalidEvent is returned for events missing required fields.
var ErrInvalidEvent = errors.New("invalid lifecycle event")

// EventStore records consumed lifecycle events.
type EventStore interface {
	SaveLifecycleEvent(ctx context.Context, event LifecycleEvent) error
}

// DecodeLifecycleEvent unmarshals and validates a message payload.
func DecodeLifecycleEvent(msg []byte) (LifecycleEvent, error) {
	var event LifecycleEvent
	if err := json.Unmarshal(msg, &event); err != nil {
		return event, fmt.Errorf("failed to unmarshal LifecycleEvent: %w", err)
	}
	if event.EventType != EventTypeExpired && event.EventType != EventTypeRevived {
		return event, fmt.Errorf("%w: unknown event type %q", ErrInvalidEvent, event.EventType)
	}
	if event.EventID == "" || event.VulnID == "" || event.AssessmentID == "" {
		return event, fmt.Errorf("%w: missing required fields", ErrInvalidEvent)
	}
	return event, nil
}

// HandleLifecycleEvent processes one lifecycle event consumed from Kafka.
func HandleLifecycleEvent(ctx context.Context, msg []byte, store EventStore, logger *zap.Logger) error {
	event, err := DecodeLifecycleEvent(msg)
	if err != nil {
		return err
	}
	if err := store.SaveLifecycleEvent(ctx, event); err != nil {
		return fmt.Errorf("failed to save %s event for %s: %w", event.EventType, event.VulnID, err)
	}
	logger.Info("recorded lifecycle event",
		zap.String("event_type", event.EventType),
		zap.String("vuln_id", event.VulnID),
		zap.String("assessment_id", event.AssessmentID))
	return nil
}

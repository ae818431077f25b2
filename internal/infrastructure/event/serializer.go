package event

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/erp/shopfloor/internal/domain/shared"
	"github.com/google/uuid"
)

// AuditEnvelope is the wire form of a domain event sent to the audit sink
type AuditEnvelope struct {
	EventID       uuid.UUID       `json:"event_id"`
	EventType     string          `json:"event_type"`
	AggregateID   uuid.UUID       `json:"aggregate_id"`
	AggregateType string          `json:"aggregate_type"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Payload       json.RawMessage `json:"payload"`
}

// EventSerializer encodes domain events into audit envelopes
type EventSerializer struct{}

// NewEventSerializer creates a new event serializer
func NewEventSerializer() *EventSerializer {
	return &EventSerializer{}
}

// Serialize wraps the event payload in an envelope and encodes it as JSON
func (s *EventSerializer) Serialize(event shared.DomainEvent) ([]byte, error) {
	if event == nil {
		return nil, fmt.Errorf("%w: nil event", shared.ErrInvalidInput)
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", event.EventType(), err)
	}
	env := AuditEnvelope{
		EventID:       event.EventID(),
		EventType:     event.EventType(),
		AggregateID:   event.AggregateID(),
		AggregateType: event.AggregateType(),
		OccurredAt:    event.OccurredAt().UTC(),
		Payload:       payload,
	}
	return json.Marshal(env)
}

// Deserialize decodes an envelope produced by Serialize
func (s *EventSerializer) Deserialize(data []byte) (AuditEnvelope, error) {
	var env AuditEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return AuditEnvelope{}, fmt.Errorf("failed to unmarshal audit envelope: %w", err)
	}
	if env.EventType == "" {
		return AuditEnvelope{}, fmt.Errorf("%w: envelope has no event type", shared.ErrInvalidInput)
	}
	return env, nil
}

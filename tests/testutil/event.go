package testutil

import (
	"context"
	"slices"
	"sync"

	"github.com/erp/shopfloor/internal/domain/shared"
)

// RecordingHandler subscribes to the given event types and keeps what it sees.
type RecordingHandler struct {
	types []string

	mu   sync.Mutex
	seen []shared.DomainEvent
}

func NewRecordingHandler(eventTypes ...string) *RecordingHandler {
	return &RecordingHandler{types: eventTypes}
}

func (h *RecordingHandler) EventTypes() []string { return h.types }

func (h *RecordingHandler) Handle(_ context.Context, event shared.DomainEvent) error {
	h.mu.Lock()
	h.seen = append(h.seen, event)
	h.mu.Unlock()
	return nil
}

// Handled returns a snapshot of the recorded events.
func (h *RecordingHandler) Handled() []shared.DomainEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	return slices.Clone(h.seen)
}

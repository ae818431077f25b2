package event

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/erp/shopfloor/internal/domain/production"
	"github.com/erp/shopfloor/internal/domain/shared"
	"github.com/erp/shopfloor/internal/infrastructure/config"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func backfillEvent() *production.AttributionBackfilledEvent {
	start := time.Date(2024, 3, 4, 8, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)
	scan := production.ScanEvent{
		ID:         uuid.New(),
		ItemID:     uuid.New(),
		StationID:  uuid.New(),
		EmployeeID: uuid.New(),
		StartTime:  &start,
		EndTime:    &end,
	}
	return production.NewAttributionBackfilledEvent(scan, "lead-7", false)
}

func TestNewKafkaAuditHandler_Validation(t *testing.T) {
	_, err := NewKafkaAuditHandler(config.KafkaConfig{Topic: "audit"}, nil)
	assert.ErrorIs(t, err, shared.ErrInvalidInput)

	_, err = NewKafkaAuditHandler(config.KafkaConfig{Brokers: []string{"localhost:9092"}}, nil)
	assert.ErrorIs(t, err, shared.ErrInvalidInput)

	h, err := NewKafkaAuditHandler(config.KafkaConfig{
		Brokers:      []string{"localhost:9092"},
		Topic:        "audit",
		ClientID:     "shopfloor-test",
		WriteTimeout: time.Second,
	}, nil)
	require.NoError(t, err)
	w, ok := h.writer.(*kafka.Writer)
	require.True(t, ok)
	assert.Equal(t, "audit", w.Topic)
	assert.Equal(t, kafka.RequireOne, w.RequiredAcks)
	assert.False(t, w.Async)
	require.NoError(t, h.Close())
}

func TestKafkaAuditHandler_Handle(t *testing.T) {
	w := &fakeWriter{}
	h := newKafkaAuditHandler(w, "audit", nil)
	ev := backfillEvent()

	require.NoError(t, h.Handle(context.Background(), ev))

	require.Len(t, w.msgs, 1)
	msg := w.msgs[0]
	assert.Equal(t, ev.ItemID.String(), string(msg.Key))
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, HeaderEventType, msg.Headers[0].Key)
	assert.Equal(t, production.EventTypeAttributionBackfilled, string(msg.Headers[0].Value))

	env, err := NewEventSerializer().Deserialize(msg.Value)
	require.NoError(t, err)
	assert.Equal(t, ev.EventID(), env.EventID)
	assert.Equal(t, ev.ItemID, env.AggregateID)
	assert.Contains(t, string(env.Payload), `"actor_id":"lead-7"`)
}

func TestKafkaAuditHandler_WriteError(t *testing.T) {
	w := &fakeWriter{err: errors.New("leader not available")}
	h := newKafkaAuditHandler(w, "audit", nil)

	err := h.Handle(context.Background(), backfillEvent())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "audit")
	assert.Contains(t, err.Error(), "leader not available")
}

func TestKafkaAuditHandler_OnBus(t *testing.T) {
	w := &fakeWriter{}
	h := newKafkaAuditHandler(w, "audit", nil)
	bus, _ := startedBus(t)
	bus.Subscribe(h)

	require.NoError(t, bus.Publish(context.Background(), backfillEvent(), newTestEvent("Unrelated")))

	assert.Len(t, w.msgs, 1)
	require.NoError(t, h.Close())
	assert.True(t, w.closed)
}

func TestLogAuditHandler_Handle(t *testing.T) {
	core, recorded := observer.New(zapcore.InfoLevel)
	h := NewLogAuditHandler(zap.New(core))
	ev := backfillEvent()

	assert.Equal(t, []string{production.EventTypeAttributionBackfilled}, h.EventTypes())
	require.NoError(t, h.Handle(context.Background(), ev))

	entries := recorded.FilterMessage("attribution backfilled").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "lead-7", fields["actor_id"])
	assert.Equal(t, ev.StationID.String(), fields["station_id"])
	assert.Equal(t, false, fields["used_fallback"])
}

func TestEventSerializer(t *testing.T) {
	s := NewEventSerializer()

	_, err := s.Serialize(nil)
	assert.ErrorIs(t, err, shared.ErrInvalidInput)

	_, err = s.Deserialize([]byte(`{"event_id":"` + uuid.NewString() + `"}`))
	assert.ErrorIs(t, err, shared.ErrInvalidInput)

	_, err = s.Deserialize([]byte("not json"))
	assert.Error(t, err)
}

package event

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/shopfloor/internal/domain/production"
	"github.com/erp/shopfloor/internal/domain/shared"
	"github.com/erp/shopfloor/internal/infrastructure/config"
	"github.com/erp/shopfloor/internal/infrastructure/logger"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// HeaderEventType carries the event type on every audit message
const HeaderEventType = "event_type"

// messageWriter is the subset of *kafka.Writer used by the audit handler
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaAuditHandler forwards backfill audit events to a Kafka topic
type KafkaAuditHandler struct {
	writer     messageWriter
	serializer *EventSerializer
	topic      string
	logger     *zap.Logger
}

// NewKafkaAuditHandler creates a handler writing synchronously to the configured topic
func NewKafkaAuditHandler(cfg config.KafkaConfig, log *zap.Logger) (*KafkaAuditHandler, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("%w: kafka brokers are required", shared.ErrInvalidInput)
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("%w: kafka topic is required", shared.ErrInvalidInput)
	}
	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		WriteTimeout: cfg.WriteTimeout,
		Async:        false,
		Transport:    &kafka.Transport{ClientID: cfg.ClientID},
	}
	return newKafkaAuditHandler(w, cfg.Topic, log), nil
}

func newKafkaAuditHandler(w messageWriter, topic string, log *zap.Logger) *KafkaAuditHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &KafkaAuditHandler{
		writer:     w,
		serializer: NewEventSerializer(),
		topic:      topic,
		logger:     log.Named("kafka_audit"),
	}
}

// EventTypes implements shared.EventHandler
func (h *KafkaAuditHandler) EventTypes() []string {
	return []string{production.EventTypeAttributionBackfilled}
}

// Handle implements shared.EventHandler. Messages are keyed by aggregate id
// so every event for one item lands on the same partition.
func (h *KafkaAuditHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	value, err := h.serializer.Serialize(event)
	if err != nil {
		return err
	}
	msg := kafka.Message{
		Key:   []byte(event.AggregateID().String()),
		Value: value,
		Time:  time.Now(),
		Headers: []kafka.Header{
			{Key: HeaderEventType, Value: []byte(event.EventType())},
		},
	}
	if err := h.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write %s to %s: %w", event.EventType(), h.topic, err)
	}
	logger.WithTraceContext(ctx, h.logger).Debug("audit event written",
		zap.String("topic", h.topic),
		zap.String("event_id", event.EventID().String()),
	)
	return nil
}

// Close flushes and closes the underlying writer
func (h *KafkaAuditHandler) Close() error {
	return h.writer.Close()
}

var _ shared.EventHandler = (*KafkaAuditHandler)(nil)

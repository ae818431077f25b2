package event

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/erp/shopfloor/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type testEvent struct {
	shared.BaseDomainEvent
	Data string `json:"data"`
}

func newTestEvent(eventType string) *testEvent {
	return &testEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, "TestAggregate", uuid.New()),
		Data:            "test data",
	}
}

type testHandler struct {
	eventTypes []string
	handled    []shared.DomainEvent
	err        error
	mu         sync.Mutex
}

func newTestHandler(eventTypes ...string) *testHandler {
	return &testHandler{eventTypes: eventTypes}
}

func (h *testHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handled = append(h.handled, event)
	return h.err
}

func (h *testHandler) EventTypes() []string {
	return h.eventTypes
}

func (h *testHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.handled)
}

type panickingHandler struct{}

func (panickingHandler) Handle(context.Context, shared.DomainEvent) error { panic("boom") }
func (panickingHandler) EventTypes() []string                             { return []string{"Panics"} }

func startedBus(t *testing.T) (*InMemoryEventBus, *observer.ObservedLogs) {
	t.Helper()
	core, recorded := observer.New(zapcore.DebugLevel)
	bus := NewInMemoryEventBus(zap.New(core))
	require.NoError(t, bus.Start(context.Background()))
	t.Cleanup(func() { _ = bus.Stop(context.Background()) })
	return bus, recorded
}

func TestInMemoryEventBus_PublishRoutesByType(t *testing.T) {
	bus, _ := startedBus(t)
	backfills := newTestHandler("AttributionBackfilled")
	others := newTestHandler("Other")
	all := newTestHandler()

	bus.Subscribe(backfills)
	bus.Subscribe(others)
	bus.Subscribe(all)

	err := bus.Publish(context.Background(),
		newTestEvent("AttributionBackfilled"),
		newTestEvent("AttributionBackfilled"),
		newTestEvent("Other"),
	)
	require.NoError(t, err)

	assert.Equal(t, 2, backfills.count())
	assert.Equal(t, 1, others.count())
	assert.Equal(t, 3, all.count())
}

func TestInMemoryEventBus_SubscribeExplicitTypes(t *testing.T) {
	bus, _ := startedBus(t)
	h := newTestHandler("Ignored")

	bus.Subscribe(h, "Wanted")
	require.NoError(t, bus.Publish(context.Background(), newTestEvent("Ignored"), newTestEvent("Wanted")))

	assert.Equal(t, 1, h.count())
}

func TestInMemoryEventBus_HandlerErrorDoesNotStopDelivery(t *testing.T) {
	bus, recorded := startedBus(t)
	failing := newTestHandler("E")
	failing.err = errors.New("sink unavailable")
	healthy := newTestHandler("E")
	bus.Subscribe(failing)
	bus.Subscribe(healthy)

	require.NoError(t, bus.Publish(context.Background(), newTestEvent("E")))

	assert.Equal(t, 1, healthy.count())
	assert.Equal(t, int64(1), bus.Failures())
	assert.Equal(t, 1, recorded.FilterMessage("event handler failed").Len())
}

func TestInMemoryEventBus_PanicIsRecovered(t *testing.T) {
	bus, recorded := startedBus(t)
	after := newTestHandler("Panics")
	bus.Subscribe(panickingHandler{})
	bus.Subscribe(after)

	assert.NotPanics(t, func() {
		require.NoError(t, bus.Publish(context.Background(), newTestEvent("Panics")))
	})

	assert.Equal(t, 1, after.count())
	assert.Equal(t, int64(1), bus.Failures())
	entries := recorded.FilterMessage("event handler failed").All()
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].ContextMap()["error"], "handler panicked")
}

func TestInMemoryEventBus_Unsubscribe(t *testing.T) {
	bus, _ := startedBus(t)
	h := newTestHandler("E")
	bus.Subscribe(h)
	bus.Unsubscribe(h)

	require.NoError(t, bus.Publish(context.Background(), newTestEvent("E")))
	assert.Zero(t, h.count())
}

func TestInMemoryEventBus_DropsWhenStopped(t *testing.T) {
	core, recorded := observer.New(zapcore.DebugLevel)
	bus := NewInMemoryEventBus(zap.New(core))
	h := newTestHandler("E")
	bus.Subscribe(h)

	require.NoError(t, bus.Publish(context.Background(), newTestEvent("E")))
	assert.Zero(t, h.count())
	assert.Equal(t, 1, recorded.FilterMessage("event bus stopped, events dropped").Len())
}

func TestInMemoryEventBus_StopRespectsContext(t *testing.T) {
	bus := NewInMemoryEventBus(nil)
	require.NoError(t, bus.Start(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, bus.Stop(ctx))
}

func TestInMemoryEventBus_ConcurrentPublish(t *testing.T) {
	bus, _ := startedBus(t)
	h := newTestHandler("E")
	bus.Subscribe(h)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = bus.Publish(context.Background(), newTestEvent("E"))
		}()
	}
	wg.Wait()

	assert.Equal(t, 20, h.count())
}

func TestHandlerRegistry_Count(t *testing.T) {
	r := NewHandlerRegistry()
	a := newTestHandler()
	b := newTestHandler()
	r.Register(a, "X", "Y")
	r.Register(b)

	assert.Equal(t, 2, r.Count())
	assert.Len(t, r.GetHandlers("X"), 2)

	r.Unregister(a)
	assert.Equal(t, 1, r.Count())
	assert.Len(t, r.GetHandlers("Y"), 1)
}

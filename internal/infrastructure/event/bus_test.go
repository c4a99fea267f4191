package event

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/arledger/backend/internal/domain/shared"
)

type recordedEvent struct {
	shared.BaseDomainEvent
	Data string `json:"data"`
}

func newRecordedEvent(eventType string) *recordedEvent {
	return &recordedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, "Receipt", uuid.New()),
		Data:            "payload",
	}
}

type recordingHandler struct {
	eventTypes []string
	handled    []shared.DomainEvent
	err        error
	mu         sync.Mutex
}

func newRecordingHandler(eventTypes ...string) *recordingHandler {
	return &recordingHandler{
		eventTypes: eventTypes,
		handled:    make([]shared.DomainEvent, 0),
	}
}

func (h *recordingHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handled = append(h.handled, event)
	return h.err
}

func (h *recordingHandler) EventTypes() []string {
	return h.eventTypes
}

func (h *recordingHandler) setError(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.err = err
}

func (h *recordingHandler) getHandled() []shared.DomainEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]shared.DomainEvent(nil), h.handled...)
}

func TestInMemoryEventBus_Publish(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())

	handler := newRecordingHandler("receivable.receipt.approved")
	bus.Subscribe(handler, "receivable.receipt.approved")

	event := newRecordedEvent("receivable.receipt.approved")
	err := bus.Publish(context.Background(), event)

	require.NoError(t, err)
	assert.Len(t, handler.getHandled(), 1)
	assert.Equal(t, event, handler.getHandled()[0])
}

func TestInMemoryEventBus_Publish_MultipleHandlers(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())

	handler1 := newRecordingHandler("receivable.receipt.approved")
	handler2 := newRecordingHandler("receivable.receipt.approved")
	bus.Subscribe(handler1, "receivable.receipt.approved")
	bus.Subscribe(handler2, "receivable.receipt.approved")

	err := bus.Publish(context.Background(), newRecordedEvent("receivable.receipt.approved"))

	require.NoError(t, err)
	assert.Len(t, handler1.getHandled(), 1)
	assert.Len(t, handler2.getHandled(), 1)
}

func TestInMemoryEventBus_Publish_WildcardHandler(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())

	wildcard := newRecordingHandler() // no event types = receives everything
	bus.Subscribe(wildcard)

	err := bus.Publish(context.Background(), newRecordedEvent("receivable.receipt.voided"))

	require.NoError(t, err)
	assert.Len(t, wildcard.getHandled(), 1)
}

func TestInMemoryEventBus_Publish_HandlerError(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())

	failing := newRecordingHandler("receivable.receipt.approved")
	failing.setError(errors.New("handler error"))
	healthy := newRecordingHandler("receivable.receipt.approved")
	bus.Subscribe(failing, "receivable.receipt.approved")
	bus.Subscribe(healthy, "receivable.receipt.approved")

	err := bus.Publish(context.Background(), newRecordedEvent("receivable.receipt.approved"))

	// One failing handler never blocks the others
	require.NoError(t, err)
	assert.Len(t, failing.getHandled(), 1)
	assert.Len(t, healthy.getHandled(), 1)
}

func TestInMemoryEventBus_Publish_NoMatchingHandlers(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())

	handler := newRecordingHandler("receivable.receipt.cancelled")
	bus.Subscribe(handler, "receivable.receipt.cancelled")

	err := bus.Publish(context.Background(), newRecordedEvent("receivable.debt.voided"))

	require.NoError(t, err)
	assert.Len(t, handler.getHandled(), 0)
}

func TestInMemoryEventBus_Unsubscribe(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())

	handler := newRecordingHandler("receivable.receipt.approved")
	bus.Subscribe(handler, "receivable.receipt.approved")

	_ = bus.Publish(context.Background(), newRecordedEvent("receivable.receipt.approved"))
	assert.Len(t, handler.getHandled(), 1)

	bus.Unsubscribe(handler)

	_ = bus.Publish(context.Background(), newRecordedEvent("receivable.receipt.approved"))
	assert.Len(t, handler.getHandled(), 1)
}

func TestInMemoryEventBus_StartStop(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())

	ctx := context.Background()
	require.NoError(t, bus.Start(ctx))

	handler := newRecordingHandler("receivable.receipt.approved")
	bus.Subscribe(handler, "receivable.receipt.approved")
	require.NoError(t, bus.Publish(ctx, newRecordedEvent("receivable.receipt.approved")))
	assert.Len(t, handler.getHandled(), 1)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, bus.Stop(ctx))
}

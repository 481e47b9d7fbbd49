package messaging

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nurseprep-hub/nurseprep-progression/internal/domain/ranked"
	"github.com/nurseprep-hub/nurseprep-progression/internal/domain/shared"
	"github.com/nurseprep-hub/nurseprep-progression/pkg/logger"
)

func newTestBus() *InMemoryEventBus {
	return NewInMemoryEventBus(Config{
		WorkerPoolSize: 4,
		Logger:         logger.New(logger.Options{Output: io.Discard}),
	})
}

func TestInMemoryEventBus_DeliversToTypedSubscriber(t *testing.T) {
	bus := newTestBus()
	defer bus.Close()

	received := make(chan shared.Event, 1)
	require.NoError(t, bus.Subscribe(shared.EventSessionStarted, func(event shared.Event) error {
		received <- event
		return nil
	}))

	require.NoError(t, bus.Publish(shared.NewSessionStartedEvent("session-1", "user-1")))

	select {
	case event := <-received:
		assert.Equal(t, shared.EventSessionStarted, event.EventType())
		assert.Equal(t, "session-1", event.AggregateID())
	case <-time.After(2 * time.Second):
		t.Fatal("handler was not invoked")
	}
}

func TestInMemoryEventBus_DoesNotDeliverOtherTypes(t *testing.T) {
	bus := newTestBus()
	defer bus.Close()

	var calls int32
	require.NoError(t, bus.Subscribe(shared.EventSessionEnded, func(event shared.Event) error {
		atomic.AddInt32(&calls, 1)
		return nil
	}))

	require.NoError(t, bus.Publish(shared.NewSessionStartedEvent("session-1", "user-1")))

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
}

func TestInMemoryEventBus_SubscribeAllSeesEverything(t *testing.T) {
	bus := newTestBus()
	defer bus.Close()

	received := make(chan shared.EventType, 2)
	require.NoError(t, bus.SubscribeAll(func(event shared.Event) error {
		received <- event.EventType()
		return nil
	}))

	require.NoError(t, bus.Publish(shared.NewSessionStartedEvent("session-1", "user-1")))
	require.NoError(t, bus.Publish(shared.NewXPGainedEvent("user-1", 30, 130, false)))

	types := make(map[shared.EventType]bool)
	for i := 0; i < 2; i++ {
		select {
		case et := <-received:
			types[et] = true
		case <-time.After(2 * time.Second):
			t.Fatal("expected two deliveries")
		}
	}
	assert.True(t, types[shared.EventSessionStarted])
	assert.True(t, types[shared.EventXPGained])
}

func TestInMemoryEventBus_HandlerFailureDoesNotAffectOthers(t *testing.T) {
	bus := newTestBus()
	defer bus.Close()

	received := make(chan struct{}, 1)
	require.NoError(t, bus.Subscribe(shared.EventSessionEnded, func(event shared.Event) error {
		return errors.New("boom")
	}))
	require.NoError(t, bus.Subscribe(shared.EventSessionEnded, func(event shared.Event) error {
		received <- struct{}{}
		return nil
	}))

	require.NoError(t, bus.Publish(shared.NewSessionEndedEvent("session-1", "user-1", 500, 6, false)))

	select {
	case <-received:
	case <-time.After(2 * time.Second):
		t.Fatal("second handler was not invoked")
	}
}

func TestInMemoryEventBus_RecoversFromPanickingHandler(t *testing.T) {
	bus := newTestBus()
	defer bus.Close()

	received := make(chan struct{}, 2)
	require.NoError(t, bus.Subscribe(shared.EventSessionStarted, func(event shared.Event) error {
		panic("boom")
	}))
	require.NoError(t, bus.Subscribe(shared.EventSessionStarted, func(event shared.Event) error {
		received <- struct{}{}
		return nil
	}))

	require.NoError(t, bus.Publish(shared.NewSessionStartedEvent("session-1", "user-1")))

	select {
	case <-received:
	case <-time.After(2 * time.Second):
		t.Fatal("surviving handler was not invoked")
	}

	// The bus stays usable after the panic.
	require.NoError(t, bus.Publish(shared.NewSessionStartedEvent("session-2", "user-1")))
	select {
	case <-received:
	case <-time.After(2 * time.Second):
		t.Fatal("handler was not invoked after the panic")
	}
}

func TestInMemoryEventBus_NilHandlerRejected(t *testing.T) {
	bus := newTestBus()
	defer bus.Close()

	assert.ErrorIs(t, bus.Subscribe(shared.EventSessionStarted, nil), ErrNilHandler)
	assert.ErrorIs(t, bus.SubscribeAll(nil), ErrNilHandler)
}

func TestInMemoryEventBus_ClosedBusRejectsOperations(t *testing.T) {
	bus := newTestBus()
	require.NoError(t, bus.Close())

	err := bus.Publish(shared.NewSessionStartedEvent("session-1", "user-1"))
	assert.ErrorIs(t, err, ErrEventBusClosed)

	err = bus.Subscribe(shared.EventSessionStarted, func(event shared.Event) error { return nil })
	assert.ErrorIs(t, err, ErrEventBusClosed)

	// Close is idempotent.
	assert.NoError(t, bus.Close())
}

func TestRegisterLeaderboardInvalidator(t *testing.T) {
	tests := []struct {
		name             string
		event            shared.SessionEndedEvent
		wantInvalidation bool
	}{
		{
			name:             "eligible completed session invalidates",
			event:            shared.NewSessionEndedEvent("session-1", "user-1", 500, ranked.MinLeaderboardQuestions, false),
			wantInvalidation: true,
		},
		{
			name:             "short session is ignored",
			event:            shared.NewSessionEndedEvent("session-2", "user-1", 100, ranked.MinLeaderboardQuestions-1, false),
			wantInvalidation: false,
		},
		{
			name:             "abandoned session is ignored",
			event:            shared.NewSessionEndedEvent("session-3", "user-1", 500, ranked.MinLeaderboardQuestions, true),
			wantInvalidation: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bus := newTestBus()
			defer bus.Close()

			cache := &fakeLeaderboardCache{invalidated: make(chan struct{}, 1)}
			require.NoError(t, RegisterLeaderboardInvalidator(bus, cache,
				logger.New(logger.Options{Output: io.Discard})))

			require.NoError(t, bus.Publish(tt.event))

			select {
			case <-cache.invalidated:
				assert.True(t, tt.wantInvalidation, "unexpected invalidation")
			case <-time.After(300 * time.Millisecond):
				assert.False(t, tt.wantInvalidation, "expected invalidation")
			}
		})
	}
}

type fakeLeaderboardCache struct {
	invalidated chan struct{}
}

func (f *fakeLeaderboardCache) GetTop(ctx context.Context, limit int) ([]ranked.Entry, error) {
	return nil, shared.ErrNotFound
}

func (f *fakeLeaderboardCache) SetTop(ctx context.Context, entries []ranked.Entry, ttl time.Duration) error {
	return nil
}

func (f *fakeLeaderboardCache) Invalidate(ctx context.Context) error {
	f.invalidated <- struct{}{}
	return nil
}

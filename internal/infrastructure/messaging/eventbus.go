// Package messaging implements the in-process event bus for the progression
// engine. Domain events fan out to subscribers after the command handler has
// committed its state change; subscribers must tolerate at-least-once
// delivery.
package messaging

import (
	"errors"
	"runtime/debug"
	"sync"
	"time"

	"github.com/nurseprep-hub/nurseprep-progression/internal/domain/shared"
	"github.com/nurseprep-hub/nurseprep-progression/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// ERRORS
// ══════════════════════════════════════════════════════════════════════════════

var (
	// ErrEventBusClosed is returned when operations are attempted on a closed bus.
	ErrEventBusClosed = errors.New("event bus is closed")

	// ErrNilHandler is returned when a nil handler is subscribed.
	ErrNilHandler = errors.New("handler cannot be nil")
)

// EventHandler processes a single domain event.
type EventHandler func(event shared.Event) error

// ══════════════════════════════════════════════════════════════════════════════
// IN-MEMORY EVENT BUS
// ══════════════════════════════════════════════════════════════════════════════

// InMemoryEventBus is a worker-pool backed implementation of
// shared.EventPublisher. Suitable for single-instance deployments; handlers
// run asynchronously so a slow subscriber never stalls a request.
type InMemoryEventBus struct {
	mu          sync.RWMutex
	handlers    map[shared.EventType][]EventHandler
	allHandlers []EventHandler
	workerPool  chan struct{}
	logger      *logger.Logger
	closed      bool
	closeCh     chan struct{}
	wg          sync.WaitGroup
}

// Config contains configuration for InMemoryEventBus.
type Config struct {
	// WorkerPoolSize is the number of concurrent handler executions.
	WorkerPoolSize int

	// Logger for structured logging.
	Logger *logger.Logger
}

// NewInMemoryEventBus creates a new in-memory event bus.
func NewInMemoryEventBus(cfg Config) *InMemoryEventBus {
	if cfg.WorkerPoolSize <= 0 {
		cfg.WorkerPoolSize = 10
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.New(logger.Options{})
	}

	return &InMemoryEventBus{
		handlers:   make(map[shared.EventType][]EventHandler),
		workerPool: make(chan struct{}, cfg.WorkerPoolSize),
		logger:     cfg.Logger,
		closeCh:    make(chan struct{}),
	}
}

// Subscribe registers a handler for a specific event type.
func (b *InMemoryEventBus) Subscribe(eventType shared.EventType, handler EventHandler) error {
	if handler == nil {
		return ErrNilHandler
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrEventBusClosed
	}

	b.handlers[eventType] = append(b.handlers[eventType], handler)
	return nil
}

// SubscribeAll registers a handler for all events.
func (b *InMemoryEventBus) SubscribeAll(handler EventHandler) error {
	if handler == nil {
		return ErrNilHandler
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrEventBusClosed
	}

	b.allHandlers = append(b.allHandlers, handler)
	return nil
}

// Publish sends an event to all subscribed handlers asynchronously.
func (b *InMemoryEventBus) Publish(event shared.Event) error {
	if event == nil {
		return errors.New("event cannot be nil")
	}

	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return ErrEventBusClosed
	}

	handlers := make([]EventHandler, 0, len(b.handlers[event.EventType()])+len(b.allHandlers))
	handlers = append(handlers, b.handlers[event.EventType()]...)
	handlers = append(handlers, b.allHandlers...)
	b.mu.RUnlock()

	if len(handlers) == 0 {
		return nil
	}

	for _, handler := range handlers {
		b.executeAsync(event, handler)
	}

	return nil
}

func (b *InMemoryEventBus) executeAsync(event shared.Event, handler EventHandler) {
	b.wg.Add(1)

	go func() {
		defer b.wg.Done()

		select {
		case b.workerPool <- struct{}{}:
			defer func() { <-b.workerPool }()
		case <-b.closeCh:
			return
		}

		// A panicking subscriber runs outside any HTTP middleware and would
		// otherwise take the whole process down.
		defer func() {
			if rec := recover(); rec != nil {
				b.logger.Error("event handler panicked",
					logger.String("event_type", string(event.EventType())),
					logger.String("aggregate_id", event.AggregateID()),
					logger.Any("panic", rec),
					logger.String("stack", string(debug.Stack())),
				)
			}
		}()

		start := time.Now()
		if err := handler(event); err != nil {
			b.logger.Error("event handler failed",
				logger.String("event_type", string(event.EventType())),
				logger.String("aggregate_id", event.AggregateID()),
				logger.Latency(time.Since(start)),
				logger.Err(err),
			)
		}
	}()
}

// Close stops accepting events and waits for in-flight handlers.
func (b *InMemoryEventBus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	close(b.closeCh)
	b.mu.Unlock()

	b.wg.Wait()
	return nil
}

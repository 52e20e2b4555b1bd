// Package event is the in-process dispatcher for marketplace events.
//
//	bus := event.NewBus(event.WithPublisher(kafkaPub))
//	bus.Listen(event.ProductRemoved, func(ctx context.Context, e event.Event) error {
//	    return sweep(ctx, e.Subject)
//	})
//	bus.Fire(ctx, event.New(event.ProductRemoved, productID, payload))
//
// Listeners run in registration order on the caller's goroutine.
// Publishers receive every event in the background; their failures are
// logged, never returned, and Close waits for them.
package event

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/shashiranjanraj/kachra/pkg/logger"
)

const (
	ProductListed    = "product.listed"
	ProductRemoved   = "product.removed"
	RequestSubmitted = "request.submitted"
	RequestResolved  = "request.resolved"
)

// Event is one occurrence. Subject is the id of the record it concerns.
type Event struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Subject    string    `json:"subject"`
	Payload    any       `json:"payload,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0)
)

// New stamps an event with a ULID and the current time.
func New(name, subject string, payload any) Event {
	entropyMu.Lock()
	id := ulid.MustNew(ulid.Now(), entropy).String()
	entropyMu.Unlock()
	return Event{ID: id, Name: name, Subject: subject, Payload: payload, OccurredAt: time.Now().UTC()}
}

// Handler receives an event. Returned errors are logged.
type Handler func(ctx context.Context, e Event) error

// Publisher forwards events out of process.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

type Bus struct {
	mu         sync.RWMutex
	handlers   map[string][]Handler
	publishers []Publisher
	wg         sync.WaitGroup
}

type Option func(*Bus)

func WithPublisher(p Publisher) Option {
	return func(b *Bus) {
		if p != nil {
			b.publishers = append(b.publishers, p)
		}
	}
}

func NewBus(opts ...Option) *Bus {
	b := &Bus{handlers: map[string][]Handler{}}
	for _, o := range opts {
		o(b)
	}
	return b
}

// Listen registers h for the named event.
func (b *Bus) Listen(name string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[name] = append(b.handlers[name], h)
}

// Fire runs the listeners for e before returning and hands e to the
// publishers in the background.
func (b *Bus) Fire(ctx context.Context, e Event) {
	b.mu.RLock()
	hs := append([]Handler(nil), b.handlers[e.Name]...)
	b.mu.RUnlock()

	log := logger.WithCtx(ctx)
	for _, h := range hs {
		if err := safeCall(ctx, h, e); err != nil {
			log.Warn("event listener failed", "event", e.Name, "event_id", e.ID, "subject", e.Subject, "error", err)
		}
	}
	if len(b.publishers) > 0 {
		b.async(ctx, func(ctx context.Context) { b.publish(ctx, e) })
	}
}

// FireAsync dispatches e on a new goroutine detached from ctx cancellation.
// Use it for events no caller has to wait for.
func (b *Bus) FireAsync(ctx context.Context, e Event) {
	b.async(ctx, func(ctx context.Context) { b.Fire(ctx, e) })
}

func (b *Bus) async(ctx context.Context, fn func(context.Context)) {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		fn(context.WithoutCancel(ctx))
	}()
}

func (b *Bus) publish(ctx context.Context, e Event) {
	for _, p := range b.publishers {
		if err := p.Publish(ctx, e); err != nil {
			logger.WithCtx(ctx).Warn("event publish failed", "event", e.Name, "event_id", e.ID, "error", err)
		}
	}
}

// Wait blocks until in-flight async dispatches and publishes complete.
func (b *Bus) Wait() { b.wg.Wait() }

// Close waits for async dispatches and closes every publisher.
func (b *Bus) Close() error {
	b.Wait()
	var first error
	for _, p := range b.publishers {
		if err := p.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func safeCall(ctx context.Context, h Handler, e Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("listener panic: %v", r)
		}
	}()
	return h(ctx, e)
}

// Package events is the in-process notification bus. Publishers never block:
// a subscriber whose buffer is full misses the event.
package events

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Event types
const (
	TypeInstanceStatus   = "instance.status"
	TypeContainersUpdate = "containers.update"
	TypeServiceStatus    = "service.status"
	TypeTerminalReady    = "terminal.ready"
	TypeTerminalOutput   = "terminal.output"
	TypeTerminalError    = "terminal.error"
	TypeTerminalClosed   = "terminal.closed"
)

// subscriberBuffer is the per-subscriber channel capacity.
const subscriberBuffer = 64

// Event is one notification.
type Event struct {
	Type string    `json:"type"`
	Time time.Time `json:"time"`
	Data any       `json:"data,omitempty"`
}

// New stamps an event with the current time.
func New(eventType string, data any) Event {
	return Event{Type: eventType, Time: time.Now().UTC(), Data: data}
}

// InstanceStatus is the payload of instance.status.
type InstanceStatus struct {
	InstanceID string `json:"instance_id"`
	OwnerID    string `json:"owner_id"`
	Status     string `json:"status"`
}

// ContainersUpdate is the payload of containers.update.
type ContainersUpdate struct {
	Containers any `json:"containers"`
}

// ServiceStatus is the payload of service.status.
type ServiceStatus struct {
	Name      string    `json:"name"`
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// TerminalEvent is the payload of every terminal.* event.
type TerminalEvent struct {
	SessionID string `json:"session_id"`
	Data      []byte `json:"data,omitempty"`
	Message   string `json:"message,omitempty"`
}

// OwnerOf returns the owner an event is scoped to, or "" for broadcast
// events.
func OwnerOf(e Event) string {
	switch d := e.Data.(type) {
	case InstanceStatus:
		return d.OwnerID
	case *InstanceStatus:
		return d.OwnerID
	}
	return ""
}

// Publisher is implemented by anything that accepts events.
type Publisher interface {
	Publish(e Event)
}

// Bus fans events out to subscribers.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[chan Event]struct{}
	closed      bool

	published metric.Int64Counter
	dropped   metric.Int64Counter
}

var _ Publisher = (*Bus)(nil)

// NewBus creates a bus. meter may be nil.
func NewBus(meter metric.Meter) (*Bus, error) {
	b := &Bus{subscribers: make(map[chan Event]struct{})}
	if meter == nil {
		return b, nil
	}

	published, err := meter.Int64Counter(
		"hypedesk_events_published_total",
		metric.WithDescription("Total number of events published to the bus"),
	)
	if err != nil {
		return nil, fmt.Errorf("create published counter: %w", err)
	}

	dropped, err := meter.Int64Counter(
		"hypedesk_events_dropped_total",
		metric.WithDescription("Total number of event deliveries skipped because a subscriber was full"),
	)
	if err != nil {
		return nil, fmt.Errorf("create dropped counter: %w", err)
	}

	b.published = published
	b.dropped = dropped
	return b, nil
}

// Publish delivers e to every subscriber that has room for it.
func (b *Bus) Publish(e Event) {
	if e.Time.IsZero() {
		e.Time = time.Now().UTC()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}

	attrs := metric.WithAttributes(attribute.String("type", e.Type))
	if b.published != nil {
		b.published.Add(context.Background(), 1, attrs)
	}
	for ch := range b.subscribers {
		select {
		case ch <- e:
		default:
			if b.dropped != nil {
				b.dropped.Add(context.Background(), 1, attrs)
			}
		}
	}
}

// Subscribe registers a subscriber. The channel is closed when ctx is done,
// when cancel is called, or when the bus closes. cancel is idempotent.
func (b *Bus) Subscribe(ctx context.Context) (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	b.subscribers[ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	done := make(chan struct{})
	cancel := func() {
		once.Do(func() {
			close(done)
			b.unsubscribe(ch)
		})
	}

	go func() {
		select {
		case <-ctx.Done():
			cancel()
		case <-done:
		}
	}()

	return ch, cancel
}

func (b *Bus) unsubscribe(ch chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.subscribers[ch]; ok {
		delete(b.subscribers, ch)
		close(ch)
	}
}

// Subscribers returns the current subscriber count.
func (b *Bus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// Close closes every subscriber channel. Later publishes are dropped.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for ch := range b.subscribers {
		close(ch)
	}
	b.subscribers = nil
}

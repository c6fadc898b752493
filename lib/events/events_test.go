package events

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

func receive(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case e, ok := <-ch:
		require.True(t, ok, "channel closed")
		return e
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func newTestBus(t *testing.T) *Bus {
	t.Helper()
	bus, err := NewBus(nil)
	require.NoError(t, err)
	return bus
}

// failingMeter refuses to create instruments.
type failingMeter struct {
	noop.Meter
}

func (failingMeter) Int64Counter(name string, _ ...metric.Int64CounterOption) (metric.Int64Counter, error) {
	return nil, errors.New("instrument " + name + " rejected")
}

func TestNewBusMetrics(t *testing.T) {
	bus, err := NewBus(noop.NewMeterProvider().Meter("test"))
	require.NoError(t, err)
	assert.NotNil(t, bus.published)
	assert.NotNil(t, bus.dropped)
	bus.Publish(New(TypeContainersUpdate, nil))

	_, err = NewBus(failingMeter{})
	assert.ErrorContains(t, err, "hypedesk_events_published_total rejected")
}

func TestBusFanOut(t *testing.T) {
	bus := newTestBus(t)
	ctx := context.Background()

	a, cancelA := bus.Subscribe(ctx)
	defer cancelA()
	b, cancelB := bus.Subscribe(ctx)
	defer cancelB()

	bus.Publish(New(TypeInstanceStatus, InstanceStatus{InstanceID: "i1", OwnerID: "u1", Status: "running"}))

	for _, ch := range []<-chan Event{a, b} {
		e := receive(t, ch)
		assert.Equal(t, TypeInstanceStatus, e.Type)
		assert.Equal(t, "u1", OwnerOf(e))
		assert.False(t, e.Time.IsZero())
	}
}

func TestBusSlowSubscriberDoesNotBlock(t *testing.T) {
	bus := newTestBus(t)
	ch, cancel := bus.Subscribe(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		for i := 0; i < subscriberBuffer*3; i++ {
			bus.Publish(New(TypeContainersUpdate, nil))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a full subscriber")
	}
	assert.Len(t, ch, subscriberBuffer)
}

func TestBusUnsubscribe(t *testing.T) {
	bus := newTestBus(t)
	ctx, cancelCtx := context.WithCancel(context.Background())

	ch, cancel := bus.Subscribe(ctx)
	require.Equal(t, 1, bus.Subscribers())

	cancelCtx()
	require.Eventually(t, func() bool { return bus.Subscribers() == 0 }, time.Second, 10*time.Millisecond)
	_, ok := <-ch
	assert.False(t, ok)

	// Cancel after context teardown is a no-op.
	cancel()
	bus.Publish(New(TypeContainersUpdate, nil))
}

func TestBusClose(t *testing.T) {
	bus := newTestBus(t)
	ch, cancel := bus.Subscribe(context.Background())
	defer cancel()

	bus.Close()
	_, ok := <-ch
	assert.False(t, ok)

	late, lateCancel := bus.Subscribe(context.Background())
	defer lateCancel()
	_, ok = <-late
	assert.False(t, ok)

	bus.Publish(New(TypeContainersUpdate, nil))
	bus.Close()
}

func TestOwnerOf(t *testing.T) {
	assert.Equal(t, "u1", OwnerOf(New(TypeInstanceStatus, &InstanceStatus{OwnerID: "u1"})))
	assert.Empty(t, OwnerOf(New(TypeServiceStatus, ServiceStatus{Name: "hypedesk-ubuntu-desktop"})))
}

func TestToSSEReader(t *testing.T) {
	ch := make(chan Event, 2)
	ch <- New(TypeServiceStatus, ServiceStatus{Name: "svc", Status: "running"})
	close(ch)

	r := ToSSEReader(ch)
	defer r.Close()

	scanner := bufio.NewScanner(r)
	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	require.NoError(t, scanner.Err())
	require.Len(t, lines, 3)
	assert.Equal(t, "event: service.status", lines[0])
	require.True(t, strings.HasPrefix(lines[1], "data: "))
	assert.Empty(t, lines[2])

	var decoded struct {
		Type string        `json:"type"`
		Data ServiceStatus `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(lines[1], "data: ")), &decoded))
	assert.Equal(t, "svc", decoded.Data.Name)
	assert.Equal(t, "running", decoded.Data.Status)

	n, err := r.Read(make([]byte, 8))
	assert.Zero(t, n)
	assert.Equal(t, io.EOF, err)
}

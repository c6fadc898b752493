package monitor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/onkernel/hypedesk/lib/engine"
	"github.com/onkernel/hypedesk/lib/engine/enginetest"
	"github.com/onkernel/hypedesk/lib/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
)

type recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recorder) Publish(e events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) ofType(t string) []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []events.Event
	for _, e := range r.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

func TestDiff(t *testing.T) {
	a := engine.Snapshot{ID: "a", Status: "Up 1 second", Running: true}
	b := engine.Snapshot{ID: "b", Status: "Exited (0)", Running: false}

	tests := []struct {
		name string
		prev []engine.Snapshot
		cur  []engine.Snapshot
		want bool
	}{
		{"both empty", nil, nil, false},
		{"identical", []engine.Snapshot{a, b}, []engine.Snapshot{a, b}, false},
		{"reordered", []engine.Snapshot{a, b}, []engine.Snapshot{b, a}, false},
		{"added", []engine.Snapshot{a}, []engine.Snapshot{a, b}, true},
		{"removed", []engine.Snapshot{a, b}, []engine.Snapshot{a}, true},
		{"replaced", []engine.Snapshot{a}, []engine.Snapshot{b}, true},
		{"status changed", []engine.Snapshot{a}, []engine.Snapshot{{ID: "a", Status: "Up 2 seconds", Running: true}}, true},
		{"stopped", []engine.Snapshot{a}, []engine.Snapshot{{ID: "a", Status: "Up 1 second", Running: false}}, true},
		{"ports ignored", []engine.Snapshot{a}, []engine.Snapshot{{ID: "a", Status: "Up 1 second", Running: true, Ports: []int{80}}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Diff(tt.prev, tt.cur))
		})
	}
}

func TestTickPublishesOnlyOnChange(t *testing.T) {
	fake := enginetest.New()
	id := fake.AddContainer("web", "nginx", true, 8080)
	rec := &recorder{}

	var hookCalls int
	m, err := New(fake, rec, Config{OnChange: func(context.Context) error {
		hookCalls++
		return nil
	}}, noop.NewMeterProvider().Meter("test"))
	require.NoError(t, err)
	ctx := context.Background()

	m.Tick(ctx)
	m.Tick(ctx)
	updates := rec.ofType(events.TypeContainersUpdate)
	require.Len(t, updates, 1, "identical polls publish once")
	assert.Equal(t, 1, hookCalls)

	payload, ok := updates[0].Data.(events.ContainersUpdate)
	require.True(t, ok)
	snaps, ok := payload.Containers.([]engine.Snapshot)
	require.True(t, ok)
	require.Len(t, snaps, 1)
	assert.Equal(t, id, snaps[0].ID)

	fake.SetRunning(id, false)
	m.Tick(ctx)
	assert.Len(t, rec.ofType(events.TypeContainersUpdate), 2)
	assert.Equal(t, 2, hookCalls)
	assert.False(t, m.Snapshot()[0].Running)
}

func TestTickEmptyRuntimePublishesFirstSnapshot(t *testing.T) {
	rec := &recorder{}
	m, err := New(enginetest.New(), rec, Config{}, nil)
	require.NoError(t, err)

	m.Tick(context.Background())
	m.Tick(context.Background())
	assert.Len(t, rec.ofType(events.TypeContainersUpdate), 1)
}

func TestTickListFailureSkips(t *testing.T) {
	fake := enginetest.New()
	fake.ListErr = errors.New("connection refused")
	rec := &recorder{}
	m, err := New(fake, rec, Config{Services: []string{"hypedesk-ubuntu-desktop"}}, nil)
	require.NoError(t, err)

	m.Tick(context.Background())
	assert.Empty(t, rec.events)
	_, seen := m.ServiceStatus("hypedesk-ubuntu-desktop")
	assert.False(t, seen)
}

func TestHookErrorDoesNotStopTick(t *testing.T) {
	fake := enginetest.New()
	rec := &recorder{}
	m, err := New(fake, rec, Config{
		Services: []string{"svc"},
		OnChange: func(context.Context) error { return errors.New("store locked") },
	}, nil)
	require.NoError(t, err)

	m.Tick(context.Background())
	assert.Len(t, rec.ofType(events.TypeServiceStatus), 1)
}

func TestServiceStatusTransitions(t *testing.T) {
	fake := enginetest.New()
	rec := &recorder{}
	m, err := New(fake, rec, Config{Services: []string{"hypedesk-ubuntu-desktop"}}, nil)
	require.NoError(t, err)
	ctx := context.Background()

	statuses := func() []string {
		var out []string
		for _, e := range rec.ofType(events.TypeServiceStatus) {
			out = append(out, e.Data.(events.ServiceStatus).Status)
		}
		return out
	}

	m.Tick(ctx)
	m.Tick(ctx)
	assert.Equal(t, []string{ServiceMissing}, statuses())

	id := fake.AddContainer("hypedesk-ubuntu-desktop", "img", false)
	m.Tick(ctx)
	assert.Equal(t, []string{ServiceMissing, ServiceStopped}, statuses())

	fake.SetRunning(id, true)
	m.Tick(ctx)
	m.Tick(ctx)
	assert.Equal(t, []string{ServiceMissing, ServiceStopped, ServiceRunning}, statuses())

	got, ok := m.ServiceStatus("hypedesk-ubuntu-desktop")
	assert.True(t, ok)
	assert.Equal(t, ServiceRunning, got)

	last := rec.ofType(events.TypeServiceStatus)[2].Data.(events.ServiceStatus)
	assert.Equal(t, "hypedesk-ubuntu-desktop", last.Name)
	assert.False(t, last.Timestamp.IsZero())
}

func TestRunStopsOnCancel(t *testing.T) {
	rec := &recorder{}
	m, err := New(enginetest.New(), rec, Config{Interval: 5 * time.Millisecond}, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	require.Eventually(t, func() bool { return len(rec.ofType(events.TypeContainersUpdate)) == 1 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("monitor did not stop")
	}
}

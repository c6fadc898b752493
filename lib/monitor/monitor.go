// Package monitor polls the container runtime and announces changes.
//
// The monitor only reads the runtime and publishes events. Persisted
// instance state is reconciled by the OnChange hook, which belongs to
// whoever owns that state.
package monitor

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/onkernel/hypedesk/lib/engine"
	"github.com/onkernel/hypedesk/lib/events"
	"github.com/onkernel/hypedesk/lib/logger"
	hdotel "github.com/onkernel/hypedesk/lib/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// DefaultInterval is the poll period when Config.Interval is unset.
const DefaultInterval = 10 * time.Second

// Service states
const (
	ServiceRunning = "running"
	ServiceStopped = "stopped"
	ServiceMissing = "missing"
)

// Runtime is the read-only slice of engine.Engine the monitor uses.
type Runtime interface {
	ListContainers(ctx context.Context, all bool) ([]engine.Snapshot, error)
	Inspect(ctx context.Context, ref string) (*engine.ContainerState, error)
}

// Config configures a Monitor.
type Config struct {
	Interval time.Duration
	// Services are container names checked individually each tick.
	Services []string
	// OnChange runs after a changed snapshot has been published.
	OnChange func(ctx context.Context) error
}

// Monitor owns the last-seen snapshot and per-service states.
type Monitor struct {
	runtime   Runtime
	publisher events.Publisher
	cfg       Config
	metrics   *hdotel.MonitorMetrics

	mu          sync.Mutex
	baseline    []engine.Snapshot
	hasBaseline bool
	services    map[string]string
}

// New creates a monitor. meter may be nil.
func New(runtime Runtime, publisher events.Publisher, cfg Config, meter metric.Meter) (*Monitor, error) {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	m := &Monitor{
		runtime:   runtime,
		publisher: publisher,
		cfg:       cfg,
		services:  make(map[string]string),
	}
	if meter != nil {
		metrics, err := hdotel.NewMonitorMetrics(meter)
		if err != nil {
			return nil, err
		}
		m.metrics = metrics
	}
	return m, nil
}

// Run ticks immediately and then every interval until ctx is done.
func (m *Monitor) Run(ctx context.Context) error {
	log := logger.FromContext(ctx)
	log.InfoContext(ctx, "status monitor started", "interval", m.cfg.Interval, "services", m.cfg.Services)

	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	for {
		m.Tick(ctx)
		select {
		case <-ctx.Done():
			log.InfoContext(ctx, "status monitor stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// Tick polls once.
func (m *Monitor) Tick(ctx context.Context) {
	start := time.Now()
	log := logger.FromContext(ctx)

	containers, err := m.runtime.ListContainers(ctx, true)
	if err != nil {
		log.WarnContext(ctx, "failed to list containers, skipping tick", "error", err)
		m.recordTick(ctx, "error", start)
		return
	}
	if m.metrics != nil {
		m.metrics.ContainersSeen.Record(ctx, int64(len(containers)))
	}

	if m.swapBaseline(containers) {
		m.recordChange(ctx, "containers")
		m.publisher.Publish(events.New(events.TypeContainersUpdate, events.ContainersUpdate{Containers: containers}))
		log.DebugContext(ctx, "container snapshot changed", "containers", len(containers))

		if m.cfg.OnChange != nil {
			if err := m.cfg.OnChange(ctx); err != nil {
				log.WarnContext(ctx, "change hook failed", "error", err)
			}
		}
	}

	for _, name := range m.cfg.Services {
		m.checkService(ctx, name)
	}
	m.recordTick(ctx, "ok", start)
}

// swapBaseline stores cur and reports whether it differs from the previous
// snapshot. The first snapshot always counts as a change.
func (m *Monitor) swapBaseline(cur []engine.Snapshot) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.hasBaseline && !Diff(m.baseline, cur) {
		return false
	}
	m.baseline = cur
	m.hasBaseline = true
	return true
}

func (m *Monitor) checkService(ctx context.Context, name string) {
	status := ServiceStopped
	state, err := m.runtime.Inspect(ctx, name)
	switch {
	case errors.Is(err, engine.ErrNotFound):
		status = ServiceMissing
	case err != nil:
		logger.FromContext(ctx).WarnContext(ctx, "failed to check service", "service", name, "error", err)
		return
	case state.Running:
		status = ServiceRunning
	}

	m.mu.Lock()
	prev, seen := m.services[name]
	m.services[name] = status
	m.mu.Unlock()

	if seen && prev == status {
		return
	}
	m.recordChange(ctx, "service")
	m.publisher.Publish(events.New(events.TypeServiceStatus, events.ServiceStatus{
		Name:      name,
		Status:    status,
		Timestamp: time.Now().UTC(),
	}))
}

// Snapshot returns the current baseline.
func (m *Monitor) Snapshot() []engine.Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]engine.Snapshot(nil), m.baseline...)
}

// ServiceStatus returns the last observed state of a service.
func (m *Monitor) ServiceStatus(name string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.services[name]
	return s, ok
}

func (m *Monitor) recordTick(ctx context.Context, result string, start time.Time) {
	if m.metrics == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("result", result))
	m.metrics.TicksTotal.Add(ctx, 1, attrs)
	m.metrics.TickDuration.Record(ctx, time.Since(start).Seconds(), attrs)
}

func (m *Monitor) recordChange(ctx context.Context, kind string) {
	if m.metrics == nil {
		return
	}
	m.metrics.ChangesTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}

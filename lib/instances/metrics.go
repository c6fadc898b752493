package instances

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the metrics instruments for instance operations.
type Metrics struct {
	createDuration    metric.Float64Histogram
	startDuration     metric.Float64Histogram
	stopDuration      metric.Float64Histogram
	restartDuration   metric.Float64Histogram
	terminateDuration metric.Float64Histogram
	stateTransitions  metric.Int64Counter
}

func newInstanceMetrics(meter metric.Meter, m *manager) (*Metrics, error) {
	histogram := func(name, description string) (metric.Float64Histogram, error) {
		return meter.Float64Histogram(name, metric.WithDescription(description), metric.WithUnit("s"))
	}

	createDuration, err := histogram("hypedesk_instances_create_duration_seconds", "Time to provision an instance's container")
	if err != nil {
		return nil, err
	}
	startDuration, err := histogram("hypedesk_instances_start_duration_seconds", "Time to start an instance")
	if err != nil {
		return nil, err
	}
	stopDuration, err := histogram("hypedesk_instances_stop_duration_seconds", "Time to stop an instance")
	if err != nil {
		return nil, err
	}
	restartDuration, err := histogram("hypedesk_instances_restart_duration_seconds", "Time to restart an instance")
	if err != nil {
		return nil, err
	}
	terminateDuration, err := histogram("hypedesk_instances_terminate_duration_seconds", "Time to terminate an instance")
	if err != nil {
		return nil, err
	}

	stateTransitions, err := meter.Int64Counter(
		"hypedesk_instances_state_transitions_total",
		metric.WithDescription("Total number of instance state transitions"),
	)
	if err != nil {
		return nil, err
	}

	instancesTotal, err := meter.Int64ObservableGauge(
		"hypedesk_instances_total",
		metric.WithDescription("Total number of instances by status"),
	)
	if err != nil {
		return nil, err
	}

	_, err = meter.RegisterCallback(
		func(ctx context.Context, o metric.Observer) error {
			counts, err := m.store.countByStatus(ctx)
			if err != nil {
				return nil
			}
			for status, count := range counts {
				o.ObserveInt64(instancesTotal, count,
					metric.WithAttributes(attribute.String("status", string(status))))
			}
			return nil
		},
		instancesTotal,
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		createDuration:    createDuration,
		startDuration:     startDuration,
		stopDuration:      stopDuration,
		restartDuration:   restartDuration,
		terminateDuration: terminateDuration,
		stateTransitions:  stateTransitions,
	}, nil
}

// recordDuration records operation duration with a result label.
func (m *manager) recordDuration(ctx context.Context, op string, start time.Time, status string) {
	if m.metrics == nil {
		return
	}
	var histogram metric.Float64Histogram
	switch op {
	case "create":
		histogram = m.metrics.createDuration
	case "start":
		histogram = m.metrics.startDuration
	case "stop":
		histogram = m.metrics.stopDuration
	case "restart":
		histogram = m.metrics.restartDuration
	case "terminate":
		histogram = m.metrics.terminateDuration
	default:
		return
	}
	histogram.Record(ctx, time.Since(start).Seconds(),
		metric.WithAttributes(attribute.String("status", status)))
}

func (m *manager) recordStateTransition(ctx context.Context, fromState, toState string) {
	if m.metrics == nil {
		return
	}
	if fromState == "" {
		fromState = "none"
	}
	m.metrics.stateTransitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("from", fromState),
		attribute.String("to", toState),
	))
}

package otel

import (
	"go.opentelemetry.io/otel/metric"
)

// MonitorMetrics holds metrics for the status monitor.
type MonitorMetrics struct {
	TicksTotal     metric.Int64Counter
	ChangesTotal   metric.Int64Counter
	TickDuration   metric.Float64Histogram
	ContainersSeen metric.Int64Gauge
}

// NewMonitorMetrics creates metrics for the status monitor.
func NewMonitorMetrics(meter metric.Meter) (*MonitorMetrics, error) {
	ticksTotal, err := meter.Int64Counter(
		"hypedesk_monitor_ticks_total",
		metric.WithDescription("Total number of monitor polls by result"),
	)
	if err != nil {
		return nil, err
	}

	changesTotal, err := meter.Int64Counter(
		"hypedesk_monitor_changes_total",
		metric.WithDescription("Total number of detected changes by kind"),
	)
	if err != nil {
		return nil, err
	}

	tickDuration, err := meter.Float64Histogram(
		"hypedesk_monitor_tick_duration_seconds",
		metric.WithDescription("Time to poll the runtime once"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	containersSeen, err := meter.Int64Gauge(
		"hypedesk_monitor_containers",
		metric.WithDescription("Number of containers seen in the last poll"),
	)
	if err != nil {
		return nil, err
	}

	return &MonitorMetrics{
		TicksTotal:     ticksTotal,
		ChangesTotal:   changesTotal,
		TickDuration:   tickDuration,
		ContainersSeen: containersSeen,
	}, nil
}

// TerminalMetrics holds metrics for the terminal session manager.
type TerminalMetrics struct {
	SessionsActive metric.Int64UpDownCounter
	SessionsOpened metric.Int64Counter
	BytesOut       metric.Int64Counter
}

// NewTerminalMetrics creates metrics for the terminal session manager.
func NewTerminalMetrics(meter metric.Meter) (*TerminalMetrics, error) {
	sessionsActive, err := meter.Int64UpDownCounter(
		"hypedesk_terminal_sessions_active",
		metric.WithDescription("Number of open terminal sessions"),
	)
	if err != nil {
		return nil, err
	}

	sessionsOpened, err := meter.Int64Counter(
		"hypedesk_terminal_sessions_opened_total",
		metric.WithDescription("Total number of terminal open attempts by result"),
	)
	if err != nil {
		return nil, err
	}

	bytesOut, err := meter.Int64Counter(
		"hypedesk_terminal_output_bytes_total",
		metric.WithDescription("Total bytes forwarded from terminal sessions"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, err
	}

	return &TerminalMetrics{
		SessionsActive: sessionsActive,
		SessionsOpened: sessionsOpened,
		BytesOut:       bytesOut,
	}, nil
}

// HTTPMetrics holds metrics for HTTP middleware.
type HTTPMetrics struct {
	RequestsTotal   metric.Int64Counter
	RequestDuration metric.Float64Histogram
}

// NewHTTPMetrics creates metrics for HTTP middleware.
func NewHTTPMetrics(meter metric.Meter) (*HTTPMetrics, error) {
	requestsTotal, err := meter.Int64Counter(
		"hypedesk_http_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
	)
	if err != nil {
		return nil, err
	}

	requestDuration, err := meter.Float64Histogram(
		"hypedesk_http_request_duration_seconds",
		metric.WithDescription("HTTP request duration"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &HTTPMetrics{
		RequestsTotal:   requestsTotal,
		RequestDuration: requestDuration,
	}, nil
}

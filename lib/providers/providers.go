// Package providers holds the wire provider functions that assemble the
// hypedesk server.
package providers

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/onkernel/hypedesk/cmd/api/config"
	"github.com/onkernel/hypedesk/lib/engine"
	"github.com/onkernel/hypedesk/lib/events"
	"github.com/onkernel/hypedesk/lib/instances"
	"github.com/onkernel/hypedesk/lib/logger"
	"github.com/onkernel/hypedesk/lib/monitor"
	hdotel "github.com/onkernel/hypedesk/lib/otel"
	"github.com/onkernel/hypedesk/lib/paths"
	"github.com/onkernel/hypedesk/lib/ports"
	"github.com/onkernel/hypedesk/lib/sqlitepool"
	"github.com/onkernel/hypedesk/lib/templates"
	"github.com/onkernel/hypedesk/lib/terminal"
)

// shutdownTimeout bounds each cleanup step that talks to something external.
const shutdownTimeout = 10 * time.Second

// ProvideContext provides a base context
func ProvideContext() context.Context {
	return context.Background()
}

// ProvideConfig provides the application configuration
func ProvideConfig() *config.Config {
	return config.Load()
}

// ProvideOtel provides the telemetry providers. Disabled config yields noop
// meter and tracer.
func ProvideOtel(ctx context.Context, cfg *config.Config) (*hdotel.Providers, func(), error) {
	p, err := hdotel.Init(ctx, hdotel.Config{
		Enabled:     cfg.OtelEnabled,
		Endpoint:    cfg.OtelEndpoint,
		ServiceName: cfg.OtelServiceName,
		Insecure:    cfg.OtelInsecure,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("init otel: %w", err)
	}
	cleanup := func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := p.Shutdown(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "otel shutdown: %v\n", err)
		}
	}
	return p, cleanup, nil
}

// ProvideLogger provides a structured logger
func ProvideLogger(cfg *config.Config, otel *hdotel.Providers) *slog.Logger {
	log := logger.New(logger.Config{
		Level:  logger.ParseLevel(cfg.LogLevel),
		Output: os.Stdout,
	}, otel.LogHandler)
	slog.SetDefault(log)
	return log
}

// ProvidePaths provides the data directory layout
func ProvidePaths(cfg *config.Config) *paths.Paths {
	return paths.New(cfg.DataDir)
}

// ProvideSQLitePool opens the instance database and applies the schema on
// every new connection.
func ProvideSQLitePool(p *paths.Paths, log *slog.Logger) (*sqlitepool.Pool, func(), error) {
	if err := os.MkdirAll(p.DataDir(), 0755); err != nil {
		return nil, nil, fmt.Errorf("create data dir: %w", err)
	}
	pool, err := sqlitepool.Open(sqlitepool.Config{
		Path:      p.Database(),
		Logger:    log.With("subsystem", logger.SubsystemStore),
		OnConnect: instances.ApplySchema,
	})
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if err := pool.Close(); err != nil {
			log.Error("failed to close database", "error", err)
		}
	}
	return pool, cleanup, nil
}

// ProvideEngine provides the Docker-backed container runtime
func ProvideEngine(cfg *config.Config, log *slog.Logger) (engine.Engine, func(), error) {
	d, err := engine.NewDocker(cfg.DockerHost)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if err := d.Close(); err != nil {
			log.Error("failed to close docker client", "error", err)
		}
	}
	return d, cleanup, nil
}

// ProvideCatalog provides the template catalog, from TEMPLATES_FILE when set.
func ProvideCatalog(cfg *config.Config) (*templates.Catalog, error) {
	if cfg.TemplatesFile == "" {
		return templates.DefaultCatalog(), nil
	}
	return templates.LoadFile(cfg.TemplatesFile)
}

// ProvideEventBus provides the notification bus
func ProvideEventBus(otel *hdotel.Providers) (*events.Bus, func(), error) {
	bus, err := events.NewBus(otel.Meter)
	if err != nil {
		return nil, nil, fmt.Errorf("create event bus: %w", err)
	}
	return bus, bus.Close, nil
}

// ProvidePortAllocator provides the host port allocator
func ProvidePortAllocator(eng engine.Engine) instances.PortAllocator {
	return ports.NewAllocator(eng)
}

// ProvideInstanceManager provides the instance manager. Cleanup waits for
// in-flight creations.
func ProvideInstanceManager(
	pool *sqlitepool.Pool,
	eng engine.Engine,
	catalog *templates.Catalog,
	allocator instances.PortAllocator,
	bus *events.Bus,
	p *paths.Paths,
	otel *hdotel.Providers,
	log *slog.Logger,
) (instances.Manager, func(), error) {
	mgr, err := instances.NewManager(pool, eng, catalog, allocator, bus, p, otel.Meter, otel.Tracer)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if err := mgr.Close(); err != nil {
			log.Error("failed to close instance manager", "error", err)
		}
	}
	return mgr, cleanup, nil
}

// ProvideTerminalManager provides the terminal session manager
func ProvideTerminalManager(eng engine.Engine, otel *hdotel.Providers) (*terminal.Manager, func(), error) {
	tm, err := terminal.NewManager(eng, otel.Meter)
	if err != nil {
		return nil, nil, fmt.Errorf("create terminal manager: %w", err)
	}
	return tm, tm.Shutdown, nil
}

// ProvideMonitor provides the status monitor. Every changed snapshot
// triggers a reconcile of all live instances.
func ProvideMonitor(
	cfg *config.Config,
	eng engine.Engine,
	bus *events.Bus,
	catalog *templates.Catalog,
	mgr instances.Manager,
	otel *hdotel.Providers,
) (*monitor.Monitor, error) {
	return monitor.New(eng, bus, monitor.Config{
		Interval: cfg.MonitorInterval,
		Services: catalog.CanonicalNames(),
		OnChange: mgr.SyncAll,
	}, otel.Meter)
}

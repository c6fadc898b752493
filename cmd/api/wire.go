//go:build wireinject

package main

import (
	"context"
	"log/slog"

	"github.com/google/wire"
	"github.com/onkernel/hypedesk/cmd/api/api"
	"github.com/onkernel/hypedesk/cmd/api/config"
	"github.com/onkernel/hypedesk/lib/instances"
	"github.com/onkernel/hypedesk/lib/monitor"
	hdotel "github.com/onkernel/hypedesk/lib/otel"
	"github.com/onkernel/hypedesk/lib/providers"
	"github.com/onkernel/hypedesk/lib/terminal"
)

// application struct to hold initialized components
type application struct {
	Ctx             context.Context
	Logger          *slog.Logger
	Config          *config.Config
	Otel            *hdotel.Providers
	InstanceManager instances.Manager
	TerminalManager *terminal.Manager
	Monitor         *monitor.Monitor
	ApiService      *api.ApiService
}

// initializeApp is the injector function
func initializeApp() (*application, func(), error) {
	panic(wire.Build(
		providers.ProvideContext,
		providers.ProvideConfig,
		providers.ProvideOtel,
		providers.ProvideLogger,
		providers.ProvidePaths,
		providers.ProvideSQLitePool,
		providers.ProvideEngine,
		providers.ProvideCatalog,
		providers.ProvideEventBus,
		providers.ProvidePortAllocator,
		providers.ProvideInstanceManager,
		providers.ProvideTerminalManager,
		providers.ProvideMonitor,
		api.New,
		wire.Struct(new(application), "*"),
	))
}

package api

import (
	"github.com/onkernel/hypedesk/cmd/api/config"
	"github.com/onkernel/hypedesk/lib/engine"
	"github.com/onkernel/hypedesk/lib/events"
	"github.com/onkernel/hypedesk/lib/instances"
	"github.com/onkernel/hypedesk/lib/monitor"
	"github.com/onkernel/hypedesk/lib/templates"
	"github.com/onkernel/hypedesk/lib/terminal"
)

// ApiService serves the HTTP and websocket control surface.
type ApiService struct {
	Config          *config.Config
	InstanceManager instances.Manager
	Catalog         *templates.Catalog
	TerminalManager *terminal.Manager
	Bus             *events.Bus
	Engine          engine.Engine
	Monitor         *monitor.Monitor
}

// New creates a new ApiService
func New(
	config *config.Config,
	instanceManager instances.Manager,
	catalog *templates.Catalog,
	terminalManager *terminal.Manager,
	bus *events.Bus,
	eng engine.Engine,
	mon *monitor.Monitor,
) *ApiService {
	return &ApiService{
		Config:          config,
		InstanceManager: instanceManager,
		Catalog:         catalog,
		TerminalManager: terminalManager,
		Bus:             bus,
		Engine:          eng,
		Monitor:         mon,
	}
}

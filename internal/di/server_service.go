package di

import (
	"context"
	"time"

	"github.com/samber/do/v2"

	"github.com/omarluq/aicleaner/internal/api"
)

// shutdownTimeout bounds the graceful HTTP shutdown.
const shutdownTimeout = 15 * time.Second

// ServerService wraps the REST API server.
type ServerService struct {
	Server *api.Server
}

// NewServer builds the handlers, routes and HTTP server. The listen
// address and h2c flag are read once; the API key, body limit and check
// timeout follow the live config.
func NewServer(i do.Injector) (*ServerService, error) {
	cfgSvc := do.MustInvoke[*ConfigService](i)
	logger := do.MustInvoke[*LoggerService](i).Logger
	monitor := do.MustInvoke[*MonitorService](i).Monitor
	orchestrator := do.MustInvoke[*OrchestratorService](i).Orchestrator

	checkTimeout := func() time.Duration {
		return cfgSvc.Get().Server.GetTimeoutOption().OrElse(0)
	}
	handlers := api.NewHandlers(monitor, orchestrator, checkTimeout)
	handler := api.SetupRoutes(cfgSvc, handlers, logger)

	server := cfgSvc.Get().Server
	return &ServerService{
		Server: api.NewServer(server.GetListen(), handler, server.EnableHTTP2),
	}, nil
}

// Shutdown implements do.Shutdowner.
func (s *ServerService) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return s.Server.Shutdown(ctx)
}

package di

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
	"github.com/samber/do/v2"

	"github.com/omarluq/aicleaner/internal/health"
	"github.com/omarluq/aicleaner/internal/router"
)

// MonitorService owns the health monitor and its history file.
type MonitorService struct {
	Monitor     *health.Monitor
	registry    *router.Registry
	logger      *zerolog.Logger
	historyFile string
	mu          sync.Mutex
	started     bool
}

// NewMonitor creates the monitor, registers every provider in priority
// order and restores the history file if one is configured.
func NewMonitor(i do.Injector) (*MonitorService, error) {
	cfg := do.MustInvoke[*ConfigService](i).Get()
	logger := do.MustInvoke[*LoggerService](i).Logger
	registry := do.MustInvoke[*RegistryService](i).Registry

	monitor := health.NewMonitor(cfg.Health, logger)
	for _, name := range registry.Names() {
		probe, _ := registry.Probe(name)
		if err := monitor.RegisterProvider(name, probe); err != nil {
			return nil, err
		}
	}

	svc := &MonitorService{
		Monitor:     monitor,
		registry:    registry,
		logger:      logger,
		historyFile: cfg.Health.HistoryFile,
	}
	svc.loadHistory()
	return svc, nil
}

func (s *MonitorService) loadHistory() {
	if s.historyFile == "" {
		return
	}
	restored, err := s.Monitor.LoadHistoryFile(s.historyFile)
	if err != nil {
		s.logger.Warn().Err(err).Str("path", s.historyFile).Msg("health history not restored")
		return
	}
	s.logger.Info().Int("providers", restored).Str("path", s.historyFile).Msg("health history restored")
}

// Start begins periodic health checks.
func (s *MonitorService) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.Monitor.Start(ctx, s.registry); err != nil {
		return err
	}
	s.started = true
	return nil
}

// Shutdown implements do.Shutdowner: it stops the loop and writes the
// history file.
func (s *MonitorService) Shutdown() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		s.Monitor.Stop()
		s.started = false
	}
	if s.historyFile == "" {
		return nil
	}
	if err := s.Monitor.SaveHistoryFile(s.historyFile); err != nil {
		return err
	}
	s.logger.Info().Str("path", s.historyFile).Msg("health history saved")
	return nil
}

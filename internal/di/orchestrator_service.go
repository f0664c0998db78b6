package di

import (
	"github.com/samber/do/v2"

	"github.com/omarluq/aicleaner/internal/router"
)

// OrchestratorService wraps the failover orchestrator.
type OrchestratorService struct {
	Orchestrator *router.Orchestrator
}

// NewOrchestrator wires the orchestrator to the monitor's healthy list and
// reads analysis settings from the live config on every call.
func NewOrchestrator(i do.Injector) (*OrchestratorService, error) {
	cfgSvc := do.MustInvoke[*ConfigService](i)
	logger := do.MustInvoke[*LoggerService](i).Logger
	registry := do.MustInvoke[*RegistryService](i).Registry
	monitor := do.MustInvoke[*MonitorService](i).Monitor
	cacheSvc := do.MustInvoke[*CacheService](i)

	settings := func() router.Settings {
		a := cfgSvc.Get().Analysis
		return router.Settings{
			Privacy:  a.GetPrivacyLevel(),
			Prompt:   a.GetPromptOption().OrEmpty(),
			CacheTTL: a.GetCacheTTL(),
		}
	}

	return &OrchestratorService{
		Orchestrator: router.NewOrchestrator(registry, monitor, settings, logger, router.WithCache(cacheSvc.Cache)),
	}, nil
}

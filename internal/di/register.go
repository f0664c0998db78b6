package di

import "github.com/samber/do/v2"

// RegisterSingletons registers all service providers. Dependencies:
//
//	Config
//	Logger        <- Config
//	Cache         <- Config, Logger
//	Registry      <- Config, Logger
//	Monitor       <- Config, Logger, Registry
//	Orchestrator  <- Config, Logger, Registry, Monitor, Cache
//	Server        <- Config, Logger, Monitor, Orchestrator
func RegisterSingletons(i do.Injector) {
	do.Provide(i, NewConfig)
	do.Provide(i, NewLogger)
	do.Provide(i, NewCache)
	do.Provide(i, NewRegistry)
	do.Provide(i, NewMonitor)
	do.Provide(i, NewOrchestrator)
	do.Provide(i, NewServer)
}

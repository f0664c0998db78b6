package api

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/omarluq/aicleaner/internal/config"
)

// Route paths.
const (
	PathLiveness       = "/health"
	PathProviders      = "/api/v1/health/providers"
	PathSummary        = "/api/v1/health/summary"
	PathHomeAssistant  = "/api/v1/health/ha"
	PathCheck          = "/api/v1/health/check"
	PathExport         = "/api/v1/health/export"
	PathImport         = "/api/v1/health/import"
	PathAnalyze        = "/api/v1/analyze"
	pathProvider       = PathProviders + "/{name}"
	pathProviderReset  = PathProviders + "/{name}/reset"
	defaultImportLimit = 32 << 20
)

// SetupRoutes builds the HTTP handler. Middleware order, outermost first:
// request ID, logging, then x-api-key auth on /api/ routes only.
func SetupRoutes(cfg config.RuntimeConfig, h *Handlers, logger *zerolog.Logger) http.Handler {
	api := http.NewServeMux()
	api.HandleFunc("GET "+PathProviders, h.listProviders)
	api.HandleFunc("GET "+pathProvider, h.getProvider)
	api.HandleFunc("POST "+pathProviderReset, h.resetBreaker)
	api.HandleFunc("GET "+PathSummary, h.summary)
	api.HandleFunc("GET "+PathHomeAssistant, h.homeAssistant)
	api.HandleFunc("POST "+PathCheck, h.checkNow)
	api.HandleFunc("GET "+PathExport, h.exportHistory)
	api.Handle("POST "+PathImport,
		MaxBodyBytesMiddleware(func() int64 { return defaultImportLimit })(http.HandlerFunc(h.importHistory)))
	api.Handle("POST "+PathAnalyze,
		MaxBodyBytesMiddleware(func() int64 { return cfg.Get().Server.GetMaxImageBytes() })(http.HandlerFunc(h.analyze)))

	mux := http.NewServeMux()
	mux.HandleFunc("GET "+PathLiveness, h.liveness)
	mux.Handle("/api/", AuthMiddleware(cfg)(api))

	var handler http.Handler = mux
	handler = LoggingMiddleware()(handler)
	handler = RequestIDMiddleware(logger)(handler)
	return handler
}

package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/omarluq/aicleaner/internal/health"
	"github.com/omarluq/aicleaner/internal/providers"
	"github.com/omarluq/aicleaner/internal/router"
)

// HealthService is the part of health.Monitor served over HTTP.
type HealthService interface {
	Names() []string
	IsHealthy(name string) bool
	ProviderMetrics(name string) (health.MetricsSnapshot, bool)
	SystemSummary() health.SystemSummary
	HomeAssistantStatus() health.HAStatus
	ResetCircuitBreaker(name string) bool
	CheckNow(ctx context.Context) error
	ExportHistory() health.HistoryExport
	ImportHistory(export health.HistoryExport) (int, error)
}

// Analyzer runs failover analysis.
type Analyzer interface {
	AnalyzeWithFailover(ctx context.Context, image providers.Image, task router.Task) providers.AnalysisResult
}

var (
	_ HealthService = (*health.Monitor)(nil)
	_ Analyzer      = (*router.Orchestrator)(nil)
)

// ProviderStatus is one entry of the providers list.
type ProviderStatus struct {
	health.MetricsSnapshot
	Healthy bool `json:"healthy"`
}

// ProvidersResponse is the body of GET /api/v1/health/providers.
type ProvidersResponse struct {
	Providers []ProviderStatus `json:"providers"`
	Healthy   int              `json:"healthy"`
	Total     int              `json:"total"`
}

// ResetResponse is the body of a successful breaker reset.
type ResetResponse struct {
	Provider string `json:"provider"`
	Reset    bool   `json:"reset"`
}

// ImportResponse reports how many providers an import restored.
type ImportResponse struct {
	Restored int `json:"restored"`
}

// Handlers implements the API endpoints.
type Handlers struct {
	health       HealthService
	analyzer     Analyzer
	checkTimeout func() time.Duration
}

// NewHandlers creates the endpoint handlers. checkTimeout bounds an
// on-demand check; nil means the request context alone.
func NewHandlers(hs HealthService, analyzer Analyzer, checkTimeout func() time.Duration) *Handlers {
	return &Handlers{health: hs, analyzer: analyzer, checkTimeout: checkTimeout}
}

func (h *Handlers) liveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handlers) listProviders(w http.ResponseWriter, r *http.Request) {
	list := lo.FilterMap(h.health.Names(), func(name string, _ int) (ProviderStatus, bool) {
		snap, ok := h.health.ProviderMetrics(name)
		return ProviderStatus{MetricsSnapshot: snap, Healthy: h.health.IsHealthy(name)}, ok
	})
	writeJSON(w, r, http.StatusOK, ProvidersResponse{
		Providers: list,
		Healthy:   lo.CountBy(list, func(p ProviderStatus) bool { return p.Healthy }),
		Total:     len(list),
	})
}

func (h *Handlers) getProvider(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	snap, ok := h.health.ProviderMetrics(name)
	if !ok {
		WriteError(w, r, http.StatusNotFound, ErrTypeNotFound, "unknown provider: "+name)
		return
	}
	writeJSON(w, r, http.StatusOK, ProviderStatus{MetricsSnapshot: snap, Healthy: h.health.IsHealthy(name)})
}

func (h *Handlers) summary(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, h.health.SystemSummary())
}

func (h *Handlers) homeAssistant(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, h.health.HomeAssistantStatus())
}

func (h *Handlers) resetBreaker(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if !h.health.ResetCircuitBreaker(name) {
		WriteError(w, r, http.StatusNotFound, ErrTypeNotFound, "unknown provider: "+name)
		return
	}
	zerolog.Ctx(r.Context()).Info().Str("provider", name).Msg("circuit breaker reset via API")
	writeJSON(w, r, http.StatusOK, ResetResponse{Provider: name, Reset: true})
}

func (h *Handlers) checkNow(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.checkTimeout != nil {
		if d := h.checkTimeout(); d > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, d)
			defer cancel()
		}
	}
	if err := h.health.CheckNow(ctx); err != nil {
		WriteError(w, r, http.StatusInternalServerError, ErrTypeInternal, err.Error())
		return
	}
	writeJSON(w, r, http.StatusOK, h.health.SystemSummary())
}

func (h *Handlers) exportHistory(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Disposition", `attachment; filename="aicleaner-health-history.json"`)
	writeJSON(w, r, http.StatusOK, h.health.ExportHistory())
}

func (h *Handlers) importHistory(w http.ResponseWriter, r *http.Request) {
	var export health.HistoryExport
	if err := json.NewDecoder(r.Body).Decode(&export); err != nil {
		writeBodyError(w, r, err)
		return
	}
	restored, err := h.health.ImportHistory(export)
	if err != nil {
		WriteError(w, r, http.StatusBadRequest, ErrTypeInvalidRequest, err.Error())
		return
	}
	writeJSON(w, r, http.StatusOK, ImportResponse{Restored: restored})
}

// analyze takes the raw image as the body. Query parameters:
// privacy (local_only|hybrid|cloud), skip_cache (bool), name (for logs).
func (h *Handlers) analyze(w http.ResponseWriter, r *http.Request) {
	task, err := taskFromQuery(r)
	if err != nil {
		WriteError(w, r, http.StatusBadRequest, ErrTypeInvalidRequest, err.Error())
		return
	}

	data, err := io.ReadAll(r.Body)
	if err != nil {
		writeBodyError(w, r, err)
		return
	}

	image, err := providers.NewImage(r.URL.Query().Get("name"), data, r.Header.Get("Content-Type"))
	if err != nil {
		WriteError(w, r, http.StatusBadRequest, ErrTypeInvalidRequest, err.Error())
		return
	}

	result := h.analyzer.AnalyzeWithFailover(r.Context(), image, task)
	zerolog.Ctx(r.Context()).Info().
		Str("image", image.Name).
		Str("mime_type", image.MIMEType).
		Str("action", string(result.Action)).
		Float64("confidence", result.Confidence).
		Msg("image analyzed")
	writeJSON(w, r, http.StatusOK, result)
}

func taskFromQuery(r *http.Request) (router.Task, error) {
	q := r.URL.Query()
	var task router.Task

	if raw := q.Get("privacy"); raw != "" {
		level, err := providers.ParsePrivacyLevel(raw)
		if err != nil {
			return task, err
		}
		task.Privacy = level
	}
	if raw := q.Get("skip_cache"); raw != "" {
		skip, err := strconv.ParseBool(raw)
		if err != nil {
			return task, errors.New("skip_cache must be a boolean")
		}
		task.SkipCache = skip
	}
	return task, nil
}

func writeBodyError(w http.ResponseWriter, r *http.Request, err error) {
	if IsBodyTooLargeError(err) {
		WriteError(w, r, http.StatusRequestEntityTooLarge, ErrTypeRequestTooLarge,
			"request body exceeds the maximum allowed size")
		return
	}
	WriteError(w, r, http.StatusBadRequest, ErrTypeInvalidRequest, "invalid request body: "+err.Error())
}

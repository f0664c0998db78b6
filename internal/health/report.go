package health

import (
	"math"
	"time"

	"github.com/samber/lo"
)

// Overall trend values reported by SystemSummary.
const (
	TrendStable    = "stable"
	TrendDegrading = "degrading"
	TrendImproving = "improving"
)

// Home Assistant sensor states.
const (
	HAStateHealthy   = "healthy"
	HAStateDegraded  = "degraded"
	HAStateUnhealthy = "unhealthy"
	HAStateUnknown   = "unknown"
)

// SystemSummary aggregates the metrics of all providers.
type SystemSummary struct {
	GeneratedAt         time.Time         `json:"generated_at"`
	Providers           map[string]Status `json:"providers"`
	Trend               string            `json:"trend"`
	HealthyNames        []string          `json:"healthy_provider_names"`
	OverallAvailability float64           `json:"overall_availability"`
	AvgResponseTimeMS   float64           `json:"avg_response_time_ms"`
	HealthyProviders    int               `json:"healthy_providers"`
	TotalProviders      int               `json:"total_providers"`
	DegradingProviders  int               `json:"degrading_providers"`
	ImprovingProviders  int               `json:"improving_providers"`
}

// SystemSummary returns overall availability, average response time,
// healthy/total counts, and the dominant trend.
//
// Availability is weighted by the number of checks of each provider.
// The response time average covers providers with at least one check.
func (m *Monitor) SystemSummary() SystemSummary {
	metrics := m.AllMetrics()
	healthy := m.HealthyProviders()

	var total, successful int64
	statuses := make(map[string]Status, len(metrics))
	responseTimes := make([]float64, 0, len(metrics))
	degrading, improving := 0, 0
	for name, s := range metrics {
		total += s.TotalRequests
		successful += s.SuccessfulRequests
		if s.TotalRequests > 0 {
			responseTimes = append(responseTimes, s.AvgResponseTimeMS)
		}
		if s.CurrentHealth != nil {
			statuses[name] = s.CurrentHealth.Status
		}
		if s.DegradationTrend {
			degrading++
		}
		if s.ImprovementTrend {
			improving++
		}
	}

	availability := 1.0
	if total > 0 {
		availability = float64(successful) / float64(total)
	}

	trend := TrendStable
	switch {
	case degrading > improving:
		trend = TrendDegrading
	case improving > degrading:
		trend = TrendImproving
	}

	return SystemSummary{
		GeneratedAt:         time.Now(),
		OverallAvailability: availability,
		AvgResponseTimeMS:   lo.Mean(responseTimes),
		HealthyProviders:    len(healthy),
		HealthyNames:        healthy,
		TotalProviders:      len(metrics),
		Providers:           statuses,
		Trend:               trend,
		DegradingProviders:  degrading,
		ImprovingProviders:  improving,
	}
}

// HAStatus is shaped like a Home Assistant sensor: a state plus attributes.
type HAStatus struct {
	Attributes map[string]any `json:"attributes"`
	State      string         `json:"state"`
}

// HomeAssistantStatus returns the sensor payload Home Assistant polls.
//
// The state is healthy when every provider is healthy, degraded when at least
// one is, unhealthy when none is, and unknown before any provider was checked.
func (m *Monitor) HomeAssistantStatus() HAStatus {
	summary := m.SystemSummary()

	state := HAStateUnknown
	switch {
	case summary.TotalProviders == 0 || len(summary.Providers) == 0:
		// nothing checked yet
	case summary.HealthyProviders == summary.TotalProviders:
		state = HAStateHealthy
	case summary.HealthyProviders > 0:
		state = HAStateDegraded
	default:
		state = HAStateUnhealthy
	}

	providers := lo.MapValues(summary.Providers, func(s Status, _ string) string {
		return string(s)
	})

	return HAStatus{
		State: state,
		Attributes: map[string]any{
			"friendly_name":        "AI Cleaner Provider Health",
			"icon":                 haIcon(state),
			"healthy_providers":    summary.HealthyProviders,
			"total_providers":      summary.TotalProviders,
			"healthy_names":        summary.HealthyNames,
			"availability_percent": roundTo(summary.OverallAvailability*100, 1),
			"avg_response_time_ms": roundTo(summary.AvgResponseTimeMS, 1),
			"trend":                summary.Trend,
			"providers":            providers,
			"last_updated":         summary.GeneratedAt.Format(time.RFC3339),
		},
	}
}

func haIcon(state string) string {
	switch state {
	case HAStateHealthy:
		return "mdi:check-circle"
	case HAStateDegraded:
		return "mdi:alert"
	case HAStateUnhealthy:
		return "mdi:alert-circle"
	default:
		return "mdi:help-circle"
	}
}

func roundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

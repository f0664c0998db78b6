package health

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/samber/lo"
)

// Trend analysis parameters.
const (
	trendWindow         = 10
	degradationRatio    = 1.3
	improvementRatio    = 0.8
	trendConfidenceGain = 2.0
)

// StatusRecord is one entry of a provider's status history. It encodes as a
// two-element JSON array: [timestamp, status].
type StatusRecord struct {
	Timestamp time.Time
	Status    Status
}

// MarshalJSON encodes the record as [RFC 3339 timestamp, status].
func (r StatusRecord) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]string{r.Timestamp.Format(time.RFC3339Nano), string(r.Status)})
}

// UnmarshalJSON decodes a [timestamp, status] pair.
func (r *StatusRecord) UnmarshalJSON(data []byte) error {
	var pair [2]string
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("health: decode status record: %w", err)
	}
	ts, err := time.Parse(time.RFC3339Nano, pair[0])
	if err != nil {
		return fmt.Errorf("health: decode status timestamp: %w", err)
	}
	status := Status(pair[1])
	if !status.Valid() {
		return fmt.Errorf("health: decode status record: unknown status %q", pair[1])
	}
	r.Timestamp = ts
	r.Status = status
	return nil
}

// Metrics holds the rolling statistics of one provider.
// Metrics is not safe for concurrent use; the Monitor guards each instance.
type Metrics struct {
	current         *ProviderHealth
	responseTimes   *Ring[float64]
	errorRates      *Ring[float64]
	statusHistory   *Ring[StatusRecord]
	totalRequests   int64
	successRequests int64
	failedRequests  int64
	avgResponseMS   float64
	degrading       bool
	improving       bool
	trendConfidence float64
}

// NewMetrics creates empty metrics with the default window sizes.
func NewMetrics() *Metrics {
	return &Metrics{
		responseTimes: NewRing[float64](DefaultResponseTimeWindow),
		errorRates:    NewRing[float64](DefaultErrorRateWindow),
		statusHistory: NewRing[StatusRecord](DefaultStatusHistoryCapacity),
	}
}

// Update records a fresh health check result. The result replaces the
// current health; histories evict their oldest entries when full.
func (m *Metrics) Update(h ProviderHealth) {
	current := h
	m.current = &current

	m.responseTimes.Push(h.ResponseTimeMS)
	m.errorRates.Push(h.ErrorRate)
	m.statusHistory.Push(StatusRecord{Timestamp: h.LastCheck, Status: h.Status})

	m.totalRequests++
	if h.Status.IsAvailable() {
		m.successRequests++
	} else {
		m.failedRequests++
	}

	m.recompute()
}

func (m *Metrics) recompute() {
	m.avgResponseMS = lo.Mean(m.responseTimes.Values())
	m.analyzeTrend()
}

// analyzeTrend compares the mean of the newest samples with the mean of the
// samples right before them.
func (m *Metrics) analyzeTrend() {
	m.degrading = false
	m.improving = false
	m.trendConfidence = 0

	samples := m.responseTimes.Values()
	if len(samples) < trendWindow {
		return
	}
	recent := samples[len(samples)-trendWindow:]
	older := samples[max(0, len(samples)-2*trendWindow) : len(samples)-trendWindow]
	if len(older) == 0 {
		return
	}

	olderMean := lo.Mean(older)
	if olderMean <= 0 {
		return
	}
	ratio := lo.Mean(recent) / olderMean

	switch {
	case ratio > degradationRatio:
		m.degrading = true
		m.trendConfidence = min(1.0, (ratio-1)*trendConfidenceGain)
	case ratio < improvementRatio:
		m.improving = true
		m.trendConfidence = min(1.0, (1-ratio)*trendConfidenceGain)
	}
}

// Availability returns successful/total checks, or 1.0 before the first check.
func (m *Metrics) Availability() float64 {
	if m.totalRequests == 0 {
		return 1.0
	}
	return float64(m.successRequests) / float64(m.totalRequests)
}

// Current returns the latest health result, if any.
func (m *Metrics) Current() (ProviderHealth, bool) {
	if m.current == nil {
		return ProviderHealth{}, false
	}
	return *m.current, true
}

// TotalRequests returns the number of recorded checks.
func (m *Metrics) TotalRequests() int64 {
	return m.totalRequests
}

// AvgResponseTimeMS returns the mean of the response time window.
func (m *Metrics) AvgResponseTimeMS() float64 {
	return m.avgResponseMS
}

// Trend returns the degradation and improvement flags with their confidence.
func (m *Metrics) Trend() (degrading, improving bool, confidence float64) {
	return m.degrading, m.improving, m.trendConfidence
}

// StatusHistory returns the recorded statuses, oldest first.
func (m *Metrics) StatusHistory() []StatusRecord {
	return m.statusHistory.Values()
}

// MetricsSnapshot is the serializable view of one provider's metrics.
type MetricsSnapshot struct {
	CurrentHealth      *ProviderHealth `json:"current_health,omitempty"`
	Provider           string          `json:"provider"`
	CircuitBreaker     BreakerSnapshot `json:"circuit_breaker"`
	TotalRequests      int64           `json:"total_requests"`
	SuccessfulRequests int64           `json:"successful_requests"`
	FailedRequests     int64           `json:"failed_requests"`
	Availability       float64         `json:"availability"`
	AvgResponseTimeMS  float64         `json:"avg_response_time_ms"`
	TrendConfidence    float64         `json:"trend_confidence"`
	DegradationTrend   bool            `json:"degradation_trend"`
	ImprovementTrend   bool            `json:"improvement_trend"`
}

// ProviderHistory is a MetricsSnapshot plus the raw history windows.
type ProviderHistory struct {
	MetricsSnapshot
	ResponseTimes []float64      `json:"response_times"`
	ErrorRates    []float64      `json:"error_rates"`
	StatusHistory []StatusRecord `json:"status_history"`
}

func (m *Metrics) snapshot(provider string, breaker BreakerSnapshot) MetricsSnapshot {
	s := MetricsSnapshot{
		Provider:           provider,
		CircuitBreaker:     breaker,
		TotalRequests:      m.totalRequests,
		SuccessfulRequests: m.successRequests,
		FailedRequests:     m.failedRequests,
		Availability:       m.Availability(),
		AvgResponseTimeMS:  m.avgResponseMS,
		DegradationTrend:   m.degrading,
		ImprovementTrend:   m.improving,
		TrendConfidence:    m.trendConfidence,
	}
	if m.current != nil {
		current := *m.current
		s.CurrentHealth = &current
	}
	return s
}

func (m *Metrics) history(provider string, breaker BreakerSnapshot) ProviderHistory {
	return ProviderHistory{
		MetricsSnapshot: m.snapshot(provider, breaker),
		ResponseTimes:   m.responseTimes.Values(),
		ErrorRates:      m.errorRates.Values(),
		StatusHistory:   m.statusHistory.Values(),
	}
}

// restore replaces the metrics with an exported history. Counters that
// violate successful+failed == total are rebuilt from the status history.
func (m *Metrics) restore(h ProviderHistory) {
	m.responseTimes.Reset()
	m.errorRates.Reset()
	m.statusHistory.Reset()
	for _, v := range h.ResponseTimes {
		m.responseTimes.Push(v)
	}
	for _, v := range h.ErrorRates {
		m.errorRates.Push(v)
	}
	for _, r := range h.StatusHistory {
		m.statusHistory.Push(r)
	}

	m.totalRequests = h.TotalRequests
	m.successRequests = h.SuccessfulRequests
	m.failedRequests = h.FailedRequests
	if m.totalRequests < 0 || m.successRequests < 0 || m.failedRequests < 0 ||
		m.successRequests+m.failedRequests != m.totalRequests {
		records := m.statusHistory.Values()
		m.successRequests = int64(lo.CountBy(records, func(r StatusRecord) bool {
			return r.Status.IsAvailable()
		}))
		m.totalRequests = int64(len(records))
		m.failedRequests = m.totalRequests - m.successRequests
	}

	m.current = nil
	if h.CurrentHealth != nil {
		current := *h.CurrentHealth
		m.current = &current
	}
	m.recompute()
}

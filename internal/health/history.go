package health

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// HistoryVersion is the format version written by ExportHistory.
const HistoryVersion = 1

// HistoryExport is the full serializable dump of the monitor for backup and
// offline analysis.
type HistoryExport struct {
	ExportedAt time.Time                  `json:"exported_at"`
	Providers  map[string]ProviderHistory `json:"providers"`
	Summary    SystemSummary              `json:"summary"`
	Version    int                        `json:"version"`
}

// ExportHistory dumps the metrics and history windows of every provider.
func (m *Monitor) ExportHistory() HistoryExport {
	entries := m.snapshotEntries()
	providers := make(map[string]ProviderHistory, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		providers[e.name] = e.metrics.history(e.name, e.breaker.Snapshot())
		e.mu.Unlock()
	}
	return HistoryExport{
		Version:    HistoryVersion,
		ExportedAt: time.Now(),
		Providers:  providers,
		Summary:    m.SystemSummary(),
	}
}

// ImportHistory replaces the metrics of registered providers with the
// exported ones and returns how many providers were restored. Providers that
// are not registered are skipped. Circuit breaker state is not restored.
func (m *Monitor) ImportHistory(export HistoryExport) (int, error) {
	if export.Version > HistoryVersion {
		return 0, fmt.Errorf("health: unsupported history version %d", export.Version)
	}

	restored := 0
	for name, h := range export.Providers {
		e, ok := m.entry(name)
		if !ok {
			m.logger.Debug().Str("provider", name).Msg("skipping history for unregistered provider")
			continue
		}
		e.restore(h)
		restored++
	}
	return restored, nil
}

func (e *providerEntry) restore(h ProviderHistory) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.metrics.restore(h)
}

// SaveHistoryFile writes ExportHistory to path atomically.
func (m *Monitor) SaveHistoryFile(path string) error {
	data, err := json.MarshalIndent(m.ExportHistory(), "", "  ")
	if err != nil {
		return fmt.Errorf("health: encode history: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("health: create history dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".history-*.json")
	if err != nil {
		return fmt.Errorf("health: create history file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		// no-op after a successful rename
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("health: write history file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("health: close history file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("health: replace history file: %w", err)
	}
	return nil
}

// LoadHistoryFile imports a file written by SaveHistoryFile. A missing file
// is not an error.
func (m *Monitor) LoadHistoryFile(path string) (int, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from operator config
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("health: read history file: %w", err)
	}

	var export HistoryExport
	if err := json.Unmarshal(data, &export); err != nil {
		return 0, fmt.Errorf("health: decode history file: %w", err)
	}
	return m.ImportHistory(export)
}

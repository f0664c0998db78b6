package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"slices"
	"time"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/omarluq/aicleaner/internal/api"
	"github.com/omarluq/aicleaner/internal/config"
	"github.com/omarluq/aicleaner/internal/health"
)

const statusTimeout = 5 * time.Second

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show provider health of a running aicleaner",
	Long: `Query the health summary of a running aicleaner server and print each
provider's status.`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), statusTimeout)
	defer cancel()

	base := baseURL(cfg.Server.GetListen())
	summary, err := fetchSummary(ctx, base, cfg.Server.APIKey)
	if err != nil {
		cmd.Printf("✗ aicleaner is not reachable at %s\n", base)
		return err
	}
	printSummary(cmd.OutOrStdout(), summary)
	return nil
}

// baseURL turns a listen address into a URL a local client can dial.
func baseURL(listen string) string {
	host, port, err := net.SplitHostPort(listen)
	if err != nil {
		return "http://" + listen
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, port)
}

func fetchSummary(ctx context.Context, base, apiKey string) (health.SystemSummary, error) {
	var summary health.SystemSummary

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+api.PathSummary, http.NoBody)
	if err != nil {
		return summary, err
	}
	if apiKey != "" {
		req.Header.Set(api.HeaderAPIKey, apiKey)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return summary, fmt.Errorf("server not reachable: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return summary, fmt.Errorf("summary request failed with status %d: %s", resp.StatusCode, body)
	}
	if err := json.NewDecoder(resp.Body).Decode(&summary); err != nil {
		return summary, fmt.Errorf("invalid summary response: %w", err)
	}
	return summary, nil
}

func printSummary(w io.Writer, s health.SystemSummary) {
	fmt.Fprintf(w, "✓ aicleaner is running: %d/%d providers healthy, availability %.1f%%, avg %.0fms, trend %s\n",
		s.HealthyProviders, s.TotalProviders, s.OverallAvailability*100, s.AvgResponseTimeMS, s.Trend)

	names := lo.Keys(s.Providers)
	slices.Sort(names)
	for _, name := range names {
		status := s.Providers[name]
		symbol := "✗"
		if status.IsAvailable() {
			symbol = "✓"
		}
		fmt.Fprintf(w, "  %s %-20s %s\n", symbol, name, status)
	}
}

// Package main is the entry point for aicleaner.
package main

import (
	"context"
	"os"

	"github.com/charmbracelet/fang/v2"
	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "aicleaner",
	Short: "AI snapshot cleaner with provider health monitoring and failover",
	Long: `aicleaner reviews camera snapshots with vision models and decides which to
keep. It monitors every configured provider (Gemini, OpenAI-compatible,
Ollama, Anthropic, Claude on Bedrock or Vertex AI), stops sending work to
providers whose circuit breaker is open, and fails over in priority order.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file path (default: ./config.yaml, ./config.toml or ~/.config/aicleaner/config.yaml)")
}

func main() {
	if err := fang.Execute(context.Background(), rootCmd); err != nil {
		os.Exit(1)
	}
}

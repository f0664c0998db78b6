package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/omarluq/aicleaner/internal/di"
	"github.com/omarluq/aicleaner/internal/providers"
	"github.com/omarluq/aicleaner/internal/router"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <image>",
	Short: "Analyze one image with failover and print the verdict",
	Long: `Run one health check of every provider, then analyze the image with the
first healthy provider that returns a valid verdict. Prints the verdict as
JSON. When nothing can answer, the verdict is a conservative "keep".`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.Flags().String("privacy", "", "privacy level override: local_only, hybrid or cloud")
	analyzeCmd.Flags().Bool("no-cache", false, "do not reuse or store cached verdicts")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	task, err := analyzeTask(cmd)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read image: %w", err)
	}
	image, err := providers.NewImage(filepath.Base(args[0]), data, "")
	if err != nil {
		return err
	}

	container, err := di.NewContainer(resolveConfigPath())
	if err != nil {
		return err
	}
	defer func() {
		if err := container.Shutdown(); err != nil {
			cmd.PrintErrln("shutdown:", err)
		}
	}()

	monitor := di.MustInvoke[*di.MonitorService](container).Monitor
	orchestrator := di.MustInvoke[*di.OrchestratorService](container).Orchestrator

	if err := monitor.CheckNow(cmd.Context()); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	result := orchestrator.AnalyzeWithFailover(cmd.Context(), image, task)

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func analyzeTask(cmd *cobra.Command) (router.Task, error) {
	var task router.Task

	privacy, err := cmd.Flags().GetString("privacy")
	if err != nil {
		return task, err
	}
	if privacy != "" {
		level, err := providers.ParsePrivacyLevel(privacy)
		if err != nil {
			return task, err
		}
		task.Privacy = level
	}

	task.SkipCache, err = cmd.Flags().GetBool("no-cache")
	return task, err
}

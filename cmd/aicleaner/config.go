package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/omarluq/aicleaner/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management commands",
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration file",
	Long: `Parse and validate the configuration file without starting anything.
All problems are reported at once.`,
	RunE: runConfigValidate,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default config file",
	Long: `Write a commented default configuration using a local Ollama provider.
The format (YAML or TOML) follows the file extension.`,
	RunE: runConfigInit,
}

func init() {
	configInitCmd.Flags().StringP("output", "o", "", "output path (default: ~/.config/aicleaner/config.yaml)")
	configInitCmd.Flags().Bool("force", false, "overwrite an existing config file")
	configCmd.AddCommand(configValidateCmd, configInitCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigValidate(cmd *cobra.Command, _ []string) error {
	path := resolveConfigPath()
	if _, err := config.LoadAndValidate(path); err != nil {
		cmd.Printf("✗ %s is invalid: %s\n", path, err)
		return err
	}
	cmd.Printf("✓ %s is valid\n", path)
	return nil
}

func runConfigInit(cmd *cobra.Command, _ []string) error {
	output, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}
	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return err
	}
	if output == "" {
		if output, err = defaultInitPath(); err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}
	}

	if err := config.WriteDefault(output, force); err != nil {
		return err
	}

	cmd.Printf("✓ Config file created at %s\n", output)
	cmd.Println("\nNext steps:")
	cmd.Println("  1. Add cloud providers and their API keys (e.g. api_key: ${GEMINI_API_KEY})")
	cmd.Println("  2. Pick analysis.privacy_level: local_only, hybrid or cloud")
	cmd.Println("  3. Validate with: aicleaner config validate --config " + output)
	cmd.Println("  4. Start with: aicleaner serve --config " + output)
	return nil
}

package main

import (
	"os"
	"path/filepath"
)

const defaultConfigFile = "config.yaml"

var configFileNames = []string{defaultConfigFile, "config.yml", "config.toml"}

// resolveConfigPath returns --config when set, otherwise the first config
// file found in the working directory or ~/.config/aicleaner.
func resolveConfigPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	if found := findConfigIn("."); found != "" {
		return found
	}
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		if found := findConfigIn(filepath.Join(home, ".config", "aicleaner")); found != "" {
			return found
		}
	}
	return defaultConfigFile
}

// findConfigIn returns the first known config file name present in dir, or "".
func findConfigIn(dir string) string {
	for _, name := range configFileNames {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

func defaultInitPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "aicleaner", defaultConfigFile), nil
}

package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/omarluq/aicleaner/internal/cache"
)

// Format is a config file syntax.
type Format string

// Supported formats.
const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// FormatFromPath picks the format from the file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
}

// Load reads and parses the config file at path. ${VAR} references are
// expanded from the environment before parsing.
func Load(path string) (cfg *Config, err error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file %s: %w", path, err)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close config file: %w", cerr)
		}
	}()

	return LoadFromReader(file, format)
}

// LoadFromReader parses configuration in the given format from r.
func LoadFromReader(r io.Reader, format Format) (*Config, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	expanded := []byte(os.ExpandEnv(string(content)))

	var cfg Config
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(expanded, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	case FormatTOML:
		if err := toml.Unmarshal(expanded, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config TOML: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

// applyDefaults fills sections the file omitted. Zero health fields are
// resolved by health.Config getters instead.
func applyDefaults(cfg *Config) {
	if cfg.Cache.Mode == "" {
		ristretto := cfg.Cache.Ristretto
		cfg.Cache = cache.DefaultConfig()
		if ristretto.MaxCost > 0 {
			cfg.Cache.Ristretto = ristretto
		}
	}
	if cfg.Cache.Mode == cache.ModeSingle && cfg.Cache.Ristretto.NumCounters == 0 && cfg.Cache.Ristretto.MaxCost == 0 {
		cfg.Cache.Ristretto = cache.DefaultRistrettoConfig()
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = LevelInfo
	}
}

// LoadAndValidate loads path and returns an error if it fails validation.
func LoadAndValidate(path string) (*Config, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

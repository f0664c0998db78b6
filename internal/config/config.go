// Package config provides configuration loading, validation, and hot reload for aicleaner.
package config

import (
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/mo"

	"github.com/omarluq/aicleaner/internal/cache"
	"github.com/omarluq/aicleaner/internal/health"
	"github.com/omarluq/aicleaner/internal/providers"
)

// RuntimeConfig gives components the current configuration after hot reload.
// Hold a RuntimeConfig rather than a *Config, which goes stale on reload.
type RuntimeConfig interface {
	Get() *Config
}

// Log level constants.
const (
	LevelDebug = "debug"
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
)

// Defaults.
const (
	DefaultListen        = "0.0.0.0:8099"
	DefaultMaxImageBytes = 20 << 20
	DefaultCacheTTLMS    = 600000
)

// Config represents the complete aicleaner configuration.
type Config struct {
	Providers []ProviderConfig `yaml:"providers" toml:"providers"`
	Server    ServerConfig     `yaml:"server" toml:"server"`
	Logging   LoggingConfig    `yaml:"logging" toml:"logging"`
	Analysis  AnalysisConfig   `yaml:"analysis" toml:"analysis"`
	Cache     cache.Config     `yaml:"cache" toml:"cache"`
	Health    health.Config    `yaml:"health" toml:"health"`
}

// ServerConfig defines the REST API listener.
type ServerConfig struct {
	Listen string `yaml:"listen" toml:"listen"`

	// APIKey, when set, is required in the x-api-key header of /api/ routes.
	APIKey string `yaml:"api_key" toml:"api_key"`

	TimeoutMS     int   `yaml:"timeout_ms" toml:"timeout_ms"`
	MaxImageBytes int64 `yaml:"max_image_bytes" toml:"max_image_bytes"`

	// EnableHTTP2 serves HTTP/2 cleartext (h2c) alongside HTTP/1.1.
	EnableHTTP2 bool `yaml:"enable_http2" toml:"enable_http2"`
}

// GetListen returns the listen address or DefaultListen.
func (s *ServerConfig) GetListen() string {
	if s.Listen == "" {
		return DefaultListen
	}
	return s.Listen
}

// GetTimeoutOption returns the request timeout. None means no timeout.
func (s *ServerConfig) GetTimeoutOption() mo.Option[time.Duration] {
	if s.TimeoutMS <= 0 {
		return mo.None[time.Duration]()
	}
	return mo.Some(time.Duration(s.TimeoutMS) * time.Millisecond)
}

// GetMaxImageBytes returns the upload limit or DefaultMaxImageBytes.
func (s *ServerConfig) GetMaxImageBytes() int64 {
	if s.MaxImageBytes <= 0 {
		return DefaultMaxImageBytes
	}
	return s.MaxImageBytes
}

// LoggingConfig defines logging behavior.
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`   // debug, info, warn, error
	Format string `yaml:"format" toml:"format"` // json, console, pretty
	Output string `yaml:"output" toml:"output"` // stdout, stderr, or file path
	Pretty bool   `yaml:"pretty" toml:"pretty"`
}

// ParseLevel converts the level to zerolog.Level, defaulting to info.
func (l *LoggingConfig) ParseLevel() zerolog.Level {
	switch strings.ToLower(l.Level) {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// AnalysisConfig controls how images are analyzed. It is read on every
// request, so changes apply without a restart.
type AnalysisConfig struct {
	// PrivacyLevel is local_only, hybrid (default) or cloud.
	PrivacyLevel string `yaml:"privacy_level" toml:"privacy_level"`

	// Prompt replaces the built-in prompt when set.
	Prompt string `yaml:"prompt" toml:"prompt"`

	// CacheTTLMS is how long a verdict is reused for identical bytes.
	// Negative disables reuse. Default: 600000
	CacheTTLMS int `yaml:"cache_ttl_ms" toml:"cache_ttl_ms"`
}

// GetPrivacyLevel parses PrivacyLevel. Validate rejects unknown values, so
// an error here falls back to hybrid.
func (a *AnalysisConfig) GetPrivacyLevel() providers.PrivacyLevel {
	level, err := providers.ParsePrivacyLevel(a.PrivacyLevel)
	if err != nil {
		return providers.PrivacyHybrid
	}
	return level
}

// GetPromptOption returns the custom prompt, if any.
func (a *AnalysisConfig) GetPromptOption() mo.Option[string] {
	if strings.TrimSpace(a.Prompt) == "" {
		return mo.None[string]()
	}
	return mo.Some(a.Prompt)
}

// GetCacheTTL returns the verdict reuse window; zero disables reuse.
func (a *AnalysisConfig) GetCacheTTL() time.Duration {
	switch {
	case a.CacheTTLMS < 0:
		return 0
	case a.CacheTTLMS == 0:
		return time.Duration(DefaultCacheTTLMS) * time.Millisecond
	default:
		return time.Duration(a.CacheTTLMS) * time.Millisecond
	}
}

// ProviderConfig defines one analysis backend. Order in the file is failover priority.
//
//nolint:govet // Field order optimized for readability, not memory alignment
type ProviderConfig struct {
	Name    string `yaml:"name" toml:"name"`
	Type    string `yaml:"type" toml:"type"`
	APIKey  string `yaml:"api_key" toml:"api_key"` // supports ${ENV_VAR}
	BaseURL string `yaml:"base_url" toml:"base_url"`
	Model   string `yaml:"model" toml:"model"`

	// Enabled defaults to true when omitted.
	Enabled *bool `yaml:"enabled" toml:"enabled"`

	// Local marks an openai-type provider as running on the local network.
	// ollama providers are always local.
	Local bool `yaml:"local" toml:"local"`

	// RPMLimit caps analyze calls per minute (0 = unlimited).
	RPMLimit int `yaml:"rpm_limit" toml:"rpm_limit"`

	// DegradedThresholdMS overrides health.degraded_threshold_ms for this provider.
	DegradedThresholdMS int `yaml:"degraded_threshold_ms" toml:"degraded_threshold_ms"`

	// AWSRegion is required for bedrock.
	AWSRegion string `yaml:"aws_region" toml:"aws_region"`

	// GCPProjectID and GCPRegion are required for vertex and vertex_claude.
	GCPProjectID string `yaml:"gcp_project_id" toml:"gcp_project_id"`
	GCPRegion    string `yaml:"gcp_region" toml:"gcp_region"`
}

// IsEnabled reports whether the provider should be registered.
func (p *ProviderConfig) IsEnabled() bool {
	return p.Enabled == nil || *p.Enabled
}

// IsLocal reports whether the provider may receive local_only images.
func (p *ProviderConfig) IsLocal() bool {
	return p.Type == ProviderOllama || p.Local
}

// GetRPMLimitOption returns the RPM limit. None means unlimited.
func (p *ProviderConfig) GetRPMLimitOption() mo.Option[int] {
	if p.RPMLimit <= 0 {
		return mo.None[int]()
	}
	return mo.Some(p.RPMLimit)
}

// GetDegradedThreshold returns the provider override or fallback.
func (p *ProviderConfig) GetDegradedThreshold(fallback time.Duration) time.Duration {
	if p.DegradedThresholdMS <= 0 {
		return fallback
	}
	return time.Duration(p.DegradedThresholdMS) * time.Millisecond
}

// EnabledProviders returns providers with enabled unset or true, in file order.
func (c *Config) EnabledProviders() []ProviderConfig {
	out := make([]ProviderConfig, 0, len(c.Providers))
	for i := range c.Providers {
		if c.Providers[i].IsEnabled() {
			out = append(out, c.Providers[i])
		}
	}
	return out
}

// Default returns a configuration that runs against a local Ollama.
func Default() *Config {
	return &Config{
		Server:   ServerConfig{Listen: DefaultListen},
		Logging:  LoggingConfig{Level: LevelInfo, Format: "json"},
		Analysis: AnalysisConfig{PrivacyLevel: string(providers.PrivacyHybrid), CacheTTLMS: DefaultCacheTTLMS},
		Cache:    cache.DefaultConfig(),
		Health: health.Config{
			CheckIntervalMS:     health.DefaultCheckIntervalMS,
			TimeoutMS:           health.DefaultTimeoutMS,
			MaxFailures:         health.DefaultMaxFailures,
			RecoveryTimeoutMS:   health.DefaultRecoveryTimeoutMS,
			SuccessThreshold:    health.DefaultSuccessThreshold,
			DegradedThresholdMS: health.DefaultDegradedThresholdMS,
			ErrorBackoffMS:      health.DefaultErrorBackoffMS,
		},
		Providers: []ProviderConfig{{
			Name:    "ollama",
			Type:    ProviderOllama,
			BaseURL: providers.DefaultOllamaBaseURL,
			Model:   providers.DefaultOllamaModel,
		}},
	}
}

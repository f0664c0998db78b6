package config

import (
	"fmt"
	"net"
	"strings"

	"github.com/samber/lo"

	"github.com/omarluq/aicleaner/internal/providers"
)

// Provider type constants.
const (
	ProviderGemini       = "gemini"
	ProviderVertex       = "vertex"
	ProviderOpenAI       = "openai"
	ProviderOllama       = "ollama"
	ProviderAnthropic    = "anthropic"
	ProviderBedrock      = "bedrock"
	ProviderVertexClaude = "vertex_claude"
)

// ProviderTypes lists every supported provider type.
var ProviderTypes = []string{
	ProviderGemini,
	ProviderVertex,
	ProviderOpenAI,
	ProviderOllama,
	ProviderAnthropic,
	ProviderBedrock,
	ProviderVertexClaude,
}

var validLogLevels = []string{"", LevelDebug, LevelInfo, LevelWarn, LevelError}

var validLogFormats = []string{"", "json", "console", "text", "pretty"}

// Validate checks every section and returns a *ValidationError listing all
// problems, or nil.
func (c *Config) Validate() error {
	errs := &ValidationError{}

	validateServer(c, errs)
	validateLogging(c, errs)
	validateAnalysis(c, errs)
	validateHealth(c, errs)
	if err := c.Cache.Validate(); err != nil {
		errs.Add(err.Error())
	}
	validateProviders(c, errs)

	return errs.ToError()
}

func validateServer(c *Config, errs *ValidationError) {
	if c.Server.Listen != "" {
		validateListenAddress(c.Server.Listen, errs)
	}
	if c.Server.TimeoutMS < 0 {
		errs.Add("server.timeout_ms must be >= 0")
	}
	if c.Server.MaxImageBytes < 0 {
		errs.Add("server.max_image_bytes must be >= 0")
	}
}

func validateListenAddress(addr string, errs *ValidationError) {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		errs.Addf("server.listen must be in host:port format (got %q)", addr)
		return
	}
	if host != "" && net.ParseIP(host) == nil && strings.ContainsAny(host, " \t\n") {
		errs.Add("server.listen host contains invalid characters")
	}
	if port == "" {
		errs.Add("server.listen port is required")
	}
}

func validateLogging(c *Config, errs *ValidationError) {
	if !lo.Contains(validLogLevels, strings.ToLower(c.Logging.Level)) {
		errs.Addf("logging.level is invalid (got %q, valid: debug, info, warn, error)", c.Logging.Level)
	}
	if !lo.Contains(validLogFormats, c.Logging.Format) {
		errs.Addf("logging.format is invalid (got %q, valid: json, console, text, pretty)", c.Logging.Format)
	}
}

func validateAnalysis(c *Config, errs *ValidationError) {
	if _, err := providers.ParsePrivacyLevel(c.Analysis.PrivacyLevel); err != nil {
		errs.Addf("analysis.privacy_level is invalid (got %q, valid: local_only, hybrid, cloud)",
			c.Analysis.PrivacyLevel)
	}
}

func validateHealth(c *Config, errs *ValidationError) {
	h := c.Health
	fields := []lo.Tuple2[string, int]{
		lo.T2("check_interval_ms", h.CheckIntervalMS),
		lo.T2("timeout_ms", h.TimeoutMS),
		lo.T2("max_failures", h.MaxFailures),
		lo.T2("recovery_timeout_ms", h.RecoveryTimeoutMS),
		lo.T2("success_threshold", h.SuccessThreshold),
		lo.T2("degraded_threshold_ms", h.DegradedThresholdMS),
		lo.T2("error_backoff_ms", h.ErrorBackoffMS),
	}
	for _, f := range fields {
		if f.B < 0 {
			errs.Addf("health.%s must be >= 0", f.A)
		}
	}
	if h.CheckIntervalMS > 0 && h.TimeoutMS > 0 && h.TimeoutMS*2 > h.CheckIntervalMS {
		errs.Add("health.timeout_ms must be at most half of health.check_interval_ms")
	}
}

func validateProviders(c *Config, errs *ValidationError) {
	seen := make(map[string]bool, len(c.Providers))
	for i := range c.Providers {
		validateProvider(&c.Providers[i], i, seen, errs)
	}
	if len(c.Providers) > 0 && len(c.EnabledProviders()) == 0 {
		errs.Add("at least one provider must be enabled")
	}
}

func validateProvider(p *ProviderConfig, index int, seen map[string]bool, errs *ValidationError) {
	prefix := func(field string) string {
		if p.Name != "" {
			return fmt.Sprintf("provider[%s].%s", p.Name, field)
		}
		return fmt.Sprintf("providers[%d].%s", index, field)
	}

	if p.Name == "" {
		errs.Addf("providers[%d].name is required", index)
	} else {
		if seen[p.Name] {
			errs.Addf("duplicate provider name: %s", p.Name)
		}
		seen[p.Name] = true
	}

	switch {
	case p.Type == "":
		errs.Addf("%s is required", prefix("type"))
		return
	case !lo.Contains(ProviderTypes, p.Type):
		errs.Addf("%s is invalid (got %q, valid: %s)", prefix("type"), p.Type, strings.Join(ProviderTypes, ", "))
		return
	}

	if p.RPMLimit < 0 {
		errs.Addf("%s must be >= 0 (got %d)", prefix("rpm_limit"), p.RPMLimit)
	}
	if p.DegradedThresholdMS < 0 {
		errs.Addf("%s must be >= 0", prefix("degraded_threshold_ms"))
	}
	validateProviderCredentials(p, prefix, errs)
}

func validateProviderCredentials(p *ProviderConfig, prefix func(string) string, errs *ValidationError) {
	switch p.Type {
	case ProviderGemini, ProviderAnthropic:
		if p.APIKey == "" {
			errs.Addf("%s is required for %s provider", prefix("api_key"), p.Type)
		}
	case ProviderOpenAI:
		if p.Local && p.BaseURL == "" {
			errs.Addf("%s is required for a local openai provider", prefix("base_url"))
		}
		if !p.Local && p.APIKey == "" {
			errs.Addf("%s is required for openai provider", prefix("api_key"))
		}
	case ProviderBedrock:
		if p.AWSRegion == "" {
			errs.Addf("%s is required for bedrock provider", prefix("aws_region"))
		}
	case ProviderVertex, ProviderVertexClaude:
		if p.GCPProjectID == "" {
			errs.Addf("%s is required for %s provider", prefix("gcp_project_id"), p.Type)
		}
		if p.GCPRegion == "" {
			errs.Addf("%s is required for %s provider", prefix("gcp_region"), p.Type)
		}
	case ProviderOllama:
		// base_url defaults to the local Ollama endpoint
	}
}

package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// ErrConfigExists is returned by WriteDefault when the target already exists.
var ErrConfigExists = errors.New("config: file already exists")

const yamlHeader = `# aicleaner configuration
#
# Providers are tried in the order listed. Supported types:
#   gemini, vertex, openai, ollama, anthropic, bedrock, vertex_claude
# Values may reference environment variables as ${NAME}.
#
# analysis.privacy_level:
#   local_only  only providers on the local network (ollama, openai with local: true)
#   hybrid      local and cloud providers (default)
#   cloud       any provider

`

// Render encodes cfg in the given format, with a comment header for YAML.
func Render(cfg *Config, format Format) ([]byte, error) {
	switch format {
	case FormatYAML:
		var buf bytes.Buffer
		buf.WriteString(yamlHeader)
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(cfg); err != nil {
			return nil, fmt.Errorf("config: encode yaml: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("config: encode yaml: %w", err)
		}
		return buf.Bytes(), nil
	case FormatTOML:
		out, err := toml.Marshal(cfg)
		if err != nil {
			return nil, fmt.Errorf("config: encode toml: %w", err)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

// WriteDefault writes Default() to path, in the format implied by its
// extension. An existing file is only replaced when force is set.
func WriteDefault(path string, force bool) error {
	format, err := FormatFromPath(path)
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%w: %s", ErrConfigExists, path)
	}
	out, err := Render(Default(), format)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("config: create directory: %w", err)
	}
	if err := os.WriteFile(path, out, 0o600); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}

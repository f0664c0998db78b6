package providers

import (
	"context"
	"fmt"
	"strings"
	"time"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/omarluq/aicleaner/internal/health"
)

// DefaultAnthropicModel is used when no model is configured.
const DefaultAnthropicModel = "claude-3-5-haiku-latest"

// AnthropicConfig holds Anthropic provider configuration.
type AnthropicConfig struct {
	Name              string
	APIKey            string
	BaseURL           string // optional, useful for testing against a mock server
	Model             string
	DegradedThreshold time.Duration
}

// AnthropicProvider analyzes images with Claude through the Messages API.
type AnthropicProvider struct {
	client anthropicsdk.Client
	BaseProvider
}

// NewAnthropicProvider creates a new Anthropic provider. Returns an error if the API key is missing.
func NewAnthropicProvider(cfg *AnthropicConfig) (*AnthropicProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic: missing api_key in config")
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	model := cfg.Model
	if model == "" {
		model = DefaultAnthropicModel
	}
	return &AnthropicProvider{
		BaseProvider: NewBaseProvider(cfg.Name, model, false, cfg.DegradedThreshold),
		client:       anthropicsdk.NewClient(opts...),
	}, nil
}

// Analyze sends the image as a base64 block followed by the prompt.
func (p *AnthropicProvider) Analyze(
	ctx context.Context,
	image Image,
	prompt string,
	privacy PrivacyLevel,
) (AnalysisResult, error) {
	if err := p.checkPrivacy(privacy); err != nil {
		return AnalysisResult{}, err
	}
	start := time.Now()

	msg, err := p.client.Messages.New(ctx, anthropicsdk.MessageNewParams{
		Model:     anthropicsdk.Model(p.model),
		MaxTokens: int64(p.maxTokens),
		Messages: []anthropicsdk.MessageParam{
			anthropicsdk.NewUserMessage(
				anthropicsdk.NewImageBlockBase64(image.MIMEType, image.Base64()),
				anthropicsdk.NewTextBlock(prompt),
			),
		},
	})
	if err != nil {
		return AnalysisResult{}, fmt.Errorf("anthropic: messages: %w", err)
	}

	var b strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	if strings.TrimSpace(b.String()) == "" {
		return AnalysisResult{}, fmt.Errorf("anthropic: %w", ErrEmptyResponse)
	}
	return p.finish(b.String(), start)
}

// HealthCheck retrieves the configured model.
func (p *AnthropicProvider) HealthCheck(ctx context.Context) (health.ProviderHealth, error) {
	return p.probe(ctx, func(ctx context.Context) error {
		if _, err := p.client.Models.Get(ctx, p.model, anthropicsdk.ModelGetParams{}); err != nil {
			return fmt.Errorf("anthropic: get model: %w", err)
		}
		return nil
	})
}

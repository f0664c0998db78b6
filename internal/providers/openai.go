package providers

import (
	"context"
	"fmt"
	"strings"
	"time"

	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/shared"

	"github.com/omarluq/aicleaner/internal/health"
)

const (
	// DefaultOpenAIModel is used when no model is configured.
	DefaultOpenAIModel = "gpt-4.1-mini"

	// DefaultOllamaBaseURL is the OpenAI-compatible endpoint of a local Ollama.
	DefaultOllamaBaseURL = "http://localhost:11434/v1"

	// DefaultOllamaModel is a vision model commonly pulled into Ollama.
	DefaultOllamaModel = "llava"

	// ollamaPlaceholderKey satisfies the SDK; Ollama ignores it.
	ollamaPlaceholderKey = "ollama"
)

// OpenAIConfig holds configuration for OpenAI or any OpenAI-compatible server
// (Ollama, LocalAI, vLLM).
type OpenAIConfig struct {
	Name              string
	APIKey            string
	BaseURL           string
	Model             string
	DegradedThreshold time.Duration
	Local             bool
}

// OpenAIProvider analyzes images through the Chat Completions API.
type OpenAIProvider struct {
	client openaisdk.Client
	BaseProvider
}

// NewOpenAIProvider creates an OpenAI-compatible provider. A local provider
// needs a base URL but no API key.
func NewOpenAIProvider(cfg *OpenAIConfig) (*OpenAIProvider, error) {
	if cfg.APIKey == "" && !cfg.Local {
		return nil, fmt.Errorf("openai: missing api_key in config")
	}
	if cfg.Local && cfg.BaseURL == "" {
		return nil, fmt.Errorf("openai: local provider %s requires base_url", cfg.Name)
	}

	model := cfg.Model
	if model == "" {
		model = DefaultOpenAIModel
	}
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = ollamaPlaceholderKey
	}

	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		// failover across providers replaces SDK retries
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &OpenAIProvider{
		BaseProvider: NewBaseProvider(cfg.Name, model, cfg.Local, cfg.DegradedThreshold),
		client:       openaisdk.NewClient(opts...),
	}, nil
}

// NewOllamaProvider creates a local OpenAI-compatible provider for Ollama.
// If baseURL is empty, DefaultOllamaBaseURL is used.
func NewOllamaProvider(name, baseURL, model string, degradedThreshold time.Duration) (*OpenAIProvider, error) {
	if baseURL == "" {
		baseURL = DefaultOllamaBaseURL
	}
	if model == "" {
		model = DefaultOllamaModel
	}
	return NewOpenAIProvider(&OpenAIConfig{
		Name:              name,
		BaseURL:           baseURL,
		Model:             model,
		Local:             true,
		DegradedThreshold: degradedThreshold,
	})
}

// Analyze sends the image as a data URL alongside the prompt.
func (p *OpenAIProvider) Analyze(
	ctx context.Context,
	image Image,
	prompt string,
	privacy PrivacyLevel,
) (AnalysisResult, error) {
	if err := p.checkPrivacy(privacy); err != nil {
		return AnalysisResult{}, err
	}
	start := time.Now()

	resp, err := p.client.Chat.Completions.New(ctx, p.buildParams(image, prompt))
	if err != nil {
		return AnalysisResult{}, fmt.Errorf("openai: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return AnalysisResult{}, fmt.Errorf("openai: %w", ErrEmptyResponse)
	}
	return p.finish(resp.Choices[0].Message.Content, start)
}

// HealthCheck retrieves the configured model.
func (p *OpenAIProvider) HealthCheck(ctx context.Context) (health.ProviderHealth, error) {
	return p.probe(ctx, func(ctx context.Context) error {
		if _, err := p.client.Models.Get(ctx, p.model); err != nil {
			return fmt.Errorf("openai: get model: %w", err)
		}
		return nil
	})
}

func (p *OpenAIProvider) buildParams(image Image, prompt string) openaisdk.ChatCompletionNewParams {
	parts := []openaisdk.ChatCompletionContentPartUnionParam{
		openaisdk.ImageContentPart(openaisdk.ChatCompletionContentPartImageImageURLParam{
			URL: image.DataURL(),
		}),
		openaisdk.TextContentPart(prompt),
	}
	return openaisdk.ChatCompletionNewParams{
		Model:               shared.ChatModel(p.model),
		Messages:            []openaisdk.ChatCompletionMessageParamUnion{openaisdk.UserMessage(parts)},
		MaxCompletionTokens: param.NewOpt(int64(p.maxTokens)),
	}
}

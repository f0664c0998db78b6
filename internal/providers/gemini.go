package providers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/omarluq/aicleaner/internal/health"
)

// DefaultGeminiModel is used when no model is configured.
const DefaultGeminiModel = "gemini-2.5-flash"

// GeminiConfig holds configuration for Gemini through the Gemini API or Vertex AI.
type GeminiConfig struct {
	Name              string
	APIKey            string // Gemini API key; unused on Vertex AI
	Model             string
	BaseURL           string // optional, useful for testing against a mock server
	ProjectID         string // Vertex AI only
	Region            string // Vertex AI only
	DegradedThreshold time.Duration
	Vertex            bool
}

// GeminiProvider analyzes images with Google Gemini models.
type GeminiProvider struct {
	client *genai.Client
	BaseProvider
	vertex bool
}

// NewGeminiProvider creates a Gemini provider. On Vertex AI the client uses
// Application Default Credentials.
func NewGeminiProvider(ctx context.Context, cfg *GeminiConfig) (*GeminiProvider, error) {
	clientCfg := &genai.ClientConfig{Backend: genai.BackendGeminiAPI}
	if cfg.Vertex {
		if cfg.ProjectID == "" || cfg.Region == "" {
			return nil, fmt.Errorf("gemini: vertex backend requires project_id and region")
		}
		clientCfg.Backend = genai.BackendVertexAI
		clientCfg.Project = cfg.ProjectID
		clientCfg.Location = cfg.Region
	} else {
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("gemini: missing api_key in config")
		}
		clientCfg.APIKey = cfg.APIKey
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("gemini: creating client: %w", err)
	}

	model := cfg.Model
	if model == "" {
		model = DefaultGeminiModel
	}
	return &GeminiProvider{
		BaseProvider: NewBaseProvider(cfg.Name, model, false, cfg.DegradedThreshold),
		client:       client,
		vertex:       cfg.Vertex,
	}, nil
}

// Analyze sends the image inline with the prompt.
func (p *GeminiProvider) Analyze(
	ctx context.Context,
	image Image,
	prompt string,
	privacy PrivacyLevel,
) (AnalysisResult, error) {
	if err := p.checkPrivacy(privacy); err != nil {
		return AnalysisResult{}, err
	}
	start := time.Now()

	resp, err := p.client.Models.GenerateContent(ctx, p.model, geminiContents(image, prompt), p.generateConfig())
	if err != nil {
		return AnalysisResult{}, fmt.Errorf("gemini: generate content: %w", err)
	}
	text := geminiText(resp)
	if strings.TrimSpace(text) == "" {
		return AnalysisResult{}, fmt.Errorf("gemini: %w", ErrEmptyResponse)
	}
	return p.finish(text, start)
}

// HealthCheck fetches the model metadata.
func (p *GeminiProvider) HealthCheck(ctx context.Context) (health.ProviderHealth, error) {
	return p.probe(ctx, func(ctx context.Context) error {
		if _, err := p.client.Models.Get(ctx, p.model, nil); err != nil {
			return fmt.Errorf("gemini: get model: %w", err)
		}
		return nil
	})
}

// Vertex reports whether the provider talks to Vertex AI.
func (p *GeminiProvider) Vertex() bool {
	return p.vertex
}

func (p *GeminiProvider) generateConfig() *genai.GenerateContentConfig {
	return &genai.GenerateContentConfig{
		Temperature:      genai.Ptr[float32](0),
		MaxOutputTokens:  int32(p.maxTokens), //nolint:gosec // small constant
		ResponseMIMEType: "application/json",
	}
}

// geminiContents builds a single user turn with the image followed by the prompt.
func geminiContents(image Image, prompt string) []*genai.Content {
	return []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{InlineData: &genai.Blob{MIMEType: image.MIMEType, Data: image.Data}},
				{Text: prompt},
			},
		},
	}
}

// geminiText concatenates the text parts of the first candidate.
func geminiText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil && part.Text != "" {
			b.WriteString(part.Text)
		}
	}
	return b.String()
}

package providers

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/omarluq/aicleaner/internal/health"
)

const (
	// VertexAnthropicVersion is the anthropic_version for Vertex AI requests.
	// Must be in request body (not header) for Vertex AI.
	VertexAnthropicVersion = "vertex-2023-10-16"

	// DefaultVertexClaudeModel is used when no model is configured.
	DefaultVertexClaudeModel = "claude-3-5-haiku@20241022"

	// vertexScope is the OAuth scope required for Vertex AI.
	vertexScope = "https://www.googleapis.com/auth/cloud-platform"
)

// VertexClaudeConfig holds configuration for Claude models on Vertex AI.
type VertexClaudeConfig struct {
	HTTPClient        *http.Client
	Name              string
	ProjectID         string // GCP project ID
	Region            string // GCP region (e.g., "us-east5")
	Model             string
	BaseURL           string // overrides https://{region}-aiplatform.googleapis.com
	DegradedThreshold time.Duration
}

// VertexClaudeProvider runs Claude vision models on Google Vertex AI.
// Vertex AI requires:
// - Model in URL path (not body)
// - anthropic_version in request body (not header)
// - OAuth Bearer token authentication.
type VertexClaudeProvider struct {
	tokenSource oauth2.TokenSource
	client      *http.Client
	projectID   string
	region      string
	baseURL     string
	BaseProvider
}

// NewVertexClaudeProvider creates a provider using Google Application Default
// Credentials. Token refresh is handled by the TokenSource.
func NewVertexClaudeProvider(ctx context.Context, cfg *VertexClaudeConfig) (*VertexClaudeProvider, error) {
	if cfg.ProjectID == "" {
		return nil, fmt.Errorf("vertex: project_id is required")
	}
	if cfg.Region == "" {
		return nil, fmt.Errorf("vertex: region is required")
	}

	creds, err := google.FindDefaultCredentials(ctx, vertexScope)
	if err != nil {
		return nil, fmt.Errorf("vertex: failed to find credentials: %w", err)
	}
	return NewVertexClaudeProviderWithTokenSource(cfg, creds.TokenSource), nil
}

// NewVertexClaudeProviderWithTokenSource creates a provider with a custom token source.
// Useful for testing or when using explicit credentials.
func NewVertexClaudeProviderWithTokenSource(cfg *VertexClaudeConfig, ts oauth2.TokenSource) *VertexClaudeProvider {
	model := cfg.Model
	if model == "" {
		model = DefaultVertexClaudeModel
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = fmt.Sprintf("https://%s-aiplatform.googleapis.com", cfg.Region)
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	if ts != nil {
		ts = oauth2.ReuseTokenSource(nil, ts)
	}

	return &VertexClaudeProvider{
		BaseProvider: NewBaseProvider(cfg.Name, model, false, cfg.DegradedThreshold),
		tokenSource:  ts,
		client:       client,
		projectID:    cfg.ProjectID,
		region:       cfg.Region,
		baseURL:      baseURL,
	}
}

// Analyze sends the image to the rawPredict endpoint of the model.
func (p *VertexClaudeProvider) Analyze(
	ctx context.Context,
	image Image,
	prompt string,
	privacy PrivacyLevel,
) (AnalysisResult, error) {
	if err := p.checkPrivacy(privacy); err != nil {
		return AnalysisResult{}, err
	}
	start := time.Now()

	body, err := BuildClaudeVisionBody(image, prompt, VertexAnthropicVersion, p.maxTokens)
	if err != nil {
		return AnalysisResult{}, fmt.Errorf("vertex: %w", err)
	}
	// Format: /v1/projects/{project}/locations/{region}/publishers/anthropic/models/{model}:rawPredict
	target := fmt.Sprintf("%s/v1/projects/%s/locations/%s/publishers/anthropic/models/%s:rawPredict",
		p.baseURL,
		url.PathEscape(p.projectID),
		url.PathEscape(p.region),
		url.PathEscape(p.model))

	respBody, err := p.do(ctx, http.MethodPost, target, body)
	if err != nil {
		return AnalysisResult{}, err
	}
	text, err := ExtractClaudeText(respBody)
	if err != nil {
		return AnalysisResult{}, fmt.Errorf("vertex: %w", err)
	}
	return p.finish(text, start)
}

// HealthCheck fetches the publisher model, which needs a valid token but no inference.
func (p *VertexClaudeProvider) HealthCheck(ctx context.Context) (health.ProviderHealth, error) {
	return p.probe(ctx, func(ctx context.Context) error {
		target := fmt.Sprintf("%s/v1beta1/publishers/anthropic/models/%s", p.baseURL, url.PathEscape(p.model))
		_, err := p.do(ctx, http.MethodGet, target, nil)
		return err
	})
}

func (p *VertexClaudeProvider) do(ctx context.Context, method, target string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("vertex: create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if err := p.authenticate(req); err != nil {
		return nil, err
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("vertex: request failed: %w", err)
	}
	respBody, err := readResponse(resp)
	if err != nil {
		return nil, fmt.Errorf("vertex: %w", err)
	}
	return respBody, nil
}

// authenticate adds the OAuth Bearer token to the request.
func (p *VertexClaudeProvider) authenticate(req *http.Request) error {
	if p.tokenSource == nil {
		return fmt.Errorf("vertex: no token source configured")
	}

	token, err := p.tokenSource.Token()
	if err != nil {
		return fmt.Errorf("vertex: failed to get token: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)

	log.Ctx(req.Context()).Debug().
		Str("provider", p.name).
		Bool("token_valid", token.Valid()).
		Time("token_expiry", token.Expiry).
		Msg("added Vertex AI OAuth authentication")
	return nil
}

// ProjectID returns the configured GCP project ID.
func (p *VertexClaudeProvider) ProjectID() string {
	return p.projectID
}

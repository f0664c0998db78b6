package providers

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/rs/zerolog/log"

	"github.com/omarluq/aicleaner/internal/health"
)

const (
	// BedrockAnthropicVersion is the anthropic_version for Bedrock requests.
	// Must be in request body (not header) for Bedrock.
	BedrockAnthropicVersion = "bedrock-2023-05-31"

	// DefaultBedrockModel is used when no model is configured.
	DefaultBedrockModel = "anthropic.claude-3-5-haiku-20241022-v1:0"

	// bedrockService is the AWS service name for signing.
	bedrockService = "bedrock"
)

// BedrockCredentialsProvider abstracts AWS credential retrieval for testing.
type BedrockCredentialsProvider interface {
	Retrieve(ctx context.Context) (aws.Credentials, error)
}

// BedrockConfig holds Bedrock-specific configuration.
type BedrockConfig struct {
	HTTPClient        *http.Client
	Name              string
	Region            string // AWS region (e.g., "us-east-1")
	Model             string
	RuntimeURL        string // overrides https://bedrock-runtime.{region}.amazonaws.com
	ControlURL        string // overrides https://bedrock.{region}.amazonaws.com
	DegradedThreshold time.Duration
}

// BedrockProvider runs Claude vision models on AWS Bedrock.
// Bedrock requires:
// - Model in URL path (not body)
// - anthropic_version in request body (not header)
// - AWS SigV4 authentication.
type BedrockProvider struct {
	credentials BedrockCredentialsProvider
	signer      *v4.Signer
	client      *http.Client
	region      string
	runtimeURL  string
	controlURL  string
	BaseProvider
}

// NewBedrockProvider creates a new Bedrock provider instance.
// Uses AWS SDK default credential chain for authentication.
func NewBedrockProvider(ctx context.Context, cfg *BedrockConfig) (*BedrockProvider, error) {
	if cfg.Region == "" {
		return nil, fmt.Errorf("bedrock: region is required")
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("bedrock: failed to load AWS config: %w", err)
	}

	return NewBedrockProviderWithCredentials(cfg, awsCfg.Credentials), nil
}

// NewBedrockProviderWithCredentials creates a Bedrock provider with explicit credentials.
// Useful for testing or when using non-default credential providers.
func NewBedrockProviderWithCredentials(
	cfg *BedrockConfig,
	credentials BedrockCredentialsProvider,
) *BedrockProvider {
	model := cfg.Model
	if model == "" {
		model = DefaultBedrockModel
	}
	runtimeURL := cfg.RuntimeURL
	if runtimeURL == "" {
		runtimeURL = fmt.Sprintf("https://bedrock-runtime.%s.amazonaws.com", cfg.Region)
	}
	controlURL := cfg.ControlURL
	if controlURL == "" {
		controlURL = fmt.Sprintf("https://bedrock.%s.amazonaws.com", cfg.Region)
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{}
	}

	return &BedrockProvider{
		BaseProvider: NewBaseProvider(cfg.Name, model, false, cfg.DegradedThreshold),
		region:       cfg.Region,
		credentials:  credentials,
		signer:       v4.NewSigner(),
		client:       client,
		runtimeURL:   runtimeURL,
		controlURL:   controlURL,
	}
}

// Analyze invokes the model with the image and prompt.
func (p *BedrockProvider) Analyze(
	ctx context.Context,
	image Image,
	prompt string,
	privacy PrivacyLevel,
) (AnalysisResult, error) {
	if err := p.checkPrivacy(privacy); err != nil {
		return AnalysisResult{}, err
	}
	start := time.Now()

	body, err := BuildClaudeVisionBody(image, prompt, BedrockAnthropicVersion, p.maxTokens)
	if err != nil {
		return AnalysisResult{}, fmt.Errorf("bedrock: %w", err)
	}
	target := fmt.Sprintf("%s/model/%s/invoke", p.runtimeURL, url.PathEscape(p.model))

	respBody, err := p.do(ctx, http.MethodPost, target, body)
	if err != nil {
		return AnalysisResult{}, err
	}
	text, err := ExtractClaudeText(respBody)
	if err != nil {
		return AnalysisResult{}, fmt.Errorf("bedrock: %w", err)
	}
	return p.finish(text, start)
}

// HealthCheck looks the model up on the Bedrock control plane.
func (p *BedrockProvider) HealthCheck(ctx context.Context) (health.ProviderHealth, error) {
	return p.probe(ctx, func(ctx context.Context) error {
		target := fmt.Sprintf("%s/foundation-models/%s", p.controlURL, url.PathEscape(p.model))
		_, err := p.do(ctx, http.MethodGet, target, nil)
		return err
	})
}

func (p *BedrockProvider) do(ctx context.Context, method, target string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("bedrock: create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
	}
	if err := p.sign(req, body); err != nil {
		return nil, err
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("bedrock: request failed: %w", err)
	}
	respBody, err := readResponse(resp)
	if err != nil {
		return nil, fmt.Errorf("bedrock: %w", err)
	}
	return respBody, nil
}

// sign adds AWS SigV4 authentication to the request.
// body must be the exact payload attached to req.
func (p *BedrockProvider) sign(req *http.Request, body []byte) error {
	if p.credentials == nil {
		return fmt.Errorf("bedrock: no credentials provider configured")
	}

	ctx := req.Context()
	creds, err := p.credentials.Retrieve(ctx)
	if err != nil {
		return fmt.Errorf("bedrock: failed to retrieve credentials: %w", err)
	}

	hash := sha256.Sum256(body)
	payloadHash := hex.EncodeToString(hash[:])

	err = p.signer.SignHTTP(
		ctx,
		creds,
		req,
		payloadHash,
		bedrockService,
		p.region,
		time.Now(),
		func(options *v4.SignerOptions) {
			options.DisableURIPathEscaping = true
		},
	)
	if err != nil {
		return fmt.Errorf("bedrock: failed to sign request: %w", err)
	}

	log.Ctx(ctx).Debug().
		Str("provider", p.name).
		Str("region", p.region).
		Msg("added Bedrock SigV4 authentication")
	return nil
}

// Region returns the configured AWS region.
func (p *BedrockProvider) Region() string {
	return p.region
}

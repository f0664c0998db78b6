package providers_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	"golang.org/x/oauth2"

	"github.com/omarluq/aicleaner/internal/health"
	"github.com/omarluq/aicleaner/internal/providers"
)

// mockTokenSource provides a controllable token source for testing.
type mockTokenSource struct {
	token *oauth2.Token
	err   error
	calls int
}

func (m *mockTokenSource) Token() (*oauth2.Token, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.token, nil
}

func newMockTokenSource(accessToken string) *mockTokenSource {
	return &mockTokenSource{
		token: &oauth2.Token{
			AccessToken: accessToken,
			TokenType:   "Bearer",
			Expiry:      time.Now().Add(time.Hour),
		},
	}
}

func newTestVertexClaude(t *testing.T, ts oauth2.TokenSource, handler http.HandlerFunc) *providers.VertexClaudeProvider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return providers.NewVertexClaudeProviderWithTokenSource(&providers.VertexClaudeConfig{
		Name:      "test-vertex",
		ProjectID: "my-project",
		Region:    "us-east5",
		Model:     "test-model",
		BaseURL:   srv.URL,
	}, ts)
}

func TestNewVertexClaudeProviderDefaults(t *testing.T) {
	t.Parallel()

	p := providers.NewVertexClaudeProviderWithTokenSource(&providers.VertexClaudeConfig{
		Name:      "vc",
		ProjectID: "proj",
		Region:    "europe-west1",
	}, newMockTokenSource("tok"))

	assert.Equal(t, "vc", p.Name())
	assert.Equal(t, "proj", p.ProjectID())
	assert.Equal(t, providers.DefaultVertexClaudeModel, p.Model())
	assert.False(t, p.SupportsPrivacy(providers.PrivacyLocalOnly))
}

func TestNewVertexClaudeProviderRequiresProject(t *testing.T) {
	t.Parallel()

	_, err := providers.NewVertexClaudeProvider(context.Background(), &providers.VertexClaudeConfig{Region: "us-east5"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "project_id")

	_, err = providers.NewVertexClaudeProvider(context.Background(), &providers.VertexClaudeConfig{ProjectID: "p"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "region")
}

func TestVertexClaudeAnalyze(t *testing.T) {
	t.Parallel()

	var gotBody []byte
	var gotPath, gotAuth string
	p := newTestVertexClaude(t, newMockTokenSource("ya29.test"), func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotBody, _ = io.ReadAll(r.Body)
		answer := "```json\n" + providers.VerdictJSON("keep", 0.8, "person at door") + "\n```"
		body, _ := sjson.SetBytes([]byte(`{"content":[{"type":"text"}]}`), "content.0.text", answer)
		_, _ = w.Write(body)
	})

	result, err := p.Analyze(context.Background(), providers.TestImage(), "is this useful?", providers.PrivacyHybrid)
	require.NoError(t, err)

	assert.Equal(t,
		"/v1/projects/my-project/locations/us-east5/publishers/anthropic/models/test-model:rawPredict", gotPath)
	assert.Equal(t, "Bearer ya29.test", gotAuth)
	assert.Equal(t, providers.VertexAnthropicVersion, gjson.GetBytes(gotBody, "anthropic_version").String())
	assert.Equal(t, "image/png", gjson.GetBytes(gotBody, "messages.0.content.0.source.media_type").String())
	assert.Equal(t, "is this useful?", gjson.GetBytes(gotBody, "messages.0.content.1.text").String())

	assert.Equal(t, providers.ActionKeep, result.Action)
	assert.Equal(t, "person at door", result.Reasoning)
}

func TestVertexClaudeHealthCheck(t *testing.T) {
	t.Parallel()

	p := newTestVertexClaude(t, newMockTokenSource("tok"), func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1beta1/publishers/anthropic/models/test-model", r.URL.Path)
		_, _ = w.Write([]byte(`{"name":"publishers/anthropic/models/test-model"}`))
	})

	h, err := p.HealthCheck(context.Background())
	require.NoError(t, err)
	assert.Equal(t, health.StatusHealthy, h.Status)
}

func TestVertexClaudeTokenErrors(t *testing.T) {
	t.Parallel()

	t.Run("token source fails", func(t *testing.T) {
		t.Parallel()
		ts := &mockTokenSource{err: errors.New("metadata server unreachable")}
		p := newTestVertexClaude(t, ts, func(http.ResponseWriter, *http.Request) {
			t.Error("request must not be sent without a token")
		})

		_, err := p.HealthCheck(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to get token")
	})

	t.Run("no token source", func(t *testing.T) {
		t.Parallel()
		p := newTestVertexClaude(t, nil, func(http.ResponseWriter, *http.Request) {})

		_, err := p.Analyze(context.Background(), providers.TestImage(), "p", providers.PrivacyCloud)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no token source")
	})
}

func TestVertexClaudeReusesValidToken(t *testing.T) {
	t.Parallel()

	ts := newMockTokenSource("tok")
	p := newTestVertexClaude(t, ts, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	})

	for range 3 {
		_, err := p.HealthCheck(context.Background())
		require.NoError(t, err)
	}
	assert.Equal(t, 1, ts.calls)
}

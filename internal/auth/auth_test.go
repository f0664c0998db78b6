package auth_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"

	"github.com/omarluq/aicleaner/internal/auth"
)

func request(headers map[string]string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/api/v1/health/summary", http.NoBody)
	for k, v := range headers {
		r.Header.Set(k, v)
	}
	return r
}

func TestAPIKeyAuthenticator(t *testing.T) {
	t.Parallel()

	a := auth.NewAPIKeyAuthenticator("s3cret")
	tests := []struct {
		name    string
		headers map[string]string
		valid   bool
		reason  string
	}{
		{"valid", map[string]string{"x-api-key": "s3cret"}, true, ""},
		{"missing", nil, false, "missing x-api-key header"},
		{"wrong", map[string]string{"x-api-key": "nope"}, false, "invalid x-api-key"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := a.Check(request(tt.headers))
			assert.Equal(t, tt.valid, got.Valid)
			assert.Equal(t, tt.reason, got.Reason)
			assert.Equal(t, auth.MethodAPIKey, got.Method)
		})
	}
}

func TestBearerAuthenticator(t *testing.T) {
	t.Parallel()

	a := auth.NewBearerAuthenticator("ha-token")
	tests := []struct {
		name   string
		header string
		valid  bool
		reason string
	}{
		{"valid", "Bearer ha-token", true, ""},
		{"lowercase scheme", "bearer ha-token", true, ""},
		{"missing", "", false, "missing authorization header"},
		{"basic scheme", "Basic dXNlcjpwYXNz", false, "invalid authorization scheme"},
		{"no token", "Bearer ", false, "empty bearer token"},
		{"wrong token", "Bearer other", false, "invalid bearer token"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			headers := map[string]string{}
			if tt.header != "" {
				headers["Authorization"] = tt.header
			}
			got := a.Check(request(headers))
			assert.Equal(t, tt.valid, got.Valid)
			assert.Equal(t, tt.reason, got.Reason)
		})
	}
}

func TestChain(t *testing.T) {
	t.Parallel()

	c := auth.ForSecret("k")

	got := c.Check(request(map[string]string{"Authorization": "Bearer k"}))
	assert.True(t, got.Valid)
	assert.Equal(t, auth.MethodBearer, got.Method)

	got = c.Check(request(map[string]string{"x-api-key": "k"}))
	assert.True(t, got.Valid)
	assert.Equal(t, auth.MethodAPIKey, got.Method)

	got = c.Check(request(map[string]string{"x-api-key": "bad"}))
	assert.False(t, got.Valid)
	assert.Equal(t, "invalid x-api-key", got.Reason)

	got = c.Check(request(nil))
	assert.False(t, got.Valid)
	assert.Contains(t, got.Reason, "missing credentials")

	got = auth.NewChain().Check(request(map[string]string{"x-api-key": "k"}))
	assert.False(t, got.Valid)
	assert.Equal(t, auth.MethodNone, got.Method)
}

func TestChainOnlyAcceptsTheSecret(t *testing.T) {
	t.Parallel()

	properties := gopter.NewProperties(nil)
	properties.Property("a key is accepted iff it equals the secret", prop.ForAll(
		func(secret, presented string) bool {
			c := auth.ForSecret(secret)
			got := c.Check(request(map[string]string{"x-api-key": presented}))
			return got.Valid == (presented == secret)
		},
		gen.AlphaString().SuchThat(func(s string) bool { return s != "" }),
		gen.AlphaString().SuchThat(func(s string) bool { return s != "" }),
	))
	properties.TestingRun(t)
}

// Package auth checks the shared API secret on incoming REST requests.
//
// Clients may present the secret as an x-api-key header or as an
// Authorization: Bearer token. Home Assistant's REST integrations use the
// latter; scripts and the aicleaner CLI use the former.
package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/samber/lo"
)

// Method names the credential a request carried.
type Method string

// Supported credential methods.
const (
	MethodAPIKey Method = "api_key"
	MethodBearer Method = "bearer"
	MethodNone   Method = "none"
)

// HeaderAPIKey carries the secret for MethodAPIKey.
const HeaderAPIKey = "x-api-key"

// Outcome is the result of checking one request.
type Outcome struct {
	Method Method
	Reason string
	Valid  bool
}

// Authenticator checks one credential style.
type Authenticator interface {
	Check(r *http.Request) Outcome
	Method() Method
}

// secret holds the SHA-256 of the expected value so comparisons run over
// equal-length inputs.
type secret [sha256.Size]byte

func newSecret(s string) secret { return sha256.Sum256([]byte(s)) }

func (s secret) matches(provided string) bool {
	h := sha256.Sum256([]byte(provided))
	return subtle.ConstantTimeCompare(h[:], s[:]) == 1
}

// APIKeyAuthenticator accepts requests whose x-api-key header equals the secret.
type APIKeyAuthenticator struct {
	expected secret
}

// NewAPIKeyAuthenticator returns an authenticator for the given secret.
func NewAPIKeyAuthenticator(key string) *APIKeyAuthenticator {
	return &APIKeyAuthenticator{expected: newSecret(key)}
}

// Check validates the x-api-key header.
func (a *APIKeyAuthenticator) Check(r *http.Request) Outcome {
	provided := r.Header.Get(HeaderAPIKey)
	switch {
	case provided == "":
		return Outcome{Method: MethodAPIKey, Reason: "missing x-api-key header"}
	case !a.expected.matches(provided):
		return Outcome{Method: MethodAPIKey, Reason: "invalid x-api-key"}
	default:
		return Outcome{Method: MethodAPIKey, Valid: true}
	}
}

// Method returns MethodAPIKey.
func (a *APIKeyAuthenticator) Method() Method { return MethodAPIKey }

// BearerAuthenticator accepts requests whose bearer token equals the secret.
type BearerAuthenticator struct {
	expected secret
}

// NewBearerAuthenticator returns an authenticator for the given secret.
func NewBearerAuthenticator(token string) *BearerAuthenticator {
	return &BearerAuthenticator{expected: newSecret(token)}
}

// Check validates the Authorization header. The scheme is case-insensitive.
func (a *BearerAuthenticator) Check(r *http.Request) Outcome {
	header := r.Header.Get("Authorization")
	if header == "" {
		return Outcome{Method: MethodBearer, Reason: "missing authorization header"}
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return Outcome{Method: MethodBearer, Reason: "invalid authorization scheme"}
	}
	token = strings.TrimSpace(token)
	switch {
	case token == "":
		return Outcome{Method: MethodBearer, Reason: "empty bearer token"}
	case !a.expected.matches(token):
		return Outcome{Method: MethodBearer, Reason: "invalid bearer token"}
	default:
		return Outcome{Method: MethodBearer, Valid: true}
	}
}

// Method returns MethodBearer.
func (a *BearerAuthenticator) Method() Method { return MethodBearer }

// Chain tries authenticators in order; the first success wins.
type Chain struct {
	authenticators []Authenticator
}

// NewChain returns a chain over the given authenticators.
func NewChain(authenticators ...Authenticator) *Chain {
	return &Chain{authenticators: authenticators}
}

// ForSecret returns the standard chain accepting secret as either an API key
// or a bearer token.
func ForSecret(s string) *Chain {
	return NewChain(NewAPIKeyAuthenticator(s), NewBearerAuthenticator(s))
}

// Check returns the first valid outcome. When every authenticator fails, the
// reason comes from the first one that saw a credential at all, so a wrong
// key is reported instead of a missing bearer header.
func (c *Chain) Check(r *http.Request) Outcome {
	if len(c.authenticators) == 0 {
		return Outcome{Method: MethodNone, Reason: "no authentication configured"}
	}

	outcomes := lo.Map(c.authenticators, func(a Authenticator, _ int) Outcome { return a.Check(r) })
	if ok, found := lo.Find(outcomes, func(o Outcome) bool { return o.Valid }); found {
		return ok
	}
	if presented, found := lo.Find(outcomes, func(o Outcome) bool { return !strings.HasPrefix(o.Reason, "missing") }); found {
		return Outcome{Method: MethodNone, Reason: presented.Reason}
	}
	return Outcome{Method: MethodNone, Reason: "missing credentials: send x-api-key or Authorization: Bearer"}
}

// Method returns MethodNone.
func (c *Chain) Method() Method { return MethodNone }

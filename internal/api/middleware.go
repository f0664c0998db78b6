package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/omarluq/aicleaner/internal/auth"
	"github.com/omarluq/aicleaner/internal/config"
)

// HeaderRequestID carries the request ID in and out.
const HeaderRequestID = "X-Request-ID"

// HeaderAPIKey carries the client API key.
const HeaderAPIKey = auth.HeaderAPIKey

// RequestIDMiddleware reuses or generates X-Request-ID and attaches a
// request-scoped logger to the context.
func RequestIDMiddleware(base *zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := WithRequestID(r.Context(), base, r.Header.Get(HeaderRequestID))
			w.Header().Set(HeaderRequestID, GetRequestID(ctx))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// LoggingMiddleware logs each request's completion with status and duration.
func LoggingMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(wrapped, r)

			duration := time.Since(start)
			logger := zerolog.Ctx(r.Context()).With().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", wrapped.statusCode).
				Str("duration", formatDuration(duration)).
				Logger()

			msg := statusSymbol(wrapped.statusCode) + " " + http.StatusText(wrapped.statusCode)
			switch {
			case wrapped.statusCode >= 500:
				logger.Error().Msg(msg)
			case wrapped.statusCode >= 400:
				logger.Warn().Msg(msg)
			default:
				logger.Debug().Msg(msg)
			}
		})
	}
}

// AuthMiddleware requires server.api_key from the live config, sent either
// as x-api-key or as a bearer token. An empty key disables the check.
func AuthMiddleware(cfg config.RuntimeConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			expected := cfg.Get().Server.APIKey
			if expected == "" {
				next.ServeHTTP(w, r)
				return
			}

			outcome := auth.ForSecret(expected).Check(r)
			if !outcome.Valid {
				failAuth(w, r, outcome.Reason)
				return
			}
			zerolog.Ctx(r.Context()).Debug().Str("auth_method", string(outcome.Method)).Msg("authenticated")
			next.ServeHTTP(w, r)
		})
	}
}

func failAuth(w http.ResponseWriter, r *http.Request, reason string) {
	zerolog.Ctx(r.Context()).Warn().Msg("authentication failed: " + reason)
	WriteError(w, r, http.StatusUnauthorized, ErrTypeAuthentication, reason)
}

// MaxBodyBytesMiddleware limits request bodies to limit() bytes, read per
// request so reloads apply.
func MaxBodyBytesMiddleware(limit func() int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if n := limit(); n > 0 && r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, n)
			}
			next.ServeHTTP(w, r)
		})
	}
}

func statusSymbol(statusCode int) string {
	switch {
	case statusCode >= 500:
		return "✗"
	case statusCode >= 400:
		return "⚠"
	default:
		return "✓"
	}
}

// formatDuration prints µs for fast requests and ms or s for slower ones.
func formatDuration(d time.Duration) string {
	if d <= 0 {
		return "0s"
	}
	d = d.Round(time.Microsecond)
	switch {
	case d < time.Millisecond:
		return fmt.Sprintf("%dµs", d.Microseconds())
	case d < time.Second:
		return fmt.Sprintf("%.2fms", float64(d)/float64(time.Millisecond))
	case d < time.Minute:
		return fmt.Sprintf("%.2fs", d.Seconds())
	default:
		return d.Truncate(time.Second).String()
	}
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

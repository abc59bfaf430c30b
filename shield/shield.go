// Package shield provides reusable HTTP middleware for the moulinette
// API: security headers, per-IP rate limiting, request body caps, and
// request-ID tagging with a per-request structured logger.
//
// Usage:
//
//	r := chi.NewRouter()
//	rl := shield.NewRateLimiter(10, time.Minute)
//	for _, mw := range shield.APIStack(32<<20, rl, idgen.NanoID(8)) {
//	    r.Use(mw)
//	}
package shield

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/hazyhaar/moulinette/idgen"
)

type contextKey string

// LoggerKey is the context key for the per-request structured logger.
const LoggerKey contextKey = "shield_logger"

// GetLogger retrieves the per-request logger from the context.
// Returns slog.Default() if no logger was set.
func GetLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(LoggerKey).(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}

// APIStack returns the standard middleware stack, ordered:
// SecurityHeaders → MaxBytes → RequestID → RateLimit. Body caps apply
// before any handler reads; rate-limited requests still carry an ID so
// the 429 shows up attributed in logs.
func APIStack(maxBody int64, rl *RateLimiter, gen idgen.Generator) []func(http.Handler) http.Handler {
	return []func(http.Handler) http.Handler{
		SecurityHeaders(DefaultHeaders()),
		MaxBytes(maxBody),
		RequestID(gen),
		rl.Middleware,
	}
}

package shield

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/hazyhaar/moulinette/idgen"
	"github.com/hazyhaar/moulinette/kit"
)

// RequestID returns middleware that assigns a fresh ID to every request,
// exposes it through kit accessors and the X-Request-ID response header,
// and stores a request-scoped logger under LoggerKey. Inbound IDs are
// not trusted; the server always generates its own.
func RequestID(gen idgen.Generator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := gen()

			ctx := kit.WithRequestID(r.Context(), id)
			ctx = kit.WithRemoteAddr(ctx, ExtractIP(r))

			logger := slog.Default().With(
				"request_id", id,
				"method", r.Method,
				"path", r.URL.Path,
				"remote_addr", r.RemoteAddr,
			)
			ctx = context.WithValue(ctx, LoggerKey, logger)

			w.Header().Set("X-Request-ID", id)
			logger.Info("request")

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

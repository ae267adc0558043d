package ratelimit

import (
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"github.com/go-chi/httprate"

	"github.com/clubroster/roster/internal/platform/httpx"
	"github.com/clubroster/roster/internal/shared"
)

// MiddlewareConfig wires a Limiter into an HTTP chain.
type MiddlewareConfig struct {
	Limiter Limiter
	// KeyFunc identifies the client. Defaults to httprate.KeyByIP.
	KeyFunc httprate.KeyFunc
	Logger  *slog.Logger
	// RetryAfterSeconds is advertised on rejected requests.
	RetryAfterSeconds int
	// OnDenied is invoked for every rejected request.
	OnDenied func(r *http.Request)
}

// Middleware rejects requests once the client's attempts fill the window.
// Backend failures reject with 503 rather than admitting unmetered attempts.
func Middleware(cfg MiddlewareConfig) func(http.Handler) http.Handler {
	keyFn := cfg.KeyFunc
	if keyFn == nil {
		keyFn = httprate.KeyByIP
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key, err := keyFn(r)
			if err != nil {
				logger.Error("rate limit key", slog.Any("error", err))
				httpx.Problem(w, http.StatusServiceUnavailable, "Service Unavailable", "")
				return
			}
			allowed, err := cfg.Limiter.Allow(r.Context(), key)
			if err != nil {
				logger.Error("rate limit backend", slog.Any("error", err))
				httpx.Problem(w, http.StatusServiceUnavailable, "Service Unavailable", "")
				return
			}
			if !allowed {
				if cfg.RetryAfterSeconds > 0 {
					w.Header().Set("Retry-After", strconv.Itoa(cfg.RetryAfterSeconds))
				}
				if cfg.OnDenied != nil {
					cfg.OnDenied(r)
				}
				logger.Warn("rate limited", slog.String("key", key), slog.String("path", r.URL.Path))
				httpx.RespondError(w, shared.ErrRateLimited)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RetryAfter converts cfg's window to whole seconds for the Retry-After header.
func RetryAfter(cfg Config) int {
	cfg = cfg.withDefaults()
	return int(math.Ceil(cfg.Window.Seconds()))
}

package api

import (
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"github.com/stockroomapp/stockroom-server/internal/http/response"
	"github.com/stockroomapp/stockroom-server/internal/ratelimit"
)

const batchPath = "/api/v1/sync/batch"

// batchRateLimit throttles batch pushes per workspace. Unauthenticated
// requests pass through and are rejected by the handler.
func batchRateLimit(limiter *ratelimit.KeyedRateLimiter, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limiter == nil || r.Method != http.MethodPost || r.URL.Path != batchPath {
				next.ServeHTTP(w, r)
				return
			}
			scope, ok := scopeFrom(r.Context())
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			if !limiter.Allow(scope.WorkspaceID) {
				wait := limiter.RetryAfter(scope.WorkspaceID)
				logger.Warn("Rate limit exceeded",
					"workspace_id", scope.WorkspaceID,
					"retry_after", wait,
				)
				w.Header().Set("Retry-After", strconv.Itoa(max(1, int(math.Ceil(wait.Seconds())))))
				response.TooManyRequests(w, "Too many batch requests for this workspace. Please retry later.", logger)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

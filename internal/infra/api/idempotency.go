package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"subscriber-payments/internal/infra/logging"
	"subscriber-payments/internal/infra/metrics"
	red "subscriber-payments/internal/infra/redis"

	"github.com/rs/zerolog"
)

const (
	IdempotencyKeyHeader = "Idempotency-Key"
	IdempotencyTTL       = 24 * time.Hour
	// idempotencyLockTTL bounds how long a crashed request keeps its key reserved.
	idempotencyLockTTL = time.Minute
	replayedHeader     = "X-Idempotency-Replayed"
)

type cachedResponse struct {
	StatusCode int    `json:"status_code"`
	Body       string `json:"body"`
}

type responseRecorder struct {
	http.ResponseWriter
	statusCode int
	body       bytes.Buffer
}

func (r *responseRecorder) WriteHeader(code int) {
	r.statusCode = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *responseRecorder) Write(b []byte) (int, error) {
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}

// Idempotency replays the stored response of an earlier POST carrying the same
// Idempotency-Key for the same principal and path. Requests without the header pass
// through. A duplicate arriving while the first is still running gets 409.
// Server errors are not stored so the client can retry them.
func Idempotency(client red.RedisClient, logger *zerolog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(IdempotencyKeyHeader)
			if r.Method != http.MethodPost || key == "" || client == nil {
				next.ServeHTTP(w, r)
				return
			}
			scope := "anonymous"
			if p, ok := PrincipalFrom(r.Context()); ok {
				scope = p.Subject
			}
			cacheKey := fmt.Sprintf("idempotency:%s:%s:%s", scope, r.URL.Path, key)
			l := logging.With(r.Context(), logger)

			cached, err := client.Get(r.Context(), cacheKey)
			switch {
			case err == nil && cached != "":
				var resp cachedResponse
				if err := json.Unmarshal([]byte(cached), &resp); err == nil {
					w.Header().Set("Content-Type", "application/json")
					w.Header().Set(replayedHeader, "true")
					w.WriteHeader(resp.StatusCode)
					_, _ = w.Write([]byte(resp.Body))
					metrics.IncCacheRequest("idempotency", "replay")
					return
				}
			case err != nil && !errors.Is(err, red.Nil):
				metrics.IncCacheRequest("idempotency", "error")
				l.Warn().Err(err).Msg("idempotency lookup failed")
			default:
				metrics.IncCacheRequest("idempotency", "miss")
			}

			lockKey := cacheKey + ":inflight"
			reserved, err := client.SetNX(r.Context(), lockKey, "1", idempotencyLockTTL)
			switch {
			case err != nil:
				l.Warn().Err(err).Msg("idempotency reservation failed")
			case !reserved:
				writeJSON(w, http.StatusConflict, errorBody{Error: "a request with this Idempotency-Key is still in progress"})
				return
			default:
				defer func() {
					if err := client.Del(context.WithoutCancel(r.Context()), lockKey); err != nil {
						l.Warn().Err(err).Msg("idempotency release failed")
					}
				}()
			}

			rec := &responseRecorder{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(rec, r)
			if rec.statusCode >= http.StatusInternalServerError {
				return
			}

			raw, err := json.Marshal(cachedResponse{StatusCode: rec.statusCode, Body: rec.body.String()})
			if err != nil {
				return
			}
			if err := client.Set(r.Context(), cacheKey, string(raw), IdempotencyTTL); err != nil {
				l.Warn().Err(err).Msg("idempotency store failed")
			}
		})
	}
}

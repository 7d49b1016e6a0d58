// Package ratelimit throttles the public confirm endpoint per client IP. The
// store is in-process; a multi-instance deployment would swap in a shared
// limiter store behind the same middleware.
package ratelimit

import (
	"net/http"
	"strconv"
	"time"

	limiter "github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"

	"github.com/paysim-labs/xpay-sim/internal/common"
)

// Limiter wraps an in-memory fixed-window rate limiter.
type Limiter struct {
	instance *limiter.Limiter
}

// New constructs a limiter allowing max requests per window.
func New(window time.Duration, max int64) *Limiter {
	rate := limiter.Rate{Period: window, Limit: max}
	return &Limiter{instance: limiter.New(memory.NewStore(), rate)}
}

// Middleware enforces the limit keyed by client IP, exposing the standard
// X-RateLimit headers.
func (l *Limiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if l == nil || l.instance == nil {
			next.ServeHTTP(w, r)
			return
		}
		lctx, err := l.instance.Get(r.Context(), common.ClientIP(r))
		if err != nil {
			// A broken limiter should not take the API down with it.
			next.ServeHTTP(w, r)
			return
		}

		headers := w.Header()
		headers.Set("X-RateLimit-Limit", strconv.FormatInt(lctx.Limit, 10))
		headers.Set("X-RateLimit-Remaining", strconv.FormatInt(lctx.Remaining, 10))
		headers.Set("X-RateLimit-Reset", strconv.FormatInt(lctx.Reset, 10))

		if lctx.Reached {
			retryAfter := lctx.Reset - time.Now().Unix()
			if retryAfter < 0 {
				retryAfter = 0
			}
			headers.Set("Retry-After", strconv.FormatInt(retryAfter, 10))
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

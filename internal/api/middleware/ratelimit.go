package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/kiranshivaraju/jobstatus/internal/ai"
	"github.com/kiranshivaraju/jobstatus/internal/api/response"
	"github.com/kiranshivaraju/jobstatus/internal/cache"
)

const rateWindow = time.Minute

// RateLimit caps requests per client address in fixed one-minute windows.
type RateLimit struct {
	cache          cache.Cache
	requestsPerMin int
}

// NewRateLimit creates a new RateLimit middleware. A non-positive limit
// disables it.
func NewRateLimit(c cache.Cache, requestsPerMin int) *RateLimit {
	return &RateLimit{cache: c, requestsPerMin: requestsPerMin}
}

// Limit counts the request against its client address. Counter failures let
// the request through.
func (rl *RateLimit) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rl == nil || rl.requestsPerMin <= 0 {
			next.ServeHTTP(w, r)
			return
		}

		now := time.Now()
		window := now.Truncate(rateWindow)
		key := cache.RateLimitKey(clientAddr(r)) + ":" + strconv.FormatInt(window.Unix(), 10)
		count, err := rl.cache.IncrWithExpiry(r.Context(), key, rateWindow)
		if err != nil {
			slog.Warn("rate limit counter unavailable", "error", err)
			next.ServeHTTP(w, r)
			return
		}

		remaining := rl.requestsPerMin - int(count)
		if remaining < 0 {
			remaining = 0
		}
		reset := window.Add(rateWindow)

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.requestsPerMin))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(reset.Unix(), 10))

		if count > int64(rl.requestsPerMin) {
			retry := int(reset.Sub(now).Seconds()) + 1
			w.Header().Set("Retry-After", strconv.Itoa(retry))
			response.Error(w, http.StatusTooManyRequests, "RATE_LIMITED", ai.MsgRateLimited)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// clientAddr is the host part of RemoteAddr. Behind a trusted proxy chi's
// RealIP middleware has already rewritten RemoteAddr.
func clientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

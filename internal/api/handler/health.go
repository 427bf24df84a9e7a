package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/kiranshivaraju/jobstatus/internal/api/response"
)

// Pinger is anything whose connectivity can be checked.
type Pinger interface {
	Ping(ctx context.Context) error
}

const healthTimeout = 2 * time.Second

// NewHealthHandler returns GET /api/v1/health. It reports each named
// dependency and answers 503 when any is down. Nil pingers are skipped.
func NewHealthHandler(provider string, deps map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()

		checks := make(map[string]string, len(deps))
		healthy := true
		for name, p := range deps {
			if p == nil {
				continue
			}
			if err := p.Ping(ctx); err != nil {
				checks[name] = "down"
				healthy = false
				continue
			}
			checks[name] = "ok"
		}

		body := map[string]any{
			"status":   "ok",
			"provider": provider,
			"checks":   checks,
		}
		status := http.StatusOK
		if !healthy {
			body["status"] = "degraded"
			status = http.StatusServiceUnavailable
		}
		response.Raw(w, status, body)
	}
}

package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/kiranshivaraju/jobstatus/internal/ai"
	"github.com/kiranshivaraju/jobstatus/internal/api/response"
)

func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				if err == http.ErrAbortHandler {
					panic(err)
				}
				slog.Error("panic recovered",
					"error", err,
					"stack", string(debug.Stack()),
					"method", r.Method,
					"path", r.URL.Path,
					"request_id", GetRequestID(r.Context()),
				)
				response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", ai.MsgAnalysisFailed)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

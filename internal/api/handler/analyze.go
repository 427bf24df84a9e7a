package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/kiranshivaraju/jobstatus/internal/ai"
	mw "github.com/kiranshivaraju/jobstatus/internal/api/middleware"
	"github.com/kiranshivaraju/jobstatus/internal/api/response"
	"github.com/kiranshivaraju/jobstatus/pkg/models"
)

const maxAnalyzeBody = 8 << 10

// Analyzer is the orchestrator surface the analyze handler needs.
type Analyzer interface {
	Analyze(ctx context.Context, jobTitle string) (*ai.Outcome, error)
	OpenStream(ctx context.Context, jobTitle string) (*ai.StreamSession, error)
}

// analyzeBody mirrors models.AnalysisRequest but tolerates wrong JSON types so
// a non-string title is reported as missing rather than as a decode failure.
type analyzeBody struct {
	JobTitle  any `json:"jobTitle"`
	Streaming any `json:"streaming"`
	Stream    any `json:"stream"`
}

func (b analyzeBody) request() models.AnalysisRequest {
	title, _ := b.JobTitle.(string)
	streaming, _ := b.Streaming.(bool)
	stream, _ := b.Stream.(bool)
	return models.AnalysisRequest{JobTitle: title, Streaming: streaming, Stream: stream}
}

// NewAnalyzeHandler returns an http.HandlerFunc for POST /api/analyze. The
// response is a bare AnalysisResult, or an event stream when the body asks
// for streaming. X-Cache reports HIT or MISS on both.
func NewAnalyzeHandler(svc Analyzer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body analyzeBody
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxAnalyzeBody)).Decode(&body); err != nil {
			writeAnalysisError(w, &ai.ValidationError{Message: ai.MsgTitleRequired})
			return
		}
		req := body.request()

		if req.WantsStream() {
			streamAnalysis(w, r, svc, req.JobTitle)
			return
		}

		out, err := svc.Analyze(r.Context(), req.JobTitle)
		if err != nil {
			if r.Context().Err() != nil {
				slog.Info("client went away during analysis", "request_id", mw.GetRequestID(r.Context()))
				return
			}
			writeAnalysisError(w, err)
			return
		}

		w.Header().Set("X-Cache", string(out.Cache))
		response.Raw(w, http.StatusOK, out.Result)
	}
}

func streamAnalysis(w http.ResponseWriter, r *http.Request, svc Analyzer, title string) {
	sse, err := response.NewSSEWriter(w)
	if err != nil {
		slog.Error("event stream unavailable", "error", err)
		response.Error(w, http.StatusInternalServerError, "STREAMING_UNSUPPORTED", ai.MsgAnalysisFailed)
		return
	}

	session, err := svc.OpenStream(r.Context(), title)
	if err != nil {
		writeAnalysisError(w, err)
		return
	}

	w.Header().Set("X-Cache", string(session.CacheStatus()))
	sse.Start()

	err = session.Run(r.Context(), func(ev models.StreamEvent) error {
		return sse.Send(ev)
	})
	if err != nil {
		slog.Debug("analysis stream ended with error",
			"job_title", session.Title(),
			"request_id", mw.GetRequestID(r.Context()),
			"error", err,
		)
	}
}

// errorStatus maps an orchestrator failure onto an HTTP status and code.
func errorStatus(err error) (int, string) {
	switch ai.Classify(err) {
	case ai.KindInvalidInput:
		return http.StatusBadRequest, "INVALID_INPUT"
	case ai.KindNotAJob:
		return http.StatusBadRequest, "NOT_A_JOB"
	case ai.KindConfiguration:
		return http.StatusInternalServerError, "CONFIGURATION_ERROR"
	case ai.KindMalformedOutput:
		return http.StatusInternalServerError, "PARSE_FAILED"
	case ai.KindRateLimited:
		return http.StatusTooManyRequests, "RATE_LIMITED"
	case ai.KindOverloaded:
		return http.StatusServiceUnavailable, "UPSTREAM_OVERLOADED"
	case ai.KindTimeout:
		return http.StatusGatewayTimeout, "TIMEOUT"
	default:
		return http.StatusInternalServerError, "ANALYSIS_FAILED"
	}
}

func writeAnalysisError(w http.ResponseWriter, err error) {
	status, code := errorStatus(err)
	if errors.Is(err, ai.ErrNotConfigured) {
		slog.Error("analysis requested without provider credentials")
	}
	response.Error(w, status, code, ai.UserMessage(err))
}

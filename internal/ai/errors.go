package ai

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/kiranshivaraju/jobstatus/internal/ai/wire"
	"github.com/kiranshivaraju/jobstatus/internal/analysis"
	"github.com/kiranshivaraju/jobstatus/pkg/models"
)

var (
	ErrInvalidInput        = errors.New("invalid job title")
	ErrNotConfigured       = errors.New("ai provider credential not configured")
	ErrProviderUnavailable = wire.ErrUnavailable
	ErrInferenceTimeout    = errors.New("ai inference timeout")
	ErrInvalidResponse     = wire.ErrInvalidResponse
)

// Client-facing messages. Nothing else about a failure leaves the process.
const (
	MsgTitleRequired  = "Job title is required"
	MsgTitleLength    = "Please enter a valid job title (2-100 characters)."
	MsgNotConfigured  = "API key not configured"
	MsgParseFailed    = "Failed to parse response. Please try again."
	MsgRateLimited    = "Too many requests. Please wait a moment and try again."
	MsgOverloaded     = "Service is busy. Please try again in a few seconds."
	MsgTimeout        = "Analysis timed out. Please try again."
	MsgAnalysisFailed = "Failed to analyze job. Please try again."
)

// ValidationError rejects a job title before any model call.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return "invalid job title: " + e.Message }

func (e *ValidationError) Is(target error) bool { return target == ErrInvalidInput }

// Kind is the failure category surfaced at the API boundary.
type Kind int

const (
	KindUnknown Kind = iota
	KindInvalidInput
	KindNotAJob
	KindConfiguration
	KindMalformedOutput
	KindRateLimited
	KindOverloaded
	KindTimeout
)

var kindNames = map[Kind]string{
	KindUnknown:         "unknown",
	KindInvalidInput:    "invalid_input",
	KindNotAJob:         "not_a_job",
	KindConfiguration:   "configuration",
	KindMalformedOutput: "malformed_output",
	KindRateLimited:     "rate_limited",
	KindOverloaded:      "overloaded",
	KindTimeout:         "timeout",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// Classify maps any error from the analysis pipeline onto a Kind.
func Classify(err error) Kind {
	if err == nil {
		return KindUnknown
	}

	switch {
	case errors.Is(err, ErrInvalidInput):
		return KindInvalidInput
	case errors.Is(err, analysis.ErrNotAJob):
		return KindNotAJob
	case errors.Is(err, ErrNotConfigured):
		return KindConfiguration
	case errors.Is(err, analysis.ErrMalformedOutput):
		return KindMalformedOutput
	case errors.Is(err, ErrInferenceTimeout),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return KindTimeout
	}

	var pe *models.ProviderError
	if errors.As(err, &pe) {
		switch {
		case pe.StatusCode == http.StatusTooManyRequests || pe.Type == "rate_limit_error":
			return KindRateLimited
		case pe.StatusCode == 529 || pe.StatusCode == http.StatusServiceUnavailable || pe.Type == "overloaded_error":
			return KindOverloaded
		}
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "rate limit"):
		return KindRateLimited
	case strings.Contains(msg, "overloaded"):
		return KindOverloaded
	}
	return KindUnknown
}

// UserMessage returns the client-safe message for err. Validation and
// not-a-job failures carry their own text; everything else gets a fixed string.
func UserMessage(err error) string {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Message
	}
	var naj *analysis.NotAJobError
	if errors.As(err, &naj) {
		return naj.Message
	}

	switch Classify(err) {
	case KindInvalidInput:
		return MsgTitleLength
	case KindNotAJob:
		return analysis.DefaultNotAJobMessage
	case KindConfiguration:
		return MsgNotConfigured
	case KindMalformedOutput:
		return MsgParseFailed
	case KindRateLimited:
		return MsgRateLimited
	case KindOverloaded:
		return MsgOverloaded
	case KindTimeout:
		return MsgTimeout
	default:
		return MsgAnalysisFailed
	}
}

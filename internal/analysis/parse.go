// Package analysis turns raw model output into AnalysisResults: fence
// stripping, decoding, the not-a-job signal, range normalization, schema
// conformance checks and best-effort extraction from incomplete streams.
package analysis

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/kiranshivaraju/jobstatus/pkg/models"
)

// DefaultNotAJobMessage is used when the model rejects the input without a message.
const DefaultNotAJobMessage = "Please enter a valid job title."

const notAJobSignal = "not_a_job"

var (
	// ErrMalformedOutput means the model's reply could not be decoded as a result.
	ErrMalformedOutput = errors.New("malformed model output")
	// ErrNotAJob is matched by every *NotAJobError.
	ErrNotAJob = errors.New("input is not a job")
)

// NotAJobError carries the model's explanation for rejecting the input.
type NotAJobError struct {
	Message string
}

func (e *NotAJobError) Error() string {
	return "not a job: " + e.Message
}

func (e *NotAJobError) Is(target error) bool {
	return target == ErrNotAJob
}

type errorSignal struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// StripFences removes a leading ```json or ``` marker and a trailing ```
// marker, trimming whitespace around both.
func StripFences(text string) string {
	cleaned := strings.TrimSpace(text)
	switch {
	case strings.HasPrefix(cleaned, "```json"):
		cleaned = cleaned[len("```json"):]
	case strings.HasPrefix(cleaned, "```"):
		cleaned = cleaned[len("```"):]
	}
	cleaned = strings.TrimSuffix(cleaned, "```")
	return strings.TrimSpace(cleaned)
}

// Parse decodes a complete model reply. It returns a *NotAJobError when the
// model rejected the input and an error wrapping ErrMalformedOutput when the
// reply is not a JSON object. It never panics on arbitrary input.
func Parse(raw string) (*models.AnalysisResult, error) {
	cleaned := []byte(StripFences(raw))
	if len(cleaned) == 0 || cleaned[0] != '{' {
		return nil, fmt.Errorf("%w: reply is not a JSON object", ErrMalformedOutput)
	}

	var signal errorSignal
	if err := json.Unmarshal(cleaned, &signal); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}
	if signal.Error == notAJobSignal {
		msg := strings.TrimSpace(signal.Message)
		if msg == "" {
			msg = DefaultNotAJobMessage
		}
		return nil, &NotAJobError{Message: msg}
	}
	if signal.Error != "" {
		return nil, fmt.Errorf("%w: model returned error %q", ErrMalformedOutput, signal.Error)
	}

	var result models.AnalysisResult
	dec := json.NewDecoder(bytes.NewReader(cleaned))
	if err := dec.Decode(&result); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}
	if dec.More() {
		return nil, fmt.Errorf("%w: trailing data after object", ErrMalformedOutput)
	}
	return &result, nil
}

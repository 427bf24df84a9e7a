// Package models contains shared data models used across the Jobstatus codebase.
package models

import (
	"context"
	"fmt"
)

// LLMProvider is the core interface that all model integrations must implement.
// Callers depend on this interface, never on a concrete provider.
type LLMProvider interface {
	// Complete blocks until the model has produced its full reply.
	Complete(ctx context.Context, req CompletionRequest) (string, error)
	// Stream delivers text deltas to onDelta in output order on the calling
	// goroutine and returns the accumulated text. An error from onDelta aborts
	// the stream and is returned wrapped.
	Stream(ctx context.Context, req CompletionRequest, onDelta func(string) error) (string, error)
	// Name returns the provider identifier (e.g., "anthropic", "openai").
	Name() string
}

// CompletionRequest is a single user-role message with a token budget.
type CompletionRequest struct {
	Model     string
	MaxTokens int
	Prompt    string
}

// ProviderError is returned for a non-success reply from an upstream model API.
type ProviderError struct {
	Provider   string
	StatusCode int
	Type       string
	Message    string
}

func (e *ProviderError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("%s: status %d (%s): %s", e.Provider, e.StatusCode, e.Type, e.Message)
	}
	return fmt.Sprintf("%s: status %d: %s", e.Provider, e.StatusCode, e.Message)
}

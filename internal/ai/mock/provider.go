package mock

import (
	"context"
	"strings"
	"sync/atomic"

	"github.com/kiranshivaraju/jobstatus/pkg/models"
)

// SampleResult is the canned reply of NewMockProvider.
const SampleResult = `{
  "tasks": [
    {"name": "Install and repair wiring", "timePercent": 55, "automationRisk": {"low": 3, "mid": 6, "high": 12}, "aiTools": ["Procore AI"], "reason": "Physical work in unpredictable sites."},
    {"name": "Read blueprints and plan jobs", "timePercent": 25, "automationRisk": {"low": 10, "mid": 20, "high": 35}, "aiTools": ["Autodesk AI"], "reason": "Plan reading is partly automatable."},
    {"name": "Quote and invoice customers", "timePercent": 20, "automationRisk": {"low": 20, "mid": 35, "high": 55}, "aiTools": ["QuickBooks AI"], "reason": "Back-office paperwork is routine."}
  ],
  "overallScore": {"low": 8, "mid": 13, "high": 23},
  "alreadyHappening": [
    {"example": "ServiceTitan", "detail": "Automates dispatch and quoting for trade contractors."}
  ],
  "timeline": {"threeYear": 8, "fiveYear": 13, "sevenYear": 17},
  "metrics": {
    "routineAutomation": {"score": 25, "description": "Paperwork is being automated."},
    "complexAutomation": {"score": 5, "description": "Field work stays human."},
    "positionDemand": {"score": 30, "description": "Electrification drives demand."},
    "wagePressure": {"score": 10, "description": "Wages remain strong."},
    "reskillUrgency": {"score": 15, "description": "Low urgency."}
  },
  "summary": "Electricians face low automation risk because the work is physical and varied.",
  "tips": ["Learn EV charger installs", "Get solar certified", "Use digital estimating tools", "Specialize in smart homes"]
}`

// MockProvider satisfies models.LLMProvider for testing. Calls counts every
// Complete and Stream invocation.
type MockProvider struct {
	Name_        string
	CompleteFunc func(ctx context.Context, req models.CompletionRequest) (string, error)
	StreamFunc   func(ctx context.Context, req models.CompletionRequest, onDelta func(string) error) (string, error)
	calls        atomic.Int64
}

func (m *MockProvider) Name() string { return m.Name_ }

// Calls reports how many completions have been requested.
func (m *MockProvider) Calls() int { return int(m.calls.Load()) }

func (m *MockProvider) Complete(ctx context.Context, req models.CompletionRequest) (string, error) {
	m.calls.Add(1)
	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, req)
	}
	return "", nil
}

func (m *MockProvider) Stream(ctx context.Context, req models.CompletionRequest, onDelta func(string) error) (string, error) {
	m.calls.Add(1)
	if m.StreamFunc != nil {
		return m.StreamFunc(ctx, req, onDelta)
	}
	return "", nil
}

// NewMockProvider returns a MockProvider that answers every request with
// SampleResult, streamed as one delta per line.
func NewMockProvider() *MockProvider {
	return NewScriptedProvider(splitLines(SampleResult)...)
}

// NewScriptedProvider returns a MockProvider whose reply is the concatenation
// of deltas, delivered one at a time when streamed.
func NewScriptedProvider(deltas ...string) *MockProvider {
	full := strings.Join(deltas, "")
	return &MockProvider{
		Name_: "mock",
		CompleteFunc: func(_ context.Context, _ models.CompletionRequest) (string, error) {
			return full, nil
		},
		StreamFunc: func(ctx context.Context, _ models.CompletionRequest, onDelta func(string) error) (string, error) {
			var acc strings.Builder
			for _, d := range deltas {
				if err := ctx.Err(); err != nil {
					return acc.String(), err
				}
				acc.WriteString(d)
				if onDelta != nil {
					if err := onDelta(d); err != nil {
						return acc.String(), err
					}
				}
			}
			return acc.String(), nil
		},
	}
}

// NewFailingProvider returns a MockProvider that always returns the given error.
func NewFailingProvider(err error) *MockProvider {
	return &MockProvider{
		Name_: "mock-failing",
		CompleteFunc: func(_ context.Context, _ models.CompletionRequest) (string, error) {
			return "", err
		},
		StreamFunc: func(_ context.Context, _ models.CompletionRequest, _ func(string) error) (string, error) {
			return "", err
		},
	}
}

// NewTimeoutProvider returns a MockProvider that blocks until context is cancelled.
func NewTimeoutProvider() *MockProvider {
	return &MockProvider{
		Name_: "mock-timeout",
		CompleteFunc: func(ctx context.Context, _ models.CompletionRequest) (string, error) {
			<-ctx.Done()
			return "", ctx.Err()
		},
		StreamFunc: func(ctx context.Context, _ models.CompletionRequest, _ func(string) error) (string, error) {
			<-ctx.Done()
			return "", ctx.Err()
		},
	}
}

func splitLines(s string) []string {
	var out []string
	for _, line := range strings.SplitAfter(s, "\n") {
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}

// Compile-time check that MockProvider implements LLMProvider.
var _ models.LLMProvider = (*MockProvider)(nil)

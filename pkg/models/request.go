package models

// AnalysisRequest is the inbound body of POST /api/analyze. Stream is the
// field name older clients send; either flag selects the event-stream transport.
type AnalysisRequest struct {
	JobTitle  string `json:"jobTitle" validate:"required,min=2,max=100"`
	Streaming bool   `json:"streaming,omitempty"`
	Stream    bool   `json:"stream,omitempty"`
}

// WantsStream reports whether the client asked for incremental delivery.
func (r AnalysisRequest) WantsStream() bool {
	return r.Streaming || r.Stream
}

// Stream event types.
const (
	EventChunk = "chunk"
	EventDone  = "done"
	EventError = "error"
)

// StreamEvent is one server-pushed message on the streaming transport. A
// stream is zero or more chunk events followed by exactly one done or error.
type StreamEvent struct {
	Type  string          `json:"type"`
	Text  string          `json:"text,omitempty"`
	Data  *AnalysisResult `json:"data,omitempty"`
	Error string          `json:"error,omitempty"`
}

// Terminal reports whether the event ends the stream.
func (e StreamEvent) Terminal() bool {
	return e.Type == EventDone || e.Type == EventError
}

// ChunkEvent wraps a raw model text delta.
func ChunkEvent(text string) StreamEvent {
	return StreamEvent{Type: EventChunk, Text: text}
}

// DoneEvent carries the final parsed result.
func DoneEvent(result *AnalysisResult) StreamEvent {
	return StreamEvent{Type: EventDone, Data: result}
}

// ErrorEvent carries a user-facing failure message.
func ErrorEvent(message string) StreamEvent {
	return StreamEvent{Type: EventError, Error: message}
}

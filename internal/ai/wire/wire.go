// Package wire holds the HTTP plumbing shared by the hosted-model providers:
// JSON POSTs, upstream error decoding and server-sent-event framing.
package wire

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/kiranshivaraju/jobstatus/pkg/models"
)

var (
	// ErrUnavailable means the provider could not be reached at all.
	ErrUnavailable = errors.New("ai provider unavailable")
	// ErrInvalidResponse means a 200 reply carried nothing usable.
	ErrInvalidResponse = errors.New("ai provider returned invalid response")
)

// maxLine bounds a single SSE or NDJSON line.
const maxLine = 1 << 20

// maxErrorBody bounds how much of a failed reply is read for diagnostics.
const maxErrorBody = 64 << 10

// PostJSON marshals body and POSTs it to url with the given headers. Any
// non-200 reply is drained, closed and returned as a *models.ProviderError.
func PostJSON(ctx context.Context, client *http.Client, provider, url string, headers map[string]string, body any) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal %s request: %w", provider, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create %s request: %w", provider, err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s request: %w: %w", provider, ErrUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, ErrorFromResponse(provider, resp)
	}
	return resp, nil
}

// ErrorFromResponse builds a ProviderError from a failed reply. It understands
// the {"error": {"type", "message"}} and {"error": "message"} body shapes.
func ErrorFromResponse(provider string, resp *http.Response) *models.ProviderError {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	pe := &models.ProviderError{Provider: provider, StatusCode: resp.StatusCode}

	var structured struct {
		Error struct {
			Type    string `json:"type"`
			Message string `json:"message"`
		} `json:"error"`
	}
	var flat struct {
		Error string `json:"error"`
	}
	switch {
	case json.Unmarshal(raw, &structured) == nil && structured.Error.Message != "":
		pe.Type = structured.Error.Type
		pe.Message = structured.Error.Message
	case json.Unmarshal(raw, &flat) == nil && flat.Error != "":
		pe.Message = flat.Error
	default:
		pe.Message = strings.TrimSpace(string(raw))
	}
	if pe.Message == "" {
		pe.Message = http.StatusText(resp.StatusCode)
	}
	return pe
}

// Event is one server-sent event.
type Event struct {
	Name string
	Data string
}

// EventReader splits a text/event-stream body into events.
type EventReader struct {
	sc *bufio.Scanner
}

func NewEventReader(r io.Reader) *EventReader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64<<10), maxLine)
	return &EventReader{sc: sc}
}

// Next returns the next event, or io.EOF once the body is exhausted.
func (r *EventReader) Next() (Event, error) {
	var (
		ev      Event
		data    []string
		pending bool
	)
	for r.sc.Scan() {
		line := r.sc.Text()
		if line == "" {
			if pending {
				ev.Data = strings.Join(data, "\n")
				return ev, nil
			}
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")
		switch field {
		case "event":
			ev.Name = value
			pending = true
		case "data":
			data = append(data, value)
			pending = true
		}
	}
	if err := r.sc.Err(); err != nil {
		return Event{}, fmt.Errorf("reading event stream: %w", err)
	}
	if pending {
		ev.Data = strings.Join(data, "\n")
		return ev, nil
	}
	return Event{}, io.EOF
}

// LineReader yields non-empty lines of a newline-delimited JSON body.
type LineReader struct {
	sc *bufio.Scanner
}

func NewLineReader(r io.Reader) *LineReader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64<<10), maxLine)
	return &LineReader{sc: sc}
}

// Next returns the next non-blank line, or io.EOF.
func (r *LineReader) Next() ([]byte, error) {
	for r.sc.Scan() {
		line := bytes.TrimSpace(r.sc.Bytes())
		if len(line) > 0 {
			return line, nil
		}
	}
	if err := r.sc.Err(); err != nil {
		return nil, fmt.Errorf("reading lines: %w", err)
	}
	return nil, io.EOF
}

// Deliver passes a delta to onDelta and appends it to acc, wrapping a
// consumer error so callers can tell it apart from upstream failures.
func Deliver(acc *strings.Builder, delta string, onDelta func(string) error) error {
	if delta == "" {
		return nil
	}
	acc.WriteString(delta)
	if onDelta == nil {
		return nil
	}
	if err := onDelta(delta); err != nil {
		return &ConsumerError{Err: err}
	}
	return nil
}

// ConsumerError wraps an error returned by a stream's onDelta callback.
type ConsumerError struct {
	Err error
}

func (e *ConsumerError) Error() string { return "stream consumer: " + e.Err.Error() }

func (e *ConsumerError) Unwrap() error { return e.Err }

// IsConsumerError reports whether err originated in an onDelta callback.
func IsConsumerError(err error) bool {
	var ce *ConsumerError
	return errors.As(err, &ce)
}

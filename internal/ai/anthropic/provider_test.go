package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kiranshivaraju/jobstatus/internal/ai/wire"
	"github.com/kiranshivaraju/jobstatus/internal/config"
	"github.com/kiranshivaraju/jobstatus/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProvider(t *testing.T, h http.HandlerFunc) *Provider {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewProvider(config.AnthropicConfig{
		APIKey:  "test-key",
		Model:   "claude-sonnet-4-20250514",
		BaseURL: srv.URL,
	}, srv.Client())
}

func writeSSE(w http.ResponseWriter, event, data string) {
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
	w.(http.Flusher).Flush()
}

func TestComplete_SendsMessagesRequest(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		assert.Equal(t, "2023-06-01", r.Header.Get("anthropic-version"))

		var body messagesRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "claude-sonnet-4-20250514", body.Model)
		assert.Equal(t, 3000, body.MaxTokens)
		assert.False(t, body.Stream)
		require.Len(t, body.Messages, 1)
		assert.Equal(t, "user", body.Messages[0].Role)
		assert.Equal(t, "the prompt", body.Messages[0].Content)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"content":[{"type":"text","text":"{\"summary\":"},{"type":"text","text":"\"x\"}"}],"stop_reason":"end_turn"}`))
	})

	out, err := p.Complete(context.Background(), models.CompletionRequest{MaxTokens: 3000, Prompt: "the prompt"})
	require.NoError(t, err)
	assert.Equal(t, `{"summary":"x"}`, out)
}

func TestComplete_EmptyContent(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"content":[]}`))
	})
	_, err := p.Complete(context.Background(), models.CompletionRequest{Prompt: "p"})
	assert.ErrorIs(t, err, wire.ErrInvalidResponse)
}

func TestComplete_UpstreamErrors(t *testing.T) {
	tests := []struct {
		status int
		body   string
		typ    string
	}{
		{429, `{"type":"error","error":{"type":"rate_limit_error","message":"slow down"}}`, "rate_limit_error"},
		{529, `{"type":"error","error":{"type":"overloaded_error","message":"Overloaded"}}`, "overloaded_error"},
	}
	for _, tt := range tests {
		t.Run(tt.typ, func(t *testing.T) {
			p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})
			_, err := p.Complete(context.Background(), models.CompletionRequest{Prompt: "p"})

			var pe *models.ProviderError
			require.True(t, errors.As(err, &pe))
			assert.Equal(t, tt.status, pe.StatusCode)
			assert.Equal(t, tt.typ, pe.Type)
		})
	}
}

func TestStream_DeliversDeltasInOrder(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		var body messagesRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.True(t, body.Stream)

		w.Header().Set("Content-Type", "text/event-stream")
		writeSSE(w, "message_start", `{"type":"message_start","message":{"id":"msg_1"}}`)
		writeSSE(w, "content_block_start", `{"type":"content_block_start","index":0,"content_block":{"type":"text","text":""}}`)
		writeSSE(w, "ping", `{"type":"ping"}`)
		for _, d := range []string{"A", "B", "C"} {
			writeSSE(w, "content_block_delta", `{"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"`+d+`"}}`)
		}
		writeSSE(w, "content_block_stop", `{"type":"content_block_stop","index":0}`)
		writeSSE(w, "message_stop", `{"type":"message_stop"}`)
	})

	var got []string
	out, err := p.Stream(context.Background(), models.CompletionRequest{Prompt: "p"}, func(d string) error {
		got = append(got, d)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C"}, got)
	assert.Equal(t, "ABC", out)
}

func TestStream_ErrorEvent(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		writeSSE(w, "content_block_delta", `{"type":"content_block_delta","delta":{"type":"text_delta","text":"{"}}`)
		writeSSE(w, "error", `{"type":"error","error":{"type":"overloaded_error","message":"Overloaded"}}`)
	})

	out, err := p.Stream(context.Background(), models.CompletionRequest{Prompt: "p"}, nil)
	var pe *models.ProviderError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, 529, pe.StatusCode)
	assert.Equal(t, "overloaded_error", pe.Type)
	assert.Equal(t, "{", out)
}

func TestStream_ConsumerErrorStopsStream(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		for _, d := range []string{"A", "B", "C"} {
			writeSSE(w, "content_block_delta", `{"type":"content_block_delta","delta":{"type":"text_delta","text":"`+d+`"}}`)
		}
	})

	gone := errors.New("client gone")
	calls := 0
	_, err := p.Stream(context.Background(), models.CompletionRequest{Prompt: "p"}, func(string) error {
		calls++
		return gone
	})
	assert.ErrorIs(t, err, gone)
	assert.True(t, wire.IsConsumerError(err))
	assert.Equal(t, 1, calls)
}

func TestStream_StatusForErrorType(t *testing.T) {
	assert.Equal(t, 429, statusForErrorType("rate_limit_error"))
	assert.Equal(t, 529, statusForErrorType("overloaded_error"))
	assert.Equal(t, 500, statusForErrorType("api_error"))
}

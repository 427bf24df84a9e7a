package wire

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kiranshivaraju/jobstatus/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventReader(t *testing.T) {
	body := ": keep-alive\n\n" +
		"event: message_start\ndata: {\"a\":1}\n\n" +
		"data: line one\ndata: line two\n\n" +
		"data: [DONE]"

	r := NewEventReader(strings.NewReader(body))

	ev, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, Event{Name: "message_start", Data: `{"a":1}`}, ev)

	ev, err = r.Next()
	require.NoError(t, err)
	assert.Equal(t, Event{Data: "line one\nline two"}, ev)

	ev, err = r.Next()
	require.NoError(t, err)
	assert.Equal(t, Event{Data: "[DONE]"}, ev, "unterminated final event is still delivered")

	_, err = r.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestLineReader(t *testing.T) {
	r := NewLineReader(strings.NewReader("{\"a\":1}\n\n  \n{\"b\":2}"))

	line, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(line))

	line, err = r.Next()
	require.NoError(t, err)
	assert.Equal(t, `{"b":2}`, string(line))

	_, err = r.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestPostJSON_SendsHeadersAndBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "secret", r.Header.Get("x-api-key"))
		b, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"model":"m"}`, string(b))
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	resp, err := PostJSON(context.Background(), srv.Client(), "test", srv.URL, map[string]string{"x-api-key": "secret"}, map[string]string{"model": "m"})
	require.NoError(t, err)
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "ok", string(b))
}

func TestPostJSON_ErrorShapes(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantType string
		wantMsg  string
	}{
		{"structured", 529, `{"type":"error","error":{"type":"overloaded_error","message":"Overloaded"}}`, "overloaded_error", "Overloaded"},
		{"flat", 404, `{"error":"model 'x' not found"}`, "", "model 'x' not found"},
		{"plain text", 502, "bad gateway\n", "", "bad gateway"},
		{"empty", 429, "", "", "Too Many Requests"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := PostJSON(context.Background(), srv.Client(), "test", srv.URL, nil, struct{}{})
			var pe *models.ProviderError
			require.True(t, errors.As(err, &pe))
			assert.Equal(t, "test", pe.Provider)
			assert.Equal(t, tt.status, pe.StatusCode)
			assert.Equal(t, tt.wantType, pe.Type)
			assert.Equal(t, tt.wantMsg, pe.Message)
		})
	}
}

func TestDeliver(t *testing.T) {
	var acc strings.Builder
	var seen []string
	collect := func(s string) error { seen = append(seen, s); return nil }

	require.NoError(t, Deliver(&acc, "A", collect))
	require.NoError(t, Deliver(&acc, "", collect))
	require.NoError(t, Deliver(&acc, "B", nil))
	assert.Equal(t, "AB", acc.String())
	assert.Equal(t, []string{"A"}, seen)

	boom := errors.New("client gone")
	err := Deliver(&acc, "C", func(string) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.True(t, IsConsumerError(err))
	assert.False(t, IsConsumerError(boom))
}

package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/kiranshivaraju/jobstatus/internal/ai/wire"
	"github.com/kiranshivaraju/jobstatus/internal/config"
	"github.com/kiranshivaraju/jobstatus/pkg/models"
)

const apiVersion = "2023-06-01"

// Provider implements models.LLMProvider against the Anthropic Messages API.
type Provider struct {
	cfg    config.AnthropicConfig
	client *http.Client
}

// NewProvider returns a Provider. A nil client means http.DefaultClient;
// deadlines come from the request context.
func NewProvider(cfg config.AnthropicConfig, client *http.Client) *Provider {
	if client == nil {
		client = http.DefaultClient
	}
	return &Provider{cfg: cfg, client: client}
}

func (p *Provider) Name() string { return "anthropic" }

type messagesRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	Messages  []message `json:"messages"`
	Stream    bool      `json:"stream,omitempty"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
}

type streamEvent struct {
	Type  string `json:"type"`
	Delta struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"delta"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func (p *Provider) Complete(ctx context.Context, req models.CompletionRequest) (string, error) {
	resp, err := p.post(ctx, req, false)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var mr messagesResponse
	if err := json.NewDecoder(resp.Body).Decode(&mr); err != nil {
		return "", fmt.Errorf("decode anthropic response: %w", err)
	}

	var sb strings.Builder
	for _, block := range mr.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("anthropic: %w: no text content", wire.ErrInvalidResponse)
	}
	return sb.String(), nil
}

func (p *Provider) Stream(ctx context.Context, req models.CompletionRequest, onDelta func(string) error) (string, error) {
	resp, err := p.post(ctx, req, true)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var acc strings.Builder
	events := wire.NewEventReader(resp.Body)
	for {
		ev, err := events.Next()
		if errors.Is(err, io.EOF) {
			return acc.String(), nil
		}
		if err != nil {
			return acc.String(), err
		}

		var se streamEvent
		if err := json.Unmarshal([]byte(ev.Data), &se); err != nil {
			continue
		}
		switch se.Type {
		case "content_block_delta":
			if se.Delta.Type != "text_delta" {
				continue
			}
			if err := wire.Deliver(&acc, se.Delta.Text, onDelta); err != nil {
				return acc.String(), err
			}
		case "message_stop":
			return acc.String(), nil
		case "error":
			pe := &models.ProviderError{Provider: p.Name(), StatusCode: http.StatusInternalServerError}
			if se.Error != nil {
				pe.Type = se.Error.Type
				pe.Message = se.Error.Message
				pe.StatusCode = statusForErrorType(se.Error.Type)
			}
			return acc.String(), pe
		}
	}
}

func (p *Provider) post(ctx context.Context, req models.CompletionRequest, stream bool) (*http.Response, error) {
	model := req.Model
	if model == "" {
		model = p.cfg.Model
	}
	body := messagesRequest{
		Model:     model,
		MaxTokens: req.MaxTokens,
		Messages:  []message{{Role: "user", Content: req.Prompt}},
		Stream:    stream,
	}
	headers := map[string]string{
		"x-api-key":         p.cfg.APIKey,
		"anthropic-version": apiVersion,
	}
	url := strings.TrimRight(p.cfg.BaseURL, "/") + "/v1/messages"
	return wire.PostJSON(ctx, p.client, p.Name(), url, headers, body)
}

// statusForErrorType maps a mid-stream error event to the HTTP status the
// same failure would have produced before the stream started.
func statusForErrorType(t string) int {
	switch t {
	case "overloaded_error":
		return 529
	case "rate_limit_error":
		return http.StatusTooManyRequests
	case "invalid_request_error":
		return http.StatusBadRequest
	case "authentication_error":
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

var _ models.LLMProvider = (*Provider)(nil)

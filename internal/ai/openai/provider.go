package openai

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

// Provider implements models.LLMProvider against an OpenAI-compatible
// /chat/completions endpoint.
type Provider struct {
	name   string
	cfg    config.OpenAIConfig
	client *http.Client
}

// NewProvider returns a Provider for api.openai.com or any compatible server.
// A nil client means http.DefaultClient.
func NewProvider(cfg config.OpenAIConfig, client *http.Client) *Provider {
	return NewNamedProvider("openai", cfg, client)
}

// NewNamedProvider is NewProvider with a custom name for logs and errors, for
// servers that speak the same protocol.
func NewNamedProvider(name string, cfg config.OpenAIConfig, client *http.Client) *Provider {
	if client == nil {
		client = http.DefaultClient
	}
	return &Provider{name: name, cfg: cfg, client: client}
}

func (p *Provider) Name() string { return p.name }

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
	Stream      bool          `json:"stream,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type chatChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Type    string `json:"type"`
		Code    any    `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (p *Provider) Complete(ctx context.Context, req models.CompletionRequest) (string, error) {
	resp, err := p.post(ctx, req, false)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var cr chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return "", fmt.Errorf("decode %s response: %w", p.name, err)
	}
	if len(cr.Choices) == 0 {
		return "", fmt.Errorf("%s: %w: no choices", p.name, wire.ErrInvalidResponse)
	}
	return cr.Choices[0].Message.Content, nil
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
		if strings.TrimSpace(ev.Data) == "[DONE]" {
			return acc.String(), nil
		}

		var chunk chatChunk
		if err := json.Unmarshal([]byte(ev.Data), &chunk); err != nil {
			continue
		}
		if chunk.Error != nil {
			status := http.StatusInternalServerError
			if chunk.Error.Type == "rate_limit_error" || chunk.Error.Code == "rate_limit_exceeded" {
				status = http.StatusTooManyRequests
			}
			return acc.String(), &models.ProviderError{
				Provider:   p.name,
				StatusCode: status,
				Type:       chunk.Error.Type,
				Message:    chunk.Error.Message,
			}
		}
		for _, choice := range chunk.Choices {
			if err := wire.Deliver(&acc, choice.Delta.Content, onDelta); err != nil {
				return acc.String(), err
			}
		}
	}
}

func (p *Provider) post(ctx context.Context, req models.CompletionRequest, stream bool) (*http.Response, error) {
	model := req.Model
	if model == "" {
		model = p.cfg.Model
	}
	body := chatRequest{
		Model:     model,
		Messages:  []chatMessage{{Role: "user", Content: req.Prompt}},
		MaxTokens: req.MaxTokens,
		Stream:    stream,
	}
	var headers map[string]string
	if p.cfg.APIKey != "" {
		headers = map[string]string{"Authorization": "Bearer " + p.cfg.APIKey}
	}
	url := strings.TrimRight(p.cfg.BaseURL, "/") + "/chat/completions"
	return wire.PostJSON(ctx, p.client, p.name, url, headers, body)
}

var _ models.LLMProvider = (*Provider)(nil)

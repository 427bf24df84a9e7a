package ollama

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

// Provider implements models.LLMProvider using a local Ollama server.
type Provider struct {
	cfg    config.OllamaConfig
	client *http.Client
}

func NewProvider(cfg config.OllamaConfig, client *http.Client) *Provider {
	if client == nil {
		client = http.DefaultClient
	}
	return &Provider{cfg: cfg, client: client}
}

func (p *Provider) Name() string { return "ollama" }

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	Options  chatOptions   `json:"options"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatOptions struct {
	NumPredict int `json:"num_predict,omitempty"`
}

// chatResponse is both the blocking reply and one NDJSON stream line.
type chatResponse struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
	Done  bool   `json:"done"`
	Error string `json:"error"`
}

func (p *Provider) Complete(ctx context.Context, req models.CompletionRequest) (string, error) {
	resp, err := p.post(ctx, req, false)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var cr chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return "", fmt.Errorf("decode ollama response: %w", err)
	}
	if cr.Error != "" {
		return "", &models.ProviderError{Provider: p.Name(), StatusCode: http.StatusInternalServerError, Message: cr.Error}
	}
	if cr.Message.Content == "" {
		return "", fmt.Errorf("ollama: %w: empty message", wire.ErrInvalidResponse)
	}
	return cr.Message.Content, nil
}

func (p *Provider) Stream(ctx context.Context, req models.CompletionRequest, onDelta func(string) error) (string, error) {
	resp, err := p.post(ctx, req, true)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var acc strings.Builder
	lines := wire.NewLineReader(resp.Body)
	for {
		line, err := lines.Next()
		if errors.Is(err, io.EOF) {
			return acc.String(), nil
		}
		if err != nil {
			return acc.String(), err
		}

		var cr chatResponse
		if err := json.Unmarshal(line, &cr); err != nil {
			continue
		}
		if cr.Error != "" {
			return acc.String(), &models.ProviderError{Provider: p.Name(), StatusCode: http.StatusInternalServerError, Message: cr.Error}
		}
		if err := wire.Deliver(&acc, cr.Message.Content, onDelta); err != nil {
			return acc.String(), err
		}
		if cr.Done {
			return acc.String(), nil
		}
	}
}

func (p *Provider) post(ctx context.Context, req models.CompletionRequest, stream bool) (*http.Response, error) {
	model := req.Model
	if model == "" {
		model = p.cfg.Model
	}
	body := chatRequest{
		Model:    model,
		Messages: []chatMessage{{Role: "user", Content: req.Prompt}},
		Stream:   stream,
		Options:  chatOptions{NumPredict: req.MaxTokens},
	}
	url := strings.TrimRight(p.cfg.BaseURL, "/") + "/api/chat"
	return wire.PostJSON(ctx, p.client, p.Name(), url, nil, body)
}

var _ models.LLMProvider = (*Provider)(nil)

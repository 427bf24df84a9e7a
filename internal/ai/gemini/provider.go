package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/googleapis/gax-go/v2/apierror"
	"github.com/kiranshivaraju/jobstatus/internal/ai/wire"
	"github.com/kiranshivaraju/jobstatus/internal/config"
	"github.com/kiranshivaraju/jobstatus/pkg/models"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
)

// Provider implements models.LLMProvider using Google Gemini.
type Provider struct {
	client *genai.Client
	model  string
}

// NewProvider creates a Gemini client. Close releases it.
func NewProvider(ctx context.Context, cfg config.GeminiConfig, opts ...option.ClientOption) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini: API key is required")
	}
	opts = append([]option.ClientOption{option.WithAPIKey(cfg.APIKey)}, opts...)
	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &Provider{client: client, model: cfg.Model}, nil
}

func (p *Provider) Name() string { return "gemini" }

func (p *Provider) Close() error {
	return p.client.Close()
}

func (p *Provider) generativeModel(req models.CompletionRequest) *genai.GenerativeModel {
	name := req.Model
	if name == "" {
		name = p.model
	}
	m := p.client.GenerativeModel(name)
	if req.MaxTokens > 0 {
		m.SetMaxOutputTokens(int32(req.MaxTokens))
	}
	m.ResponseMIMEType = "application/json"
	return m
}

func (p *Provider) Complete(ctx context.Context, req models.CompletionRequest) (string, error) {
	resp, err := p.generativeModel(req).GenerateContent(ctx, genai.Text(req.Prompt))
	if err != nil {
		return "", classifyError(err)
	}
	text := responseText(resp)
	if text == "" {
		return "", fmt.Errorf("gemini: %w: no text parts", wire.ErrInvalidResponse)
	}
	return text, nil
}

func (p *Provider) Stream(ctx context.Context, req models.CompletionRequest, onDelta func(string) error) (string, error) {
	iter := p.generativeModel(req).GenerateContentStream(ctx, genai.Text(req.Prompt))

	var acc strings.Builder
	for {
		resp, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			return acc.String(), nil
		}
		if err != nil {
			return acc.String(), classifyError(err)
		}
		if err := wire.Deliver(&acc, responseText(resp), onDelta); err != nil {
			return acc.String(), err
		}
	}
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	c := resp.Candidates[0]
	if c.Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range c.Content.Parts {
		if t, ok := part.(genai.Text); ok {
			sb.WriteString(string(t))
		}
	}
	return sb.String()
}

// classifyError turns Google API failures into ProviderErrors with an HTTP
// status so rate limiting and overload are recognized like other providers.
func classifyError(err error) error {
	var ge *googleapi.Error
	if errors.As(err, &ge) {
		return &models.ProviderError{Provider: "gemini", StatusCode: ge.Code, Message: ge.Message}
	}

	var ae *apierror.APIError
	if errors.As(err, &ae) {
		status := ae.HTTPCode()
		if status <= 0 && ae.GRPCStatus() != nil {
			status = statusForCode(ae.GRPCStatus().Code())
		}
		if status > 0 {
			return &models.ProviderError{Provider: "gemini", StatusCode: status, Type: ae.Reason(), Message: ae.Error()}
		}
	}

	var blocked *genai.BlockedError
	if errors.As(err, &blocked) {
		return fmt.Errorf("gemini: %w: %v", wire.ErrInvalidResponse, err)
	}
	return fmt.Errorf("gemini: %w", err)
}

func statusForCode(c codes.Code) int {
	switch c {
	case codes.ResourceExhausted:
		return http.StatusTooManyRequests
	case codes.Unavailable:
		return http.StatusServiceUnavailable
	case codes.DeadlineExceeded:
		return http.StatusGatewayTimeout
	case codes.InvalidArgument:
		return http.StatusBadRequest
	case codes.Unauthenticated:
		return http.StatusUnauthorized
	case codes.PermissionDenied:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

var _ models.LLMProvider = (*Provider)(nil)

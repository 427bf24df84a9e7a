package ai

import (
	"context"
	"fmt"

	"github.com/kiranshivaraju/jobstatus/internal/ai/anthropic"
	"github.com/kiranshivaraju/jobstatus/internal/ai/gemini"
	"github.com/kiranshivaraju/jobstatus/internal/ai/mock"
	"github.com/kiranshivaraju/jobstatus/internal/ai/ollama"
	"github.com/kiranshivaraju/jobstatus/internal/ai/openai"
	"github.com/kiranshivaraju/jobstatus/internal/ai/vllm"
	"github.com/kiranshivaraju/jobstatus/internal/config"
	"github.com/kiranshivaraju/jobstatus/pkg/models"
)

// NewProvider constructs the appropriate AI provider based on config.
// Called once at server startup. It returns ErrNotConfigured when the selected
// provider needs a credential that is missing.
func NewProvider(ctx context.Context, cfg config.AIConfig) (models.LLMProvider, error) {
	if !cfg.Credentialed() {
		return nil, fmt.Errorf("%s: %w", cfg.Provider, ErrNotConfigured)
	}

	switch cfg.Provider {
	case "ollama":
		return ollama.NewProvider(cfg.Ollama, nil), nil
	case "vllm":
		return vllm.NewProvider(cfg.VLLM, nil), nil
	case "openai":
		return openai.NewProvider(cfg.OpenAI, nil), nil
	case "anthropic":
		return anthropic.NewProvider(cfg.Anthropic, nil), nil
	case "gemini":
		return gemini.NewProvider(ctx, cfg.Gemini)
	case "mock":
		return mock.NewMockProvider(), nil
	default:
		return nil, fmt.Errorf("unknown AI provider %q: must be one of anthropic, openai, vllm, ollama, gemini, mock", cfg.Provider)
	}
}

package vllm

import (
	"net/http"
	"strings"

	"github.com/kiranshivaraju/jobstatus/internal/ai/openai"
	"github.com/kiranshivaraju/jobstatus/internal/config"
	"github.com/kiranshivaraju/jobstatus/pkg/models"
)

// NewProvider returns a provider for a self-hosted vLLM server. vLLM exposes
// the OpenAI chat completions protocol under /v1 and needs no key.
func NewProvider(cfg config.VLLMConfig, client *http.Client) *openai.Provider {
	return openai.NewNamedProvider("vllm", config.OpenAIConfig{
		Model:   cfg.Model,
		BaseURL: strings.TrimRight(cfg.BaseURL, "/") + "/v1",
	}, client)
}

var _ models.LLMProvider = (*openai.Provider)(nil)

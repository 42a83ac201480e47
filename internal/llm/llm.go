package llm

import (
	"context"
	"fmt"

	"github.com/TheBrokenPipe/minutes-in-seconds/internal/config"
)

// LLM is the interface every language model client implements. Generate sends
// one system-prompted exchange and returns the raw text response.
type LLM interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// NewClient is a factory that creates an LLM client from the configuration.
func NewClient(ctx context.Context, cfg config.LLMConfig) (LLM, error) {
	switch cfg.Provider {
	case "gemini":
		return NewGemini(ctx, cfg.Model, cfg.APIKey, cfg.Temperature)
	case "openai":
		return NewOpenAI(cfg.APIKey, cfg.Model, cfg.Temperature)
	case "ollama":
		return NewOllama(cfg.Model, cfg.BaseURL, cfg.Temperature)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
}

package embedding

import (
	"fmt"

	"github.com/TheBrokenPipe/minutes-in-seconds/internal/config"
)

// NewModel creates an embedding provider from the given configuration. The
// provider set is closed: "openai" (cloud, fixed output dimensionality) or
// "ollama" (local, task-prefix convention). Provider selection is explicit
// constructor state; there is no ambient default.
func NewModel(cfg config.EmbeddingConfig) (Embedding, error) {
	switch cfg.Provider {
	case "openai":
		return NewOpenAIModel(cfg.APIKey, cfg.Model, cfg.Dimensions)
	case "ollama":
		return NewOllamaModel(cfg.Model, cfg.BaseURL, cfg.DocumentPrefix, cfg.QueryPrefix)
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Provider)
	}
}

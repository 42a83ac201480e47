package embedding

import (
	"errors"
	"testing"

	"github.com/TheBrokenPipe/minutes-in-seconds/internal/config"
)

func TestNewModelUnsupportedProvider(t *testing.T) {
	_, err := NewModel(config.EmbeddingConfig{Provider: "gemini"})
	if err == nil {
		t.Error("expected error for unsupported provider")
	}
}

func TestNewModelOpenAIRequiresKey(t *testing.T) {
	_, err := NewModel(config.EmbeddingConfig{Provider: "openai", Model: "text-embedding-3-large"})
	if err == nil {
		t.Error("expected error for missing API key")
	}
}

func TestNewModelOllama(t *testing.T) {
	m, err := NewModel(config.EmbeddingConfig{
		Provider:       "ollama",
		Model:          "nomic-embed-text",
		DocumentPrefix: "search_document: ",
		QueryPrefix:    "search_query: ",
	})
	if err != nil {
		t.Fatalf("NewModel() error = %v", err)
	}
	om, ok := m.(*OllamaModel)
	if !ok {
		t.Fatalf("expected *OllamaModel, got %T", m)
	}
	if om.documentPrefix != "search_document: " || om.queryPrefix != "search_query: " {
		t.Errorf("prefixes not carried: %q / %q", om.documentPrefix, om.queryPrefix)
	}
}

func TestProviderErrorUnwrap(t *testing.T) {
	inner := errors.New("rate limited")
	err := error(&ProviderError{Provider: "openai", Err: inner})

	if !errors.Is(err, inner) {
		t.Error("ProviderError should unwrap to the underlying error")
	}
	var pe *ProviderError
	if !errors.As(err, &pe) || pe.Provider != "openai" {
		t.Errorf("errors.As failed or wrong provider: %+v", pe)
	}
}

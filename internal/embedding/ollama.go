package embedding

import (
	"fmt"
	"net/http"
	"net/url"
	"time"

	"context"

	ollama "github.com/ollama/ollama/api"
)

// OllamaModel is an Embedding client for a local Ollama server. Models such as
// nomic-embed-text expect a task prefix on every input; the prefixes are
// constructor state so the same convention is applied on every call.
type OllamaModel struct {
	client         *ollama.Client
	model          string
	documentPrefix string
	queryPrefix    string
}

// NewOllamaModel creates a new OllamaModel client. baseURL defaults to the
// local Ollama address when empty.
func NewOllamaModel(model, baseURL, documentPrefix, queryPrefix string) (*OllamaModel, error) {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}

	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama base URL: %w", err)
	}

	hc := &http.Client{
		Timeout: 120 * time.Second,
	}

	return &OllamaModel{
		client:         ollama.NewClient(parsedURL, hc),
		model:          model,
		documentPrefix: documentPrefix,
		queryPrefix:    queryPrefix,
	}, nil
}

// Embed generates an embedding vector for a single document text.
func (m *OllamaModel) Embed(ctx context.Context, text string) ([]float32, error) {
	return m.embed(ctx, m.documentPrefix+text)
}

// EmbedQuery generates an embedding vector for a search query, applying the
// query-side task prefix.
func (m *OllamaModel) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return m.embed(ctx, m.queryPrefix+text)
}

// EmbedBatch generates embedding vectors for a batch of document texts.
func (m *OllamaModel) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	prefixed := make([]string, len(texts))
	for i, t := range texts {
		prefixed[i] = m.documentPrefix + t
	}

	resp, err := m.client.Embed(ctx, &ollama.EmbedRequest{
		Model: m.model,
		Input: prefixed,
	})
	if err != nil {
		return nil, &ProviderError{Provider: "ollama", Err: err}
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, &ProviderError{
			Provider: "ollama",
			Err:      fmt.Errorf("expected %d embeddings, got %d", len(texts), len(resp.Embeddings)),
		}
	}

	return resp.Embeddings, nil
}

func (m *OllamaModel) embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := m.client.Embed(ctx, &ollama.EmbedRequest{
		Model: m.model,
		Input: text,
	})
	if err != nil {
		return nil, &ProviderError{Provider: "ollama", Err: err}
	}
	if len(resp.Embeddings) == 0 {
		return nil, &ProviderError{Provider: "ollama", Err: fmt.Errorf("no embeddings returned")}
	}

	return resp.Embeddings[0], nil
}

var _ Embedding = (*OllamaModel)(nil)

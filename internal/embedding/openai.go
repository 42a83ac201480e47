package embedding

import (
	"context"
	"fmt"

	openai "github.com/meguminnnnnnnnn/go-openai"
)

// OpenAIModel is an Embedding client for the OpenAI API. The output
// dimensionality is fixed at construction so stored vectors stay comparable.
type OpenAIModel struct {
	client     *openai.Client
	model      string
	dimensions int
}

// NewOpenAIModel creates a new OpenAIModel client.
func NewOpenAIModel(apiKey, modelName string, dimensions int) (*OpenAIModel, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai embedding provider requires an API key")
	}
	config := openai.DefaultConfig(apiKey)
	client := openai.NewClientWithConfig(config)
	return &OpenAIModel{client: client, model: modelName, dimensions: dimensions}, nil
}

// Embed generates an embedding vector for a single document text.
func (m *OpenAIModel) Embed(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := m.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return embeddings[0], nil
}

// EmbedQuery is identical to Embed; the OpenAI models use no task prefix.
func (m *OpenAIModel) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return m.Embed(ctx, text)
}

// EmbedBatch generates embedding vectors for a batch of texts in one request.
func (m *OpenAIModel) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	req := openai.EmbeddingRequest{
		Input:      texts,
		Model:      openai.EmbeddingModel(m.model),
		Dimensions: m.dimensions,
	}

	resp, err := m.client.CreateEmbeddings(ctx, req)
	if err != nil {
		return nil, &ProviderError{Provider: "openai", Err: err}
	}
	if len(resp.Data) != len(texts) {
		return nil, &ProviderError{
			Provider: "openai",
			Err:      fmt.Errorf("expected %d embeddings, got %d", len(texts), len(resp.Data)),
		}
	}

	embeddings := make([][]float32, len(resp.Data))
	for i, d := range resp.Data {
		embeddings[i] = d.Embedding
	}
	return embeddings, nil
}

var _ Embedding = (*OpenAIModel)(nil)

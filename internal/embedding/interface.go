package embedding

import "context"

// Embedding is the interface every embedding provider implements.
//
// Providers with a task-prefix convention (e.g. nomic-embed-text) must apply
// their document prefix in Embed/EmbedBatch and their query prefix in
// EmbedQuery. Index-time and query-time conventions have to match for a given
// collection or retrieval quality silently degrades.
type Embedding interface {
	// Embed generates an embedding vector for a single document text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embedding vectors for a batch of document texts in
	// one logical request.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedQuery generates an embedding vector for a search query.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

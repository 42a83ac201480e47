package rag

import (
	"context"
	"fmt"
	"strings"

	"github.com/TheBrokenPipe/minutes-in-seconds/internal/config"
	"github.com/TheBrokenPipe/minutes-in-seconds/internal/embedding"
	"github.com/TheBrokenPipe/minutes-in-seconds/internal/llm"
	"github.com/TheBrokenPipe/minutes-in-seconds/internal/models"
	"github.com/TheBrokenPipe/minutes-in-seconds/pkg/logger"
)

const answerSystemPrompt = "You are an assistant for question-answering tasks. " +
	"Use the following pieces of retrieved context to answer the question. " +
	"If you don't know the answer, say that you don't know. " +
	"Do not include any general information unless necessary. " +
	"Use three sentences maximum and keep the answer concise. \n\n Context: %s"

// Retriever is the slice of the vector store the engine depends on.
type Retriever interface {
	Search(ctx context.Context, embedding []float32, topK int, scoreThreshold float32, meetingIDs []string) ([]models.RetrievedDocument, error)
	Expand(ctx context.Context, c models.Chunk, window int) (string, error)
}

// Engine answers questions about meetings, grounded in retrieved transcript
// chunks.
type Engine struct {
	log        *logger.Logger
	embeddings embedding.Embedding
	store      Retriever
	model      llm.LLM
	cfg        config.RetrievalConfig
}

func NewEngine(embeddings embedding.Embedding, store Retriever, model llm.LLM, cfg config.RetrievalConfig, log *logger.Logger) *Engine {
	return &Engine{
		log:        log,
		embeddings: embeddings,
		store:      store,
		model:      model,
		cfg:        cfg,
	}
}

// Answer embeds the question, retrieves the best matching chunks (restricted
// to the permitted meetings when any are given), expands each hit with its
// surrounding chunks and asks the model for a grounded answer. The returned
// sources reference the un-expanded hits, grouped per meeting.
//
// An empty retrieval set is not an error: the model is still asked, with an
// empty context, so it can answer that it does not know.
func (e *Engine) Answer(ctx context.Context, question string, meetingIDs []string) (string, []models.Source, error) {
	queryVector, err := e.embeddings.EmbedQuery(ctx, question)
	if err != nil {
		return "", nil, fmt.Errorf("failed to embed query: %w", err)
	}

	docs, err := e.store.Search(ctx, queryVector, e.cfg.TopK, float32(e.cfg.ScoreThreshold), meetingIDs)
	if err != nil {
		return "", nil, fmt.Errorf("retrieval failed: %w", err)
	}
	e.log.WithField("hits", len(docs)).Debug("retrieved chunks for query")

	passages := make([]string, len(docs))
	for i := range docs {
		expanded, err := e.store.Expand(ctx, docs[i].Chunk, e.cfg.ContextWindow)
		if err != nil {
			return "", nil, fmt.Errorf("context expansion failed: %w", err)
		}
		docs[i].ExpandedText = expanded
		passages[i] = expanded
	}

	answer, err := e.model.Generate(ctx, fmt.Sprintf(answerSystemPrompt, strings.Join(passages, "\n\n")), question)
	if err != nil {
		return "", nil, &GenerationError{Op: "answer", Err: err}
	}
	return answer, SourcesFromDocs(docs), nil
}

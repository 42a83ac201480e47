// Package chunking turns a merged, diarized transcript into semantically
// coherent, time-anchored chunks ready for embedding and retrieval.
package chunking

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/TheBrokenPipe/minutes-in-seconds/internal/config"
	"github.com/TheBrokenPipe/minutes-in-seconds/internal/embedding"
	"github.com/TheBrokenPipe/minutes-in-seconds/internal/models"
	"github.com/TheBrokenPipe/minutes-in-seconds/internal/transcript"
	"github.com/TheBrokenPipe/minutes-in-seconds/pkg/logger"
)

// Chunker groups merged transcript lines into chunks by comparing the
// embedding of the accumulated chunk against the next line's embedding. A
// boundary opens when similarity drops below an adaptive threshold and the
// next line is long enough to stand on its own.
type Chunker struct {
	embeddings embedding.Embedding
	cfg        config.ChunkingConfig
	log        *logger.Logger
}

// NewChunker creates a Chunker using the given embedding provider and
// tunables.
func NewChunker(embeddings embedding.Embedding, cfg config.ChunkingConfig, log *logger.Logger) *Chunker {
	return &Chunker{embeddings: embeddings, cfg: cfg, log: log}
}

// ChunkTranscript segments one meeting's merged lines into chunks. The output
// covers every input line exactly once, in order; chunk ids are dense from 0.
// Embedding failures propagate unchanged and nothing is partially emitted.
func (c *Chunker) ChunkTranscript(ctx context.Context, meetingID string, lines []transcript.MergedLine) ([]models.Chunk, error) {
	if len(lines) == 0 {
		return nil, transcript.ErrEmptyTranscript
	}

	// Per-line embeddings are only a similarity reference for "the next
	// line"; chunk boundaries compare against a fresh embedding of the
	// accumulated chunk text.
	texts := make([]string, len(lines))
	for i, line := range lines {
		texts[i] = line.Text
	}
	lineEmbeddings, err := c.embeddings.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to embed transcript lines: %w", err)
	}

	var chunks []models.Chunk
	var current []transcript.MergedLine
	currentStart := lines[0].StartTime

	for i, line := range lines {
		current = append(current, line)

		if i+1 >= len(lines) {
			break
		}

		effective := c.effectiveThreshold(len(current))

		combined := joinLineTexts(current)
		combinedEmbedding, err := c.embeddings.Embed(ctx, combined)
		if err != nil {
			return nil, fmt.Errorf("failed to embed chunk text: %w", err)
		}
		similarity := cosineSimilarity(combinedEmbedding, lineEmbeddings[i+1])

		nextLineWords := len(strings.Fields(lines[i+1].Text))
		if similarity < effective && nextLineWords > c.cfg.MinSplitWords {
			chunks = append(chunks, models.Chunk{
				ChunkID:   int64(len(chunks)),
				MeetingID: meetingID,
				StartTime: currentStart,
				EndTime:   line.EndTime,
				Text:      chunkText(current),
			})
			current = nil
			currentStart = lines[i+1].StartTime
		}
	}

	chunks = append(chunks, models.Chunk{
		ChunkID:   int64(len(chunks)),
		MeetingID: meetingID,
		StartTime: currentStart,
		EndTime:   current[len(current)-1].EndTime,
		Text:      chunkText(current),
	})

	c.log.WithMeeting(meetingID).Debug(fmt.Sprintf("Chunked %d merged lines into %d chunks", len(lines), len(chunks)))
	return chunks, nil
}

// effectiveThreshold adapts the base threshold to the size of the chunk built
// so far: near the base for a fresh chunk, climbing toward 1 once the chunk
// grows past the soft cap so runaway chunks still get split. The logistic
// shape is a heuristic carried from tuning on real transcripts, not a derived
// optimum.
func (c *Chunker) effectiveThreshold(chunkLines int) float64 {
	return 1 - adaptiveFactor(float64(chunkLines), c.cfg.Alpha, c.cfg.K)*(1-c.cfg.Threshold)
}

// adaptiveFactor is a logistic decay in n: close to 1 for small n,
// approaching 0 as n grows past alpha squared over 2.
func adaptiveFactor(n, alpha, k float64) float64 {
	return 1 - 1/(1+math.Exp(-k*(n/(alpha*alpha)-0.5)))
}

// cosineSimilarity returns the cosine of the angle between two vectors, or 0
// when either has zero magnitude or the lengths differ.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// joinLineTexts space-joins the raw line texts, the form compared against the
// next line's embedding.
func joinLineTexts(lines []transcript.MergedLine) string {
	parts := make([]string, len(lines))
	for i, line := range lines {
		parts[i] = line.Text
	}
	return strings.Join(parts, " ")
}

// chunkText renders the lines of a chunk as a speaker-prefixed transcript.
func chunkText(lines []transcript.MergedLine) string {
	parts := make([]string, len(lines))
	for i, line := range lines {
		parts[i] = fmt.Sprintf("%s: %s", line.Speaker, line.Text)
	}
	return strings.Join(parts, "\n")
}

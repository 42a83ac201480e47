package chunking

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/TheBrokenPipe/minutes-in-seconds/internal/config"
	"github.com/TheBrokenPipe/minutes-in-seconds/internal/embedding"
	"github.com/TheBrokenPipe/minutes-in-seconds/internal/transcript"
	"github.com/TheBrokenPipe/minutes-in-seconds/pkg/logger"
)

// fakeEmbedder embeds text as word counts over a fixed topic vocabulary, so
// lines about the same topic are parallel vectors and topic changes are
// orthogonal. Unknown words land in a filler dimension.
type fakeEmbedder struct{}

var topicVocab = map[string]int{
	"budget": 0, "costs": 0, "forecast": 0, "spend": 0, "quarterly": 0, "revenue": 0,
	"lunch": 1, "pizza": 1, "sandwiches": 1, "restaurant": 1, "menu": 1, "hungry": 1,
}

func (fakeEmbedder) vec(text string) []float32 {
	v := make([]float32, 3)
	for _, w := range strings.Fields(strings.ToLower(text)) {
		if d, ok := topicVocab[strings.Trim(w, ".,?!")]; ok {
			v[d]++
		} else {
			v[2]++
		}
	}
	return v
}

func (f fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	return f.vec(text), nil
}

func (f fakeEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	return f.vec(text), nil
}

func (f fakeEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = f.vec(t)
	}
	return out, nil
}

type failingEmbedder struct{ fakeEmbedder }

func (failingEmbedder) EmbedBatch(context.Context, []string) ([][]float32, error) {
	return nil, &embedding.ProviderError{Provider: "fake", Err: errors.New("rate limited")}
}

func testChunker(threshold float64) *Chunker {
	cfg := config.ChunkingConfig{Threshold: threshold, Alpha: 10, K: 10, MinSplitWords: 5}
	return NewChunker(fakeEmbedder{}, cfg, logger.New("test"))
}

func repeatWords(word string, n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = word
	}
	return strings.Join(parts, " ")
}

func line(speaker, text string, start, end float64) transcript.MergedLine {
	return transcript.MergedLine{Speaker: speaker, Text: text, StartTime: start, EndTime: end}
}

// lineWords flattens merged lines into their word sequence.
func lineWords(lines []transcript.MergedLine) []string {
	var words []string
	for _, l := range lines {
		words = append(words, strings.Fields(l.Text)...)
	}
	return words
}

func TestChunkTranscriptSplitsOnTopicChange(t *testing.T) {
	lines := []transcript.MergedLine{
		line("A", "budget forecast costs quarterly spend revenue", 0, 10),
		line("B", "quarterly budget costs revenue spend forecast", 10, 20),
		line("A", "spend forecast budget revenue costs quarterly", 20, 30),
		line("B", "revenue costs spend budget quarterly forecast", 30, 40),
		line("A", "lunch pizza sandwiches restaurant menu hungry", 40, 50),
		line("B", "menu restaurant pizza lunch hungry sandwiches", 50, 60),
	}

	chunks, err := testChunker(0.6).ChunkTranscript(context.Background(), "m1", lines)
	if err != nil {
		t.Fatalf("ChunkTranscript() error = %v", err)
	}

	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if chunks[0].StartTime != 0 || chunks[0].EndTime != 40 {
		t.Errorf("first chunk span = [%v,%v], want [0,40]", chunks[0].StartTime, chunks[0].EndTime)
	}
	if chunks[1].StartTime != 40 || chunks[1].EndTime != 60 {
		t.Errorf("second chunk span = [%v,%v], want [40,60]", chunks[1].StartTime, chunks[1].EndTime)
	}
	if !strings.HasPrefix(chunks[0].Text, "A: budget forecast") {
		t.Errorf("chunk text missing speaker prefix: %q", chunks[0].Text)
	}

	// Coverage: chunk texts reconstruct the merged transcript exactly.
	var got []string
	for _, c := range chunks {
		for _, l := range strings.Split(c.Text, "\n") {
			_, text, ok := strings.Cut(l, ": ")
			if !ok {
				t.Fatalf("chunk line missing speaker label: %q", l)
			}
			got = append(got, strings.Fields(text)...)
		}
	}
	want := lineWords(lines)
	if len(got) != len(want) {
		t.Fatalf("coverage broken: %d words reconstructed, %d in input", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("word %d differs: %q vs %q", i, got[i], want[i])
		}
	}
}

func TestChunkIDsDense(t *testing.T) {
	lines := []transcript.MergedLine{
		line("A", "budget forecast costs quarterly spend revenue", 0, 10),
		line("B", "lunch pizza sandwiches restaurant menu hungry", 10, 20),
		line("A", "budget forecast costs quarterly spend revenue", 20, 30),
	}

	chunks, err := testChunker(0.6).ChunkTranscript(context.Background(), "m1", lines)
	if err != nil {
		t.Fatalf("ChunkTranscript() error = %v", err)
	}
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if c.ChunkID != int64(i) {
			t.Errorf("chunk %d has id %d", i, c.ChunkID)
		}
		if c.MeetingID != "m1" {
			t.Errorf("chunk %d has meeting id %q", i, c.MeetingID)
		}
	}
}

// A short interjection never opens a boundary, even when it is semantically
// unrelated to the running chunk.
func TestShortLineGuard(t *testing.T) {
	lines := []transcript.MergedLine{
		line("A", "budget forecast costs quarterly spend revenue", 0, 10),
		line("B", "pizza", 10, 12),
		line("A", "spend forecast budget revenue costs quarterly", 12, 22),
	}

	chunks, err := testChunker(0.6).ChunkTranscript(context.Background(), "m1", lines)
	if err != nil {
		t.Fatalf("ChunkTranscript() error = %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
}

// A higher base threshold splits at least as often as a lower one.
func TestThresholdMonotonicity(t *testing.T) {
	lines := []transcript.MergedLine{
		line("A", repeatWords("budget", 6), 0, 10),
		line("B", "budget budget budget budget budget lunch", 10, 20),
		line("A", "budget budget budget lunch lunch lunch", 20, 30),
		line("B", repeatWords("lunch", 6), 30, 40),
	}

	low, err := testChunker(0.3).ChunkTranscript(context.Background(), "m1", lines)
	if err != nil {
		t.Fatalf("ChunkTranscript(low) error = %v", err)
	}
	high, err := testChunker(0.9).ChunkTranscript(context.Background(), "m1", lines)
	if err != nil {
		t.Fatalf("ChunkTranscript(high) error = %v", err)
	}

	if len(high) < len(low) {
		t.Errorf("monotonicity broken: %d chunks at 0.9, %d at 0.3", len(high), len(low))
	}
	if len(low) != 2 || len(high) != 3 {
		t.Errorf("expected 2 and 3 chunks, got %d and %d", len(low), len(high))
	}
}

func TestSingleLineTranscript(t *testing.T) {
	lines := []transcript.MergedLine{line("A", "budget forecast costs", 1.5, 9)}

	chunks, err := testChunker(0.6).ChunkTranscript(context.Background(), "m1", lines)
	if err != nil {
		t.Fatalf("ChunkTranscript() error = %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].StartTime != 1.5 || chunks[0].EndTime != 9 {
		t.Errorf("chunk span = [%v,%v], want [1.5,9]", chunks[0].StartTime, chunks[0].EndTime)
	}
}

func TestEmptyTranscript(t *testing.T) {
	_, err := testChunker(0.6).ChunkTranscript(context.Background(), "m1", nil)
	if !errors.Is(err, transcript.ErrEmptyTranscript) {
		t.Errorf("expected ErrEmptyTranscript, got %v", err)
	}
}

func TestEmbeddingErrorPropagates(t *testing.T) {
	cfg := config.ChunkingConfig{Threshold: 0.6, Alpha: 10, K: 10, MinSplitWords: 5}
	c := NewChunker(failingEmbedder{}, cfg, logger.New("test"))

	_, err := c.ChunkTranscript(context.Background(), "m1", []transcript.MergedLine{
		line("A", "budget forecast costs", 0, 10),
	})
	var pe *embedding.ProviderError
	if !errors.As(err, &pe) {
		t.Errorf("expected ProviderError, got %v", err)
	}
}

// The adaptive factor starts near 1 and decays toward 0, so the effective
// threshold rises from the base toward 1 as a chunk grows.
func TestAdaptiveThreshold(t *testing.T) {
	if f := adaptiveFactor(1, 10, 10); f < 0.95 {
		t.Errorf("adaptiveFactor(1) = %v, want near 1", f)
	}
	if f := adaptiveFactor(500, 10, 10); f > 0.05 {
		t.Errorf("adaptiveFactor(500) = %v, want near 0", f)
	}

	c := testChunker(0.3)
	small := c.effectiveThreshold(1)
	large := c.effectiveThreshold(200)
	if small >= large {
		t.Errorf("effective threshold should grow with chunk size: %v vs %v", small, large)
	}
	if small < 0.3 || small > 0.35 {
		t.Errorf("effective threshold for a fresh chunk should stay near the base, got %v", small)
	}
}

func TestCosineSimilarity(t *testing.T) {
	if got := cosineSimilarity([]float32{1, 0}, []float32{0, 1}); got != 0 {
		t.Errorf("orthogonal vectors similarity = %v, want 0", got)
	}
	if got := cosineSimilarity([]float32{2, 0}, []float32{5, 0}); got < 0.999 {
		t.Errorf("parallel vectors similarity = %v, want 1", got)
	}
	if got := cosineSimilarity([]float32{0, 0}, []float32{1, 1}); got != 0 {
		t.Errorf("zero vector similarity = %v, want 0", got)
	}
	if got := cosineSimilarity([]float32{1}, []float32{1, 2}); got != 0 {
		t.Errorf("mismatched lengths similarity = %v, want 0", got)
	}
}

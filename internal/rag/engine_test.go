package rag

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/TheBrokenPipe/minutes-in-seconds/internal/config"
	"github.com/TheBrokenPipe/minutes-in-seconds/internal/models"
	"github.com/TheBrokenPipe/minutes-in-seconds/pkg/logger"
)

type fakeQueryEmbedder struct {
	lastQuery string
}

func (f *fakeQueryEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	return []float32{1, 0}, nil
}

func (f *fakeQueryEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0}
	}
	return out, nil
}

func (f *fakeQueryEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	f.lastQuery = text
	return []float32{0, 1}, nil
}

type fakeRetriever struct {
	docs       []models.RetrievedDocument
	lastVector []float32
	lastIDs    []string
}

func (f *fakeRetriever) Search(_ context.Context, embedding []float32, topK int, scoreThreshold float32, meetingIDs []string) ([]models.RetrievedDocument, error) {
	f.lastVector = embedding
	f.lastIDs = meetingIDs
	return f.docs, nil
}

func (f *fakeRetriever) Expand(_ context.Context, c models.Chunk, window int) (string, error) {
	return "around(" + c.Text + ")", nil
}

type fakeLLM struct {
	response   string
	err        error
	lastSystem string
	lastUser   string
	calls      int
}

func (f *fakeLLM) Generate(_ context.Context, systemPrompt, userPrompt string) (string, error) {
	f.calls++
	f.lastSystem = systemPrompt
	f.lastUser = userPrompt
	return f.response, f.err
}

func testEngine(store *fakeRetriever, model *fakeLLM) (*Engine, *fakeQueryEmbedder) {
	emb := &fakeQueryEmbedder{}
	cfg := config.RetrievalConfig{TopK: 3, ScoreThreshold: 0.5, ContextWindow: 3}
	return NewEngine(emb, store, model, cfg, logger.New("test")), emb
}

func doc(meetingID string, chunkID int64, start float64, text string) models.RetrievedDocument {
	return models.RetrievedDocument{
		Chunk: models.Chunk{MeetingID: meetingID, ChunkID: chunkID, StartTime: start, Text: text},
		Score: 0.9,
	}
}

func TestAnswerGroupsSourcesPerMeeting(t *testing.T) {
	store := &fakeRetriever{docs: []models.RetrievedDocument{
		doc("meeting-a", 0, 45, "first"),
		doc("meeting-b", 2, 3725, "second"),
		doc("meeting-a", 7, 61, "third"),
	}}
	model := &fakeLLM{response: "The budget was discussed."}
	engine, _ := testEngine(store, model)

	answer, sources, err := engine.Answer(context.Background(), "what was discussed?", nil)
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if answer != "The budget was discussed." {
		t.Errorf("answer = %q", answer)
	}

	if len(sources) != 2 {
		t.Fatalf("expected 2 sources, got %d", len(sources))
	}
	if sources[0].MeetingID != "meeting-a" || sources[1].MeetingID != "meeting-b" {
		t.Errorf("sources out of retrieval order: %+v", sources)
	}
	if len(sources[0].StartTimes) != 2 || sources[0].StartTimes[0] != "0:45" || sources[0].StartTimes[1] != "1:01" {
		t.Errorf("meeting-a timestamps = %v", sources[0].StartTimes)
	}
	if len(sources[1].StartTimes) != 1 || sources[1].StartTimes[0] != "1:02:05" {
		t.Errorf("meeting-b timestamps = %v", sources[1].StartTimes)
	}
}

func TestAnswerBuildsContextFromExpandedChunks(t *testing.T) {
	store := &fakeRetriever{docs: []models.RetrievedDocument{
		doc("m1", 0, 0, "alpha"),
		doc("m1", 5, 60, "beta"),
	}}
	model := &fakeLLM{response: "ok"}
	engine, emb := testEngine(store, model)

	_, _, err := engine.Answer(context.Background(), "question?", []string{"m1"})
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}

	if emb.lastQuery != "question?" {
		t.Errorf("query embedded as %q", emb.lastQuery)
	}
	if len(store.lastVector) != 2 || store.lastVector[1] != 1 {
		t.Errorf("search did not use the query embedding: %v", store.lastVector)
	}
	if len(store.lastIDs) != 1 || store.lastIDs[0] != "m1" {
		t.Errorf("meeting restriction not passed through: %v", store.lastIDs)
	}
	if !strings.Contains(model.lastSystem, "around(alpha)\n\naround(beta)") {
		t.Errorf("context missing expanded passages: %q", model.lastSystem)
	}
	if model.lastUser != "question?" {
		t.Errorf("user prompt = %q", model.lastUser)
	}
}

func TestAnswerEmptyRetrievalStillAsksModel(t *testing.T) {
	store := &fakeRetriever{}
	model := &fakeLLM{response: "I don't know."}
	engine, _ := testEngine(store, model)

	answer, sources, err := engine.Answer(context.Background(), "anything?", []string{"99"})
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if model.calls != 1 {
		t.Errorf("model called %d times, want 1", model.calls)
	}
	if answer != "I don't know." {
		t.Errorf("answer = %q", answer)
	}
	if sources == nil || len(sources) != 0 {
		t.Errorf("sources = %#v, want empty list", sources)
	}
}

func TestAnswerModelFailure(t *testing.T) {
	store := &fakeRetriever{docs: []models.RetrievedDocument{doc("m1", 0, 0, "alpha")}}
	model := &fakeLLM{err: errors.New("model offline")}
	engine, _ := testEngine(store, model)

	_, _, err := engine.Answer(context.Background(), "q", nil)
	var ge *GenerationError
	if !errors.As(err, &ge) {
		t.Fatalf("expected GenerationError, got %v", err)
	}
	if ge.Op != "answer" {
		t.Errorf("Op = %q", ge.Op)
	}
}

func TestFormatTimestamp(t *testing.T) {
	tests := []struct {
		seconds float64
		want    string
	}{
		{0, "0:00"},
		{45, "0:45"},
		{61, "1:01"},
		{3599, "59:59"},
		{3600, "1:00:00"},
		{3725, "1:02:05"},
		{7325.6, "2:02:05"},
	}
	for _, tt := range tests {
		if got := FormatTimestamp(tt.seconds); got != tt.want {
			t.Errorf("FormatTimestamp(%v) = %q, want %q", tt.seconds, got, tt.want)
		}
	}
}

func TestSourcesKeepRepeatedTimestamps(t *testing.T) {
	sources := SourcesFromDocs([]models.RetrievedDocument{
		doc("m1", 0, 45, "a"),
		doc("m1", 1, 45, "b"),
	})
	if len(sources) != 1 || len(sources[0].StartTimes) != 2 {
		t.Fatalf("sources = %+v", sources)
	}
	if sources[0].StartTimes[0] != "0:45" || sources[0].StartTimes[1] != "0:45" {
		t.Errorf("timestamps = %v", sources[0].StartTimes)
	}
}

package ingestion

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/TheBrokenPipe/minutes-in-seconds/internal/models"
	"github.com/TheBrokenPipe/minutes-in-seconds/internal/rag"
	"github.com/TheBrokenPipe/minutes-in-seconds/internal/store"
	"github.com/TheBrokenPipe/minutes-in-seconds/internal/transcript"
	"github.com/TheBrokenPipe/minutes-in-seconds/pkg/logger"
)

type memMeetingStore struct {
	meetings    map[string]*models.Meeting
	keyPoints   map[string][]models.KeyPoint
	actionItems map[string][]models.ActionItem
	statuses    []string
}

func newMemMeetingStore(meetings ...*models.Meeting) *memMeetingStore {
	s := &memMeetingStore{
		meetings:    map[string]*models.Meeting{},
		keyPoints:   map[string][]models.KeyPoint{},
		actionItems: map[string][]models.ActionItem{},
	}
	for _, m := range meetings {
		s.meetings[m.ID] = m
	}
	return s
}

func (s *memMeetingStore) Create(_ context.Context, m *models.Meeting) error {
	s.meetings[m.ID] = m
	return nil
}

func (s *memMeetingStore) GetByID(_ context.Context, id string) (*models.Meeting, error) {
	m, ok := s.meetings[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	copied := *m
	return &copied, nil
}

func (s *memMeetingStore) NextWithStatus(_ context.Context, status string) (*models.Meeting, error) {
	for _, m := range s.meetings {
		if m.Status == status {
			copied := *m
			return &copied, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *memMeetingStore) List(context.Context) ([]*models.Meeting, error) { return nil, nil }

func (s *memMeetingStore) SetStatus(_ context.Context, id, status string) error {
	s.meetings[id].Status = status
	s.statuses = append(s.statuses, status)
	return nil
}

func (s *memMeetingStore) SetTranscript(_ context.Context, id, key string) error {
	s.meetings[id].FileTranscript = key
	return nil
}

func (s *memMeetingStore) SetSummary(_ context.Context, id, summary string) error {
	s.meetings[id].Summary = summary
	return nil
}

func (s *memMeetingStore) ReplaceKeyPoints(_ context.Context, id string, points []models.KeyPoint) error {
	s.keyPoints[id] = points
	return nil
}

func (s *memMeetingStore) ReplaceActionItems(_ context.Context, id string, items []models.ActionItem) error {
	s.actionItems[id] = items
	return nil
}

func (s *memMeetingStore) KeyPoints(_ context.Context, id string) ([]models.KeyPoint, error) {
	return s.keyPoints[id], nil
}

func (s *memMeetingStore) ActionItems(_ context.Context, id string) ([]models.ActionItem, error) {
	return s.actionItems[id], nil
}

func (s *memMeetingStore) Delete(_ context.Context, id string) error {
	delete(s.meetings, id)
	return nil
}

type memObjectStore struct {
	objects map[string]string
	raw     map[string]string
}

func newMemObjectStore() *memObjectStore {
	return &memObjectStore{objects: map[string]string{}, raw: map[string]string{}}
}

func (s *memObjectStore) GetRecording(_ context.Context, key string) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader(s.objects[key])), nil
}

func (s *memObjectStore) PutTranscript(_ context.Context, meetingID, transcript string) (string, error) {
	key := "transcripts/" + meetingID + ".jsonl"
	s.objects[key] = transcript
	return key, nil
}

func (s *memObjectStore) GetTranscript(_ context.Context, key string) (string, error) {
	return s.objects[key], nil
}

func (s *memObjectStore) HasRawTranscript(_ context.Context, meetingID string) (bool, error) {
	_, ok := s.raw[meetingID]
	return ok, nil
}

func (s *memObjectStore) PutRawTranscript(_ context.Context, meetingID, raw string) error {
	s.raw[meetingID] = raw
	return nil
}

func (s *memObjectStore) GetRawTranscript(_ context.Context, meetingID string) (string, error) {
	return s.raw[meetingID], nil
}

type fakeTranscriber struct {
	raw   string
	calls int
}

func (f *fakeTranscriber) Transcribe(context.Context, string, io.Reader) (string, error) {
	f.calls++
	return f.raw, nil
}

type fakeSummariser struct{}

func (fakeSummariser) SummariseMeeting(context.Context, string) (*rag.MeetingSummary, error) {
	return &rag.MeetingSummary{
		AbstractSummary: "The budget was reviewed.",
		KeyPoints:       []string{"budget reviewed"},
		ActionItems:     []string{"send forecast"},
	}, nil
}

type fakeChunker struct{}

func (fakeChunker) ChunkTranscript(_ context.Context, meetingID string, lines []transcript.MergedLine) ([]models.Chunk, error) {
	chunks := make([]models.Chunk, len(lines))
	for i, l := range lines {
		chunks[i] = models.Chunk{
			ChunkID:   int64(i),
			MeetingID: meetingID,
			StartTime: l.StartTime,
			EndTime:   l.EndTime,
			Text:      l.Speaker + ": " + l.Text,
		}
	}
	return chunks, nil
}

type fakeEmbedder struct{}

func (fakeEmbedder) Embed(context.Context, string) ([]float32, error) {
	return []float32{1, 0}, nil
}

func (fakeEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = []float32{1, 0}
	}
	return out, nil
}

func (fakeEmbedder) EmbedQuery(context.Context, string) ([]float32, error) {
	return []float32{1, 0}, nil
}

type memVectorIndex struct {
	chunks []models.Chunk
}

func (v *memVectorIndex) Add(_ context.Context, chunks []models.Chunk) error {
	v.chunks = append(v.chunks, chunks...)
	return nil
}

type memPublisher struct {
	events []interface{}
}

func (p *memPublisher) Publish(_ context.Context, _ string, event interface{}) error {
	p.events = append(p.events, event)
	return nil
}

const fakeRawTranscription = `{"segments":[
	{"speaker":"SPEAKER_00","start":0,"end":5,"text":"we need to finalise the quarterly budget"},
	{"speaker":"SPEAKER_00","start":5,"end":9,"text":"the forecast is due friday"},
	{"speaker":"SPEAKER_01","start":9,"end":14,"text":"marketing spend is already over plan"}
]}`

func newTestWorker(meetings *memMeetingStore, objects *memObjectStore, transcriber *fakeTranscriber, vectors *memVectorIndex, publisher *memPublisher) *Worker {
	return NewWorker(Deps{
		Meetings:   meetings,
		Objects:    objects,
		ASR:        transcriber,
		Summariser: fakeSummariser{},
		Chunker:    fakeChunker{},
		Embeddings: fakeEmbedder{},
		Vectors:    vectors,
		Status:     publisher,
	}, logger.New("test"))
}

func TestProcessRunsFullPipeline(t *testing.T) {
	meetings := newMemMeetingStore(&models.Meeting{
		ID:            "m1",
		Name:          "Budget sync",
		FileRecording: "recordings/m1.wav",
		Status:        models.StatusQueued,
		CreatedAt:     time.Now(),
	})
	objects := newMemObjectStore()
	objects.objects["recordings/m1.wav"] = "fake audio"
	transcriber := &fakeTranscriber{raw: fakeRawTranscription}
	vectors := &memVectorIndex{}
	publisher := &memPublisher{}

	w := newTestWorker(meetings, objects, transcriber, vectors, publisher)
	if err := w.Process(context.Background(), "m1"); err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	m := meetings.meetings["m1"]
	if m.Status != models.StatusReady {
		t.Errorf("status = %q, want Ready", m.Status)
	}
	wantStatuses := []string{models.StatusTranscribed, models.StatusSummarised, models.StatusReady}
	if len(meetings.statuses) != len(wantStatuses) {
		t.Fatalf("status transitions = %v", meetings.statuses)
	}
	for i, s := range wantStatuses {
		if meetings.statuses[i] != s {
			t.Errorf("transition %d = %q, want %q", i, meetings.statuses[i], s)
		}
	}

	if transcriber.calls != 1 {
		t.Errorf("transcriber called %d times", transcriber.calls)
	}
	if objects.raw["m1"] != fakeRawTranscription {
		t.Error("raw transcription not cached")
	}
	if m.FileTranscript == "" {
		t.Error("transcript key not recorded")
	}
	if m.Summary != "The budget was reviewed." {
		t.Errorf("summary = %q", m.Summary)
	}
	if len(meetings.keyPoints["m1"]) != 1 || meetings.keyPoints["m1"][0].Text != "budget reviewed" {
		t.Errorf("key points = %+v", meetings.keyPoints["m1"])
	}
	if len(meetings.actionItems["m1"]) != 1 {
		t.Errorf("action items = %+v", meetings.actionItems["m1"])
	}

	// Consecutive speaker lines merge, so 3 utterances become 2 chunks.
	if len(vectors.chunks) != 2 {
		t.Fatalf("indexed %d chunks, want 2", len(vectors.chunks))
	}
	for _, c := range vectors.chunks {
		if len(c.Embedding) == 0 {
			t.Errorf("chunk %d was not embedded", c.ChunkID)
		}
	}
	if len(publisher.events) != 3 {
		t.Errorf("published %d status events, want 3", len(publisher.events))
	}
}

func TestProcessReusesCachedTranscription(t *testing.T) {
	meetings := newMemMeetingStore(&models.Meeting{
		ID:            "m1",
		FileRecording: "recordings/m1.wav",
		Status:        models.StatusQueued,
	})
	objects := newMemObjectStore()
	objects.raw["m1"] = fakeRawTranscription
	transcriber := &fakeTranscriber{raw: "should not be used"}

	w := newTestWorker(meetings, objects, transcriber, &memVectorIndex{}, &memPublisher{})
	if err := w.Process(context.Background(), "m1"); err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if transcriber.calls != 0 {
		t.Errorf("transcriber called %d times despite cached output", transcriber.calls)
	}
	if meetings.meetings["m1"].Status != models.StatusReady {
		t.Errorf("status = %q", meetings.meetings["m1"].Status)
	}
}

func TestProcessReadyMeetingIsNoOp(t *testing.T) {
	meetings := newMemMeetingStore(&models.Meeting{ID: "m1", Status: models.StatusReady})
	transcriber := &fakeTranscriber{}

	w := newTestWorker(meetings, newMemObjectStore(), transcriber, &memVectorIndex{}, &memPublisher{})
	if err := w.Process(context.Background(), "m1"); err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if transcriber.calls != 0 || len(meetings.statuses) != 0 {
		t.Error("ready meeting should not be reprocessed")
	}
}

// Package ingestion runs the pipeline that takes an uploaded meeting from
// Queued to Ready: transcription, summarisation, then chunking and indexing.
package ingestion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"golang.org/x/sync/errgroup"

	"github.com/TheBrokenPipe/minutes-in-seconds/internal/asr"
	"github.com/TheBrokenPipe/minutes-in-seconds/internal/embedding"
	"github.com/TheBrokenPipe/minutes-in-seconds/internal/events"
	"github.com/TheBrokenPipe/minutes-in-seconds/internal/models"
	"github.com/TheBrokenPipe/minutes-in-seconds/internal/rag"
	"github.com/TheBrokenPipe/minutes-in-seconds/internal/store"
	"github.com/TheBrokenPipe/minutes-in-seconds/internal/transcript"
	"github.com/TheBrokenPipe/minutes-in-seconds/pkg/logger"
)

const defaultPollInterval = 15 * time.Second

// embedConcurrency bounds parallel embedding requests against the provider.
const embedConcurrency = 4

// ObjectStore is the slice of object storage the worker needs.
type ObjectStore interface {
	GetRecording(ctx context.Context, key string) (io.ReadCloser, error)
	PutTranscript(ctx context.Context, meetingID, transcript string) (string, error)
	GetTranscript(ctx context.Context, key string) (string, error)
	HasRawTranscript(ctx context.Context, meetingID string) (bool, error)
	PutRawTranscript(ctx context.Context, meetingID, raw string) error
	GetRawTranscript(ctx context.Context, meetingID string) (string, error)
}

// Transcriber turns a recording into raw diarized transcription output.
type Transcriber interface {
	Transcribe(ctx context.Context, filename string, audio io.Reader) (string, error)
}

// Summariser produces the summary artefacts for a transcript.
type Summariser interface {
	SummariseMeeting(ctx context.Context, transcriptText string) (*rag.MeetingSummary, error)
}

// Chunker segments a merged transcript into semantic chunks.
type Chunker interface {
	ChunkTranscript(ctx context.Context, meetingID string, lines []transcript.MergedLine) ([]models.Chunk, error)
}

// VectorIndex receives the embedded chunks of a finished meeting.
type VectorIndex interface {
	Add(ctx context.Context, chunks []models.Chunk) error
}

// StatusPublisher announces meeting status transitions.
type StatusPublisher interface {
	Publish(ctx context.Context, meetingID string, event interface{}) error
}

// Worker advances meetings through the ingestion pipeline. It is woken by
// upload events and additionally polls, so meetings stranded by a crash or a
// missed event still get processed.
type Worker struct {
	log          *logger.Logger
	meetings     store.MeetingStore
	objects      ObjectStore
	asr          Transcriber
	summariser   Summariser
	chunker      Chunker
	embeddings   embedding.Embedding
	vectors      VectorIndex
	status       StatusPublisher
	pollInterval time.Duration
}

// Deps bundles the collaborators of a Worker.
type Deps struct {
	Meetings   store.MeetingStore
	Objects    ObjectStore
	ASR        Transcriber
	Summariser Summariser
	Chunker    Chunker
	Embeddings embedding.Embedding
	Vectors    VectorIndex
	Status     StatusPublisher
}

func NewWorker(deps Deps, log *logger.Logger) *Worker {
	return &Worker{
		log:          log,
		meetings:     deps.Meetings,
		objects:      deps.Objects,
		asr:          deps.ASR,
		summariser:   deps.Summariser,
		chunker:      deps.Chunker,
		embeddings:   deps.Embeddings,
		vectors:      deps.Vectors,
		status:       deps.Status,
		pollInterval: defaultPollInterval,
	}
}

// Run processes upload events and polls for stranded meetings until the
// context is cancelled.
func (w *Worker) Run(ctx context.Context, consumer *events.Consumer) {
	consumer.Start(ctx, func(msg kafka.Message) error {
		var event events.MeetingUploaded
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			return fmt.Errorf("failed to decode upload event: %w", err)
		}
		return w.Process(ctx, event.MeetingID)
	})

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.log.Info("ingestion worker stopped")
			return
		case <-ticker.C:
			w.drain(ctx)
		}
	}
}

// drain processes every unfinished meeting it can find, oldest first.
func (w *Worker) drain(ctx context.Context) {
	for _, status := range []string{models.StatusQueued, models.StatusTranscribed, models.StatusSummarised} {
		for {
			m, err := w.meetings.NextWithStatus(ctx, status)
			if errors.Is(err, store.ErrNotFound) {
				break
			}
			if err != nil {
				w.log.Error("failed to poll for meetings: " + err.Error())
				return
			}
			if err := w.Process(ctx, m.ID); err != nil {
				w.log.WithMeeting(m.ID).Error("ingestion failed: " + err.Error())
				break
			}
		}
	}
}

// Process advances one meeting through every remaining pipeline stage.
func (w *Worker) Process(ctx context.Context, meetingID string) error {
	for {
		m, err := w.meetings.GetByID(ctx, meetingID)
		if err != nil {
			return fmt.Errorf("failed to load meeting %s: %w", meetingID, err)
		}

		switch m.Status {
		case models.StatusQueued:
			err = w.transcribe(ctx, m)
		case models.StatusTranscribed:
			err = w.summarise(ctx, m)
		case models.StatusSummarised:
			err = w.index(ctx, m)
		case models.StatusReady:
			return nil
		default:
			return fmt.Errorf("meeting %s has unknown status %q", m.ID, m.Status)
		}
		if err != nil {
			return err
		}
	}
}

// transcribe runs speech recognition over the recording, reusing the cached
// raw output when the same recording was transcribed before.
func (w *Worker) transcribe(ctx context.Context, m *models.Meeting) error {
	log := w.log.WithMeeting(m.ID)

	cached, err := w.objects.HasRawTranscript(ctx, m.ID)
	if err != nil {
		return err
	}

	var raw string
	if cached {
		log.Info("reusing cached transcription")
		if raw, err = w.objects.GetRawTranscript(ctx, m.ID); err != nil {
			return err
		}
	} else {
		audio, err := w.objects.GetRecording(ctx, m.FileRecording)
		if err != nil {
			return err
		}
		log.Info("transcribing recording")
		raw, err = w.asr.Transcribe(ctx, path.Base(m.FileRecording), audio)
		audio.Close()
		if err != nil {
			return fmt.Errorf("transcription of meeting %s failed: %w", m.ID, err)
		}
		if err := w.objects.PutRawTranscript(ctx, m.ID, raw); err != nil {
			return err
		}
	}

	jsonl, err := asr.ToJSONL(raw)
	if err != nil {
		return fmt.Errorf("transcription of meeting %s produced bad output: %w", m.ID, err)
	}
	key, err := w.objects.PutTranscript(ctx, m.ID, jsonl)
	if err != nil {
		return err
	}
	if err := w.meetings.SetTranscript(ctx, m.ID, key); err != nil {
		return err
	}
	return w.advance(ctx, m.ID, models.StatusTranscribed)
}

// summarise extracts the abstract summary, key points and action items.
func (w *Worker) summarise(ctx context.Context, m *models.Meeting) error {
	utterances, err := w.loadTranscript(ctx, m)
	if err != nil {
		return err
	}

	w.log.WithMeeting(m.ID).Info("summarising transcript")
	summary, err := w.summariser.SummariseMeeting(ctx, transcript.ToText(utterances))
	if err != nil {
		return fmt.Errorf("summarisation of meeting %s failed: %w", m.ID, err)
	}

	if err := w.meetings.SetSummary(ctx, m.ID, summary.AbstractSummary); err != nil {
		return err
	}
	if err := w.meetings.ReplaceKeyPoints(ctx, m.ID, keyPointRecords(m.ID, summary.KeyPoints)); err != nil {
		return err
	}
	if err := w.meetings.ReplaceActionItems(ctx, m.ID, actionItemRecords(m.ID, summary.ActionItems)); err != nil {
		return err
	}
	return w.advance(ctx, m.ID, models.StatusSummarised)
}

// index chunks the transcript, embeds every chunk and loads the result into
// the vector store.
func (w *Worker) index(ctx context.Context, m *models.Meeting) error {
	utterances, err := w.loadTranscript(ctx, m)
	if err != nil {
		return err
	}
	merged, err := transcript.MergeSpeakerLines(utterances)
	if err != nil {
		return err
	}

	chunks, err := w.chunker.ChunkTranscript(ctx, m.ID, merged)
	if err != nil {
		return fmt.Errorf("chunking of meeting %s failed: %w", m.ID, err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(embedConcurrency)
	for i := range chunks {
		i := i
		g.Go(func() error {
			vector, err := w.embeddings.Embed(gctx, chunks[i].Text)
			if err != nil {
				return fmt.Errorf("failed to embed chunk %d: %w", chunks[i].ChunkID, err)
			}
			chunks[i].Embedding = vector
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if err := w.vectors.Add(ctx, chunks); err != nil {
		return fmt.Errorf("failed to index meeting %s: %w", m.ID, err)
	}
	return w.advance(ctx, m.ID, models.StatusReady)
}

func (w *Worker) loadTranscript(ctx context.Context, m *models.Meeting) ([]transcript.Utterance, error) {
	jsonl, err := w.objects.GetTranscript(ctx, m.FileTranscript)
	if err != nil {
		return nil, err
	}
	utterances, err := transcript.ParseJSONL(jsonl)
	if err != nil {
		return nil, fmt.Errorf("transcript of meeting %s is unreadable: %w", m.ID, err)
	}
	return utterances, nil
}

// advance moves the meeting to the next status and announces the transition.
// A failed announcement is logged but does not roll the pipeline back.
func (w *Worker) advance(ctx context.Context, meetingID, status string) error {
	if err := w.meetings.SetStatus(ctx, meetingID, status); err != nil {
		return err
	}
	w.log.WithMeeting(meetingID).WithField("status", status).Info("meeting advanced")

	if w.status != nil {
		event := events.MeetingStatusChanged{
			MeetingID: meetingID,
			Status:    status,
			ChangedAt: time.Now().UTC(),
		}
		if err := w.status.Publish(ctx, meetingID, event); err != nil {
			w.log.WithMeeting(meetingID).Warn("failed to announce status change: " + err.Error())
		}
	}
	return nil
}

func keyPointRecords(meetingID string, points []string) []models.KeyPoint {
	records := make([]models.KeyPoint, len(points))
	for i, text := range points {
		records[i] = models.KeyPoint{ID: uuid.New().String(), MeetingID: meetingID, Text: text}
	}
	return records
}

func actionItemRecords(meetingID string, items []string) []models.ActionItem {
	records := make([]models.ActionItem, len(items))
	for i, text := range items {
		records[i] = models.ActionItem{ID: uuid.New().String(), MeetingID: meetingID, Text: text}
	}
	return records
}

// Package service implements the application operations behind the HTTP API:
// meeting lifecycle management and meeting-scoped chats.
package service

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/TheBrokenPipe/minutes-in-seconds/internal/events"
	"github.com/TheBrokenPipe/minutes-in-seconds/internal/models"
	"github.com/TheBrokenPipe/minutes-in-seconds/internal/store"
	"github.com/TheBrokenPipe/minutes-in-seconds/internal/transcript"
	"github.com/TheBrokenPipe/minutes-in-seconds/pkg/logger"
)

// ObjectStore is the slice of object storage the service needs.
type ObjectStore interface {
	PutRecording(ctx context.Context, meetingID, filename string, r io.Reader, size int64, contentType string) (string, error)
	GetTranscript(ctx context.Context, key string) (string, error)
	DeleteObjects(ctx context.Context, keys ...string) error
}

// VectorStore is the slice of the vector store the service needs.
type VectorStore interface {
	DeleteMeeting(ctx context.Context, meetingID string) error
}

// Answerer produces grounded answers for chat questions.
type Answerer interface {
	Answer(ctx context.Context, question string, meetingIDs []string) (string, []models.Source, error)
}

// ChatSummariser condenses meeting summaries for chat overviews.
type ChatSummariser interface {
	SummariseChat(ctx context.Context, meetingSummaries []string) (string, error)
}

// UploadPublisher announces newly uploaded meetings to the ingestion worker.
type UploadPublisher interface {
	Publish(ctx context.Context, meetingID string, event interface{}) error
}

// Service wires the stores, the query engine and the event bus together.
type Service struct {
	log        *logger.Logger
	meetings   store.MeetingStore
	chats      store.ChatStore
	objects    ObjectStore
	vectors    VectorStore
	engine     Answerer
	summariser ChatSummariser
	uploads    UploadPublisher
}

// Deps bundles the collaborators of a Service.
type Deps struct {
	Meetings   store.MeetingStore
	Chats      store.ChatStore
	Objects    ObjectStore
	Vectors    VectorStore
	Engine     Answerer
	Summariser ChatSummariser
	Uploads    UploadPublisher
}

func New(deps Deps, log *logger.Logger) *Service {
	return &Service{
		log:        log,
		meetings:   deps.Meetings,
		chats:      deps.Chats,
		objects:    deps.Objects,
		vectors:    deps.Vectors,
		engine:     deps.Engine,
		summariser: deps.Summariser,
		uploads:    deps.Uploads,
	}
}

// UploadMeeting stores the recording, creates the meeting record in Queued
// state and wakes the ingestion worker.
func (s *Service) UploadMeeting(ctx context.Context, name string, date time.Time, filename string, file io.Reader, size int64, contentType string) (*models.Meeting, error) {
	id := uuid.New().String()

	key, err := s.objects.PutRecording(ctx, id, filename, file, size, contentType)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	meeting := &models.Meeting{
		ID:            id,
		Name:          name,
		Date:          date,
		FileRecording: key,
		Status:        models.StatusQueued,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.meetings.Create(ctx, meeting); err != nil {
		return nil, fmt.Errorf("failed to create meeting record: %w", err)
	}

	event := events.MeetingUploaded{MeetingID: id, Name: name, UploadedAt: now}
	if err := s.uploads.Publish(ctx, id, event); err != nil {
		s.log.WithMeeting(id).Warn("failed to announce upload, worker will pick it up by polling: " + err.Error())
	}

	s.log.WithMeeting(id).WithField("name", name).Info("meeting uploaded")
	return meeting, nil
}

func (s *Service) ListMeetings(ctx context.Context) ([]*models.Meeting, error) {
	return s.meetings.List(ctx)
}

func (s *Service) GetMeeting(ctx context.Context, id string) (*models.Meeting, error) {
	return s.meetings.GetByID(ctx, id)
}

// MeetingSummary is the full summary view of one meeting.
type MeetingSummary struct {
	Summary     string              `json:"summary"`
	KeyPoints   []models.KeyPoint   `json:"key_points"`
	ActionItems []models.ActionItem `json:"action_items"`
}

// GetMeetingSummary returns the abstract summary with its extracted lists.
func (s *Service) GetMeetingSummary(ctx context.Context, id string) (*MeetingSummary, error) {
	meeting, err := s.meetings.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	points, err := s.meetings.KeyPoints(ctx, id)
	if err != nil {
		return nil, err
	}
	items, err := s.meetings.ActionItems(ctx, id)
	if err != nil {
		return nil, err
	}
	return &MeetingSummary{Summary: meeting.Summary, KeyPoints: points, ActionItems: items}, nil
}

// GetMeetingTranscript returns the parsed utterances of a processed meeting.
func (s *Service) GetMeetingTranscript(ctx context.Context, id string) ([]transcript.Utterance, error) {
	meeting, err := s.meetings.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if meeting.FileTranscript == "" {
		return nil, store.ErrNotFound
	}
	jsonl, err := s.objects.GetTranscript(ctx, meeting.FileTranscript)
	if err != nil {
		return nil, err
	}
	return transcript.ParseJSONL(jsonl)
}

// DeleteMeeting removes the meeting record, its stored objects and its
// indexed chunks.
func (s *Service) DeleteMeeting(ctx context.Context, id string) error {
	meeting, err := s.meetings.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.vectors.DeleteMeeting(ctx, id); err != nil {
		return err
	}
	if err := s.objects.DeleteObjects(ctx, meeting.FileRecording, meeting.FileTranscript); err != nil {
		return err
	}
	if err := s.meetings.Delete(ctx, id); err != nil {
		return err
	}
	s.log.WithMeeting(id).Info("meeting deleted")
	return nil
}

// CreateChat opens a chat scoped to the given meetings. Every referenced
// meeting must exist.
func (s *Service) CreateChat(ctx context.Context, name string, meetingIDs []string) (*models.Chat, error) {
	for _, id := range meetingIDs {
		if _, err := s.meetings.GetByID(ctx, id); err != nil {
			return nil, fmt.Errorf("meeting %s: %w", id, err)
		}
	}

	chat := &models.Chat{
		ID:         uuid.New().String(),
		Name:       name,
		MeetingIDs: meetingIDs,
		History:    []models.ChatMessage{},
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.chats.Create(ctx, chat); err != nil {
		return nil, fmt.Errorf("failed to create chat: %w", err)
	}
	return chat, nil
}

func (s *Service) ListChats(ctx context.Context) ([]*models.Chat, error) {
	return s.chats.List(ctx)
}

func (s *Service) GetChat(ctx context.Context, id string) (*models.Chat, error) {
	return s.chats.GetByID(ctx, id)
}

func (s *Service) DeleteChat(ctx context.Context, id string) error {
	return s.chats.Delete(ctx, id)
}

// SendMessage answers a question inside a chat, grounded in the chat's
// meeting set, and records both sides of the exchange in the history.
func (s *Service) SendMessage(ctx context.Context, chatID, username, text string) (*models.ChatMessage, error) {
	chat, err := s.chats.GetByID(ctx, chatID)
	if err != nil {
		return nil, err
	}

	if err := s.chats.AppendMessage(ctx, chatID, models.ChatMessage{Username: username, Message: text}); err != nil {
		return nil, err
	}

	answer, sources, err := s.engine.Answer(ctx, text, chat.MeetingIDs)
	if err != nil {
		return nil, err
	}

	reply := models.ChatMessage{Username: "Assistant", Message: answer, Sources: sources}
	if err := s.chats.AppendMessage(ctx, chatID, reply); err != nil {
		return nil, err
	}
	return &reply, nil
}

// SummariseChat condenses the summaries of the chat's meetings into one
// paragraph. A chat without meetings covers the whole corpus.
func (s *Service) SummariseChat(ctx context.Context, chatID string) (string, error) {
	chat, err := s.chats.GetByID(ctx, chatID)
	if err != nil {
		return "", err
	}

	var meetings []*models.Meeting
	if len(chat.MeetingIDs) == 0 {
		if meetings, err = s.meetings.List(ctx); err != nil {
			return "", err
		}
	} else {
		for _, id := range chat.MeetingIDs {
			m, err := s.meetings.GetByID(ctx, id)
			if err != nil {
				return "", err
			}
			meetings = append(meetings, m)
		}
	}

	var summaries []string
	for _, m := range meetings {
		if m.Summary != "" {
			summaries = append(summaries, m.Summary)
		}
	}
	if len(summaries) == 0 {
		return "", fmt.Errorf("chat %s has no summarised meetings yet", chatID)
	}
	return s.summariser.SummariseChat(ctx, summaries)
}

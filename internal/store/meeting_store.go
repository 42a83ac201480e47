package store

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/TheBrokenPipe/minutes-in-seconds/internal/models"
)

// MeetingStore defines the interface for meeting persistence.
type MeetingStore interface {
	Create(ctx context.Context, meeting *models.Meeting) error
	GetByID(ctx context.Context, id string) (*models.Meeting, error)
	NextWithStatus(ctx context.Context, status string) (*models.Meeting, error)
	List(ctx context.Context) ([]*models.Meeting, error)
	SetStatus(ctx context.Context, id, status string) error
	SetTranscript(ctx context.Context, id, transcriptKey string) error
	SetSummary(ctx context.Context, id, summary string) error
	ReplaceKeyPoints(ctx context.Context, meetingID string, points []models.KeyPoint) error
	ReplaceActionItems(ctx context.Context, meetingID string, items []models.ActionItem) error
	KeyPoints(ctx context.Context, meetingID string) ([]models.KeyPoint, error)
	ActionItems(ctx context.Context, meetingID string) ([]models.ActionItem, error)
	Delete(ctx context.Context, id string) error
}

// MongoMeetingStore is an implementation of MeetingStore using MongoDB.
type MongoMeetingStore struct {
	meetings    *mongo.Collection
	keyPoints   *mongo.Collection
	actionItems *mongo.Collection
}

func NewMongoMeetingStore(db *mongo.Database) *MongoMeetingStore {
	return &MongoMeetingStore{
		meetings:    db.Collection("meetings"),
		keyPoints:   db.Collection("key_points"),
		actionItems: db.Collection("action_items"),
	}
}

func (s *MongoMeetingStore) Create(ctx context.Context, meeting *models.Meeting) error {
	_, err := s.meetings.InsertOne(ctx, meeting)
	return err
}

func (s *MongoMeetingStore) GetByID(ctx context.Context, id string) (*models.Meeting, error) {
	var meeting models.Meeting
	err := s.meetings.FindOne(ctx, bson.M{"_id": id}).Decode(&meeting)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &meeting, nil
}

// NextWithStatus fetches the oldest meeting currently in the given status, or
// ErrNotFound when the queue for that status is empty.
func (s *MongoMeetingStore) NextWithStatus(ctx context.Context, status string) (*models.Meeting, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: 1}})

	var meeting models.Meeting
	err := s.meetings.FindOne(ctx, bson.M{"status": status}, opts).Decode(&meeting)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &meeting, nil
}

// List returns all meetings, newest first.
func (s *MongoMeetingStore) List(ctx context.Context) ([]*models.Meeting, error) {
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: -1}})

	cursor, err := s.meetings.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var meetings []*models.Meeting
	if err := cursor.All(ctx, &meetings); err != nil {
		return nil, err
	}
	return meetings, nil
}

func (s *MongoMeetingStore) SetStatus(ctx context.Context, id, status string) error {
	return s.set(ctx, id, bson.M{"status": status})
}

func (s *MongoMeetingStore) SetTranscript(ctx context.Context, id, transcriptKey string) error {
	return s.set(ctx, id, bson.M{"file_transcript": transcriptKey})
}

func (s *MongoMeetingStore) SetSummary(ctx context.Context, id, summary string) error {
	return s.set(ctx, id, bson.M{"summary": summary})
}

func (s *MongoMeetingStore) set(ctx context.Context, id string, fields bson.M) error {
	fields["updated_at"] = time.Now().UTC()
	res, err := s.meetings.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": fields})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// ReplaceKeyPoints swaps out the stored key points of a meeting, so
// re-summarisation never duplicates them.
func (s *MongoMeetingStore) ReplaceKeyPoints(ctx context.Context, meetingID string, points []models.KeyPoint) error {
	return replaceForMeeting(ctx, s.keyPoints, meetingID, points)
}

func (s *MongoMeetingStore) ReplaceActionItems(ctx context.Context, meetingID string, items []models.ActionItem) error {
	return replaceForMeeting(ctx, s.actionItems, meetingID, items)
}

func (s *MongoMeetingStore) KeyPoints(ctx context.Context, meetingID string) ([]models.KeyPoint, error) {
	return findForMeeting[models.KeyPoint](ctx, s.keyPoints, meetingID)
}

func (s *MongoMeetingStore) ActionItems(ctx context.Context, meetingID string) ([]models.ActionItem, error) {
	return findForMeeting[models.ActionItem](ctx, s.actionItems, meetingID)
}

// Delete removes the meeting together with its key points and action items.
func (s *MongoMeetingStore) Delete(ctx context.Context, id string) error {
	res, err := s.meetings.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	if _, err := s.keyPoints.DeleteMany(ctx, bson.M{"meeting_id": id}); err != nil {
		return err
	}
	_, err = s.actionItems.DeleteMany(ctx, bson.M{"meeting_id": id})
	return err
}

func replaceForMeeting[T any](ctx context.Context, coll *mongo.Collection, meetingID string, records []T) error {
	if _, err := coll.DeleteMany(ctx, bson.M{"meeting_id": meetingID}); err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}
	docs := make([]interface{}, len(records))
	for i, r := range records {
		docs[i] = r
	}
	_, err := coll.InsertMany(ctx, docs)
	return err
}

func findForMeeting[T any](ctx context.Context, coll *mongo.Collection, meetingID string) ([]T, error) {
	cursor, err := coll.Find(ctx, bson.M{"meeting_id": meetingID})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var records []T
	if err := cursor.All(ctx, &records); err != nil {
		return nil, err
	}
	return records, nil
}

var _ MeetingStore = (*MongoMeetingStore)(nil)

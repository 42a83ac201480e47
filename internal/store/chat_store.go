package store

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/TheBrokenPipe/minutes-in-seconds/internal/models"
)

// ChatStore defines the interface for chat persistence.
type ChatStore interface {
	Create(ctx context.Context, chat *models.Chat) error
	GetByID(ctx context.Context, id string) (*models.Chat, error)
	List(ctx context.Context) ([]*models.Chat, error)
	AppendMessage(ctx context.Context, id string, message models.ChatMessage) error
	SetMeetings(ctx context.Context, id string, meetingIDs []string) error
	Delete(ctx context.Context, id string) error
}

// MongoChatStore is an implementation of ChatStore using MongoDB.
type MongoChatStore struct {
	chats *mongo.Collection
}

func NewMongoChatStore(db *mongo.Database) *MongoChatStore {
	return &MongoChatStore{chats: db.Collection("chats")}
}

func (s *MongoChatStore) Create(ctx context.Context, chat *models.Chat) error {
	_, err := s.chats.InsertOne(ctx, chat)
	return err
}

func (s *MongoChatStore) GetByID(ctx context.Context, id string) (*models.Chat, error) {
	var chat models.Chat
	err := s.chats.FindOne(ctx, bson.M{"_id": id}).Decode(&chat)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &chat, nil
}

// List returns all chats, newest first.
func (s *MongoChatStore) List(ctx context.Context) ([]*models.Chat, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})

	cursor, err := s.chats.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var chats []*models.Chat
	if err := cursor.All(ctx, &chats); err != nil {
		return nil, err
	}
	return chats, nil
}

func (s *MongoChatStore) AppendMessage(ctx context.Context, id string, message models.ChatMessage) error {
	res, err := s.chats.UpdateOne(ctx, bson.M{"_id": id},
		bson.M{"$push": bson.M{"history": message}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// SetMeetings replaces the set of meetings a chat is scoped to.
func (s *MongoChatStore) SetMeetings(ctx context.Context, id string, meetingIDs []string) error {
	res, err := s.chats.UpdateOne(ctx, bson.M{"_id": id},
		bson.M{"$set": bson.M{"meeting_ids": meetingIDs}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoChatStore) Delete(ctx context.Context, id string) error {
	res, err := s.chats.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

var _ ChatStore = (*MongoChatStore)(nil)

package models

import "time"

// ChatMessage is a single entry in a chat's history.
type ChatMessage struct {
	Username string   `bson:"username" json:"username"`
	Message  string   `bson:"message" json:"message"`
	Sources  []Source `bson:"sources,omitempty" json:"sources,omitempty"`
}

// Chat is a conversation scoped to a set of meetings. The meeting set is the
// retrieval filter for every question asked in the chat; an empty set means
// the whole corpus.
type Chat struct {
	ID         string        `bson:"_id" json:"id"`
	Name       string        `bson:"name" json:"name"`
	MeetingIDs []string      `bson:"meeting_ids" json:"meeting_ids"`
	History    []ChatMessage `bson:"history" json:"history"`
	CreatedAt  time.Time     `bson:"created_at" json:"created_at"`
}

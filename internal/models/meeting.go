package models

import "time"

// Meeting status values. A meeting moves strictly forward through these as the
// ingestion worker processes it.
const (
	StatusQueued      = "Queued"
	StatusTranscribed = "Transcribed"
	StatusSummarised  = "Summarised"
	StatusReady       = "Ready"
)

// Meeting is the persistent record of one uploaded meeting.
type Meeting struct {
	ID             string    `bson:"_id" json:"id"`
	Name           string    `bson:"name" json:"name"`
	Date           time.Time `bson:"date" json:"date"`
	FileRecording  string    `bson:"file_recording" json:"file_recording"`   // object-store key of the audio
	FileTranscript string    `bson:"file_transcript" json:"file_transcript"` // object-store key of the JSONL transcript
	Summary        string    `bson:"summary" json:"summary"`
	Status         string    `bson:"status" json:"status"`
	CreatedAt      time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt      time.Time `bson:"updated_at" json:"updated_at"`
}

// KeyPoint is a single extracted key point of a meeting.
type KeyPoint struct {
	ID        string `bson:"_id" json:"id"`
	MeetingID string `bson:"meeting_id" json:"meeting_id"`
	Text      string `bson:"text" json:"text"`
}

// ActionItem is a single extracted action item of a meeting.
type ActionItem struct {
	ID        string `bson:"_id" json:"id"`
	MeetingID string `bson:"meeting_id" json:"meeting_id"`
	Text      string `bson:"text" json:"text"`
}

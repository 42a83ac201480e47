// Package events carries the Kafka messages that drive the ingestion
// pipeline: an upload event wakes the worker, status events let other
// services follow a meeting through the pipeline.
package events

import "time"

// MeetingUploaded is published when a new recording lands in object storage.
type MeetingUploaded struct {
	MeetingID  string    `json:"meeting_id"`
	Name       string    `json:"name"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// MeetingStatusChanged is published every time a meeting advances through the
// ingestion pipeline.
type MeetingStatusChanged struct {
	MeetingID string    `json:"meeting_id"`
	Status    string    `json:"status"`
	ChangedAt time.Time `json:"changed_at"`
}

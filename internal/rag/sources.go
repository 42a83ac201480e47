package rag

import (
	"fmt"

	"github.com/TheBrokenPipe/minutes-in-seconds/internal/models"
)

// SourcesFromDocs groups retrieved chunks by meeting, in retrieval order.
// Chunks from the same meeting collapse into one source carrying each chunk's
// formatted start time; repeated timestamps are kept as retrieved.
func SourcesFromDocs(docs []models.RetrievedDocument) []models.Source {
	sources := make([]models.Source, 0, len(docs))
	index := make(map[string]int, len(docs))
	for _, d := range docs {
		ts := FormatTimestamp(d.Chunk.StartTime)
		if i, ok := index[d.Chunk.MeetingID]; ok {
			sources[i].StartTimes = append(sources[i].StartTimes, ts)
			continue
		}
		index[d.Chunk.MeetingID] = len(sources)
		sources = append(sources, models.Source{
			MeetingID:  d.Chunk.MeetingID,
			StartTimes: []string{ts},
		})
	}
	return sources
}

// FormatTimestamp renders an offset in seconds as M:SS, with an hour field
// only once the offset reaches a full hour.
func FormatTimestamp(seconds float64) string {
	total := int(seconds)
	h := total / 3600
	m := total % 3600 / 60
	s := total % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

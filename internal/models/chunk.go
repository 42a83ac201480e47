package models

// Chunk is a contiguous, semantically coherent span of one meeting's
// transcript. Chunk IDs form a dense 0..N-1 range within a meeting, assigned
// at chunking time; neighbour context expansion relies on that ordering.
type Chunk struct {
	ChunkID   int64  `json:"chunk_id"`
	MeetingID string `json:"meeting_id"`
	StartTime float64
	EndTime   float64
	// Text is the speaker-prefixed, newline-joined rendering of the merged
	// lines the chunk spans.
	Text      string
	Embedding []float32
}

// RetrievedDocument is a matched chunk rehydrated for a single query: the
// original chunk plus an expanded text body covering its neighbours and the
// similarity score against the query embedding.
type RetrievedDocument struct {
	Chunk        Chunk
	ExpandedText string
	Score        float32
}

// Source attributes part of an answer to one meeting. StartTimes holds the
// formatted timestamps of the matched chunks, in retrieval order.
type Source struct {
	MeetingID  string   `json:"meeting_id"`
	StartTimes []string `json:"start_times"`
}

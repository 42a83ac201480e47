package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"

	"github.com/TheBrokenPipe/minutes-in-seconds/internal/config"
	"github.com/TheBrokenPipe/minutes-in-seconds/internal/models"
	"github.com/TheBrokenPipe/minutes-in-seconds/pkg/logger"
)

// Schema fields of the chunk collection.
const (
	FieldID        = "id"
	FieldMeetingID = "meeting_id"
	FieldChunkID   = "chunk_id"
	FieldStartTime = "start_time"
	FieldEndTime   = "end_time"
	FieldText      = "text"
	FieldEmbedding = "embedding"
)

// ErrUnavailable is returned when Milvus cannot be reached.
var ErrUnavailable = errors.New("vector store unavailable")

// Store wraps a Milvus collection of embedded transcript chunks.
type Store struct {
	log        *logger.Logger
	client     client.Client
	collection string
	dimension  int
}

// New connects to Milvus and makes sure the chunk collection exists,
// is indexed and is loaded.
func New(ctx context.Context, cfg config.MilvusConfig, log *logger.Logger) (*Store, error) {
	c, err := client.NewClient(ctx, client.Config{Address: cfg.Address})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	s := &Store{
		log:        log,
		client:     c,
		collection: cfg.CollectionName,
		dimension:  cfg.Dim,
	}
	if err := s.ensureCollection(ctx); err != nil {
		c.Close()
		return nil, err
	}
	log.WithField("collection", cfg.CollectionName).Info("connected to Milvus")
	return s, nil
}

// Close releases the underlying Milvus connection.
func (s *Store) Close() {
	if s.client != nil {
		s.client.Close()
	}
}

func (s *Store) ensureCollection(ctx context.Context) error {
	exists, err := s.client.HasCollection(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("failed to check collection %q: %w", s.collection, err)
	}

	if !exists {
		schema := entity.NewSchema().
			WithName(s.collection).
			WithDescription("embedded meeting transcript chunks").
			WithField(entity.NewField().WithName(FieldID).
				WithDataType(entity.FieldTypeVarChar).WithMaxLength(64).WithIsPrimaryKey(true)).
			WithField(entity.NewField().WithName(FieldMeetingID).
				WithDataType(entity.FieldTypeVarChar).WithMaxLength(64)).
			WithField(entity.NewField().WithName(FieldChunkID).
				WithDataType(entity.FieldTypeInt64)).
			WithField(entity.NewField().WithName(FieldStartTime).
				WithDataType(entity.FieldTypeDouble)).
			WithField(entity.NewField().WithName(FieldEndTime).
				WithDataType(entity.FieldTypeDouble)).
			WithField(entity.NewField().WithName(FieldText).
				WithDataType(entity.FieldTypeVarChar).WithMaxLength(65535)).
			WithField(entity.NewField().WithName(FieldEmbedding).
				WithDataType(entity.FieldTypeFloatVector).WithDim(int64(s.dimension)))

		if err := s.client.CreateCollection(ctx, schema, entity.DefaultShardNumber); err != nil {
			return fmt.Errorf("failed to create collection %q: %w", s.collection, err)
		}

		idx, err := entity.NewIndexHNSW(entity.COSINE, 8, 96)
		if err != nil {
			return fmt.Errorf("failed to build index: %w", err)
		}
		if err := s.client.CreateIndex(ctx, s.collection, FieldEmbedding, idx, false); err != nil {
			return fmt.Errorf("failed to index field %q: %w", FieldEmbedding, err)
		}
	}

	if err := s.client.LoadCollection(ctx, s.collection, false); err != nil {
		return fmt.Errorf("failed to load collection %q: %w", s.collection, err)
	}
	return nil
}

// Add inserts embedded chunks and flushes so they are searchable right away.
func (s *Store) Add(ctx context.Context, chunks []models.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	ids := make([]string, len(chunks))
	meetingIDs := make([]string, len(chunks))
	chunkIDs := make([]int64, len(chunks))
	startTimes := make([]float64, len(chunks))
	endTimes := make([]float64, len(chunks))
	texts := make([]string, len(chunks))
	embeddings := make([][]float32, len(chunks))
	for i, c := range chunks {
		ids[i] = uuid.New().String()
		meetingIDs[i] = c.MeetingID
		chunkIDs[i] = c.ChunkID
		startTimes[i] = c.StartTime
		endTimes[i] = c.EndTime
		texts[i] = c.Text
		embeddings[i] = c.Embedding
	}

	_, err := s.client.Insert(ctx, s.collection, "",
		entity.NewColumnVarChar(FieldID, ids),
		entity.NewColumnVarChar(FieldMeetingID, meetingIDs),
		entity.NewColumnInt64(FieldChunkID, chunkIDs),
		entity.NewColumnDouble(FieldStartTime, startTimes),
		entity.NewColumnDouble(FieldEndTime, endTimes),
		entity.NewColumnVarChar(FieldText, texts),
		entity.NewColumnFloatVector(FieldEmbedding, s.dimension, embeddings),
	)
	if err != nil {
		return fmt.Errorf("failed to insert chunks: %w", err)
	}
	if err := s.client.Flush(ctx, s.collection, false); err != nil {
		return fmt.Errorf("failed to flush collection %q: %w", s.collection, err)
	}

	s.log.WithMeeting(chunks[0].MeetingID).
		WithField("chunks", len(chunks)).Info("indexed chunks")
	return nil
}

// Search runs a cosine similarity search for the query embedding, optionally
// restricted to a set of meetings, and drops hits below the score threshold.
func (s *Store) Search(ctx context.Context, embedding []float32, topK int, scoreThreshold float32, meetingIDs []string) ([]models.RetrievedDocument, error) {
	expr := meetingFilter(meetingIDs)
	sp, err := entity.NewIndexHNSWSearchParam(64)
	if err != nil {
		return nil, fmt.Errorf("failed to build search params: %w", err)
	}
	outputFields := []string{FieldMeetingID, FieldChunkID, FieldStartTime, FieldEndTime, FieldText}

	results, err := s.client.Search(
		ctx, s.collection, []string{}, expr, outputFields,
		[]entity.Vector{entity.FloatVector(embedding)},
		FieldEmbedding, entity.COSINE, topK, sp,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search collection %q: %w", s.collection, err)
	}

	var docs []models.RetrievedDocument
	for _, res := range results {
		chunks, err := chunksFromColumns(res.Fields, res.ResultCount)
		if err != nil {
			return nil, err
		}
		for i, c := range chunks {
			if res.Scores[i] < scoreThreshold {
				continue
			}
			docs = append(docs, models.RetrievedDocument{Chunk: c, Score: res.Scores[i]})
		}
	}
	return docs, nil
}

// Expand fetches the chunk together with up to window neighbours on each side
// and returns their texts joined in transcript order.
func (s *Store) Expand(ctx context.Context, c models.Chunk, window int) (string, error) {
	if window <= 0 {
		return c.Text, nil
	}
	lo, hi := neighbourRange(c.ChunkID, window)

	rs, err := s.client.Query(ctx, s.collection, []string{}, neighbourExpr(c.MeetingID, lo, hi),
		[]string{FieldChunkID, FieldStartTime, FieldEndTime, FieldText})
	if err != nil {
		return "", fmt.Errorf("failed to query neighbours of chunk %d: %w", c.ChunkID, err)
	}

	count := 0
	if len(rs) > 0 {
		count = rs[0].Len()
	}
	neighbours, err := chunksFromColumns(rs, count)
	if err != nil {
		return "", err
	}
	if len(neighbours) == 0 {
		return c.Text, nil
	}
	return joinChunkTexts(neighbours), nil
}

// DeleteMeeting removes every chunk that belongs to the given meeting.
func (s *Store) DeleteMeeting(ctx context.Context, meetingID string) error {
	expr := fmt.Sprintf("%s == %q", FieldMeetingID, meetingID)
	if err := s.client.Delete(ctx, s.collection, "", expr); err != nil {
		return fmt.Errorf("failed to delete chunks of meeting %s: %w", meetingID, err)
	}
	return nil
}

// HealthCheck verifies that Milvus still answers.
func (s *Store) HealthCheck(ctx context.Context) error {
	if _, err := s.client.ListCollections(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// chunksFromColumns decodes the scalar output columns of a search or query
// result back into chunks.
func chunksFromColumns(cols []entity.Column, count int) ([]models.Chunk, error) {
	findColumn := func(name string) entity.Column {
		for _, col := range cols {
			if col.Name() == name {
				return col
			}
		}
		return nil
	}

	var meetingIDs, texts []string
	var chunkIDs []int64
	var startTimes, endTimes []float64
	if col, ok := findColumn(FieldMeetingID).(*entity.ColumnVarChar); ok {
		meetingIDs = col.Data()
	}
	if col, ok := findColumn(FieldText).(*entity.ColumnVarChar); ok {
		texts = col.Data()
	} else {
		return nil, fmt.Errorf("result is missing the %q field", FieldText)
	}
	if col, ok := findColumn(FieldChunkID).(*entity.ColumnInt64); ok {
		chunkIDs = col.Data()
	} else {
		return nil, fmt.Errorf("result is missing the %q field", FieldChunkID)
	}
	if col, ok := findColumn(FieldStartTime).(*entity.ColumnDouble); ok {
		startTimes = col.Data()
	}
	if col, ok := findColumn(FieldEndTime).(*entity.ColumnDouble); ok {
		endTimes = col.Data()
	}

	chunks := make([]models.Chunk, 0, count)
	for i := 0; i < count; i++ {
		c := models.Chunk{ChunkID: chunkIDs[i], Text: texts[i]}
		if meetingIDs != nil {
			c.MeetingID = meetingIDs[i]
		}
		if startTimes != nil {
			c.StartTime = startTimes[i]
		}
		if endTimes != nil {
			c.EndTime = endTimes[i]
		}
		chunks = append(chunks, c)
	}
	return chunks, nil
}

// meetingFilter builds the boolean expression that scopes a search to a set
// of meetings. An empty set means no filter.
func meetingFilter(meetingIDs []string) string {
	if len(meetingIDs) == 0 {
		return ""
	}
	quoted := make([]string, len(meetingIDs))
	for i, id := range meetingIDs {
		quoted[i] = fmt.Sprintf("%q", id)
	}
	return fmt.Sprintf("%s in [%s]", FieldMeetingID, strings.Join(quoted, ", "))
}

// neighbourRange clamps the inclusive chunk id window around a chunk so it
// never dips below the first chunk of the meeting.
func neighbourRange(chunkID int64, window int) (int64, int64) {
	lo := chunkID - int64(window)
	if lo < 0 {
		lo = 0
	}
	return lo, chunkID + int64(window)
}

func neighbourExpr(meetingID string, lo, hi int64) string {
	return fmt.Sprintf("%s == %q and %s >= %d and %s <= %d",
		FieldMeetingID, meetingID, FieldChunkID, lo, FieldChunkID, hi)
}

// joinChunkTexts orders chunks by id and joins their texts back into one
// contiguous passage.
func joinChunkTexts(chunks []models.Chunk) string {
	sort.Slice(chunks, func(i, j int) bool { return chunks[i].ChunkID < chunks[j].ChunkID })
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	return strings.Join(texts, "\n")
}

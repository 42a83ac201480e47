package objectstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/TheBrokenPipe/minutes-in-seconds/internal/config"
	"github.com/TheBrokenPipe/minutes-in-seconds/pkg/logger"
)

// Object key prefixes inside the bucket.
const (
	recordingPrefix  = "recordings/"
	transcriptPrefix = "transcripts/"
	rawCachePrefix   = "asr-cache/"
)

// Store keeps meeting recordings, transcripts and the raw ASR cache in a
// single MinIO bucket, separated by key prefix.
type Store struct {
	log    *logger.Logger
	client *minio.Client
	bucket string
}

// New connects to MinIO and creates the bucket if it does not exist yet.
func New(ctx context.Context, cfg config.MinIOConfig, log *logger.Logger) (*Store, error) {
	c, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.Secure,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	exists, err := c.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket %q: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := c.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket %q: %w", cfg.Bucket, err)
		}
	}

	log.WithField("bucket", cfg.Bucket).Info("connected to MinIO")
	return &Store{log: log, client: c, bucket: cfg.Bucket}, nil
}

// PutRecording stores an uploaded audio file and returns its object key.
func (s *Store) PutRecording(ctx context.Context, meetingID, filename string, r io.Reader, size int64, contentType string) (string, error) {
	key := recordingPrefix + meetingID + path.Ext(filename)
	_, err := s.client.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("failed to store recording for meeting %s: %w", meetingID, err)
	}
	return key, nil
}

// GetRecording streams a stored recording. The caller must close the reader.
func (s *Store) GetRecording(ctx context.Context, key string) (io.ReadCloser, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch recording %q: %w", key, err)
	}
	return obj, nil
}

// PutTranscript stores the JSONL transcript of a meeting and returns its key.
func (s *Store) PutTranscript(ctx context.Context, meetingID, transcript string) (string, error) {
	key := transcriptPrefix + meetingID + ".jsonl"
	if err := s.putString(ctx, key, transcript, "application/jsonl"); err != nil {
		return "", fmt.Errorf("failed to store transcript for meeting %s: %w", meetingID, err)
	}
	return key, nil
}

// GetTranscript reads a stored JSONL transcript back as a string.
func (s *Store) GetTranscript(ctx context.Context, key string) (string, error) {
	return s.getString(ctx, key)
}

// HasRawTranscript reports whether the raw ASR output for a recording is
// already cached, so transcription can be skipped on re-ingestion.
func (s *Store) HasRawTranscript(ctx context.Context, meetingID string) (bool, error) {
	_, err := s.client.StatObject(ctx, s.bucket, rawCacheKey(meetingID), minio.StatObjectOptions{})
	if err != nil {
		if resp := minio.ToErrorResponse(err); resp.Code == "NoSuchKey" {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat ASR cache for meeting %s: %w", meetingID, err)
	}
	return true, nil
}

// PutRawTranscript caches the raw ASR output for a recording.
func (s *Store) PutRawTranscript(ctx context.Context, meetingID, raw string) error {
	if err := s.putString(ctx, rawCacheKey(meetingID), raw, "application/json"); err != nil {
		return fmt.Errorf("failed to cache ASR output for meeting %s: %w", meetingID, err)
	}
	return nil
}

// GetRawTranscript reads the cached raw ASR output for a recording.
func (s *Store) GetRawTranscript(ctx context.Context, meetingID string) (string, error) {
	return s.getString(ctx, rawCacheKey(meetingID))
}

// DeleteObjects removes the given objects, skipping empty keys.
func (s *Store) DeleteObjects(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		if key == "" {
			continue
		}
		if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
			return fmt.Errorf("failed to remove object %q: %w", key, err)
		}
	}
	return nil
}

// HealthCheck verifies connectivity and credentials.
func (s *Store) HealthCheck(ctx context.Context) error {
	if _, err := s.client.ListBuckets(ctx); err != nil {
		return fmt.Errorf("MinIO health check failed: %w", err)
	}
	return nil
}

func (s *Store) putString(ctx context.Context, key, data, contentType string) error {
	_, err := s.client.PutObject(ctx, s.bucket, key,
		bytes.NewReader([]byte(data)), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	return err
}

func (s *Store) getString(ctx context.Context, key string) (string, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return "", fmt.Errorf("failed to fetch object %q: %w", key, err)
	}
	defer obj.Close()

	var sb strings.Builder
	if _, err := io.Copy(&sb, obj); err != nil {
		return "", fmt.Errorf("failed to read object %q: %w", key, err)
	}
	return sb.String(), nil
}

func rawCacheKey(meetingID string) string {
	return rawCachePrefix + meetingID + ".json"
}

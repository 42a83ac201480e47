package asr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/TheBrokenPipe/minutes-in-seconds/internal/config"
	"github.com/TheBrokenPipe/minutes-in-seconds/internal/transcript"
	"github.com/TheBrokenPipe/minutes-in-seconds/pkg/logger"
)

// Client talks to the transcription sidecar, which runs speech recognition
// and speaker diarization over an uploaded recording.
type Client struct {
	log     *logger.Logger
	client  *http.Client
	baseURL string
}

func NewClient(cfg config.ASRConfig, log *logger.Logger) *Client {
	return &Client{
		log:     log,
		client:  &http.Client{Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second},
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
	}
}

// Transcribe uploads a recording and returns the raw diarized transcription
// JSON exactly as the sidecar produced it, so it can be cached and reformatted
// without re-running inference.
func (c *Client) Transcribe(ctx context.Context, filename string, audio io.Reader) (string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("failed to build upload form: %w", err)
	}
	if _, err := io.Copy(part, audio); err != nil {
		return "", fmt.Errorf("failed to buffer recording: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to finish upload form: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/transcribe", &body)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("failed to reach transcription service: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read transcription response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("transcription service returned %d: %s", resp.StatusCode, bytes.TrimSpace(raw))
	}
	return string(raw), nil
}

// rawSegment is one diarized segment as the sidecar reports it. The speaker is
// absent when diarization could not attribute the segment.
type rawSegment struct {
	Speaker *string `json:"speaker"`
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Text    string  `json:"text"`
}

// ToJSONL reformats raw diarized transcription output into the JSONL
// transcript format, one utterance per line. Segments without an attributed
// speaker get the unknown-speaker label; segments with empty text are dropped.
func ToJSONL(raw string) (string, error) {
	var parsed struct {
		Segments []rawSegment `json:"segments"`
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return "", fmt.Errorf("failed to parse transcription output: %w", err)
	}

	var lines []string
	for _, seg := range parsed.Segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		u := transcript.Utterance{
			Speaker:   transcript.DefaultSpeaker,
			Text:      text,
			StartTime: seg.Start,
			EndTime:   seg.End,
		}
		if seg.Speaker != nil {
			u.Speaker = *seg.Speaker
		}
		line, err := json.Marshal(u)
		if err != nil {
			return "", fmt.Errorf("failed to encode utterance: %w", err)
		}
		lines = append(lines, string(line))
	}
	return strings.Join(lines, "\n"), nil
}

// Package transcript handles the JSON-Lines transcript format produced by the
// speech-to-text collaborator: one object per line with speaker, text and a
// start/end time span in seconds.
package transcript

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// DefaultSpeaker labels utterances whose segment carries no speaker field.
const DefaultSpeaker = "UNKNOWN_SPEAKER"

// ErrEmptyTranscript is returned when a transcript contains no utterances.
var ErrEmptyTranscript = errors.New("transcript contains no utterances")

// Utterance is a single timestamped, speaker-labelled segment from the ASR
// collaborator. Immutable once produced.
type Utterance struct {
	Speaker   string  `json:"speaker"`
	Text      string  `json:"text"`
	StartTime float64 `json:"start_time"`
	EndTime   float64 `json:"end_time"`
}

// ParseJSONL parses a JSONL transcript into an ordered utterance sequence.
// Segments without a speaker field get DefaultSpeaker; blank lines are
// skipped.
func ParseJSONL(jsonl string) ([]Utterance, error) {
	var utterances []Utterance
	for i, line := range strings.Split(strings.TrimSpace(jsonl), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		var seg struct {
			Speaker   *string `json:"speaker"`
			Text      string  `json:"text"`
			StartTime float64 `json:"start_time"`
			EndTime   float64 `json:"end_time"`
		}
		if err := json.Unmarshal([]byte(line), &seg); err != nil {
			return nil, fmt.Errorf("failed to parse transcript line %d: %w", i+1, err)
		}
		speaker := DefaultSpeaker
		if seg.Speaker != nil && *seg.Speaker != "" {
			speaker = *seg.Speaker
		}
		utterances = append(utterances, Utterance{
			Speaker:   speaker,
			Text:      seg.Text,
			StartTime: seg.StartTime,
			EndTime:   seg.EndTime,
		})
	}
	if len(utterances) == 0 {
		return nil, ErrEmptyTranscript
	}
	return utterances, nil
}

// ToText renders utterances as a plain transcript, one "speaker: text" line
// per utterance. This is the form the summarisation prompts consume.
func ToText(utterances []Utterance) string {
	lines := make([]string, len(utterances))
	for i, u := range utterances {
		lines[i] = fmt.Sprintf("%s: %s", u.Speaker, strings.TrimSpace(u.Text))
	}
	return strings.Join(lines, "\n")
}

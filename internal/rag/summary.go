package rag

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/TheBrokenPipe/minutes-in-seconds/internal/llm"
	"github.com/TheBrokenPipe/minutes-in-seconds/pkg/logger"
)

const (
	abstractSystemPrompt = "You are a highly skilled AI trained in language comprehension " +
		"and summarization. I would like you to read the following text " +
		"and summarize it into a concise abstract paragraph. Aim to " +
		"retain the most important points, providing a coherent and " +
		"readable summary that could help a person understand the main " +
		"points of the discussion without needing to read the entire " +
		"text. Please avoid unnecessary details or tangential points."

	chatSummarySystemPrompt = "You are a highly skilled AI trained in language comprehension " +
		"and summarization. I would like you to read the following " +
		"meeting-summaries and summarize it into a single concise " +
		"abstract paragraph. Aim to retain the most important points, " +
		"providing a coherent and readable summary that could help a " +
		"person understand the main points of the discussions without " +
		"needing to read each of the meeting summaries. Please avoid " +
		"unnecessary details or tangential points."

	extractionSystemPrompt = "You are an expert extraction algorithm. " +
		"Only extract relevant information from the text. " +
		"If you do not know the value of an attribute asked to " +
		"extract, return null for the attribute's value. " +
		"Respond with nothing but a JSON object of the form %s."
)

// MeetingSummary is the full summarisation output for one transcript.
type MeetingSummary struct {
	AbstractSummary string   `json:"abstract_summary"`
	KeyPoints       []string `json:"key_points"`
	ActionItems     []string `json:"action_items"`
}

// Summariser produces abstract summaries, key points and action items from
// speaker-labelled transcript text.
type Summariser struct {
	log   *logger.Logger
	model llm.LLM
}

func NewSummariser(model llm.LLM, log *logger.Logger) *Summariser {
	return &Summariser{log: log, model: model}
}

// SummariseMeeting runs the three extraction passes over one transcript. A
// failed key point or action item extraction degrades to an empty list; a
// failed abstract summary fails the whole call.
func (s *Summariser) SummariseMeeting(ctx context.Context, transcriptText string) (*MeetingSummary, error) {
	abstract, err := s.model.Generate(ctx, abstractSystemPrompt, transcriptText)
	if err != nil {
		return nil, &GenerationError{Op: "abstract summary", Err: err}
	}

	return &MeetingSummary{
		AbstractSummary: stripPreamble(abstract),
		KeyPoints:       s.extractList(ctx, transcriptText, "key_points"),
		ActionItems:     s.extractList(ctx, transcriptText, "action_items"),
	}, nil
}

// SummariseChat condenses several meeting summaries into a single paragraph.
func (s *Summariser) SummariseChat(ctx context.Context, meetingSummaries []string) (string, error) {
	summary, err := s.model.Generate(ctx, chatSummarySystemPrompt, strings.Join(meetingSummaries, "\n"))
	if err != nil {
		return "", &GenerationError{Op: "chat summary", Err: err}
	}
	return stripPreamble(summary), nil
}

// extractList asks the model for a JSON object with a single string-list
// attribute and parses it back out.
func (s *Summariser) extractList(ctx context.Context, text, attribute string) []string {
	shape := `{"` + attribute + `": ["..."]}`
	response, err := s.model.Generate(ctx, strings.Replace(extractionSystemPrompt, "%s", shape, 1), text)
	if err != nil {
		s.log.WithField("attribute", attribute).Warn("extraction failed: " + err.Error())
		return nil
	}

	var parsed map[string][]string
	if err := json.Unmarshal([]byte(stripCodeFence(response)), &parsed); err != nil {
		s.log.WithField("attribute", attribute).Warn("extraction returned unparseable JSON")
		return nil
	}
	return parsed[attribute]
}

// stripPreamble drops the "Here is a summary ..." lead-in that local models
// tend to put before the actual paragraph.
func stripPreamble(summary string) string {
	if strings.HasPrefix(summary, "Here") {
		if i := strings.Index(summary, "\n\n"); i >= 0 {
			return strings.TrimSpace(summary[i:])
		}
	}
	return strings.TrimSpace(summary)
}

// stripCodeFence unwraps a markdown-fenced JSON payload.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

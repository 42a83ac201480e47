package transcript

// MergedLine is one or more consecutive utterances by the same speaker
// collapsed into a single line. Text is the space-joined concatenation and the
// time span covers the first contributor's start to the last contributor's
// end. No two consecutive merged lines share a speaker.
type MergedLine struct {
	Speaker   string
	Text      string
	StartTime float64
	EndTime   float64
}

// MergeSpeakerLines collapses consecutive same-speaker utterances into merged
// lines, preserving transcript time order. Returns ErrEmptyTranscript for an
// empty input.
func MergeSpeakerLines(utterances []Utterance) ([]MergedLine, error) {
	if len(utterances) == 0 {
		return nil, ErrEmptyTranscript
	}

	first := utterances[0]
	current := MergedLine{
		Speaker:   first.Speaker,
		Text:      first.Text,
		StartTime: first.StartTime,
		EndTime:   first.EndTime,
	}

	var merged []MergedLine
	for _, u := range utterances[1:] {
		if u.Speaker == current.Speaker {
			current.Text += " " + u.Text
			current.EndTime = u.EndTime
			continue
		}
		merged = append(merged, current)
		current = MergedLine{
			Speaker:   u.Speaker,
			Text:      u.Text,
			StartTime: u.StartTime,
			EndTime:   u.EndTime,
		}
	}
	merged = append(merged, current)

	return merged, nil
}

/*
Copyright (c) 2025 Bobby Labs

Licensed under the AGPLv3 License.
This file is part of bobby-relay.
*/

package transcribe

import (
	"strings"
	"unicode/utf8"
)

// DefaultConfidenceThreshold is centered on the engine's log-probability
// scale; segments at or below it are treated as unreliable.
const DefaultConfidenceThreshold = -0.5

// FilterSegments drops segments whose confidence does not exceed threshold
// and joins the rest into a single trimmed utterance. Utterances of two or
// fewer characters are residual acoustic artifacts and normalize to "".
func FilterSegments(segments []Segment, threshold float64) string {
	parts := make([]string, 0, len(segments))
	for _, seg := range segments {
		if seg.Confidence <= threshold {
			continue
		}
		if text := strings.TrimSpace(seg.Text); text != "" {
			parts = append(parts, text)
		}
	}

	utterance := strings.TrimSpace(strings.Join(parts, " "))
	if utf8.RuneCountInString(utterance) <= 2 {
		return ""
	}
	return utterance
}

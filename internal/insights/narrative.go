package insights

import (
	"fmt"
	"strings"

	"github.com/intentlens/intentlens/internal/session"
)

// maxNarrativeEvents caps how much of the event sequence is narrated for the
// intent collaborator.
const maxNarrativeEvents = 20

// EventNarrative renders the session's event sequence as numbered lines for
// the intent collaborator's context, capped with a "more events" marker.
func EventNarrative(sess *session.Reconstructed) string {
	sequence := sess.EventSequence()

	var lines []string
	for i, entry := range sequence {
		if i >= maxNarrativeEvents {
			break
		}
		title := entry.Context.PageTitle
		if title == "" {
			title = "Unknown"
		}
		lines = append(lines, fmt.Sprintf("%d. %s - %s", i+1, titleCase(entry.Type), title))
	}

	if len(sequence) > maxNarrativeEvents {
		lines = append(lines, fmt.Sprintf("... and %d more events", len(sequence)-maxNarrativeEvents))
	}

	return strings.Join(lines, "\n")
}

// FrictionNarrative renders one severity-labeled line per pattern.
func FrictionNarrative(patterns []FrictionPattern) string {
	if len(patterns) == 0 {
		return "No friction detected"
	}

	var lines []string
	for i, p := range patterns {
		lines = append(lines, fmt.Sprintf("%d. [%s] %s: %s", i+1, SeverityLabel(p.Severity), p.PatternType, p.Description))
	}
	return strings.Join(lines, "\n")
}

// SeverityLabel buckets a severity for human-readable output.
func SeverityLabel(severity float64) string {
	switch {
	case severity > 0.7:
		return "High"
	case severity > 0.4:
		return "Medium"
	default:
		return "Low"
	}
}

// titleCase turns an event type like "friction.rapid_click" into
// "Friction Rapid Click".
func titleCase(eventType string) string {
	words := strings.FieldsFunc(eventType, func(r rune) bool {
		return r == '.' || r == '_'
	})
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

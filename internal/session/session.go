package session

import (
	"sort"
	"time"

	"github.com/intentlens/intentlens/internal/event"
)

// Reconstructed is an ordered snapshot of one session's events. It is built
// fresh from the reconstructor's buffer on every request; later ingestion does
// not mutate an already-built snapshot.
type Reconstructed struct {
	ID        string
	Events    []event.TelemetryEvent
	StartTime time.Time
	EndTime   time.Time // zero when the session has no events
}

// NewReconstructed sorts the given events ascending by sequence number.
// Ties keep arrival order.
func NewReconstructed(id string, events []event.TelemetryEvent) *Reconstructed {
	sorted := make([]event.TelemetryEvent, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].SequenceNumber < sorted[j].SequenceNumber
	})

	s := &Reconstructed{
		ID:        id,
		Events:    sorted,
		StartTime: time.Now(),
	}
	if len(sorted) > 0 {
		s.StartTime = sorted[0].Timestamp
		s.EndTime = sorted[len(sorted)-1].Timestamp
	}
	return s
}

// DurationMS is the session span in milliseconds, 0 for empty sessions.
func (s *Reconstructed) DurationMS() int64 {
	if s.EndTime.IsZero() {
		return 0
	}
	return s.EndTime.Sub(s.StartTime).Milliseconds()
}

// EventsByType returns the events of one type, in sequence order.
func (s *Reconstructed) EventsByType(t event.Type) []event.TelemetryEvent {
	var out []event.TelemetryEvent
	for _, e := range s.Events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// PageViews counts view transitions.
func (s *Reconstructed) PageViews() int {
	return len(s.EventsByType(event.ViewTransition))
}

// Interactions counts click, submit and input actions.
func (s *Reconstructed) Interactions() int {
	n := 0
	for _, t := range event.InteractionTypes {
		n += len(s.EventsByType(t))
	}
	return n
}

// FrictionEvents returns the client-emitted friction signals, in sequence order.
func (s *Reconstructed) FrictionEvents() []event.TelemetryEvent {
	var out []event.TelemetryEvent
	for _, e := range s.Events {
		for _, t := range event.FrictionTypes {
			if e.Type == t {
				out = append(out, e)
				break
			}
		}
	}
	return out
}

// SequenceEntry is one step of the simplified event sequence handed to the
// intent collaborator.
type SequenceEntry struct {
	Type      string          `json:"type"`
	Timestamp string          `json:"timestamp"`
	Sequence  int             `json:"sequence"`
	Data      map[string]any  `json:"data"`
	Context   SequenceContext `json:"context"`
}

// SequenceContext is the page context subset kept in a SequenceEntry.
type SequenceContext struct {
	URL       string `json:"url"`
	PageTitle string `json:"pageTitle"`
}

// EventSequence flattens the session into narrative-friendly entries.
func (s *Reconstructed) EventSequence() []SequenceEntry {
	entries := make([]SequenceEntry, 0, len(s.Events))
	for _, e := range s.Events {
		entries = append(entries, SequenceEntry{
			Type:      string(e.Type),
			Timestamp: e.Timestamp.Format(time.RFC3339),
			Sequence:  e.SequenceNumber,
			Data:      e.Data,
			Context: SequenceContext{
				URL:       e.Context.URL,
				PageTitle: e.Context.PageTitle,
			},
		})
	}
	return entries
}

// Summary is the derived per-session digest served by the query boundary.
type Summary struct {
	SessionID      string     `json:"session_id"`
	StartTime      time.Time  `json:"start_time"`
	EndTime        *time.Time `json:"end_time,omitempty"`
	DurationMS     int64      `json:"duration_ms"`
	EventCount     int        `json:"event_count"`
	PageViews      int        `json:"page_views"`
	Interactions   int        `json:"interactions"`
	FrictionEvents int        `json:"friction_events"`
}

// Summary derives the session digest from the snapshot.
func (s *Reconstructed) Summary() Summary {
	sum := Summary{
		SessionID:      s.ID,
		StartTime:      s.StartTime,
		DurationMS:     s.DurationMS(),
		EventCount:     len(s.Events),
		PageViews:      s.PageViews(),
		Interactions:   s.Interactions(),
		FrictionEvents: len(s.FrictionEvents()),
	}
	if !s.EndTime.IsZero() {
		end := s.EndTime
		sum.EndTime = &end
	}
	return sum
}

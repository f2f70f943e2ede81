package session

import (
	"sync"

	"github.com/intentlens/intentlens/internal/event"
)

// Reconstructor buffers ingested events keyed by session id and produces
// ordered session views on demand. It is shared process-wide; concurrent
// ingestion for different sessions interleaves freely.
type Reconstructor struct {
	mu       sync.RWMutex
	sessions map[string][]event.TelemetryEvent
}

// NewReconstructor creates an empty reconstructor.
func NewReconstructor() *Reconstructor {
	return &Reconstructor{
		sessions: make(map[string][]event.TelemetryEvent),
	}
}

// AddEvents appends events to their sessions, creating sessions as needed.
// Re-delivered event ids are appended again; nothing in the pipeline
// deduplicates, consumers see exactly what the client sent.
func (r *Reconstructor) AddEvents(events []event.TelemetryEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range events {
		r.sessions[e.SessionID] = append(r.sessions[e.SessionID], e)
	}
}

// Session builds a snapshot of one session. Unknown ids yield a session with
// zero events, never an error.
func (r *Reconstructor) Session(id string) *Reconstructed {
	r.mu.RLock()
	buffered := r.sessions[id]
	events := make([]event.TelemetryEvent, len(buffered))
	copy(events, buffered)
	r.mu.RUnlock()

	return NewReconstructed(id, events)
}

// AllSessions snapshots every currently known session.
func (r *Reconstructor) AllSessions() []*Reconstructed {
	r.mu.RLock()
	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	r.mu.RUnlock()

	sessions := make([]*Reconstructed, 0, len(ids))
	for _, id := range ids {
		sessions = append(sessions, r.Session(id))
	}
	return sessions
}

// SessionCount is the number of distinct session ids currently buffered.
func (r *Reconstructor) SessionCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

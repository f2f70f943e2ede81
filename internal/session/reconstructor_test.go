package session

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/intentlens/intentlens/internal/event"
)

var testBase = time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)

func testEvent(sessionID string, seq int, t event.Type) event.TelemetryEvent {
	return event.TelemetryEvent{
		SchemaVersion:  "1.0",
		Type:           t,
		EventID:        fmt.Sprintf("%s-evt-%d", sessionID, seq),
		SessionID:      sessionID,
		Timestamp:      testBase.Add(time.Duration(seq) * time.Second),
		SequenceNumber: seq,
		Data:           map[string]any{},
	}
}

func TestReconstructor_AddEvents(t *testing.T) {
	r := NewReconstructor()

	r.AddEvents([]event.TelemetryEvent{
		testEvent("a", 1, event.SessionStart),
		testEvent("b", 1, event.SessionStart),
		testEvent("a", 2, event.ActionClick),
	})

	assert.Equal(t, 2, r.SessionCount())
	assert.Len(t, r.Session("a").Events, 2)
	assert.Len(t, r.Session("b").Events, 1)
}

func TestReconstructor_UnknownSessionIsEmpty(t *testing.T) {
	r := NewReconstructor()

	sess := r.Session("missing")
	assert.Equal(t, "missing", sess.ID)
	assert.Empty(t, sess.Events)
	assert.Equal(t, int64(0), sess.DurationMS())
	assert.Equal(t, 0, sess.PageViews())
	assert.Equal(t, 0, sess.Interactions())
	assert.Empty(t, sess.FrictionEvents())
	assert.True(t, sess.EndTime.IsZero())
}

func TestReconstructor_SortsBySequenceNumber(t *testing.T) {
	r := NewReconstructor()

	// Deliberately out of order.
	r.AddEvents([]event.TelemetryEvent{
		testEvent("a", 3, event.ActionClick),
		testEvent("a", 1, event.SessionStart),
		testEvent("a", 2, event.ViewTransition),
	})

	sess := r.Session("a")
	require.Len(t, sess.Events, 3)
	for i, e := range sess.Events {
		assert.Equal(t, i+1, e.SequenceNumber)
	}
	assert.Equal(t, testBase.Add(time.Second), sess.StartTime)
	assert.Equal(t, testBase.Add(3*time.Second), sess.EndTime)
	assert.Equal(t, int64(2000), sess.DurationMS())
}

func TestReconstructor_TiesKeepArrivalOrder(t *testing.T) {
	r := NewReconstructor()

	first := testEvent("a", 1, event.ActionClick)
	second := testEvent("a", 1, event.ActionSubmit)
	second.EventID = "a-evt-1-dup"
	r.AddEvents([]event.TelemetryEvent{first, second})

	sess := r.Session("a")
	require.Len(t, sess.Events, 2)
	assert.Equal(t, "a-evt-1", sess.Events[0].EventID)
	assert.Equal(t, "a-evt-1-dup", sess.Events[1].EventID)
}

func TestReconstructor_DuplicateEventIDsAppend(t *testing.T) {
	r := NewReconstructor()

	e := testEvent("a", 1, event.ActionClick)
	r.AddEvents([]event.TelemetryEvent{e})
	r.AddEvents([]event.TelemetryEvent{e})

	assert.Len(t, r.Session("a").Events, 2)
}

func TestReconstructor_SnapshotIsolation(t *testing.T) {
	r := NewReconstructor()
	r.AddEvents([]event.TelemetryEvent{testEvent("a", 1, event.SessionStart)})

	before := r.Session("a")
	again := r.Session("a")
	assert.Equal(t, before.Events, again.Events)
	assert.Equal(t, before.DurationMS(), again.DurationMS())

	r.AddEvents([]event.TelemetryEvent{testEvent("a", 2, event.ActionClick)})
	assert.Len(t, before.Events, 1, "snapshot must not see later ingestion")
	assert.Len(t, r.Session("a").Events, 2)
}

func TestReconstructor_ConcurrentAddEvents(t *testing.T) {
	r := NewReconstructor()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				r.AddEvents([]event.TelemetryEvent{
					testEvent(fmt.Sprintf("s-%d", n), j, event.ActionClick),
				})
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 10, r.SessionCount())
	for i := 0; i < 10; i++ {
		assert.Len(t, r.Session(fmt.Sprintf("s-%d", i)).Events, 50)
	}
}

func TestReconstructed_Counts(t *testing.T) {
	events := []event.TelemetryEvent{
		testEvent("a", 1, event.SessionStart),
		testEvent("a", 2, event.ViewTransition),
		testEvent("a", 3, event.ViewTransition),
		testEvent("a", 4, event.ActionClick),
		testEvent("a", 5, event.ActionSubmit),
		testEvent("a", 6, event.ActionInput),
		testEvent("a", 7, event.ActionFocus),
		testEvent("a", 8, event.FrictionRapidClick),
		testEvent("a", 9, event.FrictionError),
		testEvent("a", 10, event.SessionEnd),
	}

	sess := NewReconstructed("a", events)
	assert.Equal(t, 2, sess.PageViews())
	// focus is not an interaction
	assert.Equal(t, 3, sess.Interactions())
	assert.Len(t, sess.FrictionEvents(), 2)
	assert.Len(t, sess.EventsByType(event.ViewTransition), 2)
}

func TestReconstructed_EventSequence(t *testing.T) {
	e := testEvent("a", 1, event.ViewTransition)
	e.Context.URL = "https://example.com/pricing"
	e.Context.PageTitle = "Pricing"
	e.Data = map[string]any{"from": "/"}

	sess := NewReconstructed("a", []event.TelemetryEvent{e})
	seq := sess.EventSequence()
	require.Len(t, seq, 1)
	assert.Equal(t, "view.transition", seq[0].Type)
	assert.Equal(t, 1, seq[0].Sequence)
	assert.Equal(t, "Pricing", seq[0].Context.PageTitle)
	assert.Equal(t, e.Timestamp.Format(time.RFC3339), seq[0].Timestamp)
}

func TestReconstructed_Summary(t *testing.T) {
	t.Run("empty session has no end time", func(t *testing.T) {
		sum := NewReconstructed("a", nil).Summary()
		assert.Nil(t, sum.EndTime)
		assert.Equal(t, int64(0), sum.DurationMS)
		assert.Equal(t, 0, sum.EventCount)
	})

	t.Run("populated session", func(t *testing.T) {
		sum := NewReconstructed("a", []event.TelemetryEvent{
			testEvent("a", 1, event.SessionStart),
			testEvent("a", 2, event.ViewTransition),
		}).Summary()
		require.NotNil(t, sum.EndTime)
		assert.Equal(t, int64(1000), sum.DurationMS)
		assert.Equal(t, 2, sum.EventCount)
		assert.Equal(t, 1, sum.PageViews)
	})
}

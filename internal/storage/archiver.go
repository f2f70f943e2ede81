package storage

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/intentlens/intentlens/internal/config"
	"github.com/intentlens/intentlens/internal/event"
	"github.com/intentlens/intentlens/internal/insights"
)

// Archiver buffers accepted events and generated summaries and flushes them
// to ClickHouse in batches. A nil Archiver is a no-op everywhere, so callers
// never guard for the archive being unconfigured.
type Archiver struct {
	ch       *ClickHouse
	batchCfg config.ArchiveConfig

	eventBuffer   []EventRow
	insightBuffer []InsightRow

	mu     sync.Mutex
	ticker *time.Ticker
	done   chan struct{}
}

// NewArchiver creates an archiver over an open connection and starts its
// flush loop.
func NewArchiver(ch *ClickHouse, batchCfg config.ArchiveConfig) *Archiver {
	a := &Archiver{
		ch:            ch,
		batchCfg:      batchCfg,
		eventBuffer:   make([]EventRow, 0, batchCfg.BatchSize),
		insightBuffer: make([]InsightRow, 0, batchCfg.BatchSize),
		done:          make(chan struct{}),
	}

	a.ticker = time.NewTicker(batchCfg.FlushInterval)
	go a.flushLoop()

	return a
}

// ArchiveEvents enqueues accepted events.
func (a *Archiver) ArchiveEvents(events []event.TelemetryEvent) {
	if a == nil {
		return
	}

	rows := make([]EventRow, 0, len(events))
	for _, e := range events {
		data, err := json.Marshal(e.Data)
		if err != nil {
			data = []byte("{}")
		}
		rows = append(rows, EventRow{
			EventID:        e.EventID,
			SessionID:      e.SessionID,
			EventType:      string(e.Type),
			Timestamp:      e.Timestamp,
			SequenceNumber: uint32(e.SequenceNumber),
			PageURL:        e.Context.URL,
			PageTitle:      e.Context.PageTitle,
			DeviceType:     e.Context.Device.Type,
			Country:        e.Context.Country,
			City:           e.Context.City,
			Data:           string(data),
		})
	}

	a.mu.Lock()
	a.eventBuffer = append(a.eventBuffer, rows...)
	shouldFlush := len(a.eventBuffer) >= a.batchCfg.BatchSize
	a.mu.Unlock()

	if shouldFlush {
		a.Flush()
	}
}

// ArchiveInsight enqueues one generated summary.
func (a *Archiver) ArchiveInsight(summary *insights.Summary) {
	if a == nil {
		return
	}

	hypotheses, err := json.Marshal(summary.IntentHypotheses)
	if err != nil {
		hypotheses = []byte("[]")
	}

	patternTypes := make([]string, 0, len(summary.FrictionPatterns))
	for _, p := range summary.FrictionPatterns {
		patternTypes = append(patternTypes, p.PatternType)
	}

	row := InsightRow{
		InsightID:       uuid.New(),
		SessionID:       summary.SessionID,
		Timestamp:       summary.Timestamp,
		ConfidenceScore: summary.ConfidenceScore,
		FrictionCount:   uint32(len(summary.FrictionPatterns)),
		PatternTypes:    patternTypes,
		Recommendations: summary.Recommendations,
		Hypotheses:      string(hypotheses),
	}

	a.mu.Lock()
	a.insightBuffer = append(a.insightBuffer, row)
	shouldFlush := len(a.insightBuffer) >= a.batchCfg.BatchSize
	a.mu.Unlock()

	if shouldFlush {
		a.Flush()
	}
}

func (a *Archiver) flushLoop() {
	for {
		select {
		case <-a.done:
			return
		case <-a.ticker.C:
			a.Flush()
		}
	}
}

// Flush writes buffered rows to ClickHouse.
func (a *Archiver) Flush() {
	if a == nil {
		return
	}

	a.mu.Lock()
	if len(a.eventBuffer) == 0 && len(a.insightBuffer) == 0 {
		a.mu.Unlock()
		return
	}
	events := a.eventBuffer
	summaries := a.insightBuffer
	a.eventBuffer = make([]EventRow, 0, a.batchCfg.BatchSize)
	a.insightBuffer = make([]InsightRow, 0, a.batchCfg.BatchSize)
	a.mu.Unlock()

	ctx := context.Background()
	if err := a.ch.InsertEvents(ctx, events); err != nil {
		log.Error().Err(err).Int("count", len(events)).Msg("Failed to archive events")
	}
	if err := a.ch.InsertInsights(ctx, summaries); err != nil {
		log.Error().Err(err).Int("count", len(summaries)).Msg("Failed to archive insights")
	}
}

// Stop flushes remaining rows and stops the flush loop.
func (a *Archiver) Stop() {
	if a == nil {
		return
	}
	a.ticker.Stop()
	close(a.done)
	a.Flush()
}

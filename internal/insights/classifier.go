package insights

import (
	"fmt"
	"sync"

	"github.com/intentlens/intentlens/internal/config"
	"github.com/intentlens/intentlens/internal/event"
	"github.com/intentlens/intentlens/internal/session"
)

// History is the cumulative record of every pattern a classifier has emitted.
// It is injectable so tests can isolate a single session's analysis.
type History struct {
	mu       sync.Mutex
	patterns []FrictionPattern
}

// NewHistory creates an empty history.
func NewHistory() *History {
	return &History{}
}

// Record appends patterns to the history.
func (h *History) Record(patterns []FrictionPattern) {
	h.mu.Lock()
	h.patterns = append(h.patterns, patterns...)
	h.mu.Unlock()
}

// SeveritySummary aggregates severity over everything recorded so far.
func (h *History) SeveritySummary() SeveritySummary {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.patterns) == 0 {
		return SeveritySummary{}
	}

	var sum, max float64
	for _, p := range h.patterns {
		sum += p.Severity
		if p.Severity > max {
			max = p.Severity
		}
	}
	return SeveritySummary{
		Average: sum / float64(len(h.patterns)),
		Max:     max,
		Count:   len(h.patterns),
	}
}

// Classifier converts a reconstructed session into friction patterns using
// four independent rule groups. Rules are deterministic and stateless per
// session; results also accumulate into the history.
type Classifier struct {
	cfg     config.ClassifierConfig
	history *History
}

// NewClassifier creates a classifier. Zero-valued thresholds take their
// defaults; a nil history gets a fresh one.
func NewClassifier(cfg config.ClassifierConfig, history *History) *Classifier {
	cfg.ApplyDefaults()
	if history == nil {
		history = NewHistory()
	}
	return &Classifier{cfg: cfg, history: history}
}

// AnalyzeSession runs all rule groups and returns their findings concatenated
// in order: performance, affordance, cognitive, expectation.
func (c *Classifier) AnalyzeSession(sess *session.Reconstructed) []FrictionPattern {
	var patterns []FrictionPattern
	patterns = append(patterns, c.detectPerformanceDegradation(sess)...)
	patterns = append(patterns, c.detectAffordanceConfusion(sess)...)
	patterns = append(patterns, c.detectCognitiveOverload(sess)...)
	patterns = append(patterns, c.detectExpectationMismatch(sess)...)

	c.history.Record(patterns)
	return patterns
}

// SeveritySummary aggregates over the classifier's entire history, not just
// the last analyzed session.
func (c *Classifier) SeveritySummary() SeveritySummary {
	return c.history.SeveritySummary()
}

func (c *Classifier) detectPerformanceDegradation(sess *session.Reconstructed) []FrictionPattern {
	var patterns []FrictionPattern

	for _, e := range sess.EventsByType(event.PerformanceLoad) {
		loadTime := e.LoadTime()
		if loadTime > c.cfg.SlowLoadThresholdMS {
			patterns = append(patterns, FrictionPattern{
				PatternType: PatternPerformanceDegradation,
				Severity:    clamp01(loadTime / c.cfg.LoadTimeScaleMS),
				Timestamp:   e.Timestamp,
				Description: fmt.Sprintf("Slow page load detected: %.0fms", loadTime),
				EventID:     e.EventID,
			})
		}
	}

	// Every latency measurement produces a finding, scaled by the latency.
	for _, e := range sess.EventsByType(event.PerformanceLatency) {
		latency := e.Latency()
		patterns = append(patterns, FrictionPattern{
			PatternType: PatternPerformanceDegradation,
			Severity:    clamp01(latency / c.cfg.LatencyScaleMS),
			Timestamp:   e.Timestamp,
			Description: fmt.Sprintf("High latency for %s: %.0fms", e.Operation(), latency),
			EventID:     e.EventID,
		})
	}

	return patterns
}

func (c *Classifier) detectAffordanceConfusion(sess *session.Reconstructed) []FrictionPattern {
	var patterns []FrictionPattern

	for _, e := range sess.EventsByType(event.FrictionRapidClick) {
		patterns = append(patterns, FrictionPattern{
			PatternType: PatternAffordanceConfusion,
			Severity:    clamp01(e.ClickCount() / c.cfg.RapidClickScale),
			Timestamp:   e.Timestamp,
			Description: fmt.Sprintf("Rapid clicking on '%s' suggests unclear affordance or missing feedback", e.Target()),
			EventID:     e.EventID,
		})
	}

	for _, e := range sess.EventsByType(event.FrictionNavigationReversal) {
		if e.TimeOnPage() < c.cfg.QuickReversalMS {
			patterns = append(patterns, FrictionPattern{
				PatternType: PatternAffordanceConfusion,
				Severity:    c.cfg.QuickReversalSeverity,
				Timestamp:   e.Timestamp,
				Description: "Quick navigation reversal suggests user didn't find expected content",
				EventID:     e.EventID,
			})
		}
	}

	return patterns
}

func (c *Classifier) detectCognitiveOverload(sess *session.Reconstructed) []FrictionPattern {
	var patterns []FrictionPattern

	for _, e := range sess.EventsByType(event.FrictionFormAbandonment) {
		completed := e.FieldsCompleted()
		total := e.TotalFields()
		completionRate := 0.0
		if total > 0 {
			completionRate = completed / total
		}
		// Earlier abandonment means higher severity.
		patterns = append(patterns, FrictionPattern{
			PatternType: PatternCognitiveOverload,
			Severity:    clamp01(1.0 - completionRate),
			Timestamp:   e.Timestamp,
			Description: fmt.Sprintf("Form abandoned after completing %.0f/%.0f fields", completed, total),
			EventID:     e.EventID,
		})
	}

	return patterns
}

func (c *Classifier) detectExpectationMismatch(sess *session.Reconstructed) []FrictionPattern {
	var patterns []FrictionPattern

	for _, e := range sess.EventsByType(event.FrictionError) {
		patterns = append(patterns, FrictionPattern{
			PatternType: PatternExpectationMismatch,
			Severity:    c.cfg.ErrorSeverity,
			Timestamp:   e.Timestamp,
			Description: fmt.Sprintf("Error encountered: %s", e.ErrorType()),
			EventID:     e.EventID,
		})
	}

	// Repeated reversals fold into one finding anchored to the last one.
	reversals := sess.EventsByType(event.FrictionNavigationReversal)
	if len(reversals) >= c.cfg.RepeatedReversalMin {
		last := reversals[len(reversals)-1]
		patterns = append(patterns, FrictionPattern{
			PatternType: PatternExpectationMismatch,
			Severity:    c.cfg.RepeatedReversalSeverity,
			Timestamp:   last.Timestamp,
			Description: fmt.Sprintf("Multiple navigation reversals (%d) suggest unmet expectations", len(reversals)),
			EventID:     last.EventID,
		})
	}

	return patterns
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

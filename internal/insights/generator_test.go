package insights

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/intentlens/intentlens/internal/event"
	"github.com/intentlens/intentlens/internal/session"
)

// stubInferrer is a canned intent collaborator.
type stubInferrer struct {
	hypotheses []IntentHypothesis
	err        error
	called     bool
}

func (s *stubInferrer) InferIntent(ctx context.Context, sess *session.Reconstructed, patterns []FrictionPattern) ([]IntentHypothesis, error) {
	s.called = true
	if s.err != nil {
		return nil, s.err
	}
	return s.hypotheses, nil
}

func latencySession(count int) *session.Reconstructed {
	events := make([]event.TelemetryEvent, 0, count)
	for i := 0; i < count; i++ {
		events = append(events, testEvent(i+1, event.PerformanceLatency, map[string]any{"latency": 1000.0}))
	}
	return session.NewReconstructed("sess-1", events)
}

func newTestGenerator(inferrer Inferrer) *Generator {
	return NewGenerator(newTestClassifier(), inferrer, time.Second)
}

func TestGenerateInsights_FallbackWithoutInferrer(t *testing.T) {
	g := newTestGenerator(nil)
	sess := testSession(
		testEvent(1, event.SessionStart, nil),
		testEvent(2, event.ViewTransition, nil),
		testEvent(3, event.ViewTransition, nil),
	)

	summary := g.GenerateInsights(context.Background(), sess)

	require.Len(t, summary.IntentHypotheses, 1)
	h := summary.IntentHypotheses[0]
	assert.Equal(t, 0.5, h.Confidence)
	assert.Contains(t, h.Hypothesis, "unavailable")
	require.Len(t, h.SupportingEvidence, 2)
	assert.Equal(t, "Session included 3 events", h.SupportingEvidence[0])
	assert.Equal(t, "User visited 2 pages", h.SupportingEvidence[1])
}

func TestGenerateInsights_FallbackOnInferrerError(t *testing.T) {
	stub := &stubInferrer{err: errors.New("upstream timeout")}
	g := newTestGenerator(stub)

	summary := g.GenerateInsights(context.Background(), testSession(testEvent(1, event.SessionStart, nil)))

	assert.True(t, stub.called)
	require.Len(t, summary.IntentHypotheses, 1)
	assert.Equal(t, 0.5, summary.IntentHypotheses[0].Confidence)
}

func TestGenerateInsights_UsesInferrerHypotheses(t *testing.T) {
	stub := &stubInferrer{hypotheses: []IntentHypothesis{
		{Hypothesis: "User was comparing pricing plans", Confidence: 0.85},
	}}
	g := newTestGenerator(stub)

	summary := g.GenerateInsights(context.Background(), testSession(testEvent(1, event.ViewTransition, nil)))

	require.Len(t, summary.IntentHypotheses, 1)
	assert.Equal(t, "User was comparing pricing plans", summary.IntentHypotheses[0].Hypothesis)
}

func TestGenerateInsights_TimestampIsSessionEnd(t *testing.T) {
	g := newTestGenerator(nil)
	sess := testSession(
		testEvent(1, event.SessionStart, nil),
		testEvent(5, event.SessionEnd, nil),
	)

	summary := g.GenerateInsights(context.Background(), sess)
	assert.Equal(t, sess.EndTime, summary.Timestamp)
}

func TestConfidenceScore(t *testing.T) {
	t.Run("one hypothesis and four patterns", func(t *testing.T) {
		stub := &stubInferrer{hypotheses: []IntentHypothesis{{Hypothesis: "x", Confidence: 0.9}}}
		g := newTestGenerator(stub)

		summary := g.GenerateInsights(context.Background(), latencySession(4))
		require.Len(t, summary.FrictionPatterns, 4)
		// round(0.7*0.9 + 0.3*0.4, 2)
		assert.Equal(t, 0.75, summary.ConfidenceScore)
	})

	t.Run("no hypotheses", func(t *testing.T) {
		stub := &stubInferrer{hypotheses: []IntentHypothesis{}}
		g := newTestGenerator(stub)

		summary := g.GenerateInsights(context.Background(), latencySession(2))
		assert.Equal(t, 0.06, summary.ConfidenceScore)
	})

	t.Run("friction factor caps at one", func(t *testing.T) {
		stub := &stubInferrer{hypotheses: []IntentHypothesis{{Hypothesis: "x", Confidence: 1.0}}}
		g := newTestGenerator(stub)

		summary := g.GenerateInsights(context.Background(), latencySession(25))
		assert.Equal(t, 1.0, summary.ConfidenceScore)
	})
}

func TestRecommendations(t *testing.T) {
	t.Run("smooth session", func(t *testing.T) {
		g := newTestGenerator(nil)
		summary := g.GenerateInsights(context.Background(), testSession(testEvent(1, event.ViewTransition, nil)))

		require.Len(t, summary.Recommendations, 1)
		assert.Contains(t, summary.Recommendations[0], "smooth")
	})

	t.Run("high friction", func(t *testing.T) {
		g := newTestGenerator(nil)
		summary := g.GenerateInsights(context.Background(), latencySession(5))

		require.NotEmpty(t, summary.Recommendations)
		last := summary.Recommendations[len(summary.Recommendations)-1]
		assert.Contains(t, last, "High friction")
	})

	t.Run("critical performance above mean severity 0.7", func(t *testing.T) {
		g := newTestGenerator(nil)
		summary := g.GenerateInsights(context.Background(), testSession(
			testEvent(1, event.PerformanceLatency, map[string]any{"latency": 4500.0}),
		))

		assert.Contains(t, summary.Recommendations[0], "Critical")
	})

	t.Run("moderate performance gets monitoring advice", func(t *testing.T) {
		g := newTestGenerator(nil)
		summary := g.GenerateInsights(context.Background(), testSession(
			testEvent(1, event.PerformanceLatency, map[string]any{"latency": 1000.0}),
		))

		assert.Contains(t, summary.Recommendations[0], "Monitor")
	})

	t.Run("one recommendation per friction type", func(t *testing.T) {
		g := newTestGenerator(nil)
		summary := g.GenerateInsights(context.Background(), testSession(
			testEvent(1, event.PerformanceLatency, map[string]any{"latency": 1000.0}),
			testEvent(2, event.FrictionRapidClick, map[string]any{"clickCount": 6.0}),
			testEvent(3, event.FrictionFormAbandonment, map[string]any{"fieldsCompleted": 1.0, "totalFields": 4.0}),
			testEvent(4, event.FrictionError, nil),
		))

		require.Len(t, summary.Recommendations, 4)
		assert.Contains(t, summary.Recommendations[0], "performance")
		assert.Contains(t, summary.Recommendations[1], "visual feedback")
		assert.Contains(t, summary.Recommendations[2], "forms")
		assert.Contains(t, summary.Recommendations[3], "expectations")
	})

	t.Run("struggling user hypothesis", func(t *testing.T) {
		stub := &stubInferrer{hypotheses: []IntentHypothesis{
			{Hypothesis: "User was unable to complete checkout", Confidence: 0.8},
			{Hypothesis: "User browsed the docs", Confidence: 0.9},
			{Hypothesis: "User abandoned signup", Confidence: 0.5}, // below threshold
		}}
		g := newTestGenerator(stub)

		summary := g.GenerateInsights(context.Background(), testSession(testEvent(1, event.ViewTransition, nil)))

		var struggling []string
		for _, r := range summary.Recommendations {
			if len(r) > 0 && r[0] == 'U' {
				struggling = append(struggling, r)
			}
		}
		require.Len(t, struggling, 1)
		assert.Equal(t, "User appears to be struggling with: was unable to complete checkout", struggling[0])
	})
}

func TestGenerateInsightsRecordsHistory(t *testing.T) {
	g := newTestGenerator(nil)
	for i := 0; i < 3; i++ {
		g.GenerateInsights(context.Background(), testSession(
			testEvent(1, event.FrictionError, map[string]any{"errorType": fmt.Sprintf("E%d", i)}),
		))
	}
	assert.Equal(t, 3, g.SeveritySummary().Count)
}

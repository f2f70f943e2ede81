package insights

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/intentlens/intentlens/internal/session"
)

// Generator orchestrates friction classification and intent inference into a
// per-session insight summary.
type Generator struct {
	classifier   *Classifier
	inferrer     Inferrer // nil when no collaborator is configured
	inferTimeout time.Duration
}

// NewGenerator creates a generator. The inferrer may be nil; every session
// then takes the fallback hypothesis path.
func NewGenerator(classifier *Classifier, inferrer Inferrer, inferTimeout time.Duration) *Generator {
	if inferTimeout == 0 {
		inferTimeout = 30 * time.Second
	}
	return &Generator{
		classifier:   classifier,
		inferrer:     inferrer,
		inferTimeout: inferTimeout,
	}
}

// GenerateInsights analyzes one session end to end. Intent inference failure
// never surfaces to the caller; it is absorbed into a fallback hypothesis.
func (g *Generator) GenerateInsights(ctx context.Context, sess *session.Reconstructed) *Summary {
	patterns := g.classifier.AnalyzeSession(sess)
	hypotheses := g.inferIntent(ctx, sess, patterns)
	recommendations := deriveRecommendations(patterns, hypotheses)

	timestamp := sess.EndTime
	if timestamp.IsZero() {
		timestamp = sess.StartTime
	}

	return &Summary{
		SessionID:        sess.ID,
		Timestamp:        timestamp,
		IntentHypotheses: hypotheses,
		FrictionPatterns: patterns,
		Recommendations:  recommendations,
		ConfidenceScore:  confidenceScore(hypotheses, patterns),
	}
}

// SeveritySummary exposes the classifier's cumulative history.
func (g *Generator) SeveritySummary() SeveritySummary {
	return g.classifier.SeveritySummary()
}

// inferIntent awaits the collaborator without holding any cross-session lock;
// other in-flight analyses keep making progress during the call.
func (g *Generator) inferIntent(ctx context.Context, sess *session.Reconstructed, patterns []FrictionPattern) []IntentHypothesis {
	if g.inferrer == nil {
		return g.fallbackHypotheses(sess)
	}

	ctx, cancel := context.WithTimeout(ctx, g.inferTimeout)
	defer cancel()

	hypotheses, err := g.inferrer.InferIntent(ctx, sess, patterns)
	if err != nil {
		log.Warn().Err(err).Str("session_id", sess.ID).Msg("Intent inference unavailable, using fallback hypothesis")
		return g.fallbackHypotheses(sess)
	}
	return hypotheses
}

// fallbackHypotheses is the deterministic substitute for a failed or
// unconfigured collaborator: exactly one hypothesis at confidence 0.5.
func (g *Generator) fallbackHypotheses(sess *session.Reconstructed) []IntentHypothesis {
	timestamp := sess.EndTime
	if timestamp.IsZero() {
		timestamp = sess.StartTime
	}

	return []IntentHypothesis{{
		Hypothesis: "User interacted with the application (intent inference unavailable)",
		Confidence: 0.5,
		SupportingEvidence: []string{
			fmt.Sprintf("Session included %d events", len(sess.Events)),
			fmt.Sprintf("User visited %d pages", sess.PageViews()),
		},
		Timestamp: timestamp,
	}}
}

// deriveRecommendations evaluates every condition independently; multiple
// recommendations may co-occur.
func deriveRecommendations(patterns []FrictionPattern, hypotheses []IntentHypothesis) []string {
	var recommendations []string

	byType := make(map[string][]FrictionPattern)
	for _, p := range patterns {
		byType[p.PatternType] = append(byType[p.PatternType], p)
	}

	if perf, ok := byType[PatternPerformanceDegradation]; ok {
		var sum float64
		for _, p := range perf {
			sum += p.Severity
		}
		if sum/float64(len(perf)) > 0.7 {
			recommendations = append(recommendations, "Critical: optimize page load performance and reduce interaction latency")
		} else {
			recommendations = append(recommendations, "Monitor and improve performance metrics for better user experience")
		}
	}

	if _, ok := byType[PatternAffordanceConfusion]; ok {
		recommendations = append(recommendations, "Improve visual feedback for interactive elements (loading states, hover effects, click acknowledgment)")
	}

	if _, ok := byType[PatternCognitiveOverload]; ok {
		recommendations = append(recommendations, "Simplify forms and reduce cognitive load (progressive disclosure, better labels, inline validation)")
	}

	if _, ok := byType[PatternExpectationMismatch]; ok {
		recommendations = append(recommendations, "Align UI behavior with user expectations (clearer error messages, better navigation cues)")
	}

	for _, h := range hypotheses {
		if h.Confidence <= 0.7 {
			continue
		}
		lower := strings.ToLower(h.Hypothesis)
		if strings.Contains(lower, "abandon") || strings.Contains(lower, "unable") {
			recommendations = append(recommendations,
				"User appears to be struggling with: "+strings.ReplaceAll(lower, "user ", ""))
		}
	}

	if len(patterns) == 0 {
		recommendations = append(recommendations, "Session appears smooth with no major friction detected")
	} else if len(patterns) >= 5 {
		recommendations = append(recommendations, "High friction detected across multiple areas, prioritize UX improvements")
	}

	return recommendations
}

// confidenceScore combines the strongest hypothesis with friction detection
// certainty: 0.7*maxConfidence + 0.3*min(1, patterns/10), rounded to 2 places.
func confidenceScore(hypotheses []IntentHypothesis, patterns []FrictionPattern) float64 {
	var intentConfidence float64
	for _, h := range hypotheses {
		if h.Confidence > intentConfidence {
			intentConfidence = h.Confidence
		}
	}

	frictionFactor := math.Min(1.0, float64(len(patterns))/10)

	return math.Round((intentConfidence*0.7+frictionFactor*0.3)*100) / 100
}

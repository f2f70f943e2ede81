package insights

import (
	"context"
	"time"

	"github.com/intentlens/intentlens/internal/session"
)

// Friction pattern categories.
const (
	PatternPerformanceDegradation = "performance_degradation"
	PatternAffordanceConfusion    = "affordance_confusion"
	PatternCognitiveOverload      = "cognitive_overload"
	PatternExpectationMismatch    = "expectation_mismatch"
)

// FrictionPattern is one detected friction instance. Severity is always
// within [0.0, 1.0].
type FrictionPattern struct {
	PatternType string    `json:"pattern_type"`
	Severity    float64   `json:"severity"`
	Timestamp   time.Time `json:"timestamp"`
	Description string    `json:"description"`
	EventID     string    `json:"event_id"`
}

// IntentHypothesis is one candidate explanation of user intent, produced by
// the inference collaborator or its fallback path.
type IntentHypothesis struct {
	Hypothesis         string    `json:"hypothesis"`
	Confidence         float64   `json:"confidence"`
	SupportingEvidence []string  `json:"supporting_evidence"`
	Timestamp          time.Time `json:"timestamp"`
}

// Summary is the aggregate insight artifact for one session.
type Summary struct {
	SessionID        string             `json:"session_id"`
	Timestamp        time.Time          `json:"timestamp"`
	IntentHypotheses []IntentHypothesis `json:"intent_hypotheses"`
	FrictionPatterns []FrictionPattern  `json:"friction_patterns"`
	Recommendations  []string           `json:"recommendations"`
	ConfidenceScore  float64            `json:"confidence_score"`
}

// SeveritySummary aggregates severity over the classifier's history.
type SeveritySummary struct {
	Average float64 `json:"average"`
	Max     float64 `json:"max"`
	Count   int     `json:"count"`
}

// Inferrer is the external intent-inference collaborator. Implementations may
// fail; the generator recovers with a deterministic fallback hypothesis.
type Inferrer interface {
	InferIntent(ctx context.Context, sess *session.Reconstructed, patterns []FrictionPattern) ([]IntentHypothesis, error)
}

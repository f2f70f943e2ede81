package event

import (
	"encoding/json"
	"time"
)

// Type identifies what the client observed.
type Type string

const (
	SessionStart  Type = "session.start"
	SessionResume Type = "session.resume"
	SessionPause  Type = "session.pause"
	SessionEnd    Type = "session.end"

	ViewTransition    Type = "view.transition"
	NavigationBack    Type = "navigation.back"
	NavigationForward Type = "navigation.forward"

	ActionClick  Type = "action.click"
	ActionSubmit Type = "action.submit"
	ActionFocus  Type = "action.focus"
	ActionInput  Type = "action.input"

	PerformanceLoad    Type = "performance.load"
	PerformanceLatency Type = "performance.latency"

	FrictionRapidClick         Type = "friction.rapid_click"
	FrictionNavigationReversal Type = "friction.navigation_reversal"
	FrictionError              Type = "friction.error"
	FrictionFormAbandonment    Type = "friction.form_abandonment"
)

// InteractionTypes are the event types counted as user interactions.
var InteractionTypes = []Type{ActionClick, ActionSubmit, ActionInput}

// FrictionTypes are the client-emitted friction signal types.
var FrictionTypes = []Type{
	FrictionRapidClick,
	FrictionNavigationReversal,
	FrictionError,
	FrictionFormAbandonment,
}

// Viewport holds the client viewport dimensions.
type Viewport struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// DeviceInfo describes the client device.
type DeviceInfo struct {
	Type         string `json:"type"`
	TouchEnabled bool   `json:"touchEnabled"`
}

// Context carries the page and device context an event was observed in.
type Context struct {
	URL       string     `json:"url,omitempty"`
	PageTitle string     `json:"pageTitle,omitempty"`
	Viewport  Viewport   `json:"viewport"`
	Device    DeviceInfo `json:"device"`
	UserAgent string     `json:"userAgent,omitempty"`
	Country   string     `json:"country,omitempty"`
	City      string     `json:"city,omitempty"`
}

// TelemetryEvent is a single client-observed occurrence. Events are immutable
// once ingested; sequence number defines total order within a session.
type TelemetryEvent struct {
	SchemaVersion  string         `json:"schemaVersion"`
	Type           Type           `json:"type"`
	EventID        string         `json:"eventId"`
	SessionID      string         `json:"sessionId"`
	Timestamp      time.Time      `json:"timestamp"`
	SequenceNumber int            `json:"sequenceNumber"`
	Context        Context        `json:"context"`
	Data           map[string]any `json:"data"`
}

// Batch is the envelope the client SDK ships events in.
type Batch struct {
	SchemaVersion string           `json:"schemaVersion"`
	BatchID       string           `json:"batchId"`
	Timestamp     time.Time        `json:"timestamp"`
	Events        []TelemetryEvent `json:"events"`
}

// Number reads a numeric payload field. Missing or non-numeric values yield
// the fallback so classifier arithmetic never has to guard reads.
func (e *TelemetryEvent) Number(key string, fallback float64) float64 {
	switch v := e.Data[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case json.Number:
		if f, err := v.Float64(); err == nil {
			return f
		}
	}
	return fallback
}

// Text reads a string payload field, returning the fallback when absent.
func (e *TelemetryEvent) Text(key, fallback string) string {
	if v, ok := e.Data[key].(string); ok && v != "" {
		return v
	}
	return fallback
}

// LoadTime is the page load duration in ms from performance.load events.
func (e *TelemetryEvent) LoadTime() float64 { return e.Number("loadTime", 0) }

// Latency is the interaction latency in ms from performance.latency events.
func (e *TelemetryEvent) Latency() float64 { return e.Number("latency", 0) }

// Operation names the operation a latency measurement belongs to.
func (e *TelemetryEvent) Operation() string { return e.Text("operation", "unknown") }

// ClickCount is the burst size from friction.rapid_click events.
func (e *TelemetryEvent) ClickCount() float64 { return e.Number("clickCount", 0) }

// Target names the element a rapid-click burst landed on.
func (e *TelemetryEvent) Target() string { return e.Text("target", "unknown") }

// TimeOnPage is the dwell time in ms before a navigation reversal.
func (e *TelemetryEvent) TimeOnPage() float64 { return e.Number("timeOnPage", 0) }

// ErrorType names the error class from friction.error events.
func (e *TelemetryEvent) ErrorType() string { return e.Text("errorType", "unknown") }

// FieldsCompleted is the number of form fields filled before abandonment.
func (e *TelemetryEvent) FieldsCompleted() float64 { return e.Number("fieldsCompleted", 0) }

// TotalFields is the form size; defaults to 1 so it is a safe denominator.
func (e *TelemetryEvent) TotalFields() float64 { return e.Number("totalFields", 1) }

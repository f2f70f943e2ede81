package handler

import (
	"encoding/json"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/intentlens/intentlens/internal/alert"
	"github.com/intentlens/intentlens/internal/enricher"
	"github.com/intentlens/intentlens/internal/event"
	"github.com/intentlens/intentlens/internal/insights"
	"github.com/intentlens/intentlens/internal/session"
	"github.com/intentlens/intentlens/internal/storage"
	"github.com/intentlens/intentlens/internal/validation"
)

// maxSummarySessions caps how many sessions the all-sessions insight digest
// analyzes per request.
const maxSummarySessions = 10

// Handler is the HTTP boundary over the analysis core.
type Handler struct {
	reconstructor *session.Reconstructor
	generator     *insights.Generator
	validator     *validation.Validator
	enricher      *enricher.Enricher
	archiver      *storage.Archiver
	alerts        *alert.Publisher
}

// New wires the HTTP boundary. Validator, archiver and alerts may be nil.
func New(
	reconstructor *session.Reconstructor,
	generator *insights.Generator,
	validator *validation.Validator,
	enr *enricher.Enricher,
	archiver *storage.Archiver,
	alerts *alert.Publisher,
) *Handler {
	return &Handler{
		reconstructor: reconstructor,
		generator:     generator,
		validator:     validator,
		enricher:      enr,
		archiver:      archiver,
		alerts:        alerts,
	}
}

// Routes registers all endpoints on the router.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.HandleRoot)
	r.Get("/health", h.HandleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/events/batch", h.HandleBatch)
		r.Get("/events/stats", h.HandleStats)
		r.Get("/sessions", h.HandleSessions)
		r.Get("/sessions/{sessionID}", h.HandleSession)
		r.Get("/insights/severity", h.HandleSeverity)
		r.Get("/insights/summary/all", h.HandleInsightsSummary)
		r.Get("/insights/{sessionID}", h.HandleInsights)
	})
}

// BatchResponse acknowledges an ingested batch.
type BatchResponse struct {
	Status         string `json:"status"`
	BatchID        string `json:"batch_id"`
	EventsReceived int    `json:"events_received"`
	TotalSessions  int    `json:"total_sessions"`
}

func (h *Handler) HandleRoot(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"name":    "Intent Lens API",
		"version": "0.1.0",
		"status":  "operational",
	})
}

func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// HandleBatch ingests a batch of telemetry events. Events arrive validated
// against the client schema; the core appends them as-is.
func (h *Handler) HandleBatch(w http.ResponseWriter, r *http.Request) {
	var batch event.Batch
	if err := json.NewDecoder(r.Body).Decode(&batch); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if h.validator.Enabled() {
		projectID, err := h.validator.ValidateAPIKey(r.Context(), r.Header.Get("X-API-Key"))
		if err != nil {
			respondError(w, http.StatusUnauthorized, "Invalid API key")
			return
		}
		if !h.validator.CheckRateLimit(r.Context(), projectID) {
			respondError(w, http.StatusTooManyRequests, "Rate limit exceeded")
			return
		}
	}

	userAgent := r.Header.Get("User-Agent")
	clientIP := r.Header.Get("X-Real-IP")
	if clientIP == "" {
		clientIP = r.RemoteAddr
	}

	for i := range batch.Events {
		if batch.Events[i].EventID == "" {
			batch.Events[i].EventID = uuid.New().String()
		}
		if h.enricher != nil {
			h.enricher.Enrich(&batch.Events[i], userAgent, clientIP)
		}
	}

	h.reconstructor.AddEvents(batch.Events)
	h.archiver.ArchiveEvents(batch.Events)

	log.Info().
		Str("batch_id", batch.BatchID).
		Int("events", len(batch.Events)).
		Msg("Batch ingested")

	respondJSON(w, http.StatusOK, BatchResponse{
		Status:         "success",
		BatchID:        batch.BatchID,
		EventsReceived: len(batch.Events),
		TotalSessions:  h.reconstructor.SessionCount(),
	})
}

func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]int{
		"total_sessions": h.reconstructor.SessionCount(),
	})
}

func (h *Handler) HandleSessions(w http.ResponseWriter, r *http.Request) {
	sessions := h.reconstructor.AllSessions()
	sortSessions(sessions)

	summaries := make([]session.Summary, 0, len(sessions))
	for _, s := range sessions {
		summaries = append(summaries, s.Summary())
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"total_sessions": len(summaries),
		"sessions":       summaries,
	})
}

func (h *Handler) HandleSession(w http.ResponseWriter, r *http.Request) {
	sess := h.reconstructor.Session(chi.URLParam(r, "sessionID"))
	if len(sess.Events) == 0 {
		respondError(w, http.StatusNotFound, "Session not found")
		return
	}
	respondJSON(w, http.StatusOK, sess.Summary())
}

// HandleInsights analyzes one session. An empty session is a 404; inference
// failure is absorbed upstream and never reaches here as an error.
func (h *Handler) HandleInsights(w http.ResponseWriter, r *http.Request) {
	sess := h.reconstructor.Session(chi.URLParam(r, "sessionID"))
	if len(sess.Events) == 0 {
		respondError(w, http.StatusNotFound, "Session not found")
		return
	}

	summary := h.generator.GenerateInsights(r.Context(), sess)

	h.archiver.ArchiveInsight(summary)
	h.alerts.PublishPatterns(r.Context(), sess.ID, summary.FrictionPatterns)

	respondJSON(w, http.StatusOK, summary)
}

// SessionDigest is one row of the all-sessions insight summary.
type SessionDigest struct {
	SessionID         string  `json:"session_id"`
	DurationMS        int64   `json:"duration_ms"`
	Events            int     `json:"events"`
	FrictionCount     int     `json:"friction_count"`
	PrimaryIntent     string  `json:"primary_intent"`
	Confidence        float64 `json:"confidence"`
	TopRecommendation string  `json:"top_recommendation,omitempty"`
}

func (h *Handler) HandleInsightsSummary(w http.ResponseWriter, r *http.Request) {
	sessions := h.reconstructor.AllSessions()
	sortSessions(sessions)

	digests := make([]SessionDigest, 0, maxSummarySessions)
	for i, sess := range sessions {
		if i >= maxSummarySessions {
			break
		}

		summary := h.generator.GenerateInsights(r.Context(), sess)

		digest := SessionDigest{
			SessionID:     sess.ID,
			DurationMS:    sess.DurationMS(),
			Events:        len(sess.Events),
			FrictionCount: len(summary.FrictionPatterns),
			PrimaryIntent: "Unknown",
			Confidence:    summary.ConfidenceScore,
		}
		if len(summary.IntentHypotheses) > 0 {
			digest.PrimaryIntent = summary.IntentHypotheses[0].Hypothesis
		}
		if len(summary.Recommendations) > 0 {
			digest.TopRecommendation = summary.Recommendations[0]
		}
		digests = append(digests, digest)
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"total_sessions":    len(sessions),
		"analyzed_sessions": len(digests),
		"sessions":          digests,
	})
}

func (h *Handler) HandleSeverity(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.generator.SeveritySummary())
}

// sortSessions orders newest first so the capped digest covers the most
// recent sessions.
func sortSessions(sessions []*session.Reconstructed) {
	sort.Slice(sessions, func(i, j int) bool {
		if sessions[i].StartTime.Equal(sessions[j].StartTime) {
			return sessions[i].ID < sessions[j].ID
		}
		return sessions[i].StartTime.After(sessions[j].StartTime)
	})
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

func respondError(w http.ResponseWriter, status int, detail string) {
	respondJSON(w, status, map[string]string{"detail": detail})
}

// CORSMiddleware allows browser SDKs on any origin to post batches.
func CORSMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-API-Key")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

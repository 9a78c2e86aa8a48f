package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"github.com/ulvi123/ChanceuStore-techMVP/internal/analytics"
	"github.com/ulvi123/ChanceuStore-techMVP/internal/diagnostics"
	"github.com/ulvi123/ChanceuStore-techMVP/internal/ingest"
	"github.com/ulvi123/ChanceuStore-techMVP/internal/metrics"
	"github.com/ulvi123/ChanceuStore-techMVP/internal/model"
	"github.com/ulvi123/ChanceuStore-techMVP/internal/recommend"
	"github.com/ulvi123/ChanceuStore-techMVP/internal/validation"
)

// Handler translates HTTP requests into calls on the ingestion, analytics and recommendation services
type Handler struct {
	ingest      *ingest.Service
	analyzer    *analytics.Analyzer
	recommender *recommend.Engine
	diagnostics *diagnostics.Service
}

func NewHandler(i *ingest.Service, a *analytics.Analyzer, r *recommend.Engine, d *diagnostics.Service) *Handler {
	return &Handler{
		ingest:      i,
		analyzer:    a,
		recommender: r,
		diagnostics: d,
	}
}

// EventRequest is the body of POST /events
type EventRequest struct {
	StoreID          string                 `json:"store_id" validate:"required"`
	Section          string                 `json:"section" validate:"required"`
	ItemsTouched     []string               `json:"items_touched" validate:"required"`
	TimeSpentSeconds *int                   `json:"time_spent_seconds" validate:"required,min=0"`
	Demographics     map[string]interface{} `json:"demographics"`
	AssociateID      string                 `json:"associate_id"`
	Timestamp        *time.Time             `json:"timestamp"`
}

func (req *EventRequest) toEvent() *model.InteractionEvent {
	event := &model.InteractionEvent{
		StoreID:          req.StoreID,
		Section:          req.Section,
		ItemsTouched:     req.ItemsTouched,
		TimeSpentSeconds: *req.TimeSpentSeconds,
		Demographics:     req.Demographics,
		AssociateID:      req.AssociateID,
	}
	if req.Timestamp != nil {
		event.Timestamp = req.Timestamp.UTC()
	}
	return event
}

type itemsQuery struct {
	StoreID string   `json:"store_id" validate:"required"`
	Section string   `json:"section" validate:"required"`
	Items   []string `json:"items" validate:"required,min=1"`
}

type sectionsQuery struct {
	StoreID string `json:"store_id" validate:"required"`
	Section string `json:"section" validate:"required"`
}

func HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "alive",
		"service": "Chanceux Intel Backend",
	})
}

func (h *Handler) LogEvent(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var req EventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		metrics.EventsRejected.WithLabelValues("validation").Inc()
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		metrics.EventsRejected.WithLabelValues("validation").Inc()
		writeJSON(w, http.StatusBadRequest, verr.ToAPIError())
		return
	}

	id, err := h.ingest.LogEvent(r.Context(), req.toEvent(), r.UserAgent())
	if errors.Is(err, ingest.ErrRateLimited) {
		writeError(w, http.StatusTooManyRequests, "Rate limit exceeded")
		return
	}
	if err != nil {
		h.fail(w, r, err, "Failed to log event")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{
		"id":      id,
		"message": "Interaction event logged successfully",
	})
}

func (h *Handler) RecentSessions(w http.ResponseWriter, r *http.Request) {
	storeID := chi.URLParam(r, "store_id")

	limit := ingest.DefaultSessionLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	sessions, err := h.ingest.RecentSessions(r.Context(), storeID, limit)
	if err != nil {
		h.fail(w, r, err, "Failed to fetch sessions")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"sessions": sessions,
		"count":    len(sessions),
	})
}

func (h *Handler) SectionInsights(w http.ResponseWriter, r *http.Request) {
	summary, err := h.analyzer.SectionSummary(r.Context(), chi.URLParam(r, "store_id"))
	if err != nil {
		h.fail(w, r, err, "Failed to compute section insights")
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *Handler) ActionableInsights(w http.ResponseWriter, r *http.Request) {
	report, err := h.analyzer.ActionableInsights(r.Context(), chi.URLParam(r, "store_id"))
	if err != nil {
		h.fail(w, r, err, "Failed to generate insights")
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *Handler) RecommendItems(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	q := itemsQuery{
		StoreID: r.URL.Query().Get("store_id"),
		Section: r.URL.Query().Get("section"),
	}
	if err := json.NewDecoder(r.Body).Decode(&q.Items); err != nil {
		writeError(w, http.StatusBadRequest, "Body must be a JSON array of item ids")
		return
	}
	if verr := validation.ValidateStruct(&q); verr != nil {
		writeJSON(w, http.StatusBadRequest, verr.ToAPIError())
		return
	}

	recs, err := h.recommender.RecommendItems(r.Context(), q.StoreID, q.Section, q.Items)
	if err != nil {
		h.fail(w, r, err, "Failed to compute item recommendations")
		return
	}
	writeJSON(w, http.StatusOK, recs)
}

func (h *Handler) RecommendSections(w http.ResponseWriter, r *http.Request) {
	q := sectionsQuery{
		StoreID: r.URL.Query().Get("store_id"),
		Section: chi.URLParam(r, "section"),
	}
	if verr := validation.ValidateStruct(&q); verr != nil {
		writeJSON(w, http.StatusBadRequest, verr.ToAPIError())
		return
	}

	recs, err := h.recommender.RecommendSections(r.Context(), q.StoreID, q.Section)
	if err != nil {
		h.fail(w, r, err, "Failed to compute section recommendations")
		return
	}
	if recs.Insufficient() {
		writeJSON(w, http.StatusOK, map[string]string{"message": recs.Message})
		return
	}
	writeJSON(w, http.StatusOK, recs)
}

func (h *Handler) DebugStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.diagnostics.Stats(r.Context())
	if err != nil {
		h.fail(w, r, err, "Failed to collect stats")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// DebugConnection always answers 200; the probe outcome is in the body
func (h *Handler) DebugConnection(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.diagnostics.Probe(r.Context()))
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error, msg string) {
	log.Error().Err(err).Str("path", r.URL.Path).Msg(msg)
	writeError(w, http.StatusInternalServerError, msg)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

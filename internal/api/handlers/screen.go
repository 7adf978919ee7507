package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"sync/atomic"

	"github.com/gorilla/mux"

	"github.com/wonny/screener/internal/contracts"
	"github.com/wonny/screener/internal/selection"
	"github.com/wonny/screener/pkg/logger"
)

// Screener runs one screening pass
type Screener interface {
	Screen(ctx context.Context, criteria contracts.ScreeningCriteria) (*contracts.ScreeningResult, error)
}

// RunStore persists screening runs (selection.Repository)
type RunStore interface {
	SaveRun(ctx context.Context, result *contracts.ScreeningResult) (int64, error)
	GetRun(ctx context.Context, id int64) (*selection.RunSummary, error)
	ListRuns(ctx context.Context, limit int) ([]selection.RunSummary, error)
}

// ScreenHandler handles screening endpoints.
// Only one run is in flight at a time; a run fans out hundreds of requests on its own.
// ⭐ SSOT: 스크리닝 API 핸들러는 이 구조체에서만
type ScreenHandler struct {
	screener Screener
	runs     RunStore // nil = run history disabled
	defaults contracts.ScreeningCriteria
	feed     Publisher // nil = no run events
	running  atomic.Bool
	logger   *logger.Logger
}

// NewScreenHandler creates a new screen handler
func NewScreenHandler(screener Screener, runs RunStore, defaults contracts.ScreeningCriteria, log *logger.Logger) *ScreenHandler {
	return &ScreenHandler{
		screener: screener,
		runs:     runs,
		defaults: defaults,
		logger:   log,
	}
}

// WithFeed publishes run events to feed
func (h *ScreenHandler) WithFeed(feed Publisher) *ScreenHandler {
	h.feed = feed
	return h
}

func (h *ScreenHandler) publish(eventType string, data interface{}) {
	if h.feed != nil {
		h.feed.Publish(eventType, data)
	}
}

// ScreenRequest overrides default criteria; omitted fields keep their defaults
type ScreenRequest struct {
	AmplitudeDays   *int     `json:"amplitude_days"`
	AmplitudeMinPct *float64 `json:"amplitude_min_pct"`
	AmplitudeMaxPct *float64 `json:"amplitude_max_pct"`
	NewHighDays     *int     `json:"new_high_days"`
	RecentDays      *int     `json:"recent_days"`
	Concurrency     *int     `json:"concurrency"`
}

// Apply returns base with the request's overrides
func (req ScreenRequest) Apply(base contracts.ScreeningCriteria) contracts.ScreeningCriteria {
	if req.AmplitudeDays != nil {
		base.AmplitudeDays = *req.AmplitudeDays
	}
	if req.AmplitudeMinPct != nil {
		base.AmplitudeMinPct = *req.AmplitudeMinPct
	}
	if req.AmplitudeMaxPct != nil {
		base.AmplitudeMaxPct = *req.AmplitudeMaxPct
	}
	if req.NewHighDays != nil {
		base.NewHighDays = *req.NewHighDays
	}
	if req.RecentDays != nil {
		base.RecentDays = *req.RecentDays
	}
	if req.Concurrency != nil {
		base.Concurrency = *req.Concurrency
	}
	return base
}

// ScreenResponse is the report plus the stored run id, if any
type ScreenResponse struct {
	RunID int64 `json:"run_id,omitempty"`
	*selection.Report
}

// Screen runs a screening pass
// POST /api/screen
func (h *ScreenHandler) Screen(w http.ResponseWriter, r *http.Request) {
	var req ScreenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	criteria := req.Apply(h.defaults)

	if !h.running.CompareAndSwap(false, true) {
		respondError(w, http.StatusConflict, "A screening run is already in progress")
		return
	}
	defer h.running.Store(false)

	h.logger.WithField("criteria", criteria).Info("Screening triggered")
	h.publish(EventRunStarted, criteria)

	result, err := h.screener.Screen(r.Context(), criteria)
	if err != nil {
		h.publish(EventRunFailed, map[string]string{"error": err.Error()})
	}
	if errors.Is(err, contracts.ErrInvalidCriteria) {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		h.logger.WithError(err).Error("Screening failed")
		respondError(w, http.StatusInternalServerError, "Screening failed")
		return
	}

	resp := ScreenResponse{Report: selection.BuildReport(result)}
	if h.runs != nil {
		id, err := h.runs.SaveRun(r.Context(), result)
		if err != nil {
			h.logger.WithError(err).Warn("Failed to save screening run")
		} else {
			resp.RunID = id
		}
	}

	h.publish(EventRunCompleted, resp)
	respondJSON(w, http.StatusOK, resp)
}

// ListRuns returns recent runs
// GET /api/runs?limit=20
func (h *ScreenHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	if h.runs == nil {
		respondError(w, http.StatusNotFound, "Run history is disabled")
		return
	}

	limit := 20
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 || n > 500 {
			respondError(w, http.StatusBadRequest, "Invalid 'limit' (1-500)")
			return
		}
		limit = n
	}

	runs, err := h.runs.ListRuns(r.Context(), limit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list runs")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve runs")
		return
	}

	respondJSON(w, http.StatusOK, runs)
}

// GetRun returns one run as a report
// GET /api/runs/{id}
func (h *ScreenHandler) GetRun(w http.ResponseWriter, r *http.Request) {
	if h.runs == nil {
		respondError(w, http.StatusNotFound, "Run history is disabled")
		return
	}

	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid run id")
		return
	}

	run, err := h.runs.GetRun(r.Context(), id)
	if errors.Is(err, selection.ErrRunNotFound) {
		respondError(w, http.StatusNotFound, "Run not found")
		return
	}
	if err != nil {
		h.logger.WithError(err).Error("Failed to get run")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve run")
		return
	}

	respondJSON(w, http.StatusOK, ScreenResponse{RunID: run.ID, Report: selection.BuildReport(run.Result)})
}

package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/wonny/screener/internal/contracts"
	"github.com/wonny/screener/internal/series"
	"github.com/wonny/screener/pkg/logger"
)

// Universe lists instruments
type Universe interface {
	ListInstruments(ctx context.Context) ([]contracts.Instrument, error)
}

// SeriesWindow reads the most recent days of an instrument
type SeriesWindow interface {
	Window(ctx context.Context, code string, days, rowsPerPage int) ([]contracts.PriceRecord, error)
}

// MarketHandler exposes the universe and price windows
type MarketHandler struct {
	universe    Universe
	series      SeriesWindow
	rowsPerPage int
	logger      *logger.Logger
}

// NewMarketHandler creates a new market handler
func NewMarketHandler(universe Universe, series SeriesWindow, rowsPerPage int, log *logger.Logger) *MarketHandler {
	return &MarketHandler{
		universe:    universe,
		series:      series,
		rowsPerPage: rowsPerPage,
		logger:      log,
	}
}

// GetUniverse returns the screening universe
// GET /api/universe
func (h *MarketHandler) GetUniverse(w http.ResponseWriter, r *http.Request) {
	instruments, err := h.universe.ListInstruments(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to list universe")
		respondError(w, http.StatusBadGateway, "Failed to retrieve universe")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":       len(instruments),
		"instruments": instruments,
	})
}

// GetSeries returns the most recent price records of one instrument
// GET /api/series/{code}?days=20
func (h *MarketHandler) GetSeries(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]

	days := 20
	if s := r.URL.Query().Get("days"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 || n > 1000 {
			respondError(w, http.StatusBadRequest, "Invalid 'days' (1-1000)")
			return
		}
		days = n
	}

	records, err := h.series.Window(r.Context(), code, days, h.rowsPerPage)
	if errors.Is(err, series.ErrIncompleteWindow) {
		h.logger.WithError(err).Warn("Price window incomplete")
		respondError(w, http.StatusBadGateway, "Price data incomplete")
		return
	}
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, "Request cancelled")
		return
	}
	if len(records) == 0 {
		respondError(w, http.StatusNotFound, "No price data")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"code":    code,
		"count":   len(records),
		"records": records,
	})
}

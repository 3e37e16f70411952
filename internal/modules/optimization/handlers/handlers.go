// Package handlers exposes the optimization engine over HTTP.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gahoccode/frontier/internal/modules/marketdata"
	"github.com/gahoccode/frontier/internal/modules/optimization"
)

// PriceSource resolves tickers into an aligned price matrix.
type PriceSource interface {
	LoadPriceMatrix(ctx context.Context, tickers []string, start, end time.Time) (*optimization.PriceMatrix, error)
}

// ChartRenderer renders a result bundle as a PNG.
type ChartRenderer interface {
	RenderFrontier(res *optimization.Result) ([]byte, error)
}

// Handler serves the optimizer API.
type Handler struct {
	prices PriceSource
	engine *optimization.Engine
	charts ChartRenderer
	log    zerolog.Logger
}

// NewHandler creates an optimizer handler.
func NewHandler(prices PriceSource, engine *optimization.Engine, charts ChartRenderer, log zerolog.Logger) *Handler {
	return &Handler{
		prices: prices,
		engine: engine,
		charts: charts,
		log:    log.With().Str("handler", "optimizer").Logger(),
	}
}

// RegisterRoutes mounts the optimizer routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/optimizer", func(r chi.Router) {
		r.Post("/run", h.HandleRun)
		r.Post("/chart", h.HandleChart)
	})
}

// RunRequest is the optimizer run payload. Dates are YYYY-MM-DD; omitted
// dates default to the trailing year.
type RunRequest struct {
	Tickers        []string `json:"tickers"`
	StartDate      string   `json:"start_date,omitempty"`
	EndDate        string   `json:"end_date,omitempty"`
	RiskFreeRate   float64  `json:"risk_free_rate"`
	RiskAversion   float64  `json:"risk_aversion"`
	FrontierPoints int      `json:"frontier_points,omitempty"`
	RandomSamples  int      `json:"random_samples,omitempty"`
	Seed           uint64   `json:"seed,omitempty"`
}

// StrategyResponse reports one strategy's outcome: the allocation on
// success, the failure message otherwise.
type StrategyResponse struct {
	Allocation *optimization.AllocationResult `json:"allocation,omitempty"`
	Error      string                         `json:"error,omitempty"`
}

// RunResponse is the optimizer run result.
type RunResponse struct {
	RunID       string                            `json:"run_id"`
	Tickers     []string                          `json:"tickers"`
	Rows        int                               `json:"rows"`
	Allocations map[string]StrategyResponse       `json:"allocations"`
	Frontier    optimization.FrontierCurve        `json:"frontier,omitempty"`
	FrontierErr string                            `json:"frontier_error,omitempty"`
	Cloud       optimization.RandomPortfolioCloud `json:"random_portfolios,omitempty"`
	ExpectedMu  []float64                         `json:"expected_returns"`
	GeneratedAt time.Time                         `json:"generated_at"`
}

// HandleRun executes a full optimization over the requested tickers.
func (h *Handler) HandleRun(w http.ResponseWriter, r *http.Request) {
	req, params, start, end, err := h.parseRunRequest(r)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, err)
		return
	}

	res, status, err := h.run(r.Context(), req, params, start, end)
	if err != nil {
		h.respondError(w, status, err)
		return
	}

	h.respondJSON(w, http.StatusOK, res)
}

// HandleChart executes an optimization and renders the frontier as a PNG.
func (h *Handler) HandleChart(w http.ResponseWriter, r *http.Request) {
	req, params, start, end, err := h.parseRunRequest(r)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, err)
		return
	}

	pm, err := h.prices.LoadPriceMatrix(r.Context(), req.Tickers, start, end)
	if err != nil {
		h.respondError(w, classifyStatus(err), err)
		return
	}

	result, err := h.engine.Run(pm, params)
	if err != nil {
		h.respondError(w, classifyStatus(err), err)
		return
	}

	png, err := h.charts.RenderFrontier(result)
	if err != nil {
		h.respondError(w, http.StatusUnprocessableEntity, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(png); err != nil {
		h.log.Error().Err(err).Msg("Failed to write chart response")
	}
}

func (h *Handler) parseRunRequest(r *http.Request) (*RunRequest, optimization.Params, time.Time, time.Time, error) {
	var req RunRequest
	var zero time.Time

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, optimization.Params{}, zero, zero, fmt.Errorf("invalid request body: %w", err)
	}
	if len(req.Tickers) < optimization.MinAssets {
		return nil, optimization.Params{}, zero, zero,
			fmt.Errorf("at least %d tickers required", optimization.MinAssets)
	}

	params := optimization.Params{
		RiskFreeRate:   req.RiskFreeRate,
		RiskAversion:   req.RiskAversion,
		FrontierPoints: req.FrontierPoints,
		RandomSamples:  req.RandomSamples,
		Seed:           req.Seed,
	}
	if err := params.Validate(); err != nil {
		return nil, optimization.Params{}, zero, zero, err
	}

	end := time.Now().UTC().Truncate(24 * time.Hour)
	if req.EndDate != "" {
		t, err := time.Parse("2006-01-02", req.EndDate)
		if err != nil {
			return nil, optimization.Params{}, zero, zero, fmt.Errorf("invalid end_date: %w", err)
		}
		end = t
	}
	start := end.AddDate(-1, 0, 0)
	if req.StartDate != "" {
		t, err := time.Parse("2006-01-02", req.StartDate)
		if err != nil {
			return nil, optimization.Params{}, zero, zero, fmt.Errorf("invalid start_date: %w", err)
		}
		start = t
	}
	if !start.Before(end) {
		return nil, optimization.Params{}, zero, zero, fmt.Errorf("start_date must be before end_date")
	}

	return &req, params, start, end, nil
}

func (h *Handler) run(ctx context.Context, req *RunRequest, params optimization.Params, start, end time.Time) (*RunResponse, int, error) {
	pm, err := h.prices.LoadPriceMatrix(ctx, req.Tickers, start, end)
	if err != nil {
		return nil, classifyStatus(err), err
	}

	result, err := h.engine.Run(pm, params)
	if err != nil {
		return nil, classifyStatus(err), err
	}

	resp := &RunResponse{
		RunID:       uuid.New().String(),
		Tickers:     pm.Tickers,
		Rows:        pm.NumRows(),
		Allocations: make(map[string]StrategyResponse, len(result.Allocations)),
		Frontier:    result.Frontier,
		Cloud:       result.Cloud,
		ExpectedMu:  result.Estimates.Mu,
		GeneratedAt: time.Now().UTC(),
	}
	for name, sr := range result.Allocations {
		out := StrategyResponse{Allocation: sr.Allocation}
		if sr.Err != nil {
			out.Error = sr.Err.Error()
		}
		resp.Allocations[name] = out
	}
	if result.FrontierErr != nil {
		resp.FrontierErr = result.FrontierErr.Error()
	}

	h.log.Info().
		Str("run_id", resp.RunID).
		Strs("tickers", pm.Tickers).
		Int("rows", pm.NumRows()).
		Msg("Optimizer run served")

	return resp, http.StatusOK, nil
}

// classifyStatus maps domain errors to HTTP status codes: data problems are
// the client's to fix (422), anything else is a server failure.
func classifyStatus(err error) int {
	var fetchErr *marketdata.DataFetchError
	var insufficient *optimization.InsufficientDataError
	var degenerate *optimization.DegenerateAssetError
	if errors.As(err, &fetchErr) || errors.As(err, &insufficient) || errors.As(err, &degenerate) {
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func (h *Handler) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode response")
	}
}

func (h *Handler) respondError(w http.ResponseWriter, status int, err error) {
	if status >= http.StatusInternalServerError {
		h.log.Error().Err(err).Msg("Optimizer request failed")
	} else {
		h.log.Warn().Err(err).Msg("Optimizer request rejected")
	}
	h.respondJSON(w, status, map[string]string{"error": err.Error()})
}

// Package facade exposes the signal core over HTTP. Handlers are thin: they
// parse, delegate, and shape JSON; every decision lives in the components.
package facade

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"time"

	"signalcore/config"
	"signalcore/internal/analyzer"
	"signalcore/internal/detector"
	"signalcore/internal/model"
	"signalcore/internal/sentiment"
	"signalcore/internal/validator"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// HealthChecker reports repository liveness for the health endpoint.
type HealthChecker interface {
	IsHealthy(ctx context.Context) bool
}

type Server struct {
	cfg       config.FacadeConfig
	detector  *detector.Detector
	analyzer  *analyzer.Analyzer
	validator *validator.Validator
	repo      HealthChecker
	logger    *zap.Logger

	httpServer *http.Server
}

func NewServer(cfg config.FacadeConfig, det *detector.Detector, an *analyzer.Analyzer, val *validator.Validator, repo HealthChecker, logger *zap.Logger) *Server {
	return &Server{
		cfg:       cfg,
		detector:  det,
		analyzer:  an,
		validator: val,
		repo:      repo,
		logger:    logger,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/health", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/signals", s.handleSignals)
		r.Get("/sentiment", s.handleSentiment)
		r.Post("/rescan", s.handleRescan)
		r.Post("/detector/resume", s.handleResume)
		r.Post("/consistency", s.handleConsistency)
		r.Post("/fundamentals", s.handleFundamentals)
	})

	return r
}

// Start runs the HTTP server until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 65 * time.Second,
	}
	s.logger.Info("facade listening", zap.String("addr", s.cfg.Addr))
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

type signalView struct {
	Board            string            `json:"board"`
	Name             string            `json:"name"`
	State            model.SignalState `json:"state"`
	Score            float64           `json:"score"`
	ConsecutiveAbove int               `json:"consecutiveAbove"`
	ConsecutiveBelow int               `json:"consecutiveBelow"`
	CooldownLeft     int               `json:"cooldownLeft"`
	TriggeredAt      *time.Time        `json:"triggeredAt,omitempty"`
	LastUpdatedAt    time.Time         `json:"lastUpdatedAt"`
}

type signalsResponse struct {
	Health    model.DetectorHealth `json:"health"`
	UpdatedAt time.Time            `json:"updatedAt"`
	Signals   []signalView         `json:"signals"`
}

// handleSignals returns the last published cycle. Confirmed boards first,
// then by score descending; the full map is available with ?all=true.
func (s *Server) handleSignals(w http.ResponseWriter, r *http.Request) {
	state := s.detector.CurrentState()
	includeAll := r.URL.Query().Get("all") == "true"

	views := make([]signalView, 0, len(state.Signals))
	for _, sig := range state.Signals {
		if !includeAll && sig.State == model.StateIdle {
			continue
		}
		v := signalView{
			Board:            sig.Board,
			Name:             sig.Name,
			State:            sig.State,
			Score:            sig.Score,
			ConsecutiveAbove: sig.ConsecutiveAbove,
			ConsecutiveBelow: sig.ConsecutiveBelow,
			CooldownLeft:     sig.CooldownLeft,
			LastUpdatedAt:    sig.LastUpdatedAt,
		}
		if !sig.TriggeredAt.IsZero() {
			t := sig.TriggeredAt
			v.TriggeredAt = &t
		}
		views = append(views, v)
	}

	sort.Slice(views, func(i, j int) bool {
		ci := views[i].State == model.StateConfirmed
		cj := views[j].State == model.StateConfirmed
		if ci != cj {
			return ci
		}
		if views[i].Score != views[j].Score {
			return views[i].Score > views[j].Score
		}
		return views[i].Board < views[j].Board
	})

	writeJSON(w, http.StatusOK, signalsResponse{
		Health:    state.Health,
		UpdatedAt: state.UpdatedAt,
		Signals:   views,
	})
}

func (s *Server) handleSentiment(w http.ResponseWriter, r *http.Request) {
	state := s.detector.CurrentState()
	if len(state.Snapshots) == 0 {
		writeError(w, http.StatusServiceUnavailable, "no snapshot round published yet")
		return
	}

	snaps := make([]model.BoardSnapshot, 0, len(state.Snapshots))
	for _, snap := range state.Snapshots {
		snaps = append(snaps, snap)
	}
	writeJSON(w, http.StatusOK, sentiment.FromSnapshots(snaps))
}

// handleRescan schedules one out-of-band scan cycle and returns immediately.
func (s *Server) handleRescan(w http.ResponseWriter, r *http.Request) {
	if s.detector.Health() == model.HealthSuspended {
		writeError(w, http.StatusConflict, "detector is suspended; resume it first")
		return
	}
	s.detector.TriggerRescan(context.WithoutCancel(r.Context()))
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "rescan scheduled"})
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	s.detector.Resume()
	writeJSON(w, http.StatusOK, map[string]string{
		"status": string(s.detector.Health()),
	})
}

type consistencyRequest struct {
	Symbols   []string `json:"symbols"`
	TradeDate string   `json:"tradeDate"` // "2006-01-02"; empty means today
}

func (s *Server) handleConsistency(w http.ResponseWriter, r *http.Request) {
	var req consistencyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if len(req.Symbols) == 0 {
		writeError(w, http.StatusBadRequest, "symbols must not be empty")
		return
	}
	tradeDate, err := parseTradeDate(req.TradeDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	report := s.validator.Validate(r.Context(), req.Symbols, tradeDate)
	writeJSON(w, http.StatusOK, report)
}

type fundamentalsRequest struct {
	Entries   []analyzer.Entry `json:"entries"`
	TradeDate string           `json:"tradeDate"`
}

func (s *Server) handleFundamentals(w http.ResponseWriter, r *http.Request) {
	var req fundamentalsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if len(req.Entries) == 0 {
		writeError(w, http.StatusBadRequest, "entries must not be empty")
		return
	}
	tradeDate, err := parseTradeDate(req.TradeDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.analyzer.BatchAnalyze(r.Context(), req.Entries, tradeDate)
	if err != nil {
		s.logger.Error("batch analysis failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, "analysis unavailable: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	repoHealthy := s.repo == nil || s.repo.IsHealthy(r.Context())
	if !repoHealthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]any{
		"repository": repoHealthy,
		"detector":   s.detector.Health(),
	})
}

func parseTradeDate(s string) (time.Time, error) {
	if s == "" {
		now := time.Now()
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, err
	}
	return t, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

package server

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/aimerfeng/aegisquant-hybrid-sub000/internal/aggregator"
	"github.com/aimerfeng/aegisquant-hybrid-sub000/internal/logger"
	"github.com/aimerfeng/aegisquant-hybrid-sub000/internal/strategy"
	"github.com/aimerfeng/aegisquant-hybrid-sub000/internal/strategy/script"
	"github.com/aimerfeng/aegisquant-hybrid-sub000/pkg/errors"
)

// Server exposes the aggregator's management operations over HTTP so a
// terminal frontend can register, toggle, and inspect strategies at
// runtime.
type Server struct {
	agg    *aggregator.Aggregator
	logger *logger.Logger
	router *mux.Router
}

// New creates a server over the given aggregator.
func New(agg *aggregator.Aggregator, log *logger.Logger) *Server {
	s := &Server{
		agg:    agg,
		logger: log,
		router: mux.NewRouter(),
	}

	s.routes()

	return s
}

// Handler returns the HTTP handler for mounting or serving.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() {
	s.router.HandleFunc("/strategies", s.handleListStrategies).Methods(http.MethodGet)
	s.router.HandleFunc("/strategies", s.handleAddStrategy).Methods(http.MethodPost)
	s.router.HandleFunc("/strategies/{id}", s.handleRemoveStrategy).Methods(http.MethodDelete)
	s.router.HandleFunc("/strategies/{id}/enable", s.handleSetEnabled(true)).Methods(http.MethodPost)
	s.router.HandleFunc("/strategies/{id}/disable", s.handleSetEnabled(false)).Methods(http.MethodPost)
	s.router.HandleFunc("/mode", s.handleSetMode).Methods(http.MethodPut)
	s.router.HandleFunc("/start", s.handleStart).Methods(http.MethodPost)
	s.router.HandleFunc("/stop", s.handleStop).Methods(http.MethodPost)
	s.router.HandleFunc("/reset", s.handleReset).Methods(http.MethodPost)
}

type strategyView struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Enabled     bool    `json:"enabled"`
	Running     bool    `json:"running"`
	RealizedPnL float64 `json:"realized_pnl"`
}

type addStrategyRequest struct {
	// Type is either "rule" or "script".
	Type string `json:"type"`
	// Config is the YAML document for rule strategies.
	Config string `json:"config"`
	// Source is the script text for script strategies.
	Source string `json:"source"`
}

type errorResponse struct {
	Error      string             `json:"error"`
	Category   string             `json:"category"`
	Violations []script.Violation `json:"violations,omitempty"`
}

func (s *Server) handleListStrategies(w http.ResponseWriter, r *http.Request) {
	handles := s.agg.Handles()

	views := make([]strategyView, 0, len(handles))
	for _, h := range handles {
		views = append(views, strategyView{
			ID:          h.ID.String(),
			Name:        h.Name,
			Enabled:     h.Enabled,
			Running:     h.Running,
			RealizedPnL: h.RealizedPnL,
		})
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"mode":       string(s.agg.Mode()),
		"strategies": views,
	})
}

func (s *Server) handleAddStrategy(w http.ResponseWriter, r *http.Request) {
	var req addStrategyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, errors.ErrCodeInvalidParameter, "invalid request body", nil)

		return
	}

	var (
		strat strategy.Strategy
		err   error
	)

	switch req.Type {
	case "rule":
		strat, err = strategy.LoadRuleStrategy(req.Config, s.logger)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, errors.GetCode(err), err.Error(), nil)

			return
		}
	case "script":
		loaded, loadErr := script.Load(req.Source, s.logger)
		if loadErr != nil {
			s.writeError(w, http.StatusBadRequest, errors.GetCode(loadErr), loadErr.Error(), nil)

			return
		}

		if violations := loaded.Validate(); len(violations) > 0 {
			s.writeError(w, http.StatusBadRequest, errors.ErrCodeScriptValidation, "script failed validation", violations)

			return
		}

		strat = loaded
	default:
		s.writeError(w, http.StatusBadRequest, errors.ErrCodeInvalidParameter, "type must be \"rule\" or \"script\"", nil)

		return
	}

	id, err := s.agg.Add(strat)
	if err != nil {
		s.writeError(w, http.StatusConflict, errors.GetCode(err), err.Error(), nil)

		return
	}

	s.logger.Info("strategy added via api",
		zap.String("id", id.String()),
		zap.String("type", req.Type),
	)

	s.writeJSON(w, http.StatusCreated, map[string]string{
		"id":   id.String(),
		"name": strat.Name(),
	})
}

func (s *Server) handleRemoveStrategy(w http.ResponseWriter, r *http.Request) {
	id, ok := s.parseID(w, r)
	if !ok {
		return
	}

	if err := s.agg.Remove(id); err != nil {
		s.writeError(w, http.StatusNotFound, errors.GetCode(err), err.Error(), nil)

		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSetEnabled(enabled bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := s.parseID(w, r)
		if !ok {
			return
		}

		if err := s.agg.SetEnabled(id, enabled); err != nil {
			s.writeError(w, http.StatusNotFound, errors.GetCode(err), err.Error(), nil)

			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) handleSetMode(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Mode string `json:"mode"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, errors.ErrCodeInvalidParameter, "invalid request body", nil)

		return
	}

	mode, err := aggregator.ParseMode(req.Mode)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, errors.GetCode(err), err.Error(), nil)

		return
	}

	if err := s.agg.SetMode(mode); err != nil {
		s.writeError(w, http.StatusBadRequest, errors.GetCode(err), err.Error(), nil)

		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	s.agg.StartAll()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	s.agg.StopAll()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.agg.Reset()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) parseID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw := mux.Vars(r)["id"]

	id, err := uuid.Parse(raw)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, errors.ErrCodeInvalidParameter, "invalid strategy id", nil)

		return uuid.Nil, false
	}

	return id, true
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("failed to encode response", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, code errors.ErrorCode, message string, violations []script.Violation) {
	s.writeJSON(w, status, errorResponse{
		Error:      message,
		Category:   code.Category(),
		Violations: violations,
	})
}

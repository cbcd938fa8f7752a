// Package api serves a read-only JSON view of advisor state: open paper
// positions, recent recommendations, and running statistics.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/tomking/trading-framework/internal/models"
	"github.com/tomking/trading-framework/internal/storage"
)

const defaultRecommendationLimit = 50

type Server struct {
	router    *chi.Mux
	server    *http.Server
	storage   storage.Interface
	logger    logrus.FieldLogger
	port      int
	authToken string
}

type Config struct {
	Port      int
	AuthToken string
}

// PositionView is the wire shape of one open paper position.
type PositionView struct {
	ID               string    `json:"id"`
	Symbol           string    `json:"symbol"`
	StrategyID       string    `json:"strategy_id"`
	CorrelationGroup string    `json:"correlation_group"`
	State            string    `json:"state"`
	Quantity         int       `json:"quantity"`
	Allocation       float64   `json:"allocation"`
	EntryVIX         float64   `json:"entry_vix"`
	Regime           string    `json:"regime"`
	CreditReceived   float64   `json:"credit_received"`
	CurrentPnL       float64   `json:"current_pnl"`
	DTE              int       `json:"dte"`
	Expiration       time.Time `json:"expiration"`
	EntryDate        time.Time `json:"entry_date,omitempty"`
}

func NewServer(cfg Config, store storage.Interface, logger logrus.FieldLogger) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		storage:   store,
		logger:    logger,
		port:      cfg.Port,
		authToken: cfg.AuthToken,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(30 * time.Second))

	if s.authToken != "" {
		s.router.Use(s.authMiddleware)
	}

	s.router.Get("/healthz", s.handleHealth)
	s.router.Get("/api/positions", s.handleGetPositions)
	s.router.Get("/api/positions/{id}", s.handleGetPosition)
	s.router.Get("/api/recommendations", s.handleGetRecommendations)
	s.router.Get("/api/stats", s.handleGetStats)
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/healthz" {
			next.ServeHTTP(w, r)
			return
		}

		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if token != s.authToken {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Infof("starting status API on port %d", s.port)
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.WithError(err).Error("failed to encode response")
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().Unix(),
	})
}

func (s *Server) handleGetPositions(w http.ResponseWriter, _ *http.Request) {
	positions := s.storage.GetOpenPositions()

	views := make([]PositionView, 0, len(positions))
	for i := range positions {
		views = append(views, positionView(&positions[i]))
	}
	s.writeJSON(w, views)
}

func (s *Server) handleGetPosition(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	position, found := s.storage.GetPositionByID(id)
	if !found {
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}
	s.writeJSON(w, positionView(position))
}

func (s *Server) handleGetRecommendations(w http.ResponseWriter, r *http.Request) {
	limit := defaultRecommendationLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = parsed
	}
	s.writeJSON(w, s.storage.GetRecommendations(limit))
}

func (s *Server) handleGetStats(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, s.storage.GetStatistics())
}

func positionView(p *models.Position) PositionView {
	return PositionView{
		ID:               p.ID,
		Symbol:           p.Symbol,
		StrategyID:       p.StrategyID,
		CorrelationGroup: p.CorrelationGroup,
		State:            string(p.State),
		Quantity:         p.Quantity,
		Allocation:       p.Allocation,
		EntryVIX:         p.EntryVIX,
		Regime:           p.Regime,
		CreditReceived:   p.CreditReceived,
		CurrentPnL:       p.CurrentPnL,
		DTE:              p.DTE(),
		Expiration:       p.Expiration,
		EntryDate:        p.EntryDate,
	}
}

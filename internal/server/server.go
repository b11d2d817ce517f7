package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/ogulcanaydogan/transit-alert-push/pkg/model"
	"github.com/ogulcanaydogan/transit-alert-push/pkg/pipeline"
	"github.com/ogulcanaydogan/transit-alert-push/pkg/storage"
)

// StatusSource exposes the most recent cycle report.
type StatusSource interface {
	LastReport() *pipeline.Report
}

// Server provides read-only health and status endpoints.
type Server struct {
	status StatusSource
	store  storage.SentStore
	router chi.Router
	logger *slog.Logger
}

// NewServer creates an API server.
func NewServer(status StatusSource, store storage.SentStore, logger *slog.Logger) *Server {
	s := &Server{
		status: status,
		store:  store,
		router: chi.NewRouter(),
		logger: logger,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.Use(middleware.Recoverer)

	s.router.Get("/healthz", s.handleHealth)
	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Get("/sent", s.handleSentList)
		r.Get("/sent/{alertID}", s.handleSentCheck)
	})
}

// Handler returns the HTTP handler for this server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	rep := s.status.LastReport()
	if rep == nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "no runs yet"})
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (s *Server) handleSentList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	limit := storage.DefaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = n
	}

	records, err := s.store.List(ctx, limit)
	if err != nil {
		s.logger.Error("list sent markers", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if records == nil {
		records = []model.SentRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleSentCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	id := model.AlertID(chi.URLParam(r, "alertID"))
	found, err := s.store.Lookup(ctx, id)
	if err != nil {
		s.logger.Error("lookup sent marker", "alert_id", id.String(), "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"alert_id": id, "sent": found})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/ogulcanaydogan/fare-guardian/pkg/model"
	"github.com/ogulcanaydogan/fare-guardian/pkg/storage"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// AlertStore is the part of the alert store the server reads and writes.
type AlertStore interface {
	ListAlerts(ctx context.Context) ([]model.Alert, error)
	UpdatePrice(ctx context.Context, id string, price int) error
}

// Server serves the change-price links sent in notifications, plus health,
// alert listing and Prometheus metrics.
type Server struct {
	store  AlertStore
	mux    *http.ServeMux
	logger *slog.Logger
}

// NewServer creates an API server.
func NewServer(store AlertStore, logger *slog.Logger) *Server {
	s := &Server{
		store:  store,
		mux:    http.NewServeMux(),
		logger: logger,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	s.mux.HandleFunc("GET /api/v1/alerts", s.handleAlerts)
	s.mux.HandleFunc("GET /{id}/change-price", s.handleChangePrice)
	s.mux.Handle("GET /metrics", promhttp.Handler())
}

// Handler returns the HTTP handler for this server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	alerts, err := s.store.ListAlerts(ctx)
	if err != nil {
		s.logger.Error("list alerts", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if alerts == nil {
		alerts = []model.Alert{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(alerts)
}

// handleChangePrice lowers (or raises) an alert's threshold to the price in
// the link, so the traveler is only told about further drops after rebooking.
func (s *Server) handleChangePrice(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	id := r.PathValue("id")
	price, err := strconv.Atoi(r.URL.Query().Get("price"))
	if err != nil || price <= 0 {
		http.Error(w, "price must be a positive whole dollar amount", http.StatusBadRequest)
		return
	}

	if err := s.store.UpdatePrice(ctx, id, price); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			http.Error(w, "alert not found", http.StatusNotFound)
			return
		}
		s.logger.Error("update alert price", "alert_id", id, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	s.logger.Info("alert threshold changed", "alert_id", id, "price", price)
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintf(w, "Alert threshold updated to %s.\n", model.FormatPrice(price))
}

// Package httpapi serves the core's operational endpoints, following the
// mape service's HTTPServer shape (health/status handlers, graceful
// Start/Stop), routed through gorilla/mux so the zone-lookup route can
// use a path variable instead of manual query parsing. Every request is
// wrapped in the aggregator's gorilla/handlers access log, same as the
// teacher's services/aggregator/main.go.
package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dhruv-ship-it/geopulse/internal/materialized"
)

// Server exposes /health, /metrics and a per-zone lookup route.
type Server struct {
	log  *slog.Logger
	http *http.Server
}

// New builds a Server bound to addr. reg is the Prometheus registerer
// /metrics serves from; store may be nil (the lookup route then returns
// 503), matching the materialized store being an optional collaborator.
func New(addr string, reg *prometheus.Registry, store *materialized.Store, log *slog.Logger) *Server {
	r := mux.NewRouter()
	s := &Server{log: log}

	r.HandleFunc("/health", s.getHealth).Methods(http.MethodGet)
	r.HandleFunc("/zones/{zoneId}", s.getZone(store)).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	s.http = &http.Server{Addr: addr, Handler: handlers.LoggingHandler(os.Stdout, r)}
	return s
}

// Start runs the HTTP server, blocking until it stops or errors.
func (s *Server) Start() error {
	s.log.Info("http_server_start", "bind", s.http.Addr)
	return s.http.ListenAndServe()
}

// Stop shuts the server down gracefully within ctx's deadline.
func (s *Server) Stop(ctx context.Context) error {
	s.log.Info("http_server_stop")
	return s.http.Shutdown(ctx)
}

func (s *Server) getHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (s *Server) getZone(store *materialized.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if store == nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		zoneID := mux.Vars(r)["zoneId"]
		st, found, err := store.Get(r.Context(), zoneID)
		if err != nil {
			s.log.Error("zone_lookup_failed", "zoneId", zoneID, "error", err.Error())
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		if !found {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(st)
	}
}

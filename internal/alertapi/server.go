// Package alertapi exposes the durable alert history over HTTP for the
// alertsink binary, routed with gorilla/mux the same way the core's
// httpapi package is, and wrapped in the same gorilla/handlers access
// log the teacher's ledger and aggregator services use.
package alertapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"strconv"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/dhruv-ship-it/geopulse/internal/alertstore"
)

// Server serves the read-only alert history API.
type Server struct {
	log   *slog.Logger
	http  *http.Server
	store *alertstore.Store
}

// New builds a Server bound to addr.
func New(addr string, store *alertstore.Store, log *slog.Logger) *Server {
	r := mux.NewRouter()
	s := &Server{log: log, store: store}

	r.HandleFunc("/health", s.getHealth).Methods(http.MethodGet)
	r.HandleFunc("/zones/{zoneId}/alerts", s.getZoneAlerts).Methods(http.MethodGet)

	s.http = &http.Server{Addr: addr, Handler: handlers.LoggingHandler(os.Stdout, r)}
	return s
}

func (s *Server) Start() error {
	s.log.Info("alertapi_start", "bind", s.http.Addr)
	return s.http.ListenAndServe()
}

func (s *Server) Stop() error {
	return s.http.Close()
}

func (s *Server) getHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (s *Server) getZoneAlerts(w http.ResponseWriter, r *http.Request) {
	zoneID := mux.Vars(r)["zoneId"]
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}
	records, err := s.store.RecentForZone(r.Context(), zoneID, limit)
	if err != nil {
		s.log.Error("zone_alerts_query_failed", "zoneId", zoneID, "error", err.Error())
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(records)
}

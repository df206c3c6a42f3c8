// internal/server/server.go
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/easycaremarket/b2b-catalog/internal/catalog"
	"github.com/easycaremarket/b2b-catalog/internal/supplier"
	"github.com/easycaremarket/b2b-catalog/internal/syncer"
)

// Server mounts the REST API over the catalog store, the sync orchestrator
// and the supplier client. It holds no business logic of its own.
type Server struct {
	log    zerolog.Logger
	store  *catalog.Store
	sync   *syncer.Syncer
	client *supplier.Client
	ver    string
}

func New(log zerolog.Logger, store *catalog.Store, sync *syncer.Syncer, client *supplier.Client, ver string) *Server {
	return &Server{log: log, store: store, sync: sync, client: client, ver: ver}
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.handleHome)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /api/status", s.handleStatus)

	mux.HandleFunc("GET /api/stats", s.handleStats)
	mux.HandleFunc("GET /api/products", s.handleProducts)
	mux.HandleFunc("GET /api/categories", s.handleCategories)
	mux.HandleFunc("GET /api/brands", s.handleBrands)

	mux.HandleFunc("GET /api/customers", s.handleListCustomers)
	mux.HandleFunc("POST /api/customers", s.handleCreateCustomer)
	mux.HandleFunc("POST /api/orders", s.handleCreateOrder)

	mux.HandleFunc("POST /api/sync/start", s.handleSyncStart)
	mux.HandleFunc("GET /api/sync/status", s.handleSyncStatus)
	mux.HandleFunc("GET /api/sync/test", s.handleSyncTest)

	return s.logRequests(mux)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("took", time.Since(start)).
			Msg("request")
	})
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"service":   "EasyCare Market B2B API",
		"status":    "running",
		"version":   s.ver,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	code := http.StatusOK
	if _, err := s.store.Stats(r.Context()); err != nil {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]any{
		"status":    status,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.Stats(r.Context())
	if err != nil {
		s.fail(w, err, "loading catalog stats")
		return
	}

	lastSync, err := s.sync.Status("")
	if err != nil {
		lastSync = nil // no runs yet
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"api_status":   "operational",
		"catalog":      stats,
		"sync_running": s.sync.IsRunning(),
		"current_run":  s.sync.CurrentRun(),
		"last_sync":    lastSync,
		"timestamp":    time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.Stats(r.Context())
	if err != nil {
		s.fail(w, err, "loading catalog stats")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func (s *Server) fail(w http.ResponseWriter, err error, what string) {
	s.log.Error().Err(err).Msg(what + " failed")
	writeError(w, http.StatusInternalServerError, what+" failed")
}

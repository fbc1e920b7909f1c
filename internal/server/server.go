// Package server provides the HTTP server for the gesturemix control surface.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/ayusman/gesturemix/internal/mapping"
	"github.com/ayusman/gesturemix/internal/monitoring"
	"github.com/ayusman/gesturemix/internal/pipeline"
	"github.com/ayusman/gesturemix/internal/server/api"
	"github.com/ayusman/gesturemix/internal/store"
)

// Config holds the server configuration. Routes are registered only for
// the components that are set.
type Config struct {
	StaticDir string
	Store     *store.Store
	Registry  *mapping.Registry
	Pipeline  *pipeline.Pipeline
	Hub       *Hub
	Stats     func() pipeline.Stats
}

// Server represents the HTTP server.
type Server struct {
	config Config
	mux    *http.ServeMux
	start  time.Time
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		start:  time.Now(),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("GET /api/health", s.handleHealth)

	if s.config.Registry != nil {
		api.NewProfileHandler(s.config.Registry).Register(s.mux)
		api.NewBundleHandler(s.config.Registry).Register(s.mux)
	}

	if s.config.Pipeline != nil {
		api.NewCalibrationHandler(s.config.Pipeline, s.config.Store).Register(s.mux)
	}

	if s.config.Hub != nil {
		s.mux.Handle("GET /api/stream", s.config.Hub)
	}

	// Serve static files if StaticDir is configured
	if s.config.StaticDir != "" {
		fs := http.FileServer(http.Dir(s.config.StaticDir))
		s.mux.Handle("/", fs)
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

type healthResponse struct {
	Status        string          `json:"status"`
	Uptime        string          `json:"uptime"`
	ActiveProfile string          `json:"active_profile,omitempty"`
	StreamClients int             `json:"stream_clients"`
	Frames        *pipeline.Stats `json:"frames,omitempty"`
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status: "ok",
		Uptime: time.Since(s.start).Round(time.Second).String(),
	}
	if s.config.Registry != nil {
		resp.ActiveProfile = s.config.Registry.Active().ID
	}
	if s.config.Hub != nil {
		resp.StreamClients = s.config.Hub.Clients()
	}
	if s.config.Stats != nil {
		st := s.config.Stats()
		resp.Frames = &st
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		monitoring.Logf("HTTP server listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if s.config.Hub != nil {
		s.config.Hub.Close()
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

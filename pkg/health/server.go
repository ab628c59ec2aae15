package health

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-logr/logr"
	"github.com/ishanjain/dohwrap/pkg/dnsconf"
	"github.com/ishanjain/dohwrap/pkg/metrics"
	"github.com/ishanjain/dohwrap/pkg/supervisor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Source provides the state reported by the server
type Source interface {
	ProxyStatus() supervisor.Info
	LastPass() *dnsconf.Pass
}

// Status represents the wrapper's operational status
type Status struct {
	Healthy   bool            `json:"healthy"`
	Ready     bool            `json:"ready"`
	Uptime    string          `json:"uptime"`
	StartTime time.Time       `json:"start_time"`
	Proxy     supervisor.Info `json:"proxy"`
	LastPass  *dnsconf.Pass   `json:"last_pass,omitempty"`
}

// Config holds the health server configuration
type Config struct {
	Address string
	Source  Source
	Metrics *metrics.Metrics
	Logger  logr.Logger
}

// Server provides health check and status endpoints
type Server struct {
	addr      string
	source    Source
	server    *http.Server
	router    *chi.Mux
	logger    logr.Logger
	startTime time.Time
}

// NewServer creates a new health check server
func NewServer(cfg Config) *Server {
	s := &Server{
		addr:      cfg.Address,
		source:    cfg.Source,
		router:    chi.NewRouter(),
		logger:    cfg.Logger,
		startTime: time.Now(),
	}

	s.router.Use(middleware.Recoverer)

	s.router.Get("/health", s.handleHealth)
	s.router.Get("/healthz", s.handleHealth)
	s.router.Get("/ready", s.handleReady)
	s.router.Get("/readyz", s.handleReady)
	s.router.Get("/status", s.handleStatus)
	if cfg.Metrics != nil {
		s.router.Method(http.MethodGet, "/metrics",
			promhttp.HandlerFor(cfg.Metrics.Registry, promhttp.HandlerOpts{}))
	}

	s.server = &http.Server{
		Addr:              cfg.Address,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s
}

// Handler returns the router
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start binds the address and serves in the background
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}

	s.logger.Info("Starting health check server", "address", ln.Addr().String())

	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error(err, "Health server error")
		}
	}()

	return nil
}

// Stop stops the health check server
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping health check server")
	return s.server.Shutdown(ctx)
}

// handleHealth handles /health and /healthz requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.source.ProxyStatus().Status == supervisor.StatusRunning {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "healthy\n")
		return
	}
	w.WriteHeader(http.StatusServiceUnavailable)
	fmt.Fprintf(w, "unhealthy\n")
}

// handleReady handles /ready and /readyz requests
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.source.LastPass() != nil {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "ready\n")
		return
	}
	w.WriteHeader(http.StatusServiceUnavailable)
	fmt.Fprintf(w, "not ready\n")
}

// handleStatus handles /status requests
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	proxy := s.source.ProxyStatus()
	pass := s.source.LastPass()

	status := Status{
		Healthy:   proxy.Status == supervisor.StatusRunning,
		Ready:     pass != nil,
		Uptime:    time.Since(s.startTime).Round(time.Second).String(),
		StartTime: s.startTime,
		Proxy:     proxy,
		LastPass:  pass,
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(status); err != nil {
		s.logger.Error(err, "Failed to encode status")
	}
}

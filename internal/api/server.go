// Package api provides the HTTP API for portsleuth: scan execution, scan
// history, health, and live result streaming over websockets.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/nvestad/portsleuth/internal/config"
	"github.com/nvestad/portsleuth/internal/db"
	"github.com/nvestad/portsleuth/internal/logging"
	"github.com/nvestad/portsleuth/internal/metrics"
	"github.com/nvestad/portsleuth/internal/netutil"
	"github.com/nvestad/portsleuth/internal/scanning"
)

const (
	serverShutdownTimeout = 30 * time.Second
	serverReadTimeout     = 10 * time.Second
	serverWriteTimeout    = 10 * time.Minute // long enough for a synchronous full-range scan
	serverIdleTimeout     = 60 * time.Second
	maxRequestBody        = 1 << 20
)

// scanRunner executes a scan for a validated configuration. It exists so
// tests can exercise handlers without touching the network.
type scanRunner func(ctx context.Context, cfg *scanning.ScanConfig, onResult scanning.ResultFunc) (*scanning.ScanResults, error)

// Server is the portsleuth API server.
type Server struct {
	httpServer *http.Server
	router     *mux.Router
	cfg        *config.Config
	store      *db.Store
	resolver   *netutil.Resolver
	logger     *logging.Logger
	runScan    scanRunner
	startTime  time.Time
}

// New creates an API server. The store may be nil when persistence is
// disabled.
func New(cfg *config.Config, store *db.Store) *Server {
	s := &Server{
		router:    mux.NewRouter(),
		cfg:       cfg,
		store:     store,
		resolver:  netutil.NewResolver(cfg.Scanning.Nameserver),
		logger:    logging.Default().WithComponent("api"),
		startTime: time.Now(),
	}
	s.runScan = s.executeScan

	s.setupRoutes()
	s.setupMiddleware()

	s.httpServer = &http.Server{
		Addr:         cfg.APIAddress(),
		Handler:      s.router,
		ReadTimeout:  serverReadTimeout,
		WriteTimeout: serverWriteTimeout,
		IdleTimeout:  serverIdleTimeout,
	}
	return s
}

// Start runs the server until the context is canceled or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("Starting API server", "address", s.httpServer.Addr)

	errChan := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("API server failed: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		return s.Stop()
	case err := <-errChan:
		return err
	}
}

// Stop shuts the server down gracefully.
func (s *Server) Stop() error {
	s.logger.Info("Stopping API server")

	ctx, cancel := context.WithTimeout(context.Background(), serverShutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	return nil
}

// Router returns the configured router, used by tests.
func (s *Server) Router() *mux.Router {
	return s.router
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/healthz", s.healthHandler).Methods(http.MethodGet)
	api.HandleFunc("/version", s.versionHandler).Methods(http.MethodGet)

	api.HandleFunc("/scans", s.createScanHandler).Methods(http.MethodPost)
	api.HandleFunc("/scans", s.listScansHandler).Methods(http.MethodGet)
	// Registered before /scans/{id} so "stream" never parses as an id.
	api.HandleFunc("/scans/stream", s.streamScanHandler).Methods(http.MethodGet)
	api.HandleFunc("/scans/{id}", s.getScanHandler).Methods(http.MethodGet)
	api.HandleFunc("/scans/{id}", s.deleteScanHandler).Methods(http.MethodDelete)

	s.router.Handle("/metrics", metrics.GetGlobalMetrics().Handler()).Methods(http.MethodGet)
}

func (s *Server) setupMiddleware() {
	s.router.Use(s.recoveryMiddleware)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(s.metricsMiddleware)
	if s.cfg.API.APIKeyHash != "" {
		s.router.Use(s.authMiddleware)
	}

	corsOrigins := handlers.AllowedOrigins([]string{"*"})
	corsHeaders := handlers.AllowedHeaders([]string{"Content-Type", "X-API-Key"})
	corsMethods := handlers.AllowedMethods([]string{"GET", "POST", "DELETE", "OPTIONS"})
	s.router.Use(handlers.CORS(corsOrigins, corsHeaders, corsMethods))
}

// executeScan is the production scan runner.
func (s *Server) executeScan(ctx context.Context, cfg *scanning.ScanConfig, onResult scanning.ResultFunc) (*scanning.ScanResults, error) {
	scanner, err := scanning.NewScanner(cfg)
	if err != nil {
		return nil, err
	}
	return scanner.RunWithCallback(ctx, onResult)
}

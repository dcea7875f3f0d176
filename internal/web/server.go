// Package web provides the HTTP API for batch shipping.
package web

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/shipbatch/internal/config"
	"github.com/JonMunkholm/shipbatch/internal/core"
	"github.com/JonMunkholm/shipbatch/internal/logging"
	"github.com/JonMunkholm/shipbatch/internal/web/middleware"
)

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) error

// Server is the HTTP server for the batch shipping API.
type Server struct {
	service *core.Service
	cfg     *config.Config
	router  *chi.Mux
	server  *http.Server
	checks  map[string]HealthCheck
	stop    chan struct{}
}

// NewServer creates a Server. checks are run by /healthz.
func NewServer(service *core.Service, cfg *config.Config, checks map[string]HealthCheck) *Server {
	s := &Server{
		service: service,
		cfg:     cfg,
		router:  chi.NewRouter(),
		checks:  checks,
		stop:    make(chan struct{}),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(chimw.RequestID)
	s.router.Use(middleware.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(middleware.Logger)
	s.router.Use(chimw.Recoverer)
	if s.cfg.Server.RequestTimeout > 0 {
		s.router.Use(chimw.Timeout(s.cfg.Server.RequestTimeout))
	}
	s.router.Use(s.securityHeaders)

	if s.cfg.Rate.Enabled && s.cfg.Rate.RequestsPerMinute > 0 {
		s.router.Use(s.newLimiter(s.cfg.Rate.RequestsPerMinute).Middleware)
	}
}

// newLimiter creates a per-IP limiter whose idle visitors are dropped until
// the server shuts down.
func (s *Server) newLimiter(perMinute int) *middleware.RateLimiter {
	rl := middleware.NewRateLimiter(perMinute)
	go rl.Cleanup(time.Minute, 3*time.Minute, s.stop)
	return rl
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Use(middleware.APIKeyAuth(&s.cfg.Security))

		r.Route("/batches", func(r chi.Router) {
			upload := r.With()
			if s.cfg.Rate.Enabled && s.cfg.Rate.UploadLimit > 0 {
				upload = r.With(s.newLimiter(s.cfg.Rate.UploadLimit).Middleware)
			}
			upload.Post("/upload", s.handleUpload)

			r.Get("/", s.handleListBatches)
			r.Get("/{batchId}", s.handleGetBatch)
			r.Delete("/{batchId}", s.handleDeleteBatch)
			r.Get("/{batchId}/stats", s.handleBatchStats)
			r.Patch("/{batchId}/step", s.handleUpdateStep)
			r.Patch("/{batchId}/ship-from", s.handleSetShipFrom)
			r.Post("/{batchId}/cancel", s.handleCancelBatch)
			r.Patch("/{batchId}/rows/{rowId}", s.handleUpdateRow)
			r.Delete("/{batchId}/rows/{rowId}", s.handleDeleteRow)
		})

		r.Route("/addresses", func(r chi.Router) {
			r.Post("/validate", s.handleValidateAddress)
			r.Post("/validate-batch/{batchId}", s.handleValidateBatch)
			r.Get("/default-ship-from", s.handleDefaultShipFrom)

			r.Get("/saved", s.handleListSavedAddresses)
			r.Post("/saved", s.handleCreateSavedAddress)
			r.Get("/saved/{id}", s.handleGetSavedAddress)
			r.Put("/saved/{id}", s.handleUpdateSavedAddress)
			r.Delete("/saved/{id}", s.handleDeleteSavedAddress)
			r.Patch("/saved/{id}/default", s.handleSetDefaultAddress)
		})

		r.Route("/shipping", func(r chi.Router) {
			r.Get("/pricing", s.handlePricing)
			r.Get("/calculate", s.handleCalculate)
			r.Get("/rates/{batchId}", s.handleBatchRates)
			r.Get("/rates/{batchId}/{rowId}", s.handleRowRates)
			r.Post("/select/{batchId}", s.handleBulkSelect)
			r.Post("/select/{batchId}/{rowId}", s.handleSelectShipping)
			r.Post("/purchase/{batchId}", s.handlePurchase)
			r.Get("/labels/{batchId}/download", s.handleDownloadLabels)
			r.Get("/labels/{batchId}/{rowId}", s.handleGetLabel)

			r.Get("/packages", s.handleListPackages)
			r.Post("/packages", s.handleCreatePackage)
			r.Get("/packages/{id}", s.handleGetPackage)
			r.Put("/packages/{id}", s.handleUpdatePackage)
			r.Delete("/packages/{id}", s.handleDeletePackage)
			r.Patch("/packages/{id}/default", s.handleSetDefaultPackage)
		})
	})
}

// Start begins listening for HTTP requests.
func (s *Server) Start() error {
	sc := s.cfg.Server
	s.server = &http.Server{
		Addr:         sc.Addr(),
		Handler:      s.router,
		ReadTimeout:  sc.ReadTimeout,
		WriteTimeout: sc.WriteTimeout,
		IdleTimeout:  sc.IdleTimeout,
	}

	logging.FromContext(context.Background()).Info("starting server", "addr", sc.Addr())
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	select {
	case <-s.stop:
	default:
		close(s.stop)
	}
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// securityHeaders adds security headers to all responses.
func (s *Server) securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		if s.cfg.Security.EnableCSP {
			// Label sheets are printed from the browser with inline styles.
			h.Set("Content-Security-Policy", "default-src 'self'; style-src 'self' 'unsafe-inline'; img-src 'self' data:")
		}
		next.ServeHTTP(w, r)
	})
}

package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/mapgame/mapgame/internal/handler"
	"github.com/mapgame/mapgame/internal/metrics"
	"github.com/mapgame/mapgame/internal/openapi"
	"github.com/mapgame/mapgame/internal/server/middleware"
	"github.com/mapgame/mapgame/internal/service"
	"github.com/mapgame/mapgame/internal/store"
	"github.com/mapgame/mapgame/internal/ui"
)

// Config holds the HTTP server configuration.
type Config struct {
	Host            string
	Port            int
	ShutdownTimeout time.Duration
	CORSOrigins     []string
	// LoginRateLimit is the number of login attempts per client IP per
	// minute. Zero disables the limit.
	LoginRateLimit int
	// TrustProxy makes the server take the client address from
	// X-Forwarded-For / X-Real-IP. Enable it only behind a reverse proxy
	// that overwrites those headers; otherwise clients can pick their own
	// address and evade the login rate limit.
	TrustProxy   bool
	CookieSecure bool
	Version      string
}

// DefaultConfig returns a Config with sensible production defaults.
func DefaultConfig() Config {
	return Config{
		Host:            "0.0.0.0",
		Port:            8080,
		ShutdownTimeout: 30 * time.Second,
		CORSOrigins:     []string{"*"},
		LoginRateLimit:  10,
		Version:         "dev",
	}
}

// Server is the top-level HTTP server. It owns the Chi router, the store and
// the auth and admin services.
type Server struct {
	cfg        Config
	router     chi.Router
	store      *store.Store
	auth       *service.AuthService
	admins     *service.AdminService
	metrics    *metrics.Metrics
	httpServer *http.Server
	logger     *slog.Logger
}

// New creates a Server with all routes and middleware wired. metrics may be
// nil, in which case /metrics is not served.
func New(cfg Config, st *store.Store, auth *service.AuthService, admins *service.AdminService, m *metrics.Metrics, logger *slog.Logger) *Server {
	s := &Server{
		cfg:     cfg,
		store:   st,
		auth:    auth,
		admins:  admins,
		metrics: m,
		logger:  logger,
	}
	s.setupRouter()
	return s
}

func (s *Server) setupRouter() {
	r := chi.NewRouter()

	// --- Global middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(s.logger))
	r.Use(chimw.Recoverer)
	if s.cfg.TrustProxy {
		r.Use(chimw.RealIP)
	}
	if s.metrics != nil {
		r.Use(s.metrics.Middleware)
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: !anyOrigin(s.cfg.CORSOrigins),
		MaxAge:           300,
	}))
	r.Use(chimw.Compress(5))

	// Session gate. Runs before routing so the access table sees the raw
	// request path.
	r.Use(middleware.Gate(middleware.DefaultAccessTable(), s.auth, s.logger))

	// --- Health checks and operations ---
	r.Get("/", s.handleRoot)
	r.Get("/healthz", s.handleHealthz)
	r.Get("/readyz", s.handleReadyz)
	r.Get("/swagger/openapi.json", s.handleOpenAPI)
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler())
	}

	authH := handler.NewAuthHandler(s.auth, s.admins, s.store, ui.MustPages(), s.cfg.CookieSecure, s.logger)
	adminH := handler.NewAdminHandler(s.admins, s.auth, s.store, s.logger)
	mapH := handler.NewMapHandler(s.store, s.logger)
	loginLimit := middleware.LoginRateLimit(s.cfg.LoginRateLimit)

	// --- Admin pages ---
	r.Get("/admin", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/admin/dashboard", http.StatusFound)
	})
	r.Get("/admin/login", authH.LoginPage)
	r.With(loginLimit).Post("/admin/login", authH.LoginForm)
	r.Get("/admin/logout", authH.Logout)
	r.Post("/admin/logout", authH.Logout)
	r.Get("/admin/dashboard", middleware.Admin(authH.Dashboard))

	// --- Auth API ---
	r.Route("/api/auth", func(r chi.Router) {
		r.With(loginLimit).Post("/login", authH.Login)
		r.Post("/logout", authH.APILogout)
		r.With(loginLimit).Post("/setup", authH.Setup)
	})

	// --- Admin API (identity required per handler) ---
	r.Route("/api/admin", func(r chi.Router) {
		r.Get("/me", middleware.Admin(adminH.Me))

		r.Get("/admins", middleware.Admin(adminH.List))
		r.Post("/admins", middleware.Admin(adminH.Create))
		r.Put("/admins/{id}/deactivate", middleware.Admin(adminH.Deactivate))
		r.Put("/admins/{id}/activate", middleware.Admin(adminH.Activate))
		r.Put("/admins/{id}/password", middleware.Admin(adminH.ChangePassword))
		r.Delete("/admins/{id}", middleware.Admin(adminH.Delete))

		r.Get("/sessions", middleware.Admin(adminH.Sessions))
		r.Post("/sessions/logout-all", middleware.Admin(adminH.LogoutAll))

		r.Get("/map-objects", middleware.Admin(mapH.AdminList))
		r.Post("/map-objects", middleware.Admin(mapH.AdminCreate))
		r.Get("/map-objects/{id}", middleware.Admin(mapH.AdminGet))
		r.Put("/map-objects/{id}", middleware.Admin(mapH.AdminUpdate))
		r.Delete("/map-objects/{id}", middleware.Admin(mapH.AdminDelete))
		r.Get("/map-objects/{id}/interactions", middleware.Admin(mapH.AdminInteractions))
	})

	// --- Public map API ---
	r.Route("/api/map/objects", func(r chi.Router) {
		r.Get("/", mapH.ListObjects)
		r.Get("/nearby", mapH.NearbyObjects)
		r.Get("/unlocked", mapH.UnlockedObjects)
		r.Get("/type/{type}", mapH.ObjectsByType)
		r.Get("/{id}", mapH.GetObject)
		r.Post("/{id}/interact", mapH.Interact)
	})

	s.router = r
}

// anyOrigin reports whether origins lets every site through. Cookies are
// never shared with such a list.
func anyOrigin(origins []string) bool {
	if len(origins) == 0 {
		return true
	}
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return false
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"name":    "mapgame",
		"version": s.cfg.Version,
		"docs":    "/swagger/openapi.json",
	})
}

// handleHealthz is a liveness probe. Returns 200 if the process is running.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

// handleReadyz is a readiness probe. Returns 200 when the database is
// reachable, or 503 otherwise.
func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	httpStatus := http.StatusOK
	checks := map[string]string{}

	if err := s.store.Ping(r.Context()); err != nil {
		checks["database"] = "error: " + err.Error()
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["database"] = "ok"
	}

	writeJSON(w, httpStatus, map[string]interface{}{
		"status": status,
		"checks": checks,
	})
}

func (s *Server) handleOpenAPI(w http.ResponseWriter, r *http.Request) {
	data, err := openapi.JSON(s.cfg.Version, "")
	if err != nil {
		s.logger.Error("openapi generation failed", "error", err)
		http.Error(w, "OpenAPI document unavailable", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// ListenAndServe starts the HTTP server and blocks until a SIGINT or SIGTERM
// is received. It then drains in-flight requests and closes the store.
func (s *Server) ListenAndServe() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "addr", addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server listen: %w", err)
	case <-ctx.Done():
		s.logger.Info("shutdown signal received, draining connections...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	if err := s.store.Close(); err != nil {
		s.logger.Warn("closing store", "error", err)
	}
	s.logger.Info("server stopped")
	return nil
}

// Router returns the underlying Chi router, useful for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// ServeHTTP implements http.Handler, delegating to the router.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

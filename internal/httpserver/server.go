package httpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"parchaoo-bot/internal/cache"
	"parchaoo-bot/internal/config"
	"parchaoo-bot/internal/directory"
	"parchaoo-bot/internal/metrics"
	"parchaoo-bot/internal/repo"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handlers groups optional HTTP handlers to mount.
type Handlers struct {
	Webhook http.Handler
}

// Dependencies exposes core dependencies to handlers that need them.
type Dependencies struct {
	Repository repo.Repository
	Redis      *cache.Redis
	Directory  *directory.Service
	Config     *config.Config
}

// Server wraps an http.Server with predefined routes.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	metrics    *metrics.Metrics
	handlers   Handlers
	deps       Dependencies
	basePath   string
}

// New creates a new HTTP server listening on addr with health and metrics endpoints.
func New(addr string, logger *slog.Logger, metricRegistry *metrics.Metrics, handlers Handlers, basePath string) *Server {
	server := &Server{
		logger:   logger.With("component", "http"),
		metrics:  metricRegistry,
		handlers: handlers,
		basePath: normaliseBasePath(basePath),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", healthHandler)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/status", server.handleStatus)
	mux.HandleFunc("/status/", server.handleStatus)
	mux.HandleFunc("/admin/reload-category-cache", server.handleReloadCategoryCache)

	if handlers.Webhook != nil {
		mux.Handle("/webhook", handlers.Webhook)
		mux.Handle("/webhook/", handlers.Webhook)
	}

	handler := mountWithBasePath(server.basePath, mux)

	server.httpServer = &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	if server.basePath != "" {
		server.logger.Info("http server configured with base path", "base_path", server.basePath)
	}

	return server
}

// SetDependencies makes dependencies accessible to handlers.
func (s *Server) SetDependencies(deps Dependencies) {
	s.deps = deps
}

// Start begins listening for incoming HTTP requests.
func (s *Server) Start() error {
	s.logger.Info("http server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server listen: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.httpServer.Shutdown(ctx)
}

// handleStatus reports a redacted configuration summary: booleans plus a few
// partially masked values, never whole secrets.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	cfg := s.deps.Config
	if cfg == nil {
		http.Error(w, "configuration unavailable", http.StatusServiceUnavailable)
		return
	}

	dbOK := false
	if s.deps.Repository != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		dbOK = s.deps.Repository.Ping(ctx) == nil
	}

	writeJSON(w, map[string]any{
		"status":                  "ok",
		"environment":             cfg.AppEnv,
		"database_ok":             dbOK,
		"verify_token_configured": cfg.MetaVerifyToken != "",
		"whatsapp_configured":     cfg.MetaAccessToken != "" && cfg.MetaPhoneNumberID != "",
		"phone_number_id":         redact(cfg.MetaPhoneNumberID, 10),
		"access_token_length":     len(cfg.MetaAccessToken),
		"gemini_configured":       cfg.GeminiAPIKey != "",
		"gemini_model":            cfg.GeminiModel,
		"allowed_hosts":           cfg.AllowedHosts,
		"timezone":                cfg.Timezone,
	})
}

func (s *Server) handleReloadCategoryCache(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.deps.Directory == nil {
		http.Error(w, "directory service unavailable", http.StatusServiceUnavailable)
		return
	}

	names := s.deps.Directory.ReloadCategories(r.Context())
	writeJSON(w, map[string]any{
		"status": "ok",
		"count":  len(names),
	})
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, map[string]string{"status": "ok"})
}

func redact(val string, keep int) string {
	if val == "" {
		return ""
	}
	if len(val) <= keep {
		return val
	}
	return val[:keep] + "..."
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, "failed to encode json", http.StatusInternalServerError)
	}
}

func mountWithBasePath(basePath string, handler http.Handler) http.Handler {
	if basePath == "" {
		return handler
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, basePath) {
			http.NotFound(w, r)
			return
		}
		if len(r.URL.Path) > len(basePath) && r.URL.Path[len(basePath)] != '/' {
			http.NotFound(w, r)
			return
		}
		trimmed := strings.TrimPrefix(r.URL.Path, basePath)
		if trimmed == "" {
			trimmed = "/"
		}
		r.URL.Path = trimmed
		if r.URL.RawPath != "" {
			rawTrimmed := strings.TrimPrefix(r.URL.RawPath, basePath)
			if rawTrimmed == "" {
				rawTrimmed = "/"
			}
			r.URL.RawPath = rawTrimmed
		}
		handler.ServeHTTP(w, r)
	})
}

func normaliseBasePath(base string) string {
	base = strings.TrimSpace(base)
	if base == "" || base == "/" {
		return ""
	}
	if !strings.HasPrefix(base, "/") {
		base = "/" + base
	}
	return strings.TrimSuffix(base, "/")
}

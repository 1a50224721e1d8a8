package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Alkitu/alkitu-template-sub002/internal/config"
	"github.com/Alkitu/alkitu-template-sub002/internal/domain"
	"github.com/Alkitu/alkitu-template-sub002/internal/models"

	"github.com/rs/zerolog"
)

// RequestExporter renders a request listing to a file on disk.
type RequestExporter interface {
	ExportRequests(requests []*models.Request) (string, error)
}

// AttachmentStore saves uploaded files into per-user folders.
type AttachmentStore interface {
	SaveAttachment(userID int64, name string, r io.Reader) (string, error)
}

// Deps carries everything the HTTP server needs.
type Deps struct {
	Auth          Authenticator
	Requests      domain.RequestService
	Notifications domain.NotificationService
	Catalog       domain.CatalogService
	Users         domain.UserService
	Exporter      RequestExporter
	Attachments   AttachmentStore
	Limiter       domain.RateLimiter
}

// Server is the REST surface over the request lifecycle.
type Server struct {
	cfg           *config.Config
	auth          Authenticator
	requests      domain.RequestService
	notifications domain.NotificationService
	catalog       domain.CatalogService
	users         domain.UserService
	exporter      RequestExporter
	attachments   AttachmentStore
	limiter       domain.RateLimiter
	logger        *zerolog.Logger
	server        *http.Server
}

func NewServer(cfg *config.Config, deps Deps, logger *zerolog.Logger) *Server {
	s := &Server{
		cfg:           cfg,
		auth:          deps.Auth,
		requests:      deps.Requests,
		notifications: deps.Notifications,
		catalog:       deps.Catalog,
		users:         deps.Users,
		exporter:      deps.Exporter,
		attachments:   deps.Attachments,
		limiter:       deps.Limiter,
		logger:        logger,
	}

	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/v1/requests", s.guarded(Guard{Roles: []models.Role{models.RoleClient}}, s.handleCreateRequest))
	mux.HandleFunc("GET /api/v1/requests", s.guarded(Guard{}, s.handleListRequests))
	mux.HandleFunc("GET /api/v1/requests/stats/count", s.guarded(Guard{}, s.handleCountRequests))
	mux.HandleFunc("GET /api/v1/requests/export", s.guarded(Guard{Roles: []models.Role{models.RoleAdmin}, Feature: config.FeatureExports}, s.handleExportRequests))
	mux.HandleFunc("GET /api/v1/requests/{id}", s.guarded(Guard{}, s.handleGetRequest))
	mux.HandleFunc("PATCH /api/v1/requests/{id}", s.guarded(Guard{}, s.handleUpdateRequest))
	mux.HandleFunc("DELETE /api/v1/requests/{id}", s.guarded(Guard{}, s.handleDeleteRequest))
	mux.HandleFunc("POST /api/v1/requests/{id}/assign", s.guarded(Guard{Roles: []models.Role{models.RoleEmployee, models.RoleAdmin}}, s.handleAssignRequest))
	mux.HandleFunc("POST /api/v1/requests/{id}/cancel", s.guarded(Guard{Roles: []models.Role{models.RoleClient, models.RoleAdmin}}, s.handleCancelRequest))
	mux.HandleFunc("POST /api/v1/requests/{id}/complete", s.guarded(Guard{Roles: []models.Role{models.RoleEmployee, models.RoleAdmin}}, s.handleCompleteRequest))
	mux.HandleFunc("POST /api/v1/attachments", s.guarded(Guard{}, s.handleUploadAttachment))
	mux.HandleFunc("POST /api/v1/services", s.guarded(Guard{Roles: []models.Role{models.RoleAdmin}}, s.handleCreateService))
	mux.HandleFunc("GET /api/v1/services", s.guarded(Guard{}, s.handleListServices))
	mux.HandleFunc("GET /api/v1/services/{id}", s.guarded(Guard{}, s.handleGetService))
	mux.HandleFunc("POST /api/v1/locations", s.guarded(Guard{}, s.handleCreateLocation))
	mux.HandleFunc("GET /api/v1/locations/{id}", s.guarded(Guard{}, s.handleGetLocation))
	mux.HandleFunc("POST /api/v1/users", s.guarded(Guard{Roles: []models.Role{models.RoleEmployee, models.RoleAdmin}}, s.handleCreateUser))
	mux.HandleFunc("GET /api/v1/users", s.guarded(Guard{Roles: []models.Role{models.RoleAdmin}}, s.handleListUsers))
	mux.HandleFunc("GET /api/v1/users/{id}", s.guarded(Guard{Roles: []models.Role{models.RoleAdmin}}, s.handleGetUser))
	mux.HandleFunc("GET /api/v1/notifications", s.guarded(Guard{Feature: config.FeatureNotifications}, s.handleListNotifications))
	mux.HandleFunc("POST /api/v1/notifications/{id}/read", s.guarded(Guard{Feature: config.FeatureNotifications}, s.handleMarkNotificationRead))

	// /healthz bypasses auth and rate limiting
	root := http.NewServeMux()
	root.HandleFunc("GET /healthz", s.handleHealthz)
	root.Handle("/api/v1/", s.authMiddleware(s.rateLimitMiddleware(mux)))

	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.API.Port),
		Handler:           s.loggingMiddleware(root),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
	}

	return s
}

func (s *Server) Start() error {
	if s.server == nil {
		return fmt.Errorf("http server is not initialized")
	}
	s.logger.Info().Str("addr", s.server.Addr).Msg("http api listening")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Handler exposes the full middleware chain for tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}

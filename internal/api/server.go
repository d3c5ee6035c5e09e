// Package api provides the HTTP API server and handlers for the Nestfolio application.
package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/nestfolio/nestfolio-server/internal/service"
	"github.com/nestfolio/nestfolio-server/internal/store/sqlite"
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	store              *sqlite.Store
	authService        *service.AuthService
	collectionService  *service.CollectionService
	preferencesService *service.PreferencesService
	propertyService    *service.PropertyService
	syncEngine         *service.SyncEngine
	cleanupService     *service.CleanupService
	router             *chi.Mux
	logger             *slog.Logger
	serverName         string
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(
	store *sqlite.Store,
	authService *service.AuthService,
	collectionService *service.CollectionService,
	preferencesService *service.PreferencesService,
	propertyService *service.PropertyService,
	syncEngine *service.SyncEngine,
	cleanupService *service.CleanupService,
	serverName string,
	logger *slog.Logger,
) *Server {
	s := &Server{
		store:              store,
		authService:        authService,
		collectionService:  collectionService,
		preferencesService: preferencesService,
		propertyService:    propertyService,
		syncEngine:         syncEngine,
		cleanupService:     cleanupService,
		router:             chi.NewRouter(),
		logger:             logger,
		serverName:         serverName,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// setupMiddleware configures middleware stack.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	// Health check.
	s.router.Get("/health", s.handleHealthCheck)

	// API v1.
	s.router.Route("/api/v1", func(r chi.Router) {
		// Auth endpoints (public).
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", s.handleRegister)
			r.Post("/login", s.handleLogin)
			r.Post("/refresh", s.handleRefresh)
			r.Post("/logout", s.handleLogout)
		})

		// Protected user endpoints.
		r.Route("/users", func(r chi.Router) {
			r.Use(s.requireAuth)
			r.Get("/me", s.handleGetCurrentUser)
		})

		// Collections (require auth).
		r.Route("/collections", func(r chi.Router) {
			r.Use(s.requireAuth)
			r.Post("/", s.handleCreateCollection)
			r.Get("/", s.handleListCollections)
			r.Get("/{id}", s.handleGetCollection)
			r.Patch("/{id}", s.handleUpdateCollection)
			r.Delete("/{id}", s.handleDeleteCollection)

			r.Post("/{id}/activate", s.handleActivateCollection)
			r.Post("/{id}/deactivate", s.handleDeactivateCollection)
			r.Post("/{id}/share", s.handleShareCollection)
			r.Post("/{id}/unshare", s.handleUnshareCollection)

			r.Get("/{id}/properties", s.handleListCollectionProperties)
			r.Post("/{id}/properties", s.handleAddCollectionProperty)
			r.Delete("/{id}/properties/{propertyID}", s.handleRemoveCollectionProperty)
			r.Get("/{id}/feedback", s.handleCollectionFeedback)

			r.Get("/{id}/tours", s.handleListCollectionTours)
			r.Patch("/{id}/tours/{tourID}", s.handleUpdateTourStatus)

			r.Post("/{id}/sync", s.handleSyncCollection)

			r.Post("/{id}/preferences", s.handleCreatePreferences)
			r.Get("/{id}/preferences", s.handleGetPreferences)
			r.Patch("/{id}/preferences", s.handleUpdatePreferences)
			r.Put("/{id}/preferences", s.handleUpdatePreferencesAndRefresh)
		})

		// Property lookups (require auth).
		r.Route("/properties", func(r chi.Router) {
			r.Use(s.requireAuth)
			r.Get("/lookup", s.handleLookupProperty)
		})

		// Maintenance (require auth).
		r.Route("/maintenance", func(r chi.Router) {
			r.Use(s.requireAuth)
			r.Post("/cleanup", s.handleCleanup)
		})

		// Shared collection views (public, token-gated).
		r.Route("/shared/{token}", func(r chi.Router) {
			r.Get("/", s.handleGetSharedCollection)
			r.Post("/properties/{propertyID}/interactions", s.handleSharedInteraction)
			r.Post("/properties/{propertyID}/comments", s.handleSharedComment)
			r.Post("/properties/{propertyID}/tours", s.handleSharedTourRequest)
		})

		// Open-house visitor sign-in form (public).
		r.Post("/visitors/collections", s.handleVisitorForm)
	})
}

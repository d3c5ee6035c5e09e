package providers

import (
	"context"
	"net/http"

	"github.com/samber/do/v2"

	"github.com/nestfolio/nestfolio-server/internal/api"
	"github.com/nestfolio/nestfolio-server/internal/config"
	"github.com/nestfolio/nestfolio-server/internal/logger"
	"github.com/nestfolio/nestfolio-server/internal/service"
)

// HTTPServerHandle wraps the HTTP server for lifecycle management.
type HTTPServerHandle struct {
	*http.Server
}

// Shutdown implements do.Shutdownable.
func (h *HTTPServerHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.Server.Shutdown(ctx)
}

// ProvideHTTPServer provides the HTTP server.
func ProvideHTTPServer(i do.Injector) (*HTTPServerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	authService := do.MustInvoke[*service.AuthService](i)
	collectionService := do.MustInvoke[*service.CollectionService](i)
	preferencesService := do.MustInvoke[*service.PreferencesService](i)
	propertyService := do.MustInvoke[*service.PropertyService](i)
	syncEngine := do.MustInvoke[*service.SyncEngine](i)
	cleanupService := do.MustInvoke[*service.CleanupService](i)

	handler := api.NewServer(
		storeHandle.Store,
		authService,
		collectionService,
		preferencesService,
		propertyService,
		syncEngine,
		cleanupService,
		cfg.Server.Name,
		log.Logger,
	)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start in background
	go func() {
		log.Info("HTTP server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error", "error", err)
		}
	}()

	log.Info("Server running", "addr", srv.Addr)

	return &HTTPServerHandle{Server: srv}, nil
}

// Package di provides dependency injection configuration for the Nestfolio server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/nestfolio/nestfolio-server/internal/auth"
	"github.com/nestfolio/nestfolio-server/internal/config"
	"github.com/nestfolio/nestfolio-server/internal/di/providers"
	"github.com/nestfolio/nestfolio-server/internal/listing"
	"github.com/nestfolio/nestfolio-server/internal/logger"
	"github.com/nestfolio/nestfolio-server/internal/matcher"
	"github.com/nestfolio/nestfolio-server/internal/notify"
	"github.com/nestfolio/nestfolio-server/internal/service"
	"github.com/nestfolio/nestfolio-server/internal/validation"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideAuthKey)
	do.Provide(injector, providers.ProvideValidator)

	// Database layer
	do.Provide(injector, providers.ProvideStore)

	// Upstream listing layer
	do.Provide(injector, providers.ProvideListingClient)
	do.Provide(injector, providers.ProvideMatcher)

	// Auth layer
	do.Provide(injector, providers.ProvideTokenService)

	// Business services
	do.Provide(injector, providers.ProvideSyncEngine)
	do.Provide(injector, providers.ProvideAuthService)
	do.Provide(injector, providers.ProvideCollectionService)
	do.Provide(injector, providers.ProvidePreferencesService)
	do.Provide(injector, providers.ProvidePropertyService)
	do.Provide(injector, providers.ProvideCleanupService)

	// Workers
	do.Provide(injector, providers.ProvideNotifier)
	do.Provide(injector, providers.ProvideScheduler)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes all services and returns handles for lifecycle management.
// This triggers lazy initialization of all core services.
func Bootstrap(injector *do.RootScope) error {
	// Invoke core services to trigger initialization
	_ = do.MustInvoke[*config.Config](injector)
	_ = do.MustInvoke[*logger.Logger](injector)
	_ = do.MustInvoke[providers.AuthKey](injector)
	_ = do.MustInvoke[*validation.Validator](injector)
	_ = do.MustInvoke[*providers.StoreHandle](injector)
	_ = do.MustInvoke[*listing.Client](injector)
	_ = do.MustInvoke[*matcher.Matcher](injector)
	_ = do.MustInvoke[*auth.TokenService](injector)

	// Business services
	_ = do.MustInvoke[*service.SyncEngine](injector)
	_ = do.MustInvoke[*service.AuthService](injector)
	_ = do.MustInvoke[*service.CollectionService](injector)
	_ = do.MustInvoke[*service.PreferencesService](injector)
	_ = do.MustInvoke[*service.PropertyService](injector)
	_ = do.MustInvoke[*service.CleanupService](injector)

	// Workers
	_ = do.MustInvoke[notify.Notifier](injector)
	_ = do.MustInvoke[*providers.SchedulerHandle](injector)

	// Server
	_ = do.MustInvoke[*providers.HTTPServerHandle](injector)

	return nil
}

package providers

import (
	"github.com/samber/do/v2"

	"github.com/nestfolio/nestfolio-server/internal/auth"
	"github.com/nestfolio/nestfolio-server/internal/config"
	"github.com/nestfolio/nestfolio-server/internal/listing"
	"github.com/nestfolio/nestfolio-server/internal/logger"
	"github.com/nestfolio/nestfolio-server/internal/matcher"
	"github.com/nestfolio/nestfolio-server/internal/service"
	"github.com/nestfolio/nestfolio-server/internal/validation"
)

// ProvideValidator provides the request validator.
func ProvideValidator(i do.Injector) (*validation.Validator, error) {
	return validation.New(), nil
}

// ProvideSyncEngine provides the collection sync engine.
func ProvideSyncEngine(i do.Injector) (*service.SyncEngine, error) {
	log := do.MustInvoke[*logger.Logger](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	m := do.MustInvoke[*matcher.Matcher](i)

	return service.NewSyncEngine(storeHandle.Store, m, log.Logger), nil
}

// ProvideAuthService provides the authentication service.
func ProvideAuthService(i do.Injector) (*service.AuthService, error) {
	log := do.MustInvoke[*logger.Logger](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	tokens := do.MustInvoke[*auth.TokenService](i)
	validator := do.MustInvoke[*validation.Validator](i)

	return service.NewAuthService(storeHandle.Store, tokens, validator, log.Logger), nil
}

// ProvideCollectionService provides the collection service.
func ProvideCollectionService(i do.Injector) (*service.CollectionService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)

	return service.NewCollectionService(storeHandle.Store, log.Logger, cfg.Sync.MaxActiveCollections), nil
}

// ProvidePreferencesService provides the preferences service.
func ProvidePreferencesService(i do.Injector) (*service.PreferencesService, error) {
	log := do.MustInvoke[*logger.Logger](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	engine := do.MustInvoke[*service.SyncEngine](i)

	return service.NewPreferencesService(storeHandle.Store, engine, log.Logger), nil
}

// ProvidePropertyService provides the property lookup service.
func ProvidePropertyService(i do.Injector) (*service.PropertyService, error) {
	log := do.MustInvoke[*logger.Logger](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	client := do.MustInvoke[*listing.Client](i)

	return service.NewPropertyService(storeHandle.Store, client, log.Logger), nil
}

// ProvideCleanupService provides the orphaned-property cleanup service.
func ProvideCleanupService(i do.Injector) (*service.CleanupService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)

	return service.NewCleanupService(storeHandle.Store, log.Logger, cfg.Cleanup.BatchSize, cfg.Cleanup.DryRun), nil
}

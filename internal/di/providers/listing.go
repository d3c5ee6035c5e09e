package providers

import (
	"github.com/samber/do/v2"

	"github.com/nestfolio/nestfolio-server/internal/config"
	"github.com/nestfolio/nestfolio-server/internal/listing"
	"github.com/nestfolio/nestfolio-server/internal/logger"
	"github.com/nestfolio/nestfolio-server/internal/matcher"
)

// ProvideListingClient provides the rate-limited upstream listing client.
func ProvideListingClient(i do.Injector) (*listing.Client, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	client, err := listing.New(listing.Config{
		APIKey:     cfg.Listing.APIKey,
		BaseURL:    cfg.Listing.BaseURL,
		HostHeader: cfg.Listing.HostHeader,
		Timeout:    cfg.Listing.RequestTimeout,
		RPS:        cfg.Listing.RPS,
		Burst:      cfg.Listing.Burst,
	}, log.Logger)
	if err != nil {
		return nil, err
	}

	log.Info("Listing client ready",
		"base_url", cfg.Listing.BaseURL,
		"rps", cfg.Listing.RPS,
		"burst", cfg.Listing.Burst,
	)

	return client, nil
}

// ProvideMatcher provides the preference matcher.
func ProvideMatcher(i do.Injector) (*matcher.Matcher, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	client := do.MustInvoke[*listing.Client](i)

	return matcher.New(client, log.Logger, cfg.Sync.RegionDelay), nil
}

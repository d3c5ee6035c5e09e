package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nestfolio/nestfolio-server/internal/domain"
	"github.com/nestfolio/nestfolio-server/internal/errors"
	"github.com/nestfolio/nestfolio-server/internal/id"
	"github.com/nestfolio/nestfolio-server/internal/store"
	"github.com/nestfolio/nestfolio-server/internal/store/sqlite"
)

// Auto-generation constants for preferences derived from an open-house
// visit.
const (
	autoPriceBand   = 0.20 // price window of ±20% around the visited home
	autoRadiusMiles = 10.0
)

// PreferencesService manages the preference record attached to each
// collection.
type PreferencesService struct {
	store  *sqlite.Store
	engine *SyncEngine
	logger *slog.Logger
}

// NewPreferencesService creates a preferences service.
func NewPreferencesService(store *sqlite.Store, engine *SyncEngine, logger *slog.Logger) *PreferencesService {
	return &PreferencesService{
		store:  store,
		engine: engine,
		logger: logger,
	}
}

// PreferencesInput carries every settable preference field.
type PreferencesInput struct {
	MinBeds  *int     `json:"min_beds" validate:"omitempty,min=0,max=20"`
	MaxBeds  *int     `json:"max_beds" validate:"omitempty,min=0,max=20"`
	MinBaths *float64 `json:"min_baths" validate:"omitempty,min=0,max=20"`
	MaxBaths *float64 `json:"max_baths" validate:"omitempty,min=0,max=20"`
	MinPrice *int64   `json:"min_price" validate:"omitempty,min=0"`
	MaxPrice *int64   `json:"max_price" validate:"omitempty,min=0"`

	Lat         *float64 `json:"lat" validate:"omitempty,latitude"`
	Long        *float64 `json:"long" validate:"omitempty,longitude"`
	Address     string   `json:"address" validate:"max=300"`
	RadiusMiles float64  `json:"radius_miles" validate:"min=0,max=100"`
	Cities      []string `json:"cities" validate:"max=20,dive,min=1,max=100"`
	Townships   []string `json:"townships" validate:"max=20,dive,min=1,max=100"`

	SpecialFeatures string `json:"special_features" validate:"max=2000"`

	IsTownHouse    bool `json:"is_town_house"`
	IsLotLand      bool `json:"is_lot_land"`
	IsCondo        bool `json:"is_condo"`
	IsMultiFamily  bool `json:"is_multi_family"`
	IsSingleFamily bool `json:"is_single_family"`
	IsApartment    bool `json:"is_apartment"`

	Timeframe      string `json:"timeframe" validate:"omitempty,oneof=IMMEDIATELY 1_3_MONTHS 3_6_MONTHS 6_12_MONTHS OVER_A_YEAR"`
	VisitingReason string `json:"visiting_reason" validate:"omitempty,oneof=BUYING_SOON BROWSING NEIGHBOR CURIOUS"`
	HasAgent       string `json:"has_agent" validate:"omitempty,oneof=YES NO LOOKING"`
}

func (in *PreferencesInput) apply(p *domain.CollectionPreferences) {
	p.MinBeds = in.MinBeds
	p.MaxBeds = in.MaxBeds
	p.MinBaths = in.MinBaths
	p.MaxBaths = in.MaxBaths
	p.MinPrice = in.MinPrice
	p.MaxPrice = in.MaxPrice
	p.Lat = in.Lat
	p.Long = in.Long
	p.Address = in.Address
	p.RadiusMiles = in.RadiusMiles
	p.Cities = in.Cities
	p.Townships = in.Townships
	p.SpecialFeatures = in.SpecialFeatures
	p.IsTownHouse = in.IsTownHouse
	p.IsLotLand = in.IsLotLand
	p.IsCondo = in.IsCondo
	p.IsMultiFamily = in.IsMultiFamily
	p.IsSingleFamily = in.IsSingleFamily
	p.IsApartment = in.IsApartment
	p.Timeframe = in.Timeframe
	p.VisitingReason = in.VisitingReason
	p.HasAgent = in.HasAgent
}

// validateSearchTarget rejects preference sets the matcher could never
// query.
func validateSearchTarget(p *domain.CollectionPreferences) error {
	if p.HasCoordinates() {
		return nil
	}
	if len(p.Regions()) > 0 {
		return nil
	}
	return errors.Validation("preferences need coordinates or at least one city or township")
}

func (s *PreferencesService) ownedCollection(ctx context.Context, ownerID, collectionID string) (*domain.Collection, error) {
	collection, err := s.store.GetCollection(ctx, collectionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, errors.NotFound("collection not found")
		}
		return nil, err
	}
	if collection.OwnerID != ownerID {
		return nil, errors.NotFound("collection not found")
	}
	return collection, nil
}

// Create attaches preferences to a collection that has none yet.
func (s *PreferencesService) Create(ctx context.Context, ownerID, collectionID string, input PreferencesInput) (*domain.CollectionPreferences, error) {
	if _, err := s.ownedCollection(ctx, ownerID, collectionID); err != nil {
		return nil, err
	}

	now := time.Now()
	prefs := &domain.CollectionPreferences{
		ID:           id.MustGenerate("pref"),
		CollectionID: collectionID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	input.apply(prefs)

	if err := validateSearchTarget(prefs); err != nil {
		return nil, err
	}

	if err := s.store.CreatePreferences(ctx, prefs); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return nil, errors.AlreadyExists("collection already has preferences")
		}
		return nil, fmt.Errorf("create preferences: %w", err)
	}

	s.logger.Info("preferences created",
		"collection_id", collectionID,
		"owner_id", ownerID,
	)
	return prefs, nil
}

// Get retrieves a collection's preferences.
func (s *PreferencesService) Get(ctx context.Context, ownerID, collectionID string) (*domain.CollectionPreferences, error) {
	if _, err := s.ownedCollection(ctx, ownerID, collectionID); err != nil {
		return nil, err
	}
	prefs, err := s.store.GetPreferencesByCollection(ctx, collectionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, errors.NotFound("collection has no preferences")
		}
		return nil, err
	}
	return prefs, nil
}

// Update stores new preference values without touching the collection's
// membership. Use UpdateAndRefresh when the membership should follow.
func (s *PreferencesService) Update(ctx context.Context, ownerID, collectionID string, input PreferencesInput) (*domain.CollectionPreferences, error) {
	prefs, err := s.Get(ctx, ownerID, collectionID)
	if err != nil {
		return nil, err
	}

	input.apply(prefs)
	if err := validateSearchTarget(prefs); err != nil {
		return nil, err
	}

	if err := s.store.UpdatePreferences(ctx, prefs); err != nil {
		return nil, fmt.Errorf("update preferences: %w", err)
	}
	return prefs, nil
}

// UpdateAndRefresh stores new preferences and rebuilds the collection's
// membership from a fresh match in one transaction. On any failure both
// keep their previous state.
func (s *PreferencesService) UpdateAndRefresh(ctx context.Context, ownerID, collectionID string, input PreferencesInput) (*domain.CollectionPreferences, domain.SyncOutcome, error) {
	prefs, err := s.Get(ctx, ownerID, collectionID)
	if err != nil {
		return nil, domain.SyncOutcome{}, err
	}

	input.apply(prefs)
	if err := validateSearchTarget(prefs); err != nil {
		return nil, domain.SyncOutcome{}, err
	}

	outcome, err := s.engine.UpdatePreferencesAndReplace(ctx, prefs)
	if err != nil {
		return nil, outcome, err
	}
	return prefs, outcome, nil
}

// VisitorFormInput is what the open-house sign-in form submits alongside
// visitor contact details.
type VisitorFormInput struct {
	Timeframe      string `json:"timeframe" validate:"omitempty,oneof=IMMEDIATELY 1_3_MONTHS 3_6_MONTHS 6_12_MONTHS OVER_A_YEAR"`
	VisitingReason string `json:"visiting_reason" validate:"omitempty,oneof=BUYING_SOON BROWSING NEIGHBOR CURIOUS"`
	HasAgent       string `json:"has_agent" validate:"omitempty,oneof=YES NO LOOKING"`
}

// GenerateFromListing derives a preference set from the home a visitor
// walked through: one bedroom under the visited home and up, a price
// window around its list price, and a radius search centered on it. The
// visited home's city backs the search when it has no coordinates.
func GenerateFromListing(source *domain.Property, form VisitorFormInput) PreferencesInput {
	input := PreferencesInput{
		Timeframe:      form.Timeframe,
		VisitingReason: form.VisitingReason,
		HasAgent:       form.HasAgent,
	}

	if source == nil {
		return input
	}

	if source.Bedrooms != nil {
		minBeds := *source.Bedrooms - 1
		if minBeds < 1 {
			minBeds = 1
		}
		input.MinBeds = &minBeds
	}

	if source.Price != nil {
		minPrice := int64(float64(*source.Price) * (1 - autoPriceBand))
		maxPrice := int64(float64(*source.Price) * (1 + autoPriceBand))
		input.MinPrice = &minPrice
		input.MaxPrice = &maxPrice
	}

	if source.Latitude != nil && source.Longitude != nil {
		lat, long := *source.Latitude, *source.Longitude
		input.Lat = &lat
		input.Long = &long
		input.RadiusMiles = autoRadiusMiles
		input.Address = source.StreetAddress
	} else if source.City != "" {
		input.Cities = []string{source.City}
	}

	switch source.HomeType {
	case "TOWNHOUSE":
		input.IsTownHouse = true
	case "CONDO":
		input.IsCondo = true
	case "MULTI_FAMILY":
		input.IsMultiFamily = true
	case "LOT", "LAND", "LOT_LAND":
		input.IsLotLand = true
	case "APARTMENT":
		input.IsApartment = true
	default:
		input.IsSingleFamily = true
	}

	return input
}

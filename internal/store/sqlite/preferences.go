package sqlite

import (
	"context"
	"database/sql"
	"encoding/json/v2"
	"time"

	"github.com/nestfolio/nestfolio-server/internal/domain"
	"github.com/nestfolio/nestfolio-server/internal/store"
)

const preferencesColumns = `id, collection_id, min_beds, max_beds, min_baths, max_baths, min_price, max_price, lat, long, address, radius_miles, cities, townships, special_features, is_town_house, is_lot_land, is_condo, is_multi_family, is_single_family, is_apartment, timeframe, visiting_reason, has_agent, created_at, updated_at`

func scanPreferences(scanner interface{ Scan(dest ...any) error }) (*domain.CollectionPreferences, error) {
	var p domain.CollectionPreferences

	var (
		minBeds, maxBeds             sql.NullInt64
		minBaths, maxBaths           sql.NullFloat64
		minPrice, maxPrice           sql.NullInt64
		lat, long                    sql.NullFloat64
		citiesJSON, townshipsJSON    string
		townHouse, lotLand, condo    int
		multiFamily, singleFamily    int
		apartment                    int
		createdAt, updatedAt         string
	)

	err := scanner.Scan(
		&p.ID,
		&p.CollectionID,
		&minBeds,
		&maxBeds,
		&minBaths,
		&maxBaths,
		&minPrice,
		&maxPrice,
		&lat,
		&long,
		&p.Address,
		&p.RadiusMiles,
		&citiesJSON,
		&townshipsJSON,
		&p.SpecialFeatures,
		&townHouse,
		&lotLand,
		&condo,
		&multiFamily,
		&singleFamily,
		&apartment,
		&p.Timeframe,
		&p.VisitingReason,
		&p.HasAgent,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	p.MinBeds = intPtrFromNull(minBeds)
	p.MaxBeds = intPtrFromNull(maxBeds)
	p.MinBaths = float64PtrFromNull(minBaths)
	p.MaxBaths = float64PtrFromNull(maxBaths)
	p.MinPrice = int64PtrFromNull(minPrice)
	p.MaxPrice = int64PtrFromNull(maxPrice)
	p.Lat = float64PtrFromNull(lat)
	p.Long = float64PtrFromNull(long)

	if err := json.Unmarshal([]byte(citiesJSON), &p.Cities); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(townshipsJSON), &p.Townships); err != nil {
		return nil, err
	}

	p.IsTownHouse = townHouse != 0
	p.IsLotLand = lotLand != 0
	p.IsCondo = condo != 0
	p.IsMultiFamily = multiFamily != 0
	p.IsSingleFamily = singleFamily != 0
	p.IsApartment = apartment != 0

	p.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	p.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func regionsJSON(regions []string) (string, error) {
	if regions == nil {
		regions = []string{}
	}
	b, err := json.Marshal(regions)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func preferencesArgs(p *domain.CollectionPreferences) ([]any, error) {
	cities, err := regionsJSON(p.Cities)
	if err != nil {
		return nil, err
	}
	townships, err := regionsJSON(p.Townships)
	if err != nil {
		return nil, err
	}

	return []any{
		nullIntPtr(p.MinBeds),
		nullIntPtr(p.MaxBeds),
		nullFloat64Ptr(p.MinBaths),
		nullFloat64Ptr(p.MaxBaths),
		nullInt64Ptr(p.MinPrice),
		nullInt64Ptr(p.MaxPrice),
		nullFloat64Ptr(p.Lat),
		nullFloat64Ptr(p.Long),
		p.Address,
		p.RadiusMiles,
		cities,
		townships,
		p.SpecialFeatures,
		boolToInt(p.IsTownHouse),
		boolToInt(p.IsLotLand),
		boolToInt(p.IsCondo),
		boolToInt(p.IsMultiFamily),
		boolToInt(p.IsSingleFamily),
		boolToInt(p.IsApartment),
		p.Timeframe,
		p.VisitingReason,
		p.HasAgent,
	}, nil
}

// CreatePreferences inserts the preference record for a collection.
// Returns store.ErrAlreadyExists when the collection already has one.
func (s *Store) CreatePreferences(ctx context.Context, p *domain.CollectionPreferences) error {
	args, err := preferencesArgs(p)
	if err != nil {
		return err
	}
	all := append([]any{p.ID, p.CollectionID}, args...)
	all = append(all, formatTime(p.CreatedAt), formatTime(p.UpdatedAt))

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO collection_preferences (
			id, collection_id, min_beds, max_beds, min_baths, max_baths,
			min_price, max_price, lat, long, address, radius_miles,
			cities, townships, special_features,
			is_town_house, is_lot_land, is_condo, is_multi_family, is_single_family, is_apartment,
			timeframe, visiting_reason, has_agent, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		all...)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrAlreadyExists
		}
		return err
	}
	return nil
}

func getPreferencesByCollection(ctx context.Context, q dbtx, collectionID string) (*domain.CollectionPreferences, error) {
	row := q.QueryRowContext(ctx,
		`SELECT `+preferencesColumns+` FROM collection_preferences WHERE collection_id = ?`,
		collectionID)
	p, err := scanPreferences(row)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	return p, err
}

// GetPreferencesByCollection retrieves a collection's preferences.
func (s *Store) GetPreferencesByCollection(ctx context.Context, collectionID string) (*domain.CollectionPreferences, error) {
	return getPreferencesByCollection(ctx, s.db, collectionID)
}

func updatePreferences(ctx context.Context, q dbtx, p *domain.CollectionPreferences) error {
	p.UpdatedAt = time.Now()
	args, err := preferencesArgs(p)
	if err != nil {
		return err
	}
	all := append(args, formatTime(p.UpdatedAt), p.CollectionID)

	res, err := q.ExecContext(ctx, `
		UPDATE collection_preferences SET
			min_beds = ?, max_beds = ?, min_baths = ?, max_baths = ?,
			min_price = ?, max_price = ?, lat = ?, long = ?, address = ?, radius_miles = ?,
			cities = ?, townships = ?, special_features = ?,
			is_town_house = ?, is_lot_land = ?, is_condo = ?, is_multi_family = ?, is_single_family = ?, is_apartment = ?,
			timeframe = ?, visiting_reason = ?, has_agent = ?, updated_at = ?
		WHERE collection_id = ?`,
		all...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// UpdatePreferences persists new preference values for a collection.
func (s *Store) UpdatePreferences(ctx context.Context, p *domain.CollectionPreferences) error {
	return updatePreferences(ctx, s.db, p)
}

// UpdatePreferences is the transactional variant, used when a preference
// change and the property replacement it triggers must land together.
func (t *Tx) UpdatePreferences(ctx context.Context, p *domain.CollectionPreferences) error {
	return updatePreferences(ctx, t.tx, p)
}

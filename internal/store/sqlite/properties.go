package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/nestfolio/nestfolio-server/internal/domain"
	"github.com/nestfolio/nestfolio-server/internal/store"
)

const propertyColumns = `id, external_id, address, city, state, zipcode, price, bedrooms, bathrooms, living_area, lot_size, home_type, home_status, latitude, longitude, image_url, zestimate, detail_json, detail_cached_at, created_at, updated_at`

func scanProperty(scanner interface{ Scan(dest ...any) error }) (*domain.Property, error) {
	var p domain.Property

	var (
		price          sql.NullInt64
		bedrooms       sql.NullInt64
		bathrooms      sql.NullFloat64
		livingArea     sql.NullInt64
		lotSize        sql.NullInt64
		latitude       sql.NullFloat64
		longitude      sql.NullFloat64
		zestimate      sql.NullInt64
		detailCachedAt sql.NullString
		createdAt      string
		updatedAt      string
	)

	err := scanner.Scan(
		&p.ID,
		&p.ExternalID,
		&p.StreetAddress,
		&p.City,
		&p.State,
		&p.Zipcode,
		&price,
		&bedrooms,
		&bathrooms,
		&livingArea,
		&lotSize,
		&p.HomeType,
		&p.HomeStatus,
		&latitude,
		&longitude,
		&p.ImageURL,
		&zestimate,
		&p.DetailJSON,
		&detailCachedAt,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	p.Price = int64PtrFromNull(price)
	p.Bedrooms = intPtrFromNull(bedrooms)
	p.Bathrooms = float64PtrFromNull(bathrooms)
	p.LivingArea = int64PtrFromNull(livingArea)
	p.LotSize = int64PtrFromNull(lotSize)
	p.Latitude = float64PtrFromNull(latitude)
	p.Longitude = float64PtrFromNull(longitude)
	p.Zestimate = int64PtrFromNull(zestimate)

	p.DetailCachedAt, err = parseNullableTime(detailCachedAt)
	if err != nil {
		return nil, err
	}
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

func getPropertyByExternalID(ctx context.Context, q dbtx, externalID int64) (*domain.Property, error) {
	row := q.QueryRowContext(ctx,
		`SELECT `+propertyColumns+` FROM properties WHERE external_id = ?`, externalID)
	p, err := scanProperty(row)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	return p, err
}

func insertProperty(ctx context.Context, q dbtx, p *domain.Property) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO properties (
			id, external_id, address, city, state, zipcode,
			price, bedrooms, bathrooms, living_area, lot_size,
			home_type, home_status, latitude, longitude, image_url, zestimate,
			detail_json, detail_cached_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID,
		p.ExternalID,
		p.StreetAddress,
		p.City,
		p.State,
		p.Zipcode,
		nullInt64Ptr(p.Price),
		nullIntPtr(p.Bedrooms),
		nullFloat64Ptr(p.Bathrooms),
		nullInt64Ptr(p.LivingArea),
		nullInt64Ptr(p.LotSize),
		p.HomeType,
		p.HomeStatus,
		nullFloat64Ptr(p.Latitude),
		nullFloat64Ptr(p.Longitude),
		p.ImageURL,
		nullInt64Ptr(p.Zestimate),
		p.DetailJSON,
		nullTimeString(p.DetailCachedAt),
		formatTime(p.CreatedAt),
		formatTime(p.UpdatedAt),
	)
	return err
}

func updateProperty(ctx context.Context, q dbtx, p *domain.Property) error {
	_, err := q.ExecContext(ctx, `
		UPDATE properties SET
			address = ?, city = ?, state = ?, zipcode = ?,
			price = ?, bedrooms = ?, bathrooms = ?, living_area = ?, lot_size = ?,
			home_type = ?, home_status = ?, latitude = ?, longitude = ?,
			image_url = ?, zestimate = ?, detail_json = ?, detail_cached_at = ?, updated_at = ?
		WHERE id = ?`,
		p.StreetAddress,
		p.City,
		p.State,
		p.Zipcode,
		nullInt64Ptr(p.Price),
		nullIntPtr(p.Bedrooms),
		nullFloat64Ptr(p.Bathrooms),
		nullInt64Ptr(p.LivingArea),
		nullInt64Ptr(p.LotSize),
		p.HomeType,
		p.HomeStatus,
		nullFloat64Ptr(p.Latitude),
		nullFloat64Ptr(p.Longitude),
		p.ImageURL,
		nullInt64Ptr(p.Zestimate),
		p.DetailJSON,
		nullTimeString(p.DetailCachedAt),
		formatTime(p.UpdatedAt),
		p.ID,
	)
	return err
}

// mergeProperty folds non-empty incoming fields over the stored row. A
// field the provider omitted never erases a previously known value.
func mergeProperty(existing, incoming *domain.Property) *domain.Property {
	merged := *existing

	if incoming.StreetAddress != "" {
		merged.StreetAddress = incoming.StreetAddress
	}
	if incoming.City != "" {
		merged.City = incoming.City
	}
	if incoming.State != "" {
		merged.State = incoming.State
	}
	if incoming.Zipcode != "" {
		merged.Zipcode = incoming.Zipcode
	}
	if incoming.Price != nil {
		merged.Price = incoming.Price
	}
	if incoming.Bedrooms != nil {
		merged.Bedrooms = incoming.Bedrooms
	}
	if incoming.Bathrooms != nil {
		merged.Bathrooms = incoming.Bathrooms
	}
	if incoming.LivingArea != nil {
		merged.LivingArea = incoming.LivingArea
	}
	if incoming.LotSize != nil {
		merged.LotSize = incoming.LotSize
	}
	if incoming.HomeType != "" {
		merged.HomeType = incoming.HomeType
	}
	if incoming.HomeStatus != "" {
		merged.HomeStatus = incoming.HomeStatus
	}
	if incoming.Latitude != nil {
		merged.Latitude = incoming.Latitude
	}
	if incoming.Longitude != nil {
		merged.Longitude = incoming.Longitude
	}
	if incoming.ImageURL != "" {
		merged.ImageURL = incoming.ImageURL
	}
	if incoming.Zestimate != nil {
		merged.Zestimate = incoming.Zestimate
	}
	if incoming.DetailJSON != "" {
		merged.DetailJSON = incoming.DetailJSON
		merged.DetailCachedAt = incoming.DetailCachedAt
	}
	return &merged
}

func upsertProperty(ctx context.Context, q dbtx, p *domain.Property) (created bool, err error) {
	if !p.HasExternalID() {
		return false, store.ErrInvalidInput.WithMessage("property has no external ID")
	}

	now := time.Now()
	existing, err := getPropertyByExternalID(ctx, q, p.ExternalID)
	if err == nil {
		merged := mergeProperty(existing, p)
		merged.UpdatedAt = now
		if err := updateProperty(ctx, q, merged); err != nil {
			return false, err
		}
		*p = *merged
		return false, nil
	}
	if err != store.ErrNotFound {
		return false, err
	}

	p.CreatedAt = now
	p.UpdatedAt = now
	if err := insertProperty(ctx, q, p); err != nil {
		return false, err
	}
	return true, nil
}

// UpsertProperty inserts the property or merges it into the existing row
// sharing its external ID. Reports whether a new row was created. The
// property's ID is rewritten to the stored row's ID on merge.
func (s *Store) UpsertProperty(ctx context.Context, p *domain.Property) (bool, error) {
	return upsertProperty(ctx, s.db, p)
}

// UpsertProperty is the transactional variant of Store.UpsertProperty.
func (t *Tx) UpsertProperty(ctx context.Context, p *domain.Property) (bool, error) {
	return upsertProperty(ctx, t.tx, p)
}

// GetProperty retrieves a property by ID.
func (s *Store) GetProperty(ctx context.Context, id string) (*domain.Property, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+propertyColumns+` FROM properties WHERE id = ?`, id)
	p, err := scanProperty(row)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	return p, err
}

// GetPropertyByExternalID retrieves a property by the provider's listing
// ID.
func (s *Store) GetPropertyByExternalID(ctx context.Context, externalID int64) (*domain.Property, error) {
	return getPropertyByExternalID(ctx, s.db, externalID)
}

func addPropertyToCollection(ctx context.Context, q dbtx, collectionID, propertyID string) (bool, error) {
	res, err := q.ExecContext(ctx, `
		INSERT OR IGNORE INTO collection_properties (collection_id, property_id, added_at)
		VALUES (?, ?, ?)`,
		collectionID, propertyID, formatTime(time.Now()))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// AddPropertyToCollection associates a property with a collection.
// Idempotent; reports whether the association was newly created.
func (s *Store) AddPropertyToCollection(ctx context.Context, collectionID, propertyID string) (bool, error) {
	return addPropertyToCollection(ctx, s.db, collectionID, propertyID)
}

// AddPropertyToCollection is the transactional variant.
func (t *Tx) AddPropertyToCollection(ctx context.Context, collectionID, propertyID string) (bool, error) {
	return addPropertyToCollection(ctx, t.tx, collectionID, propertyID)
}

// PropertyInCollection reports whether the association exists.
func (s *Store) PropertyInCollection(ctx context.Context, collectionID, propertyID string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM collection_properties WHERE collection_id = ? AND property_id = ?`,
		collectionID, propertyID).Scan(&n)
	return n > 0, err
}

func countCollectionProperties(ctx context.Context, q dbtx, collectionID string) (int, error) {
	var n int
	err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM collection_properties WHERE collection_id = ?`,
		collectionID).Scan(&n)
	return n, err
}

// CountCollectionProperties counts a collection's properties.
func (s *Store) CountCollectionProperties(ctx context.Context, collectionID string) (int, error) {
	return countCollectionProperties(ctx, s.db, collectionID)
}

// CountCollectionProperties is the transactional variant.
func (t *Tx) CountCollectionProperties(ctx context.Context, collectionID string) (int, error) {
	return countCollectionProperties(ctx, t.tx, collectionID)
}

func removeAllFromCollection(ctx context.Context, q dbtx, collectionID string) (int, error) {
	res, err := q.ExecContext(ctx,
		`DELETE FROM collection_properties WHERE collection_id = ?`, collectionID)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// RemoveAllFromCollection clears a collection's membership. Property rows
// are kept; orphan cleanup reclaims them later.
func (s *Store) RemoveAllFromCollection(ctx context.Context, collectionID string) (int, error) {
	return removeAllFromCollection(ctx, s.db, collectionID)
}

// RemoveAllFromCollection is the transactional variant.
func (t *Tx) RemoveAllFromCollection(ctx context.Context, collectionID string) (int, error) {
	return removeAllFromCollection(ctx, t.tx, collectionID)
}

// RemovePropertyFromCollection removes one association.
func (s *Store) RemovePropertyFromCollection(ctx context.Context, collectionID, propertyID string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM collection_properties WHERE collection_id = ? AND property_id = ?`,
		collectionID, propertyID)
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

// ListCollectionProperties returns a collection's properties in insertion
// order.
func (s *Store) ListCollectionProperties(ctx context.Context, collectionID string) ([]*domain.Property, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+prefixedPropertyColumns("p")+`
		FROM properties p
		JOIN collection_properties cp ON cp.property_id = p.id
		WHERE cp.collection_id = ?
		ORDER BY cp.added_at, p.id`,
		collectionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var properties []*domain.Property
	for rows.Next() {
		p, err := scanProperty(rows)
		if err != nil {
			return nil, err
		}
		properties = append(properties, p)
	}
	return properties, rows.Err()
}

// FindOrphanProperties returns up to limit property IDs referenced by no
// collection.
func (s *Store) FindOrphanProperties(ctx context.Context, limit int) ([]string, error) {
	query := `
		SELECT p.id FROM properties p
		LEFT JOIN collection_properties cp ON cp.property_id = p.id
		WHERE cp.property_id IS NULL
		ORDER BY p.id`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// DeletePropertiesWithDependencies deletes the given properties together
// with their interactions, comments, and tour requests in one
// transaction. Returns the number of property rows deleted.
func (s *Store) DeletePropertiesWithDependencies(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	deleted := 0
	for _, id := range ids {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM property_interactions WHERE property_id = ?`, id); err != nil {
			return 0, err
		}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM property_comments WHERE property_id = ?`, id); err != nil {
			return 0, err
		}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM tour_requests WHERE property_id = ?`, id); err != nil {
			return 0, err
		}
		res, err := tx.ExecContext(ctx, `
			DELETE FROM properties WHERE id = ?
			AND NOT EXISTS (SELECT 1 FROM collection_properties WHERE property_id = ?)`,
			id, id)
		if err != nil {
			return 0, err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, err
		}
		deleted += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return deleted, nil
}

// CachePropertyDetail stores the provider's detail payload on a property.
func (s *Store) CachePropertyDetail(ctx context.Context, id, detailJSON string, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE properties SET detail_json = ?, detail_cached_at = ?, updated_at = ?
		WHERE id = ?`,
		detailJSON, formatTime(at), formatTime(at), id)
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

// prefixedPropertyColumns qualifies propertyColumns with a table alias.
func prefixedPropertyColumns(alias string) string {
	cols := strings.Split(propertyColumns, ", ")
	for i, c := range cols {
		cols[i] = alias + "." + c
	}
	return strings.Join(cols, ", ")
}

// FindPropertyByAddress retrieves a property by exact street address
// match, used to short-circuit upstream address lookups.
func (s *Store) FindPropertyByAddress(ctx context.Context, streetAddress string) (*domain.Property, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+propertyColumns+` FROM properties WHERE address = ? COLLATE NOCASE`, streetAddress)
	p, err := scanProperty(row)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	return p, err
}

package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/nestfolio/nestfolio-server/internal/domain"
	"github.com/nestfolio/nestfolio-server/internal/store"
)

// collectionColumns is the ordered list of columns selected in collection
// queries. Must match the scan order in scanCollection.
const collectionColumns = `id, owner_id, name, description, status, share_token, is_public, visitor_name, visitor_email, visitor_phone, source_listing_id, last_synced_at, created_at, updated_at`

func scanCollection(scanner interface{ Scan(dest ...any) error }) (*domain.Collection, error) {
	var c domain.Collection

	var (
		shareToken   sql.NullString
		isPublic     int
		lastSyncedAt sql.NullString
		createdAt    string
		updatedAt    string
	)

	err := scanner.Scan(
		&c.ID,
		&c.OwnerID,
		&c.Name,
		&c.Description,
		&c.Status,
		&shareToken,
		&isPublic,
		&c.VisitorName,
		&c.VisitorEmail,
		&c.VisitorPhone,
		&c.SourceListingID,
		&lastSyncedAt,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	c.ShareToken = shareToken.String
	c.IsPublic = isPublic != 0
	c.LastSyncedAt, err = parseNullableTime(lastSyncedAt)
	if err != nil {
		return nil, err
	}
	c.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	c.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// CreateCollection inserts a collection. Returns store.ErrAlreadyExists on
// duplicate ID or share token.
func (s *Store) CreateCollection(ctx context.Context, c *domain.Collection) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO collections (
			id, owner_id, name, description, status, share_token, is_public,
			visitor_name, visitor_email, visitor_phone, source_listing_id,
			last_synced_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID,
		c.OwnerID,
		c.Name,
		c.Description,
		string(c.Status),
		nullString(c.ShareToken),
		boolToInt(c.IsPublic),
		c.VisitorName,
		c.VisitorEmail,
		c.VisitorPhone,
		c.SourceListingID,
		nullTimeString(c.LastSyncedAt),
		formatTime(c.CreatedAt),
		formatTime(c.UpdatedAt),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return store.ErrAlreadyExists
		}
		return err
	}
	return nil
}

// GetCollection retrieves a collection by ID.
func (s *Store) GetCollection(ctx context.Context, id string) (*domain.Collection, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+collectionColumns+` FROM collections WHERE id = ?`, id)
	c, err := scanCollection(row)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	return c, err
}

// GetCollectionByShareToken retrieves a collection by its share token,
// regardless of owner. Callers enforce the is_public gate.
func (s *Store) GetCollectionByShareToken(ctx context.Context, token string) (*domain.Collection, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+collectionColumns+` FROM collections WHERE share_token = ?`, token)
	c, err := scanCollection(row)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	return c, err
}

// ListCollectionsByOwner returns all of an owner's collections, newest
// first.
func (s *Store) ListCollectionsByOwner(ctx context.Context, ownerID string) ([]*domain.Collection, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+collectionColumns+` FROM collections WHERE owner_id = ? ORDER BY created_at DESC`,
		ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var collections []*domain.Collection
	for rows.Next() {
		c, err := scanCollection(rows)
		if err != nil {
			return nil, err
		}
		collections = append(collections, c)
	}
	return collections, rows.Err()
}

// CountActiveCollections counts an owner's ACTIVE collections.
func (s *Store) CountActiveCollections(ctx context.Context, ownerID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM collections WHERE owner_id = ? AND status = ?`,
		ownerID, string(domain.CollectionActive)).Scan(&n)
	return n, err
}

// UpdateCollection persists mutable collection fields.
func (s *Store) UpdateCollection(ctx context.Context, c *domain.Collection) error {
	c.UpdatedAt = time.Now()
	res, err := s.db.ExecContext(ctx, `
		UPDATE collections SET
			name = ?, description = ?, status = ?, share_token = ?, is_public = ?,
			visitor_name = ?, visitor_email = ?, visitor_phone = ?, updated_at = ?
		WHERE id = ?`,
		c.Name,
		c.Description,
		string(c.Status),
		nullString(c.ShareToken),
		boolToInt(c.IsPublic),
		c.VisitorName,
		c.VisitorEmail,
		c.VisitorPhone,
		formatTime(c.UpdatedAt),
		c.ID,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return store.ErrAlreadyExists
		}
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

// UpdateCollectionStatus flips a collection's lifecycle state.
func (s *Store) UpdateCollectionStatus(ctx context.Context, id string, status domain.CollectionStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE collections SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), formatTime(time.Now()), id)
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

// TouchLastSynced records a sync attempt, success or failure.
func (s *Store) TouchLastSynced(ctx context.Context, id string, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE collections SET last_synced_at = ? WHERE id = ?`,
		formatTime(at), id)
	return err
}

// ListStaleActiveCollections returns up to limit ACTIVE collections
// ordered by sync staleness. Never-synced collections come first.
func (s *Store) ListStaleActiveCollections(ctx context.Context, limit int) ([]*domain.Collection, error) {
	query := `SELECT ` + collectionColumns + ` FROM collections
		WHERE status = ?
		ORDER BY last_synced_at IS NOT NULL, last_synced_at ASC`
	args := []any{string(domain.CollectionActive)}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var collections []*domain.Collection
	for rows.Next() {
		c, err := scanCollection(rows)
		if err != nil {
			return nil, err
		}
		collections = append(collections, c)
	}
	return collections, rows.Err()
}

// DeleteCollection removes a collection. Associations, preferences,
// interactions, and comments go with it via foreign-key cascades.
// Property rows themselves are left for orphan cleanup.
func (s *Store) DeleteCollection(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM collections WHERE id = ?`, id)
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

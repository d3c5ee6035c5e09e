package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/nestfolio/nestfolio-server/internal/domain"
	"github.com/nestfolio/nestfolio-server/internal/store"
)

const interactionColumns = `id, collection_id, property_id, liked, disliked, favorited, created_at, updated_at`

func scanInteraction(scanner interface{ Scan(dest ...any) error }) (*domain.PropertyInteraction, error) {
	var in domain.PropertyInteraction
	var liked, disliked, favorited int
	var createdAt, updatedAt string

	err := scanner.Scan(
		&in.ID,
		&in.CollectionID,
		&in.PropertyID,
		&liked,
		&disliked,
		&favorited,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	in.Liked = liked != 0
	in.Disliked = disliked != 0
	in.Favorited = favorited != 0

	in.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	in.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return nil, err
	}
	return &in, nil
}

// UpsertInteraction records a visitor reaction, replacing any previous
// reaction for the same collection and property.
func (s *Store) UpsertInteraction(ctx context.Context, in *domain.PropertyInteraction) error {
	now := time.Now()
	in.UpdatedAt = now
	if in.CreatedAt.IsZero() {
		in.CreatedAt = now
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO property_interactions (id, collection_id, property_id, liked, disliked, favorited, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (collection_id, property_id) DO UPDATE SET
			liked = excluded.liked,
			disliked = excluded.disliked,
			favorited = excluded.favorited,
			updated_at = excluded.updated_at`,
		in.ID,
		in.CollectionID,
		in.PropertyID,
		boolToInt(in.Liked),
		boolToInt(in.Disliked),
		boolToInt(in.Favorited),
		formatTime(in.CreatedAt),
		formatTime(in.UpdatedAt),
	)
	return err
}

// GetInteraction retrieves the reaction for one property in one
// collection.
func (s *Store) GetInteraction(ctx context.Context, collectionID, propertyID string) (*domain.PropertyInteraction, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+interactionColumns+` FROM property_interactions WHERE collection_id = ? AND property_id = ?`,
		collectionID, propertyID)
	in, err := scanInteraction(row)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	return in, err
}

// ListInteractionsByCollection returns all reactions in a collection.
func (s *Store) ListInteractionsByCollection(ctx context.Context, collectionID string) ([]*domain.PropertyInteraction, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+interactionColumns+` FROM property_interactions WHERE collection_id = ? ORDER BY updated_at DESC`,
		collectionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var interactions []*domain.PropertyInteraction
	for rows.Next() {
		in, err := scanInteraction(rows)
		if err != nil {
			return nil, err
		}
		interactions = append(interactions, in)
	}
	return interactions, rows.Err()
}

const commentColumns = `id, collection_id, property_id, visitor_name, visitor_email, content, created_at, updated_at`

func scanComment(scanner interface{ Scan(dest ...any) error }) (*domain.PropertyComment, error) {
	var c domain.PropertyComment
	var createdAt, updatedAt string

	err := scanner.Scan(
		&c.ID,
		&c.CollectionID,
		&c.PropertyID,
		&c.VisitorName,
		&c.VisitorEmail,
		&c.Content,
		&createdAt,
		&updatedAt,
	)
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

// CreateComment adds a visitor note to a property in a collection.
func (s *Store) CreateComment(ctx context.Context, c *domain.PropertyComment) error {
	now := time.Now()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO property_comments (id, collection_id, property_id, visitor_name, visitor_email, content, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID,
		c.CollectionID,
		c.PropertyID,
		c.VisitorName,
		c.VisitorEmail,
		c.Content,
		formatTime(c.CreatedAt),
		formatTime(c.UpdatedAt),
	)
	return err
}

// ListCommentsByProperty returns the notes on one property in one
// collection, oldest first.
func (s *Store) ListCommentsByProperty(ctx context.Context, collectionID, propertyID string) ([]*domain.PropertyComment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+commentColumns+` FROM property_comments WHERE collection_id = ? AND property_id = ? ORDER BY created_at`,
		collectionID, propertyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var comments []*domain.PropertyComment
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, err
		}
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

// DeleteComment removes a visitor note.
func (s *Store) DeleteComment(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM property_comments WHERE id = ?`, id)
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

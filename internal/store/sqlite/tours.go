package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/nestfolio/nestfolio-server/internal/domain"
	"github.com/nestfolio/nestfolio-server/internal/store"
)

const tourColumns = `id, collection_id, property_id, visitor_name, visitor_email, visitor_phone,
	preferred_date, preferred_time, preferred_date_2, preferred_time_2, preferred_date_3, preferred_time_3,
	message, status, created_at, updated_at`

func scanTour(scanner interface{ Scan(dest ...any) error }) (*domain.TourRequest, error) {
	var tr domain.TourRequest
	var status, createdAt, updatedAt string

	err := scanner.Scan(
		&tr.ID,
		&tr.CollectionID,
		&tr.PropertyID,
		&tr.VisitorName,
		&tr.VisitorEmail,
		&tr.VisitorPhone,
		&tr.PreferredDate,
		&tr.PreferredTime,
		&tr.PreferredDate2,
		&tr.PreferredTime2,
		&tr.PreferredDate3,
		&tr.PreferredTime3,
		&tr.Message,
		&status,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	tr.Status = domain.TourStatus(status)
	tr.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	tr.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return nil, err
	}
	return &tr, nil
}

// CreateTourRequest inserts a tour request. Each property in a collection
// can carry at most one; a second insert returns store.ErrAlreadyExists.
func (s *Store) CreateTourRequest(ctx context.Context, tr *domain.TourRequest) error {
	now := time.Now()
	tr.CreatedAt = now
	tr.UpdatedAt = now
	if tr.Status == "" {
		tr.Status = domain.TourPending
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tour_requests (`+tourColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tr.ID,
		tr.CollectionID,
		tr.PropertyID,
		tr.VisitorName,
		tr.VisitorEmail,
		tr.VisitorPhone,
		tr.PreferredDate,
		tr.PreferredTime,
		tr.PreferredDate2,
		tr.PreferredTime2,
		tr.PreferredDate3,
		tr.PreferredTime3,
		tr.Message,
		string(tr.Status),
		formatTime(tr.CreatedAt),
		formatTime(tr.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrAlreadyExists
		}
		return err
	}
	return nil
}

// GetTourRequest fetches one tour request by ID.
func (s *Store) GetTourRequest(ctx context.Context, id string) (*domain.TourRequest, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+tourColumns+` FROM tour_requests WHERE id = ?`, id)
	tr, err := scanTour(row)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	return tr, err
}

// ListToursByCollection returns a collection's tour requests, newest
// first.
func (s *Store) ListToursByCollection(ctx context.Context, collectionID string) ([]*domain.TourRequest, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+tourColumns+` FROM tour_requests WHERE collection_id = ? ORDER BY created_at DESC`,
		collectionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tours []*domain.TourRequest
	for rows.Next() {
		tr, err := scanTour(rows)
		if err != nil {
			return nil, err
		}
		tours = append(tours, tr)
	}
	return tours, rows.Err()
}

// UpdateTourStatus moves a tour request to a new lifecycle state.
func (s *Store) UpdateTourStatus(ctx context.Context, id string, status domain.TourStatus) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE tour_requests SET status = ?, updated_at = ? WHERE id = ?`,
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

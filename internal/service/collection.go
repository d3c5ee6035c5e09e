package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nestfolio/nestfolio-server/internal/domain"
	"github.com/nestfolio/nestfolio-server/internal/entitlement"
	"github.com/nestfolio/nestfolio-server/internal/errors"
	"github.com/nestfolio/nestfolio-server/internal/id"
	"github.com/nestfolio/nestfolio-server/internal/store"
	"github.com/nestfolio/nestfolio-server/internal/store/sqlite"
)

// DefaultMaxActiveCollections caps how many of one agent's collections
// the scheduler will keep refreshing.
const DefaultMaxActiveCollections = 10

// shareTokenAttempts bounds retries when a generated token collides.
const shareTokenAttempts = 3

// CollectionService manages collection lifecycle and sharing.
type CollectionService struct {
	store     *sqlite.Store
	logger    *slog.Logger
	maxActive int
}

// NewCollectionService creates a collection service. maxActive <= 0 uses
// the default cap.
func NewCollectionService(store *sqlite.Store, logger *slog.Logger, maxActive int) *CollectionService {
	if maxActive <= 0 {
		maxActive = DefaultMaxActiveCollections
	}
	return &CollectionService{
		store:     store,
		logger:    logger,
		maxActive: maxActive,
	}
}

// CreateCollectionInput carries the fields an agent or visitor form sets
// at creation.
type CreateCollectionInput struct {
	Name            string `json:"name" validate:"required,min=1,max=200"`
	Description     string `json:"description" validate:"max=2000"`
	VisitorName     string `json:"visitor_name" validate:"max=200"`
	VisitorEmail    string `json:"visitor_email" validate:"omitempty,email"`
	VisitorPhone    string `json:"visitor_phone" validate:"max=40"`
	SourceListingID string `json:"source_listing_id" validate:"max=64"`
}

// ownerCap resolves the active-collection cap for the owner's plan.
func (s *CollectionService) ownerCap(ctx context.Context, ownerID string) (int, error) {
	owner, err := s.store.GetUser(ctx, ownerID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return s.maxActive, nil
		}
		return 0, fmt.Errorf("get owner: %w", err)
	}
	return entitlement.MaxActiveCollections(owner.Plan, s.maxActive), nil
}

// Create makes a collection for the owner. When the owner is already at
// the active cap the collection is created INACTIVE so the scheduler
// leaves it alone until something else is deactivated.
func (s *CollectionService) Create(ctx context.Context, ownerID string, input CreateCollectionInput) (*domain.Collection, error) {
	limit, err := s.ownerCap(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	active, err := s.store.CountActiveCollections(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("count active collections: %w", err)
	}

	status := domain.CollectionActive
	if active >= limit {
		status = domain.CollectionInactive
		s.logger.Info("active collection cap reached, creating inactive",
			"owner_id", ownerID,
			"active", active,
			"cap", limit,
		)
	}

	collection := &domain.Collection{
		ID:              id.MustGenerate("col"),
		Name:            input.Name,
		Description:     input.Description,
		OwnerID:         ownerID,
		Status:          status,
		VisitorName:     input.VisitorName,
		VisitorEmail:    input.VisitorEmail,
		VisitorPhone:    input.VisitorPhone,
		SourceListingID: input.SourceListingID,
	}
	now := time.Now()
	collection.CreatedAt = now
	collection.UpdatedAt = now

	if err := s.store.CreateCollection(ctx, collection); err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}

	s.logger.Info("collection created",
		"collection_id", collection.ID,
		"owner_id", ownerID,
		"status", collection.Status,
	)
	return collection, nil
}

// Get retrieves a collection the owner can see.
func (s *CollectionService) Get(ctx context.Context, ownerID, collectionID string) (*domain.Collection, error) {
	collection, err := s.store.GetCollection(ctx, collectionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, errors.NotFound("collection not found")
		}
		return nil, err
	}
	if collection.OwnerID != ownerID {
		// Do not reveal that the collection exists.
		return nil, errors.NotFound("collection not found")
	}
	return collection, nil
}

// List returns the owner's collections, newest first.
func (s *CollectionService) List(ctx context.Context, ownerID string) ([]*domain.Collection, error) {
	return s.store.ListCollectionsByOwner(ctx, ownerID)
}

// UpdateCollectionInput carries mutable collection fields. Nil pointers
// leave the stored value unchanged.
type UpdateCollectionInput struct {
	Name         *string `json:"name" validate:"omitempty,min=1,max=200"`
	Description  *string `json:"description" validate:"omitempty,max=2000"`
	VisitorName  *string `json:"visitor_name" validate:"omitempty,max=200"`
	VisitorEmail *string `json:"visitor_email" validate:"omitempty,email"`
	VisitorPhone *string `json:"visitor_phone" validate:"omitempty,max=40"`
}

// Update edits collection metadata.
func (s *CollectionService) Update(ctx context.Context, ownerID, collectionID string, input UpdateCollectionInput) (*domain.Collection, error) {
	collection, err := s.Get(ctx, ownerID, collectionID)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		collection.Name = *input.Name
	}
	if input.Description != nil {
		collection.Description = *input.Description
	}
	if input.VisitorName != nil {
		collection.VisitorName = *input.VisitorName
	}
	if input.VisitorEmail != nil {
		collection.VisitorEmail = *input.VisitorEmail
	}
	if input.VisitorPhone != nil {
		collection.VisitorPhone = *input.VisitorPhone
	}

	if err := s.store.UpdateCollection(ctx, collection); err != nil {
		return nil, fmt.Errorf("update collection: %w", err)
	}
	return collection, nil
}

// Activate returns a collection to the scheduler's rotation. Fails with a
// conflict when the owner is already at the active cap.
func (s *CollectionService) Activate(ctx context.Context, ownerID, collectionID string) (*domain.Collection, error) {
	collection, err := s.Get(ctx, ownerID, collectionID)
	if err != nil {
		return nil, err
	}
	if collection.Status == domain.CollectionActive {
		return collection, nil
	}

	limit, err := s.ownerCap(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	active, err := s.store.CountActiveCollections(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("count active collections: %w", err)
	}
	if active >= limit {
		return nil, errors.Conflictf("active collection limit of %d reached; deactivate another collection first", limit)
	}

	if err := s.store.UpdateCollectionStatus(ctx, collectionID, domain.CollectionActive); err != nil {
		return nil, fmt.Errorf("activate collection: %w", err)
	}
	collection.Status = domain.CollectionActive

	s.logger.Info("collection activated", "collection_id", collectionID, "owner_id", ownerID)
	return collection, nil
}

// Deactivate removes a collection from the scheduler's rotation.
func (s *CollectionService) Deactivate(ctx context.Context, ownerID, collectionID string) (*domain.Collection, error) {
	collection, err := s.Get(ctx, ownerID, collectionID)
	if err != nil {
		return nil, err
	}
	if collection.Status == domain.CollectionInactive {
		return collection, nil
	}

	if err := s.store.UpdateCollectionStatus(ctx, collectionID, domain.CollectionInactive); err != nil {
		return nil, fmt.Errorf("deactivate collection: %w", err)
	}
	collection.Status = domain.CollectionInactive

	s.logger.Info("collection deactivated", "collection_id", collectionID, "owner_id", ownerID)
	return collection, nil
}

// Share makes a collection publicly reachable through its share token,
// minting one on first share. Tokens are stable across share/unshare
// cycles so visitor links keep working after a re-share.
func (s *CollectionService) Share(ctx context.Context, ownerID, collectionID string) (*domain.Collection, error) {
	collection, err := s.Get(ctx, ownerID, collectionID)
	if err != nil {
		return nil, err
	}

	collection.IsPublic = true
	if collection.ShareToken != "" {
		if err := s.store.UpdateCollection(ctx, collection); err != nil {
			return nil, fmt.Errorf("share collection: %w", err)
		}
		return collection, nil
	}

	for attempt := range shareTokenAttempts {
		token, err := id.ShareToken()
		if err != nil {
			return nil, fmt.Errorf("share collection: %w", err)
		}
		collection.ShareToken = token
		err = s.store.UpdateCollection(ctx, collection)
		if err == nil {
			s.logger.Info("collection shared",
				"collection_id", collectionID,
				"owner_id", ownerID,
			)
			return collection, nil
		}
		if !errors.Is(err, store.ErrAlreadyExists) {
			return nil, fmt.Errorf("share collection: %w", err)
		}
		s.logger.Warn("share token collision, regenerating",
			"collection_id", collectionID,
			"attempt", attempt+1,
		)
	}
	return nil, errors.Internal("could not mint a unique share token")
}

// Unshare turns off public access. The token is kept so a later re-share
// revives existing links.
func (s *CollectionService) Unshare(ctx context.Context, ownerID, collectionID string) (*domain.Collection, error) {
	collection, err := s.Get(ctx, ownerID, collectionID)
	if err != nil {
		return nil, err
	}
	if !collection.IsPublic {
		return collection, nil
	}

	collection.IsPublic = false
	if err := s.store.UpdateCollection(ctx, collection); err != nil {
		return nil, fmt.Errorf("unshare collection: %w", err)
	}
	return collection, nil
}

// SharedView is the visitor-facing read of a shared collection.
type SharedView struct {
	Collection *domain.Collection `json:"collection"`
	Properties []*domain.Property `json:"properties"`
}

// GetShared resolves a share token to the collection and its properties.
// Tokens on unshared collections resolve to not-found, same as unknown
// tokens.
func (s *CollectionService) GetShared(ctx context.Context, token string) (*SharedView, error) {
	collection, err := s.store.GetCollectionByShareToken(ctx, token)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, errors.NotFound("collection not found")
		}
		return nil, err
	}
	if !collection.IsPublic {
		return nil, errors.NotFound("collection not found")
	}

	properties, err := s.store.ListCollectionProperties(ctx, collection.ID)
	if err != nil {
		return nil, fmt.Errorf("list properties: %w", err)
	}
	return &SharedView{
		Collection: collection,
		Properties: properties,
	}, nil
}

// Properties returns a collection's properties for its owner.
func (s *CollectionService) Properties(ctx context.Context, ownerID, collectionID string) ([]*domain.Property, error) {
	if _, err := s.Get(ctx, ownerID, collectionID); err != nil {
		return nil, err
	}
	return s.store.ListCollectionProperties(ctx, collectionID)
}

// Delete removes a collection. Properties orphaned by the delete are
// reclaimed by the cleanup service, not here.
func (s *CollectionService) Delete(ctx context.Context, ownerID, collectionID string) error {
	if _, err := s.Get(ctx, ownerID, collectionID); err != nil {
		return err
	}
	if err := s.store.DeleteCollection(ctx, collectionID); err != nil {
		return fmt.Errorf("delete collection: %w", err)
	}
	s.logger.Info("collection deleted", "collection_id", collectionID, "owner_id", ownerID)

	// Properties the deleted collection was the last holder of are
	// reclaimed right away. Best effort: the delete already happened.
	orphans, err := s.store.FindOrphanProperties(ctx, 0)
	if err != nil {
		s.logger.Warn("orphan scan after delete failed", "collection_id", collectionID, "error", err)
		return nil
	}
	if len(orphans) == 0 {
		return nil
	}
	deleted, err := s.store.DeletePropertiesWithDependencies(ctx, orphans)
	if err != nil {
		s.logger.Warn("orphan sweep after delete failed", "collection_id", collectionID, "error", err)
		return nil
	}
	s.logger.Info("orphaned properties reclaimed",
		"collection_id", collectionID,
		"deleted", deleted,
	)
	return nil
}

package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nestfolio/nestfolio-server/internal/domain"
	"github.com/nestfolio/nestfolio-server/internal/errors"
	"github.com/nestfolio/nestfolio-server/internal/id"
	"github.com/nestfolio/nestfolio-server/internal/listing"
	"github.com/nestfolio/nestfolio-server/internal/store"
	"github.com/nestfolio/nestfolio-server/internal/store/sqlite"
)

// detailCacheTTL is how long a cached detail payload stays fresh before
// an address lookup goes back upstream.
const detailCacheTTL = 24 * time.Hour

// AddressSearcher is the slice of the listing client used for address
// lookups.
type AddressSearcher interface {
	SearchByAddress(ctx context.Context, address string, wantDetails bool) (*listing.AddressResult, error)
}

// PropertyService handles direct property operations: address lookups,
// manual membership edits, and visitor reactions.
type PropertyService struct {
	store  *sqlite.Store
	lookup AddressSearcher
	logger *slog.Logger
}

// NewPropertyService creates a property service.
func NewPropertyService(store *sqlite.Store, lookup AddressSearcher, logger *slog.Logger) *PropertyService {
	return &PropertyService{
		store:  store,
		lookup: lookup,
		logger: logger,
	}
}

// LookupByAddress resolves a street address to a property, querying the
// provider and persisting the result. With wantDetails the provider's
// full payload is cached on the row; a fresh cached payload is served
// without an upstream call.
func (s *PropertyService) LookupByAddress(ctx context.Context, address string, wantDetails bool) (*domain.Property, error) {
	if cached, err := s.store.FindPropertyByAddress(ctx, address); err == nil {
		fresh := cached.DetailCachedAt != nil && time.Since(*cached.DetailCachedAt) < detailCacheTTL
		if !wantDetails || (fresh && cached.DetailJSON != "") {
			return cached, nil
		}
	}

	result, err := s.lookup.SearchByAddress(ctx, address, wantDetails)
	if err != nil {
		if errors.Is(err, listing.ErrNotFound) {
			return nil, errors.NotFound("no property at that address")
		}
		return nil, errors.Upstreamf("address lookup: %v", err)
	}

	prop, ok := recordToProperty(result.Record)
	if !ok {
		return nil, errors.Upstream("provider returned a record without a usable listing ID")
	}
	if wantDetails {
		now := time.Now()
		prop.DetailJSON = result.DetailJSON
		prop.DetailCachedAt = &now
	}

	if _, err := s.store.UpsertProperty(ctx, prop); err != nil {
		return nil, fmt.Errorf("persist property: %w", err)
	}

	s.logger.Info("address lookup resolved",
		"external_id", prop.ExternalID,
		"details", wantDetails,
	)
	return prop, nil
}

// AddToCollection manually places a property into one of the owner's
// collections. Idempotent.
func (s *PropertyService) AddToCollection(ctx context.Context, ownerID, collectionID, propertyID string) error {
	if err := s.checkOwnership(ctx, ownerID, collectionID); err != nil {
		return err
	}
	if _, err := s.store.GetProperty(ctx, propertyID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return errors.NotFound("property not found")
		}
		return err
	}
	if _, err := s.store.AddPropertyToCollection(ctx, collectionID, propertyID); err != nil {
		return fmt.Errorf("add property: %w", err)
	}
	return nil
}

// RemoveFromCollection removes one property from a collection.
func (s *PropertyService) RemoveFromCollection(ctx context.Context, ownerID, collectionID, propertyID string) error {
	if err := s.checkOwnership(ctx, ownerID, collectionID); err != nil {
		return err
	}
	if err := s.store.RemovePropertyFromCollection(ctx, collectionID, propertyID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return errors.NotFound("property is not in the collection")
		}
		return err
	}
	return nil
}

func (s *PropertyService) checkOwnership(ctx context.Context, ownerID, collectionID string) error {
	collection, err := s.store.GetCollection(ctx, collectionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return errors.NotFound("collection not found")
		}
		return err
	}
	if collection.OwnerID != ownerID {
		return errors.NotFound("collection not found")
	}
	return nil
}

// sharedCollection resolves a share token to a public collection and
// verifies the property belongs to it.
func (s *PropertyService) sharedCollection(ctx context.Context, token, propertyID string) (*domain.Collection, error) {
	collection, err := s.store.GetCollectionByShareToken(ctx, token)
	if err != nil || !collection.IsPublic {
		return nil, errors.NotFound("collection not found")
	}
	in, err := s.store.PropertyInCollection(ctx, collection.ID, propertyID)
	if err != nil {
		return nil, err
	}
	if !in {
		return nil, errors.NotFound("property is not in the collection")
	}
	return collection, nil
}

// InteractionInput is a visitor reaction submitted through a share link.
type InteractionInput struct {
	Liked     bool `json:"liked"`
	Disliked  bool `json:"disliked"`
	Favorited bool `json:"favorited"`
}

// InteractShared records a visitor reaction on a shared collection's
// property, replacing any earlier reaction.
func (s *PropertyService) InteractShared(ctx context.Context, token, propertyID string, input InteractionInput) (*domain.PropertyInteraction, error) {
	if input.Liked && input.Disliked {
		return nil, errors.Validation("a property cannot be liked and disliked at once")
	}
	collection, err := s.sharedCollection(ctx, token, propertyID)
	if err != nil {
		return nil, err
	}

	interaction := &domain.PropertyInteraction{
		ID:           id.MustGenerate("int"),
		CollectionID: collection.ID,
		PropertyID:   propertyID,
		Liked:        input.Liked,
		Disliked:     input.Disliked,
		Favorited:    input.Favorited,
	}
	if err := s.store.UpsertInteraction(ctx, interaction); err != nil {
		return nil, fmt.Errorf("record interaction: %w", err)
	}
	return interaction, nil
}

// CommentInput is a visitor note submitted through a share link.
type CommentInput struct {
	VisitorName  string `json:"visitor_name" validate:"max=200"`
	VisitorEmail string `json:"visitor_email" validate:"omitempty,email"`
	Content      string `json:"content" validate:"required,min=1,max=4000"`
}

// CommentShared adds a visitor note to a shared collection's property.
func (s *PropertyService) CommentShared(ctx context.Context, token, propertyID string, input CommentInput) (*domain.PropertyComment, error) {
	collection, err := s.sharedCollection(ctx, token, propertyID)
	if err != nil {
		return nil, err
	}

	comment := &domain.PropertyComment{
		ID:           id.MustGenerate("cmt"),
		CollectionID: collection.ID,
		PropertyID:   propertyID,
		VisitorName:  input.VisitorName,
		VisitorEmail: input.VisitorEmail,
		Content:      input.Content,
	}
	if err := s.store.CreateComment(ctx, comment); err != nil {
		return nil, fmt.Errorf("create comment: %w", err)
	}
	return comment, nil
}

// TourInput is a visitor's tour request submitted through a share link.
// Contact details are not part of the input; they come from the
// collection the share token resolves to.
type TourInput struct {
	PreferredDate  string `json:"preferred_date" validate:"required,max=40"`
	PreferredTime  string `json:"preferred_time" validate:"required,max=40"`
	PreferredDate2 string `json:"preferred_date_2" validate:"max=40"`
	PreferredTime2 string `json:"preferred_time_2" validate:"max=40"`
	PreferredDate3 string `json:"preferred_date_3" validate:"max=40"`
	PreferredTime3 string `json:"preferred_time_3" validate:"max=40"`
	Message        string `json:"message" validate:"max=2000"`
}

// RequestTourShared files a tour request for a shared collection's
// property. One request per property per collection; the collection must
// carry complete visitor contact details so the agent can follow up.
func (s *PropertyService) RequestTourShared(ctx context.Context, token, propertyID string, input TourInput) (*domain.TourRequest, error) {
	if input.PreferredDate == "" || input.PreferredTime == "" {
		return nil, errors.Validation("a preferred date and time are required")
	}

	collection, err := s.sharedCollection(ctx, token, propertyID)
	if err != nil {
		return nil, err
	}
	if collection.VisitorName == "" || collection.VisitorEmail == "" || collection.VisitorPhone == "" {
		return nil, errors.Validation("the collection has no complete visitor contact details")
	}

	tour := &domain.TourRequest{
		ID:             id.MustGenerate("tour"),
		CollectionID:   collection.ID,
		PropertyID:     propertyID,
		VisitorName:    collection.VisitorName,
		VisitorEmail:   collection.VisitorEmail,
		VisitorPhone:   collection.VisitorPhone,
		PreferredDate:  input.PreferredDate,
		PreferredTime:  input.PreferredTime,
		PreferredDate2: input.PreferredDate2,
		PreferredTime2: input.PreferredTime2,
		PreferredDate3: input.PreferredDate3,
		PreferredTime3: input.PreferredTime3,
		Message:        input.Message,
		Status:         domain.TourPending,
	}
	if err := s.store.CreateTourRequest(ctx, tour); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return nil, errors.AlreadyExists("a tour has already been requested for this property")
		}
		return nil, fmt.Errorf("create tour request: %w", err)
	}

	s.logger.Info("tour requested",
		"collection_id", collection.ID,
		"property_id", propertyID,
	)
	return tour, nil
}

// ListTours returns a collection's tour requests for the owning agent.
func (s *PropertyService) ListTours(ctx context.Context, ownerID, collectionID string) ([]*domain.TourRequest, error) {
	if err := s.checkOwnership(ctx, ownerID, collectionID); err != nil {
		return nil, err
	}
	return s.store.ListToursByCollection(ctx, collectionID)
}

// UpdateTourStatus moves a tour request between lifecycle states. Only
// the agent owning the collection may do this.
func (s *PropertyService) UpdateTourStatus(ctx context.Context, ownerID, tourID string, status domain.TourStatus) (*domain.TourRequest, error) {
	if !status.IsValid() {
		return nil, errors.Validationf("invalid tour status %q", status)
	}

	tour, err := s.store.GetTourRequest(ctx, tourID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, errors.NotFound("tour request not found")
		}
		return nil, err
	}
	if err := s.checkOwnership(ctx, ownerID, tour.CollectionID); err != nil {
		return nil, err
	}

	if err := s.store.UpdateTourStatus(ctx, tourID, status); err != nil {
		return nil, fmt.Errorf("update tour status: %w", err)
	}
	tour.Status = status
	return tour, nil
}

// CollectionFeedback bundles a collection's reactions and notes for the
// owning agent.
type CollectionFeedback struct {
	Interactions []*domain.PropertyInteraction        `json:"interactions"`
	Comments     map[string][]*domain.PropertyComment `json:"comments"`
}

// Feedback returns everything visitors said about a collection.
func (s *PropertyService) Feedback(ctx context.Context, ownerID, collectionID string) (*CollectionFeedback, error) {
	if err := s.checkOwnership(ctx, ownerID, collectionID); err != nil {
		return nil, err
	}

	interactions, err := s.store.ListInteractionsByCollection(ctx, collectionID)
	if err != nil {
		return nil, fmt.Errorf("list interactions: %w", err)
	}

	properties, err := s.store.ListCollectionProperties(ctx, collectionID)
	if err != nil {
		return nil, fmt.Errorf("list properties: %w", err)
	}

	comments := make(map[string][]*domain.PropertyComment)
	for _, p := range properties {
		cs, err := s.store.ListCommentsByProperty(ctx, collectionID, p.ID)
		if err != nil {
			return nil, fmt.Errorf("list comments: %w", err)
		}
		if len(cs) > 0 {
			comments[p.ID] = cs
		}
	}

	return &CollectionFeedback{
		Interactions: interactions,
		Comments:     comments,
	}, nil
}

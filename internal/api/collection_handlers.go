package api

import (
	"encoding/json/v2"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nestfolio/nestfolio-server/internal/domain"
	"github.com/nestfolio/nestfolio-server/internal/http/response"
	"github.com/nestfolio/nestfolio-server/internal/service"
)

// handleCreateCollection creates a new collection for the agent.
func (s *Server) handleCreateCollection(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := getUserID(ctx)

	var req service.CreateCollectionInput
	if err := json.UnmarshalRead(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid request body", s.logger)
		return
	}
	if req.Name == "" {
		response.BadRequest(w, "Collection name is required", s.logger)
		return
	}

	collection, err := s.collectionService.Create(ctx, userID, req)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Created(w, collection, s.logger)
}

// handleListCollections returns all of the agent's collections.
func (s *Server) handleListCollections(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	collections, err := s.collectionService.List(ctx, getUserID(ctx))
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, collections, s.logger)
}

// handleGetCollection returns a single collection by ID.
func (s *Server) handleGetCollection(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	collection, err := s.collectionService.Get(ctx, getUserID(ctx), chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, collection, s.logger)
}

// handleUpdateCollection patches collection fields.
func (s *Server) handleUpdateCollection(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req service.UpdateCollectionInput
	if err := json.UnmarshalRead(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid request body", s.logger)
		return
	}

	collection, err := s.collectionService.Update(ctx, getUserID(ctx), chi.URLParam(r, "id"), req)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, collection, s.logger)
}

// handleDeleteCollection removes a collection and sweeps orphaned properties.
func (s *Server) handleDeleteCollection(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := s.collectionService.Delete(ctx, getUserID(ctx), chi.URLParam(r, "id")); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.NoContent(w)
}

// handleActivateCollection returns a collection to the sync rotation.
func (s *Server) handleActivateCollection(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	collection, err := s.collectionService.Activate(ctx, getUserID(ctx), chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, collection, s.logger)
}

// handleDeactivateCollection pauses a collection's scheduled syncs.
func (s *Server) handleDeactivateCollection(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	collection, err := s.collectionService.Deactivate(ctx, getUserID(ctx), chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, collection, s.logger)
}

// handleShareCollection makes a collection publicly viewable by token.
func (s *Server) handleShareCollection(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	collection, err := s.collectionService.Share(ctx, getUserID(ctx), chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, collection, s.logger)
}

// handleUnshareCollection hides the public view, keeping the token for re-share.
func (s *Server) handleUnshareCollection(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	collection, err := s.collectionService.Unshare(ctx, getUserID(ctx), chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, collection, s.logger)
}

// handleListCollectionProperties returns the collection's properties in added order.
func (s *Server) handleListCollectionProperties(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	properties, err := s.collectionService.Properties(ctx, getUserID(ctx), chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, properties, s.logger)
}

// AddPropertyRequest adds a property to a collection, either by a known
// property ID or by looking an address up with the listing provider.
type AddPropertyRequest struct {
	PropertyID string `json:"property_id"`
	Address    string `json:"address"`
}

// handleAddCollectionProperty attaches a property to the collection.
func (s *Server) handleAddCollectionProperty(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := getUserID(ctx)
	collectionID := chi.URLParam(r, "id")

	var req AddPropertyRequest
	if err := json.UnmarshalRead(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid request body", s.logger)
		return
	}

	propertyID := req.PropertyID
	if propertyID == "" {
		if req.Address == "" {
			response.BadRequest(w, "Either property_id or address is required", s.logger)
			return
		}
		property, err := s.propertyService.LookupByAddress(ctx, req.Address, false)
		if err != nil {
			response.HandleError(w, err, s.logger)
			return
		}
		propertyID = property.ID
	}

	if err := s.propertyService.AddToCollection(ctx, userID, collectionID, propertyID); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, map[string]string{"property_id": propertyID}, s.logger)
}

// handleRemoveCollectionProperty detaches a property from the collection.
func (s *Server) handleRemoveCollectionProperty(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	err := s.propertyService.RemoveFromCollection(ctx, getUserID(ctx), chi.URLParam(r, "id"), chi.URLParam(r, "propertyID"))
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.NoContent(w)
}

// handleCollectionFeedback returns visitor reactions and comments.
func (s *Server) handleCollectionFeedback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	feedback, err := s.propertyService.Feedback(ctx, getUserID(ctx), chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, feedback, s.logger)
}

// handleListCollectionTours returns a collection's tour requests,
// newest first.
func (s *Server) handleListCollectionTours(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	tours, err := s.propertyService.ListTours(ctx, getUserID(ctx), chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, tours, s.logger)
}

// UpdateTourStatusRequest carries the new lifecycle state for a tour.
type UpdateTourStatusRequest struct {
	Status domain.TourStatus `json:"status"`
}

// handleUpdateTourStatus moves a tour request between lifecycle states.
func (s *Server) handleUpdateTourStatus(w http.ResponseWriter, r *http.Request) {
	var req UpdateTourStatusRequest
	if err := json.UnmarshalRead(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid request body", s.logger)
		return
	}

	tour, err := s.propertyService.UpdateTourStatus(r.Context(), getUserID(r.Context()), chi.URLParam(r, "tourID"), req.Status)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, tour, s.logger)
}

// handleSyncCollection triggers an immediate sync of one collection.
func (s *Server) handleSyncCollection(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := getUserID(ctx)
	collectionID := chi.URLParam(r, "id")

	// Ownership gate before touching the engine.
	if _, err := s.collectionService.Get(ctx, userID, collectionID); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	outcome := s.syncEngine.SyncCollection(ctx, collectionID)
	response.Success(w, outcome, s.logger)
}

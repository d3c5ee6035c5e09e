package api

import (
	"context"
	"encoding/json/v2"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nestfolio/nestfolio-server/internal/errors"
	"github.com/nestfolio/nestfolio-server/internal/http/response"
	"github.com/nestfolio/nestfolio-server/internal/service"
	"github.com/nestfolio/nestfolio-server/internal/store"
)

// handleGetSharedCollection serves the public view behind a share token.
func (s *Server) handleGetSharedCollection(w http.ResponseWriter, r *http.Request) {
	view, err := s.collectionService.GetShared(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, view, s.logger)
}

// handleSharedInteraction records a visitor reaction on a shared property.
func (s *Server) handleSharedInteraction(w http.ResponseWriter, r *http.Request) {
	var req service.InteractionInput
	if err := json.UnmarshalRead(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid request body", s.logger)
		return
	}

	interaction, err := s.propertyService.InteractShared(r.Context(), chi.URLParam(r, "token"), chi.URLParam(r, "propertyID"), req)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, interaction, s.logger)
}

// handleSharedComment adds a visitor note to a shared property.
func (s *Server) handleSharedComment(w http.ResponseWriter, r *http.Request) {
	var req service.CommentInput
	if err := json.UnmarshalRead(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid request body", s.logger)
		return
	}

	comment, err := s.propertyService.CommentShared(r.Context(), chi.URLParam(r, "token"), chi.URLParam(r, "propertyID"), req)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Created(w, comment, s.logger)
}

// handleSharedTourRequest files a tour request for a shared property.
func (s *Server) handleSharedTourRequest(w http.ResponseWriter, r *http.Request) {
	var req service.TourInput
	if err := json.UnmarshalRead(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid request body", s.logger)
		return
	}

	tour, err := s.propertyService.RequestTourShared(r.Context(), chi.URLParam(r, "token"), chi.URLParam(r, "propertyID"), req)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Created(w, tour, s.logger)
}

// VisitorFormRequest is the open-house sign-in form. It creates a
// collection for the hosting agent seeded from the visited listing.
type VisitorFormRequest struct {
	AgentID       string `json:"agent_id"`
	SourceAddress string `json:"source_address"`
	VisitorName   string `json:"visitor_name"`
	VisitorEmail  string `json:"visitor_email"`
	VisitorPhone  string `json:"visitor_phone"`

	service.VisitorFormInput
}

// visitorPopulateTimeout bounds the background first fill of a new
// visitor collection.
const visitorPopulateTimeout = 5 * time.Minute

// handleVisitorForm creates a collection from an open-house sign-in.
// The visited listing seeds the search preferences, and the first sync
// runs in the background so the visitor isn't kept waiting.
func (s *Server) handleVisitorForm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req VisitorFormRequest
	if err := json.UnmarshalRead(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid request body", s.logger)
		return
	}
	if req.AgentID == "" || req.SourceAddress == "" {
		response.BadRequest(w, "agent_id and source_address are required", s.logger)
		return
	}
	if req.VisitorName == "" {
		response.BadRequest(w, "visitor_name is required", s.logger)
		return
	}

	// The form is public, so verify the agent actually exists.
	agent, err := s.store.GetUser(ctx, req.AgentID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			response.NotFound(w, "Agent not found", s.logger)
			return
		}
		response.HandleError(w, err, s.logger)
		return
	}

	source, err := s.propertyService.LookupByAddress(ctx, req.SourceAddress, false)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	collection, err := s.collectionService.Create(ctx, agent.ID, service.CreateCollectionInput{
		Name:            req.VisitorName + " - " + source.StreetAddress,
		VisitorName:     req.VisitorName,
		VisitorEmail:    req.VisitorEmail,
		VisitorPhone:    req.VisitorPhone,
		SourceListingID: strconv.FormatInt(source.ExternalID, 10),
	})
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	prefsInput := service.GenerateFromListing(source, req.VisitorFormInput)
	prefs, err := s.preferencesService.Create(ctx, agent.ID, collection.ID, prefsInput)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	// First fill runs detached from the request.
	go func() {
		bgCtx, cancel := context.WithTimeout(context.Background(), visitorPopulateTimeout)
		defer cancel()
		outcome := s.syncEngine.PopulateNewCollection(bgCtx, collection.ID)
		if !outcome.Success {
			s.logger.Warn("initial visitor collection fill failed",
				"collection_id", collection.ID,
				"errors", outcome.Errors,
			)
		}
	}()

	response.Created(w, map[string]any{
		"collection":  collection,
		"preferences": prefs,
	}, s.logger)
}

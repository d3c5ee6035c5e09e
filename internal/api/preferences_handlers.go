package api

import (
	"encoding/json/v2"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nestfolio/nestfolio-server/internal/domain"
	"github.com/nestfolio/nestfolio-server/internal/http/response"
	"github.com/nestfolio/nestfolio-server/internal/service"
)

// handleCreatePreferences attaches search preferences to a collection.
func (s *Server) handleCreatePreferences(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req service.PreferencesInput
	if err := json.UnmarshalRead(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid request body", s.logger)
		return
	}

	prefs, err := s.preferencesService.Create(ctx, getUserID(ctx), chi.URLParam(r, "id"), req)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Created(w, prefs, s.logger)
}

// handleGetPreferences returns the collection's search preferences.
func (s *Server) handleGetPreferences(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	prefs, err := s.preferencesService.Get(ctx, getUserID(ctx), chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, prefs, s.logger)
}

// handleUpdatePreferences changes preferences without re-running the search.
func (s *Server) handleUpdatePreferences(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req service.PreferencesInput
	if err := json.UnmarshalRead(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid request body", s.logger)
		return
	}

	prefs, err := s.preferencesService.Update(ctx, getUserID(ctx), chi.URLParam(r, "id"), req)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, prefs, s.logger)
}

// RefreshedPreferencesResponse pairs the stored preferences with the
// outcome of the membership replace they triggered.
type RefreshedPreferencesResponse struct {
	Preferences *domain.CollectionPreferences `json:"preferences"`
	Sync        domain.SyncOutcome            `json:"sync"`
}

// handleUpdatePreferencesAndRefresh updates preferences and replaces the
// collection's membership with a fresh search in one transaction. On any
// failure the prior preferences and membership both survive.
func (s *Server) handleUpdatePreferencesAndRefresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req service.PreferencesInput
	if err := json.UnmarshalRead(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid request body", s.logger)
		return
	}

	prefs, outcome, err := s.preferencesService.UpdateAndRefresh(ctx, getUserID(ctx), chi.URLParam(r, "id"), req)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, RefreshedPreferencesResponse{
		Preferences: prefs,
		Sync:        outcome,
	}, s.logger)
}

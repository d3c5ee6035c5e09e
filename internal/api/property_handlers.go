package api

import (
	"net/http"

	"github.com/nestfolio/nestfolio-server/internal/domain"
	"github.com/nestfolio/nestfolio-server/internal/entitlement"
	"github.com/nestfolio/nestfolio-server/internal/http/response"
)

// handleLookupProperty resolves a street address through the listing
// provider. ?details=true also captures the provider's full detail payload,
// served from a cache when fresh.
func (s *Server) handleLookupProperty(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	address := r.URL.Query().Get("address")
	if address == "" {
		response.BadRequest(w, "Address is required", s.logger)
		return
	}
	wantDetails := r.URL.Query().Get("details") == "true"
	if wantDetails && !entitlement.CanRequestDetails(domain.Plan(getPlan(ctx))) {
		response.Forbidden(w, "Detail payloads require a premium plan", s.logger)
		return
	}

	property, err := s.propertyService.LookupByAddress(ctx, address, wantDetails)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, property, s.logger)
}

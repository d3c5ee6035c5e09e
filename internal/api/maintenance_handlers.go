package api

import (
	"net/http"

	"github.com/nestfolio/nestfolio-server/internal/http/response"
)

// handleCleanup runs the orphaned-property sweep and reports what it did.
func (s *Server) handleCleanup(w http.ResponseWriter, r *http.Request) {
	report, err := s.cleanupService.Run(r.Context())
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, report, s.logger)
}

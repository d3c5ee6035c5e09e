package api

import (
	"net/http"
	"time"

	"github.com/nestfolio/nestfolio-server/internal/http/response"
)

// HealthResponse reports basic liveness information.
type HealthResponse struct {
	Status string    `json:"status"`
	Server string    `json:"server"`
	Time   time.Time `json:"time"`
}

// handleHealthCheck returns server liveness.
func (s *Server) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	response.Success(w, HealthResponse{
		Status: "ok",
		Server: s.serverName,
		Time:   time.Now(),
	}, s.logger)
}

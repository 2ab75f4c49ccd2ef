package api

import (
	"net/http"
)

// HealthCheckHandler godoc
// @Summary      Health check
// @Tags         health
// @Produce      json
// @Success      200  {object}  StatusResponse
// @Router       /health [get]
func (s *Server) HealthCheckHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
}

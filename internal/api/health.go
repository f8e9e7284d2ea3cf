package api

import (
	"net/http"
	"time"
)

type healthResponse struct {
	Status    string         `json:"status"`
	Timestamp string         `json:"timestamp"`
	Services  healthServices `json:"services"`
}

type healthServices struct {
	Redis            string `json:"redis"`
	HealthyEndpoints int    `json:"healthy_endpoints"`
	TotalEndpoints   int    `json:"total_endpoints"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	redisStatus := "connected"
	if err := s.deps.Store.Ping(r.Context()); err != nil {
		redisStatus = "disconnected"
	}

	services := healthServices{Redis: redisStatus}
	if s.deps.Health != nil {
		services.HealthyEndpoints = s.deps.Health.GetHealthyEndpointCount()
		services.TotalEndpoints = s.deps.Health.Size()
	}

	writeJSON(w, http.StatusOK, healthResponse{
		Status:    "ok",
		Timestamp: s.now().UTC().Format(time.RFC3339),
		Services:  services,
	})
}

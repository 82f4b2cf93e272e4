package server

import (
	"encoding/json"
	"net/http"

	"github.com/zeusync/worldsim/internal/core/observability/log"
)

type healthResponse struct {
	Status  string `json:"status"`
	World   string `json:"world"`
	Clients int    `json:"clients"`
	Stats   any    `json:"stats"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	resp := healthResponse{
		Status: "ok",
		World:  s.world.Name(),
		Stats:  s.Stats(),
	}
	if s.view != nil {
		resp.Clients = s.view.Clients()
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Warn("health response", log.Error(err))
	}
}

package endpoints

import (
	"net/http"

	"github.com/doodlesbykumbi/credvault/pkg/metrics"
	"github.com/doodlesbykumbi/credvault/pkg/server"
)

// StatusResponse is the body of GET /status.
type StatusResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	Database string `json:"database"`
}

// RegisterStatusEndpoints registers the unauthenticated status and metrics
// endpoints.
func RegisterStatusEndpoints(s *server.Server) {
	s.Router.HandleFunc("/status", handleStatus(s.Health, s.Version)).Methods("GET")
	s.Router.Handle("/metrics", metrics.Handler()).Methods("GET")
}

func handleStatus(health server.HealthChecker, version string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := StatusResponse{Status: "ok", Version: version, Database: "ok"}
		if health == nil {
			resp.Database = "unknown"
		} else if err := health.CheckConnectivity(r.Context()); err != nil {
			resp.Status = "error"
			resp.Database = "unreachable"
			respondWithJSON(w, http.StatusServiceUnavailable, resp)
			return
		}
		respondWithJSON(w, http.StatusOK, resp)
	}
}

package endpoints

import (
	"github.com/doodlesbykumbi/credvault/pkg/server"
)

// RegisterAll registers all API endpoints on the server
func RegisterAll(srv *server.Server) {
	RegisterStatusEndpoints(srv)
	RegisterCredentialsEndpoints(srv)
	RegisterAuditEndpoints(srv)
}

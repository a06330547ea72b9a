// Package server provides the HTTP server for the credvault API.
//
// It wires gorilla/mux routing, request logging through gorilla/handlers,
// panic recovery and Prometheus instrumentation around the handlers
// registered by the endpoints subpackage.
//
// # Server Setup
//
//	srv := server.NewServer(server.Options{
//	    Vault:         vaultService,
//	    Audit:         recorder,
//	    Health:        healthStore,
//	    Config:        cfg,
//	    JWTMiddleware: jwtAuth,
//	    Log:           logger,
//	})
//	endpoints.RegisterAll(srv)
//	if err := srv.Start(); err != nil {
//	    log.Fatal(err)
//	}
package server

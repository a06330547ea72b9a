package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/doodlesbykumbi/credvault/pkg/access"
	"github.com/doodlesbykumbi/credvault/pkg/audit"
	"github.com/doodlesbykumbi/credvault/pkg/config"
	"github.com/doodlesbykumbi/credvault/pkg/metrics"
	"github.com/doodlesbykumbi/credvault/pkg/server/middleware"
	"github.com/doodlesbykumbi/credvault/pkg/vault"
)

// HealthChecker reports whether the backing database is reachable.
type HealthChecker interface {
	CheckConnectivity(ctx context.Context) error
}

// Options holds the dependencies of a Server.
type Options struct {
	Vault         *vault.Service
	Access        *access.Builder
	Audit         *audit.Recorder
	Health        HealthChecker
	Config        *config.CredvaultConfig
	JWTMiddleware *middleware.JWTAuthenticator
	Log           logrus.FieldLogger
	Host          string
	Version       string
}

type Server struct {
	Vault         *vault.Service
	Access        *access.Builder
	Audit         *audit.Recorder
	Health        HealthChecker
	Config        *config.CredvaultConfig
	JWTMiddleware *middleware.JWTAuthenticator
	Router        *mux.Router
	Log           logrus.FieldLogger
	Version       string
	srv           *http.Server
}

func NewServer(opts Options) *Server {
	log := opts.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Get()
	}
	version := opts.Version
	if version == "" {
		version = "dev"
	}

	router := mux.NewRouter().UseEncodedPath()

	// Request logs go through logrus so they share its format and output.
	access := log.WithField("component", "http").WriterLevel(logrus.InfoLevel)
	var handler http.Handler = metrics.InstrumentHandler(router)
	handler = handlers.RecoveryHandler(
		handlers.RecoveryLogger(log.WithField("component", "http")),
		handlers.PrintRecoveryStack(false),
	)(handler)
	handler = handlers.LoggingHandler(access, handler)

	srv := &http.Server{
		Handler:           handler,
		Addr:              net.JoinHostPort(opts.Host, cfg.Port),
		WriteTimeout:      15 * time.Second,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return &Server{
		Vault:         opts.Vault,
		Access:        opts.Access,
		Audit:         opts.Audit,
		Health:        opts.Health,
		Config:        cfg,
		JWTMiddleware: opts.JWTMiddleware,
		Router:        router,
		Log:           log,
		Version:       version,
		srv:           srv,
	}
}

// Handler returns the fully wrapped handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return s.srv.Addr
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	s.Log.WithField("addr", s.srv.Addr).Info("credvault server listening")
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/doodlesbykumbi/credvault/pkg/access"
	"github.com/doodlesbykumbi/credvault/pkg/cipher"
	"github.com/doodlesbykumbi/credvault/pkg/config"
	"github.com/doodlesbykumbi/credvault/pkg/server"
	"github.com/doodlesbykumbi/credvault/pkg/server/endpoints"
	"github.com/doodlesbykumbi/credvault/pkg/server/middleware"
	gormstore "github.com/doodlesbykumbi/credvault/pkg/store/gorm"
	"github.com/doodlesbykumbi/credvault/pkg/vault"
)

func defaultBindAddress() string {
	if addr := os.Getenv("BIND_ADDRESS"); addr != "" {
		return addr
	}
	return "0.0.0.0"
}

// serverCmd represents the server command
var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Run the credvault application server",
	Long: `Run the credvault application server.

To run the server requires the environment variables CREDVAULT_DATA_KEY,
CREDVAULT_JWT_SECRET and DATABASE_URL.

By default, database migrations are run on startup. Use --no-migrate to skip.`,
	Run: func(cmd *cobra.Command, args []string) {
		// Validate required environment variables first (fail fast)
		for _, name := range []string{config.EnvDataKey, config.EnvJWTSecret, config.EnvDatabaseURL} {
			if os.Getenv(name) == "" {
				fail("%s environment variable is required", name)
			}
		}

		noMigrate, _ := cmd.Flags().GetBool("no-migrate")
		if !noMigrate {
			if err := runMigrations(); err != nil {
				fail("Migration failed: %v", err)
			}
		}

		host, _ := cmd.Flags().GetString("bind-address")
		port, _ := cmd.Flags().GetString("port")
		if err := runServer(host, port); err != nil {
			fail("Server failed: %v", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)

	serverCmd.Flags().StringP("port", "p", "", "server listen port (overrides configuration)")
	serverCmd.Flags().StringP("bind-address", "b", defaultBindAddress(), "server bind address")
	serverCmd.Flags().Bool("no-migrate", false, "skip running database migrations on start")
}

func runServer(host, port string) error {
	rt, err := newRuntime()
	if err != nil {
		return err
	}
	if port != "" {
		rt.cfg.Port = port
	}
	log := rt.log

	keys, err := cipher.NewKeyringFromBase64(rt.cfg.DataKey())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	blobs, err := rt.contentStore(ctx)
	if err != nil {
		return err
	}

	vaultService, err := vault.NewService(vault.Options{
		Credentials:      gormstore.NewCredentialsStore(rt.db),
		Users:            rt.memberships,
		Keys:             keys,
		Content:          blobs,
		Audit:            rt.recorder,
		Log:              log,
		ListLimitDefault: rt.cfg.ListLimitDefault,
		ListLimitMax:     rt.cfg.ListLimitMax,
	})
	if err != nil {
		return err
	}

	authn, err := middleware.NewJWTAuthenticator(middleware.JWTOptions{
		Secret:         []byte(rt.cfg.JWTSecret()),
		Issuer:         rt.cfg.JWTIssuer,
		Audience:       rt.cfg.JWTAudience,
		IsTrustedProxy: rt.cfg.IsTrustedProxy,
		Log:            log,
	})
	if err != nil {
		return err
	}

	s := server.NewServer(server.Options{
		Vault:         vaultService,
		Access:        access.NewBuilder(rt.memberships),
		Audit:         rt.recorder,
		Health:        gormstore.NewHealthStore(rt.db),
		Config:        rt.cfg,
		JWTMiddleware: authn,
		Log:           log,
		Host:          host,
		Version:       version,
	})
	endpoints.RegisterAll(s)

	errCh := make(chan error, 1)
	go func() { errCh <- s.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := s.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return <-errCh
}

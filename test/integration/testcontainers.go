package integration

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/sirupsen/logrus"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/gorm"

	"github.com/doodlesbykumbi/credvault/pkg/access"
	"github.com/doodlesbykumbi/credvault/pkg/audit"
	"github.com/doodlesbykumbi/credvault/pkg/cipher"
	"github.com/doodlesbykumbi/credvault/pkg/config"
	"github.com/doodlesbykumbi/credvault/pkg/content"
	"github.com/doodlesbykumbi/credvault/pkg/db"
	"github.com/doodlesbykumbi/credvault/pkg/server"
	"github.com/doodlesbykumbi/credvault/pkg/server/endpoints"
	"github.com/doodlesbykumbi/credvault/pkg/server/middleware"
	gormstore "github.com/doodlesbykumbi/credvault/pkg/store/gorm"
	"github.com/doodlesbykumbi/credvault/pkg/vault"
)

const jwtSecret = "integration-test-jwt-secret-0123456789abcdef"

// TestContext holds all the resources needed for integration tests
type TestContext struct {
	DB            *gorm.DB
	Container     testcontainers.Container
	ServerURL     string
	DatabaseURL   string
	DataKey       []byte
	Auth          *middleware.JWTAuthenticator
	HTTPClient    *http.Client
	Cancel        context.CancelFunc
	ServerProcess *exec.Cmd
	InlineServer  *httptest.Server
}

// NewTestContext creates a new test context with PostgreSQL testcontainer.
// Modes:
//   - Binary mode (default): Set VAULTCTL_BINARY to the path of the vaultctl binary
//   - Inline mode: Set CREDVAULT_INLINE=1 to run the server in-process (no binary needed)
func NewTestContext(ctx context.Context) (*TestContext, error) {
	projectRoot, err := findProjectRoot()
	if err != nil {
		return nil, fmt.Errorf("failed to find project root: %w", err)
	}
	migrationsDir := filepath.Join(projectRoot, "db", "migrations")

	inlineMode := os.Getenv("CREDVAULT_INLINE") == "1"
	binaryPath := os.Getenv("VAULTCTL_BINARY")

	if !inlineMode && binaryPath == "" {
		return nil, fmt.Errorf("Either VAULTCTL_BINARY or CREDVAULT_INLINE=1 is required.\n\nBinary mode:\n  go build -o vaultctl ./cmd/vaultctl\n  INTEGRATION_TEST=1 VAULTCTL_BINARY=$(pwd)/vaultctl go test -v ./test/integration/...\n\nInline mode:\n  INTEGRATION_TEST=1 CREDVAULT_INLINE=1 go test -v ./test/integration/...")
	}
	if !inlineMode {
		if _, err := os.Stat(binaryPath); err != nil {
			return nil, fmt.Errorf("VAULTCTL_BINARY path does not exist: %s", binaryPath)
		}
		log.Printf("Using binary: %s", binaryPath)
	} else {
		log.Println("Using inline server mode")
	}

	pgContainer, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("credvault_test"),
		tcpostgres.WithUsername("credvault"),
		tcpostgres.WithPassword("credvault"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start postgres container: %w", err)
	}

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = pgContainer.Terminate(ctx)
		return nil, fmt.Errorf("failed to get connection string: %w", err)
	}

	if err := runMigrations(connStr, migrationsDir); err != nil {
		_ = pgContainer.Terminate(ctx)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	database, err := db.Connect(db.Config{URL: connStr})
	if err != nil {
		_ = pgContainer.Terminate(ctx)
		return nil, err
	}

	dataKey := make([]byte, cipher.KeySize)
	for i := range dataKey {
		dataKey[i] = byte(i)
	}

	auth, err := middleware.NewJWTAuthenticator(middleware.JWTOptions{Secret: []byte(jwtSecret)})
	if err != nil {
		_ = pgContainer.Terminate(ctx)
		return nil, err
	}

	tc := &TestContext{
		DB:          database,
		Container:   pgContainer,
		DatabaseURL: connStr,
		DataKey:     dataKey,
		Auth:        auth,
		HTTPClient:  &http.Client{Timeout: 10 * time.Second},
	}

	if inlineMode {
		err = tc.startInlineServer()
	} else {
		err = tc.startBinary(binaryPath)
	}
	if err != nil {
		tc.Close(ctx)
		return nil, err
	}

	if err := waitForServer(tc.ServerURL, 30*time.Second); err != nil {
		tc.Close(ctx)
		return nil, fmt.Errorf("server failed to become ready: %w", err)
	}

	return tc, nil
}

// startInlineServer wires the full server in-process over the container database.
func (tc *TestContext) startInlineServer() error {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	cfg.AuditPersonalCredentials = true

	keys, err := cipher.NewKeyring(tc.DataKey)
	if err != nil {
		return err
	}

	memberships := gormstore.NewMembershipsStore(tc.DB)
	settings := gormstore.NewSettingsStore(tc.DB)
	recorder := audit.NewRecorder(gormstore.NewAuditStore(tc.DB), memberships, settings, audit.Options{
		Log:           logger,
		AuditPersonal: cfg.AuditPersonalCredentials,
	})

	svc, err := vault.NewService(vault.Options{
		Credentials: gormstore.NewCredentialsStore(tc.DB),
		Users:       memberships,
		Keys:        keys,
		Content:     content.NewMemoryStore(),
		Audit:       recorder,
		Log:         logger,
	})
	if err != nil {
		return err
	}

	s := server.NewServer(server.Options{
		Vault:         svc,
		Access:        access.NewBuilder(memberships),
		Audit:         recorder,
		Health:        gormstore.NewHealthStore(tc.DB),
		Config:        cfg,
		JWTMiddleware: tc.Auth,
		Log:           logger,
		Version:       "integration",
	})
	endpoints.RegisterAll(s)

	tc.InlineServer = httptest.NewServer(s.Handler())
	tc.ServerURL = tc.InlineServer.URL
	return nil
}

// startBinary starts the vaultctl server binary
func (tc *TestContext) startBinary(binaryPath string) error {
	ctx, cancel := context.WithCancel(context.Background())

	port := "18080"
	// Use --no-migrate since we already ran migrations in the test setup
	cmd := exec.CommandContext(ctx, binaryPath, "server", "--no-migrate", "-b", "127.0.0.1", "-p", port)
	cmd.Env = append(os.Environ(),
		"DATABASE_URL="+tc.DatabaseURL,
		"CREDVAULT_DATA_KEY="+base64.StdEncoding.EncodeToString(tc.DataKey),
		"CREDVAULT_JWT_SECRET="+jwtSecret,
		"CREDVAULT_CONTENT_BACKEND=memory",
	)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		cancel()
		return fmt.Errorf("failed to start binary: %w", err)
	}

	tc.ServerProcess = cmd
	tc.Cancel = cancel
	tc.ServerURL = "http://127.0.0.1:" + port
	return nil
}

// Reset empties every table between scenarios.
func (tc *TestContext) Reset() error {
	return tc.DB.Exec(`TRUNCATE users, groups, memberships, membership_scopes,
		credentials, password_payloads, api_oauth_payloads, key_cert_payloads,
		token_payloads, secure_note_payloads, file_payloads, shares,
		audit_logs, settings CASCADE`).Error
}

// waitForServer polls the status endpoint until it responds or times out
func waitForServer(serverURL string, timeout time.Duration) error {
	client := &http.Client{Timeout: 2 * time.Second}
	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) {
		resp, err := client.Get(serverURL + "/status")
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		time.Sleep(100 * time.Millisecond)
	}

	return fmt.Errorf("server did not become ready within %v", timeout)
}

// Close cleans up all test resources
func (tc *TestContext) Close(ctx context.Context) {
	if tc.InlineServer != nil {
		tc.InlineServer.Close()
	}
	if tc.Cancel != nil {
		tc.Cancel()
	}
	if tc.ServerProcess != nil && tc.ServerProcess.Process != nil {
		_ = tc.ServerProcess.Process.Kill()
		_ = tc.ServerProcess.Wait()
	}
	if tc.DB != nil {
		if sqlDB, err := tc.DB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	if tc.Container != nil {
		_ = tc.Container.Terminate(ctx)
	}
}

// findProjectRoot locates the project root directory
func findProjectRoot() (string, error) {
	for _, p := range []string{"../..", "..", "."} {
		if _, err := os.Stat(filepath.Join(p, "go.mod")); err == nil {
			return filepath.Abs(p)
		}
	}
	return "", fmt.Errorf("project root not found (looking for go.mod)")
}

// runMigrations applies db/migrations with golang-migrate.
func runMigrations(dbURL, migrationsDir string) error {
	m, err := migrate.New("file://"+migrationsDir, dbURL)
	if err != nil {
		return err
	}
	defer func() { _, _ = m.Close() }()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

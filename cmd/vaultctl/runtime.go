package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/doodlesbykumbi/credvault/pkg/audit"
	"github.com/doodlesbykumbi/credvault/pkg/config"
	"github.com/doodlesbykumbi/credvault/pkg/content"
	"github.com/doodlesbykumbi/credvault/pkg/db"
	"github.com/doodlesbykumbi/credvault/pkg/logging"
	gormstore "github.com/doodlesbykumbi/credvault/pkg/store/gorm"
)

// runtime holds what every database-backed command needs.
type runtime struct {
	cfg         *config.CredvaultConfig
	log         *logrus.Logger
	db          *gorm.DB
	memberships *gormstore.MembershipsStore
	settings    *gormstore.SettingsStore
	recorder    *audit.Recorder
}

// loadConfig loads and validates the configuration.
func loadConfig() (*config.CredvaultConfig, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func newRuntime() (*runtime, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	log, err := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	if err != nil {
		return nil, err
	}

	database, err := db.Connect(db.Config{
		URL:             cfg.DatabaseURL(),
		Debug:           cfg.LogLevel == "debug",
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: 30 * time.Minute,
	})
	if err != nil {
		return nil, err
	}

	rt := &runtime{
		cfg:         cfg,
		log:         log,
		db:          database,
		memberships: gormstore.NewMembershipsStore(database),
		settings:    gormstore.NewSettingsStore(database),
	}

	opts := audit.Options{
		Log:             log,
		AuditPersonal:   cfg.AuditPersonalCredentials,
		DefaultPageSize: cfg.AuditPageSizeDefault,
		MaxPageSize:     cfg.AuditPageSizeMax,
	}
	if cfg.SyslogEnabled {
		syslog := audit.NewLogger()
		syslog.SetWriter(os.Stderr)
		opts.Syslog = syslog
	}
	rt.recorder = audit.NewRecorder(gormstore.NewAuditStore(database), rt.memberships, rt.settings, opts)

	return rt, nil
}

// contentStore opens the FILE content backend named by the configuration.
func (rt *runtime) contentStore(ctx context.Context) (content.Store, error) {
	return content.NewFromConfig(ctx, content.Config{
		Backend: rt.cfg.ContentBackend,
		Root:    rt.cfg.ContentRoot,
		S3: content.S3Config{
			Bucket:       rt.cfg.S3Bucket,
			Prefix:       rt.cfg.S3Prefix,
			Region:       rt.cfg.S3Region,
			Endpoint:     rt.cfg.S3Endpoint,
			UsePathStyle: rt.cfg.S3UsePathStyle,
		},
	})
}

func fail(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

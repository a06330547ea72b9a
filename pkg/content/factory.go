package content

import (
	"context"
	"fmt"
)

// Config selects a content backend.
type Config struct {
	// Backend is one of "memory", "filesystem" or "s3".
	Backend string
	// Root is the directory of the filesystem backend.
	Root string
	S3   S3Config
}

// NewFromConfig creates a Store for cfg.Backend.
func NewFromConfig(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Backend {
	case "", "memory":
		return NewMemoryStore(), nil
	case "filesystem":
		if cfg.Root == "" {
			return nil, fmt.Errorf("filesystem content store requires a root directory")
		}
		return NewFileSystemStore(cfg.Root)
	case "s3":
		return NewS3StoreFromConfig(ctx, cfg.S3)
	default:
		return nil, fmt.Errorf("unknown content backend: %s", cfg.Backend)
	}
}

// Package blob selects the backup storage backend.
package blob

import (
	"context"
	"fmt"

	"rosterinjector/internal/blob/core"
	"rosterinjector/internal/infra/blob/fs"
	"rosterinjector/internal/infra/blob/memory"
	"rosterinjector/internal/infra/blob/s3"
)

// Config chooses a driver and carries its settings.
type Config struct {
	Driver core.Driver
	// Root is the directory used by the fs driver.
	Root string
	S3   s3.Config
}

// Open returns the Store for cfg.Driver. An empty driver means fs.
func Open(ctx context.Context, cfg Config) (core.Store, error) {
	switch cfg.Driver {
	case "", core.DriverFilesystem:
		return fs.New(cfg.Root)
	case core.DriverS3:
		return s3.New(ctx, cfg.S3)
	case core.DriverMemory:
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown blob driver %s", cfg.Driver)
	}
}

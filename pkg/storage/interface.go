package storage

import (
	"context"
	"io"
)

// Storage is the object store behind uploaded media. Keys are written once
// and never overwritten, so URLs may be cached forever.
type Storage interface {
	// Write stores r under key. size is -1 when unknown.
	Write(ctx context.Context, key string, r io.Reader, size int64, contentType string) error

	// Delete removes key. Missing keys are not an error.
	Delete(ctx context.Context, key string) error

	// Exists reports whether key is stored.
	Exists(ctx context.Context, key string) (bool, error)

	// URL returns the stable public URL of a key.
	URL(key string) string
}

// Config selects and configures a Storage driver.
type Config struct {
	Driver string      `mapstructure:"driver"` // "s3" or "local"
	S3     S3Config    `mapstructure:"s3"`
	Local  LocalConfig `mapstructure:"local"`
}

// New builds the Storage selected by cfg.Driver.
func New(ctx context.Context, cfg Config) (Storage, error) {
	switch cfg.Driver {
	case "local":
		return NewLocalStorage(cfg.Local)
	default:
		return NewS3Storage(ctx, cfg.S3)
	}
}

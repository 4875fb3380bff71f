/*
Package storage persists uploaded images and decides which image URLs belong to this server.

Two backends exist: a local directory served by the HTTP router (default) and an
S3-compatible bucket with a public base URL.
*/
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// ErrObjectExists is returned when a name is already taken; stores never overwrite.
var ErrObjectExists = errors.New("storage: object already exists")

// ServiceConfig holds the configuration required to build an ImageStore.
type ServiceConfig struct {
	Backend string

	LocalDir       string
	LocalURLPrefix string

	S3BucketName      string
	S3Endpoint        string
	S3AccessKeyID     string
	S3SecretAccessKey string
	S3PublicURL       string
}

// ImageStore defines the public interface for image persistence.
type ImageStore interface {
	// Save writes body under name and returns the URL clients fetch it from.
	// On error no object remains under name.
	Save(ctx context.Context, name, contentType string, body io.Reader) (string, error)

	// Owns reports whether url was produced by this store.
	Owns(url string) bool
}

// NewImageStore is the factory function for ImageStore.
func NewImageStore(cfg ServiceConfig) (ImageStore, error) {
	switch cfg.Backend {
	case "", "local":
		return NewLocalStore(cfg.LocalDir, cfg.LocalURLPrefix)
	case "s3":
		return newS3Store(cfg)
	default:
		return nil, fmt.Errorf("storage: unknown backend %q", cfg.Backend)
	}
}

// Copyright 2025 RenoScope
// SPDX-License-Identifier: Apache-2.0

package photostore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"
	"time"
)

// DefaultPresignExpiry is how long presigned upload URLs stay valid.
const DefaultPresignExpiry = 15 * time.Minute

var (
	// ErrUnsupportedScheme means PHOTO_STORE_URL has a scheme no backend
	// implements.
	ErrUnsupportedScheme = errors.New("photostore: unsupported scheme")

	// ErrNotFound means the requested object does not exist.
	ErrNotFound = errors.New("photostore: object not found")
)

// ObjectInfo describes a stored photo without its bytes.
type ObjectInfo struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size"`
	ContentType  string    `json:"content_type"`
	LastModified time.Time `json:"last_modified"`
}

// Store is implemented by each object storage backend.
type Store interface {
	// Put writes an object under key.
	Put(ctx context.Context, key, contentType string, data io.Reader) error

	// Get reads the object's bytes.
	Get(ctx context.Context, key string) ([]byte, error)

	// Head returns object metadata without the bytes.
	Head(ctx context.Context, key string) (*ObjectInfo, error)

	// PresignPut returns a URL that accepts a direct HTTP PUT of the object
	// until the returned expiry.
	PresignPut(ctx context.Context, key, contentType string, expiry time.Duration) (string, time.Time, error)
}

// Open selects and initializes a backend from a store URL.
func Open(ctx context.Context, rawURL string) (Store, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid store URL: %w", err)
	}

	prefix := strings.Trim(u.Path, "/")

	switch u.Scheme {
	case "s3":
		return newS3Store(ctx, u.Host, prefix)
	case "gs":
		return newGCSStore(ctx, u.Host, prefix)
	case "azblob":
		container, blobPrefix, _ := strings.Cut(prefix, "/")
		if container == "" {
			return nil, fmt.Errorf("azblob URL must be azblob://account/container[/prefix], got %q", rawURL)
		}
		return newAzureStore(u.Host, container, blobPrefix)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
	}
}

// joinKey prepends the configured prefix to an object key.
func joinKey(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return path.Join(prefix, key)
}

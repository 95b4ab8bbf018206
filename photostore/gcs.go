// Copyright 2025 RenoScope
// SPDX-License-Identifier: Apache-2.0

package photostore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// gcsStore stores photos in a Google Cloud Storage bucket using application
// default credentials, or a service account file via GCS_CREDENTIALS_FILE.
type gcsStore struct {
	client *storage.Client
	bucket string
	prefix string
}

func newGCSStore(ctx context.Context, bucket, prefix string) (*gcsStore, error) {
	var opts []option.ClientOption
	if credFile := os.Getenv("GCS_CREDENTIALS_FILE"); credFile != "" {
		opts = append(opts, option.WithCredentialsFile(credFile))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}
	return &gcsStore{client: client, bucket: bucket, prefix: prefix}, nil
}

func (s *gcsStore) Put(ctx context.Context, key, contentType string, data io.Reader) error {
	w := s.client.Bucket(s.bucket).Object(joinKey(s.prefix, key)).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := io.Copy(w, data); err != nil {
		w.Close()
		return fmt.Errorf("gcs put %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("gcs put %s: %w", key, err)
	}
	return nil
}

func (s *gcsStore) Get(ctx context.Context, key string) ([]byte, error) {
	r, err := s.client.Bucket(s.bucket).Object(joinKey(s.prefix, key)).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return nil, fmt.Errorf("gcs get %s: %w", key, err)
	}
	defer r.Close()
	return io.ReadAll(r)
}

func (s *gcsStore) Head(ctx context.Context, key string) (*ObjectInfo, error) {
	attrs, err := s.client.Bucket(s.bucket).Object(joinKey(s.prefix, key)).Attrs(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return nil, fmt.Errorf("gcs head %s: %w", key, err)
	}
	return &ObjectInfo{
		Key:          key,
		Size:         attrs.Size,
		ContentType:  attrs.ContentType,
		LastModified: attrs.Updated,
	}, nil
}

func (s *gcsStore) PresignPut(ctx context.Context, key, contentType string, expiry time.Duration) (string, time.Time, error) {
	if expiry <= 0 {
		expiry = DefaultPresignExpiry
	}
	expiresAt := time.Now().Add(expiry)

	signedURL, err := s.client.Bucket(s.bucket).SignedURL(joinKey(s.prefix, key), &storage.SignedURLOptions{
		Scheme:      storage.SigningSchemeV4,
		Method:      http.MethodPut,
		Expires:     expiresAt,
		ContentType: contentType,
	})
	if err != nil {
		return "", time.Time{}, fmt.Errorf("gcs presign %s: %w", key, err)
	}
	return signedURL, expiresAt, nil
}

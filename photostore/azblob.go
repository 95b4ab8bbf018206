// Copyright 2025 RenoScope
// SPDX-License-Identifier: Apache-2.0

package photostore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/sas"
)

// azureStore stores photos in an Azure Blob container. A shared key from
// AZURE_STORAGE_ACCOUNT_KEY enables SAS presigning; without it the store
// falls back to DefaultAzureCredential and presigning is unavailable.
type azureStore struct {
	client    *azblob.Client
	account   string
	container string
	prefix    string
	sharedKey *azblob.SharedKeyCredential
}

func newAzureStore(account, container, prefix string) (*azureStore, error) {
	serviceURL := fmt.Sprintf("https://%s.blob.core.windows.net/", account)

	if key := os.Getenv("AZURE_STORAGE_ACCOUNT_KEY"); key != "" {
		cred, err := azblob.NewSharedKeyCredential(account, key)
		if err != nil {
			return nil, fmt.Errorf("invalid Azure shared key: %w", err)
		}
		client, err := azblob.NewClientWithSharedKeyCredential(serviceURL, cred, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create Azure client: %w", err)
		}
		return &azureStore{client: client, account: account, container: container, prefix: prefix, sharedKey: cred}, nil
	}

	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure credential: %w", err)
	}
	client, err := azblob.NewClient(serviceURL, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure client: %w", err)
	}
	return &azureStore{client: client, account: account, container: container, prefix: prefix}, nil
}

func (s *azureStore) Put(ctx context.Context, key, contentType string, data io.Reader) error {
	buf, err := io.ReadAll(data)
	if err != nil {
		return fmt.Errorf("azblob put %s: %w", key, err)
	}
	_, err = s.client.UploadBuffer(ctx, s.container, joinKey(s.prefix, key), buf, &azblob.UploadBufferOptions{
		HTTPHeaders: &blob.HTTPHeaders{BlobContentType: &contentType},
	})
	if err != nil {
		return fmt.Errorf("azblob put %s: %w", key, err)
	}
	return nil
}

func (s *azureStore) Get(ctx context.Context, key string) ([]byte, error) {
	resp, err := s.client.DownloadStream(ctx, s.container, joinKey(s.prefix, key), nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return nil, fmt.Errorf("azblob get %s: %w", key, err)
	}
	defer resp.Body.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return nil, fmt.Errorf("azblob get %s: %w", key, err)
	}
	return buf.Bytes(), nil
}

func (s *azureStore) Head(ctx context.Context, key string) (*ObjectInfo, error) {
	blobClient := s.client.ServiceClient().NewContainerClient(s.container).NewBlobClient(joinKey(s.prefix, key))
	props, err := blobClient.GetProperties(ctx, nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return nil, fmt.Errorf("azblob head %s: %w", key, err)
	}

	info := &ObjectInfo{Key: key}
	if props.ContentLength != nil {
		info.Size = *props.ContentLength
	}
	if props.ContentType != nil {
		info.ContentType = *props.ContentType
	}
	if props.LastModified != nil {
		info.LastModified = *props.LastModified
	}
	return info, nil
}

func (s *azureStore) PresignPut(ctx context.Context, key, contentType string, expiry time.Duration) (string, time.Time, error) {
	if s.sharedKey == nil {
		return "", time.Time{}, fmt.Errorf("azblob presign requires AZURE_STORAGE_ACCOUNT_KEY")
	}
	if expiry <= 0 {
		expiry = DefaultPresignExpiry
	}
	expiryTime := time.Now().Add(expiry)

	perms := sas.BlobPermissions{Write: true, Create: true}
	values := sas.BlobSignatureValues{
		Protocol:      sas.ProtocolHTTPS,
		StartTime:     time.Now().Add(-10 * time.Minute),
		ExpiryTime:    expiryTime,
		Permissions:   perms.String(),
		ContainerName: s.container,
		BlobName:      joinKey(s.prefix, key),
	}

	params, err := values.SignWithSharedKey(s.sharedKey)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("azblob presign %s: %w", key, err)
	}

	url := fmt.Sprintf("https://%s.blob.core.windows.net/%s/%s?%s",
		s.account, s.container, joinKey(s.prefix, key), params.Encode())
	return url, expiryTime, nil
}

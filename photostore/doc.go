// Copyright 2025 RenoScope
// SPDX-License-Identifier: Apache-2.0

// Package photostore stores kitchen photos in object storage. The backend is
// chosen by the scheme of PHOTO_STORE_URL:
//
//	s3://bucket/prefix          Amazon S3 (or S3-compatible via S3_ENDPOINT)
//	gs://bucket/prefix          Google Cloud Storage
//	azblob://account/container/prefix  Azure Blob Storage
//
// All backends support direct put/get/head plus presigned upload URLs so the
// UI can upload photos without routing image bytes through the orchestrator.
package photostore

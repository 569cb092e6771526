// Copyright 2025 Strata Authors
// SPDX-License-Identifier: Apache-2.0

// Package blobstore provides the physical byte store: payloads addressed by
// (bucket, key, version) with a JSON sidecar per blob. The metadata catalog
// is authoritative for version resolution; this layer only stores bytes.
package blobstore

import (
	"context"
	"errors"
	"io"
	"time"
)

// Common errors
var (
	ErrBucketNotFound = errors.New("blobstore: bucket not found")
	ErrBucketExists   = errors.New("blobstore: bucket already exists")
	ErrBucketNotEmpty = errors.New("blobstore: bucket not empty")
	ErrBlobNotFound   = errors.New("blobstore: blob not found")
	ErrInvalidKey     = errors.New("blobstore: invalid object key")
	ErrTooLarge       = errors.New("blobstore: payload exceeds maximum object size")
)

// Meta is the sidecar record stored beside each blob.
type Meta struct {
	Size         int64             `json:"size"`
	ETag         string            `json:"etag"`
	LastModified time.Time         `json:"last_modified"`
	ContentType  string            `json:"content_type"`
	VersionID    string            `json:"version_id,omitempty"`
	UserMetadata map[string]string `json:"user_metadata,omitempty"`
}

// PutResult is returned by Put with the durable payload attributes.
// ETag and Size are derived from a single pass over the data.
type PutResult struct {
	ETag         string
	Size         int64
	LastModified time.Time

	// Location is the store-relative reference recorded in the catalog.
	Location string
}

// ListOptions controls List enumeration.
type ListOptions struct {
	Prefix    string
	Delimiter string
	Marker    string
	MaxKeys   int
}

// ListEntry is one object in a List result.
type ListEntry struct {
	Key  string
	Meta Meta
}

// ListResult is the outcome of a List call.
type ListResult struct {
	Entries        []ListEntry
	CommonPrefixes []string
	IsTruncated    bool
	NextMarker     string
}

// Store is the physical byte store contract.
// Version identifiers address historical payloads; the empty version
// addresses the current payload for the key.
type Store interface {
	// CreateBucket creates the physical namespace for a bucket.
	CreateBucket(ctx context.Context, bucket string) error

	// RemoveBucket removes an empty bucket namespace.
	// Returns ErrBucketNotEmpty when blobs remain.
	RemoveBucket(ctx context.Context, bucket string) error

	// Put streams body into (bucket, key, version), computing etag and size
	// in the same pass, and writes the sidecar. The write is atomic: bytes
	// land in a temp file and are renamed into place on success.
	Put(ctx context.Context, bucket, key, version string, body io.Reader, meta Meta) (*PutResult, error)

	// Get opens the payload for reading. A missing sidecar degrades to
	// stat-derived metadata rather than failing the read.
	Get(ctx context.Context, bucket, key, version string) (io.ReadCloser, *Meta, error)

	// Exists reports whether the payload is present.
	Exists(ctx context.Context, bucket, key, version string) (bool, error)

	// Delete removes the payload and sidecar. Returns false, nil when the
	// payload was already absent.
	Delete(ctx context.Context, bucket, key, version string) (bool, error)

	// Copy duplicates a stored payload to a new destination version.
	Copy(ctx context.Context, srcBucket, srcKey, srcVersion, dstBucket, dstKey, dstVersion string) (*PutResult, error)

	// List enumerates the current object namespace lexicographically,
	// folding keys past the delimiter into common prefixes, skipping
	// sidecar artifacts, and truncating at MaxKeys.
	List(ctx context.Context, bucket string, opts ListOptions) (*ListResult, error)
}

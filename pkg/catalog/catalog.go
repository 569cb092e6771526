// Copyright 2025 Strata Authors
// SPDX-License-Identifier: Apache-2.0

// Package catalog defines the metadata catalog: durable records of buckets,
// object versions, multipart uploads and access log entries.
package catalog

import (
	"context"
	"errors"

	"github.com/stratastore/strata/pkg/types"
)

// Common errors
var (
	ErrBucketNotFound  = errors.New("catalog: bucket not found")
	ErrBucketExists    = errors.New("catalog: bucket already exists")
	ErrBucketNotEmpty  = errors.New("catalog: bucket not empty")
	ErrObjectNotFound  = errors.New("catalog: object not found")
	ErrVersionNotFound = errors.New("catalog: version not found")
	ErrVersionExists   = errors.New("catalog: version already exists")
	ErrPolicyNotFound  = errors.New("catalog: policy not found")
	ErrCORSNotFound    = errors.New("catalog: CORS configuration not found")
	ErrUploadNotFound  = errors.New("catalog: multipart upload not found")
)

// Driver identifies a catalog backend type
type Driver string

const (
	DriverMemory   Driver = "memory"
	DriverPostgres Driver = "postgres"
	DriverMySQL    Driver = "mysql"
)

// Connection pool defaults
const (
	DefaultMaxOpenConns    = 25
	DefaultMaxIdleConns    = 5
	DefaultConnMaxLifetime = 300 // seconds
	DefaultConnMaxIdleTime = 60  // seconds
)

// Store is the main catalog interface.
type Store interface {
	BucketStore
	ObjectStore
	MultipartStore
	AccessLogStore

	// Migrate applies schema migrations.
	Migrate(ctx context.Context) error

	// Close closes the underlying connection.
	Close() error
}

// BucketStore provides CRUD operations for bucket records.
type BucketStore interface {
	// CreateBucket creates a new bucket record.
	// Returns ErrBucketExists when the name is taken.
	CreateBucket(ctx context.Context, bucket *types.BucketInfo) error

	// GetBucket retrieves a bucket by name.
	GetBucket(ctx context.Context, name string) (*types.BucketInfo, error)

	// UpdateBucket mutates a bucket record in place (versioning, tags).
	UpdateBucket(ctx context.Context, bucket *types.BucketInfo) error

	// DeleteBucket removes a bucket record. The caller is responsible for
	// checking emptiness via CountLiveVersions first.
	DeleteBucket(ctx context.Context, name string) error

	// ListBuckets returns all buckets, optionally filtered by owner.
	ListBuckets(ctx context.Context, ownerID string) ([]*types.BucketInfo, error)

	// Policy document, stored opaque.
	GetBucketPolicy(ctx context.Context, name string) (*types.BucketPolicy, error)
	SetBucketPolicy(ctx context.Context, name string, policy *types.BucketPolicy) error
	DeleteBucketPolicy(ctx context.Context, name string) error

	// CORS rule set.
	GetBucketCORS(ctx context.Context, name string) (*types.CORSConfiguration, error)
	SetBucketCORS(ctx context.Context, name string, cors *types.CORSConfiguration) error
	DeleteBucketCORS(ctx context.Context, name string) error
}

// ObjectStore provides CRUD operations for object version records.
type ObjectStore interface {
	// InsertVersion stores a new object version row.
	// Returns ErrVersionExists on a (bucket, key, id) collision.
	InsertVersion(ctx context.Context, v *types.ObjectVersion) error

	// GetLatestVersion returns the row with isLatest=true for (bucket, key).
	GetLatestVersion(ctx context.Context, bucket, key string) (*types.ObjectVersion, error)

	// GetVersion returns a specific version of (bucket, key).
	GetVersion(ctx context.Context, bucket, key, versionID string) (*types.ObjectVersion, error)

	// ListVersionsForKey returns all live rows for (bucket, key),
	// most recent first.
	ListVersionsForKey(ctx context.Context, bucket, key string) ([]*types.ObjectVersion, error)

	// MarkVersionsNotLatest clears isLatest on every row for (bucket, key).
	MarkVersionsNotLatest(ctx context.Context, bucket, key string) error

	// UpdateVersion persists mutations to a version row (tags, ACL, isLatest).
	UpdateVersion(ctx context.Context, v *types.ObjectVersion) error

	// DeleteVersion removes a version row (hard delete).
	DeleteVersion(ctx context.Context, bucket, key, versionID string) error

	// SoftDeleteVersion marks a version row deleted for audit retention.
	SoftDeleteVersion(ctx context.Context, bucket, key, versionID string, deletedAt int64) error

	// CountLiveVersions counts live, non-soft-deleted rows in a bucket.
	CountLiveVersions(ctx context.Context, bucket string) (int64, error)

	// ListObjects enumerates version rows with pagination.
	ListObjects(ctx context.Context, params *ListObjectsParams) (*ListObjectsResult, error)
}

// ListObjectsParams contains parameters for ListObjects.
type ListObjectsParams struct {
	Bucket    string
	Prefix    string
	Delimiter string
	Marker    string
	MaxKeys   int

	// AllVersions enumerates every live row instead of only isLatest rows.
	AllVersions bool
}

// ListObjectsResult contains the result of ListObjects.
type ListObjectsResult struct {
	Versions       []*types.ObjectVersion
	CommonPrefixes []string
	IsTruncated    bool
	NextMarker     string
}

// MultipartStore provides operations for multipart upload initiation.
type MultipartStore interface {
	// CreateMultipartUpload records a newly initiated upload.
	CreateMultipartUpload(ctx context.Context, upload *types.MultipartUpload) error

	// GetMultipartUpload retrieves an upload by id.
	GetMultipartUpload(ctx context.Context, bucket, key, uploadID string) (*types.MultipartUpload, error)
}

// AccessLogStore appends immutable audit records.
type AccessLogStore interface {
	// InsertAccessLogEntries appends a batch of entries.
	InsertAccessLogEntries(ctx context.Context, entries []types.AccessLogEntry) error
}

// Copyright 2025 Strata Authors
// SPDX-License-Identifier: Apache-2.0

// Package lifecycle implements the object lifecycle engine: the state
// machine tying the physical store, the metadata catalog and the
// authorization oracle together. Every operation follows the canonical
// order resolve bucket, authorize, resolve object.
package lifecycle

import (
	"context"
	"fmt"
	"io"

	"github.com/stratastore/strata/pkg/authz"
	"github.com/stratastore/strata/pkg/blobstore"
	"github.com/stratastore/strata/pkg/catalog"
	"github.com/stratastore/strata/pkg/types"
)

// Service is the object lifecycle engine contract.
type Service interface {
	// Buckets
	CreateBucket(ctx context.Context, actor string, req *CreateBucketRequest) (*types.BucketInfo, error)
	GetBucket(ctx context.Context, actor, bucket string) (*types.BucketInfo, error)
	ListBuckets(ctx context.Context, actor string) ([]*types.BucketInfo, error)
	DeleteBucket(ctx context.Context, actor, bucket string) error

	// Bucket configuration
	GetBucketVersioning(ctx context.Context, actor, bucket string) (bool, error)
	SetBucketVersioning(ctx context.Context, actor, bucket string, enabled bool) error
	GetBucketPolicy(ctx context.Context, actor, bucket string) (*types.BucketPolicy, error)
	SetBucketPolicy(ctx context.Context, actor, bucket string, policy *types.BucketPolicy) error
	DeleteBucketPolicy(ctx context.Context, actor, bucket string) error
	GetBucketCORS(ctx context.Context, actor, bucket string) (*types.CORSConfiguration, error)
	SetBucketCORS(ctx context.Context, actor, bucket string, cors *types.CORSConfiguration) error
	DeleteBucketCORS(ctx context.Context, actor, bucket string) error

	// Objects
	PutObject(ctx context.Context, actor string, req *PutObjectRequest) (*types.ObjectVersion, error)
	GetObject(ctx context.Context, actor, bucket, key, versionID string) (io.ReadCloser, *types.ObjectVersion, error)
	HeadObject(ctx context.Context, actor, bucket, key, versionID string) (*types.ObjectVersion, error)
	DeleteObject(ctx context.Context, actor, bucket, key, versionID string) error
	CopyObject(ctx context.Context, actor string, req *CopyObjectRequest) (*types.ObjectVersion, error)
	ListObjects(ctx context.Context, actor string, req *ListObjectsRequest) (*ListObjectsResult, error)

	// Object subresources, attached to the latest version
	GetObjectACL(ctx context.Context, actor, bucket, key string) (*types.ACL, error)
	PutObjectACL(ctx context.Context, actor, bucket, key string, acl *types.ACL) error
	GetObjectTagging(ctx context.Context, actor, bucket, key string) ([]types.Tag, error)
	PutObjectTagging(ctx context.Context, actor, bucket, key string, tags []types.Tag) error

	// Multipart initiation
	InitiateMultipartUpload(ctx context.Context, actor string, req *InitiateMultipartRequest) (*types.MultipartUpload, error)
}

// Config holds the dependencies of the lifecycle engine.
type Config struct {
	Blobs   blobstore.Store
	Catalog catalog.Store
	Oracle  authz.Oracle

	// LockStripes sizes the per-key lock table. Zero means the default.
	LockStripes int
}

// NewService validates cfg and returns a ready lifecycle engine.
func NewService(cfg Config) (Service, error) {
	if cfg.Blobs == nil {
		return nil, fmt.Errorf("lifecycle: blob store is required")
	}
	if cfg.Catalog == nil {
		return nil, fmt.Errorf("lifecycle: catalog is required")
	}
	if cfg.Oracle == nil {
		return nil, fmt.Errorf("lifecycle: authorization oracle is required")
	}
	return &serviceImpl{
		blobs:   cfg.Blobs,
		catalog: cfg.Catalog,
		oracle:  cfg.Oracle,
		locks:   newKeyLock(cfg.LockStripes),
	}, nil
}

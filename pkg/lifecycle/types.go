// Copyright 2025 Strata Authors
// SPDX-License-Identifier: Apache-2.0

package lifecycle

import (
	"io"

	"github.com/stratastore/strata/pkg/types"
)

// CreateBucketRequest carries the parameters for bucket creation.
type CreateBucketRequest struct {
	Name   string
	Region string
	Tags   map[string]string
}

// PutObjectRequest carries the parameters for an object upload.
type PutObjectRequest struct {
	Bucket       string
	Key          string
	Body         io.Reader
	ContentType  string
	UserMetadata map[string]string
}

// CopyObjectRequest carries the parameters for an object copy.
type CopyObjectRequest struct {
	SrcBucket string
	SrcKey    string
	DstBucket string
	DstKey    string
}

// ListObjectsRequest carries the parameters for object enumeration.
type ListObjectsRequest struct {
	Bucket    string
	Prefix    string
	Delimiter string
	Marker    string
	MaxKeys   int

	// AllVersions switches to version enumeration: every live row instead
	// of only the latest per key.
	AllVersions bool
}

// ListObjectsResult is the outcome of ListObjects.
type ListObjectsResult struct {
	Versions       []*types.ObjectVersion
	CommonPrefixes []string
	IsTruncated    bool
	NextMarker     string
}

// InitiateMultipartRequest carries the parameters for multipart initiation.
type InitiateMultipartRequest struct {
	Bucket      string
	Key         string
	ContentType string
	Metadata    map[string]string
}

// Copyright 2025 Strata Authors
// SPDX-License-Identifier: Apache-2.0

package types

import "github.com/google/uuid"

// ObjectVersion represents one stored revision of the bytes under a key.
// The ID doubles as the version identifier surfaced to clients.
type ObjectVersion struct {
	ID        uuid.UUID `json:"id"`
	BucketID  uuid.UUID `json:"bucket_id"`
	Bucket    string    `json:"bucket"`
	Key       string    `json:"key"`
	Size      uint64    `json:"size"`
	ETag      string    `json:"etag"`
	IsLatest  bool      `json:"is_latest"`
	CreatedAt int64     `json:"created_at"` // Unix nanoseconds
	DeletedAt int64     `json:"deleted_at,omitempty"`

	ContentType  string            `json:"content_type,omitempty"`
	UserMetadata map[string]string `json:"user_metadata,omitempty"`
	Tags         map[string]string `json:"tags,omitempty"`
	ACL          *ACL              `json:"acl,omitempty"`
	OwnerID      string            `json:"owner_id"`

	// StorageLocation is the physical store reference for this version's bytes.
	StorageLocation string `json:"storage_location"`

	// Multipart flags. Uploads created via the multipart initiation API carry
	// IsMultipart=true and stay IsComplete=false until assembly, which this
	// core does not perform.
	IsMultipart bool `json:"is_multipart,omitempty"`
	IsComplete  bool `json:"is_complete"`
}

// IsDeleted returns true if the version has been soft-deleted
func (o *ObjectVersion) IsDeleted() bool {
	return o.DeletedAt > 0
}

// VersionID returns the client-visible version identifier.
func (o *ObjectVersion) VersionID() string {
	return o.ID.String()
}

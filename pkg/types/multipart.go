// Copyright 2025 Strata Authors
// SPDX-License-Identifier: Apache-2.0

package types

// MultipartUpload tracks an initiated multipart upload.
// Only initiation is supported; part upload and assembly are not.
type MultipartUpload struct {
	UploadID    string            `json:"upload_id"`
	Bucket      string            `json:"bucket"`
	Key         string            `json:"key"`
	OwnerID     string            `json:"owner_id"`
	ContentType string            `json:"content_type,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	InitiatedAt int64             `json:"initiated_at"`
}

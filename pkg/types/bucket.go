// Copyright 2025 Strata Authors
// SPDX-License-Identifier: Apache-2.0

package types

import "github.com/google/uuid"

// BucketInfo represents bucket metadata
type BucketInfo struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	OwnerID   string    `json:"owner_id"`
	Region    string    `json:"region,omitempty"`
	CreatedAt int64     `json:"created_at"`

	// Versioning is true once versioning has been enabled for the bucket.
	Versioning bool `json:"versioning,omitempty"`

	Tags map[string]string `json:"tags,omitempty"`
}

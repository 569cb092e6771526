// Copyright 2025 Strata Authors
// SPDX-License-Identifier: Apache-2.0

package types

import (
	"encoding/json"
	"fmt"
)

// BucketPolicy is an opaque policy document attached to a bucket.
// Evaluation is delegated to the external permission oracle; the catalog
// only stores and returns the document.
type BucketPolicy struct {
	Document json.RawMessage `json:"document"`
}

// Validate ensures the document is a JSON object.
func (p *BucketPolicy) Validate() error {
	if len(p.Document) == 0 {
		return fmt.Errorf("policy document is required")
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(p.Document, &obj); err != nil {
		return fmt.Errorf("policy document must be a JSON object: %w", err)
	}
	return nil
}

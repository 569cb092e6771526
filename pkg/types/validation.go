// Copyright 2025 Strata Authors
// SPDX-License-Identifier: Apache-2.0

package types

import (
	"fmt"
	"net"
	"strings"
)

// MaxObjectKeyLength is the maximum object key length in bytes.
const MaxObjectKeyLength = 1024

// IsValidBucketName reports whether name satisfies the bucket naming rules:
// 3-63 characters, lowercase letters, digits, hyphens and dots, every label
// starting and ending alphanumeric, no consecutive dots or dot-hyphen
// adjacency, and not shaped like an IP address.
func IsValidBucketName(name string) bool {
	if len(name) < 3 || len(name) > 63 {
		return false
	}
	if strings.Contains(name, "..") || strings.HasPrefix(name, ".") || strings.HasSuffix(name, ".") {
		return false
	}
	if net.ParseIP(name) != nil {
		return false
	}
	for _, label := range strings.Split(name, ".") {
		if label == "" {
			return false
		}
		for i, r := range label {
			isDigit := r >= '0' && r <= '9'
			isLower := r >= 'a' && r <= 'z'
			if !(isDigit || isLower || r == '-') {
				return false
			}
			if (i == 0 || i == len(label)-1) && r == '-' {
				return false
			}
		}
	}
	return true
}

// ValidateObjectKey checks an object key against the key rules:
// non-empty, at most MaxObjectKeyLength bytes, no control characters,
// no leading '/'.
func ValidateObjectKey(key string) error {
	if key == "" {
		return fmt.Errorf("object key must not be empty")
	}
	if len(key) > MaxObjectKeyLength {
		return fmt.Errorf("object key exceeds %d bytes", MaxObjectKeyLength)
	}
	if strings.HasPrefix(key, "/") {
		return fmt.Errorf("object key must not start with '/'")
	}
	for _, r := range key {
		if r < 0x20 || r == 0x7f {
			return fmt.Errorf("object key contains control characters")
		}
	}
	return nil
}

// Copyright 2025 Strata Authors
// SPDX-License-Identifier: Apache-2.0

package types

// ACL permissions
const (
	PermissionFullControl = "FULL_CONTROL"
	PermissionRead        = "READ"
	PermissionWrite       = "WRITE"
	PermissionReadACP     = "READ_ACP"
	PermissionWriteACP    = "WRITE_ACP"
)

// Grantee identifies the receiver of a grant
type Grantee struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name,omitempty"`
	Type        string `json:"type,omitempty"` // CanonicalUser or Group
}

// Grant pairs a grantee with a permission
type Grant struct {
	Grantee    Grantee `json:"grantee"`
	Permission string  `json:"permission"`
}

// ACL is an access control list attached to an object version
type ACL struct {
	Owner  Grantee `json:"owner"`
	Grants []Grant `json:"grants"`
}

// DefaultACL synthesizes the implicit ACL for an object without one:
// full control for the owner.
func DefaultACL(ownerID string) *ACL {
	owner := Grantee{ID: ownerID, Type: "CanonicalUser"}
	return &ACL{
		Owner: owner,
		Grants: []Grant{
			{Grantee: owner, Permission: PermissionFullControl},
		},
	}
}

// ValidPermission reports whether p is a recognized ACL permission.
func ValidPermission(p string) bool {
	switch p {
	case PermissionFullControl, PermissionRead, PermissionWrite,
		PermissionReadACP, PermissionWriteACP:
		return true
	}
	return false
}

// Copyright 2025 Strata Authors
// SPDX-License-Identifier: Apache-2.0

// Package authz defines the permission oracle consulted before every
// bucket and object operation.
package authz

import "context"

// Action names a permission being requested.
type Action string

const (
	ActionReadBucket   Action = "read:bucket"
	ActionWriteBucket  Action = "write:bucket"
	ActionDeleteBucket Action = "delete:bucket"
	ActionReadObject   Action = "read:object"
	ActionWriteObject  Action = "write:object"
	ActionDeleteObject Action = "delete:object"
	ActionReadACL      Action = "read:acl"
	ActionWriteACL     Action = "write:acl"
)

// Resource identifies what an action targets. Key is empty for
// bucket-level actions.
type Resource struct {
	Bucket string
	Key    string
}

// Decision is the oracle's answer to a single permission check.
type Decision struct {
	// Allowed is the verdict.
	Allowed bool

	// Reason explains a denial in human-readable form.
	Reason string

	// PolicyID identifies the policy that produced the verdict, when the
	// oracle reports one.
	PolicyID string
}

// Oracle answers permission checks. Implementations must be safe for
// concurrent use. A failing oracle denies; it never errors open.
type Oracle interface {
	Authorize(ctx context.Context, actor string, action Action, resource Resource) Decision
}

type captureKey struct{}

// CaptureDecision returns a context that copies each authorization decision
// made under it into dst. The HTTP layer attaches one per request so audit
// entries can carry the deciding policy.
func CaptureDecision(ctx context.Context, dst *Decision) context.Context {
	return context.WithValue(ctx, captureKey{}, dst)
}

// RecordDecision publishes d to the capture target attached to ctx, if any.
// Callers invoke it after every oracle check, allow or deny.
func RecordDecision(ctx context.Context, d Decision) {
	if dst, ok := ctx.Value(captureKey{}).(*Decision); ok {
		*dst = d
	}
}

// AllowAll is an Oracle that permits everything. Useful for tests and
// single-tenant deployments without an external authorizer.
type AllowAll struct{}

func (AllowAll) Authorize(ctx context.Context, actor string, action Action, resource Resource) Decision {
	return Decision{Allowed: true}
}

// Copyright 2025 Strata Authors
// SPDX-License-Identifier: Apache-2.0

package authz

import (
	"context"
	"sync"
)

// RuleOracle is an in-memory Oracle driven by explicit deny rules.
// Everything not denied is allowed. It exists for tests and for embedding
// a simple policy when no external authorizer is configured.
type RuleOracle struct {
	mu     sync.RWMutex
	denied map[ruleKey]string
}

type ruleKey struct {
	actor  string
	action Action
	bucket string
}

// NewRuleOracle returns an empty RuleOracle that allows everything.
func NewRuleOracle() *RuleOracle {
	return &RuleOracle{denied: make(map[ruleKey]string)}
}

// Deny records a denial for (actor, action, bucket). An empty actor or
// bucket acts as a wildcard.
func (o *RuleOracle) Deny(actor string, action Action, bucket, policyID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.denied[ruleKey{actor: actor, action: action, bucket: bucket}] = policyID
}

func (o *RuleOracle) Authorize(ctx context.Context, actor string, action Action, resource Resource) Decision {
	o.mu.RLock()
	defer o.mu.RUnlock()
	candidates := []ruleKey{
		{actor: actor, action: action, bucket: resource.Bucket},
		{actor: "", action: action, bucket: resource.Bucket},
		{actor: actor, action: action, bucket: ""},
	}
	for _, k := range candidates {
		if policyID, ok := o.denied[k]; ok {
			return Decision{Allowed: false, Reason: "denied by policy", PolicyID: policyID}
		}
	}
	return Decision{Allowed: true}
}

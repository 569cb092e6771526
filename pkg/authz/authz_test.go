// Copyright 2025 Strata Authors
// SPDX-License-Identifier: Apache-2.0

package authz

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCaptureDecision(t *testing.T) {
	var captured Decision
	ctx := CaptureDecision(context.Background(), &captured)

	RecordDecision(ctx, Decision{Allowed: false, Reason: "denied by policy", PolicyID: "p-9"})
	assert.False(t, captured.Allowed)
	assert.Equal(t, "p-9", captured.PolicyID)

	RecordDecision(ctx, Decision{Allowed: true, PolicyID: "p-10"})
	assert.True(t, captured.Allowed)
	assert.Equal(t, "p-10", captured.PolicyID)

	// Without a capture target the record is a no-op.
	RecordDecision(context.Background(), Decision{Allowed: true})
}

func TestHTTPOracleAllows(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		w.Write([]byte(`{"allowed": true, "policy_id": "p-42"}`))
	}))
	defer srv.Close()

	o, err := NewHTTPOracle(HTTPOracleConfig{Endpoint: srv.URL, Token: "secret"})
	require.NoError(t, err)

	d := o.Authorize(context.Background(), "alice", ActionWriteObject, Resource{Bucket: "photos", Key: "a.jpg"})
	assert.True(t, d.Allowed)
	assert.Equal(t, "p-42", d.PolicyID)
}

func TestHTTPOracleDeniesWithReason(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"allowed": false, "reason": "bucket is read-only", "policy_id": "p-7"}`))
	}))
	defer srv.Close()

	o, err := NewHTTPOracle(HTTPOracleConfig{Endpoint: srv.URL})
	require.NoError(t, err)

	d := o.Authorize(context.Background(), "bob", ActionDeleteObject, Resource{Bucket: "photos", Key: "a.jpg"})
	assert.False(t, d.Allowed)
	assert.Equal(t, "bucket is read-only", d.Reason)
	assert.Equal(t, "p-7", d.PolicyID)
}

func TestHTTPOracleFailsClosedOnTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	o, err := NewHTTPOracle(HTTPOracleConfig{Endpoint: srv.URL, Timeout: 20 * time.Millisecond})
	require.NoError(t, err)

	d := o.Authorize(context.Background(), "alice", ActionReadObject, Resource{Bucket: "photos"})
	assert.False(t, d.Allowed)
	assert.Equal(t, ReasonUnavailable, d.Reason)
}

func TestHTTPOracleFailsClosedOnServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	o, err := NewHTTPOracle(HTTPOracleConfig{Endpoint: srv.URL})
	require.NoError(t, err)

	d := o.Authorize(context.Background(), "alice", ActionReadObject, Resource{Bucket: "photos"})
	assert.False(t, d.Allowed)
	assert.Equal(t, ReasonUnavailable, d.Reason)
}

func TestHTTPOracleRequiresEndpoint(t *testing.T) {
	_, err := NewHTTPOracle(HTTPOracleConfig{})
	assert.Error(t, err)
}

func TestRuleOracle(t *testing.T) {
	o := NewRuleOracle()
	o.Deny("mallory", ActionWriteObject, "photos", "p-1")
	o.Deny("", ActionDeleteBucket, "archive", "p-2")

	d := o.Authorize(context.Background(), "mallory", ActionWriteObject, Resource{Bucket: "photos"})
	assert.False(t, d.Allowed)
	assert.Equal(t, "p-1", d.PolicyID)

	d = o.Authorize(context.Background(), "alice", ActionWriteObject, Resource{Bucket: "photos"})
	assert.True(t, d.Allowed)

	d = o.Authorize(context.Background(), "anyone", ActionDeleteBucket, Resource{Bucket: "archive"})
	assert.False(t, d.Allowed)
}

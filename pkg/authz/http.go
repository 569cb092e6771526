// Copyright 2025 Strata Authors
// SPDX-License-Identifier: Apache-2.0

package authz

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/stratastore/strata/pkg/logger"
)

const (
	defaultTimeout = 2 * time.Second

	// ReasonUnavailable marks a denial caused by oracle failure rather
	// than by policy. Callers surface it as a retryable condition.
	ReasonUnavailable = "authorization service unavailable"
)

// HTTPOracleConfig configures an HTTPOracle.
type HTTPOracleConfig struct {
	// Endpoint is the full URL of the authorizer's check endpoint.
	Endpoint string

	// Token is an optional bearer token sent with each check.
	Token string

	// Timeout bounds each check. Defaults to 2s.
	Timeout time.Duration

	// Client overrides the HTTP client, mainly for tests.
	Client *http.Client
}

// HTTPOracle consults an external authorization service over HTTP.
// Any transport failure, timeout or non-200 response is a denial with
// ReasonUnavailable: the oracle fails closed.
type HTTPOracle struct {
	endpoint string
	token    string
	timeout  time.Duration
	client   *http.Client
}

var _ Oracle = (*HTTPOracle)(nil)

// NewHTTPOracle validates cfg and returns a ready oracle.
func NewHTTPOracle(cfg HTTPOracleConfig) (*HTTPOracle, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("authz: endpoint is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &HTTPOracle{
		endpoint: cfg.Endpoint,
		token:    cfg.Token,
		timeout:  cfg.Timeout,
		client:   client,
	}, nil
}

type checkRequest struct {
	Actor  string `json:"actor"`
	Action string `json:"action"`
	Bucket string `json:"bucket"`
	Key    string `json:"key,omitempty"`
}

type checkResponse struct {
	Allowed  bool   `json:"allowed"`
	Reason   string `json:"reason,omitempty"`
	PolicyID string `json:"policy_id,omitempty"`
}

func (o *HTTPOracle) Authorize(ctx context.Context, actor string, action Action, resource Resource) Decision {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	body, err := json.Marshal(checkRequest{
		Actor:  actor,
		Action: string(action),
		Bucket: resource.Bucket,
		Key:    resource.Key,
	})
	if err != nil {
		return o.unavailable(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.endpoint, bytes.NewReader(body))
	if err != nil {
		return o.unavailable(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if o.token != "" {
		req.Header.Set("Authorization", "Bearer "+o.token)
	}

	resp, err := o.client.Do(req)
	if err != nil {
		return o.unavailable(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return o.unavailable(fmt.Errorf("authorizer returned status %d", resp.StatusCode))
	}

	var out checkResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return o.unavailable(err)
	}

	d := Decision{Allowed: out.Allowed, Reason: out.Reason, PolicyID: out.PolicyID}
	if !d.Allowed && d.Reason == "" {
		d.Reason = "denied by policy"
	}
	return d
}

func (o *HTTPOracle) unavailable(err error) Decision {
	logger.Warn().Err(err).Msg("authorization check failed, denying")
	return Decision{Allowed: false, Reason: ReasonUnavailable}
}

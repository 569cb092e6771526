// Copyright 2025 Strata Authors
// SPDX-License-Identifier: Apache-2.0

package types

import "time"

// AccessLogEntry is one immutable record of an operation outcome.
// Entries are append-only; they are never updated.
type AccessLogEntry struct {
	EventTime time.Time `json:"event_time"`
	RequestID string    `json:"request_id"`

	Actor  string `json:"actor"`
	Action string `json:"action"`

	Bucket string `json:"bucket"`
	Key    string `json:"key,omitempty"`

	HTTPMethod string `json:"http_method"`
	HTTPStatus int    `json:"http_status"`

	Allowed  bool   `json:"allowed"`
	PolicyID string `json:"policy_id,omitempty"`

	BytesSent     uint64 `json:"bytes_sent,omitempty"`
	BytesReceived uint64 `json:"bytes_received,omitempty"`

	TotalTimeMs uint32 `json:"total_time_ms,omitempty"`

	ErrorCode string `json:"error_code,omitempty"`
	VersionID string `json:"version_id,omitempty"`
}

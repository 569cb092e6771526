// Copyright 2025 Strata Authors
// SPDX-License-Identifier: Apache-2.0

package sqlstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/stratastore/strata/pkg/types"
)

const accessLogColumns = 15

func (s *Store) InsertAccessLogEntries(ctx context.Context, entries []types.AccessLogEntry) error {
	if len(entries) == 0 {
		return nil
	}

	// Multi-row VALUES keeps the batch a single round trip.
	placeholders := make([]string, 0, len(entries))
	args := make([]any, 0, len(entries)*accessLogColumns)
	for i, e := range entries {
		base := i * accessLogColumns
		row := make([]string, accessLogColumns)
		for j := range row {
			row[j] = fmt.Sprintf("$%d", base+j+1)
		}
		placeholders = append(placeholders, "("+strings.Join(row, ", ")+")")
		args = append(args,
			e.EventTime, e.RequestID, e.Actor, e.Action, e.Bucket, e.Key,
			e.HTTPMethod, e.HTTPStatus, e.Allowed, e.PolicyID,
			e.BytesSent, e.BytesReceived, e.TotalTimeMs, e.ErrorCode, e.VersionID)
	}

	query := `INSERT INTO access_log (event_time, request_id, actor, action, bucket, object_key,
		http_method, http_status, allowed, policy_id,
		bytes_sent, bytes_received, total_time_ms, error_code, version_id)
		VALUES ` + strings.Join(placeholders, ", ")
	if _, err := s.exec(ctx, query, args...); err != nil {
		return fmt.Errorf("sqlstore: insert access log entries: %w", err)
	}
	return nil
}

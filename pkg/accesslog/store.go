// Copyright 2025 Strata Authors
// SPDX-License-Identifier: Apache-2.0

// Package accesslog buffers per-request audit records and flushes them in
// batches to a configurable sink.
package accesslog

import (
	"context"

	"github.com/stratastore/strata/pkg/catalog"
	"github.com/stratastore/strata/pkg/logger"
	"github.com/stratastore/strata/pkg/types"
)

// Store persists batches of audit records.
type Store interface {
	// InsertEntries batch inserts audit records.
	InsertEntries(ctx context.Context, entries []types.AccessLogEntry) error

	// Close releases resources.
	Close() error
}

// CatalogStore writes audit batches into the metadata catalog.
type CatalogStore struct {
	store catalog.AccessLogStore
}

// NewCatalogStore returns a Store backed by the catalog.
func NewCatalogStore(store catalog.AccessLogStore) *CatalogStore {
	return &CatalogStore{store: store}
}

func (s *CatalogStore) InsertEntries(ctx context.Context, entries []types.AccessLogEntry) error {
	return s.store.InsertAccessLogEntries(ctx, entries)
}

func (s *CatalogStore) Close() error { return nil }

// LogStore emits each audit record as a structured log line. It is the
// fallback sink when no durable store is configured.
type LogStore struct{}

func (LogStore) InsertEntries(ctx context.Context, entries []types.AccessLogEntry) error {
	for _, e := range entries {
		logger.Info().
			Str("request_id", e.RequestID).
			Str("actor", e.Actor).
			Str("action", e.Action).
			Str("bucket", e.Bucket).
			Str("key", e.Key).
			Int("status", e.HTTPStatus).
			Bool("allowed", e.Allowed).
			Str("error_code", e.ErrorCode).
			Msg("access")
	}
	return nil
}

func (LogStore) Close() error { return nil }

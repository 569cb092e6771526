// Copyright 2025 Strata Authors
// SPDX-License-Identifier: Apache-2.0

package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/stratastore/strata/pkg/catalog"
	"github.com/stratastore/strata/pkg/types"

	"github.com/google/uuid"
)

func (s *Store) CreateBucket(ctx context.Context, bucket *types.BucketInfo) error {
	tags, err := marshalJSON(bucket.Tags)
	if err != nil {
		return err
	}
	_, err = s.exec(ctx, `
		INSERT INTO buckets (id, name, owner_id, region, versioning, tags, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		bucket.ID.String(), bucket.Name, bucket.OwnerID, bucket.Region,
		bucket.Versioning, tags, bucket.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return catalog.ErrBucketExists
		}
		return fmt.Errorf("sqlstore: create bucket: %w", err)
	}
	return nil
}

func (s *Store) GetBucket(ctx context.Context, name string) (*types.BucketInfo, error) {
	row := s.queryRow(ctx, `
		SELECT id, name, owner_id, region, versioning, tags, created_at
		FROM buckets WHERE name = $1`, name)
	return scanBucket(row)
}

func (s *Store) UpdateBucket(ctx context.Context, bucket *types.BucketInfo) error {
	tags, err := marshalJSON(bucket.Tags)
	if err != nil {
		return err
	}
	res, err := s.exec(ctx, `
		UPDATE buckets SET owner_id = $1, region = $2, versioning = $3, tags = $4
		WHERE name = $5`,
		bucket.OwnerID, bucket.Region, bucket.Versioning, tags, bucket.Name)
	if err != nil {
		return fmt.Errorf("sqlstore: update bucket: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return catalog.ErrBucketNotFound
	}
	return nil
}

func (s *Store) DeleteBucket(ctx context.Context, name string) error {
	res, err := s.exec(ctx, `DELETE FROM buckets WHERE name = $1`, name)
	if err != nil {
		return fmt.Errorf("sqlstore: delete bucket: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return catalog.ErrBucketNotFound
	}
	_, _ = s.exec(ctx, `DELETE FROM bucket_policies WHERE bucket = $1`, name)
	_, _ = s.exec(ctx, `DELETE FROM bucket_cors WHERE bucket = $1`, name)
	return nil
}

func (s *Store) ListBuckets(ctx context.Context, ownerID string) ([]*types.BucketInfo, error) {
	query := `
		SELECT id, name, owner_id, region, versioning, tags, created_at
		FROM buckets`
	args := []any{}
	if ownerID != "" {
		query += ` WHERE owner_id = $1`
		args = append(args, ownerID)
	}
	query += ` ORDER BY name`

	rows, err := s.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: list buckets: %w", err)
	}
	defer rows.Close()

	var out []*types.BucketInfo
	for rows.Next() {
		b, err := scanBucket(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBucket(row rowScanner) (*types.BucketInfo, error) {
	var b types.BucketInfo
	var id string
	var tags sql.NullString
	err := row.Scan(&id, &b.Name, &b.OwnerID, &b.Region, &b.Versioning, &tags, &b.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, catalog.ErrBucketNotFound
		}
		return nil, fmt.Errorf("sqlstore: scan bucket: %w", err)
	}
	b.ID, err = uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: parse bucket id: %w", err)
	}
	if err := unmarshalJSON(tags, &b.Tags); err != nil {
		return nil, err
	}
	return &b, nil
}

// ============================================================================
// Policy
// ============================================================================

func (s *Store) GetBucketPolicy(ctx context.Context, name string) (*types.BucketPolicy, error) {
	var doc string
	err := s.queryRow(ctx, `SELECT document FROM bucket_policies WHERE bucket = $1`, name).Scan(&doc)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, catalog.ErrPolicyNotFound
		}
		return nil, fmt.Errorf("sqlstore: get bucket policy: %w", err)
	}
	return &types.BucketPolicy{Document: []byte(doc)}, nil
}

func (s *Store) SetBucketPolicy(ctx context.Context, name string, policy *types.BucketPolicy) error {
	query := `INSERT INTO bucket_policies (bucket, document) VALUES ($1, $2) ` +
		s.dialect.UpsertSuffix("bucket", []string{"document"})
	if _, err := s.exec(ctx, query, name, string(policy.Document)); err != nil {
		return fmt.Errorf("sqlstore: set bucket policy: %w", err)
	}
	return nil
}

func (s *Store) DeleteBucketPolicy(ctx context.Context, name string) error {
	res, err := s.exec(ctx, `DELETE FROM bucket_policies WHERE bucket = $1`, name)
	if err != nil {
		return fmt.Errorf("sqlstore: delete bucket policy: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return catalog.ErrPolicyNotFound
	}
	return nil
}

// ============================================================================
// CORS
// ============================================================================

func (s *Store) GetBucketCORS(ctx context.Context, name string) (*types.CORSConfiguration, error) {
	var raw sql.NullString
	err := s.queryRow(ctx, `SELECT rules FROM bucket_cors WHERE bucket = $1`, name).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, catalog.ErrCORSNotFound
		}
		return nil, fmt.Errorf("sqlstore: get bucket CORS: %w", err)
	}
	var cors types.CORSConfiguration
	if err := unmarshalJSON(raw, &cors); err != nil {
		return nil, err
	}
	return &cors, nil
}

func (s *Store) SetBucketCORS(ctx context.Context, name string, cors *types.CORSConfiguration) error {
	raw, err := marshalJSON(cors)
	if err != nil {
		return err
	}
	query := `INSERT INTO bucket_cors (bucket, rules) VALUES ($1, $2) ` +
		s.dialect.UpsertSuffix("bucket", []string{"rules"})
	if _, err := s.exec(ctx, query, name, raw); err != nil {
		return fmt.Errorf("sqlstore: set bucket CORS: %w", err)
	}
	return nil
}

func (s *Store) DeleteBucketCORS(ctx context.Context, name string) error {
	res, err := s.exec(ctx, `DELETE FROM bucket_cors WHERE bucket = $1`, name)
	if err != nil {
		return fmt.Errorf("sqlstore: delete bucket CORS: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return catalog.ErrCORSNotFound
	}
	return nil
}

// Copyright 2025 Strata Authors
// SPDX-License-Identifier: Apache-2.0

package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/stratastore/strata/pkg/catalog"
	"github.com/stratastore/strata/pkg/types"

	"github.com/google/uuid"
)

const versionColumns = `id, bucket_id, bucket, object_key, size, etag, is_latest,
	content_type, user_metadata, tags, acl, owner_id, storage_location,
	is_multipart, is_complete, created_at, deleted_at`

func (s *Store) InsertVersion(ctx context.Context, v *types.ObjectVersion) error {
	meta, err := marshalJSON(v.UserMetadata)
	if err != nil {
		return err
	}
	tags, err := marshalJSON(v.Tags)
	if err != nil {
		return err
	}
	acl, err := marshalJSON(v.ACL)
	if err != nil {
		return err
	}
	_, err = s.exec(ctx, `
		INSERT INTO object_versions (`+versionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
		v.ID.String(), v.BucketID.String(), v.Bucket, v.Key, v.Size, v.ETag, v.IsLatest,
		v.ContentType, meta, tags, acl, v.OwnerID, v.StorageLocation,
		v.IsMultipart, v.IsComplete, v.CreatedAt, v.DeletedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return catalog.ErrVersionExists
		}
		return fmt.Errorf("sqlstore: insert version: %w", err)
	}
	return nil
}

func (s *Store) GetLatestVersion(ctx context.Context, bucket, key string) (*types.ObjectVersion, error) {
	row := s.queryRow(ctx, `
		SELECT `+versionColumns+` FROM object_versions
		WHERE bucket = $1 AND object_key = $2 AND deleted_at = 0
		  AND `+s.dialect.BoolColumn("is_latest", true),
		bucket, key)
	v, err := scanVersion(row)
	if err != nil {
		if errors.Is(err, catalog.ErrVersionNotFound) {
			return nil, catalog.ErrObjectNotFound
		}
		return nil, err
	}
	return v, nil
}

func (s *Store) GetVersion(ctx context.Context, bucket, key, versionID string) (*types.ObjectVersion, error) {
	row := s.queryRow(ctx, `
		SELECT `+versionColumns+` FROM object_versions
		WHERE bucket = $1 AND object_key = $2 AND id = $3 AND deleted_at = 0`,
		bucket, key, versionID)
	return scanVersion(row)
}

func (s *Store) ListVersionsForKey(ctx context.Context, bucket, key string) ([]*types.ObjectVersion, error) {
	rows, err := s.query(ctx, `
		SELECT `+versionColumns+` FROM object_versions
		WHERE bucket = $1 AND object_key = $2 AND deleted_at = 0
		ORDER BY created_at DESC, id`,
		bucket, key)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: list versions: %w", err)
	}
	defer rows.Close()

	var out []*types.ObjectVersion
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *Store) MarkVersionsNotLatest(ctx context.Context, bucket, key string) error {
	_, err := s.exec(ctx, `
		UPDATE object_versions SET is_latest = $1
		WHERE bucket = $2 AND object_key = $3`,
		false, bucket, key)
	if err != nil {
		return fmt.Errorf("sqlstore: mark versions not latest: %w", err)
	}
	return nil
}

func (s *Store) UpdateVersion(ctx context.Context, v *types.ObjectVersion) error {
	meta, err := marshalJSON(v.UserMetadata)
	if err != nil {
		return err
	}
	tags, err := marshalJSON(v.Tags)
	if err != nil {
		return err
	}
	acl, err := marshalJSON(v.ACL)
	if err != nil {
		return err
	}
	res, err := s.exec(ctx, `
		UPDATE object_versions SET size = $1, etag = $2, is_latest = $3,
			content_type = $4, user_metadata = $5, tags = $6, acl = $7,
			storage_location = $8, is_multipart = $9, is_complete = $10
		WHERE bucket = $11 AND object_key = $12 AND id = $13`,
		v.Size, v.ETag, v.IsLatest,
		v.ContentType, meta, tags, acl,
		v.StorageLocation, v.IsMultipart, v.IsComplete,
		v.Bucket, v.Key, v.ID.String())
	if err != nil {
		return fmt.Errorf("sqlstore: update version: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return catalog.ErrVersionNotFound
	}
	return nil
}

func (s *Store) DeleteVersion(ctx context.Context, bucket, key, versionID string) error {
	res, err := s.exec(ctx, `
		DELETE FROM object_versions
		WHERE bucket = $1 AND object_key = $2 AND id = $3`,
		bucket, key, versionID)
	if err != nil {
		return fmt.Errorf("sqlstore: delete version: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return catalog.ErrVersionNotFound
	}
	return nil
}

func (s *Store) SoftDeleteVersion(ctx context.Context, bucket, key, versionID string, deletedAt int64) error {
	res, err := s.exec(ctx, `
		UPDATE object_versions SET deleted_at = $1, is_latest = $2
		WHERE bucket = $3 AND object_key = $4 AND id = $5`,
		deletedAt, false, bucket, key, versionID)
	if err != nil {
		return fmt.Errorf("sqlstore: soft delete version: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return catalog.ErrVersionNotFound
	}
	return nil
}

func (s *Store) CountLiveVersions(ctx context.Context, bucket string) (int64, error) {
	var n int64
	err := s.queryRow(ctx, `
		SELECT COUNT(*) FROM object_versions
		WHERE bucket = $1 AND deleted_at = 0`, bucket).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("sqlstore: count live versions: %w", err)
	}
	return n, nil
}

// defaultMaxKeys caps a single listing page when the caller does not.
const defaultMaxKeys = 1000

func (s *Store) ListObjects(ctx context.Context, params *catalog.ListObjectsParams) (*catalog.ListObjectsResult, error) {
	maxKeys := params.MaxKeys
	if maxKeys <= 0 {
		maxKeys = defaultMaxKeys
	}

	query := `SELECT ` + versionColumns + ` FROM object_versions
		WHERE bucket = $1 AND deleted_at = 0`
	args := []any{params.Bucket}
	n := 1
	if !params.AllVersions {
		query += ` AND ` + s.dialect.BoolColumn("is_latest", true)
	}
	if params.Prefix != "" {
		n++
		query += fmt.Sprintf(` AND object_key LIKE $%d ESCAPE '\'`, n)
		args = append(args, escapeLike(params.Prefix)+"%")
	}
	if params.Marker != "" {
		n++
		query += fmt.Sprintf(` AND object_key > $%d`, n)
		args = append(args, params.Marker)
	}
	query += ` ORDER BY object_key, created_at DESC, id`

	rows, err := s.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: list objects: %w", err)
	}
	defer rows.Close()

	// Delimiter folding collapses an unbounded number of rows into one
	// common prefix, so the cursor is consumed until maxKeys entries have
	// been produced rather than limited in SQL.
	result := &catalog.ListObjectsResult{}
	seenPrefixes := make(map[string]bool)
	count := 0
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, err
		}
		if params.Delimiter != "" {
			rest := strings.TrimPrefix(v.Key, params.Prefix)
			if idx := strings.Index(rest, params.Delimiter); idx >= 0 {
				cp := params.Prefix + rest[:idx+len(params.Delimiter)]
				// A prefix at or below the marker was already emitted on
				// an earlier page.
				if params.Marker != "" && cp <= params.Marker {
					continue
				}
				if seenPrefixes[cp] {
					continue
				}
				if count >= maxKeys {
					result.IsTruncated = true
					break
				}
				seenPrefixes[cp] = true
				result.CommonPrefixes = append(result.CommonPrefixes, cp)
				result.NextMarker = cp
				count++
				continue
			}
		}
		if count >= maxKeys {
			result.IsTruncated = true
			break
		}
		result.Versions = append(result.Versions, v)
		result.NextMarker = v.Key
		count++
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlstore: list objects: %w", err)
	}
	if !result.IsTruncated {
		result.NextMarker = ""
	}
	return result, nil
}

// escapeLike escapes SQL LIKE metacharacters in a literal prefix.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func scanVersion(row rowScanner) (*types.ObjectVersion, error) {
	var v types.ObjectVersion
	var id, bucketID string
	var meta, tags, acl sql.NullString
	err := row.Scan(&id, &bucketID, &v.Bucket, &v.Key, &v.Size, &v.ETag, &v.IsLatest,
		&v.ContentType, &meta, &tags, &acl, &v.OwnerID, &v.StorageLocation,
		&v.IsMultipart, &v.IsComplete, &v.CreatedAt, &v.DeletedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, catalog.ErrVersionNotFound
		}
		return nil, fmt.Errorf("sqlstore: scan version: %w", err)
	}
	if v.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("sqlstore: parse version id: %w", err)
	}
	if v.BucketID, err = uuid.Parse(bucketID); err != nil {
		return nil, fmt.Errorf("sqlstore: parse bucket id: %w", err)
	}
	if err := unmarshalJSON(meta, &v.UserMetadata); err != nil {
		return nil, err
	}
	if err := unmarshalJSON(tags, &v.Tags); err != nil {
		return nil, err
	}
	if err := unmarshalJSON(acl, &v.ACL); err != nil {
		return nil, err
	}
	return &v, nil
}

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
)

func (s *Store) CreateMultipartUpload(ctx context.Context, upload *types.MultipartUpload) error {
	meta, err := marshalJSON(upload.Metadata)
	if err != nil {
		return err
	}
	_, err = s.exec(ctx, `
		INSERT INTO multipart_uploads (upload_id, bucket, object_key, owner_id, content_type, metadata, initiated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		upload.UploadID, upload.Bucket, upload.Key, upload.OwnerID,
		upload.ContentType, meta, upload.InitiatedAt)
	if err != nil {
		return fmt.Errorf("sqlstore: create multipart upload: %w", err)
	}
	return nil
}

func (s *Store) GetMultipartUpload(ctx context.Context, bucket, key, uploadID string) (*types.MultipartUpload, error) {
	var u types.MultipartUpload
	var meta sql.NullString
	err := s.queryRow(ctx, `
		SELECT upload_id, bucket, object_key, owner_id, content_type, metadata, initiated_at
		FROM multipart_uploads
		WHERE upload_id = $1 AND bucket = $2 AND object_key = $3`,
		uploadID, bucket, key).
		Scan(&u.UploadID, &u.Bucket, &u.Key, &u.OwnerID, &u.ContentType, &meta, &u.InitiatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, catalog.ErrUploadNotFound
		}
		return nil, fmt.Errorf("sqlstore: get multipart upload: %w", err)
	}
	if err := unmarshalJSON(meta, &u.Metadata); err != nil {
		return nil, err
	}
	return &u, nil
}

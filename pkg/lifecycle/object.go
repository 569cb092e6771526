// Copyright 2025 Strata Authors
// SPDX-License-Identifier: Apache-2.0

package lifecycle

import (
	"bytes"
	"context"
	"errors"
	"io"
	"time"

	"github.com/stratastore/strata/pkg/authz"
	"github.com/stratastore/strata/pkg/blobstore"
	"github.com/stratastore/strata/pkg/catalog"
	"github.com/stratastore/strata/pkg/logger"
	"github.com/stratastore/strata/pkg/types"

	"github.com/google/uuid"
)

// resolveVersion fetches the addressed version row, falling back to the
// latest when versionID is empty. Absence maps to NotFound.
func (s *serviceImpl) resolveVersion(ctx context.Context, bucket, key, versionID string) (*types.ObjectVersion, error) {
	var v *types.ObjectVersion
	var err error
	if versionID != "" {
		v, err = s.catalog.GetVersion(ctx, bucket, key, versionID)
	} else {
		v, err = s.catalog.GetLatestVersion(ctx, bucket, key)
	}
	if err != nil {
		if errors.Is(err, catalog.ErrObjectNotFound) || errors.Is(err, catalog.ErrVersionNotFound) {
			return nil, notFound("object not found")
		}
		return nil, internal("resolve object version", err)
	}
	return v, nil
}

func (s *serviceImpl) PutObject(ctx context.Context, actor string, req *PutObjectRequest) (*types.ObjectVersion, error) {
	if err := types.ValidateObjectKey(req.Key); err != nil {
		return nil, validation(err.Error())
	}
	info, err := s.resolveBucket(ctx, req.Bucket)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, actor, authz.ActionWriteObject, authz.Resource{Bucket: req.Bucket, Key: req.Key}); err != nil {
		return nil, err
	}

	unlock := s.locks.lock(req.Bucket, req.Key)
	defer unlock()

	// Physical write first. A crash after this point leaves an orphaned
	// blob, never a catalog row pointing at missing bytes.
	versionID := uuid.New()
	res, err := s.blobs.Put(ctx, req.Bucket, req.Key, versionID.String(), req.Body, blobstore.Meta{
		ContentType:  req.ContentType,
		UserMetadata: req.UserMetadata,
		VersionID:    versionID.String(),
	})
	if err != nil {
		if errors.Is(err, blobstore.ErrTooLarge) {
			return nil, validation("payload exceeds maximum object size")
		}
		if errors.Is(err, blobstore.ErrInvalidKey) {
			return nil, validation("invalid object key")
		}
		return nil, internal("store object bytes", err)
	}

	version := &types.ObjectVersion{
		ID:              versionID,
		BucketID:        info.ID,
		Bucket:          req.Bucket,
		Key:             req.Key,
		Size:            uint64(res.Size),
		ETag:            res.ETag,
		IsLatest:        true,
		CreatedAt:       time.Now().UnixNano(),
		ContentType:     req.ContentType,
		UserMetadata:    req.UserMetadata,
		OwnerID:         actor,
		StorageLocation: res.Location,
		IsComplete:      true,
	}

	if info.Versioning {
		if err := s.catalog.MarkVersionsNotLatest(ctx, req.Bucket, req.Key); err != nil {
			return nil, internal("demote previous versions", err)
		}
	} else {
		prev, err := s.catalog.GetLatestVersion(ctx, req.Bucket, req.Key)
		switch {
		case err == nil:
			// Old bytes go before the old row so a crash mid-delete never
			// leaves two rows for one key.
			if _, derr := s.blobs.Delete(ctx, req.Bucket, req.Key, prev.VersionID()); derr != nil {
				logger.Warn().Err(derr).Str("bucket", req.Bucket).Str("key", req.Key).
					Str("version", prev.VersionID()).Msg("failed to delete superseded blob")
			}
			if derr := s.catalog.DeleteVersion(ctx, req.Bucket, req.Key, prev.VersionID()); derr != nil {
				return nil, internal("remove superseded version", derr)
			}
		case errors.Is(err, catalog.ErrObjectNotFound):
		default:
			return nil, internal("resolve previous version", err)
		}
	}

	if err := s.catalog.InsertVersion(ctx, version); err != nil {
		return nil, internal("record object version", err)
	}

	logger.Debug().Str("bucket", req.Bucket).Str("key", req.Key).
		Str("version", version.VersionID()).Int64("size", res.Size).Msg("object stored")
	return version, nil
}

func (s *serviceImpl) GetObject(ctx context.Context, actor, bucket, key, versionID string) (io.ReadCloser, *types.ObjectVersion, error) {
	v, err := s.headObject(ctx, actor, bucket, key, versionID, authz.ActionReadObject)
	if err != nil {
		return nil, nil, err
	}
	rc, _, err := s.blobs.Get(ctx, bucket, key, v.VersionID())
	if err != nil {
		if errors.Is(err, blobstore.ErrBlobNotFound) {
			return nil, nil, notFound("object not found")
		}
		return nil, nil, internal("read object bytes", err)
	}
	return rc, v, nil
}

func (s *serviceImpl) HeadObject(ctx context.Context, actor, bucket, key, versionID string) (*types.ObjectVersion, error) {
	return s.headObject(ctx, actor, bucket, key, versionID, authz.ActionReadObject)
}

func (s *serviceImpl) headObject(ctx context.Context, actor, bucket, key, versionID string, action authz.Action) (*types.ObjectVersion, error) {
	if _, err := s.resolveBucket(ctx, bucket); err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, actor, action, authz.Resource{Bucket: bucket, Key: key}); err != nil {
		return nil, err
	}
	return s.resolveVersion(ctx, bucket, key, versionID)
}

func (s *serviceImpl) DeleteObject(ctx context.Context, actor, bucket, key, versionID string) error {
	info, err := s.resolveBucket(ctx, bucket)
	if err != nil {
		return err
	}
	if err := s.authorize(ctx, actor, authz.ActionDeleteObject, authz.Resource{Bucket: bucket, Key: key}); err != nil {
		return err
	}

	unlock := s.locks.lock(bucket, key)
	defer unlock()

	v, err := s.resolveVersion(ctx, bucket, key, versionID)
	if err != nil {
		return err
	}

	// Physical bytes first; absence is not an error.
	if _, err := s.blobs.Delete(ctx, bucket, key, v.VersionID()); err != nil {
		return internal("delete object bytes", err)
	}
	if err := s.catalog.DeleteVersion(ctx, bucket, key, v.VersionID()); err != nil {
		if errors.Is(err, catalog.ErrVersionNotFound) {
			return notFound("object not found")
		}
		return internal("delete object version", err)
	}

	// Keep exactly one latest among the survivors of a version chain.
	if info.Versioning && v.IsLatest {
		remaining, err := s.catalog.ListVersionsForKey(ctx, bucket, key)
		if err != nil {
			return internal("list remaining versions", err)
		}
		if len(remaining) > 0 {
			next := remaining[0]
			next.IsLatest = true
			if err := s.catalog.UpdateVersion(ctx, next); err != nil {
				return internal("promote previous version", err)
			}
		}
	}

	logger.Debug().Str("bucket", bucket).Str("key", key).
		Str("version", v.VersionID()).Msg("object deleted")
	return nil
}

func (s *serviceImpl) CopyObject(ctx context.Context, actor string, req *CopyObjectRequest) (*types.ObjectVersion, error) {
	if req.SrcBucket == req.DstBucket && req.SrcKey == req.DstKey {
		return nil, validation("copy source and destination are the same object")
	}

	src, err := s.headObject(ctx, actor, req.SrcBucket, req.SrcKey, "", authz.ActionReadObject)
	if err != nil {
		return nil, err
	}
	rc, _, err := s.blobs.Get(ctx, req.SrcBucket, req.SrcKey, src.VersionID())
	if err != nil {
		if errors.Is(err, blobstore.ErrBlobNotFound) {
			return nil, notFound("object not found")
		}
		return nil, internal("read copy source", err)
	}
	defer rc.Close()

	body, err := io.ReadAll(rc)
	if err != nil {
		return nil, internal("read copy source", err)
	}

	// Copy is read-then-put: the destination gets a fresh version id and
	// the full authorization and versioning treatment.
	return s.PutObject(ctx, actor, &PutObjectRequest{
		Bucket:       req.DstBucket,
		Key:          req.DstKey,
		Body:         bytes.NewReader(body),
		ContentType:  src.ContentType,
		UserMetadata: src.UserMetadata,
	})
}

func (s *serviceImpl) ListObjects(ctx context.Context, actor string, req *ListObjectsRequest) (*ListObjectsResult, error) {
	if _, err := s.resolveBucket(ctx, req.Bucket); err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, actor, authz.ActionReadBucket, authz.Resource{Bucket: req.Bucket}); err != nil {
		return nil, err
	}
	out, err := s.catalog.ListObjects(ctx, &catalog.ListObjectsParams{
		Bucket:      req.Bucket,
		Prefix:      req.Prefix,
		Delimiter:   req.Delimiter,
		Marker:      req.Marker,
		MaxKeys:     req.MaxKeys,
		AllVersions: req.AllVersions,
	})
	if err != nil {
		return nil, internal("list objects", err)
	}
	return &ListObjectsResult{
		Versions:       out.Versions,
		CommonPrefixes: out.CommonPrefixes,
		IsTruncated:    out.IsTruncated,
		NextMarker:     out.NextMarker,
	}, nil
}

func (s *serviceImpl) GetObjectACL(ctx context.Context, actor, bucket, key string) (*types.ACL, error) {
	v, err := s.headObject(ctx, actor, bucket, key, "", authz.ActionReadACL)
	if err != nil {
		return nil, err
	}
	if v.ACL == nil {
		return types.DefaultACL(v.OwnerID), nil
	}
	return v.ACL, nil
}

func (s *serviceImpl) PutObjectACL(ctx context.Context, actor, bucket, key string, acl *types.ACL) error {
	if acl == nil || len(acl.Grants) == 0 {
		return validation("ACL must contain at least one grant")
	}
	for _, g := range acl.Grants {
		if g.Grantee.ID == "" {
			return validation("ACL grantee id must not be empty")
		}
		if !types.ValidPermission(g.Permission) {
			return validation("unknown ACL permission " + g.Permission)
		}
	}

	if _, err := s.resolveBucket(ctx, bucket); err != nil {
		return err
	}
	if err := s.authorize(ctx, actor, authz.ActionWriteACL, authz.Resource{Bucket: bucket, Key: key}); err != nil {
		return err
	}

	// The lock is taken before the version is resolved so a concurrent put
	// cannot demote the row between resolve and write-back.
	unlock := s.locks.lock(bucket, key)
	defer unlock()

	v, err := s.resolveVersion(ctx, bucket, key, "")
	if err != nil {
		return err
	}

	// Grants replace wholesale; the owner never changes via ACL update.
	if acl.Owner.ID == "" {
		acl.Owner = types.Grantee{ID: v.OwnerID, Type: "CanonicalUser"}
	}
	v.ACL = acl
	if err := s.catalog.UpdateVersion(ctx, v); err != nil {
		return internal("update object ACL", err)
	}
	return nil
}

func (s *serviceImpl) GetObjectTagging(ctx context.Context, actor, bucket, key string) ([]types.Tag, error) {
	v, err := s.headObject(ctx, actor, bucket, key, "", authz.ActionReadObject)
	if err != nil {
		return nil, err
	}
	return types.TagsToList(v.Tags), nil
}

func (s *serviceImpl) PutObjectTagging(ctx context.Context, actor, bucket, key string, tags []types.Tag) error {
	tagMap, err := types.TagsFromList(tags)
	if err != nil {
		return validation(err.Error())
	}

	if _, err := s.resolveBucket(ctx, bucket); err != nil {
		return err
	}
	if err := s.authorize(ctx, actor, authz.ActionWriteObject, authz.Resource{Bucket: bucket, Key: key}); err != nil {
		return err
	}

	unlock := s.locks.lock(bucket, key)
	defer unlock()

	v, err := s.resolveVersion(ctx, bucket, key, "")
	if err != nil {
		return err
	}

	v.Tags = tagMap
	if err := s.catalog.UpdateVersion(ctx, v); err != nil {
		return internal("update object tags", err)
	}
	return nil
}

func (s *serviceImpl) InitiateMultipartUpload(ctx context.Context, actor string, req *InitiateMultipartRequest) (*types.MultipartUpload, error) {
	if err := types.ValidateObjectKey(req.Key); err != nil {
		return nil, validation(err.Error())
	}
	if _, err := s.resolveBucket(ctx, req.Bucket); err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, actor, authz.ActionWriteObject, authz.Resource{Bucket: req.Bucket, Key: req.Key}); err != nil {
		return nil, err
	}

	upload := &types.MultipartUpload{
		UploadID:    uuid.NewString(),
		Bucket:      req.Bucket,
		Key:         req.Key,
		OwnerID:     actor,
		ContentType: req.ContentType,
		Metadata:    req.Metadata,
		InitiatedAt: time.Now().UnixNano(),
	}
	if err := s.catalog.CreateMultipartUpload(ctx, upload); err != nil {
		return nil, internal("record multipart upload", err)
	}

	logger.Debug().Str("bucket", req.Bucket).Str("key", req.Key).
		Str("upload_id", upload.UploadID).Msg("multipart upload initiated")
	return upload, nil
}

// Copyright 2025 Strata Authors
// SPDX-License-Identifier: Apache-2.0

package lifecycle

import (
	"context"
	"errors"
	"time"

	"github.com/stratastore/strata/pkg/authz"
	"github.com/stratastore/strata/pkg/blobstore"
	"github.com/stratastore/strata/pkg/catalog"
	"github.com/stratastore/strata/pkg/logger"
	"github.com/stratastore/strata/pkg/types"

	"github.com/google/uuid"
)

type serviceImpl struct {
	blobs   blobstore.Store
	catalog catalog.Store
	oracle  authz.Oracle
	locks   *keyLock
}

// authorize consults the oracle and maps a denial to AccessDenied. An
// oracle failure surfaces as a denial too, with its unavailable reason.
// The decision is published to any capture target on ctx so the audit
// trail records the policy that decided the request.
func (s *serviceImpl) authorize(ctx context.Context, actor string, action authz.Action, resource authz.Resource) error {
	d := s.oracle.Authorize(ctx, actor, action, resource)
	authz.RecordDecision(ctx, d)
	if !d.Allowed {
		reason := d.Reason
		if reason == "" {
			reason = "access denied"
		}
		return accessDenied(reason)
	}
	return nil
}

// resolveBucket fetches the bucket record, mapping absence to NotFound.
func (s *serviceImpl) resolveBucket(ctx context.Context, bucket string) (*types.BucketInfo, error) {
	info, err := s.catalog.GetBucket(ctx, bucket)
	if err != nil {
		if errors.Is(err, catalog.ErrBucketNotFound) {
			return nil, notFound("bucket not found")
		}
		return nil, internal("get bucket", err)
	}
	return info, nil
}

func (s *serviceImpl) CreateBucket(ctx context.Context, actor string, req *CreateBucketRequest) (*types.BucketInfo, error) {
	if !types.IsValidBucketName(req.Name) {
		return nil, validation("invalid bucket name")
	}
	if err := s.authorize(ctx, actor, authz.ActionWriteBucket, authz.Resource{Bucket: req.Name}); err != nil {
		return nil, err
	}

	info := &types.BucketInfo{
		ID:        uuid.New(),
		Name:      req.Name,
		OwnerID:   actor,
		Region:    req.Region,
		Tags:      req.Tags,
		CreatedAt: time.Now().UnixNano(),
	}
	if err := s.catalog.CreateBucket(ctx, info); err != nil {
		if errors.Is(err, catalog.ErrBucketExists) {
			return nil, conflict("bucket name already taken")
		}
		return nil, internal("create bucket", err)
	}
	if err := s.blobs.CreateBucket(ctx, req.Name); err != nil && !errors.Is(err, blobstore.ErrBucketExists) {
		// Roll back the catalog row so a retry can succeed.
		if derr := s.catalog.DeleteBucket(ctx, req.Name); derr != nil {
			logger.Error().Err(derr).Str("bucket", req.Name).Msg("failed to roll back bucket record")
		}
		return nil, internal("create bucket storage", err)
	}

	logger.Info().Str("bucket", req.Name).Str("owner", actor).Msg("bucket created")
	return info, nil
}

func (s *serviceImpl) GetBucket(ctx context.Context, actor, bucket string) (*types.BucketInfo, error) {
	info, err := s.resolveBucket(ctx, bucket)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, actor, authz.ActionReadBucket, authz.Resource{Bucket: bucket}); err != nil {
		return nil, err
	}
	return info, nil
}

func (s *serviceImpl) ListBuckets(ctx context.Context, actor string) ([]*types.BucketInfo, error) {
	if err := s.authorize(ctx, actor, authz.ActionReadBucket, authz.Resource{}); err != nil {
		return nil, err
	}
	buckets, err := s.catalog.ListBuckets(ctx, actor)
	if err != nil {
		return nil, internal("list buckets", err)
	}
	return buckets, nil
}

func (s *serviceImpl) DeleteBucket(ctx context.Context, actor, bucket string) error {
	if _, err := s.resolveBucket(ctx, bucket); err != nil {
		return err
	}
	if err := s.authorize(ctx, actor, authz.ActionDeleteBucket, authz.Resource{Bucket: bucket}); err != nil {
		return err
	}

	n, err := s.catalog.CountLiveVersions(ctx, bucket)
	if err != nil {
		return internal("count objects", err)
	}
	if n > 0 {
		return conflict("bucket is not empty")
	}

	if err := s.catalog.DeleteBucket(ctx, bucket); err != nil {
		if errors.Is(err, catalog.ErrBucketNotFound) {
			return notFound("bucket not found")
		}
		return internal("delete bucket", err)
	}
	if err := s.blobs.RemoveBucket(ctx, bucket); err != nil && !errors.Is(err, blobstore.ErrBucketNotFound) {
		logger.Error().Err(err).Str("bucket", bucket).Msg("failed to remove bucket storage")
	}

	logger.Info().Str("bucket", bucket).Msg("bucket deleted")
	return nil
}

func (s *serviceImpl) GetBucketVersioning(ctx context.Context, actor, bucket string) (bool, error) {
	info, err := s.resolveBucket(ctx, bucket)
	if err != nil {
		return false, err
	}
	if err := s.authorize(ctx, actor, authz.ActionReadBucket, authz.Resource{Bucket: bucket}); err != nil {
		return false, err
	}
	return info.Versioning, nil
}

func (s *serviceImpl) SetBucketVersioning(ctx context.Context, actor, bucket string, enabled bool) error {
	info, err := s.resolveBucket(ctx, bucket)
	if err != nil {
		return err
	}
	if err := s.authorize(ctx, actor, authz.ActionWriteBucket, authz.Resource{Bucket: bucket}); err != nil {
		return err
	}
	info.Versioning = enabled
	if err := s.catalog.UpdateBucket(ctx, info); err != nil {
		return internal("update bucket", err)
	}
	logger.Info().Str("bucket", bucket).Bool("enabled", enabled).Msg("bucket versioning updated")
	return nil
}

func (s *serviceImpl) GetBucketPolicy(ctx context.Context, actor, bucket string) (*types.BucketPolicy, error) {
	if _, err := s.resolveBucket(ctx, bucket); err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, actor, authz.ActionReadBucket, authz.Resource{Bucket: bucket}); err != nil {
		return nil, err
	}
	policy, err := s.catalog.GetBucketPolicy(ctx, bucket)
	if err != nil {
		if errors.Is(err, catalog.ErrPolicyNotFound) {
			return nil, notFound("bucket policy not found")
		}
		return nil, internal("get bucket policy", err)
	}
	return policy, nil
}

func (s *serviceImpl) SetBucketPolicy(ctx context.Context, actor, bucket string, policy *types.BucketPolicy) error {
	if _, err := s.resolveBucket(ctx, bucket); err != nil {
		return err
	}
	if err := s.authorize(ctx, actor, authz.ActionWriteBucket, authz.Resource{Bucket: bucket}); err != nil {
		return err
	}
	if err := policy.Validate(); err != nil {
		return validation(err.Error())
	}
	if err := s.catalog.SetBucketPolicy(ctx, bucket, policy); err != nil {
		return internal("set bucket policy", err)
	}
	return nil
}

func (s *serviceImpl) DeleteBucketPolicy(ctx context.Context, actor, bucket string) error {
	if _, err := s.resolveBucket(ctx, bucket); err != nil {
		return err
	}
	if err := s.authorize(ctx, actor, authz.ActionWriteBucket, authz.Resource{Bucket: bucket}); err != nil {
		return err
	}
	if err := s.catalog.DeleteBucketPolicy(ctx, bucket); err != nil {
		if errors.Is(err, catalog.ErrPolicyNotFound) {
			return notFound("bucket policy not found")
		}
		return internal("delete bucket policy", err)
	}
	return nil
}

func (s *serviceImpl) GetBucketCORS(ctx context.Context, actor, bucket string) (*types.CORSConfiguration, error) {
	if _, err := s.resolveBucket(ctx, bucket); err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, actor, authz.ActionReadBucket, authz.Resource{Bucket: bucket}); err != nil {
		return nil, err
	}
	cors, err := s.catalog.GetBucketCORS(ctx, bucket)
	if err != nil {
		if errors.Is(err, catalog.ErrCORSNotFound) {
			return nil, notFound("CORS configuration not found")
		}
		return nil, internal("get bucket CORS", err)
	}
	return cors, nil
}

func (s *serviceImpl) SetBucketCORS(ctx context.Context, actor, bucket string, cors *types.CORSConfiguration) error {
	if _, err := s.resolveBucket(ctx, bucket); err != nil {
		return err
	}
	if err := s.authorize(ctx, actor, authz.ActionWriteBucket, authz.Resource{Bucket: bucket}); err != nil {
		return err
	}
	if err := cors.Validate(); err != nil {
		return validation(err.Error())
	}
	if err := s.catalog.SetBucketCORS(ctx, bucket, cors); err != nil {
		return internal("set bucket CORS", err)
	}
	return nil
}

func (s *serviceImpl) DeleteBucketCORS(ctx context.Context, actor, bucket string) error {
	if _, err := s.resolveBucket(ctx, bucket); err != nil {
		return err
	}
	if err := s.authorize(ctx, actor, authz.ActionWriteBucket, authz.Resource{Bucket: bucket}); err != nil {
		return err
	}
	if err := s.catalog.DeleteBucketCORS(ctx, bucket); err != nil {
		if errors.Is(err, catalog.ErrCORSNotFound) {
			return notFound("CORS configuration not found")
		}
		return internal("delete bucket CORS", err)
	}
	return nil
}

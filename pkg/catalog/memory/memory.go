// Copyright 2025 Strata Authors
// SPDX-License-Identifier: Apache-2.0

// Package memory provides an in-memory implementation of catalog.Store for
// testing. Data lives in maps guarded by a single RWMutex.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/stratastore/strata/pkg/catalog"
	"github.com/stratastore/strata/pkg/types"

	"github.com/google/uuid"
)

// Store is an in-memory catalog implementation for testing.
type Store struct {
	mu sync.RWMutex

	buckets  map[string]*types.BucketInfo
	versions map[string][]*types.ObjectVersion // key: bucket/key, newest first
	policies map[string]*types.BucketPolicy
	cors     map[string]*types.CORSConfiguration
	uploads  map[string]*types.MultipartUpload // key: bucket/key/uploadID
	logs     []types.AccessLogEntry
}

var _ catalog.Store = (*Store)(nil)

// New creates a new in-memory catalog.
func New() *Store {
	return &Store{
		buckets:  make(map[string]*types.BucketInfo),
		versions: make(map[string][]*types.ObjectVersion),
		policies: make(map[string]*types.BucketPolicy),
		cors:     make(map[string]*types.CORSConfiguration),
		uploads:  make(map[string]*types.MultipartUpload),
	}
}

func objectKey(bucket, key string) string {
	return bucket + "/" + key
}

// ============================================================================
// Bucket operations
// ============================================================================

func (s *Store) CreateBucket(ctx context.Context, bucket *types.BucketInfo) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.buckets[bucket.Name]; exists {
		return catalog.ErrBucketExists
	}
	if bucket.ID == uuid.Nil {
		bucket.ID = uuid.New()
	}
	if bucket.CreatedAt == 0 {
		bucket.CreatedAt = time.Now().UnixNano()
	}
	cp := *bucket
	s.buckets[bucket.Name] = &cp
	return nil
}

func (s *Store) GetBucket(ctx context.Context, name string) (*types.BucketInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, exists := s.buckets[name]
	if !exists {
		return nil, catalog.ErrBucketNotFound
	}
	cp := *b
	return &cp, nil
}

func (s *Store) UpdateBucket(ctx context.Context, bucket *types.BucketInfo) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.buckets[bucket.Name]; !exists {
		return catalog.ErrBucketNotFound
	}
	cp := *bucket
	s.buckets[bucket.Name] = &cp
	return nil
}

func (s *Store) DeleteBucket(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.buckets[name]; !exists {
		return catalog.ErrBucketNotFound
	}
	delete(s.buckets, name)
	delete(s.policies, name)
	delete(s.cors, name)
	return nil
}

func (s *Store) ListBuckets(ctx context.Context, ownerID string) ([]*types.BucketInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*types.BucketInfo
	for _, b := range s.buckets {
		if ownerID != "" && b.OwnerID != ownerID {
			continue
		}
		cp := *b
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) GetBucketPolicy(ctx context.Context, name string) (*types.BucketPolicy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, exists := s.policies[name]
	if !exists {
		return nil, catalog.ErrPolicyNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *Store) SetBucketPolicy(ctx context.Context, name string, policy *types.BucketPolicy) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.buckets[name]; !exists {
		return catalog.ErrBucketNotFound
	}
	cp := *policy
	s.policies[name] = &cp
	return nil
}

func (s *Store) DeleteBucketPolicy(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.policies[name]; !exists {
		return catalog.ErrPolicyNotFound
	}
	delete(s.policies, name)
	return nil
}

func (s *Store) GetBucketCORS(ctx context.Context, name string) (*types.CORSConfiguration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, exists := s.cors[name]
	if !exists {
		return nil, catalog.ErrCORSNotFound
	}
	cp := *c
	return &cp, nil
}

func (s *Store) SetBucketCORS(ctx context.Context, name string, cors *types.CORSConfiguration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.buckets[name]; !exists {
		return catalog.ErrBucketNotFound
	}
	cp := *cors
	s.cors[name] = &cp
	return nil
}

func (s *Store) DeleteBucketCORS(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.cors[name]; !exists {
		return catalog.ErrCORSNotFound
	}
	delete(s.cors, name)
	return nil
}

// ============================================================================
// Object version operations
// ============================================================================

func (s *Store) InsertVersion(ctx context.Context, v *types.ObjectVersion) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	if v.CreatedAt == 0 {
		v.CreatedAt = time.Now().UnixNano()
	}

	k := objectKey(v.Bucket, v.Key)
	for _, existing := range s.versions[k] {
		if existing.ID == v.ID {
			return catalog.ErrVersionExists
		}
	}
	cp := *v
	s.versions[k] = append([]*types.ObjectVersion{&cp}, s.versions[k]...)
	return nil
}

func (s *Store) GetLatestVersion(ctx context.Context, bucket, key string) (*types.ObjectVersion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, v := range s.versions[objectKey(bucket, key)] {
		if v.IsLatest && !v.IsDeleted() {
			cp := *v
			return &cp, nil
		}
	}
	return nil, catalog.ErrObjectNotFound
}

func (s *Store) GetVersion(ctx context.Context, bucket, key, versionID string) (*types.ObjectVersion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, v := range s.versions[objectKey(bucket, key)] {
		if v.ID.String() == versionID && !v.IsDeleted() {
			cp := *v
			return &cp, nil
		}
	}
	return nil, catalog.ErrVersionNotFound
}

func (s *Store) ListVersionsForKey(ctx context.Context, bucket, key string) ([]*types.ObjectVersion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*types.ObjectVersion
	for _, v := range s.versions[objectKey(bucket, key)] {
		if v.IsDeleted() {
			continue
		}
		cp := *v
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt > out[j].CreatedAt })
	return out, nil
}

func (s *Store) MarkVersionsNotLatest(ctx context.Context, bucket, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, v := range s.versions[objectKey(bucket, key)] {
		v.IsLatest = false
	}
	return nil
}

func (s *Store) UpdateVersion(ctx context.Context, v *types.ObjectVersion) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := objectKey(v.Bucket, v.Key)
	for i, existing := range s.versions[k] {
		if existing.ID == v.ID {
			cp := *v
			s.versions[k][i] = &cp
			return nil
		}
	}
	return catalog.ErrVersionNotFound
}

func (s *Store) DeleteVersion(ctx context.Context, bucket, key, versionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := objectKey(bucket, key)
	rows := s.versions[k]
	for i, v := range rows {
		if v.ID.String() == versionID {
			s.versions[k] = append(rows[:i], rows[i+1:]...)
			if len(s.versions[k]) == 0 {
				delete(s.versions, k)
			}
			return nil
		}
	}
	return catalog.ErrVersionNotFound
}

func (s *Store) SoftDeleteVersion(ctx context.Context, bucket, key, versionID string, deletedAt int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, v := range s.versions[objectKey(bucket, key)] {
		if v.ID.String() == versionID {
			v.DeletedAt = deletedAt
			v.IsLatest = false
			return nil
		}
	}
	return catalog.ErrVersionNotFound
}

func (s *Store) CountLiveVersions(ctx context.Context, bucket string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int64
	prefix := bucket + "/"
	for k, rows := range s.versions {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		for _, v := range rows {
			if !v.IsDeleted() {
				count++
			}
		}
	}
	return count, nil
}

func (s *Store) ListObjects(ctx context.Context, params *catalog.ListObjectsParams) (*catalog.ListObjectsResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	prefix := params.Bucket + "/"
	var rows []*types.ObjectVersion
	for k, versions := range s.versions {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		for _, v := range versions {
			if v.IsDeleted() {
				continue
			}
			if !params.AllVersions && !v.IsLatest {
				continue
			}
			cp := *v
			rows = append(rows, &cp)
		}
	}
	// Lexicographic by key, newest first within a key.
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Key != rows[j].Key {
			return rows[i].Key < rows[j].Key
		}
		return rows[i].CreatedAt > rows[j].CreatedAt
	})

	maxKeys := params.MaxKeys
	if maxKeys <= 0 {
		maxKeys = 1000
	}

	result := &catalog.ListObjectsResult{}
	seenPrefixes := make(map[string]bool)
	returned := 0
	for _, v := range rows {
		if params.Prefix != "" && !strings.HasPrefix(v.Key, params.Prefix) {
			continue
		}
		if params.Marker != "" && v.Key <= params.Marker {
			continue
		}

		if params.Delimiter != "" {
			rest := v.Key[len(params.Prefix):]
			if idx := strings.Index(rest, params.Delimiter); idx >= 0 {
				p := params.Prefix + rest[:idx+len(params.Delimiter)]
				// A prefix at or below the marker was already emitted on
				// an earlier page.
				if params.Marker != "" && p <= params.Marker {
					continue
				}
				if !seenPrefixes[p] {
					if returned >= maxKeys {
						result.IsTruncated = true
						break
					}
					seenPrefixes[p] = true
					result.CommonPrefixes = append(result.CommonPrefixes, p)
					result.NextMarker = p
					returned++
				}
				continue
			}
		}

		if returned >= maxKeys {
			result.IsTruncated = true
			break
		}
		result.Versions = append(result.Versions, v)
		result.NextMarker = v.Key
		returned++
	}
	if !result.IsTruncated {
		result.NextMarker = ""
	}
	return result, nil
}

// ============================================================================
// Multipart operations
// ============================================================================

func uploadKey(bucket, key, uploadID string) string {
	return bucket + "/" + key + "/" + uploadID
}

func (s *Store) CreateMultipartUpload(ctx context.Context, upload *types.MultipartUpload) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if upload.InitiatedAt == 0 {
		upload.InitiatedAt = time.Now().UnixNano()
	}
	cp := *upload
	s.uploads[uploadKey(upload.Bucket, upload.Key, upload.UploadID)] = &cp
	return nil
}

func (s *Store) GetMultipartUpload(ctx context.Context, bucket, key, uploadID string) (*types.MultipartUpload, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, exists := s.uploads[uploadKey(bucket, key, uploadID)]
	if !exists {
		return nil, catalog.ErrUploadNotFound
	}
	cp := *u
	return &cp, nil
}

// ============================================================================
// Access log operations
// ============================================================================

func (s *Store) InsertAccessLogEntries(ctx context.Context, entries []types.AccessLogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.logs = append(s.logs, entries...)
	return nil
}

// AccessLogEntries returns a snapshot of recorded entries, for tests.
func (s *Store) AccessLogEntries() []types.AccessLogEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]types.AccessLogEntry, len(s.logs))
	copy(out, s.logs)
	return out
}

func (s *Store) Migrate(ctx context.Context) error { return nil }

func (s *Store) Close() error { return nil }

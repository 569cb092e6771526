// Copyright 2025 Strata Authors
// SPDX-License-Identifier: Apache-2.0

package blobstore

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/stratastore/strata/pkg/logger"
)

const (
	defaultMaxObjectSize = int64(5 * 1024 * 1024 * 1024)
	sidecarSuffix        = ".meta.json"
	defaultContentType   = "application/octet-stream"
)

// Config holds configuration for the filesystem store.
type Config struct {
	// Root is the directory all buckets live under.
	Root string

	// MaxObjectSize bounds a single payload in bytes. Zero means the default.
	MaxObjectSize int64
}

// FSStore is a filesystem-backed Store. Payloads for the current generation
// of a key live under objects/, historical versions under versions/.
type FSStore struct {
	root          string
	maxObjectSize int64
}

var _ Store = (*FSStore)(nil)

// NewFSStore creates the store root and returns a ready FSStore.
func NewFSStore(cfg Config) (*FSStore, error) {
	if strings.TrimSpace(cfg.Root) == "" {
		return nil, fmt.Errorf("blobstore: root directory is required")
	}
	maxSize := cfg.MaxObjectSize
	if maxSize <= 0 {
		maxSize = defaultMaxObjectSize
	}

	root := filepath.Clean(cfg.Root)
	if err := os.MkdirAll(filepath.Join(root, "buckets"), 0o755); err != nil {
		return nil, fmt.Errorf("blobstore: create root: %w", err)
	}
	return &FSStore{root: root, maxObjectSize: maxSize}, nil
}

func (s *FSStore) CreateBucket(ctx context.Context, bucket string) error {
	if err := ensureContext(ctx); err != nil {
		return err
	}
	dir, err := s.bucketDir(bucket)
	if err != nil {
		return err
	}
	if _, err := os.Stat(dir); err == nil {
		return ErrBucketExists
	}
	if err := os.MkdirAll(filepath.Join(dir, "objects"), 0o755); err != nil {
		return fmt.Errorf("blobstore: create bucket dir: %w", err)
	}
	if err := os.MkdirAll(filepath.Join(dir, "versions"), 0o755); err != nil {
		return fmt.Errorf("blobstore: create versions dir: %w", err)
	}
	return nil
}

func (s *FSStore) RemoveBucket(ctx context.Context, bucket string) error {
	if err := ensureContext(ctx); err != nil {
		return err
	}
	dir, err := s.bucketDir(bucket)
	if err != nil {
		return err
	}
	if _, err := os.Stat(dir); err != nil {
		if os.IsNotExist(err) {
			return ErrBucketNotFound
		}
		return fmt.Errorf("blobstore: stat bucket: %w", err)
	}

	empty, err := dirHasNoFiles(filepath.Join(dir, "objects"))
	if err != nil {
		return err
	}
	if !empty {
		return ErrBucketNotEmpty
	}
	empty, err = dirHasNoFiles(filepath.Join(dir, "versions"))
	if err != nil {
		return err
	}
	if !empty {
		return ErrBucketNotEmpty
	}

	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("blobstore: remove bucket dir: %w", err)
	}
	return nil
}

func (s *FSStore) Put(ctx context.Context, bucket, key, version string, body io.Reader, meta Meta) (*PutResult, error) {
	if err := ensureContext(ctx); err != nil {
		return nil, err
	}
	if err := s.requireBucket(bucket); err != nil {
		return nil, err
	}

	currentPath, err := s.objectPath(bucket, key)
	if err != nil {
		return nil, err
	}
	versionPath, err := s.versionPath(bucket, key, version)
	if err != nil {
		return nil, err
	}

	for _, p := range []string{currentPath, versionPath} {
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			return nil, fmt.Errorf("blobstore: ensure payload dir: %w", err)
		}
	}

	// Stream into a temp file, hashing and counting in the same pass.
	// The rename below makes a partially-written payload invisible: a client
	// disconnect mid-copy leaves only the temp file, which is removed.
	tmp, err := os.CreateTemp(filepath.Dir(versionPath), "put-*.tmp")
	if err != nil {
		return nil, fmt.Errorf("blobstore: create temp payload: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	h := md5.New()
	written, err := io.Copy(io.MultiWriter(tmp, h), io.LimitReader(body, s.maxObjectSize+1))
	if err != nil {
		_ = tmp.Close()
		return nil, fmt.Errorf("blobstore: write payload: %w", err)
	}
	if written > s.maxObjectSize {
		_ = tmp.Close()
		return nil, ErrTooLarge
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return nil, fmt.Errorf("blobstore: sync payload: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("blobstore: close payload: %w", err)
	}

	now := time.Now().UTC()
	meta.Size = written
	meta.ETag = hex.EncodeToString(h.Sum(nil))
	meta.LastModified = now
	meta.VersionID = version
	if meta.ContentType == "" {
		meta.ContentType = defaultContentType
	}

	if err := os.Rename(tmp.Name(), versionPath); err != nil {
		return nil, fmt.Errorf("blobstore: commit payload: %w", err)
	}
	if err := writeSidecar(versionPath+sidecarSuffix, meta); err != nil {
		_ = os.Remove(versionPath)
		return nil, err
	}

	// Refresh the browsable current copy. Best effort ordering: the version
	// payload above is the durable source of truth.
	if err := copyFile(versionPath, currentPath); err != nil {
		return nil, fmt.Errorf("blobstore: commit current payload: %w", err)
	}
	if err := writeSidecar(currentPath+sidecarSuffix, meta); err != nil {
		return nil, err
	}

	return &PutResult{
		ETag:         meta.ETag,
		Size:         written,
		LastModified: now,
		Location:     path.Join(bucket, key) + "@" + version,
	}, nil
}

func (s *FSStore) Get(ctx context.Context, bucket, key, version string) (io.ReadCloser, *Meta, error) {
	if err := ensureContext(ctx); err != nil {
		return nil, nil, err
	}
	if err := s.requireBucket(bucket); err != nil {
		return nil, nil, err
	}
	payloadPath, err := s.resolvePayload(bucket, key, version)
	if err != nil {
		return nil, nil, err
	}

	f, err := os.Open(payloadPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, ErrBlobNotFound
		}
		return nil, nil, fmt.Errorf("blobstore: open payload: %w", err)
	}

	meta, err := readSidecar(payloadPath + sidecarSuffix)
	if err != nil {
		// Sidecar loss degrades to stat-derived metadata.
		st, statErr := f.Stat()
		if statErr != nil {
			_ = f.Close()
			return nil, nil, fmt.Errorf("blobstore: stat payload: %w", statErr)
		}
		logger.Warn().Str("bucket", bucket).Str("key", key).Err(err).
			Msg("sidecar missing or unreadable, falling back to stat")
		meta = &Meta{
			Size:         st.Size(),
			LastModified: st.ModTime().UTC(),
			ContentType:  defaultContentType,
			VersionID:    version,
		}
	}
	return f, meta, nil
}

func (s *FSStore) Exists(ctx context.Context, bucket, key, version string) (bool, error) {
	if err := ensureContext(ctx); err != nil {
		return false, err
	}
	payloadPath, err := s.resolvePayload(bucket, key, version)
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(payloadPath); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("blobstore: stat payload: %w", err)
	}
	return true, nil
}

func (s *FSStore) Delete(ctx context.Context, bucket, key, version string) (bool, error) {
	if err := ensureContext(ctx); err != nil {
		return false, err
	}
	if err := s.requireBucket(bucket); err != nil {
		return false, err
	}

	removed := false
	if version != "" {
		versionPath, err := s.versionPath(bucket, key, version)
		if err != nil {
			return false, err
		}
		if err := os.Remove(versionPath); err == nil {
			removed = true
		} else if !os.IsNotExist(err) {
			return false, fmt.Errorf("blobstore: remove payload: %w", err)
		}
		_ = os.Remove(versionPath + sidecarSuffix)
	}

	// Drop the current copy when it belongs to the deleted version (or when
	// no version was given at all).
	currentPath, err := s.objectPath(bucket, key)
	if err != nil {
		return removed, err
	}
	dropCurrent := version == ""
	if !dropCurrent {
		if meta, err := readSidecar(currentPath + sidecarSuffix); err == nil {
			dropCurrent = meta.VersionID == version
		}
	}
	if dropCurrent {
		if err := os.Remove(currentPath); err == nil {
			removed = true
		} else if !os.IsNotExist(err) {
			return removed, fmt.Errorf("blobstore: remove current payload: %w", err)
		}
		_ = os.Remove(currentPath + sidecarSuffix)
	}
	return removed, nil
}

func (s *FSStore) Copy(ctx context.Context, srcBucket, srcKey, srcVersion, dstBucket, dstKey, dstVersion string) (*PutResult, error) {
	src, meta, err := s.Get(ctx, srcBucket, srcKey, srcVersion)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	return s.Put(ctx, dstBucket, dstKey, dstVersion, src, Meta{
		ContentType:  meta.ContentType,
		UserMetadata: meta.UserMetadata,
	})
}

func (s *FSStore) List(ctx context.Context, bucket string, opts ListOptions) (*ListResult, error) {
	if err := ensureContext(ctx); err != nil {
		return nil, err
	}
	dir, err := s.bucketDir(bucket)
	if err != nil {
		return nil, err
	}
	objectsDir := filepath.Join(dir, "objects")
	if _, err := os.Stat(objectsDir); err != nil {
		if os.IsNotExist(err) {
			return nil, ErrBucketNotFound
		}
		return nil, fmt.Errorf("blobstore: stat objects dir: %w", err)
	}

	var keys []string
	err = filepath.WalkDir(objectsDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if strings.HasSuffix(d.Name(), sidecarSuffix) || strings.HasSuffix(d.Name(), ".tmp") {
			return nil
		}
		rel, err := filepath.Rel(objectsDir, p)
		if err != nil {
			return err
		}
		keys = append(keys, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("blobstore: walk objects: %w", err)
	}
	sort.Strings(keys)

	maxKeys := opts.MaxKeys
	if maxKeys <= 0 {
		maxKeys = 1000
	}

	result := &ListResult{}
	seenPrefixes := make(map[string]bool)
	returned := 0
	for _, key := range keys {
		if opts.Prefix != "" && !strings.HasPrefix(key, opts.Prefix) {
			continue
		}
		if opts.Marker != "" && key <= opts.Marker {
			continue
		}

		if opts.Delimiter != "" {
			rest := key[len(opts.Prefix):]
			if idx := strings.Index(rest, opts.Delimiter); idx >= 0 {
				prefix := opts.Prefix + rest[:idx+len(opts.Delimiter)]
				// A prefix at or below the marker was already emitted on
				// an earlier page.
				if opts.Marker != "" && prefix <= opts.Marker {
					continue
				}
				if !seenPrefixes[prefix] {
					if returned >= maxKeys {
						result.IsTruncated = true
						break
					}
					seenPrefixes[prefix] = true
					result.CommonPrefixes = append(result.CommonPrefixes, prefix)
					result.NextMarker = prefix
					returned++
				}
				continue
			}
		}

		if returned >= maxKeys {
			result.IsTruncated = true
			break
		}
		meta, err := s.entryMeta(bucket, key)
		if err != nil {
			return nil, err
		}
		result.Entries = append(result.Entries, ListEntry{Key: key, Meta: *meta})
		result.NextMarker = key
		returned++
	}
	if !result.IsTruncated {
		result.NextMarker = ""
	}
	return result, nil
}

// entryMeta loads the sidecar for a listed key, degrading to stat data when
// the sidecar is absent.
func (s *FSStore) entryMeta(bucket, key string) (*Meta, error) {
	payloadPath, err := s.objectPath(bucket, key)
	if err != nil {
		return nil, err
	}
	if meta, err := readSidecar(payloadPath + sidecarSuffix); err == nil {
		return meta, nil
	}
	st, err := os.Stat(payloadPath)
	if err != nil {
		return nil, fmt.Errorf("blobstore: stat payload: %w", err)
	}
	return &Meta{
		Size:         st.Size(),
		LastModified: st.ModTime().UTC(),
		ContentType:  defaultContentType,
	}, nil
}

// ============================================================================
// Path resolution
// ============================================================================

func (s *FSStore) bucketDir(bucket string) (string, error) {
	if bucket == "" || strings.ContainsAny(bucket, "/\\") || strings.Contains(bucket, "..") {
		return "", ErrBucketNotFound
	}
	return filepath.Join(s.root, "buckets", bucket), nil
}

func (s *FSStore) requireBucket(bucket string) error {
	dir, err := s.bucketDir(bucket)
	if err != nil {
		return err
	}
	if _, err := os.Stat(dir); err != nil {
		if os.IsNotExist(err) {
			return ErrBucketNotFound
		}
		return fmt.Errorf("blobstore: stat bucket: %w", err)
	}
	return nil
}

// objectPath maps a key to its current payload path, rejecting traversal.
func (s *FSStore) objectPath(bucket, key string) (string, error) {
	dir, err := s.bucketDir(bucket)
	if err != nil {
		return "", err
	}
	clean, err := sanitizeKey(key)
	if err != nil {
		return "", err
	}
	p := filepath.Join(dir, "objects", filepath.FromSlash(clean))
	if !strings.HasPrefix(p, filepath.Join(dir, "objects")+string(filepath.Separator)) {
		return "", ErrInvalidKey
	}
	return p, nil
}

func (s *FSStore) versionPath(bucket, key, version string) (string, error) {
	dir, err := s.bucketDir(bucket)
	if err != nil {
		return "", err
	}
	if version == "" {
		return s.objectPath(bucket, key)
	}
	clean, err := sanitizeKey(key)
	if err != nil {
		return "", err
	}
	if strings.ContainsAny(version, "/\\.") {
		return "", ErrInvalidKey
	}
	return filepath.Join(dir, "versions", url.PathEscape(clean), version), nil
}

func (s *FSStore) resolvePayload(bucket, key, version string) (string, error) {
	if version == "" {
		return s.objectPath(bucket, key)
	}
	return s.versionPath(bucket, key, version)
}

// sanitizeKey normalizes a key to a slash path with no traversal components
// and no reserved filesystem characters.
func sanitizeKey(key string) (string, error) {
	if key == "" || strings.HasPrefix(key, "/") {
		return "", ErrInvalidKey
	}
	if strings.ContainsAny(key, "\x00\\") {
		return "", ErrInvalidKey
	}
	clean := path.Clean(key)
	if clean == "." || strings.HasPrefix(clean, "../") || clean == ".." {
		return "", ErrInvalidKey
	}
	for _, part := range strings.Split(clean, "/") {
		if part == "." || part == ".." || part == "" {
			return "", ErrInvalidKey
		}
	}
	return clean, nil
}

// ============================================================================
// Helpers
// ============================================================================

func ensureContext(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}

func writeSidecar(path string, meta Meta) error {
	data, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("blobstore: marshal sidecar: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "meta-*.tmp")
	if err != nil {
		return fmt.Errorf("blobstore: create temp sidecar: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("blobstore: write sidecar: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("blobstore: close sidecar: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("blobstore: commit sidecar: %w", err)
	}
	return nil
}

func readSidecar(path string) (*Meta, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var meta Meta
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("blobstore: decode sidecar: %w", err)
	}
	return &meta, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(dst), "cp-*.tmp")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if _, err := io.Copy(tmp, in); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), dst)
}

func dirHasNoFiles(dir string) (bool, error) {
	empty := true
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if !d.IsDir() {
			empty = false
			return filepath.SkipAll
		}
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("blobstore: scan bucket dir: %w", err)
	}
	return empty, nil
}

// Copyright 2025 Strata Authors
// SPDX-License-Identifier: Apache-2.0

package blobstore

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *FSStore {
	t.Helper()
	store, err := NewFSStore(Config{Root: t.TempDir()})
	require.NoError(t, err)
	return store
}

func TestPutGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	require.NoError(t, store.CreateBucket(ctx, "my-bucket"))

	payload := []byte("hello")
	result, err := store.Put(ctx, "my-bucket", "a.txt", "v1", bytes.NewReader(payload), Meta{
		ContentType:  "text/plain",
		UserMetadata: map[string]string{"owner": "alice"},
	})
	require.NoError(t, err)

	h := md5.Sum(payload)
	wantETag := hex.EncodeToString(h[:])
	assert.Equal(t, wantETag, result.ETag)
	assert.Equal(t, int64(len(payload)), result.Size)

	rc, meta, err := store.Get(ctx, "my-bucket", "a.txt", "v1")
	require.NoError(t, err)
	defer rc.Close()

	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
	assert.Equal(t, wantETag, meta.ETag)
	assert.Equal(t, "text/plain", meta.ContentType)
	assert.Equal(t, "alice", meta.UserMetadata["owner"])

	// Current namespace serves the same bytes.
	rc2, _, err := store.Get(ctx, "my-bucket", "a.txt", "")
	require.NoError(t, err)
	defer rc2.Close()
	got2, err := io.ReadAll(rc2)
	require.NoError(t, err)
	assert.Equal(t, payload, got2)
}

func TestGetMissingSidecarFallsBackToStat(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	require.NoError(t, store.CreateBucket(ctx, "my-bucket"))

	_, err := store.Put(ctx, "my-bucket", "a.txt", "v1", strings.NewReader("data"), Meta{ContentType: "text/plain"})
	require.NoError(t, err)

	p, err := store.objectPath("my-bucket", "a.txt")
	require.NoError(t, err)
	require.NoError(t, os.Remove(p+sidecarSuffix))

	rc, meta, err := store.Get(ctx, "my-bucket", "a.txt", "")
	require.NoError(t, err)
	defer rc.Close()
	assert.Equal(t, int64(4), meta.Size)
	assert.Equal(t, defaultContentType, meta.ContentType)
	assert.Empty(t, meta.ETag)
}

func TestDeleteIdempotent(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	require.NoError(t, store.CreateBucket(ctx, "my-bucket"))

	_, err := store.Put(ctx, "my-bucket", "a.txt", "v1", strings.NewReader("x"), Meta{})
	require.NoError(t, err)

	removed, err := store.Delete(ctx, "my-bucket", "a.txt", "v1")
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = store.Delete(ctx, "my-bucket", "a.txt", "v1")
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestDeleteVersionKeepsUnrelatedCurrent(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	require.NoError(t, store.CreateBucket(ctx, "my-bucket"))

	_, err := store.Put(ctx, "my-bucket", "a.txt", "v1", strings.NewReader("one"), Meta{})
	require.NoError(t, err)
	_, err = store.Put(ctx, "my-bucket", "a.txt", "v2", strings.NewReader("two"), Meta{})
	require.NoError(t, err)

	// Removing the old version must not disturb the current copy, which
	// belongs to v2.
	removed, err := store.Delete(ctx, "my-bucket", "a.txt", "v1")
	require.NoError(t, err)
	assert.True(t, removed)

	rc, _, err := store.Get(ctx, "my-bucket", "a.txt", "")
	require.NoError(t, err)
	defer rc.Close()
	got, _ := io.ReadAll(rc)
	assert.Equal(t, "two", string(got))
}

func TestKeySanitization(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	require.NoError(t, store.CreateBucket(ctx, "my-bucket"))

	for _, key := range []string{"../escape", "a/../../b", "/rooted", "nul\x00byte", "a/./b"} {
		_, err := store.Put(ctx, "my-bucket", key, "v1", strings.NewReader("x"), Meta{})
		assert.ErrorIs(t, err, ErrInvalidKey, "key %q", key)
	}
}

func TestRemoveBucketNonEmpty(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	require.NoError(t, store.CreateBucket(ctx, "my-bucket"))

	_, err := store.Put(ctx, "my-bucket", "a.txt", "v1", strings.NewReader("x"), Meta{})
	require.NoError(t, err)

	assert.ErrorIs(t, store.RemoveBucket(ctx, "my-bucket"), ErrBucketNotEmpty)

	_, err = store.Delete(ctx, "my-bucket", "a.txt", "v1")
	require.NoError(t, err)
	assert.NoError(t, store.RemoveBucket(ctx, "my-bucket"))
	assert.ErrorIs(t, store.RemoveBucket(ctx, "my-bucket"), ErrBucketNotFound)
}

func TestListPrefixDelimiter(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	require.NoError(t, store.CreateBucket(ctx, "my-bucket"))

	for _, key := range []string{
		"photos/2024/a.jpg",
		"photos/2025/b.jpg",
		"photos/cover.jpg",
		"readme.txt",
	} {
		_, err := store.Put(ctx, "my-bucket", key, "v1", strings.NewReader("x"), Meta{})
		require.NoError(t, err)
	}

	result, err := store.List(ctx, "my-bucket", ListOptions{Prefix: "photos/", Delimiter: "/"})
	require.NoError(t, err)
	assert.Equal(t, []string{"photos/2024/", "photos/2025/"}, result.CommonPrefixes)
	require.Len(t, result.Entries, 1)
	assert.Equal(t, "photos/cover.jpg", result.Entries[0].Key)
	assert.False(t, result.IsTruncated)

	// No delimiter: full lexicographic enumeration, sidecars excluded.
	result, err = store.List(ctx, "my-bucket", ListOptions{})
	require.NoError(t, err)
	keys := make([]string, 0, len(result.Entries))
	for _, e := range result.Entries {
		keys = append(keys, e.Key)
	}
	assert.Equal(t, []string{"photos/2024/a.jpg", "photos/2025/b.jpg", "photos/cover.jpg", "readme.txt"}, keys)
}

func TestListTruncationAndMarker(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	require.NoError(t, store.CreateBucket(ctx, "my-bucket"))

	for _, key := range []string{"a", "b", "c", "d"} {
		_, err := store.Put(ctx, "my-bucket", key, "v1", strings.NewReader("x"), Meta{})
		require.NoError(t, err)
	}

	result, err := store.List(ctx, "my-bucket", ListOptions{MaxKeys: 2})
	require.NoError(t, err)
	require.Len(t, result.Entries, 2)
	assert.True(t, result.IsTruncated)
	assert.Equal(t, "b", result.NextMarker)

	result, err = store.List(ctx, "my-bucket", ListOptions{MaxKeys: 2, Marker: result.NextMarker})
	require.NoError(t, err)
	require.Len(t, result.Entries, 2)
	assert.Equal(t, "c", result.Entries[0].Key)
	assert.Equal(t, "d", result.Entries[1].Key)
	assert.False(t, result.IsTruncated)
	assert.Empty(t, result.NextMarker)
}

func TestListPaginationSkipsFoldedPrefixes(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	require.NoError(t, store.CreateBucket(ctx, "my-bucket"))

	for _, key := range []string{"a.txt", "photos/2024/a.jpg", "photos/2025/b.jpg", "z.txt"} {
		_, err := store.Put(ctx, "my-bucket", key, "v1", strings.NewReader("x"), Meta{})
		require.NoError(t, err)
	}

	result, err := store.List(ctx, "my-bucket", ListOptions{Delimiter: "/", MaxKeys: 2})
	require.NoError(t, err)
	require.Len(t, result.Entries, 1)
	assert.Equal(t, "a.txt", result.Entries[0].Key)
	assert.Equal(t, []string{"photos/"}, result.CommonPrefixes)
	assert.True(t, result.IsTruncated)
	assert.Equal(t, "photos/", result.NextMarker)

	// The marker covers the whole folded prefix, so the next page must not
	// re-emit it from the prefix's remaining keys.
	result, err = store.List(ctx, "my-bucket", ListOptions{Delimiter: "/", MaxKeys: 2, Marker: result.NextMarker})
	require.NoError(t, err)
	require.Len(t, result.Entries, 1)
	assert.Equal(t, "z.txt", result.Entries[0].Key)
	assert.Empty(t, result.CommonPrefixes)
	assert.False(t, result.IsTruncated)
}

func TestCopy(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	require.NoError(t, store.CreateBucket(ctx, "src"))
	require.NoError(t, store.CreateBucket(ctx, "dst"))

	_, err := store.Put(ctx, "src", "a.txt", "v1", strings.NewReader("payload"), Meta{ContentType: "text/plain"})
	require.NoError(t, err)

	result, err := store.Copy(ctx, "src", "a.txt", "v1", "dst", "b.txt", "v9")
	require.NoError(t, err)
	assert.Equal(t, int64(7), result.Size)

	rc, meta, err := store.Get(ctx, "dst", "b.txt", "v9")
	require.NoError(t, err)
	defer rc.Close()
	got, _ := io.ReadAll(rc)
	assert.Equal(t, "payload", string(got))
	assert.Equal(t, "text/plain", meta.ContentType)
}

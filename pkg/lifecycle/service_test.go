// Copyright 2025 Strata Authors
// SPDX-License-Identifier: Apache-2.0

package lifecycle

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stratastore/strata/pkg/authz"
	"github.com/stratastore/strata/pkg/blobstore"
	"github.com/stratastore/strata/pkg/catalog"
	"github.com/stratastore/strata/pkg/catalog/memory"
	"github.com/stratastore/strata/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T, oracle authz.Oracle) Service {
	t.Helper()
	blobs, err := blobstore.NewFSStore(blobstore.Config{Root: t.TempDir()})
	require.NoError(t, err)
	if oracle == nil {
		oracle = authz.AllowAll{}
	}
	svc, err := NewService(Config{
		Blobs:   blobs,
		Catalog: memory.New(),
		Oracle:  oracle,
	})
	require.NoError(t, err)
	return svc
}

func mustCreateBucket(t *testing.T, svc Service, name string) {
	t.Helper()
	_, err := svc.CreateBucket(context.Background(), "alice", &CreateBucketRequest{Name: name})
	require.NoError(t, err)
}

func putString(t *testing.T, svc Service, bucket, key, body string) *types.ObjectVersion {
	t.Helper()
	v, err := svc.PutObject(context.Background(), "alice", &PutObjectRequest{
		Bucket:      bucket,
		Key:         key,
		Body:        strings.NewReader(body),
		ContentType: "text/plain",
	})
	require.NoError(t, err)
	return v
}

func getString(t *testing.T, svc Service, bucket, key, versionID string) (string, *types.ObjectVersion) {
	t.Helper()
	rc, v, err := svc.GetObject(context.Background(), "alice", bucket, key, versionID)
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	return string(data), v
}

func TestPutGetRoundTrip(t *testing.T) {
	svc := newTestService(t, nil)
	mustCreateBucket(t, svc, "my-bucket")

	put := putString(t, svc, "my-bucket", "a.txt", "hello")

	body, got := getString(t, svc, "my-bucket", "a.txt", "")
	assert.Equal(t, "hello", body)
	assert.Equal(t, put.VersionID(), got.VersionID())

	h := md5.Sum([]byte("hello"))
	assert.Equal(t, hex.EncodeToString(h[:]), got.ETag)
	assert.Equal(t, uint64(5), got.Size)
	assert.Equal(t, "text/plain", got.ContentType)
}

func TestNonVersionedOverwriteKeepsOneRow(t *testing.T) {
	svc := newTestService(t, nil)
	mustCreateBucket(t, svc, "my-bucket")

	putString(t, svc, "my-bucket", "a.txt", "v1")
	putString(t, svc, "my-bucket", "a.txt", "v2")

	out, err := svc.ListObjects(context.Background(), "alice", &ListObjectsRequest{
		Bucket:      "my-bucket",
		AllVersions: true,
	})
	require.NoError(t, err)
	require.Len(t, out.Versions, 1)
	assert.True(t, out.Versions[0].IsLatest)

	body, _ := getString(t, svc, "my-bucket", "a.txt", "")
	assert.Equal(t, "v2", body)
}

func TestVersionedPutKeepsChain(t *testing.T) {
	svc := newTestService(t, nil)
	mustCreateBucket(t, svc, "my-bucket")
	require.NoError(t, svc.SetBucketVersioning(context.Background(), "alice", "my-bucket", true))

	v1 := putString(t, svc, "my-bucket", "a.txt", "v1")
	v2 := putString(t, svc, "my-bucket", "a.txt", "v2")

	out, err := svc.ListObjects(context.Background(), "alice", &ListObjectsRequest{
		Bucket:      "my-bucket",
		AllVersions: true,
	})
	require.NoError(t, err)
	require.Len(t, out.Versions, 2)

	latest := 0
	for _, v := range out.Versions {
		if v.IsLatest {
			latest++
			assert.Equal(t, v2.VersionID(), v.VersionID())
		}
	}
	assert.Equal(t, 1, latest)

	body, _ := getString(t, svc, "my-bucket", "a.txt", "")
	assert.Equal(t, "v2", body)

	// Historical bytes stay reachable by version id.
	body, _ = getString(t, svc, "my-bucket", "a.txt", v1.VersionID())
	assert.Equal(t, "v1", body)
}

func TestDeleteLatestPromotesPrevious(t *testing.T) {
	svc := newTestService(t, nil)
	mustCreateBucket(t, svc, "my-bucket")
	require.NoError(t, svc.SetBucketVersioning(context.Background(), "alice", "my-bucket", true))

	v1 := putString(t, svc, "my-bucket", "a.txt", "v1")
	v2 := putString(t, svc, "my-bucket", "a.txt", "v2")

	require.NoError(t, svc.DeleteObject(context.Background(), "alice", "my-bucket", "a.txt", v2.VersionID()))

	body, got := getString(t, svc, "my-bucket", "a.txt", "")
	assert.Equal(t, "v1", body)
	assert.Equal(t, v1.VersionID(), got.VersionID())
	assert.True(t, got.IsLatest)
}

func TestDeleteIsIdempotentOnAbsence(t *testing.T) {
	svc := newTestService(t, nil)
	mustCreateBucket(t, svc, "my-bucket")

	err := svc.DeleteObject(context.Background(), "alice", "my-bucket", "ghost.txt", "")
	assert.Equal(t, ErrCodeNotFound, CodeOf(err))

	err = svc.DeleteObject(context.Background(), "alice", "my-bucket", "ghost.txt", "")
	assert.Equal(t, ErrCodeNotFound, CodeOf(err))
}

func TestCopyRejectsSameSourceDestination(t *testing.T) {
	svc := newTestService(t, nil)
	mustCreateBucket(t, svc, "my-bucket")
	putString(t, svc, "my-bucket", "a.txt", "hello")

	_, err := svc.CopyObject(context.Background(), "alice", &CopyObjectRequest{
		SrcBucket: "my-bucket", SrcKey: "a.txt",
		DstBucket: "my-bucket", DstKey: "a.txt",
	})
	assert.Equal(t, ErrCodeValidation, CodeOf(err))
}

func TestCopyProducesNewVersion(t *testing.T) {
	svc := newTestService(t, nil)
	mustCreateBucket(t, svc, "my-bucket")
	src := putString(t, svc, "my-bucket", "a.txt", "hello")

	dst, err := svc.CopyObject(context.Background(), "alice", &CopyObjectRequest{
		SrcBucket: "my-bucket", SrcKey: "a.txt",
		DstBucket: "my-bucket", DstKey: "b.txt",
	})
	require.NoError(t, err)
	assert.NotEqual(t, src.VersionID(), dst.VersionID())
	assert.Equal(t, src.ETag, dst.ETag)
	assert.Equal(t, "text/plain", dst.ContentType)

	body, _ := getString(t, svc, "my-bucket", "b.txt", "")
	assert.Equal(t, "hello", body)
}

func TestDeleteNonEmptyBucketConflicts(t *testing.T) {
	svc := newTestService(t, nil)
	mustCreateBucket(t, svc, "my-bucket")
	putString(t, svc, "my-bucket", "a.txt", "hello")

	err := svc.DeleteBucket(context.Background(), "alice", "my-bucket")
	assert.Equal(t, ErrCodeConflict, CodeOf(err))

	require.NoError(t, svc.DeleteObject(context.Background(), "alice", "my-bucket", "a.txt", ""))
	assert.NoError(t, svc.DeleteBucket(context.Background(), "alice", "my-bucket"))
}

func TestCreateBucketValidation(t *testing.T) {
	svc := newTestService(t, nil)

	for _, name := range []string{"ab", strings.Repeat("a", 64), "192.168.1.1", "Invalid"} {
		_, err := svc.CreateBucket(context.Background(), "alice", &CreateBucketRequest{Name: name})
		assert.Equal(t, ErrCodeValidation, CodeOf(err), "name %q", name)
	}

	mustCreateBucket(t, svc, strings.Repeat("a", 63))

	_, err := svc.CreateBucket(context.Background(), "alice", &CreateBucketRequest{Name: strings.Repeat("a", 63)})
	assert.Equal(t, ErrCodeConflict, CodeOf(err))
}

func TestACLDefaultAndReplace(t *testing.T) {
	svc := newTestService(t, nil)
	mustCreateBucket(t, svc, "my-bucket")
	putString(t, svc, "my-bucket", "a.txt", "hello")

	acl, err := svc.GetObjectACL(context.Background(), "alice", "my-bucket", "a.txt")
	require.NoError(t, err)
	require.Len(t, acl.Grants, 1)
	assert.Equal(t, "alice", acl.Owner.ID)
	assert.Equal(t, types.PermissionFullControl, acl.Grants[0].Permission)

	update := &types.ACL{Grants: []types.Grant{
		{Grantee: types.Grantee{ID: "bob"}, Permission: types.PermissionRead},
	}}
	require.NoError(t, svc.PutObjectACL(context.Background(), "alice", "my-bucket", "a.txt", update))

	acl, err = svc.GetObjectACL(context.Background(), "alice", "my-bucket", "a.txt")
	require.NoError(t, err)
	require.Len(t, acl.Grants, 1)
	assert.Equal(t, "bob", acl.Grants[0].Grantee.ID)
	assert.Equal(t, "alice", acl.Owner.ID)

	err = svc.PutObjectACL(context.Background(), "alice", "my-bucket", "a.txt", &types.ACL{
		Grants: []types.Grant{{Grantee: types.Grantee{ID: "bob"}, Permission: "SPRINT"}},
	})
	assert.Equal(t, ErrCodeValidation, CodeOf(err))
}

func TestTaggingReplaceAndValidation(t *testing.T) {
	svc := newTestService(t, nil)
	mustCreateBucket(t, svc, "my-bucket")
	putString(t, svc, "my-bucket", "a.txt", "hello")

	require.NoError(t, svc.PutObjectTagging(context.Background(), "alice", "my-bucket", "a.txt",
		[]types.Tag{{Key: "env", Value: "prod"}, {Key: "team", Value: "core"}}))

	tags, err := svc.GetObjectTagging(context.Background(), "alice", "my-bucket", "a.txt")
	require.NoError(t, err)
	assert.Equal(t, []types.Tag{{Key: "env", Value: "prod"}, {Key: "team", Value: "core"}}, tags)

	// Replacement is wholesale, not a merge.
	require.NoError(t, svc.PutObjectTagging(context.Background(), "alice", "my-bucket", "a.txt",
		[]types.Tag{{Key: "env", Value: "dev"}}))
	tags, err = svc.GetObjectTagging(context.Background(), "alice", "my-bucket", "a.txt")
	require.NoError(t, err)
	assert.Equal(t, []types.Tag{{Key: "env", Value: "dev"}}, tags)

	err = svc.PutObjectTagging(context.Background(), "alice", "my-bucket", "a.txt",
		[]types.Tag{{Key: "", Value: "x"}})
	assert.Equal(t, ErrCodeValidation, CodeOf(err))
}

func TestListObjectsPrefixDelimiter(t *testing.T) {
	svc := newTestService(t, nil)
	mustCreateBucket(t, svc, "my-bucket")
	for _, key := range []string{"logs/2024/a.log", "logs/2025/b.log", "readme.md"} {
		putString(t, svc, "my-bucket", key, "x")
	}

	out, err := svc.ListObjects(context.Background(), "alice", &ListObjectsRequest{
		Bucket:    "my-bucket",
		Prefix:    "logs/",
		Delimiter: "/",
	})
	require.NoError(t, err)
	assert.Empty(t, out.Versions)
	assert.Equal(t, []string{"logs/2024/", "logs/2025/"}, out.CommonPrefixes)

	out, err = svc.ListObjects(context.Background(), "alice", &ListObjectsRequest{Bucket: "my-bucket"})
	require.NoError(t, err)
	assert.Len(t, out.Versions, 3)
}

func TestPolicyDenyIsAccessDenied(t *testing.T) {
	oracle := authz.NewRuleOracle()
	oracle.Deny("alice", authz.ActionWriteObject, "my-bucket", "p-1")

	svc := newTestService(t, oracle)
	mustCreateBucket(t, svc, "my-bucket")

	_, err := svc.PutObject(context.Background(), "alice", &PutObjectRequest{
		Bucket: "my-bucket",
		Key:    "a.txt",
		Body:   strings.NewReader("hello"),
	})
	require.Error(t, err)
	assert.Equal(t, ErrCodeAccessDenied, CodeOf(err))
	assert.Contains(t, err.Error(), "denied by policy")
}

type unavailableOracle struct{}

func (unavailableOracle) Authorize(ctx context.Context, actor string, action authz.Action, resource authz.Resource) authz.Decision {
	return authz.Decision{Allowed: false, Reason: authz.ReasonUnavailable}
}

func TestOracleOutageFailsClosed(t *testing.T) {
	blobs, err := blobstore.NewFSStore(blobstore.Config{Root: t.TempDir()})
	require.NoError(t, err)
	cat := memory.New()
	require.NoError(t, cat.CreateBucket(context.Background(), &types.BucketInfo{Name: "my-bucket", OwnerID: "alice"}))
	down, err := NewService(Config{Blobs: blobs, Catalog: cat, Oracle: unavailableOracle{}})
	require.NoError(t, err)

	_, err = down.PutObject(context.Background(), "alice", &PutObjectRequest{
		Bucket: "my-bucket",
		Key:    "a.txt",
		Body:   bytes.NewReader([]byte("hello")),
	})
	require.Error(t, err)
	assert.Equal(t, ErrCodeAccessDenied, CodeOf(err))
	assert.Contains(t, err.Error(), "unavailable")
}

func TestVersionedConcurrentPutsKeepOneLatest(t *testing.T) {
	svc := newTestService(t, nil)
	mustCreateBucket(t, svc, "my-bucket")
	require.NoError(t, svc.SetBucketVersioning(context.Background(), "alice", "my-bucket", true))

	errc := make(chan error)
	for i := 0; i < 8; i++ {
		go func() {
			_, err := svc.PutObject(context.Background(), "alice", &PutObjectRequest{
				Bucket: "my-bucket",
				Key:    "a.txt",
				Body:   strings.NewReader("payload"),
			})
			errc <- err
		}()
	}
	for i := 0; i < 8; i++ {
		require.NoError(t, <-errc)
	}

	out, err := svc.ListObjects(context.Background(), "alice", &ListObjectsRequest{
		Bucket:      "my-bucket",
		AllVersions: true,
	})
	require.NoError(t, err)
	require.Len(t, out.Versions, 8)

	latest := 0
	for _, v := range out.Versions {
		if v.IsLatest {
			latest++
		}
	}
	assert.Equal(t, 1, latest)
}

// slowLatestCatalog stalls the first armed GetLatestVersion call so a
// concurrent writer can interleave between resolve and write-back.
type slowLatestCatalog struct {
	catalog.Store
	armed   atomic.Bool
	started chan struct{}
	once    sync.Once
}

func (c *slowLatestCatalog) GetLatestVersion(ctx context.Context, bucket, key string) (*types.ObjectVersion, error) {
	if c.armed.Load() {
		c.once.Do(func() { close(c.started) })
		time.Sleep(150 * time.Millisecond)
	}
	return c.Store.GetLatestVersion(ctx, bucket, key)
}

func TestTaggingUpdateKeepsOneLatestUnderConcurrentPut(t *testing.T) {
	blobs, err := blobstore.NewFSStore(blobstore.Config{Root: t.TempDir()})
	require.NoError(t, err)
	cat := &slowLatestCatalog{Store: memory.New(), started: make(chan struct{})}
	svc, err := NewService(Config{Blobs: blobs, Catalog: cat, Oracle: authz.AllowAll{}})
	require.NoError(t, err)

	mustCreateBucket(t, svc, "my-bucket")
	require.NoError(t, svc.SetBucketVersioning(context.Background(), "alice", "my-bucket", true))
	putString(t, svc, "my-bucket", "a.txt", "v1")

	cat.armed.Store(true)
	done := make(chan error, 1)
	go func() {
		done <- svc.PutObjectTagging(context.Background(), "alice", "my-bucket", "a.txt",
			[]types.Tag{{Key: "team", Value: "core"}})
	}()

	// Once the tagging update has started resolving, race a new version in.
	// The stale row it resolved must not come back as latest.
	<-cat.started
	v2, err := svc.PutObject(context.Background(), "alice", &PutObjectRequest{
		Bucket: "my-bucket",
		Key:    "a.txt",
		Body:   strings.NewReader("v2"),
	})
	require.NoError(t, err)
	require.NoError(t, <-done)

	versions, err := cat.ListVersionsForKey(context.Background(), "my-bucket", "a.txt")
	require.NoError(t, err)
	require.Len(t, versions, 2)

	latest := 0
	for _, v := range versions {
		if v.IsLatest {
			latest++
			assert.Equal(t, v2.VersionID(), v.VersionID())
		}
	}
	assert.Equal(t, 1, latest)
}

func TestListObjectsPaginationSkipsFoldedPrefixes(t *testing.T) {
	svc := newTestService(t, nil)
	mustCreateBucket(t, svc, "my-bucket")
	for _, key := range []string{"a.txt", "logs/2024/a.log", "logs/2025/b.log", "zzz.txt"} {
		putString(t, svc, "my-bucket", key, "x")
	}

	page1, err := svc.ListObjects(context.Background(), "alice", &ListObjectsRequest{
		Bucket:    "my-bucket",
		Delimiter: "/",
		MaxKeys:   2,
	})
	require.NoError(t, err)
	require.Len(t, page1.Versions, 1)
	assert.Equal(t, "a.txt", page1.Versions[0].Key)
	assert.Equal(t, []string{"logs/"}, page1.CommonPrefixes)
	assert.True(t, page1.IsTruncated)
	assert.Equal(t, "logs/", page1.NextMarker)

	page2, err := svc.ListObjects(context.Background(), "alice", &ListObjectsRequest{
		Bucket:    "my-bucket",
		Delimiter: "/",
		Marker:    page1.NextMarker,
		MaxKeys:   2,
	})
	require.NoError(t, err)
	require.Len(t, page2.Versions, 1)
	assert.Equal(t, "zzz.txt", page2.Versions[0].Key)
	assert.Empty(t, page2.CommonPrefixes)
	assert.False(t, page2.IsTruncated)
}

func TestInitiateMultipartUpload(t *testing.T) {
	svc := newTestService(t, nil)
	mustCreateBucket(t, svc, "my-bucket")

	up, err := svc.InitiateMultipartUpload(context.Background(), "alice", &InitiateMultipartRequest{
		Bucket:      "my-bucket",
		Key:         "big.bin",
		ContentType: "application/octet-stream",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, up.UploadID)
	assert.Equal(t, "alice", up.OwnerID)

	_, err = svc.InitiateMultipartUpload(context.Background(), "alice", &InitiateMultipartRequest{
		Bucket: "no-such-bucket",
		Key:    "big.bin",
	})
	assert.Equal(t, ErrCodeNotFound, CodeOf(err))
}

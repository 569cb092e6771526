// Copyright 2025 Strata Authors
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/stratastore/strata/pkg/lifecycle"
	"github.com/stratastore/strata/pkg/logger"
	"github.com/stratastore/strata/pkg/types"

	"github.com/gorilla/mux"
)

const metadataHeaderPrefix = "x-amz-meta-"

func userMetadataFrom(r *http.Request) map[string]string {
	var meta map[string]string
	for name, values := range r.Header {
		lower := strings.ToLower(name)
		if strings.HasPrefix(lower, metadataHeaderPrefix) && len(values) > 0 {
			if meta == nil {
				meta = make(map[string]string)
			}
			meta[strings.TrimPrefix(lower, metadataHeaderPrefix)] = values[0]
		}
	}
	return meta
}

func (s *Server) handlePutObject(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	defer r.Body.Close()

	v, err := s.svc.PutObject(r.Context(), actorFrom(r), &lifecycle.PutObjectRequest{
		Bucket:       vars["bucket"],
		Key:          vars["key"],
		Body:         r.Body,
		ContentType:  r.Header.Get("Content-Type"),
		UserMetadata: userMetadataFrom(r),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("ETag", `"`+v.ETag+`"`)
	w.Header().Set("x-amz-version-id", v.VersionID())
	writeSuccess(w, http.StatusOK, map[string]any{
		"etag":      v.ETag,
		"versionId": v.VersionID(),
		"size":      v.Size,
	})
}

func (s *Server) handleGetObject(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	rc, v, err := s.svc.GetObject(r.Context(), actorFrom(r), vars["bucket"], vars["key"], r.URL.Query().Get("versionId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer rc.Close()

	setObjectHeaders(w, v)
	if _, err := io.Copy(w, rc); err != nil {
		logger.Debug().Err(err).Str("bucket", vars["bucket"]).Str("key", vars["key"]).
			Msg("object download aborted")
	}
}

func (s *Server) handleHeadObject(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	v, err := s.svc.HeadObject(r.Context(), actorFrom(r), vars["bucket"], vars["key"], r.URL.Query().Get("versionId"))
	if err != nil {
		setErrorCode(r, lifecycle.CodeOf(err).String())
		w.WriteHeader(httpStatus(lifecycle.CodeOf(err)))
		return
	}
	setObjectHeaders(w, v)
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleDeleteObject(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	err := s.svc.DeleteObject(r.Context(), actorFrom(r), vars["bucket"], vars["key"], r.URL.Query().Get("versionId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusNoContent, nil)
}

type copyObjectBody struct {
	CopySource string `json:"copySource"`
}

func (s *Server) handleCopyObject(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	var body copyObjectBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, r, &lifecycle.Error{Code: lifecycle.ErrCodeValidation, Message: "malformed request body"})
		return
	}
	srcBucket, srcKey, ok := strings.Cut(strings.TrimPrefix(body.CopySource, "/"), "/")
	if !ok || srcBucket == "" || srcKey == "" {
		writeError(w, r, &lifecycle.Error{Code: lifecycle.ErrCodeValidation, Message: "copySource must be /bucket/key"})
		return
	}

	v, err := s.svc.CopyObject(r.Context(), actorFrom(r), &lifecycle.CopyObjectRequest{
		SrcBucket: srcBucket,
		SrcKey:    srcKey,
		DstBucket: vars["bucket"],
		DstKey:    vars["key"],
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("x-amz-version-id", v.VersionID())
	writeSuccess(w, http.StatusOK, map[string]any{
		"etag":         v.ETag,
		"versionId":    v.VersionID(),
		"lastModified": time.Unix(0, v.CreatedAt).UTC().Format(time.RFC1123),
	})
}

type listEntry struct {
	Key          string `json:"key"`
	Size         uint64 `json:"size"`
	ETag         string `json:"etag"`
	LastModified string `json:"lastModified"`
	StorageClass string `json:"storageClass"`
	VersionID    string `json:"versionId,omitempty"`
	IsLatest     bool   `json:"isLatest,omitempty"`
}

func (s *Server) handleListObjects(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	q := r.URL.Query()

	maxKeys := 0
	if raw := q.Get("maxKeys"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, r, &lifecycle.Error{Code: lifecycle.ErrCodeValidation, Message: "maxKeys must be a non-negative integer"})
			return
		}
		maxKeys = n
	}
	_, allVersions := q["versions"]

	out, err := s.svc.ListObjects(r.Context(), actorFrom(r), &lifecycle.ListObjectsRequest{
		Bucket:      vars["bucket"],
		Prefix:      q.Get("prefix"),
		Delimiter:   q.Get("delimiter"),
		Marker:      q.Get("marker"),
		MaxKeys:     maxKeys,
		AllVersions: allVersions,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	contents := make([]listEntry, 0, len(out.Versions))
	for _, v := range out.Versions {
		entry := listEntry{
			Key:          v.Key,
			Size:         v.Size,
			ETag:         v.ETag,
			LastModified: time.Unix(0, v.CreatedAt).UTC().Format(time.RFC1123),
			StorageClass: "STANDARD",
		}
		if allVersions {
			entry.VersionID = v.VersionID()
			entry.IsLatest = v.IsLatest
		}
		contents = append(contents, entry)
	}

	writeSuccess(w, http.StatusOK, map[string]any{
		"contents":       contents,
		"commonPrefixes": out.CommonPrefixes,
		"isTruncated":    out.IsTruncated,
		"nextMarker":     out.NextMarker,
	})
}

func (s *Server) handleGetObjectACL(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	acl, err := s.svc.GetObjectACL(r.Context(), actorFrom(r), vars["bucket"], vars["key"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, acl)
}

func (s *Server) handlePutObjectACL(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	var acl types.ACL
	if err := json.NewDecoder(r.Body).Decode(&acl); err != nil {
		writeError(w, r, &lifecycle.Error{Code: lifecycle.ErrCodeValidation, Message: "malformed ACL payload"})
		return
	}
	if err := s.svc.PutObjectACL(r.Context(), actorFrom(r), vars["bucket"], vars["key"], &acl); err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, nil)
}

func (s *Server) handleGetObjectTagging(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	tags, err := s.svc.GetObjectTagging(r.Context(), actorFrom(r), vars["bucket"], vars["key"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"tags": tags})
}

func (s *Server) handlePutObjectTagging(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	var body struct {
		Tags []types.Tag `json:"tags"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, r, &lifecycle.Error{Code: lifecycle.ErrCodeValidation, Message: "malformed tagging payload"})
		return
	}
	if err := s.svc.PutObjectTagging(r.Context(), actorFrom(r), vars["bucket"], vars["key"], body.Tags); err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, nil)
}

type initiateMultipartBody struct {
	Key         string            `json:"key"`
	ContentType string            `json:"contentType,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

func (s *Server) handleInitiateMultipart(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	var body initiateMultipartBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, r, &lifecycle.Error{Code: lifecycle.ErrCodeValidation, Message: "malformed request body"})
		return
	}

	up, err := s.svc.InitiateMultipartUpload(r.Context(), actorFrom(r), &lifecycle.InitiateMultipartRequest{
		Bucket:      vars["bucket"],
		Key:         body.Key,
		ContentType: body.ContentType,
		Metadata:    body.Metadata,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, up)
}

// Copyright 2025 Strata Authors
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"encoding/json"
	"net/http"

	"github.com/stratastore/strata/pkg/lifecycle"
	"github.com/stratastore/strata/pkg/types"

	"github.com/gorilla/mux"
)

type createBucketBody struct {
	Name   string            `json:"name"`
	Region string            `json:"region,omitempty"`
	Tags   map[string]string `json:"tags,omitempty"`
}

func (s *Server) handleCreateBucket(w http.ResponseWriter, r *http.Request) {
	var body createBucketBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, r, &lifecycle.Error{Code: lifecycle.ErrCodeValidation, Message: "malformed request body"})
		return
	}

	info, err := s.svc.CreateBucket(r.Context(), actorFrom(r), &lifecycle.CreateBucketRequest{
		Name:   body.Name,
		Region: body.Region,
		Tags:   body.Tags,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusCreated, info)
}

func (s *Server) handleListBuckets(w http.ResponseWriter, r *http.Request) {
	buckets, err := s.svc.ListBuckets(r.Context(), actorFrom(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"buckets": buckets})
}

func (s *Server) handleGetBucket(w http.ResponseWriter, r *http.Request) {
	info, err := s.svc.GetBucket(r.Context(), actorFrom(r), mux.Vars(r)["name"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, info)
}

func (s *Server) handleDeleteBucket(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteBucket(r.Context(), actorFrom(r), mux.Vars(r)["name"]); err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusNoContent, nil)
}

func (s *Server) handlePutBucketPolicy(w http.ResponseWriter, r *http.Request) {
	var doc json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		writeError(w, r, &lifecycle.Error{Code: lifecycle.ErrCodeValidation, Message: "malformed policy document"})
		return
	}
	err := s.svc.SetBucketPolicy(r.Context(), actorFrom(r), mux.Vars(r)["name"], &types.BucketPolicy{Document: doc})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, nil)
}

func (s *Server) handleGetBucketPolicy(w http.ResponseWriter, r *http.Request) {
	policy, err := s.svc.GetBucketPolicy(r.Context(), actorFrom(r), mux.Vars(r)["name"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, policy)
}

func (s *Server) handleDeleteBucketPolicy(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteBucketPolicy(r.Context(), actorFrom(r), mux.Vars(r)["name"]); err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusNoContent, nil)
}

type versioningBody struct {
	Enabled bool `json:"enabled"`
}

func (s *Server) handlePutBucketVersioning(w http.ResponseWriter, r *http.Request) {
	var body versioningBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, r, &lifecycle.Error{Code: lifecycle.ErrCodeValidation, Message: "malformed request body"})
		return
	}
	if err := s.svc.SetBucketVersioning(r.Context(), actorFrom(r), mux.Vars(r)["name"], body.Enabled); err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, nil)
}

func (s *Server) handleGetBucketVersioning(w http.ResponseWriter, r *http.Request) {
	enabled, err := s.svc.GetBucketVersioning(r.Context(), actorFrom(r), mux.Vars(r)["name"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, versioningBody{Enabled: enabled})
}

func (s *Server) handlePutBucketCORS(w http.ResponseWriter, r *http.Request) {
	var cors types.CORSConfiguration
	if err := json.NewDecoder(r.Body).Decode(&cors); err != nil {
		writeError(w, r, &lifecycle.Error{Code: lifecycle.ErrCodeValidation, Message: "malformed CORS configuration"})
		return
	}
	if err := s.svc.SetBucketCORS(r.Context(), actorFrom(r), mux.Vars(r)["name"], &cors); err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, nil)
}

func (s *Server) handleGetBucketCORS(w http.ResponseWriter, r *http.Request) {
	cors, err := s.svc.GetBucketCORS(r.Context(), actorFrom(r), mux.Vars(r)["name"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, cors)
}

func (s *Server) handleDeleteBucketCORS(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteBucketCORS(r.Context(), actorFrom(r), mux.Vars(r)["name"]); err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusNoContent, nil)
}

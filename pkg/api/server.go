// Copyright 2025 Strata Authors
// SPDX-License-Identifier: Apache-2.0

// Package api exposes the object store over HTTP: bucket and object CRUD,
// subresources, a health probe and Prometheus metrics.
package api

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/stratastore/strata/pkg/accesslog"
	"github.com/stratastore/strata/pkg/lifecycle"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Config holds the dependencies of the HTTP server.
type Config struct {
	Service lifecycle.Service
	Auth    *Authenticator

	// Audit receives one entry per request. Nil disables auditing.
	Audit accesslog.Collector
}

// Server routes HTTP requests into the lifecycle engine.
type Server struct {
	svc    lifecycle.Service
	auth   *Authenticator
	audit  accesslog.Collector
	router *mux.Router

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// NewServer validates cfg and builds the route table.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Service == nil {
		return nil, fmt.Errorf("api: lifecycle service is required")
	}
	if cfg.Auth == nil {
		return nil, fmt.Errorf("api: authenticator is required")
	}
	audit := cfg.Audit
	if audit == nil {
		audit = accesslog.Nop{}
	}

	requestsTotal, requestDuration := serverMetrics()
	s := &Server{
		svc:             cfg.Service,
		auth:            cfg.Auth,
		audit:           audit,
		requestsTotal:   requestsTotal,
		requestDuration: requestDuration,
	}
	s.router = s.routes()
	return s, nil
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()

	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}).Methods(http.MethodGet)

	api := r.NewRoute().Subrouter()
	api.Use(requestIDMiddleware, s.auth.middleware, mux.MiddlewareFunc(s.observe))

	// Buckets
	api.HandleFunc("/buckets", s.handleCreateBucket).Methods(http.MethodPost).Name("CreateBucket")
	api.HandleFunc("/buckets", s.handleListBuckets).Methods(http.MethodGet).Name("ListBuckets")
	api.HandleFunc("/buckets/{name}", s.handleGetBucket).Methods(http.MethodGet).Name("GetBucket")
	api.HandleFunc("/buckets/{name}", s.handleDeleteBucket).Methods(http.MethodDelete).Name("DeleteBucket")

	api.HandleFunc("/buckets/{name}/policy", s.handlePutBucketPolicy).Methods(http.MethodPut).Name("PutBucketPolicy")
	api.HandleFunc("/buckets/{name}/policy", s.handleGetBucketPolicy).Methods(http.MethodGet).Name("GetBucketPolicy")
	api.HandleFunc("/buckets/{name}/policy", s.handleDeleteBucketPolicy).Methods(http.MethodDelete).Name("DeleteBucketPolicy")

	api.HandleFunc("/buckets/{name}/versioning", s.handlePutBucketVersioning).Methods(http.MethodPut).Name("PutBucketVersioning")
	api.HandleFunc("/buckets/{name}/versioning", s.handleGetBucketVersioning).Methods(http.MethodGet).Name("GetBucketVersioning")

	api.HandleFunc("/buckets/{name}/cors", s.handlePutBucketCORS).Methods(http.MethodPut).Name("PutBucketCORS")
	api.HandleFunc("/buckets/{name}/cors", s.handleGetBucketCORS).Methods(http.MethodGet).Name("GetBucketCORS")
	api.HandleFunc("/buckets/{name}/cors", s.handleDeleteBucketCORS).Methods(http.MethodDelete).Name("DeleteBucketCORS")

	// Object subresources go first so the greedy key pattern cannot
	// swallow them.
	api.HandleFunc("/objects/{bucket}/{key:.+}/acl", s.handleGetObjectACL).Methods(http.MethodGet).Name("GetObjectACL")
	api.HandleFunc("/objects/{bucket}/{key:.+}/acl", s.handlePutObjectACL).Methods(http.MethodPut).Name("PutObjectACL")
	api.HandleFunc("/objects/{bucket}/{key:.+}/tagging", s.handleGetObjectTagging).Methods(http.MethodGet).Name("GetObjectTagging")
	api.HandleFunc("/objects/{bucket}/{key:.+}/tagging", s.handlePutObjectTagging).Methods(http.MethodPut).Name("PutObjectTagging")

	// Multipart initiation keys on the uploads marker.
	api.HandleFunc("/objects/{bucket}", s.handleInitiateMultipart).
		Methods(http.MethodPost).Queries("uploads", "").Name("InitiateMultipartUpload")

	// Objects
	api.HandleFunc("/objects/{bucket}", s.handleListObjects).Methods(http.MethodGet).Name("ListObjects")
	api.HandleFunc("/objects/{bucket}/{key:.+}", s.handlePutObject).Methods(http.MethodPut).Name("PutObject")
	api.HandleFunc("/objects/{bucket}/{key:.+}", s.handleGetObject).Methods(http.MethodGet).Name("GetObject")
	api.HandleFunc("/objects/{bucket}/{key:.+}", s.handleHeadObject).Methods(http.MethodHead).Name("HeadObject")
	api.HandleFunc("/objects/{bucket}/{key:.+}", s.handleDeleteObject).Methods(http.MethodDelete).Name("DeleteObject")
	api.HandleFunc("/objects/{bucket}/{key:.+}", s.handleCopyObject).Methods(http.MethodPost).Name("CopyObject")

	return r
}

var (
	metricsOnce     sync.Once
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
)

// serverMetrics registers the API metrics once per process.
func serverMetrics() (*prometheus.CounterVec, *prometheus.HistogramVec) {
	metricsOnce.Do(func() {
		requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "strata",
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "Total number of API requests",
		}, []string{"method", "action", "status"})
		requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "strata",
			Subsystem: "api",
			Name:      "request_duration_seconds",
			Help:      "API request latency",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 15),
		}, []string{"method", "action"})
	})
	return requestsTotal, requestDuration
}

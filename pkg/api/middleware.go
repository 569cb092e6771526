// Copyright 2025 Strata Authors
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/stratastore/strata/pkg/authz"
	"github.com/stratastore/strata/pkg/logger"
	"github.com/stratastore/strata/pkg/types"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

type contextKey int

const stateKey contextKey = iota

// requestState accumulates per-request facts for logging and audit.
type requestState struct {
	requestID string
	actor     string
	errorCode string
	decision  authz.Decision
}

func stateFrom(r *http.Request) *requestState {
	if s, ok := r.Context().Value(stateKey).(*requestState); ok {
		return s
	}
	return &requestState{}
}

func setErrorCode(r *http.Request, code string) {
	stateFrom(r).errorCode = code
}

// actorFrom returns the authenticated actor identity.
func actorFrom(r *http.Request) string {
	return stateFrom(r).actor
}

// statusWriter captures the response status and byte count.
type statusWriter struct {
	http.ResponseWriter
	status int
	bytes  int64
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	n, err := w.ResponseWriter.Write(b)
	w.bytes += int64(n)
	return n, err
}

// requestIDMiddleware seeds the request state and echoes the id back.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("x-request-id")
		if id == "" {
			id = uuid.NewString()
		}
		state := &requestState{requestID: id}
		w.Header().Set("x-request-id", id)
		ctx := context.WithValue(r.Context(), stateKey, state)
		ctx = authz.CaptureDecision(ctx, &state.decision)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Authenticator validates bearer tokens and resolves the actor identity.
type Authenticator struct {
	secret []byte
}

// NewAuthenticator builds an HMAC JWT authenticator.
func NewAuthenticator(secret string) *Authenticator {
	return &Authenticator{secret: []byte(secret)}
}

// IssueToken mints a token for actor, mainly for tooling and tests.
func (a *Authenticator) IssueToken(actor string, ttl time.Duration) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   actor,
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

func (a *Authenticator) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			writeJSON(w, http.StatusUnauthorized, envelope{
				Status: "error", Message: "missing bearer token", Code: "Unauthorized",
			})
			return
		}

		parsed, err := jwt.ParseWithClaims(token, &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
			return a.secret, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil || !parsed.Valid {
			writeJSON(w, http.StatusUnauthorized, envelope{
				Status: "error", Message: "invalid token", Code: "Unauthorized",
			})
			return
		}

		claims := parsed.Claims.(*jwt.RegisteredClaims)
		if claims.Subject == "" {
			writeJSON(w, http.StatusUnauthorized, envelope{
				Status: "error", Message: "token has no subject", Code: "Unauthorized",
			})
			return
		}

		stateFrom(r).actor = claims.Subject
		next.ServeHTTP(w, r)
	})
}

// observe wraps handlers with logging, metrics and audit recording.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w}

		next.ServeHTTP(sw, r)

		state := stateFrom(r)
		elapsed := time.Since(start)
		action := routeName(r)

		s.requestsTotal.WithLabelValues(r.Method, action, strconvStatus(sw.status)).Inc()
		s.requestDuration.WithLabelValues(r.Method, action).Observe(elapsed.Seconds())

		logger.Debug().
			Str("request_id", state.requestID).
			Str("actor", state.actor).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", sw.status).
			Dur("duration", elapsed).
			Msg("request")

		vars := mux.Vars(r)
		bucket := vars["name"]
		if bucket == "" {
			bucket = vars["bucket"]
		}
		s.audit.Record(&types.AccessLogEntry{
			EventTime:     start,
			RequestID:     state.requestID,
			Actor:         state.actor,
			Action:        action,
			Bucket:        bucket,
			Key:           vars["key"],
			HTTPMethod:    r.Method,
			HTTPStatus:    sw.status,
			Allowed:       sw.status != http.StatusForbidden,
			PolicyID:      state.decision.PolicyID,
			BytesSent:     uint64(sw.bytes),
			BytesReceived: uint64(r.ContentLength),
			TotalTimeMs:   uint32(elapsed.Milliseconds()),
			ErrorCode:     state.errorCode,
			VersionID:     sw.Header().Get("x-amz-version-id"),
		})
	})
}

func routeName(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if name := route.GetName(); name != "" {
			return name
		}
	}
	return "Unknown"
}

func strconvStatus(status int) string {
	if status == 0 {
		status = http.StatusOK
	}
	return strconv.Itoa(status)
}

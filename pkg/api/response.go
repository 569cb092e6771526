// Copyright 2025 Strata Authors
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/stratastore/strata/pkg/lifecycle"
	"github.com/stratastore/strata/pkg/logger"
	"github.com/stratastore/strata/pkg/types"
)

// envelope is the uniform JSON response shape.
type envelope struct {
	Status  string `json:"status"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
	Code    string `json:"code,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Debug().Err(err).Msg("failed to encode response")
	}
}

func writeSuccess(w http.ResponseWriter, status int, data any) {
	if status == http.StatusNoContent {
		w.WriteHeader(status)
		return
	}
	writeJSON(w, status, envelope{Status: "success", Data: data})
}

// writeError maps a lifecycle error to its HTTP status and stable code.
// Internal details never leak to the caller.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := lifecycle.CodeOf(err)
	status := httpStatus(code)

	message := "internal error"
	var le *lifecycle.Error
	if errors.As(err, &le) && code != lifecycle.ErrCodeInternal {
		message = le.Message
	}
	if code == lifecycle.ErrCodeInternal {
		logger.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	}

	setErrorCode(r, code.String())
	writeJSON(w, status, envelope{Status: "error", Message: message, Code: code.String()})
}

func httpStatus(code lifecycle.ErrorCode) int {
	switch code {
	case lifecycle.ErrCodeNotFound:
		return http.StatusNotFound
	case lifecycle.ErrCodeConflict:
		return http.StatusConflict
	case lifecycle.ErrCodeValidation:
		return http.StatusBadRequest
	case lifecycle.ErrCodeAccessDenied:
		return http.StatusForbidden
	case lifecycle.ErrCodeServiceUnavailable:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// setObjectHeaders writes the standard metadata headers for object
// downloads and HEAD responses.
func setObjectHeaders(w http.ResponseWriter, v *types.ObjectVersion) {
	if v.ContentType != "" {
		w.Header().Set("Content-Type", v.ContentType)
	} else {
		w.Header().Set("Content-Type", "application/octet-stream")
	}
	w.Header().Set("Content-Length", strconv.FormatUint(v.Size, 10))
	w.Header().Set("ETag", `"`+v.ETag+`"`)
	w.Header().Set("Last-Modified", time.Unix(0, v.CreatedAt).UTC().Format(http.TimeFormat))
	w.Header().Set("x-amz-version-id", v.VersionID())
	for k, val := range v.UserMetadata {
		w.Header().Set("x-amz-meta-"+k, val)
	}
}

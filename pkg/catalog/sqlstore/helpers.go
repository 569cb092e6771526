// Copyright 2025 Strata Authors
// SPDX-License-Identifier: Apache-2.0

package sqlstore

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
)

// marshalJSON serializes v for a TEXT column, empty string for nil maps.
func marshalJSON(v any) (string, error) {
	if v == nil {
		return "", nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("sqlstore: marshal json column: %w", err)
	}
	return string(data), nil
}

// unmarshalJSON deserializes a TEXT column into dst, tolerating NULL/empty.
func unmarshalJSON(col sql.NullString, dst any) error {
	if !col.Valid || col.String == "" || col.String == "null" {
		return nil
	}
	if err := json.Unmarshal([]byte(col.String), dst); err != nil {
		return fmt.Errorf("sqlstore: unmarshal json column: %w", err)
	}
	return nil
}

// isUniqueViolation reports whether err is a duplicate-key error from either
// supported driver.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1062
	}
	return false
}

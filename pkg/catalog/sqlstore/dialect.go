// Copyright 2025 Strata Authors
// SPDX-License-Identifier: Apache-2.0

// Package sqlstore provides a dialect-aware SQL implementation of the
// metadata catalog. Queries are written with PostgreSQL-style placeholders
// and rewritten at runtime for MySQL.
package sqlstore

import (
	"fmt"
	"strings"
)

// Dialect abstracts database-specific SQL syntax differences.
type Dialect interface {
	// Name returns the dialect name ("postgres" or "mysql").
	Name() string

	// ReplacePlaceholders converts $1-style placeholders to the dialect's
	// format.
	ReplacePlaceholders(query string) string

	// BoolColumn returns how to reference a boolean column in WHERE clauses.
	BoolColumn(column string, value bool) string

	// UpsertSuffix returns the suffix for INSERT statements that should
	// update on conflict.
	UpsertSuffix(conflictColumns string, updateColumns []string) string
}

// PostgresDialect implements Dialect for PostgreSQL.
type PostgresDialect struct{}

var _ Dialect = PostgresDialect{}

func (d PostgresDialect) Name() string { return "postgres" }

func (d PostgresDialect) ReplacePlaceholders(query string) string { return query }

func (d PostgresDialect) BoolColumn(column string, value bool) string {
	if value {
		return column + " = TRUE"
	}
	return column + " = FALSE"
}

func (d PostgresDialect) UpsertSuffix(conflictColumns string, updateColumns []string) string {
	sets := make([]string, len(updateColumns))
	for i, col := range updateColumns {
		sets[i] = fmt.Sprintf("%s = EXCLUDED.%s", col, col)
	}
	return fmt.Sprintf("ON CONFLICT (%s) DO UPDATE SET %s", conflictColumns, strings.Join(sets, ", "))
}

// MySQLDialect implements Dialect for MySQL.
type MySQLDialect struct{}

var _ Dialect = MySQLDialect{}

func (d MySQLDialect) Name() string { return "mysql" }

func (d MySQLDialect) ReplacePlaceholders(query string) string {
	var b strings.Builder
	b.Grow(len(query))
	for i := 0; i < len(query); i++ {
		if query[i] == '$' && i+1 < len(query) && query[i+1] >= '0' && query[i+1] <= '9' {
			b.WriteByte('?')
			for i+1 < len(query) && query[i+1] >= '0' && query[i+1] <= '9' {
				i++
			}
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

func (d MySQLDialect) BoolColumn(column string, value bool) string {
	if value {
		return column + " = 1"
	}
	return column + " = 0"
}

func (d MySQLDialect) UpsertSuffix(conflictColumns string, updateColumns []string) string {
	sets := make([]string, len(updateColumns))
	for i, col := range updateColumns {
		sets[i] = fmt.Sprintf("%s = VALUES(%s)", col, col)
	}
	return "ON DUPLICATE KEY UPDATE " + strings.Join(sets, ", ")
}

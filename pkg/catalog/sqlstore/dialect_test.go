// Copyright 2025 Strata Authors
// SPDX-License-Identifier: Apache-2.0

package sqlstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPostgresDialectPlaceholders(t *testing.T) {
	d := &PostgresDialect{}
	q := `SELECT * FROM buckets WHERE name = $1 AND owner_id = $2`
	assert.Equal(t, q, d.ReplacePlaceholders(q))
}

func TestMySQLDialectPlaceholders(t *testing.T) {
	d := &MySQLDialect{}
	assert.Equal(t,
		`SELECT * FROM buckets WHERE name = ? AND owner_id = ?`,
		d.ReplacePlaceholders(`SELECT * FROM buckets WHERE name = $1 AND owner_id = $2`))
}

func TestMySQLDialectDoubleDigitPlaceholders(t *testing.T) {
	d := &MySQLDialect{}
	got := d.ReplacePlaceholders(`VALUES ($9, $10, $11)`)
	assert.Equal(t, `VALUES (?, ?, ?)`, got)
}

func TestBoolColumn(t *testing.T) {
	pg := &PostgresDialect{}
	assert.Equal(t, "is_latest = TRUE", pg.BoolColumn("is_latest", true))
	assert.Equal(t, "is_latest = FALSE", pg.BoolColumn("is_latest", false))

	my := &MySQLDialect{}
	assert.Equal(t, "is_latest = 1", my.BoolColumn("is_latest", true))
	assert.Equal(t, "is_latest = 0", my.BoolColumn("is_latest", false))
}

func TestUpsertSuffix(t *testing.T) {
	pg := &PostgresDialect{}
	assert.Equal(t,
		`ON CONFLICT (bucket) DO UPDATE SET document = EXCLUDED.document`,
		pg.UpsertSuffix("bucket", []string{"document"}))

	my := &MySQLDialect{}
	assert.Equal(t,
		`ON DUPLICATE KEY UPDATE document = VALUES(document)`,
		my.UpsertSuffix("bucket", []string{"document"}))
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `logs/2024\%`, escapeLike(`logs/2024%`))
	assert.Equal(t, `a\_b`, escapeLike(`a_b`))
	assert.Equal(t, `plain/prefix`, escapeLike(`plain/prefix`))
}

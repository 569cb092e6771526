// Copyright 2025 Strata Authors
// SPDX-License-Identifier: Apache-2.0

package sqlstore

// postgresSchema holds the idempotent DDL for PostgreSQL.
var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS buckets (
		id CHAR(36) NOT NULL,
		name VARCHAR(63) NOT NULL,
		owner_id VARCHAR(255) NOT NULL,
		region VARCHAR(64) NOT NULL DEFAULT '',
		versioning BOOLEAN NOT NULL DEFAULT FALSE,
		tags TEXT,
		created_at BIGINT NOT NULL,
		PRIMARY KEY (id),
		CONSTRAINT uq_buckets_name UNIQUE (name)
	)`,
	`CREATE TABLE IF NOT EXISTS bucket_policies (
		bucket VARCHAR(63) NOT NULL,
		document TEXT NOT NULL,
		PRIMARY KEY (bucket)
	)`,
	`CREATE TABLE IF NOT EXISTS bucket_cors (
		bucket VARCHAR(63) NOT NULL,
		rules TEXT NOT NULL,
		PRIMARY KEY (bucket)
	)`,
	`CREATE TABLE IF NOT EXISTS object_versions (
		id CHAR(36) NOT NULL,
		bucket_id CHAR(36) NOT NULL,
		bucket VARCHAR(63) NOT NULL,
		object_key VARCHAR(1024) NOT NULL,
		size BIGINT NOT NULL DEFAULT 0,
		etag CHAR(32) NOT NULL DEFAULT '',
		is_latest BOOLEAN NOT NULL DEFAULT FALSE,
		content_type VARCHAR(255) NOT NULL DEFAULT '',
		user_metadata TEXT,
		tags TEXT,
		acl TEXT,
		owner_id VARCHAR(255) NOT NULL DEFAULT '',
		storage_location VARCHAR(2048) NOT NULL DEFAULT '',
		is_multipart BOOLEAN NOT NULL DEFAULT FALSE,
		is_complete BOOLEAN NOT NULL DEFAULT FALSE,
		created_at BIGINT NOT NULL,
		deleted_at BIGINT NOT NULL DEFAULT 0,
		PRIMARY KEY (id),
		CONSTRAINT uq_versions_bucket_key_id UNIQUE (bucket, object_key, id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_versions_bucket_key ON object_versions (bucket, object_key)`,
	`CREATE TABLE IF NOT EXISTS multipart_uploads (
		upload_id CHAR(36) NOT NULL,
		bucket VARCHAR(63) NOT NULL,
		object_key VARCHAR(1024) NOT NULL,
		owner_id VARCHAR(255) NOT NULL DEFAULT '',
		content_type VARCHAR(255) NOT NULL DEFAULT '',
		metadata TEXT,
		initiated_at BIGINT NOT NULL,
		PRIMARY KEY (upload_id)
	)`,
	`CREATE TABLE IF NOT EXISTS access_log (
		event_time BIGINT NOT NULL,
		request_id VARCHAR(64) NOT NULL,
		actor VARCHAR(255) NOT NULL,
		action VARCHAR(64) NOT NULL,
		bucket VARCHAR(63) NOT NULL DEFAULT '',
		object_key VARCHAR(1024) NOT NULL DEFAULT '',
		http_method VARCHAR(8) NOT NULL DEFAULT '',
		http_status INT NOT NULL DEFAULT 0,
		allowed BOOLEAN NOT NULL DEFAULT FALSE,
		policy_id VARCHAR(255) NOT NULL DEFAULT '',
		bytes_sent BIGINT NOT NULL DEFAULT 0,
		bytes_received BIGINT NOT NULL DEFAULT 0,
		total_time_ms INT NOT NULL DEFAULT 0,
		error_code VARCHAR(64) NOT NULL DEFAULT '',
		version_id VARCHAR(64) NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS idx_access_log_bucket_time ON access_log (bucket, event_time)`,
}

// mysqlSchema holds the idempotent DDL for MySQL. Long varchar index
// columns carry a 255-byte prefix to stay under the index byte limit.
var mysqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS buckets (
		id CHAR(36) NOT NULL,
		name VARCHAR(63) NOT NULL,
		owner_id VARCHAR(255) NOT NULL,
		region VARCHAR(64) NOT NULL DEFAULT '',
		versioning TINYINT(1) NOT NULL DEFAULT 0,
		tags TEXT,
		created_at BIGINT NOT NULL,
		PRIMARY KEY (id),
		UNIQUE KEY uq_buckets_name (name)
	)`,
	`CREATE TABLE IF NOT EXISTS bucket_policies (
		bucket VARCHAR(63) NOT NULL,
		document TEXT NOT NULL,
		PRIMARY KEY (bucket)
	)`,
	`CREATE TABLE IF NOT EXISTS bucket_cors (
		bucket VARCHAR(63) NOT NULL,
		rules TEXT NOT NULL,
		PRIMARY KEY (bucket)
	)`,
	`CREATE TABLE IF NOT EXISTS object_versions (
		id CHAR(36) NOT NULL,
		bucket_id CHAR(36) NOT NULL,
		bucket VARCHAR(63) NOT NULL,
		object_key VARCHAR(1024) NOT NULL,
		size BIGINT NOT NULL DEFAULT 0,
		etag CHAR(32) NOT NULL DEFAULT '',
		is_latest TINYINT(1) NOT NULL DEFAULT 0,
		content_type VARCHAR(255) NOT NULL DEFAULT '',
		user_metadata TEXT,
		tags TEXT,
		acl TEXT,
		owner_id VARCHAR(255) NOT NULL DEFAULT '',
		storage_location VARCHAR(2048) NOT NULL DEFAULT '',
		is_multipart TINYINT(1) NOT NULL DEFAULT 0,
		is_complete TINYINT(1) NOT NULL DEFAULT 0,
		created_at BIGINT NOT NULL,
		deleted_at BIGINT NOT NULL DEFAULT 0,
		PRIMARY KEY (id),
		UNIQUE KEY uq_versions_bucket_key_id (bucket, object_key(255), id),
		KEY idx_versions_bucket_key (bucket, object_key(255))
	)`,
	`CREATE TABLE IF NOT EXISTS multipart_uploads (
		upload_id CHAR(36) NOT NULL,
		bucket VARCHAR(63) NOT NULL,
		object_key VARCHAR(1024) NOT NULL,
		owner_id VARCHAR(255) NOT NULL DEFAULT '',
		content_type VARCHAR(255) NOT NULL DEFAULT '',
		metadata TEXT,
		initiated_at BIGINT NOT NULL,
		PRIMARY KEY (upload_id)
	)`,
	`CREATE TABLE IF NOT EXISTS access_log (
		event_time BIGINT NOT NULL,
		request_id VARCHAR(64) NOT NULL,
		actor VARCHAR(255) NOT NULL,
		action VARCHAR(64) NOT NULL,
		bucket VARCHAR(63) NOT NULL DEFAULT '',
		object_key VARCHAR(1024) NOT NULL DEFAULT '',
		http_method VARCHAR(8) NOT NULL DEFAULT '',
		http_status INT NOT NULL DEFAULT 0,
		allowed TINYINT(1) NOT NULL DEFAULT 0,
		policy_id VARCHAR(255) NOT NULL DEFAULT '',
		bytes_sent BIGINT NOT NULL DEFAULT 0,
		bytes_received BIGINT NOT NULL DEFAULT 0,
		total_time_ms INT NOT NULL DEFAULT 0,
		error_code VARCHAR(64) NOT NULL DEFAULT '',
		version_id VARCHAR(64) NOT NULL DEFAULT '',
		KEY idx_access_log_bucket_time (bucket, event_time)
	)`,
}

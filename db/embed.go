// Package db embeds the SQL schema so the API server and the seed/ingest
// commands can create tables without shipping migration files alongside the
// binary.
package db

import _ "embed"

// Schema holds the DDL for the catalog, identity, order, and api_keys
// tables. Statements are idempotent (CREATE TABLE IF NOT EXISTS) so running
// them on every startup is safe.
//
//go:embed migrations/001_schema.sql
var Schema string

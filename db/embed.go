// Package db provides the embedded schema for the Postgres-backed document store.
package db

import _ "embed"

// Schema contains the DDL statements for the documents table and its indexes.
//
//go:embed migrations/001_schema.sql
var Schema string

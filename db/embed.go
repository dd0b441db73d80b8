// Package db provides the embedded database schema.
package db

import _ "embed"

// Schema contains the DDL for the product, asset and version tables. It is
// idempotent and safe to apply on every start.
//
//go:embed migrations/001_schema.sql
var Schema string

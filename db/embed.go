// Package db provides the embedded database schema.
package db

import _ "embed"

// Schema is the idempotent DDL executed at startup.
//
//go:embed schema.sql
var Schema string

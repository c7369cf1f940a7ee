// Package migrations bundles the SQL schema for the sql store.
package migrations

import "embed"

// FS holds the migration files.
//
//go:embed *.sql
var FS embed.FS

// Package sql provides the embedded catalog schema and development fixtures.
package sql

import (
	_ "embed"
)

// SchemaSQL creates the category entity table, the EAV attribute and value
// tables, product assignments and URL rewrites. Applied with CREATE ... IF
// NOT EXISTS for idempotence.
//
//go:embed schema.sql
var SchemaSQL string

// FixturesSQL loads a small development catalog. Rows conflicting with
// existing keys are left untouched.
//
//go:embed fixtures.sql
var FixturesSQL string

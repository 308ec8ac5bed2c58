// Package db carries the SQL schema as an embedded asset so tests and
// tooling apply the same DDL the deployment uses.
package db

import _ "embed"

//go:embed schema.sql
var Schema string

// Package db carries the SQL migrations that create the credvault schema.
package db

import "embed"

//go:embed migrations/*.sql
var Migrations embed.FS

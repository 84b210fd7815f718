// Package migrations embeds the SQL schema so cmd/migrate can run it with
// goose without shipping loose files alongside the binary.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS

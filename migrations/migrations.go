// Package migrations embeds the Postgres schema migrations so the binary
// can be deployed without a migrations directory on disk.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS

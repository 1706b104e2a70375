// Package migrations embeds the PostgreSQL schema applied when STORE_DRIVER=postgres.
package migrations

import "embed"

//go:embed *.sql
var Files embed.FS

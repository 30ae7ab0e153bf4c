// Package migrations embeds the SQL schema applied by goose.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS

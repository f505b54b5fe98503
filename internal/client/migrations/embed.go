// Package migrations embeds the goose migrations for the client queue database.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS

// Package migrations embeds the transcript store schema.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS

// Package migrations embeds the Postgres schema files so binaries and tests
// can apply them without a checkout.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS

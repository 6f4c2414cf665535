// Package migrations embeds the forward-only SQL migrations for both
// backing stores. cmd/migrate applies them through golang-migrate's iofs
// source.
package migrations

import "embed"

//go:embed postgres/*.sql
var Postgres embed.FS

//go:embed clickhouse/*.sql
var ClickHouse embed.FS

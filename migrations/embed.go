// Package migrations embeds the versioned SQL schema for every supported backend.
// Each backend keeps its own directory of golang-migrate files
// (NNNNNN_name.up.sql / NNNNNN_name.down.sql) with identical version numbers.
package migrations

import "embed"

// FS holds the postgres/ and sqlite/ migration directories.
//
//go:embed postgres/*.sql sqlite/*.sql
var FS embed.FS

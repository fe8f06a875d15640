// Package database keeps a journal of mirror runs in SQLite.
//
// Every run gets a row in the runs table and every attempted URL a row in
// the pages table, so earlier runs can be listed with the history command
// and content hashes compared between runs.
//
// The journal uses modernc.org/sqlite, a CGO-free driver, so the binary
// cross-compiles without a C toolchain. It lives in a single file below the
// user's XDG data directory.
package database

// Package database provides SQLite-based run history for filterpipe.
//
// Every preflight or run recorded by the CLI is stored as one row in the
// runs table, holding the full report as JSON together with the columns
// used for listing, and one row per message in run_messages so messages
// can be queried by type without decoding reports.
//
// The database is a single file opened through modernc.org/sqlite, which
// needs no cgo.
package database

// Package database keeps a SQLite log of crawl runs.
//
// Every run gets a row in the runs table and every URL that reached a
// terminal state gets a row in the visits table, so past crawls can be
// audited and compared after their documents file has been overwritten:
//   - which URLs robots.txt denied, which timed out, which were extracted
//   - which pages changed content between two runs (by SHA3-256 hash)
//
// The driver is modernc.org/sqlite, which needs no cgo. The database is
// a single file in the data directory opened in WAL mode.
package database

// Package repository defines the data access interfaces for printkeeper.
//
// The identity registry is a JSON file (see package registry); this package
// covers the history journal only. The implementation is in the sqlite
// subpackage.
//
// # History Interface
//
// History records every reconciliation action, grouped by pass, and every
// print job submission with its attempt count and outcome. Readers get the
// newest entries first.
//
// # SQLite Implementation
//
// The sqlite implementation uses the pure-Go modernc driver with WAL mode.
// The schema is created on startup. Journal writes are best effort: callers
// log a failure and carry on.
//
// # Testing
//
// The sqlite repository is tested with in-memory databases.
package repository

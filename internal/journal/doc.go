// Package journal persists run history in SQLite.
//
// Every engine run writes one row to runs, one row per executed step to
// step_records (dry and real phases alike) and a snapshot of the final
// value store to run_values. Inserts are idempotent: writing the same
// record twice is a no-op, so a journal can be replayed into safely.
//
// The database is opened in WAL mode with a single writer connection.
// Schema changes are applied through PRAGMA user_version migrations.
package journal

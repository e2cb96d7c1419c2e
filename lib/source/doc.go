// Package source connects tables to a database/sql connection.
//
// Key Components:
//
//   - Rows: adapts *sql.Rows to db.RowReader by scanning each record into
//     memory.
//
//   - Loader: formats a query for a dialect, runs it with the caller's
//     context and writes every record into the pulls of the queried tables
//     through Table.Load. For joined queries the expanded select list
//     ("{ordinal}.{column}") routes each field to its table. Query time,
//     loaded rows and failures are recorded in a go-metrics registry.
//
// Thread-safety: a Loader may be shared between goroutines, Rows may not.
// Loads that may return the same records must be serialized by the caller,
// otherwise both can add a row for one primary key.
//
// Drivers are not imported here; link one in the binary (modernc.org/sqlite,
// github.com/lib/pq or github.com/go-sql-driver/mysql).
package source

// Package cmd implements the command-line interface dq. It loads a schema
// file, parses queries against it and talks to databases through
// database/sql.
//
// The package is organized into several subpackages:
//
//   - format: Parse a query and print the SQL command for a dialect
//   - exec: Run a query, load the rows into the tables and print them
//   - schema: Validate a schema file and print it normalized
//   - perf: Measure parsing, formatting, loading and local evaluation
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// Flags can also be set through DQ_<flag> environment variables or a .env
// file. See dq -help for a list of all commands.
package cmd

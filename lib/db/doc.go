// Package db provides the in-memory column store the query engine evaluates
// against: typed columns, tables of rows and schemas that resolve table
// names and references.
//
// Key Components:
//
//   - Column / DBColumn[T]: A column stores its values in a pull.Pull[T]
//     addressed by the slot of the row. All type specific behaviour (parsing
//     loose input, SQL literal and display formatting, equality, ordering,
//     hashing, reading from a RowReader) is delegated to a Codec[T]. NewColumn
//     selects the codec from a DataType through a closed switch over Kind;
//     nullable types wrap the value codec so values become Null[V].
//
//   - Keys: Bit flags describing the role of a column (Primary, Reference,
//     Indexing, ItemType, State, ...). Columns flagged Primary, Reference or
//     Indexing keep a pull.Index[T] that is built on first use and updated
//     incrementally on every write.
//
//   - Table / Row: A table owns the columns and the list of attached rows. A
//     row only carries its slot and state (Detached, New, Default, Edit,
//     Deleted). Rows loaded from a RowReader start in Default.
//
//   - Schema: Resolves tables by name and lists the columns that reference a
//     table. It is the lookup the query package navigates joins with.
//
// Old Values:
//   - The first write to a column of a Default or Edit row stores the previous
//     value; later writes keep it. Writing the old value back removes it again.
//   - Accept drops the old values, Reject restores them. Rejecting a New row
//     removes it from the table.
//   - Writes while a row is loading are never tracked.
//
// Parsing:
//   - Parse failures are returned as *ParseError (raw value, column, kind);
//     errors.Is(err, ErrParse) matches all of them.
//   - Documented defaults instead of errors: nil bytes stay nil, a bool that
//     cannot be interpreted is false, a nil string is "".
//   - A *Row passed as value parses to its primary key.
//
// Thread-safety:
//   - Reads and writes of different rows may run concurrently. Writes to the
//     same row must be serialized by the caller.
//   - Columns, properties and tables are registered during setup and are
//     read-only afterwards.
//   - SetPull and Table.SetBlockSize replace storage and must not run
//     concurrently with writers.
package db

// Package query is the query object model: a tree of items built fluently
// or parsed from text, resolved against db tables, rendered back to SQL or
// evaluated directly over the rows of the column store.
//
// Key Components:
//
//   - Item: Every node (Query, Table, Param, Column, Value, Array, Between,
//     Function, Expression, Order, Member) knows its position in the list
//     that holds it and its holder. Holders are plain back pointers set by
//     the container on append; Query() walks them on every call.
//
//   - Query builder: Where, And, Or, AndGroup, OrGroup, Column, OrderBy,
//     GroupBy and Join append nodes and return the query. A column of a table
//     that is not part of the query yet joins it through the shortest chain
//     of reference columns; an equivalent join is reused. Failures are kept in
//     Err() and stop ToCommand. TypeFilter and StatusFilter maintain one
//     structural parameter each at the front of the predicate list.
//
//   - Parser: Parse reads a select statement or a bare predicate in a single
//     pass without a token list. Names resolve to columns of the scoped
//     tables (inner queries first), to dotted paths over references, then to
//     registered table properties. Unresolved tokens are read as text.
//
//   - Formatter: Format renders lower case SQL. With a Command values become
//     parameters named "{prefix}{column}{index}" in the spelling of the
//     command's dialect; without one they are rendered as literals.
//
//   - Evaluation: Check and Select run the predicates against materialized
//     rows, following joins through the column indexes.
//
// Thread-safety:
//   - A query tree is built and consumed by a single goroutine.
//   - Evaluation only reads the tree and may run concurrently with writers
//     of other rows; see package db.
package query

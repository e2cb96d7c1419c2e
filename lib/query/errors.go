package query

import (
	"github.com/ValentinKolb/dQuery/lib/db"
)

// Errors surfaced by the builder and the parser. They are *db.Error values
// so errors.Is works across both packages.
var (
	// ErrCompoundParam is returned when a value child is set on a compound
	// parameter or a child parameter is added to a leaf
	ErrCompoundParam = db.ErrCompoundParam
	// ErrMissingJoin is returned when no reference path connects a column's
	// table to the tables of the query
	ErrMissingJoin   = db.ErrMissingJoin
	ErrUnknownColumn = db.ErrUnknownColumn
	ErrUnknownTable  = db.ErrUnknownTable
)

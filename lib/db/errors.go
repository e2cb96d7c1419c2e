package db

import (
	"fmt"
)

// --------------------------------------------------------------------------
// Error Codes
// --------------------------------------------------------------------------

type ErrCode uint64

const (
	ErrCInternal         ErrCode = iota // 0: unexpected internal state
	ErrCInvalidOperation                // 1: operation not allowed in the current state
	ErrCColumnAttached                  // 2: column already belongs to a table
	ErrCDuplicateColumn                 // 3: a column with that name exists
	ErrCUnknownColumn                   // 4: column lookup failed
	ErrCUnknownTable                    // 5: table lookup failed
	ErrCRowTable                        // 6: row belongs to another table
	ErrCNoPrimaryKey                    // 7: table has no primary key
	ErrCMissingJoin                     // 8: no join path between two tables
	ErrCPullType                        // 9: pull element type does not match the column
	ErrCCompoundParam                   // 10: value child on a compound parameter or vice versa
)

func (c ErrCode) String() string {
	switch c {
	case ErrCInternal:
		return "Internal"
	case ErrCInvalidOperation:
		return "InvalidOperation"
	case ErrCColumnAttached:
		return "ColumnAttached"
	case ErrCDuplicateColumn:
		return "DuplicateColumn"
	case ErrCUnknownColumn:
		return "UnknownColumn"
	case ErrCUnknownTable:
		return "UnknownTable"
	case ErrCRowTable:
		return "RowTable"
	case ErrCNoPrimaryKey:
		return "NoPrimaryKey"
	case ErrCMissingJoin:
		return "MissingJoin"
	case ErrCPullType:
		return "PullType"
	case ErrCCompoundParam:
		return "CompoundParam"
	default:
		return "Unknown"
	}
}

// --------------------------------------------------------------------------
// Custom Error Type
// --------------------------------------------------------------------------

// Error is the error type of the engine: a code plus a message.
// Errors compare equal under errors.Is when their codes match and the
// target carries no message, so the sentinels below can be used as targets.
type Error struct {
	Code ErrCode
	Msg  string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Msg == "" {
		return fmt.Sprintf("dQueryError (code %s)", e.Code)
	}
	return fmt.Sprintf("dQueryError (code %s): %s", e.Code, e.Msg)
}

// Is matches sentinels of the same code
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code && t.Msg == ""
}

func newError(code ErrCode, format string, args ...any) *Error {
	return &Error{Code: code, Msg: fmt.Sprintf(format, args...)}
}

// NewError creates an error with the given code and formatted message
func NewError(code ErrCode, format string, args ...any) *Error {
	return newError(code, format, args...)
}

var (
	ErrInvalidOperation = &Error{Code: ErrCInvalidOperation}
	ErrColumnAttached   = &Error{Code: ErrCColumnAttached}
	ErrDuplicateColumn  = &Error{Code: ErrCDuplicateColumn}
	ErrUnknownColumn    = &Error{Code: ErrCUnknownColumn}
	ErrUnknownTable     = &Error{Code: ErrCUnknownTable}
	ErrRowTable         = &Error{Code: ErrCRowTable}
	ErrNoPrimaryKey     = &Error{Code: ErrCNoPrimaryKey}
	ErrMissingJoin      = &Error{Code: ErrCMissingJoin}
	ErrPullType         = &Error{Code: ErrCPullType}
	ErrCompoundParam    = &Error{Code: ErrCCompoundParam}
)

// --------------------------------------------------------------------------
// Parse Errors
// --------------------------------------------------------------------------

// ErrParse is the target for errors.Is on every *ParseError
var ErrParse = fmt.Errorf("value cannot be parsed")

// ParseError reports a raw value that could not be coerced into a column's type
type ParseError struct {
	Column string // column name, empty for free standing codecs
	Kind   Kind   // target kind
	Raw    any    // offending input
	Err    error  // underlying conversion error, may be nil
}

func (e *ParseError) Error() string {
	target := e.Kind.String()
	if e.Column != "" {
		target = fmt.Sprintf("column %s (%s)", e.Column, e.Kind)
	}
	if e.Err != nil {
		return fmt.Sprintf("cannot parse %#v (%T) as %s: %v", e.Raw, e.Raw, target, e.Err)
	}
	return fmt.Sprintf("cannot parse %#v (%T) as %s", e.Raw, e.Raw, target)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

func (e *ParseError) Is(target error) bool {
	return target == ErrParse
}

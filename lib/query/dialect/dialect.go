package dialect

import (
	"strconv"
	"strings"

	"github.com/lib/pq"
)

// Dialect describes how a SQL engine spells parameters, identifiers and
// built-in functions
type Dialect interface {
	// Name identifies the dialect ("sqlite", "postgres", "mysql", "mssql")
	Name() string
	// ParamPrefix is prepended to generated parameter names
	ParamPrefix() string
	// Placeholder returns the text a parameter is referenced with in the
	// command; pos is its 1-based position
	Placeholder(name string, pos int) string
	// Named reports whether parameters are bound by name (true) or by
	// position (false)
	Named() bool
	QuoteIdentifier(name string) string
	// Function maps a portable function name to the dialect spelling and
	// reports whether the function takes no parenthesized arguments
	Function(name string) (string, bool)
	BoolLiteral(v bool) string
}

// ByName returns the dialect registered under name
func ByName(name string) (Dialect, bool) {
	switch strings.ToLower(name) {
	case "sqlite", "sqlite3":
		return SQLite, true
	case "postgres", "postgresql", "pq":
		return Postgres, true
	case "mysql", "mariadb":
		return MySQL, true
	case "mssql", "sqlserver":
		return MSSQL, true
	default:
		return nil, false
	}
}

// --------------------------------------------------------------------------
// Implementations
// --------------------------------------------------------------------------

var (
	SQLite   Dialect = sqlite{}
	Postgres Dialect = postgres{}
	MySQL    Dialect = mysql{}
	MSSQL    Dialect = mssql{}
)

type sqlite struct{}

func (sqlite) Name() string                          { return "sqlite" }
func (sqlite) ParamPrefix() string                   { return "@" }
func (sqlite) Placeholder(name string, _ int) string { return name }
func (sqlite) Named() bool                           { return true }
func (sqlite) QuoteIdentifier(name string) string    { return doubleQuote(name) }
func (sqlite) BoolLiteral(v bool) string             { return boolDigit(v) }

func (sqlite) Function(name string) (string, bool) {
	switch name {
	case "getdate":
		return "datetime('now')", true
	case "len":
		return "length", false
	case "concat":
		return "concat", false
	}
	return name, false
}

type postgres struct{}

func (postgres) Name() string                         { return "postgres" }
func (postgres) ParamPrefix() string                  { return "$" }
func (postgres) Placeholder(_ string, pos int) string { return "$" + strconv.Itoa(pos) }
func (postgres) Named() bool                          { return false }
func (postgres) QuoteIdentifier(name string) string   { return pq.QuoteIdentifier(name) }
func (postgres) BoolLiteral(v bool) string            { return strconv.FormatBool(v) }

func (postgres) Function(name string) (string, bool) {
	switch name {
	case "getdate":
		return "now()", true
	case "len":
		return "length", false
	}
	return name, false
}

type mysql struct{}

func (mysql) Name() string                       { return "mysql" }
func (mysql) ParamPrefix() string                { return "@" }
func (mysql) Placeholder(string, int) string     { return "?" }
func (mysql) Named() bool                        { return false }
func (mysql) QuoteIdentifier(name string) string { return "`" + strings.ReplaceAll(name, "`", "``") + "`" }
func (mysql) BoolLiteral(v bool) string          { return strconv.FormatBool(v) }

func (mysql) Function(name string) (string, bool) {
	switch name {
	case "getdate":
		return "now()", true
	case "len":
		return "char_length", false
	}
	return name, false
}

type mssql struct{}

func (mssql) Name() string                          { return "mssql" }
func (mssql) ParamPrefix() string                   { return "@" }
func (mssql) Placeholder(name string, _ int) string { return name }
func (mssql) Named() bool                           { return true }
func (mssql) QuoteIdentifier(name string) string    { return "[" + strings.ReplaceAll(name, "]", "]]") + "]" }
func (mssql) BoolLiteral(v bool) string             { return boolDigit(v) }

func (mssql) Function(name string) (string, bool) {
	switch name {
	case "getdate":
		return "getdate()", true
	case "length":
		return "len", false
	}
	return name, false
}

func doubleQuote(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func boolDigit(v bool) string {
	if v {
		return "1"
	}
	return "0"
}

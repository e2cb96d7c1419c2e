package query

import (
	"database/sql"
	"database/sql/driver"
	"strconv"
	"strings"

	"github.com/ValentinKolb/dQuery/lib/db"
	"github.com/ValentinKolb/dQuery/lib/query/dialect"
)

// Parameter is a value bound to a command
type Parameter struct {
	// Name includes the dialect prefix, e.g. "@age0"
	Name   string
	Value  any
	Column db.Column // nil for values without a column
}

// Command is formatted SQL text plus its parameters in placeholder order.
// A command without a dialect renders values as literals.
type Command struct {
	Dialect dialect.Dialect
	Text    string
	Params  []Parameter

	paths bool // qualify joined columns by reference path instead of alias
}

// literal reports whether values are rendered inline
func (c *Command) literal() bool {
	return c == nil || c.Dialect == nil
}

// NewCommand creates an empty command for d, SQLite when d is nil
func NewCommand(d dialect.Dialect) *Command {
	if d == nil {
		d = dialect.SQLite
	}
	return &Command{Dialect: d}
}

// Add binds v and returns the placeholder to put into the text. Names are
// "{prefix}{column}{index}" with "p" standing in for a missing column, so
// they are unique within one command and stable for a given tree.
func (c *Command) Add(col db.Column, v any) string {
	base := "p"
	if col != nil {
		base = strings.ToLower(col.Name())
	}
	name := c.Dialect.ParamPrefix() + base + strconv.Itoa(len(c.Params))
	if _, ok := v.(driver.Valuer); !ok {
		v = db.Unwrap(v)
	}
	c.Params = append(c.Params, Parameter{Name: name, Value: v, Column: col})
	return c.Dialect.Placeholder(name, len(c.Params))
}

// Args returns the parameters in the form database/sql expects: sql.Named
// values for named dialects, plain values in order otherwise
func (c *Command) Args() []any {
	args := make([]any, len(c.Params))
	prefix := c.Dialect.ParamPrefix()
	for i, p := range c.Params {
		if c.Dialect.Named() {
			args[i] = sql.Named(strings.TrimPrefix(p.Name, prefix), p.Value)
		} else {
			args[i] = p.Value
		}
	}
	return args
}

func (c *Command) String() string {
	var b strings.Builder
	b.WriteString(c.Text)
	for _, p := range c.Params {
		b.WriteString("\n-- ")
		b.WriteString(p.Name)
		b.WriteString(" = ")
		b.WriteString(db.FormatLiteral(p.Value))
	}
	return b.String()
}

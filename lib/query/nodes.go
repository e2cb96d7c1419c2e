package query

import (
	"strings"

	"github.com/ValentinKolb/dQuery/lib/db"
)

// --------------------------------------------------------------------------
// Value
// --------------------------------------------------------------------------

// Value is a literal. When Column is set the value is typed by that column
// and formatted through its codec.
type Value struct {
	itemBase
	Val    any
	Column db.Column
	Raw    bool // Text is emitted verbatim (type names, date parts)
}

// NewValue creates a literal
func NewValue(v any) *Value {
	return &Value{Val: v}
}

// newRaw creates a verbatim token such as a type name
func newRaw(text string) *Value {
	return &Value{itemBase: itemBase{text: text}, Val: text, Raw: true}
}

func (v *Value) Format(cmd *Command) string {
	switch {
	case v.Raw:
		return v.text
	case db.Unwrap(v.Val) == nil:
		return "null"
	case cmd.literal():
		if v.Column != nil {
			return v.Column.FormatValue(v.Val)
		}
		return db.FormatLiteral(v.Val)
	default:
		return cmd.Add(v.Column, v.Val)
	}
}

// --------------------------------------------------------------------------
// Array
// --------------------------------------------------------------------------

// Array is the operand list of an In comparison
type Array struct {
	itemBase
	Items []Item
}

// Add appends an item to the list
func (a *Array) Add(it Item) {
	a.Items = appendItem(Item(a), a.Items, it)
}

func (a *Array) Format(cmd *Command) string {
	return "(" + formatList(cmd, a.Items, ", ") + ")"
}

// --------------------------------------------------------------------------
// Between
// --------------------------------------------------------------------------

// Between is the operand of a Between comparison, both ends inclusive
type Between struct {
	itemBase
	Min Item
	Max Item
}

// NewBetween creates a range operand
func NewBetween(lo, hi Item) *Between {
	b := &Between{Min: lo, Max: hi}
	lo.setHolder(b, 0)
	hi.setHolder(b, 1)
	return b
}

func (b *Between) Format(cmd *Command) string {
	return b.Min.Format(cmd) + " and " + b.Max.Format(cmd)
}

// --------------------------------------------------------------------------
// Column
// --------------------------------------------------------------------------

// Column references a table column of the query. A literal override turns
// it into a value (IsReference reports false).
type Column struct {
	itemBase
	Col   db.Column
	Table *Table // the query table the column is read from
	value any
	fixed bool
}

// NewColumn creates a reference to c read from table t
func NewColumn(c db.Column, t *Table) *Column {
	return &Column{itemBase: itemBase{text: c.Name()}, Col: c, Table: t}
}

// IsReference reports whether the item still references the column
func (c *Column) IsReference() bool {
	return !c.fixed
}

// SetValue overrides the column with a literal
func (c *Column) SetValue(v any) {
	c.value, c.fixed = v, true
}

func (c *Column) Format(cmd *Command) string {
	if c.fixed {
		lit := &Value{Val: c.value, Column: c.Col}
		return lit.Format(cmd)
	}
	name := quoteIdentifier(cmd, c.Col.Name())
	if c.Table == nil || !c.Table.qualified(c) {
		return name
	}
	if cmd != nil && cmd.paths {
		if path, ok := c.Table.path(c); ok {
			return path + name
		}
	}
	return c.Table.Alias() + "." + name
}

// --------------------------------------------------------------------------
// Member
// --------------------------------------------------------------------------

// Member is a dynamic property registered on a table. It can be evaluated
// locally but has no SQL representation besides its name.
type Member struct {
	itemBase
	Table *Table
	Get   func(*db.Row) any
}

func (m *Member) Format(*Command) string {
	return m.text
}

// --------------------------------------------------------------------------
// Function
// --------------------------------------------------------------------------

// Function is a call of a built-in function
type Function struct {
	itemBase
	Name string
	Args []Item
}

// NewFunction creates a call of name with the given arguments
func NewFunction(name string, args ...Item) *Function {
	f := &Function{Name: strings.ToLower(name)}
	for _, a := range args {
		f.AddArg(a)
	}
	return f
}

// AddArg appends an argument
func (f *Function) AddArg(it Item) {
	f.Args = appendItem(Item(f), f.Args, it)
}

func (f *Function) Format(cmd *Command) string {
	name, bare := f.Name, false
	if !cmd.literal() {
		name, bare = cmd.Dialect.Function(f.Name)
	}
	if bare {
		return name
	}
	if f.Name == "parse" && len(f.Args) == 2 {
		return name + "(" + f.Args[0].Format(cmd) + " as " + f.Args[1].Format(cmd) + ")"
	}
	return name + "(" + formatList(cmd, f.Args, ", ") + ")"
}

// --------------------------------------------------------------------------
// Expression
// --------------------------------------------------------------------------

// Expression is a binary arithmetic operation (+ - * / %)
type Expression struct {
	itemBase
	Left  Item
	Op    byte
	Right Item
}

// NewExpression creates "left op right"
func NewExpression(left Item, op byte, right Item) *Expression {
	e := &Expression{Left: left, Op: op, Right: right}
	left.setHolder(e, 0)
	right.setHolder(e, 1)
	return e
}

func (e *Expression) Format(cmd *Command) string {
	return formatOperand(cmd, e.Left) + " " + string(e.Op) + " " + formatOperand(cmd, e.Right)
}

func formatOperand(cmd *Command, it Item) string {
	if _, ok := it.(*Expression); ok {
		return "(" + it.Format(cmd) + ")"
	}
	return it.Format(cmd)
}

// --------------------------------------------------------------------------
// Order
// --------------------------------------------------------------------------

// Order is an entry of the order by list
type Order struct {
	itemBase
	Item Item
	Desc bool
}

func (o *Order) Format(cmd *Command) string {
	if o.Desc {
		return o.Item.Format(cmd) + " desc"
	}
	return o.Item.Format(cmd)
}

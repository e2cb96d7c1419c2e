package query

import (
	"errors"
	"strings"

	"github.com/ValentinKolb/dQuery/lib/db"
	"github.com/lni/dragonboat/v4/logger"
)

var log = logger.GetLogger("query")

// Resolver supplies the schema metadata a query is resolved against.
// *db.Schema implements it.
type Resolver interface {
	// Table looks up a table by name, nil if unknown
	Table(name string) *db.Table
	// Referencing returns the columns of other tables referencing t
	Referencing(t *db.Table) []db.Column
}

// Query is the root of a query tree. Used as an item it is a sub-query.
//
// Thread-safety: a query is built and consumed by one goroutine. Nothing in
// the tree is safe for concurrent mutation.
type Query struct {
	itemBase
	resolver Resolver
	tables   []*Table
	columns  []Item
	params   []*Param
	orders   []*Order
	groups   []Item
	err      error
}

// New creates a query over table, resolved against the table's schema
func New(table *db.Table) *Query {
	var r Resolver
	if table != nil && table.Schema() != nil {
		r = table.Schema()
	}
	return NewWith(r, table)
}

// NewWith creates a query over table resolved against r. table may be nil
// when the base table comes from parsed text.
func NewWith(r Resolver, table *db.Table) *Query {
	q := &Query{resolver: r}
	if table != nil {
		q.addTable(newTable(table, JoinNone))
	}
	return q
}

// ----------------------------------------
// Accessors
// ----------------------------------------

func (q *Query) Tables() []*Table   { return q.tables }
func (q *Query) Columns() []Item    { return q.columns }
func (q *Query) Params() []*Param   { return q.params }
func (q *Query) Orders() []*Order   { return q.orders }
func (q *Query) Groups() []Item     { return q.groups }
func (q *Query) Resolver() Resolver { return q.resolver }

// Base returns the first table of the query, nil if there is none
func (q *Query) Base() *Table {
	if len(q.tables) == 0 {
		return nil
	}
	return q.tables[0]
}

// Err returns every error recorded while building the query
func (q *Query) Err() error { return q.err }

func (q *Query) fail(err error) {
	if err != nil {
		q.err = errors.Join(q.err, err)
	}
}

func (q *Query) addTable(t *Table) *Table {
	q.tables = appendItem(q, q.tables, t)
	if t.On != nil {
		t.On.setHolder(t, 0)
	}
	return t
}

// table returns the query table of t, nil if t does not take part
func (q *Query) table(t *db.Table) *Table {
	for _, qt := range q.tables {
		if qt.Table == t {
			return qt
		}
	}
	return nil
}

// lookupTable resolves a table name through the resolver, falling back to
// the tables already in the query
func (q *Query) lookupTable(name string) *db.Table {
	if q.resolver != nil {
		if t := q.resolver.Table(name); t != nil {
			return t
		}
	}
	for _, qt := range q.tables {
		if strings.EqualFold(qt.Table.Name(), name) {
			return qt.Table
		}
	}
	return nil
}

func (q *Query) referencing(t *db.Table) []db.Column {
	if q.resolver != nil {
		return q.resolver.Referencing(t)
	}
	return t.Referencing()
}

// --------------------------------------------------------------------------
// Builder
// --------------------------------------------------------------------------

// Where appends "col comparer value" joined with And. A column of another
// table joins that table through the shortest reference path.
func (q *Query) Where(col db.Column, c db.Comparer, value any) *Query {
	return q.addParam(And, col, c, value)
}

// And is an alias of Where
func (q *Query) And(col db.Column, c db.Comparer, value any) *Query {
	return q.addParam(And, col, c, value)
}

// Or appends "col comparer value" joined with Or
func (q *Query) Or(col db.Column, c db.Comparer, value any) *Query {
	return q.addParam(Or, col, c, value)
}

func (q *Query) addParam(logic Logic, col db.Column, c db.Comparer, value any) *Query {
	p, err := q.NewParam(logic, col, c, value)
	if err != nil {
		q.fail(err)
		return q
	}
	q.params = appendItem(Item(q), q.params, p)
	return q
}

// AndGroup appends a parenthesized group joined with And
func (q *Query) AndGroup(build func(g *Group)) *Query {
	q.appendGroup(And, build)
	return q
}

// OrGroup appends a parenthesized group joined with Or
func (q *Query) OrGroup(build func(g *Group)) *Query {
	q.appendGroup(Or, build)
	return q
}

func (q *Query) appendGroup(logic Logic, build func(g *Group)) {
	if p := newGroup(q, logic, build); p != nil {
		q.params = appendItem(Item(q), q.params, p)
	}
}

// NewParam builds a leaf parameter for col without appending it. The value
// is coerced through the column: In takes a slice, Between a db.Range or a
// two element slice, and any Item (sub-query, column) is used as is.
func (q *Query) NewParam(logic Logic, col db.Column, c db.Comparer, value any) (*Param, error) {
	left, err := q.ColumnItem(col)
	if err != nil {
		return nil, err
	}
	if db.Unwrap(value) == nil && c.Type == db.CompareEqual {
		c.Type = db.CompareIs
	}
	right, err := typedItem(col, c, value)
	if err != nil {
		return nil, err
	}
	return NewLeaf(logic, left, c, right), nil
}

// typedItem wraps value as the right operand of "col c value"
func typedItem(col db.Column, c db.Comparer, value any) (Item, error) {
	if it, ok := value.(Item); ok {
		return it, nil
	}
	if db.Unwrap(value) == nil {
		return NewValue(nil), nil
	}
	switch c.Type {
	case db.CompareIn:
		arr := &Array{}
		for _, raw := range db.Items(value) {
			if db.Unwrap(raw) == nil {
				continue
			}
			v, err := col.ParseValue(raw)
			if err != nil {
				return nil, err
			}
			arr.Add(&Value{Val: v, Column: col})
		}
		return arr, nil
	case db.CompareBetween:
		r, err := db.ToRange(value)
		if err != nil {
			return nil, err
		}
		lo, err := col.ParseValue(r.Min)
		if err != nil {
			return nil, err
		}
		hi, err := col.ParseValue(r.Max)
		if err != nil {
			return nil, err
		}
		return NewBetween(&Value{Val: lo, Column: col}, &Value{Val: hi, Column: col}), nil
	case db.CompareLike:
		return &Value{Val: db.ToString(value)}, nil
	default:
		v, err := col.ParseValue(value)
		if err != nil {
			return nil, err
		}
		return &Value{Val: v, Column: col}, nil
	}
}

// ColumnItem returns a column item for col, joining its table when it is
// not part of the query yet
func (q *Query) ColumnItem(col db.Column) (*Column, error) {
	if col == nil {
		return nil, db.NewError(db.ErrCUnknownColumn, "nil column")
	}
	if col.Table() == nil {
		return nil, db.NewError(db.ErrCInvalidOperation, "column %s is not attached", col.Name())
	}
	qt, err := q.JoinPath(col.Table())
	if err != nil {
		return nil, err
	}
	return NewColumn(col, qt), nil
}

// Column appends columns to the select list
func (q *Query) Column(cols ...db.Column) *Query {
	for _, col := range cols {
		c, err := q.ColumnItem(col)
		if err != nil {
			q.fail(err)
			continue
		}
		q.columns = appendItem(Item(q), q.columns, Item(c))
	}
	return q
}

// AddItem appends arbitrary items (functions, expressions) to the select list
func (q *Query) AddItem(items ...Item) *Query {
	for _, it := range items {
		q.columns = appendItem(Item(q), q.columns, it)
	}
	return q
}

// OrderBy appends an order entry
func (q *Query) OrderBy(col db.Column, desc bool) *Query {
	c, err := q.ColumnItem(col)
	if err != nil {
		q.fail(err)
		return q
	}
	q.appendOrder(c, desc)
	return q
}

func (q *Query) appendOrder(it Item, desc bool) {
	o := &Order{itemBase: itemBase{text: it.Text()}, Item: it, Desc: desc}
	it.setHolder(o, 0)
	q.orders = appendItem(Item(q), q.orders, o)
}

// GroupBy appends group by entries
func (q *Query) GroupBy(cols ...db.Column) *Query {
	for _, col := range cols {
		c, err := q.ColumnItem(col)
		if err != nil {
			q.fail(err)
			continue
		}
		q.groups = appendItem(Item(q), q.groups, Item(c))
	}
	return q
}

// Join joins the table on the other side of the reference column col
// with the given kind. col either belongs to a query table and references
// a new one, or belongs to a new table and references a query table.
func (q *Query) Join(kind JoinType, col db.Column) *Query {
	for _, qt := range q.tables {
		if col.Table() == qt.Table || col.ReferenceTable() == qt.Table {
			if _, err := q.joinVia(qt, col, kind); err != nil {
				q.fail(err)
			}
			return q
		}
	}
	q.fail(db.NewError(db.ErrCMissingJoin, "column %s does not touch the tables of the query", col))
	return q
}

// --------------------------------------------------------------------------
// Structural Filters
// --------------------------------------------------------------------------

// TypeFilter restricts the base table to an item type. A parameter on the
// type column, from an earlier call or an explicit Where, has its value
// replaced instead of being duplicated.
func (q *Query) TypeFilter(value any) *Query {
	if base := q.Base(); base != nil {
		q.defaultFilter(base.Table.TypeKey(), value)
	}
	return q
}

// StatusFilter restricts the base table to a status
func (q *Query) StatusFilter(value any) *Query {
	if base := q.Base(); base != nil {
		q.defaultFilter(base.Table.StatusKey(), value)
	}
	return q
}

func (q *Query) defaultFilter(col db.Column, value any) {
	if col == nil {
		q.fail(db.NewError(db.ErrCUnknownColumn, "table %s has no filter column", q.Base().Table.Name()))
		return
	}
	c := db.Equal
	if len(db.Items(value)) > 1 {
		c = db.In
	}
	right, err := typedItem(col, c, value)
	if err != nil {
		q.fail(err)
		return
	}
	// an existing restriction on the filter column is taken over, whether
	// it was added by a filter or by an explicit Where
	for _, p := range q.params {
		lc := p.Column()
		if p.IsCompound() || p.Logic.Not || lc == nil || lc.Col != col || lc.Table != q.Base() {
			continue
		}
		p.Comparer = c
		p.IsDefault = true
		_ = p.SetRight(right)
		return
	}
	p := NewLeaf(And, NewColumn(col, q.Base()), c, right)
	p.IsDefault = true
	q.params = insertItem(Item(q), q.params, p)
}

// --------------------------------------------------------------------------
// Groups
// --------------------------------------------------------------------------

// Group collects the children of a compound parameter
type Group struct {
	q *Query
	p *Param
}

func newGroup(q *Query, logic Logic, build func(g *Group)) *Param {
	g := &Group{q: q, p: &Param{Logic: logic}}
	build(g)
	switch len(g.p.Parameters) {
	case 0:
		return nil
	case 1:
		child := g.p.Parameters[0]
		child.Logic = Logic{Type: logic.Type, Not: child.Logic.Not != logic.Not}
		return child
	default:
		return g.p
	}
}

// And adds "col comparer value" joined with And
func (g *Group) And(col db.Column, c db.Comparer, value any) *Group {
	return g.add(And, col, c, value)
}

// Or adds "col comparer value" joined with Or
func (g *Group) Or(col db.Column, c db.Comparer, value any) *Group {
	return g.add(Or, col, c, value)
}

func (g *Group) add(logic Logic, col db.Column, c db.Comparer, value any) *Group {
	p, err := g.q.NewParam(logic, col, c, value)
	if err != nil {
		g.q.fail(err)
		return g
	}
	_ = g.p.Add(p)
	return g
}

// AndGroup nests a group joined with And
func (g *Group) AndGroup(build func(g *Group)) *Group {
	if p := newGroup(g.q, And, build); p != nil {
		_ = g.p.Add(p)
	}
	return g
}

// OrGroup nests a group joined with Or
func (g *Group) OrGroup(build func(g *Group)) *Group {
	if p := newGroup(g.q, Or, build); p != nil {
		_ = g.p.Add(p)
	}
	return g
}

package query

import (
	"math"
	"slices"

	"github.com/ValentinKolb/dQuery/lib/db"
)

// --------------------------------------------------------------------------
// Local Evaluation
// --------------------------------------------------------------------------

// evalContext binds query tables to rows. Each binding is a node of a
// linked list so nested scopes (joins, correlated sub-queries) only ever
// prepend to the context of their caller.
type evalContext struct {
	table  *Table
	row    *db.Row
	parent *evalContext
}

func (c *evalContext) bind(t *Table, row *db.Row) *evalContext {
	return &evalContext{table: t, row: row, parent: c}
}

func (c *evalContext) lookup(t *Table) (*db.Row, bool) {
	for cur := c; cur != nil; cur = cur.parent {
		if cur.table == t {
			return cur.row, true
		}
	}
	return nil, false
}

// Check evaluates the predicates of q against a row of its base table.
// Joined tables are navigated through their on condition; a predicate on a
// joined table holds when any related row satisfies it.
func (q *Query) Check(row *db.Row) (bool, error) {
	base := q.Base()
	if base == nil {
		return false, db.NewError(db.ErrCUnknownTable, "query has no table")
	}
	if row.Table() != base.Table {
		return false, db.NewError(db.ErrCRowTable, "row of %s checked against a query over %s", row.Table().Name(), base.Table.Name())
	}
	return evalParams(q.params, (*evalContext)(nil).bind(base, row))
}

// Select evaluates q over the rows of its base table and returns the
// matches ordered by the order by list, then by the canonical table order.
// An "column = value" or "column in (...)" predicate on an indexed column
// narrows the candidates through the index when no or-branch exists.
func (q *Query) Select() ([]*db.Row, error) {
	return q.selectWith(nil)
}

func (q *Query) selectWith(parent *evalContext) ([]*db.Row, error) {
	if q.err != nil {
		return nil, q.err
	}
	base := q.Base()
	if base == nil {
		return nil, db.NewError(db.ErrCUnknownTable, "query has no table")
	}
	candidates, err := q.candidates()
	if err != nil {
		return nil, err
	}

	var result []*db.Row
	for _, row := range candidates {
		ok, err := evalParams(q.params, parent.bind(base, row))
		if err != nil {
			return nil, err
		}
		if ok {
			result = append(result, row)
		}
	}

	var sortErr error
	slices.SortStableFunc(result, func(a, b *db.Row) int {
		for _, o := range q.orders {
			va, err := evalItem(o.Item, parent.bind(base, a))
			if err != nil && sortErr == nil {
				sortErr = err
			}
			vb, err := evalItem(o.Item, parent.bind(base, b))
			if err != nil && sortErr == nil {
				sortErr = err
			}
			c := db.CompareValues(va, vb)
			if o.Desc {
				c = -c
			}
			if c != 0 {
				return c
			}
		}
		return base.Table.Compare(a, b)
	})
	return result, sortErr
}

// candidates returns the rows worth checking
func (q *Query) candidates() ([]*db.Row, error) {
	base := q.Base()
	for i, p := range q.params {
		if i > 0 && p.Logic.Type == LogicOr {
			return base.Table.Rows(), nil
		}
	}
	for _, p := range q.params {
		if p.IsCompound() || p.Logic.Not || p.Comparer.Not {
			continue
		}
		if p.Comparer.Type != db.CompareEqual && p.Comparer.Type != db.CompareIn {
			continue
		}
		col := p.Column()
		if col == nil || !col.IsReference() || col.Table != base || !col.Col.IsIndexed() {
			continue
		}
		v, ok := valueOf(p.Right)
		if !ok || db.Unwrap(v) == nil {
			continue
		}
		log.Debugf("index lookup on %s", col.Col)
		return col.Col.Select(v, p.Comparer)
	}
	return base.Table.Rows(), nil
}

// evalParams evaluates a predicate list; and binds tighter than or
func evalParams(params []*Param, ctx *evalContext) (bool, error) {
	chain := true
	for i, p := range params {
		if i > 0 && p.Logic.Type == LogicOr {
			if chain {
				return true, nil
			}
			chain = true
		}
		if !chain {
			continue
		}
		ok, err := p.eval(ctx)
		if err != nil {
			return false, err
		}
		chain = ok != p.Logic.Not
	}
	return chain, nil
}

func (p *Param) eval(ctx *evalContext) (bool, error) {
	if p.IsCompound() {
		return evalParams(p.Parameters, ctx)
	}
	if t := p.unbound(ctx); t != nil {
		rows, err := rowsOf(t, ctx)
		if err != nil {
			return false, err
		}
		for _, row := range rows {
			ok, err := p.eval(ctx.bind(t, row))
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	}
	return p.evalLeaf(ctx)
}

func (p *Param) evalLeaf(ctx *evalContext) (bool, error) {
	if p.Left == nil {
		return true, nil
	}
	if p.Comparer.IsEmpty() {
		v, err := evalItem(p.Left, ctx)
		if err != nil {
			return false, err
		}
		return db.CheckValues(v, db.Equal, true)
	}
	right, err := evalItem(p.Right, ctx)
	if err != nil {
		return false, err
	}
	if _, ok := p.Right.(*Query); ok && p.Comparer.Type != db.CompareIn {
		right = first(right)
	}
	if col, ok := p.Left.(*Column); ok && col.IsReference() {
		if row, bound := ctx.lookup(col.Table); bound {
			return col.Col.CheckValue(row, right, p.Comparer)
		}
	}
	left, err := evalItem(p.Left, ctx)
	if err != nil {
		return false, err
	}
	return db.CheckValues(left, p.Comparer, right)
}

func first(v any) any {
	if items := db.Items(v); len(items) > 0 {
		return items[0]
	}
	return nil
}

// unbound returns the first table read by p that has no row in ctx
func (p *Param) unbound(ctx *evalContext) *Table {
	var found *Table
	var walk func(it Item)
	walk = func(it Item) {
		if found != nil {
			return
		}
		var t *Table
		switch x := it.(type) {
		case *Column:
			if x.IsReference() {
				t = x.Table
			}
		case *Member:
			t = x.Table
		case *Function:
			for _, a := range x.Args {
				walk(a)
			}
		case *Expression:
			walk(x.Left)
			walk(x.Right)
		case *Array:
			for _, a := range x.Items {
				walk(a)
			}
		case *Between:
			walk(x.Min)
			walk(x.Max)
		}
		if t != nil {
			if _, ok := ctx.lookup(t); !ok {
				found = t
			}
		}
	}
	walk(p.Left)
	walk(p.Right)
	return found
}

// rowsOf returns the rows of t related to the rows bound in ctx. A simple
// "a.x = b.y" condition is followed through the column index; anything
// else scans t and checks the on condition.
func rowsOf(t *Table, ctx *evalContext) ([]*db.Row, error) {
	if row, ok := ctx.lookup(t); ok {
		return []*db.Row{row}, nil
	}
	if t.On == nil {
		return nil, db.NewError(db.ErrCMissingJoin, "table %s has no join condition", t.Table.Name())
	}
	left, right := t.onColumns()
	if left == nil || right == nil || t.On.Comparer != db.Equal || (left.Table == t) == (right.Table == t) {
		var result []*db.Row
		for _, row := range t.Table.Rows() {
			ok, err := t.On.eval(ctx.bind(t, row))
			if err != nil {
				return nil, err
			}
			if ok {
				result = append(result, row)
			}
		}
		return result, nil
	}

	own, other := right, left
	if left.Table == t {
		own, other = left, right
	}
	from, err := rowsOf(other.Table, ctx)
	if err != nil {
		return nil, err
	}
	var result []*db.Row
	for _, row := range from {
		v := db.Unwrap(other.Col.GetValue(row))
		if v == nil {
			continue
		}
		matches, err := own.Col.Select(v, db.Equal)
		if err != nil {
			return nil, err
		}
		result = append(result, matches...)
	}
	return result, nil
}

// evalItem computes the value of an item in ctx
func evalItem(it Item, ctx *evalContext) (any, error) {
	switch x := it.(type) {
	case nil:
		return nil, nil
	case *Value:
		if x.Raw {
			return x.text, nil
		}
		return db.Unwrap(x.Val), nil
	case *Column:
		if !x.IsReference() {
			return db.Unwrap(x.value), nil
		}
		row, err := boundRow(x.Table, ctx)
		if err != nil || row == nil {
			return nil, err
		}
		return x.Col.GetValue(row), nil
	case *Member:
		row, err := boundRow(x.Table, ctx)
		if err != nil || row == nil {
			return nil, err
		}
		return db.Unwrap(x.Get(row)), nil
	case *Array:
		values := make([]any, 0, len(x.Items))
		for _, item := range x.Items {
			v, err := evalItem(item, ctx)
			if err != nil {
				return nil, err
			}
			values = append(values, v)
		}
		return values, nil
	case *Between:
		lo, err := evalItem(x.Min, ctx)
		if err != nil {
			return nil, err
		}
		hi, err := evalItem(x.Max, ctx)
		if err != nil {
			return nil, err
		}
		return db.Range{Min: lo, Max: hi}, nil
	case *Function:
		args := make([]any, len(x.Args))
		for i, a := range x.Args {
			v, err := evalItem(a, ctx)
			if err != nil {
				return nil, err
			}
			args[i] = v
		}
		return callFunction(x.Name, args)
	case *Expression:
		l, err := evalItem(x.Left, ctx)
		if err != nil {
			return nil, err
		}
		r, err := evalItem(x.Right, ctx)
		if err != nil {
			return nil, err
		}
		return arithmetic(x.Op, l, r)
	case *Order:
		return evalItem(x.Item, ctx)
	case *Param:
		return x.eval(ctx)
	case *Query:
		return x.values(ctx)
	default:
		return nil, db.NewError(db.ErrCInvalidOperation, "cannot evaluate %T", it)
	}
}

// boundRow returns the row of t, following the join when t is not bound
func boundRow(t *Table, ctx *evalContext) (*db.Row, error) {
	if row, ok := ctx.lookup(t); ok {
		return row, nil
	}
	rows, err := rowsOf(t, ctx)
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return rows[0], nil
}

// values evaluates a sub-query to the values of its first select item,
// the primary keys of the matching rows without one
func (q *Query) values(ctx *evalContext) ([]any, error) {
	rows, err := q.selectWith(ctx)
	if err != nil {
		return nil, err
	}
	values := make([]any, 0, len(rows))
	for _, row := range rows {
		if len(q.columns) == 0 {
			values = append(values, db.Unwrap(row.PrimaryKey()))
			continue
		}
		v, err := evalItem(q.columns[0], ctx.bind(q.Base(), row))
		if err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, nil
}

// arithmetic applies op. Integers stay integers, any float operand makes
// the result a float and + concatenates text.
func arithmetic(op byte, a, b any) (any, error) {
	a, b = db.Unwrap(a), db.Unwrap(b)
	if a == nil || b == nil {
		return nil, nil
	}
	if op == '+' {
		_, sa := a.(string)
		_, sb := b.(string)
		if sa || sb {
			return db.ToString(a) + db.ToString(b), nil
		}
	}
	if db.IsInteger(a) && db.IsInteger(b) {
		x, err := db.ToInt64(a)
		if err != nil {
			return nil, err
		}
		y, err := db.ToInt64(b)
		if err != nil {
			return nil, err
		}
		switch op {
		case '+':
			return x + y, nil
		case '-':
			return x - y, nil
		case '*':
			return x * y, nil
		case '/', '%':
			if y == 0 {
				return nil, db.NewError(db.ErrCInvalidOperation, "division by zero")
			}
			if op == '/' {
				return x / y, nil
			}
			return x % y, nil
		}
	}
	x, err := db.ToFloat64(a)
	if err != nil {
		return nil, err
	}
	y, err := db.ToFloat64(b)
	if err != nil {
		return nil, err
	}
	switch op {
	case '+':
		return x + y, nil
	case '-':
		return x - y, nil
	case '*':
		return x * y, nil
	case '/':
		if y == 0 {
			return nil, db.NewError(db.ErrCInvalidOperation, "division by zero")
		}
		return x / y, nil
	case '%':
		return math.Mod(x, y), nil
	}
	return nil, db.NewError(db.ErrCInvalidOperation, "unknown operator %q", op)
}

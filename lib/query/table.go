package query

import (
	"strings"

	"github.com/ValentinKolb/dQuery/lib/db"
)

// JoinType is the kind of join a table enters the query with
type JoinType uint8

const (
	JoinNone JoinType = iota // the base table of the query
	JoinInner
	JoinLeft
	JoinRight
)

func (j JoinType) String() string {
	switch j {
	case JoinInner:
		return "join"
	case JoinLeft:
		return "left join"
	case JoinRight:
		return "right join"
	default:
		return ""
	}
}

// Table is a table participating in a query. Every table but the first is
// joined through an equi-join On parameter.
type Table struct {
	itemBase
	Table *db.Table
	Join  JoinType
	On    *Param
}

func newTable(t *db.Table, join JoinType) *Table {
	return &Table{itemBase: itemBase{text: t.Name()}, Table: t, Join: join}
}

// Alias is the explicit alias or a letter code derived from the ordinal of
// the table. Ordinals continue across nested queries so a sub-query never
// shadows the aliases of its outer queries.
func (t *Table) Alias() string {
	if t.alias != "" {
		return t.alias
	}
	base := 0
	if q := t.Query(); q != nil {
		for outer := queryOf(q.Holder()); outer != nil; outer = queryOf(outer.Holder()) {
			base += len(outer.tables)
		}
	}
	return AliasFor(base + t.order)
}

// onColumns returns the column pair of the join condition
func (t *Table) onColumns() (left, right *Column) {
	if t.On == nil {
		return nil, nil
	}
	left, _ = t.On.Left.(*Column)
	right, _ = t.On.Right.(*Column)
	return left, right
}

// Equal reports whether both tables join the same db table over the same
// column pair
func (t *Table) Equal(o *Table) bool {
	if t == nil || o == nil || t.Table != o.Table {
		return false
	}
	l1, r1 := t.onColumns()
	l2, r2 := o.onColumns()
	switch {
	case l1 == nil || r1 == nil || l2 == nil || r2 == nil:
		return l1 == nil && r1 == nil && l2 == nil && r2 == nil
	case l1.Col == l2.Col && r1.Col == r2.Col:
		return true
	default:
		return l1.Col == r2.Col && r1.Col == l2.Col
	}
}

// qualified reports whether columns of t must carry the alias when
// rendered from it
func (t *Table) qualified(from Item) bool {
	q := t.Query()
	if q == nil {
		return false
	}
	return len(q.tables) > 1 || q.Holder() != nil || queryOf(from) != q
}

// path returns the reference path from the base table to t as a prefix of
// dotted segments, "" for the base table itself. ok is false when t is not
// reachable by navigation from the query rendering from, e.g. inside a
// sub-query or over a join without a reference column.
func (t *Table) path(from Item) (prefix string, ok bool) {
	q := t.Query()
	if q == nil || q.Holder() != nil || queryOf(from) != q {
		return "", false
	}
	base := q.Base()
	var segs []string
	for cur := t; cur != base; {
		if len(segs) >= len(q.tables) {
			return "", false
		}
		prev, seg, ok := cur.hop(q)
		if !ok {
			return "", false
		}
		segs = append([]string{seg}, segs...)
		cur = prev
	}
	if len(segs) == 0 {
		return "", true
	}
	return strings.Join(segs, ".") + ".", true
}

// hop returns the table t was joined from and the path segment crossing
// the join: the reference column when the previous table holds it, the
// name of t when t references the previous table
func (t *Table) hop(q *Query) (prev *Table, seg string, ok bool) {
	left, right := t.onColumns()
	if left == nil || right == nil {
		return nil, "", false
	}
	own, other := right, left
	if left.Table == t {
		own, other = left, right
	}
	if own.Table != t || other.Table == nil || other.Table == t {
		return nil, "", false
	}
	prev = other.Table
	switch {
	case other.Col.IsReference() && other.Col.ReferenceTable() == t.Table:
		return prev, other.Col.Name(), true
	case own.Col.IsReference() && own.Col.ReferenceTable() == prev.Table:
		// navigation takes the first referencing column of a table
		for _, ref := range q.referencing(prev.Table) {
			if strings.EqualFold(ref.Table().Name(), t.Table.Name()) {
				if ref != own.Col || strings.EqualFold(t.Table.Name(), q.Base().Table.Name()) {
					return nil, "", false
				}
				return prev, t.Table.Name(), true
			}
		}
	}
	return nil, "", false
}

func (t *Table) Format(cmd *Command) string {
	text := quoteIdentifier(cmd, t.Table.Name()) + " " + t.Alias()
	if t.Join == JoinNone || t.On == nil {
		return text
	}
	return t.Join.String() + " " + text + " on " + t.On.Format(cmd)
}

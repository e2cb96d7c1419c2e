package query

import (
	"github.com/ValentinKolb/dQuery/lib/db"
)

// --------------------------------------------------------------------------
// Joins
// --------------------------------------------------------------------------

// CreateJoin joins the table of target onto the query with
// "from.fromCol = new.target". An equivalent join already in the query is
// returned instead of adding a second one.
func (q *Query) CreateJoin(kind JoinType, from *Table, fromCol, target db.Column) (*Table, error) {
	if from == nil || fromCol == nil || target == nil || target.Table() == nil {
		return nil, db.NewError(db.ErrCMissingJoin, "incomplete join condition")
	}
	if kind == JoinNone {
		kind = JoinInner
	}
	t := newTable(target.Table(), kind)
	t.On = NewLeaf(Logic{}, NewColumn(fromCol, from), db.Equal, NewColumn(target, t))
	for _, qt := range q.tables {
		if qt.Equal(t) {
			return qt, nil
		}
	}
	return q.addTable(t), nil
}

// joinVia joins the table on the other side of the reference column col
// starting at from
func (q *Query) joinVia(from *Table, col db.Column, kind JoinType) (*Table, error) {
	switch {
	case col.Table() == from.Table && col.IsReference():
		target := col.ReferenceTable()
		if target == nil || target.PrimaryKey() == nil {
			return nil, db.NewError(db.ErrCMissingJoin, "reference %s has no target key", col)
		}
		return q.CreateJoin(kind, from, col, target.PrimaryKey())
	case col.ReferenceTable() == from.Table && from.Table.PrimaryKey() != nil:
		return q.CreateJoin(kind, from, from.Table.PrimaryKey(), col)
	default:
		return nil, db.NewError(db.ErrCMissingJoin, "column %s does not join %s", col, from.Table.Name())
	}
}

// hop is one edge of a join path: the reference column crossed and the
// table reached
type hop struct {
	col  db.Column
	from *db.Table
	to   *db.Table
}

// JoinPath returns the query table of t, joining it through the shortest
// chain of reference columns when it is not part of the query yet. With no
// path the error is ErrMissingJoin.
func (q *Query) JoinPath(t *db.Table) (*Table, error) {
	if qt := q.table(t); qt != nil {
		return qt, nil
	}
	if len(q.tables) == 0 {
		return q.addTable(newTable(t, JoinNone)), nil
	}
	path := q.findPath(t)
	if path == nil {
		return nil, db.NewError(db.ErrCMissingJoin, "no join path from %s to %s", q.tables[0].Table.Name(), t.Name())
	}
	cur := q.table(path[0].from)
	for _, h := range path {
		next, err := q.joinVia(cur, h.col, JoinInner)
		if err != nil {
			return nil, err
		}
		cur = next
	}
	return cur, nil
}

// findPath runs a breadth first search over reference and referencing
// columns from every table of the query to target
func (q *Query) findPath(target *db.Table) []hop {
	prev := make(map[*db.Table]hop)
	seen := make(map[*db.Table]bool)
	var queue []*db.Table
	for _, qt := range q.tables {
		if !seen[qt.Table] {
			seen[qt.Table] = true
			queue = append(queue, qt.Table)
		}
	}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur == target {
			var path []hop
			for t := target; ; {
				h, ok := prev[t]
				if !ok {
					break
				}
				path = append([]hop{h}, path...)
				t = h.from
			}
			return path
		}
		visit := func(col db.Column, next *db.Table) {
			if next == nil || seen[next] {
				return
			}
			seen[next] = true
			prev[next] = hop{col: col, from: cur, to: next}
			queue = append(queue, next)
		}
		for _, col := range cur.Columns() {
			if col.IsReference() {
				visit(col, col.ReferenceTable())
			}
		}
		for _, col := range q.referencing(cur) {
			visit(col, col.Table())
		}
	}
	return nil
}

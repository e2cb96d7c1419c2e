package query

import (
	"strings"

	"github.com/ValentinKolb/dQuery/lib/db"
)

// Item is a node of the query tree. Nodes never own their holder: the
// holder pointer is set by the container when the node is appended and is
// only used to walk upwards.
type Item interface {
	// Order is the position of the item in its container list
	Order() int
	Text() string
	Alias() string
	// Holder is the node that contains this item, nil for a root query
	Holder() Item
	// Query is the nearest query above this item, recomputed on every call
	Query() *Query
	// Format renders the item as SQL. A nil command renders values as
	// literals, otherwise values become parameters of cmd.
	Format(cmd *Command) string

	setHolder(holder Item, order int)
}

// itemBase carries the fields every node shares
type itemBase struct {
	order  int
	text   string
	alias  string
	holder Item
}

func (b *itemBase) Order() int    { return b.order }
func (b *itemBase) Text() string  { return b.text }
func (b *itemBase) Alias() string { return b.alias }
func (b *itemBase) Holder() Item  { return b.holder }

// SetAlias sets the output name of the item
func (b *itemBase) SetAlias(alias string) { b.alias = alias }

func (b *itemBase) Query() *Query {
	return queryOf(b.holder)
}

func (b *itemBase) setHolder(holder Item, order int) {
	b.holder = holder
	b.order = order
}

// queryOf walks up the holder chain to the first query
func queryOf(it Item) *Query {
	for cur := it; cur != nil; cur = cur.Holder() {
		if q, ok := cur.(*Query); ok {
			return q
		}
	}
	return nil
}

// depthOf counts the queries above it
func depthOf(it Item) int {
	depth := 0
	for q := queryOf(it.Holder()); q != nil; q = queryOf(q.Holder()) {
		depth++
	}
	return depth
}

// appendItem sets the holder of it and appends it to list
func appendItem[T Item](holder Item, list []T, it T) []T {
	it.setHolder(holder, len(list))
	return append(list, it)
}

// insertItem inserts it at position 0 and renumbers the list
func insertItem[T Item](holder Item, list []T, it T) []T {
	list = append([]T{it}, list...)
	for i, x := range list {
		x.setHolder(holder, i)
	}
	return list
}

func formatList[T Item](cmd *Command, items []T, sep string) string {
	parts := make([]string, len(items))
	for i, it := range items {
		parts[i] = it.Format(cmd)
	}
	return strings.Join(parts, sep)
}

// --------------------------------------------------------------------------
// Aliases
// --------------------------------------------------------------------------

// AliasFor returns the alias of the table at ordinal: a..z, ba..bz, ...
func AliasFor(ordinal int) string {
	if ordinal < 0 {
		ordinal = 0
	}
	var b []byte
	for {
		b = append([]byte{byte('a' + ordinal%26)}, b...)
		ordinal /= 26
		if ordinal == 0 {
			return string(b)
		}
	}
}

// quoteIdentifier quotes name for the dialect of cmd; literal output keeps
// plain names
func quoteIdentifier(cmd *Command, name string) string {
	if cmd.literal() {
		return name
	}
	return cmd.Dialect.QuoteIdentifier(name)
}

// valueOf returns the plain value of a literal item, ok is false for
// anything that needs evaluation
func valueOf(it Item) (any, bool) {
	switch x := it.(type) {
	case nil:
		return nil, true
	case *Value:
		return x.Val, !x.Raw
	case *Array:
		values := make([]any, 0, len(x.Items))
		for _, item := range x.Items {
			v, ok := valueOf(item)
			if !ok {
				return nil, false
			}
			values = append(values, v)
		}
		return values, true
	case *Between:
		lo, okLo := valueOf(x.Min)
		hi, okHi := valueOf(x.Max)
		return db.Range{Min: lo, Max: hi}, okLo && okHi
	default:
		return nil, false
	}
}

package query

import (
	"strconv"
	"strings"

	"github.com/ValentinKolb/dQuery/lib/query/dialect"
)

// --------------------------------------------------------------------------
// Formatting
// --------------------------------------------------------------------------

// Format renders the query as SQL. A nil command renders literal values,
// otherwise values are bound as parameters of cmd. A sub-query is wrapped
// in parentheses and indented by its depth.
func (q *Query) Format(cmd *Command) string {
	depth := depthOf(q)
	sep := "\n" + strings.Repeat("\t", depth)

	sections := make([]string, 0, 5)
	sections = append(sections, "select "+q.formatColumns(cmd))
	if len(q.tables) > 0 {
		sections = append(sections, "from "+formatList(cmd, q.tables, sep))
	}
	if len(q.params) > 0 {
		sections = append(sections, "where "+formatParams(cmd, q.params))
	}
	if len(q.groups) > 0 {
		sections = append(sections, "group by "+formatList(cmd, q.groups, ", "))
	}
	if len(q.orders) > 0 {
		sections = append(sections, "order by "+formatList(cmd, q.orders, ", "))
	}
	text := strings.Join(sections, sep)
	if q.holder != nil {
		return "(" + text + ")"
	}
	return text
}

// FormatWhere renders only the predicate list. Without a command the text
// has no from clause to bind aliases, so columns of joined tables are
// written as reference paths from the base table ("department_id.title")
// which parse back to the same joins.
func (q *Query) FormatWhere(cmd *Command) string {
	if cmd == nil {
		cmd = &Command{paths: true}
	}
	return formatParams(cmd, q.params)
}

// ToCommand formats the query for d. Errors recorded while building are
// returned instead of a command.
func (q *Query) ToCommand(d dialect.Dialect) (*Command, error) {
	if q.err != nil {
		return nil, q.err
	}
	cmd := NewCommand(d)
	cmd.Text = q.Format(cmd)
	return cmd, nil
}

func (q *Query) String() string {
	return q.Format(nil)
}

// formatColumns renders the select list. Without explicit columns every
// queryable column of every table is listed; with more than one table each
// is aliased "{ordinal}.{name}" so equal names stay apart.
func (q *Query) formatColumns(cmd *Command) string {
	var parts []string
	if len(q.columns) > 0 {
		for _, it := range q.columns {
			text := it.Format(cmd)
			if it.Alias() != "" {
				text += " as " + quoteAlias(cmd, it.Alias())
			}
			parts = append(parts, text)
		}
		return strings.Join(parts, ", ")
	}
	for i, qt := range q.tables {
		for _, col := range qt.Table.Columns() {
			if !col.IsQueryable() {
				continue
			}
			c := NewColumn(col, qt)
			c.setHolder(q, len(parts))
			text := c.Format(cmd)
			if len(q.tables) > 1 {
				text += " as " + quoteAlias(cmd, ExpandedAlias(i, col.Name()))
			}
			parts = append(parts, text)
		}
	}
	if len(parts) == 0 {
		return "*"
	}
	return strings.Join(parts, ", ")
}

// ExpandedAlias is the output name of a column in an expanded select list
func ExpandedAlias(ordinal int, name string) string {
	return strconv.Itoa(ordinal) + "." + name
}

// quoteAlias always quotes: expanded aliases contain a dot
func quoteAlias(cmd *Command, alias string) string {
	if cmd.literal() {
		return `"` + strings.ReplaceAll(alias, `"`, `""`) + `"`
	}
	return cmd.Dialect.QuoteIdentifier(alias)
}

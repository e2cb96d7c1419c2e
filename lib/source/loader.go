package source

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ValentinKolb/dQuery/lib/db"
	"github.com/ValentinKolb/dQuery/lib/query"
	"github.com/ValentinKolb/dQuery/lib/query/dialect"
	"github.com/lni/dragonboat/v4/logger"
	gometrics "github.com/rcrowley/go-metrics"
)

var log = logger.GetLogger("source")

// Metric names in the loader registry
const (
	MetricQueryTime = "source.query.time"
	MetricRows      = "source.rows"
	MetricErrors    = "source.errors"
)

// Loader executes queries against a database and loads the results
type Loader struct {
	conn     *sql.DB
	dialect  dialect.Dialect
	timeout  time.Duration
	registry gometrics.Registry
}

// Option configures a Loader
type Option func(*Loader)

// WithTimeout bounds every load; zero keeps the caller's deadline
func WithTimeout(d time.Duration) Option {
	return func(l *Loader) { l.timeout = d }
}

// WithRegistry records metrics into r instead of a private registry
func WithRegistry(r gometrics.Registry) Option {
	return func(l *Loader) { l.registry = r }
}

// NewLoader creates a loader for conn. A nil dialect selects SQLite.
func NewLoader(conn *sql.DB, d dialect.Dialect, opts ...Option) *Loader {
	if d == nil {
		d = dialect.SQLite
	}
	l := &Loader{
		conn:     conn,
		dialect:  d,
		registry: gometrics.NewRegistry(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Loader) Dialect() dialect.Dialect     { return l.dialect }
func (l *Loader) Registry() gometrics.Registry { return l.registry }

// --------------------------------------------------------------------------
// Loading
// --------------------------------------------------------------------------

// Load runs q and writes the records into the tables of q. It returns the
// rows of the base table in result order, each row once.
func (l *Loader) Load(ctx context.Context, q *query.Query) ([]*db.Row, error) {
	rows, err := l.load(ctx, q)
	if err != nil {
		gometrics.GetOrRegisterCounter(MetricErrors, l.registry).Inc(1)
	}
	return rows, err
}

func (l *Loader) load(ctx context.Context, q *query.Query) ([]*db.Row, error) {
	if q.Base() == nil {
		return nil, fmt.Errorf("load: query has no table")
	}
	cmd, err := q.ToCommand(l.dialect)
	if err != nil {
		return nil, fmt.Errorf("format query: %w", err)
	}
	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	log.Debugf("executing %s", cmd.Text)
	start := time.Now()
	sqlRows, err := l.conn.QueryContext(ctx, cmd.Text, cmd.Args()...)
	if err != nil {
		return nil, fmt.Errorf("execute query: %w", err)
	}
	reader, err := NewRows(sqlRows)
	if err != nil {
		_ = sqlRows.Close()
		return nil, err
	}
	defer reader.Close()

	mappings := fieldMappings(q, reader.Names)
	seen := make(map[*db.Row]struct{})
	var result []*db.Row
	for {
		ok, err := reader.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		for i, qt := range q.Tables() {
			if !present(qt.Table, reader, mappings[i]) {
				continue
			}
			row, err := qt.Table.Load(reader, mappings[i])
			if err != nil {
				return nil, fmt.Errorf("load %s: %w", qt.Table.Name(), err)
			}
			if i > 0 {
				continue
			}
			if _, dup := seen[row]; !dup {
				seen[row] = struct{}{}
				result = append(result, row)
			}
		}
	}
	gometrics.GetOrRegisterTimer(MetricQueryTime, l.registry).UpdateSince(start)
	gometrics.GetOrRegisterMeter(MetricRows, l.registry).Mark(int64(len(result)))
	log.Debugf("loaded %d %s rows in %s", len(result), q.Base().Table.Name(), time.Since(start))
	return result, nil
}

// fieldMappings assigns the result fields to the columns of each query
// table. Expanded fields "{ordinal}.{name}" go to the table at that ordinal,
// plain names to the base table.
func fieldMappings(q *query.Query, names []string) [][]db.Column {
	tables := q.Tables()
	mappings := make([][]db.Column, len(tables))
	for i := range mappings {
		mappings[i] = make([]db.Column, len(names))
	}
	for f, name := range names {
		ordinal, column := 0, name
		if len(tables) > 1 {
			if dot := strings.IndexByte(name, '.'); dot > 0 {
				if n, err := strconv.Atoi(name[:dot]); err == nil && n < len(tables) {
					ordinal, column = n, name[dot+1:]
				}
			}
		}
		mappings[ordinal][f] = tables[ordinal].Table.ParseColumn(column)
	}
	return mappings
}

// present reports whether the record carries a row of t. A table without
// mapped fields or with a null primary key (outer join miss) is absent.
func present(t *db.Table, r db.RowReader, mapping []db.Column) bool {
	found := false
	for f, c := range mapping {
		if c == nil {
			continue
		}
		found = true
		if c == t.PrimaryKey() && r.IsNull(f) {
			return false
		}
	}
	return found
}

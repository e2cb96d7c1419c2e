package source

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/ValentinKolb/dQuery/lib/db"
	"github.com/ValentinKolb/dQuery/lib/query"
	"github.com/ValentinKolb/dQuery/lib/query/dialect"
	gometrics "github.com/rcrowley/go-metrics"
	_ "modernc.org/sqlite"
)

const fixtureSQL = `
create table department (id integer primary key, title text not null);
create table person (
	id integer primary key,
	name text not null,
	age integer,
	active integer not null,
	department_id integer references department(id)
);
insert into department values (1, 'R&D'), (2, 'Sales');
insert into person values
	(1, 'Alice', 34, 1, 1),
	(2, 'Bob', 17, 1, 2),
	(3, 'Carol', 51, 0, 1),
	(4, 'Dave', null, 1, null);
`

type fixture struct {
	conn       *sql.DB
	department *db.Table
	person     *db.Table
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	conn, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	// every connection of an in-memory database is a new database
	conn.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = conn.Close() })
	if _, err := conn.Exec(fixtureSQL); err != nil {
		t.Fatalf("Exec fixture failed: %v", err)
	}

	f := &fixture{conn: conn}
	schema := db.NewSchema("company")
	f.department, err = db.NewTable("department",
		db.MustColumn("id", db.Type(db.KindInt32), db.WithKeys(db.KeyPrimary)),
		db.MustColumn("title", db.Type(db.KindString)),
	)
	if err != nil {
		t.Fatalf("NewTable failed: %v", err)
	}
	f.person, err = db.NewTable("person",
		db.MustColumn("id", db.Type(db.KindInt32), db.WithKeys(db.KeyPrimary)),
		db.MustColumn("name", db.Type(db.KindString)),
		db.MustColumn("age", db.NullableType(db.KindInt32)),
		db.MustColumn("active", db.Type(db.KindBool)),
		db.MustColumn("department_id", db.NullableType(db.KindInt32), db.WithReferenceName("department")),
	)
	if err != nil {
		t.Fatalf("NewTable failed: %v", err)
	}
	for _, table := range []*db.Table{f.department, f.person} {
		if err := schema.AddTable(table); err != nil {
			t.Fatalf("AddTable failed: %v", err)
		}
	}
	return f
}

func names(rows []*db.Row) []string {
	out := make([]string, len(rows))
	for i, row := range rows {
		out[i] = db.ToString(row.Get("name"))
	}
	return out
}

func TestRows(t *testing.T) {
	f := newFixture(t)
	sqlRows, err := f.conn.Query("select id, name, age from person order by id")
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	r, err := NewRows(sqlRows)
	if err != nil {
		t.Fatalf("NewRows failed: %v", err)
	}
	defer r.Close()

	if r.FieldCount() != 3 || r.FieldName(1) != "name" {
		t.Fatalf("Unexpected fields %v", r.Names)
	}
	var count int
	for {
		ok, err := r.Next()
		if err != nil {
			t.Fatalf("Next failed: %v", err)
		}
		if !ok {
			break
		}
		count++
		if count == 1 {
			if id, err := r.GetInt64(0); err != nil || id != 1 {
				t.Errorf("Expected id 1, got %d (%v)", id, err)
			}
			if name, _ := r.GetString(1); name != "Alice" {
				t.Errorf("Expected Alice, got %s", name)
			}
		}
		if count == 4 && !r.IsNull(2) {
			t.Errorf("Expected null age for Dave, got %v", r.GetValue(2))
		}
	}
	if count != 4 {
		t.Errorf("Expected 4 records, got %d", count)
	}
}

func TestLoad(t *testing.T) {
	t.Run("Filter", func(t *testing.T) {
		f := newFixture(t)
		l := NewLoader(f.conn, dialect.SQLite)
		q := query.New(f.person).
			Where(f.person.Column("active"), db.Equal, true).
			And(f.person.Column("name"), db.Like, "%a%").
			OrderBy(f.person.Column("name"), false)

		rows, err := l.Load(context.Background(), q)
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		got := names(rows)
		if len(got) != 2 || got[0] != "Alice" || got[1] != "Dave" {
			t.Errorf("Expected [Alice Dave], got %v", got)
		}
		if f.person.Count() != 2 {
			t.Errorf("Expected 2 loaded rows, got %d", f.person.Count())
		}
		for _, row := range rows {
			if state := f.person.CheckState(row); state != db.RowDefault {
				t.Errorf("Expected loaded row in default state, got %v", state)
			}
		}
	})

	t.Run("Reload", func(t *testing.T) {
		f := newFixture(t)
		l := NewLoader(f.conn, nil)
		q := query.New(f.person)
		first, err := l.Load(context.Background(), q)
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if _, err := f.conn.Exec("update person set name = 'Bobby' where id = 2"); err != nil {
			t.Fatalf("Exec failed: %v", err)
		}
		second, err := l.Load(context.Background(), q)
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if f.person.Count() != 4 || len(first) != 4 || len(second) != 4 {
			t.Fatalf("Expected rows to be refreshed in place, have %d", f.person.Count())
		}
		row, err := f.person.LoadByPrimary(int32(2))
		if err != nil || row == nil {
			t.Fatalf("LoadByPrimary failed: %v", err)
		}
		if name := row.Get("name"); name != "Bobby" {
			t.Errorf("Expected refreshed name, got %v", name)
		}
	})

	t.Run("Join", func(t *testing.T) {
		f := newFixture(t)
		l := NewLoader(f.conn, dialect.SQLite)
		q := query.New(f.person).
			Join(query.JoinLeft, f.person.Column("department_id")).
			OrderBy(f.person.Column("id"), false)

		rows, err := l.Load(context.Background(), q)
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if len(rows) != 4 {
			t.Fatalf("Expected 4 people, got %d", len(rows))
		}
		if f.department.Count() != 2 {
			t.Errorf("Expected both departments loaded once, got %d", f.department.Count())
		}
		dept, err := f.department.LoadByPrimary(int32(2))
		if err != nil || dept == nil || dept.Get("title") != "Sales" {
			t.Errorf("Expected Sales department, got %v (%v)", dept, err)
		}
	})

	t.Run("Metrics", func(t *testing.T) {
		f := newFixture(t)
		registry := gometrics.NewRegistry()
		l := NewLoader(f.conn, dialect.SQLite, WithRegistry(registry))
		if _, err := l.Load(context.Background(), query.New(f.person)); err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		timer, ok := registry.Get(MetricQueryTime).(gometrics.Timer)
		if !ok || timer.Count() != 1 {
			t.Errorf("Expected one timed query")
		}
		meter, ok := registry.Get(MetricRows).(gometrics.Meter)
		if !ok || meter.Count() != 4 {
			t.Errorf("Expected 4 rows metered")
		}
	})

	t.Run("Errors", func(t *testing.T) {
		f := newFixture(t)
		l := NewLoader(f.conn, dialect.SQLite)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if _, err := l.Load(ctx, query.New(f.person)); !errors.Is(err, context.Canceled) {
			t.Errorf("Expected context.Canceled, got %v", err)
		}

		// person has no item type column
		broken := query.New(f.person).TypeFilter(1)
		if _, err := l.Load(context.Background(), broken); !errors.Is(err, query.ErrUnknownColumn) {
			t.Errorf("Expected ErrUnknownColumn, got %v", err)
		}
		counter, ok := l.Registry().Get(MetricErrors).(gometrics.Counter)
		if !ok || counter.Count() != 2 {
			t.Errorf("Expected 2 counted errors")
		}
	})
}

func TestFieldMappings(t *testing.T) {
	f := newFixture(t)
	q := query.New(f.person).Join(query.JoinInner, f.person.Column("department_id"))
	m := fieldMappings(q, []string{"0.id", "1.title", "name", "9.x"})
	if m[0][0] != f.person.Column("id") || m[1][1] != f.department.Column("title") {
		t.Errorf("Expanded fields not routed by ordinal")
	}
	if m[0][2] != f.person.Column("name") {
		t.Errorf("Plain field not mapped to the base table")
	}
	if m[0][3] != nil || m[1][3] != nil {
		t.Errorf("Unknown field must stay unmapped")
	}
}

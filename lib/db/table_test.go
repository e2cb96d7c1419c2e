package db_test

import (
	"errors"
	"testing"

	"github.com/ValentinKolb/dQuery/lib/db"
)

// newCompany builds department <- person with a reference column
func newCompany(t *testing.T) (*db.Schema, *db.Table, *db.Table) {
	t.Helper()
	schema := db.NewSchema("company")

	department, err := db.NewTable("department",
		db.MustColumn("id", db.Type(db.KindInt32), db.WithKeys(db.KeyPrimary)),
		db.MustColumn("title", db.Type(db.KindString)),
	)
	if err != nil {
		t.Fatalf("NewTable failed: %v", err)
	}
	person, err := db.NewTable("person",
		db.MustColumn("id", db.Type(db.KindInt32), db.WithKeys(db.KeyPrimary)),
		db.MustColumn("name", db.Type(db.KindString), db.WithProperty("FullName")),
		db.MustColumn("age", db.NullableType(db.KindInt32)),
		db.MustColumn("department_id", db.NullableType(db.KindInt32), db.WithReferenceName("department"), db.WithProperty("Department")),
	)
	if err != nil {
		t.Fatalf("NewTable failed: %v", err)
	}
	for _, table := range []*db.Table{department, person} {
		if err := schema.AddTable(table); err != nil {
			t.Fatalf("AddTable failed: %v", err)
		}
	}
	return schema, department, person
}

func TestTableColumns(t *testing.T) {
	_, department, person := newCompany(t)

	if c := person.ParseColumn("fullname"); c == nil || c.Name() != "name" {
		t.Errorf("Expected lookup by property, got %v", c)
	}
	if person.Column("FullName") != nil {
		t.Errorf("Expected Column to match names only")
	}
	if person.PrimaryKey() == nil || person.PrimaryKey().Name() != "id" {
		t.Errorf("Expected id as primary key")
	}

	err := person.AddColumn(db.MustColumn("NAME", db.Type(db.KindString)))
	if !errors.Is(err, db.ErrDuplicateColumn) {
		t.Errorf("Expected ErrDuplicateColumn, got %v", err)
	}
	err = department.AddColumn(person.Column("age"))
	if !errors.Is(err, db.ErrColumnAttached) {
		t.Errorf("Expected ErrColumnAttached, got %v", err)
	}
	if errors.Is(err, db.ErrDuplicateColumn) {
		t.Errorf("Expected codes to distinguish errors")
	}
}

func TestReferences(t *testing.T) {
	schema, department, person := newCompany(t)
	ref := person.Column("department_id")

	if !ref.IsReference() || !ref.IsIndexed() {
		t.Errorf("Expected reference column to be indexed, keys %s", ref.Keys())
	}
	if ref.ReferenceTable() != department {
		t.Errorf("Expected reference to resolve through the schema")
	}
	referencing := schema.Referencing(department)
	if len(referencing) != 1 || referencing[0] != ref {
		t.Errorf("Expected department to be referenced by person.department_id, got %v", referencing)
	}
	if len(person.Referencing()) != 0 {
		t.Errorf("Expected person not to be referenced")
	}

	dep := department.NewRow()
	_ = dep.Set("id", 7)
	_ = department.Add(dep)

	p := person.NewRow()
	if err := ref.SetValue(p, dep); err != nil {
		t.Fatalf("SetValue with a row failed: %v", err)
	}
	if got := ref.GetValue(p); got != int32(7) {
		t.Errorf("Expected the referenced row to parse to its primary key, got %v", got)
	}
}

func TestRowLifecycle(t *testing.T) {
	_, _, person := newCompany(t)
	name := person.Column("name")

	row := person.NewRow()
	if row.State() != db.RowDetached {
		t.Errorf("Expected Detached, got %s", row.State())
	}
	_ = row.Set("id", 1)
	_ = row.Set("name", "Alice")
	if err := person.Add(row); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if row.State() != db.RowNew {
		t.Errorf("Expected New, got %s", row.State())
	}
	if err := person.Add(row); !errors.Is(err, db.ErrInvalidOperation) {
		t.Errorf("Expected adding twice to fail, got %v", err)
	}

	_ = row.Set("name", "Alicia")
	if name.IsChanged(row) {
		t.Errorf("Expected writes to new rows not to be tracked")
	}

	row.Accept()
	if row.State() != db.RowDefault {
		t.Errorf("Expected Default after accept, got %s", row.State())
	}

	_ = row.Set("name", "Ally")
	if row.State() != db.RowEdit || !row.IsChanged() {
		t.Errorf("Expected Edit after write, got %s", row.State())
	}
	if old, _ := name.OldValue(row); old != "Alicia" {
		t.Errorf("Expected old value Alicia, got %v", old)
	}
	if err := row.Reject(); err != nil {
		t.Fatalf("Reject failed: %v", err)
	}
	if got := row.Get("FullName"); got != "Alicia" {
		t.Errorf("Expected rejected value Alicia, got %v", got)
	}

	fresh := person.NewRow()
	_ = person.Add(fresh)
	if err := fresh.Reject(); err != nil {
		t.Fatalf("Reject of new row failed: %v", err)
	}
	if fresh.State() != db.RowDeleted || fresh.Attached() || person.Count() != 1 {
		t.Errorf("Expected rejecting a new row to remove it, state %s, count %d", fresh.State(), person.Count())
	}

	other, _ := db.NewTable("other", db.MustColumn("name", db.Type(db.KindString)))
	if err := other.Add(row); !errors.Is(err, db.ErrRowTable) {
		t.Errorf("Expected ErrRowTable, got %v", err)
	}
	if err := row.Set("missing", 1); !errors.Is(err, db.ErrUnknownColumn) {
		t.Errorf("Expected ErrUnknownColumn, got %v", err)
	}
}

func TestColumnAcceptReject(t *testing.T) {
	_, _, person := newCompany(t)
	name, age := person.Column("name"), person.Column("age")

	row := person.NewRow()
	_ = row.Set("id", 1)
	_ = row.Set("name", "Alice")
	_ = row.Set("age", 30)
	if err := person.Add(row); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	row.Accept()

	t.Run("RejectOnlyEdit", func(t *testing.T) {
		_ = row.Set("name", "Zed")
		name.Reject(row)
		if got := row.Get("name"); got != "Alice" {
			t.Errorf("Expected rejected value Alice, got %v", got)
		}
		if name.IsChanged(row) || row.State() != db.RowDefault {
			t.Errorf("Expected Default after rejecting the only edit, got %s", row.State())
		}
	})

	t.Run("RejectOneOfTwo", func(t *testing.T) {
		_ = row.Set("name", "Zed")
		_ = row.Set("age", 31)
		name.Reject(row)
		if row.State() != db.RowEdit {
			t.Errorf("Expected Edit while age is still changed, got %s", row.State())
		}
		age.Accept(row)
		if row.State() != db.RowDefault {
			t.Errorf("Expected Default after accepting the last edit, got %s", row.State())
		}
		if got := row.Get("age"); got != int32(31) {
			t.Errorf("Expected accepted age 31, got %v (%T)", got, got)
		}
	})

	t.Run("Detached", func(t *testing.T) {
		detached := person.NewRow()
		name.Reject(detached)
		name.Accept(detached)
		if detached.State() != db.RowDetached {
			t.Errorf("Expected Detached, got %s", detached.State())
		}
	})
}

func TestLoad(t *testing.T) {
	_, _, person := newCompany(t)
	reader := db.NewValuesReader(
		[]string{"id", "name", "age", "ignored"},
		[]any{int64(1), "Bob", nil, "x"},
	)

	row, err := person.Load(reader, nil)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if row.State() != db.RowDefault || row.IsChanged() {
		t.Errorf("Expected a clean loaded row, got %s", row.State())
	}
	if row.Get("name") != "Bob" || row.Get("age") != nil {
		t.Errorf("Unexpected values: %v, %v", row.Get("name"), row.Get("age"))
	}

	_ = row.Set("name", "Robert")
	reader.Reset([]any{int64(1), "Bobby", int64(31), nil})
	again, err := person.Load(reader, nil)
	if err != nil {
		t.Fatalf("Reload failed: %v", err)
	}
	if again != row || person.Count() != 1 {
		t.Errorf("Expected reload to refresh the existing row")
	}
	if row.Get("name") != "Bobby" || row.Get("age") != int32(31) || row.State() != db.RowDefault {
		t.Errorf("Expected refreshed values, got %v, %v (%s)", row.Get("name"), row.Get("age"), row.State())
	}

	found, err := person.LoadByPrimary("1")
	if err != nil || found != row {
		t.Errorf("Expected LoadByPrimary to find the row, got %v, %v", found, err)
	}

	reader.Reset([]any{"x", "Bad", nil, nil})
	if _, err := person.Load(reader, nil); !errors.Is(err, db.ErrParse) {
		t.Errorf("Expected parse error for a bad key, got %v", err)
	}

	noKey, _ := db.NewTable("log", db.MustColumn("line", db.Type(db.KindString)))
	if _, err := noKey.LoadByPrimary(1); !errors.Is(err, db.ErrNoPrimaryKey) {
		t.Errorf("Expected ErrNoPrimaryKey, got %v", err)
	}
}

func TestProperties(t *testing.T) {
	_, _, person := newCompany(t)
	person.RegisterProperty("Greeting", func(r *db.Row) any {
		return "Hello " + r.Get("name").(string)
	})

	row := person.NewRow()
	_ = row.Set("name", "Eve")
	if got := row.Get("greeting"); got != "Hello Eve" {
		t.Errorf("Expected property value, got %v", got)
	}
	if row.Get("nothing") != nil {
		t.Errorf("Expected nil for unknown names")
	}
}

func TestCanonicalOrder(t *testing.T) {
	_, _, person := newCompany(t)
	a, b := person.NewRow(), person.NewRow()
	_ = a.Set("id", 2)
	_ = b.Set("id", 1)
	if person.Compare(a, b) <= 0 || person.Compare(b, a) >= 0 {
		t.Errorf("Expected order by primary key")
	}
	_ = b.Set("id", 2)
	if person.Compare(a, b) >= 0 {
		t.Errorf("Expected ties broken by slot")
	}
}

func TestInfo(t *testing.T) {
	_, _, person := newCompany(t)
	for i := 0; i < 300; i++ {
		row := person.NewRow()
		_ = row.Set("id", i)
		_ = person.Add(row)
	}
	info := person.Info()
	if info.Rows != 300 || len(info.Columns) != 4 {
		t.Fatalf("Unexpected info: %+v", info)
	}
	id := info.Columns[0]
	if id.Blocks != 2 || id.Index == nil || id.Index.Entries != 300 {
		t.Errorf("Unexpected column info: %+v", id)
	}
}

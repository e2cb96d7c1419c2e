package schemafile

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/ValentinKolb/dQuery/lib/db"
)

const company = `
name: company
tables:
  - name: department
    blockSize: 64
    columns:
      - {name: id, type: int32, keys: [primary]}
      - {name: title, type: varchar, size: 200}
  - name: person
    columns:
      - {name: id, type: bigint, keys: [primary]}
      - {name: name, type: string, property: FullName, keys: [view]}
      - {name: department_id, type: int32, nullable: true, reference: department}
      - name: status
        type: enum
        width: 8
        keys: [state]
        enum: {0: Active, 1: Archived}
      - {name: meta, type: json, serializer: gob, columnType: code}
`

func TestLoad(t *testing.T) {
	schema, err := Load(strings.NewReader(company))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	department, person := schema.Table("department"), schema.Table("person")
	if department == nil || person == nil {
		t.Fatalf("Expected both tables")
	}
	if department.BlockSize() != 64 {
		t.Errorf("Expected block size 64, got %d", department.BlockSize())
	}
	if pk := person.PrimaryKey(); pk == nil || pk.DataType().Kind != db.KindInt64 {
		t.Errorf("Expected int64 primary key")
	}
	ref := person.Column("department_id")
	if ref.ReferenceTable() != department || !ref.DataType().Nullable {
		t.Errorf("Expected nullable reference to department")
	}
	if person.StatusKey() == nil || person.StatusKey().Name() != "status" {
		t.Errorf("Expected status column")
	}
	if person.ParseColumn("fullname") == nil {
		t.Errorf("Expected property lookup")
	}
	if person.Column("meta").IsQueryable() {
		t.Errorf("Expected code column not to be queryable")
	}

	row := person.NewRow()
	if err := row.Set("status", "archived"); err != nil {
		t.Fatalf("Set enum by name failed: %v", err)
	}
	if got := person.Column("status").DisplayValue(row.Get("status")); got != "Archived" {
		t.Errorf("Expected enum display name, got %q", got)
	}
}

func TestLoadErrors(t *testing.T) {
	cases := map[string]string{
		"unknown kind":      "tables: [{name: t, columns: [{name: c, type: banana}]}]",
		"unknown key":       "tables: [{name: t, columns: [{name: c, type: int32, keys: [shiny]}]}]",
		"unknown field":     "tables: [{name: t, colour: red}]",
		"dangling ref":      "tables: [{name: t, columns: [{name: c, type: int32, reference: nowhere}]}]",
		"duplicate column":  "tables: [{name: t, columns: [{name: c, type: int32}, {name: C, type: string}]}]",
		"bad serializer":    "tables: [{name: t, columns: [{name: c, type: object, serializer: xml}]}]",
		"bad column type":   "tables: [{name: t, columns: [{name: c, type: int32, columnType: magic}]}]",
		"unsupported width": "tables: [{name: t, columns: [{name: c, type: enum, width: 3}]}]",
	}
	for name, text := range cases {
		if _, err := Load(strings.NewReader(text)); err == nil {
			t.Errorf("%s: expected an error", name)
		}
	}

	_, err := Load(strings.NewReader(cases["dangling ref"]))
	if !errors.Is(err, db.ErrUnknownTable) {
		t.Errorf("Expected ErrUnknownTable, got %v", err)
	}
}

func TestDescribeRoundTrip(t *testing.T) {
	schema, err := Load(strings.NewReader(company))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	var buf bytes.Buffer
	if err := Describe(schema).Write(&buf); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	again, err := Load(&buf)
	if err != nil {
		t.Fatalf("Reload of described schema failed: %v\n%s", err, buf.String())
	}
	for _, table := range schema.Tables() {
		other := again.Table(table.Name())
		if other == nil || len(other.Columns()) != len(table.Columns()) {
			t.Fatalf("Expected table %s to survive the round trip", table.Name())
		}
		for i, c := range table.Columns() {
			o := other.Columns()[i]
			if o.Name() != c.Name() || o.DataType() != c.DataType() || o.Keys() != c.Keys() {
				t.Errorf("Column %s changed: %s %s -> %s %s", c.Name(), c.DataType(), c.Keys(), o.DataType(), o.Keys())
			}
		}
	}
}

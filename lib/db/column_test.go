package db_test

import (
	"errors"
	"testing"
	"time"

	"github.com/ValentinKolb/dQuery/lib/db"
	"github.com/ValentinKolb/dQuery/lib/db/pull"
	"github.com/ValentinKolb/dQuery/lib/db/serializer"
	dbtesting "github.com/ValentinKolb/dQuery/lib/db/testing"
	"github.com/google/uuid"
)

type point struct {
	X, Y int
}

func factory(name string, dt db.DataType, opts ...db.ColumnOption) dbtesting.ColumnFactory {
	return func() db.Column {
		return db.MustColumn(name, dt, opts...)
	}
}

func TestColumnKinds(t *testing.T) {
	day := time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)
	indexed := db.WithKeys(db.KeyIndexing)

	cases := []struct {
		name    string
		factory dbtesting.ColumnFactory
		samples []any
	}{
		{"bool", factory("flag", db.Type(db.KindBool)), []any{true, false}},
		{"int8", factory("n", db.Type(db.KindInt8), indexed), []any{int8(-3), 0, "7"}},
		{"int16", factory("n", db.Type(db.KindInt16)), []any{-300, 0, 300}},
		{"int32", factory("n", db.Type(db.KindInt32), indexed), []any{18, 21, 30, int64(42)}},
		{"int64", factory("n", db.Type(db.KindInt64), indexed), []any{int64(-1 << 40), 0, "123456789012"}},
		{"uint8", factory("n", db.Type(db.KindUint8)), []any{0, 200, uint8(255)}},
		{"uint16", factory("n", db.Type(db.KindUint16)), []any{1, 65535}},
		{"uint32", factory("n", db.Type(db.KindUint32), indexed), []any{1, 2, uint32(4000000000)}},
		{"uint64", factory("n", db.Type(db.KindUint64)), []any{uint64(1 << 63), 5}},
		{"float32", factory("f", db.Type(db.KindFloat32)), []any{0.5, -1.25, 3}},
		{"float64", factory("f", db.Type(db.KindFloat64), indexed), []any{0.1, 2.5, -7.75, 1e10}},
		{"string", factory("s", db.Type(db.KindString), indexed), []any{"Bob", "O'Brien", "", "ünïcode"}},
		{"datetime", factory("d", db.Type(db.KindDateTime), indexed), []any{day, day.Add(time.Hour), "2024-03-05T00:00:00Z"}},
		{"timespan", factory("ts", db.Type(db.KindTimeSpan)), []any{time.Second, "90m", int64(5)}},
		{"bytes", factory("b", db.Type(db.KindBytes), indexed), []any{[]byte{1, 2, 3}, []byte("text"), "0xff00"}},
		{"uuid", factory("id", db.Type(db.KindUUID), db.WithKeys(db.KeyPrimary)), []any{
			uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8"),
			"6ba7b811-9dad-11d1-80b4-00c04fd430c8",
		}},
		{"enum8", factory("e", db.EnumType(8), db.WithEnumNames(map[int64]string{0: "Off", 1: "On"})), []any{"on", 0}},
		{"enum32", factory("e", db.EnumType(32), indexed, db.WithEnumNames(map[int64]string{1: "Low", 2: "High"})), []any{1, "high", 7}},
		{"enum64", factory("e", db.EnumType(64)), []any{1, 2}},
		{"object-json", factory("o", db.Type(db.KindObject), db.WithObjectType(point{})), []any{point{1, 2}, point{3, 4}, `{"X":5,"Y":6}`}},
		{"object-gob", factory("o", db.Type(db.KindObject), db.WithObjectType(&point{}), db.WithSerializer(serializer.NewGOBSerializer())), []any{point{1, 2}, point{3, 4}}},
		{"nullable-int32", factory("n", db.NullableType(db.KindInt32), indexed), []any{1, 2, nil}},
		{"nullable-string", factory("s", db.NullableType(db.KindString)), []any{"a", "b", nil}},
		{"nullable-datetime", factory("d", db.NullableType(db.KindDateTime)), []any{day, nil}},
	}

	for _, tc := range cases {
		dbtesting.RunColumnTests(t, tc.name, tc.factory, tc.samples)
	}
}

func BenchmarkColumns(b *testing.B) {
	dbtesting.RunColumnBenchmarks(b, "int32", factory("n", db.Type(db.KindInt32), db.WithKeys(db.KeyIndexing)), []any{1, 2, 3, 4})
	dbtesting.RunColumnBenchmarks(b, "string", factory("s", db.Type(db.KindString)), []any{"a", "b", "c"})
}

func TestParseErrors(t *testing.T) {
	c := db.MustColumn("age", db.Type(db.KindInt32))

	cases := []any{"abc", 1.5, int64(1 << 40), struct{}{}, nil}
	for _, raw := range cases {
		_, err := c.ParseValue(raw)
		if !errors.Is(err, db.ErrParse) {
			t.Errorf("Expected ErrParse for %#v, got %v", raw, err)
			continue
		}
		var pe *db.ParseError
		if !errors.As(err, &pe) {
			t.Fatalf("Expected *ParseError, got %T", err)
		}
		if pe.Column != "age" || pe.Kind != db.KindInt32 {
			t.Errorf("Unexpected parse error context: %+v", pe)
		}
	}

	u8 := db.MustColumn("small", db.Type(db.KindUint8))
	if _, err := u8.ParseValue(-1); !errors.Is(err, db.ErrParse) {
		t.Errorf("Expected ErrParse for negative uint8, got %v", err)
	}
	if _, err := u8.ParseValue(256); !errors.Is(err, db.ErrParse) {
		t.Errorf("Expected ErrParse for overflowing uint8, got %v", err)
	}
}

func TestDocumentedDefaults(t *testing.T) {
	b := db.MustColumn("flag", db.Type(db.KindBool))
	for raw, want := range map[any]bool{"maybe": false, "yes": true, "0": false, 2: true, "": false} {
		v, err := b.ParseValue(raw)
		if err != nil {
			t.Errorf("Expected bool parse of %v to succeed, got %v", raw, err)
		}
		if v != want {
			t.Errorf("Expected %v for %v, got %v", want, raw, v)
		}
	}

	s := db.MustColumn("name", db.Type(db.KindString))
	if v, err := s.ParseValue(nil); err != nil || v != "" {
		t.Errorf("Expected nil string to parse to \"\", got %q, %v", v, err)
	}

	bs := db.MustColumn("data", db.Type(db.KindBytes))
	if v, err := bs.ParseValue(nil); err != nil || v.([]byte) != nil {
		t.Errorf("Expected nil bytes to stay nil, got %v, %v", v, err)
	}
}

func TestCheckValue(t *testing.T) {
	age := db.MustColumn("age", db.Type(db.KindInt32))
	name := db.MustColumn("name", db.NullableType(db.KindString))
	table, err := db.NewTable("person", age, name)
	if err != nil {
		t.Fatalf("NewTable failed: %v", err)
	}
	row := table.NewRow()
	_ = row.Set("age", 21)
	_ = row.Set("name", "Bob")

	cases := []struct {
		column db.Column
		cmp    db.Comparer
		value  any
		want   bool
	}{
		{age, db.Equal, 21, true},
		{age, db.Equal, "21", true},
		{age, db.NotEqual, 21, false},
		{age, db.Greater, 20, true},
		{age, db.Comparer{Type: db.CompareLessOrEqual}, 20, false},
		{age, db.In, []int{18, 21, 30}, true},
		{age, db.In, []any{18, "30"}, false},
		{age, db.Comparer{Type: db.CompareIn, Not: true}, []int64{18, 30}, true},
		{age, db.Between, db.Range{Min: 18, Max: 21}, true},
		{age, db.Between, []any{22, 30}, false},
		{name, db.Like, "b%", true},
		{name, db.Like, "_o_", true},
		{name, db.Like, "al%", false},
		{name, db.Comparer{Type: db.CompareLike, Not: true}, "al%", true},
		{name, db.Is, nil, false},
		{name, db.IsNot, nil, true},
		{name, db.Equal, nil, false},
	}
	for _, tc := range cases {
		got, err := tc.column.CheckValue(row, tc.value, tc.cmp)
		if err != nil {
			t.Errorf("%s %s %v failed: %v", tc.column.Name(), tc.cmp, tc.value, err)
			continue
		}
		if got != tc.want {
			t.Errorf("Expected %s %s %v to be %v", tc.column.Name(), tc.cmp, tc.value, tc.want)
		}
	}

	_ = row.Set("name", nil)
	if ok, _ := name.CheckValue(row, nil, db.Is); !ok {
		t.Errorf("Expected is null after setting nil")
	}
	if ok, _ := name.CheckValue(row, "%", db.Like); ok {
		t.Errorf("Expected like never to match null")
	}

	if _, err := age.CheckValue(row, "abc", db.Equal); !errors.Is(err, db.ErrParse) {
		t.Errorf("Expected parse error for unparsable operand, got %v", err)
	}
}

func TestSetPull(t *testing.T) {
	c := db.MustColumn("id", db.Type(db.KindInt32), db.WithKeys(db.KeyPrimary))
	table, err := db.NewTable("item", c)
	if err != nil {
		t.Fatalf("NewTable failed: %v", err)
	}
	var slots []int
	for i := 0; i < 10; i++ {
		row := table.NewRow()
		row.SetLoading(true)
		_ = row.Set("id", i)
		_ = table.Add(row)
		row.SetLoading(false)
		slots = append(slots, row.Slot())
	}

	typed := c.(*db.DBColumn[int32])
	idx := typed.Index()
	if idx == nil || idx.Len() != 10 {
		t.Fatalf("Expected an index over 10 rows")
	}

	np := pull.New[int32](4)
	typed.Pull().CopyTo(np, slots)
	c.SetPull(np)

	if idx.Attached() {
		t.Errorf("Expected the old index to be detached after the swap")
	}
	if typed.Pull() != np {
		t.Errorf("Expected the new pull to be installed")
	}
	if rebuilt := typed.Index(); rebuilt == idx || rebuilt.Len() != 10 {
		t.Errorf("Expected a rebuilt index over the new pull")
	}
	if row, err := table.LoadByPrimary(3); err != nil || row == nil {
		t.Errorf("Expected lookup through the rebuilt index, got %v, %v", row, err)
	}

	defer func() {
		err, ok := recover().(error)
		if !ok || !errors.Is(err, db.ErrPullType) {
			t.Errorf("Expected a panic with ErrPullType, got %v", err)
		}
	}()
	c.SetPull(pull.New[string](8))
}

package testing

import (
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/ValentinKolb/dQuery/lib/db"
)

// ColumnFactory creates a new, unattached column of the implementation under test
type ColumnFactory func() db.Column

// RunColumnTests runs the conformance suite for a column implementation.
// samples must hold at least two values the column can parse that are all
// distinct from each other.
func RunColumnTests(t *testing.T, name string, factory ColumnFactory, samples []any) {
	t.Run(name, func(t *testing.T) {
		if len(samples) < 2 {
			t.Fatalf("need at least two samples, got %d", len(samples))
		}

		t.Run("Set&Get", func(t *testing.T) {
			testSetGet(t, factory(), samples)
		})

		t.Run("FormatRoundTrip", func(t *testing.T) {
			testFormatRoundTrip(t, factory(), samples)
		})

		t.Run("Compare", func(t *testing.T) {
			testCompare(t, factory(), samples)
		})

		t.Run("Select", func(t *testing.T) {
			testSelect(t, factory(), samples)
		})

		t.Run("OldValues", func(t *testing.T) {
			testOldValues(t, factory(), samples)
		})

		t.Run("Null", func(t *testing.T) {
			testNull(t, factory())
		})

		t.Run("BlockSize", func(t *testing.T) {
			testBlockSize(t, factory(), samples)
		})

		t.Run("ConcurrentWriters", func(t *testing.T) {
			testConcurrentWriters(t, factory(), samples)
		})
	})
}

// --------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------

// newTable attaches c to a fresh table
func newTable(t testing.TB, c db.Column) *db.Table {
	table, err := db.NewTable("conformance", c)
	if err != nil {
		t.Fatalf("NewTable failed: %v", err)
	}
	return table
}

// addRow adds a loaded row holding v
func addRow(t testing.TB, table *db.Table, c db.Column, v any) *db.Row {
	row := table.NewRow()
	row.SetLoading(true)
	if err := c.SetValue(row, v); err != nil {
		t.Fatalf("SetValue(%v) failed: %v", v, err)
	}
	if err := table.Add(row); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	row.SetLoading(false)
	return row
}

// ParseLiteral converts a SQL literal produced by Column.FormatValue back
// into the raw input a parser would hand to the column
func ParseLiteral(lit string) any {
	switch {
	case strings.EqualFold(lit, "null"):
		return nil
	case strings.HasPrefix(lit, "'"):
		return db.UnquoteLiteral(lit)
	default:
		return lit
	}
}

func mustEqual(t testing.TB, c db.Column, row *db.Row, v any) {
	t.Helper()
	ok, err := c.CheckValue(row, v, db.Equal)
	if err != nil {
		t.Fatalf("CheckValue(%v) failed: %v", v, err)
	}
	if !ok {
		t.Errorf("Expected %s to equal %v, got %v", c.Name(), v, c.GetValue(row))
	}
}

// --------------------------------------------------------------------------
// Test functions
// --------------------------------------------------------------------------

func testSetGet(t *testing.T, c db.Column, samples []any) {
	table := newTable(t, c)
	row := table.NewRow()

	for _, s := range samples {
		if err := c.SetValue(row, s); err != nil {
			t.Fatalf("SetValue(%v) failed: %v", s, err)
		}
		mustEqual(t, c, row, s)
		mustEqual(t, c, row, c.GetValue(row))
	}

	other := table.NewRow()
	if err := c.SetValue(other, samples[0]); err != nil {
		t.Fatalf("SetValue failed: %v", err)
	}
	mustEqual(t, c, row, samples[len(samples)-1])

	if _, err := c.ParseValue(struct{ X chan int }{}); err == nil && c.DataType().Kind.IsNumeric() {
		t.Errorf("Expected a parse error for an unsupported type")
	} else if err != nil && !errors.Is(err, db.ErrParse) {
		t.Errorf("Expected ErrParse, got %v", err)
	}
}

func testFormatRoundTrip(t *testing.T, c db.Column, samples []any) {
	table := newTable(t, c)
	row := table.NewRow()

	for _, s := range samples {
		v, err := c.ParseValue(s)
		if err != nil {
			t.Fatalf("ParseValue(%v) failed: %v", s, err)
		}
		lit := c.FormatValue(v)
		back, err := c.ParseValue(ParseLiteral(lit))
		if err != nil {
			t.Fatalf("ParseValue(%q) of formatted literal failed: %v", lit, err)
		}
		if err := c.SetValue(row, v); err != nil {
			t.Fatalf("SetValue failed: %v", err)
		}
		mustEqual(t, c, row, back)
		if again := c.FormatValue(back); again != lit {
			t.Errorf("Expected stable literal %q, got %q", lit, again)
		}
	}
}

func testCompare(t *testing.T, c db.Column, samples []any) {
	table := newTable(t, c)
	a, b := table.NewRow(), table.NewRow()

	for i := range samples {
		for j := range samples {
			_ = c.SetValue(a, samples[i])
			_ = c.SetValue(b, samples[j])
			ab, ba := c.Compare(a, b), c.Compare(b, a)
			if i == j && ab != 0 {
				t.Errorf("Expected equal samples %v to compare 0, got %d", samples[i], ab)
			}
			if i != j && ab == 0 {
				t.Errorf("Expected distinct samples %v and %v to differ", samples[i], samples[j])
			}
			if (ab < 0) != (ba > 0) {
				t.Errorf("Compare is not antisymmetric for %v and %v", samples[i], samples[j])
			}
		}
	}
}

func testSelect(t *testing.T, c db.Column, samples []any) {
	table := newTable(t, c)
	var first []*db.Row // rows holding samples[0]
	for i := 0; i < 3*len(samples); i++ {
		row := addRow(t, table, c, samples[i%len(samples)])
		if i%len(samples) == 0 {
			first = append(first, row)
		}
	}

	for _, s := range samples {
		selected, err := c.Select(s, db.Equal)
		if err != nil {
			t.Fatalf("Select(%v) failed: %v", s, err)
		}
		if len(selected) != 3 {
			t.Errorf("Expected 3 rows for %v, got %d", s, len(selected))
		}
		for _, row := range selected {
			mustEqual(t, c, row, s)
		}
	}

	// move one row and check that the index follows
	moved := first[0]
	if err := c.SetValue(moved, samples[1]); err != nil {
		t.Fatalf("SetValue failed: %v", err)
	}
	if got, _ := c.Select(samples[0], db.Equal); len(got) != 2 {
		t.Errorf("Expected 2 rows for %v after update, got %d", samples[0], len(got))
	}
	if got, _ := c.Select(samples[1], db.Equal); len(got) != 4 {
		t.Errorf("Expected 4 rows for %v after update, got %d", samples[1], len(got))
	}

	in, err := c.Select(samples[:2], db.In)
	if err != nil {
		t.Fatalf("Select in failed: %v", err)
	}
	if len(in) != 6 {
		t.Errorf("Expected 6 rows for in %v, got %d", samples[:2], len(in))
	}

	if err := table.Remove(moved); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if got, _ := c.Select(samples[1], db.Equal); len(got) != 3 {
		t.Errorf("Expected 3 rows for %v after remove, got %d", samples[1], len(got))
	}
}

func testOldValues(t *testing.T, c db.Column, samples []any) {
	table := newTable(t, c)
	row := addRow(t, table, c, samples[0])

	if row.State() != db.RowDefault {
		t.Fatalf("Expected loaded row in state Default, got %s", row.State())
	}
	if c.IsChanged(row) {
		t.Errorf("Expected no change after load")
	}

	_ = c.SetValue(row, samples[1])
	if !c.IsChanged(row) || row.State() != db.RowEdit {
		t.Errorf("Expected edit after write, state %s", row.State())
	}
	old, ok := c.OldValue(row)
	if !ok {
		t.Fatalf("Expected an old value")
	}
	mustEqualValue(t, c, old, samples[0])

	// the first old value is kept
	if len(samples) > 2 {
		_ = c.SetValue(row, samples[2])
		old, _ = c.OldValue(row)
		mustEqualValue(t, c, old, samples[0])
	}

	// writing the old value back is not a change
	_ = c.SetValue(row, samples[0])
	if c.IsChanged(row) || row.State() != db.RowDefault {
		t.Errorf("Expected revert to clear the change, state %s", row.State())
	}

	_ = c.SetValue(row, samples[1])
	if err := row.Reject(); err != nil {
		t.Fatalf("Reject failed: %v", err)
	}
	mustEqual(t, c, row, samples[0])
	if row.State() != db.RowDefault {
		t.Errorf("Expected Default after reject, got %s", row.State())
	}
	if got, _ := c.Select(samples[0], db.Equal); len(got) != 1 {
		t.Errorf("Expected index to follow reject, got %d rows", len(got))
	}

	_ = c.SetValue(row, samples[1])
	row.Accept()
	if c.IsChanged(row) || row.State() != db.RowDefault {
		t.Errorf("Expected accept to clear the change")
	}
	mustEqual(t, c, row, samples[1])
}

func mustEqualValue(t testing.TB, c db.Column, got, want any) {
	t.Helper()
	if c.FormatValue(got) != c.FormatValue(want) {
		t.Errorf("Expected %s, got %s", c.FormatValue(want), c.FormatValue(got))
	}
}

func testNull(t *testing.T, c db.Column) {
	if !c.DataType().Nullable {
		t.Skip()
	}
	table := newTable(t, c)
	row := table.NewRow()

	if err := c.SetValue(row, nil); err != nil {
		t.Fatalf("SetValue(nil) failed: %v", err)
	}
	if !c.IsNull(row) || c.GetValue(row) != nil {
		t.Errorf("Expected null, got %v", c.GetValue(row))
	}
	if ok, _ := c.CheckValue(row, nil, db.Is); !ok {
		t.Errorf("Expected is null to match")
	}
	if ok, _ := c.CheckValue(row, nil, db.IsNot); ok {
		t.Errorf("Expected is not null not to match")
	}
	if lit := c.FormatValue(nil); lit != "null" {
		t.Errorf("Expected null literal, got %q", lit)
	}
}

func testBlockSize(t *testing.T, c db.Column, samples []any) {
	table := newTable(t, c)
	var rows []*db.Row
	for i := 0; i < 100; i++ {
		rows = append(rows, addRow(t, table, c, samples[i%len(samples)]))
	}

	table.SetBlockSize(7)
	if c.Info().Blocks == 0 {
		t.Errorf("Expected storage after resize")
	}
	for i, row := range rows {
		mustEqual(t, c, row, samples[i%len(samples)])
	}
	if got, _ := c.Select(samples[0], db.Equal); len(got) != (100+len(samples)-1)/len(samples) {
		t.Errorf("Expected select after resize to find all rows, got %d", len(got))
	}
}

func testConcurrentWriters(t *testing.T, c db.Column, samples []any) {
	table := newTable(t, c)
	const workers, perWorker = 8, 200

	var wg sync.WaitGroup
	rows := make([][]*db.Row, workers)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				row := table.NewRow()
				row.SetLoading(true)
				_ = c.SetValue(row, samples[(w+i)%len(samples)])
				_ = table.Add(row)
				row.SetLoading(false)
				rows[w] = append(rows[w], row)
			}
		}(w)
	}
	wg.Wait()

	if table.Count() != workers*perWorker {
		t.Fatalf("Expected %d rows, got %d", workers*perWorker, table.Count())
	}
	for w := range rows {
		for i, row := range rows[w] {
			mustEqual(t, c, row, samples[(w+i)%len(samples)])
		}
	}
	total := 0
	for _, s := range samples {
		got, err := c.Select(s, db.Equal)
		if err != nil {
			t.Fatalf("Select failed: %v", err)
		}
		total += len(got)
	}
	if total != workers*perWorker {
		t.Errorf("Expected selects to cover %d rows, got %d", workers*perWorker, total)
	}
}

package util

import (
	"strings"
	"testing"

	"github.com/ValentinKolb/dQuery/lib/db/schemafile"
	"github.com/spf13/viper"
)

func TestWrapString(t *testing.T) {
	text := strings.Repeat("word ", 30)
	for _, line := range strings.Split(WrapString(text), "\n") {
		if len(line) > Wrap {
			t.Errorf("Line exceeds %d characters: %q", Wrap, line)
		}
	}
	if got := WrapString("short text"); got != "short text" {
		t.Errorf("Unexpected wrap of short text: %q", got)
	}
}

func TestParseQuery(t *testing.T) {
	schema, err := schemafile.Load(strings.NewReader(`
name: shop
tables:
  - name: item
    columns:
      - {name: id, type: int64, keys: [primary]}
      - {name: label, type: string}
`))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	defer viper.Set("table", "")

	viper.Set("table", "")
	if _, err := ParseQuery(schema, "label = 'x'"); err == nil {
		t.Errorf("Expected error for a predicate without table")
	}
	if q, err := ParseQuery(schema, "select id from item where label = 'x'"); err != nil || q.Base().Table.Name() != "item" {
		t.Errorf("Expected from clause to bind the table, got %v", err)
	}

	viper.Set("table", "item")
	if _, err := ParseQuery(schema, "label = 'x'"); err != nil {
		t.Errorf("ParseQuery failed: %v", err)
	}
	viper.Set("table", "order")
	if _, err := ParseQuery(schema, "label = 'x'"); err == nil {
		t.Errorf("Expected error for unknown table")
	}
}

package dialect

import "testing"

func TestByName(t *testing.T) {
	for _, name := range []string{"sqlite", "postgres", "PostgreSQL", "mysql", "mssql", "sqlserver"} {
		if _, ok := ByName(name); !ok {
			t.Errorf("Expected dialect %q", name)
		}
	}
	if _, ok := ByName("oracle"); ok {
		t.Errorf("Expected unknown dialect to fail")
	}
}

func TestPlaceholders(t *testing.T) {
	cases := []struct {
		d    Dialect
		want string
	}{
		{SQLite, "@name0"},
		{Postgres, "$2"},
		{MySQL, "?"},
		{MSSQL, "@name0"},
	}
	for _, tc := range cases {
		if got := tc.d.Placeholder("@name0", 2); got != tc.want {
			t.Errorf("%s: expected %q, got %q", tc.d.Name(), tc.want, got)
		}
	}
}

func TestQuoteIdentifier(t *testing.T) {
	cases := []struct {
		d    Dialect
		want string
	}{
		{SQLite, `"odd""name"`},
		{Postgres, `"odd""name"`},
		{MySQL, "`odd\"name`"},
		{MSSQL, `[odd"name]`},
	}
	for _, tc := range cases {
		if got := tc.d.QuoteIdentifier(`odd"name`); got != tc.want {
			t.Errorf("%s: expected %s, got %s", tc.d.Name(), tc.want, got)
		}
	}
}

func TestFunctions(t *testing.T) {
	if name, bare := SQLite.Function("getdate"); name != "datetime('now')" || !bare {
		t.Errorf("Unexpected sqlite getdate: %s", name)
	}
	if name, bare := Postgres.Function("lower"); name != "lower" || bare {
		t.Errorf("Expected functions to pass through, got %s", name)
	}
	if name, _ := MSSQL.Function("length"); name != "len" {
		t.Errorf("Expected mssql len, got %s", name)
	}
}

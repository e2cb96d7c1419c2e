package cmd

import (
	"bytes"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const testSchema = `
name: company
tables:
  - name: department
    columns:
      - {name: id, type: int32, keys: [primary]}
      - {name: title, type: string}
  - name: person
    columns:
      - {name: id, type: int32, keys: [primary]}
      - {name: name, type: string}
      - {name: age, type: int32, nullable: true}
      - {name: department_id, type: int32, nullable: true, reference: department}
`

// setup writes the schema file and a sqlite database into a temp dir
func setup(t *testing.T) (schemaPath, dsn string) {
	t.Helper()
	dir := t.TempDir()
	schemaPath = filepath.Join(dir, "schema.yaml")
	if err := os.WriteFile(schemaPath, []byte(testSchema), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	dsn = "file:" + filepath.Join(dir, "test.db")
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer conn.Close()
	_, err = conn.Exec(`
		create table department (id integer primary key, title text);
		create table person (id integer primary key, name text, age integer, department_id integer);
		insert into department values (1, 'R&D'), (2, 'Sales');
		insert into person values (1, 'Alice', 34, 1), (2, 'Bob', 17, 2), (3, 'Carol', 51, 1);
	`)
	if err != nil {
		t.Fatalf("Exec failed: %v", err)
	}
	return schemaPath, dsn
}

func execute(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	RootCmd.SetOut(&out)
	RootCmd.SetErr(&out)
	RootCmd.SetArgs(args)
	if err := RootCmd.Execute(); err != nil {
		t.Fatalf("dq %s failed: %v\n%s", strings.Join(args, " "), err, out.String())
	}
	return out.String()
}

func TestCommands(t *testing.T) {
	schemaPath, dsn := setup(t)

	t.Run("Version", func(t *testing.T) {
		if out := execute(t, "version"); !strings.Contains(out, "dQuery v"+Version) {
			t.Errorf("Unexpected version output %q", out)
		}
	})

	t.Run("Format", func(t *testing.T) {
		out := execute(t, "format", "--schema", schemaPath, "--table", "person", "--dialect", "postgres", "age > 20")
		if !strings.Contains(out, `where "age" > $1`) || !strings.Contains(out, "-- $age0 = 20") {
			t.Errorf("Unexpected format output\n%s", out)
		}
	})

	t.Run("Exec", func(t *testing.T) {
		out := execute(t, "exec", "--schema", schemaPath, "--dsn", dsn, "--verify",
			"select * from person where department.title = 'R&D' order by name")
		for _, want := range []string{"Alice", "Carol", "(2 rows)", "verified 2 rows, 0 mismatches"} {
			if !strings.Contains(out, want) {
				t.Errorf("Expected %q in\n%s", want, out)
			}
		}
		if strings.Contains(out, "Bob") {
			t.Errorf("Unexpected row Bob in\n%s", out)
		}
	})

	t.Run("Schema", func(t *testing.T) {
		out := execute(t, "schema", "--schema", schemaPath, "--relations")
		if !strings.Contains(out, "-> department") || !strings.Contains(out, "<- person.department_id") {
			t.Errorf("Unexpected relations\n%s", out)
		}
	})
}

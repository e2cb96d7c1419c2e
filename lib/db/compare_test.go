package db_test

import (
	"testing"
	"time"

	"github.com/ValentinKolb/dQuery/lib/db"
)

func TestParseComparer(t *testing.T) {
	cases := map[string]db.Comparer{
		"=":        db.Equal,
		"<>":       db.NotEqual,
		"!=":       db.NotEqual,
		">":        db.Greater,
		"not like": {Type: db.CompareLike, Not: true},
		"is not":   db.IsNot,
		"IN":       db.In,
	}
	for text, want := range cases {
		got, ok := db.ParseComparer(text)
		if !ok || got != want {
			t.Errorf("ParseComparer(%q) = %v, %v; want %v", text, got, ok, want)
		}
	}
	if _, ok := db.ParseComparer("=>"); ok {
		t.Errorf("Expected =>  to be rejected")
	}
	if s := (db.Comparer{Type: db.CompareIn, Not: true}).String(); s != "not in" {
		t.Errorf("Unexpected text %q", s)
	}
}

func TestLikeRegexp(t *testing.T) {
	cases := []struct {
		text, pattern string
		want          bool
	}{
		{"Bob", "b%", true},
		{"Bob", "%o%", true},
		{"Bob", "B_", false},
		{"a.b", "a.b", true},
		{"axb", "a.b", false},
		{"50%", "50%", true},
		{"line\nbreak", "line%", true},
	}
	for _, tc := range cases {
		got, err := db.MatchLike(tc.text, tc.pattern)
		if err != nil {
			t.Fatalf("MatchLike failed: %v", err)
		}
		if got != tc.want {
			t.Errorf("MatchLike(%q, %q) = %v", tc.text, tc.pattern, got)
		}
	}
	re1, _ := db.LikeRegexp("x%")
	re2, _ := db.LikeRegexp("x%")
	if re1 != re2 {
		t.Errorf("Expected compiled patterns to be cached")
	}
}

func TestCompareValues(t *testing.T) {
	now := time.Now()
	cases := []struct {
		a, b any
		want int
	}{
		{1, 2, -1},
		{int32(2), 2.0, 0},
		{"10", 9, 1},
		{"abc", "abd", -1},
		{nil, 0, -1},
		{nil, nil, 0},
		{now, now.Add(time.Second), -1},
		{true, false, 1},
		{db.Some(3), 3, 0},
	}
	for _, tc := range cases {
		if got := db.CompareValues(tc.a, tc.b); got != tc.want {
			t.Errorf("CompareValues(%v, %v) = %d, want %d", tc.a, tc.b, got, tc.want)
		}
	}

	ok, err := db.CheckValues(21, db.In, []int{18, 21})
	if err != nil || !ok {
		t.Errorf("Expected 21 in (18, 21)")
	}
	ok, _ = db.CheckValues(5, db.Between, db.Range{Min: 1, Max: 4})
	if ok {
		t.Errorf("Expected 5 not between 1 and 4")
	}
	ok, _ = db.CheckValues(nil, db.IsNot, nil)
	if ok {
		t.Errorf("Expected nil is not null to be false")
	}
}

func TestKeysAndKinds(t *testing.T) {
	k := db.KeyPrimary | db.KeyIndexing
	if k.String() != "Primary|Indexing" {
		t.Errorf("Unexpected keys text %q", k.String())
	}
	parsed, err := db.ParseKeys("primary", " Indexing ")
	if err != nil || parsed != k {
		t.Errorf("ParseKeys = %v, %v", parsed, err)
	}
	if _, err := db.ParseKeys("bogus"); err == nil {
		t.Errorf("Expected unknown key to fail")
	}

	for name, want := range map[string]db.Kind{"int32": db.KindInt32, "varchar": db.KindString, "GUID": db.KindUUID} {
		if got, err := db.ParseKind(name); err != nil || got != want {
			t.Errorf("ParseKind(%q) = %v, %v", name, got, err)
		}
	}
	if s := db.NullableType(db.KindInt64).String(); s != "int64?" {
		t.Errorf("Unexpected data type text %q", s)
	}
	if _, err := db.NewColumn("e", db.EnumType(12)); err == nil {
		t.Errorf("Expected unsupported enum width to fail")
	}
}

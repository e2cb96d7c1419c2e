package db

import (
	"strings"
	"sync"
)

// Schema is the set of tables a query can resolve names against
type Schema struct {
	name   string
	mu     sync.RWMutex
	tables []*Table
	byName map[string]*Table
}

// NewSchema creates an empty schema
func NewSchema(name string) *Schema {
	return &Schema{name: name, byName: make(map[string]*Table)}
}

func (s *Schema) Name() string { return s.name }

// AddTable registers t. A table belongs to at most one schema.
func (s *Schema) AddTable(t *Table) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := strings.ToLower(t.name)
	if _, ok := s.byName[key]; ok {
		return newError(ErrCInvalidOperation, "schema %s already has a table %s", s.name, t.name)
	}
	if t.schema != nil && t.schema != s {
		return newError(ErrCInvalidOperation, "table %s belongs to schema %s", t.name, t.schema.name)
	}
	t.schema = s
	s.tables = append(s.tables, t)
	s.byName[key] = t
	return nil
}

// Table looks up a table by name (case-insensitive), nil if unknown
func (s *Schema) Table(name string) *Table {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.byName[strings.ToLower(name)]
}

// Tables returns the tables in registration order
func (s *Schema) Tables() []*Table {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*Table(nil), s.tables...)
}

// Referencing returns every column of the schema that references t
func (s *Schema) Referencing(t *Table) []Column {
	var result []Column
	for _, other := range s.Tables() {
		for _, c := range other.columns {
			if c.IsReference() && c.ReferenceTable() == t {
				result = append(result, c)
			}
		}
	}
	return result
}

package db

import (
	"fmt"
	"sync/atomic"
)

// RowState is the lifecycle state of a row
type RowState int32

const (
	RowDetached RowState = iota // created, not in the table
	RowNew                      // added, not yet stored in the database
	RowDefault                  // unchanged since load or accept
	RowEdit                     // holds unaccepted edits
	RowDeleted                  // removed from the table
)

func (s RowState) String() string {
	switch s {
	case RowDetached:
		return "Detached"
	case RowNew:
		return "New"
	case RowDefault:
		return "Default"
	case RowEdit:
		return "Edit"
	case RowDeleted:
		return "Deleted"
	default:
		return fmt.Sprintf("RowState(%d)", int32(s))
	}
}

// Row is a record of a table. Its values live in the column pulls at the
// row's slot; the row itself only carries identity and state.
type Row struct {
	table    *Table
	slot     int
	attached atomic.Bool
	loading  atomic.Bool
	state    atomic.Int32
}

func (r *Row) Table() *Table { return r.table }

// Slot returns the storage position of the row, stable for its lifetime
func (r *Row) Slot() int { return r.slot }

func (r *Row) Attached() bool  { return r.attached.Load() }
func (r *Row) State() RowState { return RowState(r.state.Load()) }

// Loading reports whether the row is being filled from a data source.
// Writes during loading are not tracked as edits.
func (r *Row) Loading() bool { return r.loading.Load() }

// SetLoading toggles the loading flag
func (r *Row) SetLoading(loading bool) {
	r.loading.Store(loading)
}

func (r *Row) setState(s RowState) {
	r.state.Store(int32(s))
}

// tracking reports whether writes record old values
func (r *Row) tracking() bool {
	if !r.attached.Load() || r.loading.Load() {
		return false
	}
	s := r.State()
	return s == RowDefault || s == RowEdit
}

func (r *Row) markEdited() {
	r.state.CompareAndSwap(int32(RowDefault), int32(RowEdit))
}

// --------------------------------------------------------------------------
// Values
// --------------------------------------------------------------------------

// Get returns the value of a column or registered property, nil if the
// name is unknown
func (r *Row) Get(name string) any {
	if c := r.table.ParseColumn(name); c != nil {
		return c.GetValue(r)
	}
	if get, ok := r.table.Property(name); ok {
		return get(r)
	}
	return nil
}

// Set parses v and writes it to the named column
func (r *Row) Set(name string, v any) error {
	c := r.table.ParseColumn(name)
	if c == nil {
		return newError(ErrCUnknownColumn, "table %s has no column %q", r.table.name, name)
	}
	return c.SetValue(r, v)
}

// PrimaryKey returns the value of the primary key, nil without one
func (r *Row) PrimaryKey() any {
	if pk := r.table.PrimaryKey(); pk != nil {
		return pk.GetValue(r)
	}
	return nil
}

// IsChanged reports whether any column holds an unaccepted edit
func (r *Row) IsChanged() bool {
	for _, c := range r.table.columns {
		if c.IsChanged(r) {
			return true
		}
	}
	return false
}

// Accept makes the current values the baseline of the row
func (r *Row) Accept() {
	for _, c := range r.table.columns {
		c.Accept(r)
	}
	if r.Attached() {
		r.setState(RowDefault)
	}
}

// Reject restores the baseline of the row. A new row is removed from its
// table.
func (r *Row) Reject() error {
	switch r.State() {
	case RowNew:
		return r.table.Remove(r)
	case RowEdit:
		for _, c := range r.table.columns {
			c.Reject(r)
		}
		r.setState(RowDefault)
	}
	return nil
}

func (r *Row) String() string {
	if pk := r.table.PrimaryKey(); pk != nil {
		return fmt.Sprintf("%s[%s]", r.table.name, pk.DisplayValue(pk.GetValue(r)))
	}
	return fmt.Sprintf("%s#%d", r.table.name, r.slot)
}

package db

import (
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/ValentinKolb/dQuery/lib/db/pull"
	"github.com/puzpuzpuz/xsync/v3"
)

// TableInfo describes the storage state of a table
type TableInfo struct {
	Name      string       `json:"name" yaml:"name"`
	Rows      int          `json:"rows" yaml:"rows"`
	BlockSize int          `json:"blockSize" yaml:"blockSize"`
	Columns   []ColumnInfo `json:"columns" yaml:"columns"`
}

// Table holds the columns and rows of one database table.
//
// Columns and properties are registered while the schema is built and must
// not change afterwards. Rows can be added, removed and written
// concurrently.
type Table struct {
	name       string
	schema     *Schema
	columns    []Column
	byName     map[string]Column
	byProperty map[string]Column
	properties map[string]func(*Row) any
	primary    Column
	typeKey    Column
	statusKey  Column
	blockSize  atomic.Int32

	rowsMu   sync.RWMutex
	rows     []*Row
	bySlot   *xsync.MapOf[int, *Row]
	nextSlot atomic.Int64
}

// NewTable creates an empty table
func NewTable(name string, columns ...Column) (*Table, error) {
	t := &Table{
		name:       name,
		byName:     make(map[string]Column),
		byProperty: make(map[string]Column),
		properties: make(map[string]func(*Row) any),
		bySlot:     xsync.NewMapOf[int, *Row](),
	}
	t.blockSize.Store(pull.DefaultBlockSize)
	for _, c := range columns {
		if err := t.AddColumn(c); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func (t *Table) Name() string    { return t.name }
func (t *Table) Schema() *Schema { return t.schema }
func (t *Table) String() string  { return t.name }

// --------------------------------------------------------------------------
// Columns
// --------------------------------------------------------------------------

// AddColumn attaches c to the table
func (t *Table) AddColumn(c Column) error {
	key := strings.ToLower(c.Name())
	if _, ok := t.byName[key]; ok {
		return newError(ErrCDuplicateColumn, "table %s already has a column %s", t.name, c.Name())
	}
	if err := c.attach(t, len(t.columns)); err != nil {
		return err
	}
	t.columns = append(t.columns, c)
	t.byName[key] = c
	t.byProperty[strings.ToLower(c.Property())] = c

	switch {
	case c.IsPrimary() && t.primary == nil:
		t.primary = c
	case c.Keys().Has(KeyItemType):
		t.typeKey = c
	case c.Keys().Has(KeyState):
		t.statusKey = c
	}
	return nil
}

// Columns returns the columns in ordinal order
func (t *Table) Columns() []Column {
	return t.columns
}

// Column looks up a column by name (case-insensitive)
func (t *Table) Column(name string) Column {
	return t.byName[strings.ToLower(name)]
}

// ParseColumn looks up a column by name or property (case-insensitive)
func (t *Table) ParseColumn(name string) Column {
	key := strings.ToLower(name)
	if c, ok := t.byName[key]; ok {
		return c
	}
	return t.byProperty[key]
}

func (t *Table) PrimaryKey() Column { return t.primary }

// TypeKey returns the item type discriminator column
func (t *Table) TypeKey() Column { return t.typeKey }

// StatusKey returns the status column
func (t *Table) StatusKey() Column { return t.statusKey }

// RegisterProperty adds a dynamic accessor that queries can reference by
// name like a column
func (t *Table) RegisterProperty(name string, get func(*Row) any) {
	t.properties[strings.ToLower(name)] = get
}

// Property returns a registered dynamic accessor
func (t *Table) Property(name string) (func(*Row) any, bool) {
	get, ok := t.properties[strings.ToLower(name)]
	return get, ok
}

// Referencing returns the columns of other tables in the schema that
// reference this table
func (t *Table) Referencing() []Column {
	if t.schema == nil {
		return nil
	}
	return t.schema.Referencing(t)
}

// --------------------------------------------------------------------------
// Storage Layout
// --------------------------------------------------------------------------

func (t *Table) BlockSize() int {
	return int(t.blockSize.Load())
}

// SetBlockSize moves every column into pulls of the new block size. Indexes
// are dropped and rebuilt on next use. Must not run concurrently with
// writers.
func (t *Table) SetBlockSize(size int) {
	if size <= 0 {
		size = pull.DefaultBlockSize
	}
	if size > pull.MaxBlockSize {
		size = pull.MaxBlockSize
	}
	if int(t.blockSize.Swap(int32(size))) == size {
		return
	}
	slots := t.slots()
	for _, c := range t.columns {
		c.resize(size, slots)
	}
	log.Infof("table %s uses block size %d", t.name, size)
}

// slots returns the slots of all attached rows
func (t *Table) slots() []int {
	t.rowsMu.RLock()
	defer t.rowsMu.RUnlock()
	slots := make([]int, len(t.rows))
	for i, r := range t.rows {
		slots[i] = r.slot
	}
	return slots
}

// --------------------------------------------------------------------------
// Rows
// --------------------------------------------------------------------------

// NewRow creates a detached row with a fresh slot
func (t *Table) NewRow() *Row {
	r := &Row{table: t, slot: int(t.nextSlot.Add(1) - 1)}
	r.setState(RowDetached)
	return r
}

// Add attaches row. Loading rows enter the Default state, others New.
func (t *Table) Add(row *Row) error {
	if row.table != t {
		return newError(ErrCRowTable, "row of table %s added to %s", row.table.name, t.name)
	}
	t.rowsMu.Lock()
	if row.attached.Load() {
		t.rowsMu.Unlock()
		return newError(ErrCInvalidOperation, "row %d is already attached to %s", row.slot, t.name)
	}
	t.rows = append(t.rows, row)
	t.bySlot.Store(row.slot, row)
	row.attached.Store(true)
	t.rowsMu.Unlock()

	if row.Loading() {
		row.setState(RowDefault)
	} else {
		row.setState(RowNew)
	}
	for _, c := range t.columns {
		c.onAdd(row)
	}
	return nil
}

// Remove detaches row and clears its values
func (t *Table) Remove(row *Row) error {
	if row.table != t {
		return newError(ErrCRowTable, "row of table %s removed from %s", row.table.name, t.name)
	}
	t.rowsMu.Lock()
	pos := slices.Index(t.rows, row)
	if pos < 0 {
		t.rowsMu.Unlock()
		return newError(ErrCInvalidOperation, "row %d is not attached to %s", row.slot, t.name)
	}
	t.rows = slices.Delete(t.rows, pos, pos+1)
	t.bySlot.Delete(row.slot)
	row.attached.Store(false)
	t.rowsMu.Unlock()

	for _, c := range t.columns {
		c.onRemove(row)
	}
	row.setState(RowDeleted)
	return nil
}

// Rows returns a snapshot of the attached rows in insertion order
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (t *Table) Rows() []*Row {
	t.rowsMu.RLock()
	defer t.rowsMu.RUnlock()
	return slices.Clone(t.rows)
}

// Count returns the number of attached rows
func (t *Table) Count() int {
	t.rowsMu.RLock()
	defer t.rowsMu.RUnlock()
	return len(t.rows)
}

// RowBySlot returns the attached row stored at slot
func (t *Table) RowBySlot(slot int) (*Row, bool) {
	return t.bySlot.Load(slot)
}

// LoadByPrimary returns the attached row with the given primary key, nil if
// there is none
func (t *Table) LoadByPrimary(key any) (*Row, error) {
	if t.primary == nil {
		return nil, newError(ErrCNoPrimaryKey, "table %s has no primary key", t.name)
	}
	return t.primary.SelectOne(key)
}

// CheckState recomputes the state of an attached row from its columns
func (t *Table) CheckState(row *Row) RowState {
	switch s := row.State(); s {
	case RowDefault, RowEdit:
		if row.IsChanged() {
			row.setState(RowEdit)
		} else {
			row.setState(RowDefault)
		}
	}
	return row.State()
}

// Compare is the canonical row order: primary key, then slot
func (t *Table) Compare(a, b *Row) int {
	if t.primary != nil {
		if c := t.primary.Compare(a, b); c != 0 {
			return c
		}
	}
	return a.slot - b.slot
}

// --------------------------------------------------------------------------
// Loading
// --------------------------------------------------------------------------

// FieldMapping maps the fields of r to columns by name or property.
// Unknown fields map to nil.
func (t *Table) FieldMapping(r RowReader) []Column {
	mapping := make([]Column, r.FieldCount())
	for i := range mapping {
		mapping[i] = t.ParseColumn(r.FieldName(i))
	}
	return mapping
}

// Load writes the current record of r into the table. An attached row with
// the same primary key is refreshed, otherwise a new row is added. mapping
// assigns a column to each field; nil maps fields by name.
func (t *Table) Load(r RowReader, mapping []Column) (*Row, error) {
	if mapping == nil {
		mapping = t.FieldMapping(r)
	}

	var row *Row
	if t.primary != nil {
		for i, c := range mapping {
			if c != t.primary {
				continue
			}
			key, err := c.ParseValue(r.GetValue(i))
			if err != nil {
				return nil, err
			}
			if row, err = t.LoadByPrimary(key); err != nil {
				return nil, err
			}
			break
		}
	}
	isNew := row == nil
	if isNew {
		row = t.NewRow()
	}

	row.SetLoading(true)
	defer row.SetLoading(false)
	for i, c := range mapping {
		if c == nil {
			continue
		}
		if err := c.Read(row, r, i); err != nil {
			return nil, err
		}
		c.Accept(row)
	}
	if isNew {
		if err := t.Add(row); err != nil {
			return nil, err
		}
	} else {
		t.CheckState(row)
	}
	return row, nil
}

// Info returns storage statistics of the table
func (t *Table) Info() TableInfo {
	info := TableInfo{
		Name:      t.name,
		Rows:      t.Count(),
		BlockSize: t.BlockSize(),
	}
	for _, c := range t.columns {
		info.Columns = append(info.Columns, c.Info())
	}
	return info
}

package db

import (
	"fmt"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/ValentinKolb/dQuery/lib/db/pull"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
)

var log = logger.GetLogger("db")

// Column is the untyped view of a table column. The only implementation is
// DBColumn[T]; the unexported methods keep the set of column types closed.
type Column interface {
	Name() string
	Property() string
	Keys() Keys
	DataType() DataType
	Size() int
	Scale() int
	ColumnType() ColumnType
	IsPrimary() bool
	IsReference() bool
	IsIndexed() bool
	IsQueryable() bool
	Table() *Table
	Ordinal() int
	ReferenceTable() *Table
	String() string

	ParseValue(raw any) (any, error)
	FormatValue(v any) string
	DisplayValue(v any) string

	GetValue(row *Row) any
	SetValue(row *Row, v any) error
	IsNull(row *Row) bool
	CheckValue(row *Row, value any, c Comparer) (bool, error)
	Compare(a, b *Row) int
	Read(row *Row, r RowReader, ordinal int) error
	Select(value any, c Comparer) ([]*Row, error)
	SelectOne(value any) (*Row, error)

	IsChanged(row *Row) bool
	OldValue(row *Row) (any, bool)
	Accept(row *Row)
	Reject(row *Row)

	SetPull(p any)
	Info() ColumnInfo

	attach(t *Table, ordinal int) error
	onAdd(row *Row)
	onRemove(row *Row)
	resize(blockSize int, slots []int)
}

// ColumnInfo describes the storage state of a column
type ColumnInfo struct {
	Name     string     `json:"name" yaml:"name"`
	Type     string     `json:"type" yaml:"type"`
	Keys     string     `json:"keys" yaml:"keys"`
	Blocks   int        `json:"blocks" yaml:"blocks"`
	Capacity int        `json:"capacity" yaml:"capacity"`
	Changed  int        `json:"changed" yaml:"changed"`
	Index    *pull.Info `json:"index,omitempty" yaml:"index,omitempty"`
}

// --------------------------------------------------------------------------
// DBColumn
// --------------------------------------------------------------------------

// DBColumn stores the values of one column in a Pull[T] addressed by the
// row slot. Columns flagged Primary, Reference or Indexing maintain an
// Index[T] that is built on first need and updated on every write.
//
// Thread-safety: writes to different rows may run concurrently. Writes to
// the same row must be serialized by the caller. SetPull and Table.SetBlockSize
// must not run concurrently with writers.
type DBColumn[T any] struct {
	name       string
	property   string
	keys       Keys
	dataType   DataType
	size       int
	scale      int
	columnType ColumnType
	refName    string
	refTable   *Table
	codec      Codec[T]

	table   *Table
	ordinal int

	pullMu    sync.Mutex
	pull      atomic.Pointer[pull.Pull[T]]
	indexMu   sync.Mutex
	index     atomic.Pointer[pull.Index[T]]
	building  atomic.Bool
	oldValues *xsync.MapOf[int, T] // row slot -> value before the first edit
}

// NewDBColumn creates a column over an explicit codec
func NewDBColumn[T any](name string, codec Codec[T], opts ...ColumnOption) *DBColumn[T] {
	var zero T
	_, isNull := any(zero).(nullable)
	dt := DataType{Kind: codec.Kind(), Nullable: isNull}
	return newDBColumn(name, dt, newColumnConfig(opts), codec)
}

func newDBColumn[T any](name string, dt DataType, cfg *columnConfig, codec Codec[T]) *DBColumn[T] {
	keys := cfg.keys
	if cfg.refName != "" || cfg.refTable != nil {
		keys |= KeyReference
	}
	return &DBColumn[T]{
		name:       name,
		property:   cfg.property,
		keys:       keys,
		dataType:   dt,
		size:       cfg.size,
		scale:      cfg.scale,
		columnType: cfg.columnType,
		refName:    cfg.refName,
		refTable:   cfg.refTable,
		codec:      codec,
		ordinal:    -1,
		oldValues:  xsync.NewMapOf[int, T](),
	}
}

func (c *DBColumn[T]) Name() string { return c.name }

// Property returns the accessor name, the column name if none was set
func (c *DBColumn[T]) Property() string {
	if c.property == "" {
		return c.name
	}
	return c.property
}

func (c *DBColumn[T]) Keys() Keys             { return c.keys }
func (c *DBColumn[T]) DataType() DataType     { return c.dataType }
func (c *DBColumn[T]) Size() int              { return c.size }
func (c *DBColumn[T]) Scale() int             { return c.scale }
func (c *DBColumn[T]) ColumnType() ColumnType { return c.columnType }
func (c *DBColumn[T]) Table() *Table          { return c.table }
func (c *DBColumn[T]) Ordinal() int           { return c.ordinal }
func (c *DBColumn[T]) Codec() Codec[T]        { return c.codec }
func (c *DBColumn[T]) IsPrimary() bool        { return c.keys.Has(KeyPrimary) }
func (c *DBColumn[T]) IsReference() bool      { return c.keys.Has(KeyReference) }

// IsIndexed reports whether the column maintains an index
func (c *DBColumn[T]) IsIndexed() bool {
	return c.keys&(KeyPrimary|KeyReference|KeyIndexing) != 0
}

// IsQueryable reports whether the column exists in the database
func (c *DBColumn[T]) IsQueryable() bool {
	return c.columnType == ColumnDefault || c.columnType == ColumnExpression
}

// ReferenceTable resolves the referenced table. Name references are looked
// up in the schema on every call.
func (c *DBColumn[T]) ReferenceTable() *Table {
	if c.refTable != nil {
		return c.refTable
	}
	if c.refName == "" || c.table == nil || c.table.schema == nil {
		return nil
	}
	return c.table.schema.Table(c.refName)
}

func (c *DBColumn[T]) String() string {
	if c.table == nil {
		return c.name
	}
	return c.table.name + "." + c.name
}

func (c *DBColumn[T]) attach(t *Table, ordinal int) error {
	if c.table != nil {
		return newError(ErrCColumnAttached, "column %s is already attached to table %s", c.name, c.table.name)
	}
	c.table = t
	c.ordinal = ordinal
	return nil
}

// --------------------------------------------------------------------------
// Storage
// --------------------------------------------------------------------------

// Pull returns the current pull, nil before the first write
func (c *DBColumn[T]) Pull() *pull.Pull[T] {
	return c.pull.Load()
}

func (c *DBColumn[T]) ensurePull() *pull.Pull[T] {
	if p := c.pull.Load(); p != nil {
		return p
	}
	c.pullMu.Lock()
	defer c.pullMu.Unlock()
	if p := c.pull.Load(); p != nil {
		return p
	}
	blockSize := pull.DefaultBlockSize
	if c.table != nil {
		blockSize = c.table.BlockSize()
	}
	p := pull.New[T](blockSize)
	c.pull.Store(p)
	log.Debugf("allocated pull for column %s (block size %d)", c, blockSize)
	return p
}

// SetPull replaces the storage of the column. p must be a *pull.Pull[T];
// any other type is a programming error and panics. The index is dropped
// and rebuilt on next use.
func (c *DBColumn[T]) SetPull(p any) {
	typed, ok := p.(*pull.Pull[T])
	if !ok || typed == nil {
		panic(fmt.Errorf("%w: column %s expects %T, got %T", ErrPullType, c, typed, p))
	}
	c.pullMu.Lock()
	c.pull.Store(typed)
	c.pullMu.Unlock()
	c.dropIndex()
}

func (c *DBColumn[T]) resize(blockSize int, slots []int) {
	c.pullMu.Lock()
	old := c.pull.Load()
	if old == nil || old.BlockSize() == blockSize {
		c.pullMu.Unlock()
		return
	}
	np := pull.New[T](blockSize)
	old.CopyTo(np, slots)
	c.pull.Store(np)
	c.pullMu.Unlock()

	c.dropIndex()
	log.Debugf("moved column %s to block size %d (%d rows)", c, blockSize, len(slots))
}

// Get returns the value of row, the zero value if it was never written
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (c *DBColumn[T]) Get(row *Row) T {
	p := c.pull.Load()
	if p == nil {
		var zero T
		return zero
	}
	return p.Get(p.HandleOf(row.slot))
}

// Set writes the value of row, tracking the old value and updating the index
func (c *DBColumn[T]) Set(row *Row, value T) {
	p := c.ensurePull()
	h := p.HandleOf(row.slot)
	old := p.Get(h)

	edited, reverted := false, false
	if row.tracking() {
		if prev, ok := c.oldValues.Load(row.slot); ok {
			if c.codec.Equal(prev, value) {
				c.oldValues.Delete(row.slot)
				reverted = true
			}
		} else if !c.codec.Equal(old, value) {
			c.oldValues.Store(row.slot, old)
			edited = true
		}
	}

	p.Set(h, value)
	if row.Attached() {
		c.updateIndex(h, old, value)
	}

	switch {
	case edited:
		row.markEdited()
	case reverted:
		row.table.CheckState(row)
	}
}

// restore writes value without old value tracking
func (c *DBColumn[T]) restore(row *Row, value T) {
	p := c.ensurePull()
	h := p.HandleOf(row.slot)
	old := p.Get(h)
	p.Set(h, value)
	if row.Attached() {
		c.updateIndex(h, old, value)
	}
}

// --------------------------------------------------------------------------
// Index
// --------------------------------------------------------------------------

// Index returns the index of the column, building it on first use.
// Columns without Primary, Reference or Indexing keys have none.
func (c *DBColumn[T]) Index() *pull.Index[T] {
	if idx := c.index.Load(); idx != nil {
		return idx
	}
	if !c.IsIndexed() || c.table == nil {
		return nil
	}

	c.indexMu.Lock()
	defer c.indexMu.Unlock()
	if idx := c.index.Load(); idx != nil {
		return idx
	}
	c.building.Store(true)
	defer c.building.Store(false)

	p := c.ensurePull()
	idx := pull.NewIndex(p, pull.Ops[T]{
		Equal:   c.codec.Equal,
		Hash:    c.codec.Hash,
		Compare: c.codec.Compare,
	})
	slots := c.table.slots()
	handles := make([]pull.Handle, len(slots))
	for i, slot := range slots {
		handles[i] = p.HandleOf(slot)
	}
	idx.Rebuild(handles)
	c.index.Store(idx)
	return idx
}

func (c *DBColumn[T]) updateIndex(h pull.Handle, old, value T) {
	idx := c.index.Load()
	if idx == nil && c.building.Load() {
		// wait for the running build
		c.indexMu.Lock()
		idx = c.index.Load()
		c.indexMu.Unlock()
	}
	if idx != nil {
		idx.Update(h, old, value)
	}
}

func (c *DBColumn[T]) dropIndex() {
	c.indexMu.Lock()
	defer c.indexMu.Unlock()
	if idx := c.index.Swap(nil); idx != nil {
		idx.Detach()
		idx.Dispose()
		log.Debugf("dropped index of column %s", c)
	}
}

func (c *DBColumn[T]) onAdd(row *Row) {
	if !c.IsIndexed() {
		return
	}
	if idx := c.Index(); idx != nil {
		p := idx.Pull()
		h := p.HandleOf(row.slot)
		idx.Add(h, p.Get(h))
	}
}

func (c *DBColumn[T]) onRemove(row *Row) {
	c.oldValues.Delete(row.slot)
	p := c.pull.Load()
	if p == nil {
		return
	}
	h := p.HandleOf(row.slot)
	if idx := c.index.Load(); idx != nil {
		idx.Remove(h, p.Get(h))
	}
	p.Clear(h)
}

// --------------------------------------------------------------------------
// Untyped Access
// --------------------------------------------------------------------------

func (c *DBColumn[T]) parse(raw any) (T, error) {
	if r, ok := raw.(*Row); ok {
		raw = r.PrimaryKey()
	}
	v, err := c.codec.Parse(raw)
	if err != nil {
		return v, &ParseError{Column: c.name, Kind: c.dataType.Kind, Raw: raw, Err: err}
	}
	return v, nil
}

// ParseValue coerces raw into the column type. A *Row parses to its
// primary key.
func (c *DBColumn[T]) ParseValue(raw any) (any, error) {
	v, err := c.parse(raw)
	if err != nil {
		return nil, err
	}
	return v, nil
}

// FormatValue renders v as a SQL literal of the column type
func (c *DBColumn[T]) FormatValue(v any) string {
	if t, ok := v.(T); ok {
		return c.codec.FormatQuery(t)
	}
	if t, err := c.parse(v); err == nil {
		return c.codec.FormatQuery(t)
	}
	return FormatLiteral(v)
}

// DisplayValue renders v for humans
func (c *DBColumn[T]) DisplayValue(v any) string {
	if t, ok := v.(T); ok {
		return c.codec.FormatDisplay(t)
	}
	if t, err := c.parse(v); err == nil {
		return c.codec.FormatDisplay(t)
	}
	return toString(v)
}

// GetValue returns the value of row; null values are returned as nil
func (c *DBColumn[T]) GetValue(row *Row) any {
	v := c.Get(row)
	if c.codec.IsNull(v) {
		return nil
	}
	return Unwrap(v)
}

// SetValue parses v and writes it to row
func (c *DBColumn[T]) SetValue(row *Row, v any) error {
	if c.table != nil && row.table != c.table {
		return newError(ErrCRowTable, "row of table %s written through column %s", row.table.name, c)
	}
	t, err := c.parse(v)
	if err != nil {
		return err
	}
	c.Set(row, t)
	return nil
}

func (c *DBColumn[T]) IsNull(row *Row) bool {
	return c.codec.IsNull(c.Get(row))
}

// Compare orders two rows by the value of this column
func (c *DBColumn[T]) Compare(a, b *Row) int {
	return c.codec.Compare(c.Get(a), c.Get(b))
}

// Read loads the field at ordinal of the current record into row
func (c *DBColumn[T]) Read(row *Row, r RowReader, ordinal int) error {
	v, err := c.codec.Read(r, ordinal)
	if err != nil {
		return &ParseError{Column: c.name, Kind: c.dataType.Kind, Raw: r.GetValue(ordinal), Err: err}
	}
	c.Set(row, v)
	return nil
}

// --------------------------------------------------------------------------
// Predicates
// --------------------------------------------------------------------------

// CheckValue evaluates "row.column comparer value".
//
// Equal with a nil value tests for null, Like matches the display text
// against the pattern, In accepts any slice (typed or []any), Between a
// Range or a two element slice. Ordering comparisons with null are false.
func (c *DBColumn[T]) CheckValue(row *Row, value any, cmp Comparer) (bool, error) {
	result, err := c.check(c.Get(row), value, cmp.Type)
	if err != nil {
		return false, err
	}
	return result != cmp.Not, nil
}

func (c *DBColumn[T]) check(v T, value any, t CompareType) (bool, error) {
	switch t {
	case CompareIs:
		return c.codec.IsNull(v), nil
	case CompareEqual:
		if Unwrap(value) == nil {
			return c.codec.IsNull(v), nil
		}
		key, err := c.parse(value)
		if err != nil {
			return false, err
		}
		return c.codec.Equal(v, key), nil
	case CompareGreater, CompareGreaterOrEqual, CompareLess, CompareLessOrEqual:
		if Unwrap(value) == nil || c.codec.IsNull(v) {
			return false, nil
		}
		key, err := c.parse(value)
		if err != nil {
			return false, err
		}
		return orderMatches(t, c.codec.Compare(v, key)), nil
	case CompareLike:
		if c.codec.IsNull(v) {
			return false, nil
		}
		return MatchLike(c.codec.FormatDisplay(v), toString(value))
	case CompareIn:
		for _, item := range Items(value) {
			if Unwrap(item) == nil {
				continue
			}
			key, err := c.parse(item)
			if err != nil {
				return false, err
			}
			if c.codec.Equal(v, key) {
				return true, nil
			}
		}
		return false, nil
	case CompareBetween:
		r, err := ToRange(value)
		if err != nil {
			return false, err
		}
		if c.codec.IsNull(v) {
			return false, nil
		}
		lo, err := c.parse(r.Min)
		if err != nil {
			return false, err
		}
		hi, err := c.parse(r.Max)
		if err != nil {
			return false, err
		}
		return c.codec.Compare(v, lo) >= 0 && c.codec.Compare(v, hi) <= 0, nil
	default:
		return false, newError(ErrCInvalidOperation, "undefined comparer on column %s", c)
	}
}

// Select returns the attached rows matching "column comparer value" in
// slot order. Equal and In use the index when the column has one.
func (c *DBColumn[T]) Select(value any, cmp Comparer) ([]*Row, error) {
	if c.table == nil {
		return nil, newError(ErrCInvalidOperation, "column %s is not attached", c.name)
	}
	if !cmp.Not && Unwrap(value) != nil && (cmp.Type == CompareEqual || cmp.Type == CompareIn) {
		if idx := c.Index(); idx != nil {
			return c.selectIndexed(idx, value, cmp.Type)
		}
	}
	var result []*Row
	for _, row := range c.table.Rows() {
		ok, err := c.CheckValue(row, value, cmp)
		if err != nil {
			return nil, err
		}
		if ok {
			result = append(result, row)
		}
	}
	return result, nil
}

func (c *DBColumn[T]) selectIndexed(idx *pull.Index[T], value any, t CompareType) ([]*Row, error) {
	keys := []any{value}
	if t == CompareIn {
		keys = Items(value)
	}
	p := idx.Pull()
	var result []*Row
	for _, raw := range keys {
		if t == CompareIn && Unwrap(raw) == nil {
			continue
		}
		key, err := c.parse(raw)
		if err != nil {
			return nil, err
		}
		for _, h := range idx.Select(key) {
			if row, ok := c.table.RowBySlot(p.SlotOf(h)); ok {
				result = append(result, row)
			}
		}
	}
	if len(keys) > 1 {
		slices.SortFunc(result, func(a, b *Row) int { return a.slot - b.slot })
		result = slices.CompactFunc(result, func(a, b *Row) bool { return a == b })
	}
	return result, nil
}

// SelectOne returns the first row holding value, nil if there is none
func (c *DBColumn[T]) SelectOne(value any) (*Row, error) {
	rows, err := c.Select(value, Equal)
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return rows[0], nil
}

// --------------------------------------------------------------------------
// Old Values
// --------------------------------------------------------------------------

// IsChanged reports whether row holds an unaccepted edit of this column
func (c *DBColumn[T]) IsChanged(row *Row) bool {
	_, ok := c.oldValues.Load(row.slot)
	return ok
}

// OldValue returns the value row held before its first unaccepted edit
func (c *DBColumn[T]) OldValue(row *Row) (any, bool) {
	v, ok := c.oldValues.Load(row.slot)
	if !ok {
		return nil, false
	}
	if c.codec.IsNull(v) {
		return nil, true
	}
	return Unwrap(v), true
}

// Accept forgets the old value, making the current value the baseline.
// The row state follows the remaining edits.
func (c *DBColumn[T]) Accept(row *Row) {
	if _, ok := c.oldValues.LoadAndDelete(row.slot); ok && row.Attached() {
		row.table.CheckState(row)
	}
}

// Reject restores the old value. The row state follows the remaining edits.
func (c *DBColumn[T]) Reject(row *Row) {
	if old, ok := c.oldValues.LoadAndDelete(row.slot); ok {
		c.restore(row, old)
		if row.Attached() {
			row.table.CheckState(row)
		}
	}
}

// Info returns storage statistics of the column
func (c *DBColumn[T]) Info() ColumnInfo {
	info := ColumnInfo{
		Name:    c.name,
		Type:    c.dataType.String(),
		Keys:    c.keys.String(),
		Changed: c.oldValues.Size(),
	}
	if p := c.pull.Load(); p != nil {
		info.Blocks = p.Blocks()
		info.Capacity = p.Cap()
	}
	if idx := c.index.Load(); idx != nil {
		i := idx.Info()
		info.Index = &i
	}
	return info
}

// ValueOf returns the typed value of row in column c. ok is false when c
// does not store T.
func ValueOf[T any](row *Row, c Column) (v T, ok bool) {
	dc, ok := c.(*DBColumn[T])
	if !ok {
		return v, false
	}
	return dc.Get(row), true
}

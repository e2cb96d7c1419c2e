package db

import (
	"reflect"
	"time"

	"github.com/ValentinKolb/dQuery/lib/db/serializer"
	"github.com/google/uuid"
)

// --------------------------------------------------------------------------
// Column Options
// --------------------------------------------------------------------------

type columnConfig struct {
	property   string
	keys       Keys
	size       int
	scale      int
	columnType ColumnType
	refName    string
	refTable   *Table
	enumNames  map[int64]string
	objectType reflect.Type
	serializer serializer.ISerializer
}

// ColumnOption configures a column created by NewColumn or NewDBColumn
type ColumnOption func(*columnConfig)

func newColumnConfig(opts []ColumnOption) *columnConfig {
	cfg := &columnConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// WithProperty sets the accessor name used by dotted paths and members
func WithProperty(name string) ColumnOption {
	return func(c *columnConfig) { c.property = name }
}

// WithKeys adds key flags
func WithKeys(keys Keys) ColumnOption {
	return func(c *columnConfig) { c.keys |= keys }
}

// WithSize sets the declared size and scale
func WithSize(size, scale int) ColumnOption {
	return func(c *columnConfig) { c.size, c.scale = size, scale }
}

// WithColumnType sets where the value comes from
func WithColumnType(t ColumnType) ColumnOption {
	return func(c *columnConfig) { c.columnType = t }
}

// WithReference makes the column reference the primary key of t
func WithReference(t *Table) ColumnOption {
	return func(c *columnConfig) { c.refTable = t }
}

// WithReferenceName makes the column reference a table resolved by name
// through the schema of the owning table
func WithReferenceName(table string) ColumnOption {
	return func(c *columnConfig) { c.refName = table }
}

// WithEnumNames sets the member names of an enum column
func WithEnumNames(names map[int64]string) ColumnOption {
	return func(c *columnConfig) { c.enumNames = names }
}

// WithObjectType restricts an object column to the type of proto.
// Pointers are dereferenced to their element type.
func WithObjectType(proto any) ColumnOption {
	return func(c *columnConfig) {
		t := reflect.TypeOf(proto)
		if t != nil && t.Kind() == reflect.Pointer {
			t = t.Elem()
		}
		c.objectType = t
	}
}

// WithSerializer sets the serializer of an object column (json by default)
func WithSerializer(s serializer.ISerializer) ColumnOption {
	return func(c *columnConfig) { c.serializer = s }
}

// --------------------------------------------------------------------------
// Factory
// --------------------------------------------------------------------------

// NewColumn creates the column for a data type
func NewColumn(name string, dt DataType, opts ...ColumnOption) (Column, error) {
	cfg := newColumnConfig(opts)
	switch dt.Kind {
	case KindBool:
		return build[bool](name, dt, cfg, boolCodec{}), nil
	case KindInt8:
		return build(name, dt, cfg, Codec[int8](newNumberCodec[int8](dt.Kind))), nil
	case KindInt16:
		return build(name, dt, cfg, Codec[int16](newNumberCodec[int16](dt.Kind))), nil
	case KindInt32:
		return build(name, dt, cfg, Codec[int32](newNumberCodec[int32](dt.Kind))), nil
	case KindInt64:
		return build(name, dt, cfg, Codec[int64](newNumberCodec[int64](dt.Kind))), nil
	case KindUint8:
		return build(name, dt, cfg, Codec[uint8](newNumberCodec[uint8](dt.Kind))), nil
	case KindUint16:
		return build(name, dt, cfg, Codec[uint16](newNumberCodec[uint16](dt.Kind))), nil
	case KindUint32:
		return build(name, dt, cfg, Codec[uint32](newNumberCodec[uint32](dt.Kind))), nil
	case KindUint64:
		return build(name, dt, cfg, Codec[uint64](newNumberCodec[uint64](dt.Kind))), nil
	case KindFloat32:
		return build(name, dt, cfg, Codec[float32](newNumberCodec[float32](dt.Kind))), nil
	case KindFloat64:
		return build(name, dt, cfg, Codec[float64](newNumberCodec[float64](dt.Kind))), nil
	case KindString:
		return build[string](name, dt, cfg, stringCodec{}), nil
	case KindDateTime:
		return build[time.Time](name, dt, cfg, timeCodec{}), nil
	case KindTimeSpan:
		return build[time.Duration](name, dt, cfg, durationCodec{}), nil
	case KindBytes:
		return build[[]byte](name, dt, cfg, bytesCodec{}), nil
	case KindUUID:
		return build[uuid.UUID](name, dt, cfg, uuidCodec{}), nil
	case KindEnum:
		switch dt.Width {
		case 8:
			return build(name, dt, cfg, Codec[int8](newEnumCodec[int8](KindInt8, cfg.enumNames))), nil
		case 16:
			return build(name, dt, cfg, Codec[int16](newEnumCodec[int16](KindInt16, cfg.enumNames))), nil
		case 0, 32:
			dt.Width = 32
			return build(name, dt, cfg, Codec[int32](newEnumCodec[int32](KindInt32, cfg.enumNames))), nil
		case 64:
			return build(name, dt, cfg, Codec[int64](newEnumCodec[int64](KindInt64, cfg.enumNames))), nil
		default:
			return nil, newError(ErrCInvalidOperation, "column %s: unsupported enum width %d", name, dt.Width)
		}
	case KindObject:
		return build[any](name, dt, cfg, newObjectCodec(cfg.objectType, cfg.serializer)), nil
	default:
		return nil, newError(ErrCInvalidOperation, "column %s: unsupported kind %s", name, dt.Kind)
	}
}

// MustColumn is NewColumn for static schema definitions, it panics on error
func MustColumn(name string, dt DataType, opts ...ColumnOption) Column {
	c, err := NewColumn(name, dt, opts...)
	if err != nil {
		panic(err)
	}
	return c
}

func build[T any](name string, dt DataType, cfg *columnConfig, codec Codec[T]) Column {
	if dt.Nullable {
		return newDBColumn(name, dt, cfg, NullCodec(codec))
	}
	return newDBColumn(name, dt, cfg, codec)
}

package db

import (
	"database/sql/driver"
	"fmt"
	"strings"
)

// --------------------------------------------------------------------------
// Kinds
// --------------------------------------------------------------------------

// Kind is the closed set of value kinds a column can store
type Kind uint8

const (
	KindUnknown Kind = iota
	KindBool
	KindInt8
	KindInt16
	KindInt32
	KindInt64
	KindUint8
	KindUint16
	KindUint32
	KindUint64
	KindFloat32
	KindFloat64
	KindString
	KindDateTime
	KindTimeSpan
	KindBytes
	KindUUID
	KindEnum
	KindObject
)

var kindNames = map[Kind]string{
	KindUnknown:  "unknown",
	KindBool:     "bool",
	KindInt8:     "int8",
	KindInt16:    "int16",
	KindInt32:    "int32",
	KindInt64:    "int64",
	KindUint8:    "uint8",
	KindUint16:   "uint16",
	KindUint32:   "uint32",
	KindUint64:   "uint64",
	KindFloat32:  "float32",
	KindFloat64:  "float64",
	KindString:   "string",
	KindDateTime: "datetime",
	KindTimeSpan: "timespan",
	KindBytes:    "bytes",
	KindUUID:     "uuid",
	KindEnum:     "enum",
	KindObject:   "object",
}

// kind aliases accepted by ParseKind in addition to the canonical names
var kindAliases = map[string]Kind{
	"boolean":   KindBool,
	"byte":      KindUint8,
	"short":     KindInt16,
	"int":       KindInt32,
	"integer":   KindInt32,
	"long":      KindInt64,
	"bigint":    KindInt64,
	"float":     KindFloat32,
	"double":    KindFloat64,
	"decimal":   KindFloat64,
	"text":      KindString,
	"varchar":   KindString,
	"date":      KindDateTime,
	"timestamp": KindDateTime,
	"duration":  KindTimeSpan,
	"blob":      KindBytes,
	"binary":    KindBytes,
	"guid":      KindUUID,
	"json":      KindObject,
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// IsNumeric reports whether the kind stores a number
func (k Kind) IsNumeric() bool {
	return k >= KindInt8 && k <= KindFloat64
}

// ParseKind resolves a kind from its name or a common SQL alias
func ParseKind(name string) (Kind, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for k, n := range kindNames {
		if n == name && k != KindUnknown {
			return k, nil
		}
	}
	if k, ok := kindAliases[name]; ok {
		return k, nil
	}
	return KindUnknown, newError(ErrCInvalidOperation, "unknown kind %q", name)
}

// --------------------------------------------------------------------------
// Data Type
// --------------------------------------------------------------------------

// DataType selects the codec of a column
type DataType struct {
	Kind     Kind
	Nullable bool // values are wrapped in Null[V]
	Width    int  // enum storage width in bits: 8, 16, 32 or 64
}

func (d DataType) String() string {
	s := d.Kind.String()
	if d.Kind == KindEnum {
		s = fmt.Sprintf("%s%d", s, d.Width)
	}
	if d.Nullable {
		s += "?"
	}
	return s
}

// Type returns a non nullable data type of kind k
func Type(k Kind) DataType {
	return DataType{Kind: k}
}

// NullableType returns a nullable data type of kind k
func NullableType(k Kind) DataType {
	return DataType{Kind: k, Nullable: true}
}

// EnumType returns an enum data type stored with the given width in bits
func EnumType(width int) DataType {
	return DataType{Kind: KindEnum, Width: width}
}

// --------------------------------------------------------------------------
// Null
// --------------------------------------------------------------------------

// Null wraps a value that may be missing
type Null[V any] struct {
	Val   V
	Valid bool
}

// Some returns a valid Null holding v
func Some[V any](v V) Null[V] {
	return Null[V]{Val: v, Valid: true}
}

// Value implements driver.Valuer
func (n Null[V]) Value() (driver.Value, error) {
	if !n.Valid {
		return nil, nil
	}
	if valuer, ok := any(n.Val).(driver.Valuer); ok {
		return valuer.Value()
	}
	return driver.DefaultParameterConverter.ConvertValue(n.Val)
}

func (n Null[V]) String() string {
	if !n.Valid {
		return "null"
	}
	return fmt.Sprint(n.Val)
}

// nullable is implemented by every Null[V] to expose its content untyped
type nullable interface {
	isValid() bool
	inner() any
}

func (n Null[V]) isValid() bool { return n.Valid }
func (n Null[V]) inner() any    { return n.Val }

// Unwrap returns the plain content of v: nil for an invalid Null, the wrapped
// value for a valid one and v itself otherwise.
func Unwrap(v any) any {
	if n, ok := v.(nullable); ok {
		if !n.isValid() {
			return nil
		}
		return n.inner()
	}
	return v
}

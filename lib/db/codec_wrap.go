package db

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"reflect"
	"strings"

	"github.com/ValentinKolb/dQuery/lib/db/serializer"
	"github.com/ValentinKolb/dQuery/lib/db/util"
)

// --------------------------------------------------------------------------
// Nullable Values
// --------------------------------------------------------------------------

// nullCodec lifts a value codec to Null[V]. Null sorts first and hashes to
// util.NullKey.
type nullCodec[V any] struct {
	inner Codec[V]
}

// NullCodec wraps a value codec so the column accepts null
func NullCodec[V any](inner Codec[V]) Codec[Null[V]] {
	return nullCodec[V]{inner: inner}
}

func (c nullCodec[V]) Kind() Kind { return c.inner.Kind() }

func (c nullCodec[V]) Parse(raw any) (Null[V], error) {
	switch x := raw.(type) {
	case nil:
		return Null[V]{}, nil
	case Null[V]:
		return x, nil
	case *V:
		if x == nil {
			return Null[V]{}, nil
		}
		return Some(*x), nil
	}
	if n, ok := raw.(nullable); ok && !n.isValid() {
		return Null[V]{}, nil
	}
	v, err := c.inner.Parse(raw)
	if err != nil {
		return Null[V]{}, err
	}
	return Some(v), nil
}

func (c nullCodec[V]) FormatQuery(v Null[V]) string {
	if !v.Valid {
		return "null"
	}
	return c.inner.FormatQuery(v.Val)
}

func (c nullCodec[V]) FormatDisplay(v Null[V]) string {
	if !v.Valid {
		return ""
	}
	return c.inner.FormatDisplay(v.Val)
}

func (c nullCodec[V]) Equal(a, b Null[V]) bool {
	if !a.Valid || !b.Valid {
		return a.Valid == b.Valid
	}
	return c.inner.Equal(a.Val, b.Val)
}

func (c nullCodec[V]) Compare(a, b Null[V]) int {
	switch {
	case !a.Valid && !b.Valid:
		return 0
	case !a.Valid:
		return -1
	case !b.Valid:
		return 1
	}
	return c.inner.Compare(a.Val, b.Val)
}

func (c nullCodec[V]) Hash(v Null[V]) util.UintKey {
	if !v.Valid {
		return util.NullKey
	}
	return c.inner.Hash(v.Val)
}

func (c nullCodec[V]) IsNull(v Null[V]) bool {
	return !v.Valid
}

func (c nullCodec[V]) Read(r RowReader, ordinal int) (Null[V], error) {
	if r.IsNull(ordinal) {
		return Null[V]{}, nil
	}
	v, err := c.inner.Read(r, ordinal)
	if err != nil {
		return Null[V]{}, err
	}
	return Some(v), nil
}

// --------------------------------------------------------------------------
// Enums
// --------------------------------------------------------------------------

// enumCodec stores an enum as an integer of the configured width and
// accepts the member names (case-insensitive) on input
type enumCodec[T Number] struct {
	numberCodec[T]
	names  map[T]string
	values map[string]T
}

func newEnumCodec[T Number](kind Kind, names map[int64]string) enumCodec[T] {
	c := enumCodec[T]{
		numberCodec: newNumberCodec[T](kind),
		names:       make(map[T]string, len(names)),
		values:      make(map[string]T, len(names)),
	}
	for v, name := range names {
		c.names[T(v)] = name
		c.values[strings.ToLower(name)] = T(v)
	}
	return c
}

func (c enumCodec[T]) Kind() Kind { return KindEnum }

func (c enumCodec[T]) Parse(raw any) (T, error) {
	if s, ok := Unwrap(raw).(string); ok {
		if v, ok := c.values[strings.ToLower(strings.TrimSpace(s))]; ok {
			return v, nil
		}
	}
	return c.numberCodec.Parse(raw)
}

func (c enumCodec[T]) FormatDisplay(v T) string {
	if name, ok := c.names[v]; ok {
		return name
	}
	return c.numberCodec.FormatDisplay(v)
}

func (c enumCodec[T]) Read(r RowReader, ordinal int) (T, error) {
	if r.IsNull(ordinal) {
		return 0, nil
	}
	return c.Parse(r.GetValue(ordinal))
}

// --------------------------------------------------------------------------
// Objects
// --------------------------------------------------------------------------

// objectCodec stores arbitrary values and compares them by their
// serialized form. Text serializers are written as string literals, binary
// ones as hex literals.
type objectCodec struct {
	proto reflect.Type // nil accepts any value as is
	ser   serializer.ISerializer
}

func newObjectCodec(proto reflect.Type, ser serializer.ISerializer) objectCodec {
	if ser == nil {
		ser = serializer.NewJSONSerializer()
	}
	return objectCodec{proto: proto, ser: ser}
}

func (c objectCodec) Kind() Kind { return KindObject }

func (c objectCodec) Parse(raw any) (any, error) {
	raw = Unwrap(raw)
	if raw == nil {
		return nil, nil
	}
	if c.proto == nil {
		return raw, nil
	}
	rt := reflect.TypeOf(raw)
	switch {
	case rt == c.proto:
		return raw, nil
	case rt.Kind() == reflect.Pointer && rt.Elem() == c.proto:
		rv := reflect.ValueOf(raw)
		if rv.IsNil() {
			return nil, nil
		}
		return rv.Elem().Interface(), nil
	}
	var data []byte
	switch x := raw.(type) {
	case []byte:
		data = x
	case string:
		data = []byte(x)
		if strings.HasPrefix(x, "0x") {
			if b, err := hex.DecodeString(x[2:]); err == nil {
				data = b
			}
		}
	default:
		// convert through the serialized form, e.g. a map into a struct
		b, err := c.ser.Serialize(raw)
		if err != nil {
			return nil, err
		}
		data = b
	}
	ptr := reflect.New(c.proto)
	if err := c.ser.Deserialize(data, ptr.Interface()); err != nil {
		return nil, fmt.Errorf("%s decode into %s: %w", c.ser.Name(), c.proto, err)
	}
	return ptr.Elem().Interface(), nil
}

func (c objectCodec) encode(v any) []byte {
	if v == nil {
		return nil
	}
	b, err := c.ser.Serialize(v)
	if err != nil {
		return []byte(fmt.Sprint(v))
	}
	return b
}

func (c objectCodec) textual() bool {
	return c.ser.Name() == "json"
}

func (c objectCodec) FormatQuery(v any) string {
	if v == nil {
		return "null"
	}
	if c.textual() {
		return QuoteLiteral(string(c.encode(v)))
	}
	return "0x" + hex.EncodeToString(c.encode(v))
}

func (c objectCodec) FormatDisplay(v any) string {
	if v == nil {
		return ""
	}
	if c.textual() {
		return string(c.encode(v))
	}
	return fmt.Sprint(v)
}

func (c objectCodec) Equal(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return bytes.Equal(c.encode(a), c.encode(b))
}

func (c objectCodec) Compare(a, b any) int {
	return bytes.Compare(c.encode(a), c.encode(b))
}

func (c objectCodec) Hash(v any) util.UintKey {
	if v == nil {
		return util.NullKey
	}
	return util.HashBytes(c.encode(v), 0)
}

func (c objectCodec) IsNull(v any) bool {
	return v == nil
}

func (c objectCodec) Read(r RowReader, ordinal int) (any, error) {
	if r.IsNull(ordinal) {
		return nil, nil
	}
	if c.proto == nil {
		return r.GetValue(ordinal), nil
	}
	b, err := r.GetBytes(ordinal)
	if err != nil {
		return nil, err
	}
	return c.Parse(b)
}

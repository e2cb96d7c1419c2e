package db

import (
	"bytes"
	"cmp"
	"encoding/base64"
	"encoding/hex"
	"strconv"
	"strings"
	"time"

	"github.com/ValentinKolb/dQuery/lib/db/util"
	"github.com/google/uuid"
)

// Codec implements the typed operations of one value kind. Every column
// delegates parsing, formatting, comparison and hashing to its codec.
//
// Equal must be consistent with Hash and Compare: Equal(a, b) implies
// Hash(a) == Hash(b) and Compare(a, b) == 0.
type Codec[T any] interface {
	Kind() Kind
	// Parse coerces a loosely typed value into T
	Parse(raw any) (T, error)
	// FormatQuery renders v as a SQL literal that Parse accepts back
	FormatQuery(v T) string
	// FormatDisplay renders v for humans
	FormatDisplay(v T) string
	Equal(a, b T) bool
	Compare(a, b T) int
	Hash(v T) util.UintKey
	IsNull(v T) bool
	// Read fetches the field at ordinal of the current record
	Read(r RowReader, ordinal int) (T, error)
}

// QuoteLiteral renders s as a single quoted SQL string literal
func QuoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// UnquoteLiteral reverses QuoteLiteral. Text without surrounding quotes is
// returned unchanged.
func UnquoteLiteral(s string) string {
	if len(s) >= 2 && s[0] == '\'' && s[len(s)-1] == '\'' {
		return strings.ReplaceAll(s[1:len(s)-1], "''", "'")
	}
	return s
}

// --------------------------------------------------------------------------
// Numbers
// --------------------------------------------------------------------------

// Number is the set of numeric storage types
type Number interface {
	~int8 | ~int16 | ~int32 | ~int64 | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~float32 | ~float64
}

type numberCodec[T Number] struct {
	kind     Kind
	isFloat  bool
	unsigned bool
}

func newNumberCodec[T Number](kind Kind) numberCodec[T] {
	return numberCodec[T]{
		kind:     kind,
		isFloat:  kind == KindFloat32 || kind == KindFloat64,
		unsigned: kind >= KindUint8 && kind <= KindUint64,
	}
}

func (c numberCodec[T]) Kind() Kind { return c.kind }

func (c numberCodec[T]) Parse(raw any) (T, error) {
	if v, ok := raw.(T); ok {
		return v, nil
	}
	switch {
	case c.isFloat:
		f, err := toFloat64(raw)
		if err != nil {
			return 0, err
		}
		return T(f), nil
	case c.unsigned:
		u, err := toUint64(raw)
		if err != nil {
			return 0, err
		}
		v := T(u)
		if uint64(v) != u {
			return 0, errOverflow(raw, c.kind)
		}
		return v, nil
	default:
		i, err := toInt64(raw)
		if err != nil {
			return 0, err
		}
		v := T(i)
		if int64(v) != i {
			return 0, errOverflow(raw, c.kind)
		}
		return v, nil
	}
}

func (c numberCodec[T]) FormatQuery(v T) string {
	switch {
	case c.isFloat:
		bits := 64
		if c.kind == KindFloat32 {
			bits = 32
		}
		return strconv.FormatFloat(float64(v), 'f', -1, bits)
	case c.unsigned:
		return strconv.FormatUint(uint64(v), 10)
	default:
		return strconv.FormatInt(int64(v), 10)
	}
}

func (c numberCodec[T]) FormatDisplay(v T) string { return c.FormatQuery(v) }
func (c numberCodec[T]) Equal(a, b T) bool        { return a == b }
func (c numberCodec[T]) Compare(a, b T) int       { return cmp.Compare(a, b) }
func (c numberCodec[T]) IsNull(T) bool            { return false }

func (c numberCodec[T]) Hash(v T) util.UintKey {
	if c.isFloat {
		return util.HashFloat64(float64(v))
	}
	if c.unsigned {
		return util.HashUint64(uint64(v))
	}
	return util.HashUint64(uint64(int64(v)))
}

func (c numberCodec[T]) Read(r RowReader, ordinal int) (T, error) {
	if r.IsNull(ordinal) {
		return 0, nil
	}
	switch {
	case c.isFloat:
		f, err := r.GetFloat64(ordinal)
		if err != nil {
			return 0, err
		}
		return T(f), nil
	case c.unsigned:
		u, err := r.GetUint64(ordinal)
		if err != nil {
			return 0, err
		}
		return c.Parse(u)
	default:
		i, err := r.GetInt64(ordinal)
		if err != nil {
			return 0, err
		}
		return c.Parse(i)
	}
}

func errOverflow(raw any, kind Kind) error {
	return newError(ErrCInvalidOperation, "%v overflows %s", raw, kind)
}

// --------------------------------------------------------------------------
// Strings
// --------------------------------------------------------------------------

type stringCodec struct{}

func (stringCodec) Kind() Kind { return KindString }

// Parse never fails, nil becomes the empty string
func (stringCodec) Parse(raw any) (string, error) {
	return toString(raw), nil
}

func (stringCodec) FormatQuery(v string) string   { return QuoteLiteral(v) }
func (stringCodec) FormatDisplay(v string) string { return v }
func (stringCodec) Equal(a, b string) bool        { return a == b }
func (stringCodec) Compare(a, b string) int       { return strings.Compare(a, b) }
func (stringCodec) Hash(v string) util.UintKey    { return util.HashString(v, 0) }
func (stringCodec) IsNull(string) bool            { return false }

func (stringCodec) Read(r RowReader, ordinal int) (string, error) {
	if r.IsNull(ordinal) {
		return "", nil
	}
	return r.GetString(ordinal)
}

// --------------------------------------------------------------------------
// Booleans
// --------------------------------------------------------------------------

type boolCodec struct{}

func (boolCodec) Kind() Kind { return KindBool }

// Parse never fails, values it cannot interpret are false
func (boolCodec) Parse(raw any) (bool, error) {
	return toBool(raw), nil
}

func (boolCodec) FormatQuery(v bool) string   { return strconv.FormatBool(v) }
func (boolCodec) FormatDisplay(v bool) string { return strconv.FormatBool(v) }
func (boolCodec) Equal(a, b bool) bool        { return a == b }
func (boolCodec) IsNull(bool) bool            { return false }

func (boolCodec) Compare(a, b bool) int {
	switch {
	case a == b:
		return 0
	case !a:
		return -1
	default:
		return 1
	}
}

func (boolCodec) Hash(v bool) util.UintKey {
	if v {
		return util.HashUint64(2)
	}
	return util.HashUint64(1)
}

func (boolCodec) Read(r RowReader, ordinal int) (bool, error) {
	if r.IsNull(ordinal) {
		return false, nil
	}
	return r.GetBool(ordinal)
}

// --------------------------------------------------------------------------
// Date & Time
// --------------------------------------------------------------------------

type timeCodec struct{}

func (timeCodec) Kind() Kind { return KindDateTime }

func (timeCodec) Parse(raw any) (time.Time, error) {
	return toTime(raw)
}

func (timeCodec) FormatQuery(v time.Time) string {
	return QuoteLiteral(v.Format(time.RFC3339Nano))
}

func (timeCodec) FormatDisplay(v time.Time) string {
	return v.Format("2006-01-02 15:04:05")
}

func (timeCodec) Equal(a, b time.Time) bool     { return a.Equal(b) }
func (timeCodec) Compare(a, b time.Time) int    { return a.Compare(b) }
func (timeCodec) Hash(v time.Time) util.UintKey { return util.HashUint64(uint64(v.UnixNano())) }
func (timeCodec) IsNull(time.Time) bool         { return false }

func (timeCodec) Read(r RowReader, ordinal int) (time.Time, error) {
	if r.IsNull(ordinal) {
		return time.Time{}, nil
	}
	return r.GetDateTime(ordinal)
}

type durationCodec struct{}

func (durationCodec) Kind() Kind { return KindTimeSpan }

func (durationCodec) Parse(raw any) (time.Duration, error) {
	return toDuration(raw)
}

// FormatQuery renders the duration in nanoseconds
func (durationCodec) FormatQuery(v time.Duration) string {
	return strconv.FormatInt(int64(v), 10)
}

func (durationCodec) FormatDisplay(v time.Duration) string { return v.String() }
func (durationCodec) Equal(a, b time.Duration) bool        { return a == b }
func (durationCodec) Compare(a, b time.Duration) int       { return cmp.Compare(a, b) }
func (durationCodec) Hash(v time.Duration) util.UintKey    { return util.HashUint64(uint64(v)) }
func (durationCodec) IsNull(time.Duration) bool            { return false }
func (c durationCodec) Read(r RowReader, ordinal int) (time.Duration, error) {
	if r.IsNull(ordinal) {
		return 0, nil
	}
	return c.Parse(r.GetValue(ordinal))
}

// --------------------------------------------------------------------------
// Bytes
// --------------------------------------------------------------------------

type bytesCodec struct{}

func (bytesCodec) Kind() Kind { return KindBytes }

// Parse maps nil to nil (empty)
func (bytesCodec) Parse(raw any) ([]byte, error) {
	return toBytes(raw)
}

// FormatQuery renders a hex literal, "null" for nil
func (bytesCodec) FormatQuery(v []byte) string {
	if v == nil {
		return "null"
	}
	return "0x" + hex.EncodeToString(v)
}

func (bytesCodec) FormatDisplay(v []byte) string {
	return base64.StdEncoding.EncodeToString(v)
}

func (bytesCodec) Equal(a, b []byte) bool     { return bytes.Equal(a, b) }
func (bytesCodec) Compare(a, b []byte) int    { return bytes.Compare(a, b) }
func (bytesCodec) Hash(v []byte) util.UintKey { return util.HashBytes(v, 0) }
func (bytesCodec) IsNull(v []byte) bool       { return v == nil }

func (bytesCodec) Read(r RowReader, ordinal int) ([]byte, error) {
	if r.IsNull(ordinal) {
		return nil, nil
	}
	return r.GetBytes(ordinal)
}

// --------------------------------------------------------------------------
// UUID
// --------------------------------------------------------------------------

type uuidCodec struct{}

func (uuidCodec) Kind() Kind { return KindUUID }

func (uuidCodec) Parse(raw any) (uuid.UUID, error) {
	switch x := Unwrap(raw).(type) {
	case uuid.UUID:
		return x, nil
	case []byte:
		if len(x) == 16 {
			return uuid.FromBytes(x)
		}
		return uuid.ParseBytes(x)
	case string:
		return uuid.Parse(strings.TrimSpace(x))
	case nil:
		return uuid.Nil, nil
	default:
		return uuid.Parse(toString(x))
	}
}

func (uuidCodec) FormatQuery(v uuid.UUID) string   { return QuoteLiteral(v.String()) }
func (uuidCodec) FormatDisplay(v uuid.UUID) string { return v.String() }
func (uuidCodec) Equal(a, b uuid.UUID) bool        { return a == b }
func (uuidCodec) Compare(a, b uuid.UUID) int       { return bytes.Compare(a[:], b[:]) }
func (uuidCodec) Hash(v uuid.UUID) util.UintKey    { return util.HashBytes(v[:], 0) }
func (uuidCodec) IsNull(v uuid.UUID) bool          { return v == uuid.Nil }

func (c uuidCodec) Read(r RowReader, ordinal int) (uuid.UUID, error) {
	if r.IsNull(ordinal) {
		return uuid.Nil, nil
	}
	return c.Parse(r.GetValue(ordinal))
}

package db

import (
	"bytes"
	"cmp"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
)

// --------------------------------------------------------------------------
// Comparers
// --------------------------------------------------------------------------

// CompareType is the operator of a predicate
type CompareType uint8

const (
	CompareUndefined CompareType = iota
	CompareEqual
	CompareGreater
	CompareGreaterOrEqual
	CompareLess
	CompareLessOrEqual
	CompareLike
	CompareIn
	CompareBetween
	CompareIs
)

func (c CompareType) String() string {
	switch c {
	case CompareEqual:
		return "="
	case CompareGreater:
		return ">"
	case CompareGreaterOrEqual:
		return ">="
	case CompareLess:
		return "<"
	case CompareLessOrEqual:
		return "<="
	case CompareLike:
		return "like"
	case CompareIn:
		return "in"
	case CompareBetween:
		return "between"
	case CompareIs:
		return "is"
	default:
		return ""
	}
}

// Comparer is an operator plus its negation flag
type Comparer struct {
	Type CompareType
	Not  bool
}

var (
	Equal    = Comparer{Type: CompareEqual}
	NotEqual = Comparer{Type: CompareEqual, Not: true}
	Greater  = Comparer{Type: CompareGreater}
	Less     = Comparer{Type: CompareLess}
	Like     = Comparer{Type: CompareLike}
	In       = Comparer{Type: CompareIn}
	Between  = Comparer{Type: CompareBetween}
	Is       = Comparer{Type: CompareIs}
	IsNot    = Comparer{Type: CompareIs, Not: true}
)

// String renders the comparer as SQL text
func (c Comparer) String() string {
	if !c.Not {
		return c.Type.String()
	}
	switch c.Type {
	case CompareEqual:
		return "!="
	case CompareIs:
		return "is not"
	case CompareUndefined:
		return "not"
	default:
		return "not " + c.Type.String()
	}
}

// IsEmpty reports whether no operator was set
func (c Comparer) IsEmpty() bool {
	return c.Type == CompareUndefined
}

// ParseComparer reads an operator from text such as "=", "<>", "not like"
func ParseComparer(text string) (Comparer, bool) {
	fields := strings.Fields(strings.ToLower(text))
	var c Comparer
	if len(fields) > 0 && fields[0] == "not" {
		c.Not = true
		fields = fields[1:]
	}
	if len(fields) == 2 && fields[0] == "is" && fields[1] == "not" {
		return Comparer{Type: CompareIs, Not: !c.Not}, true
	}
	if len(fields) != 1 {
		return c, false
	}
	switch fields[0] {
	case "=", "==":
		c.Type = CompareEqual
	case "!=", "<>":
		c.Type = CompareEqual
		c.Not = !c.Not
	case ">":
		c.Type = CompareGreater
	case ">=":
		c.Type = CompareGreaterOrEqual
	case "<":
		c.Type = CompareLess
	case "<=":
		c.Type = CompareLessOrEqual
	case "like":
		c.Type = CompareLike
	case "in":
		c.Type = CompareIn
	case "between":
		c.Type = CompareBetween
	case "is":
		c.Type = CompareIs
	default:
		return c, false
	}
	return c, true
}

// Range is the operand of a Between comparison, both ends inclusive
type Range struct {
	Min any
	Max any
}

func (r Range) String() string {
	return fmt.Sprintf("%v and %v", r.Min, r.Max)
}

// --------------------------------------------------------------------------
// Like Patterns
// --------------------------------------------------------------------------

var likeCache = xsync.NewMapOf[string, *regexp.Regexp]()

// LikeRegexp compiles a SQL like pattern ('%' any run, '_' one character)
// into an anchored case-insensitive regular expression. Compiled patterns
// are cached process wide.
func LikeRegexp(pattern string) (*regexp.Regexp, error) {
	if re, ok := likeCache.Load(pattern); ok {
		return re, nil
	}
	var sb strings.Builder
	sb.WriteString("(?is)^")
	for _, r := range pattern {
		switch r {
		case '%':
			sb.WriteString(".*")
		case '_':
			sb.WriteString(".")
		default:
			sb.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	sb.WriteString("$")
	re, err := regexp.Compile(sb.String())
	if err != nil {
		return nil, fmt.Errorf("invalid like pattern %q: %w", pattern, err)
	}
	re, _ = likeCache.LoadOrStore(pattern, re)
	return re, nil
}

// MatchLike reports whether text matches the like pattern
func MatchLike(text, pattern string) (bool, error) {
	re, err := LikeRegexp(pattern)
	if err != nil {
		return false, err
	}
	return re.MatchString(text), nil
}

// --------------------------------------------------------------------------
// Untyped Comparison
// --------------------------------------------------------------------------

// CompareValues orders two loosely typed values. Numbers compare
// numerically, times chronologically and everything else as text.
// nil sorts before any other value.
func CompareValues(a, b any) int {
	a, b = Unwrap(a), Unwrap(b)
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	if isNumber(a) && isNumber(b) {
		fa, errA := toFloat64(a)
		fb, errB := toFloat64(b)
		if errA == nil && errB == nil {
			return cmp.Compare(fa, fb)
		}
	}
	switch x := a.(type) {
	case time.Time:
		if y, err := toTime(b); err == nil {
			return x.Compare(y)
		}
	case bool:
		y := toBool(b)
		switch {
		case x == y:
			return 0
		case !x:
			return -1
		default:
			return 1
		}
	case []byte:
		if y, err := toBytes(b); err == nil {
			return bytes.Compare(x, y)
		}
	}
	if isNumber(a) != isNumber(b) {
		// a number against numeric text
		fa, errA := toFloat64(a)
		fb, errB := toFloat64(b)
		if errA == nil && errB == nil {
			return cmp.Compare(fa, fb)
		}
	}
	return strings.Compare(toString(a), toString(b))
}

func isNumber(v any) bool {
	switch v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return true
	}
	return false
}

// CheckValues evaluates "left comparer right" over untyped values.
// In expects a slice (or a single value), Between a Range or a two element
// slice, Is compares against nil.
func CheckValues(left any, c Comparer, right any) (bool, error) {
	result, err := checkValues(Unwrap(left), c.Type, right)
	if err != nil {
		return false, err
	}
	return result != c.Not, nil
}

func checkValues(left any, t CompareType, right any) (bool, error) {
	switch t {
	case CompareIs:
		return left == nil, nil
	case CompareEqual:
		if Unwrap(right) == nil || left == nil {
			return left == nil && Unwrap(right) == nil, nil
		}
		return CompareValues(left, right) == 0, nil
	case CompareGreater, CompareGreaterOrEqual, CompareLess, CompareLessOrEqual:
		if left == nil || Unwrap(right) == nil {
			return false, nil
		}
		return orderMatches(t, CompareValues(left, right)), nil
	case CompareLike:
		return MatchLike(toString(left), toString(right))
	case CompareIn:
		for _, item := range Items(right) {
			if ok, _ := checkValues(left, CompareEqual, item); ok {
				return true, nil
			}
		}
		return false, nil
	case CompareBetween:
		r, err := ToRange(right)
		if err != nil {
			return false, err
		}
		if left == nil {
			return false, nil
		}
		return CompareValues(left, r.Min) >= 0 && CompareValues(left, r.Max) <= 0, nil
	default:
		return false, newError(ErrCInvalidOperation, "undefined comparer")
	}
}

func orderMatches(t CompareType, c int) bool {
	switch t {
	case CompareGreater:
		return c > 0
	case CompareGreaterOrEqual:
		return c >= 0
	case CompareLess:
		return c < 0
	case CompareLessOrEqual:
		return c <= 0
	case CompareEqual:
		return c == 0
	}
	return false
}

// Items flattens an In operand into its elements. Any slice or array is
// expanded (typed slices included), other values form a one element list.
func Items(v any) []any {
	switch x := v.(type) {
	case nil:
		return nil
	case []any:
		return x
	case []byte, string:
		return []any{x}
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return []any{v}
	}
	items := make([]any, rv.Len())
	for i := range items {
		items[i] = rv.Index(i).Interface()
	}
	return items
}

// ToRange converts a Between operand into a Range
func ToRange(v any) (Range, error) {
	switch x := v.(type) {
	case Range:
		return x, nil
	case *Range:
		return *x, nil
	}
	items := Items(v)
	if len(items) != 2 {
		return Range{}, newError(ErrCInvalidOperation, "between expects two values, got %T", v)
	}
	return Range{Min: items[0], Max: items[1]}, nil
}

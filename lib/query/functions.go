package query

import (
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/ValentinKolb/dQuery/lib/db"
	"github.com/puzpuzpuz/xsync/v3"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// --------------------------------------------------------------------------
// Built-in Functions
// --------------------------------------------------------------------------

var functionNames = map[string]bool{
	"lower": true, "upper": true, "initcap": true, "trim": true, "ltrim": true, "rtrim": true,
	"getdate": true, "concat": true, "coalesce": true, "convert": true, "parse": true,
	"datename": true, "len": true, "length": true,
}

// IsFunction reports whether name is a built-in function
func IsFunction(name string) bool {
	return functionNames[strings.ToLower(name)]
}

// rawFirstArg reports whether the first argument of the function is a
// verbatim word (a type name or a date part)
func rawFirstArg(name string) bool {
	return name == "convert" || name == "datename"
}

// converters holds one unattached column per kind, used to coerce values
// for convert and parse
var converters = xsync.NewMapOf[db.Kind, db.Column]()

func convertTo(kindName string, v any) (any, error) {
	kind, err := db.ParseKind(kindName)
	if err != nil {
		return nil, err
	}
	if db.Unwrap(v) == nil {
		return nil, nil
	}
	col, ok := converters.Load(kind)
	if !ok {
		if col, err = db.NewColumn("convert", db.Type(kind)); err != nil {
			return nil, err
		}
		col, _ = converters.LoadOrStore(kind, col)
	}
	parsed, err := col.ParseValue(v)
	if err != nil {
		return nil, err
	}
	return db.Unwrap(parsed), nil
}

// callFunction evaluates a function over evaluated arguments. Null
// arguments yield null except for concat and coalesce.
func callFunction(name string, args []any) (any, error) {
	arg := func(i int) any {
		if i < len(args) {
			return db.Unwrap(args[i])
		}
		return nil
	}
	text := func(f func(string) string) (any, error) {
		if arg(0) == nil {
			return nil, nil
		}
		return f(db.ToString(arg(0))), nil
	}

	switch name {
	case "lower":
		return text(strings.ToLower)
	case "upper":
		return text(strings.ToUpper)
	case "initcap":
		return text(func(s string) string {
			return cases.Title(language.Und).String(strings.ToLower(s))
		})
	case "trim":
		return text(strings.TrimSpace)
	case "ltrim":
		return text(func(s string) string { return strings.TrimLeftFunc(s, unicode.IsSpace) })
	case "rtrim":
		return text(func(s string) string { return strings.TrimRightFunc(s, unicode.IsSpace) })
	case "len", "length":
		if arg(0) == nil {
			return nil, nil
		}
		return int64(utf8.RuneCountInString(db.ToString(arg(0)))), nil
	case "getdate":
		return time.Now(), nil
	case "concat":
		var b strings.Builder
		for i := range args {
			if v := arg(i); v != nil {
				b.WriteString(db.ToString(v))
			}
		}
		return b.String(), nil
	case "coalesce":
		for i := range args {
			if v := arg(i); v != nil {
				return v, nil
			}
		}
		return nil, nil
	case "convert":
		return convertTo(db.ToString(arg(0)), arg(1))
	case "parse":
		return convertTo(db.ToString(arg(1)), arg(0))
	case "datename":
		if arg(1) == nil {
			return nil, nil
		}
		t, err := db.ToTime(arg(1))
		if err != nil {
			return nil, err
		}
		return dateName(db.ToString(arg(0)), t)
	default:
		return nil, db.NewError(db.ErrCInvalidOperation, "unknown function %s", name)
	}
}

// dateName renders one part of t the way datename does
func dateName(part string, t time.Time) (string, error) {
	switch strings.ToLower(part) {
	case "year", "yy", "yyyy":
		return strconv.Itoa(t.Year()), nil
	case "quarter", "qq", "q":
		return strconv.Itoa((int(t.Month())-1)/3 + 1), nil
	case "month", "mm", "m":
		return t.Month().String(), nil
	case "dayofyear", "dy", "y":
		return strconv.Itoa(t.YearDay()), nil
	case "day", "dd", "d":
		return strconv.Itoa(t.Day()), nil
	case "week", "wk", "ww":
		_, week := t.ISOWeek()
		return strconv.Itoa(week), nil
	case "weekday", "dw":
		return t.Weekday().String(), nil
	case "hour", "hh":
		return strconv.Itoa(t.Hour()), nil
	case "minute", "mi", "n":
		return strconv.Itoa(t.Minute()), nil
	case "second", "ss", "s":
		return strconv.Itoa(t.Second()), nil
	default:
		return "", db.NewError(db.ErrCInvalidOperation, "unknown date part %q", part)
	}
}

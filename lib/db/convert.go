package db

import (
	"encoding/hex"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// --------------------------------------------------------------------------
// Untyped Conversions
// --------------------------------------------------------------------------

// The helpers below coerce loosely typed values (driver output, parser
// literals, user input) into the storage types of the codecs.

func toInt64(v any) (int64, error) {
	switch x := Unwrap(v).(type) {
	case int:
		return int64(x), nil
	case int8:
		return int64(x), nil
	case int16:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case int64:
		return x, nil
	case uint:
		return uintToInt64(uint64(x))
	case uint8:
		return int64(x), nil
	case uint16:
		return int64(x), nil
	case uint32:
		return int64(x), nil
	case uint64:
		return uintToInt64(x)
	case float32:
		return floatToInt64(float64(x))
	case float64:
		return floatToInt64(x)
	case bool:
		if x {
			return 1, nil
		}
		return 0, nil
	case time.Duration:
		return int64(x), nil
	case string:
		return parseInt64(x)
	case []byte:
		return parseInt64(string(x))
	case nil:
		return 0, fmt.Errorf("nil is not a number")
	default:
		return 0, fmt.Errorf("unsupported type %T", v)
	}
}

func uintToInt64(u uint64) (int64, error) {
	if u > math.MaxInt64 {
		return 0, fmt.Errorf("%d overflows int64", u)
	}
	return int64(u), nil
}

func floatToInt64(f float64) (int64, error) {
	if f != math.Trunc(f) || f < math.MinInt64 || f > math.MaxInt64 {
		return 0, fmt.Errorf("%v is not an integer", f)
	}
	return int64(f), nil
}

func parseInt64(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%q is not a number", s)
	}
	return floatToInt64(f)
}

func toUint64(v any) (uint64, error) {
	switch x := Unwrap(v).(type) {
	case uint:
		return uint64(x), nil
	case uint8:
		return uint64(x), nil
	case uint16:
		return uint64(x), nil
	case uint32:
		return uint64(x), nil
	case uint64:
		return x, nil
	case string:
		s := strings.TrimSpace(x)
		if u, err := strconv.ParseUint(s, 10, 64); err == nil {
			return u, nil
		}
	case []byte:
		if u, err := strconv.ParseUint(strings.TrimSpace(string(x)), 10, 64); err == nil {
			return u, nil
		}
	}
	i, err := toInt64(v)
	if err != nil {
		return 0, err
	}
	if i < 0 {
		return 0, fmt.Errorf("%d is negative", i)
	}
	return uint64(i), nil
}

func toFloat64(v any) (float64, error) {
	switch x := Unwrap(v).(type) {
	case float32:
		return float64(x), nil
	case float64:
		return x, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, fmt.Errorf("%q is not a number", x)
		}
		return f, nil
	case []byte:
		return toFloat64(string(x))
	case uint64:
		return float64(x), nil
	case uint:
		return float64(x), nil
	}
	i, err := toInt64(v)
	if err != nil {
		return 0, err
	}
	return float64(i), nil
}

// toString renders any value as plain text; nil becomes ""
func toString(v any) string {
	switch x := Unwrap(v).(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	case fmt.Stringer:
		return x.String()
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case time.Time:
		return x.Format(time.RFC3339Nano)
	default:
		return fmt.Sprint(x)
	}
}

// toBool never fails: anything it cannot interpret is false
func toBool(v any) bool {
	switch x := Unwrap(v).(type) {
	case bool:
		return x
	case string:
		return parseBoolText(x)
	case []byte:
		return parseBoolText(string(x))
	case nil:
		return false
	}
	if f, err := toFloat64(v); err == nil {
		return f != 0
	}
	return false
}

func parseBoolText(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "t", "yes", "y", "on", "1":
		return true
	}
	if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
		return f != 0
	}
	return false
}

// exact layouts tried before the loose dateparse fallback
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

func toTime(v any) (time.Time, error) {
	switch x := Unwrap(v).(type) {
	case time.Time:
		return x, nil
	case *time.Time:
		if x == nil {
			return time.Time{}, fmt.Errorf("nil time")
		}
		return *x, nil
	case string:
		return parseTimeText(x)
	case []byte:
		return parseTimeText(string(x))
	case nil:
		return time.Time{}, fmt.Errorf("nil is not a time")
	}
	sec, err := toInt64(v)
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(sec, 0).UTC(), nil
}

func parseTimeText(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return dateparse.ParseIn(s, time.UTC)
}

func toDuration(v any) (time.Duration, error) {
	switch x := Unwrap(v).(type) {
	case time.Duration:
		return x, nil
	case string:
		s := strings.TrimSpace(x)
		if d, err := time.ParseDuration(s); err == nil {
			return d, nil
		}
		i, err := parseInt64(s)
		if err != nil {
			return 0, fmt.Errorf("%q is not a duration", s)
		}
		return time.Duration(i), nil
	case []byte:
		return toDuration(string(x))
	}
	i, err := toInt64(v)
	return time.Duration(i), err
}

// toBytes accepts raw bytes or 0x-prefixed hex and otherwise uses the bytes
// of the text itself. nil yields nil.
func toBytes(v any) ([]byte, error) {
	switch x := Unwrap(v).(type) {
	case nil:
		return nil, nil
	case []byte:
		return x, nil
	case string:
		if strings.HasPrefix(x, "0x") || strings.HasPrefix(x, "0X") {
			b, err := hex.DecodeString(x[2:])
			if err != nil {
				return nil, fmt.Errorf("invalid hex literal: %w", err)
			}
			return b, nil
		}
		return []byte(x), nil
	default:
		return nil, fmt.Errorf("unsupported type %T", v)
	}
}

// FormatLiteral renders an untyped value as a SQL literal. It is used for
// values that no column codec is responsible for.
func FormatLiteral(v any) string {
	switch x := Unwrap(v).(type) {
	case nil:
		return "null"
	case string:
		return QuoteLiteral(x)
	case bool:
		return strconv.FormatBool(x)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case []byte:
		return bytesCodec{}.FormatQuery(x)
	case time.Time:
		return timeCodec{}.FormatQuery(x)
	case time.Duration:
		return durationCodec{}.FormatQuery(x)
	default:
		if isNumber(x) {
			return fmt.Sprint(x)
		}
		return QuoteLiteral(toString(x))
	}
}

// ToString renders any value as plain text; nil becomes ""
func ToString(v any) string { return toString(v) }

// ToInt64 converts a number or numeric text to int64
func ToInt64(v any) (int64, error) { return toInt64(v) }

// ToFloat64 converts a number or numeric text to float64
func ToFloat64(v any) (float64, error) { return toFloat64(v) }

// ToTime converts a time, unix seconds or date text to time.Time
func ToTime(v any) (time.Time, error) { return toTime(v) }

// IsInteger reports whether v holds an integer type
func IsInteger(v any) bool {
	switch Unwrap(v).(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return true
	}
	return false
}

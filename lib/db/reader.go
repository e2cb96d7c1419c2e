package db

import (
	"time"
)

// RowReader is a forward cursor over records of a result set. Ordinals are
// zero based field positions of the current record.
type RowReader interface {
	FieldCount() int
	FieldName(ordinal int) string
	IsNull(ordinal int) bool
	GetValue(ordinal int) any
	GetInt64(ordinal int) (int64, error)
	GetUint64(ordinal int) (uint64, error)
	GetFloat64(ordinal int) (float64, error)
	GetString(ordinal int) (string, error)
	GetBool(ordinal int) (bool, error)
	GetDateTime(ordinal int) (time.Time, error)
	GetBytes(ordinal int) ([]byte, error)
}

// --------------------------------------------------------------------------
// Values Reader
// --------------------------------------------------------------------------

// ValuesReader serves a single record held in memory. It is used to load
// rows from scanned driver values and in tests.
type ValuesReader struct {
	Names  []string
	Values []any
}

// NewValuesReader creates a reader over one record
func NewValuesReader(names []string, values []any) *ValuesReader {
	return &ValuesReader{Names: names, Values: values}
}

// Reset replaces the current record, keeping the field names
func (r *ValuesReader) Reset(values []any) {
	r.Values = values
}

func (r *ValuesReader) FieldCount() int {
	return len(r.Names)
}

func (r *ValuesReader) FieldName(ordinal int) string {
	return r.Names[ordinal]
}

func (r *ValuesReader) IsNull(ordinal int) bool {
	return Unwrap(r.Values[ordinal]) == nil
}

func (r *ValuesReader) GetValue(ordinal int) any {
	return Unwrap(r.Values[ordinal])
}

func (r *ValuesReader) GetInt64(ordinal int) (int64, error) {
	return toInt64(r.Values[ordinal])
}

func (r *ValuesReader) GetUint64(ordinal int) (uint64, error) {
	return toUint64(r.Values[ordinal])
}

func (r *ValuesReader) GetFloat64(ordinal int) (float64, error) {
	return toFloat64(r.Values[ordinal])
}

func (r *ValuesReader) GetString(ordinal int) (string, error) {
	return toString(r.Values[ordinal]), nil
}

func (r *ValuesReader) GetBool(ordinal int) (bool, error) {
	return toBool(r.Values[ordinal]), nil
}

func (r *ValuesReader) GetDateTime(ordinal int) (time.Time, error) {
	return toTime(r.Values[ordinal])
}

func (r *ValuesReader) GetBytes(ordinal int) ([]byte, error) {
	return toBytes(r.Values[ordinal])
}

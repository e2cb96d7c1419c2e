package source

import (
	"database/sql"
	"fmt"

	"github.com/ValentinKolb/dQuery/lib/db"
)

// Rows is a db.RowReader over a database/sql result set. The current record
// is held in memory after Next, so getters never touch the driver.
type Rows struct {
	*db.ValuesReader
	rows *sql.Rows
}

// NewRows wraps rows. The caller still owns rows and must close it,
// Rows.Close does so on its behalf.
func NewRows(rows *sql.Rows) (*Rows, error) {
	names, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read result columns: %w", err)
	}
	return &Rows{
		ValuesReader: db.NewValuesReader(names, nil),
		rows:         rows,
	}, nil
}

// Next advances to the next record. It returns false at the end of the
// result set or on error.
func (r *Rows) Next() (bool, error) {
	if !r.rows.Next() {
		return false, r.rows.Err()
	}
	values := make([]any, len(r.Names))
	dest := make([]any, len(values))
	for i := range values {
		dest[i] = &values[i]
	}
	if err := r.rows.Scan(dest...); err != nil {
		return false, fmt.Errorf("scan record: %w", err)
	}
	r.Reset(values)
	return true, nil
}

func (r *Rows) Close() error {
	return r.rows.Close()
}

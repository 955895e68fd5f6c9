package sql

import (
	"database/sql"
	"errors"
	"fmt"
)

// RowSet is a fully read result. It satisfies ColumnScanner, so code
// written against *sql.Rows can iterate it after the originating
// transaction has been committed.
type RowSet struct {
	columns []string
	rows    [][]any
	pos     int
}

// NewRowSet builds a RowSet from literal values, mostly for tests.
func NewRowSet(columns []string, rows ...[]any) *RowSet {
	return &RowSet{columns: columns, rows: rows, pos: -1}
}

// Collect drains rs into a RowSet. It does not close rs.
func Collect(rs ColumnScanner) (*RowSet, error) {
	columns, err := rs.Columns()
	if err != nil {
		return nil, err
	}
	set := &RowSet{columns: columns, pos: -1}
	for rs.Next() {
		values := make([]any, len(columns))
		dest := make([]any, len(columns))
		for i := range values {
			dest[i] = &values[i]
		}
		if err := rs.Scan(dest...); err != nil {
			return nil, err
		}
		set.rows = append(set.rows, values)
	}
	if err := rs.Err(); err != nil {
		return nil, err
	}
	return set, nil
}

// Columns returns the column names of the result.
func (r *RowSet) Columns() ([]string, error) {
	return r.columns, nil
}

// Len returns the number of rows.
func (r *RowSet) Len() int {
	return len(r.rows)
}

// Next advances to the next row.
func (r *RowSet) Next() bool {
	if r.pos+1 >= len(r.rows) {
		r.pos = len(r.rows)
		return false
	}
	r.pos++
	return true
}

// Reset rewinds the cursor before the first row.
func (r *RowSet) Reset() {
	r.pos = -1
}

// Scan copies the current row into dest. Each destination must be *any or
// implement sql.Scanner.
func (r *RowSet) Scan(dest ...any) error {
	if r.pos < 0 || r.pos >= len(r.rows) {
		return errors.New("dialect/sql: Scan called without calling Next")
	}
	row := r.rows[r.pos]
	if len(dest) != len(row) {
		return fmt.Errorf("dialect/sql: expected %d destination arguments in Scan, not %d", len(row), len(dest))
	}
	for i, d := range dest {
		switch d := d.(type) {
		case *any:
			*d = row[i]
		case sql.Scanner:
			if err := d.Scan(row[i]); err != nil {
				return fmt.Errorf("dialect/sql: scan column %q: %w", r.columns[i], err)
			}
		default:
			return fmt.Errorf("dialect/sql: unsupported Scan destination %T for column %q", d, r.columns[i])
		}
	}
	return nil
}

// Err always returns nil; read errors are reported by Collect.
func (r *RowSet) Err() error { return nil }

// Close is a no-op.
func (r *RowSet) Close() error { return nil }

var _ ColumnScanner = (*RowSet)(nil)

package builder

import (
	"errors"
	"strings"

	"github.com/syssam/relmap"
	"github.com/syssam/relmap/schema"
)

// column is a rendered column of an entity.
type column struct {
	name  string
	value any
	isID  bool
}

// columns returns the columns of entity in schema.Columns order.
func columns(entity any) (string, []column, error) {
	ptr, d, err := schema.Entity(entity)
	if err != nil {
		return "", nil, err
	}
	e := ptr.Interface()
	cols := make([]column, 0, len(d.Columns()))
	for _, f := range d.Columns() {
		name, err := schema.ColumnName(f)
		if err != nil {
			return "", nil, err
		}
		cols = append(cols, column{name: name, value: f.Value(e), isID: f.Kind == schema.KindID})
	}
	return d.Table, cols, nil
}

func render(c column) (string, error) {
	s, err := StringValueForSQL(c.value)
	if err != nil {
		var e *relmap.InvalidColumnTypeError
		if errors.As(err, &e) && e.Column == "" {
			e.Column = c.name
		}
		return "", err
	}
	return s, nil
}

// Insert returns the INSERT statement of entity. NULL columns are omitted.
//
//	INSERT INTO orders(id, total) VALUES (7, 9.5)
func Insert(entity any) (string, error) {
	table, cols, err := columns(entity)
	if err != nil {
		return "", err
	}
	names := make([]string, 0, len(cols))
	values := make([]string, 0, len(cols))
	for _, c := range cols {
		if schema.IsNil(c.value) {
			continue
		}
		v, err := render(c)
		if err != nil {
			return "", err
		}
		// A reference without an id renders as NULL.
		if v == "NULL" {
			continue
		}
		names = append(names, c.name)
		values = append(values, v)
	}
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(table)
	b.WriteByte('(')
	b.WriteString(strings.Join(names, ", "))
	b.WriteString(") VALUES (")
	b.WriteString(strings.Join(values, ", "))
	b.WriteByte(')')
	return b.String(), nil
}

// Update returns the UPDATE statement of entity, or "" if the entity has no
// column besides its id.
//
//	UPDATE orders SET total = NULL, customer_id = 3 WHERE id = 7
func Update(entity any) (string, error) {
	table, cols, err := columns(entity)
	if err != nil {
		return "", err
	}
	var (
		where string
		sets  []string
	)
	for _, c := range cols {
		v, err := render(c)
		if err != nil {
			return "", err
		}
		if c.isID {
			where = c.name + " = " + v
			continue
		}
		sets = append(sets, c.name+" = "+v)
	}
	if len(sets) == 0 {
		return "", nil
	}
	return "UPDATE " + table + " SET " + strings.Join(sets, ", ") + " WHERE " + where, nil
}

// Remove returns the DELETE statement of entity.
//
//	DELETE FROM orders WHERE id = 7
func Remove(entity any) (string, error) {
	ptr, d, err := schema.Entity(entity)
	if err != nil {
		return "", err
	}
	col, err := d.ID.IDColumnName()
	if err != nil {
		return "", err
	}
	id, err := render(column{name: col, value: d.ID.Value(ptr.Interface())})
	if err != nil {
		return "", err
	}
	return "DELETE FROM " + d.Table + " WHERE " + col + " = " + id, nil
}

// SelectAll returns the statement selecting every row of table.
func SelectAll(table string) string {
	return "SELECT * FROM " + table
}

// SelectAllByColumn returns the statement selecting the rows of table whose
// column equals value.
func SelectAllByColumn(table, column string, value any) (string, error) {
	return SelectAllByColumns(table, []string{column}, []any{value})
}

// SelectAllByColumns returns the statement selecting the rows of table
// matching every column/value pair. Conditions are separated by commas:
//
//	SELECT * FROM t WHERE a = 'x', b = 'y'
//
// It returns "" if the slices are empty or differ in length.
func SelectAllByColumns(table string, columns []string, values []any) (string, error) {
	if len(columns) == 0 || len(columns) != len(values) {
		return "", nil
	}
	conds := make([]string, len(columns))
	for i, name := range columns {
		v, err := render(column{name: name, value: values[i]})
		if err != nil {
			return "", err
		}
		conds[i] = name + " = " + v
	}
	return SelectAll(table) + " WHERE " + strings.Join(conds, ", "), nil
}

// ExampleFilter returns the table, columns and values of every non-NULL
// column of entity, for query-by-example lookups.
func ExampleFilter(entity any) (table string, names []string, values []any, err error) {
	table, cols, err := columns(entity)
	if err != nil {
		return "", nil, nil, err
	}
	for _, c := range cols {
		if schema.IsNil(c.value) {
			continue
		}
		names = append(names, c.name)
		values = append(values, c.value)
	}
	return table, names, values, nil
}

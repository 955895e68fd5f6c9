package materialize

import (
	"errors"
	"reflect"

	"go.uber.org/zap"

	"github.com/syssam/relmap"
	"github.com/syssam/relmap/schema"
)

// Cursor is the read side of a result, implemented by *sql.Rows and
// by sql.RowSet of the dialect/sql package.
type Cursor interface {
	Columns() ([]string, error)
	Next() bool
	Scan(dest ...any) error
	Err() error
}

// Row is a result row keyed by column name.
type Row map[string]any

// ReadRow scans the current row of rows.
func ReadRow(rows Cursor) (Row, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	return scanRow(rows, columns)
}

func scanRow(rows Cursor, columns []string) (Row, error) {
	values := make([]any, len(columns))
	dest := make([]any, len(columns))
	for i := range values {
		dest[i] = &values[i]
	}
	if err := rows.Scan(dest...); err != nil {
		return nil, err
	}
	row := make(Row, len(columns))
	for i, c := range columns {
		row[c] = values[i]
	}
	return row, nil
}

// Materializer turns result rows into entities. Relation fields are not
// populated beyond reference stubs.
type Materializer struct {
	log *zap.Logger
}

// Option configures a Materializer.
type Option func(*Materializer)

// WithLogger sets the logger for assignment failures.
func WithLogger(log *zap.Logger) Option {
	return func(m *Materializer) {
		if log != nil {
			m.log = log
		}
	}
}

// New returns a Materializer.
func New(opts ...Option) *Materializer {
	m := &Materializer{log: zap.NewNop()}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// NewInstance returns a pointer to a new zero entity of type t.
func NewInstance(t reflect.Type) (reflect.Value, error) {
	d, err := schema.Describe(t)
	if err != nil {
		return reflect.Value{}, err
	}
	return reflect.New(d.Type), nil
}

// PopulateColumns assigns every row value whose column is in columns to
// entity, a pointer to the owner type. Columns missing from either side are
// skipped. A reference column receives a new target instance carrying only
// the id. Failed assignments are logged and leave the field unchanged.
func (m *Materializer) PopulateColumns(row Row, entity reflect.Value, columns map[string]*schema.Field) {
	for name, v := range row {
		f, ok := columns[name]
		if !ok {
			continue
		}
		if err := m.assignField(f, entity, v); err != nil {
			m.log.Warn("assign column",
				zap.String("entity", entity.Type().Elem().Name()),
				zap.String("field", f.Name),
				zap.String("column", name),
				zap.Error(err),
			)
		}
	}
}

// SetField converts v and assigns it to field f of entity, following the
// rules of PopulateColumns. Unlike PopulateColumns it returns the failure.
func (m *Materializer) SetField(entity reflect.Value, f *schema.Field, v any) error {
	return m.assignField(f, entity, v)
}

func (m *Materializer) assignField(f *schema.Field, entity reflect.Value, v any) error {
	dst := f.Addr(entity)
	if !f.IsReference() {
		return annotate(assign(dst, v), f)
	}
	if v == nil {
		dst.Set(reflect.Zero(dst.Type()))
		return nil
	}
	target, err := schema.TargetEntity(f)
	if err != nil {
		return err
	}
	stub, err := NewInstance(target)
	if err != nil {
		return err
	}
	id, err := schema.IDField(target)
	if err != nil {
		return err
	}
	if err := assign(id.Addr(stub), v); err != nil {
		return annotate(err, f)
	}
	dst.Set(stub)
	return nil
}

func annotate(err error, f *schema.Field) error {
	var e *relmap.InvalidColumnTypeError
	if errors.As(err, &e) && e.Column == "" {
		e.Column = f.Name
	}
	return err
}

// Object materializes the current row of rows as an entity of type t.
func (m *Materializer) Object(rows Cursor, t reflect.Type) (reflect.Value, error) {
	columns, err := schema.ColumnsMap(t)
	if err != nil {
		return reflect.Value{}, err
	}
	row, err := ReadRow(rows)
	if err != nil {
		return reflect.Value{}, err
	}
	return m.object(row, t, columns)
}

func (m *Materializer) object(row Row, t reflect.Type, columns map[string]*schema.Field) (reflect.Value, error) {
	e, err := NewInstance(t)
	if err != nil {
		return reflect.Value{}, err
	}
	m.PopulateColumns(row, e, columns)
	return e, nil
}

// List materializes every remaining row of rows. A row that fails to scan
// is logged and skipped. A cursor failure discards the rows read so far
// and is returned.
func (m *Materializer) List(rows Cursor, t reflect.Type) ([]reflect.Value, error) {
	columns, err := schema.ColumnsMap(t)
	if err != nil {
		return nil, err
	}
	names, err := rows.Columns()
	if err != nil {
		return []reflect.Value{}, err
	}
	list := make([]reflect.Value, 0)
	for rows.Next() {
		row, err := scanRow(rows, names)
		if err != nil {
			m.log.Warn("skip row", zap.Stringer("type", t), zap.Error(err))
			continue
		}
		e, err := m.object(row, t, columns)
		if err != nil {
			return nil, err
		}
		list = append(list, e)
	}
	if err := rows.Err(); err != nil {
		return []reflect.Value{}, err
	}
	return list, nil
}

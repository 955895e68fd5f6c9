package builder

import (
	"database/sql/driver"
	"reflect"
	"strconv"
	"time"

	"github.com/syssam/relmap"
	"github.com/syssam/relmap/schema"
)

// TimeLayout is the layout of time literals. Times are written in UTC.
const TimeLayout = "2006-01-02 15:04:05.999999999"

// StringValueForSQL renders v as a SQL literal.
//
//	nil, nil pointer        NULL
//	string kinds            'text' (not escaped)
//	bool, ints, uints       true, 42
//	floats                  shortest decimal, e.g. 9.5
//	time.Time               '2024-01-02 15:04:05' (in UTC)
//	driver.Valuer           the rendered driver value
//	entity or entity ptr    the rendered id of the entity
//
// Slices, arrays, maps and other composite values are rejected with an
// InvalidColumnTypeError.
func StringValueForSQL(v any) (string, error) {
	if schema.IsNil(v) {
		return "NULL", nil
	}
	switch v := v.(type) {
	case time.Time:
		return quote(v.UTC().Format(TimeLayout)), nil
	case driver.Valuer:
		dv, err := v.Value()
		if err != nil {
			return "", &relmap.InvalidColumnTypeError{Type: reflect.TypeOf(v).String(), Err: err}
		}
		if b, ok := dv.([]byte); ok {
			return quote(string(b)), nil
		}
		return StringValueForSQL(dv)
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return "NULL", nil
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.String:
		return quote(rv.String()), nil
	case reflect.Bool:
		return strconv.FormatBool(rv.Bool()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return strconv.FormatUint(rv.Uint(), 10), nil
	case reflect.Float32:
		return strconv.FormatFloat(rv.Float(), 'f', -1, 32), nil
	case reflect.Float64:
		return strconv.FormatFloat(rv.Float(), 'f', -1, 64), nil
	case reflect.Struct:
		if t, ok := rv.Interface().(time.Time); ok {
			return quote(t.UTC().Format(TimeLayout)), nil
		}
		if id, ok := entityID(rv); ok {
			return StringValueForSQL(id)
		}
	}
	return "", &relmap.InvalidColumnTypeError{Type: rv.Type().String()}
}

// entityID returns the id of an entity struct value.
func entityID(rv reflect.Value) (any, bool) {
	ptr, d, err := schema.Entity(rv.Interface())
	if err != nil {
		return nil, false
	}
	return d.ID.Value(ptr.Interface()), true
}

func quote(s string) string {
	return "'" + s + "'"
}

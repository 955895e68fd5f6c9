package materialize

import (
	"database/sql"
	"fmt"
	"reflect"
	"time"

	"github.com/spf13/cast"

	"github.com/syssam/relmap"
	"github.com/syssam/relmap/schema"
)

var timeType = reflect.TypeOf(time.Time{})

// assign converts src, a value read from a result row, to the type of dst
// and stores it. NULL resets dst to its zero value.
func assign(dst reflect.Value, src any) error {
	if schema.IsNil(src) {
		dst.Set(reflect.Zero(dst.Type()))
		return nil
	}
	if dst.CanAddr() {
		if sc, ok := dst.Addr().Interface().(sql.Scanner); ok {
			return sc.Scan(src)
		}
	}
	if dst.Kind() == reflect.Pointer {
		v := reflect.New(dst.Type().Elem())
		if err := assign(v.Elem(), src); err != nil {
			return err
		}
		dst.Set(v)
		return nil
	}
	if b, ok := src.([]byte); ok {
		if dst.Kind() == reflect.Slice && dst.Type().Elem().Kind() == reflect.Uint8 {
			dst.Set(reflect.ValueOf(append([]byte(nil), b...)).Convert(dst.Type()))
			return nil
		}
		src = string(b)
	}
	sv := reflect.ValueOf(src)
	if sv.Type().AssignableTo(dst.Type()) {
		dst.Set(sv)
		return nil
	}
	var err error
	switch dst.Kind() {
	case reflect.String:
		var s string
		if s, err = cast.ToStringE(src); err == nil {
			dst.SetString(s)
		}
	case reflect.Bool:
		var b bool
		if b, err = cast.ToBoolE(src); err == nil {
			dst.SetBool(b)
		}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		var n int64
		if n, err = cast.ToInt64E(src); err == nil {
			if dst.OverflowInt(n) {
				err = fmt.Errorf("value %d overflows %s", n, dst.Type())
			} else {
				dst.SetInt(n)
			}
		}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		var n uint64
		if n, err = cast.ToUint64E(src); err == nil {
			if dst.OverflowUint(n) {
				err = fmt.Errorf("value %d overflows %s", n, dst.Type())
			} else {
				dst.SetUint(n)
			}
		}
	case reflect.Float32, reflect.Float64:
		var f float64
		if f, err = cast.ToFloat64E(src); err == nil {
			if dst.OverflowFloat(f) {
				err = fmt.Errorf("value %v overflows %s", f, dst.Type())
			} else {
				dst.SetFloat(f)
			}
		}
	case reflect.Struct:
		if dst.Type() != timeType {
			return &relmap.InvalidColumnTypeError{Type: dst.Type().String()}
		}
		var t time.Time
		if t, err = cast.ToTimeE(src); err == nil {
			dst.Set(reflect.ValueOf(t))
		}
	default:
		return &relmap.InvalidColumnTypeError{Type: dst.Type().String()}
	}
	if err != nil {
		return &relmap.InvalidColumnTypeError{Type: dst.Type().String(), Err: err}
	}
	return nil
}

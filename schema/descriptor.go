package schema

import (
	"reflect"
	"sync"
	"unsafe"

	"github.com/viant/xunsafe"

	"github.com/syssam/relmap"
	"github.com/syssam/relmap/schema/edge"
)

// Tabler is implemented by entity types to name their table. Value and
// pointer receivers are both accepted.
type Tabler interface {
	TableName() string
}

// Kind is the persistence kind of a field.
type Kind uint8

// Field kinds.
const (
	KindID Kind = iota + 1
	KindColumn
	KindRelation
)

// String returns the tag kind of k.
func (k Kind) String() string {
	switch k {
	case KindID:
		return TagID
	case KindColumn:
		return TagColumn
	case KindRelation:
		return "relation"
	default:
		return "unknown"
	}
}

// Descriptor is the immutable metadata of an entity type.
type Descriptor struct {
	Type   reflect.Type
	Table  string
	ID     *Field
	Fields []*Field // persisted fields in declaration order

	columns []*Field // id, columns, owning one_to_one, many_to_one

	once   sync.Once
	colMap map[string]*Field
	colErr error
}

// Name returns the Go type name of the entity.
func (d *Descriptor) Name() string {
	return typeName(d.Type)
}

// Field returns the persisted field with the given Go name.
func (d *Descriptor) Field(name string) (*Field, bool) {
	for _, f := range d.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return nil, false
}

// Columns returns the column fields in SQL order.
func (d *Descriptor) Columns() []*Field {
	return d.columns
}

// Relations returns the fields declaring rel.
func (d *Descriptor) Relations(rel edge.Rel) []*Field {
	var fs []*Field
	for _, f := range d.Fields {
		if f.Rel == rel {
			fs = append(fs, f)
		}
	}
	return fs
}

// ColumnsMap returns the column name to field mapping. The first call
// resolves the foreign key columns of reference fields, which may describe
// their target types.
func (d *Descriptor) ColumnsMap() (map[string]*Field, error) {
	d.once.Do(func() {
		m := make(map[string]*Field, len(d.columns))
		for _, f := range d.columns {
			name, err := ColumnName(f)
			if err != nil {
				d.colErr = err
				return
			}
			if prev, ok := m[name]; ok {
				d.colErr = relmap.NewFieldMappingError(d.Name(), f.Name, "column %q already mapped by %s", name, prev.Name)
				return
			}
			m[name] = f
		}
		d.colMap = m
	})
	return d.colMap, d.colErr
}

// Field is a persisted struct field.
type Field struct {
	Name  string       // Go field name
	Type  reflect.Type // declared type
	Index int
	Kind  Kind
	Rel   edge.Rel
	Owner reflect.Type

	column            string
	joinColumn        string
	inverseJoinColumn string
	joinTable         string
	target            string
	mappedBy          string
	elem              reflect.Type // struct type derived from the declaration

	xf *xunsafe.Field
}

// MappedBy returns the name of the owning field on the target, if any.
func (f *Field) MappedBy() string { return f.mappedBy }

// IsColumn reports whether the field is stored as a column of its own table.
func (f *Field) IsColumn() bool {
	switch f.Kind {
	case KindID, KindColumn:
		return true
	case KindRelation:
		return f.Rel == edge.M2O || f.Rel == edge.O2O && f.mappedBy == ""
	}
	return false
}

// IsReference reports whether the field holds a single related entity
// stored as a foreign key.
func (f *Field) IsReference() bool {
	return f.Kind == KindRelation && f.IsColumn()
}

// Value returns the field value of entity, which must be a non-nil pointer
// to the owner type.
func (f *Field) Value(entity any) any {
	return f.xf.Value(xunsafe.AsPointer(entity))
}

// ValueAt is like Value for an entity address.
func (f *Field) ValueAt(ptr unsafe.Pointer) any {
	return f.xf.Value(ptr)
}

// Addr returns the settable field of entity, a pointer to the owner type.
func (f *Field) Addr(entity reflect.Value) reflect.Value {
	return entity.Elem().Field(f.Index)
}

// IsNil reports whether v, a value returned by Value, is NULL.
func IsNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}

var descriptors sync.Map // reflect.Type => *Descriptor

// Describe returns the descriptor of t, a struct or pointer to struct type.
// Only the type's own tags are read; related types are described on demand
// by the resolver functions.
func Describe(t reflect.Type) (*Descriptor, error) {
	t = indirect(t)
	if t == nil {
		return nil, relmap.NewInvalidMappingError("<nil>", "entity type is nil")
	}
	if d, ok := descriptors.Load(t); ok {
		return d.(*Descriptor), nil
	}
	d, err := describe(t)
	if err != nil {
		return nil, err
	}
	actual, _ := descriptors.LoadOrStore(t, d)
	return actual.(*Descriptor), nil
}

// DescribeOf is a shorthand for Describe(reflect.TypeOf(entity)).
func DescribeOf(entity any) (*Descriptor, error) {
	return Describe(reflect.TypeOf(entity))
}

func describe(t reflect.Type) (*Descriptor, error) {
	name := typeName(t)
	if t.Kind() != reflect.Struct {
		return nil, relmap.NewInvalidMappingError(name, "entity must be a struct, got %s", t.Kind())
	}
	tb, ok := reflect.New(t).Interface().(Tabler)
	if !ok {
		return nil, relmap.NewInvalidMappingError(name, "missing TableName method")
	}
	d := &Descriptor{Type: t, Table: tb.TableName()}
	if d.Table == "" {
		return nil, relmap.NewInvalidMappingError(name, "TableName returned an empty name")
	}
	var cols, o2o, m2o []*Field
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		raw, ok := sf.Tag.Lookup(TagName)
		if !ok || raw == "-" {
			continue
		}
		if sf.Anonymous || !sf.IsExported() {
			return nil, relmap.NewFieldMappingError(name, sf.Name, "tagged field must be exported and not embedded")
		}
		tg, err := parseTag(raw)
		if err != nil {
			return nil, relmap.NewFieldMappingError(name, sf.Name, "%v", err)
		}
		f, err := newField(t, sf, tg)
		if err != nil {
			return nil, err
		}
		d.Fields = append(d.Fields, f)
		switch {
		case f.Kind == KindID:
			if d.ID != nil {
				return nil, relmap.NewInvalidMappingError(name, "more than one id field (%s, %s)", d.ID.Name, f.Name)
			}
			d.ID = f
		case f.Kind == KindColumn:
			cols = append(cols, f)
		case f.Rel == edge.O2O && f.mappedBy == "":
			o2o = append(o2o, f)
		case f.Rel == edge.M2O:
			m2o = append(m2o, f)
		}
	}
	if d.ID == nil {
		return nil, relmap.NewInvalidMappingError(name, "missing id field")
	}
	d.columns = append(d.columns, d.ID)
	d.columns = append(d.columns, cols...)
	d.columns = append(d.columns, o2o...)
	d.columns = append(d.columns, m2o...)
	return d, nil
}

func newField(owner reflect.Type, sf reflect.StructField, tg tag) (*Field, error) {
	f := &Field{
		Name:              sf.Name,
		Type:              sf.Type,
		Index:             sf.Index[0],
		Owner:             owner,
		joinColumn:        tg.opts[OptJoinColumn],
		inverseJoinColumn: tg.opts[OptInverseJoinColumn],
		joinTable:         tg.opts[OptJoinTable],
		target:            tg.opts[OptTarget],
		mappedBy:          tg.opts[OptMappedBy],
		xf:                xunsafe.NewField(sf),
	}
	fail := func(format string, args ...any) (*Field, error) {
		return nil, relmap.NewFieldMappingError(typeName(owner), sf.Name, format, args...)
	}
	switch tg.kind {
	case TagID, TagColumn:
		f.Kind = KindColumn
		if tg.kind == TagID {
			f.Kind = KindID
		}
		f.column = tg.opts[OptColumn]
		if f.column == "" {
			f.column = snake(sf.Name)
		}
		return f, nil
	}
	f.Kind, f.Rel = KindRelation, tg.rel()
	switch f.Rel {
	case edge.O2O, edge.M2O:
		if sf.Type.Kind() != reflect.Pointer || sf.Type.Elem().Kind() != reflect.Struct {
			return fail("%s field must be a pointer to a struct, got %s", tg.kind, sf.Type)
		}
		f.elem = sf.Type.Elem()
		if f.mappedBy != "" && f.joinColumn != "" {
			return fail("join_column and mapped_by are mutually exclusive")
		}
	case edge.O2M, edge.M2M:
		f.elem = elemStruct(sf.Type)
		if f.Rel == edge.M2M && (f.joinTable == "") == (f.mappedBy == "") {
			return fail("many_to_many requires exactly one of join_table or mapped_by")
		}
		if f.mappedBy != "" && (f.joinColumn != "" || f.inverseJoinColumn != "") {
			return fail("join columns are declared on the owning side")
		}
	}
	if f.elem == nil && f.target == "" {
		return fail("cannot derive the target entity of %s, use the target option", sf.Type)
	}
	return f, nil
}

// elemStruct returns the struct type held by t, looking through pointers,
// slices and arrays.
func elemStruct(t reflect.Type) reflect.Type {
	for {
		switch t.Kind() {
		case reflect.Pointer, reflect.Slice, reflect.Array:
			t = t.Elem()
		case reflect.Struct:
			return t
		default:
			return nil
		}
	}
}

func typeName(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	if t.Name() != "" {
		return t.Name()
	}
	return t.String()
}

package schema

import (
	"reflect"

	"github.com/syssam/relmap"
	"github.com/syssam/relmap/schema/edge"
)

// JoinTableDescriptor describes the join table of a many_to_many relation
// from the owning side.
type JoinTableDescriptor struct {
	Name              string
	JoinColumn        string // references the owning entity
	InverseJoinColumn string // references the target entity
}

// TableName returns the table of t.
func TableName(t reflect.Type) (string, error) {
	d, err := Describe(t)
	if err != nil {
		return "", err
	}
	return d.Table, nil
}

// IDField returns the id field of t.
func IDField(t reflect.Type) (*Field, error) {
	d, err := Describe(t)
	if err != nil {
		return nil, err
	}
	return d.ID, nil
}

// IDColumnName returns the id column of t.
func IDColumnName(t reflect.Type) (string, error) {
	d, err := Describe(t)
	if err != nil {
		return "", err
	}
	return d.ID.column, nil
}

// IDColumnName returns the column of an id field.
func (f *Field) IDColumnName() (string, error) {
	if f.Kind != KindID {
		return "", missing(f, TagID)
	}
	return f.column, nil
}

// Columns returns the id field, the plain columns, the owning one_to_one
// fields and the many_to_one fields of t, in that order.
func Columns(t reflect.Type) ([]*Field, error) {
	d, err := Describe(t)
	if err != nil {
		return nil, err
	}
	return d.columns, nil
}

// ColumnName returns the column of an id or plain field, or the foreign key
// column of a reference field. Unless join_column is set, the foreign key
// defaults to the singular target table joined with its id column.
func ColumnName(f *Field) (string, error) {
	switch {
	case f.Kind == KindID || f.Kind == KindColumn:
		return f.column, nil
	case f.IsReference():
		if f.joinColumn != "" {
			return f.joinColumn, nil
		}
		target, err := TargetEntity(f)
		if err != nil {
			return "", err
		}
		td, err := Describe(target)
		if err != nil {
			return "", err
		}
		return foreignKey(td.Table, td.ID.column), nil
	case f.Rel == edge.O2O:
		return "", relmap.NewFieldMappingError(typeName(f.Owner), f.Name, "inverse one_to_one has no column")
	}
	return "", missing(f, TagID, TagColumn, TagOneToOne, TagManyToOne)
}

// ColumnsMap returns the column name to field mapping of t.
func ColumnsMap(t reflect.Type) (map[string]*Field, error) {
	d, err := Describe(t)
	if err != nil {
		return nil, err
	}
	return d.ColumnsMap()
}

// OneToOneFields returns the one_to_one fields of t, owning and inverse.
func OneToOneFields(t reflect.Type) ([]*Field, error) {
	return relations(t, edge.O2O)
}

// ManyToOneFields returns the many_to_one fields of t.
func ManyToOneFields(t reflect.Type) ([]*Field, error) {
	return relations(t, edge.M2O)
}

// OneToManyFields returns the one_to_many fields of t.
func OneToManyFields(t reflect.Type) ([]*Field, error) {
	return relations(t, edge.O2M)
}

// ManyToManyFields returns the many_to_many fields of t. Every field must
// resolve its join table.
func ManyToManyFields(t reflect.Type) ([]*Field, error) {
	fs, err := relations(t, edge.M2M)
	if err != nil {
		return nil, err
	}
	for _, f := range fs {
		if _, err := JoinTable(f); err != nil {
			return nil, err
		}
	}
	return fs, nil
}

func relations(t reflect.Type, rel edge.Rel) ([]*Field, error) {
	d, err := Describe(t)
	if err != nil {
		return nil, err
	}
	return d.Relations(rel), nil
}

// TargetEntity returns the struct type a relation field points to: the
// registered type named by the target option, or the declared type (the
// element type for lists).
func TargetEntity(f *Field) (reflect.Type, error) {
	if f.Kind != KindRelation {
		return nil, missing(f, TagOneToOne, TagManyToOne, TagOneToMany, TagManyToMany)
	}
	if f.target == "" {
		return f.elem, nil
	}
	t, ok := Lookup(f.target)
	if !ok {
		return nil, relmap.NewFieldMappingError(typeName(f.Owner), f.Name, "target entity %q is not registered", f.target)
	}
	if f.elem != nil && f.elem != t {
		return nil, relmap.NewFieldMappingError(typeName(f.Owner), f.Name, "target %s does not match declared type %s", t, f.Type)
	}
	return t, nil
}

// MappedField returns the field on the target entity named by mapped_by.
// For one_to_many fields without mapped_by, it is the single many_to_one
// field of the target that points back at the owner.
func MappedField(f *Field) (*Field, error) {
	target, err := TargetEntity(f)
	if err != nil {
		return nil, err
	}
	switch f.Rel {
	case edge.O2M:
		return ManyToOneField(target, f.Owner, f.mappedBy)
	case edge.O2O, edge.M2M:
		if f.mappedBy == "" {
			return nil, relmap.NewFieldMappingError(typeName(f.Owner), f.Name, "field is the owning side")
		}
		td, err := Describe(target)
		if err != nil {
			return nil, err
		}
		of, ok := td.Field(f.mappedBy)
		if !ok || of.Rel != f.Rel || of.mappedBy != "" {
			return nil, relmap.NewFieldMappingError(typeName(f.Owner), f.Name, "mapped_by %q must name an owning %s field of %s", f.mappedBy, f.Rel.Tag(), td.Name())
		}
		if back, err := TargetEntity(of); err != nil || back != f.Owner {
			return nil, relmap.NewFieldMappingError(typeName(f.Owner), f.Name, "%s.%s does not point back at %s", td.Name(), of.Name, typeName(f.Owner))
		}
		return of, nil
	}
	return nil, missing(f, TagOneToOne, TagOneToMany, TagManyToMany)
}

// ManyToOneField returns the many_to_one field of target that references
// owner. If mappedBy is set, it names the field; otherwise exactly one such
// field must exist.
func ManyToOneField(target, owner reflect.Type, mappedBy string) (*Field, error) {
	td, err := Describe(target)
	if err != nil {
		return nil, err
	}
	owner = indirect(owner)
	if mappedBy != "" {
		f, ok := td.Field(mappedBy)
		if !ok || f.Rel != edge.M2O {
			return nil, relmap.NewInvalidMappingError(td.Name(), "mapped_by %q is not a many_to_one field", mappedBy)
		}
		if t, err := TargetEntity(f); err != nil || t != owner {
			return nil, relmap.NewFieldMappingError(td.Name(), f.Name, "does not reference %s", typeName(owner))
		}
		return f, nil
	}
	var found *Field
	for _, f := range td.Relations(edge.M2O) {
		t, err := TargetEntity(f)
		if err != nil {
			return nil, err
		}
		if t != owner {
			continue
		}
		if found != nil {
			return nil, relmap.NewInvalidMappingError(td.Name(), "ambiguous many_to_one fields %s and %s reference %s, use mapped_by", found.Name, f.Name, typeName(owner))
		}
		found = f
	}
	if found == nil {
		return nil, relmap.NewInvalidMappingError(td.Name(), "no many_to_one field references %s", typeName(owner))
	}
	return found, nil
}

// JoinTable returns the join table of a many_to_many field. A field with
// mapped_by returns the descriptor of the owning field unchanged.
func JoinTable(f *Field) (*JoinTableDescriptor, error) {
	if f.Rel != edge.M2M {
		return nil, missing(f, TagManyToMany)
	}
	if f.mappedBy != "" {
		of, err := MappedField(f)
		if err != nil {
			return nil, err
		}
		return JoinTable(of)
	}
	target, err := TargetEntity(f)
	if err != nil {
		return nil, err
	}
	jc, err := EntityJoinColumnName(f.Owner, f.joinColumn)
	if err != nil {
		return nil, err
	}
	ijc, err := EntityJoinColumnName(target, f.inverseJoinColumn)
	if err != nil {
		return nil, err
	}
	return &JoinTableDescriptor{Name: f.joinTable, JoinColumn: jc, InverseJoinColumn: ijc}, nil
}

// JoinColumns returns the join table columns referencing the field's owner
// and its target, in that order, for either side of the relation.
func (f *Field) JoinColumns() (owner, target string, err error) {
	jt, err := JoinTable(f)
	if err != nil {
		return "", "", err
	}
	if f.mappedBy != "" {
		return jt.InverseJoinColumn, jt.JoinColumn, nil
	}
	return jt.JoinColumn, jt.InverseJoinColumn, nil
}

// EntityJoinColumnName returns name if set, or the table of t joined with
// its id column.
func EntityJoinColumnName(t reflect.Type, name string) (string, error) {
	if name != "" {
		return name, nil
	}
	d, err := Describe(t)
	if err != nil {
		return "", err
	}
	return d.Table + "_" + d.ID.column, nil
}

// Entity returns v as a pointer to its entity struct along with the
// descriptor. Struct values are copied into a new pointer.
func Entity(v any) (reflect.Value, *Descriptor, error) {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() {
		return reflect.Value{}, nil, relmap.NewInvalidMappingError("<nil>", "entity is nil")
	}
	if rv.Kind() != reflect.Pointer {
		p := reflect.New(rv.Type())
		p.Elem().Set(rv)
		rv = p
	}
	for rv.Kind() == reflect.Pointer && rv.Elem().Kind() == reflect.Pointer {
		rv = rv.Elem()
	}
	if rv.IsNil() {
		return reflect.Value{}, nil, relmap.NewInvalidMappingError(typeName(rv.Type().Elem()), "entity is nil")
	}
	d, err := Describe(rv.Type().Elem())
	if err != nil {
		return reflect.Value{}, nil, err
	}
	return rv, d, nil
}

func missing(f *Field, expected ...string) *relmap.MissingAnnotationError {
	return &relmap.MissingAnnotationError{
		Type:      typeName(f.Owner),
		Field:     f.Name,
		FieldType: f.Type.String(),
		Expected:  expected,
	}
}

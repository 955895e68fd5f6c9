package repo

import (
	"context"
	"reflect"

	"go.uber.org/zap"

	"github.com/syssam/relmap"
	"github.com/syssam/relmap/builder"
	"github.com/syssam/relmap/materialize"
	"github.com/syssam/relmap/schema"
	"github.com/syssam/relmap/schema/edge"
)

// Populate loads every relation field of entity, a pointer to an entity
// struct, one level deep.
func (c *Client) Populate(ctx context.Context, entity any) error {
	ptr, d, err := entityPtr(entity)
	if err != nil {
		return err
	}
	return c.populate(ctx, ptr, d)
}

// PopulateOneToMany loads the one_to_many field named field of entity from
// the table of its target, filtered by the target's many_to_one column.
func (c *Client) PopulateOneToMany(ctx context.Context, entity any, field string) error {
	return c.populateNamed(ctx, entity, field, edge.O2M, c.populateOneToMany)
}

// PopulateManyToMany loads the many_to_many field named field of entity
// through its join table.
func (c *Client) PopulateManyToMany(ctx context.Context, entity any, field string) error {
	return c.populateNamed(ctx, entity, field, edge.M2M, c.populateManyToMany)
}

// PopulateReference replaces the id-only stub held by a many_to_one or owning
// one_to_one field with the stored target entity.
func (c *Client) PopulateReference(ctx context.Context, entity any, field string) error {
	ptr, d, err := entityPtr(entity)
	if err != nil {
		return err
	}
	f, ok := d.Field(field)
	if !ok {
		return relmap.NewInvalidMappingError(d.Name(), "no persisted field %q", field)
	}
	if !f.IsReference() {
		return missing(d, f, schema.TagManyToOne, schema.TagOneToOne)
	}
	return c.populateReference(ctx, ptr, f)
}

// PopulateInverseOneToOne loads a one_to_one field declared with mapped_by
// from the table of its target.
func (c *Client) PopulateInverseOneToOne(ctx context.Context, entity any, field string) error {
	return c.populateNamed(ctx, entity, field, edge.O2O, c.populateInverseOneToOne)
}

func (c *Client) populateNamed(ctx context.Context, entity any, field string, rel edge.Rel, fn func(context.Context, reflect.Value, *schema.Field) error) error {
	ptr, d, err := entityPtr(entity)
	if err != nil {
		return err
	}
	f, ok := d.Field(field)
	if !ok {
		return relmap.NewInvalidMappingError(d.Name(), "no persisted field %q", field)
	}
	if f.Rel != rel || rel == edge.O2O && f.MappedBy() == "" {
		return missing(d, f, rel.Tag())
	}
	return fn(ctx, ptr, f)
}

func (c *Client) populate(ctx context.Context, ptr reflect.Value, d *schema.Descriptor) error {
	for _, f := range d.Fields {
		var err error
		switch {
		case f.Kind != schema.KindRelation:
			continue
		case f.IsReference():
			err = c.populateReference(ctx, ptr, f)
		case f.Rel == edge.O2O:
			err = c.populateInverseOneToOne(ctx, ptr, f)
		case f.Rel == edge.O2M:
			err = c.populateOneToMany(ctx, ptr, f)
		case f.Rel == edge.M2M:
			err = c.populateManyToMany(ctx, ptr, f)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) populateOneToMany(ctx context.Context, ptr reflect.Value, f *schema.Field) error {
	target, err := schema.TargetEntity(f)
	if err != nil {
		return err
	}
	td, err := schema.Describe(target)
	if err != nil {
		return err
	}
	back, err := schema.MappedField(f)
	if err != nil {
		return err
	}
	col, err := schema.ColumnName(back)
	if err != nil {
		return err
	}
	id, err := ownerID(ptr)
	if err != nil {
		return err
	}
	query, err := builder.SelectAllByColumn(td.Table, col, id)
	if err != nil {
		return err
	}
	list, err := c.find(ctx, td, "populate_one_to_many", query)
	if err != nil {
		return err
	}
	return setList(f, ptr, list)
}

func (c *Client) populateManyToMany(ctx context.Context, ptr reflect.Value, f *schema.Field) error {
	if f.Type.Kind() != reflect.Slice {
		return relmap.NewFieldMappingError(ptr.Type().Elem().Name(), f.Name, "many_to_many field must be a slice, got %s", f.Type)
	}
	target, err := schema.TargetEntity(f)
	if err != nil {
		return err
	}
	td, err := schema.Describe(target)
	if err != nil {
		return err
	}
	jt, err := schema.JoinTable(f)
	if err != nil {
		return err
	}
	ownerCol, targetCol, err := f.JoinColumns()
	if err != nil {
		return err
	}
	id, err := ownerID(ptr)
	if err != nil {
		return err
	}
	query, err := builder.SelectAllByColumn(jt.Name, ownerCol, id)
	if err != nil {
		return err
	}
	rows, err := c.query(ctx, jt.Name, "populate_many_to_many", query)
	if err != nil {
		return err
	}
	list := []reflect.Value{}
	for rows != nil && rows.Next() {
		row, err := materialize.ReadRow(rows)
		if err != nil {
			return c.relationError(ptr, f, setList(f, ptr, nil), relmap.NewQueryError(jt.Name, "populate_many_to_many", err))
		}
		v, ok := row[targetCol]
		if !ok {
			return c.relationError(ptr, f, setList(f, ptr, nil), relmap.NewInvalidResultSetError("result set column does not exist: %s", targetCol))
		}
		if b, ok := v.([]byte); ok {
			v = string(b)
		}
		e, err := c.findByID(ctx, td, v)
		switch {
		case relmap.IsNotFound(err) || relmap.IsNotSingular(err):
			return c.relationError(ptr, f, setList(f, ptr, nil), relmap.NewInvalidResultSetError("cannot find %s by id: %v", td.Name(), v))
		case err != nil:
			return err
		}
		list = append(list, e)
	}
	return setList(f, ptr, list)
}

func (c *Client) populateReference(ctx context.Context, ptr reflect.Value, f *schema.Field) error {
	dst := f.Addr(ptr)
	if dst.IsNil() {
		return nil
	}
	td, err := schema.Describe(dst.Type())
	if err != nil {
		return err
	}
	id := td.ID.Value(dst.Interface())
	e, err := c.findByID(ctx, td, id)
	switch {
	case relmap.IsNotFound(err) || relmap.IsNotSingular(err):
		return c.relationError(ptr, f, nil, relmap.NewInvalidResultSetError("cannot find %s by id: %v", td.Name(), id))
	case err != nil:
		return err
	}
	dst.Set(e)
	return nil
}

func (c *Client) populateInverseOneToOne(ctx context.Context, ptr reflect.Value, f *schema.Field) error {
	target, err := schema.TargetEntity(f)
	if err != nil {
		return err
	}
	td, err := schema.Describe(target)
	if err != nil {
		return err
	}
	owning, err := schema.MappedField(f)
	if err != nil {
		return err
	}
	col, err := schema.ColumnName(owning)
	if err != nil {
		return err
	}
	id, err := ownerID(ptr)
	if err != nil {
		return err
	}
	query, err := builder.SelectAllByColumn(td.Table, col, id)
	if err != nil {
		return err
	}
	list, err := c.find(ctx, td, "populate_one_to_one", query)
	if err != nil {
		return err
	}
	dst := f.Addr(ptr)
	switch len(list) {
	case 0:
		dst.Set(reflect.Zero(dst.Type()))
	case 1:
		dst.Set(list[0])
	default:
		dst.Set(reflect.Zero(dst.Type()))
		return c.relationError(ptr, f, nil, relmap.NewNotSingularErrorWithCount(td.Name(), len(list)))
	}
	return nil
}

// relationError reports a data error met while populating f. A strict
// client returns it; otherwise it is logged and the field stays as set.
func (c *Client) relationError(ptr reflect.Value, f *schema.Field, setErr, err error) error {
	if setErr != nil {
		return setErr
	}
	if c.strict {
		return err
	}
	c.log.Warn("populate relation",
		zap.String("entity", ptr.Type().Elem().Name()),
		zap.String("field", f.Name),
		zap.Error(err),
	)
	return nil
}

// setList assigns the entities in list, all pointers to the target type, to
// the slice field f of ptr.
func setList(f *schema.Field, ptr reflect.Value, list []reflect.Value) error {
	dst := f.Addr(ptr)
	if dst.Kind() != reflect.Slice {
		return relmap.NewFieldMappingError(ptr.Type().Elem().Name(), f.Name, "%s field must be a slice, got %s", f.Rel.Tag(), f.Type)
	}
	out := reflect.MakeSlice(dst.Type(), 0, len(list))
	elem := dst.Type().Elem()
	for _, v := range list {
		switch {
		case v.Type().AssignableTo(elem):
			out = reflect.Append(out, v)
		case v.Elem().Type().AssignableTo(elem):
			out = reflect.Append(out, v.Elem())
		default:
			return relmap.NewFieldMappingError(ptr.Type().Elem().Name(), f.Name, "cannot hold %s", v.Type())
		}
	}
	dst.Set(out)
	return nil
}

func ownerID(ptr reflect.Value) (any, error) {
	d, err := schema.Describe(ptr.Type())
	if err != nil {
		return nil, err
	}
	return d.ID.Value(ptr.Interface()), nil
}

// entityPtr is like schema.Entity but requires a pointer, since populating
// a copy would be lost.
func entityPtr(entity any) (reflect.Value, *schema.Descriptor, error) {
	if rv := reflect.ValueOf(entity); rv.IsValid() && rv.Kind() != reflect.Pointer {
		return reflect.Value{}, nil, relmap.NewInvalidMappingError(rv.Type().String(), "relations can only be populated through a pointer")
	}
	return schema.Entity(entity)
}

func missing(d *schema.Descriptor, f *schema.Field, expected ...string) error {
	return &relmap.MissingAnnotationError{
		Type:      d.Name(),
		Field:     f.Name,
		FieldType: f.Type.String(),
		Expected:  expected,
	}
}

package repo

import (
	"context"
	"reflect"

	"go.uber.org/zap"

	"github.com/syssam/relmap"
	"github.com/syssam/relmap/builder"
	"github.com/syssam/relmap/dialect/sql"
	"github.com/syssam/relmap/materialize"
	"github.com/syssam/relmap/schema"
)

// Executor runs literal SQL statements. *sql.TxExecutor implements it.
type Executor interface {
	Query(ctx context.Context, query string) (*sql.RowSet, error)
	Exec(ctx context.Context, query string) (sql.Result, error)
}

// Client is the untyped repository. Entities are passed as struct values or
// pointers and returned as pointers.
type Client struct {
	exec   Executor
	mat    *materialize.Materializer
	log    *zap.Logger
	eager  bool
	strict bool
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger for degraded operations and failed
// assignments.
func WithLogger(log *zap.Logger) Option {
	return func(c *Client) {
		if log != nil {
			c.log = log
		}
	}
}

// WithEagerRelations makes the find operations populate the relation fields
// of every returned entity. Related entities are not populated themselves.
func WithEagerRelations() Option {
	return func(c *Client) {
		c.eager = true
	}
}

// WithStrictErrors makes execution and relation data errors propagate as
// *relmap.QueryError and *relmap.MutationError instead of degrading to
// empty results.
func WithStrictErrors() Option {
	return func(c *Client) {
		c.strict = true
	}
}

// NewClient returns a Client running its statements on exec.
func NewClient(exec Executor, opts ...Option) *Client {
	c := &Client{exec: exec, log: zap.NewNop()}
	for _, opt := range opts {
		opt(c)
	}
	c.mat = materialize.New(materialize.WithLogger(c.log))
	return c
}

// Materializer returns the materializer used by the client.
func (c *Client) Materializer() *materialize.Materializer {
	return c.mat
}

// Save inserts entity, or updates it if a row with its id exists, and
// returns the row as stored. An entity whose id is NULL is inserted and,
// if the driver reports one, receives the generated id.
func (c *Client) Save(ctx context.Context, entity any) (any, error) {
	ptr, d, err := schema.Entity(entity)
	if err != nil {
		return nil, err
	}
	v, err := c.save(ctx, ptr, d)
	if err != nil {
		return nil, err
	}
	return v.Interface(), nil
}

func (c *Client) save(ctx context.Context, ptr reflect.Value, d *schema.Descriptor) (reflect.Value, error) {
	id := d.ID.Value(ptr.Interface())
	exists := false
	if !schema.IsNil(id) {
		_, err := c.findByID(ctx, d, id)
		switch {
		case err == nil:
			exists = true
		case !relmap.IsNotFound(err):
			return reflect.Value{}, err
		}
	}
	if exists {
		query, err := builder.Update(ptr.Interface())
		if err != nil {
			return reflect.Value{}, err
		}
		if query != "" {
			if _, err := c.mutate(ctx, d, "update", query); err != nil {
				return reflect.Value{}, err
			}
		}
	} else {
		query, err := builder.Insert(ptr.Interface())
		if err != nil {
			return reflect.Value{}, err
		}
		res, err := c.mutate(ctx, d, "insert", query)
		if err != nil {
			return reflect.Value{}, err
		}
		if res != nil && schema.IsNil(id) {
			if n, err := res.LastInsertId(); err == nil {
				if err := c.mat.SetField(ptr, d.ID, n); err != nil {
					c.log.Warn("assign generated id", zap.String("entity", d.Name()), zap.Error(err))
				}
				id = d.ID.Value(ptr.Interface())
			}
		}
	}
	return c.findByID(ctx, d, id)
}

// Update writes entity over the stored row with the same id and returns the
// row as stored. A missing row is reported as *relmap.NotFoundError.
func (c *Client) Update(ctx context.Context, entity any) (any, error) {
	ptr, d, err := schema.Entity(entity)
	if err != nil {
		return nil, err
	}
	id := d.ID.Value(ptr.Interface())
	if _, err := c.findByID(ctx, d, id); err != nil {
		return nil, err
	}
	query, err := builder.Update(ptr.Interface())
	if err != nil {
		return nil, err
	}
	if query != "" {
		if _, err := c.mutate(ctx, d, "update", query); err != nil {
			return nil, err
		}
	}
	v, err := c.findByID(ctx, d, id)
	if err != nil {
		return nil, err
	}
	return v.Interface(), nil
}

// Remove deletes the stored row with the id of entity and returns it as it
// was before the deletion.
func (c *Client) Remove(ctx context.Context, entity any) (any, error) {
	ptr, d, err := schema.Entity(entity)
	if err != nil {
		return nil, err
	}
	old, err := c.findByID(ctx, d, d.ID.Value(ptr.Interface()))
	if err != nil {
		return nil, err
	}
	query, err := builder.Remove(ptr.Interface())
	if err != nil {
		return nil, err
	}
	if _, err := c.mutate(ctx, d, "remove", query); err != nil {
		return nil, err
	}
	return old.Interface(), nil
}

// Find returns the entities whose columns equal every non-NULL column of
// example. An example without such a column matches nothing.
func (c *Client) Find(ctx context.Context, example any) ([]any, error) {
	ptr, d, err := schema.Entity(example)
	if err != nil {
		return nil, err
	}
	table, names, values, err := builder.ExampleFilter(ptr.Interface())
	if err != nil {
		return nil, err
	}
	query, err := builder.SelectAllByColumns(table, names, values)
	if err != nil {
		return nil, err
	}
	return c.findAny(ctx, d, "find", query)
}

// FindAll returns every entity of type t.
func (c *Client) FindAll(ctx context.Context, t reflect.Type) ([]any, error) {
	d, err := schema.Describe(t)
	if err != nil {
		return nil, err
	}
	return c.findAny(ctx, d, "find_all", builder.SelectAll(d.Table))
}

// FindByColumn returns the entities of type t whose column equals value.
// An empty column matches nothing.
func (c *Client) FindByColumn(ctx context.Context, column string, value any, t reflect.Type) ([]any, error) {
	d, err := schema.Describe(t)
	if err != nil {
		return nil, err
	}
	if column == "" {
		return []any{}, nil
	}
	query, err := builder.SelectAllByColumn(d.Table, column, value)
	if err != nil {
		return nil, err
	}
	return c.findAny(ctx, d, "find_by_column", query)
}

// FindByID returns the entity of type t with the given id. No match is
// reported as *relmap.NotFoundError, several as *relmap.NotSingularError.
func (c *Client) FindByID(ctx context.Context, id any, t reflect.Type) (any, error) {
	d, err := schema.Describe(t)
	if err != nil {
		return nil, err
	}
	v, err := c.findByID(ctx, d, id)
	if err != nil {
		return nil, err
	}
	if err := c.eagerLoad(ctx, d, v); err != nil {
		return nil, err
	}
	return v.Interface(), nil
}

// GetObject materializes the current row of rows as an entity of type t.
func (c *Client) GetObject(rows materialize.Cursor, t reflect.Type) (any, error) {
	v, err := c.mat.Object(rows, t)
	if err != nil {
		return nil, err
	}
	return v.Interface(), nil
}

// GetObjects materializes the remaining rows of rows as entities of type t.
func (c *Client) GetObjects(rows materialize.Cursor, t reflect.Type) ([]any, error) {
	list, err := c.mat.List(rows, t)
	if err != nil {
		return nil, err
	}
	return values(list), nil
}

func (c *Client) findAny(ctx context.Context, d *schema.Descriptor, op, query string) ([]any, error) {
	list, err := c.find(ctx, d, op, query)
	if err != nil {
		return nil, err
	}
	for _, v := range list {
		if err := c.eagerLoad(ctx, d, v); err != nil {
			return nil, err
		}
	}
	return values(list), nil
}

// find runs query and materializes its rows as entities of d. An empty
// query, a failed statement and a broken cursor all yield an empty list
// unless the client is strict.
func (c *Client) find(ctx context.Context, d *schema.Descriptor, op, query string) ([]reflect.Value, error) {
	if query == "" {
		return []reflect.Value{}, nil
	}
	rows, err := c.query(ctx, d.Table, op, query)
	if err != nil || rows == nil {
		return []reflect.Value{}, err
	}
	list, err := c.mat.List(rows, d.Type)
	switch {
	case err == nil:
		return list, nil
	case relmap.IsConfigError(err):
		return nil, err
	}
	return []reflect.Value{}, c.degrade(relmap.NewQueryError(d.Table, op, err))
}

func (c *Client) findByID(ctx context.Context, d *schema.Descriptor, id any) (reflect.Value, error) {
	if schema.IsNil(id) {
		return reflect.Value{}, relmap.NewNotFoundError(d.Name())
	}
	col, err := d.ID.IDColumnName()
	if err != nil {
		return reflect.Value{}, err
	}
	query, err := builder.SelectAllByColumn(d.Table, col, id)
	if err != nil {
		return reflect.Value{}, err
	}
	list, err := c.find(ctx, d, "find_by_id", query)
	if err != nil {
		return reflect.Value{}, err
	}
	switch n := len(list); {
	case n == 0:
		return reflect.Value{}, relmap.NewNotFoundErrorWithID(d.Name(), id)
	case n > 1:
		return reflect.Value{}, relmap.NewNotSingularErrorWithCount(d.Name(), n)
	}
	return list[0], nil
}

// query runs a select. A failure is returned if the client is strict,
// otherwise it is logged and the result is nil.
func (c *Client) query(ctx context.Context, table, op, query string) (*sql.RowSet, error) {
	rows, err := c.exec.Query(ctx, query)
	if err != nil {
		return nil, c.degrade(relmap.NewQueryError(table, op, err))
	}
	return rows, nil
}

func (c *Client) mutate(ctx context.Context, d *schema.Descriptor, op, query string) (sql.Result, error) {
	res, err := c.exec.Exec(ctx, query)
	if err != nil {
		return nil, c.degrade(relmap.NewMutationError(d.Table, op, err))
	}
	return res, nil
}

// degrade returns err for a strict client and logs it otherwise.
func (c *Client) degrade(err error) error {
	if c.strict {
		return err
	}
	c.log.Warn("operation degraded to an empty result", zap.Error(err))
	return nil
}

func (c *Client) eagerLoad(ctx context.Context, d *schema.Descriptor, v reflect.Value) error {
	if !c.eager {
		return nil
	}
	return c.populate(ctx, v, d)
}

func values(list []reflect.Value) []any {
	out := make([]any, len(list))
	for i, v := range list {
		out[i] = v.Interface()
	}
	return out
}

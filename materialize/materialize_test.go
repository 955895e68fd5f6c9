package materialize_test

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/syssam/relmap"
	"github.com/syssam/relmap/dialect/sql"
	"github.com/syssam/relmap/materialize"
	"github.com/syssam/relmap/schema"
)

type (
	Customer struct {
		ID     int64    `orm:"id"`
		Name   string   `orm:"column"`
		Orders []*Order `orm:"one_to_many"`
	}
	Order struct {
		ID       int64      `orm:"id"`
		Total    *float64   `orm:"column"`
		Rank     int8       `orm:"column"`
		Paid     bool       `orm:"column"`
		Placed   time.Time  `orm:"column"`
		Note     []byte     `orm:"column"`
		Ref      uuid.UUID  `orm:"column"`
		Count    uint16     `orm:"column"`
		Status   Status     `orm:"column"`
		Shipped  *time.Time `orm:"column"`
		Customer *Customer  `orm:"many_to_one"`
	}
	Status string
)

func (Customer) TableName() string { return "customers" }
func (Order) TableName() string    { return "orders" }

var orderType = reflect.TypeOf(Order{})

func TestNewInstance(t *testing.T) {
	v, err := materialize.NewInstance(reflect.TypeOf(&Order{}))
	require.NoError(t, err)
	assert.IsType(t, &Order{}, v.Interface())

	_, err = materialize.NewInstance(reflect.TypeOf(""))
	assert.True(t, relmap.IsInvalidMapping(err))
}

func TestPopulateColumns(t *testing.T) {
	m := materialize.New()
	columns, err := schema.ColumnsMap(orderType)
	require.NoError(t, err)

	placed := time.Date(2024, 1, 2, 15, 4, 5, 0, time.UTC)
	ref := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	row := materialize.Row{
		"id":          int64(7),
		"total":       9.5,
		"rank":        int64(3),
		"paid":        int64(1),
		"placed":      placed,
		"note":        []byte("rush"),
		"ref":         ref.String(),
		"count":       "12",
		"status":      []byte("open"),
		"shipped":     nil,
		"customer_id": int64(3),
		"unknown":     "ignored",
	}
	e := reflect.New(orderType)
	m.PopulateColumns(row, e, columns)
	o := e.Interface().(*Order)

	assert.Equal(t, int64(7), o.ID)
	require.NotNil(t, o.Total)
	assert.Equal(t, 9.5, *o.Total)
	assert.Equal(t, int8(3), o.Rank)
	assert.True(t, o.Paid)
	assert.True(t, placed.Equal(o.Placed))
	assert.Equal(t, []byte("rush"), o.Note)
	assert.Equal(t, ref, o.Ref)
	assert.Equal(t, uint16(12), o.Count)
	assert.Equal(t, Status("open"), o.Status)
	assert.Nil(t, o.Shipped)
	require.NotNil(t, o.Customer)
	assert.Equal(t, &Customer{ID: 3}, o.Customer)
}

func TestPopulateColumnsFailures(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	m := materialize.New(materialize.WithLogger(zap.New(core)))
	columns, err := schema.ColumnsMap(orderType)
	require.NoError(t, err)

	e := reflect.New(orderType)
	o := e.Interface().(*Order)
	o.Rank = 1
	m.PopulateColumns(materialize.Row{
		"id":   int64(7),
		"rank": int64(300), // overflows int8
		"paid": "maybe",
	}, e, columns)

	assert.Equal(t, int64(7), o.ID)
	assert.Equal(t, int8(1), o.Rank, "failed assignment keeps the previous value")
	assert.False(t, o.Paid)
	assert.Equal(t, 2, logs.FilterMessage("assign column").Len())
	for _, entry := range logs.All() {
		assert.Equal(t, "Order", entry.ContextMap()["entity"])
	}
}

func TestObject(t *testing.T) {
	m := materialize.New()
	rows := sql.NewRowSet([]string{"id", "name"}, []any{int64(3), "Ada"})
	require.True(t, rows.Next())
	v, err := m.Object(rows, reflect.TypeOf(Customer{}))
	require.NoError(t, err)
	assert.Equal(t, &Customer{ID: 3, Name: "Ada"}, v.Interface())
}

func TestList(t *testing.T) {
	m := materialize.New()
	rows := sql.NewRowSet([]string{"id", "name"},
		[]any{int64(1), "Ada"},
		[]any{int64(2), []byte("Grace")},
	)
	list, err := m.List(rows, reflect.TypeOf(Customer{}))
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, &Customer{ID: 2, Name: "Grace"}, list[1].Interface())

	list, err = m.List(sql.NewRowSet([]string{"id"}), reflect.TypeOf(Customer{}))
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)

	_, err = m.List(sql.NewRowSet([]string{"id"}), reflect.TypeOf(0))
	assert.True(t, relmap.IsConfigError(err))
}

// cursor fails on demand.
type cursor struct {
	*sql.RowSet
	columnsErr error
	scanErrAt  int
	err        error
	pos        int
}

func (c *cursor) Columns() ([]string, error) {
	if c.columnsErr != nil {
		return nil, c.columnsErr
	}
	return c.RowSet.Columns()
}

func (c *cursor) Next() bool {
	c.pos++
	return c.RowSet.Next()
}

func (c *cursor) Scan(dest ...any) error {
	if c.pos == c.scanErrAt {
		return errors.New("bad row")
	}
	return c.RowSet.Scan(dest...)
}

func (c *cursor) Err() error { return c.err }

func TestListFailures(t *testing.T) {
	set := func() *sql.RowSet {
		return sql.NewRowSet([]string{"id"}, []any{int64(1)}, []any{int64(2)}, []any{int64(3)})
	}
	customer := reflect.TypeOf(Customer{})

	t.Run("RowSkipped", func(t *testing.T) {
		core, logs := observer.New(zap.WarnLevel)
		m := materialize.New(materialize.WithLogger(zap.New(core)))
		list, err := m.List(&cursor{RowSet: set(), scanErrAt: 2}, customer)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, int64(1), list[0].Interface().(*Customer).ID)
		assert.Equal(t, int64(3), list[1].Interface().(*Customer).ID)
		assert.Equal(t, 1, logs.FilterMessage("skip row").Len())
	})

	t.Run("CursorError", func(t *testing.T) {
		list, err := materialize.New().List(&cursor{RowSet: set(), err: errors.New("connection reset")}, customer)
		assert.EqualError(t, err, "connection reset")
		assert.Empty(t, list)
	})

	t.Run("ColumnsError", func(t *testing.T) {
		list, err := materialize.New().List(&cursor{RowSet: set(), columnsErr: errors.New("closed")}, customer)
		assert.EqualError(t, err, "closed")
		assert.Empty(t, list)
	})
}

func TestRoundTrip(t *testing.T) {
	total := 12.25
	in := Order{ID: 9, Total: &total, Rank: -4, Paid: true, Status: "done", Customer: &Customer{ID: 5}}
	columns, err := schema.Columns(orderType)
	require.NoError(t, err)

	// Build a row from the entity's own column values.
	row := materialize.Row{}
	for _, f := range columns {
		name, err := schema.ColumnName(f)
		require.NoError(t, err)
		v := f.Value(&in)
		switch {
		case f.IsReference():
			v = int64(5)
		case schema.IsNil(v):
			v = nil
		default:
			v = reflect.Indirect(reflect.ValueOf(v)).Interface()
		}
		row[name] = v
	}
	cm, err := schema.ColumnsMap(orderType)
	require.NoError(t, err)
	e := reflect.New(orderType)
	materialize.New().PopulateColumns(row, e, cm)
	out := e.Interface().(*Order)
	assert.Equal(t, in.ID, out.ID)
	assert.Equal(t, *in.Total, *out.Total)
	assert.Equal(t, in.Rank, out.Rank)
	assert.Equal(t, in.Paid, out.Paid)
	assert.Equal(t, in.Status, out.Status)
	assert.Equal(t, in.Customer, out.Customer)
}

package builder_test

import (
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/relmap"
	"github.com/syssam/relmap/builder"
)

type (
	Customer struct {
		ID   int64  `orm:"id"`
		Name string `orm:"column"`
	}
	Order struct {
		ID       int64     `orm:"id"`
		Total    *float64  `orm:"column"`
		Customer *Customer `orm:"many_to_one"`
		Tags     []*Tag    `orm:"many_to_many,join_table=order_tags"`
	}
	Tag struct {
		ID   uuid.UUID `orm:"id"`
		Name *string   `orm:"column"`
	}
	Item struct {
		ID   int     `orm:"id"`
		Name *string `orm:"column"`
		Rank *int    `orm:"column"`
	}
	Counter struct {
		Code string `orm:"id,column=code"`
	}
	Labelled struct {
		ID     int      `orm:"id"`
		Labels []string `orm:"column"`
	}
	Owner struct {
		ID *int64 `orm:"id"`
	}
	Pet struct {
		ID    int64  `orm:"id"`
		Owner *Owner `orm:"many_to_one"`
	}
)

func (Customer) TableName() string { return "customers" }
func (Order) TableName() string    { return "orders" }
func (Tag) TableName() string      { return "tags" }
func (Item) TableName() string     { return "items" }
func (Counter) TableName() string  { return "counters" }
func (Labelled) TableName() string { return "labelled" }
func (Owner) TableName() string    { return "owners" }
func (Pet) TableName() string      { return "pets" }

func ptr[T any](v T) *T { return &v }

func TestInsert(t *testing.T) {
	tests := []struct {
		name   string
		entity any
		want   string
	}{
		{"NullColumnsOmitted", &Order{ID: 7}, "INSERT INTO orders(id) VALUES (7)"},
		{"SparseInsert", Item{ID: 1, Rank: ptr(5)}, "INSERT INTO items(id, rank) VALUES (1, 5)"},
		{"Reference", &Order{ID: 7, Total: ptr(9.5), Customer: &Customer{ID: 3}}, "INSERT INTO orders(id, total, customer_id) VALUES (7, 9.5, 3)"},
		{"StringID", Counter{Code: "a1"}, "INSERT INTO counters(code) VALUES ('a1')"},
		{"ZeroValuesKept", Customer{}, "INSERT INTO customers(id, name) VALUES (0, '')"},
		{"ReferenceWithoutID", &Pet{ID: 1, Owner: &Owner{}}, "INSERT INTO pets(id) VALUES (1)"},
		{"ReferenceWithID", &Pet{ID: 1, Owner: &Owner{ID: ptr(int64(4))}}, "INSERT INTO pets(id, owner_id) VALUES (1, 4)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := builder.Insert(tt.entity)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestUpdate(t *testing.T) {
	got, err := builder.Update(&Order{ID: 7, Customer: &Customer{ID: 3}})
	require.NoError(t, err)
	assert.Equal(t, "UPDATE orders SET total = NULL, customer_id = 3 WHERE id = 7", got)

	got, err = builder.Update(Customer{ID: 1, Name: "Ada"})
	require.NoError(t, err)
	assert.Equal(t, "UPDATE customers SET name = 'Ada' WHERE id = 1", got)

	// Only an id column: nothing to update.
	got, err = builder.Update(Counter{Code: "a1"})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRemove(t *testing.T) {
	got, err := builder.Remove(&Order{ID: 7})
	require.NoError(t, err)
	assert.Equal(t, "DELETE FROM orders WHERE id = 7", got)

	got, err = builder.Remove(Counter{Code: "a1"})
	require.NoError(t, err)
	assert.Equal(t, "DELETE FROM counters WHERE code = 'a1'", got)

	id := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	got, err = builder.Remove(Tag{ID: id})
	require.NoError(t, err)
	assert.Equal(t, "DELETE FROM tags WHERE id = '6ba7b810-9dad-11d1-80b4-00c04fd430c8'", got)
}

func TestSelect(t *testing.T) {
	assert.Equal(t, "SELECT * FROM orders", builder.SelectAll("orders"))

	got, err := builder.SelectAllByColumns("t", []string{"a", "b"}, []any{"x", "y"})
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM t WHERE a = 'x', b = 'y'", got)

	got, err = builder.SelectAllByColumn("children", "parent_id", 5)
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM children WHERE parent_id = 5", got)

	got, err = builder.SelectAllByColumns("t", []string{"a"}, []any{"x", "y"})
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = builder.SelectAllByColumns("t", nil, nil)
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = builder.SelectAllByColumn("t", "tags", []int{1})
	require.Error(t, err)
	assert.EqualError(t, err, `relmap: invalid column type for "tags": []int`)
}

func TestExampleFilter(t *testing.T) {
	table, names, values, err := builder.ExampleFilter(&Item{ID: 2, Name: ptr("pen")})
	require.NoError(t, err)
	assert.Equal(t, "items", table)
	assert.Equal(t, []string{"id", "name"}, names)
	assert.Equal(t, 2, values[0])

	query, err := builder.SelectAllByColumns(table, names, values)
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM items WHERE id = 2, name = 'pen'", query)
}

func TestInvalidColumnType(t *testing.T) {
	_, err := builder.Insert(Labelled{ID: 1, Labels: []string{"a"}})
	require.Error(t, err)
	assert.True(t, relmap.IsInvalidColumnType(err))
	assert.EqualError(t, err, `relmap: invalid column type for "labels": []string`)

	// NULL slices are omitted and never rendered.
	got, err := builder.Insert(Labelled{ID: 1})
	require.NoError(t, err)
	assert.Equal(t, "INSERT INTO labelled(id) VALUES (1)", got)

	_, err = builder.Insert(struct{ ID int }{})
	assert.True(t, relmap.IsConfigError(err))
}

func TestStringValueForSQL(t *testing.T) {
	type status string
	ts := time.Date(2024, 1, 2, 15, 4, 5, 0, time.UTC)
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"Nil", nil, "NULL"},
		{"NilPointer", (*int)(nil), "NULL"},
		{"String", "it's", "'it's'"},
		{"NamedString", status("open"), "'open'"},
		{"Bool", true, "true"},
		{"Int", -42, "-42"},
		{"Int8", int8(7), "7"},
		{"Uint", uint64(18446744073709551615), "18446744073709551615"},
		{"Float", 9.5, "9.5"},
		{"Float32", float32(0.25), "0.25"},
		{"LargeFloat", 1e21, "1000000000000000000000"},
		{"Pointer", ptr(3), "3"},
		{"Time", ts, "'2024-01-02 15:04:05'"},
		{"TimeNanos", ts.Add(1500 * time.Microsecond), "'2024-01-02 15:04:05.0015'"},
		{"TimeInZone", ts.In(time.FixedZone("CET", 3600)), "'2024-01-02 15:04:05'"},
		{"TimePointer", ptr(time.Date(2024, 1, 2, 16, 4, 5, 0, time.FixedZone("CET", 3600))), "'2024-01-02 15:04:05'"},
		{"UUID", uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8"), "'6ba7b810-9dad-11d1-80b4-00c04fd430c8'"},
		{"ValidNullString", sql.NullString{String: "x", Valid: true}, "'x'"},
		{"InvalidNullInt", sql.NullInt64{}, "NULL"},
		{"Entity", Customer{ID: 9}, "9"},
		{"EntityPointer", &Customer{ID: 9}, "9"},
		{"NestedEntity", &Tag{ID: uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")}, "'6ba7b810-9dad-11d1-80b4-00c04fd430c8'"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := builder.StringValueForSQL(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	for _, bad := range []any{[]int{1}, [2]int{}, map[string]int{}, struct{ A int }{}, make(chan int), complex(1, 2)} {
		_, err := builder.StringValueForSQL(bad)
		assert.True(t, relmap.IsInvalidColumnType(err), "%T", bad)
	}
}

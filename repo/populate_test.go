package repo_test

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/syssam/relmap"
	"github.com/syssam/relmap/repo"
)

func TestPopulateOneToMany(t *testing.T) {
	client, mock := newMockClient(t)
	expectQuery(mock, "SELECT * FROM children WHERE parent_id = 5",
		sqlmock.NewRows([]string{"id", "name", "parent_id"}).
			AddRow(int64(1), "a", int64(5)).
			AddRow(int64(2), "b", int64(5)))

	p := &Parent{ID: 5}
	require.NoError(t, client.PopulateOneToMany(context.Background(), p, "Children"))
	require.NoError(t, mock.ExpectationsWereMet())
	assert.Equal(t, []*Child{
		{ID: 1, Name: "a", Parent: &Parent{ID: 5}},
		{ID: 2, Name: "b", Parent: &Parent{ID: 5}},
	}, p.Children)
}

func TestPopulateManyToMany(t *testing.T) {
	exec := newExecutor()
	exec.on("SELECT * FROM order_tags WHERE orders_id = 1", []string{"orders_id", "tags_id"},
		[]any{int64(1), "a"},
		[]any{int64(1), []byte("b")},
	)
	exec.on("SELECT * FROM tags WHERE id = 'a'", []string{"id", "name"}, []any{"a", "red"})
	exec.on("SELECT * FROM tags WHERE id = 'b'", []string{"id", "name"}, []any{"b", "blue"})
	exec.on("SELECT * FROM order_tags WHERE tags_id = 'a'", []string{"orders_id", "tags_id"}, []any{int64(1), "a"})
	exec.on("SELECT * FROM orders WHERE id = 1", []string{"id", "total"}, []any{int64(1), nil})
	client := repo.NewClient(exec)
	ctx := context.Background()

	o := &Order{ID: ptr(int64(1))}
	require.NoError(t, client.PopulateManyToMany(ctx, o, "Tags"))
	assert.Equal(t, []Tag{{ID: "a", Name: "red"}, {ID: "b", Name: "blue"}}, o.Tags)

	// The mapped side reads the same join table with the columns swapped.
	tag := &Tag{ID: "a"}
	require.NoError(t, client.PopulateManyToMany(ctx, tag, "Orders"))
	require.Len(t, tag.Orders, 1)
	assert.Equal(t, int64(1), *tag.Orders[0].ID)
}

func TestPopulateManyToManyMissingTarget(t *testing.T) {
	exec := newExecutor()
	exec.on("SELECT * FROM order_tags WHERE orders_id = 1", []string{"orders_id", "tags_id"},
		[]any{int64(1), "a"},
		[]any{int64(1), "gone"},
		[]any{int64(1), "a"},
	)
	exec.on("SELECT * FROM tags WHERE id = 'a'", []string{"id", "name"}, []any{"a", "red"})
	core, logs := observer.New(zap.WarnLevel)
	ctx := context.Background()

	o := &Order{ID: ptr(int64(1)), Tags: []Tag{{ID: "stale"}}}
	client := repo.NewClient(exec, repo.WithLogger(zap.New(core)))
	require.NoError(t, client.PopulateManyToMany(ctx, o, "Tags"))
	assert.NotNil(t, o.Tags)
	assert.Empty(t, o.Tags)
	assert.Equal(t, 1, logs.FilterMessage("populate relation").Len())
	assert.NotContains(t, exec.queries[len(exec.queries)-1], "'a'", "remaining rows are not read")

	err := repo.NewClient(exec, repo.WithStrictErrors()).PopulateManyToMany(ctx, o, "Tags")
	assert.True(t, relmap.IsInvalidResultSet(err))
}

func TestPopulateManyToManyMissingColumn(t *testing.T) {
	exec := newExecutor()
	exec.on("SELECT * FROM order_tags WHERE orders_id = 1", []string{"orders_id", "tag"}, []any{int64(1), "a"})
	err := repo.NewClient(exec, repo.WithStrictErrors()).PopulateManyToMany(context.Background(), &Order{ID: ptr(int64(1))}, "Tags")
	require.True(t, relmap.IsInvalidResultSet(err))
	assert.EqualError(t, err, "relmap: invalid result set: result set column does not exist: tags_id")
}

func TestPopulateReferences(t *testing.T) {
	exec := newExecutor()
	exec.on("SELECT * FROM parents WHERE id = 5", []string{"id", "name"}, []any{int64(5), "Ada"})
	exec.on("SELECT * FROM profiles WHERE parent_id = 5", []string{"id", "bio", "parent_id"}, []any{int64(3), "math", int64(5)})
	client := repo.NewClient(exec)
	ctx := context.Background()

	c := &Child{ID: 1, Parent: &Parent{ID: 5}}
	require.NoError(t, client.PopulateReference(ctx, c, "Parent"))
	assert.Equal(t, &Parent{ID: 5, Name: "Ada"}, c.Parent)

	p := &Parent{ID: 5}
	require.NoError(t, client.PopulateInverseOneToOne(ctx, p, "Profile"))
	assert.Equal(t, &Profile{ID: 3, Bio: "math", Parent: &Parent{ID: 5}}, p.Profile)

	// A NULL reference stays NULL and costs no query.
	n := len(exec.queries)
	require.NoError(t, client.PopulateReference(ctx, &Child{ID: 2}, "Parent"))
	assert.Len(t, exec.queries, n)
}

func TestPopulateAll(t *testing.T) {
	exec := newExecutor()
	exec.on("SELECT * FROM children WHERE parent_id = 5", []string{"id", "name", "parent_id"}, []any{int64(1), "a", int64(5)})
	exec.on("SELECT * FROM profiles WHERE parent_id = 5", []string{"id", "bio", "parent_id"}, []any{int64(3), "math", int64(5)})

	p := &Parent{ID: 5}
	require.NoError(t, repo.For[Parent](repo.NewClient(exec)).Populate(context.Background(), p))
	assert.Equal(t, []string{
		"SELECT * FROM children WHERE parent_id = 5",
		"SELECT * FROM profiles WHERE parent_id = 5",
	}, exec.queries)
	require.Len(t, p.Children, 1)
	require.NotNil(t, p.Profile)
}

func TestEagerRelations(t *testing.T) {
	exec := newExecutor()
	exec.on("SELECT * FROM parents WHERE id = 5", []string{"id", "name"}, []any{int64(5), "Ada"})
	exec.on("SELECT * FROM children WHERE parent_id = 5", []string{"id", "name", "parent_id"}, []any{int64(1), "a", int64(5)})

	parents := repo.For[Parent](repo.NewClient(exec, repo.WithEagerRelations()))
	p, err := parents.FindByID(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, p.Children, 1)
	assert.Equal(t, &Parent{ID: 5}, p.Children[0].Parent, "related entities stay lazy")
	assert.Nil(t, p.Profile)
	assert.Len(t, exec.queries, 3)
}

func TestPopulateErrors(t *testing.T) {
	client := repo.NewClient(newExecutor())
	ctx := context.Background()

	err := client.PopulateOneToMany(ctx, &Parent{ID: 1}, "Missing")
	assert.True(t, relmap.IsInvalidMapping(err))
	err = client.PopulateOneToMany(ctx, &Parent{ID: 1}, "Profile")
	assert.True(t, relmap.IsMissingAnnotation(err))
	err = client.PopulateReference(ctx, &Parent{ID: 1}, "Children")
	assert.True(t, relmap.IsMissingAnnotation(err))
	err = client.PopulateInverseOneToOne(ctx, &Profile{ID: 1}, "Parent")
	assert.True(t, relmap.IsMissingAnnotation(err), "owning side has no inverse")
	err = client.Populate(ctx, Parent{ID: 1})
	assert.True(t, relmap.IsInvalidMapping(err))
}

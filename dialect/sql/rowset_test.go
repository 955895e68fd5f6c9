package sql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRowSet(t *testing.T) {
	set := NewRowSet([]string{"id", "name"}, []any{int64(1), "red"}, []any{int64(2), nil})
	assert.Equal(t, 2, set.Len())

	var id any
	var name NullString
	require.Error(t, set.Scan(&id, &name), "scan before next")

	require.True(t, set.Next())
	require.NoError(t, set.Scan(&id, &name))
	assert.Equal(t, int64(1), id)
	assert.Equal(t, NullString{String: "red", Valid: true}, name)

	require.True(t, set.Next())
	require.NoError(t, set.Scan(&id, &name))
	assert.False(t, name.Valid)
	assert.False(t, set.Next())
	assert.False(t, set.Next())

	set.Reset()
	require.True(t, set.Next())
	require.Error(t, set.Scan(&id), "destination count mismatch")
	var n int
	require.Error(t, set.Scan(&id, &n), "unsupported destination")
	assert.NoError(t, set.Err())
	assert.NoError(t, set.Close())
}

func TestCollect(t *testing.T) {
	src := NewRowSet([]string{"a"}, []any{"x"}, []any{"y"})
	set, err := Collect(src)
	require.NoError(t, err)
	assert.Equal(t, 2, set.Len())

	empty, err := Collect(NewRowSet([]string{"a"}))
	require.NoError(t, err)
	assert.Equal(t, 0, empty.Len())
	assert.False(t, empty.Next())
}

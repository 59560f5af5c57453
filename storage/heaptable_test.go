package storage

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestTable(t *testing.T, name string, columns []ColumnAttribute) *HeapTable {
	t.Helper()
	hf, err := OpenHeapFile(newMemPageFile())
	require.NoError(t, err)
	return NewHeapTable(name, columns, hf)
}

var fooSchema = []ColumnAttribute{
	{Name: "a", Type: INT},
	{Name: "b", Type: TEXT},
}

func TestHeapTableInsertSelectProject(t *testing.T) {
	table := newTestTable(t, "foo", fooSchema)

	h, err := table.Insert(Row{"a": NewInt(1), "b": NewText("hello")})
	require.NoError(t, err)

	handles, err := table.Select()
	require.NoError(t, err)
	require.Equal(t, []Handle{h}, handles)

	row, err := table.Project(h, nil)
	require.NoError(t, err)
	require.Equal(t, NewInt(1), row["a"])
	require.Equal(t, NewText("hello"), row["b"])

	projected, err := table.Project(h, []string{"b"})
	require.NoError(t, err)
	require.Len(t, projected, 1)
	require.Equal(t, NewText("hello"), projected["b"])
}

func TestHeapTableInsertMissingColumnFails(t *testing.T) {
	table := newTestTable(t, "foo", fooSchema)
	_, err := table.Insert(Row{"a": NewInt(1)})
	require.Error(t, err)
	var relErr *RelationError
	require.ErrorAs(t, err, &relErr)
}

func TestHeapTableInsertManyRowsSpansBlocks(t *testing.T) {
	table := newTestTable(t, "foo", fooSchema)
	padding := make([]byte, 500)
	for i := range padding {
		padding[i] = 'x'
	}
	const n = 1001
	var handles []Handle
	for i := 0; i < n; i++ {
		h, err := table.Insert(Row{"a": NewInt(int32(i)), "b": NewText(string(padding))})
		require.NoError(t, err)
		handles = append(handles, h)
	}

	got, err := table.Select()
	require.NoError(t, err)
	require.Len(t, got, n)

	last := handles[len(handles)-1]
	row, err := table.Project(last, nil)
	require.NoError(t, err)
	require.Equal(t, NewInt(int32(n-1)), row["a"])
}

func TestHeapTableColumnAttributes(t *testing.T) {
	table := newTestTable(t, "foo", fooSchema)
	attrs, err := table.ColumnAttributes([]string{"b", "a"})
	require.NoError(t, err)
	require.Equal(t, []ColumnAttribute{
		{Name: "b", Type: TEXT},
		{Name: "a", Type: INT},
	}, attrs)

	_, err = table.ColumnAttributes([]string{"nope"})
	require.Error(t, err)
}

package catalog

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"blockdb/pagestore"
	"blockdb/storage"
)

// memEnvironment is an in-memory stand-in for pagestore.Environment,
// used so catalog's tests don't need a real bbolt file on disk.
type memEnvironment struct {
	files map[string]*memFile
}

func newMemEnvironment() *memEnvironment {
	return &memEnvironment{files: make(map[string]*memFile)}
}

func (e *memEnvironment) Create(name string) (pagestore.File, error) {
	f := &memFile{blocks: make(map[uint32][]byte)}
	e.files[name] = f
	return f, nil
}

func (e *memEnvironment) Open(name string) (pagestore.File, error) {
	f, ok := e.files[name]
	if !ok {
		return nil, storage.NewRelationError("no such file %q", name)
	}
	return f, nil
}

func (e *memEnvironment) Drop(name string) error {
	delete(e.files, name)
	return nil
}

func (e *memEnvironment) Close() error { return nil }

type memFile struct {
	blocks map[uint32][]byte
}

func (f *memFile) Put(key uint32, data []byte) error {
	cp := make([]byte, len(data))
	copy(cp, data)
	f.blocks[key] = cp
	return nil
}

func (f *memFile) Get(key uint32) ([]byte, bool) {
	b, ok := f.blocks[key]
	return b, ok
}

func (f *memFile) Delete(key uint32) error {
	delete(f.blocks, key)
	return nil
}

func (f *memFile) Stat() (pagestore.Stat, error) {
	return pagestore.Stat{NData: len(f.blocks)}, nil
}

func (f *memFile) Close() error { return nil }

func TestOpenBootstrapsMetaTables(t *testing.T) {
	cat, err := Open(newMemEnvironment(), zerolog.Nop())
	require.NoError(t, err)

	names, err := cat.ListTableNames()
	require.NoError(t, err)
	require.Empty(t, names)

	cols, err := cat.GetColumns(TablesTableName)
	require.NoError(t, err)
	require.Equal(t, tablesSchema, cols)

	cols, err = cat.GetColumns(ColumnsTableName)
	require.NoError(t, err)
	require.Equal(t, columnsSchema, cols)
}

func TestReopenResumesCatalog(t *testing.T) {
	env := newMemEnvironment()
	cat, err := Open(env, zerolog.Nop())
	require.NoError(t, err)

	_, err = cat.InsertTableRow("widgets")
	require.NoError(t, err)
	_, err = cat.InsertColumnRow("widgets", storage.ColumnAttribute{Name: "id", Type: storage.INT})
	require.NoError(t, err)
	require.NoError(t, cat.CreateTableFile("widgets", []storage.ColumnAttribute{{Name: "id", Type: storage.INT}}))

	reopened, err := Open(env, zerolog.Nop())
	require.NoError(t, err)
	names, err := reopened.ListTableNames()
	require.NoError(t, err)
	require.Equal(t, []string{"widgets"}, names)
}

func TestCreateAndDropTableRollback(t *testing.T) {
	cat, err := Open(newMemEnvironment(), zerolog.Nop())
	require.NoError(t, err)

	th, err := cat.InsertTableRow("widgets")
	require.NoError(t, err)
	ch, err := cat.InsertColumnRow("widgets", storage.ColumnAttribute{Name: "id", Type: storage.INT})
	require.NoError(t, err)

	require.NoError(t, cat.DeleteColumnRow(ch))
	require.NoError(t, cat.DeleteTableRow(th))

	names, err := cat.ListTableNames()
	require.NoError(t, err)
	require.Empty(t, names)
}

func TestIndexRowsRoundTrip(t *testing.T) {
	cat, err := Open(newMemEnvironment(), zerolog.Nop())
	require.NoError(t, err)

	_, err = cat.InsertIndexRow("widgets", "idx_id", "BTREE", true, "id", 1)
	require.NoError(t, err)

	names, err := cat.IndexNames("widgets")
	require.NoError(t, err)
	require.Equal(t, []string{"idx_id"}, names)

	rows, err := cat.IndexRows("widgets", "idx_id")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "id", rows[0].ColumnName)
	require.True(t, rows[0].IsUnique)
}

package storage

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// memPageFile is an in-memory stand-in for pagestore.File, used so the
// storage package's own tests don't need to depend on pagestore.
type memPageFile struct {
	blocks map[uint32][]byte
}

func newMemPageFile() *memPageFile {
	return &memPageFile{blocks: make(map[uint32][]byte)}
}

func (m *memPageFile) Put(key uint32, data []byte) error {
	cp := make([]byte, len(data))
	copy(cp, data)
	m.blocks[key] = cp
	return nil
}

func (m *memPageFile) Get(key uint32) ([]byte, bool) {
	b, ok := m.blocks[key]
	return b, ok
}

func (m *memPageFile) Delete(key uint32) error {
	delete(m.blocks, key)
	return nil
}

func (m *memPageFile) Stat() (int, error) {
	return len(m.blocks), nil
}

func TestHeapFileGetNewAndGet(t *testing.T) {
	hf, err := OpenHeapFile(newMemPageFile())
	require.NoError(t, err)
	require.EqualValues(t, 0, hf.LastBlockID())

	page, id, err := hf.GetNew()
	require.NoError(t, err)
	require.EqualValues(t, 1, id)
	require.EqualValues(t, 1, hf.LastBlockID())

	_, err = page.Add([]byte("payload"))
	require.NoError(t, err)
	require.NoError(t, hf.Put(id, page))

	reread, err := hf.Get(id)
	require.NoError(t, err)
	data, ok := reread.Get(1)
	require.True(t, ok)
	require.Equal(t, "payload", string(data))
}

func TestHeapFileBlockIDsDense(t *testing.T) {
	hf, err := OpenHeapFile(newMemPageFile())
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, _, err := hf.GetNew()
		require.NoError(t, err)
	}
	require.Equal(t, []uint32{1, 2, 3}, hf.BlockIDs())
}

func TestHeapFileReopenResumesLast(t *testing.T) {
	pf := newMemPageFile()
	hf, err := OpenHeapFile(pf)
	require.NoError(t, err)
	_, _, err = hf.GetNew()
	require.NoError(t, err)
	_, _, err = hf.GetNew()
	require.NoError(t, err)

	reopened, err := OpenHeapFile(pf)
	require.NoError(t, err)
	require.EqualValues(t, 2, reopened.LastBlockID())
}

package pagestore

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"blockdb/storage"
)

func testEnv(t *testing.T) *BoltEnvironment {
	t.Helper()
	dir := t.TempDir()
	env, err := OpenEnvironment(dir, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = env.Close() })
	return env
}

func block(fill byte) []byte {
	b := make([]byte, storage.BlockSize)
	b[0] = fill
	return b
}

func TestCreatePutGet(t *testing.T) {
	env := testEnv(t)
	f, err := env.Create("widgets")
	require.NoError(t, err)

	require.NoError(t, f.Put(1, block(0x42)))
	got, ok := f.Get(1)
	require.True(t, ok)
	require.Equal(t, block(0x42), got)

	_, ok = f.Get(2)
	require.False(t, ok)
}

func TestOpenMissingFails(t *testing.T) {
	env := testEnv(t)
	_, err := env.Open("nope")
	require.Error(t, err)
}

func TestStatCounts(t *testing.T) {
	env := testEnv(t)
	f, err := env.Create("widgets")
	require.NoError(t, err)

	require.NoError(t, f.Put(1, block(1)))
	require.NoError(t, f.Put(2, block(2)))

	stat, err := f.Stat()
	require.NoError(t, err)
	require.Equal(t, 2, stat.NData)

	require.NoError(t, f.Delete(1))
	stat, err = f.Stat()
	require.NoError(t, err)
	require.Equal(t, 1, stat.NData)
}

func TestDropRemovesFile(t *testing.T) {
	env := testEnv(t)
	_, err := env.Create("widgets")
	require.NoError(t, err)

	require.NoError(t, env.Drop("widgets"))
	_, err = env.Open("widgets")
	require.Error(t, err)
}

func TestCreateTruncatesExisting(t *testing.T) {
	env := testEnv(t)
	f, err := env.Create("widgets")
	require.NoError(t, err)
	require.NoError(t, f.Put(1, block(9)))

	f2, err := env.Create("widgets")
	require.NoError(t, err)
	_, ok := f2.Get(1)
	require.False(t, ok)
}

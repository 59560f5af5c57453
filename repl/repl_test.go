package repl

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"blockdb/catalog"
	"blockdb/exec"
	"blockdb/pagestore"
)

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
		return nil, &notFoundError{name}
	}
	return f, nil
}

func (e *memEnvironment) Drop(name string) error {
	delete(e.files, name)
	return nil
}

func (e *memEnvironment) Close() error { return nil }

type notFoundError struct{ name string }

func (e *notFoundError) Error() string { return "no such file " + e.name }

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

func newREPL(t *testing.T, in, out *bytes.Buffer) *REPL {
	t.Helper()
	env := newMemEnvironment()
	cat, err := catalog.Open(env, zerolog.Nop())
	require.NoError(t, err)
	executor := exec.New(cat, zerolog.Nop())
	return New(executor, cat, zerolog.Nop(), in, out)
}

func TestREPLQuitExitsImmediately(t *testing.T) {
	in := bytes.NewBufferString("quit\nSHOW TABLES\n")
	out := &bytes.Buffer{}
	r := newREPL(t, in, out)
	code := r.Run()
	require.Equal(t, 0, code)
	require.Empty(t, out.String())
}

func TestREPLRunsSelfTest(t *testing.T) {
	in := bytes.NewBufferString("test\n")
	out := &bytes.Buffer{}
	r := newREPL(t, in, out)
	r.Run()
	require.Equal(t, "ok\n", out.String())
}

func TestREPLEchoesCanonicalSQLAndResult(t *testing.T) {
	in := bytes.NewBufferString("CREATE TABLE foo (a INT)\nSHOW TABLES\n")
	out := &bytes.Buffer{}
	r := newREPL(t, in, out)
	r.Run()
	lines := out.String()
	require.True(t, strings.Contains(lines, "CREATE TABLE foo (a INT)"))
	require.True(t, strings.Contains(lines, "created table"))
	require.True(t, strings.Contains(lines, "SHOW TABLES"))
	require.True(t, strings.Contains(lines, "foo"))
}

func TestREPLPrintsErrorWithoutStopping(t *testing.T) {
	in := bytes.NewBufferString("not valid sql\nSHOW TABLES\n")
	out := &bytes.Buffer{}
	r := newREPL(t, in, out)
	r.Run()
	require.True(t, strings.Contains(out.String(), "Error:"))
	require.True(t, strings.Contains(out.String(), "table_name"))
}

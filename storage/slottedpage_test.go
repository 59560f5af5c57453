package storage

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func newBlock() []byte {
	return make([]byte, BlockSize)
}

func TestSlottedPageAddGet(t *testing.T) {
	p := NewSlottedPage(newBlock(), true)

	id1, err := p.Add([]byte("hello"))
	require.NoError(t, err)
	require.EqualValues(t, 1, id1)

	id2, err := p.Add([]byte("world!"))
	require.NoError(t, err)
	require.EqualValues(t, 2, id2)

	got1, ok := p.Get(id1)
	require.True(t, ok)
	require.Equal(t, "hello", string(got1))

	got2, ok := p.Get(id2)
	require.True(t, ok)
	require.Equal(t, "world!", string(got2))

	require.Equal(t, []uint16{1, 2}, p.IDs())
}

func TestSlottedPageReopen(t *testing.T) {
	block := newBlock()
	p := NewSlottedPage(block, true)
	_, err := p.Add([]byte("abc"))
	require.NoError(t, err)

	reopened := NewSlottedPage(block, false)
	data, ok := reopened.Get(1)
	require.True(t, ok)
	require.Equal(t, "abc", string(data))
}

func TestSlottedPageDelSlides(t *testing.T) {
	p := NewSlottedPage(newBlock(), true)
	id1, _ := p.Add([]byte("first"))
	id2, _ := p.Add([]byte("second"))
	id3, _ := p.Add([]byte("third!"))

	p.Del(id2)

	require.Equal(t, []uint16{id1, id3}, p.IDs())

	d1, ok := p.Get(id1)
	require.True(t, ok)
	require.Equal(t, "first", string(d1))

	d3, ok := p.Get(id3)
	require.True(t, ok)
	require.Equal(t, "third!", string(d3))

	_, ok = p.Get(id2)
	require.False(t, ok)
}

func TestSlottedPagePutGrowShrink(t *testing.T) {
	p := NewSlottedPage(newBlock(), true)
	id1, _ := p.Add([]byte("first"))
	id2, _ := p.Add([]byte("second"))

	require.NoError(t, p.Put(id1, []byte("a much longer first record")))
	d1, ok := p.Get(id1)
	require.True(t, ok)
	require.Equal(t, "a much longer first record", string(d1))

	d2, ok := p.Get(id2)
	require.True(t, ok)
	require.Equal(t, "second", string(d2))

	require.NoError(t, p.Put(id1, []byte("x")))
	d1, ok = p.Get(id1)
	require.True(t, ok)
	require.Equal(t, "x", string(d1))
}

func TestSlottedPageNoRoom(t *testing.T) {
	p := NewSlottedPage(newBlock(), true)
	huge := make([]byte, BlockSize)
	_, err := p.Add(huge)
	require.Error(t, err)
	var noRoom *NoRoom
	require.ErrorAs(t, err, &noRoom)
}

func TestSlottedPageFillsUp(t *testing.T) {
	p := NewSlottedPage(newBlock(), true)
	rec := make([]byte, 100)
	count := 0
	for {
		_, err := p.Add(rec)
		if err != nil {
			var noRoom *NoRoom
			require.ErrorAs(t, err, &noRoom)
			break
		}
		count++
	}
	require.Greater(t, count, 0)
	require.Equal(t, count, len(p.IDs()))
}

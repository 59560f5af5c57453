package index

import (
	"encoding/binary"

	"blockdb/storage"
)

// leafEntry is one (key, handle) pair stored in a leaf node, sorted by
// key.
type leafEntry struct {
	key    Key
	handle storage.Handle
}

// interiorEntry is one (boundary key, child) pair: child's subtree
// holds every key >= boundary (and, if another entry follows, < that
// entry's boundary).
type interiorEntry struct {
	key   Key
	child uint32
}

// node is the in-memory form of one B+Tree block: either a leaf
// holding sorted (key, handle) pairs, or an interior node holding a
// first child plus sorted (boundary, child) pairs. Nodes are read and
// written whole, the same way BTreeLeaf/BTreeInterior round-trip
// through their backing Dbt in the course project.
type node struct {
	isLeaf     bool
	firstChild uint32
	leaf       []leafEntry
	interior   []interiorEntry
}

// findChild returns the child block id an interior node would descend
// into to find key: the child paired with the last boundary <= key, or
// the first child if key is below every boundary.
func (n *node) findChild(key Key) uint32 {
	child := n.firstChild
	for _, e := range n.interior {
		if CompareKeys(key, e.key) < 0 {
			break
		}
		child = e.child
	}
	return child
}

func marshalKey(profile []storage.DataType, key Key) []byte {
	var buf []byte
	for i, t := range profile {
		v := key[i]
		switch t {
		case storage.INT:
			var b [4]byte
			binary.LittleEndian.PutUint32(b[:], uint32(v.Int))
			buf = append(buf, b[:]...)
		case storage.TEXT:
			var b [2]byte
			binary.LittleEndian.PutUint16(b[:], uint16(len(v.Text)))
			buf = append(buf, b[:]...)
			buf = append(buf, v.Text...)
		case storage.BOOLEAN:
			if v.Bool {
				buf = append(buf, 1)
			} else {
				buf = append(buf, 0)
			}
		}
	}
	return buf
}

func unmarshalKey(profile []storage.DataType, data []byte, offset int) (Key, int) {
	key := make(Key, len(profile))
	for i, t := range profile {
		switch t {
		case storage.INT:
			n := int32(binary.LittleEndian.Uint32(data[offset:]))
			key[i] = storage.NewInt(n)
			offset += 4
		case storage.TEXT:
			size := int(binary.LittleEndian.Uint16(data[offset:]))
			offset += 2
			key[i] = storage.NewText(string(data[offset : offset+size]))
			offset += size
		case storage.BOOLEAN:
			key[i] = storage.NewBoolean(data[offset] != 0)
			offset++
		}
	}
	return key, offset
}

// encodedSize returns how many bytes encode(profile) would produce,
// used to decide whether a node needs to split before it is actually
// written.
func (n *node) encodedSize(profile []storage.DataType) int {
	return len(n.encode(profile))
}

// encode serializes n using profile to size each key's columns.
func (n *node) encode(profile []storage.DataType) []byte {
	var buf []byte
	if n.isLeaf {
		buf = append(buf, 1)
		var countBytes [2]byte
		binary.LittleEndian.PutUint16(countBytes[:], uint16(len(n.leaf)))
		buf = append(buf, countBytes[:]...)
		for _, e := range n.leaf {
			buf = append(buf, marshalKey(profile, e.key)...)
			var h [6]byte
			binary.LittleEndian.PutUint32(h[0:], e.handle.BlockID)
			binary.LittleEndian.PutUint16(h[4:], e.handle.RecordID)
			buf = append(buf, h[:]...)
		}
		return buf
	}
	buf = append(buf, 0)
	var first [4]byte
	binary.LittleEndian.PutUint32(first[:], n.firstChild)
	buf = append(buf, first[:]...)
	var countBytes [2]byte
	binary.LittleEndian.PutUint16(countBytes[:], uint16(len(n.interior)))
	buf = append(buf, countBytes[:]...)
	for _, e := range n.interior {
		buf = append(buf, marshalKey(profile, e.key)...)
		var c [4]byte
		binary.LittleEndian.PutUint32(c[:], e.child)
		buf = append(buf, c[:]...)
	}
	return buf
}

func decodeNode(block []byte, profile []storage.DataType) (*node, error) {
	if len(block) == 0 {
		return nil, storage.NewRelationError("btree: empty node block")
	}
	n := &node{isLeaf: block[0] == 1}
	offset := 1
	if n.isLeaf {
		count := int(binary.LittleEndian.Uint16(block[offset:]))
		offset += 2
		n.leaf = make([]leafEntry, count)
		for i := 0; i < count; i++ {
			var key Key
			key, offset = unmarshalKey(profile, block, offset)
			blockID := binary.LittleEndian.Uint32(block[offset:])
			recordID := binary.LittleEndian.Uint16(block[offset+4:])
			offset += 6
			n.leaf[i] = leafEntry{key: key, handle: storage.Handle{BlockID: blockID, RecordID: recordID}}
		}
		return n, nil
	}
	n.firstChild = binary.LittleEndian.Uint32(block[offset:])
	offset += 4
	count := int(binary.LittleEndian.Uint16(block[offset:]))
	offset += 2
	n.interior = make([]interiorEntry, count)
	for i := 0; i < count; i++ {
		var key Key
		key, offset = unmarshalKey(profile, block, offset)
		child := binary.LittleEndian.Uint32(block[offset:])
		offset += 4
		n.interior[i] = interiorEntry{key: key, child: child}
	}
	return n, nil
}

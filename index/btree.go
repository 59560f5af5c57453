// Package index implements blockdb's only index type: a disk-backed,
// unique B+Tree over one or more columns of a heap relation, grounded
// on the course project's BTreeIndex/BTreeStat/BTreeLeaf/BTreeInterior
// split-and-promote design.
package index

import (
	"encoding/binary"
	"fmt"
	"sort"

	"blockdb/pagestore"
	"blockdb/storage"
)

// StatBlockID is the fixed block holding the index's root pointer and
// height, the way the course project reserved block 1 for BTreeStat.
const StatBlockID = 1

// initialRootBlockID is where the very first leaf is written when an index is
// created; block 1 is reserved for the stat block.
const initialRootBlockID = 2

// Key is a tuple of values in key-column order.
type Key []storage.Value

// CompareKeys orders two keys of the same profile lexicographically,
// column by column.
func CompareKeys(a, b Key) int {
	for i := range a {
		if c := storage.Compare(a[i], b[i]); c != 0 {
			return c
		}
	}
	return 0
}

// BTreeIndex is a unique index over relation's KeyColumns. It insists
// on uniqueness unconditionally, matching the course project's BTree
// constructor, which refuses to build a non-unique one at all.
type BTreeIndex struct {
	Name        string
	TableName   string
	KeyColumns  []string
	KeyProfile  []storage.DataType
	relation    *storage.HeapTable
	file        pagestore.File
	rootBlockID uint32
	height      uint32
}

// fileName is the on-disk name of tableName's indexName index,
// following the course project's "<table>-<index>" convention.
func fileName(tableName, indexName string) string {
	return tableName + "-" + indexName
}

// New builds a BTreeIndex value over relation's key columns. Call
// Create to materialize a brand new index, or Open to resume an
// existing one.
func New(relation *storage.HeapTable, name string, keyColumns []string) (*BTreeIndex, error) {
	profile, err := relation.ColumnAttributes(keyColumns)
	if err != nil {
		return nil, err
	}
	keyTypes := make([]storage.DataType, len(profile))
	for i, p := range profile {
		keyTypes[i] = p.Type
	}
	return &BTreeIndex{
		Name:       name,
		TableName:  relation.Name,
		KeyColumns: keyColumns,
		KeyProfile: keyTypes,
		relation:   relation,
	}, nil
}

// Create materializes the index file, builds an empty root leaf, and
// inserts every row currently in the base relation. If any insertion
// fails - most plausibly a duplicate key violating uniqueness - the
// partially built index file is dropped and the error is returned; no
// partial index is left behind.
func (idx *BTreeIndex) Create(env pagestore.Environment) error {
	f, err := env.Create(fileName(idx.TableName, idx.Name))
	if err != nil {
		return err
	}
	idx.file = f
	idx.rootBlockID = initialRootBlockID
	idx.height = 1

	if err := idx.writeStat(); err != nil {
		_ = env.Drop(fileName(idx.TableName, idx.Name))
		return err
	}
	if err := idx.writeNode(idx.rootBlockID, &node{isLeaf: true}); err != nil {
		_ = env.Drop(fileName(idx.TableName, idx.Name))
		return err
	}

	handles, err := idx.relation.Select()
	if err != nil {
		_ = env.Drop(fileName(idx.TableName, idx.Name))
		return err
	}
	for _, h := range handles {
		if err := idx.Insert(h); err != nil {
			_ = env.Drop(fileName(idx.TableName, idx.Name))
			return err
		}
	}
	return nil
}

// Open resumes an existing index file.
func (idx *BTreeIndex) Open(env pagestore.Environment) error {
	f, err := env.Open(fileName(idx.TableName, idx.Name))
	if err != nil {
		return err
	}
	idx.file = f
	return idx.readStat()
}

// Drop removes the index's backing file.
func (idx *BTreeIndex) Drop(env pagestore.Environment) error {
	return env.Drop(fileName(idx.TableName, idx.Name))
}

// Close releases the index's backing file.
func (idx *BTreeIndex) Close() error {
	if idx.file == nil {
		return nil
	}
	return idx.file.Close()
}

func (idx *BTreeIndex) tkey(row storage.Row) Key {
	key := make(Key, len(idx.KeyColumns))
	for i, col := range idx.KeyColumns {
		key[i] = row[col]
	}
	return key
}

// Insert adds handle's row to the index, keyed by its KeyColumns. The
// row must already exist in the base relation. A duplicate key is a
// RelationError, since every BTreeIndex in this kernel is unique.
func (idx *BTreeIndex) Insert(handle storage.Handle) error {
	row, err := idx.relation.Project(handle, idx.KeyColumns)
	if err != nil {
		return err
	}
	key := idx.tkey(row)

	split, err := idx.insertInto(idx.rootBlockID, idx.height, key, handle)
	if err != nil {
		return err
	}
	if split == nil {
		return nil
	}

	// The root split: build a new interior root with the old root as
	// its first child and the returned sibling as the other child,
	// and grow the tree's height by one.
	newRoot := &node{isLeaf: false, firstChild: idx.rootBlockID}
	newRoot.interior = append(newRoot.interior, interiorEntry{key: split.key, child: split.blockID})
	newRootID, err := idx.allocateBlock()
	if err != nil {
		return err
	}
	if err := idx.writeNode(newRootID, newRoot); err != nil {
		return err
	}
	idx.rootBlockID = newRootID
	idx.height++
	return idx.writeStat()
}

// splitResult describes a node that split: the new sibling's block id
// and the boundary key that separates it from its left sibling.
type splitResult struct {
	blockID uint32
	key     Key
}

// insertInto recursively descends to a leaf, inserts, and propagates
// any split back up, mirroring BTreeIndex::_insert's recursion.
func (idx *BTreeIndex) insertInto(blockID uint32, height uint32, key Key, handle storage.Handle) (*splitResult, error) {
	n, err := idx.readNode(blockID)
	if err != nil {
		return nil, err
	}
	if height == 1 {
		split, err := idx.insertLeaf(blockID, n, key, handle)
		if err != nil {
			return nil, err
		}
		return split, nil
	}

	child := n.findChild(key)
	childSplit, err := idx.insertInto(child, height-1, key, handle)
	if err != nil {
		return nil, err
	}
	if childSplit == nil {
		return nil, nil
	}
	return idx.insertInterior(blockID, n, childSplit.key, childSplit.blockID)
}

func (idx *BTreeIndex) insertLeaf(blockID uint32, n *node, key Key, handle storage.Handle) (*splitResult, error) {
	pos := sort.Search(len(n.leaf), func(i int) bool {
		return CompareKeys(n.leaf[i].key, key) >= 0
	})
	if pos < len(n.leaf) && CompareKeys(n.leaf[pos].key, key) == 0 {
		return nil, storage.NewRelationError("duplicate key in unique index %q", idx.Name)
	}
	entry := leafEntry{key: key, handle: handle}
	n.leaf = append(n.leaf, leafEntry{})
	copy(n.leaf[pos+1:], n.leaf[pos:])
	n.leaf[pos] = entry

	if n.encodedSize(idx.KeyProfile) <= storage.BlockSize {
		return nil, idx.writeNode(blockID, n)
	}

	mid := len(n.leaf) / 2
	right := &node{isLeaf: true, leaf: append([]leafEntry{}, n.leaf[mid:]...)}
	n.leaf = n.leaf[:mid]

	rightID, err := idx.allocateBlock()
	if err != nil {
		return nil, err
	}
	if err := idx.writeNode(blockID, n); err != nil {
		return nil, err
	}
	if err := idx.writeNode(rightID, right); err != nil {
		return nil, err
	}
	return &splitResult{blockID: rightID, key: right.leaf[0].key}, nil
}

func (idx *BTreeIndex) insertInterior(blockID uint32, n *node, key Key, child uint32) (*splitResult, error) {
	pos := sort.Search(len(n.interior), func(i int) bool {
		return CompareKeys(n.interior[i].key, key) >= 0
	})
	entry := interiorEntry{key: key, child: child}
	n.interior = append(n.interior, interiorEntry{})
	copy(n.interior[pos+1:], n.interior[pos:])
	n.interior[pos] = entry

	if n.encodedSize(idx.KeyProfile) <= storage.BlockSize {
		return nil, idx.writeNode(blockID, n)
	}

	mid := len(n.interior) / 2
	boundary := n.interior[mid].key
	right := &node{isLeaf: false, firstChild: n.interior[mid].child, interior: append([]interiorEntry{}, n.interior[mid+1:]...)}
	n.interior = n.interior[:mid]

	rightID, err := idx.allocateBlock()
	if err != nil {
		return nil, err
	}
	if err := idx.writeNode(blockID, n); err != nil {
		return nil, err
	}
	if err := idx.writeNode(rightID, right); err != nil {
		return nil, err
	}
	return &splitResult{blockID: rightID, key: boundary}, nil
}

// Lookup returns the Handle whose key equals keyDict's values in
// KeyColumns order, or (Handle{}, false) if no such key exists.
func (idx *BTreeIndex) Lookup(keyDict map[string]storage.Value) (storage.Handle, bool, error) {
	key := make(Key, len(idx.KeyColumns))
	for i, col := range idx.KeyColumns {
		key[i] = keyDict[col]
	}
	return idx.lookup(idx.rootBlockID, idx.height, key)
}

func (idx *BTreeIndex) lookup(blockID uint32, height uint32, key Key) (storage.Handle, bool, error) {
	n, err := idx.readNode(blockID)
	if err != nil {
		return storage.Handle{}, false, err
	}
	if height == 1 {
		for _, e := range n.leaf {
			if CompareKeys(e.key, key) == 0 {
				return e.handle, true, nil
			}
		}
		return storage.Handle{}, false, nil
	}
	return idx.lookup(n.findChild(key), height-1, key)
}

func (idx *BTreeIndex) allocateBlock() (uint32, error) {
	stat, err := idx.file.Stat()
	if err != nil {
		return 0, err
	}
	// Block ids 1..n are already in use (stat block plus every node
	// written so far); the next free one is n+1.
	return uint32(stat.NData) + 1, nil
}

func (idx *BTreeIndex) writeStat() error {
	block := make([]byte, storage.BlockSize)
	binary.LittleEndian.PutUint32(block[0:], idx.rootBlockID)
	binary.LittleEndian.PutUint32(block[4:], idx.height)
	binary.LittleEndian.PutUint16(block[8:], uint16(len(idx.KeyProfile)))
	for i, t := range idx.KeyProfile {
		block[10+i] = byte(t)
	}
	return idx.file.Put(StatBlockID, block)
}

func (idx *BTreeIndex) readStat() error {
	block, ok := idx.file.Get(StatBlockID)
	if !ok {
		return storage.NewRelationError("index %q has no stat block", idx.Name)
	}
	idx.rootBlockID = binary.LittleEndian.Uint32(block[0:])
	idx.height = binary.LittleEndian.Uint32(block[4:])
	n := int(binary.LittleEndian.Uint16(block[8:]))
	idx.KeyProfile = make([]storage.DataType, n)
	for i := range idx.KeyProfile {
		idx.KeyProfile[i] = storage.DataType(block[10+i])
	}
	return nil
}

func (idx *BTreeIndex) writeNode(blockID uint32, n *node) error {
	data := n.encode(idx.KeyProfile)
	if len(data) > storage.BlockSize {
		return fmt.Errorf("btree: node at block %d exceeds block size (%d > %d)", blockID, len(data), storage.BlockSize)
	}
	block := make([]byte, storage.BlockSize)
	copy(block, data)
	return idx.file.Put(blockID, block)
}

func (idx *BTreeIndex) readNode(blockID uint32) (*node, error) {
	block, ok := idx.file.Get(blockID)
	if !ok {
		return nil, storage.NewRelationError("btree: no such block %d", blockID)
	}
	return decodeNode(block, idx.KeyProfile)
}

package storage

// PageFile is the subset of pagestore.File the heap layer needs. It is
// declared here, rather than importing the pagestore package directly,
// so storage stays free of any dependency on the concrete block-store
// backing - exactly the separation spec.md draws between the heap file
// and the external "page store" collaborator.
type PageFile interface {
	Put(key uint32, data []byte) error
	Get(key uint32) (data []byte, ok bool)
	Delete(key uint32) error
	Stat() (nData int, err error)
}

// HeapFile is a dense, 1-based sequence of SlottedPage blocks backed by
// one named PageFile. Block numbering has no gaps: block ids run from 1
// through Last inclusive.
type HeapFile struct {
	file PageFile
	last uint32
}

// OpenHeapFile wraps an already-created/opened PageFile as a HeapFile,
// determining the current last block id from the file's population.
// Blocks are never deleted individually in this kernel, only rows
// within them, so the file's record count is always exactly the
// highest allocated block id.
func OpenHeapFile(file PageFile) (*HeapFile, error) {
	n, err := file.Stat()
	if err != nil {
		return nil, err
	}
	return &HeapFile{file: file, last: uint32(n)}, nil
}

// GetNew allocates a new, empty block at the end of the file and
// returns it along with its block id.
func (h *HeapFile) GetNew() (*SlottedPage, uint32, error) {
	next := h.last + 1
	block := make([]byte, BlockSize)
	page := NewSlottedPage(block, true)
	if err := h.file.Put(next, page.Bytes()); err != nil {
		return nil, 0, err
	}
	h.last = next
	return page, h.last, nil
}

// Get reads and parses the block at blockID.
func (h *HeapFile) Get(blockID uint32) (*SlottedPage, error) {
	data, ok := h.file.Get(blockID)
	if !ok {
		return nil, NewRelationError("no such block %d", blockID)
	}
	return NewSlottedPage(data, false), nil
}

// Put writes page back to blockID.
func (h *HeapFile) Put(blockID uint32, page *SlottedPage) error {
	return h.file.Put(blockID, page.Bytes())
}

// BlockIDs returns every block id in the file, in ascending order.
func (h *HeapFile) BlockIDs() []uint32 {
	ids := make([]uint32, 0, h.last)
	for id := uint32(1); id <= h.last; id++ {
		ids = append(ids, id)
	}
	return ids
}

// LastBlockID returns the highest block id currently allocated, or 0 if
// the file is empty.
func (h *HeapFile) LastBlockID() uint32 { return h.last }

package storage

import "encoding/binary"

// BlockSize is the fixed size of every block the page store hands back,
// matching the 4K record length the original course project configured
// its BerkeleyDB DB_RECNO access method with.
const BlockSize = 4096

// SlottedPage is an in-memory view over one BlockSize-byte block, laid
// out as a slot directory growing up from offset 0 and a payload area
// growing down from the end of the block.
//
// Slot 0 is the block header: (num_records uint16, end_free uint16).
// Slot id in [1, num_records] lives at offset 4*id and holds
// (size uint16, loc uint16); loc == 0 marks a deleted record. Record
// bytes are right-justified: the first record inserted occupies the
// highest addresses, later insertions stack below it toward end_free.
type SlottedPage struct {
	block      []byte
	numRecords uint16
	endFree    uint16
}

// NewSlottedPage wraps block (which must be exactly BlockSize bytes) in
// a SlottedPage. When isNew is true the block is treated as empty and
// initialized; otherwise the header is read out of block's existing
// bytes.
func NewSlottedPage(block []byte, isNew bool) *SlottedPage {
	if len(block) != BlockSize {
		panic("storage: block must be exactly BlockSize bytes")
	}
	p := &SlottedPage{block: block}
	if isNew {
		p.numRecords = 0
		p.endFree = BlockSize - 1
		p.putHeader(0, 0, 0)
	} else {
		p.numRecords, p.endFree = p.getHeader(0)
	}
	return p
}

// Bytes returns the underlying block buffer, suitable for handing to the
// page store's Put.
func (p *SlottedPage) Bytes() []byte { return p.block }

func (p *SlottedPage) freeSpace() int {
	return int(p.endFree) - 4*(int(p.numRecords)+1)
}

// Add appends data as a new record and returns its record id. It returns
// a *NoRoom error if data plus its 4-byte slot entry does not fit in the
// page's current free space.
func (p *SlottedPage) Add(data []byte) (uint16, error) {
	size := len(data)
	if size+4 > p.freeSpace() {
		return 0, &NoRoom{Size: size + 4, Free: p.freeSpace()}
	}
	id := p.numRecords + 1
	p.numRecords = id
	p.endFree -= uint16(size)
	loc := p.endFree + 1
	p.putHeader(0, 0, 0)
	p.putHeader(id, uint16(size), loc)
	copy(p.block[loc:int(loc)+size], data)
	return id, nil
}

// Get returns a copy of the record stored at recordID, or (nil, false)
// if recordID has never existed or was deleted.
func (p *SlottedPage) Get(recordID uint16) ([]byte, bool) {
	size, loc := p.getHeader(recordID)
	if loc == 0 {
		return nil, false
	}
	out := make([]byte, size)
	copy(out, p.block[loc:int(loc)+int(size)])
	return out, true
}

// Put replaces the bytes stored at recordID with data. It is implemented
// as closing the gap the old record leaves behind (the same slide used
// by Del) followed by appending data at the new end_free boundary, so a
// record can freely grow or shrink without disturbing any other
// record's relative ordering. It returns a *NoRoom error, leaving the
// page unchanged, if the new data does not fit even after the old
// record's space is reclaimed.
func (p *SlottedPage) Put(recordID uint16, data []byte) error {
	size, loc := p.getHeader(recordID)
	if loc == 0 {
		return NewRelationError("cannot put to a deleted record")
	}
	newSize := len(data)
	available := p.freeSpace() + int(size)
	if newSize > available {
		return &NoRoom{Size: newSize, Free: available}
	}
	p.slide(loc, loc+size)
	newLoc := p.endFree - uint16(newSize) + 1
	p.endFree -= uint16(newSize)
	copy(p.block[newLoc:int(newLoc)+newSize], data)
	p.putHeader(recordID, uint16(newSize), newLoc)
	p.putHeader(0, 0, 0)
	return nil
}

// Del marks recordID as deleted and slides the payload region to close
// the gap it leaves behind.
func (p *SlottedPage) Del(recordID uint16) {
	size, loc := p.getHeader(recordID)
	if loc == 0 {
		return
	}
	p.slide(loc, loc+size)
	p.putHeader(recordID, 0, 0)
}

// IDs returns the record ids of every non-deleted record on the page, in
// ascending order.
func (p *SlottedPage) IDs() []uint16 {
	ids := make([]uint16, 0, p.numRecords)
	for id := uint16(1); id <= p.numRecords; id++ {
		_, loc := p.getHeader(id)
		if loc != 0 {
			ids = append(ids, id)
		}
	}
	return ids
}

// slide closes the gap left behind by a record occupying [start, end)
// that is about to be freed. Every other record's bytes currently
// living in [end_free+1, start) - the records inserted after the freed
// one, since they hold lower addresses - shift up by (end-start) bytes
// to abut the freed region, and end_free grows by the same amount. The
// slot directory entry of every record so moved is rewritten to its new
// location.
func (p *SlottedPage) slide(start, end uint16) {
	shift := int(end) - int(start)
	if shift <= 0 {
		return
	}
	for i := int(start) - 1; i >= int(p.endFree)+1; i-- {
		p.block[i+shift] = p.block[i]
	}
	for i := int(p.endFree) + 1; i < int(p.endFree)+1+shift; i++ {
		p.block[i] = 0
	}
	for id := uint16(1); id <= p.numRecords; id++ {
		size, loc := p.getHeader(id)
		if loc != 0 && loc < start {
			p.putHeader(id, size, loc+uint16(shift))
		}
	}
	p.endFree += uint16(shift)
	p.putHeader(0, 0, 0)
}

func (p *SlottedPage) getHeader(id uint16) (size, loc uint16) {
	if id == 0 {
		return p.numRecords, p.endFree
	}
	off := 4 * int(id)
	return binary.LittleEndian.Uint16(p.block[off:]), binary.LittleEndian.Uint16(p.block[off+2:])
}

func (p *SlottedPage) putHeader(id, size, loc uint16) {
	if id == 0 {
		size = p.numRecords
		loc = p.endFree
	}
	off := 4 * int(id)
	binary.LittleEndian.PutUint16(p.block[off:], size)
	binary.LittleEndian.PutUint16(p.block[off+2:], loc)
}

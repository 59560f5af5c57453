package storage

import "errors"

// Handle identifies one row: the block it lives on and its slot id
// within that block's SlottedPage.
type Handle struct {
	BlockID  uint32
	RecordID uint16
}

// HeapTable is a relation backed by a HeapFile: an unordered bag of
// rows, each marshaled according to the table's column schema.
type HeapTable struct {
	Name    string
	Columns []ColumnAttribute
	file    *HeapFile
}

// NewHeapTable wraps an already-opened HeapFile as a relation over the
// given column schema.
func NewHeapTable(name string, columns []ColumnAttribute, file *HeapFile) *HeapTable {
	return &HeapTable{Name: name, Columns: columns, file: file}
}

// Insert validates row against the table's schema and appends it,
// returning the Handle of the new record.
func (t *HeapTable) Insert(row Row) (Handle, error) {
	full, err := t.validate(row)
	if err != nil {
		return Handle{}, err
	}
	return t.append(full)
}

// validate checks that row supplies every column the schema requires
// and returns a copy holding only those columns; keys of row that are
// not in the schema are dropped, not rejected. This kernel has no notion of NULL or DEFAULT, so a missing
// column is always an error (caught by MarshalRow too, but checking
// here gives a clearer message before any bytes are touched).
func (t *HeapTable) validate(row Row) (Row, error) {
	full := make(Row, len(t.Columns))
	for _, col := range t.Columns {
		v, ok := row[col.Name]
		if !ok {
			return nil, NewRelationError("don't know how to handle NULLs, defaults, etc. yet: missing column %q", col.Name)
		}
		full[col.Name] = v
	}
	return full, nil
}

func (t *HeapTable) append(row Row) (Handle, error) {
	data, err := MarshalRow(t.Columns, row)
	if err != nil {
		return Handle{}, err
	}

	if t.file.LastBlockID() == 0 {
		page, blockID, err := t.file.GetNew()
		if err != nil {
			return Handle{}, err
		}
		recordID, err := page.Add(data)
		if err != nil {
			return Handle{}, err
		}
		if err := t.file.Put(blockID, page); err != nil {
			return Handle{}, err
		}
		return Handle{BlockID: blockID, RecordID: recordID}, nil
	}

	blockID := t.file.LastBlockID()
	page, err := t.file.Get(blockID)
	if err != nil {
		return Handle{}, err
	}
	recordID, err := page.Add(data)
	if err != nil {
		var noRoom *NoRoom
		if !errors.As(err, &noRoom) {
			return Handle{}, err
		}
		page, blockID, err = t.file.GetNew()
		if err != nil {
			return Handle{}, err
		}
		recordID, err = page.Add(data)
		if err != nil {
			return Handle{}, err
		}
	}
	if err := t.file.Put(blockID, page); err != nil {
		return Handle{}, err
	}
	return Handle{BlockID: blockID, RecordID: recordID}, nil
}

// Delete physically removes the record at handle. There is no SQL
// DELETE statement in this kernel (see Non-goals), but the catalog
// itself needs to remove rows it just inserted when a DDL statement
// fails partway through, and this is the primitive it rolls back with.
func (t *HeapTable) Delete(handle Handle) error {
	block, err := t.file.Get(handle.BlockID)
	if err != nil {
		return err
	}
	block.Del(handle.RecordID)
	return t.file.Put(handle.BlockID, block)
}

// Select returns the Handle of every row in the table via a full scan
// over blocks and their ids().
func (t *HeapTable) Select() ([]Handle, error) {
	var handles []Handle
	for _, blockID := range t.file.BlockIDs() {
		block, err := t.file.Get(blockID)
		if err != nil {
			return nil, err
		}
		for _, recordID := range block.IDs() {
			handles = append(handles, Handle{BlockID: blockID, RecordID: recordID})
		}
	}
	return handles, nil
}

// SelectWhere is Select filtered by where: a handle survives iff every
// (k,v) in where matches its row. A nil or empty where is equivalent
// to Select.
func (t *HeapTable) SelectWhere(where Row) ([]Handle, error) {
	handles, err := t.Select()
	if err != nil {
		return nil, err
	}
	return t.SelectFrom(handles, where)
}

// SelectFrom refines an existing handle list with where, keeping only
// those handles whose row matches every (k,v) in where. A nil or empty
// where returns current unchanged.
func (t *HeapTable) SelectFrom(current []Handle, where Row) ([]Handle, error) {
	if len(where) == 0 {
		return current, nil
	}
	cols := make([]string, 0, len(where))
	for k := range where {
		cols = append(cols, k)
	}
	var kept []Handle
	for _, h := range current {
		row, err := t.Project(h, cols)
		if err != nil {
			return nil, err
		}
		matches := true
		for k, want := range where {
			if !Equal(row[k], want) {
				matches = false
				break
			}
		}
		if matches {
			kept = append(kept, h)
		}
	}
	return kept, nil
}

// Project returns the row at handle, restricted to columnNames (nil
// means all columns).
func (t *HeapTable) Project(handle Handle, columnNames []string) (Row, error) {
	block, err := t.file.Get(handle.BlockID)
	if err != nil {
		return nil, err
	}
	data, ok := block.Get(handle.RecordID)
	if !ok {
		return nil, NewRelationError("no such record %v", handle)
	}
	row, err := UnmarshalRow(t.Columns, data)
	if err != nil {
		return nil, err
	}
	return Project(row, columnNames), nil
}

// ColumnAttributes returns the ColumnAttribute for each name in names,
// in the order requested. Used by the B+Tree index to build its key
// profile from a relation's key columns.
func (t *HeapTable) ColumnAttributes(names []string) ([]ColumnAttribute, error) {
	byName := make(map[string]ColumnAttribute, len(t.Columns))
	for _, c := range t.Columns {
		byName[c.Name] = c
	}
	out := make([]ColumnAttribute, 0, len(names))
	for _, n := range names {
		c, ok := byName[n]
		if !ok {
			return nil, NewRelationError("table %q has no column %q", t.Name, n)
		}
		out = append(out, c)
	}
	return out, nil
}

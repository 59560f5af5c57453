package storage

import (
	"encoding/binary"
	"strings"
)

// DataType enumerates the column types this kernel recognizes. DOUBLE and
// any other SQL type the front end might produce are deliberately left
// unrecognized; marshal rejects them with a RelationError.
type DataType int

const (
	INT DataType = iota
	TEXT
	BOOLEAN
)

func (t DataType) String() string {
	switch t {
	case INT:
		return "INT"
	case TEXT:
		return "TEXT"
	case BOOLEAN:
		return "BOOLEAN"
	default:
		return "UNKNOWN"
	}
}

// ColumnAttribute describes one column of a relation: its name and its
// storage type. Column order is carried by the slice a ColumnAttribute
// lives in, never by the Value map.
type ColumnAttribute struct {
	Name string
	Type DataType
}

// Value is the tagged union every row cell holds. Only one of the three
// fields is meaningful, selected by Type.
type Value struct {
	Type DataType
	Int  int32
	Text string
	Bool bool
}

func NewInt(n int32) Value      { return Value{Type: INT, Int: n} }
func NewText(s string) Value    { return Value{Type: TEXT, Text: s} }
func NewBoolean(b bool) Value   { return Value{Type: BOOLEAN, Bool: b} }

// Row is a column-name-keyed dict of cell values. Column order is not
// recoverable from a Row alone; callers must consult the relation's
// ColumnAttribute slice for that.
type Row map[string]Value

// Compare orders two values of the same DataType. It returns -2 for
// values of differing or unrecognized type, which callers treat as
// "not equal" rather than panicking - there is no NULL in this kernel,
// so -2 only ever signals a type mismatch.
func Compare(a, b Value) int {
	if a.Type != b.Type {
		return -2
	}
	switch a.Type {
	case INT:
		switch {
		case a.Int < b.Int:
			return -1
		case a.Int > b.Int:
			return 1
		default:
			return 0
		}
	case TEXT:
		return strings.Compare(a.Text, b.Text)
	case BOOLEAN:
		if a.Bool == b.Bool {
			return 0
		}
		if !a.Bool && b.Bool {
			return -1
		}
		return 1
	default:
		return -2
	}
}

// Equal reports whether a and b are the same type and value.
func Equal(a, b Value) bool {
	return Compare(a, b) == 0
}

// MarshalRow encodes row in schema column order: INT as 4 little-endian
// bytes, TEXT as a 2-byte little-endian length followed by its ASCII
// bytes, BOOLEAN as a single 0/1 byte. Any column missing from row, or a
// column whose declared type isn't one of the three above, is a
// RelationError - this kernel has no notion of NULL or DEFAULT.
func MarshalRow(schema []ColumnAttribute, row Row) ([]byte, error) {
	buf := make([]byte, 0, 64)
	for _, col := range schema {
		v, ok := row[col.Name]
		if !ok {
			return nil, NewRelationError("don't know how to handle NULLs, defaults, etc. yet: missing column %q", col.Name)
		}
		if v.Type != col.Type {
			return nil, NewRelationError("column %q: expected %s, got %s", col.Name, col.Type, v.Type)
		}
		switch col.Type {
		case INT:
			var b [4]byte
			binary.LittleEndian.PutUint32(b[:], uint32(v.Int))
			buf = append(buf, b[:]...)
		case TEXT:
			if len(v.Text) > 65535 {
				return nil, NewRelationError("column %q: text value too long (%d bytes)", col.Name, len(v.Text))
			}
			for i := range v.Text {
				if v.Text[i] > 127 {
					return nil, NewRelationError("column %q: non-ASCII text is not supported", col.Name)
				}
			}
			var b [2]byte
			binary.LittleEndian.PutUint16(b[:], uint16(len(v.Text)))
			buf = append(buf, b[:]...)
			buf = append(buf, v.Text...)
		case BOOLEAN:
			if v.Bool {
				buf = append(buf, 1)
			} else {
				buf = append(buf, 0)
			}
		default:
			return nil, NewRelationError("only know how to marshal INT/TEXT/BOOLEAN")
		}
	}
	return buf, nil
}

// UnmarshalRow is the inverse of MarshalRow: it reads schema's columns in
// order out of data and returns the reconstructed row.
func UnmarshalRow(schema []ColumnAttribute, data []byte) (Row, error) {
	row := make(Row, len(schema))
	offset := 0
	for _, col := range schema {
		switch col.Type {
		case INT:
			if offset+4 > len(data) {
				return nil, NewRelationError("truncated record: missing INT column %q", col.Name)
			}
			n := int32(binary.LittleEndian.Uint32(data[offset:]))
			row[col.Name] = NewInt(n)
			offset += 4
		case TEXT:
			if offset+2 > len(data) {
				return nil, NewRelationError("truncated record: missing TEXT length for column %q", col.Name)
			}
			size := int(binary.LittleEndian.Uint16(data[offset:]))
			offset += 2
			if offset+size > len(data) {
				return nil, NewRelationError("truncated record: missing TEXT bytes for column %q", col.Name)
			}
			row[col.Name] = NewText(string(data[offset : offset+size]))
			offset += size
		case BOOLEAN:
			if offset+1 > len(data) {
				return nil, NewRelationError("truncated record: missing BOOLEAN column %q", col.Name)
			}
			row[col.Name] = NewBoolean(data[offset] != 0)
			offset++
		default:
			return nil, NewRelationError("only know how to unmarshal INT/TEXT/BOOLEAN")
		}
	}
	return row, nil
}

// Project returns a copy of row restricted to columnNames, preserving
// nothing about order (Row is unordered by construction). A nil
// columnNames slice means "all columns", matching DbRelation::project's
// NULL-column-names convention.
func Project(row Row, columnNames []string) Row {
	if columnNames == nil {
		out := make(Row, len(row))
		for k, v := range row {
			out[k] = v
		}
		return out
	}
	out := make(Row, len(columnNames))
	for _, name := range columnNames {
		if v, ok := row[name]; ok {
			out[name] = v
		}
	}
	return out
}

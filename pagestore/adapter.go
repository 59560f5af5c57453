package pagestore

import "blockdb/storage"

// AsPageFile adapts a File to the narrower storage.PageFile interface
// the heap layer depends on, so storage never needs to know about
// pagestore.Stat's shape.
type AsPageFile struct {
	File
}

func (a AsPageFile) Stat() (int, error) {
	s, err := a.File.Stat()
	return s.NData, err
}

var _ storage.PageFile = AsPageFile{}

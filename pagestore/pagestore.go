// Package pagestore is the external collaborator the storage layer
// relies on: a fixed-size block store addressed by environment directory
// and named file, independent of any particular on-disk layout above
// it. HeapFile and the B+Tree index only ever talk to this interface -
// neither one knows or cares that bbolt happens to be behind it.
package pagestore

// Stat summarizes a File's contents.
type Stat struct {
	// NData is the number of populated blocks (put keys) the file holds.
	NData int
}

// File is one named, block-addressed store within an Environment. Every
// value Put or returned by Get is exactly storage.BlockSize bytes.
type File interface {
	// Put writes exactly storage.BlockSize bytes of data under key,
	// overwriting any value already there.
	Put(key uint32, data []byte) error

	// Get returns the storage.BlockSize bytes stored under key, or
	// ok=false if key has never been written.
	Get(key uint32) (data []byte, ok bool)

	// Delete removes key, if present. Deleting an absent key is not an
	// error.
	Delete(key uint32) error

	// Stat reports the file's current population.
	Stat() (Stat, error)

	// Close releases any resources File holds open. A closed File may
	// not be used again; reopen it via Environment.Open.
	Close() error
}

// Environment owns a directory's worth of named block files, the way
// the original course project's DbEnv owned a directory of BerkeleyDB
// databases.
type Environment interface {
	// Create makes a new, empty named file, truncating it if one by
	// that name already exists.
	Create(name string) (File, error)

	// Open opens an existing named file.
	Open(name string) (File, error)

	// Drop removes a named file entirely. Dropping an absent file is
	// not an error.
	Drop(name string) error

	// Close releases the environment's resources. Every File obtained
	// from it becomes unusable.
	Close() error
}

package pagestore

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	bolt "go.etcd.io/bbolt"

	"blockdb/storage"
)

// dbFileName is the single bbolt database file that backs an entire
// environment directory, mirroring the single DBFILE the original
// course project opened inside its BerkeleyDB DbEnv.
const dbFileName = "blockdb.db"

// BoltEnvironment is the concrete Environment: one bbolt database file
// per directory, one bucket per named heap or index file.
type BoltEnvironment struct {
	db  *bolt.DB
	log zerolog.Logger
}

// OpenEnvironment opens (creating if necessary) the bbolt database file
// inside dir, creating dir itself if it does not yet exist.
func OpenEnvironment(dir string, log zerolog.Logger) (*BoltEnvironment, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("pagestore: creating environment directory %s: %w", dir, err)
	}
	path := filepath.Join(dir, dbFileName)
	db, err := bolt.Open(path, 0o644, nil)
	if err != nil {
		return nil, fmt.Errorf("pagestore: opening %s: %w", path, err)
	}
	log.Info().Str("path", path).Msg("opened page store environment")
	return &BoltEnvironment{db: db, log: log}, nil
}

func (e *BoltEnvironment) Create(name string) (File, error) {
	err := e.db.Update(func(tx *bolt.Tx) error {
		if b := tx.Bucket([]byte(name)); b != nil {
			if err := tx.DeleteBucket([]byte(name)); err != nil {
				return err
			}
		}
		_, err := tx.CreateBucket([]byte(name))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("pagestore: creating file %q: %w", name, err)
	}
	e.log.Info().Str("file", name).Msg("created page store file")
	return &boltFile{db: e.db, bucket: name}, nil
}

func (e *BoltEnvironment) Open(name string) (File, error) {
	err := e.db.View(func(tx *bolt.Tx) error {
		if tx.Bucket([]byte(name)) == nil {
			return fmt.Errorf("no such file %q", name)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("pagestore: %w", err)
	}
	return &boltFile{db: e.db, bucket: name}, nil
}

func (e *BoltEnvironment) Drop(name string) error {
	err := e.db.Update(func(tx *bolt.Tx) error {
		if tx.Bucket([]byte(name)) == nil {
			return nil
		}
		return tx.DeleteBucket([]byte(name))
	})
	if err != nil {
		return fmt.Errorf("pagestore: dropping file %q: %w", name, err)
	}
	e.log.Info().Str("file", name).Msg("dropped page store file")
	return nil
}

func (e *BoltEnvironment) Close() error {
	return e.db.Close()
}

// boltFile is one bucket within the environment's single bbolt
// database, keyed by big-endian uint32 block id.
type boltFile struct {
	db     *bolt.DB
	bucket string
}

func keyBytes(key uint32) []byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], key)
	return b[:]
}

func (f *boltFile) Put(key uint32, data []byte) error {
	if len(data) != storage.BlockSize {
		return fmt.Errorf("pagestore: Put: value must be exactly %d bytes, got %d", storage.BlockSize, len(data))
	}
	return f.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(f.bucket))
		if b == nil {
			return fmt.Errorf("pagestore: file %q is not open", f.bucket)
		}
		return b.Put(keyBytes(key), data)
	})
}

func (f *boltFile) Get(key uint32) ([]byte, bool) {
	var out []byte
	_ = f.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(f.bucket))
		if b == nil {
			return nil
		}
		v := b.Get(keyBytes(key))
		if v == nil {
			return nil
		}
		out = make([]byte, len(v))
		copy(out, v)
		return nil
	})
	if out == nil {
		return nil, false
	}
	return out, true
}

func (f *boltFile) Delete(key uint32) error {
	return f.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(f.bucket))
		if b == nil {
			return nil
		}
		return b.Delete(keyBytes(key))
	})
}

func (f *boltFile) Stat() (Stat, error) {
	var n int
	err := f.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(f.bucket))
		if b == nil {
			return fmt.Errorf("pagestore: file %q is not open", f.bucket)
		}
		n = b.Stats().KeyN
		return nil
	})
	return Stat{NData: n}, err
}

// Close is a no-op: the bucket has no resources of its own beyond the
// shared *bolt.DB, which the owning Environment closes.
func (f *boltFile) Close() error { return nil }

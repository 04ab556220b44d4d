package cubestore

import (
	"fmt"
	"os"

	"github.com/janelia-flyem/segedit/vol"

	"github.com/dgraph-io/badger/v3"
)

// BackingConfig describes where and how cubes are persisted.
type BackingConfig struct {
	// Path is the badger directory.  Ignored if InMemory.
	Path string

	// InMemory keeps the badger database in memory, e.g., for tests.
	InMemory bool

	// Compression of newly written cubes.
	Compression Compression

	// CacheBytes is the size of the encoded-cube cache.  Zero disables caching.
	CacheBytes int
}

// Backing persists encoded cubes in a badger database.
type Backing struct {
	db    *badger.DB
	codec *Codec
	cache *Cache
	path  string
}

// OpenBacking opens or creates the badger database described by the config.
func OpenBacking(config BackingConfig) (*Backing, error) {
	if !config.InMemory {
		if config.Path == "" {
			return nil, fmt.Errorf("a path must be specified for the cube backing store")
		}
		if err := os.MkdirAll(config.Path, 0744); err != nil {
			return nil, fmt.Errorf("can't make directory at %s: %v", config.Path, err)
		}
	}
	codec, err := NewCodec(config.Compression)
	if err != nil {
		return nil, err
	}
	opts := badger.DefaultOptions(config.Path).
		WithInMemory(config.InMemory).
		WithNumVersionsToKeep(1).
		WithLogger(badgerLogger{})
	if config.InMemory {
		opts = opts.WithDir("").WithValueDir("")
	}

	timedLog := vol.NewTimeLog()
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("can't open badger cube store at %q: %v", config.Path, err)
	}
	timedLog.Infof("Opened badger cube store (path %q, in-memory %t, %s)", config.Path, config.InMemory, config.Compression)
	return &Backing{
		db:    db,
		codec: codec,
		cache: NewCache(config.CacheBytes),
		path:  config.Path,
	}, nil
}

// Close flushes and closes the database.
func (b *Backing) Close() error {
	if b == nil || b.db == nil {
		return nil
	}
	return b.db.Close()
}

// Get returns the persisted cube at a coordinate.  The bool is false if the cube was
// never written.
func (b *Backing) Get(coord vol.ChunkPoint3d) (*Cube, bool, error) {
	record, found := b.cache.Get(coord)
	if !found {
		err := b.db.View(func(txn *badger.Txn) error {
			item, err := txn.Get(cubeKey(coord))
			if err != nil {
				return err
			}
			record, err = item.ValueCopy(nil)
			return err
		})
		if err == badger.ErrKeyNotFound {
			return nil, false, nil
		}
		if err != nil {
			return nil, false, fmt.Errorf("can't read cube %s: %v", coord, err)
		}
		b.cache.Set(coord, record)
	}
	c, err := b.codec.Decode(coord, record)
	if err != nil {
		return nil, false, err
	}
	return c, true, nil
}

// Put persists a cube.
func (b *Backing) Put(c *Cube) error {
	record, err := b.codec.Encode(c)
	if err != nil {
		return err
	}
	err = b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(cubeKey(c.Coord), record)
	})
	if err != nil {
		b.cache.Del(c.Coord)
		return fmt.Errorf("can't write cube %s: %v", c.Coord, err)
	}
	b.cache.Set(c.Coord, record)
	return nil
}

// Delete removes a persisted cube.
func (b *Backing) Delete(coord vol.ChunkPoint3d) error {
	b.cache.Del(coord)
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(cubeKey(coord))
	})
}

// badgerLogger routes badger's messages to the package logger, demoting its chatty
// info messages to debug.
type badgerLogger struct{}

func (badgerLogger) Errorf(format string, args ...interface{}) {
	vol.Errorf("badger: "+format, args...)
}

func (badgerLogger) Warningf(format string, args ...interface{}) {
	vol.Warningf("badger: "+format, args...)
}

func (badgerLogger) Infof(format string, args ...interface{}) {
	vol.Debugf("badger: "+format, args...)
}

func (badgerLogger) Debugf(format string, args ...interface{}) {
	vol.Debugf("badger: "+format, args...)
}

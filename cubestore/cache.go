package cubestore

import (
	"encoding/binary"

	"github.com/janelia-flyem/segedit/vol"

	"github.com/coocood/freecache"
	"github.com/dustin/go-humanize"
)

// Cache holds encoded cube records in a fixed-size, GC-friendly cache in front of
// the backing store.  A nil *Cache is a valid, always-missing cache.
type Cache struct {
	fc *freecache.Cache
}

// NewCache returns a cache of about numBytes, or nil if numBytes is not positive.
func NewCache(numBytes int) *Cache {
	if numBytes <= 0 {
		return nil
	}
	vol.Infof("Created freecache of ~ %s for encoded cubes.\n", humanize.Bytes(uint64(numBytes)))
	return &Cache{fc: freecache.NewCache(numBytes)}
}

// cubeKey is the big-endian cube coordinate with sign bits flipped so keys sort in
// z-y-x order.
func cubeKey(coord vol.ChunkPoint3d) []byte {
	k := make([]byte, 13)
	k[0] = 'c'
	binary.BigEndian.PutUint32(k[1:5], uint32(coord[2])^(1<<31))
	binary.BigEndian.PutUint32(k[5:9], uint32(coord[1])^(1<<31))
	binary.BigEndian.PutUint32(k[9:13], uint32(coord[0])^(1<<31))
	return k
}

// Get returns a cached record.
func (c *Cache) Get(coord vol.ChunkPoint3d) ([]byte, bool) {
	if c == nil {
		return nil, false
	}
	record, err := c.fc.Get(cubeKey(coord))
	if err != nil {
		if err != freecache.ErrNotFound {
			vol.Errorf("unable to get cube %s from cache: %v\n", coord, err)
		}
		return nil, false
	}
	return record, true
}

// Set caches a record.  Records too large for the cache are silently skipped.
func (c *Cache) Set(coord vol.ChunkPoint3d, record []byte) {
	if c == nil {
		return
	}
	if err := c.fc.Set(cubeKey(coord), record, 0); err != nil && err != freecache.ErrLargeEntry {
		vol.Errorf("unable to cache cube %s: %v\n", coord, err)
	}
}

// Del drops a cached record.
func (c *Cache) Del(coord vol.ChunkPoint3d) {
	if c == nil {
		return
	}
	c.fc.Del(cubeKey(coord))
}

// HitRate returns the ratio of hits to lookups.
func (c *Cache) HitRate() float64 {
	if c == nil {
		return 0
	}
	return c.fc.HitRate()
}

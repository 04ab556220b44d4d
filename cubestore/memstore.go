package cubestore

import (
	"sort"
	"sync"

	"github.com/janelia-flyem/segedit/vol"
)

// MemStore is a Store holding resident cubes in memory.  A single mutex guards the
// whole cube table; modified-cube bookkeeping has its own lock so MarkModified can be
// called with or without the table lock held.
type MemStore struct {
	sync.Mutex
	geom  Geometry
	cubes map[vol.ChunkPoint3d]*Cube

	dirtyMu sync.Mutex
	dirty   map[vol.ChunkPoint3d]struct{}
}

// NewMemStore returns an empty store with the given geometry.
func NewMemStore(geom Geometry) *MemStore {
	if geom.CubeEdge <= 0 {
		geom.CubeEdge = DefaultGeometry.CubeEdge
	}
	if geom.Mag <= 0 {
		geom.Mag = 1
	}
	if geom.Scale.X <= 0 || geom.Scale.Y <= 0 || geom.Scale.Z <= 0 {
		geom.Scale = DefaultGeometry.Scale
	}
	return &MemStore{
		geom:  geom,
		cubes: make(map[vol.ChunkPoint3d]*Cube),
		dirty: make(map[vol.ChunkPoint3d]struct{}),
	}
}

// Geometry returns the coordinate transforms of the volume.
func (s *MemStore) Geometry() Geometry {
	return s.geom
}

// TryGetCube returns a resident cube.  Requires the store lock.
func (s *MemStore) TryGetCube(coord vol.ChunkPoint3d) (*Cube, bool) {
	c, found := s.cubes[coord]
	return c, found
}

// Put makes a cube resident, replacing any cube at the same coordinate.  Requires the
// store lock.
func (s *MemStore) Put(c *Cube) {
	s.cubes[c.Coord] = c
}

// Remove drops a cube from residency and returns it.  Requires the store lock.
func (s *MemStore) Remove(coord vol.ChunkPoint3d) (*Cube, bool) {
	c, found := s.cubes[coord]
	if found {
		delete(s.cubes, coord)
	}
	return c, found
}

// Resident returns the coordinates of resident cubes in z-y-x order.  Requires the
// store lock.
func (s *MemStore) Resident() []vol.ChunkPoint3d {
	coords := make([]vol.ChunkPoint3d, 0, len(s.cubes))
	for coord := range s.cubes {
		coords = append(coords, coord)
	}
	sort.Slice(coords, func(i, j int) bool { return coords[i].Less(coords[j]) })
	return coords
}

// MarkModified records a changed cube until the next TakeModified.
func (s *MemStore) MarkModified(coord vol.ChunkPoint3d) {
	s.dirtyMu.Lock()
	s.dirty[coord] = struct{}{}
	s.dirtyMu.Unlock()
}

// IsModified returns true if the cube changed since the last TakeModified.
func (s *MemStore) IsModified(coord vol.ChunkPoint3d) bool {
	s.dirtyMu.Lock()
	_, found := s.dirty[coord]
	s.dirtyMu.Unlock()
	return found
}

// TakeModified returns the changed cubes in z-y-x order and clears the record.
func (s *MemStore) TakeModified() []vol.ChunkPoint3d {
	s.dirtyMu.Lock()
	coords := make([]vol.ChunkPoint3d, 0, len(s.dirty))
	for coord := range s.dirty {
		coords = append(coords, coord)
	}
	s.dirty = make(map[vol.ChunkPoint3d]struct{})
	s.dirtyMu.Unlock()

	sort.Slice(coords, func(i, j int) bool { return coords[i].Less(coords[j]) })
	return coords
}

// FillRegion writes a label into every global voxel of a box, creating background
// cubes as needed.  Touched cubes are marked modified.  It acquires the store lock.
func (s *MemStore) FillRegion(b vol.Bounds, label uint64) {
	if b.Empty() {
		return
	}
	first, last := s.geom.CubeOf(b.Min), s.geom.CubeOf(b.Max)
	var touched []vol.ChunkPoint3d

	s.Lock()
	for z := first[2]; z <= last[2]; z++ {
		for y := first[1]; y <= last[1]; y++ {
			for x := first[0]; x <= last[0]; x++ {
				coord := vol.ChunkPoint3d{x, y, z}
				c, found := s.cubes[coord]
				if !found {
					c = NewCube(coord, s.geom.CubeEdge, 0)
					s.cubes[coord] = c
				}
				region := s.geom.CubeBounds(coord).Intersect(b)
				start, end := s.geom.LocalOf(region.Min), s.geom.LocalOf(region.Max)
				for lz := start[2]; lz <= end[2]; lz++ {
					for ly := start[1]; ly <= end[1]; ly++ {
						for lx := start[0]; lx <= end[0]; lx++ {
							c.WriteLabel(vol.Point3d{lx, ly, lz}, label)
						}
					}
				}
				touched = append(touched, coord)
			}
		}
	}
	s.Unlock()

	for _, coord := range touched {
		s.MarkModified(coord)
	}
}

// Label returns the label at a global voxel, acquiring the store lock.  The bool is
// false if the containing cube isn't resident.
func (s *MemStore) Label(p vol.Point3d) (uint64, bool) {
	s.Lock()
	defer s.Unlock()
	c, found := s.cubes[s.geom.CubeOf(p)]
	if !found {
		return 0, false
	}
	return c.ReadLabel(s.geom.LocalOf(p)), true
}

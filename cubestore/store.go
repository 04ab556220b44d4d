/*
Package cubestore defines the contract between the segmentation engine and the
cube-tiled label storage, along with a reference implementation.

The engine only needs Store: a coarse lock, a non-blocking lookup of resident cubes
and a fire-and-forget notification that cubes changed.  MemStore keeps resident cubes
in memory, Backing persists encoded cubes in badger behind a freecache, and Loader
moves cubes between the two with a pool of workers while edits continue under the
store lock.
*/
package cubestore

import (
	"sync"

	"github.com/janelia-flyem/segedit/vol"

	"gonum.org/v1/gonum/spatial/r3"
)

// Store is a cube-tiled label volume.  TryGetCube and every label read or write on a
// returned Cube must happen while holding the store's lock.  MarkModified may be
// called without the lock.
type Store interface {
	sync.Locker

	// TryGetCube returns the resident cube at the given cube coordinate without blocking
	// on any I/O.  The bool is false if the cube isn't resident.
	TryGetCube(coord vol.ChunkPoint3d) (*Cube, bool)

	// MarkModified notes that a batch of writes changed the given cube.
	MarkModified(coord vol.ChunkPoint3d)

	// Geometry returns the coordinate transforms of the volume.
	Geometry() Geometry
}

// Geometry describes how global voxel coordinates map onto cubes.
type Geometry struct {
	// CubeEdge is the number of stored voxels along each side of a cube.
	CubeEdge int32

	// Mag is the magnification of stored voxels.  A cube at Mag 2 covers twice as many
	// global voxels along each axis as it stores.
	Mag int32

	// Scale is the physical size (e.g., nm) of a global voxel along each axis.
	Scale r3.Vec
}

// DefaultGeometry is 128^3 cubes at full resolution with isotropic unit voxels.
var DefaultGeometry = Geometry{CubeEdge: 128, Mag: 1, Scale: r3.Vec{X: 1, Y: 1, Z: 1}}

// Span returns the number of global voxels covered by a cube along each axis.
func (g Geometry) Span() vol.Point3d {
	s := g.CubeEdge * g.mag()
	return vol.Point3d{s, s, s}
}

func (g Geometry) mag() int32 {
	if g.Mag < 1 {
		return 1
	}
	return g.Mag
}

// CubeOf returns the coordinate of the cube containing a global voxel.
func (g Geometry) CubeOf(p vol.Point3d) vol.ChunkPoint3d {
	return p.Chunk(g.Span())
}

// LocalOf returns the stored voxel index within its cube of a global voxel.
func (g Geometry) LocalOf(p vol.Point3d) vol.Point3d {
	local := p.PointInChunk(g.Span())
	m := g.mag()
	return vol.Point3d{local[0] / m, local[1] / m, local[2] / m}
}

// GlobalOf is the inverse of LocalOf, returning the first global voxel covered by a
// stored voxel.
func (g Geometry) GlobalOf(coord vol.ChunkPoint3d, local vol.Point3d) vol.Point3d {
	m := g.mag()
	return coord.MinPoint(g.Span()).Add(vol.Point3d{local[0] * m, local[1] * m, local[2] * m})
}

// CubeBounds returns the global voxels covered by a cube.
func (g Geometry) CubeBounds(coord vol.ChunkPoint3d) vol.Bounds {
	span := g.Span()
	return vol.Bounds{Min: coord.MinPoint(span), Max: coord.MaxPoint(span)}
}

// ScaleAlong returns the physical size of a voxel step along a unit direction,
// i.e., the per-axis scale projected on that direction.
func (g Geometry) ScaleAlong(dir r3.Vec) float64 {
	return abs(dir.X)*g.Scale.X + abs(dir.Y)*g.Scale.Y + abs(dir.Z)*g.Scale.Z
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}

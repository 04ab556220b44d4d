/*
Package editor applies brush footprints to a cube-tiled label volume.

Every brush operation first computes the footprint's bounding box in global voxel
space, clamped to the editable region, then visits the resident cubes overlapping it.
Angular 3d fills may take a whole-cube fast path for cubes the box fully encloses.
All reads and writes happen under the store's lock.  Cubes that aren't resident are
skipped and reported through a *vol.StorageUnavailableError next to a valid result.
*/
package editor

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/janelia-flyem/segedit/cubestore"
	"github.com/janelia-flyem/segedit/vol"
)

// Editor runs brush operations against a cube store within an editable region.
type Editor struct {
	store      cubestore.Store
	region     vol.Bounds
	background uint64
}

// New returns an editor confined to the given region.
func New(store cubestore.Store, region vol.Bounds, background uint64) *Editor {
	return &Editor{store: store, region: region, background: background}
}

// Region returns the editable region.
func (e *Editor) Region() vol.Bounds {
	return e.region
}

// SetRegion moves the editable region.
func (e *Editor) SetRegion(region vol.Bounds) {
	e.region = region
}

// Store returns the cube store the editor works on.
func (e *Editor) Store() cubestore.Store {
	return e.store
}

// Voxel references a stored voxel of a resident cube.  It is only valid inside a
// VoxelFunc, while the store lock is held.
type Voxel struct {
	cube  *cubestore.Cube
	local vol.Point3d
}

// Label returns the voxel's label.
func (v Voxel) Label() uint64 {
	return v.cube.ReadLabel(v.local)
}

// Set writes the voxel's label.
func (v Voxel) Set(label uint64) {
	v.cube.WriteLabel(v.local, label)
}

// Cube returns the coordinate of the cube holding the voxel.
func (v Voxel) Cube() vol.ChunkPoint3d {
	return v.cube.Coord
}

// VoxelFunc is called once per stored voxel inside a brush's bounding box with the
// voxel's global coordinate.
type VoxelFunc func(v Voxel, global vol.Point3d)

func toVec(p vol.Point3d) r3.Vec {
	return r3.Vec{X: float64(p[0]), Y: float64(p[1]), Z: float64(p[2])}
}

func roundPoint(v r3.Vec) vol.Point3d {
	return vol.Point3d{int32(math.Round(v.X)), int32(math.Round(v.Y)), int32(math.Round(v.Z))}
}

// halfExtent is the number of voxels the radius spans along a frame axis.
func (e *Editor) halfExtent(radius float64, dir r3.Vec) float64 {
	scale := e.store.Geometry().ScaleAlong(dir)
	if scale <= 0 {
		scale = 1
	}
	return radius / scale
}

// BoundingBox returns the inclusive box of global voxels a brush centered at the
// given point may touch.  Corners outside the editable region are clamped.
func (e *Editor) BoundingBox(center vol.Point3d, b Brush) vol.Bounds {
	c := toVec(center)
	fc := r3.Vec{X: r3.Dot(c, b.V1), Y: r3.Dot(c, b.V2), Z: r3.Dot(c, b.N)}
	half := r3.Vec{
		X: e.halfExtent(b.Radius, b.V1),
		Y: e.halfExtent(b.Radius, b.V2),
	}
	if b.Mode == ThreeDim {
		half.Z = e.halfExtent(b.Radius, b.N)
	}

	var box vol.Bounds
	first := true
	for _, sx := range []float64{-1, 1} {
		for _, sy := range []float64{-1, 1} {
			for _, sz := range []float64{-1, 1} {
				global := r3.Add(r3.Add(
					r3.Scale(fc.X+sx*half.X, b.V1),
					r3.Scale(fc.Y+sy*half.Y, b.V2)),
					r3.Scale(fc.Z+sz*half.Z, b.N))
				corner := e.region.Clamp(roundPoint(global))
				if first {
					box = vol.Bounds{Min: corner, Max: corner}
					first = false
					continue
				}
				box.Min.SetMinimum(corner)
				box.Max.SetMaximum(corner)
			}
		}
	}
	return box
}

// inside tests a global voxel against a round brush's ellipsoid.
func (e *Editor) inside(center vol.Point3d, b Brush, p vol.Point3d) bool {
	scale := e.store.Geometry().Scale
	d := p.Sub(center)
	dx := float64(d[0]) * scale.X
	dy := float64(d[1]) * scale.Y
	dz := float64(d[2]) * scale.Z
	return dx*dx+dy*dy+dz*dz < b.Radius*b.Radius
}

// covers applies the brush shape to a voxel within the bounding box.
func (e *Editor) covers(center vol.Point3d, b Brush, p vol.Point3d) bool {
	return b.Shape != Round || e.inside(center, b, p)
}

// enclosedCubes returns the range of cubes lying completely inside a box.  The
// returned bool is false if there are none.
func enclosedCubes(geom cubestore.Geometry, box vol.Bounds) (first, last vol.ChunkPoint3d, ok bool) {
	first, last = geom.CubeOf(box.Min), geom.CubeOf(box.Max)
	firstBounds, lastBounds := geom.CubeBounds(first), geom.CubeBounds(last)
	for i := 0; i < 3; i++ {
		if firstBounds.Min[i] < box.Min[i] {
			first[i]++
		}
		if lastBounds.Max[i] > box.Max[i] {
			last[i]--
		}
		if first[i] > last[i] {
			return first, last, false
		}
	}
	return first, last, true
}

func within(c, first, last vol.ChunkPoint3d) bool {
	for i := 0; i < 3; i++ {
		if c[i] < first[i] || c[i] > last[i] {
			return false
		}
	}
	return true
}

// walk visits every resident cube overlapping the box, calling fill for cubes
// handled by the whole-cube fast path and fn for each stored voxel of the rest.
// A nil fill disables the fast path.  The store lock is held throughout.
func (e *Editor) walk(box vol.Bounds, fill func(*cubestore.Cube), fn VoxelFunc) map[vol.ChunkPoint3d]struct{} {
	missing := make(map[vol.ChunkPoint3d]struct{})
	if box.Empty() {
		return missing
	}
	geom := e.store.Geometry()

	e.store.Lock()
	defer e.store.Unlock()

	fastFirst, fastLast, fast := enclosedCubes(geom, box)
	fast = fast && fill != nil
	if fast {
		for z := fastFirst[2]; z <= fastLast[2]; z++ {
			for y := fastFirst[1]; y <= fastLast[1]; y++ {
				for x := fastFirst[0]; x <= fastLast[0]; x++ {
					coord := vol.ChunkPoint3d{x, y, z}
					c, found := e.store.TryGetCube(coord)
					if !found {
						vol.Warningf("cube %s not resident, skipping whole-cube fill\n", coord)
						missing[coord] = struct{}{}
						continue
					}
					fill(c)
				}
			}
		}
	}

	first, last := geom.CubeOf(box.Min), geom.CubeOf(box.Max)
	for z := first[2]; z <= last[2]; z++ {
		for y := first[1]; y <= last[1]; y++ {
			for x := first[0]; x <= last[0]; x++ {
				coord := vol.ChunkPoint3d{x, y, z}
				if fast && within(coord, fastFirst, fastLast) {
					continue
				}
				c, found := e.store.TryGetCube(coord)
				if !found {
					vol.Debugf("cube %s not resident, skipping brush voxels\n", coord)
					missing[coord] = struct{}{}
					continue
				}
				region := geom.CubeBounds(coord).Intersect(box)
				start, end := geom.LocalOf(region.Min), geom.LocalOf(region.Max)
				for lz := start[2]; lz <= end[2]; lz++ {
					for ly := start[1]; ly <= end[1]; ly++ {
						for lx := start[0]; lx <= end[0]; lx++ {
							local := vol.Point3d{lx, ly, lz}
							fn(Voxel{cube: c, local: local}, box.Clamp(geom.GlobalOf(coord, local)))
						}
					}
				}
			}
		}
	}
	return missing
}

// ApplyInRegion calls fn for every stored voxel covered by a brush centered at the
// given point.  It returns the cubes fn was called for, sorted, and the cubes that
// weren't resident as a *vol.StorageUnavailableError.  Callers that write labels are
// responsible for marking the cubes they changed as modified.
func (e *Editor) ApplyInRegion(center vol.Point3d, b Brush, fn VoxelFunc) ([]vol.ChunkPoint3d, error) {
	visited := make(map[vol.ChunkPoint3d]struct{})
	missing := e.walk(e.BoundingBox(center, b), nil, func(v Voxel, p vol.Point3d) {
		if !e.covers(center, b, p) {
			return
		}
		visited[v.Cube()] = struct{}{}
		fn(v, p)
	})
	return sortedCoords(visited), vol.NewStorageUnavailableError(missing)
}

func sortedCoords(set map[vol.ChunkPoint3d]struct{}) []vol.ChunkPoint3d {
	coords := make([]vol.ChunkPoint3d, 0, len(set))
	for c := range set {
		coords = append(coords, c)
	}
	sortChunks(coords)
	return coords
}

package split

import (
	"sort"

	"github.com/janelia-flyem/segedit/cubestore"
	"github.com/janelia-flyem/segedit/editor"
	"github.com/janelia-flyem/segedit/vol"
)

// Fill is the outcome of a bucket fill.
type Fill struct {
	// Visited are the labels of the split object reached but not relabeled, sorted.
	Visited []uint64

	// Relabeled is the number of stored voxels given the new label.
	Relabeled int64

	// Modified are the cubes with relabeled voxels, sorted.
	Modified []vol.ChunkPoint3d

	// Delta is the change in stored voxel count per label.
	Delta map[uint64]int64
}

func labelSet(labels ...uint64) map[uint64]struct{} {
	set := make(map[uint64]struct{}, len(labels))
	for _, l := range labels {
		set[l] = struct{}{}
	}
	return set
}

func sortedLabels(set map[uint64]struct{}) []uint64 {
	labels := make([]uint64, 0, len(set))
	for l := range set {
		labels = append(labels, l)
	}
	sort.Slice(labels, func(i, j int) bool { return labels[i] < labels[j] })
	return labels
}

func sortedCoords(set map[vol.ChunkPoint3d]struct{}) []vol.ChunkPoint3d {
	coords := make([]vol.ChunkPoint3d, 0, len(set))
	for c := range set {
		coords = append(coords, c)
	}
	sort.Slice(coords, func(i, j int) bool { return coords[i].Less(coords[j]) })
	return coords
}

// steps6 returns the face-neighbor offsets between stored voxels.
func (s *Engine) steps6() []vol.Point3d {
	m := s.mag()
	return []vol.Point3d{{-m, 0, 0}, {m, 0, 0}, {0, -m, 0}, {0, m, 0}, {0, 0, -m}, {0, 0, m}}
}

// stepsInPlane returns the in-plane face-neighbor offsets for an orthogonal view.
func (s *Engine) stepsInPlane(axis editor.Axis) []vol.Point3d {
	m := s.mag()
	v1, v2, _ := axis.Frame()
	d1 := vol.Point3d{int32(v1.X) * m, int32(v1.Y) * m, int32(v1.Z) * m}
	d2 := vol.Point3d{int32(v2.X) * m, int32(v2.Y) * m, int32(v2.Z) * m}
	var zero vol.Point3d
	return []vol.Point3d{d1, zero.Sub(d1), d2, zero.Sub(d2)}
}

func (s *Engine) mag() int32 {
	if m := s.store.Geometry().Mag; m > 1 {
		return m
	}
	return 1
}

// snap moves a global coordinate onto the first global voxel of its stored voxel.
func (s *Engine) snap(p vol.Point3d) vol.Point3d {
	geom := s.store.Geometry()
	return geom.GlobalOf(geom.CubeOf(p), geom.LocalOf(p))
}

// visitFunc inspects a resident voxel and returns whether the traversal continues
// through it.
type visitFunc func(c *cubestore.Cube, local, global vol.Point3d) bool

// traverse walks the voxels connected to seed by the given steps within the
// editable region, using an explicit work list.  Voxels already in visited are
// skipped, and every voxel reached is added to it.  Non-resident cubes act as
// barriers and are recorded in missing.  The store lock must be held.
func (s *Engine) traverse(seed vol.Point3d, steps []vol.Point3d, visited map[vol.Point3d]struct{}, missing map[vol.ChunkPoint3d]struct{}, visit visitFunc) {
	geom := s.store.Geometry()
	region := s.editor.Region()
	work := []vol.Point3d{seed}
	for len(work) > 0 {
		p := work[len(work)-1]
		work = work[:len(work)-1]
		if _, seen := visited[p]; seen || !region.Contains(p) {
			continue
		}
		visited[p] = struct{}{}
		coord := geom.CubeOf(p)
		c, found := s.store.TryGetCube(coord)
		if !found {
			missing[coord] = struct{}{}
			continue
		}
		if !visit(c, geom.LocalOf(p), p) {
			continue
		}
		for _, d := range steps {
			work = append(work, p.Add(d))
		}
	}
}

// BucketFill relabels voxels connected to seed through the object at splitIndex.
// The 6-connected traversal continues only through voxels whose label belongs to
// that object and isn't newLabel already.  Voxels with a label in fillSet get
// newLabel, the other labels reached are collected in the result.  Changed cubes are
// marked modified.  Missing cubes are returned as a *vol.StorageUnavailableError.
func (s *Engine) BucketFill(seed vol.Point3d, splitIndex int, newLabel uint64, fillSet map[uint64]struct{}) (Fill, error) {
	missing := make(map[vol.ChunkPoint3d]struct{})
	s.store.Lock()
	fill := s.bucketFill(s.snap(seed), splitIndex, newLabel, fillSet, make(map[vol.Point3d]struct{}), missing)
	s.store.Unlock()
	s.markModified(fill.Modified)
	return fill, vol.NewStorageUnavailableError(missing)
}

func (s *Engine) bucketFill(seed vol.Point3d, splitIndex int, newLabel uint64, fillSet map[uint64]struct{}, visited map[vol.Point3d]struct{}, missing map[vol.ChunkPoint3d]struct{}) Fill {
	reached := make(map[uint64]struct{})
	modified := make(map[vol.ChunkPoint3d]struct{})
	fill := Fill{Delta: make(map[uint64]int64)}

	s.traverse(seed, s.steps6(), visited, missing, func(c *cubestore.Cube, local, _ vol.Point3d) bool {
		label := c.ReadLabel(local)
		if label == newLabel || !s.graph.ObjectContains(splitIndex, label) {
			return false
		}
		if _, relabel := fillSet[label]; relabel {
			c.WriteLabel(local, newLabel)
			fill.Relabeled++
			fill.Delta[label]--
			fill.Delta[newLabel]++
			modified[c.Coord] = struct{}{}
		} else {
			reached[label] = struct{}{}
		}
		return true
	})

	fill.Visited = sortedLabels(reached)
	fill.Modified = sortedCoords(modified)
	return fill
}

func (s *Engine) markModified(coords []vol.ChunkPoint3d) {
	for _, coord := range coords {
		s.store.MarkModified(coord)
	}
}

package editor

import (
	"sort"

	"github.com/janelia-flyem/segedit/cubestore"
	"github.com/janelia-flyem/segedit/vol"
)

// Selection reports which labels belong to selected objects.  *segment.Graph
// satisfies it.
type Selection interface {
	NumSelected() int
	IsSubObjectSelected(label uint64) bool
}

// Result describes the outcome of a paint.
type Result struct {
	// Modified holds the coordinates of cubes with at least one changed voxel, sorted.
	Modified []vol.ChunkPoint3d

	// Delta is the change in stored voxel count per label.  Labels with no net
	// change are absent.
	Delta map[uint64]int64
}

// Paint writes a label into every voxel a brush covers.  Inverse brushes write
// background instead and, if sel has a selection, only over voxels whose label
// belongs to a selected object.  Changed cubes are marked modified on the store after
// the whole stroke.  Missing cubes are reported as a *vol.StorageUnavailableError
// while the returned Result remains valid.
func (e *Editor) Paint(center vol.Point3d, b Brush, label uint64, sel Selection) (Result, error) {
	value := label
	if b.Inverse {
		value = e.background
	}
	restrict := b.Inverse && sel != nil && sel.NumSelected() > 0

	modified := make(map[vol.ChunkPoint3d]struct{})
	delta := make(map[uint64]int64)

	var fill func(*cubestore.Cube)
	if b.Shape == Angular && b.Mode == ThreeDim && !restrict {
		fill = func(c *cubestore.Cube) {
			changed := false
			for old, n := range c.Histogram() {
				if old == value {
					continue
				}
				delta[old] -= n
				delta[value] += n
				changed = true
			}
			if changed {
				c.Fill(value)
				modified[c.Coord] = struct{}{}
			}
		}
	}

	timedLog := vol.NewTimeLog()
	missing := e.walk(e.BoundingBox(center, b), fill, func(v Voxel, p vol.Point3d) {
		if !e.covers(center, b, p) {
			return
		}
		old := v.Label()
		if old == value {
			return
		}
		if restrict && !sel.IsSubObjectSelected(old) {
			return
		}
		v.Set(value)
		delta[old]--
		delta[value]++
		modified[v.Cube()] = struct{}{}
	})

	for l, n := range delta {
		if n == 0 {
			delete(delta, l)
		}
	}
	res := Result{Modified: sortedCoords(modified), Delta: delta}
	for _, coord := range res.Modified {
		e.store.MarkModified(coord)
	}
	timedLog.Debugf("painted %s at %s with label %d, %d cubes modified", b, center, value, len(res.Modified))
	return res, vol.NewStorageUnavailableError(missing)
}

func sortChunks(coords []vol.ChunkPoint3d) {
	sort.Slice(coords, func(i, j int) bool { return coords[i].Less(coords[j]) })
}

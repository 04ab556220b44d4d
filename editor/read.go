package editor

import "github.com/janelia-flyem/segedit/vol"

// ReadVoxelsInRegion returns one global coordinate for each non-background label
// under a brush, the first one visited.
func (e *Editor) ReadVoxelsInRegion(center vol.Point3d, b Brush) (map[uint64]vol.Point3d, error) {
	found := make(map[uint64]vol.Point3d)
	_, err := e.ApplyInRegion(center, b, func(v Voxel, p vol.Point3d) {
		label := v.Label()
		if label == e.background {
			return
		}
		if _, seen := found[label]; !seen {
			found[label] = p
		}
	})
	return found, err
}

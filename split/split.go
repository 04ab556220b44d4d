/*
Package split cuts a segmentation object in two by flood filling the label volume.

A split relabels part of the object's voxels with a fresh label, gives the labels
reached by the fill to a new object, and then commits through the graph's ordinary
unmerge so membership is repaired exactly as for a manual unmerge.
*/
package split

import (
	"fmt"

	"github.com/janelia-flyem/segedit/cubestore"
	"github.com/janelia-flyem/segedit/editor"
	"github.com/janelia-flyem/segedit/segment"
	"github.com/janelia-flyem/segedit/vol"
)

// Engine splits objects of a graph whose labels live in an editor's cube store.
type Engine struct {
	graph  *segment.Graph
	editor *editor.Editor
	store  cubestore.Store
}

// New returns a split engine that traverses within the editor's editable region.
func New(graph *segment.Graph, ed *editor.Editor) *Engine {
	return &Engine{graph: graph, editor: ed, store: ed.Store()}
}

// Result describes a committed split.
type Result struct {
	// SplitID is the object that was cut.  It no longer exists if the split took all
	// of its members.
	SplitID uint64

	// NewID is the object holding the new label and the labels reached by the fill.
	NewID    uint64
	NewLabel uint64

	// Shared are the ids of other objects that were given the new label because they
	// owned a label struck by a cutting plane.
	Shared []uint64

	Fill
}

// labelAt reads the label of a global voxel under the store lock.
func (s *Engine) labelAt(p vol.Point3d) (uint64, error) {
	geom := s.store.Geometry()
	coord := geom.CubeOf(p)
	s.store.Lock()
	defer s.store.Unlock()
	c, found := s.store.TryGetCube(coord)
	if !found {
		return 0, vol.NewStorageUnavailableError(map[vol.ChunkPoint3d]struct{}{coord: {}})
	}
	return c.ReadLabel(geom.LocalOf(p)), nil
}

// splitObject picks the object a split of the given label acts on: the single
// selected object if it owns the label, else the largest owner.
func (s *Engine) splitObject(label uint64, seed vol.Point3d) (segment.Object, error) {
	if label == s.graph.BackgroundID() {
		return segment.Object{}, fmt.Errorf("can't split background at %s: %w", seed, vol.ErrInvalidState)
	}
	if _, err := s.graph.SubObjectFromID(label, seed); err != nil {
		return segment.Object{}, err
	}
	if selected := s.graph.SelectedObjects(); len(selected) == 1 && s.graph.ObjectContains(selected[0], label) {
		return s.graph.Object(selected[0])
	}
	return s.graph.LargestObjectContainingSubObject(label)
}

// newObject creates the singleton object for the new label.
func (s *Engine) newObject(split segment.Object, seed vol.Point3d) (segment.Object, error) {
	newLabel := s.graph.NewLabel()
	obj, err := s.graph.CreateObjectFromSubObjectID(newLabel, seed, segment.CreateOptions{})
	if err != nil {
		return segment.Object{}, err
	}
	if split.Category != "" {
		if err := s.graph.ChangeMetadata(obj.Index, segment.Metadata{Category: split.Category}); err != nil {
			return segment.Object{}, err
		}
	}
	return obj, nil
}

// ConnectedComponentSplit moves the part of the seed's object connected to the seed
// into a new object.  Voxels of the seed's label reached from the seed are relabeled
// with a fresh label.  Afterwards the split object and the new object are selected.
func (s *Engine) ConnectedComponentSplit(seed vol.Point3d) (Result, error) {
	timedLog := vol.NewTimeLog()
	seed = s.snap(seed)
	label, err := s.labelAt(seed)
	if err != nil {
		return Result{}, err
	}
	split, err := s.splitObject(label, seed)
	if err != nil {
		return Result{}, err
	}
	newObj, err := s.newObject(split, seed)
	if err != nil {
		return Result{}, err
	}
	newLabel := newObj.SubObjects[0]

	missing := make(map[vol.ChunkPoint3d]struct{})
	s.store.Lock()
	fill := s.bucketFill(seed, split.Index, newLabel, labelSet(label), make(map[vol.Point3d]struct{}), missing)
	s.store.Unlock()
	s.markModified(fill.Modified)

	res, err := s.commit(split.ID, newObj.ID, newLabel, seed, fill, nil)
	if err != nil {
		return res, err
	}
	timedLog.Infof("split label %d of object %d at %s into object %d with label %d, %d voxels relabeled",
		label, split.ID, seed, newObj.ID, newLabel, fill.Relabeled)
	return res, vol.NewStorageUnavailableError(missing)
}

// PlaneSplit cuts the seed's object along the plane of an orthogonal view through
// the seed.  The labels of the object struck by the plane, found by a 4-connected
// flood within the plane, are relabeled on the normal side of the plane wherever
// connected to the voxel one step along the normal.  Other objects owning a struck
// label are given the new label too.
func (s *Engine) PlaneSplit(seed vol.Point3d, axis editor.Axis) (Result, error) {
	timedLog := vol.NewTimeLog()
	seed = s.snap(seed)
	label, err := s.labelAt(seed)
	if err != nil {
		return Result{}, err
	}
	split, err := s.splitObject(label, seed)
	if err != nil {
		return Result{}, err
	}

	_, _, n := axis.Frame()
	m := s.mag()
	start := seed.Add(vol.Point3d{int32(n.X) * m, int32(n.Y) * m, int32(n.Z) * m})
	startLabel, err := s.labelAt(start)
	if err != nil {
		return Result{}, err
	}
	if !s.graph.ObjectContains(split.Index, startLabel) {
		return Result{}, fmt.Errorf("voxel %s off the %s plane is not part of object %d: %w", start, axis, split.ID, vol.ErrInvalidState)
	}

	newObj, err := s.newObject(split, seed)
	if err != nil {
		return Result{}, err
	}
	newLabel := newObj.SubObjects[0]

	visited := make(map[vol.Point3d]struct{})
	missing := make(map[vol.ChunkPoint3d]struct{})
	struck := make(map[uint64]struct{})
	s.store.Lock()
	s.traverse(seed, s.stepsInPlane(axis), visited, missing, func(c *cubestore.Cube, local, _ vol.Point3d) bool {
		l := c.ReadLabel(local)
		if !s.graph.ObjectContains(split.Index, l) {
			return false
		}
		struck[l] = struct{}{}
		return true
	})
	fill := s.bucketFill(start, split.Index, newLabel, struck, visited, missing)
	s.store.Unlock()
	s.markModified(fill.Modified)

	res, err := s.commit(split.ID, newObj.ID, newLabel, seed, fill, sortedLabels(struck))
	if err != nil {
		return res, err
	}
	timedLog.Infof("plane split of object %d at %s in %s view: %d labels struck, %d voxels relabeled into object %d",
		split.ID, seed, axis, len(struck), fill.Relabeled, newObj.ID)
	return res, vol.NewStorageUnavailableError(missing)
}

// commit repairs the graph after a fill: the new object gains the labels reached,
// then the split object is unmerged at the new label, and finally other owners of
// shared labels receive the new label.
func (s *Engine) commit(splitID, newID, newLabel uint64, seed vol.Point3d, fill Fill, shared []uint64) (Result, error) {
	res := Result{SplitID: splitID, NewID: newID, NewLabel: newLabel, Fill: fill}

	newObj, err := s.graph.ObjectByID(newID)
	if err != nil {
		return res, err
	}
	if fill.Relabeled == 0 && len(fill.Visited) == 0 {
		if err := s.graph.RemoveObject(newObj.Index); err != nil {
			return res, err
		}
		return res, fmt.Errorf("split of object %d at %s reached no voxels: %w", splitID, seed, vol.ErrInvalidState)
	}
	for _, label := range fill.Visited {
		if err := s.graph.AddSubObjectToObject(newObj.Index, label); err != nil {
			return res, err
		}
	}

	split, err := s.graph.ObjectByID(splitID)
	if err != nil {
		return res, err
	}
	s.graph.ClearObjectSelection()
	if err := s.graph.SelectObject(split.Index); err != nil {
		return res, err
	}
	if err := s.graph.UnmergeSelectedObjects(newLabel, seed); err != nil {
		return res, err
	}

	for _, label := range shared {
		sub, err := s.graph.SubObject(label)
		if err != nil {
			continue
		}
		for _, ownerID := range sub.Objects {
			if ownerID == splitID || ownerID == newID {
				continue
			}
			owner, err := s.graph.ObjectByID(ownerID)
			if err != nil {
				return res, err
			}
			if s.graph.ObjectContains(owner.Index, newLabel) {
				continue
			}
			if err := s.graph.AddSubObjectToObject(owner.Index, newLabel); err != nil {
				return res, err
			}
			res.Shared = append(res.Shared, ownerID)
		}
	}

	if newObj, err = s.graph.ObjectByID(newID); err != nil {
		return res, err
	}
	if err := s.graph.SelectObject(newObj.Index); err != nil {
		return res, err
	}
	return res, nil
}

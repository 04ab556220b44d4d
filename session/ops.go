package session

import (
	"errors"
	"fmt"
	"sort"

	"github.com/janelia-flyem/segedit/editor"
	"github.com/janelia-flyem/segedit/segment"
	"github.com/janelia-flyem/segedit/split"
	"github.com/janelia-flyem/segedit/vol"
)

// isUnavailable is true for errors that leave a valid partial result.
func isUnavailable(err error) bool {
	var unavailable *vol.StorageUnavailableError
	return errors.As(err, &unavailable)
}

// Paint applies the current brush at a voxel with the given label.  Labels that
// lose all their voxels are removed from the graph.  A *vol.StorageUnavailableError
// means some cubes weren't painted; the returned result covers the rest.
func (s *Session) Paint(center vol.Point3d, label uint64) (editor.Result, error) {
	return s.paint(center, s.brush, label, "paint")
}

// Erase applies the current brush inverted at a voxel: voxels become background,
// restricted to selected objects if any are selected.
func (s *Session) Erase(center vol.Point3d) (editor.Result, error) {
	b := s.brush
	b.Inverse = true
	return s.paint(center, b, s.background, "erase")
}

func (s *Session) paint(center vol.Point3d, b editor.Brush, label uint64, action string) (editor.Result, error) {
	var fresh bool
	if !b.Inverse && label != s.background && !s.graph.HasSubObject(label) {
		if _, err := s.graph.SubObjectFromID(label, center); err != nil {
			return editor.Result{}, err
		}
		fresh = true
	}
	res, err := s.editor.Paint(center, b, label, s.graph)
	if err != nil && !isUnavailable(err) {
		s.dropUnpainted(label, fresh)
		return res, err
	}
	removed, derr := s.applyDelta(res.Delta)
	if derr != nil {
		return res, derr
	}
	s.dropUnpainted(label, fresh)
	if len(res.Modified) != 0 {
		s.publish(action, map[string]interface{}{
			"Label":         label,
			"Center":        center,
			"Brush":         b.String(),
			"ModifiedCubes": len(res.Modified),
			"Removed":       removed,
		})
	}
	return res, err
}

// dropUnpainted removes a label registered for a stroke that wrote none of its
// voxels, e.g., because every covered cube was missing.
func (s *Session) dropUnpainted(label uint64, fresh bool) {
	if !fresh || s.counts[label] > 0 || !s.graph.HasSubObject(label) {
		return
	}
	if err := s.graph.RemoveSubObject(label); err != nil {
		vol.Errorf("can't drop unpainted label %d: %v\n", label, err)
	}
}

// SelectAt selects the largest object containing the label at a voxel.
func (s *Session) SelectAt(p vol.Point3d) (segment.Object, error) {
	o, err := s.objectAt(p)
	if err != nil {
		return o, err
	}
	if err := s.graph.SelectObject(o.Index); err != nil {
		return o, err
	}
	return s.graph.Object(o.Index)
}

// SelectObject selects the object with the given id.
func (s *Session) SelectObject(id uint64) error {
	o, err := s.graph.ObjectByID(id)
	if err != nil {
		return err
	}
	return s.graph.SelectObject(o.Index)
}

// UnselectObject unselects the object with the given id.
func (s *Session) UnselectObject(id uint64) error {
	o, err := s.graph.ObjectByID(id)
	if err != nil {
		return err
	}
	return s.graph.UnselectObject(o.Index)
}

// ClearSelection unselects all objects.
func (s *Session) ClearSelection() {
	s.graph.ClearObjectSelection()
}

// SelectByBrush selects the largest object of every label under the current brush,
// in label order, so a following Merge joins everything the stroke touched.  It
// returns the ids of the objects now selected.
func (s *Session) SelectByBrush(center vol.Point3d) ([]uint64, error) {
	found, err := s.editor.ReadVoxelsInRegion(center, s.brush)
	if err != nil && !isUnavailable(err) {
		return nil, err
	}
	labels := make([]uint64, 0, len(found))
	for label := range found {
		labels = append(labels, label)
	}
	sort.Slice(labels, func(i, j int) bool { return labels[i] < labels[j] })

	for _, label := range labels {
		if _, err := s.graph.SubObjectFromID(label, found[label]); err != nil {
			return nil, err
		}
		o, err := s.graph.LargestObjectContainingSubObject(label)
		if err != nil {
			return nil, err
		}
		if err := s.graph.SelectObject(o.Index); err != nil {
			return nil, err
		}
	}
	return s.selectedIDs(), err
}

func (s *Session) selectedIDs() []uint64 {
	indices := s.graph.SelectedObjects()
	ids := make([]uint64, 0, len(indices))
	for _, index := range indices {
		if o, err := s.graph.Object(index); err == nil {
			ids = append(ids, o.ID)
		}
	}
	return ids
}

// Merge merges the selected objects and returns the resulting object.
func (s *Session) Merge() (segment.Object, error) {
	ids := s.selectedIDs()
	if len(ids) < 2 {
		return segment.Object{}, fmt.Errorf("merge needs at least two selected objects, have %d: %w", len(ids), vol.ErrInvalidState)
	}
	if err := s.graph.MergeSelectedObjects(); err != nil {
		return segment.Object{}, err
	}
	merged, err := s.graph.Object(s.graph.SelectedObjects()[0])
	if err != nil {
		return merged, err
	}
	s.publish("merge", map[string]interface{}{
		"Target":  merged.ID,
		"Objects": ids,
		"Labels":  merged.SubObjects,
	})
	return merged, nil
}

// Unmerge removes from the selected object the smallest other object owning the
// label at a voxel.
func (s *Session) Unmerge(p vol.Point3d) error {
	label, err := s.labelAt(p)
	if err != nil {
		return err
	}
	ids := s.selectedIDs()
	if err := s.graph.UnmergeSelectedObjects(label, p); err != nil {
		return err
	}
	s.publish("unmerge", map[string]interface{}{
		"Objects": ids,
		"Label":   label,
		"Point":   p,
	})
	return nil
}

// Split cuts the object at a voxel along the connected component of the seed.
func (s *Session) Split(seed vol.Point3d) (split.Result, error) {
	res, err := s.splitter.ConnectedComponentSplit(seed)
	return res, s.splitDone("split", seed, res, err)
}

// PlaneSplit cuts the object at a voxel along the plane of a view.
func (s *Session) PlaneSplit(seed vol.Point3d, axis editor.Axis) (split.Result, error) {
	res, err := s.splitter.PlaneSplit(seed, axis)
	return res, s.splitDone("plane-split", seed, res, err)
}

func (s *Session) splitDone(action string, seed vol.Point3d, res split.Result, err error) error {
	if err != nil && !isUnavailable(err) {
		return err
	}
	if res.NewID == 0 {
		return err
	}
	removed, derr := s.applyDelta(res.Delta)
	if derr != nil {
		return derr
	}
	s.publish(action, map[string]interface{}{
		"Target":    res.SplitID,
		"NewObject": res.NewID,
		"NewLabel":  res.NewLabel,
		"Seed":      seed,
		"Moved":     res.Visited,
		"Relabeled": res.Relabeled,
		"Shared":    res.Shared,
		"Removed":   removed,
	})
	return err
}

// CreateObject creates an object from a label.
func (s *Session) CreateObject(label uint64, location vol.Point3d, opts segment.CreateOptions) (segment.Object, error) {
	o, err := s.graph.CreateObjectFromSubObjectID(label, location, opts)
	if err != nil {
		return o, err
	}
	s.publish("create", map[string]interface{}{
		"Object":    o.ID,
		"Label":     label,
		"Immutable": o.Immutable,
	})
	return o, nil
}

// RemoveObject deletes the object with the given id.
func (s *Session) RemoveObject(id uint64) error {
	o, err := s.graph.ObjectByID(id)
	if err != nil {
		return err
	}
	if err := s.graph.RemoveObject(o.Index); err != nil {
		return err
	}
	s.publish("remove", map[string]interface{}{"Object": id, "Labels": o.SubObjects})
	return nil
}

// SetMetadata replaces the presentation metadata of an object.
func (s *Session) SetMetadata(id uint64, md segment.Metadata) error {
	o, err := s.graph.ObjectByID(id)
	if err != nil {
		return err
	}
	if err := s.graph.ChangeMetadata(o.Index, md); err != nil {
		return err
	}
	s.publish("metadata", map[string]interface{}{
		"Object":   id,
		"Category": md.Category,
		"Comment":  md.Comment,
	})
	return nil
}

// SetTodo flags or unflags an object for review.
func (s *Session) SetTodo(id uint64, todo bool) error {
	o, err := s.graph.ObjectByID(id)
	if err != nil {
		return err
	}
	if err := s.graph.SetTodo(o.Index, todo); err != nil {
		return err
	}
	s.publish("metadata", map[string]interface{}{"Object": id, "Todo": todo})
	return nil
}

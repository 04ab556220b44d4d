package segment

import (
	"fmt"

	"github.com/janelia-flyem/segedit/vol"
)

// MergeSelectedObjects folds the selection into its first object, consuming it from
// the back.  For each popped object obj, with first the current front:
//
//	both immutable:     a new mutable object receives both and replaces first
//	only first immutable: obj receives first's members and replaces first
//	otherwise:          first receives obj's members
//
// The object that gave up its members is deleted.  Afterwards exactly one object is
// selected unless the selection was empty.
func (g *Graph) MergeSelectedObjects() error {
	if g.selection.Len() < 2 {
		return nil
	}
	timedLog := vol.NewTimeLog()
	merged := g.selection.Len()
	for g.selection.Len() > 1 {
		backIndex, _ := g.selection.PopBack()
		obj := g.objects[backIndex]
		if obj.ID == g.backgroundID {
			g.setSelected(obj, false)
			continue
		}
		frontIndex, _ := g.selection.Front()
		first := g.objects[frontIndex]

		switch {
		case first.Immutable && obj.Immutable:
			target := g.newObject(g.freshID(), nil, first.Location, false, false)
			g.absorb(target, first)
			g.absorb(target, obj)
			g.setSelected(target, true)
			if err := g.selection.Replace(first.Index, target.Index); err != nil {
				return fmt.Errorf("merge into new object %d: %v: %w", target.ID, err, vol.ErrInvalidState)
			}
			g.setSelected(first, false)
			g.setSelected(obj, false)
			vol.Debugf("merged immutable objects %d and %d into new object %d\n", first.ID, obj.ID, target.ID)
			g.deleteObject(first)
			g.deleteObject(obj)

		case first.Immutable:
			g.absorb(obj, first)
			if err := g.selection.Replace(first.Index, obj.Index); err != nil {
				return fmt.Errorf("merge immutable object %d into %d: %v: %w", first.ID, obj.ID, err, vol.ErrInvalidState)
			}
			g.setSelected(first, false)
			vol.Debugf("merged immutable object %d into %d\n", first.ID, obj.ID)
			g.deleteObject(first)

		default:
			g.absorb(first, obj)
			g.setSelected(obj, false)
			vol.Debugf("merged object %d into %d\n", obj.ID, first.ID)
			g.deleteObject(obj)
		}
	}
	g.notifySelection()
	g.notifyGraph()
	timedLog.Debugf("merged %d selected objects", merged)
	return nil
}

// UnmergeSelectedObjects removes from the single selected object the members of the
// smallest other object owning the subobject.  A subobject owned only by the selected
// object is first wrapped in a new immutable singleton so it can be split off.  The
// selected object is deleted if no members remain.
func (g *Graph) UnmergeSelectedObjects(subID uint64, location vol.Point3d) error {
	if n := g.selection.Len(); n != 1 {
		return fmt.Errorf("unmerge needs exactly one selected object, have %d: %w", n, vol.ErrInvalidState)
	}
	index, _ := g.selection.Front()
	selected := g.objects[index]

	s, err := g.subObjectFromID(subID, location)
	if err != nil {
		return err
	}
	if len(s.Objects) == 1 && s.Objects[0] == selected.ID {
		wrapper := g.newObject(g.freshID(), []uint64{subID}, location, false, true)
		vol.Debugf("wrapped subobject %d in immutable object %d for unmerge\n", subID, wrapper.ID)
	}

	var other *Object
	for _, objID := range s.Objects {
		if objID == selected.ID {
			continue
		}
		o := g.objects[g.objectByID[objID]]
		if other == nil || len(o.SubObjects) < len(other.SubObjects) {
			other = o
		}
	}
	if other == nil {
		return fmt.Errorf("subobject %d has no owner besides object %d: %w", subID, selected.ID, vol.ErrInvalidState)
	}

	for _, memberID := range other.SubObjects {
		if containsSorted(selected.SubObjects, memberID) {
			g.removeMember(selected, g.subobjects[memberID])
		}
	}
	vol.Debugf("unmerged object %d from selected object %d\n", other.ID, selected.ID)
	if len(selected.SubObjects) == 0 {
		g.deleteObject(selected)
		g.notifySelection()
	} else {
		g.notifyObject(selected.Index)
	}
	g.notifyGraph()
	return nil
}

package segment

import (
	"fmt"

	"github.com/janelia-flyem/segedit/vol"
)

// setSelected flips an object's flag and the selected-owner counts of its members.
// The ordered selection is maintained by the caller.
func (g *Graph) setSelected(o *Object, selected bool) {
	if o.Selected == selected {
		return
	}
	o.Selected = selected
	delta := 1
	if !selected {
		delta = -1
	}
	for _, subID := range o.SubObjects {
		g.subobjects[subID].selectedOwners += delta
	}
	g.notifyObject(o.Index)
}

// SelectObject appends an object to the selection.  Selecting a selected object is a
// no-op.
func (g *Graph) SelectObject(index int) error {
	o, err := g.objectAt(index)
	if err != nil {
		return err
	}
	if o.Selected {
		return nil
	}
	if err := g.selection.Append(index); err != nil {
		return fmt.Errorf("selection out of sync with object %d: %v: %w", o.ID, err, vol.ErrInvalidState)
	}
	g.setSelected(o, true)
	g.notifySelection()
	return nil
}

// UnselectObject removes an object from the selection.  Unselecting an unselected
// object is a no-op.
func (g *Graph) UnselectObject(index int) error {
	o, err := g.objectAt(index)
	if err != nil {
		return err
	}
	if !o.Selected {
		return nil
	}
	g.unselect(o)
	g.notifySelection()
	return nil
}

func (g *Graph) unselect(o *Object) {
	g.setSelected(o, false)
	g.selection.Erase(o.Index)
}

// ClearObjectSelection unselects every selected object.
func (g *Graph) ClearObjectSelection() {
	if g.selection.Len() == 0 {
		return
	}
	for _, index := range g.selection.Values() {
		g.unselect(g.objects[index])
	}
	g.notifySelection()
}

// SelectedObjects returns the indices of selected objects in selection order.
func (g *Graph) SelectedObjects() []int {
	return g.selection.Values()
}

// NumSelected returns the number of selected objects.
func (g *Graph) NumSelected() int {
	return g.selection.Len()
}

// IsSubObjectSelected returns true if some owner of the label is selected.
func (g *Graph) IsSubObjectSelected(subID uint64) bool {
	s, found := g.subobjects[subID]
	return found && s.selectedOwners > 0
}

package segment

import (
	"fmt"
	"sort"
)

// Verify checks the structural invariants of the graph and returns the first
// violation found.
func (g *Graph) Verify() error {
	if len(g.objectByID) != len(g.objects) {
		return fmt.Errorf("%d objects indexed by id but %d in arena", len(g.objectByID), len(g.objects))
	}
	selectedCount := 0
	for i, o := range g.objects {
		if o.Index != i {
			return fmt.Errorf("object %d at index %d thinks it is at %d", o.ID, i, o.Index)
		}
		if index, found := g.objectByID[o.ID]; !found || index != i {
			return fmt.Errorf("object %d at index %d is indexed at %d", o.ID, i, index)
		}
		if o.ID == g.backgroundID {
			return fmt.Errorf("object at index %d has the background id", i)
		}
		if len(o.SubObjects) == 0 {
			return fmt.Errorf("object %d has no subobjects", o.ID)
		}
		if !sort.SliceIsSorted(o.SubObjects, func(a, b int) bool { return o.SubObjects[a] < o.SubObjects[b] }) {
			return fmt.Errorf("object %d has unsorted subobjects %v", o.ID, o.SubObjects)
		}
		for j, subID := range o.SubObjects {
			if j > 0 && o.SubObjects[j-1] == subID {
				return fmt.Errorf("object %d lists subobject %d twice", o.ID, subID)
			}
			s, found := g.subobjects[subID]
			if !found {
				return fmt.Errorf("object %d references missing subobject %d", o.ID, subID)
			}
			if !containsSorted(s.Objects, o.ID) {
				return fmt.Errorf("object %d owns subobject %d without back link", o.ID, subID)
			}
		}
		if o.Selected != g.selection.Contains(i) {
			return fmt.Errorf("object %d selected flag %t disagrees with selection", o.ID, o.Selected)
		}
		if o.Selected {
			selectedCount++
		}
	}
	if selectedCount != g.selection.Len() {
		return fmt.Errorf("selection holds %d entries for %d selected objects", g.selection.Len(), selectedCount)
	}
	for id, s := range g.subobjects {
		if s.ID != id {
			return fmt.Errorf("subobject %d stored under %d", s.ID, id)
		}
		if id == g.backgroundID {
			return fmt.Errorf("background label %d is a subobject", id)
		}
		if len(s.Objects) == 0 {
			return fmt.Errorf("subobject %d has no owner", id)
		}
		selectedOwners := 0
		for j, objID := range s.Objects {
			if j > 0 && s.Objects[j-1] >= objID {
				return fmt.Errorf("subobject %d has unsorted or repeated owners %v", id, s.Objects)
			}
			index, found := g.objectByID[objID]
			if !found {
				return fmt.Errorf("subobject %d references missing object %d", id, objID)
			}
			o := g.objects[index]
			if !containsSorted(o.SubObjects, id) {
				return fmt.Errorf("subobject %d lists owner %d without back link", id, objID)
			}
			if o.Selected {
				selectedOwners++
			}
		}
		if selectedOwners != s.selectedOwners {
			return fmt.Errorf("subobject %d counts %d selected owners, has %d", id, s.selectedOwners, selectedOwners)
		}
	}
	return nil
}

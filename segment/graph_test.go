package segment

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/janelia-flyem/segedit/vol"
)

func verify(t *testing.T, g *Graph) {
	t.Helper()
	if err := g.Verify(); err != nil {
		t.Fatalf("graph invariant broken: %v\n", err)
	}
}

func mustCreate(t *testing.T, g *Graph, subID uint64, opts CreateOptions) Object {
	t.Helper()
	o, err := g.CreateObjectFromSubObjectID(subID, vol.Point3d{}, opts)
	if err != nil {
		t.Fatalf("can't create object from subobject %d: %v\n", subID, err)
	}
	return o
}

func mustSelect(t *testing.T, g *Graph, ids ...uint64) {
	t.Helper()
	for _, id := range ids {
		o, err := g.ObjectByID(id)
		if err != nil {
			t.Fatalf("can't find object %d to select: %v\n", id, err)
		}
		if err := g.SelectObject(o.Index); err != nil {
			t.Fatalf("can't select object %d: %v\n", id, err)
		}
	}
}

func TestSubObjectFromID(t *testing.T) {
	g := NewGraph(0)
	s, err := g.SubObjectFromID(42, vol.Point3d{1, 2, 3})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]uint64{42}, s.Objects); diff != "" {
		t.Fatalf("new subobject owners mismatch (-want +got):\n%s", diff)
	}
	o, err := g.ObjectByID(42)
	if err != nil {
		t.Fatalf("expected singleton object 42: %v\n", err)
	}
	if o.Location != (vol.Point3d{1, 2, 3}) {
		t.Errorf("expected singleton at (1,2,3), got %s\n", o.Location)
	}

	// a second call returns the same subobject
	if _, err := g.SubObjectFromID(42, vol.Point3d{}); err != nil {
		t.Fatal(err)
	}
	if g.NumObjects() != 1 {
		t.Errorf("expected 1 object after repeated lookup, got %d\n", g.NumObjects())
	}

	// object id 50 is taken, so label 50 gets a fresh wrapper id
	mustCreate(t, g, 49, CreateOptions{ID: 50})
	s, err = g.SubObjectFromID(50, vol.Point3d{})
	if err != nil {
		t.Fatal(err)
	}
	if len(s.Objects) != 1 || s.Objects[0] == 50 {
		t.Errorf("expected label 50 wrapped in a fresh object, got owners %v\n", s.Objects)
	}

	if _, err := g.SubObjectFromID(0, vol.Point3d{}); !errors.Is(err, vol.ErrInvalidState) {
		t.Errorf("expected invalid state for background label, got %v\n", err)
	}
	verify(t, g)
}

func TestZeroLabelWithOtherBackground(t *testing.T) {
	g := NewGraph(5)
	if _, err := g.SubObjectFromID(0, vol.Point3d{}); err != nil {
		t.Fatalf("label 0 is a regular label under background 5: %v\n", err)
	}
	verify(t, g)
	o, err := g.LargestObjectContainingSubObject(0)
	if err != nil {
		t.Fatal(err)
	}
	if o.ID == 0 || o.ID == 5 {
		t.Errorf("object of label 0 got reserved id %d\n", o.ID)
	}
	if byID, err := g.ObjectByID(o.ID); err != nil || byID.SubObjects[0] != 0 {
		t.Errorf("object %d not addressable by id: %+v, %v\n", o.ID, byID, err)
	}
	for i := 0; i < 5; i++ {
		if id := g.NewLabel(); id == 0 || id == 5 {
			t.Errorf("fresh label %d is reserved\n", id)
		}
	}
}

func TestSetTodo(t *testing.T) {
	g := NewGraph(0)
	o := mustCreate(t, g, 3, CreateOptions{})
	var events []Event
	g.Subscribe(SubscriberFunc(func(e Event) { events = append(events, e) }))
	if err := g.SetTodo(o.Index, true); err != nil {
		t.Fatal(err)
	}
	if got, _ := g.Object(o.Index); !got.Todo {
		t.Errorf("expected todo flag set\n")
	}
	if len(events) != 1 || events[0].Type != ObjectChanged || events[0].Index != o.Index {
		t.Errorf("unexpected events %v\n", events)
	}
	if err := g.SetTodo(7, true); !errors.Is(err, vol.ErrNotFound) {
		t.Errorf("expected not found for bad index, got %v\n", err)
	}
}

func TestCreateObject(t *testing.T) {
	g := NewGraph(0)
	o := mustCreate(t, g, 7, CreateOptions{ID: 70, Todo: true})
	if o.ID != 70 || !o.Todo || o.Index != 0 {
		t.Errorf("unexpected new object: %+v\n", o)
	}
	if _, err := g.CreateObjectFromSubObjectID(8, vol.Point3d{}, CreateOptions{ID: 70}); !errors.Is(err, vol.ErrExists) {
		t.Errorf("expected ErrExists on duplicate id, got %v\n", err)
	}
	if _, err := g.CreateObjectFromSubObjectID(0, vol.Point3d{}, CreateOptions{}); !errors.Is(err, vol.ErrInvalidState) {
		t.Errorf("expected invalid state creating from background, got %v\n", err)
	}
	fresh := mustCreate(t, g, 7, CreateOptions{})
	if fresh.ID == 70 || fresh.ID == 7 || fresh.ID == 0 {
		t.Errorf("fresh id %d collides\n", fresh.ID)
	}
	s, err := g.SubObject(7)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]uint64{70, fresh.ID}, s.Objects); diff != "" {
		t.Errorf("owners of 7 mismatch (-want +got):\n%s", diff)
	}
	if label := g.NewLabel(); label <= fresh.ID {
		t.Errorf("new label %d not above existing ids\n", label)
	}
	g.ReserveLabel(1000)
	if label := g.NewLabel(); label != 1001 {
		t.Errorf("expected label 1001 after reserving 1000, got %d\n", label)
	}
	verify(t, g)
}

func TestLargestAndSmallestOwner(t *testing.T) {
	g := NewGraph(0)
	mustCreate(t, g, 1, CreateOptions{ID: 10, Immutable: true})
	mustCreate(t, g, 1, CreateOptions{ID: 11, Immutable: true})
	mustCreate(t, g, 1, CreateOptions{ID: 12})
	for _, sub := range []uint64{2, 3} {
		if err := g.AddSubObjectToObject(2, sub); err != nil {
			t.Fatal(err)
		}
	}
	if err := g.AddSubObjectToObject(1, 4); err != nil {
		t.Fatal(err)
	}

	largest, err := g.LargestObjectContainingSubObject(1)
	if err != nil {
		t.Fatal(err)
	}
	if largest.ID != 12 {
		t.Errorf("expected largest owner 12, got %d\n", largest.ID)
	}
	smallest, err := g.SmallestImmutableObjectContainingSubObject(1)
	if err != nil {
		t.Fatal(err)
	}
	if smallest.ID != 10 {
		t.Errorf("expected smallest immutable owner 10, got %d\n", smallest.ID)
	}

	// ties go to the lowest id
	if err := g.AddSubObjectToObject(0, 5); err != nil {
		t.Fatal(err)
	}
	if smallest, _ = g.SmallestImmutableObjectContainingSubObject(1); smallest.ID != 10 {
		t.Errorf("expected tie to go to object 10, got %d\n", smallest.ID)
	}

	if _, err := g.SmallestImmutableObjectContainingSubObject(3); !errors.Is(err, vol.ErrNotFound) {
		t.Errorf("expected not found with no immutable owner, got %v\n", err)
	}
	if _, err := g.LargestObjectContainingSubObject(99); !errors.Is(err, vol.ErrNotFound) {
		t.Errorf("expected not found for unknown subobject, got %v\n", err)
	}
	verify(t, g)
}

func TestSelection(t *testing.T) {
	g := NewGraph(0)
	for _, id := range []uint64{1, 2, 3} {
		mustCreate(t, g, id, CreateOptions{ID: id})
	}
	var events []Event
	g.Subscribe(SubscriberFunc(func(e Event) { events = append(events, e) }))

	mustSelect(t, g, 3, 1)
	mustSelect(t, g, 3)
	if diff := cmp.Diff([]int{2, 0}, g.SelectedObjects()); diff != "" {
		t.Errorf("selection order mismatch (-want +got):\n%s", diff)
	}
	if !g.IsSubObjectSelected(3) || g.IsSubObjectSelected(2) {
		t.Errorf("subobject selection does not follow owners\n")
	}
	if err := g.UnselectObject(2); err != nil {
		t.Fatal(err)
	}
	if err := g.SelectObject(5); !errors.Is(err, vol.ErrNotFound) {
		t.Errorf("expected not found selecting bad index, got %v\n", err)
	}
	g.ClearObjectSelection()
	if g.NumSelected() != 0 {
		t.Errorf("expected empty selection, got %v\n", g.SelectedObjects())
	}
	verify(t, g)

	var selectionEvents int
	for _, e := range events {
		if e.Type == SelectionChanged {
			selectionEvents++
		}
	}
	if selectionEvents != 4 {
		t.Errorf("expected 4 selection events, got %d in %v\n", selectionEvents, events)
	}
}

func TestMergeMutableIntoFirst(t *testing.T) {
	g := NewGraph(0)
	mustCreate(t, g, 1, CreateOptions{ID: 1})
	mustCreate(t, g, 2, CreateOptions{ID: 2})
	mustCreate(t, g, 3, CreateOptions{ID: 3})
	if err := g.AddSubObjectToObject(2, 1); err != nil {
		t.Fatal(err)
	}
	if err := g.ChangeMetadata(1, Metadata{Category: "axon", Comment: "check"}); err != nil {
		t.Fatal(err)
	}
	if err := g.ChangeMetadata(0, Metadata{Comment: "anchor"}); err != nil {
		t.Fatal(err)
	}

	mustSelect(t, g, 1, 2, 3)
	if err := g.MergeSelectedObjects(); err != nil {
		t.Fatal(err)
	}
	verify(t, g)

	if g.NumObjects() != 1 {
		t.Fatalf("expected 1 object after merge, got %d\n", g.NumObjects())
	}
	o, err := g.ObjectByID(1)
	if err != nil {
		t.Fatalf("anchor object 1 should survive: %v\n", err)
	}
	if diff := cmp.Diff([]uint64{1, 2, 3}, o.SubObjects); diff != "" {
		t.Errorf("merged members mismatch (-want +got):\n%s", diff)
	}
	if !o.Selected || g.NumSelected() != 1 {
		t.Errorf("expected merged object to be the only selection\n")
	}
	if o.Comment != "anchor" || o.Category != "axon" {
		t.Errorf("expected anchor comment kept and category filled, got %+v\n", o.Metadata)
	}
	s, _ := g.SubObject(1)
	if diff := cmp.Diff([]uint64{1}, s.Objects); diff != "" {
		t.Errorf("shared subobject owners mismatch (-want +got):\n%s", diff)
	}
}

// The front of the selection decides the survivor.  A mutable front absorbs an
// immutable member, so 10 survives and 11 is consumed; an immutable front is
// replaced instead (TestMergeImmutableAnchor).
func TestMergeImmutableMember(t *testing.T) {
	g := NewGraph(0)
	mustCreate(t, g, 100, CreateOptions{ID: 10})
	mustCreate(t, g, 110, CreateOptions{ID: 11, Immutable: true})
	if err := g.AddSubObjectToObject(1, 111); err != nil {
		t.Fatal(err)
	}

	mustSelect(t, g, 10, 11)
	if err := g.MergeSelectedObjects(); err != nil {
		t.Fatal(err)
	}
	verify(t, g)

	if _, err := g.ObjectByID(11); !errors.Is(err, vol.ErrNotFound) {
		t.Errorf("immutable member 11 should be consumed, got %v\n", err)
	}
	o, err := g.ObjectByID(10)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]uint64{100, 110, 111}, o.SubObjects); diff != "" {
		t.Errorf("merged members mismatch (-want +got):\n%s", diff)
	}
	if o.Immutable || !o.Selected {
		t.Errorf("expected selected mutable survivor, got %+v\n", o)
	}
}

func TestMergeImmutableAnchor(t *testing.T) {
	g := NewGraph(0)
	mustCreate(t, g, 110, CreateOptions{ID: 11, Immutable: true})
	mustCreate(t, g, 100, CreateOptions{ID: 10})
	mustCreate(t, g, 120, CreateOptions{ID: 12})

	mustSelect(t, g, 11, 10)
	if err := g.MergeSelectedObjects(); err != nil {
		t.Fatal(err)
	}
	verify(t, g)

	if _, err := g.ObjectByID(11); !errors.Is(err, vol.ErrNotFound) {
		t.Errorf("immutable anchor should be removed, got %v\n", err)
	}
	o, err := g.ObjectByID(10)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]uint64{100, 110}, o.SubObjects); diff != "" {
		t.Errorf("merged members mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{o.Index}, g.SelectedObjects()); diff != "" {
		t.Errorf("selection mismatch (-want +got):\n%s", diff)
	}
}

func TestMergeBothImmutable(t *testing.T) {
	g := NewGraph(0)
	mustCreate(t, g, 200, CreateOptions{ID: 20, Immutable: true})
	mustCreate(t, g, 210, CreateOptions{ID: 21, Immutable: true})
	mustCreate(t, g, 220, CreateOptions{ID: 22})

	mustSelect(t, g, 20, 21)
	if err := g.MergeSelectedObjects(); err != nil {
		t.Fatal(err)
	}
	verify(t, g)

	for _, id := range []uint64{20, 21} {
		if _, err := g.ObjectByID(id); !errors.Is(err, vol.ErrNotFound) {
			t.Errorf("immutable object %d should be removed, got %v\n", id, err)
		}
	}
	if g.NumObjects() != 2 || g.NumSelected() != 1 {
		t.Fatalf("expected 2 objects and 1 selection, got %d and %d\n", g.NumObjects(), g.NumSelected())
	}
	merged, err := g.Object(g.SelectedObjects()[0])
	if err != nil {
		t.Fatal(err)
	}
	if merged.ID == 20 || merged.ID == 21 || merged.ID == 22 || merged.Immutable {
		t.Errorf("expected a new mutable object id, got %+v\n", merged)
	}
	if diff := cmp.Diff([]uint64{200, 210}, merged.SubObjects); diff != "" {
		t.Errorf("merged members mismatch (-want +got):\n%s", diff)
	}
}

func TestMergeOrderIndependence(t *testing.T) {
	orders := [][]uint64{{1, 2, 3}, {3, 1, 2}, {2, 3, 1}}
	var want []uint64
	for _, order := range orders {
		g := NewGraph(0)
		for _, id := range []uint64{1, 2, 3} {
			mustCreate(t, g, id*10, CreateOptions{ID: id})
			if err := g.AddSubObjectToObject(int(id-1), id*10+1); err != nil {
				t.Fatal(err)
			}
		}
		// pairwise: first two, then the result with the third
		mustSelect(t, g, order[0], order[1])
		if err := g.MergeSelectedObjects(); err != nil {
			t.Fatal(err)
		}
		mustSelect(t, g, order[2])
		if err := g.MergeSelectedObjects(); err != nil {
			t.Fatal(err)
		}
		verify(t, g)
		if g.NumObjects() != 1 {
			t.Fatalf("order %v: expected 1 object, got %d\n", order, g.NumObjects())
		}
		got, _ := g.Object(0)
		if want == nil {
			want = got.SubObjects
			continue
		}
		if diff := cmp.Diff(want, got.SubObjects); diff != "" {
			t.Errorf("order %v members mismatch (-want +got):\n%s", order, diff)
		}
	}
}

func TestUnmerge(t *testing.T) {
	g := NewGraph(0)
	mustCreate(t, g, 1, CreateOptions{ID: 1})
	mustCreate(t, g, 2, CreateOptions{ID: 2})
	mustCreate(t, g, 3, CreateOptions{ID: 3})
	mustSelect(t, g, 1, 2, 3)
	if err := g.MergeSelectedObjects(); err != nil {
		t.Fatal(err)
	}

	// subobject 2 now belongs only to the merged object, so it gets wrapped
	if err := g.UnmergeSelectedObjects(2, vol.Point3d{4, 5, 6}); err != nil {
		t.Fatal(err)
	}
	verify(t, g)
	merged, err := g.ObjectByID(1)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]uint64{1, 3}, merged.SubObjects); diff != "" {
		t.Errorf("members after unmerge mismatch (-want +got):\n%s", diff)
	}
	s, _ := g.SubObject(2)
	if len(s.Objects) != 1 {
		t.Fatalf("expected subobject 2 owned by its wrapper, got %v\n", s.Objects)
	}
	wrapper, _ := g.ObjectByID(s.Objects[0])
	if !wrapper.Immutable || wrapper.Location != (vol.Point3d{4, 5, 6}) || wrapper.Selected {
		t.Errorf("unexpected wrapper: %+v\n", wrapper)
	}

	// unmerging the last members deletes the selected object
	if err := g.UnmergeSelectedObjects(1, vol.Point3d{}); err != nil {
		t.Fatal(err)
	}
	if err := g.UnmergeSelectedObjects(3, vol.Point3d{}); err != nil {
		t.Fatal(err)
	}
	verify(t, g)
	if _, err := g.ObjectByID(1); !errors.Is(err, vol.ErrNotFound) {
		t.Errorf("expected emptied object to be removed, got %v\n", err)
	}
	if g.NumSelected() != 0 {
		t.Errorf("expected empty selection, got %v\n", g.SelectedObjects())
	}
}

func TestUnmergeSmallestOther(t *testing.T) {
	g := NewGraph(0)
	big := mustCreate(t, g, 1, CreateOptions{ID: 1})
	for _, sub := range []uint64{2, 3, 4} {
		if err := g.AddSubObjectToObject(big.Index, sub); err != nil {
			t.Fatal(err)
		}
	}
	pair := mustCreate(t, g, 2, CreateOptions{ID: 20})
	if err := g.AddSubObjectToObject(pair.Index, 3); err != nil {
		t.Fatal(err)
	}
	mustCreate(t, g, 2, CreateOptions{ID: 30})
	triple := mustCreate(t, g, 2, CreateOptions{ID: 40})
	for _, sub := range []uint64{3, 4} {
		if err := g.AddSubObjectToObject(triple.Index, sub); err != nil {
			t.Fatal(err)
		}
	}

	mustSelect(t, g, 1)
	if err := g.UnmergeSelectedObjects(2, vol.Point3d{}); err != nil {
		t.Fatal(err)
	}
	verify(t, g)
	o, _ := g.ObjectByID(1)
	if diff := cmp.Diff([]uint64{1, 3, 4}, o.SubObjects); diff != "" {
		t.Errorf("expected only singleton 30's members removed (-want +got):\n%s", diff)
	}
}

func TestUnmergeNeedsOneSelection(t *testing.T) {
	g := NewGraph(0)
	mustCreate(t, g, 1, CreateOptions{ID: 1})
	mustCreate(t, g, 2, CreateOptions{ID: 2})
	if err := g.UnmergeSelectedObjects(1, vol.Point3d{}); !errors.Is(err, vol.ErrInvalidState) {
		t.Errorf("expected invalid state with empty selection, got %v\n", err)
	}
	mustSelect(t, g, 1, 2)
	if err := g.UnmergeSelectedObjects(1, vol.Point3d{}); !errors.Is(err, vol.ErrInvalidState) {
		t.Errorf("expected invalid state with two selected, got %v\n", err)
	}
	verify(t, g)
}

func TestRemoveObjectSwapsLast(t *testing.T) {
	g := NewGraph(0)
	for _, id := range []uint64{1, 2, 3, 4} {
		mustCreate(t, g, id, CreateOptions{ID: id})
	}
	mustSelect(t, g, 2, 4)
	if err := g.RemoveObject(0); err != nil {
		t.Fatal(err)
	}
	verify(t, g)
	o, _ := g.ObjectByID(4)
	if o.Index != 0 {
		t.Errorf("expected last object moved to index 0, got %d\n", o.Index)
	}
	if diff := cmp.Diff([]int{1, 0}, g.SelectedObjects()); diff != "" {
		t.Errorf("selection not remapped (-want +got):\n%s", diff)
	}
	if g.HasSubObject(1) {
		t.Errorf("subobject 1 should go with its only owner\n")
	}

	if err := g.RemoveObject(0); err != nil {
		t.Fatal(err)
	}
	verify(t, g)
	if diff := cmp.Diff([]int{1}, g.SelectedObjects()); diff != "" {
		t.Errorf("selection after removing selected object (-want +got):\n%s", diff)
	}
	if err := g.RemoveObject(7); !errors.Is(err, vol.ErrNotFound) {
		t.Errorf("expected not found for bad index, got %v\n", err)
	}
}

func TestRemoveSubObject(t *testing.T) {
	g := NewGraph(0)
	mustCreate(t, g, 5, CreateOptions{ID: 5})
	seven := mustCreate(t, g, 7, CreateOptions{ID: 7})
	if err := g.AddSubObjectToObject(seven.Index, 5); err != nil {
		t.Fatal(err)
	}
	mustSelect(t, g, 5)

	if err := g.RemoveSubObject(5); err != nil {
		t.Fatal(err)
	}
	verify(t, g)
	if _, err := g.ObjectByID(5); !errors.Is(err, vol.ErrNotFound) {
		t.Errorf("object 5 should be removed with its only member, got %v\n", err)
	}
	o, _ := g.ObjectByID(7)
	if diff := cmp.Diff([]uint64{7}, o.SubObjects); diff != "" {
		t.Errorf("object 7 members mismatch (-want +got):\n%s", diff)
	}
	if g.NumSelected() != 0 {
		t.Errorf("removed object should leave the selection\n")
	}
	if err := g.RemoveSubObject(5); !errors.Is(err, vol.ErrNotFound) {
		t.Errorf("expected not found on second removal, got %v\n", err)
	}
}

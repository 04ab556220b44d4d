/*
Package segment implements the segmentation graph: a many-to-many relation between
subobjects (supervoxel labels) and the objects users see, plus an ordered selection
used for deterministic merges.

Entities live in an arena owned by a *Graph.  Objects sit in a dense slice addressed
by index and are also reachable by id; subobjects are keyed by label.  Membership is
kept as sorted id lists on both sides and every mutator restores the bidirectional
invariant before returning.  Accessors return copies, so callers must re-resolve
after any mutating call.

A Graph is not safe for concurrent use.
*/
package segment

import (
	"fmt"
	"image/color"
	"sort"

	"github.com/janelia-flyem/segedit/orderedset"
	"github.com/janelia-flyem/segedit/vol"
)

// Object is a user-visible grouping of subobjects.
type Object struct {
	ID    uint64
	Index int

	// SubObjects are the member subobject ids in ascending order.
	SubObjects []uint64

	Selected  bool
	Immutable bool
	Todo      bool
	Location  vol.Point3d

	Metadata
}

// Metadata is presentation data carried across merges and splits.
type Metadata struct {
	Category string
	Comment  string
	Color    color.RGBA
	HasColor bool
}

// SubObject is a single supervoxel label and the objects it belongs to.
type SubObject struct {
	ID uint64

	// Objects are the ids of owning objects in ascending order.
	Objects []uint64

	selectedOwners int
}

// Selected is true if any owning object is selected.
func (s SubObject) Selected() bool {
	return s.selectedOwners > 0
}

// Graph is the arena holding every object and subobject of a segmentation.
type Graph struct {
	backgroundID uint64

	objects    []*Object
	objectByID map[uint64]int
	subobjects map[uint64]*SubObject
	selection  *orderedset.Set[int]

	// highest object id or label seen, the base for fresh ids
	maxID uint64

	subscribers []Subscriber
}

// NewGraph returns an empty graph whose background label never becomes a subobject.
func NewGraph(backgroundID uint64) *Graph {
	return &Graph{
		backgroundID: backgroundID,
		objectByID:   make(map[uint64]int),
		subobjects:   make(map[uint64]*SubObject),
		selection:    orderedset.New[int](),
		maxID:        backgroundID,
	}
}

// BackgroundID returns the label excluded from the graph.
func (g *Graph) BackgroundID() uint64 {
	return g.backgroundID
}

// NumObjects returns the number of objects.
func (g *Graph) NumObjects() int {
	return len(g.objects)
}

// NumSubObjects returns the number of subobjects.
func (g *Graph) NumSubObjects() int {
	return len(g.subobjects)
}

// --- sorted id list helpers ---

func insertSorted(ids []uint64, id uint64) ([]uint64, bool) {
	i := sort.Search(len(ids), func(i int) bool { return ids[i] >= id })
	if i < len(ids) && ids[i] == id {
		return ids, false
	}
	ids = append(ids, 0)
	copy(ids[i+1:], ids[i:])
	ids[i] = id
	return ids, true
}

func removeSorted(ids []uint64, id uint64) ([]uint64, bool) {
	i := sort.Search(len(ids), func(i int) bool { return ids[i] >= id })
	if i == len(ids) || ids[i] != id {
		return ids, false
	}
	return append(ids[:i], ids[i+1:]...), true
}

func containsSorted(ids []uint64, id uint64) bool {
	i := sort.Search(len(ids), func(i int) bool { return ids[i] >= id })
	return i < len(ids) && ids[i] == id
}

// --- arena primitives ---

func (g *Graph) note(id uint64) {
	if id > g.maxID {
		g.maxID = id
	}
}

// freshID returns an id not used by any object or subobject.
func (g *Graph) freshID() uint64 {
	for {
		g.maxID++
		id := g.maxID
		if id == 0 || id == g.backgroundID {
			continue
		}
		if _, taken := g.objectByID[id]; taken {
			continue
		}
		if _, taken := g.subobjects[id]; taken {
			continue
		}
		return id
	}
}

// NewLabel returns a label unused by the graph, e.g., for the new side of a split.
func (g *Graph) NewLabel() uint64 {
	return g.freshID()
}

// ReserveLabel makes sure fresh ids are above the given label, e.g., the highest
// label present in the volume but not yet seen by the graph.
func (g *Graph) ReserveLabel(label uint64) {
	g.note(label)
}

func (g *Graph) objectAt(index int) (*Object, error) {
	if index < 0 || index >= len(g.objects) {
		return nil, fmt.Errorf("object index %d of %d: %w", index, len(g.objects), vol.ErrNotFound)
	}
	return g.objects[index], nil
}

func (g *Graph) objectWithID(id uint64) (*Object, error) {
	index, found := g.objectByID[id]
	if !found {
		return nil, fmt.Errorf("object %d: %w", id, vol.ErrNotFound)
	}
	return g.objects[index], nil
}

// newObject appends an object owning the given subobjects, creating bare subobjects
// as needed.
func (g *Graph) newObject(id uint64, subIDs []uint64, location vol.Point3d, todo, immutable bool) *Object {
	o := &Object{
		ID:        id,
		Index:     len(g.objects),
		Todo:      todo,
		Immutable: immutable,
		Location:  location,
	}
	g.objects = append(g.objects, o)
	g.objectByID[id] = o.Index
	g.note(id)
	for _, subID := range subIDs {
		g.addMember(o, g.bareSubObject(subID))
	}
	return o
}

// bareSubObject returns the subobject for a label, creating it without owners.  The
// caller must attach it before returning to its own caller.
func (g *Graph) bareSubObject(id uint64) *SubObject {
	s, found := g.subobjects[id]
	if !found {
		s = &SubObject{ID: id}
		g.subobjects[id] = s
		g.note(id)
	}
	return s
}

func (g *Graph) addMember(o *Object, s *SubObject) {
	var added bool
	if o.SubObjects, added = insertSorted(o.SubObjects, s.ID); !added {
		return
	}
	s.Objects, _ = insertSorted(s.Objects, o.ID)
	if o.Selected {
		s.selectedOwners++
	}
}

// removeMember detaches a subobject from an object and deletes the subobject if it
// has no owner left.
func (g *Graph) removeMember(o *Object, s *SubObject) {
	var removed bool
	if o.SubObjects, removed = removeSorted(o.SubObjects, s.ID); !removed {
		return
	}
	s.Objects, _ = removeSorted(s.Objects, o.ID)
	if o.Selected {
		s.selectedOwners--
	}
	if len(s.Objects) == 0 {
		delete(g.subobjects, s.ID)
	}
}

// absorb adds every member of src to dst and fills dst's missing metadata from src.
func (g *Graph) absorb(dst, src *Object) {
	for _, subID := range src.SubObjects {
		g.addMember(dst, g.subobjects[subID])
	}
	if dst.Category == "" {
		dst.Category = src.Category
	}
	if dst.Comment == "" {
		dst.Comment = src.Comment
	}
	if !dst.HasColor && src.HasColor {
		dst.Color, dst.HasColor = src.Color, true
	}
	dst.Todo = dst.Todo || src.Todo
	g.notifyObject(dst.Index)
}

// deleteObject unselects an object, detaches its members and swap-removes it from the
// dense object slice, moving the last object into the freed index.
func (g *Graph) deleteObject(o *Object) {
	if o.Selected {
		g.setSelected(o, false)
		g.selection.Erase(o.Index)
	}
	for len(o.SubObjects) > 0 {
		g.removeMember(o, g.subobjects[o.SubObjects[len(o.SubObjects)-1]])
	}
	lastIndex := len(g.objects) - 1
	if o.Index != lastIndex {
		last := g.objects[lastIndex]
		g.objects[o.Index] = last
		if err := g.selection.Replace(lastIndex, o.Index); err != nil {
			vol.Criticalf("selection holds removed object index %d: %v\n", o.Index, err)
		}
		last.Index = o.Index
		g.objectByID[last.ID] = last.Index
		g.notifyObject(last.Index)
	}
	g.objects = g.objects[:lastIndex]
	delete(g.objectByID, o.ID)
	o.Index = -1
}

// --- public construction and lookup ---

// SubObjectFromID returns the subobject for a label.  An unseen label gets a new
// subobject wrapped in a singleton object, which takes the label as its id if that
// id is free and nonzero.
func (g *Graph) SubObjectFromID(id uint64, location vol.Point3d) (SubObject, error) {
	s, err := g.subObjectFromID(id, location)
	if err != nil {
		return SubObject{}, err
	}
	return s.copy(), nil
}

func (g *Graph) subObjectFromID(id uint64, location vol.Point3d) (*SubObject, error) {
	if id == g.backgroundID {
		return nil, fmt.Errorf("background label %d has no subobject: %w", id, vol.ErrInvalidState)
	}
	if s, found := g.subobjects[id]; found {
		return s, nil
	}
	objID := id
	if _, taken := g.objectByID[objID]; taken || objID == 0 {
		objID = g.freshID()
	}
	o := g.newObject(objID, []uint64{id}, location, false, false)
	vol.Debugf("created subobject %d in new object %d\n", id, o.ID)
	g.notifyGraph()
	return g.subobjects[id], nil
}

// CreateOptions are the optional settings of a new object.
type CreateOptions struct {
	// ID of the new object.  Zero requests a fresh id.
	ID        uint64
	Todo      bool
	Immutable bool
}

// CreateObjectFromSubObjectID creates an object owning the given subobject, creating
// the subobject if needed.  It fails if the requested object id exists.
func (g *Graph) CreateObjectFromSubObjectID(subID uint64, location vol.Point3d, opts CreateOptions) (Object, error) {
	if subID == g.backgroundID {
		return Object{}, fmt.Errorf("can't create object from background label %d: %w", subID, vol.ErrInvalidState)
	}
	objID := opts.ID
	if objID == 0 {
		objID = g.freshID()
	} else if objID == g.backgroundID {
		return Object{}, fmt.Errorf("object id %d is the background label: %w", objID, vol.ErrInvalidState)
	} else if _, taken := g.objectByID[objID]; taken {
		return Object{}, fmt.Errorf("object %d: %w", objID, vol.ErrExists)
	}
	o := g.newObject(objID, []uint64{subID}, location, opts.Todo, opts.Immutable)
	g.notifyGraph()
	return o.copy(), nil
}

// AddSubObjectToObject makes a subobject a member of an object, creating the
// subobject if needed.
func (g *Graph) AddSubObjectToObject(index int, subID uint64) error {
	o, err := g.objectAt(index)
	if err != nil {
		return err
	}
	if subID == g.backgroundID {
		return fmt.Errorf("can't add background label %d to object %d: %w", subID, o.ID, vol.ErrInvalidState)
	}
	g.addMember(o, g.bareSubObject(subID))
	g.notifyObject(o.Index)
	g.notifyGraph()
	return nil
}

// Object returns a copy of the object at an index.
func (g *Graph) Object(index int) (Object, error) {
	o, err := g.objectAt(index)
	if err != nil {
		return Object{}, err
	}
	return o.copy(), nil
}

// ObjectByID returns a copy of the object with the given id.
func (g *Graph) ObjectByID(id uint64) (Object, error) {
	o, err := g.objectWithID(id)
	if err != nil {
		return Object{}, err
	}
	return o.copy(), nil
}

// Objects returns copies of all objects in index order.
func (g *Graph) Objects() []Object {
	out := make([]Object, len(g.objects))
	for i, o := range g.objects {
		out[i] = o.copy()
	}
	return out
}

// SubObject returns a copy of the subobject with the given label.
func (g *Graph) SubObject(id uint64) (SubObject, error) {
	s, found := g.subobjects[id]
	if !found {
		return SubObject{}, fmt.Errorf("subobject %d: %w", id, vol.ErrNotFound)
	}
	return s.copy(), nil
}

// HasSubObject returns true if the label is known to the graph.
func (g *Graph) HasSubObject(id uint64) bool {
	_, found := g.subobjects[id]
	return found
}

// ObjectContains returns true if the object at index owns the subobject.
func (g *Graph) ObjectContains(index int, subID uint64) bool {
	if index < 0 || index >= len(g.objects) {
		return false
	}
	return containsSorted(g.objects[index].SubObjects, subID)
}

// LargestObjectContainingSubObject returns the owner with the most members, the lowest
// id winning ties.
func (g *Graph) LargestObjectContainingSubObject(subID uint64) (Object, error) {
	return g.extremeOwner(subID, false, func(candidate, best *Object) bool {
		return len(candidate.SubObjects) > len(best.SubObjects)
	})
}

// SmallestImmutableObjectContainingSubObject returns the immutable owner with the
// fewest members, the lowest id winning ties.
func (g *Graph) SmallestImmutableObjectContainingSubObject(subID uint64) (Object, error) {
	return g.extremeOwner(subID, true, func(candidate, best *Object) bool {
		return len(candidate.SubObjects) < len(best.SubObjects)
	})
}

// extremeOwner scans owners in ascending id order, so a strict comparison keeps the
// lowest id among equals.
func (g *Graph) extremeOwner(subID uint64, immutableOnly bool, better func(candidate, best *Object) bool) (Object, error) {
	s, found := g.subobjects[subID]
	if !found {
		return Object{}, fmt.Errorf("subobject %d: %w", subID, vol.ErrNotFound)
	}
	var best *Object
	for _, objID := range s.Objects {
		o := g.objects[g.objectByID[objID]]
		if immutableOnly && !o.Immutable {
			continue
		}
		if best == nil || better(o, best) {
			best = o
		}
	}
	if best == nil {
		return Object{}, fmt.Errorf("no qualifying object contains subobject %d: %w", subID, vol.ErrNotFound)
	}
	return best.copy(), nil
}

// ChangeMetadata replaces the presentation metadata of an object.
func (g *Graph) ChangeMetadata(index int, md Metadata) error {
	o, err := g.objectAt(index)
	if err != nil {
		return err
	}
	o.Metadata = md
	g.notifyObject(index)
	return nil
}

// SetTodo flags an object for review.
func (g *Graph) SetTodo(index int, todo bool) error {
	o, err := g.objectAt(index)
	if err != nil {
		return err
	}
	o.Todo = todo
	g.notifyObject(index)
	return nil
}

// RemoveObject unselects and deletes an object.  Subobjects left without an owner are
// deleted too.
func (g *Graph) RemoveObject(index int) error {
	o, err := g.objectAt(index)
	if err != nil {
		return err
	}
	wasSelected := o.Selected
	g.deleteObject(o)
	if wasSelected {
		g.notifySelection()
	}
	g.notifyGraph()
	return nil
}

// RemoveSubObject deletes a subobject from every owner.  Owners left without members
// are removed.
func (g *Graph) RemoveSubObject(subID uint64) error {
	s, found := g.subobjects[subID]
	if !found {
		return fmt.Errorf("subobject %d: %w", subID, vol.ErrNotFound)
	}
	var selectionChanged bool
	owners := append([]uint64(nil), s.Objects...)
	for _, objID := range owners {
		o := g.objects[g.objectByID[objID]]
		g.removeMember(o, s)
		if len(o.SubObjects) == 0 {
			selectionChanged = selectionChanged || o.Selected
			g.deleteObject(o)
		} else {
			g.notifyObject(o.Index)
		}
	}
	if selectionChanged {
		g.notifySelection()
	}
	g.notifyGraph()
	return nil
}

func (o *Object) copy() Object {
	out := *o
	out.SubObjects = append([]uint64(nil), o.SubObjects...)
	return out
}

func (s *SubObject) copy() SubObject {
	out := *s
	out.Objects = append([]uint64(nil), s.Objects...)
	return out
}

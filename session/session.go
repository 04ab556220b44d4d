/*
Package session drives a segmentation: it owns the cube store, the segmentation
graph, the brush editor and the split engine, keeps per-label voxel counts in sync
with edits, and publishes a mutation record for every change.

A Session is driven from a single goroutine.  Only cube loading and eviction run
concurrently, inside the cube store's loader.
*/
package session

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/twinj/uuid"

	"github.com/janelia-flyem/segedit/config"
	"github.com/janelia-flyem/segedit/cubestore"
	"github.com/janelia-flyem/segedit/editor"
	"github.com/janelia-flyem/segedit/notify"
	"github.com/janelia-flyem/segedit/segment"
	"github.com/janelia-flyem/segedit/split"
	"github.com/janelia-flyem/segedit/vol"
)

// Session is an editing session over one label volume.
type Session struct {
	id string

	store    *cubestore.MemStore
	backing  *cubestore.Backing
	loader   *cubestore.Loader
	graph    *segment.Graph
	editor   *editor.Editor
	splitter *split.Engine
	brush    editor.Brush
	sink     notify.Sink

	background uint64

	// voxel counts per label over every cube ever made resident
	counts  map[uint64]int64
	counted map[vol.ChunkPoint3d]struct{}

	mutationID uint64
}

// New starts a session.  If store is nil, an empty store with the configured
// geometry is created.  Cubes already resident in the store are counted and their
// labels become singleton objects.  A nil sink drops mutation records.
func New(c *config.Config, store *cubestore.MemStore, sink notify.Sink) (*Session, error) {
	if c == nil {
		c = config.Default()
	}
	brush, err := c.NewBrush()
	if err != nil {
		return nil, err
	}
	if store == nil {
		store = cubestore.NewMemStore(c.Geometry())
	}
	background := c.Volume.Background
	s := &Session{
		id:         uuid.NewV4().String(),
		store:      store,
		graph:      segment.NewGraph(background),
		brush:      brush,
		sink:       sink,
		background: background,
		counts:     make(map[uint64]int64),
		counted:    make(map[vol.ChunkPoint3d]struct{}),
	}
	s.editor = editor.New(store, c.Region(), background)
	s.splitter = split.New(s.graph, s.editor)

	if c.Persistent() {
		bc, err := c.BackingConfig()
		if err != nil {
			return nil, err
		}
		if s.backing, err = cubestore.OpenBacking(bc); err != nil {
			return nil, err
		}
		s.loader = cubestore.NewLoader(store, s.backing, c.Store.LoadWorkers)
	}

	if err := s.countResident(); err != nil {
		return nil, err
	}
	vol.Infof("Started session %s over %d resident cubes, editable region %s\n", s.id, len(s.counted), s.editor.Region())
	return s, nil
}

// ID returns the session's unique id.
func (s *Session) ID() string {
	return s.id
}

// Graph returns the segmentation graph.  Callers must not mutate it concurrently
// with the session.
func (s *Session) Graph() *segment.Graph {
	return s.graph
}

// Store returns the cube store.
func (s *Session) Store() *cubestore.MemStore {
	return s.store
}

// Brush returns the current brush.
func (s *Session) Brush() editor.Brush {
	return s.brush
}

// SetBrush replaces the current brush.
func (s *Session) SetBrush(b editor.Brush) {
	s.brush = b
}

// Region returns the editable region.
func (s *Session) Region() vol.Bounds {
	return s.editor.Region()
}

// SetRegion moves the editable region.
func (s *Session) SetRegion(region vol.Bounds) {
	s.editor.SetRegion(region)
	s.publish("region", map[string]interface{}{"Min": region.Min, "Max": region.Max})
}

// Close flushes modified cubes, closes the backing store and the sink.
func (s *Session) Close(ctx context.Context) error {
	var first error
	if s.loader != nil {
		if err := s.loader.Flush(ctx); err != nil {
			first = err
		}
	}
	if s.backing != nil {
		if err := s.backing.Close(); err != nil && first == nil {
			first = err
		}
	}
	if s.sink != nil {
		if err := s.sink.Close(); err != nil && first == nil {
			first = err
		}
	}
	vol.Infof("Closed session %s after %d mutations\n", s.id, s.mutationID)
	return first
}

// publish sends a mutation record in the layout of labelmap mutation logs.
func (s *Session) publish(action string, fields map[string]interface{}) {
	s.mutationID++
	msg := map[string]interface{}{
		"Action":     action,
		"MutationID": s.mutationID,
		"Session":    s.id,
		"Timestamp":  time.Now().String(),
	}
	for k, v := range fields {
		msg[k] = v
	}
	if err := notify.Publish(s.sink, msg); err != nil {
		vol.Errorf("unable to publish %s mutation %d: %v\n", action, s.mutationID, err)
	}
}

// labelAt reads the label of a global voxel.
func (s *Session) labelAt(p vol.Point3d) (uint64, error) {
	label, found := s.store.Label(p)
	if !found {
		missing := map[vol.ChunkPoint3d]struct{}{s.store.Geometry().CubeOf(p): {}}
		return 0, vol.NewStorageUnavailableError(missing)
	}
	return label, nil
}

// objectAt returns the largest object containing the label at a voxel.
func (s *Session) objectAt(p vol.Point3d) (segment.Object, error) {
	label, err := s.labelAt(p)
	if err != nil {
		return segment.Object{}, err
	}
	if label == s.background {
		return segment.Object{}, fmt.Errorf("no object at background voxel %s: %w", p, vol.ErrNotFound)
	}
	if _, err := s.graph.SubObjectFromID(label, p); err != nil {
		return segment.Object{}, err
	}
	return s.graph.LargestObjectContainingSubObject(label)
}

// Objects returns copies of all objects sorted by id.
func (s *Session) Objects() []segment.Object {
	objs := s.graph.Objects()
	sort.Slice(objs, func(i, j int) bool { return objs[i].ID < objs[j].ID })
	return objs
}

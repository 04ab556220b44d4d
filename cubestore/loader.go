package cubestore

import (
	"context"
	"fmt"
	"sync"

	"github.com/janelia-flyem/segedit/vol"

	"golang.org/x/sync/errgroup"
)

// DefaultLoadWorkers is the number of concurrent cube fetches if unconfigured.
const DefaultLoadWorkers = 8

// Loaded describes a cube that became resident, with the voxel count of each label
// taken at insertion time.
type Loaded struct {
	Coord     vol.ChunkPoint3d
	Histogram map[uint64]int64
}

// Loader moves cubes between a MemStore and its Backing.  Fetching, decoding and
// encoding happen outside the store lock; only insertion, removal and snapshots of
// resident cubes take it, so foreground edits interleave with loading.
type Loader struct {
	store   *MemStore
	backing *Backing
	workers int

	// CreateMissing makes cubes never written to the backing resident as background.
	// Otherwise they stay absent and edits report them as unavailable.
	CreateMissing bool
}

// NewLoader returns a loader using the given number of concurrent workers.
func NewLoader(store *MemStore, backing *Backing, workers int) *Loader {
	if workers <= 0 {
		workers = DefaultLoadWorkers
	}
	return &Loader{store: store, backing: backing, workers: workers, CreateMissing: true}
}

// Load makes the given cubes resident.  Cubes already resident are skipped and not
// reported.  It returns the cubes actually inserted.
func (l *Loader) Load(ctx context.Context, coords []vol.ChunkPoint3d) ([]Loaded, error) {
	geom := l.store.Geometry()

	l.store.Lock()
	var needed []vol.ChunkPoint3d
	for _, coord := range coords {
		if _, found := l.store.TryGetCube(coord); !found {
			needed = append(needed, coord)
		}
	}
	l.store.Unlock()

	var (
		mu      sync.Mutex
		fetched []*Cube
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.workers)
	for _, coord := range needed {
		coord := coord
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			c, found, err := l.backing.Get(coord)
			if err != nil {
				return err
			}
			if !found {
				if !l.CreateMissing {
					vol.Debugf("cube %s not in backing store; leaving it unavailable\n", coord)
					return nil
				}
				c = NewCube(coord, geom.CubeEdge, 0)
			}
			if c.Edge() != geom.CubeEdge {
				return fmt.Errorf("cube %s has edge %d, store expects %d", coord, c.Edge(), geom.CubeEdge)
			}
			mu.Lock()
			fetched = append(fetched, c)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	loaded := make([]Loaded, 0, len(fetched))
	l.store.Lock()
	for _, c := range fetched {
		if _, found := l.store.TryGetCube(c.Coord); found {
			continue // raced with another load
		}
		l.store.Put(c)
		loaded = append(loaded, Loaded{Coord: c.Coord, Histogram: c.Histogram()})
	}
	l.store.Unlock()

	vol.Debugf("Loaded %d of %d requested cubes\n", len(loaded), len(coords))
	return loaded, nil
}

// snapshot copies resident cubes so they can be encoded outside the lock.
func (l *Loader) snapshot(coords []vol.ChunkPoint3d, remove bool) []*Cube {
	l.store.Lock()
	defer l.store.Unlock()

	var cubes []*Cube
	for _, coord := range coords {
		var (
			c     *Cube
			found bool
		)
		if remove {
			c, found = l.store.Remove(coord)
		} else {
			c, found = l.store.TryGetCube(coord)
		}
		if !found {
			continue
		}
		cubes = append(cubes, &Cube{Coord: c.Coord, edge: c.edge, labels: c.Labels()})
	}
	return cubes
}

func (l *Loader) write(ctx context.Context, cubes []*Cube) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.workers)
	for _, c := range cubes {
		c := c
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return l.backing.Put(c)
		})
	}
	return g.Wait()
}

// Flush persists every modified resident cube.  On failure the cubes are marked
// modified again so a later flush retries them.
func (l *Loader) Flush(ctx context.Context) error {
	modified := l.store.TakeModified()
	if len(modified) == 0 {
		return nil
	}
	timedLog := vol.NewTimeLog()
	cubes := l.snapshot(modified, false)
	if err := l.write(ctx, cubes); err != nil {
		for _, coord := range modified {
			l.store.MarkModified(coord)
		}
		return fmt.Errorf("unable to flush %d cubes: %v", len(cubes), err)
	}
	timedLog.Debugf("Flushed %d modified cubes", len(cubes))
	return nil
}

// Evict removes cubes from residency, persisting the modified ones first.
func (l *Loader) Evict(ctx context.Context, coords []vol.ChunkPoint3d) error {
	var dirty, clean []vol.ChunkPoint3d
	for _, coord := range coords {
		if l.store.IsModified(coord) {
			dirty = append(dirty, coord)
		} else {
			clean = append(clean, coord)
		}
	}
	l.snapshot(clean, true)
	cubes := l.snapshot(dirty, true)
	if err := l.write(ctx, cubes); err != nil {
		// put them back so the edits aren't lost
		l.store.Lock()
		for _, c := range cubes {
			if _, found := l.store.TryGetCube(c.Coord); !found {
				l.store.Put(c)
			}
		}
		l.store.Unlock()
		return fmt.Errorf("unable to evict %d modified cubes: %v", len(cubes), err)
	}
	l.store.dirtyMu.Lock()
	for _, c := range cubes {
		delete(l.store.dirty, c.Coord)
	}
	l.store.dirtyMu.Unlock()
	return nil
}

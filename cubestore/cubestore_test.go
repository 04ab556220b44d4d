package cubestore

import (
	"context"
	"errors"
	"testing"

	"github.com/janelia-flyem/segedit/vol"

	"gonum.org/v1/gonum/spatial/r3"
)

func TestGeometryMagnification(t *testing.T) {
	geom := Geometry{CubeEdge: 4, Mag: 2, Scale: r3.Vec{X: 1, Y: 1, Z: 2}}
	if span := geom.Span(); span != (vol.Point3d{8, 8, 8}) {
		t.Fatalf("expected span 8, got %s\n", span)
	}
	p := vol.Point3d{13, 3, -1}
	coord := geom.CubeOf(p)
	if coord != (vol.ChunkPoint3d{1, 0, -1}) {
		t.Fatalf("bad cube for %s: %s\n", p, coord)
	}
	local := geom.LocalOf(p)
	if local != (vol.Point3d{2, 1, 3}) {
		t.Fatalf("bad local for %s: %s\n", p, local)
	}
	// stored voxel covers 2 global voxels; GlobalOf returns the first
	if g := geom.GlobalOf(coord, local); g != (vol.Point3d{12, 2, -2}) {
		t.Fatalf("bad global for local %s: %s\n", local, g)
	}
	b := geom.CubeBounds(coord)
	if b.Min != (vol.Point3d{8, 0, -8}) || b.Max != (vol.Point3d{15, 7, -1}) {
		t.Fatalf("bad cube bounds %s\n", b)
	}
	if s := geom.ScaleAlong(r3.Vec{Z: -1}); s != 2 {
		t.Fatalf("expected z scale 2, got %f\n", s)
	}
}

func TestMemStoreFillRegion(t *testing.T) {
	store := NewMemStore(Geometry{CubeEdge: 4})
	store.FillRegion(vol.Bounds{Min: vol.Point3d{2, 2, 2}, Max: vol.Point3d{5, 3, 3}}, 9)

	modified := store.TakeModified()
	expected := []vol.ChunkPoint3d{{0, 0, 0}, {1, 0, 0}}
	if len(modified) != len(expected) || modified[0] != expected[0] || modified[1] != expected[1] {
		t.Fatalf("expected modified cubes %v, got %v\n", expected, modified)
	}
	if len(store.TakeModified()) != 0 {
		t.Fatalf("TakeModified didn't clear record\n")
	}
	for _, tc := range []struct {
		p     vol.Point3d
		label uint64
	}{
		{vol.Point3d{2, 2, 2}, 9},
		{vol.Point3d{5, 3, 3}, 9},
		{vol.Point3d{1, 2, 2}, 0},
		{vol.Point3d{6, 3, 3}, 0},
	} {
		label, found := store.Label(tc.p)
		if !found || label != tc.label {
			t.Errorf("expected label %d at %s, got %d (found %t)\n", tc.label, tc.p, label, found)
		}
	}
	if _, found := store.Label(vol.Point3d{0, 0, 8}); found {
		t.Errorf("expected no resident cube at z=8\n")
	}
}

func TestCodec(t *testing.T) {
	c := NewCube(vol.ChunkPoint3d{3, -1, 2}, 8, 17)
	c.WriteLabel(vol.Point3d{1, 2, 3}, 1<<40)
	c.WriteLabel(vol.Point3d{7, 7, 7}, 0)

	for _, compression := range []Compression{Uncompressed, Snappy, Zstd} {
		codec, err := NewCodec(compression)
		if err != nil {
			t.Fatalf("can't create codec: %v\n", err)
		}
		record, err := codec.Encode(c)
		if err != nil {
			t.Fatalf("can't encode with %s: %v\n", compression, err)
		}
		got, err := codec.Decode(c.Coord, record)
		if err != nil {
			t.Fatalf("can't decode with %s: %v\n", compression, err)
		}
		if got.Edge() != 8 || got.ReadLabel(vol.Point3d{1, 2, 3}) != 1<<40 ||
			got.ReadLabel(vol.Point3d{7, 7, 7}) != 0 || got.ReadLabel(vol.Point3d{0, 0, 0}) != 17 {
			t.Fatalf("%s codec didn't preserve labels\n", compression)
		}
	}
	if _, err := ParseCompression("lz77"); err == nil {
		t.Fatalf("expected error on unknown compression\n")
	}
}

func openTestBacking(t *testing.T) *Backing {
	b, err := OpenBacking(BackingConfig{InMemory: true, Compression: Snappy, CacheBytes: 1 << 20})
	if err != nil {
		t.Fatalf("can't open in-memory backing: %v\n", err)
	}
	t.Cleanup(func() { b.Close() })
	return b
}

func TestBacking(t *testing.T) {
	b := openTestBacking(t)
	coord := vol.ChunkPoint3d{0, 1, 2}
	if _, found, err := b.Get(coord); err != nil || found {
		t.Fatalf("expected no cube in empty store, got found %t, err %v\n", found, err)
	}
	c := NewCube(coord, 4, 5)
	if err := b.Put(c); err != nil {
		t.Fatalf("can't put cube: %v\n", err)
	}
	got, found, err := b.Get(coord)
	if err != nil || !found {
		t.Fatalf("can't get stored cube: found %t, err %v\n", found, err)
	}
	if got.ReadLabel(vol.Point3d{3, 3, 3}) != 5 {
		t.Fatalf("bad label in stored cube\n")
	}
	if err := b.Delete(coord); err != nil {
		t.Fatalf("can't delete cube: %v\n", err)
	}
	if _, found, _ := b.Get(coord); found {
		t.Fatalf("deleted cube still found\n")
	}
}

func TestLoader(t *testing.T) {
	ctx := context.Background()
	b := openTestBacking(t)
	geom := Geometry{CubeEdge: 4}
	if err := b.Put(NewCube(vol.ChunkPoint3d{0, 0, 0}, 4, 3)); err != nil {
		t.Fatal(err)
	}

	store := NewMemStore(geom)
	loader := NewLoader(store, b, 2)
	loader.CreateMissing = false
	loaded, err := loader.Load(ctx, []vol.ChunkPoint3d{{0, 0, 0}, {1, 0, 0}})
	if err != nil {
		t.Fatalf("load failed: %v\n", err)
	}
	if len(loaded) != 1 || loaded[0].Coord != (vol.ChunkPoint3d{0, 0, 0}) || loaded[0].Histogram[3] != 64 {
		t.Fatalf("unexpected loaded cubes: %v\n", loaded)
	}
	if _, found := store.Label(vol.Point3d{4, 0, 0}); found {
		t.Fatalf("missing cube should not be resident without CreateMissing\n")
	}

	// loading again skips resident cubes
	loader.CreateMissing = true
	loaded, err = loader.Load(ctx, []vol.ChunkPoint3d{{0, 0, 0}, {1, 0, 0}})
	if err != nil {
		t.Fatal(err)
	}
	if len(loaded) != 1 || loaded[0].Coord != (vol.ChunkPoint3d{1, 0, 0}) || loaded[0].Histogram[0] != 64 {
		t.Fatalf("unexpected second load: %v\n", loaded)
	}

	// edit, evict, reload
	store.FillRegion(vol.Bounds{Min: vol.Point3d{4, 0, 0}, Max: vol.Point3d{4, 0, 0}}, 11)
	if err := loader.Evict(ctx, []vol.ChunkPoint3d{{0, 0, 0}, {1, 0, 0}}); err != nil {
		t.Fatalf("evict failed: %v\n", err)
	}
	store.Lock()
	numResident := len(store.Resident())
	store.Unlock()
	if numResident != 0 {
		t.Fatalf("expected no resident cubes after eviction, got %d\n", numResident)
	}
	if store.IsModified(vol.ChunkPoint3d{1, 0, 0}) {
		t.Fatalf("evicted cube still marked modified\n")
	}
	if _, err := loader.Load(ctx, []vol.ChunkPoint3d{{1, 0, 0}}); err != nil {
		t.Fatal(err)
	}
	if label, _ := store.Label(vol.Point3d{4, 0, 0}); label != 11 {
		t.Fatalf("edit lost across eviction, got label %d\n", label)
	}

	// flush persists modified cubes
	store.FillRegion(vol.Bounds{Min: vol.Point3d{5, 0, 0}, Max: vol.Point3d{5, 0, 0}}, 12)
	if err := loader.Flush(ctx); err != nil {
		t.Fatalf("flush failed: %v\n", err)
	}
	persisted, found, err := b.Get(vol.ChunkPoint3d{1, 0, 0})
	if err != nil || !found || persisted.ReadLabel(vol.Point3d{1, 0, 0}) != 12 {
		t.Fatalf("flush didn't persist edit (found %t, err %v)\n", found, err)
	}

	cctx, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := loader.Load(cctx, []vol.ChunkPoint3d{{5, 5, 5}}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation error, got %v\n", err)
	}
}

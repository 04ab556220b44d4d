package session

import (
	"context"
	"fmt"
	"sort"

	"github.com/janelia-flyem/segedit/vol"
)

// countResident adds the histograms of resident cubes not counted before.
func (s *Session) countResident() error {
	s.store.Lock()
	coords := s.store.Resident()
	hists := make(map[vol.ChunkPoint3d]map[uint64]int64, len(coords))
	for _, coord := range coords {
		if _, done := s.counted[coord]; done {
			continue
		}
		if c, found := s.store.TryGetCube(coord); found {
			hists[coord] = c.Histogram()
		}
	}
	s.store.Unlock()

	for _, coord := range coords {
		if hist, found := hists[coord]; found {
			if err := s.countCube(coord, hist); err != nil {
				return err
			}
		}
	}
	return nil
}

// countCube adds a newly resident cube's labels to the counts and registers unseen
// labels as subobjects.
func (s *Session) countCube(coord vol.ChunkPoint3d, hist map[uint64]int64) error {
	if _, done := s.counted[coord]; done {
		return nil
	}
	s.counted[coord] = struct{}{}
	labels := make([]uint64, 0, len(hist))
	for label := range hist {
		labels = append(labels, label)
	}
	sort.Slice(labels, func(i, j int) bool { return labels[i] < labels[j] })

	location := s.store.Geometry().CubeBounds(coord).Min
	for _, label := range labels {
		s.counts[label] += hist[label]
		if label == s.background {
			continue
		}
		s.graph.ReserveLabel(label)
		if _, err := s.graph.SubObjectFromID(label, location); err != nil {
			return fmt.Errorf("can't register label %d of cube %s: %v", label, coord, err)
		}
	}
	return nil
}

// applyDelta updates voxel counts after an edit.  Labels whose count drops to zero
// are removed from the graph, together with any object left empty.  It returns the
// removed labels.
func (s *Session) applyDelta(delta map[uint64]int64) ([]uint64, error) {
	labels := make([]uint64, 0, len(delta))
	for label := range delta {
		labels = append(labels, label)
	}
	sort.Slice(labels, func(i, j int) bool { return labels[i] < labels[j] })

	var removed []uint64
	for _, label := range labels {
		s.counts[label] += delta[label]
		if label == s.background || s.counts[label] > 0 {
			continue
		}
		delete(s.counts, label)
		if !s.graph.HasSubObject(label) {
			continue
		}
		if err := s.graph.RemoveSubObject(label); err != nil {
			return removed, err
		}
		vol.Debugf("label %d has no voxels left, removed from graph\n", label)
		removed = append(removed, label)
	}
	return removed, nil
}

// VoxelCount returns the number of stored voxels of a label over all cubes made
// resident during the session.
func (s *Session) VoxelCount(label uint64) int64 {
	return s.counts[label]
}

// Load makes the cubes overlapping a box resident and counts them.
func (s *Session) Load(ctx context.Context, box vol.Bounds) error {
	if s.loader == nil {
		return fmt.Errorf("session %s has no backing store to load from", s.id)
	}
	geom := s.store.Geometry()
	first, last := geom.CubeOf(box.Min), geom.CubeOf(box.Max)
	var coords []vol.ChunkPoint3d
	for z := first[2]; z <= last[2]; z++ {
		for y := first[1]; y <= last[1]; y++ {
			for x := first[0]; x <= last[0]; x++ {
				coords = append(coords, vol.ChunkPoint3d{x, y, z})
			}
		}
	}
	timedLog := vol.NewTimeLog()
	loaded, err := s.loader.Load(ctx, coords)
	if err != nil {
		return err
	}
	for _, l := range loaded {
		if err := s.countCube(l.Coord, l.Histogram); err != nil {
			return err
		}
	}
	timedLog.Infof("loaded %d of %d cubes in %s", len(loaded), len(coords), box)
	return nil
}

// Flush persists modified cubes.
func (s *Session) Flush(ctx context.Context) error {
	if s.loader == nil {
		return fmt.Errorf("session %s has no backing store to flush to", s.id)
	}
	return s.loader.Flush(ctx)
}

// Evict persists and drops the given cubes.  Their voxels stay counted.
func (s *Session) Evict(ctx context.Context, coords []vol.ChunkPoint3d) error {
	if s.loader == nil {
		return fmt.Errorf("session %s has no backing store to evict to", s.id)
	}
	return s.loader.Evict(ctx, coords)
}

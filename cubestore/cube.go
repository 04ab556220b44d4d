package cubestore

import (
	"fmt"

	"github.com/janelia-flyem/segedit/vol"
)

// Cube is a dense edge^3 block of uint64 labels in x-fastest order.
type Cube struct {
	Coord  vol.ChunkPoint3d
	edge   int32
	labels []uint64
}

// NewCube returns a cube with every voxel set to the given label.
func NewCube(coord vol.ChunkPoint3d, edge int32, label uint64) *Cube {
	c := &Cube{
		Coord:  coord,
		edge:   edge,
		labels: make([]uint64, int(edge)*int(edge)*int(edge)),
	}
	if label != 0 {
		c.Fill(label)
	}
	return c
}

// NewCubeFromLabels wraps a label slice, which must hold exactly edge^3 labels.
func NewCubeFromLabels(coord vol.ChunkPoint3d, edge int32, labels []uint64) (*Cube, error) {
	if expected := int(edge) * int(edge) * int(edge); len(labels) != expected {
		return nil, fmt.Errorf("cube %s of edge %d needs %d labels, got %d", coord, edge, expected, len(labels))
	}
	return &Cube{Coord: coord, edge: edge, labels: labels}, nil
}

// Edge returns the number of voxels along each side.
func (c *Cube) Edge() int32 {
	return c.edge
}

func (c *Cube) offset(local vol.Point3d) int {
	e := int(c.edge)
	return (int(local[2])*e+int(local[1]))*e + int(local[0])
}

// ReadLabel returns the label at a local coordinate.
func (c *Cube) ReadLabel(local vol.Point3d) uint64 {
	return c.labels[c.offset(local)]
}

// WriteLabel sets the label at a local coordinate.
func (c *Cube) WriteLabel(local vol.Point3d, label uint64) {
	c.labels[c.offset(local)] = label
}

// Fill sets every voxel to the given label.
func (c *Cube) Fill(label uint64) {
	for i := range c.labels {
		c.labels[i] = label
	}
}

// Histogram returns the number of voxels per label.
func (c *Cube) Histogram() map[uint64]int64 {
	hist := make(map[uint64]int64)
	for _, label := range c.labels {
		hist[label]++
	}
	return hist
}

// Labels returns a copy of the cube's labels.
func (c *Cube) Labels() []uint64 {
	out := make([]uint64, len(c.labels))
	copy(out, c.labels)
	return out
}

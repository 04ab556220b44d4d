package vol

import (
	"fmt"
	"strconv"
	"strings"
)

// Point3d is a voxel coordinate in global space.
type Point3d [3]int32

// Add returns the component-wise sum of two points.
func (p Point3d) Add(x Point3d) Point3d {
	return Point3d{p[0] + x[0], p[1] + x[1], p[2] + x[2]}
}

// Sub returns the component-wise difference p - x.
func (p Point3d) Sub(x Point3d) Point3d {
	return Point3d{p[0] - x[0], p[1] - x[1], p[2] - x[2]}
}

// Prod returns the product of the point elements.
func (p Point3d) Prod() int64 {
	return int64(p[0]) * int64(p[1]) * int64(p[2])
}

// SetMinimum sets the point to the minimum elements of current and passed points.
func (p *Point3d) SetMinimum(p2 Point3d) {
	for i := 0; i < 3; i++ {
		if p[i] > p2[i] {
			p[i] = p2[i]
		}
	}
}

// SetMaximum sets the point to the maximum elements of current and passed points.
func (p *Point3d) SetMaximum(p2 Point3d) {
	for i := 0; i < 3; i++ {
		if p[i] < p2[i] {
			p[i] = p2[i]
		}
	}
}

func (p Point3d) String() string {
	return fmt.Sprintf("(%d,%d,%d)", p[0], p[1], p[2])
}

// Chunk returns the coordinate of the chunk of the given size containing the point.
func (p Point3d) Chunk(size Point3d) ChunkPoint3d {
	var c ChunkPoint3d
	for i := 0; i < 3; i++ {
		if p[i] < 0 {
			c[i] = (p[i] - size[i] + 1) / size[i]
		} else {
			c[i] = p[i] / size[i]
		}
	}
	return c
}

// PointInChunk returns the point relative to the first voxel of its containing chunk.
func (p Point3d) PointInChunk(size Point3d) Point3d {
	var q Point3d
	for i := 0; i < 3; i++ {
		if p[i] < 0 {
			q[i] = size[i] - 1 - ((-p[i] - 1) % size[i])
		} else {
			q[i] = p[i] % size[i]
		}
	}
	return q
}

// StringToPoint3d parses a separated string like "10,20,30" into a Point3d.
func StringToPoint3d(str, separator string) (p Point3d, err error) {
	elems := strings.Split(str, separator)
	if len(elems) != 3 {
		return p, fmt.Errorf("cannot convert %q into a 3d point", str)
	}
	for i, elem := range elems {
		var v int64
		if v, err = strconv.ParseInt(strings.TrimSpace(elem), 10, 32); err != nil {
			return p, fmt.Errorf("bad coordinate %q in %q: %v", elem, str, err)
		}
		p[i] = int32(v)
	}
	return p, nil
}

// ChunkPoint3d is the coordinate of a chunk (cube) in chunk space.
type ChunkPoint3d [3]int32

func (c ChunkPoint3d) String() string {
	return fmt.Sprintf("(%d,%d,%d)", c[0], c[1], c[2])
}

// MinPoint returns the smallest voxel coordinate of the chunk.
func (c ChunkPoint3d) MinPoint(size Point3d) Point3d {
	return Point3d{c[0] * size[0], c[1] * size[1], c[2] * size[2]}
}

// MaxPoint returns the largest voxel coordinate of the chunk.
func (c ChunkPoint3d) MaxPoint(size Point3d) Point3d {
	return Point3d{
		(c[0]+1)*size[0] - 1,
		(c[1]+1)*size[1] - 1,
		(c[2]+1)*size[2] - 1,
	}
}

// Less orders chunk coordinates z, then y, then x, the way cubes are laid out on disk.
func (c ChunkPoint3d) Less(x ChunkPoint3d) bool {
	if c[2] != x[2] {
		return c[2] < x[2]
	}
	if c[1] != x[1] {
		return c[1] < x[1]
	}
	return c[0] < x[0]
}

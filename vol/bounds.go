package vol

import "fmt"

// Bounds is an inclusive axis-aligned box of voxels.  The editable region and every
// brush footprint are expressed as Bounds.
type Bounds struct {
	Min Point3d
	Max Point3d
}

// NewBounds returns the box spanned by two corner points given in any order.
func NewBounds(a, b Point3d) Bounds {
	bnd := Bounds{Min: a, Max: a}
	bnd.Min.SetMinimum(b)
	bnd.Max.SetMaximum(b)
	return bnd
}

// Empty is true if the box contains no voxel.
func (b Bounds) Empty() bool {
	return b.Min[0] > b.Max[0] || b.Min[1] > b.Max[1] || b.Min[2] > b.Max[2]
}

// Contains returns true if the point lies inside the box.
func (b Bounds) Contains(p Point3d) bool {
	for i := 0; i < 3; i++ {
		if p[i] < b.Min[i] || p[i] > b.Max[i] {
			return false
		}
	}
	return true
}

// Clamp moves the point onto the nearest voxel inside the box.
func (b Bounds) Clamp(p Point3d) Point3d {
	for i := 0; i < 3; i++ {
		if p[i] < b.Min[i] {
			p[i] = b.Min[i]
		} else if p[i] > b.Max[i] {
			p[i] = b.Max[i]
		}
	}
	return p
}

// Intersect returns the overlap of two boxes, which may be Empty.
func (b Bounds) Intersect(x Bounds) Bounds {
	out := b
	out.Min.SetMaximum(x.Min)
	out.Max.SetMinimum(x.Max)
	return out
}

// NumVoxels returns the number of voxels in the box.
func (b Bounds) NumVoxels() int64 {
	if b.Empty() {
		return 0
	}
	return b.Max.Sub(b.Min).Add(Point3d{1, 1, 1}).Prod()
}

func (b Bounds) String() string {
	return fmt.Sprintf("[%s,%s]", b.Min, b.Max)
}

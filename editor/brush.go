package editor

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"
)

// Shape is the footprint of a brush.
type Shape uint8

const (
	// Angular brushes cover a box.
	Angular Shape = iota

	// Round brushes cover an ellipsoid in voxel space, a sphere in physical space.
	Round
)

func (s Shape) String() string {
	switch s {
	case Angular:
		return "angular"
	case Round:
		return "round"
	default:
		return fmt.Sprintf("shape(%d)", uint8(s))
	}
}

// ParseShape returns the shape with the given name.
func ParseShape(s string) (Shape, error) {
	switch strings.ToLower(s) {
	case "angular", "box":
		return Angular, nil
	case "round", "sphere":
		return Round, nil
	}
	return Angular, fmt.Errorf("unknown brush shape %q", s)
}

// Mode is the dimensionality of a brush.
type Mode uint8

const (
	// TwoDim brushes are restricted to the view plane.
	TwoDim Mode = iota
	ThreeDim
)

func (m Mode) String() string {
	switch m {
	case TwoDim:
		return "2d"
	case ThreeDim:
		return "3d"
	default:
		return fmt.Sprintf("mode(%d)", uint8(m))
	}
}

// ParseMode returns the mode with the given name.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "2d", "two_dim":
		return TwoDim, nil
	case "3d", "three_dim":
		return ThreeDim, nil
	}
	return ThreeDim, fmt.Errorf("unknown brush mode %q", s)
}

// Brush describes a footprint in the frame of the current view.
type Brush struct {
	Shape Shape
	Mode  Mode

	// Inverse brushes erase to background, restricted to selected labels if any
	// object is selected.
	Inverse bool

	// Radius in physical units, e.g., nm.
	Radius float64

	// V1 and V2 span the view plane and N is its normal.  They must be orthonormal.
	V1, V2, N r3.Vec
}

// Axis identifies one of the orthogonal views.
type Axis uint8

const (
	XY Axis = iota
	XZ
	ZY
)

// ParseAxis returns the view with the given name.
func ParseAxis(s string) (Axis, error) {
	switch strings.ToLower(s) {
	case "xy":
		return XY, nil
	case "xz":
		return XZ, nil
	case "zy", "yz":
		return ZY, nil
	}
	return XY, fmt.Errorf("unknown view axis %q", s)
}

func (a Axis) String() string {
	switch a {
	case XY:
		return "xy"
	case XZ:
		return "xz"
	case ZY:
		return "zy"
	default:
		return fmt.Sprintf("axis(%d)", uint8(a))
	}
}

// Frame returns the in-plane axes and normal of an orthogonal view.
func (a Axis) Frame() (v1, v2, n r3.Vec) {
	x, y, z := r3.Vec{X: 1}, r3.Vec{Y: 1}, r3.Vec{Z: 1}
	switch a {
	case XZ:
		return x, z, y
	case ZY:
		return z, y, x
	default:
		return x, y, z
	}
}

// NewBrush returns a brush in the given orthogonal view.
func NewBrush(shape Shape, mode Mode, radius float64, view Axis) Brush {
	b := Brush{Shape: shape, Mode: mode, Radius: radius}
	b.V1, b.V2, b.N = view.Frame()
	return b
}

func (b Brush) String() string {
	s := fmt.Sprintf("%s %s brush radius %g", b.Shape, b.Mode, b.Radius)
	if b.Inverse {
		s += " (inverse)"
	}
	return s
}

// Package xform defines the transform enumeration used by package
// surface (a surface's buffer transform) and package output (an
// output's geometry transform). Package view does not use it: a view's
// transform is a linear.M4.
package xform

import "image"

// Transform identifies one of the eight symmetries of the square
// (rotations by multiples of 90 degrees, optionally flipped), matching
// the Wayland wl_output.transform enumeration's value space.
type Transform int

// Valid transform values.
const (
	Normal Transform = iota
	Rotated90
	Rotated180
	Rotated270
	Flipped
	Flipped90
	Flipped180
	Flipped270
)

// Valid reports whether t is one of the eight defined transforms.
func Valid(t Transform) bool {
	return t >= Normal && t <= Flipped270
}

// SwapsAxes reports whether applying t swaps width and height, i.e. a
// 90 or 270 degree rotation (flipped or not).
func (t Transform) SwapsAxes() bool {
	switch t {
	case Rotated90, Rotated270, Flipped90, Flipped270:
		return true
	default:
		return false
	}
}

// Size applies t to a buffer of dimensions (w, h), returning the
// surface-local size as SPEC_FULL.md §3 defines it: axes swapped on a
// 90/270 rotation, then divided by scale by the caller.
func (t Transform) Size(w, h int) (sw, sh int) {
	if t.SwapsAxes() {
		return h, w
	}
	return w, h
}

// ApplyBounds transforms a (0,0)-(w,h) rectangle by t, returning the
// axis-aligned rectangle in the transformed space. Nothing else in this
// module calls it.
func (t Transform) ApplyBounds(w, h int) image.Rectangle {
	sw, sh := t.Size(w, h)
	return image.Rect(0, 0, sw, sh)
}

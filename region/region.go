// Package region implements the mutable rectangle set used throughout
// the compositor core for damage, opaque, input, clip and visible
// regions. Numeric policy is integer pixels only, matching SPEC_FULL.md
// §4.3: callers that have a fractional transform are responsible for
// rounding outward before handing rectangles to this package.
//
// Region reuses the stdlib image.Rectangle/image.Point types for its
// elements rather than defining its own, following the corpus's own
// habit (friedelschoen-ctxmenu, gazed-vu) of treating image.Rectangle as
// the lingua franca for 2D integer geometry.
package region

import "image"

// Region is a set of non-overlapping rectangles. The zero value is the
// empty region.
type Region struct {
	rects []image.Rectangle
}

// New returns a Region containing exactly the given rectangles, merged
// and normalized as if by repeated Add.
func New(rects ...image.Rectangle) Region {
	var r Region
	for _, rc := range rects {
		r.Add(rc)
	}
	return r
}

// Empty reports whether the region contains no area.
func (r *Region) Empty() bool { return len(r.rects) == 0 }

// Rects returns the region's rectangles. The returned slice must not be
// modified; it may alias r's internal storage.
func (r *Region) Rects() []image.Rectangle { return r.rects }

// Bounds returns the smallest rectangle containing the whole region.
func (r *Region) Bounds() image.Rectangle {
	if len(r.rects) == 0 {
		return image.Rectangle{}
	}
	b := r.rects[0]
	for _, rc := range r.rects[1:] {
		b = b.Union(rc)
	}
	return b
}

// Add unions rect into the region. A zero-area rectangle is a no-op.
func (r *Region) Add(rect image.Rectangle) {
	if rect.Empty() {
		return
	}
	pieces := []image.Rectangle{rect}
	for _, rc := range r.rects {
		var rest []image.Rectangle
		for _, p := range pieces {
			rest = append(rest, subtractOne(p, rc)...)
		}
		pieces = rest
	}
	r.rects = append(r.rects, pieces...)
	r.normalize()
}

// Subtract removes rect's area from the region. A zero-area rectangle
// is a no-op.
func (r *Region) Subtract(rect image.Rectangle) {
	if rect.Empty() || len(r.rects) == 0 {
		return
	}
	var out []image.Rectangle
	for _, rc := range r.rects {
		out = append(out, subtractOne(rc, rect)...)
	}
	r.rects = out
	r.normalize()
}

// Union unions another region into r.
func (r *Region) Union(other Region) {
	for _, rc := range other.rects {
		r.Add(rc)
	}
}

// Intersect replaces r with its intersection against other.
func (r *Region) Intersect(other Region) {
	if len(r.rects) == 0 || len(other.rects) == 0 {
		r.rects = nil
		return
	}
	var out []image.Rectangle
	for _, a := range r.rects {
		for _, b := range other.rects {
			if i := a.Intersect(b); !i.Empty() {
				out = append(out, i)
			}
		}
	}
	r.rects = out
	r.normalize()
}

// IntersectRect replaces r with its intersection against a single
// rectangle. This is the common case (clipping a region to a plane or
// output extent) and avoids constructing an intermediate Region.
func (r *Region) IntersectRect(rect image.Rectangle) {
	if len(r.rects) == 0 {
		return
	}
	var out []image.Rectangle
	for _, a := range r.rects {
		if i := a.Intersect(rect); !i.Empty() {
			out = append(out, i)
		}
	}
	r.rects = out
}

// Translate offsets every rectangle in the region by (dx, dy).
func (r *Region) Translate(dx, dy int) {
	for i := range r.rects {
		r.rects[i] = r.rects[i].Add(image.Pt(dx, dy))
	}
}

// Clear empties the region.
func (r *Region) Clear() { r.rects = nil }

// Clone returns an independent copy of r.
func (r *Region) Clone() Region {
	out := Region{rects: make([]image.Rectangle, len(r.rects))}
	copy(out.rects, r.rects)
	return out
}

// Equal reports whether r and other describe the same set of pixels,
// however each of them is split into rectangles.
func (r *Region) Equal(other Region) bool {
	d := SymmetricDifference(*r, other)
	return d.Empty()
}

// Intersects reports whether r and rect share any area.
func (r *Region) Intersects(rect image.Rectangle) bool {
	for _, a := range r.rects {
		if !a.Intersect(rect).Empty() {
			return true
		}
	}
	return false
}

// SymmetricDifference returns the region covered by exactly one of a, b.
// This is the "changed pixels" operator used by the damage engine's
// per-plane damage rule (§4.3 step 4c).
func SymmetricDifference(a, b Region) Region {
	out := a.Clone()
	out.Subtract2(b)
	bMinusA := b.Clone()
	bMinusA.Subtract2(a)
	out.Union(bMinusA)
	return out
}

// Subtract2 subtracts an entire region (as opposed to Subtract's single
// rectangle) from r.
func (r *Region) Subtract2(other Region) {
	for _, rc := range other.rects {
		r.Subtract(rc)
	}
}

// subtractOne computes rc minus cut, returning zero or more rectangles.
func subtractOne(rc, cut image.Rectangle) []image.Rectangle {
	i := rc.Intersect(cut)
	if i.Empty() {
		return []image.Rectangle{rc}
	}
	var out []image.Rectangle
	// Top strip.
	if i.Min.Y > rc.Min.Y {
		out = append(out, image.Rect(rc.Min.X, rc.Min.Y, rc.Max.X, i.Min.Y))
	}
	// Bottom strip.
	if i.Max.Y < rc.Max.Y {
		out = append(out, image.Rect(rc.Min.X, i.Max.Y, rc.Max.X, rc.Max.Y))
	}
	// Left strip (within the intersection's row band).
	if i.Min.X > rc.Min.X {
		out = append(out, image.Rect(rc.Min.X, i.Min.Y, i.Min.X, i.Max.Y))
	}
	// Right strip (within the intersection's row band).
	if i.Max.X < rc.Max.X {
		out = append(out, image.Rect(i.Max.X, i.Min.Y, rc.Max.X, i.Max.Y))
	}
	return out
}

// normalize merges overlapping/adjacent rectangles and drops empties, so
// the rectangle list stays short. The result is not sorted and depends
// on the order rectangles were added. The algorithm is
// intentionally simple (repeated pairwise merge) since region sets in
// this compositor are small (per-view, per-plane), not general polygon
// soup.
func (r *Region) normalize() {
	for i := 0; i < len(r.rects); i++ {
		if r.rects[i].Empty() {
			r.rects = append(r.rects[:i], r.rects[i+1:]...)
			i--
			continue
		}
	}
	changed := true
	for changed {
		changed = false
		for i := 0; i < len(r.rects); i++ {
			for j := i + 1; j < len(r.rects); j++ {
				if merged, ok := tryMerge(r.rects[i], r.rects[j]); ok {
					r.rects[i] = merged
					r.rects = append(r.rects[:j], r.rects[j+1:]...)
					changed = true
					break
				}
			}
			if changed {
				break
			}
		}
	}
}

// tryMerge merges a and b into a single rectangle if they overlap or
// share a full edge; this keeps the region's rectangle count from
// growing unboundedly for the common "same row/column" damage patterns.
func tryMerge(a, b image.Rectangle) (image.Rectangle, bool) {
	if !a.Overlaps(b) && a.Intersect(b).Empty() {
		// Still allow edge-adjacent merges on one axis.
		if a.Min.Y == b.Min.Y && a.Max.Y == b.Max.Y {
			if a.Max.X == b.Min.X || b.Max.X == a.Min.X {
				return a.Union(b), true
			}
		}
		if a.Min.X == b.Min.X && a.Max.X == b.Max.X {
			if a.Max.Y == b.Min.Y || b.Max.Y == a.Min.Y {
				return a.Union(b), true
			}
		}
		return image.Rectangle{}, false
	}
	// One contains the other, or they overlap on both axes in a way
	// that their union is exactly their bounding box only when they
	// share a full span on one axis.
	if a.Min.Y == b.Min.Y && a.Max.Y == b.Max.Y {
		return a.Union(b), true
	}
	if a.Min.X == b.Min.X && a.Max.X == b.Max.X {
		return a.Union(b), true
	}
	if a.In(b) {
		return b, true
	}
	if b.In(a) {
		return a, true
	}
	return image.Rectangle{}, false
}

// Package assign implements the per-output plane assignment and damage
// engine of SPEC_FULL.md §4.3: on each repaint pass it asks the
// backend to place every visible view onto a plane, computes each
// view's visible region under plane-level occlusion, and derives the
// minimal per-plane damage the backend actually needs to redraw.
// Traversal mirrors the teacher's node.Graph.Update depth-first,
// changed-propagation walk, generalized from "recompute dirty
// transforms" to "recompute dirty visibility/damage".
package assign

import (
	"image"

	"github.com/gviegas/pepper/backend"
	"github.com/gviegas/pepper/output"
	"github.com/gviegas/pepper/plane"
	"github.com/gviegas/pepper/region"
	"github.com/gviegas/pepper/view"
)

// Pass runs one repaint pass's worth of assignment and damage
// computation for o, using be to place views onto planes. It returns
// the planes whose damage is non-empty, in o.Planes order, for the
// caller to hand to backend.OutputBackend.Repaint.
//
// o.Planes must be ordered back-to-front (index 0 is the plane
// furthest from the viewer, e.g. the primary/scanout plane; the last
// index is frontmost, e.g. a cursor plane), since occlusion in step 3
// and the double-paint prevention in step 5 both depend on that order.
func Pass(o *output.Output, be backend.OutputBackend) []*plane.Plane {
	candidates := candidateViews(o)

	assignment := assignPlanes(o, be, candidates)

	computeVisibleRegions(o, assignment)

	rawDamage := computeDamage(o, assignment)

	dirty := subtractOcclusion(o, rawDamage)

	for _, p := range o.Planes {
		p.CommitAssignment()
	}
	clearSurfaceDamage(candidates)

	return dirty
}

// candidateViews implements step 1: the views currently overlapping o
// (already maintained by the owning compositor in o.Views, in global
// back-to-front order) that are mapped, visible, non-empty, and whose
// bounding region intersects the output's current extent.
func candidateViews(o *output.Output) []*view.View {
	extent := outputExtent(o)
	out := make([]*view.View, 0, len(o.Views))
	for _, v := range o.Views {
		if !v.Mapped() || !v.Visible() {
			continue
		}
		b := v.BoundingRegion()
		if b.Empty() {
			continue
		}
		if !b.Intersects(extent) {
			continue
		}
		out = append(out, v)
	}
	return out
}

func outputExtent(o *output.Output) image.Rectangle {
	if o.Current == nil {
		return image.Rectangle{}
	}
	return image.Rect(0, 0, o.Current.Width, o.Current.Height)
}

// assignPlanes implements step 2: the backend places each candidate
// onto a plane; declined views default to the primary plane.
func assignPlanes(o *output.Output, be backend.OutputBackend, candidates []*view.View) map[*view.View]*plane.Plane {
	result := make(map[*view.View]*plane.Plane, len(candidates))
	be.AssignPlanes(candidates, func(v *view.View, p *plane.Plane) bool {
		if p == nil {
			return false
		}
		result[v] = p
		return true
	})
	primary := primaryPlane(o)
	for _, v := range candidates {
		if _, ok := result[v]; !ok {
			result[v] = primary
		}
	}
	return result
}

func primaryPlane(o *output.Output) *plane.Plane {
	for _, p := range o.Planes {
		if p.Kind == plane.Primary {
			return p
		}
	}
	if len(o.Planes) > 0 {
		return o.Planes[0]
	}
	return nil
}

// computeVisibleRegions implements step 3: for each plane, front to
// back, each assigned view's visible region is its bounding region
// minus the clip (opaque coverage) of every plane above it, clipped to
// the output extent. Each plane's own clip for the pass is the union
// of the visible opaque regions just computed for it, and becomes part
// of the occluder for planes below.
func computeVisibleRegions(o *output.Output, assignment map[*view.View]*plane.Plane) {
	extent := outputExtent(o)
	byPlane := viewsByPlane(o, assignment)

	var occluderAbove region.Region
	for i := len(o.Planes) - 1; i >= 0; i-- {
		p := o.Planes[i]
		views := byPlane[p]
		entries := make([]*view.PlaneEntry, 0, len(views))
		var clip region.Region
		for _, v := range views {
			vis := v.BoundingRegion().Clone()
			vis.Subtract2(occluderAbove)
			vis.IntersectRect(extent)

			prevVis, _ := p.PreviouslyAssigned(v)

			entries = append(entries, &view.PlaneEntry{
				View:              v,
				Output:            o,
				Plane:             p,
				VisibleRegion:     vis,
				PrevVisibleRegion: prevVis,
			})

			opaque := v.OpaqueRegion().Clone()
			opaque.Intersect(vis)
			clip.Union(opaque)
		}
		p.SetRenderList(entries)
		p.SetClip(clip)
		occluderAbove.Union(clip)
	}
}

// viewsByPlane groups candidates by their assigned plane, preserving
// each candidate's relative (back-to-front) order.
func viewsByPlane(o *output.Output, assignment map[*view.View]*plane.Plane) map[*plane.Plane][]*view.View {
	out := make(map[*plane.Plane][]*view.View, len(o.Planes))
	for v, p := range assignment {
		out[p] = append(out[p], v)
	}
	// Re-derive a stable back-to-front order per plane from the
	// output's own candidate order, since map iteration above
	// scrambled it.
	order := make(map[*view.View]int, len(assignment))
	for i, v := range candidateOrder(o, assignment) {
		order[v] = i
	}
	for p, views := range out {
		sortByOrder(views, order)
		out[p] = views
	}
	return out
}

func candidateOrder(o *output.Output, assignment map[*view.View]*plane.Plane) []*view.View {
	ordered := make([]*view.View, 0, len(assignment))
	for _, v := range o.Views {
		if _, ok := assignment[v]; ok {
			ordered = append(ordered, v)
		}
	}
	return ordered
}

func sortByOrder(views []*view.View, order map[*view.View]int) {
	for i := 1; i < len(views); i++ {
		j := i
		for j > 0 && order[views[j-1]] > order[views[j]] {
			views[j-1], views[j] = views[j], views[j-1]
			j--
		}
	}
}

// computeDamage implements step 4: the raw, pre-occlusion-subtraction
// damage for every plane.
func computeDamage(o *output.Output, assignment map[*view.View]*plane.Plane) map[*plane.Plane]region.Region {
	raw := make(map[*plane.Plane]region.Region, len(o.Planes))
	for _, p := range o.Planes {
		var damage region.Region

		entriesByView := make(map[*view.View]*view.PlaneEntry, len(p.RenderList()))
		for _, e := range p.RenderList() {
			entriesByView[e.View] = e
		}

		// 4a/4c: newly-assigned views contribute their full visible
		// region; views still present contribute surface damage
		// (transformed to global space) plus the symmetric difference
		// between previous and current visible region.
		for _, e := range p.RenderList() {
			_, wasHere := p.PreviouslyAssigned(e.View)
			if !wasHere {
				damage.Union(e.VisibleRegion)
				continue
			}
			if surf := e.View.Surface(); surf != nil {
				damage.Union(e.View.TransformToGlobal(surf.DamageRegion()))
			}
			damage.Union(region.SymmetricDifference(e.PrevVisibleRegion, e.VisibleRegion))
		}

		// 4b: views previously on this plane but not assigned to it
		// this pass contribute their previous visible region.
		for _, v := range p.PrevViews() {
			if _, stillHere := entriesByView[v]; !stillHere {
				if prevVis, ok := p.PreviouslyAssigned(v); ok {
					damage.Union(prevVis)
				}
			}
		}

		raw[p] = damage
	}
	return raw
}

// subtractOcclusion implements step 5: front to back, each plane's
// damage loses any area already repainted by a plane above it, since a
// plane closer to the viewer fully overwrites whatever is beneath.
func subtractOcclusion(o *output.Output, raw map[*plane.Plane]region.Region) []*plane.Plane {
	var dirty []*plane.Plane
	var aboveDamage region.Region
	final := make(map[*plane.Plane]region.Region, len(o.Planes))
	for i := len(o.Planes) - 1; i >= 0; i-- {
		p := o.Planes[i]
		rp := raw[p]
		d := rp.Clone()
		d.Subtract2(aboveDamage)
		final[p] = d
		aboveDamage.Union(d)
	}
	for _, p := range o.Planes {
		d := final[p]
		p.SetDamage(d)
		if !d.Empty() {
			dirty = append(dirty, p)
		}
	}
	return dirty
}

// clearSurfaceDamage folds each candidate's surface damage into plane
// damage having already happened in computeDamage; this clears the
// surface-local accumulator so the next commit only accumulates what
// is newly damaged.
func clearSurfaceDamage(candidates []*view.View) {
	seen := make(map[*view.View]bool, len(candidates))
	for _, v := range candidates {
		if seen[v] {
			continue
		}
		seen[v] = true
		if surf := v.Surface(); surf != nil {
			surf.ClearDamage()
		}
	}
}

// Package view implements the positioned, transformed scene-graph node
// described in SPEC_FULL.md §3/§4.2: a View presents a surface at a
// position in its parent's coordinate space, with its own children,
// and is ordered within a layer. Intrusive links (next/prev siblings,
// sub first-child) follow the teacher's root-level scene.Node
// (node.go), generalized with an explicit parent pointer and a second,
// independent intrusive link for layer membership.
package view

import (
	"image"

	"github.com/gviegas/pepper/internal/object"
	"github.com/gviegas/pepper/linear"
	"github.com/gviegas/pepper/region"
	"github.com/gviegas/pepper/surface"
)

// PlaneEntry is a view's per-output plane assignment record. The view
// owns its entries exclusively; package plane's render lists hold weak
// (non-owning) references to the same *PlaneEntry values, per
// SPEC_FULL.md §3's ownership summary. Output and Plane are any
// (concrete *output.Output/*plane.Plane) to avoid an import cycle,
// since both of those packages need to reference *View.
type PlaneEntry struct {
	View              *View
	Output            any
	Plane             any
	VisibleRegion     region.Region
	PrevVisibleRegion region.Region
}

// View is a positioned, ordered instance of a surface in the scene.
type View struct {
	object.Object

	x, y int
	w, h int

	local      linear.M4
	localKind  linear.M4Kind
	global     linear.M4
	globalKind linear.M4Kind

	alpha   float32
	visible bool
	mapped  bool

	clipToParent bool
	userClip     *region.Region

	parent *View
	next   *View // next sibling (same parent, or same root list)
	prev   *View // previous sibling; for the first child, refers to parent
	sub    *View // first child

	// layerRef is an opaque handle a Layer stores here to find its own
	// list entry for v in O(1) on removal; package layer owns the list
	// structure itself (see SPEC_FULL.md's "view weakly references
	// layer" ownership rule).
	layerRef any

	surf *surface.Surface

	geometryDirty bool

	boundingRegion region.Region
	opaqueRegion   region.Region

	planeEntries []*PlaneEntry
}

// New creates a View with default state: identity transform, alpha 1,
// visible, unmapped (mapped becomes true once a surface is attached),
// geometry dirty so the first Recompute establishes its transform.
func New() *View {
	v := &View{alpha: 1, visible: true, geometryDirty: true}
	v.Init(object.KindView)
	v.local.I()
	v.localKind = linear.KindIdentity
	return v
}

// SetSurface attaches surf to the view. A nil surf makes the view
// contribute no pixels while remaining part of the hierarchy.
func (v *View) SetSurface(surf *surface.Surface) {
	if v.surf != nil {
		v.surf.RemoveView(v)
	}
	v.surf = surf
	v.mapped = surf != nil
	if surf != nil {
		surf.AddView(v)
	}
	v.markDirty()
}

// Surface returns the view's attached surface, or nil.
func (v *View) Surface() *surface.Surface { return v.surf }

// SurfaceCommitted implements surface.View. It is called once per
// commit of the attached surface; geometry (opaque region) may depend
// on the surface's current opaque region, so a commit always dirties
// the view.
func (v *View) SurfaceCommitted() {
	v.markDirty()
}

// SetPosition sets the view's position in parent-local coordinates.
func (v *View) SetPosition(x, y int) {
	v.x, v.y = x, y
	v.markDirty()
}

// Position returns the view's parent-local position.
func (v *View) Position() (x, y int) { return v.x, v.y }

// Resize sets the view's size in parent-local units.
func (v *View) Resize(w, h int) {
	v.w, v.h = w, h
	v.markDirty()
}

// Size returns the view's size.
func (v *View) Size() (w, h int) { return v.w, v.h }

// SetTransform sets the view's local 4x4 transform and its matrix kind
// tag (SPEC_FULL.md §9's cheap discriminant). Callers that do not track
// the kind themselves may pass linear.KindComplex conservatively.
func (v *View) SetTransform(m linear.M4, kind linear.M4Kind) {
	v.local, v.localKind = m, kind
	v.markDirty()
}

// SetVisibility sets whether the view is considered for plane
// assignment. An invisible view's bounding and opaque regions still
// update (SPEC_FULL.md §4.2 does not describe visibility as skipping
// recomputation), but assign.Pass excludes it from the candidate list.
func (v *View) SetVisibility(visible bool) {
	v.visible = visible
	v.markDirty()
}

// Visible reports the view's visibility flag.
func (v *View) Visible() bool { return v.visible }

// Mapped reports whether the view has a surface attached.
func (v *View) Mapped() bool { return v.mapped }

// SetAlpha sets the view's opacity in [0,1]. Values are not clamped;
// callers validating client input should clamp before calling.
func (v *View) SetAlpha(alpha float32) {
	v.alpha = alpha
	v.markDirty()
}

// Alpha returns the view's opacity.
func (v *View) Alpha() float32 { return v.alpha }

// SetClipRegion sets or clears (nil) the view's user clip region, in
// the view's own global coordinate space.
func (v *View) SetClipRegion(r *region.Region) {
	if r == nil {
		v.userClip = nil
	} else {
		clone := r.Clone()
		v.userClip = &clone
	}
	v.markDirty()
}

// SetClipToParent sets whether the view's bounding region is clipped
// to its parent's bounding region during recomputation.
func (v *View) SetClipToParent(clip bool) {
	v.clipToParent = clip
	v.markDirty()
}

// SetParent reparents v as the last child of p (or, if p is nil, makes
// v a root view). v is first removed from its current parent/sibling
// list if any.
func (v *View) SetParent(p *View) {
	v.unlink()
	v.parent = p
	if p == nil {
		return
	}
	v.next = nil
	if p.sub == nil {
		p.sub = v
		v.prev = p
	} else {
		last := p.sub
		for last.next != nil {
			last = last.next
		}
		last.next = v
		v.prev = last
	}
	v.markDirty()
}

// Parent returns v's parent, or nil if v is a root view.
func (v *View) Parent() *View { return v.parent }

// Children returns v's children in back-to-front order (the last child
// is the frontmost, where StackTop puts a view). The returned
// slice is a fresh copy; callers may retain it freely.
func (v *View) Children() []*View {
	var out []*View
	for c := v.sub; c != nil; c = c.next {
		out = append(out, c)
	}
	return out
}

// unlink removes v from its current sibling list without touching its
// own children.
func (v *View) unlink() {
	if v.prev != nil {
		if v.prev.sub == v {
			v.prev.sub = v.next
		} else {
			v.prev.next = v.next
		}
	}
	if v.next != nil {
		v.next.prev = v.prev
	}
	v.next = nil
	v.prev = nil
}

// StackTop moves v to be the last (frontmost) child of its parent.
func (v *View) StackTop() {
	p := v.parent
	v.unlink()
	v.parent = p
	v.insertLast(p)
	v.markDirty()
}

// StackBottom moves v to be the first (backmost) child of its parent.
func (v *View) StackBottom() {
	p := v.parent
	v.unlink()
	v.parent = p
	v.insertFirst(p)
	v.markDirty()
}

// StackAbove moves v to be the immediate next sibling after sib. sib
// must share v's parent.
func (v *View) StackAbove(sib *View) {
	if sib == nil || sib.parent != v.parent {
		return
	}
	v.unlink()
	v.parent = sib.parent
	v.prev = sib
	v.next = sib.next
	if sib.next != nil {
		sib.next.prev = v
	}
	sib.next = v
	v.markDirty()
}

// StackBelow moves v to be the immediate previous sibling before sib.
// sib must share v's parent.
func (v *View) StackBelow(sib *View) {
	if sib == nil || sib.parent != v.parent {
		return
	}
	v.unlink()
	v.parent = sib.parent
	v.next = sib
	v.prev = sib.prev
	if sib.prev != nil {
		if sib.prev.sub == sib {
			sib.prev.sub = v
		} else {
			sib.prev.next = v
		}
	} else if v.parent != nil {
		v.parent.sub = v
	}
	sib.prev = v
	v.markDirty()
}

func (v *View) insertFirst(p *View) {
	if p == nil {
		v.prev, v.next = nil, nil
		return
	}
	v.next = p.sub
	if p.sub != nil {
		p.sub.prev = v
	}
	p.sub = v
	v.prev = p
}

func (v *View) insertLast(p *View) {
	if p == nil {
		v.prev, v.next = nil, nil
		return
	}
	if p.sub == nil {
		p.sub = v
		v.prev = p
		v.next = nil
		return
	}
	last := p.sub
	for last.next != nil {
		last = last.next
	}
	last.next = v
	v.prev = last
	v.next = nil
}

// SetLayerRef stores the opaque per-layer back-reference; only package
// layer calls this.
func (v *View) SetLayerRef(ref any) { v.layerRef = ref }

// LayerRef returns the opaque per-layer back-reference.
func (v *View) LayerRef() any { return v.layerRef }

// markDirty sets v's geometry-dirty flag. Per SPEC_FULL.md §4.2's
// lazy-evaluation discipline (matching node.Graph.Update), descendants
// are not dirtied eagerly here; Recompute folds an ancestor's dirty
// state into its descendants' at traversal time.
func (v *View) markDirty() {
	v.geometryDirty = true
}

// GeometryDirty reports whether v's geometry needs recomputation.
func (v *View) GeometryDirty() bool { return v.geometryDirty }

// BoundingRegion returns v's bounding region in global (output) space,
// as of the last Recompute.
func (v *View) BoundingRegion() *region.Region { return &v.boundingRegion }

// OpaqueRegion returns v's opaque region in global space, as of the
// last Recompute.
func (v *View) OpaqueRegion() *region.Region { return &v.opaqueRegion }

// GlobalTransform returns v's derived world transform, as of the last
// Recompute.
func (v *View) GlobalTransform() *linear.M4 { return &v.global }

// PlaneEntries returns v's plane-assignment entries.
func (v *View) PlaneEntries() []*PlaneEntry { return v.planeEntries }

// SetPlaneEntries replaces v's plane-assignment entries. Called by
// package assign once per repaint pass.
func (v *View) SetPlaneEntries(entries []*PlaneEntry) { v.planeEntries = entries }

// RootViews returns the views in views that have no parent, in their
// original order.
func RootViews(views []*View) []*View {
	var out []*View
	for _, v := range views {
		if v.parent == nil {
			out = append(out, v)
		}
	}
	return out
}

// Recompute walks the subtrees rooted at roots, root-first, recomputing
// global transform, bounding region and opaque region for every view
// whose geometry is dirty or whose ancestor's geometry just changed,
// exactly mirroring node.Graph.Update's "evaluate dirty lazily, once,
// at update time, and fold into descendants" discipline.
func Recompute(roots []*View) {
	for _, r := range roots {
		recomputeNode(r, false)
	}
}

func recomputeNode(v *View, ancestorChanged bool) {
	changed := ancestorChanged || v.geometryDirty
	if changed {
		v.recomputeGlobal()
		v.recomputeRegions()
		v.geometryDirty = false
	}
	for c := v.sub; c != nil; c = c.next {
		recomputeNode(c, changed)
	}
}

func (v *View) recomputeGlobal() {
	translate, translateKind := linear.Translate(float32(v.x), float32(v.y), 0)
	var step linear.M4
	var stepKind linear.M4Kind
	if v.parent != nil {
		step.Mul(&v.parent.global, &translate)
		stepKind = linear.ComposeKind(v.parent.globalKind, translateKind)
	} else {
		step = translate
		stepKind = translateKind
	}
	v.global.Mul(&step, &v.local)
	v.globalKind = linear.ComposeKind(stepKind, v.localKind)
}

func (v *View) recomputeRegions() {
	rect := image.Rect(0, 0, v.w, v.h)
	v.boundingRegion = transformRect(rect, &v.global, v.globalKind)

	if v.clipToParent && v.parent != nil {
		v.boundingRegion.Intersect(v.parent.boundingRegion)
	}
	if v.userClip != nil {
		v.boundingRegion.Intersect(*v.userClip)
	}

	v.opaqueRegion = region.Region{}
	if v.alpha >= 1 && v.surf != nil {
		surfOpaque := v.surf.OpaqueRegion()
		transformed := transformRegion(surfOpaque, &v.global, v.globalKind)
		transformed.Intersect(v.boundingRegion)
		v.opaqueRegion = transformed
	}
}

// TransformToGlobal maps r, given in this view's local coordinate
// space, into global (output) space using the view's transform as of
// the last Recompute. Used by the assignment engine to map a surface's
// current damage region into plane coordinates (SPEC_FULL.md §4.3 step
// 4c).
func (v *View) TransformToGlobal(r *region.Region) region.Region {
	return transformRegion(r, &v.global, v.globalKind)
}

// transformRect transforms rect by m, taking the exact integer-rect
// fast path when kind is Identity/Translate and falling back to the
// outward-rounded axis-aligned bound of the transformed corners
// otherwise, per SPEC_FULL.md §4.2's tie-break rule.
func transformRect(rect image.Rectangle, m *linear.M4, kind linear.M4Kind) region.Region {
	if rect.Empty() {
		return region.Region{}
	}
	if kind == linear.KindIdentity || kind == linear.KindTranslate {
		tx, ty, _ := m.TranslationOf()
		return region.New(rect.Add(image.Pt(int(tx), int(ty))))
	}
	return region.New(boundCorners(rect, m))
}

// transformRegion applies transformRect's rule to every rectangle of r
// and unions the results.
func transformRegion(r *region.Region, m *linear.M4, kind linear.M4Kind) region.Region {
	var out region.Region
	for _, rc := range r.Rects() {
		out.Union(transformRect(rc, m, kind))
	}
	return out
}

func boundCorners(rect image.Rectangle, m *linear.M4) image.Rectangle {
	corners := [4][2]float32{
		{float32(rect.Min.X), float32(rect.Min.Y)},
		{float32(rect.Max.X), float32(rect.Min.Y)},
		{float32(rect.Min.X), float32(rect.Max.Y)},
		{float32(rect.Max.X), float32(rect.Max.Y)},
	}
	minX, minY := transformPoint(m, corners[0][0], corners[0][1])
	maxX, maxY := minX, minY
	for _, c := range corners[1:] {
		x, y := transformPoint(m, c[0], c[1])
		if x < minX {
			minX = x
		}
		if x > maxX {
			maxX = x
		}
		if y < minY {
			minY = y
		}
		if y > maxY {
			maxY = y
		}
	}
	return image.Rect(int(floor32(minX)), int(floor32(minY)), int(ceil32(maxX)), int(ceil32(maxY)))
}

// transformPoint applies m to the point (x, y, 0, 1), returning the
// transformed (x, y). M4 is column-major (see linear.M4), so the
// result's component j is sum_i m[i][j]*v[i].
func transformPoint(m *linear.M4, x, y float32) (fx, fy float32) {
	fx = m[0][0]*x + m[1][0]*y + m[3][0]
	fy = m[0][1]*x + m[1][1]*y + m[3][1]
	return
}

func floor32(f float32) float32 {
	i := int32(f)
	if f < 0 && float32(i) != f {
		i--
	}
	return float32(i)
}

func ceil32(f float32) float32 {
	i := int32(f)
	if f > 0 && float32(i) != f {
		i++
	}
	return float32(i)
}

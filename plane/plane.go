// Package plane implements the per-output compositing destination
// described in SPEC_FULL.md §3/§4.3: an ordered render list of views,
// a damage region for the current repaint pass, and a clip region
// other (lower) planes use to skip already-covered pixels. Naming
// follows the teacher's driver.Framebuf/driver.Swapchain lifecycle
// vocabulary (a plane is this compositor's render target, the way
// driver.Framebuf is the GPU's).
package plane

import (
	"github.com/gviegas/pepper/region"
	"github.com/gviegas/pepper/view"
)

// Kind distinguishes a plane's hardware role. The core treats every
// kind identically for assignment purposes (SPEC_FULL.md's resolved
// Open Question on eligibility predicates); Kind exists so a backend
// can tell its planes apart when deciding whether to accept a view.
type Kind int

const (
	// Primary is the plane every output must have; any view the
	// backend declines to place elsewhere lands here.
	Primary Kind = iota
	// Overlay is a hardware overlay plane.
	Overlay
	// Cursor is a plane reserved for pointer-cursor-shaped content.
	Cursor
)

// Plane is a per-output compositing destination.
type Plane struct {
	Kind Kind

	// Format, Transform and Scale describe the plane's fixed scanout
	// capabilities, for a backend to consult in AssignPlanes.
	// assign.Pass does not compare them with the view: a view the
	// backend accepts for this plane stays on it.
	Format    string
	Transform int
	Scale     int

	renderList []*view.PlaneEntry
	damage     region.Region
	clip       region.Region

	// prevAssigned indexes the views on the render list as of the
	// previous repaint pass, keyed by view identity, so the damage
	// engine can detect newly-assigned and newly-unassigned views
	// (SPEC_FULL.md §4.3 step 4a/4b).
	prevAssigned map[*view.View]region.Region
}

// New creates an empty plane of the given kind.
func New(kind Kind) *Plane {
	return &Plane{Kind: kind, prevAssigned: make(map[*view.View]region.Region)}
}

// RenderList returns the plane's current render list, in back-to-front
// order. Entries are weak references into each view's own, exclusively
// owned PlaneEntry.
func (p *Plane) RenderList() []*view.PlaneEntry { return p.renderList }

// SetRenderList replaces the plane's render list. Called once per
// repaint pass by assign.Pass.
func (p *Plane) SetRenderList(entries []*view.PlaneEntry) {
	p.renderList = entries
}

// PreviouslyAssigned returns the visible region a view had on this
// plane as of the last repaint pass that included it, and whether it
// was assigned at all.
func (p *Plane) PreviouslyAssigned(v *view.View) (region.Region, bool) {
	r, ok := p.prevAssigned[v]
	return r, ok
}

// CommitAssignment replaces the plane's "previously assigned" index
// with the views and visible regions of the render list just set by
// SetRenderList, so the next pass's damage computation can diff
// against it. Called by assign.Pass after computing this pass's
// damage.
func (p *Plane) CommitAssignment() {
	next := make(map[*view.View]region.Region, len(p.renderList))
	for _, e := range p.renderList {
		next[e.View] = e.VisibleRegion
	}
	p.prevAssigned = next
}

// PrevViews returns the views that were assigned to this plane as of
// the previous repaint pass, in no particular order. Used by the
// damage engine to detect views that were on this plane but are not on
// its new render list (SPEC_FULL.md §4.3 step 4b).
func (p *Plane) PrevViews() []*view.View {
	out := make([]*view.View, 0, len(p.prevAssigned))
	for v := range p.prevAssigned {
		out = append(out, v)
	}
	return out
}

// Views returns the View of each render-list entry, in order. A
// convenience for backends that only need the view list, not the
// per-entry visible regions.
func (p *Plane) Views() []*view.View {
	out := make([]*view.View, len(p.renderList))
	for i, e := range p.renderList {
		out[i] = e.View
	}
	return out
}

// Damage returns the plane's damage region for the current pass.
func (p *Plane) Damage() *region.Region { return &p.damage }

// SetDamage replaces the plane's damage region.
func (p *Plane) SetDamage(r region.Region) { p.damage = r }

// ClearDamage empties the plane's damage region.
func (p *Plane) ClearDamage() { p.damage = region.Region{} }

// Clip returns the plane's clip region (what it hides from planes
// below).
func (p *Plane) Clip() *region.Region { return &p.clip }

// SetClip replaces the plane's clip region.
func (p *Plane) SetClip(r region.Region) { p.clip = r }

// InvalidateFull marks the whole plane extent as damaged and clears
// the previously-assigned index, used on output mode change
// (SPEC_FULL.md §4.4).
func (p *Plane) InvalidateFull(extent region.Region) {
	p.damage = extent.Clone()
	p.prevAssigned = make(map[*view.View]region.Region)
}

// Package surface implements the double-buffered client surface state
// machine described in SPEC_FULL.md §3-§4.1: pending state accumulates
// client requests (attach, damage, frame, set_opaque_region, ...) and
// Commit atomically promotes it to current state in the exact order
// spec.md §4.1 lists.
package surface

import (
	"errors"
	"image"

	"github.com/gviegas/pepper/buffer"
	"github.com/gviegas/pepper/internal/object"
	"github.com/gviegas/pepper/region"
	"github.com/gviegas/pepper/signal"
	"github.com/gviegas/pepper/xform"
)

// FrameCallback is a client-supplied handle fired once per successful
// presentation. The core never interprets it beyond holding it in a
// list and invoking Done at frame-finish time.
type FrameCallback interface {
	// Done delivers the frame-done event, with the scheduler's
	// timestamp, to the client.
	Done(timestampMS uint32)
}

// ErrInvalidTransform is returned by SetBufferTransform for a value
// outside xform.Normal..xform.Flipped270.
var ErrInvalidTransform = errors.New("surface: invalid buffer transform")

// ErrInvalidScale is returned by SetBufferScale for a scale less than 1.
var ErrInvalidScale = errors.New("surface: invalid buffer scale")

// state is the double-buffered field set from SPEC_FULL.md §3. Both
// Surface.pending and Surface.current are a state; committing copies
// pending into current per the seven numbered steps in spec.md §4.1.
type state struct {
	buffer        *buffer.Buffer
	dx, dy        int
	newlyAttached bool
	transform     xform.Transform
	scale         int
	damage        region.Region
	opaque        region.Region
	input         region.Region
	frameCallback []FrameCallback
}

// View is the minimal surface-facing interface a view presents, so
// package surface does not need to import package view (which in turn
// references package surface) to notify views of commits.
type View interface {
	// SurfaceCommitted is called once, synchronously, from Commit's
	// last step, once per view currently referencing this surface.
	SurfaceCommitted()
}

// Surface is a client-controlled, double-buffered pixel container.
type Surface struct {
	object.Object

	pending state
	current state

	// role is settable exactly once (Wayland surface roles, e.g.
	// "xdg_toplevel", are assigned once a surface is used for a
	// purpose and may never change afterwards).
	role string

	// bufferDestroySink is the one-shot observer registered on the
	// pending buffer so a client-side buffer destruction before
	// commit clears the pending attach, per spec.md §4.1 step 1 and
	// the boundary case in §8.
	bufferDestroySink signal.Sink
	haveDestroySink   bool

	// pendingInputInfinite and currentInputInfinite track the "null
	// region means infinite" special case separately from the empty
	// Region value, since both states render as an all-zero rectangle
	// list but mean opposite things (see SetInputRegion).
	pendingInputInfinite bool
	currentInputInfinite bool

	views []View

	// onNeedsRepaint is called once per Commit that reaches step 7,
	// for every output that needs a new frame. Populated by the
	// compositor that owns this surface; left nil is legal (a
	// surface not yet attached to any view has nothing to repaint).
	onNeedsRepaint func(*Surface)
}

// New creates an initialized Surface with default current state (scale
// 1, transform Normal, damage and opaque regions empty, input region
// infinite).
func New() *Surface {
	s := &Surface{}
	s.Init(object.KindSurface)
	s.current.scale = 1
	s.pending.scale = 1
	s.currentInputInfinite = true
	s.pendingInputInfinite = true
	return s
}

// SetNeedsRepaintHook installs the callback Commit's step 7 invokes.
func (s *Surface) SetNeedsRepaintHook(fn func(*Surface)) {
	s.onNeedsRepaint = fn
}

// AddView registers v as referencing this surface (the weak index
// SPEC_FULL.md §3 calls for). RemoveView undoes it.
func (s *Surface) AddView(v View) {
	s.views = append(s.views, v)
}

// RemoveView unregisters v. It is a no-op if v is not registered.
func (s *Surface) RemoveView(v View) {
	for i, x := range s.views {
		if x == v {
			s.views = append(s.views[:i], s.views[i+1:]...)
			return
		}
	}
}

// Views returns the views currently referencing this surface. Used by
// the compositor to find which outputs need a repaint when this
// surface's needs-repaint hook fires.
func (s *Surface) Views() []View {
	return s.views
}

// Role returns the surface's role string, or "" if unset.
func (s *Surface) Role() string { return s.role }

// SetRole assigns the surface's role. It is a protocol error (returned,
// not a core side effect) to call this a second time with a different
// role; calling it again with the same role is a no-op success, which
// matches how desktop-shell clients re-assert xdg_toplevel idempotently.
func (s *Surface) SetRole(role string) error {
	if s.role == "" {
		s.role = role
		return nil
	}
	if s.role != role {
		return errors.New("surface: role already set to " + s.role)
	}
	return nil
}

// Attach stores the buffer to be applied on the next commit, along with
// the offset to apply to the surface's existing content. buffer may be
// nil, meaning "after commit this surface has no content". Per
// spec.md §4.1 step 1/§8, attaching over a previously attached,
// not-yet-committed buffer disconnects the old buffer's destroy
// observer (if that buffer is otherwise unreferenced, it is simply
// abandoned - this core does not ref pending attaches, only current
// ones, matching the invariant in §8: "refcount equals (1 if any
// surface has B as current or pending...)": until commit, the previous
// pending buffer was never given a ref in the first place, so there is
// nothing to unref here).
func (s *Surface) Attach(buf *buffer.Buffer, dx, dy int) {
	if s.haveDestroySink && s.pending.buffer != nil {
		s.pending.buffer.CancelDestroy(s.bufferDestroySink)
		s.haveDestroySink = false
	}
	s.pending.buffer = buf
	s.pending.dx, s.pending.dy = dx, dy
	s.pending.newlyAttached = true
	if buf != nil {
		s.bufferDestroySink = buf.OnDestroy(func(object.Event) {
			if s.pending.buffer == buf {
				s.pending.buffer = nil
			}
			s.haveDestroySink = false
		})
		s.haveDestroySink = true
	}
}

// Damage unions rect (in surface-local coordinates) into the pending
// damage region.
func (s *Surface) Damage(rect ...region.Region) {
	for _, r := range rect {
		s.pending.damage.Union(r)
	}
}

// DamageRects is the common-case convenience form of Damage, taking raw
// rectangles instead of a pre-built Region.
func (s *Surface) DamageRects(x0, y0, x1, y1 int) {
	s.pending.damage.Add(imageRect(x0, y0, x1, y1))
}

// SetOpaqueRegion replaces the pending opaque region. A nil region
// means "empty", per Wayland semantics.
func (s *Surface) SetOpaqueRegion(r *region.Region) {
	if r == nil {
		s.pending.opaque = region.Region{}
		return
	}
	s.pending.opaque = r.Clone()
}

// SetInputRegion replaces the pending input region. A nil region means
// "infinite" per Wayland semantics; this core represents "infinite" as
// a marker region covering the whole surface, recomputed against the
// surface's current size whenever it is consulted (see InputRegion).
func (s *Surface) SetInputRegion(r *region.Region) {
	if r == nil {
		s.pending.input = region.Region{}
		s.pendingInputInfinite = true
		return
	}
	s.pendingInputInfinite = false
	s.pending.input = r.Clone()
}

// Frame appends cb to the pending frame-callback list.
func (s *Surface) Frame(cb FrameCallback) {
	s.pending.frameCallback = append(s.pending.frameCallback, cb)
}

// SetBufferTransform validates and stores the pending buffer transform.
func (s *Surface) SetBufferTransform(t xform.Transform) error {
	if !xform.Valid(t) {
		return ErrInvalidTransform
	}
	s.pending.transform = t
	return nil
}

// SetBufferScale validates and stores the pending buffer scale.
func (s *Surface) SetBufferScale(scale int) error {
	if scale < 1 {
		return ErrInvalidScale
	}
	s.pending.scale = scale
	return nil
}

// Commit atomically promotes pending state to current, in the exact
// seven-step order of SPEC_FULL.md §4.1.
func (s *Surface) Commit() {
	// Step 1: ref/unref bookkeeping on newly-attached buffers.
	if s.pending.newlyAttached {
		if s.haveDestroySink && s.pending.buffer != nil {
			s.pending.buffer.CancelDestroy(s.bufferDestroySink)
			s.haveDestroySink = false
		}
		if s.pending.buffer != nil {
			s.pending.buffer.Ref()
		}
		if s.current.buffer != nil {
			s.current.buffer.Unref()
		}
	}

	// Step 2: move pending buffer/offset into current; clear
	// newlyAttached.
	if s.pending.newlyAttached {
		s.current.buffer = s.pending.buffer
		s.current.dx, s.current.dy = s.pending.dx, s.pending.dy
		s.pending.newlyAttached = false
	}

	// Step 3: transform/scale promotion.
	s.current.transform = s.pending.transform
	s.current.scale = s.pending.scale

	// Step 4: splice frame callbacks to the tail, reinit pending.
	s.current.frameCallback = append(s.current.frameCallback, s.pending.frameCallback...)
	s.pending.frameCallback = nil

	// Step 5: union damage, clear pending.
	s.current.damage.Union(s.pending.damage)
	s.pending.damage = region.Region{}

	// Step 6: overwrite opaque/input with pending copies.
	s.current.opaque = s.pending.opaque
	s.current.input = s.pending.input
	s.currentInputInfinite = s.pendingInputInfinite
	s.pending.opaque = region.Region{}
	s.pending.input = region.Region{}

	// Step 7: notify every view referencing this surface, then (via
	// the hook, which the owning compositor wires to output repaint
	// scheduling) every output overlapping one of them.
	for _, v := range s.views {
		v.SurfaceCommitted()
	}
	if s.onNeedsRepaint != nil {
		s.onNeedsRepaint(s)
	}
}

// Size returns the surface's current size in surface-local pixels,
// derived from the current buffer's dimensions, transform and scale as
// SPEC_FULL.md §3 specifies. A nil current buffer yields (0, 0).
func (s *Surface) Size() (w, h int) {
	if s.current.buffer == nil {
		return 0, 0
	}
	bw, bh := s.current.buffer.Width, s.current.buffer.Height
	sw, sh := s.current.transform.Size(bw, bh)
	scale := s.current.scale
	if scale < 1 {
		scale = 1
	}
	return sw / scale, sh / scale
}

// Buffer returns the current buffer, or nil.
func (s *Surface) Buffer() *buffer.Buffer { return s.current.buffer }

// Offset returns the current attach offset.
func (s *Surface) Offset() (dx, dy int) { return s.current.dx, s.current.dy }

// Transform returns the current buffer transform.
func (s *Surface) Transform() xform.Transform { return s.current.transform }

// Scale returns the current buffer scale.
func (s *Surface) Scale() int { return s.current.scale }

// DamageRegion returns the current damage region. Callers in the assignment
// engine read this and must not retain the returned value past the
// next Commit.
func (s *Surface) DamageRegion() *region.Region { return &s.current.damage }

// TakeFrameCallbacks drains and returns the surface's current
// frame-callback list, for the compositor to fire with the scheduler's
// timestamp once a repaint containing this surface finishes
// (SPEC_FULL.md §8 scenario 1: "exactly one frame-done is delivered
// with the scheduler's timestamp").
func (s *Surface) TakeFrameCallbacks() []FrameCallback {
	cbs := s.current.frameCallback
	s.current.frameCallback = nil
	return cbs
}

// ClearDamage empties the current damage region. Called by the
// assignment engine once damage has been folded into plane damage for
// a repaint pass, so the next pass only sees newly accumulated damage.
func (s *Surface) ClearDamage() { s.current.damage = region.Region{} }

// OpaqueRegion returns the current opaque region.
func (s *Surface) OpaqueRegion() *region.Region { return &s.current.opaque }

// InputRegion returns the current input region together with whether
// input should be considered infinite (the whole surface).
func (s *Surface) InputRegion() (r *region.Region, infinite bool) {
	return &s.current.input, s.currentInputInfinite
}

func imageRect(x0, y0, x1, y1 int) image.Rectangle {
	return image.Rect(x0, y0, x1, y1)
}

// Package buffer implements the reference-counted handle to a
// client-supplied pixel source described in SPEC_FULL.md §3. A Buffer is
// created the first time a client resource is sighted, shared by
// reference count between the surface state that holds it current and
// any backend render node retaining it for an in-flight frame, and
// released back to the client (so it may reuse the resource) exactly
// when the refcount would otherwise drop to zero held references.
package buffer

import (
	"sync/atomic"

	"github.com/gviegas/pepper/internal/object"
)

// Resource is the opaque, backend/wire-supplied handle a Buffer wraps.
// The core never interprets it; it exists only so Release has something
// to hand back to the protocol layer.
type Resource any

// Buffer is a reference-counted client pixel source.
type Buffer struct {
	object.Object

	Resource Resource

	// Width and Height are unknown until the buffer is first attached
	// to a renderer (backend.OutputBackend.AttachSurface fills them
	// in); both are zero until then.
	Width, Height int

	refs    atomic.Int32
	release func(Resource)
}

// New creates a Buffer wrapping resource. release is called (at most
// once) when the buffer's reference count drops to zero, so the client
// may reuse the resource's backing storage; it may be nil for buffers
// that have no client to notify (e.g. test fixtures).
func New(resource Resource, release func(Resource)) *Buffer {
	b := &Buffer{Resource: resource, release: release}
	b.Init(object.KindBuffer)
	return b
}

// Ref increments the reference count. It is called once when a surface
// promotes this buffer to current (surface.Surface.Commit step 1) and
// once per backend render node that retains the buffer across a commit.
func (b *Buffer) Ref() {
	b.refs.Add(1)
}

// Unref decrements the reference count, releasing the buffer to the
// client when it reaches zero. Safe to call from any goroutine (see
// SPEC_FULL.md §5), so a backend that renders on a worker can drop its
// render-node reference without hopping back onto the main loop.
func (b *Buffer) Unref() {
	if b.refs.Add(-1) == 0 {
		if b.release != nil {
			b.release(b.Resource)
		}
	}
}

// RefCount returns the current reference count. Exposed mainly for
// tests asserting SPEC_FULL.md §8's refcount invariant.
func (b *Buffer) RefCount() int32 {
	return b.refs.Load()
}

// SetSize records the buffer's pixel dimensions, as computed by
// backend.OutputBackend.AttachSurface on first attach.
func (b *Buffer) SetSize(w, h int) {
	b.Width, b.Height = w, h
}

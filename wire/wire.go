// Package wire defines the Wayland globals surface described in
// spec.md §6: the set of interfaces a real wire codec (excluded from
// this repo's scope) would bind client requests to, plus the
// object-id allocation and bind/broadcast bookkeeping that codec would
// call into. Package wire never marshals or unmarshals bytes; it is
// the contract layer between the core and that codec.
//
// Object-id bookkeeping is grounded on dominikh-go-libwayland's
// Display.proxies map (a table from an opaque per-connection handle to
// the Go-side wrapper object), generalized here from a cgo pointer key
// to a protocol object id, and from a single fixed key type to any
// unsigned integer width via golang.org/x/exp/constraints.
package wire

import (
	"fmt"
	"unicode"

	"golang.org/x/exp/constraints"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/gviegas/pepper/output"
)

// ProtocolError is returned (never panicked) by a request handler when
// a client violates the protocol. The wire codec's dispatch loop is
// expected to disconnect the client and never apply partial state,
// which core request handlers ensure by validating before mutating
// (see surface.Surface.SetBufferTransform/SetBufferScale).
type ProtocolError struct {
	Object  uint32
	Code    uint32
	Message string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("wire: protocol error on object %d (code %d): %s", e.Object, e.Code, e.Message)
}

// Registry maps protocol object ids to the core object each currently
// names, and hands out fresh ids on bind. ID is any unsigned integer
// width a concrete wire codec uses on the address space of its choice
// (wl_proxy ids are uint32, but nothing here depends on that width).
type Registry[ID constraints.Unsigned] struct {
	objects map[ID]any
	next    ID
}

// NewRegistry creates an empty Registry. The first id it allocates is
// 1, matching Wayland's reserved-0 convention (object id 0 means "no
// object").
func NewRegistry[ID constraints.Unsigned]() *Registry[ID] {
	return &Registry[ID]{objects: make(map[ID]any), next: 1}
}

// Bind records obj under the next available id and returns it.
func (r *Registry[ID]) Bind(obj any) ID {
	id := r.next
	r.next++
	r.objects[id] = obj
	return id
}

// BindID records obj under the caller-chosen id, as a real codec does
// for client-allocated ids (e.g. wl_registry.bind's new_id argument,
// chosen by the client rather than the server). It overwrites any
// existing binding at id.
func (r *Registry[ID]) BindID(id ID, obj any) {
	r.objects[id] = obj
	if id >= r.next {
		r.next = id + 1
	}
}

// Lookup returns the object bound to id, or ok=false if none is.
func (r *Registry[ID]) Lookup(id ID) (obj any, ok bool) {
	obj, ok = r.objects[id]
	return
}

// Unbind removes id's binding, as happens when a client destroys a
// resource.
func (r *Registry[ID]) Unbind(id ID) {
	delete(r.objects, id)
}

// Len returns the number of currently bound ids.
func (r *Registry[ID]) Len() int { return len(r.objects) }

// CompositorGlobal is the core-implemented half of wl_compositor:
// creating a wl_surface or wl_region resource.
type CompositorGlobal interface {
	CreateSurface() SurfaceGlobal
	CreateRegion() RegionGlobal
}

// SurfaceGlobal is the core-implemented half of wl_surface, the
// request set spec.md §4.1 names.
type SurfaceGlobal interface {
	Attach(buf any, dx, dy int)
	Damage(x0, y0, x1, y1 int)
	SetOpaqueRegion(r RegionGlobal)
	SetInputRegion(r RegionGlobal)
	Frame() FrameCallbackGlobal
	SetBufferTransform(t int) error
	SetBufferScale(scale int) error
	Commit()
	Destroy()
}

// RegionGlobal is the core-implemented half of wl_region.
type RegionGlobal interface {
	Add(x0, y0, x1, y1 int)
	Subtract(x0, y0, x1, y1 int)
	Destroy()
}

// FrameCallbackGlobal is the resource a client gets back from
// SurfaceGlobal.Frame; the wire codec sends its done event with the
// timestamp package surface supplies via surface.FrameCallback.Done.
type FrameCallbackGlobal interface {
	Destroy()
}

// OutputGlobal is the core-implemented half of wl_output: geometry,
// scale and mode are broadcast to the client on bind and on every
// change thereafter.
type OutputGlobal interface {
	Broadcast(geom output.Geometry, modes []output.Mode, current int)
}

// SeatGlobal is the core-implemented half of wl_seat: capability and
// name are broadcast on bind and on every change.
type SeatGlobal interface {
	BroadcastCapabilities(caps int)
	BroadcastName(name string)
	GetPointer() PointerGlobal
	GetKeyboard() KeyboardGlobal
	GetTouch() TouchGlobal
}

// PointerGlobal, KeyboardGlobal and TouchGlobal are the core-implemented
// halves of wl_pointer/wl_keyboard/wl_touch; the core pushes events
// into them via seat.PointerResource/KeyboardResource/TouchResource,
// which these are expected to implement.
type PointerGlobal interface {
	Release()
}

type KeyboardGlobal interface {
	Release()
}

type TouchGlobal interface {
	Release()
}

// ShmGlobal is the core-implemented half of the shell-memory global
// (wl_shm): pool creation from a client-supplied fd.
type ShmGlobal interface {
	CreatePool(fd int, size int32) ShmPoolGlobal
}

// ShmPoolGlobal is the core-implemented half of wl_shm_pool.
type ShmPoolGlobal interface {
	CreateBuffer(offset, width, height, stride int32, format uint32) (buf any, err error)
	Resize(size int32)
	Destroy()
}

// sanitizer strips Unicode control characters and normalizes to NFC,
// since protocol strings (output maker/model, seat name) must be
// valid, control-character-free UTF-8 before a real codec writes them
// to the wire.
var sanitizer = transform.Chain(norm.NFC, runes.Remove(runes.In(unicode.C)))

// Sanitize normalizes s to NFC and strips Unicode control characters,
// for any string (output maker/model, seat name) that flows through
// this surface toward a client.
func Sanitize(s string) string {
	out, _, err := transform.String(sanitizer, s)
	if err != nil {
		return s
	}
	return out
}

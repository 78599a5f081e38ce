// Package object implements the typed-handle base every first-class
// compositor entity embeds: a destroy signal emitted exactly once, and a
// user-data map keyed by opaque, per-call-site typed keys rather than by
// interface{} values that callers must downcast.
package object

import (
	"fmt"
	"sync/atomic"

	"github.com/gviegas/pepper/signal"
)

// Kind tags the concrete type of an Object, so a runtime type-confusion
// (a *plane.Plane handed somewhere a *view.View was expected, say) can be
// caught as an invariant violation instead of a silent misbehavior.
type Kind int

// Recognized kinds. Packages that embed Object pass their own Kind value
// to Init.
const (
	KindBuffer Kind = iota + 1
	KindSurface
	KindRegion
	KindView
	KindLayer
	KindPlane
	KindOutput
	KindSeat
)

func (k Kind) String() string {
	switch k {
	case KindBuffer:
		return "buffer"
	case KindSurface:
		return "surface"
	case KindRegion:
		return "region"
	case KindView:
		return "view"
	case KindLayer:
		return "layer"
	case KindPlane:
		return "plane"
	case KindOutput:
		return "output"
	case KindSeat:
		return "seat"
	default:
		return "unknown"
	}
}

// Key identifies a slot in an Object's user-data map. Key values are
// created with NewKey and are only ever compared by identity, so two
// keys created for the same T are still distinct slots - this is the
// "phantom tag" pattern from the design notes, letting Get/Set recover
// the exact stored type without a call-site assertion.
type Key[T any] struct {
	tag *int
}

// NewKey creates a fresh, distinct Key for values of type T.
func NewKey[T any]() Key[T] {
	return Key[T]{tag: new(int)}
}

type entry struct {
	value   any
	destroy func(any)
}

// Object is the base every core entity embeds. The zero value is not
// usable; call Init before use.
type Object struct {
	kind      Kind
	destroyed bool
	destroy   signal.Signal[Event]
	data      map[*int]entry
}

// Event is the payload delivered to destroy-signal observers.
type Event struct {
	// Kind identifies the destroyed object's type.
	Kind Kind
}

// Init initializes o. Kind is recorded so Event.Kind and the
// double-destroy check in checkNotDestroyed have a type to report.
func (o *Object) Init(kind Kind) {
	o.kind = kind
}

// Kind returns the object's recorded type tag.
func (o *Object) Kind() Kind { return o.kind }

// OnDestroy registers fn to run when the object is destroyed. The
// returned Sink may be passed to CancelDestroy to unsubscribe before
// destruction happens (used by Surface.Attach's buffer-destroy observer,
// which must stop listening once a different buffer is attached).
func (o *Object) OnDestroy(fn func(Event)) signal.Sink {
	return o.destroy.Connect(fn)
}

// CancelDestroy unsubscribes a sink registered with OnDestroy.
func (o *Object) CancelDestroy(sk signal.Sink) {
	o.destroy.Disconnect(sk)
}

// Destroyed reports whether Destroy has already run on this object.
func (o *Object) Destroyed() bool { return o.destroyed }

// Destroy emits the destroy signal and clears the user-data map. It is
// idempotent: calling Destroy a second time is a documented no-op rather
// than a second emission, since re-emitting would let an observer
// registered for "the object's one and only teardown" fire twice.
// A second call is an invariant violation: checkNotDestroyed logs it as
// an error, and additionally panics in builds with the debug tag.
func (o *Object) Destroy() {
	if o.destroyed {
		checkNotDestroyed(o.kind)
		return
	}
	o.destroyed = true
	o.destroy.Emit(Event{Kind: o.kind})
	for k, e := range o.data {
		if e.destroy != nil {
			e.destroy(e.value)
		}
		delete(o.data, k)
	}
}

// SetUserData stores value under key, replacing any previous entry.
// destroy, if non-nil, is invoked with the stored value when the object
// is destroyed or when the key is overwritten/deleted.
func SetUserData[T any](o *Object, key Key[T], value T, destroy func(T)) {
	if o.data == nil {
		o.data = make(map[*int]entry)
	}
	if old, ok := o.data[key.tag]; ok && old.destroy != nil {
		old.destroy(old.value)
	}
	var wrapped func(any)
	if destroy != nil {
		wrapped = func(v any) { destroy(v.(T)) }
	}
	o.data[key.tag] = entry{value: value, destroy: wrapped}
}

// UserData retrieves the value stored under key. ok is false if nothing
// is stored there.
func UserData[T any](o *Object, key Key[T]) (value T, ok bool) {
	e, found := o.data[key.tag]
	if !found {
		return value, false
	}
	return e.value.(T), true
}

// DeleteUserData removes the entry stored under key, invoking its
// destroy callback if one was registered.
func DeleteUserData[T any](o *Object, key Key[T]) {
	e, ok := o.data[key.tag]
	if !ok {
		return
	}
	if e.destroy != nil {
		e.destroy(e.value)
	}
	delete(o.data, key.tag)
}

var nextID atomic.Uint32

// NextID hands out a process-wide monotonically increasing identifier,
// starting at 1. Used by packages (output.Output, in particular) whose
// objects need a stable numeric handle distinct from the Go pointer
// identity, e.g. for wire object-id bookkeeping or log correlation.
func NextID() uint32 {
	return nextID.Add(1)
}

// errDoubleDestroy returns the error logged (and, in debug builds, the string
// of the panic) when Destroy is called on an already-destroyed object.
func errDoubleDestroy(k Kind) error {
	return fmt.Errorf("object: double destroy of a %s", k)
}

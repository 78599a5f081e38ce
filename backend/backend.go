// Package backend defines the output and input backend contracts from
// SPEC_FULL.md §6, plus a registration mechanism for the concrete
// output backends in backend/headless, backend/wlnested and
// backend/sdltest. Register/Drivers mirrors the teacher's
// driver.Register/driver.Drivers pattern exactly: a backend package
// registers itself from an init function, and client code selects one
// by name at startup.
package backend

import (
	"errors"
	"log"
	"sync"

	"github.com/gviegas/pepper/output"
	"github.com/gviegas/pepper/plane"
	"github.com/gviegas/pepper/surface"
	"github.com/gviegas/pepper/view"
)

// ErrNotInstalled means a platform-specific library or device the
// backend needs is not present on this system.
var ErrNotInstalled = errors.New("backend: missing required library or device")

// ErrNoDevice means no suitable display device could be found.
var ErrNoDevice = errors.New("backend: no suitable device found")

// FatalError wraps an unrecoverable backend error (SPEC_FULL.md §7's
// Backend-fatal taxonomy entry). Compositor.HandleBackendFatal expects
// exactly this type so it can log the wrapped cause before tearing
// down every output.
type FatalError struct {
	Err error
}

func (e *FatalError) Error() string { return "backend: fatal: " + e.Err.Error() }
func (e *FatalError) Unwrap() error { return e.Err }

// Event is a normalized input event, exactly per spec.md §6: a
// backend-agnostic shape every input backend decodes its native events
// into before handing them to seat.Seat.HandleEvent.
type Event struct {
	Type   EventType
	TimeMS uint32
	Serial uint32
	Index  int // key code, button code, or touch point id
	State  bool
	Value  float64 // axis/touch coordinate magnitude, interpretation depends on Type
	X, Y   float64
}

// EventType identifies the kind of normalized input event.
type EventType int

const (
	EventKey EventType = iota
	EventPointerMotion
	EventPointerButton
	EventPointerAxis
	EventTouchDown
	EventTouchUp
	EventTouchMotion
	EventTouchFrame
)

// OutputBackend is the contract an output's backend provides, called
// by the core, exactly per spec.md §6 "Output backend contract"
// (Go-cased).
type OutputBackend interface {
	// Destroy releases the backend's resources. The core calls this
	// once, when the owning Output is destroyed.
	Destroy()

	SubpixelOrder() output.SubpixelOrder
	MakerName() string
	ModelName() string

	ModeCount() int
	Mode(i int) output.Mode
	SetMode(m output.Mode) bool

	// AssignPlanes offers each view, in back-to-front order, to the
	// backend for plane placement. assign is supplied by the core;
	// the backend calls it with (v, p) to accept v onto p, or simply
	// does not call it for a given v to decline (the core then
	// defaults v to the primary plane).
	AssignPlanes(views []*view.View, assign func(v *view.View, p *plane.Plane) bool)

	// StartRepaintLoop is called instead of relying on a real vblank
	// source, for backends that have none; it must eventually call
	// the Output's FinishFrame with a synthesized timestamp.
	StartRepaintLoop()

	// Repaint pushes the per-plane render lists to the backend's
	// renderer/hardware. It must eventually call the owning Output's
	// FinishFrame, whether synchronously or from a later event-loop
	// callback.
	Repaint(planes []*plane.Plane)

	// AttachSurface computes buffer dimensions for this backend's
	// renderer, the first time a given surface's buffer is sighted.
	AttachSurface(s *surface.Surface) (w, h int, err error)

	// FlushSurfaceDamage hands a surface's current damage to the
	// backend's renderer. keepBuffer requests that the core not
	// release the surface's buffer yet (SPEC_FULL.md §9's
	// backend-specific keep_buffer predicate).
	FlushSurfaceDamage(s *surface.Surface) (keepBuffer bool)
}

// InputBackend is the contract an input backend provides. Device
// add/remove and name changes are signalled out-of-band via the
// relevant seat's capability/name signals, not through this interface,
// per spec.md §6.
type InputBackend interface {
	// Destroy releases the backend's resources.
	Destroy()
}

// Driver packages a named OutputBackend factory, registered from an
// init function by each concrete backend package.
type Driver interface {
	// Name returns the driver's name, e.g. "headless", "wlnested",
	// "sdltest". It must not open any device.
	Name() string

	// Open initializes and returns a new OutputBackend.
	Open() (OutputBackend, error)
}

var (
	mu      sync.Mutex
	drivers = make([]Driver, 0, 4)
)

// Register registers drv. Backend implementations call this exactly
// once, from an init function. If a driver with the same name is
// already registered, it is replaced.
func Register(drv Driver) {
	mu.Lock()
	defer mu.Unlock()
	for i := range drivers {
		if drivers[i].Name() == drv.Name() {
			drivers[i] = drv
			log.Printf("[!] backend driver %q replaced", drv.Name())
			return
		}
	}
	drivers = append(drivers, drv)
	log.Printf("backend driver %q registered", drv.Name())
}

// Drivers returns a copy of the registered driver list.
func Drivers() []Driver {
	mu.Lock()
	defer mu.Unlock()
	out := make([]Driver, len(drivers))
	copy(out, drivers)
	return out
}

// ByName returns the registered driver with the given name, or nil.
func ByName(name string) Driver {
	for _, d := range Drivers() {
		if d.Name() == name {
			return d
		}
	}
	return nil
}

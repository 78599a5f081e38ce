// Package seat implements per-seat input dispatch as sketched in
// SPEC_FULL.md §4.5: normalized backend.Event values traverse an
// ordered event-hook chain, the first hook to return "handled" stops
// propagation, and a default hook forwards to the focused client
// resources using a per-seat serial counter. Capability/name broadcast
// is modeled as a signal.Signal, the same idiom package object and
// package buffer use for their own change notifications, rather than a
// bespoke observer list.
package seat

import (
	"github.com/gviegas/pepper/backend"
	"github.com/gviegas/pepper/buffer"
	"github.com/gviegas/pepper/cursor"
	"github.com/gviegas/pepper/internal/object"
	"github.com/gviegas/pepper/signal"
)

// Capability is a bitmask of input device classes a seat currently
// has, mirroring wl_seat.capability.
type Capability int

const (
	CapPointer Capability = 1 << iota
	CapKeyboard
	CapTouch
)

// PointerResource is the wire-layer handle a client gets back for
// wl_pointer. The core never interprets it beyond these calls.
type PointerResource interface {
	Motion(timestampMS uint32, x, y float64)
	Button(timestampMS, serial uint32, code int, pressed bool)
	Axis(timestampMS uint32, value float64)
}

// KeyboardResource is the wire-layer handle for wl_keyboard.
type KeyboardResource interface {
	Key(timestampMS, serial uint32, code int, pressed bool)
}

// TouchResource is the wire-layer handle for wl_touch.
type TouchResource interface {
	Down(timestampMS, serial uint32, id int, x, y float64)
	Up(timestampMS, serial uint32, id int)
	Motion(timestampMS uint32, id int, x, y float64)
	Frame()
}

// Hook is one link of the event-hook chain. It returns true if it
// handled ev, stopping further propagation.
type Hook func(ev backend.Event) bool

// Seat is one independent source of input focus (SPEC_FULL.md §3: a
// seat owns its own serial counter and resource lists; multiple seats
// may coexist, e.g. for multi-seat setups).
type Seat struct {
	object.Object

	Name string
	caps Capability

	capSignal  signal.Signal[Capability]
	nameSignal signal.Signal[string]

	hooks       []Hook
	defaultHook Hook

	pointerResources  []PointerResource
	keyboardResources []KeyboardResource
	touchResources    []TouchResource

	serial uint32

	defaultCursors map[int]*buffer.Buffer
}

// New creates a Seat with the given name and no capabilities. The
// default forwarding hook (last in the chain) is installed
// automatically; AddHook inserts ahead of it.
func New(name string) *Seat {
	s := &Seat{Name: name}
	s.Init(object.KindSeat)
	s.defaultHook = s.forwardToFocused
	return s
}

// Capabilities returns the seat's current capability mask.
func (s *Seat) Capabilities() Capability { return s.caps }

// SetCapabilities replaces the seat's capability mask and emits the
// capability-changed signal if it differs from the previous value.
func (s *Seat) SetCapabilities(caps Capability) {
	if caps == s.caps {
		return
	}
	s.caps = caps
	s.capSignal.Emit(caps)
}

// OnCapabilities subscribes to capability changes.
func (s *Seat) OnCapabilities(fn func(Capability)) signal.Sink {
	return s.capSignal.Connect(fn)
}

// SetName updates the seat's name and emits the name-changed signal.
func (s *Seat) SetName(name string) {
	if name == s.Name {
		return
	}
	s.Name = name
	s.nameSignal.Emit(name)
}

// OnNameChanged subscribes to name changes.
func (s *Seat) OnNameChanged(fn func(string)) signal.Sink {
	return s.nameSignal.Connect(fn)
}

// AddHook appends hook to the chain, ahead of the default forwarding
// hook. Hooks run in the order added; the compositor core registers
// its own hooks (e.g. for pointer-grab state) before the shell
// registers client-facing ones, so the core's hooks see events first.
func (s *Seat) AddHook(hook Hook) {
	s.hooks = append(s.hooks, hook)
}

// DefaultCursor returns the seat's themed pointer image at the given
// size, loading it lazily on first use and caching it per size so a
// repeated SetCursor(nil) (client resets to default) does not re-decode
// the bundled PNG every time.
func (s *Seat) DefaultCursor(size int) (*buffer.Buffer, error) {
	if buf, ok := s.defaultCursors[size]; ok {
		return buf, nil
	}
	buf, err := cursor.LoadDefault(size)
	if err != nil {
		return nil, err
	}
	if s.defaultCursors == nil {
		s.defaultCursors = make(map[int]*buffer.Buffer)
	}
	s.defaultCursors[size] = buf
	return buf, nil
}

// NextSerial returns the next value of the seat's monotonically
// increasing event serial, used to correlate a resource's request
// (e.g. a pointer grab) with the input event that justified it.
func (s *Seat) NextSerial() uint32 {
	s.serial++
	return s.serial
}

// SetPointerFocus replaces the resources that receive pointer events
// (SPEC_FULL.md's sketch does not describe focus tracking in detail;
// the owning compositor decides which client is focused and calls
// this when focus changes).
func (s *Seat) SetPointerFocus(resources []PointerResource) {
	s.pointerResources = resources
}

// SetKeyboardFocus replaces the resources that receive keyboard
// events.
func (s *Seat) SetKeyboardFocus(resources []KeyboardResource) {
	s.keyboardResources = resources
}

// SetTouchFocus replaces the resources that receive touch events.
func (s *Seat) SetTouchFocus(resources []TouchResource) {
	s.touchResources = resources
}

// HandleEvent implements the input backend contract's
// seat.handle_event(event): ev traverses the hook chain in order, and
// the default hook runs last if nothing else claimed it.
func (s *Seat) HandleEvent(ev backend.Event) {
	for _, h := range s.hooks {
		if h(ev) {
			return
		}
	}
	s.defaultHook(ev)
}

// forwardToFocused is the default hook: it delivers ev to whichever
// focused resource list matches its type, per spec.md §4.5.
func (s *Seat) forwardToFocused(ev backend.Event) bool {
	switch ev.Type {
	case backend.EventPointerMotion:
		for _, r := range s.pointerResources {
			r.Motion(ev.TimeMS, ev.X, ev.Y)
		}
	case backend.EventPointerButton:
		serial := s.NextSerial()
		for _, r := range s.pointerResources {
			r.Button(ev.TimeMS, serial, ev.Index, ev.State)
		}
	case backend.EventPointerAxis:
		for _, r := range s.pointerResources {
			r.Axis(ev.TimeMS, ev.Value)
		}
	case backend.EventKey:
		serial := s.NextSerial()
		for _, r := range s.keyboardResources {
			r.Key(ev.TimeMS, serial, ev.Index, ev.State)
		}
	case backend.EventTouchDown:
		serial := s.NextSerial()
		for _, r := range s.touchResources {
			r.Down(ev.TimeMS, serial, ev.Index, ev.X, ev.Y)
		}
	case backend.EventTouchUp:
		serial := s.NextSerial()
		for _, r := range s.touchResources {
			r.Up(ev.TimeMS, serial, ev.Index)
		}
	case backend.EventTouchMotion:
		for _, r := range s.touchResources {
			r.Motion(ev.TimeMS, ev.Index, ev.X, ev.Y)
		}
	case backend.EventTouchFrame:
		for _, r := range s.touchResources {
			r.Frame()
		}
	default:
		return false
	}
	return true
}

package seat

import (
	"bytes"
	"image"
	"image/png"
	"testing"

	"github.com/gviegas/pepper/backend"
	"github.com/gviegas/pepper/cursor"
)

type fakePointer struct {
	motions int
	buttons int
	lastSerial uint32
}

func (p *fakePointer) Motion(ts uint32, x, y float64)                      { p.motions++ }
func (p *fakePointer) Button(ts, serial uint32, code int, pressed bool)    { p.buttons++; p.lastSerial = serial }
func (p *fakePointer) Axis(ts uint32, value float64)                       {}

type fakeKeyboard struct{ keys int }

func (k *fakeKeyboard) Key(ts, serial uint32, code int, pressed bool) { k.keys++ }

func TestHandleEventForwardsPointerMotion(t *testing.T) {
	s := New("seat0")
	p := &fakePointer{}
	s.SetPointerFocus([]PointerResource{p})
	s.HandleEvent(backend.Event{Type: backend.EventPointerMotion, X: 10, Y: 20})
	if p.motions != 1 {
		t.Fatalf("have %d motions, want 1", p.motions)
	}
}

func TestHandleEventAssignsIncreasingSerials(t *testing.T) {
	s := New("seat0")
	p := &fakePointer{}
	s.SetPointerFocus([]PointerResource{p})
	s.HandleEvent(backend.Event{Type: backend.EventPointerButton, Index: 1, State: true})
	first := p.lastSerial
	s.HandleEvent(backend.Event{Type: backend.EventPointerButton, Index: 1, State: false})
	if p.lastSerial <= first {
		t.Fatalf("serial did not increase: %d then %d", first, p.lastSerial)
	}
}

func TestHookStopsPropagation(t *testing.T) {
	s := New("seat0")
	p := &fakePointer{}
	s.SetPointerFocus([]PointerResource{p})
	s.AddHook(func(ev backend.Event) bool { return true })
	s.HandleEvent(backend.Event{Type: backend.EventPointerMotion})
	if p.motions != 0 {
		t.Fatal("hook returning true did not stop propagation to the default hook")
	}
}

func TestHookChainOrderFirstHandledWins(t *testing.T) {
	s := New("seat0")
	var order []string
	s.AddHook(func(ev backend.Event) bool { order = append(order, "first"); return false })
	s.AddHook(func(ev backend.Event) bool { order = append(order, "second"); return true })
	s.AddHook(func(ev backend.Event) bool { order = append(order, "third"); return true })
	s.HandleEvent(backend.Event{Type: backend.EventKey})
	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Fatalf("have order %v, want [first second]", order)
	}
}

func TestCapabilitiesSignalOnChange(t *testing.T) {
	s := New("seat0")
	var got Capability
	calls := 0
	s.OnCapabilities(func(c Capability) { got = c; calls++ })
	s.SetCapabilities(CapPointer | CapKeyboard)
	s.SetCapabilities(CapPointer | CapKeyboard) // no-op, same value
	if calls != 1 {
		t.Fatalf("have %d signal emissions, want 1", calls)
	}
	if got != CapPointer|CapKeyboard {
		t.Fatalf("have capabilities %v, want pointer|keyboard", got)
	}
}

func TestDefaultCursorCachesPerSize(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode test PNG: %v", err)
	}
	cursor.SetDefaultImage(buf.Bytes())

	s := New("seat0")
	a, err := s.DefaultCursor(24)
	if err != nil {
		t.Fatalf("DefaultCursor failed: %v", err)
	}
	b, err := s.DefaultCursor(24)
	if err != nil {
		t.Fatalf("DefaultCursor second call failed: %v", err)
	}
	if a != b {
		t.Fatal("DefaultCursor did not return the cached buffer for the same size")
	}
	if a.Width != 24 || a.Height != 24 {
		t.Fatalf("have size %dx%d, want 24x24", a.Width, a.Height)
	}
}

func TestKeyboardForwarding(t *testing.T) {
	s := New("seat0")
	k := &fakeKeyboard{}
	s.SetKeyboardFocus([]KeyboardResource{k})
	s.HandleEvent(backend.Event{Type: backend.EventKey, Index: 30, State: true})
	if k.keys != 1 {
		t.Fatalf("have %d keys, want 1", k.keys)
	}
}

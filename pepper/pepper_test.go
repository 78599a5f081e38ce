package pepper

import (
	"context"
	"testing"
	"time"

	"github.com/gviegas/pepper/backend"
	"github.com/gviegas/pepper/buffer"
	"github.com/gviegas/pepper/output"
	"github.com/gviegas/pepper/plane"
	"github.com/gviegas/pepper/surface"
	"github.com/gviegas/pepper/view"
)

// fakeBackend is a minimal, fully-synchronous OutputBackend: Repaint
// and AssignPlanes run inline, and FinishFrame/onFinish is invoked by
// the test directly, rather than from a real timer or poll loop.
type fakeBackend struct {
	destroyed bool
	repaints  int
	onFinish  func()
}

func (b *fakeBackend) Destroy()                            { b.destroyed = true }
func (b *fakeBackend) SubpixelOrder() output.SubpixelOrder { return output.SubpixelUnknown }
func (b *fakeBackend) MakerName() string                   { return "fake" }
func (b *fakeBackend) ModelName() string                   { return "fake" }
func (b *fakeBackend) ModeCount() int                       { return 0 }
func (b *fakeBackend) Mode(i int) output.Mode                { return output.Mode{} }
func (b *fakeBackend) SetMode(m output.Mode) bool            { return false }
func (b *fakeBackend) StartRepaintLoop()                     {}
func (b *fakeBackend) Repaint(planes []*plane.Plane)         { b.repaints++ }
func (b *fakeBackend) AttachSurface(s *surface.Surface) (int, int, error) {
	return 0, 0, nil
}
func (b *fakeBackend) FlushSurfaceDamage(s *surface.Surface) bool { return false }
func (b *fakeBackend) AssignPlanes(views []*view.View, assign func(*view.View, *plane.Plane) bool) {
}
func (b *fakeBackend) SetOnFinish(fn func()) { b.onFinish = fn }

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

type recordingCallback struct{ done bool; ts uint32 }

func (cb *recordingCallback) Done(ts uint32) { cb.done = true; cb.ts = ts }

func newTestCompositor() (*Compositor, *output.Output, *fakeBackend) {
	c := New(fixedClock{t: time.Unix(1000, 0)})
	o := c.NewOutput(output.Geometry{Scale: 1}, []output.Mode{{Width: 800, Height: 600}}, 0)
	primary := plane.New(plane.Primary)
	o.Planes = append(o.Planes, primary)
	be := &fakeBackend{}
	c.AttachBackend(o, be)
	return c, o, be
}

func newTestSurfaceView(w, h int) (*surface.Surface, *view.View) {
	buf := buffer.New(nil, nil)
	buf.SetSize(w, h)
	surf := surface.New()
	surf.Attach(buf, 0, 0)
	surf.DamageRects(0, 0, w, h)
	surf.Commit()

	v := view.New()
	v.SetSurface(surf)
	v.Resize(w, h)
	v.SetAlpha(1)
	return surf, v
}

func TestAttachBackendWiresOnFinish(t *testing.T) {
	_, _, be := newTestCompositor()
	if be.onFinish == nil {
		t.Fatal("AttachBackend did not wire SetOnFinish on a backend that supports it")
	}
}

func TestSurfaceCommitSchedulesOverlappingOutputRepaint(t *testing.T) {
	c, o, be := newTestCompositor()

	surf, v := newTestSurfaceView(100, 80)
	c.AddSurface(surf)
	layer := c.NewLayer("shell")
	layer.Append(v)

	view.Recompute([]*view.View{v})
	o.Views = append(o.Views, v)

	surf.DamageRects(0, 0, 100, 80)
	surf.Commit()

	if c.Idle().Len() == 0 {
		t.Fatal("commit over a view on an attached output did not enqueue a repaint")
	}
	c.Idle().Drain()
	if be.repaints != 1 {
		t.Fatalf("have %d repaints, want 1", be.repaints)
	}
}

func TestFinishOutputDeliversFrameCallbackWithClockTimestamp(t *testing.T) {
	c, o, be := newTestCompositor()

	surf, v := newTestSurfaceView(100, 80)
	c.AddSurface(surf)
	layer := c.NewLayer("shell")
	layer.Append(v)
	view.Recompute([]*view.View{v})
	o.Views = append(o.Views, v)

	cb := &recordingCallback{}
	surf.Frame(cb)
	surf.DamageRects(0, 0, 100, 80)
	surf.Commit()

	c.Idle().Drain() // runs repaintOutput, BeginRepaint -> Pending
	be.onFinish()     // simulate the backend signalling frame completion

	if !cb.done {
		t.Fatal("frame callback was not delivered after finishOutput")
	}
	if cb.ts != 0 {
		t.Fatalf("have timestamp %d, want 0 (clock fixed at compositor start)", cb.ts)
	}
}

func TestHandleBackendFatalDestroysOutputsAndCancelsRun(t *testing.T) {
	c, o, be := newTestCompositor()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runErr := make(chan error, 1)
	go func() { runErr <- c.Run(ctx) }()

	// Give Run a moment to reach loop.Run's blocking wait before firing
	// the fatal path; the test is deterministic regardless, since
	// HandleBackendFatal's cancel() unblocks loop.Run on its own.
	time.Sleep(20 * time.Millisecond)

	c.HandleBackendFatal(&backend.FatalError{Err: errTest})

	select {
	case err := <-runErr:
		if err == nil {
			t.Fatal("have nil error from Run after HandleBackendFatal, want the fatal cause")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after HandleBackendFatal")
	}

	if !be.destroyed {
		t.Fatal("HandleBackendFatal did not destroy the output's backend")
	}
	if len(c.Outputs) != 0 {
		t.Fatal("HandleBackendFatal did not clear Outputs")
	}
	_ = o
}

var errTest = testError("boom")

type testError string

func (e testError) Error() string { return string(e) }

// Package pepper implements the root Compositor type described in
// SPEC_FULL.md §3: it owns every first-class entity (surfaces, the
// layer stack, outputs, seats, the global view index), drives the
// idle-task queue, and wires a repaint pass to whichever
// backend.OutputBackend each output is attached to. Grounded on the
// teacher's root-level re-export shape (`scene.Scene` wrapping a
// `node.Graph`, `engine.Configure`/`engine.loadDriver` selecting and
// opening a driver by name) generalized from "one scene, one engine
// singleton" to "however many outputs/seats/surfaces a running
// compositor has".
package pepper

import (
	"context"
	"errors"
	"image"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/gviegas/pepper/assign"
	"github.com/gviegas/pepper/backend"
	"github.com/gviegas/pepper/layer"
	"github.com/gviegas/pepper/loop"
	"github.com/gviegas/pepper/output"
	"github.com/gviegas/pepper/pepperlog"
	"github.com/gviegas/pepper/scheduler"
	"github.com/gviegas/pepper/seat"
	"github.com/gviegas/pepper/surface"
	"github.com/gviegas/pepper/view"
)

// Clock supplies the timestamps delivered with frame-done events
// (SPEC_FULL.md §8 scenario 1). The default is CLOCK_MONOTONIC-
// equivalent wall time via the standard library; tests may substitute
// a fixed or stepped clock.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// onFinisher is implemented by every concrete backend in this tree
// (backend/headless, backend/wlnested, backend/sdltest); it is kept
// out of backend.OutputBackend itself because spec.md §6 never
// mentions it - it is how this core, specifically, wires a backend's
// own notion of "a frame just finished" back to the owning Output's
// FinishFrame (through finishOutput).
type onFinisher interface {
	SetOnFinish(fn func())
}

// Compositor owns every first-class entity SPEC_FULL.md §3 names and
// ties the packages in this tree together into one running
// compositor.
type Compositor struct {
	Layers  layer.List
	Outputs []*output.Output
	Seats   []*seat.Seat

	surfaces map[*surface.Surface]struct{}
	backends map[*output.Output]backend.OutputBackend

	idle scheduler.Idle

	clock Clock
	start time.Time

	cancel context.CancelFunc
	fatal  error
}

// New creates an empty Compositor. A nil clock uses wall-clock time.
func New(clock Clock) *Compositor {
	if clock == nil {
		clock = systemClock{}
	}
	c := &Compositor{
		surfaces: make(map[*surface.Surface]struct{}),
		backends: make(map[*output.Output]backend.OutputBackend),
		clock:    clock,
	}
	c.start = clock.Now()
	return c
}

// Idle returns the compositor's idle-task queue, for loop.New.
func (c *Compositor) Idle() *scheduler.Idle { return &c.idle }

// nowMS returns the elapsed time since the compositor started, in
// milliseconds, the timestamp unit spec.md's frame-done and input
// events use.
func (c *Compositor) nowMS() uint32 {
	return uint32(c.clock.Now().Sub(c.start).Milliseconds())
}

// Views returns the global, back-to-front view index: every view
// reachable from the layer stack, in stacking order.
func (c *Compositor) Views() []*view.View {
	return c.Layers.AllViews()
}

// AddSurface registers s with the compositor and wires its
// needs-repaint hook (SPEC_FULL.md §4.1 step 7) to schedule a repaint
// on every output overlapping one of s's views.
func (c *Compositor) AddSurface(s *surface.Surface) {
	c.surfaces[s] = struct{}{}
	s.SetNeedsRepaintHook(c.scheduleOverlappingOutputs)
}

// RemoveSurface unregisters s.
func (c *Compositor) RemoveSurface(s *surface.Surface) {
	delete(c.surfaces, s)
}

// scheduleOverlappingOutputs walks s's views and, for every output
// that currently lists one of them, calls ScheduleRepaint - the Go
// realization of SPEC_FULL.md §4.1 step 7's "schedule a repaint on
// every output that overlaps a view of this surface".
func (c *Compositor) scheduleOverlappingOutputs(s *surface.Surface) {
	views := make(map[*view.View]bool)
	for _, vi := range s.Views() {
		if v, ok := vi.(*view.View); ok {
			views[v] = true
		}
	}
	if len(views) == 0 {
		return
	}
	for _, o := range c.Outputs {
		for _, v := range o.Views {
			if views[v] {
				o.ScheduleRepaint()
				break
			}
		}
	}
}

// NewOutput creates an output owned by this compositor, wired to
// repaint via the idle queue on schedule.
func (c *Compositor) NewOutput(geom output.Geometry, modes []output.Mode, current int) *output.Output {
	o := output.New(geom, modes, current, &c.idle)
	o.SetOnSchedule(c.repaintOutput)
	c.Outputs = append(c.Outputs, o)
	return o
}

// NewLayer creates a named layer, appends it as the new topmost layer
// in the compositor's stacking order, and returns it.
func (c *Compositor) NewLayer(name string) *layer.Layer {
	l := layer.New(name)
	c.Layers.Append(l)
	return l
}

// NewSeat creates a named seat owned by this compositor.
func (c *Compositor) NewSeat(name string) *seat.Seat {
	s := seat.New(name)
	c.Seats = append(c.Seats, s)
	return s
}

// AttachBackend associates be with o: every subsequent repaint pass
// for o consults be for plane assignment, and be's own
// frame-finished notification (if it supports one) is wired to
// finishOutput, which fires frame callbacks and calls o's FinishFrame.
func (c *Compositor) AttachBackend(o *output.Output, be backend.OutputBackend) {
	c.backends[o] = be
	if f, ok := be.(onFinisher); ok {
		f.SetOnFinish(func() { c.finishOutput(o) })
	}
}

// RecomputeViewGeometry recomputes every dirty view's global
// transform and regions (SPEC_FULL.md §4.2), then reassigns each
// output's candidate view list from the current layer stack. Callers
// run this once per idle-task batch, before any output's repaint
// pass, so assignment always sees up-to-date bounding regions.
func (c *Compositor) RecomputeViewGeometry() {
	views := c.Views()
	view.Recompute(view.RootViews(views))
	for _, o := range c.Outputs {
		o.Views = overlapping(o, views)
	}
}

// overlapping filters views down to those whose bounding region
// intersects o's current mode extent, expressed output-local with no
// Geometry.X/Y offset - the same convention package assign's own
// candidateViews filtering assumes.
func overlapping(o *output.Output, views []*view.View) []*view.View {
	if o.Current == nil {
		return nil
	}
	extent := image.Rect(0, 0, o.Current.Width, o.Current.Height)
	var out []*view.View
	for _, v := range views {
		b := v.BoundingRegion()
		if b.Empty() || !b.Intersects(extent) {
			continue
		}
		out = append(out, v)
	}
	return out
}

// repaintOutput runs one repaint pass for o and hands the dirty plane
// list to its backend. It is the idle task Output.ScheduleRepaint
// enqueues.
func (c *Compositor) repaintOutput(o *output.Output) {
	be, ok := c.backends[o]
	if !ok {
		return
	}
	c.RecomputeViewGeometry()
	o.BeginRepaint()
	dirty := assign.Pass(o, be)
	be.Repaint(dirty)
}

// finishOutput is wired to every onFinisher backend's SetOnFinish. It
// completes the Pending->Idle (or ->Scheduled) transition, delivers
// frame-done to every surface rendered this pass, and re-enqueues a
// repaint if FinishFrame reports one was rescheduled while pending.
func (c *Compositor) finishOutput(o *output.Output) {
	ts := c.nowMS()
	deliverFrameCallbacks(o, ts)
	if rescheduled := o.FinishFrame(); rescheduled {
		c.idle.Enqueue(func() { c.repaintOutput(o) })
	}
}

// deliverFrameCallbacks fires frame-done for every surface whose view
// was on one of o's render lists this pass, exactly once per surface,
// per SPEC_FULL.md §8 scenario 1.
func deliverFrameCallbacks(o *output.Output, ts uint32) {
	seen := make(map[*surface.Surface]bool)
	for _, p := range o.Planes {
		for _, e := range p.RenderList() {
			surf := e.View.Surface()
			if surf == nil || seen[surf] {
				continue
			}
			seen[surf] = true
			for _, cb := range surf.TakeFrameCallbacks() {
				cb.Done(ts)
			}
		}
	}
}

// HandleBackendFatal implements SPEC_FULL.md §7's Backend-fatal
// handling: it logs the cause, emits Destroy on every owned output
// and its backend, and cancels the running event loop (Run returns
// after the current iteration).
func (c *Compositor) HandleBackendFatal(err error) {
	pepperlog.Logger().Error("backend fatal, tearing down", "error", err)
	c.fatal = err
	for _, o := range c.Outputs {
		if be, ok := c.backends[o]; ok {
			be.Destroy()
		}
		o.Destroy()
	}
	c.Outputs = nil
	if c.cancel != nil {
		c.cancel()
	}
}

// Run drives the compositor's main loop until ctx is cancelled or
// SIGINT/SIGTERM is received, per spec.md §6's exit-code contract (a
// clean ctx cancellation or signal returns nil; HandleBackendFatal
// having run returns the fatal cause). Every attached backend's
// StartRepaintLoop is invoked once, since none of this tree's
// backends has a real vblank source to wait on instead.
func (c *Compositor) Run(ctx context.Context) error {
	l, err := loop.New(&c.idle)
	if err != nil {
		return err
	}
	defer l.Close()

	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	defer cancel()

	var sigFD int
	sigFD, err = l.AddSignals([]unix.Signal{unix.SIGINT, unix.SIGTERM}, func(events uint32) {
		var info unix.SignalfdSiginfo
		buf := (*[unsafe.Sizeof(info)]byte)(unsafe.Pointer(&info))[:]
		unix.Read(sigFD, buf)
		pepperlog.Logger().Info("received shutdown signal")
		cancel()
	})
	if err != nil {
		return err
	}
	defer unix.Close(sigFD)

	for o, be := range c.backends {
		be.StartRepaintLoop()
		pepperlog.Logger().Info("output repaint loop started", "output", o.ID)
	}

	err = l.Run(runCtx)
	if errors.Is(err, context.Canceled) {
		if c.fatal != nil {
			return c.fatal
		}
		return nil
	}
	return err
}

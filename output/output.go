// Package output implements one display's worth of compositor state
// described in SPEC_FULL.md §3: geometry, mode list, owned planes, the
// views currently overlapping it, and the frame scheduling state
// machine. Mode bookkeeping (an immutable descriptor list plus one
// "current" pointer, replaced wholesale on a backend mode change) is
// modeled after the teacher's driver.Limits (an immutable capability
// descriptor) combined with driver.Swapchain.Recreate's "tear down and
// rebuild on a format/extent change" flow.
package output

import (
	"image"

	"github.com/gviegas/pepper/internal/object"
	"github.com/gviegas/pepper/plane"
	"github.com/gviegas/pepper/region"
	"github.com/gviegas/pepper/scheduler"
	"github.com/gviegas/pepper/view"
	"github.com/gviegas/pepper/xform"
)

// SubpixelOrder mirrors the Wayland wl_output.subpixel enumeration.
type SubpixelOrder int

const (
	SubpixelUnknown SubpixelOrder = iota
	SubpixelNone
	SubpixelHorizontalRGB
	SubpixelHorizontalBGR
	SubpixelVerticalRGB
	SubpixelVerticalBGR
)

// Mode is one display mode a backend can be set to.
type Mode struct {
	Width, Height int
	RefreshMHz    int // refresh rate in milli-hertz, matching wl_output.mode
	Preferred     bool
}

// Geometry is an output's placement and fixed display properties.
type Geometry struct {
	X, Y          int
	SubpixelOrder SubpixelOrder
	Transform     xform.Transform
	Scale         int
	Maker, Model  string
}

// Output is one display.
type Output struct {
	object.Object
	scheduler.Machine

	ID uint32

	Geometry Geometry

	Modes   []Mode
	Current *Mode

	Planes []*plane.Plane
	Views  []*view.View

	idle *scheduler.Idle

	onSchedule func(*Output)
}

// New creates an Output with the given geometry and mode list. current
// indexes Modes for the initially active mode, or -1 if none is active
// yet. idle is the compositor's shared idle-task queue; ScheduleRepaint
// enqueues onto it.
func New(geom Geometry, modes []Mode, current int, idle *scheduler.Idle) *Output {
	o := &Output{ID: object.NextID(), Geometry: geom, Modes: modes, idle: idle}
	o.Init(object.KindOutput)
	if current >= 0 && current < len(modes) {
		o.Current = &o.Modes[current]
	}
	return o
}

// SetOnSchedule installs the callback invoked when this output
// transitions Idle -> Scheduled, so the owning compositor can, e.g.,
// run assignment as soon as the idle task fires.
func (o *Output) SetOnSchedule(fn func(*Output)) {
	o.onSchedule = fn
}

// ScheduleRepaint implements the schedule_repaint operation from
// SPEC_FULL.md §4.4, driving the embedded scheduler.Machine and
// enqueuing an idle task on transition into Scheduled.
func (o *Output) ScheduleRepaint() {
	if enqueue := o.Machine.ScheduleRepaint(); enqueue {
		o.idle.Enqueue(func() {
			if o.onSchedule != nil {
				o.onSchedule(o)
			}
		})
	}
}

// SetMode applies a new current mode, invalidating all plane and view
// damage as SPEC_FULL.md §4.4 requires on mode change. idx indexes
// Modes. It returns false if idx is out of range.
func (o *Output) SetMode(idx int) bool {
	if idx < 0 || idx >= len(o.Modes) {
		return false
	}
	o.Current = &o.Modes[idx]
	o.invalidateAll()
	o.ScheduleRepaint()
	return true
}

// invalidateAll resets every plane's damage to the full output extent,
// per SPEC_FULL.md §4.4's mode-change rule. Each plane's own
// PreviouslyAssigned index (and, transitively, every view's
// previous-visible-region bookkeeping) is cleared by Plane.InvalidateFull.
func (o *Output) invalidateAll() {
	extent := o.extentRegion()
	for _, p := range o.Planes {
		p.InvalidateFull(extent)
	}
}

func (o *Output) extentRegion() region.Region {
	if o.Current == nil {
		return region.Region{}
	}
	return region.New(image.Rect(0, 0, o.Current.Width, o.Current.Height))
}

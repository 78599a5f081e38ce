package plane

import (
	"image"
	"testing"

	"github.com/gviegas/pepper/region"
	"github.com/gviegas/pepper/view"
)

func TestCommitAssignmentTracksPrevious(t *testing.T) {
	p := New(Primary)
	v := view.New()
	vis := region.New(image.Rect(0, 0, 10, 10))
	p.SetRenderList([]*view.PlaneEntry{{View: v, VisibleRegion: vis}})
	if _, ok := p.PreviouslyAssigned(v); ok {
		t.Fatal("view reported previously assigned before CommitAssignment")
	}
	p.CommitAssignment()
	got, ok := p.PreviouslyAssigned(v)
	if !ok {
		t.Fatal("view not found after CommitAssignment")
	}
	if !got.Equal(vis) {
		t.Fatal("previously-assigned region does not match what was set")
	}
}

func TestInvalidateFullClearsPrevAssigned(t *testing.T) {
	p := New(Primary)
	v := view.New()
	p.SetRenderList([]*view.PlaneEntry{{View: v}})
	p.CommitAssignment()
	p.InvalidateFull(region.New(image.Rect(0, 0, 1920, 1080)))
	if _, ok := p.PreviouslyAssigned(v); ok {
		t.Fatal("previously-assigned index not cleared by InvalidateFull")
	}
	if p.Damage().Empty() {
		t.Fatal("damage not set to full extent by InvalidateFull")
	}
}

func TestViewsConvenience(t *testing.T) {
	p := New(Overlay)
	a := view.New()
	b := view.New()
	p.SetRenderList([]*view.PlaneEntry{{View: a}, {View: b}})
	vs := p.Views()
	if len(vs) != 2 || vs[0] != a || vs[1] != b {
		t.Fatalf("have %v, want [a b]", vs)
	}
}

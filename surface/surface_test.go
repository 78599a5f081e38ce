package surface

import (
	"image"
	"testing"

	"github.com/gviegas/pepper/buffer"
	"github.com/gviegas/pepper/region"
	"github.com/gviegas/pepper/xform"
)

type fakeView struct{ notified int }

func (v *fakeView) SurfaceCommitted() { v.notified++ }

func TestAttachCommitPromotesBuffer(t *testing.T) {
	s := New()
	b := buffer.New("res", nil)
	s.Attach(b, 1, 2)
	if s.Buffer() != nil {
		t.Fatal("buffer promoted before commit")
	}
	s.Commit()
	if s.Buffer() != b {
		t.Fatal("buffer not promoted after commit")
	}
	if dx, dy := s.Offset(); dx != 1 || dy != 2 {
		t.Fatalf("have offset (%d,%d), want (1,2)", dx, dy)
	}
	if b.RefCount() != 1 {
		t.Fatalf("have refcount %d, want 1", b.RefCount())
	}
}

func TestAttachReplacesPendingBuffer(t *testing.T) {
	s := New()
	b1 := buffer.New("a", nil)
	b2 := buffer.New("b", nil)
	s.Attach(b1, 0, 0)
	s.Attach(b2, 0, 0)
	s.Commit()
	if s.Buffer() != b2 {
		t.Fatal("second attach did not win")
	}
	if b1.RefCount() != 0 {
		t.Fatalf("have b1 refcount %d, want 0 (never promoted)", b1.RefCount())
	}
}

func TestCommitUnrefsPreviousCurrentBuffer(t *testing.T) {
	s := New()
	b1 := buffer.New("a", nil)
	b2 := buffer.New("b", nil)
	s.Attach(b1, 0, 0)
	s.Commit()
	s.Attach(b2, 0, 0)
	s.Commit()
	if b1.RefCount() != 0 {
		t.Fatalf("have b1 refcount %d, want 0 after being superseded", b1.RefCount())
	}
	if b2.RefCount() != 1 {
		t.Fatalf("have b2 refcount %d, want 1", b2.RefCount())
	}
}

func TestAttachedBufferDestroyedBeforeCommitClearsPending(t *testing.T) {
	s := New()
	b := buffer.New("a", nil)
	s.Attach(b, 0, 0)
	b.Destroy()
	s.Commit()
	if s.Buffer() != nil {
		t.Fatal("destroyed pending buffer still promoted on commit")
	}
}

func TestDamageAccumulatesUntilCommit(t *testing.T) {
	s := New()
	s.DamageRects(0, 0, 10, 10)
	s.DamageRects(10, 0, 20, 10)
	if !s.DamageRegion().Empty() {
		t.Fatal("current damage non-empty before commit")
	}
	s.Commit()
	if s.DamageRegion().Empty() {
		t.Fatal("current damage empty after commit")
	}
	s.ClearDamage()
	if !s.DamageRegion().Empty() {
		t.Fatal("damage not cleared")
	}
}

func TestSetRoleIdempotentSameValueRejectsDifferent(t *testing.T) {
	s := New()
	if err := s.SetRole("xdg_toplevel"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.SetRole("xdg_toplevel"); err != nil {
		t.Fatalf("re-setting same role failed: %v", err)
	}
	if err := s.SetRole("xdg_popup"); err == nil {
		t.Fatal("changing role did not error")
	}
}

func TestInputRegionInfiniteByDefault(t *testing.T) {
	s := New()
	s.Commit()
	if _, infinite := s.InputRegion(); !infinite {
		t.Fatal("have finite input region, want infinite default")
	}
	r := region.New()
	r.Add(imageRectHelper(0, 0, 5, 5))
	s.SetInputRegion(&r)
	s.Commit()
	if _, infinite := s.InputRegion(); infinite {
		t.Fatal("have infinite input region, want finite after SetInputRegion")
	}
}

func imageRectHelper(x0, y0, x1, y1 int) image.Rectangle {
	return imageRect(x0, y0, x1, y1)
}

func TestCommitNotifiesViews(t *testing.T) {
	s := New()
	v := &fakeView{}
	s.AddView(v)
	s.Commit()
	if v.notified != 1 {
		t.Fatalf("have %d notifications, want 1", v.notified)
	}
	s.RemoveView(v)
	s.Commit()
	if v.notified != 1 {
		t.Fatalf("have %d notifications after removal, want 1", v.notified)
	}
}

func TestSetBufferTransformScaleValidation(t *testing.T) {
	s := New()
	if err := s.SetBufferTransform(xform.Transform(99)); err != ErrInvalidTransform {
		t.Fatalf("have err %v, want ErrInvalidTransform", err)
	}
	if err := s.SetBufferScale(0); err != ErrInvalidScale {
		t.Fatalf("have err %v, want ErrInvalidScale", err)
	}
	if err := s.SetBufferTransform(xform.Rotated90); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s.Commit()
	if s.Transform() != xform.Rotated90 {
		t.Fatal("transform not promoted")
	}
}

package buffer

import (
	"testing"

	"github.com/gviegas/pepper/internal/object"
)

func TestRefCountReleasesAtZero(t *testing.T) {
	released := false
	b := New("resource-handle", func(Resource) { released = true })
	b.Ref()
	b.Ref()
	b.Unref()
	if released {
		t.Fatal("released after first Unref, want still referenced")
	}
	b.Unref()
	if !released {
		t.Fatal("not released after refcount reached zero")
	}
}

func TestDestroySignalIndependentOfRefcount(t *testing.T) {
	b := New(nil, nil)
	b.Ref()
	fired := false
	b.OnDestroy(func(object.Event) { fired = true })
	b.Destroy()
	if !fired {
		t.Fatal("destroy signal did not fire")
	}
	// Destroying does not itself release to the client; that is a
	// distinct, refcount-driven action.
}

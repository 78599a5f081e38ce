// Package layer implements the ordered view container and the
// compositor-wide layer stacking order described in SPEC_FULL.md §3:
// a Layer holds an ordered list of root views, and a List orders
// layers themselves so their concatenation yields the global
// back-to-front view order. Grounded on the teacher's scene.Scene,
// which wraps a node.Graph as a named, singular scene; generalized
// here into a named, ordered collection of such containers.
package layer

import "github.com/gviegas/pepper/view"

// entry is the layer's own intrusive list node for a view, so the
// layer (not the view) owns the list's next/prev links, per
// SPEC_FULL.md's ownership rule that a view only weakly references
// its layer.
type entry struct {
	v          *view.View
	next, prev *entry
}

// Layer is a named, ordered list of root views.
type Layer struct {
	Name string

	head, tail *entry
	len        int
}

// New creates an empty, named layer.
func New(name string) *Layer {
	return &Layer{Name: name}
}

// Len returns the number of views in the layer.
func (l *Layer) Len() int { return l.len }

// Append adds v to the front (last-drawn, topmost) of the layer.
func (l *Layer) Append(v *view.View) {
	e := &entry{v: v}
	if l.tail != nil {
		l.tail.next = e
		e.prev = l.tail
	} else {
		l.head = e
	}
	l.tail = e
	l.len++
	v.SetLayerRef(e)
}

// Remove removes v from the layer, if present. It is a no-op if v is
// not a member of this layer.
func (l *Layer) Remove(v *view.View) {
	ref := v.LayerRef()
	e, ok := ref.(*entry)
	if !ok || e == nil {
		return
	}
	x := l.head
	for x != nil && x != e {
		x = x.next
	}
	if x == nil {
		return
	}
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		l.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		l.tail = e.prev
	}
	l.len--
	v.SetLayerRef(nil)
}

// Views returns the layer's views in back-to-front order.
func (l *Layer) Views() []*view.View {
	out := make([]*view.View, 0, l.len)
	for e := l.head; e != nil; e = e.next {
		out = append(out, e.v)
	}
	return out
}

// List is the compositor-wide, ordered list of layers. Concatenating
// each layer's Views(), in List order, yields the global back-to-front
// order SPEC_FULL.md §3 describes.
type List struct {
	layers []*Layer
}

// Append adds l as the new topmost (last) layer.
func (s *List) Append(l *Layer) {
	s.layers = append(s.layers, l)
}

// Remove removes l from the list, if present.
func (s *List) Remove(l *Layer) {
	for i, x := range s.layers {
		if x == l {
			s.layers = append(s.layers[:i], s.layers[i+1:]...)
			return
		}
	}
}

// Layers returns the ordered layer list.
func (s *List) Layers() []*Layer { return s.layers }

// AllViews returns the global back-to-front concatenation of every
// layer's views.
func (s *List) AllViews() []*view.View {
	var out []*view.View
	for _, l := range s.layers {
		out = append(out, l.Views()...)
	}
	return out
}

// Package signal implements the observer-list idiom used throughout the
// compositor core in place of hand-maintained back-pointers: buffer
// destruction, output mode changes, parent destruction and surface/view
// teardown are all modeled as a Signal that owns a list of sinks.
//
// A Sink carries no reference back to its host other than the closure the
// caller supplied to Connect, so emitting a signal never has to reach
// through a type-erased back-pointer. Unsubscribing the sink currently
// being invoked, from within its own callback, is safe: Emit iterates a
// snapshot of the sink list taken at the start of the call.
package signal

// Signal is an observer list parameterized on the event payload type T.
// The zero value is an empty, ready-to-use Signal.
type Signal[T any] struct {
	sinks  []*sink[T]
	nextID int
}

type sink[T any] struct {
	id  int
	fn  func(T)
	rem bool
}

// Sink identifies a previously connected observer. It is returned by
// Connect and consumed by Disconnect.
type Sink struct {
	id int
}

// Connect appends fn to the signal's sink list. fn is invoked, in the
// order Connect was called, every time Emit runs, until the returned Sink
// is disconnected.
func (s *Signal[T]) Connect(fn func(T)) Sink {
	s.nextID++
	id := s.nextID
	s.sinks = append(s.sinks, &sink[T]{id: id, fn: fn})
	return Sink{id: id}
}

// Disconnect removes a sink. It is idempotent: disconnecting an already
// disconnected or unknown Sink is a no-op, so a one-shot observer may
// disconnect itself from within its own callback.
func (s *Signal[T]) Disconnect(sk Sink) {
	for _, x := range s.sinks {
		if x.id == sk.id {
			x.rem = true
			return
		}
	}
}

// Emit invokes every currently connected sink with v, in connection order.
// Sinks disconnected during this call (including by the sink currently
// running) do not run again on this Emit, but a sink connected during the
// call does not run until the next Emit either - the iteration works over
// a fixed snapshot taken before the first callback runs.
func (s *Signal[T]) Emit(v T) {
	if len(s.sinks) == 0 {
		return
	}
	cur := s.sinks
	for _, x := range cur {
		if x.rem {
			continue
		}
		x.fn(v)
	}
	s.compact()
}

// compact drops sinks marked for removal. It is called after Emit so
// Disconnect calls made mid-iteration do not shift indices out from under
// the loop in progress.
func (s *Signal[T]) compact() {
	n := 0
	for _, x := range s.sinks {
		if !x.rem {
			s.sinks[n] = x
			n++
		}
	}
	s.sinks = s.sinks[:n]
}

// Len returns the number of currently connected sinks.
func (s *Signal[T]) Len() int {
	n := 0
	for _, x := range s.sinks {
		if !x.rem {
			n++
		}
	}
	return n
}

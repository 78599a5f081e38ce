// Package loop implements the main event loop described in
// SPEC_FULL.md §5: a single epoll fd multiplexes the display socket,
// input backend fd, backend event/vblank fds, the signalfd standing in
// for SIGINT/SIGTERM, and any timerfd a backend needs for its
// frame-fallback timer. Grounded on the pack's idiomatic use of
// golang.org/x/sys/unix for direct Linux syscalls (the same dependency
// friedelschoen-ctxmenu, gazed-vu and gogpu-gogpu reach for instead of
// the no-longer-recommended raw syscall package).
package loop

import (
	"context"
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/gviegas/pepper/scheduler"
)

// Loop is a single-threaded epoll-based event loop.
type Loop struct {
	epfd int
	idle *scheduler.Idle

	callbacks map[int]func(events uint32)
}

// New creates a Loop backed by a fresh epoll instance. idle is drained
// once per iteration, after fd callbacks and before the next
// epoll_wait, matching spec.md §5's suspension-point ordering.
func New(idle *scheduler.Idle) (*Loop, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("loop: epoll_create1: %w", err)
	}
	return &Loop{epfd: epfd, idle: idle, callbacks: make(map[int]func(events uint32))}, nil
}

// Close releases the loop's epoll fd. It does not close any fd
// previously registered with AddFD.
func (l *Loop) Close() error {
	return unix.Close(l.epfd)
}

// AddFD registers fd for readability, invoking cb with the ready event
// mask whenever epoll_wait reports it. Only EPOLLIN is requested;
// callers needing EPOLLOUT use AddFDEvents.
func (l *Loop) AddFD(fd int, cb func(events uint32)) error {
	return l.AddFDEvents(fd, unix.EPOLLIN, cb)
}

// AddFDEvents registers fd for the given epoll event mask.
func (l *Loop) AddFDEvents(fd int, events uint32, cb func(events uint32)) error {
	ev := unix.EpollEvent{Events: events, Fd: int32(fd)}
	if err := unix.EpollCtl(l.epfd, unix.EPOLL_CTL_ADD, fd, &ev); err != nil {
		return fmt.Errorf("loop: epoll_ctl add fd %d: %w", fd, err)
	}
	l.callbacks[fd] = cb
	return nil
}

// RemoveFD unregisters fd. It is the caller's responsibility to close
// fd itself.
func (l *Loop) RemoveFD(fd int) error {
	delete(l.callbacks, fd)
	if err := unix.EpollCtl(l.epfd, unix.EPOLL_CTL_DEL, fd, nil); err != nil {
		return fmt.Errorf("loop: epoll_ctl del fd %d: %w", fd, err)
	}
	return nil
}

// AddSignals registers a signalfd for the given signals (typically
// SIGINT, SIGTERM) and returns its fd so the caller can read
// unix.SignalfdSiginfo from it in the supplied callback, turning
// shutdown into an ordinary fd-ready event instead of an async
// signal-handler race.
func (l *Loop) AddSignals(sigs []unix.Signal, cb func(events uint32)) (int, error) {
	var mask unix.Sigset_t
	for _, s := range sigs {
		// Sigset_t is a bitmask; setting bit (s-1) is the standard
		// sigaddset encoding x/sys/unix exposes no higher-level helper
		// for, so it is done directly (this core's one unavoidable
		// piece of raw bit twiddling, clearly commented rather than
		// wrapped in a one-line-use-site helper).
		bit := uint(s) - 1
		mask.Val[bit/64] |= 1 << (bit % 64)
	}
	if err := unix.SigprocMask(unix.SIG_BLOCK, &mask, nil); err != nil {
		return -1, fmt.Errorf("loop: sigprocmask: %w", err)
	}
	fd, err := unix.Signalfd(-1, &mask, unix.SFD_CLOEXEC|unix.SFD_NONBLOCK)
	if err != nil {
		return -1, fmt.Errorf("loop: signalfd: %w", err)
	}
	if err := l.AddFD(fd, cb); err != nil {
		unix.Close(fd)
		return -1, err
	}
	return fd, nil
}

// AddTimer creates a monotonic timerfd firing once after the given
// duration (no repeat), registers it, and returns its fd. Used for the
// frame-fallback timer (SPEC_FULL.md §4.4): closing the returned fd
// (after RemoveFD) cancels it, done by the caller once a backend
// reports a real vblank source.
func (l *Loop) AddTimer(nanoseconds int64, cb func(events uint32)) (int, error) {
	fd, err := unix.TimerfdCreate(unix.CLOCK_MONOTONIC, unix.TFD_CLOEXEC|unix.TFD_NONBLOCK)
	if err != nil {
		return -1, fmt.Errorf("loop: timerfd_create: %w", err)
	}
	spec := unix.ItimerSpec{
		Value: unix.Timespec{
			Sec:  nanoseconds / 1e9,
			Nsec: nanoseconds % 1e9,
		},
	}
	if err := unix.TimerfdSettime(fd, 0, &spec, nil); err != nil {
		unix.Close(fd)
		return -1, fmt.Errorf("loop: timerfd_settime: %w", err)
	}
	if err := l.AddFD(fd, cb); err != nil {
		unix.Close(fd)
		return -1, err
	}
	return fd, nil
}

// maxEvents bounds how many ready events a single epoll_wait call
// reports; additional ready fds are picked up on the next iteration.
const maxEvents = 64

// Run blocks in epoll_wait, dispatching ready fd callbacks and
// draining the idle-task queue once per iteration, until ctx is
// cancelled (returning ctx.Err()) or epoll_wait fails with an error
// other than EINTR. Each wait lasts at most 100ms, so cancellation and
// idle tasks enqueued from other goroutines are noticed within that
// interval even when no fd becomes ready.
func (l *Loop) Run(ctx context.Context) error {
	events := make([]unix.EpollEvent, maxEvents)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		n, err := unix.EpollWait(l.epfd, events, 100)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return fmt.Errorf("loop: epoll_wait: %w", err)
		}
		for i := 0; i < n; i++ {
			fd := int(events[i].Fd)
			if cb, ok := l.callbacks[fd]; ok {
				cb(events[i].Events)
			}
		}
		l.idle.Drain()
	}
}

// Package shm implements the shared-memory buffer pool backing
// wl_shm, per SPEC_FULL.md §4.6: a client-supplied fd is mapped once
// and sliced into per-buffer pixel views on demand, without copying.
// Grounded on `dominikh-go-libwayland/wayland.go`'s use of
// `honnef.co/go/safeish` to turn a raw pointer into a typed Go slice
// without triggering `go vet`'s unsafe-pointer-conversion checks; here
// the raw pointer is the mmap'd pool's base address rather than a cgo
// message buffer, but the cast technique is the same.
package shm

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
	"honnef.co/go/safeish"

	"github.com/gviegas/pepper/buffer"
)

// Format is a pixel format code, matching wl_shm's enumeration values
// (ARGB8888 = 0, XRGB8888 = 1; others are accepted and stored but not
// interpreted by this package).
type Format uint32

const (
	FormatARGB8888 Format = 0
	FormatXRGB8888 Format = 1
)

// BytesPerPixel returns the stride unit for the known formats, and 4
// (the common case for every format wl_shm currently defines) for any
// other value.
func (f Format) BytesPerPixel() int {
	return 4
}

// Pool is a single client-supplied shared-memory mapping, created from
// an fd the client has already sized with ftruncate. Multiple buffers
// may be carved out of one Pool at different offsets, exactly as
// wl_shm_pool permits.
type Pool struct {
	fd   int
	data []byte
}

// NewPool maps size bytes of fd read-write and shared, per wl_shm's
// contract that the client retains the fd and may grow it later via
// Resize.
func NewPool(fd int, size int32) (*Pool, error) {
	if size <= 0 {
		return nil, fmt.Errorf("shm: pool size must be positive, got %d", size)
	}
	data, err := unix.Mmap(fd, 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("shm: mmap: %w", err)
	}
	return &Pool{fd: fd, data: data}, nil
}

// Resize grows the pool's mapping to match a client
// ftruncate of the same fd to a new, larger size. wl_shm_pool.resize
// never shrinks in the real protocol; this mirrors that by rejecting a
// smaller size.
func (p *Pool) Resize(size int32) error {
	if int(size) < len(p.data) {
		return fmt.Errorf("shm: resize to %d is smaller than current pool size %d", size, len(p.data))
	}
	data, err := unix.Mremap(p.data, int(size), unix.MREMAP_MAYMOVE)
	if err != nil {
		return fmt.Errorf("shm: mremap: %w", err)
	}
	p.data = data
	return nil
}

// Destroy unmaps the pool. It does not close the underlying fd, which
// the wire codec owns.
func (p *Pool) Destroy() error {
	if p.data == nil {
		return nil
	}
	err := unix.Munmap(p.data)
	p.data = nil
	return err
}

// CreateBuffer carves a pixel view out of the pool at the given byte
// offset, returning a buffer.Buffer whose Resource is a []uint32 slice
// over the mapped memory (no copy: writes the client makes to the
// pool's memory are visible through this slice immediately, matching
// wl_shm's shared-memory semantics). release is invoked (by
// buffer.Buffer.Unref) once the buffer's reference count drops to
// zero; it should notify the client it may reuse the region, not
// unmap anything.
func (p *Pool) CreateBuffer(offset, width, height, stride int32, format Format, release func(buffer.Resource)) (*buffer.Buffer, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("shm: buffer dimensions must be positive, got %dx%d", width, height)
	}
	bpp := int32(format.BytesPerPixel())
	if stride < width*bpp {
		return nil, fmt.Errorf("shm: stride %d too small for width %d at %d bytes/pixel", stride, width, bpp)
	}
	size := int64(offset) + int64(stride)*int64(height)
	if size > int64(len(p.data)) {
		return nil, fmt.Errorf("shm: buffer at offset %d size %d exceeds pool size %d", offset, size, len(p.data))
	}

	region := p.data[offset:size]
	// safeish.Cast turns &region[0] into a *uint32 without an
	// unsafe.Pointer round-trip go vet would flag; unsafe.Slice then
	// builds the typed view over the same backing memory.
	pixels := unsafe.Slice(safeish.Cast[*uint32](&region[0]), len(region)/4)

	buf := buffer.New(pixels, release)
	buf.SetSize(int(width), int(height))
	return buf, nil
}

// Package hostmem implements the host memory bridge: the external,
// out-of-scope collaborator that hands the enclave chunks of outside-enclave
// memory, plus the arena-source growth policy that decides how big a
// chunk to request on allocator exhaustion.
//
// There is no real host kernel in this repository, so Bridge is backed by
// ordinary Go heap memory addressed through unsafe.Pointer — the same trick
// internal/buddy's sibling allocator examples in this codebase's ecosystem
// use for their own "external" memory. Production deployments would swap
// this implementation for one that calls through cgo to the real
// host_alloc/host_free/host_ioctl primitives; nothing above this package
// needs to change to do that, since everything is expressed against Bridge.
package hostmem

import (
	"sync"
	"unsafe"

	"github.com/bytedance/gopkg/lang/mcache"

	"github.com/sealedgfx/i915shim/internal/shimerr"
)

// Bridge is the host memory and ioctl transport the shim is built on top of.
// Alloc/Free correspond to host_alloc/host_free; Ioctl is the
// synchronous host_ioctl call. Bytes gives the marshaller a read/write
// window into a previously allocated (or caller-owned, e.g. GEM_USERPTR)
// region — in a real cgo-backed bridge this would be a bounds-checked
// reinterpretation of the returned pointer, which is exactly what it is
// here too.
type Bridge interface {
	Alloc(align, size uintptr) (uintptr, error)
	Free(ptr uintptr) error
	Ioctl(fd int32, cmd uint32, arg uintptr) (ret int32, err error)
	Bytes(ptr uintptr, size uintptr) []byte
}

// NativeBridge is the default Bridge: host_alloc/host_free are backed by
// mcache's size-classed pool (so repeated arena growth reuses freed chunks
// instead of pressuring the GC with fresh large allocations), and Ioctl is a
// stub that reports a transport failure until a real driver connection (or,
// in tests, a LoopbackBridge) is wired in.
type NativeBridge struct {
	mu   sync.Mutex
	live map[uintptr][]byte // keeps backing arrays reachable; keyed by their address
}

// NewNativeBridge constructs an empty bridge.
func NewNativeBridge() *NativeBridge {
	return &NativeBridge{live: make(map[uintptr][]byte)}
}

// Alloc mirrors host_alloc(align, size) -> ptr. align is honored by
// over-allocating size+align bytes from mcache and rounding the returned
// address up.
func (b *NativeBridge) Alloc(align, size uintptr) (uintptr, error) {
	if align == 0 {
		align = 1
	}
	raw := mcache.Malloc(int(size) + int(align))
	base := uintptr(unsafe.Pointer(&raw[0]))
	aligned := (base + align - 1) &^ (align - 1)

	b.mu.Lock()
	b.live[aligned] = raw
	b.mu.Unlock()

	return aligned, nil
}

// Free mirrors host_free(ptr). This is currently unused at runtime
// for arena chunks (arenas are never released during the process lifetime);
// it exists so the bridge contract is symmetric and so tests can release
// scratch allocations that never went through an arena.
func (b *NativeBridge) Free(ptr uintptr) error {
	b.mu.Lock()
	raw, ok := b.live[ptr]
	if ok {
		delete(b.live, ptr)
	}
	b.mu.Unlock()

	if !ok {
		return shimerr.New(shimerr.KindTransport, "free of unknown host pointer", map[string]interface{}{"ptr": ptr})
	}
	mcache.Free(raw)
	return nil
}

// Bytes returns a []byte window over [ptr, ptr+size) of host memory. Valid
// only for ranges previously returned by Alloc (or, for GEM_USERPTR, any
// address the caller asserts is host-shared).
func (b *NativeBridge) Bytes(ptr uintptr, size uintptr) []byte {
	if size == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(ptr)), int(size))
}

// Ioctl is the default, driver-less transport: always fails. NativeBridge is
// meant to be embedded by something that overrides this (see LoopbackBridge)
// or, in production, by a cgo shim that actually calls into the host.
func (b *NativeBridge) Ioctl(fd int32, cmd uint32, arg uintptr) (int32, error) {
	return 0, shimerr.TransportError("ioctl", -1)
}

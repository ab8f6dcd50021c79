// Package ioctl implements the deep-copy marshalling engine and the
// ioctl dispatcher: per-command walkers that mirror a trusted
// argument graph into freshly allocated untrusted memory, invoke the host
// ioctl, mirror results back, and tear the shadow down again.
package ioctl

import (
	"github.com/sealedgfx/i915shim/internal/hostmem"
	"github.com/sealedgfx/i915shim/internal/manager"
)

// Context bundles the two collaborators every marshaller needs: somewhere
// to allocate untrusted storage, and a window into host memory to write
// through. It carries no per-call state of its own.
type Context struct {
	Mgr *manager.Manager
	Mem hostmem.Bridge
}

func (c *Context) alloc(size, align uintptr) (uintptr, error) {
	return c.Mgr.Alloc(size, align)
}

func (c *Context) free(addr, size, align uintptr) {
	c.Mgr.Dealloc(addr, size, align)
}

// Marshaller is the per-command state machine driving the four phases named
// above. A Marshaller instance is single-use: one per Ioctl call.
type Marshaller interface {
	// Alloc allocates the untrusted top-level struct and any nested
	// indirect-buffer/chain storage, returning the untrusted address of the
	// top-level struct.
	Alloc(ctx *Context) (uintptr, error)
	// CopyIn is the t2u phase: trusted -> untrusted, for in/inout fields.
	CopyIn(ctx *Context, untrusted uintptr) error
	// CopyOut is the u2t phase: untrusted -> trusted, for out/inout fields.
	// Called after the host ioctl returns.
	CopyOut(ctx *Context, untrusted uintptr) error
	// Free tears down everything Alloc allocated, post-order.
	Free(ctx *Context, untrusted uintptr) error
}

// Factory builds a Marshaller bound to a specific call's trusted argument
// bytes. trustedBuf is the caller's buffer: phases decode from and encode
// back into it directly, so the caller sees results in place after Ioctl
// returns.
type Factory func(trustedBuf []byte) Marshaller

// Entry pairs a command's expected trusted-argument size with its Factory,
// for size validation.
type Entry struct {
	ArgSize int
	New     Factory
}

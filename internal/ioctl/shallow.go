package ioctl

import "github.com/sealedgfx/i915shim/internal/drmabi"

// shallowHostPtrAlign is the alignment used for every shallow top-level
// struct allocation: the kernel's natural struct alignment never exceeds a
// pointer's size, so a uniform pointer-sized alignment is always safe.
const shallowHostPtrAlign = 8

// shallow marshals a command whose argument struct contains no indirection
// the shim needs to follow: the whole struct is memcpy'd in, ioctl'd,
// memcpy'd out.
type shallow[T any] struct {
	buf []byte
}

// Shallow builds a Factory for any command using the memcpy-only marshaller.
func Shallow[T any]() Factory {
	return func(trustedBuf []byte) Marshaller {
		return &shallow[T]{buf: trustedBuf}
	}
}

func (s *shallow[T]) Alloc(ctx *Context) (uintptr, error) {
	size := uintptr(drmabi.SizeOf[T]())
	return ctx.alloc(size, shallowHostPtrAlign)
}

func (s *shallow[T]) CopyIn(ctx *Context, untrusted uintptr) error {
	view := ctx.Mem.Bytes(untrusted, uintptr(drmabi.SizeOf[T]()))
	copy(view, s.buf)
	return nil
}

func (s *shallow[T]) CopyOut(ctx *Context, untrusted uintptr) error {
	view := ctx.Mem.Bytes(untrusted, uintptr(drmabi.SizeOf[T]()))
	copy(s.buf, view)
	return nil
}

func (s *shallow[T]) Free(ctx *Context, untrusted uintptr) error {
	ctx.free(untrusted, uintptr(drmabi.SizeOf[T]()), shallowHostPtrAlign)
	return nil
}

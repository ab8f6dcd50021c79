package ioctl

import "github.com/sealedgfx/i915shim/internal/drmabi"

var sizeofDrmI915GemPread = drmabi.SizeOf[drmabi.DrmI915GemPread]()
var sizeofDrmI915GemPwrite = drmabi.SizeOf[drmabi.DrmI915GemPwrite]()

// preadMarshaller implements PREAD: data_ptr is out-direction only.
type preadMarshaller struct {
	buf  []byte
	data []byte
	addr uintptr
}

// NewPread drives a PREAD call; data is filled in place by CopyOut.
func NewPread(data []byte) Factory {
	return func(trustedBuf []byte) Marshaller { return &preadMarshaller{buf: trustedBuf, data: data} }
}

func (m *preadMarshaller) Alloc(ctx *Context) (uintptr, error) {
	top, err := ctx.alloc(uintptr(sizeofDrmI915GemPread), 8)
	if err != nil {
		return 0, err
	}
	if len(m.data) > 0 {
		addr, aerr := ctx.alloc(uintptr(len(m.data)), 1)
		if aerr != nil {
			ctx.free(top, uintptr(sizeofDrmI915GemPread), 8)
			return 0, aerr
		}
		m.addr = addr
	}
	return top, nil
}

func (m *preadMarshaller) CopyIn(ctx *Context, untrusted uintptr) error {
	hdr := drmabi.GetStruct[drmabi.DrmI915GemPread](m.buf)
	hdr.Size = uint64(len(m.data))
	hdr.DataPtr = uint64(m.addr)
	drmabi.PutStruct(ctx.Mem.Bytes(untrusted, uintptr(sizeofDrmI915GemPread)), hdr)
	return nil
}

func (m *preadMarshaller) CopyOut(ctx *Context, untrusted uintptr) error {
	if m.addr != 0 {
		copy(m.data, ctx.Mem.Bytes(m.addr, uintptr(len(m.data))))
	}
	return nil
}

func (m *preadMarshaller) Free(ctx *Context, untrusted uintptr) error {
	if m.addr != 0 {
		ctx.free(m.addr, uintptr(len(m.data)), 1)
	}
	ctx.free(untrusted, uintptr(sizeofDrmI915GemPread), 8)
	return nil
}

// pwriteMarshaller implements PWRITE: data_ptr is in-direction only.
type pwriteMarshaller struct {
	buf  []byte
	data []byte
	addr uintptr
}

// NewPwrite drives a PWRITE call over data (never mutated after the call).
func NewPwrite(data []byte) Factory {
	return func(trustedBuf []byte) Marshaller { return &pwriteMarshaller{buf: trustedBuf, data: data} }
}

func (m *pwriteMarshaller) Alloc(ctx *Context) (uintptr, error) {
	top, err := ctx.alloc(uintptr(sizeofDrmI915GemPwrite), 8)
	if err != nil {
		return 0, err
	}
	if len(m.data) > 0 {
		addr, aerr := ctx.alloc(uintptr(len(m.data)), 1)
		if aerr != nil {
			ctx.free(top, uintptr(sizeofDrmI915GemPwrite), 8)
			return 0, aerr
		}
		m.addr = addr
	}
	return top, nil
}

func (m *pwriteMarshaller) CopyIn(ctx *Context, untrusted uintptr) error {
	hdr := drmabi.GetStruct[drmabi.DrmI915GemPwrite](m.buf)
	hdr.Size = uint64(len(m.data))
	hdr.DataPtr = uint64(m.addr)
	drmabi.PutStruct(ctx.Mem.Bytes(untrusted, uintptr(sizeofDrmI915GemPwrite)), hdr)
	if m.addr != 0 {
		copy(ctx.Mem.Bytes(m.addr, uintptr(len(m.data))), m.data)
	}
	return nil
}

func (m *pwriteMarshaller) CopyOut(ctx *Context, untrusted uintptr) error { return nil }

func (m *pwriteMarshaller) Free(ctx *Context, untrusted uintptr) error {
	if m.addr != 0 {
		ctx.free(m.addr, uintptr(len(m.data)), 1)
	}
	ctx.free(untrusted, uintptr(sizeofDrmI915GemPwrite), 8)
	return nil
}

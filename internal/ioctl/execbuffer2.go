package ioctl

import (
	"github.com/sealedgfx/i915shim/internal/drmabi"
	"github.com/sealedgfx/i915shim/internal/shimerr"
)

var sizeofExecObject2 = drmabi.SizeOf[drmabi.DrmI915GemExecObject2]()
var sizeofDrmI915GemExecbuffer2 = drmabi.SizeOf[drmabi.DrmI915GemExecbuffer2]()

// execbuffer2Marshaller implements EXECBUFFER2 / EXECBUFFER2_WR: the
// buffers_ptr array is inout (the kernel writes relocated Offset fields
// back into it), cliprects_ptr is a legacy in-direction-only array carried
// for compatibility with pre-relocation-free userspace.
type execbuffer2Marshaller struct {
	buf        []byte
	objects    []drmabi.DrmI915GemExecObject2
	cliprects  []byte

	objAddr, cliprectsAddr uintptr
}

// NewExecbuffer2 drives an EXECBUFFER2 call. objects is mutated in place
// (Offset fields refreshed after the ioctl); cliprects may be nil.
func NewExecbuffer2(objects []drmabi.DrmI915GemExecObject2, cliprects []byte) Factory {
	return func(trustedBuf []byte) Marshaller {
		return &execbuffer2Marshaller{buf: trustedBuf, objects: objects, cliprects: cliprects}
	}
}

func (m *execbuffer2Marshaller) Alloc(ctx *Context) (uintptr, error) {
	top, err := ctx.alloc(uintptr(sizeofDrmI915GemExecbuffer2), 8)
	if err != nil {
		return 0, err
	}
	objBytes, ok := checkedMul(uint64(len(m.objects)), uint64(sizeofExecObject2))
	if !ok {
		ctx.free(top, uintptr(sizeofDrmI915GemExecbuffer2), 8)
		return 0, shimerr.OverflowError("execbuffer2.buffer_count*sizeof(exec_object2)", uint64(len(m.objects)), uint64(sizeofExecObject2))
	}
	if objBytes > 0 {
		addr, aerr := ctx.alloc(uintptr(objBytes), 8)
		if aerr != nil {
			ctx.free(top, uintptr(sizeofDrmI915GemExecbuffer2), 8)
			return 0, aerr
		}
		m.objAddr = addr
	}
	if len(m.cliprects) > 0 {
		addr, aerr := ctx.alloc(uintptr(len(m.cliprects)), 1)
		if aerr != nil {
			if m.objAddr != 0 {
				ctx.free(m.objAddr, uintptr(objBytes), 8)
			}
			ctx.free(top, uintptr(sizeofDrmI915GemExecbuffer2), 8)
			return 0, aerr
		}
		m.cliprectsAddr = addr
	}
	return top, nil
}

func (m *execbuffer2Marshaller) CopyIn(ctx *Context, untrusted uintptr) error {
	hdr := drmabi.GetStruct[drmabi.DrmI915GemExecbuffer2](m.buf)
	hdr.BuffersPtr = uint64(m.objAddr)
	hdr.BufferCount = uint32(len(m.objects))
	hdr.CliprectsPtr = uint64(m.cliprectsAddr)
	drmabi.PutStruct(ctx.Mem.Bytes(untrusted, uintptr(sizeofDrmI915GemExecbuffer2)), hdr)
	for i, obj := range m.objects {
		drmabi.PutStruct(ctx.Mem.Bytes(m.objAddr+uintptr(i*sizeofExecObject2), uintptr(sizeofExecObject2)), obj)
	}
	if m.cliprectsAddr != 0 {
		copy(ctx.Mem.Bytes(m.cliprectsAddr, uintptr(len(m.cliprects))), m.cliprects)
	}
	return nil
}

func (m *execbuffer2Marshaller) CopyOut(ctx *Context, untrusted uintptr) error {
	copy(m.buf, ctx.Mem.Bytes(untrusted, uintptr(sizeofDrmI915GemExecbuffer2)))
	for i := range m.objects {
		m.objects[i] = drmabi.GetStruct[drmabi.DrmI915GemExecObject2](ctx.Mem.Bytes(m.objAddr+uintptr(i*sizeofExecObject2), uintptr(sizeofExecObject2)))
	}
	return nil
}

func (m *execbuffer2Marshaller) Free(ctx *Context, untrusted uintptr) error {
	if m.objAddr != 0 {
		ctx.free(m.objAddr, uintptr(len(m.objects)*sizeofExecObject2), 8)
	}
	if m.cliprectsAddr != 0 {
		ctx.free(m.cliprectsAddr, uintptr(len(m.cliprects)), 1)
	}
	ctx.free(untrusted, uintptr(sizeofDrmI915GemExecbuffer2), 8)
	return nil
}

package ioctl

import "github.com/sealedgfx/i915shim/internal/drmabi"

var sizeofDrmVersionHeader = drmabi.SizeOf[drmabi.DrmVersion]()

// versionMarshaller implements VERSION's three independent size-query pairs
// (name/date/desc). trustedBuf is the header followed by three contiguous
// regions whose lengths are the header's *Len fields at construction time:
// a zero length asks only for the required size (the size-query
// protocol), a nonzero length supplies a buffer of that capacity.
type versionMarshaller struct {
	buf                             []byte
	nameBuf, dateBuf, descBuf       []byte
	nameAddr, dateAddr, descAddr    uintptr
}

func Version() Factory {
	return func(trustedBuf []byte) Marshaller {
		hdr := drmabi.GetStruct[drmabi.DrmVersion](trustedBuf)
		rest := trustedBuf[sizeofDrmVersionHeader:]
		off := 0
		next := func(n int) []byte {
			b := rest[off : off+n]
			off += n
			return b
		}
		return &versionMarshaller{
			buf:     trustedBuf,
			nameBuf: next(int(hdr.NameLen)),
			dateBuf: next(int(hdr.DateLen)),
			descBuf: next(int(hdr.DescLen)),
		}
	}
}

func (m *versionMarshaller) Alloc(ctx *Context) (uintptr, error) {
	top, err := ctx.alloc(uintptr(sizeofDrmVersionHeader), 8)
	if err != nil {
		return 0, err
	}
	allocRegion := func(buf []byte) (uintptr, error) {
		if len(buf) == 0 {
			return 0, nil
		}
		return ctx.alloc(uintptr(len(buf)), 1)
	}
	var aerr error
	if m.nameAddr, aerr = allocRegion(m.nameBuf); aerr != nil {
		ctx.free(top, uintptr(sizeofDrmVersionHeader), 8)
		return 0, aerr
	}
	if m.dateAddr, aerr = allocRegion(m.dateBuf); aerr != nil {
		m.freeRegions(ctx)
		ctx.free(top, uintptr(sizeofDrmVersionHeader), 8)
		return 0, aerr
	}
	if m.descAddr, aerr = allocRegion(m.descBuf); aerr != nil {
		m.freeRegions(ctx)
		ctx.free(top, uintptr(sizeofDrmVersionHeader), 8)
		return 0, aerr
	}
	return top, nil
}

func (m *versionMarshaller) freeRegions(ctx *Context) {
	if m.nameAddr != 0 {
		ctx.free(m.nameAddr, uintptr(len(m.nameBuf)), 1)
	}
	if m.dateAddr != 0 {
		ctx.free(m.dateAddr, uintptr(len(m.dateBuf)), 1)
	}
	if m.descAddr != 0 {
		ctx.free(m.descAddr, uintptr(len(m.descBuf)), 1)
	}
}

func (m *versionMarshaller) CopyIn(ctx *Context, untrusted uintptr) error {
	hdr := drmabi.GetStruct[drmabi.DrmVersion](m.buf)
	hdr.Name, hdr.Date, hdr.Desc = uint64(m.nameAddr), uint64(m.dateAddr), uint64(m.descAddr)
	drmabi.PutStruct(ctx.Mem.Bytes(untrusted, uintptr(sizeofDrmVersionHeader)), hdr)
	if m.nameAddr != 0 {
		copy(ctx.Mem.Bytes(m.nameAddr, uintptr(len(m.nameBuf))), m.nameBuf)
	}
	if m.dateAddr != 0 {
		copy(ctx.Mem.Bytes(m.dateAddr, uintptr(len(m.dateBuf))), m.dateBuf)
	}
	if m.descAddr != 0 {
		copy(ctx.Mem.Bytes(m.descAddr, uintptr(len(m.descBuf))), m.descBuf)
	}
	return nil
}

func (m *versionMarshaller) CopyOut(ctx *Context, untrusted uintptr) error {
	hdr := drmabi.GetStruct[drmabi.DrmVersion](ctx.Mem.Bytes(untrusted, uintptr(sizeofDrmVersionHeader)))
	drmabi.PutStruct(m.buf[:sizeofDrmVersionHeader], hdr)
	if m.nameAddr != 0 {
		copy(m.nameBuf, ctx.Mem.Bytes(m.nameAddr, uintptr(len(m.nameBuf))))
	}
	if m.dateAddr != 0 {
		copy(m.dateBuf, ctx.Mem.Bytes(m.dateAddr, uintptr(len(m.dateBuf))))
	}
	if m.descAddr != 0 {
		copy(m.descBuf, ctx.Mem.Bytes(m.descAddr, uintptr(len(m.descBuf))))
	}
	return nil
}

func (m *versionMarshaller) Free(ctx *Context, untrusted uintptr) error {
	m.freeRegions(ctx)
	ctx.free(untrusted, uintptr(sizeofDrmVersionHeader), 8)
	return nil
}

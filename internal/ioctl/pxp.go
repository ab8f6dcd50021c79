package ioctl

import (
	"github.com/sealedgfx/i915shim/internal/drmabi"
	"github.com/sealedgfx/i915shim/internal/shimerr"
)

var sizeofDrmI915PxpOps = drmabi.SizeOf[drmabi.DrmI915PxpOps]()

// pxpOpsMarshaller implements PXP_OPS. Only action=1 (TEE I/O message) is
// supported: its Params struct carries independently-sized msg_in
// (in-direction) and msg_out (out-direction, capacity msgOutCap) buffers,
// per the PXP_OPS row of the command table in SPEC_FULL.md §4.4.
type pxpOpsMarshaller struct {
	buf    []byte
	action uint32
	msgIn  []byte
	msgOut []byte

	paramsAddr, msgInAddr, msgOutAddr uintptr
}

// NewPxpOps drives a PXP_OPS call for action == PxpActionTeeIOMessage.
// msgOut is allocated internally with capacity msgOutCap and readable via
// Result after the call.
func NewPxpOps(msgIn []byte, msgOutCap int) Factory {
	return func(trustedBuf []byte) Marshaller {
		hdr := drmabi.GetStruct[drmabi.DrmI915PxpOps](trustedBuf)
		return &pxpOpsMarshaller{buf: trustedBuf, action: hdr.Action, msgIn: msgIn, msgOut: make([]byte, msgOutCap)}
	}
}

// Result returns the msg_out bytes actually written by the last call.
func (m *pxpOpsMarshaller) Result() []byte { return m.msgOut }

func (m *pxpOpsMarshaller) Alloc(ctx *Context) (uintptr, error) {
	if m.action != drmabi.PxpActionTeeIOMessage {
		return 0, shimerr.New(shimerr.KindUnsupportedCommand, "unsupported pxp action", map[string]interface{}{"action": m.action})
	}
	top, err := ctx.alloc(uintptr(sizeofDrmI915PxpOps), 8)
	if err != nil {
		return 0, err
	}
	paramsAddr, err := ctx.alloc(drmabi.SizeofPxpTeeIOMessageParamsPacked, 8)
	if err != nil {
		ctx.free(top, uintptr(sizeofDrmI915PxpOps), 8)
		return 0, err
	}
	m.paramsAddr = paramsAddr
	if len(m.msgIn) > 0 {
		addr, aerr := ctx.alloc(uintptr(len(m.msgIn)), 1)
		if aerr != nil {
			ctx.free(paramsAddr, drmabi.SizeofPxpTeeIOMessageParamsPacked, 8)
			ctx.free(top, uintptr(sizeofDrmI915PxpOps), 8)
			return 0, aerr
		}
		m.msgInAddr = addr
	}
	if len(m.msgOut) > 0 {
		addr, aerr := ctx.alloc(uintptr(len(m.msgOut)), 1)
		if aerr != nil {
			if m.msgInAddr != 0 {
				ctx.free(m.msgInAddr, uintptr(len(m.msgIn)), 1)
			}
			ctx.free(paramsAddr, drmabi.SizeofPxpTeeIOMessageParamsPacked, 8)
			ctx.free(top, uintptr(sizeofDrmI915PxpOps), 8)
			return 0, aerr
		}
		m.msgOutAddr = addr
	}
	return top, nil
}

func (m *pxpOpsMarshaller) CopyIn(ctx *Context, untrusted uintptr) error {
	drmabi.PutStruct(ctx.Mem.Bytes(untrusted, uintptr(sizeofDrmI915PxpOps)), drmabi.DrmI915PxpOps{
		Action: m.action, Params: uint64(m.paramsAddr),
	})
	drmabi.EncodePxpTeeIOMessageParams(ctx.Mem.Bytes(m.paramsAddr, drmabi.SizeofPxpTeeIOMessageParamsPacked), drmabi.PxpTeeIOMessageParams{
		MsgIn: uint64(m.msgInAddr), MsgInSize: uint32(len(m.msgIn)),
		MsgOut: uint64(m.msgOutAddr), MsgOutBufSize: uint32(len(m.msgOut)),
	})
	if m.msgInAddr != 0 {
		copy(ctx.Mem.Bytes(m.msgInAddr, uintptr(len(m.msgIn))), m.msgIn)
	}
	return nil
}

func (m *pxpOpsMarshaller) CopyOut(ctx *Context, untrusted uintptr) error {
	decoded := drmabi.DecodePxpTeeIOMessageParams(ctx.Mem.Bytes(m.paramsAddr, drmabi.SizeofPxpTeeIOMessageParamsPacked))
	if m.msgOutAddr != 0 {
		n := int(decoded.MsgOutRetSize)
		if n > len(m.msgOut) {
			n = len(m.msgOut)
		}
		copy(m.msgOut[:n], ctx.Mem.Bytes(m.msgOutAddr, uintptr(n)))
		m.msgOut = m.msgOut[:n]
	}
	top := drmabi.GetStruct[drmabi.DrmI915PxpOps](ctx.Mem.Bytes(untrusted, uintptr(sizeofDrmI915PxpOps)))
	if m.buf != nil && len(m.buf) >= sizeofDrmI915PxpOps {
		drmabi.PutStruct(m.buf[:sizeofDrmI915PxpOps], top)
	}
	return nil
}

func (m *pxpOpsMarshaller) Free(ctx *Context, untrusted uintptr) error {
	if m.msgOutAddr != 0 {
		ctx.free(m.msgOutAddr, uintptr(cap(m.msgOut)), 1)
	}
	if m.msgInAddr != 0 {
		ctx.free(m.msgInAddr, uintptr(len(m.msgIn)), 1)
	}
	ctx.free(m.paramsAddr, drmabi.SizeofPxpTeeIOMessageParamsPacked, 8)
	ctx.free(untrusted, uintptr(sizeofDrmI915PxpOps), 8)
	return nil
}

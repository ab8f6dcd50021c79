package ioctl

import "github.com/sealedgfx/i915shim/internal/drmabi"

// contextParamMarshaller drives CONTEXT_GETPARAM / CONTEXT_SETPARAM. It
// reuses SetparamNode's body encoding directly: both the chain-node and the
// top-level forms of drm_i915_gem_context_param share the same bare struct
// layout, the only difference being whether an I915UserExtension header
// precedes it on the wire (chain nodes have one; a top-level ioctl argument
// does not).
//
// ContextParam's Factory only covers the inline-scalar and flat-buffer
// cases. The ENGINES-nested case (Param == I915ContextParamEngineSelector)
// carries a recursive sub-graph that does not fit a flat trustedBuf — build
// a SetparamNode with Engines set and drive it through NewContextParamNode
// instead.
type contextParamMarshaller struct {
	buf  []byte
	node *SetparamNode
}

var sizeofContextParamHeader = drmabi.SizeOf[drmabi.DrmI915GemContextParam]()

// ContextParam builds a Factory for the flat-buffer / inline-scalar cases.
// trustedBuf is the header (CtxID/Size/Param/Value) followed by Size bytes
// of buffer content when Size > 0; Value is an inline scalar when there is
// no trailing buffer.
func ContextParam() Factory {
	return func(trustedBuf []byte) Marshaller {
		hdr := drmabi.GetStruct[drmabi.DrmI915GemContextParam](trustedBuf)
		node := &SetparamNode{CtxID: hdr.CtxID, Param: hdr.Param}
		if len(trustedBuf) > sizeofContextParamHeader {
			node.Data = trustedBuf[sizeofContextParamHeader:]
		} else {
			node.InlineValue = hdr.Value
		}
		return &contextParamMarshaller{buf: trustedBuf, node: node}
	}
}

// NewContextParamNode drives an already-constructed SetparamNode (typically
// one with Engines set) as a top-level CONTEXT_GETPARAM/SETPARAM argument.
func NewContextParamNode(node *SetparamNode) Marshaller {
	return &contextParamMarshaller{node: node}
}

func (m *contextParamMarshaller) Alloc(ctx *Context) (uintptr, error) {
	addr, err := ctx.alloc(uintptr(sizeofContextParamHeader), 8)
	if err != nil {
		return 0, err
	}
	if err := m.node.allocIndirect(ctx); err != nil {
		ctx.free(addr, uintptr(sizeofContextParamHeader), 8)
		return 0, err
	}
	return addr, nil
}

func (m *contextParamMarshaller) CopyIn(ctx *Context, untrusted uintptr) error {
	body := ctx.Mem.Bytes(untrusted, uintptr(sizeofContextParamHeader))
	m.node.EncodeInto(body)
	m.node.copyInIndirect(ctx)
	return nil
}

func (m *contextParamMarshaller) CopyOut(ctx *Context, untrusted uintptr) error {
	body := ctx.Mem.Bytes(untrusted, uintptr(sizeofContextParamHeader))
	m.node.DecodeFrom(body)
	m.node.copyOutIndirect(ctx)
	// Only the inline-scalar case needs the trusted header patched: Value
	// there is the result itself. The buffer-backed case already mirrored
	// its payload into node.Data via copyOutIndirect, and CtxID/Size/Param
	// are the caller's own request fields, unchanged by the driver.
	if m.buf != nil && len(m.buf) >= sizeofContextParamHeader && m.node.Data == nil && m.node.Engines == nil {
		drmabi.PutStruct(m.buf[:sizeofContextParamHeader], drmabi.DrmI915GemContextParam{
			CtxID: m.node.CtxID, Param: m.node.Param, Value: m.node.InlineValue,
		})
	}
	return nil
}

func (m *contextParamMarshaller) Free(ctx *Context, untrusted uintptr) error {
	m.node.freeIndirect(ctx)
	ctx.free(untrusted, uintptr(sizeofContextParamHeader), 8)
	return nil
}

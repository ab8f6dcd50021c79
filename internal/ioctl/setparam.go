package ioctl

import "github.com/sealedgfx/i915shim/internal/drmabi"

// SetparamNode is the shared node shape used by both GEM_CREATE_EXT and
// CONTEXT_CREATE_EXT's extension chains: a drm_i915_gem_context_param
// body whose Value is either an inline scalar (Data == nil && Engines ==
// nil, Size == 0) or a separately-allocated buffer (Data) or, when Param
// selects ENGINES, a nested engines sub-graph.
type SetparamNode struct {
	CtxID       uint32
	Param       uint64
	Data        []byte // mirrored t2u and u2t verbatim
	Engines     *EnginesGraph
	InlineValue uint64

	valueAddr uintptr
}

var sizeofContextParam = drmabi.SizeOf[drmabi.DrmI915GemContextParam]()

func (n *SetparamNode) VariantName() uint32  { return ExtSetparam }
func (n *SetparamNode) VariantFlags() uint32 { return 0 }
func (n *SetparamNode) EncodedSize() int     { return extHeaderSize + sizeofContextParam }

func (n *SetparamNode) EncodeInto(body []byte) {
	var size uint32
	switch {
	case n.Engines != nil:
		size = uint32(n.Engines.headerSize)
	case n.Data != nil:
		size = uint32(len(n.Data))
	}
	value := n.valueAddr
	if n.Data == nil && n.Engines == nil {
		value = uintptr(n.InlineValue)
	}
	drmabi.PutStruct(body, drmabi.DrmI915GemContextParam{
		CtxID: n.CtxID, Size: size, Param: n.Param, Value: uint64(value),
	})
}

func (n *SetparamNode) DecodeFrom(body []byte) {
	decoded := drmabi.GetStruct[drmabi.DrmI915GemContextParam](body)
	if n.Data == nil && n.Engines == nil {
		n.InlineValue = decoded.Value
	}
}

func (n *SetparamNode) allocIndirect(ctx *Context) error {
	switch {
	case n.Engines != nil:
		addr, err := n.Engines.alloc(ctx)
		if err != nil {
			return err
		}
		n.valueAddr = addr
	case n.Data != nil:
		addr, err := ctx.alloc(uintptr(len(n.Data)), 1)
		if err != nil {
			return err
		}
		n.valueAddr = addr
	}
	return nil
}

func (n *SetparamNode) copyInIndirect(ctx *Context) {
	switch {
	case n.Engines != nil:
		n.Engines.copyIn(ctx)
	case n.Data != nil:
		copy(ctx.Mem.Bytes(n.valueAddr, uintptr(len(n.Data))), n.Data)
	}
}

func (n *SetparamNode) copyOutIndirect(ctx *Context) {
	switch {
	case n.Engines != nil:
		n.Engines.copyOut(ctx)
	case n.Data != nil:
		copy(n.Data, ctx.Mem.Bytes(n.valueAddr, uintptr(len(n.Data))))
	}
}

func (n *SetparamNode) freeIndirect(ctx *Context) {
	switch {
	case n.Engines != nil:
		n.Engines.free(ctx)
	case n.Data != nil:
		ctx.free(n.valueAddr, uintptr(len(n.Data)), 1)
	}
}

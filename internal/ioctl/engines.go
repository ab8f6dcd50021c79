package ioctl

import (
	"github.com/sealedgfx/i915shim/internal/drmabi"
	"github.com/sealedgfx/i915shim/internal/shimerr"
)

var sizeofEngineInstance = drmabi.SizeOf[drmabi.I915EngineClassInstance]()

// EngineLoadBalanceNode is an I915_CONTEXT_ENGINES_EXT_LOAD_BALANCE node:
// its trailing engines array has NumSiblings entries.
type EngineLoadBalanceNode struct {
	EngineIndex uint16
	Flags       uint32
	Engines     []drmabi.I915EngineClassInstance

	size int
}

// NewEngineLoadBalanceNode validates the trailing-array size up front —
// overflow here is a fatal marshaller failure, caught before any
// allocation happens.
func NewEngineLoadBalanceNode(engineIndex uint16, flags uint32, engines []drmabi.I915EngineClassInstance) (*EngineLoadBalanceNode, error) {
	arrBytes, ok := checkedMul(uint64(len(engines)), uint64(sizeofEngineInstance))
	if !ok {
		return nil, shimerr.OverflowError("load_balance.num_siblings*sizeof(engine)", uint64(len(engines)), uint64(sizeofEngineInstance))
	}
	base := drmabi.SizeOf[drmabi.I915ContextEnginesLoadBalance]()
	return &EngineLoadBalanceNode{EngineIndex: engineIndex, Flags: flags, Engines: engines, size: base + int(arrBytes)}, nil
}

func (n *EngineLoadBalanceNode) VariantName() uint32  { return ExtEngineLoadBalance }
func (n *EngineLoadBalanceNode) VariantFlags() uint32 { return 0 }
func (n *EngineLoadBalanceNode) EncodedSize() int     { return n.size }

func (n *EngineLoadBalanceNode) EncodeInto(body []byte) {
	base := drmabi.SizeOf[drmabi.I915ContextEnginesLoadBalance]()
	hdr := drmabi.I915ContextEnginesLoadBalance{EngineIndex: n.EngineIndex, NumSiblings: uint16(len(n.Engines)), Flags: n.Flags}
	full := make([]byte, base)
	drmabi.PutStruct(full, hdr)
	copy(body, full[extHeaderSize:])
	for i, e := range n.Engines {
		drmabi.PutStruct(body[base-extHeaderSize+i*sizeofEngineInstance:], e)
	}
}

func (n *EngineLoadBalanceNode) DecodeFrom(body []byte) {
	// The driver does not write back through this node; nothing to refresh.
}

// EngineBondNode is an I915_CONTEXT_ENGINES_EXT_BOND node: its trailing
// engines array has NumBonds entries.
type EngineBondNode struct {
	Master       drmabi.I915EngineClassInstance
	VirtualIndex uint16
	Flags        uint64
	Engines      []drmabi.I915EngineClassInstance

	size int
}

func NewEngineBondNode(master drmabi.I915EngineClassInstance, virtualIndex uint16, flags uint64, engines []drmabi.I915EngineClassInstance) (*EngineBondNode, error) {
	arrBytes, ok := checkedMul(uint64(len(engines)), uint64(sizeofEngineInstance))
	if !ok {
		return nil, shimerr.OverflowError("bond.num_bonds*sizeof(engine)", uint64(len(engines)), uint64(sizeofEngineInstance))
	}
	base := drmabi.SizeOf[drmabi.I915ContextEnginesBond]()
	return &EngineBondNode{Master: master, VirtualIndex: virtualIndex, Flags: flags, Engines: engines, size: base + int(arrBytes)}, nil
}

func (n *EngineBondNode) VariantName() uint32  { return ExtEngineBond }
func (n *EngineBondNode) VariantFlags() uint32 { return 0 }
func (n *EngineBondNode) EncodedSize() int     { return n.size }

func (n *EngineBondNode) EncodeInto(body []byte) {
	base := drmabi.SizeOf[drmabi.I915ContextEnginesBond]()
	hdr := drmabi.I915ContextEnginesBond{Master: n.Master, VirtualIndex: n.VirtualIndex, NumBonds: uint16(len(n.Engines)), Flags: n.Flags}
	full := make([]byte, base)
	drmabi.PutStruct(full, hdr)
	copy(body, full[extHeaderSize:])
	for i, e := range n.Engines {
		drmabi.PutStruct(body[base-extHeaderSize+i*sizeofEngineInstance:], e)
	}
}

func (n *EngineBondNode) DecodeFrom(body []byte) {}

// EngineParallelSubmitNode is an I915_CONTEXT_ENGINES_EXT_PARALLEL_SUBMIT
// node: its trailing engines array has NumSiblings*Width entries.
type EngineParallelSubmitNode struct {
	EngineIndex uint16
	Width       uint16
	Flags       uint64
	Engines     []drmabi.I915EngineClassInstance

	size        int
	numSiblings uint16
}

func NewEngineParallelSubmitNode(engineIndex, width, numSiblings uint16, flags uint64, engines []drmabi.I915EngineClassInstance) (*EngineParallelSubmitNode, error) {
	count, ok := checkedMul(uint64(width), uint64(numSiblings))
	if !ok {
		return nil, shimerr.OverflowError("parallel_submit.width*num_siblings", uint64(width), uint64(numSiblings))
	}
	arrBytes, ok := checkedMul(count, uint64(sizeofEngineInstance))
	if !ok {
		return nil, shimerr.OverflowError("parallel_submit.count*sizeof(engine)", count, uint64(sizeofEngineInstance))
	}
	base := drmabi.SizeOf[drmabi.I915ContextEnginesParallelSubmit]()
	return &EngineParallelSubmitNode{
		EngineIndex: engineIndex, Width: width, numSiblings: numSiblings, Flags: flags,
		Engines: engines, size: base + int(arrBytes),
	}, nil
}

func (n *EngineParallelSubmitNode) VariantName() uint32  { return ExtEngineParallelSubmit }
func (n *EngineParallelSubmitNode) VariantFlags() uint32 { return 0 }
func (n *EngineParallelSubmitNode) EncodedSize() int     { return n.size }

func (n *EngineParallelSubmitNode) EncodeInto(body []byte) {
	base := drmabi.SizeOf[drmabi.I915ContextEnginesParallelSubmit]()
	hdr := drmabi.I915ContextEnginesParallelSubmit{
		EngineIndex: n.EngineIndex, Width: n.Width, NumSiblings: n.numSiblings, Flags: n.Flags,
	}
	full := make([]byte, base)
	drmabi.PutStruct(full, hdr)
	copy(body, full[extHeaderSize:])
	for i, e := range n.Engines {
		drmabi.PutStruct(body[base-extHeaderSize+i*sizeofEngineInstance:], e)
	}
}

func (n *EngineParallelSubmitNode) DecodeFrom(body []byte) {}

// EnginesGraph is the ENGINES context-param payload: a small fixed header
// followed by a flat engine-instance array, plus its own extension chain of
// engine-config nodes (load-balance/bond/parallel-submit).
type EnginesGraph struct {
	Engines     []drmabi.I915EngineClassInstance
	ConfigNodes []ChainNode

	headerAddr  uintptr
	configAddrs []uintptr
	headerSize  int
}

func (g *EnginesGraph) alloc(ctx *Context) (uintptr, error) {
	arrBytes, ok := checkedMul(uint64(len(g.Engines)), uint64(sizeofEngineInstance))
	if !ok {
		return 0, shimerr.OverflowError("engines.count*sizeof(engine)", uint64(len(g.Engines)), uint64(sizeofEngineInstance))
	}
	g.headerSize = drmabi.SizeOf[drmabi.I915ContextParamEngines]() + int(arrBytes)

	headerAddr, err := ctx.alloc(uintptr(g.headerSize), 8)
	if err != nil {
		return 0, err
	}
	g.headerAddr = headerAddr

	chainHead, addrs, err := allocChain(ctx, g.ConfigNodes)
	if err != nil {
		ctx.free(headerAddr, uintptr(g.headerSize), 8)
		return 0, err
	}
	g.configAddrs = addrs
	_ = chainHead
	return headerAddr, nil
}

func (g *EnginesGraph) copyIn(ctx *Context) {
	var chainHead uint64
	if len(g.configAddrs) > 0 {
		chainHead = uint64(g.configAddrs[0])
	}
	buf := ctx.Mem.Bytes(g.headerAddr, uintptr(g.headerSize))
	hdrSize := drmabi.SizeOf[drmabi.I915ContextParamEngines]()
	drmabi.PutStruct(buf[:hdrSize], drmabi.I915ContextParamEngines{Extensions: chainHead})
	for i, e := range g.Engines {
		drmabi.PutStruct(buf[hdrSize+i*sizeofEngineInstance:], e)
	}
	copyInChain(ctx, g.ConfigNodes, g.configAddrs)
}

func (g *EnginesGraph) copyOut(ctx *Context) {
	copyOutChain(ctx, g.ConfigNodes, g.configAddrs)
}

func (g *EnginesGraph) free(ctx *Context) {
	freeChain(ctx, g.ConfigNodes, g.configAddrs)
	ctx.free(g.headerAddr, uintptr(g.headerSize), 8)
}

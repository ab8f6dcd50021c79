package ioctl

import "github.com/sealedgfx/i915shim/internal/drmabi"

// extChainMarshaller is the shape shared by GEM_CREATE_EXT, CONTEXT_CREATE_EXT
// and VM_CREATE: a small fixed header carrying an Extensions pointer, backed
// by a chain of ChainNode variants. setExt patches the allocated chain head
// into the type-specific header field.
type extChainMarshaller[T any] struct {
	buf    []byte
	nodes  []ChainNode
	addrs  []uintptr
	setExt func(hdr *T, ext uint64)
}

// NewExtChainMarshaller builds a Factory for any fixed-header+extensions-chain
// command. T is the trusted argument struct; setExt writes the chain head
// address into its Extensions-equivalent field.
func NewExtChainMarshaller[T any](nodes []ChainNode, setExt func(hdr *T, ext uint64)) Factory {
	return func(trustedBuf []byte) Marshaller {
		return &extChainMarshaller[T]{buf: trustedBuf, nodes: nodes, setExt: setExt}
	}
}

func (m *extChainMarshaller[T]) Alloc(ctx *Context) (uintptr, error) {
	size := drmabi.SizeOf[T]()
	top, err := ctx.alloc(uintptr(size), 8)
	if err != nil {
		return 0, err
	}
	_, addrs, err := allocChain(ctx, m.nodes)
	if err != nil {
		ctx.free(top, uintptr(size), 8)
		return 0, err
	}
	m.addrs = addrs
	return top, nil
}

func (m *extChainMarshaller[T]) CopyIn(ctx *Context, untrusted uintptr) error {
	var head uint64
	if len(m.addrs) > 0 {
		head = uint64(m.addrs[0])
	}
	v := drmabi.GetStruct[T](m.buf)
	m.setExt(&v, head)
	size := drmabi.SizeOf[T]()
	drmabi.PutStruct(ctx.Mem.Bytes(untrusted, uintptr(size)), v)
	copyInChain(ctx, m.nodes, m.addrs)
	return nil
}

func (m *extChainMarshaller[T]) CopyOut(ctx *Context, untrusted uintptr) error {
	size := drmabi.SizeOf[T]()
	copy(m.buf, ctx.Mem.Bytes(untrusted, uintptr(size)))
	copyOutChain(ctx, m.nodes, m.addrs)
	return nil
}

func (m *extChainMarshaller[T]) Free(ctx *Context, untrusted uintptr) error {
	freeChain(ctx, m.nodes, m.addrs)
	size := drmabi.SizeOf[T]()
	ctx.free(untrusted, uintptr(size), 8)
	return nil
}

// GemCreateExt builds the GEM_CREATE_EXT Factory.
func GemCreateExt(nodes []ChainNode) Factory {
	return NewExtChainMarshaller(nodes, func(hdr *drmabi.DrmI915GemCreateExt, ext uint64) { hdr.Extensions = ext })
}

// ContextCreateExt builds the CONTEXT_CREATE_EXT Factory.
func ContextCreateExt(nodes []ChainNode) Factory {
	return NewExtChainMarshaller(nodes, func(hdr *drmabi.DrmI915GemContextCreateExt, ext uint64) { hdr.Extensions = ext })
}

// VMCreate builds the VM_CREATE Factory. VM_DESTROY shares the same argument
// struct but is dispatched shallow (see the supplemented command table).
func VMCreate(nodes []ChainNode) Factory {
	return NewExtChainMarshaller(nodes, func(hdr *drmabi.DrmI915GemVMControl, ext uint64) { hdr.Extensions = ext })
}

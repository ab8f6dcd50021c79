package ioctl

import "github.com/sealedgfx/i915shim/internal/drmabi"

var extHeaderSize = drmabi.SizeOf[drmabi.I915UserExtension]()

// Extension tags used by the chains this shim supports. These select the
// concrete node variant via the low 16 bits of I915UserExtension.Name; the
// high 16 bits are caller-supplied flags, preserved verbatim.
const (
	ExtSetparam             = 1 // GEM_CREATE_EXT / CONTEXT_CREATE_EXT setparam node
	ExtEngineLoadBalance    = 0 // nested inside an ENGINES context-param buffer
	ExtEngineBond           = 1
	ExtEngineParallelSubmit = 2
)

// ChainNode is one trusted-side node of an extension chain. The engine
// mirrors topology explicitly
// rather than reinterpreting pointers: every node knows its own untrusted
// wire size and how to encode/decode everything after the shared header.
type ChainNode interface {
	VariantName() uint32
	VariantFlags() uint32
	EncodedSize() int
	EncodeInto(body []byte)
	DecodeFrom(body []byte)
}

// indirectNode is implemented by chain nodes that own additional untrusted
// storage beyond their own wire struct (e.g. a setparam node's Value
// buffer). The chain engine drives these hooks alongside the node's own
// header/body phases.
type indirectNode interface {
	allocIndirect(ctx *Context) error
	copyInIndirect(ctx *Context)
	copyOutIndirect(ctx *Context)
	freeIndirect(ctx *Context)
}

// allocChain allocates one untrusted block per node, wiring next-pointers
// to form the same topology as the trusted chain (a zero NextExtension
// terminates the tail). On partial failure, everything allocated so far is
// freed before the error is returned — no ioctl is ever partially
// marshalled.
func allocChain(ctx *Context, nodes []ChainNode) (head uintptr, addrs []uintptr, err error) {
	addrs = make([]uintptr, len(nodes))
	rollback := func(upTo int) {
		for j := upTo; j >= 0; j-- {
			if in, ok := nodes[j].(indirectNode); ok {
				in.freeIndirect(ctx)
			}
			ctx.free(addrs[j], uintptr(nodes[j].EncodedSize()), 8)
		}
	}
	for i, n := range nodes {
		addr, aerr := ctx.alloc(uintptr(n.EncodedSize()), 8)
		if aerr != nil {
			rollback(i - 1)
			return 0, nil, aerr
		}
		addrs[i] = addr
		if in, ok := n.(indirectNode); ok {
			if aerr := in.allocIndirect(ctx); aerr != nil {
				ctx.free(addr, uintptr(n.EncodedSize()), 8)
				rollback(i - 1)
				return 0, nil, aerr
			}
		}
	}
	if len(nodes) == 0 {
		return 0, addrs, nil
	}
	return addrs[0], addrs, nil
}

// copyInChain writes each node's header (with Next pointing at the
// following untrusted node, or zero at the tail) and variant body.
func copyInChain(ctx *Context, nodes []ChainNode, addrs []uintptr) {
	for i, n := range nodes {
		buf := ctx.Mem.Bytes(addrs[i], uintptr(n.EncodedSize()))
		var next uint64
		if i+1 < len(addrs) {
			next = uint64(addrs[i+1])
		}
		hdr := drmabi.I915UserExtension{NextExtension: next, Name: n.VariantName(), Flags: n.VariantFlags()}
		drmabi.PutStruct(buf[:extHeaderSize], hdr)
		n.EncodeInto(buf[extHeaderSize:])
		if in, ok := n.(indirectNode); ok {
			in.copyInIndirect(ctx)
		}
	}
}

// copyOutChain reads each node's variant body back (post-ioctl); the header
// (topology) never changes once built, so only the body is re-read.
func copyOutChain(ctx *Context, nodes []ChainNode, addrs []uintptr) {
	for i, n := range nodes {
		buf := ctx.Mem.Bytes(addrs[i], uintptr(n.EncodedSize()))
		n.DecodeFrom(buf[extHeaderSize:])
		if in, ok := n.(indirectNode); ok {
			in.copyOutIndirect(ctx)
		}
	}
}

// freeChain releases every node's untrusted storage, post-order (indirect
// storage before the node's own wire struct).
func freeChain(ctx *Context, nodes []ChainNode, addrs []uintptr) {
	for i, n := range nodes {
		if in, ok := n.(indirectNode); ok {
			in.freeIndirect(ctx)
		}
		ctx.free(addrs[i], uintptr(n.EncodedSize()), 8)
	}
}

// checkedMul reports a*b, failing if the product overflows a uint64 — used
// for every variable-length trailing-array size computation, matching the
// "overflow in any multiplication is a fatal failure of the marshaller".
func checkedMul(a, b uint64) (uint64, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}
	p := a * b
	if p/a != b {
		return 0, false
	}
	return p, true
}

package ioctl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sealedgfx/i915shim/internal/buddy"
	"github.com/sealedgfx/i915shim/internal/drmabi"
	"github.com/sealedgfx/i915shim/internal/hostmem"
	"github.com/sealedgfx/i915shim/internal/manager"
)

const testFd = 7

func newTestShim(t *testing.T) (*Shim, *hostmem.LoopbackBridge) {
	t.Helper()
	bridge := hostmem.NewLoopbackBridge()
	src := hostmem.NewArenaSource(bridge, buddy.DefaultConfig())
	mgr := manager.New(buddy.DefaultConfig(), src.Grow)
	return New(&Context{Mgr: mgr, Mem: bridge}), bridge
}

func TestGemCloseRoundTrip(t *testing.T) {
	shim, bridge := newTestShim(t)
	var seenHandle uint32
	bridge.Handle(drmabi.CmdGemClose, func(cmd uint32, arg uintptr, mem *hostmem.NativeBridge) (int32, error) {
		decoded := drmabi.GetStruct[drmabi.DrmGemClose](mem.Bytes(arg, uintptr(drmabi.SizeOf[drmabi.DrmGemClose]())))
		seenHandle = decoded.Handle
		return 0, nil
	})

	buf := make([]byte, drmabi.SizeOf[drmabi.DrmGemClose]())
	drmabi.PutStruct(buf, drmabi.DrmGemClose{Handle: 42})

	status, err := shim.Dispatch(testFd, drmabi.CmdGemClose, buf)
	require.NoError(t, err)
	assert.Equal(t, int32(0), status)
	assert.Equal(t, uint32(42), seenHandle)
}

func TestVersionTwoCallSizeQuery(t *testing.T) {
	shim, bridge := newTestShim(t)
	const driverName = "i915"
	bridge.Handle(drmabi.CmdVersion, func(cmd uint32, arg uintptr, mem *hostmem.NativeBridge) (int32, error) {
		hdr := drmabi.GetStruct[drmabi.DrmVersion](mem.Bytes(arg, uintptr(drmabi.SizeOf[drmabi.DrmVersion]())))
		if hdr.NameLen == 0 {
			hdr.NameLen = uint64(len(driverName))
		} else {
			copy(mem.Bytes(uintptr(hdr.Name), hdr.NameLen), driverName)
		}
		drmabi.PutStruct(mem.Bytes(arg, uintptr(drmabi.SizeOf[drmabi.DrmVersion]())), hdr)
		return 0, nil
	})

	// First call: query size only.
	hdrSize := drmabi.SizeOf[drmabi.DrmVersion]()
	buf := make([]byte, hdrSize)
	status, err := shim.Dispatch(testFd, drmabi.CmdVersion, buf)
	require.NoError(t, err)
	assert.Equal(t, int32(0), status)
	hdr := drmabi.GetStruct[drmabi.DrmVersion](buf)
	require.Equal(t, uint64(len(driverName)), hdr.NameLen)

	// Second call: fetch with a buffer sized from the first call's report.
	buf2 := make([]byte, hdrSize+int(hdr.NameLen))
	drmabi.PutStruct(buf2[:hdrSize], drmabi.DrmVersion{NameLen: hdr.NameLen})
	_, err = shim.Dispatch(testFd, drmabi.CmdVersion, buf2)
	require.NoError(t, err)
	assert.Equal(t, driverName, string(buf2[hdrSize:hdrSize+len(driverName)]))
}

func TestQuerySingleItemSizeQuery(t *testing.T) {
	shim, bridge := newTestShim(t)
	const payload = "engine-info"
	bridge.Handle(drmabi.CmdQuery, func(cmd uint32, arg uintptr, mem *hostmem.NativeBridge) (int32, error) {
		q := drmabi.GetStruct[drmabi.DrmI915Query](mem.Bytes(arg, uintptr(drmabi.SizeOf[drmabi.DrmI915Query]())))
		itemSize := drmabi.SizeOf[drmabi.DrmI915QueryItem]()
		itemView := mem.Bytes(uintptr(q.ItemsPtr), uintptr(itemSize))
		item := drmabi.GetStruct[drmabi.DrmI915QueryItem](itemView)
		if item.Length == 0 {
			item.Length = int32(len(payload))
		} else {
			copy(mem.Bytes(uintptr(item.DataPtr), uintptr(item.Length)), payload)
		}
		drmabi.PutStruct(itemView, item)
		return 0, nil
	})

	item := &QueryItem{QueryID: 1}
	m := NewQuery([]*QueryItem{item})
	_, err := shim.Ioctl(drmabi.CmdQuery, testFd, m)
	require.NoError(t, err)
	assert.Equal(t, int32(len(payload)), item.Length)

	item2 := &QueryItem{QueryID: 1, Data: make([]byte, item.Length)}
	m2 := NewQuery([]*QueryItem{item2})
	_, err = shim.Ioctl(drmabi.CmdQuery, testFd, m2)
	require.NoError(t, err)
	assert.Equal(t, payload, string(item2.Data))
}

func TestGemCreateExtWithSetparamExtension(t *testing.T) {
	shim, bridge := newTestShim(t)
	var sawHead uint64
	bridge.Handle(drmabi.CmdGemCreateExt, func(cmd uint32, arg uintptr, mem *hostmem.NativeBridge) (int32, error) {
		decoded := drmabi.GetStruct[drmabi.DrmI915GemCreateExt](mem.Bytes(arg, uintptr(drmabi.SizeOf[drmabi.DrmI915GemCreateExt]())))
		sawHead = decoded.Extensions
		decoded.Handle = 99
		drmabi.PutStruct(mem.Bytes(arg, uintptr(drmabi.SizeOf[drmabi.DrmI915GemCreateExt]())), decoded)
		return 0, nil
	})

	node := &SetparamNode{Param: 0x3, InlineValue: 7}
	factory := GemCreateExt([]ChainNode{node})
	buf := make([]byte, drmabi.SizeOf[drmabi.DrmI915GemCreateExt]())
	drmabi.PutStruct(buf, drmabi.DrmI915GemCreateExt{Size: 4096})

	status, err := shim.Ioctl(drmabi.CmdGemCreateExt, testFd, factory(buf))
	require.NoError(t, err)
	assert.Equal(t, int32(0), status)
	assert.NotZero(t, sawHead)
	out := drmabi.GetStruct[drmabi.DrmI915GemCreateExt](buf)
	assert.Equal(t, uint32(99), out.Handle)
}

func TestPxpOpsTeeIOMessage(t *testing.T) {
	shim, bridge := newTestShim(t)
	const reply = "ack"
	bridge.Handle(drmabi.CmdPxpOps, func(cmd uint32, arg uintptr, mem *hostmem.NativeBridge) (int32, error) {
		top := drmabi.GetStruct[drmabi.DrmI915PxpOps](mem.Bytes(arg, uintptr(drmabi.SizeOf[drmabi.DrmI915PxpOps]())))
		params := drmabi.DecodePxpTeeIOMessageParams(mem.Bytes(uintptr(top.Params), drmabi.SizeofPxpTeeIOMessageParamsPacked))
		copy(mem.Bytes(uintptr(params.MsgOut), uintptr(len(reply))), reply)
		params.MsgOutRetSize = uint32(len(reply))
		drmabi.EncodePxpTeeIOMessageParams(mem.Bytes(uintptr(top.Params), drmabi.SizeofPxpTeeIOMessageParamsPacked), params)
		return 0, nil
	})

	buf := make([]byte, drmabi.SizeOf[drmabi.DrmI915PxpOps]())
	drmabi.PutStruct(buf, drmabi.DrmI915PxpOps{Action: drmabi.PxpActionTeeIOMessage})
	factory := NewPxpOps([]byte("req"), 64)
	m := factory(buf).(*pxpOpsMarshaller)

	status, err := shim.Ioctl(drmabi.CmdPxpOps, testFd, m)
	require.NoError(t, err)
	assert.Equal(t, int32(0), status)
	assert.Equal(t, reply, string(m.Result()))
}

func TestContextParamBufferBackedRoundTrip(t *testing.T) {
	shim, bridge := newTestShim(t)
	const payload = "engine-map"
	bridge.Handle(drmabi.CmdGemContextGetparam, func(cmd uint32, arg uintptr, mem *hostmem.NativeBridge) (int32, error) {
		view := mem.Bytes(arg, uintptr(sizeofContextParamHeader))
		hdr := drmabi.GetStruct[drmabi.DrmI915GemContextParam](view)
		copy(mem.Bytes(uintptr(hdr.Value), hdr.Size), payload)
		return 0, nil
	})

	buf := make([]byte, sizeofContextParamHeader+len(payload))
	drmabi.PutStruct(buf[:sizeofContextParamHeader], drmabi.DrmI915GemContextParam{
		CtxID: 3, Size: uint32(len(payload)), Param: 0x9,
	})

	status, err := shim.Dispatch(testFd, drmabi.CmdGemContextGetparam, buf)
	require.NoError(t, err)
	assert.Equal(t, int32(0), status)

	hdr := drmabi.GetStruct[drmabi.DrmI915GemContextParam](buf[:sizeofContextParamHeader])
	assert.Equal(t, uint32(3), hdr.CtxID, "CtxID must survive the round trip untouched")
	assert.Equal(t, uint32(len(payload)), hdr.Size, "Size must survive the round trip untouched")
	assert.Equal(t, uint64(0x9), hdr.Param, "Param must survive the round trip untouched")
	assert.Equal(t, payload, string(buf[sizeofContextParamHeader:]))
}

func TestAllocatorStressAcrossManyIoctls(t *testing.T) {
	shim, bridge := newTestShim(t)
	bridge.Handle(drmabi.CmdGemClose, func(cmd uint32, arg uintptr, mem *hostmem.NativeBridge) (int32, error) {
		return 0, nil
	})

	for i := 0; i < 10000; i++ {
		buf := make([]byte, drmabi.SizeOf[drmabi.DrmGemClose]())
		drmabi.PutStruct(buf, drmabi.DrmGemClose{Handle: uint32(i)})
		_, err := shim.Dispatch(testFd, drmabi.CmdGemClose, buf)
		require.NoError(t, err)
	}
}

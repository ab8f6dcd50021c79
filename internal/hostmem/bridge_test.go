package hostmem

import (
	"testing"

	"github.com/sealedgfx/i915shim/internal/buddy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNativeBridgeAllocRespectsAlignment(t *testing.T) {
	b := NewNativeBridge()
	ptr, err := b.Alloc(64, 128)
	require.NoError(t, err)
	assert.Zero(t, ptr%64, "returned address must honor the requested alignment")
}

func TestNativeBridgeBytesReadWrite(t *testing.T) {
	b := NewNativeBridge()
	ptr, err := b.Alloc(8, 32)
	require.NoError(t, err)

	view := b.Bytes(ptr, 32)
	view[0] = 0xAB
	view[31] = 0xCD

	again := b.Bytes(ptr, 32)
	assert.Equal(t, byte(0xAB), again[0])
	assert.Equal(t, byte(0xCD), again[31])
}

func TestNativeBridgeFreeRejectsUnknownPointer(t *testing.T) {
	b := NewNativeBridge()
	err := b.Free(0xdeadbeef)
	assert.Error(t, err)
}

func TestArenaSourceGrowDoublesRoundedRequest(t *testing.T) {
	b := NewNativeBridge()
	cfg := buddy.DefaultConfig()
	src := NewArenaSource(b, cfg)

	start, end, err := src.Grow(100)
	require.NoError(t, err)
	// next_pow2(100) = 128, raised to MinChunkSize = 1024; chunk = 1024 * 2 = 2048.
	assert.GreaterOrEqual(t, uint64(end-start), uint64(cfg.MinChunkSize)*uint64(cfg.GrowthFactor))
}

func TestLoopbackBridgeDispatchesRegisteredHandler(t *testing.T) {
	b := NewLoopbackBridge()
	called := false
	b.Handle(42, func(cmd uint32, arg uintptr, mem *NativeBridge) (int32, error) {
		called = true
		return 7, nil
	})

	ret, err := b.Ioctl(3, 42, 0x1000)
	require.NoError(t, err)
	assert.True(t, called)
	assert.Equal(t, int32(7), ret)
}

func TestLoopbackBridgeUnregisteredCommandNoOps(t *testing.T) {
	b := NewLoopbackBridge()
	ret, err := b.Ioctl(3, 99, 0x1000)
	require.NoError(t, err)
	assert.Zero(t, ret)
}

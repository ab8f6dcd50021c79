package buddy

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewArenaRejectsBadRanges(t *testing.T) {
	_, err := NewArena(100, 100, 16)
	require.Error(t, err)

	_, err = NewArena(0, 1024, 17) // not a power of two
	require.Error(t, err)
}

func TestArenaAllocReturnsWithinRange(t *testing.T) {
	a, err := NewArena(0x1000, 0x1000+65536, 16)
	require.NoError(t, err)

	for i := 0; i < 100; i++ {
		addr, ok := a.Alloc(32, 0)
		require.True(t, ok)
		assert.True(t, a.Contains(addr))
	}
}

func TestArenaAllocDeallocRoundTrip(t *testing.T) {
	a, err := NewArena(0, 64*1024, 16)
	require.NoError(t, err)
	require.True(t, a.IsFullyFree())

	addr, ok := a.Alloc(48, 0)
	require.True(t, ok)
	assert.False(t, a.IsFullyFree())

	a.Dealloc(addr, 48, 0)
	assert.True(t, a.IsFullyFree())
}

func TestArenaNoOverlap(t *testing.T) {
	a, err := NewArena(0, 64*1024, 16)
	require.NoError(t, err)

	seen := map[uintptr]bool{}
	var addrs []uintptr
	for i := 0; i < 64; i++ {
		addr, ok := a.Alloc(64, 0)
		require.True(t, ok)
		require.False(t, seen[addr], "duplicate address returned while still live")
		seen[addr] = true
		addrs = append(addrs, addr)
	}
	for _, addr := range addrs {
		a.Dealloc(addr, 64, 0)
	}
	assert.True(t, a.IsFullyFree())
}

func TestArenaNeverFreesBuddyPair(t *testing.T) {
	a, err := NewArena(0, 1024, 16)
	require.NoError(t, err)

	addr1, ok := a.Alloc(16, 0)
	require.True(t, ok)
	addr2, ok := a.Alloc(16, 0)
	require.True(t, ok)

	a.Dealloc(addr1, 16, 0)
	m := a.Metrics()
	leaf := m.NumLevels
	require.Equal(t, 1, m.FreeBlocksByLevel[leaf], "only one leaf free until its buddy returns")

	a.Dealloc(addr2, 16, 0)
	assert.True(t, a.IsFullyFree(), "buddies merge all the way back to the root on full release")
}

func TestArenaExhaustion(t *testing.T) {
	a, err := NewArena(0, 64, 16)
	require.NoError(t, err)

	_, ok := a.Alloc(16, 0)
	require.True(t, ok)
	_, ok = a.Alloc(16, 0)
	require.True(t, ok)
	_, ok = a.Alloc(16, 0)
	require.True(t, ok)
	_, ok = a.Alloc(16, 0)
	require.True(t, ok)

	_, ok = a.Alloc(16, 0)
	assert.False(t, ok, "arena of 4 leaves has no room for a 5th allocation")
}

// TestArenaStress exercises 10,000 random alloc/dealloc pairs against a
// single 64KiB arena with a 16-byte leaf, matching the allocator stress
// scenario: after every pair completes, the arena must be fully free again.
func TestArenaStress(t *testing.T) {
	a, err := NewArena(0, 64*1024, 16)
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(42))
	sizes := []uintptr{16, 32, 48, 64, 128, 256, 512}

	for i := 0; i < 10000; i++ {
		size := sizes[rng.Intn(len(sizes))]
		addr, ok := a.Alloc(size, 0)
		if !ok {
			continue // arena momentarily full at this fragmentation level; skip the pair
		}
		assert.True(t, a.Contains(addr))
		a.Dealloc(addr, size, 0)
	}

	assert.True(t, a.IsFullyFree(), "arena must return to its initial fully-free state")
}

func TestNextPow2(t *testing.T) {
	cases := map[uint64]uint64{
		0: 1, 1: 1, 2: 2, 3: 4, 1023: 1024, 1024: 1024, 1025: 2048,
	}
	for in, want := range cases {
		assert.Equal(t, want, NextPow2(in), "NextPow2(%d)", in)
	}
}

package manager

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/sealedgfx/i915shim/internal/buddy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixedGrower hands out successive slabSize-byte regions of address space,
// standing in for the host bridge in manager-only tests.
func fixedGrower(slabSize uintptr) (GrowFunc, *uintptr) {
	var next uintptr
	var mu sync.Mutex
	return func(minSize uintptr) (uintptr, uintptr, error) {
		mu.Lock()
		defer mu.Unlock()
		start := next
		next += slabSize
		return start, start + slabSize, nil
	}, &next
}

func TestManagerAllocGrowsOnExhaustion(t *testing.T) {
	grow, _ := fixedGrower(4096)
	m := New(buddy.DefaultConfig(), grow)

	addr, err := m.Alloc(64, 0)
	require.NoError(t, err)
	assert.NotZero(t, addr+1) // address 0 is a valid start too; just confirm no error path
	assert.Equal(t, 1, m.ArenaCount())
	assert.Equal(t, 1, m.GrowthCount())
}

func TestManagerAllocDeallocRoundTrip(t *testing.T) {
	grow, _ := fixedGrower(64 * 1024)
	m := New(buddy.DefaultConfig(), grow)

	addr, err := m.Alloc(128, 0)
	require.NoError(t, err)

	m.Dealloc(addr, 128, 0)

	metrics := m.Metrics()
	require.Len(t, metrics.Arenas, 1)
	assert.Equal(t, 1, metrics.Arenas[0].FreeBlocksByLevel[0])
}

func TestManagerGrowsAgainWhenFirstArenaFull(t *testing.T) {
	grow, _ := fixedGrower(64) // tiny arenas: 4 leaves of 16 bytes each
	m := New(buddy.DefaultConfig(), grow)

	for i := 0; i < 4; i++ {
		_, err := m.Alloc(16, 0)
		require.NoError(t, err)
	}
	// fifth allocation must trigger growth into a second arena.
	_, err := m.Alloc(16, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, m.ArenaCount())
}

func TestManagerOutOfSpaceWhenGrowFails(t *testing.T) {
	m := New(buddy.DefaultConfig(), func(minSize uintptr) (uintptr, uintptr, error) {
		return 0, 0, assertErr
	})
	_, err := m.Alloc(16, 0)
	require.Error(t, err)
}

var assertErr = &testGrowError{}

type testGrowError struct{}

func (e *testGrowError) Error() string { return "grow failed" }

func TestManagerConcurrentAllocDealloc(t *testing.T) {
	grow, _ := fixedGrower(1 << 20)
	m := New(buddy.DefaultConfig(), grow)

	var wg sync.WaitGroup
	var failures atomic.Int64
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				addr, err := m.Alloc(32, 0)
				if err != nil {
					failures.Add(1)
					continue
				}
				m.Dealloc(addr, 32, 0)
			}
		}()
	}
	wg.Wait()
	assert.Zero(t, failures.Load())
}

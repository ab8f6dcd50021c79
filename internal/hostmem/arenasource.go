package hostmem

import (
	"log"
	"unsafe"

	"github.com/sealedgfx/i915shim/internal/buddy"
)

// ArenaSource implements the growth policy: on allocator exhaustion,
// compute chunk = max(MinChunkSize, next_pow2(size)) * GrowthFactor, pull
// that much memory from the Bridge, and hand the range back to the manager
// to register as a new arena.
type ArenaSource struct {
	bridge Bridge
	cfg    *buddy.Config
}

// NewArenaSource builds a growth policy wrapping bridge according to cfg.
func NewArenaSource(bridge Bridge, cfg *buddy.Config) *ArenaSource {
	if cfg == nil {
		cfg = buddy.DefaultConfig()
	}
	return &ArenaSource{bridge: bridge, cfg: cfg}
}

// Grow implements manager.GrowFunc: it is the only place in the shim that
// decides how large a new arena should be.
func (s *ArenaSource) Grow(minSize uintptr) (start, end uintptr, err error) {
	rounded := buddy.NextPow2(uint64(minSize))
	if rounded < uint64(s.cfg.MinChunkSize) {
		rounded = uint64(s.cfg.MinChunkSize)
	}
	chunk := rounded * uint64(s.cfg.GrowthFactor)

	ptrAlign := uintptr(unsafe.Sizeof(uintptr(0)))
	ptr, err := s.bridge.Alloc(ptrAlign, uintptr(chunk))
	if err != nil {
		return 0, 0, err
	}

	log.Printf("[hostmem] grew arena: requested=%d chunk=%d ptr=%#x", minSize, chunk, ptr)
	return ptr, ptr + uintptr(chunk), nil
}

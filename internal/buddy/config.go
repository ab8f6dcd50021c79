package buddy

// Config controls the arena's block geometry and the manager's growth
// policy. Exported so tests can shrink the arena down to sizes a stress test
// can exhaustively exercise (see DefaultConfig for the production defaults).
type Config struct {
	// LeafBlockSize is the smallest block the allocator will ever hand out,
	// in bytes. Must be a power of two.
	LeafBlockSize uint32
	// MinChunkSize is the floor applied to arena-growth chunk sizing (the
	// "minimum one kilobyte" rule from the arena source policy).
	MinChunkSize uint32
	// GrowthFactor multiplies the rounded-up request size when sizing a new
	// arena; the spec fixes this at 2 (next_pow2(size) * 2).
	GrowthFactor uint32
}

// DefaultConfig matches the production parameters: a 16-byte leaf block, a
// 1KiB minimum chunk, and the doubling growth factor.
func DefaultConfig() *Config {
	return &Config{
		LeafBlockSize: 16,
		MinChunkSize:  1024,
		GrowthFactor:  2,
	}
}

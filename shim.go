// Package i915shim is the trusted-side entry point: it owns the
// process-wide untrusted-memory allocator and the host bridge, and exposes
// the ioctl surface every i915 UMD call goes through.
package i915shim

import (
	"sync"

	"github.com/sealedgfx/i915shim/internal/buddy"
	"github.com/sealedgfx/i915shim/internal/drmabi"
	"github.com/sealedgfx/i915shim/internal/hostmem"
	"github.com/sealedgfx/i915shim/internal/ioctl"
	"github.com/sealedgfx/i915shim/internal/manager"
)

// Shim is the public handle a caller opens once per process. Allocator
// state is lazily initialized on first use rather than at construction, so
// opening a Shim never allocates untrusted memory it doesn't need.
type Shim struct {
	bridge hostmem.Bridge
	cfg    *buddy.Config
	fd     int32

	once sync.Once
	mgr  *manager.Manager
	ioc  *ioctl.Shim
}

// Open builds a Shim bound to fd (the driver file descriptor) and bridge
// (the host memory/ioctl transport). cfg may be nil to use buddy defaults.
func Open(fd int32, bridge hostmem.Bridge, cfg *buddy.Config) *Shim {
	if cfg == nil {
		cfg = buddy.DefaultConfig()
	}
	return &Shim{bridge: bridge, cfg: cfg, fd: fd}
}

func (s *Shim) ensure() *ioctl.Shim {
	s.once.Do(func() {
		src := hostmem.NewArenaSource(s.bridge, s.cfg)
		s.mgr = manager.New(s.cfg, src.Grow)
		s.ioc = ioctl.New(&ioctl.Context{Mgr: s.mgr, Mem: s.bridge})
	})
	return s.ioc
}

// Dispatch drives cmd through the flat-buffer command table (see
// internal/ioctl's commandTable doc comment for coverage). trustedBuf is
// the caller's argument struct bytes, mutated in place with out/inout
// results once Dispatch returns.
func (s *Shim) Dispatch(cmd drmabi.Cmd, trustedBuf []byte) (int32, error) {
	return s.ensure().Dispatch(s.fd, cmd, trustedBuf)
}

// Ioctl drives an explicitly-constructed Marshaller (QUERY, EXECBUFFER2,
// PREAD/PWRITE, PXP_OPS, or an ENGINES-nested CONTEXT_GETPARAM/SETPARAM)
// through the same four-phase engine as Dispatch.
func (s *Shim) Ioctl(cmd drmabi.Cmd, m ioctl.Marshaller) (int32, error) {
	return s.ensure().Ioctl(cmd, s.fd, m)
}

// Metrics reports a point-in-time snapshot of allocator usage across every
// arena the shim has grown so far. Calling it before any Dispatch/Ioctl
// call forces initialization (an empty manager with zero arenas).
func (s *Shim) Metrics() manager.Metrics {
	s.ensure()
	return s.mgr.Metrics()
}

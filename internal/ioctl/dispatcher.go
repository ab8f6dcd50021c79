package ioctl

import (
	"log"

	"github.com/sealedgfx/i915shim/internal/drmabi"
	"github.com/sealedgfx/i915shim/internal/shimerr"
)

// commandTable covers every command whose marshaller fits the flat
// Factory(trustedBuf) convention: the 21 shallow commands plus the three
// deep commands with no caller-supplied side objects (VERSION, and the
// inline/flat-buffer path of CONTEXT_GETPARAM/SETPARAM).
//
// QUERY, EXECBUFFER2, PREAD/PWRITE, PXP_OPS and the ENGINES-nested
// CONTEXT_GETPARAM/SETPARAM case carry caller-owned side objects (item
// lists, object arrays, message buffers, engine graphs) that do not fit a
// single flat byte buffer; callers build those Marshallers directly with
// NewQuery/NewExecbuffer2/NewPread/NewPwrite/NewPxpOps/NewContextParamNode
// and drive them through Shim.Ioctl without going through this table.
var commandTable = map[drmabi.Cmd]Entry{
	drmabi.CmdVersion:         {ArgSize: drmabi.SizeOf[drmabi.DrmVersion](), New: Version()},
	drmabi.CmdGetMagic:        {ArgSize: drmabi.SizeOf[drmabi.DrmAuth](), New: Shallow[drmabi.DrmAuth]()},
	drmabi.CmdAuthMagic:       {ArgSize: drmabi.SizeOf[drmabi.DrmAuth](), New: Shallow[drmabi.DrmAuth]()},
	drmabi.CmdPrimeHandleToFD: {ArgSize: drmabi.SizeOf[drmabi.DrmPrimeHandle](), New: Shallow[drmabi.DrmPrimeHandle]()},
	drmabi.CmdPrimeFDToHandle: {ArgSize: drmabi.SizeOf[drmabi.DrmPrimeHandle](), New: Shallow[drmabi.DrmPrimeHandle]()},

	drmabi.CmdGetparam:          {ArgSize: drmabi.SizeOf[drmabi.DrmI915Getparam](), New: Shallow[drmabi.DrmI915Getparam]()},
	drmabi.CmdGemWait:           {ArgSize: drmabi.SizeOf[drmabi.DrmI915GemWait](), New: Shallow[drmabi.DrmI915GemWait]()},
	drmabi.CmdGemClose:          {ArgSize: drmabi.SizeOf[drmabi.DrmGemClose](), New: Shallow[drmabi.DrmGemClose]()},
	drmabi.CmdGemContextDestroy: {ArgSize: drmabi.SizeOf[drmabi.DrmGemClose](), New: Shallow[drmabi.DrmGemClose]()},
	drmabi.CmdRegRead:           {ArgSize: drmabi.SizeOf[drmabi.DrmI915RegRead](), New: Shallow[drmabi.DrmI915RegRead]()},
	drmabi.CmdGetResetStats:     {ArgSize: drmabi.SizeOf[drmabi.DrmI915ResetStats](), New: Shallow[drmabi.DrmI915ResetStats]()},
	drmabi.CmdGemUserptr:        {ArgSize: drmabi.SizeOf[drmabi.DrmI915GemUserptr](), New: Shallow[drmabi.DrmI915GemUserptr]()},
	drmabi.CmdGemContextGetparam: {ArgSize: drmabi.SizeOf[drmabi.DrmI915GemContextParam](), New: ContextParam()},
	drmabi.CmdGemContextSetparam: {ArgSize: drmabi.SizeOf[drmabi.DrmI915GemContextParam](), New: ContextParam()},
	drmabi.CmdGemVMDestroy:      {ArgSize: drmabi.SizeOf[drmabi.DrmI915GemVMControl](), New: Shallow[drmabi.DrmI915GemVMControl]()},
	drmabi.CmdGemMmapOffset:     {ArgSize: drmabi.SizeOf[drmabi.DrmI915GemMmapOffset](), New: Shallow[drmabi.DrmI915GemMmapOffset]()},
	drmabi.CmdGemMmap:           {ArgSize: drmabi.SizeOf[drmabi.DrmI915GemMmap](), New: Shallow[drmabi.DrmI915GemMmap]()},
	drmabi.CmdGemSetDomain:      {ArgSize: drmabi.SizeOf[drmabi.DrmI915GemSetDomain](), New: Shallow[drmabi.DrmI915GemSetDomain]()},
	drmabi.CmdGemSwFinish:       {ArgSize: drmabi.SizeOf[drmabi.DrmI915GemSwFinish](), New: Shallow[drmabi.DrmI915GemSwFinish]()},
	drmabi.CmdGemGetTiling:      {ArgSize: drmabi.SizeOf[drmabi.DrmI915GemGetTiling](), New: Shallow[drmabi.DrmI915GemGetTiling]()},
	drmabi.CmdGemGetAperture:    {ArgSize: drmabi.SizeOf[drmabi.DrmI915GemGetAperture](), New: Shallow[drmabi.DrmI915GemGetAperture]()},
	drmabi.CmdGetPipeFromCrtcID: {ArgSize: drmabi.SizeOf[drmabi.DrmI915GetPipeFromCrtcID](), New: Shallow[drmabi.DrmI915GetPipeFromCrtcID]()},
	drmabi.CmdGemMadvise:        {ArgSize: drmabi.SizeOf[drmabi.DrmI915GemMadvise](), New: Shallow[drmabi.DrmI915GemMadvise]()},
	drmabi.CmdGemBusy:           {ArgSize: drmabi.SizeOf[drmabi.DrmI915GemBusy](), New: Shallow[drmabi.DrmI915GemBusy]()},
}

// Lookup returns the Entry registered for cmd, if any.
func Lookup(cmd drmabi.Cmd) (Entry, bool) {
	e, ok := commandTable[cmd]
	return e, ok
}

// Shim ties a manager and a host bridge together into the single ioctl
// entry point: every call walks Alloc -> CopyIn ->
// host_ioctl -> CopyOut -> Free, fatally aborting on transport failure and
// otherwise passing the driver's own return code through verbatim.
type Shim struct {
	ctx *Context
}

// New builds a Shim over an already-constructed manager and bridge.
func New(ctx *Context) *Shim { return &Shim{ctx: ctx} }

// Ioctl drives any Marshaller through the four phases. A transport failure
// (the host_ioctl call itself could not be delivered) is fatal: everything
// allocated is torn down and Ioctl panics with the transport error. A successful transport
// call's status code — including a driver-reported error status — is
// passed back verbatim as ret.
func (s *Shim) Ioctl(cmd drmabi.Cmd, fd int32, m Marshaller) (ret int32, err error) {
	untrusted, err := m.Alloc(s.ctx)
	if err != nil {
		return 0, err
	}
	if err := m.CopyIn(s.ctx, untrusted); err != nil {
		_ = m.Free(s.ctx, untrusted)
		return 0, err
	}
	ret, err = s.ctx.Mem.Ioctl(fd, cmd, untrusted)
	if err != nil {
		log.Printf("[ioctl] transport failure cmd=%#x: %v", cmd, err)
		_ = m.Free(s.ctx, untrusted)
		panic(err)
	}
	if cerr := m.CopyOut(s.ctx, untrusted); cerr != nil {
		_ = m.Free(s.ctx, untrusted)
		return ret, cerr
	}
	if ferr := m.Free(s.ctx, untrusted); ferr != nil {
		return ret, ferr
	}
	return ret, nil
}

// Dispatch looks cmd up in the flat-buffer command table and drives it;
// see commandTable's doc comment for which commands are reachable here.
func (s *Shim) Dispatch(fd int32, cmd drmabi.Cmd, trustedBuf []byte) (int32, error) {
	entry, ok := Lookup(cmd)
	if !ok {
		log.Printf("[ioctl] unsupported command cmd=%#x", cmd)
		return 0, shimerr.UnsupportedCommandError(cmd)
	}
	if len(trustedBuf) < entry.ArgSize {
		return 0, shimerr.New(shimerr.KindAlloc, "trusted buffer smaller than command's argument size", map[string]interface{}{
			"cmd": cmd, "have": len(trustedBuf), "want": entry.ArgSize,
		})
	}
	return s.Ioctl(cmd, fd, entry.New(trustedBuf))
}

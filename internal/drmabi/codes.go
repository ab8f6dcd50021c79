// Package drmabi holds the i915 DRM ioctl command codes and argument struct
// layouts this shim marshals. Everything here must be byte-exact with the
// kernel UAPI: command codes are the 32-bit values produced by the DRM ioctl
// encoding macros, and structs use C layout (natural alignment, except the
// PXP variants which the kernel defines packed).
package drmabi

// ioctl direction bits, matching the kernel's asm-generic/ioctl.h encoding.
const (
	iocNone  = 0
	iocWrite = 1
	iocRead  = 2
)

const (
	drmIoctlBase   = 0x64 // 'd', the DRM ioctl type byte
	drmCommandBase = 0x40 // DRM_COMMAND_BASE: i915-specific ioctls start here
)

// iocEncode mirrors the kernel's _IOC() macro: dir | type | nr | size.
func iocEncode(dir, typ, nr uint32, size uintptr) uint32 {
	return dir<<30 | typ<<8 | nr | uint32(size)<<16
}

func drmIOWR(nr uint32, size uintptr) uint32 { return iocEncode(iocRead|iocWrite, drmIoctlBase, nr, size) }
func drmIOW(nr uint32, size uintptr) uint32  { return iocEncode(iocWrite, drmIoctlBase, nr, size) }
func drmIOR(nr uint32, size uintptr) uint32  { return iocEncode(iocRead, drmIoctlBase, nr, size) }
func drmIO(nr uint32) uint32                 { return iocEncode(iocNone, drmIoctlBase, nr, 0) }

// Generic DRM command numbers (below DRM_COMMAND_BASE; shared by every DRM
// driver, not i915-specific).
const (
	nrVersion           = 0x00
	nrGetMagic          = 0x02
	nrAuthMagic         = 0x11
	nrPrimeHandleToFD   = 0x2d
	nrPrimeFDToHandle   = 0x2e
)

// i915-specific command numbers, relative to DRM_COMMAND_BASE.
const (
	nrI915GetParam            = 0x06
	nrI915GemExecbuffer2      = 0x29
	nrI915GemWait             = 0x2c
	nrI915GemContextDestroy   = 0x2e
	nrI915RegRead             = 0x31
	nrI915GetResetStats       = 0x32
	nrI915GemUserptr          = 0x33
	nrI915GemContextGetparam  = 0x34
	nrI915GemContextSetparam  = 0x35
	nrI915Query               = 0x39
	nrI915GemVMCreate         = 0x3a
	nrI915GemVMDestroy        = 0x3b
	nrI915GemCreateExt        = 0x1b
	nrI915GemMmapOffset       = 0x24
	nrI915GemContextCreateExt = 0x2d
	nrI915PxpOps              = 0x52
	nrI915GemPread            = 0x1c
	nrI915GemPwrite           = 0x1d
	nrI915GemMmap             = 0x1e
	nrI915GemSetDomain        = 0x1f
	nrI915GemSwFinish         = 0x20
	nrI915GemGetTiling        = 0x22
	nrI915GemGetAperture      = 0x23
	nrI915GetPipeFromCrtcID   = 0x25
	nrI915GemMadvise          = 0x26
	nrI915GemBusy             = 0x17
	nrI915GemClose            = 0x09 // DRM_IOCTL_GEM_CLOSE is generic and encoded without DRM_COMMAND_BASE; CONTEXT_DESTROY has its own nr but shares this command's argument struct
)

// Cmd is a 32-bit ioctl command code, opaque to everything except the
// dispatcher's lookup table.
type Cmd = uint32

// Command codes, computed the way the kernel headers compute them rather
// than hand-copied as magic numbers.
var (
	CmdVersion         = drmIOWR(nrVersion, sizeofDrmVersion)
	CmdGetMagic        = drmIOR(nrGetMagic, sizeofDrmAuth)
	CmdAuthMagic       = drmIOW(nrAuthMagic, sizeofDrmAuth)
	CmdPrimeHandleToFD = drmIOWR(nrPrimeHandleToFD, sizeofDrmPrimeHandle)
	CmdPrimeFDToHandle = drmIOWR(nrPrimeFDToHandle, sizeofDrmPrimeHandle)

	CmdGetparam            = drmIOWR(drmCommandBase+nrI915GetParam, sizeofDrmI915Getparam)
	CmdGemExecbuffer2       = drmIOW(drmCommandBase+nrI915GemExecbuffer2, sizeofDrmI915GemExecbuffer2)
	CmdGemExecbuffer2WR     = drmIOWR(drmCommandBase+nrI915GemExecbuffer2, sizeofDrmI915GemExecbuffer2) // same nr as plain EXECBUFFER2, IOWR instead of IOW: the kernel reports relocations back only on the WR path
	CmdGemWait              = drmIOWR(drmCommandBase+nrI915GemWait, sizeofDrmI915GemWait)
	CmdGemContextDestroy    = drmIOW(drmCommandBase+nrI915GemContextDestroy, sizeofDrmGemClose)
	CmdRegRead              = drmIOWR(drmCommandBase+nrI915RegRead, sizeofDrmI915RegRead)
	CmdGetResetStats        = drmIOWR(drmCommandBase+nrI915GetResetStats, sizeofDrmI915ResetStats)
	CmdGemUserptr           = drmIOWR(drmCommandBase+nrI915GemUserptr, sizeofDrmI915GemUserptr)
	CmdGemContextGetparam   = drmIOWR(drmCommandBase+nrI915GemContextGetparam, sizeofDrmI915GemContextParam)
	CmdGemContextSetparam   = drmIOWR(drmCommandBase+nrI915GemContextSetparam, sizeofDrmI915GemContextParam)
	CmdQuery                = drmIOWR(drmCommandBase+nrI915Query, sizeofDrmI915Query)
	CmdGemVMCreate          = drmIOWR(drmCommandBase+nrI915GemVMCreate, sizeofDrmI915GemVMControl)
	CmdGemVMDestroy         = drmIOW(drmCommandBase+nrI915GemVMDestroy, sizeofDrmI915GemVMControl)
	CmdGemCreateExt         = drmIOWR(drmCommandBase+nrI915GemCreateExt, sizeofDrmI915GemCreateExt)
	CmdGemMmapOffset        = drmIOWR(drmCommandBase+nrI915GemMmapOffset, sizeofDrmI915GemMmapOffset)
	CmdGemContextCreateExt  = drmIOWR(drmCommandBase+nrI915GemContextCreateExt, sizeofDrmI915GemContextCreateExt)
	CmdPxpOps               = drmIOWR(drmCommandBase+nrI915PxpOps, sizeofDrmI915PxpOps)
	CmdGemPread             = drmIOW(drmCommandBase+nrI915GemPread, sizeofDrmI915GemPread)
	CmdGemPwrite            = drmIOW(drmCommandBase+nrI915GemPwrite, sizeofDrmI915GemPwrite)
	CmdGemMmap              = drmIOWR(drmCommandBase+nrI915GemMmap, sizeofDrmI915GemMmap)
	CmdGemSetDomain         = drmIOW(drmCommandBase+nrI915GemSetDomain, sizeofDrmI915GemSetDomain)
	CmdGemSwFinish          = drmIOW(drmCommandBase+nrI915GemSwFinish, sizeofDrmI915GemSwFinish)
	CmdGemGetTiling         = drmIOWR(drmCommandBase+nrI915GemGetTiling, sizeofDrmI915GemGetTiling)
	CmdGemGetAperture       = drmIOR(drmCommandBase+nrI915GemGetAperture, sizeofDrmI915GemGetAperture)
	CmdGetPipeFromCrtcID    = drmIOWR(drmCommandBase+nrI915GetPipeFromCrtcID, sizeofDrmI915GetPipeFromCrtcID)
	CmdGemMadvise           = drmIOWR(drmCommandBase+nrI915GemMadvise, sizeofDrmI915GemMadvise)
	CmdGemBusy              = drmIOWR(drmCommandBase+nrI915GemBusy, sizeofDrmI915GemBusy)
	CmdGemClose             = drmIOW(nrI915GemClose, sizeofDrmGemClose)
)

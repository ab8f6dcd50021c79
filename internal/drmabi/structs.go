package drmabi

import "unsafe"

// All pointer and size_t fields are represented as uint64: the kernel's
// ioctl ABI fixes these at 8 bytes regardless of host word size, and in our
// world a "pointer" is always an untrusted host address handed out by
// internal/manager, never a Go pointer.

// DrmVersion is the generic DRM_IOCTL_VERSION argument: three size-query
// (len, ptr) pairs for the driver name, date, and description strings.
type DrmVersion struct {
	VersionMajor      int32
	VersionMinor      int32
	VersionPatchlevel int32
	_                 int32
	NameLen           uint64
	Name              uint64
	DateLen           uint64
	Date              uint64
	DescLen           uint64
	Desc              uint64
}

// DrmAuth is DRM_IOCTL_GET_MAGIC / DRM_IOCTL_AUTH_MAGIC's shared argument.
type DrmAuth struct {
	Magic uint32
}

// DrmPrimeHandle is shared by PRIME_HANDLE_TO_FD and PRIME_FD_TO_HANDLE.
type DrmPrimeHandle struct {
	Handle uint32
	Flags  uint32
	Fd     int32
}

// DrmI915Getparam is the single out-pointer-to-int32 GETPARAM argument.
type DrmI915Getparam struct {
	Param int32
	_     int32
	Value uint64
}

// DrmI915GemExecObject2 is one entry of EXECBUFFER2's buffers_ptr array.
type DrmI915GemExecObject2 struct {
	Handle          uint32
	RelocationCount uint32
	RelocsPtr       uint64
	Alignment       uint64
	Offset          uint64
	Flags           uint64
	Rsvd1           uint64
	Rsvd2           uint64
}

// DrmI915GemExecFence is one entry of an EXECBUFFER2_WR fence array.
type DrmI915GemExecFence struct {
	Handle uint32
	Flags  uint32
}

// DrmI915GemExecbuffer2 is the EXECBUFFER2 / EXECBUFFER2_WR argument.
type DrmI915GemExecbuffer2 struct {
	BuffersPtr       uint64
	BufferCount      uint32
	BatchStartOffset uint32
	BatchLen         uint32
	DR1              uint32
	DR4              uint32
	NumCliprects     uint32
	CliprectsPtr     uint64
	Flags            uint64
	Rsvd1            uint64
	Rsvd2            uint64
}

// DrmI915GemWait is the GEM_WAIT argument.
type DrmI915GemWait struct {
	BoHandle  uint32
	Flags     uint32
	TimeoutNs int64
}

// DrmGemClose is the generic GEM_CLOSE argument, reused verbatim for
// CONTEXT_DESTROY — see the supplemented command table's Open Questions note.
type DrmGemClose struct {
	Handle uint32
	Pad    uint32
}

// DrmI915RegRead is the REG_READ argument.
type DrmI915RegRead struct {
	Offset uint64
	Val    uint64
}

// DrmI915ResetStats is the GET_RESET_STATS argument.
type DrmI915ResetStats struct {
	CtxID        uint32
	Flags        uint32
	ResetCount   uint32
	BatchActive  uint32
	BatchPending uint32
	Pad          uint32
}

// DrmI915GemUserptr is the GEM_USERPTR argument. UserPtr addresses
// caller-supplied host-shared memory, not shim-allocated memory, so it is
// never followed or remapped — this command stays shallow despite having a
// pointer field.
type DrmI915GemUserptr struct {
	UserPtr  uint64
	UserSize uint64
	Flags    uint32
	Handle   uint32
}

// DrmI915GemContextParam backs both CONTEXT_GETPARAM and CONTEXT_SETPARAM,
// and the "setparam" node payload inside GEM_CREATE_EXT / CONTEXT_CREATE_EXT
// extension chains. Value is either an inline scalar (Size == 0) or the
// untrusted address of a Size-byte buffer; when Param selects ENGINES, that
// buffer is itself an I915ContextParamEngines graph.
type DrmI915GemContextParam struct {
	CtxID uint32
	Size  uint32
	Param uint64
	Value uint64
}

// I915ContextParamEngineSelector is the well-known value of
// DrmI915GemContextParam.Param that nests an engines sub-graph.
const I915ContextParamEngineSelector = 0x9

// DrmI915QueryItem is one entry of QUERY's items_ptr array, carrying its own
// size-query protocol: Length == 0 on entry asks the driver to report the
// size; a nonzero Length with a populated DataPtr fetches the payload.
type DrmI915QueryItem struct {
	QueryID uint64
	Length  int32
	Flags   uint32
	DataPtr uint64
}

// DrmI915Query is the QUERY argument: an array of DrmI915QueryItem.
type DrmI915Query struct {
	NumItems uint32
	Flags    uint32
	ItemsPtr uint64
}

// DrmI915GemVMControl backs both VM_CREATE (deep: Extensions is a chain of
// region nodes) and VM_DESTROY (shallow, despite sharing this struct — see
// the supplemented command table's Open Questions note).
type DrmI915GemVMControl struct {
	Extensions uint64
	Flags      uint32
	VMID       uint32
}

// I915UserExtension is the common header of every extension-chain node.
// NextExtension is zero at the tail; Name's low 16 bits select the concrete
// variant, the high 16 bits are opaque flags preserved verbatim.
type I915UserExtension struct {
	NextExtension uint64
	Name          uint32
	Flags         uint32
	Rsvd          [4]uint32
}

// ExtensionVariant extracts the node-variant tag from a Name field.
func ExtensionVariant(name uint32) uint16 { return uint16(name & 0xFFFF) }

// DrmI915GemCreateExt is the GEM_CREATE_EXT argument.
type DrmI915GemCreateExt struct {
	Size       uint64
	Handle     uint32
	Flags      uint32
	Extensions uint64
}

// I915GemCreateExtSetparam is GEM_CREATE_EXT's setparam extension node.
type I915GemCreateExtSetparam struct {
	Base  I915UserExtension
	Param DrmI915GemContextParam
}

// DrmI915GemMmapOffset is the GEM_MMAP_OFFSET argument.
type DrmI915GemMmapOffset struct {
	Handle     uint32
	Pad        uint32
	Offset     uint64
	Flags      uint64
	Extensions uint64
}

// DrmI915GemContextCreateExt is the CONTEXT_CREATE_EXT argument.
type DrmI915GemContextCreateExt struct {
	CtxID      uint32
	Flags      uint32
	Extensions uint64
}

// I915GemContextCreateExtSetparam is CONTEXT_CREATE_EXT's setparam node,
// which may itself nest an engines sub-graph (see
// DrmI915GemContextParam.Param == I915ContextParamEngineSelector).
type I915GemContextCreateExtSetparam struct {
	Base  I915UserExtension
	Param DrmI915GemContextParam
}

// I915EngineClassInstance names one engine (class + instance within class).
type I915EngineClassInstance struct {
	EngineClass    uint16
	EngineInstance uint16
}

// I915ContextParamEngines is the ENGINES buffer nested inside a context
// param: a fixed header followed by a trailing Engines array whose length
// is recovered from the surrounding DrmI915GemContextParam.Size field
// (Size - sizeof(I915ContextParamEngines)) / sizeof(I915EngineClassInstance).
type I915ContextParamEngines struct {
	Extensions uint64
}

// I915ContextEnginesLoadBalance is an engine-config chain node; its trailing
// engines array has NumSiblings entries.
type I915ContextEnginesLoadBalance struct {
	Base         I915UserExtension
	EngineIndex  uint16
	NumSiblings  uint16
	Flags        uint32
	Mbz64        uint64
}

// I915ContextEnginesBond is an engine-config chain node; its trailing
// engines array has NumBonds entries.
type I915ContextEnginesBond struct {
	Base         I915UserExtension
	Master       I915EngineClassInstance
	VirtualIndex uint16
	NumBonds     uint16
	Flags        uint64
	Mbz64        [4]uint64
}

// I915ContextEnginesParallelSubmit is an engine-config chain node; its
// trailing engines array has NumSiblings*Width entries.
type I915ContextEnginesParallelSubmit struct {
	Base        I915UserExtension
	EngineIndex uint16
	Width       uint16
	NumSiblings uint16
	Mbz16       uint16
	Flags       uint64
	Mbz64       [3]uint64
}

// DrmI915PxpOps is the PXP_OPS argument; Params is variant-sized by Action.
type DrmI915PxpOps struct {
	Action uint32
	Status uint32
	Params uint64
}

// PxpActionTeeIOMessage is the Action value whose Params struct is
// PxpTeeIOMessageParams (in/out msg_in/msg_out with independent sizes).
const PxpActionTeeIOMessage = 1

// PxpTeeIOMessageParams is PXP_OPS action=1's params payload.
type PxpTeeIOMessageParams struct {
	MsgIn         uint64
	MsgInSize     uint32
	MsgOut        uint64
	MsgOutBufSize uint32
	MsgOutRetSize uint32
	Padding       uint32
}

// DrmI915GemPread is the PREAD argument: DataPtr is out-direction.
type DrmI915GemPread struct {
	Handle  uint32
	Pad     uint32
	Offset  uint64
	Size    uint64
	DataPtr uint64
}

// DrmI915GemPwrite is the PWRITE argument: DataPtr is in-direction.
type DrmI915GemPwrite struct {
	Handle  uint32
	Pad     uint32
	Offset  uint64
	Size    uint64
	DataPtr uint64
}

// DrmI915GemMmap is the legacy GEM_MMAP argument.
type DrmI915GemMmap struct {
	Handle  uint32
	Pad     uint32
	Offset  uint64
	Size    uint64
	AddrPtr uint64
	Flags   uint64
}

// DrmI915GemSetDomain is the GEM_SET_DOMAIN argument.
type DrmI915GemSetDomain struct {
	Handle       uint32
	ReadDomains  uint32
	WriteDomain  uint32
}

// DrmI915GemSwFinish is the GEM_SW_FINISH argument.
type DrmI915GemSwFinish struct {
	Handle uint32
}

// DrmI915GemGetTiling is the GEM_GET_TILING argument.
type DrmI915GemGetTiling struct {
	Handle          uint32
	TilingMode      uint32
	SwizzleMode     uint32
	PhysSwizzleMode uint32
}

// DrmI915GemGetAperture is the GEM_GET_APERTURE argument.
type DrmI915GemGetAperture struct {
	AperSize          uint64
	AperAvailableSize uint64
}

// DrmI915GetPipeFromCrtcID is the GET_PIPE_FROM_CRTC_ID argument.
type DrmI915GetPipeFromCrtcID struct {
	CrtcID uint32
	Pipe   uint32
}

// DrmI915GemMadvise is the GEM_MADVISE argument.
type DrmI915GemMadvise struct {
	Handle   uint32
	Madv     uint32
	Retained uint32
}

// DrmI915GemBusy is the GEM_BUSY argument.
type DrmI915GemBusy struct {
	Handle uint32
	Busy   uint32
}

// Sizeof constants used by codes.go to compute ioctl command codes.
const (
	sizeofDrmVersion                 = unsafe.Sizeof(DrmVersion{})
	sizeofDrmAuth                    = unsafe.Sizeof(DrmAuth{})
	sizeofDrmPrimeHandle             = unsafe.Sizeof(DrmPrimeHandle{})
	sizeofDrmI915Getparam            = unsafe.Sizeof(DrmI915Getparam{})
	sizeofDrmI915GemExecbuffer2      = unsafe.Sizeof(DrmI915GemExecbuffer2{})
	sizeofDrmI915GemWait             = unsafe.Sizeof(DrmI915GemWait{})
	sizeofDrmGemClose                = unsafe.Sizeof(DrmGemClose{})
	sizeofDrmI915RegRead             = unsafe.Sizeof(DrmI915RegRead{})
	sizeofDrmI915ResetStats          = unsafe.Sizeof(DrmI915ResetStats{})
	sizeofDrmI915GemUserptr          = unsafe.Sizeof(DrmI915GemUserptr{})
	sizeofDrmI915GemContextParam     = unsafe.Sizeof(DrmI915GemContextParam{})
	sizeofDrmI915Query               = unsafe.Sizeof(DrmI915Query{})
	sizeofDrmI915GemVMControl        = unsafe.Sizeof(DrmI915GemVMControl{})
	sizeofDrmI915GemCreateExt        = unsafe.Sizeof(DrmI915GemCreateExt{})
	sizeofDrmI915GemMmapOffset       = unsafe.Sizeof(DrmI915GemMmapOffset{})
	sizeofDrmI915GemContextCreateExt = unsafe.Sizeof(DrmI915GemContextCreateExt{})
	sizeofDrmI915PxpOps              = unsafe.Sizeof(DrmI915PxpOps{})
	sizeofDrmI915GemPread            = unsafe.Sizeof(DrmI915GemPread{})
	sizeofDrmI915GemPwrite           = unsafe.Sizeof(DrmI915GemPwrite{})
	sizeofDrmI915GemMmap             = unsafe.Sizeof(DrmI915GemMmap{})
	sizeofDrmI915GemSetDomain        = unsafe.Sizeof(DrmI915GemSetDomain{})
	sizeofDrmI915GemSwFinish         = unsafe.Sizeof(DrmI915GemSwFinish{})
	sizeofDrmI915GemGetTiling        = unsafe.Sizeof(DrmI915GemGetTiling{})
	sizeofDrmI915GemGetAperture      = unsafe.Sizeof(DrmI915GemGetAperture{})
	sizeofDrmI915GetPipeFromCrtcID   = unsafe.Sizeof(DrmI915GetPipeFromCrtcID{})
	sizeofDrmI915GemMadvise          = unsafe.Sizeof(DrmI915GemMadvise{})
	sizeofDrmI915GemBusy             = unsafe.Sizeof(DrmI915GemBusy{})
)

package drmabi

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPutGetStructRoundTrip(t *testing.T) {
	in := DrmI915GemContextParam{CtxID: 7, Size: 16, Param: I915ContextParamEngineSelector, Value: 0xdeadbeef}
	buf := make([]byte, SizeOf[DrmI915GemContextParam]())
	PutStruct(buf, in)
	out := GetStruct[DrmI915GemContextParam](buf)
	assert.Equal(t, in, out)
}

func TestPxpPackedCodecRoundTrip(t *testing.T) {
	in := PxpTeeIOMessageParams{
		MsgIn: 0x1000, MsgInSize: 8,
		MsgOut: 0x2000, MsgOutBufSize: 16, MsgOutRetSize: 10,
	}
	buf := make([]byte, SizeofPxpTeeIOMessageParamsPacked)
	EncodePxpTeeIOMessageParams(buf, in)
	out := DecodePxpTeeIOMessageParams(buf)
	assert.Equal(t, in, out)
	assert.Len(t, buf, 32)
}

func TestExtensionVariant(t *testing.T) {
	assert.Equal(t, uint16(5), ExtensionVariant(0xAAAA0005))
}

func TestCommandCodesAreNonZero(t *testing.T) {
	for name, cmd := range map[string]uint32{
		"version": CmdVersion, "getparam": CmdGetparam, "execbuffer2": CmdGemExecbuffer2,
		"query": CmdQuery, "vm_create": CmdGemVMCreate, "vm_destroy": CmdGemVMDestroy,
		"create_ext": CmdGemCreateExt, "pxp_ops": CmdPxpOps, "pread": CmdGemPread,
		"pwrite": CmdGemPwrite, "gem_close": CmdGemClose, "context_destroy": CmdGemContextDestroy,
	} {
		assert.NotZero(t, cmd, name)
	}
	assert.NotEqual(t, CmdGemExecbuffer2, CmdGemExecbuffer2WR, "EXECBUFFER2 and EXECBUFFER2_WR share an nr but differ in ioctl direction")
}

// TestCommandCodesMatchKernelUAPI pins a handful of command codes against the
// literal DRM_IOCTL_* constants from the kernel UAPI, catching any drift in
// the nr tables this package computes from.
func TestCommandCodesMatchKernelUAPI(t *testing.T) {
	assert.Equal(t, uint32(0x40086409), CmdGemClose)
	assert.Equal(t, uint32(0x40406469), CmdGemExecbuffer2)
	assert.Equal(t, uint32(0xc0406469), CmdGemExecbuffer2WR)
	assert.Equal(t, uint32(0xc018645b), CmdGemCreateExt)
	assert.Equal(t, uint32(0xc0206464), CmdGemMmapOffset)
	assert.Equal(t, uint32(0xc010646d), CmdGemContextCreateExt)
	assert.Equal(t, uint32(0xc0106492), CmdPxpOps)
}

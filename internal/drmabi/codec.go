package drmabi

import (
	"encoding/binary"
	"unsafe"
)

// PutStruct copies v's in-memory representation into buf, which must be at
// least SizeOf[T]() bytes. Valid for any struct here that uses Go's natural
// field alignment, which matches the kernel's C layout for every argument
// struct except the PXP variants — those are declared packed in the UAPI
// and need the explicit byte-level codec below instead.
func PutStruct[T any](buf []byte, v T) {
	size := int(unsafe.Sizeof(v))
	src := unsafe.Slice((*byte)(unsafe.Pointer(&v)), size)
	copy(buf, src)
}

// GetStruct reads a T back out of buf, the inverse of PutStruct.
func GetStruct[T any](buf []byte) T {
	var v T
	size := int(unsafe.Sizeof(v))
	dst := unsafe.Slice((*byte)(unsafe.Pointer(&v)), size)
	copy(dst, buf[:size])
	return v
}

// SizeOf returns the in-memory size of T under Go's natural alignment.
func SizeOf[T any]() int {
	var v T
	return int(unsafe.Sizeof(v))
}

// SizeofPxpTeeIOMessageParamsPacked is the kernel's packed size of
// PxpTeeIOMessageParams: 32 bytes, with no alignment padding inserted before
// MsgOut. Go's natural struct layout for the same fields would insert 4
// bytes of padding there (to 8-align the uint64) and 4 more at the end,
// giving 40 bytes — wrong
// for the wire, which is why this struct needs an explicit codec rather
// than PutStruct/GetStruct.
const SizeofPxpTeeIOMessageParamsPacked = 8 + 4 + 8 + 4 + 4 + 4

// EncodePxpTeeIOMessageParams writes p in the kernel's packed byte layout.
func EncodePxpTeeIOMessageParams(buf []byte, p PxpTeeIOMessageParams) {
	binary.LittleEndian.PutUint64(buf[0:8], p.MsgIn)
	binary.LittleEndian.PutUint32(buf[8:12], p.MsgInSize)
	binary.LittleEndian.PutUint64(buf[12:20], p.MsgOut)
	binary.LittleEndian.PutUint32(buf[20:24], p.MsgOutBufSize)
	binary.LittleEndian.PutUint32(buf[24:28], p.MsgOutRetSize)
	binary.LittleEndian.PutUint32(buf[28:32], p.Padding)
}

// DecodePxpTeeIOMessageParams reads back what EncodePxpTeeIOMessageParams wrote.
func DecodePxpTeeIOMessageParams(buf []byte) PxpTeeIOMessageParams {
	return PxpTeeIOMessageParams{
		MsgIn:         binary.LittleEndian.Uint64(buf[0:8]),
		MsgInSize:     binary.LittleEndian.Uint32(buf[8:12]),
		MsgOut:        binary.LittleEndian.Uint64(buf[12:20]),
		MsgOutBufSize: binary.LittleEndian.Uint32(buf[20:24]),
		MsgOutRetSize: binary.LittleEndian.Uint32(buf[24:28]),
		Padding:       binary.LittleEndian.Uint32(buf[28:32]),
	}
}

package ioctl

import (
	"github.com/sealedgfx/i915shim/internal/drmabi"
	"github.com/sealedgfx/i915shim/internal/shimerr"
)

// QueryItem is one caller-owned entry of a QUERY call. Data == nil (or
// zero-length) asks the driver only for the required size, which CopyOut
// reports back into Length; a populated Data fetches the payload into it
// (the size-query protocol, per item rather than per call).
type QueryItem struct {
	QueryID uint64
	Flags   uint32
	Length  int32
	Data    []byte

	addr uintptr
}

var sizeofDrmI915QueryItem = drmabi.SizeOf[drmabi.DrmI915QueryItem]()
var sizeofDrmI915Query = drmabi.SizeOf[drmabi.DrmI915Query]()

// queryMarshaller implements QUERY: a header plus an out-of-line items
// array, each item itself carrying an out-of-line data buffer.
type queryMarshaller struct {
	items       []*QueryItem
	itemsAddr   uintptr
	headerAddr  uintptr
}

// NewQuery drives a QUERY call over the given items. items is mutated in
// place: each item's Length is updated by CopyOut.
func NewQuery(items []*QueryItem) Marshaller {
	return &queryMarshaller{items: items}
}

func (m *queryMarshaller) Alloc(ctx *Context) (uintptr, error) {
	top, err := ctx.alloc(uintptr(sizeofDrmI915Query), 8)
	if err != nil {
		return 0, err
	}
	arrBytes, ok := checkedMul(uint64(len(m.items)), uint64(sizeofDrmI915QueryItem))
	if !ok {
		ctx.free(top, uintptr(sizeofDrmI915Query), 8)
		return 0, shimerr.OverflowError("query.num_items*sizeof(item)", uint64(len(m.items)), uint64(sizeofDrmI915QueryItem))
	}
	if arrBytes > 0 {
		addr, aerr := ctx.alloc(uintptr(arrBytes), 8)
		if aerr != nil {
			ctx.free(top, uintptr(sizeofDrmI915Query), 8)
			return 0, aerr
		}
		m.itemsAddr = addr
	}
	for i, it := range m.items {
		if len(it.Data) == 0 {
			continue
		}
		addr, aerr := ctx.alloc(uintptr(len(it.Data)), 1)
		if aerr != nil {
			m.rollback(ctx, i-1)
			ctx.free(m.itemsAddr, uintptr(arrBytes), 8)
			ctx.free(top, uintptr(sizeofDrmI915Query), 8)
			return 0, aerr
		}
		it.addr = addr
	}
	m.headerAddr = top
	return top, nil
}

func (m *queryMarshaller) rollback(ctx *Context, upTo int) {
	for j := upTo; j >= 0; j-- {
		if m.items[j].addr != 0 {
			ctx.free(m.items[j].addr, uintptr(len(m.items[j].Data)), 1)
		}
	}
}

func (m *queryMarshaller) CopyIn(ctx *Context, untrusted uintptr) error {
	drmabi.PutStruct(ctx.Mem.Bytes(untrusted, uintptr(sizeofDrmI915Query)), drmabi.DrmI915Query{
		NumItems: uint32(len(m.items)), ItemsPtr: uint64(m.itemsAddr),
	})
	for i, it := range m.items {
		view := ctx.Mem.Bytes(m.itemsAddr+uintptr(i*sizeofDrmI915QueryItem), uintptr(sizeofDrmI915QueryItem))
		length := it.Length
		if len(it.Data) > 0 {
			length = int32(len(it.Data))
		}
		drmabi.PutStruct(view, drmabi.DrmI915QueryItem{
			QueryID: it.QueryID, Length: length, Flags: it.Flags, DataPtr: uint64(it.addr),
		})
		if it.addr != 0 {
			copy(ctx.Mem.Bytes(it.addr, uintptr(len(it.Data))), it.Data)
		}
	}
	return nil
}

func (m *queryMarshaller) CopyOut(ctx *Context, untrusted uintptr) error {
	for i, it := range m.items {
		view := ctx.Mem.Bytes(m.itemsAddr+uintptr(i*sizeofDrmI915QueryItem), uintptr(sizeofDrmI915QueryItem))
		decoded := drmabi.GetStruct[drmabi.DrmI915QueryItem](view)
		it.Length = decoded.Length
		if it.addr != 0 {
			copy(it.Data, ctx.Mem.Bytes(it.addr, uintptr(len(it.Data))))
		}
	}
	return nil
}

func (m *queryMarshaller) Free(ctx *Context, untrusted uintptr) error {
	for _, it := range m.items {
		if it.addr != 0 {
			ctx.free(it.addr, uintptr(len(it.Data)), 1)
		}
	}
	if m.itemsAddr != 0 {
		arrBytes, _ := checkedMul(uint64(len(m.items)), uint64(sizeofDrmI915QueryItem))
		ctx.free(m.itemsAddr, uintptr(arrBytes), 8)
	}
	ctx.free(m.headerAddr, uintptr(sizeofDrmI915Query), 8)
	return nil
}

package vm

import (
	"testing"
	"unsafe"

	"concordia/callback"
	"concordia/program"
)

// arrHost backs a fixed-count array of u32 elements, tracking its own
// cursor through the slice the way bench_core.cpp's array callback does.
type arrHost struct {
	values []uint32
	idx    int
}

func (h *arrHost) callback(ctx callback.Context, keyID uint16, opType callback.OpType, slot unsafe.Pointer) error {
	if opType != callback.OpIOU32 {
		return nil
	}
	p := (*uint32)(slot)
	if ctx.Mode() == callback.ModeEncode {
		*p = h.values[h.idx]
	} else {
		h.values[h.idx] = *p
	}
	h.idx++
	return nil
}

func buildArrFixedPacket() []byte {
	b := program.NewBuilder()
	b.AddKey(0, "elems", 0)
	patch := b.BeginArrFixed(0, 3)
	b.EmitScalar(program.OpIOU32, 0, program.EndianLittle, 4)
	b.EndArr(patch)
	b.Halt()
	return b.Build()
}

func TestArrFixedRoundTrip(t *testing.T) {
	image := buildArrFixedPacket()
	prog, err := program.Load(image)
	assert(t, err == nil, "load failed: %v", err)

	host := &arrHost{values: []uint32{10, 20, 30}}
	buf := make([]byte, 32)
	var ctx Context
	ctx.Init(callback.ModeEncode, prog, buf, host.callback, nil)
	assert(t, ctx.Execute() == nil, "encode failed: %v", ctx.Err())
	n := ctx.Cursor()
	assert(t, n == 12, "expected 12 bytes, got %d", n)

	decoded := &arrHost{values: make([]uint32, 3)}
	var dctx Context
	dctx.Init(callback.ModeDecode, prog, buf[:n], decoded.callback, nil)
	assert(t, dctx.Execute() == nil, "decode failed: %v", dctx.Err())
	for i, v := range []uint32{10, 20, 30} {
		assert(t, decoded.values[i] == v, "element %d mismatch: %d", i, decoded.values[i])
	}
}

// untilHost backs a sentinel-terminated array of u8 elements: the
// callback reports "more elements?" via OP_CTX_QUERY on encode and the
// VM stops on the sentinel byte on decode.
type untilHost struct {
	values []uint8
	idx    int
}

func (h *untilHost) callback(ctx callback.Context, keyID uint16, opType callback.OpType, slot unsafe.Pointer) error {
	switch opType {
	case callback.OpCtxQuery:
		p := (*uint64)(slot)
		if h.idx < len(h.values) {
			*p = 1
		} else {
			*p = 0
		}
	case callback.OpIOU8:
		p := (*uint8)(slot)
		if ctx.Mode() == callback.ModeEncode {
			*p = h.values[h.idx]
		} else {
			h.values = append(h.values, *p)
		}
		h.idx++
	}
	return nil
}

func buildArrUntilPacket() []byte {
	b := program.NewBuilder()
	b.AddKey(0, "elems", 0)
	patch := b.BeginArrUntil(0, 0xFF)
	b.EmitScalar(program.OpIOU8, 0, program.EndianLittle, 1)
	b.EndArr(patch)
	b.Halt()
	return b.Build()
}

func TestArrUntilRoundTrip(t *testing.T) {
	image := buildArrUntilPacket()
	prog, err := program.Load(image)
	assert(t, err == nil, "load failed: %v", err)

	host := &untilHost{values: []uint8{1, 2, 3}}
	buf := make([]byte, 32)
	var ctx Context
	ctx.Init(callback.ModeEncode, prog, buf, host.callback, nil)
	assert(t, ctx.Execute() == nil, "encode failed: %v", ctx.Err())
	n := ctx.Cursor()
	assert(t, n == 4, "expected 3 elements + sentinel = 4 bytes, got %d", n)
	assert(t, buf[3] == 0xFF, "expected sentinel byte, got %x", buf[3])

	decoded := &untilHost{}
	var dctx Context
	dctx.Init(callback.ModeDecode, prog, buf[:n], decoded.callback, nil)
	assert(t, dctx.Execute() == nil, "decode failed: %v", dctx.Err())
	assert(t, len(decoded.values) == 3, "expected 3 decoded elements, got %d", len(decoded.values))
	for i, v := range []uint8{1, 2, 3} {
		assert(t, decoded.values[i] == v, "element %d mismatch: %d", i, decoded.values[i])
	}
}

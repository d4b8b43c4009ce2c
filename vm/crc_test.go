package vm

import (
	"testing"
	"unsafe"

	"concordia/callback"
	"concordia/program"
)

// crcHost backs a CRC-32 region: a u32 payload followed by its CRC-32.
type crcHost struct {
	payload uint32
}

func (h *crcHost) callback(ctx callback.Context, keyID uint16, opType callback.OpType, slot unsafe.Pointer) error {
	if opType != callback.OpIOU32 {
		return nil
	}
	p := (*uint32)(slot)
	if ctx.Mode() == callback.ModeEncode {
		*p = h.payload
	} else {
		h.payload = *p
	}
	return nil
}

func buildCRCPacket() *program.Builder {
	b := program.NewBuilder()
	b.AddKey(0, "payload", 0)
	b.AddKey(1, "crc", 0)
	b.BeginCRC(program.CRC32)
	b.EmitScalar(program.OpIOU32, 0, program.EndianLittle, 4)
	b.EndCRC(1, 4, program.EndianLittle)
	b.Halt()
	return b
}

func TestCRCDetectsCorruption(t *testing.T) {
	image := buildCRCPacket().Build()
	prog, err := program.Load(image)
	assert(t, err == nil, "load failed: %v", err)

	host := &crcHost{payload: 0xDEADBEEF}
	buf := make([]byte, 16)
	var ctx Context
	ctx.Init(callback.ModeEncode, prog, buf, host.callback, nil)
	assert(t, ctx.Execute() == nil, "encode failed: %v", ctx.Err())
	n := ctx.Cursor()

	good := make([]byte, n)
	copy(good, buf[:n])
	decoded := &crcHost{}
	var dctx Context
	dctx.Init(callback.ModeDecode, prog, good, decoded.callback, nil)
	assert(t, dctx.Execute() == nil, "decode of untouched frame failed: %v", dctx.Err())
	assert(t, decoded.payload == 0xDEADBEEF, "payload mismatch: %x", decoded.payload)

	corrupt := make([]byte, n)
	copy(corrupt, buf[:n])
	corrupt[0] ^= 0x01
	broken := &crcHost{}
	var bctx Context
	bctx.Init(callback.ModeDecode, prog, corrupt, broken.callback, nil)
	err = bctx.Execute()
	assert(t, err != nil, "expected CRC mismatch to fail decode")
	code, _ := bctx.LastError()
	assert(t, code == CrcErr, "expected CrcErr, got %v", code)
}


package vm

import (
	"unsafe"

	"golang.org/x/exp/constraints"

	"concordia/callback"
	"concordia/cursor"
	"concordia/program"
)

// execScalar handles OP_IO_U8..OP_IO_F64: read the field's endian/width
// payload, then either ask the callback for a value and write it to the
// cursor (encode) or read a value from the cursor and deliver it to the
// callback (decode). A field wrapped in @scale/@poly/@spline is routed
// through execTransformedScalar instead (transform_ops.go).
func (ctx *Context) execScalar(op program.Op) error {
	keyID, err := ctx.readU16()
	if err != nil {
		return err
	}
	endianByte, err := ctx.readU8()
	if err != nil {
		return err
	}
	if _, err := ctx.readU8(); err != nil { // width byte, redundant with op but kept for wire fidelity
		return err
	}
	endian := endianOf(program.Endian(endianByte))

	if ctx.pendingTransform {
		tr, err := ctx.consumeTransform()
		if err != nil {
			return err
		}
		return ctx.execTransformedScalar(op, keyID, endian, tr)
	}
	return ctx.ioScalar(op, keyID, endian)
}

func (ctx *Context) ioScalar(op program.Op, keyID uint16, endian cursor.Endian) error {
	switch op {
	case program.OpIOU8:
		return ioInt[uint8](ctx, keyID, callback.OpIOU8, 1, endian)
	case program.OpIOU16:
		return ioInt[uint16](ctx, keyID, callback.OpIOU16, 2, endian)
	case program.OpIOU32:
		return ioInt[uint32](ctx, keyID, callback.OpIOU32, 4, endian)
	case program.OpIOU64:
		return ioInt[uint64](ctx, keyID, callback.OpIOU64, 8, endian)
	case program.OpIOI8:
		return ioInt[int8](ctx, keyID, callback.OpIOI8, 1, endian)
	case program.OpIOI16:
		return ioInt[int16](ctx, keyID, callback.OpIOI16, 2, endian)
	case program.OpIOI32:
		return ioInt[int32](ctx, keyID, callback.OpIOI32, 4, endian)
	case program.OpIOI64:
		return ioInt[int64](ctx, keyID, callback.OpIOI64, 8, endian)
	case program.OpIOF32:
		return ioFloat32(ctx, keyID, endian)
	case program.OpIOF64:
		return ioFloat64(ctx, keyID, endian)
	default:
		return ctx.fail(UnknownOp, errUnknownOp)
	}
}

// ioInt transfers one integer field. T fixes the width and signedness of
// the staging slot the callback sees, matching the typed-pointer contract
// spec.md §4.4 describes. Sign only matters for the staging value itself:
// the cursor only ever reads/writes the low `width` bytes, so sign
// extension on the Go side is harmless.
func ioInt[T constraints.Integer](ctx *Context, keyID uint16, opType callback.OpType, width int, endian cursor.Endian) error {
	if ctx.mode == callback.ModeEncode {
		var v T
		if err := ctx.cb(ctx, keyID, opType, unsafe.Pointer(&v)); err != nil {
			return ctx.fail(UserErr, err)
		}
		if err := ctx.cur.WriteInt(uint64(v), width, endian); err != nil {
			return ctx.fail(OOB, errOOB)
		}
		return nil
	}
	raw, err := ctx.cur.ReadInt(width, endian)
	if err != nil {
		return ctx.fail(OOB, errOOB)
	}
	v := T(raw)
	if err := ctx.cb(ctx, keyID, opType, unsafe.Pointer(&v)); err != nil {
		return ctx.fail(UserErr, err)
	}
	return nil
}

func ioFloat32(ctx *Context, keyID uint16, endian cursor.Endian) error {
	if ctx.mode == callback.ModeEncode {
		var v float32
		if err := ctx.cb(ctx, keyID, callback.OpIOF32, unsafe.Pointer(&v)); err != nil {
			return ctx.fail(UserErr, err)
		}
		if err := ctx.cur.WriteFloat(float64(v), 4, endian); err != nil {
			return ctx.fail(OOB, errOOB)
		}
		return nil
	}
	raw, err := ctx.cur.ReadFloat(4, endian)
	if err != nil {
		return ctx.fail(OOB, errOOB)
	}
	v := float32(raw)
	if err := ctx.cb(ctx, keyID, callback.OpIOF32, unsafe.Pointer(&v)); err != nil {
		return ctx.fail(UserErr, err)
	}
	return nil
}

func ioFloat64(ctx *Context, keyID uint16, endian cursor.Endian) error {
	if ctx.mode == callback.ModeEncode {
		var v float64
		if err := ctx.cb(ctx, keyID, callback.OpIOF64, unsafe.Pointer(&v)); err != nil {
			return ctx.fail(UserErr, err)
		}
		if err := ctx.cur.WriteFloat(v, 8, endian); err != nil {
			return ctx.fail(OOB, errOOB)
		}
		return nil
	}
	raw, err := ctx.cur.ReadFloat(8, endian)
	if err != nil {
		return ctx.fail(OOB, errOOB)
	}
	v := raw
	if err := ctx.cb(ctx, keyID, callback.OpIOF64, unsafe.Pointer(&v)); err != nil {
		return ctx.fail(UserErr, err)
	}
	return nil
}

// execBitfield handles OP_BITFIELD: key_id:u16, n_bits:u8 payload, staged
// through the callback as a single *uint64 regardless of width (spec.md
// §3's bitfield model has no separate signedness channel).
func (ctx *Context) execBitfield() error {
	keyID, err := ctx.readU16()
	if err != nil {
		return err
	}
	nBits, err := ctx.readU8()
	if err != nil {
		return err
	}

	if ctx.mode == callback.ModeEncode {
		var v uint64
		if err := ctx.cb(ctx, keyID, callback.OpIOBits, unsafe.Pointer(&v)); err != nil {
			return ctx.fail(UserErr, err)
		}
		if err := ctx.cur.WriteBits(v, nBits); err != nil {
			return ctx.fail(OOB, errOOB)
		}
		return nil
	}
	v, err := ctx.cur.ReadBits(nBits)
	if err != nil {
		return ctx.fail(OOB, errOOB)
	}
	if err := ctx.cb(ctx, keyID, callback.OpIOBits, unsafe.Pointer(&v)); err != nil {
		return ctx.fail(UserErr, err)
	}
	return nil
}

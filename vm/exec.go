package vm

import (
	"concordia/cursor"
	"concordia/program"
)

// Execute dispatches the program's op stream to completion, failure, or
// OpHalt. It runs single-threaded and to completion before returning —
// the only suspension point is the synchronous callback invocation
// (spec.md §5).
func (ctx *Context) Execute() error {
	code := ctx.prog.Code
	for {
		if ctx.pc >= len(code) {
			ctx.cur.AlignToByte()
			ctx.state = Done
			return nil
		}

		opByte := code[ctx.pc]
		startPC := ctx.pc
		ctx.pc++
		op := program.Op(opByte)

		if ctx.trace != nil {
			ctx.trace.Printf("pc=%d op=0x%02x", startPC, opByte)
		}

		if err := ctx.dispatch(op); err != nil {
			return err
		}
		if op == program.OpHalt {
			ctx.cur.AlignToByte()
			ctx.state = Done
			return nil
		}
	}
}

func (ctx *Context) dispatch(op program.Op) error {
	switch op {
	case program.OpNop, program.OpHalt:
		return nil

	case program.OpIOU8, program.OpIOU16, program.OpIOU32, program.OpIOU64,
		program.OpIOI8, program.OpIOI16, program.OpIOI32, program.OpIOI64,
		program.OpIOF32, program.OpIOF64:
		return ctx.execScalar(op)

	case program.OpBitfield:
		return ctx.execBitfield()

	case program.OpRawBytes:
		return ctx.execRawBytes()

	case program.OpStrNull, program.OpStrPreU8, program.OpStrPreU16, program.OpStrPreU32, program.OpStrFixed:
		return ctx.execString(op)

	case program.OpArrFixed:
		return ctx.execArrFixed()
	case program.OpArrUntil:
		return ctx.execArrUntil()

	case program.OpEnterStruct:
		return ctx.execEnterStruct()
	case program.OpExitStruct:
		return ctx.execExitStruct()

	case program.OpIf:
		return ctx.execIf()
	case program.OpElse:
		return ctx.execElse()
	case program.OpEndIf:
		return nil

	case program.OpArrEnd:
		return nil

	case program.OpSwitch:
		return ctx.execSwitch()
	case program.OpEndSwitch:
		return ctx.execEndSwitch()

	case program.OpOptional:
		return ctx.execOptional()

	case program.OpCrcBegin:
		return ctx.execCRCBegin()
	case program.OpCrcEnd:
		return ctx.execCRCEnd()

	case program.OpTransformBegin:
		return ctx.execTransformBegin()
	case program.OpTransformEnd:
		return ctx.execTransformEnd()

	default:
		return ctx.fail(UnknownOp, errUnknownOp)
	}
}

// --- code-stream readers ---------------------------------------------

func (ctx *Context) readU8() (uint8, error) {
	code := ctx.prog.Code
	if ctx.pc+1 > len(code) {
		return 0, ctx.fail(BadImage, errBadImage)
	}
	v := code[ctx.pc]
	ctx.pc++
	return v, nil
}

func (ctx *Context) readU16() (uint16, error) {
	code := ctx.prog.Code
	if ctx.pc+2 > len(code) {
		return 0, ctx.fail(BadImage, errBadImage)
	}
	v := uint16(code[ctx.pc]) | uint16(code[ctx.pc+1])<<8
	ctx.pc += 2
	return v, nil
}

func (ctx *Context) readU32() (uint32, error) {
	code := ctx.prog.Code
	if ctx.pc+4 > len(code) {
		return 0, ctx.fail(BadImage, errBadImage)
	}
	v := uint32(code[ctx.pc]) | uint32(code[ctx.pc+1])<<8 | uint32(code[ctx.pc+2])<<16 | uint32(code[ctx.pc+3])<<24
	ctx.pc += 4
	return v, nil
}

func (ctx *Context) readI32() (int32, error) {
	v, err := ctx.readU32()
	return int32(v), err
}

func (ctx *Context) readU64() (uint64, error) {
	code := ctx.prog.Code
	if ctx.pc+8 > len(code) {
		return 0, ctx.fail(BadImage, errBadImage)
	}
	var v uint64
	for i := 0; i < 8; i++ {
		v |= uint64(code[ctx.pc+i]) << (8 * i)
	}
	ctx.pc += 8
	return v, nil
}

func (ctx *Context) readRawBytes(n int) ([]byte, error) {
	code := ctx.prog.Code
	if n < 0 || ctx.pc+n > len(code) {
		return nil, ctx.fail(BadImage, errBadImage)
	}
	b := code[ctx.pc : ctx.pc+n]
	ctx.pc += n
	return b, nil
}

func endianOf(e program.Endian) cursor.Endian {
	if e == program.EndianBig {
		return cursor.Big
	}
	return cursor.Little
}

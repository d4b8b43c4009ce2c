package vm

import (
	"concordia/callback"
	"concordia/program"
)

// runBody executes the ops in code[start:start+length] to completion,
// used by array iteration to replay one element's sub-program. It is the
// only place execution re-enters a span of the code stream rather than
// advancing monotonically, mirroring how OP_ARR_FIXED/OP_ARR_UNTIL
// describe a repeated body in spec.md §3.
func (ctx *Context) runBody(start, length int) error {
	code := ctx.prog.Code
	end := start + length
	if end > len(code) {
		return ctx.fail(BadImage, errBadImage)
	}
	ctx.pc = start
	for ctx.pc < end {
		opByte := code[ctx.pc]
		if ctx.trace != nil {
			ctx.trace.Printf("pc=%d op=0x%02x", ctx.pc, opByte)
		}
		ctx.pc++
		if err := ctx.dispatch(program.Op(opByte)); err != nil {
			return err
		}
	}
	return nil
}

// execArrFixed handles OP_ARR_FIXED: a body repeated count times, or a
// callback-supplied count when count is the sentinel 0xFFFFFFFF (spec.md's
// "array length not known until runtime" case, grounded on
// bench_core.cpp's bench_io_callback_complex tracking array_idx itself).
func (ctx *Context) execArrFixed() error {
	keyID, err := ctx.readU16()
	if err != nil {
		return err
	}
	count, err := ctx.readU32()
	if err != nil {
		return err
	}
	bodyLen, err := ctx.readU32()
	if err != nil {
		return err
	}
	bodyStart := ctx.pc

	n := count
	if count == 0xFFFFFFFF {
		v, err := ctx.callArrCount(keyID)
		if err != nil {
			return ctx.fail(UserErr, err)
		}
		n = uint32(v)
	}

	for i := uint32(0); i < n; i++ {
		if err := ctx.runBody(bodyStart, int(bodyLen)); err != nil {
			return err
		}
	}
	ctx.pc = bodyStart + int(bodyLen)
	return nil
}

// execArrUntil handles OP_ARR_UNTIL: iterate until a sentinel byte is
// seen on the wire (decode) or the callback reports no more elements
// (encode, which then writes the sentinel itself).
func (ctx *Context) execArrUntil() error {
	keyID, err := ctx.readU16()
	if err != nil {
		return err
	}
	sentinel, err := ctx.readU8()
	if err != nil {
		return err
	}
	bodyLen, err := ctx.readU32()
	if err != nil {
		return err
	}
	bodyStart := ctx.pc

	for {
		if ctx.mode == callback.ModeDecode {
			ctx.cur.AlignToByte()
			peek, err := ctx.cur.PeekByte()
			if err != nil {
				return ctx.fail(OOB, errOOB)
			}
			if peek == sentinel {
				if _, err := ctx.cur.ReadBytes(1); err != nil {
					return ctx.fail(OOB, errOOB)
				}
				break
			}
		} else {
			more, err := ctx.callCtxQuery(keyID)
			if err != nil {
				return ctx.fail(UserErr, err)
			}
			if more == 0 {
				if err := ctx.cur.WriteBytes([]byte{sentinel}); err != nil {
					return ctx.fail(OOB, errOOB)
				}
				break
			}
		}
		if err := ctx.runBody(bodyStart, int(bodyLen)); err != nil {
			return err
		}
	}
	ctx.pc = bodyStart + int(bodyLen)
	return nil
}

package vm

import (
	"encoding/binary"

	"concordia/expr"
)

// execIf handles OP_IF: evaluate the inline expression against the
// callback's OP_LOAD_CTX values; a false result jumps to the recorded
// offset (the else body, or past OpEndIf when there is none). A true
// result simply falls through into the body that follows in the code
// stream.
func (ctx *Context) execIf() error {
	condLen, err := ctx.readU16()
	if err != nil {
		return err
	}
	cond, err := ctx.readRawBytes(int(condLen))
	if err != nil {
		return err
	}
	jumpTarget, err := ctx.readI32()
	if err != nil {
		return err
	}

	slot, err := expr.Eval(cond, ctx.callLoadCtx)
	if err != nil {
		return ctx.fail(ExprErr, errExpr)
	}
	if !slot.Truthy() {
		ctx.pc = int(jumpTarget)
	}
	return nil
}

// execElse handles OP_ELSE reached by straight-line fallthrough from a
// true OP_IF branch: skip the else body entirely.
func (ctx *Context) execElse() error {
	jumpTarget, err := ctx.readI32()
	if err != nil {
		return err
	}
	ctx.pc = int(jumpTarget)
	return nil
}

// caseEntrySize is the wire width of one OP_SWITCH case record:
// value:u64 followed by arm_offset:u32.
const caseEntrySize = 12

// execSwitch handles OP_SWITCH: query the discriminator via OP_CTX_QUERY,
// binary-search the sorted case table in place against the code bytes
// (spec.md's schema compiler is expected to emit cases in ascending value
// order; program.Builder.BeginSwitch emits them in the order given, so its
// callers pass them sorted), and jump to the
// matching arm or the default. The table is never copied into a slice —
// each probed entry is read directly out of ctx.prog.Code, keeping this
// dispatch allocation-free (spec.md §5 / §4.5).
func (ctx *Context) execSwitch() error {
	discKey, err := ctx.readU16()
	if err != nil {
		return err
	}
	nCases, err := ctx.readU16()
	if err != nil {
		return err
	}

	code := ctx.prog.Code
	casesStart := ctx.pc
	casesEnd := casesStart + int(nCases)*caseEntrySize
	if casesEnd+4 > len(code) {
		return ctx.fail(BadImage, errBadImage)
	}

	disc, err := ctx.callCtxQuery(discKey)
	if err != nil {
		return ctx.fail(UserErr, err)
	}

	found := false
	lo, hi := 0, int(nCases)
	for lo < hi {
		mid := (lo + hi) / 2
		off := casesStart + mid*caseEntrySize
		value := binary.LittleEndian.Uint64(code[off : off+8])
		switch {
		case value < disc:
			lo = mid + 1
		case value > disc:
			hi = mid
		default:
			ctx.pc = int(binary.LittleEndian.Uint32(code[off+8 : off+12]))
			found = true
			lo = hi
		}
	}
	if !found {
		ctx.pc = int(binary.LittleEndian.Uint32(code[casesEnd : casesEnd+4]))
	}
	return nil
}

// execEndSwitch handles OP_END_SWITCH: every arm (and the default) jumps
// past the whole construct via the shared end_offset payload.
func (ctx *Context) execEndSwitch() error {
	endOffset, err := ctx.readU32()
	if err != nil {
		return err
	}
	ctx.pc = int(endOffset)
	return nil
}

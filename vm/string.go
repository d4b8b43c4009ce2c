package vm

import (
	"unsafe"

	"concordia/callback"
	"concordia/cursor"
	"concordia/program"
)

// execString handles the five string variants (spec.md §3): a
// null-terminated run, a length-prefixed run (u8/u16/u32 prefix), or a
// fixed-width, zero-padded field.
func (ctx *Context) execString(op program.Op) error {
	keyID, err := ctx.readU16()
	if err != nil {
		return err
	}
	var maxLen uint16
	if op == program.OpStrFixed {
		maxLen, err = ctx.readU16()
		if err != nil {
			return err
		}
	}

	if ctx.mode == callback.ModeEncode {
		return ctx.encodeString(op, keyID, maxLen)
	}
	return ctx.decodeString(op, keyID, maxLen)
}

func (ctx *Context) encodeString(op program.Op, keyID uint16, maxLen uint16) error {
	var s string
	if err := ctx.cb(ctx, keyID, stringOpType(op), unsafe.Pointer(&s)); err != nil {
		return ctx.fail(UserErr, err)
	}

	switch op {
	case program.OpStrNull:
		if err := ctx.cur.WriteBytes([]byte(s)); err != nil {
			return ctx.fail(OOB, errOOB)
		}
		if err := ctx.cur.WriteBytes([]byte{0}); err != nil {
			return ctx.fail(OOB, errOOB)
		}
	case program.OpStrPreU8:
		if len(s) > 0xFF {
			return ctx.fail(StrTooLong, errStrTooLong)
		}
		return ctx.writePrefixedString(s, 1)
	case program.OpStrPreU16:
		if len(s) > 0xFFFF {
			return ctx.fail(StrTooLong, errStrTooLong)
		}
		return ctx.writePrefixedString(s, 2)
	case program.OpStrPreU32:
		return ctx.writePrefixedString(s, 4)
	case program.OpStrFixed:
		if len(s) > int(maxLen) {
			return ctx.fail(StrTooLong, errStrTooLong)
		}
		padded := make([]byte, maxLen)
		copy(padded, s)
		if err := ctx.cur.WriteBytes(padded); err != nil {
			return ctx.fail(OOB, errOOB)
		}
	}
	return nil
}

func (ctx *Context) writePrefixedString(s string, width int) error {
	if err := ctx.cur.WriteInt(uint64(len(s)), width, cursor.Little); err != nil {
		return ctx.fail(OOB, errOOB)
	}
	if err := ctx.cur.WriteBytes([]byte(s)); err != nil {
		return ctx.fail(OOB, errOOB)
	}
	return nil
}

func (ctx *Context) decodeString(op program.Op, keyID uint16, maxLen uint16) error {
	var s string
	switch op {
	case program.OpStrNull:
		ctx.cur.AlignToByte()
		start := ctx.cur.Pos()
		buf := ctx.cur.Buf()
		end := start
		for end < len(buf) && buf[end] != 0 {
			end++
		}
		if end >= len(buf) {
			return ctx.fail(OOB, errOOB)
		}
		if _, err := ctx.cur.ReadBytes(end - start); err != nil {
			return ctx.fail(OOB, errOOB)
		}
		if _, err := ctx.cur.ReadBytes(1); err != nil { // terminator
			return ctx.fail(OOB, errOOB)
		}
		s = borrowString(buf[start:end])
	case program.OpStrPreU8, program.OpStrPreU16, program.OpStrPreU32:
		width := prefixWidth(op)
		n, err := ctx.cur.ReadInt(width, cursor.Little)
		if err != nil {
			return ctx.fail(OOB, errOOB)
		}
		b, err := ctx.cur.ReadBytes(int(n))
		if err != nil {
			return ctx.fail(OOB, errOOB)
		}
		s = borrowString(b)
	case program.OpStrFixed:
		b, err := ctx.cur.ReadBytes(int(maxLen))
		if err != nil {
			return ctx.fail(OOB, errOOB)
		}
		n := len(b)
		for n > 0 && b[n-1] == 0 {
			n--
		}
		s = borrowString(b[:n])
	}

	if err := ctx.cb(ctx, keyID, stringOpType(op), unsafe.Pointer(&s)); err != nil {
		return ctx.fail(UserErr, err)
	}
	return nil
}

func prefixWidth(op program.Op) int {
	switch op {
	case program.OpStrPreU8:
		return 1
	case program.OpStrPreU16:
		return 2
	default:
		return 4
	}
}

func stringOpType(op program.Op) callback.OpType {
	switch op {
	case program.OpStrNull:
		return callback.OpStrNull
	case program.OpStrPreU8:
		return callback.OpStrPreU8
	case program.OpStrPreU16:
		return callback.OpStrPreU16
	case program.OpStrPreU32:
		return callback.OpStrPreU32
	default:
		return callback.OpStrFixed
	}
}

// borrowString aliases b as a string with no copy, matching the
// callback ABI's "borrowed view, valid only for the callback call"
// contract for decoded strings.
func borrowString(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	return unsafe.String(&b[0], len(b))
}

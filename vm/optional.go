package vm

import (
	"unsafe"

	"concordia/callback"
	"concordia/cursor"
)

// execOptional handles OP_OPTIONAL: a presence flag byte followed by
// body_len bytes of guarded body. Encode asks the callback whether the
// field is present; decode reads the flag off the wire and, if absent,
// skips the body untouched (spec.md §3's @optional annotation).
func (ctx *Context) execOptional() error {
	keyID, err := ctx.readU16()
	if err != nil {
		return err
	}
	bodyLen, err := ctx.readU32()
	if err != nil {
		return err
	}
	bodyStart := ctx.pc

	if ctx.mode == callback.ModeEncode {
		var present bool
		if err := ctx.cb(ctx, keyID, callback.OpOptionalPresence, unsafe.Pointer(&present)); err != nil {
			return ctx.fail(UserErr, err)
		}
		if err := ctx.cur.WriteInt(boolToU64(present), 1, cursor.Little); err != nil {
			return ctx.fail(OOB, errOOB)
		}
		if !present {
			ctx.pc = bodyStart + int(bodyLen)
			return nil
		}
		return nil
	}

	flag, err := ctx.cur.ReadInt(1, cursor.Little)
	if err != nil {
		return ctx.fail(OOB, errOOB)
	}
	present := flag != 0
	if err := ctx.cb(ctx, keyID, callback.OpOptionalPresence, unsafe.Pointer(&present)); err != nil {
		return ctx.fail(UserErr, err)
	}
	if flag == 0 {
		ctx.pc = bodyStart + int(bodyLen)
	}
	return nil
}

func boolToU64(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}

package vm

import (
	"unsafe"

	"concordia/callback"
)

// RawBytesLen reports the resolved length of the OP_RAW_BYTES transfer
// currently in progress, for callbacks that type-assert back to *Context
// (the callback.Context interface itself only promises Mode/UserPtr).
func (ctx *Context) RawBytesLen() int { return ctx.rawBytesLen }

// execRawBytes handles OP_RAW_BYTES: a bulk byte transfer whose length is
// either fixed in the IL or, like a dynamic array count, supplied by the
// callback at execution time.
func (ctx *Context) execRawBytes() error {
	keyID, err := ctx.readU16()
	if err != nil {
		return err
	}
	lengthField, err := ctx.readU32()
	if err != nil {
		return err
	}

	length := lengthField
	if lengthField == 0xFFFFFFFF {
		v, err := ctx.callArrCount(keyID)
		if err != nil {
			return ctx.fail(UserErr, err)
		}
		length = uint32(v)
	}
	ctx.rawBytesLen = int(length)

	if ctx.mode == callback.ModeEncode {
		var b []byte
		if err := ctx.cb(ctx, keyID, callback.OpRawBytes, unsafe.Pointer(&b)); err != nil {
			return ctx.fail(UserErr, err)
		}
		if err := ctx.cur.WriteBytes(b); err != nil {
			return ctx.fail(OOB, errOOB)
		}
		return nil
	}

	b, err := ctx.cur.ReadBytes(int(length))
	if err != nil {
		return ctx.fail(OOB, errOOB)
	}
	if err := ctx.cb(ctx, keyID, callback.OpRawBytes, unsafe.Pointer(&b)); err != nil {
		return ctx.fail(UserErr, err)
	}
	return nil
}

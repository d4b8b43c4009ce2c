package vm

import (
	"unsafe"

	"concordia/callback"
)

// execEnterStruct handles OP_ENTER_STRUCT: push the nesting scope and
// fire an advisory callback so the host can, e.g., descend into a nested
// struct pointer before the member fields arrive.
func (ctx *Context) execEnterStruct() error {
	keyID, err := ctx.readU16()
	if err != nil {
		return err
	}
	if err := ctx.pushStructScope(keyID); err != nil {
		return err
	}
	if err := ctx.cb(ctx, keyID, callback.OpEnterStruct, unsafe.Pointer(nil)); err != nil {
		return ctx.fail(UserErr, err)
	}
	return nil
}

// execExitStruct handles OP_EXIT_STRUCT: advisory callback, then pop the
// nesting scope.
func (ctx *Context) execExitStruct() error {
	keyID, err := ctx.readU16()
	if err != nil {
		return err
	}
	if err := ctx.cb(ctx, keyID, callback.OpExitStruct, unsafe.Pointer(nil)); err != nil {
		return ctx.fail(UserErr, err)
	}
	ctx.popStructScope()
	return nil
}

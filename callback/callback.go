// Package callback defines the single extension point between the VM and
// the application: a function that brokers typed values between a
// staging slot and the host's own data structures, identified by the
// key IDs the compiler assigned to each field.
package callback

import "unsafe"

// OpType tells the callback what kind of request the VM is making. The
// numeric values are part of the wire-adjacent ABI and must stay stable
// across versions within the same major (spec.md §6).
type OpType uint8

const (
	// Scalar I/O: slot is typed per the op (uint8..uint64, int8..int64, float32/64).
	OpIOU8 OpType = iota + 1
	OpIOU16
	OpIOU32
	OpIOU64
	OpIOI8
	OpIOI16
	OpIOI32
	OpIOI64
	OpIOF32
	OpIOF64

	// Bitfield I/O: slot is a *uint64 holding the field's low bits. The
	// bit width is not passed to the callback.
	OpIOBits

	// String variants. Encode: slot is a *string owned by the app.
	// Decode: slot is a *string backed by a borrowed view into the buffer,
	// valid only for the duration of the callback invocation.
	OpStrNull
	OpStrPreU8
	OpStrPreU16
	OpStrPreU32
	OpStrFixed

	// Array framing. The executor issues ArrFixed only when an array's
	// (or raw-bytes run's) count is dynamic in the IL, in both modes; slot
	// points at a *uint64 count the callback sets. ArrUntil and ArrEnd are
	// not issued by the executor: sentinel arrays ask "more elements?"
	// through CtxQuery, and no callback marks the end of an array.
	OpArrFixed
	OpArrUntil
	OpArrEnd

	// Struct framing. Advisory; keyID is the parent field's key.
	OpEnterStruct
	OpExitStruct

	// Expression support. Slot is a *uint64; callback supplies the
	// current value of a previously-read field (LoadCtx) or the
	// discriminator of the active switch (CtxQuery).
	OpLoadCtx
	OpCtxQuery

	// Raw bulk transfer. Encode: slot is a *[]byte the callback points at
	// its own source. Decode: slot is a *[]byte view into the buffer.
	// Length is carried in the context (see vm.Context.RawBytesLen),
	// since the callback signature itself has no length parameter.
	OpRawBytes

	// Optional presence. Encode: slot is a *bool the callback sets true
	// to signal the field is present. Decode: advisory only, fired after
	// the presence flag has been read but before the body executes.
	OpOptionalPresence
)

// Func is the sole extension surface. ctx is the opaque user-facing
// handle (vm.Context), keyID identifies the field per the program's key
// table, opType selects the request, and slot is a typed staging pointer
// the callback reads from (encode) or writes to (decode). Returning a
// non-nil error aborts Execute with that error wrapped as USER_ERR.
type Func func(ctx Context, keyID uint16, opType OpType, slot unsafe.Pointer) error

// Context is the minimal surface the callback needs from the running VM,
// kept as an interface so the callback package never imports vm and the
// dependency stays one-directional (vm depends on callback, not the
// reverse).
type Context interface {
	// Mode reports whether the running call is encoding or decoding.
	Mode() Mode
	// UserPtr returns the opaque pointer supplied at Init.
	UserPtr() unsafe.Pointer
}

// Mode selects the VM's direction of travel for the current Execute call.
type Mode uint8

const (
	ModeEncode Mode = iota
	ModeDecode
)

func (m Mode) String() string {
	if m == ModeEncode {
		return "encode"
	}
	return "decode"
}

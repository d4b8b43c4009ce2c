// Package program loads a compiled Concordia IL image into an immutable
// Program the vm package can execute. The validate-before-use shape
// follows KTStephano-GVM's NewVirtualMachine (vm/vm.go): read the whole
// image, validate every offset and label, then build the structure the
// executor actually walks — generalized from "assembly text file" to
// "binary IL image" per spec.md §6.
package program

// Op is a single bytecode in the IL op stream (spec.md §6). Every op is
// one opcode byte followed by a payload whose shape is documented per
// op below.
type Op byte

const (
	OpNop Op = 0x00

	// Scalar I/O. Payload: key_id:u16, endian:u8, width:u8.
	OpIOU8 Op = 0x01
	OpIOU16 Op = 0x02
	OpIOU32 Op = 0x03
	OpIOU64 Op = 0x04
	OpIOI8 Op = 0x05
	OpIOI16 Op = 0x06
	OpIOI32 Op = 0x07
	OpIOI64 Op = 0x08
	OpIOF32 Op = 0x09
	OpIOF64 Op = 0x0A

	// Bitfield. Payload: key_id:u16, width:u8.
	OpBitfield Op = 0x0B

	// Raw bulk transfer. Payload: key_id:u16, length:u32 (0xFFFFFFFF asks
	// the callback for the length, same channel OP_ARR_FIXED's dynamic
	// count uses).
	OpRawBytes Op = 0x0C

	// Strings. Payload: key_id:u16 [, max_len:u16 for OpStrFixed].
	OpStrNull  Op = 0x10
	OpStrPreU8 Op = 0x11
	OpStrPreU16 Op = 0x12
	OpStrPreU32 Op = 0x13
	OpStrFixed Op = 0x14

	// Arrays. OpArrFixed payload: key_id:u16, count:u32 (0xFFFFFFFF means
	// "ask the callback for the element count"), body_len:u32; body_len
	// bytes of body ops follow, then OpArrEnd. OpArrUntil payload:
	// key_id:u16, sentinel:u8, body_len:u32; same body/OpArrEnd shape,
	// but iteration is host-driven (OP_CTX_QUERY "more elements?" on
	// encode) or sentinel-byte-driven (peek the wire on decode).
	OpArrFixed Op = 0x20
	OpArrUntil Op = 0x21
	OpArrEnd   Op = 0x22

	// Struct scope markers. Payload: key_id:u16 (parent field key).
	OpEnterStruct Op = 0x30
	OpExitStruct  Op = 0x31

	// Conditional. OpIf payload: cond_len:u16, cond_bytes[cond_len],
	// jump_offset:i32 — the absolute byte offset to resume at when the
	// condition is false: the start of the else body if present,
	// otherwise the byte right after the matching OpEndIf. OpElse
	// payload: jump_offset:i32 — the absolute offset right after the
	// matching OpEndIf, taken when the true branch falls through into
	// the else marker and must skip its body. OpEndIf has no payload.
	OpIf    Op = 0x40
	OpElse  Op = 0x41
	OpEndIf Op = 0x42

	// Switch. Payload: disc_key:u16, n_cases:u16,
	// (case_value:u64, arm_offset:u32) x n_cases, default_offset:u32.
	// Each arm is a sub-program ending in OpEndSwitch, payload
	// end_offset:u32 (the absolute offset right after the whole switch,
	// shared by every arm including default).
	OpSwitch    Op = 0x50
	OpEndSwitch Op = 0x52

	// Optional. Payload: key_id:u16, body_len:u32 (byte length of the
	// guarded body immediately following, for the skip-on-absent path).
	OpOptional Op = 0x60

	// CRC region. OpCrcBegin payload: poly_kind:u8 (0=CRC-8, 1=CRC-16,
	// 2=CRC-32). OpCrcEnd payload: key_id:u16, field_width:u8, endian:u8.
	OpCrcBegin Op = 0x70
	OpCrcEnd   Op = 0x71

	// Transform wrapper around the next scalar field op. Payload:
	// transform_index:u16 (index into Program.Transforms), raw_width:u8,
	// raw_signed:u8 (0/1).
	OpTransformBegin Op = 0x80
	OpTransformEnd   Op = 0x81

	// End of program.
	OpHalt Op = 0xFF
)

// Endian mirrors cursor.Endian's encoding on the wire (0=little, 1=big).
type Endian uint8

const (
	EndianLittle Endian = 0
	EndianBig    Endian = 1
)

// CRCKind selects the polynomial width for an OP_CRC_BEGIN region.
type CRCKind uint8

const (
	CRC8 CRCKind = iota
	CRC16
	CRC32
)

// TransformKind selects how Program.Transforms[i].Coeffs is interpreted.
type TransformKind uint8

const (
	TransformAffine TransformKind = iota
	TransformPolynomial
	TransformSpline
)

var magic = [4]byte{'C', 'N', 'D', 'I'}

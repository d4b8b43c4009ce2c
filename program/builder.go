package program

import (
	"encoding/binary"
	"math"
)

// Builder assembles a raw IL image by direct opcode emission. It is not
// a schema compiler — it has no notion of a schema language, only the
// binary op stream spec.md §6 documents — and exists so Go code (tests,
// embedders who already have a program description in some other form)
// can produce a valid image
// without going through the external schema-compiler collaborator.
type Builder struct {
	Major, Minor uint16
	keys         []KeyEntry
	transforms   []Transform
	code         []byte
}

// NewBuilder returns a Builder targeting the current supported major
// version.
func NewBuilder() *Builder {
	return &Builder{Major: supportedMajor, Minor: 0}
}

// AddKey registers a key-table entry and returns its ID for convenience
// (the builder does not otherwise assign IDs; callers pick their own,
// matching the compiler's "assigned in declaration order" contract).
func (b *Builder) AddKey(id uint16, name string, typeTag uint8) uint16 {
	b.keys = append(b.keys, KeyEntry{ID: id, Name: name, TypeTag: typeTag})
	return id
}

// AddTransform registers a transform record and returns its index for
// use with EmitTransformBegin.
func (b *Builder) AddTransform(kind TransformKind, coeffs []float64) uint16 {
	b.transforms = append(b.transforms, Transform{Kind: kind, Coeffs: coeffs})
	return uint16(len(b.transforms) - 1)
}

// Bytes returns the code buffer's current length, useful for computing
// jump targets before they're known (patch the placeholder afterward
// with PatchU32).
func (b *Builder) Bytes() int { return len(b.code) }

func (b *Builder) emitOp(op Op) { b.code = append(b.code, byte(op)) }
func (b *Builder) emitU8(v uint8) { b.code = append(b.code, v) }
func (b *Builder) emitU16(v uint16) {
	var buf [2]byte
	binary.LittleEndian.PutUint16(buf[:], v)
	b.code = append(b.code, buf[:]...)
}
func (b *Builder) emitU32(v uint32) {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	b.code = append(b.code, buf[:]...)
}
func (b *Builder) emitI32(v int32) { b.emitU32(uint32(v)) }
func (b *Builder) emitU64(v uint64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	b.code = append(b.code, buf[:]...)
}
func (b *Builder) emitBytes(bs []byte) { b.code = append(b.code, bs...) }

// PatchU32 overwrites 4 bytes at a previously recorded offset, used to
// back-patch jump targets once the destination is known.
func (b *Builder) PatchU32(offset int, v uint32) {
	binary.LittleEndian.PutUint32(b.code[offset:], v)
}

// EmitScalar emits a scalar I/O op (OpIOU8..OpIOF64) for keyID with the
// given endianness and width (used only for documentation purposes; the
// opcode itself determines width at execution time).
func (b *Builder) EmitScalar(op Op, keyID uint16, endian Endian, width uint8) {
	b.emitOp(op)
	b.emitU16(keyID)
	b.emitU8(uint8(endian))
	b.emitU8(width)
}

// EmitBitfield emits OpBitfield for keyID with the given bit width.
func (b *Builder) EmitBitfield(keyID uint16, width uint8) {
	b.emitOp(OpBitfield)
	b.emitU16(keyID)
	b.emitU8(width)
}

// EmitRawBytes emits OpRawBytes for keyID; length=0xFFFFFFFF asks the
// callback for the length at execution time.
func (b *Builder) EmitRawBytes(keyID uint16, length uint32) {
	b.emitOp(OpRawBytes)
	b.emitU16(keyID)
	b.emitU32(length)
}

// EmitString emits a string op. maxLen is only meaningful for OpStrFixed.
func (b *Builder) EmitString(op Op, keyID uint16, maxLen uint16) {
	b.emitOp(op)
	b.emitU16(keyID)
	if op == OpStrFixed {
		b.emitU16(maxLen)
	}
}

// BeginArrFixed emits OpArrFixed; count=0xFFFFFFFF means "ask the
// callback for the count". Returns the body_len placeholder offset for
// EndArr.
func (b *Builder) BeginArrFixed(keyID uint16, count uint32) (bodyLenPatch int) {
	b.emitOp(OpArrFixed)
	b.emitU16(keyID)
	b.emitU32(count)
	bodyLenPatch = len(b.code)
	b.emitU32(0)
	return bodyLenPatch
}

// BeginArrUntil emits OpArrUntil. Returns the body_len placeholder offset
// for EndArr.
func (b *Builder) BeginArrUntil(keyID uint16, sentinel uint8) (bodyLenPatch int) {
	b.emitOp(OpArrUntil)
	b.emitU16(keyID)
	b.emitU8(sentinel)
	bodyLenPatch = len(b.code)
	b.emitU32(0)
	return bodyLenPatch
}

// EndArr patches the body length recorded at bodyLenPatch (the body is
// everything emitted since) and emits OpArrEnd.
func (b *Builder) EndArr(bodyLenPatch int) {
	bodyStart := bodyLenPatch + 4
	b.PatchU32(bodyLenPatch, uint32(len(b.code)-bodyStart))
	b.emitOp(OpArrEnd)
}

// EnterStruct/ExitStruct emit the struct scope markers.
func (b *Builder) EnterStruct(keyID uint16) {
	b.emitOp(OpEnterStruct)
	b.emitU16(keyID)
}
func (b *Builder) ExitStruct(keyID uint16) {
	b.emitOp(OpExitStruct)
	b.emitU16(keyID)
}

// BeginIf emits OpIf with an inline expression program and a placeholder
// jump offset; it returns the offset of that placeholder for PatchU32.
func (b *Builder) BeginIf(cond []byte) (jumpPatchOffset int) {
	b.emitOp(OpIf)
	b.emitU16(uint16(len(cond)))
	b.emitBytes(cond)
	jumpPatchOffset = len(b.code)
	b.emitI32(0)
	return jumpPatchOffset
}

// Else emits OpElse with a placeholder jump offset, returned for patching.
func (b *Builder) Else() (jumpPatchOffset int) {
	b.emitOp(OpElse)
	jumpPatchOffset = len(b.code)
	b.emitI32(0)
	return jumpPatchOffset
}

// EndIf emits OpEndIf.
func (b *Builder) EndIf() { b.emitOp(OpEndIf) }

// SwitchCase holds one case value of a switch. It carries no arm
// offset; BeginSwitch returns the arm patch offsets separately.
type SwitchCase struct {
	Value uint64
}

// BeginSwitch emits OpSwitch's fixed header and n_cases placeholders,
// returning the patch offsets for each arm's target plus the default
// arm's target, in case_value order as given.
func (b *Builder) BeginSwitch(discKey uint16, values []uint64) (armPatches []int, defaultPatch int) {
	b.emitOp(OpSwitch)
	b.emitU16(discKey)
	b.emitU16(uint16(len(values)))
	armPatches = make([]int, len(values))
	for i, v := range values {
		b.emitU64(v)
		armPatches[i] = len(b.code)
		b.emitU32(0)
	}
	defaultPatch = len(b.code)
	b.emitU32(0)
	return armPatches, defaultPatch
}

// EndSwitch emits OpEndSwitch with a placeholder end_offset, terminating
// one arm's sub-program. Every arm (and the default) must share the same
// resolved end_offset; callers patch all of them once the whole switch
// has been emitted.
func (b *Builder) EndSwitch() (endOffsetPatch int) {
	b.emitOp(OpEndSwitch)
	endOffsetPatch = len(b.code)
	b.emitU32(0)
	return endOffsetPatch
}

// BeginOptional emits OpOptional with a placeholder body length,
// returned for patching once the body has been emitted.
func (b *Builder) BeginOptional(keyID uint16) (bodyLenPatch int) {
	b.emitOp(OpOptional)
	b.emitU16(keyID)
	bodyLenPatch = len(b.code)
	b.emitU32(0)
	return bodyLenPatch
}

// BeginCRC emits OpCrcBegin.
func (b *Builder) BeginCRC(kind CRCKind) {
	b.emitOp(OpCrcBegin)
	b.emitU8(uint8(kind))
}

// EndCRC emits OpCrcEnd for the field that stores the checksum.
func (b *Builder) EndCRC(keyID uint16, fieldWidth uint8, endian Endian) {
	b.emitOp(OpCrcEnd)
	b.emitU16(keyID)
	b.emitU8(fieldWidth)
	b.emitU8(uint8(endian))
}

// BeginTransform emits OpTransformBegin wrapping the next scalar op.
func (b *Builder) BeginTransform(transformIndex uint16, rawWidth uint8, rawSigned bool) {
	b.emitOp(OpTransformBegin)
	b.emitU16(transformIndex)
	b.emitU8(rawWidth)
	if rawSigned {
		b.emitU8(1)
	} else {
		b.emitU8(0)
	}
}

// EndTransform emits OpTransformEnd.
func (b *Builder) EndTransform() { b.emitOp(OpTransformEnd) }

// Halt emits OpHalt, which every program must end with.
func (b *Builder) Halt() { b.emitOp(OpHalt) }

// Build assembles the header, key table, transform table, code, and
// trailing name blob into a complete IL image.
func (b *Builder) Build() []byte {
	keyTable := make([]byte, 0, len(b.keys)*keyEntrySize)
	var nameBlob []byte
	// Name offsets are absolute within the final image; compute them
	// relative to where the blob will sit, patched in after we know the
	// total header+tables+code length.
	nameOffsets := make([]uint16, len(b.keys))
	for i, k := range b.keys {
		nameOffsets[i] = uint16(len(nameBlob))
		if k.Name == "" {
			nameOffsets[i] = 0xFFFF
		} else {
			nameBlob = append(nameBlob, []byte(k.Name)...)
			nameBlob = append(nameBlob, 0)
		}
	}

	transformTable := make([]byte, 0)
	for _, tr := range b.transforms {
		transformTable = append(transformTable, byte(tr.Kind), byte(len(tr.Coeffs)))
		for _, c := range tr.Coeffs {
			var buf [8]byte
			binary.LittleEndian.PutUint64(buf[:], math.Float64bits(c))
			transformTable = append(transformTable, buf[:]...)
		}
	}

	keyTableOffset := uint32(headerLen)
	keyTableLen := uint32(len(b.keys) * keyEntrySize)
	transformTableOffset := keyTableOffset + keyTableLen
	transformTableLen := uint32(len(transformTable))
	codeOffset := transformTableOffset + transformTableLen
	codeLen := uint32(len(b.code))
	nameBlobOffset := codeOffset + codeLen

	for i, k := range b.keys {
		off := nameOffsets[i]
		if off != 0xFFFF {
			off += uint16(nameBlobOffset)
		}
		var row [keyEntrySize]byte
		binary.LittleEndian.PutUint16(row[0:2], k.ID)
		binary.LittleEndian.PutUint16(row[2:4], off)
		row[4] = k.TypeTag
		keyTable = append(keyTable, row[:]...)
	}

	image := make([]byte, 0, nameBlobOffset+len(nameBlob))
	image = append(image, magic[:]...)
	var hdr [headerLen - 4]byte
	binary.LittleEndian.PutUint16(hdr[0:2], b.Major)
	binary.LittleEndian.PutUint16(hdr[2:4], b.Minor)
	binary.LittleEndian.PutUint32(hdr[4:8], 0)
	binary.LittleEndian.PutUint32(hdr[8:12], keyTableOffset)
	binary.LittleEndian.PutUint32(hdr[12:16], keyTableLen)
	binary.LittleEndian.PutUint32(hdr[16:20], transformTableOffset)
	binary.LittleEndian.PutUint32(hdr[20:24], transformTableLen)
	binary.LittleEndian.PutUint32(hdr[24:28], codeOffset)
	binary.LittleEndian.PutUint32(hdr[28:32], codeLen)
	image = append(image, hdr[:]...)
	image = append(image, keyTable...)
	image = append(image, transformTable...)
	image = append(image, b.code...)
	image = append(image, nameBlob...)
	return image
}

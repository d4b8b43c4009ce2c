package vm

import (
	"hash/crc32"

	"concordia/callback"
	"concordia/program"
)

// execCRCBegin handles OP_CRC_BEGIN: mark the start of a checksummed
// region. The region always starts byte-aligned (spec.md §3's CRC
// annotation wraps whole fields, never mid-bitfield).
func (ctx *Context) execCRCBegin() error {
	kindByte, err := ctx.readU8()
	if err != nil {
		return err
	}
	ctx.cur.AlignToByte()
	ctx.crcActive = true
	ctx.crcStart = ctx.cur.Pos()
	ctx.crcKind = program.CRCKind(kindByte)
	return nil
}

// execCRCEnd handles OP_CRC_END: compute the checksum over
// [crcStart, cur.Pos()) — the region up to but excluding the checksum
// field itself — then either write it (encode) or read and verify it
// against the wire value (decode).
func (ctx *Context) execCRCEnd() error {
	// key_id identifies the checksum field for documentation/tooling
	// purposes; the VM itself always computes and verifies the value, so
	// no callback round-trip is needed for it.
	if _, err := ctx.readU16(); err != nil {
		return err
	}
	width, err := ctx.readU8()
	if err != nil {
		return err
	}
	endianByte, err := ctx.readU8()
	if err != nil {
		return err
	}
	endian := endianOf(program.Endian(endianByte))

	if !ctx.crcActive {
		return ctx.fail(BadImage, errBadImage)
	}
	ctx.cur.AlignToByte()
	region := ctx.cur.Buf()[ctx.crcStart:ctx.cur.Pos()]
	computed := computeCRC(ctx.crcKind, region)
	ctx.crcActive = false

	if ctx.mode == callback.ModeEncode {
		if err := ctx.cur.WriteInt(computed, int(width), endian); err != nil {
			return ctx.fail(OOB, errOOB)
		}
		return nil
	}
	wire, err := ctx.cur.ReadInt(int(width), endian)
	if err != nil {
		return ctx.fail(OOB, errOOB)
	}
	if wire != computed {
		return ctx.fail(CrcErr, errCRC)
	}
	return nil
}

func computeCRC(kind program.CRCKind, data []byte) uint64 {
	switch kind {
	case program.CRC8:
		return uint64(crc8ATM(data))
	case program.CRC16:
		return uint64(crc16CCITT(data))
	default:
		return uint64(crc32.ChecksumIEEE(data))
	}
}

// crc8ATM implements a poly-0x31, non-reflected MSB-first CRC-8 (not the
// reflected MAXIM-DOW variant of the same polynomial), a common choice
// for short telemetry frames. No example repo in the pack carries an
// 8-bit CRC, so this is a direct bit-loop rather than a table lookup —
// DESIGN.md records why no third-party CRC8 library was wired instead.
func crc8ATM(data []byte) uint8 {
	var crc uint8
	for _, b := range data {
		crc ^= b
		for i := 0; i < 8; i++ {
			if crc&0x80 != 0 {
				crc = (crc << 1) ^ 0x31
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}

// crc16CCITT implements CRC-16/CCITT-FALSE (poly 0x1021, init 0xFFFF).
func crc16CCITT(data []byte) uint16 {
	crc := uint16(0xFFFF)
	for _, b := range data {
		crc ^= uint16(b) << 8
		for i := 0; i < 8; i++ {
			if crc&0x8000 != 0 {
				crc = (crc << 1) ^ 0x1021
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}

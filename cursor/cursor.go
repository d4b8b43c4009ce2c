// Package cursor implements the bit/byte addressed window the VM reads
// and writes through. It mirrors the teacher VM's approach of converting
// raw bytes to and from typed values in place (see KTStephano-GVM's
// uint32FromBytes/uint32ToBytes), generalized from a fixed 32-bit stack
// slot to an arbitrary-width, arbitrary-position buffer.
package cursor

import (
	"encoding/binary"
	"errors"
	"math"
)

// ErrOOB is returned whenever an operation would read or write past the
// end of the underlying buffer. The cursor is left unmodified.
var ErrOOB = errors.New("cursor: out of bounds")

// Endian selects byte order for scalar and float reads/writes.
type Endian uint8

const (
	Little Endian = iota
	Big
)

// Cursor tracks a (byte, bit) position into a caller-owned buffer. It
// never allocates; Pos/BitPos/Len are all that's needed to resume or
// report progress.
type Cursor struct {
	buf    []byte
	pos    int
	bitPos uint8
}

// New wraps buf for cursor-based reads and writes starting at position 0.
func New(buf []byte) *Cursor {
	return &Cursor{buf: buf}
}

// Pos returns the current byte offset.
func (c *Cursor) Pos() int { return c.pos }

// BitPos returns the current bit offset (0-7) within the pending byte.
func (c *Cursor) BitPos() uint8 { return c.bitPos }

// Len returns the length of the underlying buffer.
func (c *Cursor) Len() int { return len(c.buf) }

// Buf returns the underlying buffer, for callers (e.g. CRC regions) that
// need to hash a byte range directly.
func (c *Cursor) Buf() []byte { return c.buf }

// InBitfield reports whether a bitfield run is in progress.
func (c *Cursor) InBitfield() bool { return c.bitPos != 0 }

// AlignToByte flushes a pending partial byte: the remaining bits of the
// current byte are treated as consumed (decode) or zero-padded (encode)
// and the bit cursor resets to 0, per spec.md §3's bitfield-run invariant.
// Any non-bitfield op must call this before proceeding.
func (c *Cursor) AlignToByte() {
	if c.bitPos != 0 {
		c.pos++
		c.bitPos = 0
	}
}

// ReadBytes returns a bounds-checked slice of n raw bytes and advances
// the cursor. The returned slice aliases the underlying buffer.
func (c *Cursor) ReadBytes(n int) ([]byte, error) {
	c.AlignToByte()
	if n < 0 || c.pos+n > len(c.buf) {
		return nil, ErrOOB
	}
	b := c.buf[c.pos : c.pos+n]
	c.pos += n
	return b, nil
}

// WriteBytes copies b into the buffer at the current position and
// advances the cursor.
func (c *Cursor) WriteBytes(b []byte) error {
	c.AlignToByte()
	if c.pos+len(b) > len(c.buf) {
		return ErrOOB
	}
	copy(c.buf[c.pos:], b)
	c.pos += len(b)
	return nil
}

// PeekByte returns the next byte without advancing the cursor. Used by
// sentinel-terminated arrays to decide whether to stop before committing
// to a read.
func (c *Cursor) PeekByte() (byte, error) {
	if c.bitPos != 0 || c.pos >= len(c.buf) {
		return 0, ErrOOB
	}
	return c.buf[c.pos], nil
}

// ReadInt reads a width-byte (1, 2, 4, or 8) integer in the given
// endianness and widens it to uint64.
func (c *Cursor) ReadInt(width int, endian Endian) (uint64, error) {
	b, err := c.ReadBytes(width)
	if err != nil {
		return 0, err
	}
	return decodeUint(b, endian), nil
}

// WriteInt writes the low width bytes of v in the given endianness.
func (c *Cursor) WriteInt(v uint64, width int, endian Endian) error {
	c.AlignToByte()
	if c.pos+width > len(c.buf) {
		return ErrOOB
	}
	encodeUint(c.buf[c.pos:c.pos+width], v, width, endian)
	c.pos += width
	return nil
}

// ReadFloat reads a width-byte (4 or 8) IEEE-754 float.
func (c *Cursor) ReadFloat(width int, endian Endian) (float64, error) {
	bits, err := c.ReadInt(width, endian)
	if err != nil {
		return 0, err
	}
	if width == 4 {
		return float64(math.Float32frombits(uint32(bits))), nil
	}
	return math.Float64frombits(bits), nil
}

// WriteFloat writes a width-byte (4 or 8) IEEE-754 float.
func (c *Cursor) WriteFloat(v float64, width int, endian Endian) error {
	var bits uint64
	if width == 4 {
		bits = uint64(math.Float32bits(float32(v)))
	} else {
		bits = math.Float64bits(v)
	}
	return c.WriteInt(bits, width, endian)
}

// ReadBits reads an n-bit (1..64) field packed MSB-first: a field
// crossing a byte boundary consumes the remaining low bits of the current
// byte first, then the high bits of subsequent bytes.
func (c *Cursor) ReadBits(n uint8) (uint64, error) {
	if n == 0 || n > 64 {
		return 0, ErrOOB
	}
	var result uint64
	remaining := n
	for remaining > 0 {
		if c.pos >= len(c.buf) {
			return 0, ErrOOB
		}
		avail := 8 - c.bitPos
		take := remaining
		if take > avail {
			take = avail
		}
		cur := c.buf[c.pos]
		shift := avail - take
		mask := byte((1 << take) - 1)
		bits := (cur >> shift) & mask
		result = (result << take) | uint64(bits)

		c.bitPos += take
		remaining -= take
		if c.bitPos == 8 {
			c.bitPos = 0
			c.pos++
		}
	}
	return result, nil
}

// WriteBits writes the low n bits (1..64) of v packed MSB-first, sharing
// a byte window with adjacent bitfield ops.
func (c *Cursor) WriteBits(v uint64, n uint8) error {
	if n == 0 || n > 64 {
		return ErrOOB
	}
	remaining := n
	for remaining > 0 {
		if c.pos >= len(c.buf) {
			return ErrOOB
		}
		avail := 8 - c.bitPos
		take := remaining
		if take > avail {
			take = avail
		}
		shift := avail - take
		srcShift := remaining - take
		mask := byte((1 << take) - 1)
		bits := byte((v >> srcShift) & uint64(mask))

		c.buf[c.pos] = (c.buf[c.pos] &^ (mask << shift)) | (bits << shift)

		c.bitPos += take
		remaining -= take
		if c.bitPos == 8 {
			c.bitPos = 0
			c.pos++
		}
	}
	return nil
}

func decodeUint(b []byte, endian Endian) uint64 {
	switch len(b) {
	case 1:
		return uint64(b[0])
	case 2:
		if endian == Little {
			return uint64(binary.LittleEndian.Uint16(b))
		}
		return uint64(binary.BigEndian.Uint16(b))
	case 4:
		if endian == Little {
			return uint64(binary.LittleEndian.Uint32(b))
		}
		return uint64(binary.BigEndian.Uint32(b))
	case 8:
		if endian == Little {
			return binary.LittleEndian.Uint64(b)
		}
		return binary.BigEndian.Uint64(b)
	default:
		var v uint64
		for i := 0; i < len(b); i++ {
			if endian == Little {
				v |= uint64(b[i]) << (8 * i)
			} else {
				v = (v << 8) | uint64(b[i])
			}
		}
		return v
	}
}

func encodeUint(dst []byte, v uint64, width int, endian Endian) {
	switch width {
	case 1:
		dst[0] = byte(v)
	case 2:
		if endian == Little {
			binary.LittleEndian.PutUint16(dst, uint16(v))
		} else {
			binary.BigEndian.PutUint16(dst, uint16(v))
		}
	case 4:
		if endian == Little {
			binary.LittleEndian.PutUint32(dst, uint32(v))
		} else {
			binary.BigEndian.PutUint32(dst, uint32(v))
		}
	case 8:
		if endian == Little {
			binary.LittleEndian.PutUint64(dst, v)
		} else {
			binary.BigEndian.PutUint64(dst, v)
		}
	default:
		for i := 0; i < width; i++ {
			if endian == Little {
				dst[i] = byte(v >> (8 * i))
			} else {
				dst[width-1-i] = byte(v >> (8 * i))
			}
		}
	}
}

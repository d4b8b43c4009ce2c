package cursor

import "testing"

func assert(t *testing.T, cond bool, format string, args ...any) {
	if !cond {
		t.Fatalf(format, args...)
	}
}

func TestEndiannessScalar(t *testing.T) {
	buf := make([]byte, 4)
	c := New(buf)
	assert(t, c.WriteInt(0x01020304, 4, Big) == nil, "write big failed")
	assert(t, buf[0] == 0x01 && buf[1] == 0x02 && buf[2] == 0x03 && buf[3] == 0x04,
		"big-endian bytes wrong: %v", buf)

	buf2 := make([]byte, 4)
	c2 := New(buf2)
	assert(t, c2.WriteInt(0x01020304, 4, Little) == nil, "write little failed")
	assert(t, buf2[0] == 0x04 && buf2[1] == 0x03 && buf2[2] == 0x02 && buf2[3] == 0x01,
		"little-endian bytes wrong: %v", buf2)
}

func TestBitPacking(t *testing.T) {
	// packet F { uint32 a:5; uint32 b:12; uint32 c:3; uint32 d:12; }
	// (a,b,c,d) = (0x1F, 0xABC, 0x7, 0xFFF)
	buf := make([]byte, 4)
	c := New(buf)
	assert(t, c.WriteBits(0x1F, 5) == nil, "write a failed")
	assert(t, c.WriteBits(0xABC, 12) == nil, "write b failed")
	assert(t, c.WriteBits(0x7, 3) == nil, "write c failed")
	assert(t, c.WriteBits(0xFFF, 12) == nil, "write d failed")
	assert(t, c.Pos() == 4, "expected 4 bytes consumed, got %d (bitpos %d)", c.Pos(), c.BitPos())

	r := New(buf)
	a, _ := r.ReadBits(5)
	b, _ := r.ReadBits(12)
	cc, _ := r.ReadBits(3)
	d, _ := r.ReadBits(12)
	assert(t, a == 0x1F, "a mismatch: %x", a)
	assert(t, b == 0xABC, "b mismatch: %x", b)
	assert(t, cc == 0x7, "c mismatch: %x", cc)
	assert(t, d == 0xFFF, "d mismatch: %x", d)
}

func TestOOB(t *testing.T) {
	buf := make([]byte, 2)
	c := New(buf)
	err := c.WriteInt(1, 4, Little)
	assert(t, err == ErrOOB, "expected ErrOOB, got %v", err)
}

func TestFloatRoundTrip(t *testing.T) {
	buf := make([]byte, 8)
	c := New(buf)
	assert(t, c.WriteFloat(3.14159, 4, Little) == nil, "write float failed")
	r := New(buf)
	v, err := r.ReadFloat(4, Little)
	assert(t, err == nil, "read float failed: %v", err)
	// float32 round-trip precision
	assert(t, float32(v) == float32(3.14159), "float mismatch: %v", v)
}

func TestBitfieldAlignResetsOnNonBitOp(t *testing.T) {
	buf := make([]byte, 4)
	c := New(buf)
	_ = c.WriteBits(0x3, 3) // partial byte
	assert(t, c.InBitfield(), "expected to be inside a bitfield run")
	_ = c.WriteInt(0xFF, 1, Little)
	assert(t, !c.InBitfield(), "expected bitfield run flushed after non-bit op")
	assert(t, c.Pos() == 2, "expected pos 2 after flush+byte write, got %d", c.Pos())
}

package program

import "testing"

func assert(t *testing.T, cond bool, format string, args ...any) {
	if !cond {
		t.Fatalf(format, args...)
	}
}

func TestLoadRoundTrip(t *testing.T) {
	b := NewBuilder()
	b.AddKey(0, "id", 0)
	b.AddKey(1, "val", 1)
	b.EmitScalar(OpIOU32, 0, EndianLittle, 4)
	b.EmitScalar(OpIOF32, 1, EndianLittle, 4)
	b.Halt()
	image := b.Build()

	p, err := Load(image)
	assert(t, err == nil, "load failed: %v", err)
	assert(t, p.Major == supportedMajor, "unexpected major: %d", p.Major)
	assert(t, len(p.Keys) == 2, "expected 2 keys, got %d", len(p.Keys))

	k0, ok := p.KeyByID(0)
	assert(t, ok, "key 0 not found")
	assert(t, k0.Name == "id", "expected name 'id', got %q", k0.Name)

	k1, ok := p.KeyByID(1)
	assert(t, ok, "key 1 not found")
	assert(t, k1.Name == "val", "expected name 'val', got %q", k1.Name)
}

func TestLoadBadMagic(t *testing.T) {
	image := NewBuilder().Build()
	image[0] = 'X'
	_, err := Load(image)
	assert(t, err == ErrBadImage, "expected ErrBadImage, got %v", err)
}

func TestLoadTruncated(t *testing.T) {
	image := []byte{'C', 'N', 'D', 'I'}
	_, err := Load(image)
	assert(t, err == ErrBadImage, "expected ErrBadImage on truncated header, got %v", err)
}

func TestLoadOffsetOutOfBounds(t *testing.T) {
	b := NewBuilder()
	b.Halt()
	image := b.Build()
	// Corrupt code_len to point past the end of the image.
	image[32] = 0xFF
	image[33] = 0xFF
	_, err := Load(image)
	assert(t, err == ErrBadImage, "expected ErrBadImage for out-of-bounds table, got %v", err)
}

func TestTransformTableRoundTrip(t *testing.T) {
	b := NewBuilder()
	idx := b.AddTransform(TransformAffine, []float64{0.1, 10.0})
	assert(t, idx == 0, "expected first transform index 0, got %d", idx)
	b.Halt()
	image := b.Build()

	p, err := Load(image)
	assert(t, err == nil, "load failed: %v", err)
	assert(t, len(p.Transforms) == 1, "expected 1 transform, got %d", len(p.Transforms))
	assert(t, p.Transforms[0].Coeffs[0] == 0.1, "scale mismatch: %v", p.Transforms[0].Coeffs[0])
	assert(t, p.Transforms[0].Coeffs[1] == 10.0, "offset mismatch: %v", p.Transforms[0].Coeffs[1])
}

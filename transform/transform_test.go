package transform

import (
	"math"
	"testing"
)

func assert(t *testing.T, cond bool, format string, args ...any) {
	if !cond {
		t.Fatalf(format, args...)
	}
}

// packet T { @scale(0.1) @offset(10.0) uint16 val; } val_eng=25.5 -> raw=155
// (spec.md §8 scenario 3).
func TestAffineScenario(t *testing.T) {
	a := Affine{Scale: 0.1, Offset: 10.0}
	rng := RawRange{Min: 0, Max: math.MaxUint16}
	raw, err := a.Encode(25.5, rng)
	assert(t, err == nil, "encode failed: %v", err)
	assert(t, raw == 155, "expected raw 155, got %d", raw)
	eng := a.Decode(155)
	assert(t, eng == 25.5, "expected eng 25.5, got %v", eng)
}

// @poly(0.5, 2.0, 1.5) uint8 val, grounded on bench_math.cpp's BM_EncodePoly.
func TestPolynomialRoundTrip(t *testing.T) {
	p := Polynomial{Coeffs: []float64{0.5, 2.0, 1.5}}
	rng := RawRange{Min: 0, Max: 255}
	for _, raw := range []int64{0, 10, 100, 255} {
		eng := p.Decode(raw)
		got, err := p.Encode(eng, rng)
		assert(t, err == nil, "encode failed: %v", err)
		assert(t, got == raw, "round-trip mismatch: raw=%d got=%d (eng=%v)", raw, got, eng)
	}
}

// @spline(0,0, 10,100, 20,400, 30,900) uint8 val, grounded on
// bench_math.cpp's BM_EncodeSpline/BM_DecodeSpline (y = x^2 pattern).
func TestSplineRoundTrip(t *testing.T) {
	s := &Spline{Knots: []Knot{
		{X: 0, Y: 0}, {X: 10, Y: 100}, {X: 20, Y: 400}, {X: 30, Y: 900},
	}}
	s.Fit()
	rng := RawRange{Min: 0, Max: 30}
	for _, raw := range []int64{0, 10, 20, 30} {
		eng := s.Decode(raw)
		got, err := s.Encode(eng, rng)
		assert(t, err == nil, "encode failed: %v", err)
		diff := got - raw
		if diff < 0 {
			diff = -diff
		}
		assert(t, diff <= 1, "round-trip mismatch: raw=%d got=%d (eng=%v)", raw, got, eng)
	}
}

func TestSplineClampsOutOfRange(t *testing.T) {
	s := &Spline{Knots: []Knot{{X: 0, Y: 0}, {X: 10, Y: 100}}}
	s.Fit()
	rng := RawRange{Min: 0, Max: 10}
	raw, err := s.Encode(-50, rng)
	assert(t, err == nil, "encode failed: %v", err)
	assert(t, raw == 0, "expected clamp to min knot, got %d", raw)
}

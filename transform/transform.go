// Package transform implements the invertible engineering-value <->
// raw-integer maps used by @scale/@offset, @poly, and @spline field
// annotations (spec.md §4.3). No teacher file performs numeric
// transforms; the style — a small value type plus an Encode/Decode
// method pair with no allocation — follows the value-in/value-out shape
// of KTStephano-GVM's arithAddf/arithMulf helpers in vm/vm.go.
package transform

import (
	"errors"
	"math"
)

// ErrTransform is returned when a transform cannot be evaluated at all
// (an affine scale of zero, or a spline with no knots), per spec.md §7
// TRANSFORM_ERR. Engineering values outside the raw range are clamped to
// it, not rejected.
var ErrTransform = errors.New("transform: value out of domain")

// RawRange describes the raw integer domain a transform maps into,
// derived from the wrapped field's declared width and signedness.
type RawRange struct {
	Min int64
	Max int64
}

func (r RawRange) clamp(v float64) float64 {
	if v < float64(r.Min) {
		return float64(r.Min)
	}
	if v > float64(r.Max) {
		return float64(r.Max)
	}
	return v
}

// Affine implements raw = round((eng - offset) / scale); eng = raw*scale + offset.
type Affine struct {
	Scale  float64
	Offset float64
}

// Encode maps an engineering value to its raw representation, rounding
// to the nearest integer and clamping to rng.
func (a Affine) Encode(eng float64, rng RawRange) (int64, error) {
	if a.Scale == 0 {
		return 0, ErrTransform
	}
	raw := math.Round((eng - a.Offset) / a.Scale)
	raw = rng.clamp(raw)
	return int64(raw), nil
}

// Decode maps a raw integer back to its engineering value.
func (a Affine) Decode(raw int64) float64 {
	return float64(raw)*a.Scale + a.Offset
}

// Polynomial evaluates eng = c0 + c1*raw + c2*raw^2 + ... (Horner's rule)
// on Decode, and inverts by bisection over the raw domain on Encode.
// Coefficients are assumed monotonic over the domain; Encode documents
// which raw value it picks in the non-monotonic case.
type Polynomial struct {
	Coeffs []float64
}

// Decode evaluates the polynomial at raw via Horner's rule.
func (p Polynomial) Decode(raw int64) float64 {
	return horner(p.Coeffs, float64(raw))
}

func horner(coeffs []float64, x float64) float64 {
	if len(coeffs) == 0 {
		return 0
	}
	result := coeffs[len(coeffs)-1]
	for i := len(coeffs) - 2; i >= 0; i-- {
		result = result*x + coeffs[i]
	}
	return result
}

// Encode inverts the polynomial by bisecting the raw domain [rng.Min,
// rng.Max] for a root of f(raw) - eng = 0. If the polynomial is
// monotonic over the domain this converges to the unique raw value.
// Otherwise the rule is deterministic: when f changes sign between the
// two bounds, each step keeps the half in which f still changes sign
// relative to the lower bracket, converging to one root of the many;
// when f has the same sign at both bounds (no sign change, or eng out of
// the achievable range) the bound whose value is nearer eng is returned,
// rng.Min on a tie.
func (p Polynomial) Encode(eng float64, rng RawRange) (int64, error) {
	lo, hi := float64(rng.Min), float64(rng.Max)
	fLo, fHi := p.Decode(int64(lo))-eng, p.Decode(int64(hi))-eng
	if fLo == 0 {
		return rng.Min, nil
	}
	if fHi == 0 {
		return rng.Max, nil
	}
	if sameSign(fLo, fHi) {
		// Non-monotonic or eng outside the achievable range: fall back to
		// the bound whose value is nearest the target.
		if math.Abs(fLo) <= math.Abs(fHi) {
			return rng.Min, nil
		}
		return rng.Max, nil
	}

	for i := 0; i < 64 && hi-lo > 0.5; i++ {
		mid := (lo + hi) / 2
		fMid := p.Decode(int64(math.Round(mid))) - eng
		if fMid == 0 {
			return int64(math.Round(mid)), nil
		}
		if sameSign(fMid, fLo) {
			lo, fLo = mid, fMid
		} else {
			hi, fHi = mid, fMid
		}
	}
	raw := math.Round((lo + hi) / 2)
	return int64(rng.clamp(raw)), nil
}

func sameSign(a, b float64) bool {
	return (a < 0) == (b < 0)
}

// Knot is one (x, y) control point of a spline transform, in ascending x.
type Knot struct {
	X, Y float64
}

// Spline implements a piecewise natural cubic fit over caller-supplied
// knots, per spec.md's @spline annotation.
type Spline struct {
	Knots []Knot
	// second derivatives at each knot, computed once by Fit().
	m []float64
}

// Fit computes the natural cubic spline's second derivatives. Must be
// called once after Knots is populated and before Encode/Decode.
func (s *Spline) Fit() {
	n := len(s.Knots)
	if n < 2 {
		s.m = make([]float64, n)
		return
	}
	// Standard tridiagonal solve for a natural cubic spline (m[0]=m[n-1]=0).
	a := make([]float64, n)
	b := make([]float64, n)
	c := make([]float64, n)
	d := make([]float64, n)
	b[0], b[n-1] = 1, 1
	for i := 1; i < n-1; i++ {
		h0 := s.Knots[i].X - s.Knots[i-1].X
		h1 := s.Knots[i+1].X - s.Knots[i].X
		a[i] = h0
		b[i] = 2 * (h0 + h1)
		c[i] = h1
		d[i] = 6 * ((s.Knots[i+1].Y-s.Knots[i].Y)/h1 - (s.Knots[i].Y-s.Knots[i-1].Y)/h0)
	}
	// Thomas algorithm.
	cp := make([]float64, n)
	dp := make([]float64, n)
	cp[0] = 0
	dp[0] = 0
	for i := 1; i < n; i++ {
		denom := b[i] - a[i]*cp[i-1]
		if denom == 0 {
			denom = 1e-12
		}
		cp[i] = c[i] / denom
		dp[i] = (d[i] - a[i]*dp[i-1]) / denom
	}
	m := make([]float64, n)
	m[n-1] = dp[n-1]
	for i := n - 2; i >= 0; i-- {
		m[i] = dp[i] - cp[i]*m[i+1]
	}
	s.m = m
}

func (s *Spline) segment(x float64) int {
	n := len(s.Knots)
	if x <= s.Knots[0].X {
		return 0
	}
	if x >= s.Knots[n-1].X {
		return n - 2
	}
	lo, hi := 0, n-2
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if s.Knots[mid].X <= x {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo
}

func (s *Spline) evalSegment(i int, x float64) float64 {
	x0, x1 := s.Knots[i].X, s.Knots[i+1].X
	y0, y1 := s.Knots[i].Y, s.Knots[i+1].Y
	h := x1 - x0
	t := x - x0
	a := (x1 - x) / h
	b := t / h
	return a*y0 + b*y1 +
		((a*a*a-a)*s.m[i]+(b*b*b-b)*s.m[i+1])*(h*h)/6
}

// Decode evaluates the spline at raw, treating raw as the x-coordinate
// domain. Out-of-range inputs clamp to the extremal knot.
func (s *Spline) Decode(raw int64) float64 {
	x := float64(raw)
	if len(s.Knots) == 0 {
		return 0
	}
	x = clampToKnots(s.Knots, x)
	i := s.segment(x)
	return s.evalSegment(i, x)
}

// Encode inverts the spline by bisecting over the whole knot x-range,
// evaluating the segment containing each midpoint, until the spline value
// meets eng. Values at or beyond the first/last knot's y clamp to that
// knot's x.
func (s *Spline) Encode(eng float64, rng RawRange) (int64, error) {
	if len(s.Knots) == 0 {
		return 0, ErrTransform
	}
	lo, hi := s.Knots[0].X, s.Knots[len(s.Knots)-1].X
	if eng <= s.Knots[0].Y {
		return int64(rng.clamp(lo)), nil
	}
	if eng >= s.Knots[len(s.Knots)-1].Y {
		return int64(rng.clamp(hi)), nil
	}

	// Bisect over x directly (evalSegment is continuous and, for the
	// typical monotonically-increasing knot sets this transform targets,
	// monotonic), converging on the raw x whose spline value equals eng.
	for i := 0; i < 64 && hi-lo > 1e-6; i++ {
		mid := (lo + hi) / 2
		v := s.evalSegment(s.segment(mid), mid)
		if v < eng {
			lo = mid
		} else {
			hi = mid
		}
	}
	raw := math.Round((lo + hi) / 2)
	return int64(rng.clamp(raw)), nil
}

func clampToKnots(knots []Knot, x float64) float64 {
	if x < knots[0].X {
		return knots[0].X
	}
	if x > knots[len(knots)-1].X {
		return knots[len(knots)-1].X
	}
	return x
}

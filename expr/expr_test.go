package expr

import (
	"encoding/binary"
	"math"
	"testing"
)

func assert(t *testing.T, cond bool, format string, args ...any) {
	if !cond {
		t.Fatalf(format, args...)
	}
}

func pushU64(code []byte, v uint64) []byte {
	code = append(code, byte(OpPushU64))
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, v)
	return append(code, buf...)
}

// x * 2 + 5, grounded on bench_math.cpp's BM_EncodeExprSimple schema.
func TestExprArithmetic(t *testing.T) {
	var code []byte
	code = append(code, byte(OpLoadKey))
	code = append(code, 0, 0) // key 0
	code = pushU64(code, 2)
	code = append(code, byte(OpMul))
	code = pushU64(code, 5)
	code = append(code, byte(OpAdd))
	code = append(code, byte(OpEnd))

	load := func(key uint16) (uint64, error) { return 10, nil }
	result, err := Eval(code, load)
	assert(t, err == nil, "eval failed: %v", err)
	assert(t, result.AsInt() == 25, "expected 25, got %d", result.AsInt())
}

// sin(float(x)) * cos(float(x)), grounded on bench_math.cpp's BM_EncodeExprMath.
func TestExprBuiltins(t *testing.T) {
	var code []byte
	code = append(code, byte(OpLoadKey), 0, 0, byte(OpToFloat), byte(OpCallSin))
	code = append(code, byte(OpLoadKey), 0, 0, byte(OpToFloat), byte(OpCallCos))
	code = append(code, byte(OpMul))
	code = append(code, byte(OpEnd))

	load := func(key uint16) (uint64, error) { return 10, nil }
	result, err := Eval(code, load)
	assert(t, err == nil, "eval failed: %v", err)
	want := math.Sin(10) * math.Cos(10)
	assert(t, math.Abs(result.AsFloat()-want) < 1e-9, "expected %v got %v", want, result.AsFloat())
}

func TestExprDivideByZero(t *testing.T) {
	var code []byte
	code = pushU64(code, 1)
	code = pushU64(code, 0)
	code = append(code, byte(OpDiv))
	code = append(code, byte(OpEnd))

	_, err := Eval(code, nil)
	assert(t, err == ErrExpr, "expected ErrExpr, got %v", err)
}

func TestExprStackOverflow(t *testing.T) {
	var code []byte
	for i := 0; i < maxStackDepth+1; i++ {
		code = pushU64(code, 1)
	}
	code = append(code, byte(OpEnd))

	_, err := Eval(code, nil)
	assert(t, err == ErrExpr, "expected ErrExpr on overflow, got %v", err)
}

func TestExprMinMax(t *testing.T) {
	var code []byte
	code = pushU64(code, 7)
	code = pushU64(code, 12)
	code = append(code, byte(OpCallMin))
	code = append(code, byte(OpEnd))

	result, err := Eval(code, nil)
	assert(t, err == nil, "eval failed: %v", err)
	assert(t, result.AsInt() == 7, "expected min(7,12)=7, got %d", result.AsInt())

	var code2 []byte
	code2 = append(code2, byte(OpPushF64))
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, math.Float64bits(1.5))
	code2 = append(code2, buf...)
	code2 = pushU64(code2, 3)
	code2 = append(code2, byte(OpCallMax))
	code2 = append(code2, byte(OpEnd))

	result2, err := Eval(code2, nil)
	assert(t, err == nil, "eval failed: %v", err)
	assert(t, result2.AsFloat() == 3, "expected max(1.5,3)=3, got %v", result2.AsFloat())
}

func TestExprComparison(t *testing.T) {
	var code []byte
	code = pushU64(code, 5)
	code = pushU64(code, 3)
	code = append(code, byte(OpGt))
	code = append(code, byte(OpEnd))

	result, err := Eval(code, nil)
	assert(t, err == nil, "eval failed: %v", err)
	assert(t, result.Truthy(), "expected 5 > 3 to be true")
}

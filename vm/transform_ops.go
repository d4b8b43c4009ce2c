package vm

import (
	"math"
	"unsafe"

	"concordia/callback"
	"concordia/cursor"
	"concordia/program"
	"concordia/transform"
)

// execTransformBegin handles OP_TRANSFORM_BEGIN: stash the wrapped
// transform's index and the wire shape (width/signedness) of the field it
// wraps. The following scalar op consumes this via consumeTransform.
func (ctx *Context) execTransformBegin() error {
	idx, err := ctx.readU16()
	if err != nil {
		return err
	}
	rawWidth, err := ctx.readU8()
	if err != nil {
		return err
	}
	rawSignedByte, err := ctx.readU8()
	if err != nil {
		return err
	}
	ctx.pendingTransform = true
	ctx.pendingTransformIdx = idx
	ctx.pendingRawWidth = rawWidth
	ctx.pendingRawSigned = rawSignedByte != 0
	return nil
}

// execTransformEnd handles OP_TRANSFORM_END: a safety reset in case a
// malformed image left a pending transform unconsumed (e.g. wraps a
// non-scalar op by mistake).
func (ctx *Context) execTransformEnd() error {
	ctx.pendingTransform = false
	return nil
}

// consumeTransform clears the pending transform and resolves it against
// the program's transform table.
func (ctx *Context) consumeTransform() (program.Transform, error) {
	ctx.pendingTransform = false
	if int(ctx.pendingTransformIdx) >= len(ctx.prog.Transforms) {
		return program.Transform{}, ctx.fail(BadImage, errBadImage)
	}
	return ctx.prog.Transforms[ctx.pendingTransformIdx], nil
}

// execTransformedScalar handles a scalar op wrapped by OP_TRANSFORM_BEGIN:
// the wire still carries a raw integer of the declared width, but the
// callback exchanges the transformed engineering value as a float64
// regardless of the wrapped op's native width.
func (ctx *Context) execTransformedScalar(op program.Op, keyID uint16, endian cursor.Endian, tr program.Transform) error {
	rng := rawRangeFor(ctx.pendingRawWidth, ctx.pendingRawSigned)
	t := resolveTransform(tr)

	if ctx.mode == callback.ModeEncode {
		var eng float64
		if err := ctx.cb(ctx, keyID, callback.OpIOF64, unsafe.Pointer(&eng)); err != nil {
			return ctx.fail(UserErr, err)
		}
		raw, err := t.Encode(eng, rng)
		if err != nil {
			return ctx.fail(TransformErr, errTransform)
		}
		if err := ctx.cur.WriteInt(uint64(raw), int(ctx.pendingRawWidth), endian); err != nil {
			return ctx.fail(OOB, errOOB)
		}
		return nil
	}

	rawBits, err := ctx.cur.ReadInt(int(ctx.pendingRawWidth), endian)
	if err != nil {
		return ctx.fail(OOB, errOOB)
	}
	raw := widenRaw(rawBits, ctx.pendingRawWidth, ctx.pendingRawSigned)
	eng := t.Decode(raw)
	if err := ctx.cb(ctx, keyID, callback.OpIOF64, unsafe.Pointer(&eng)); err != nil {
		return ctx.fail(UserErr, err)
	}
	return nil
}

type invertibleTransform interface {
	Decode(raw int64) float64
	Encode(eng float64, rng transform.RawRange) (int64, error)
}

func resolveTransform(tr program.Transform) invertibleTransform {
	switch tr.Kind {
	case program.TransformPolynomial:
		return transform.Polynomial{Coeffs: tr.Coeffs}
	case program.TransformSpline:
		knots := make([]transform.Knot, 0, len(tr.Coeffs)/2)
		for i := 0; i+1 < len(tr.Coeffs); i += 2 {
			knots = append(knots, transform.Knot{X: tr.Coeffs[i], Y: tr.Coeffs[i+1]})
		}
		s := &transform.Spline{Knots: knots}
		s.Fit()
		return s
	default:
		scale, offset := 1.0, 0.0
		if len(tr.Coeffs) > 0 {
			scale = tr.Coeffs[0]
		}
		if len(tr.Coeffs) > 1 {
			offset = tr.Coeffs[1]
		}
		return transform.Affine{Scale: scale, Offset: offset}
	}
}

func rawRangeFor(width uint8, signed bool) transform.RawRange {
	bits := uint(width) * 8
	if !signed {
		if bits >= 64 {
			return transform.RawRange{Min: 0, Max: math.MaxInt64}
		}
		return transform.RawRange{Min: 0, Max: int64(uint64(1)<<bits) - 1}
	}
	if bits >= 64 {
		return transform.RawRange{Min: math.MinInt64, Max: math.MaxInt64}
	}
	return transform.RawRange{Min: -(int64(1) << (bits - 1)), Max: int64(1)<<(bits-1) - 1}
}

func widenRaw(bits uint64, width uint8, signed bool) int64 {
	if !signed || width >= 8 {
		return int64(bits)
	}
	shift := uint(64 - width*8)
	return int64(bits<<shift) >> shift
}

// ops_sse_convert.go - CVT* conversions between packed/scalar floats and integers
//
// (c) 2024-2026 Zayn Otley - GPLv3 or later

package cpu

import (
	"math"

	"github.com/intuitionamiga/amd64core/vec"
)

// Every conversion here truncates toward zero, including the CVTSD2SI and
// CVTSS2SI forms that honour MXCSR.RC on hardware. MXCSR is not modeled and
// no exception flags are raised.

const (
	indefinite32 = uint32(0x80000000)
	indefinite64 = uint64(0x8000000000000000)
)

// f64ToI32 truncates f. NaN and results outside int32 give the integer
// indefinite value.
func f64ToI32(f float64) uint32 {
	t := math.Trunc(f)
	if math.IsNaN(t) || t > math.MaxInt32 || t < math.MinInt32 {
		return indefinite32
	}
	return uint32(int32(t))
}

func f64ToI64(f float64) uint64 {
	t := math.Trunc(f)
	// 2^63 is exactly representable; MaxInt64 is not.
	if math.IsNaN(t) || t >= 1<<63 || t < math.MinInt64 {
		return indefinite64
	}
	return uint64(int64(t))
}

// VectorConvert reads srcBits of the source into the low end of a vector and
// writes fn(dst, src) back to the XMM destination. Scalar forms keep the
// destination's upper lanes through dst.
type VectorConvert struct {
	insn
	srcBits int
	fn      func(dst, src vec.Vector128) vec.Vector128
}

func (u *VectorConvert) Execute(s *State) (uint64, error) {
	if err := u.bind(s, 0); err != nil {
		return 0, err
	}
	dst, err := u.rd[0].ReadI128(s)
	if err != nil {
		return 0, err
	}
	var src vec.Vector128
	if u.srcBits == 128 {
		src, err = u.rd[1].ReadI128(s)
	} else {
		var v uint64
		v, err = readWidth(u.rd[1], s, u.srcBits)
		src = vec.FromU64s(v, 0)
	}
	if err != nil {
		return 0, err
	}
	if err := u.wr[0].WriteI128(s, u.fn(dst, src)); err != nil {
		return 0, err
	}
	return u.Next(), nil
}

// FloatToInt is CVT(T)SS2SI/CVT(T)SD2SI: a scalar float to a 32- or 64-bit
// general register.
type FloatToInt struct {
	insn
	srcBits int
	dstBits int
}

func (u *FloatToInt) Execute(s *State) (uint64, error) {
	if err := u.bind(s, 0); err != nil {
		return 0, err
	}
	raw, err := readWidth(u.rd[1], s, u.srcBits)
	if err != nil {
		return 0, err
	}
	f := math.Float64frombits(raw)
	if u.srcBits == 32 {
		f = float64(math.Float32frombits(uint32(raw)))
	}
	var r uint64
	if u.dstBits == 64 {
		r = f64ToI64(f)
	} else {
		r = uint64(f64ToI32(f))
	}
	if err := writeWidth(u.wr[0], s, u.dstBits, r); err != nil {
		return 0, err
	}
	return u.Next(), nil
}

// ---- Packed and scalar bodies ----

func cvtdq2ps(_, src vec.Vector128) vec.Vector128 {
	var r vec.Vector128
	for i := 0; i < 4; i++ {
		r.SetF32(i, float32(src.I32(i)))
	}
	return r
}

func cvttps2dq(_, src vec.Vector128) vec.Vector128 {
	var r vec.Vector128
	for i := 0; i < 4; i++ {
		r.SetU32(i, f64ToI32(float64(src.F32(i))))
	}
	return r
}

func cvtdq2pd(_, src vec.Vector128) vec.Vector128 {
	return vec.FromF64s([2]float64{float64(src.I32(0)), float64(src.I32(1))})
}

func cvtps2pd(_, src vec.Vector128) vec.Vector128 {
	return vec.FromF64s([2]float64{float64(src.F32(0)), float64(src.F32(1))})
}

// cvtpd2ps narrows two doubles into the low two singles and clears the upper
// quadword.
func cvtpd2ps(_, src vec.Vector128) vec.Vector128 {
	var r vec.Vector128
	r.SetF32(0, float32(src.F64(0)))
	r.SetF32(1, float32(src.F64(1)))
	return r
}

func cvtss2sd(dst, src vec.Vector128) vec.Vector128 {
	dst.SetF64(0, float64(src.F32(0)))
	return dst
}

func cvtsd2ss(dst, src vec.Vector128) vec.Vector128 {
	dst.SetF32(0, float32(src.F64(0)))
	return dst
}

func cvtsi2sd(bits int) func(dst, src vec.Vector128) vec.Vector128 {
	return func(dst, src vec.Vector128) vec.Vector128 {
		dst.SetF64(0, float64(int64(sextBits(src.Lo(), bits))))
		return dst
	}
}

func cvtsi2ss(bits int) func(dst, src vec.Vector128) vec.Vector128 {
	return func(dst, src vec.Vector128) vec.Vector128 {
		dst.SetF32(0, float32(int64(sextBits(src.Lo(), bits))))
		return dst
	}
}

func newVectorConvert(m string, srcBits int, fn func(dst, src vec.Vector128) vec.Vector128) Constructor {
	return arity(m, 2, func(pc uint64, raw []byte, ops []Operand) (Instruction, error) {
		if !isXMM(ops[0]) {
			return nil, OperandError{ops[0], ErrOperandKind}
		}
		return &VectorConvert{newInsn(pc, raw, m, aligned16(ops)...), srcBits, fn}, nil
	})
}

// newIntToFloat takes the integer width from the source operand.
func newIntToFloat(m string, fn func(bits int) func(dst, src vec.Vector128) vec.Vector128) Constructor {
	return arity(m, 2, func(pc uint64, raw []byte, ops []Operand) (Instruction, error) {
		if !isXMM(ops[0]) {
			return nil, OperandError{ops[0], ErrOperandKind}
		}
		bits := ops[1].Bits()
		if bits != 32 && bits != 64 {
			return nil, OperandError{ops[1], ErrOperandKind}
		}
		return &VectorConvert{newInsn(pc, raw, m, ops...), bits, fn(bits)}, nil
	})
}

func newFloatToInt(m string, srcBits int) Constructor {
	return arity(m, 2, func(pc uint64, raw []byte, ops []Operand) (Instruction, error) {
		bits := ops[0].Bits()
		if _, ok := ops[0].(RegisterOperand); !ok || (bits != 32 && bits != 64) {
			return nil, OperandError{ops[0], ErrOperandKind}
		}
		return &FloatToInt{newInsn(pc, raw, m, ops...), srcBits, bits}, nil
	})
}

func init() {
	register(Implemented, newVectorConvert("cvtdq2ps", 128, cvtdq2ps), "cvtdq2ps")
	register(Implemented, newVectorConvert("cvttps2dq", 128, cvttps2dq), "cvttps2dq")
	register(Implemented, newVectorConvert("cvtdq2pd", 64, cvtdq2pd), "cvtdq2pd")
	register(Implemented, newVectorConvert("cvtps2pd", 64, cvtps2pd), "cvtps2pd")
	register(Implemented, newVectorConvert("cvtpd2ps", 128, cvtpd2ps), "cvtpd2ps")
	register(Implemented, newVectorConvert("cvtss2sd", 32, cvtss2sd), "cvtss2sd")
	register(Implemented, newVectorConvert("cvtsd2ss", 64, cvtsd2ss), "cvtsd2ss")

	register(Implemented, newIntToFloat("cvtsi2sd", cvtsi2sd), "cvtsi2sd")
	register(Implemented, newIntToFloat("cvtsi2ss", cvtsi2ss), "cvtsi2ss")

	for _, f := range []struct {
		m    string
		bits int
	}{
		{"cvttsd2si", 64}, {"cvtsd2si", 64},
		{"cvttss2si", 32}, {"cvtss2si", 32},
	} {
		register(Implemented, newFloatToInt(f.m, f.bits), f.m)
	}
}

// ops_muldiv.go - MUL IMUL DIV IDIV
//
// (c) 2024-2026 Zayn Otley - GPLv3 or later

package cpu

import (
	"fmt"
	"math"
	"math/bits"
)

// accumulatorPair returns the registers holding the low and high halves of
// the double-width MUL product or DIV dividend: AL:AH for bytes, otherwise
// the matching views of RAX and RDX.
func accumulatorPair(n int) (lo, hi Register) {
	if n == 8 {
		return AL, AH
	}
	return RAX.Sized(n), RDX.Sized(n)
}

// mulWide returns the full 2n-bit product of a and b as two halves.
func mulWide[T Int](a, b T, signed bool) (lo, hi T) {
	n := bitsOf[T]()
	if n == 64 {
		h, l := bits.Mul64(uint64(a), uint64(b))
		if signed {
			if isNeg(a) {
				h -= uint64(b)
			}
			if isNeg(b) {
				h -= uint64(a)
			}
		}
		return T(l), T(h)
	}
	if signed {
		p := int64(signExtend(a)) * int64(signExtend(b))
		return T(p), T(p >> n)
	}
	p := uint64(a) * uint64(b)
	return T(p), T(p >> n)
}

// mulFlags sets CF and OF when the high half carries significant bits, and
// SF PF from the low half. ZF and AF are left alone.
func mulFlags[T Int](s *State, lo, hi T, signed bool) {
	var ext T
	if signed && isNeg(lo) {
		ext = ^T(0)
	}
	of := hi != ext
	s.SetFlag(FlagCF, of)
	s.SetFlag(FlagOF, of)
	s.SetFlag(FlagSF, isNeg(lo))
	s.SetFlag(FlagPF, parity(byte(lo)))
}

// Mul is the one-operand MUL and IMUL: the accumulator times the operand into
// the accumulator pair.
type Mul[T Int] struct {
	insn
	signed bool
}

func (u *Mul[T]) Execute(s *State) (uint64, error) {
	if err := u.bind(s); err != nil {
		return 0, err
	}
	b, err := readInt[T](u.rd[0], s)
	if err != nil {
		return 0, err
	}
	loReg, hiReg := accumulatorPair(bitsOf[T]())
	lo, hi := mulWide(T(s.Get(loReg)), b, u.signed)
	s.Set(loReg, uint64(lo))
	s.Set(hiReg, uint64(hi))
	mulFlags(s, lo, hi, u.signed)
	return u.Next(), nil
}

// Imul is the two- and three-operand IMUL: dst = a * b truncated, with a and
// b naming operand indices.
type Imul[T Int] struct {
	insn
	a, b int
}

func (u *Imul[T]) Execute(s *State) (uint64, error) {
	if err := u.bind(s, 0); err != nil {
		return 0, err
	}
	a, err := readInt[T](u.rd[u.a], s)
	if err != nil {
		return 0, err
	}
	b, err := readInt[T](u.rd[u.b], s)
	if err != nil {
		return 0, err
	}
	lo, hi := mulWide(a, b, true)
	if err := writeInt(u.wr[0], s, lo); err != nil {
		return 0, err
	}
	mulFlags(s, lo, hi, true)
	return u.Next(), nil
}

// Div is DIV and IDIV: the accumulator pair divided by the operand, quotient
// to the low register and remainder to the high one. A zero divisor or an
// oversized quotient faults with a DivideError before anything is written.
// Flags are left alone.
type Div[T Int] struct {
	insn
	signed bool
}

func (u *Div[T]) Execute(s *State) (uint64, error) {
	if err := u.bind(s); err != nil {
		return 0, err
	}
	d, err := readInt[T](u.rd[0], s)
	if err != nil {
		return 0, err
	}
	loReg, hiReg := accumulatorPair(bitsOf[T]())
	lo, hi := T(s.Get(loReg)), T(s.Get(hiReg))

	var q, r T
	if u.signed {
		q, r, err = idivWide(hi, lo, d)
	} else {
		q, r, err = divWide(hi, lo, d)
	}
	if err != nil {
		return 0, err
	}
	s.Set(loReg, uint64(q))
	s.Set(hiReg, uint64(r))
	return u.Next(), nil
}

func divWide[T Int](hi, lo, d T) (q, r T, err error) {
	if d == 0 {
		return 0, 0, &DivideError{}
	}
	if hi >= d {
		return 0, 0, &DivideError{Divisor: uint64(d), Overflow: true}
	}
	n := bitsOf[T]()
	if n == 64 {
		qq, rr := bits.Div64(uint64(hi), uint64(lo), uint64(d))
		return T(qq), T(rr), nil
	}
	x := uint64(hi)<<n | uint64(lo)
	return T(x / uint64(d)), T(x % uint64(d)), nil
}

// idivWide truncates toward zero; the remainder takes the dividend's sign.
func idivWide[T Int](hi, lo, d T) (q, r T, err error) {
	if d == 0 {
		return 0, 0, &DivideError{}
	}
	overflow := &DivideError{Divisor: uint64(d), Overflow: true}
	n := bitsOf[T]()
	if n < 64 {
		x := int64(sextBits(uint64(hi)<<n|uint64(lo), 2*n))
		y := int64(signExtend(d))
		if y == -1 && x == math.MinInt64 {
			return 0, 0, overflow
		}
		qq, rr := x/y, x%y
		if qq < -(1<<(n-1)) || qq > 1<<(n-1)-1 {
			return 0, 0, overflow
		}
		return T(qq), T(rr), nil
	}

	xh, xl := uint64(hi), uint64(lo)
	neg := isNeg(hi)
	if neg {
		xh = ^xh
		if xl == 0 {
			xh++
		}
		xl = -xl
	}
	y := uint64(d)
	if isNeg(d) {
		y = -y
	}
	if xh >= y {
		return 0, 0, overflow
	}
	qq, rr := bits.Div64(xh, xl, y)
	if neg != isNeg(d) {
		if qq > 1<<63 {
			return 0, 0, overflow
		}
		qq = -qq
	} else if qq >= 1<<63 {
		return 0, 0, overflow
	}
	if neg {
		rr = -rr
	}
	return T(qq), T(rr), nil
}

func newMulDiv(m string, div, signed bool) Constructor {
	return arity(m, 1, func(pc uint64, raw []byte, ops []Operand) (Instruction, error) {
		if _, ok := ops[0].(ImmediateOperand); ok {
			return nil, OperandError{ops[0], ErrOperandKind}
		}
		in := newInsn(pc, raw, m, ops...)
		if div {
			return sized(m, ops[0].Bits(),
				func() Instruction { return &Div[uint8]{in, signed} },
				func() Instruction { return &Div[uint16]{in, signed} },
				func() Instruction { return &Div[uint32]{in, signed} },
				func() Instruction { return &Div[uint64]{in, signed} })
		}
		return sized(m, ops[0].Bits(),
			func() Instruction { return &Mul[uint8]{in, signed} },
			func() Instruction { return &Mul[uint16]{in, signed} },
			func() Instruction { return &Mul[uint32]{in, signed} },
			func() Instruction { return &Mul[uint64]{in, signed} })
	})
}

// newImul dispatches on operand count: IMUL r/m, IMUL r, r/m and
// IMUL r, r/m, imm.
func newImul() Constructor {
	one := newMulDiv("imul", false, true)
	return func(pc uint64, raw []byte, ops []Operand) (Instruction, error) {
		var a, b int
		switch len(ops) {
		case 1:
			return one(pc, raw, ops)
		case 2:
			a, b = 0, 1
		case 3:
			a, b = 1, 2
		default:
			return nil, fmt.Errorf("imul: %w: got %d, want 1 to 3", ErrOperandCount, len(ops))
		}
		if _, ok := ops[0].(RegisterOperand); !ok {
			return nil, OperandError{ops[0], ErrOperandKind}
		}
		in := newInsn(pc, raw, "imul", ops...)
		return sized("imul", ops[0].Bits(), nil,
			func() Instruction { return &Imul[uint16]{in, a, b} },
			func() Instruction { return &Imul[uint32]{in, a, b} },
			func() Instruction { return &Imul[uint64]{in, a, b} })
	}
}

func init() {
	register(Implemented, newMulDiv("mul", false, false), "mul")
	register(Implemented, newImul(), "imul")
	register(Implemented, newMulDiv("div", true, false), "div")
	register(Implemented, newMulDiv("idiv", true, true), "idiv")
}

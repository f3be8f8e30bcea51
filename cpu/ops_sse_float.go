// ops_sse_float.go - scalar float arithmetic, unordered compare and CMPPS CMPPD CMPSS CMPSD
//
// (c) 2024-2026 Zayn Otley - GPLv3 or later

package cpu

import (
	"math"

	"github.com/intuitionamiga/amd64core/vec"
)

// ScalarFloat is ADDSS..DIVSD. The result replaces the low lane; the rest of
// the destination is kept. Arithmetic is done at the operand precision.
type ScalarFloat struct {
	insn
	bits int
	op   func(a, b float64) float64
}

func (u *ScalarFloat) Execute(s *State) (uint64, error) {
	if err := u.bind(s, 0); err != nil {
		return 0, err
	}
	if u.bits == 32 {
		a, err := u.rd[0].ReadF32(s)
		if err != nil {
			return 0, err
		}
		b, err := u.rd[1].ReadF32(s)
		if err != nil {
			return 0, err
		}
		if err := u.wr[0].WriteF32(s, float32(u.op(float64(a), float64(b)))); err != nil {
			return 0, err
		}
		return u.Next(), nil
	}
	a, err := u.rd[0].ReadF64(s)
	if err != nil {
		return 0, err
	}
	b, err := u.rd[1].ReadF64(s)
	if err != nil {
		return 0, err
	}
	if err := u.wr[0].WriteF64(s, u.op(a, b)); err != nil {
		return 0, err
	}
	return u.Next(), nil
}

// Ucomis compares the low lanes and reports through ZF PF CF:
// unordered 111, less 001, equal 100, greater 000. OF SF AF are cleared.
type Ucomis struct {
	insn
	bits int
}

func (u *Ucomis) Execute(s *State) (uint64, error) {
	if err := u.bind(s); err != nil {
		return 0, err
	}
	var a, b float64
	if u.bits == 32 {
		x, err := u.rd[0].ReadF32(s)
		if err != nil {
			return 0, err
		}
		y, err := u.rd[1].ReadF32(s)
		if err != nil {
			return 0, err
		}
		a, b = float64(x), float64(y)
	} else {
		var err error
		if a, err = u.rd[0].ReadF64(s); err != nil {
			return 0, err
		}
		if b, err = u.rd[1].ReadF64(s); err != nil {
			return 0, err
		}
	}
	compareFlags(s, a, b)
	return u.Next(), nil
}

func compareFlags(s *State, a, b float64) {
	f := Flag(s.RFLAGS()) &^ (FlagCF | FlagPF | FlagAF | FlagZF | FlagSF | FlagOF)
	switch {
	case math.IsNaN(a) || math.IsNaN(b):
		f |= FlagZF | FlagPF | FlagCF
	case a < b:
		f |= FlagCF
	case a == b:
		f |= FlagZF
	}
	s.SetRFLAGS(uint64(f))
}

// cmpPredicate evaluates the CMPxx predicate in the low three bits of p:
// EQ LT LE UNORD NEQ NLT NLE ORD. The negated predicates hold for NaN.
func cmpPredicate(a, b float64, p uint8) bool {
	unordered := math.IsNaN(a) || math.IsNaN(b)
	switch p & 7 {
	case 0:
		return a == b
	case 1:
		return a < b
	case 2:
		return a <= b
	case 3:
		return unordered
	case 4:
		return a != b
	case 5:
		return !(a < b)
	case 6:
		return !(a <= b)
	}
	return !unordered
}

// PackedCompare is CMPPS/CMPPD: every lane becomes all ones where the
// predicate holds and zero where it does not.
type PackedCompare struct {
	insn
	bits int
	pred uint8
}

func (u *PackedCompare) Execute(s *State) (uint64, error) {
	if err := u.bind(s, 0); err != nil {
		return 0, err
	}
	a, err := u.rd[0].ReadI128(s)
	if err != nil {
		return 0, err
	}
	b, err := u.rd[1].ReadI128(s)
	if err != nil {
		return 0, err
	}
	var r vec.Vector128
	if u.bits == 32 {
		for i := 0; i < 4; i++ {
			if cmpPredicate(float64(a.F32(i)), float64(b.F32(i)), u.pred) {
				r.SetU32(i, math.MaxUint32)
			}
		}
	} else {
		for i := 0; i < 2; i++ {
			if cmpPredicate(a.F64(i), b.F64(i), u.pred) {
				r.SetU64(i, math.MaxUint64)
			}
		}
	}
	if err := u.wr[0].WriteI128(s, r); err != nil {
		return 0, err
	}
	return u.Next(), nil
}

// ScalarCompare is CMPSS/CMPSD: only the low lane is compared and replaced.
type ScalarCompare struct {
	insn
	bits int
	pred uint8
}

func (u *ScalarCompare) Execute(s *State) (uint64, error) {
	if err := u.bind(s, 0); err != nil {
		return 0, err
	}
	var a, b float64
	if u.bits == 32 {
		x, err := u.rd[0].ReadF32(s)
		if err != nil {
			return 0, err
		}
		y, err := u.rd[1].ReadF32(s)
		if err != nil {
			return 0, err
		}
		a, b = float64(x), float64(y)
	} else {
		var err error
		if a, err = u.rd[0].ReadF64(s); err != nil {
			return 0, err
		}
		if b, err = u.rd[1].ReadF64(s); err != nil {
			return 0, err
		}
	}
	var mask uint64
	if cmpPredicate(a, b, u.pred) {
		mask = math.MaxUint64
	}
	if err := writeWidth(u.wr[0], s, u.bits, mask); err != nil {
		return 0, err
	}
	return u.Next(), nil
}

func newFloatCompare(m string, bits int, scalar bool) Constructor {
	return arity(m, 3, func(pc uint64, raw []byte, ops []Operand) (Instruction, error) {
		pred, err := immOperand(ops, 2)
		if err != nil {
			return nil, err
		}
		if !isXMM(ops[0]) {
			return nil, OperandError{ops[0], ErrOperandKind}
		}
		if scalar {
			return &ScalarCompare{newInsn(pc, raw, m, ops...), bits, pred & 7}, nil
		}
		return &PackedCompare{newInsn(pc, raw, m, aligned16(ops)...), bits, pred & 7}, nil
	})
}

func init() {
	arith := map[string]func(a, b float64) float64{
		"add": func(a, b float64) float64 { return a + b },
		"sub": func(a, b float64) float64 { return a - b },
		"mul": func(a, b float64) float64 { return a * b },
		"div": func(a, b float64) float64 { return a / b },
	}
	for name, op := range arith {
		for _, p := range []struct {
			suffix string
			bits   int
		}{{"ss", 32}, {"sd", 64}} {
			m, bits := name+p.suffix, p.bits
			register(Implemented, arity(m, 2, func(pc uint64, raw []byte, ops []Operand) (Instruction, error) {
				if !isXMM(ops[0]) {
					return nil, OperandError{ops[0], ErrOperandKind}
				}
				return &ScalarFloat{newInsn(pc, raw, m, ops...), bits, op}, nil
			}), m)
		}
	}

	for _, p := range []struct {
		m    string
		bits int
	}{{"ucomiss", 32}, {"ucomisd", 64}} {
		register(Implemented, arity(p.m, 2, func(pc uint64, raw []byte, ops []Operand) (Instruction, error) {
			if !isXMM(ops[0]) {
				return nil, OperandError{ops[0], ErrOperandKind}
			}
			return &Ucomis{newInsn(pc, raw, p.m, ops...), p.bits}, nil
		}), p.m)
	}

	register(Implemented, newFloatCompare("cmpps", 32, false), "cmpps")
	register(Implemented, newFloatCompare("cmppd", 64, false), "cmppd")
	register(Implemented, newFloatCompare("cmpss", 32, true), "cmpss")
	register(Implemented, withStringForm("cmpsd", newFloatCompare("cmpsd", 64, true)), "cmpsd")
}

// ops_alu.go - integer ALU group: ADD ADC SUB SBB CMP AND OR XOR TEST, INC DEC NEG NOT
//
// (c) 2024-2026 Zayn Otley - GPLv3 or later

package cpu

type aluOp uint8

const (
	aluAdd aluOp = iota
	aluAdc
	aluSub
	aluSbb
	aluCmp
	aluAnd
	aluOr
	aluXor
	aluTest
)

var aluNames = map[string]aluOp{
	"add": aluAdd, "adc": aluAdc, "sub": aluSub, "sbb": aluSbb, "cmp": aluCmp,
	"and": aluAnd, "or": aluOr, "xor": aluXor, "test": aluTest,
}

// Alu is a two-operand integer operation at width T. CMP and TEST only
// update flags.
type Alu[T Int] struct {
	insn
	op aluOp
}

func (u *Alu[T]) writesResult() bool {
	return u.op != aluCmp && u.op != aluTest
}

func (u *Alu[T]) Execute(s *State) (uint64, error) {
	var dst []int
	if u.writesResult() {
		dst = []int{0}
	}
	if err := u.bind(s, dst...); err != nil {
		return 0, err
	}
	a, err := readInt[T](u.rd[0], s)
	if err != nil {
		return 0, err
	}
	b, err := readInt[T](u.rd[1], s)
	if err != nil {
		return 0, err
	}

	saved := s.rflags
	var r T
	switch u.op {
	case aluAdd:
		r = addFlags(s, a, b, false)
	case aluAdc:
		r = addFlags(s, a, b, s.Flag(FlagCF))
	case aluSub, aluCmp:
		r = subFlags(s, a, b, false)
	case aluSbb:
		r = subFlags(s, a, b, s.Flag(FlagCF))
	case aluAnd, aluTest:
		r = a & b
		logicFlags(s, r)
	case aluOr:
		r = a | b
		logicFlags(s, r)
	case aluXor:
		r = a ^ b
		logicFlags(s, r)
	}

	if u.writesResult() {
		staged := s.stageFlags(saved)
		if err := writeInt(u.wr[0], s, r); err != nil {
			return 0, err
		}
		s.rflags = staged
	}
	return u.Next(), nil
}

func newAlu(m string) Constructor {
	op := aluNames[m]
	return arity(m, 2, func(pc uint64, raw []byte, ops []Operand) (Instruction, error) {
		in := newInsn(pc, raw, m, ops...)
		return sized(m, ops[0].Bits(),
			func() Instruction { return &Alu[uint8]{in, op} },
			func() Instruction { return &Alu[uint16]{in, op} },
			func() Instruction { return &Alu[uint32]{in, op} },
			func() Instruction { return &Alu[uint64]{in, op} })
	})
}

type unaryOp uint8

const (
	unaryInc unaryOp = iota
	unaryDec
	unaryNeg
	unaryNot
)

// Unary is INC, DEC, NEG or NOT on a single read-modify-write operand.
type Unary[T Int] struct {
	insn
	op unaryOp
}

func (u *Unary[T]) Execute(s *State) (uint64, error) {
	if err := u.bind(s, 0); err != nil {
		return 0, err
	}
	a, err := readInt[T](u.rd[0], s)
	if err != nil {
		return 0, err
	}

	saved := s.rflags
	var r T
	switch u.op {
	case unaryInc, unaryDec:
		cf := s.Flag(FlagCF)
		if u.op == unaryInc {
			r = addFlags(s, a, 1, false)
		} else {
			r = subFlags(s, a, 1, false)
		}
		s.SetFlag(FlagCF, cf)
	case unaryNeg:
		r = subFlags(s, 0, a, false)
	case unaryNot:
		r = ^a
	}

	staged := s.stageFlags(saved)
	if err := writeInt(u.wr[0], s, r); err != nil {
		return 0, err
	}
	s.rflags = staged
	return u.Next(), nil
}

func newUnary(m string, op unaryOp) Constructor {
	return arity(m, 1, func(pc uint64, raw []byte, ops []Operand) (Instruction, error) {
		in := newInsn(pc, raw, m, ops...)
		return sized(m, ops[0].Bits(),
			func() Instruction { return &Unary[uint8]{in, op} },
			func() Instruction { return &Unary[uint16]{in, op} },
			func() Instruction { return &Unary[uint32]{in, op} },
			func() Instruction { return &Unary[uint64]{in, op} })
	})
}

func init() {
	for m := range aluNames {
		register(Implemented, newAlu(m), m)
	}
	register(Implemented, newUnary("inc", unaryInc), "inc")
	register(Implemented, newUnary("dec", unaryDec), "dec")
	register(Implemented, newUnary("neg", unaryNeg), "neg")
	register(Implemented, newUnary("not", unaryNot), "not")
}

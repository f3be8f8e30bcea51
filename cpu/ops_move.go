// ops_move.go - MOV, MOVZX, MOVSX, MOVSXD, LEA, CMOVcc, SETcc
//
// (c) 2024-2026 Zayn Otley - GPLv3 or later

package cpu

// Move copies a source into a destination, optionally widening. srcBits and
// dstBits come from the operands; signed selects sign extension.
type Move struct {
	insn
	srcBits, dstBits int
	signed           bool
}

func (u *Move) Execute(s *State) (uint64, error) {
	if err := u.bind(s, 0); err != nil {
		return 0, err
	}
	v, err := readWidth(u.rd[1], s, u.srcBits)
	if err != nil {
		return 0, err
	}
	if u.signed {
		v = sextBits(v, u.srcBits)
	}
	if err := writeWidth(u.wr[0], s, u.dstBits, v); err != nil {
		return 0, err
	}
	return u.Next(), nil
}

func newMove(m string, signed, widen bool) Constructor {
	return arity(m, 2, func(pc uint64, raw []byte, ops []Operand) (Instruction, error) {
		dst, src, sx := ops[0].Bits(), ops[1].Bits(), signed
		if !widen {
			src = dst
		}
		if _, imm := ops[1].(ImmediateOperand); imm {
			// mov r/m64, imm32 sign-extends.
			src, sx = dst, true
		}
		return &Move{insn: newInsn(pc, raw, m, ops...), srcBits: src, dstBits: dst, signed: sx}, nil
	})
}

// Lea stores the effective address of its memory operand without accessing
// memory.
type Lea struct {
	insn
	mem MemoryOperand
}

func (u *Lea) Execute(s *State) (uint64, error) {
	if err := u.bind(s, 0); err != nil {
		return 0, err
	}
	ea := EffectiveAddress(s, u.mem, u.Next())
	if err := writeWidth(u.wr[0], s, u.operands[0].Bits(), ea); err != nil {
		return 0, err
	}
	return u.Next(), nil
}

// Cmov copies when the condition holds. A false 32-bit CMOV still zeroes the
// upper half of the destination, as on hardware.
type Cmov struct {
	insn
	cond Cond
	bits int
}

func (u *Cmov) Execute(s *State) (uint64, error) {
	if err := u.bind(s, 0); err != nil {
		return 0, err
	}
	src := u.rd[1]
	if !s.Test(u.cond) {
		if u.bits != 32 {
			return u.Next(), nil
		}
		src = u.rd[0]
	}
	v, err := readWidth(src, s, u.bits)
	if err != nil {
		return 0, err
	}
	if err := writeWidth(u.wr[0], s, u.bits, v); err != nil {
		return 0, err
	}
	return u.Next(), nil
}

// Setcc writes 1 or 0 to a byte operand.
type Setcc struct {
	insn
	cond Cond
}

func (u *Setcc) Execute(s *State) (uint64, error) {
	if err := u.bind(s, 0); err != nil {
		return 0, err
	}
	var v uint8
	if s.Test(u.cond) {
		v = 1
	}
	if err := u.wr[0].WriteI8(s, v); err != nil {
		return 0, err
	}
	return u.Next(), nil
}

func init() {
	register(Implemented, newMove("mov", false, false), "mov")
	register(Implemented, newMove("movzx", false, true), "movzx")
	register(Implemented, newMove("movsx", true, true), "movsx")
	register(Implemented, newMove("movsxd", true, true), "movsxd")

	register(Implemented, arity("lea", 2, func(pc uint64, raw []byte, ops []Operand) (Instruction, error) {
		m, ok := ops[1].(MemoryOperand)
		if !ok {
			return nil, OperandError{ops[1], ErrOperandKind}
		}
		return &Lea{insn: newInsn(pc, raw, "lea", ops...), mem: m}, nil
	}), "lea")

	for c := CondO; c <= CondG; c++ {
		cond := c
		cm := "cmov" + cond.String()
		register(Implemented, arity(cm, 2, func(pc uint64, raw []byte, ops []Operand) (Instruction, error) {
			return &Cmov{insn: newInsn(pc, raw, cm, ops...), cond: cond, bits: ops[0].Bits()}, nil
		}), cm)
		sm := "set" + cond.String()
		register(Implemented, arity(sm, 1, func(pc uint64, raw []byte, ops []Operand) (Instruction, error) {
			return &Setcc{insn: newInsn(pc, raw, sm, ops...), cond: cond}, nil
		}), sm)
	}
}

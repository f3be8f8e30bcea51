// ops_stack.go - PUSH, POP, PUSHF, POPF, LEAVE
//
// (c) 2024-2026 Zayn Otley - GPLv3 or later

package cpu

// Push stores a 64-bit value below RSP. Immediates are sign-extended.
// The source is read before RSP moves, so push [rsp] sees the old stack top.
type Push struct {
	insn
	bits int
}

func (u *Push) Execute(s *State) (uint64, error) {
	if err := u.bind(s); err != nil {
		return 0, err
	}
	v, err := readWidth(u.rd[0], s, u.bits)
	if err != nil {
		return 0, err
	}
	if err := s.push64(sextBits(v, u.bits)); err != nil {
		return 0, err
	}
	return u.Next(), nil
}

// Pop loads the stack top into its operand. RSP is advanced before the
// destination is written, so pop rsp leaves the loaded value in RSP.
type Pop struct {
	insn
}

func (u *Pop) Execute(s *State) (uint64, error) {
	if err := u.bind(s, 0); err != nil {
		return 0, err
	}
	v, err := s.pop64()
	if err != nil {
		return 0, err
	}
	if err := u.wr[0].WriteI64(s, v); err != nil {
		return 0, err
	}
	return u.Next(), nil
}

type Pushf struct {
	insn
}

func (u *Pushf) Execute(s *State) (uint64, error) {
	if err := s.push64(s.pushImage()); err != nil {
		return 0, err
	}
	return u.Next(), nil
}

// Popf restores the user-modifiable flags. IF and the reserved bits are kept.
type Popf struct {
	insn
}

func (u *Popf) Execute(s *State) (uint64, error) {
	v, err := s.pop64()
	if err != nil {
		return 0, err
	}
	s.popImage(v)
	return u.Next(), nil
}

// Leave tears down a frame: the saved RBP is loaded from [RBP], RSP becomes
// RBP+8. Nothing changes if the load faults.
type Leave struct {
	insn
}

func newLeave(pc uint64, raw []byte) Instruction {
	u := &Leave{insn: newInsn(pc, raw, "leave")}
	u.implicit = []Operand{Reg(RBP), Reg(RSP), Mem(RBP, 0, 64)}
	return u
}

func (u *Leave) Execute(s *State) (uint64, error) {
	if err := u.bind(s, 0, 1); err != nil {
		return 0, err
	}
	frame, err := u.rd[0].ReadI64(s)
	if err != nil {
		return 0, err
	}
	saved, err := u.rd[2].ReadI64(s)
	if err != nil {
		return 0, err
	}
	if err := u.wr[1].WriteI64(s, frame+8); err != nil {
		return 0, err
	}
	if err := u.wr[0].WriteI64(s, saved); err != nil {
		return 0, err
	}
	return u.Next(), nil
}

func init() {
	register(Implemented, arity("push", 1, func(pc uint64, raw []byte, ops []Operand) (Instruction, error) {
		bits := ops[0].Bits()
		if bits != 64 {
			if _, imm := ops[0].(ImmediateOperand); !imm {
				return nil, OperandError{ops[0], ErrOperandKind}
			}
		}
		return &Push{insn: newInsn(pc, raw, "push", ops...), bits: bits}, nil
	}), "push")
	register(Implemented, arity("pop", 1, func(pc uint64, raw []byte, ops []Operand) (Instruction, error) {
		if ops[0].Bits() != 64 {
			return nil, OperandError{ops[0], ErrOperandKind}
		}
		return &Pop{insn: newInsn(pc, raw, "pop", ops...)}, nil
	}), "pop")
	register(Implemented, nullary("pushfq", func(pc uint64, raw []byte) Instruction {
		return &Pushf{insn: newInsn(pc, raw, "pushfq")}
	}), "pushf", "pushfq")
	register(Implemented, nullary("popfq", func(pc uint64, raw []byte) Instruction {
		return &Popf{insn: newInsn(pc, raw, "popfq")}
	}), "popf", "popfq")
	register(Implemented, nullary("leave", newLeave), "leave")
}

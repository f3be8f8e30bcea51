// ops_flow.go - control transfer: JMP, Jcc, JRCXZ, CALL, RET
//
// (c) 2024-2026 Zayn Otley - GPLv3 or later

package cpu

// branch is embedded by every control-flow unit. A direct branch carries its
// absolute target as an immediate operand.
type branch struct {
	insn
	direct bool
	target uint64
}

func newBranch(pc uint64, raw []byte, m string, ops []Operand) branch {
	b := branch{insn: newInsn(pc, raw, m, ops...)}
	if len(ops) == 1 {
		if imm, ok := ops[0].(ImmediateOperand); ok {
			b.direct, b.target = true, uint64(imm.Value)
		}
	}
	return b
}

func (b *branch) IsControlFlow() bool { return true }

func (b *branch) BranchTargets() []uint64 {
	if !b.direct {
		return nil
	}
	return []uint64{b.target}
}

// destination is the static target or the 64-bit value of the operand.
func (b *branch) destination(s *State) (uint64, error) {
	if b.direct {
		return b.target, nil
	}
	if err := b.bind(s); err != nil {
		return 0, err
	}
	return b.rd[0].ReadI64(s)
}

type Jmp struct {
	branch
}

func (u *Jmp) Execute(s *State) (uint64, error) {
	return u.destination(s)
}

// Jcc falls through to Next() when the condition fails. Both the taken and
// the fall-through address are static targets.
type Jcc struct {
	branch
	cond Cond
}

func (u *Jcc) BranchTargets() []uint64 {
	return []uint64{u.target, u.Next()}
}

func (u *Jcc) Execute(s *State) (uint64, error) {
	if !s.Test(u.cond) {
		return u.Next(), nil
	}
	return u.target, nil
}

// Jrcxz branches when the count register is zero.
type Jrcxz struct {
	branch
	count Register
}

func (u *Jrcxz) BranchTargets() []uint64 {
	return []uint64{u.target, u.Next()}
}

func (u *Jrcxz) Execute(s *State) (uint64, error) {
	if s.Get(u.count) != 0 {
		return u.Next(), nil
	}
	return u.target, nil
}

// Call pushes Next() and transfers to the target. The target is read before
// the push so call [rsp] uses the old stack top.
type Call struct {
	branch
}

func (u *Call) Execute(s *State) (uint64, error) {
	dst, err := u.destination(s)
	if err != nil {
		return 0, err
	}
	if err := s.push64(u.Next()); err != nil {
		return 0, err
	}
	return dst, nil
}

// Ret pops the return address, then releases imm16 further bytes of
// arguments. A faulting pop leaves RSP unchanged.
type Ret struct {
	insn
	release uint64
}

func (u *Ret) IsControlFlow() bool { return true }

func (u *Ret) Execute(s *State) (uint64, error) {
	target, err := s.pop64()
	if err != nil {
		return 0, err
	}
	if u.release != 0 {
		s.Set(RSP, s.Get(RSP)+u.release)
	}
	return target, nil
}

func directOnly(m string, build func(b branch) Instruction) Constructor {
	return arity(m, 1, func(pc uint64, raw []byte, ops []Operand) (Instruction, error) {
		b := newBranch(pc, raw, m, ops)
		if !b.direct {
			return nil, OperandError{ops[0], ErrOperandKind}
		}
		return build(b), nil
	})
}

func init() {
	register(Implemented, arity("jmp", 1, func(pc uint64, raw []byte, ops []Operand) (Instruction, error) {
		return &Jmp{newBranch(pc, raw, "jmp", ops)}, nil
	}), "jmp")
	register(Implemented, arity("call", 1, func(pc uint64, raw []byte, ops []Operand) (Instruction, error) {
		return &Call{newBranch(pc, raw, "call", ops)}, nil
	}), "call")

	for c := CondO; c <= CondG; c++ {
		cond := c
		m := "j" + cond.String()
		register(Implemented, directOnly(m, func(b branch) Instruction {
			return &Jcc{b, cond}
		}), m)
	}
	register(Implemented, directOnly("jrcxz", func(b branch) Instruction {
		return &Jrcxz{b, RCX}
	}), "jrcxz")
	register(Implemented, directOnly("jecxz", func(b branch) Instruction {
		return &Jrcxz{b, ECX}
	}), "jecxz")

	register(Implemented, func(pc uint64, raw []byte, ops []Operand) (Instruction, error) {
		u := &Ret{insn: newInsn(pc, raw, "ret", ops...)}
		switch len(ops) {
		case 0:
		case 1:
			imm, ok := ops[0].(ImmediateOperand)
			if !ok {
				return nil, OperandError{ops[0], ErrOperandKind}
			}
			u.release = uint64(uint16(imm.Value))
		default:
			return nil, checkOperands("ret", ops, 1)
		}
		return u, nil
	}, "ret")
}

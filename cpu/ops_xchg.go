// ops_xchg.go - XCHG CMPXCHG XADD
//
// A LOCK prefix changes nothing here: a State has one thread of execution, so
// every read-modify-write below is already atomic with respect to it.
//
// (c) 2024-2026 Zayn Otley - GPLv3 or later

package cpu

// Xchg swaps two operands. A memory operand is stored first so a faulting
// store leaves the register unchanged.
type Xchg[T Int] struct {
	insn
}

func (u *Xchg[T]) Execute(s *State) (uint64, error) {
	if err := u.bind(s, 0, 1); err != nil {
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
	first, second := 0, 1
	if isMem(u.operands[1]) {
		first, second = 1, 0
	}
	vals := [2]T{b, a}
	if err := writeInt(u.wr[first], s, vals[first]); err != nil {
		return 0, err
	}
	if err := writeInt(u.wr[second], s, vals[second]); err != nil {
		return 0, err
	}
	return u.Next(), nil
}

// Cmpxchg compares the accumulator with the destination and sets the flags
// as CMP does. Equal: the source is stored to the destination. Not equal: the
// destination is loaded into the accumulator, and a memory destination is
// written back with its own value.
type Cmpxchg[T Int] struct {
	insn
}

func (u *Cmpxchg[T]) Execute(s *State) (uint64, error) {
	if err := u.bind(s, 0, 2); err != nil {
		return 0, err
	}
	d, err := readInt[T](u.rd[0], s)
	if err != nil {
		return 0, err
	}
	src, err := readInt[T](u.rd[1], s)
	if err != nil {
		return 0, err
	}
	acc, err := readInt[T](u.rd[2], s)
	if err != nil {
		return 0, err
	}

	saved := s.rflags
	subFlags(s, acc, d, false)
	staged := s.stageFlags(saved)

	if acc == d {
		err = writeInt(u.wr[0], s, src)
	} else {
		if isMem(u.operands[0]) {
			if err := writeInt(u.wr[0], s, d); err != nil {
				return 0, err
			}
		}
		err = writeInt(u.wr[2], s, d)
	}
	if err != nil {
		return 0, err
	}
	s.rflags = staged
	return u.Next(), nil
}

// Xadd stores dst+src to the destination and the old destination to the
// source, with the flags of ADD. When both are the same register the sum
// wins.
type Xadd[T Int] struct {
	insn
}

func (u *Xadd[T]) Execute(s *State) (uint64, error) {
	if err := u.bind(s, 0, 1); err != nil {
		return 0, err
	}
	d, err := readInt[T](u.rd[0], s)
	if err != nil {
		return 0, err
	}
	src, err := readInt[T](u.rd[1], s)
	if err != nil {
		return 0, err
	}

	saved := s.rflags
	sum := addFlags(s, d, src, false)
	staged := s.stageFlags(saved)

	if isMem(u.operands[0]) {
		if err := writeInt(u.wr[0], s, sum); err != nil {
			return 0, err
		}
		if err := writeInt(u.wr[1], s, d); err != nil {
			return 0, err
		}
	} else {
		if err := writeInt(u.wr[1], s, d); err != nil {
			return 0, err
		}
		if err := writeInt(u.wr[0], s, sum); err != nil {
			return 0, err
		}
	}
	s.rflags = staged
	return u.Next(), nil
}

func newExchange(m string) Constructor {
	return arity(m, 2, func(pc uint64, raw []byte, ops []Operand) (Instruction, error) {
		for _, op := range ops {
			if _, ok := op.(ImmediateOperand); ok {
				return nil, OperandError{op, ErrOperandKind}
			}
		}
		in := newInsn(pc, raw, m, ops...)
		bits := ops[0].Bits()
		switch m {
		case "cmpxchg":
			in.implicit = []Operand{Reg(RAX.Sized(bits))}
			return sized(m, bits,
				func() Instruction { return &Cmpxchg[uint8]{in} },
				func() Instruction { return &Cmpxchg[uint16]{in} },
				func() Instruction { return &Cmpxchg[uint32]{in} },
				func() Instruction { return &Cmpxchg[uint64]{in} })
		case "xadd":
			return sized(m, bits,
				func() Instruction { return &Xadd[uint8]{in} },
				func() Instruction { return &Xadd[uint16]{in} },
				func() Instruction { return &Xadd[uint32]{in} },
				func() Instruction { return &Xadd[uint64]{in} })
		}
		return sized(m, bits,
			func() Instruction { return &Xchg[uint8]{in} },
			func() Instruction { return &Xchg[uint16]{in} },
			func() Instruction { return &Xchg[uint32]{in} },
			func() Instruction { return &Xchg[uint64]{in} })
	})
}

func init() {
	for _, m := range []string{"xchg", "cmpxchg", "xadd"} {
		register(Implemented, newExchange(m), m)
	}
}

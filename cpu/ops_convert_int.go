// ops_convert_int.go - accumulator sign extension (CBW family, CWD family)
//
// (c) 2024-2026 Zayn Otley - GPLv3 or later

package cpu

// SignSplit is CWD, CDQ and CQO: the data register becomes all ones when the
// accumulator is negative and zero otherwise. The accumulator is only read.
type SignSplit[T Int] struct {
	insn
}

func newSignSplit[T Int](pc uint64, raw []byte, mnemonic string, acc, data Register) *SignSplit[T] {
	u := &SignSplit[T]{insn: newInsn(pc, raw, mnemonic)}
	u.implicit = []Operand{Reg(acc), Reg(data)}
	return u
}

func (u *SignSplit[T]) Execute(s *State) (uint64, error) {
	if err := u.bind(s, 1); err != nil {
		return 0, err
	}
	v, err := readInt[T](u.rd[0], s)
	if err != nil {
		return 0, err
	}
	var r T
	if isNeg(v) {
		r = ^T(0)
	}
	if err := writeInt(u.wr[1], s, r); err != nil {
		return 0, err
	}
	return u.Next(), nil
}

// SignWiden is CBW, CWDE and CDQE: the accumulator is sign-extended in place
// to twice its width.
type SignWiden struct {
	insn
	from, to int
}

func newSignWiden(pc uint64, raw []byte, mnemonic string, src, dst Register) *SignWiden {
	u := &SignWiden{insn: newInsn(pc, raw, mnemonic), from: src.Width(), to: dst.Width()}
	u.implicit = []Operand{Reg(src), Reg(dst)}
	return u
}

func (u *SignWiden) Execute(s *State) (uint64, error) {
	if err := u.bind(s, 1); err != nil {
		return 0, err
	}
	v, err := readWidth(u.rd[0], s, u.from)
	if err != nil {
		return 0, err
	}
	if err := writeWidth(u.wr[1], s, u.to, sextBits(v, u.from)); err != nil {
		return 0, err
	}
	return u.Next(), nil
}

// sextBits sign-extends the low bits of v to 64 bits.
func sextBits(v uint64, bits int) uint64 {
	if bits >= 64 {
		return v
	}
	shift := 64 - bits
	return uint64(int64(v<<shift) >> shift)
}

func init() {
	register(Implemented, nullary("cwd", func(pc uint64, raw []byte) Instruction {
		return newSignSplit[uint16](pc, raw, "cwd", AX, DX)
	}), "cwd")
	register(Implemented, nullary("cdq", func(pc uint64, raw []byte) Instruction {
		return newSignSplit[uint32](pc, raw, "cdq", EAX, EDX)
	}), "cdq")
	register(Implemented, nullary("cqo", func(pc uint64, raw []byte) Instruction {
		return newSignSplit[uint64](pc, raw, "cqo", RAX, RDX)
	}), "cqo")
	register(Implemented, nullary("cbw", func(pc uint64, raw []byte) Instruction {
		return newSignWiden(pc, raw, "cbw", AL, AX)
	}), "cbw")
	register(Implemented, nullary("cwde", func(pc uint64, raw []byte) Instruction {
		return newSignWiden(pc, raw, "cwde", AX, EAX)
	}), "cwde")
	register(Implemented, nullary("cdqe", func(pc uint64, raw []byte) Instruction {
		return newSignWiden(pc, raw, "cdqe", EAX, RAX)
	}), "cdqe")
}

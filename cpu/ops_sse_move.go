// ops_sse_move.go - XMM data movement: MOVD MOVQ MOVDQA MOVDQU MOVAPS MOVUPS MOVAPD MOVUPD MOVSS MOVSD
// and the half moves MOVHPS MOVHPD MOVLPS MOVLPD MOVHLPS MOVLHPS
//
// (c) 2024-2026 Zayn Otley - GPLv3 or later

package cpu

import "github.com/intuitionamiga/amd64core/vec"

// Move128 copies a full 128-bit value. The aligned forms (MOVDQA MOVAPS
// MOVAPD) fault on a memory operand that is not 16-byte aligned; the
// unaligned forms accept any address.
type Move128 struct {
	insn
}

func (u *Move128) Execute(s *State) (uint64, error) {
	if err := u.bind(s, 0); err != nil {
		return 0, err
	}
	v, err := u.rd[1].ReadI128(s)
	if err != nil {
		return 0, err
	}
	if err := u.wr[0].WriteI128(s, v); err != nil {
		return 0, err
	}
	return u.Next(), nil
}

// MoveToXMM loads a 32- or 64-bit value into the low lane of an XMM register
// and zeroes the rest (MOVD/MOVQ xmm, r/m and MOVQ xmm, xmm/m64).
type MoveToXMM struct {
	insn
	bits int
}

func (u *MoveToXMM) Execute(s *State) (uint64, error) {
	if err := u.bind(s, 0); err != nil {
		return 0, err
	}
	v, err := readWidth(u.rd[1], s, u.bits)
	if err != nil {
		return 0, err
	}
	if err := u.wr[0].WriteI128(s, vec.FromU64s(v, 0)); err != nil {
		return 0, err
	}
	return u.Next(), nil
}

// MoveFromXMM stores the low 32 or 64 bits of an XMM register into a general
// register or memory (MOVD/MOVQ r/m, xmm).
type MoveFromXMM struct {
	insn
	bits int
}

func (u *MoveFromXMM) Execute(s *State) (uint64, error) {
	if err := u.bind(s, 0); err != nil {
		return 0, err
	}
	v, err := readWidth(u.rd[1], s, u.bits)
	if err != nil {
		return 0, err
	}
	if err := writeWidth(u.wr[0], s, u.bits, v); err != nil {
		return 0, err
	}
	return u.Next(), nil
}

// MoveScalar is MOVSS/MOVSD. Register to register merges the low lane into
// the destination; a load from memory zeroes the upper lanes; a store writes
// only the lane.
type MoveScalar struct {
	insn
	bits int
	load bool
}

func (u *MoveScalar) Execute(s *State) (uint64, error) {
	if err := u.bind(s, 0); err != nil {
		return 0, err
	}
	v, err := readWidth(u.rd[1], s, u.bits)
	if err != nil {
		return 0, err
	}
	if u.load {
		err = u.wr[0].WriteI128(s, vec.FromU64s(v, 0))
	} else {
		err = writeWidth(u.wr[0], s, u.bits, v)
	}
	if err != nil {
		return 0, err
	}
	return u.Next(), nil
}

// MoveHalf moves one quadword between halves. Loading into an XMM register
// replaces the half chosen by dstHi and keeps the other; a store to m64 takes
// the half chosen by srcHi.
type MoveHalf struct {
	insn
	dstHi, srcHi bool
}

func (u *MoveHalf) Execute(s *State) (uint64, error) {
	if err := u.bind(s, 0); err != nil {
		return 0, err
	}
	var q uint64
	if isXMM(u.operands[1]) {
		v, err := u.rd[1].ReadI128(s)
		if err != nil {
			return 0, err
		}
		q = v.Lo()
		if u.srcHi {
			q = v.Hi()
		}
	} else {
		var err error
		if q, err = u.rd[1].ReadI64(s); err != nil {
			return 0, err
		}
	}
	if !isXMM(u.operands[0]) {
		if err := u.wr[0].WriteI64(s, q); err != nil {
			return 0, err
		}
		return u.Next(), nil
	}
	d, err := u.rd[0].ReadI128(s)
	if err != nil {
		return 0, err
	}
	if u.dstHi {
		d.SetU64(1, q)
	} else {
		d.SetU64(0, q)
	}
	if err := u.wr[0].WriteI128(s, d); err != nil {
		return 0, err
	}
	return u.Next(), nil
}

// newMoveHalf builds the half moves. MOVHPS-style loads and stores need one
// memory operand; MOVHLPS and MOVLHPS are register to register.
func newMoveHalf(m string, high, regs bool) Constructor {
	return arity(m, 2, func(pc uint64, raw []byte, ops []Operand) (Instruction, error) {
		in := newInsn(pc, raw, m, ops...)
		if regs {
			if !isXMM(ops[0]) || !isXMM(ops[1]) {
				return nil, OperandError{ops[1], ErrOperandKind}
			}
			// movlhps: dst.hi = src.lo; movhlps: dst.lo = src.hi
			return &MoveHalf{in, high, !high}, nil
		}
		switch {
		case isXMM(ops[0]) && isMem(ops[1]):
			return &MoveHalf{in, high, false}, nil
		case isMem(ops[0]) && isXMM(ops[1]):
			return &MoveHalf{in, false, high}, nil
		}
		return nil, OperandError{ops[1], ErrOperandKind}
	})
}

// aligned16 marks every 128-bit memory operand in ops as requiring 16-byte
// alignment, as the legacy SSE encodings do for m128 operands.
func aligned16(ops []Operand) []Operand {
	out := make([]Operand, len(ops))
	for i, op := range ops {
		if m, ok := op.(MemoryOperand); ok && m.Width == 128 {
			op = m.Aligned(16)
		}
		out[i] = op
	}
	return out
}

func isXMM(op Operand) bool {
	_, ok := op.(VectorOperand)
	return ok
}

func isMem(op Operand) bool {
	_, ok := op.(MemoryOperand)
	return ok
}

// newMoveGX builds MOVD (bits 32) and MOVQ (bits 64) in either direction.
func newMoveGX(m string, bits int) Constructor {
	return arity(m, 2, func(pc uint64, raw []byte, ops []Operand) (Instruction, error) {
		in := newInsn(pc, raw, m, ops...)
		switch {
		case isXMM(ops[0]):
			return &MoveToXMM{in, bits}, nil
		case isXMM(ops[1]):
			return &MoveFromXMM{in, bits}, nil
		}
		return nil, OperandError{ops[0], ErrOperandKind}
	})
}

func init() {
	for _, m := range []string{"movdqa", "movaps", "movapd"} {
		register(Implemented, arity(m, 2, func(pc uint64, raw []byte, ops []Operand) (Instruction, error) {
			return &Move128{newInsn(pc, raw, m, aligned16(ops)...)}, nil
		}), m)
	}
	for _, m := range []string{"movdqu", "movups", "movupd", "lddqu"} {
		register(Implemented, arity(m, 2, func(pc uint64, raw []byte, ops []Operand) (Instruction, error) {
			return &Move128{newInsn(pc, raw, m, ops...)}, nil
		}), m)
	}
	register(Implemented, newMoveGX("movd", 32), "movd")
	register(Implemented, newMoveGX("movq", 64), "movq")

	for _, f := range []struct {
		m    string
		bits int
	}{{"movss", 32}, {"movsd", 64}} {
		build := arity(f.m, 2, func(pc uint64, raw []byte, ops []Operand) (Instruction, error) {
			if !isXMM(ops[0]) && !isXMM(ops[1]) {
				return nil, OperandError{ops[1], ErrOperandKind}
			}
			return &MoveScalar{newInsn(pc, raw, f.m, ops...), f.bits, isMem(ops[1])}, nil
		})
		if f.m == "movsd" {
			build = withStringForm(f.m, build)
		}
		register(Implemented, build, f.m)
	}

	for _, m := range []string{"movhps", "movhpd"} {
		register(Implemented, newMoveHalf(m, true, false), m)
	}
	for _, m := range []string{"movlps", "movlpd"} {
		register(Implemented, newMoveHalf(m, false, false), m)
	}
	register(Implemented, newMoveHalf("movlhps", true, true), "movlhps")
	register(Implemented, newMoveHalf("movhlps", false, true), "movhlps")
}

// ops_sse_shuffle.go - PSHUFD PSHUFHW PSHUFLW SHUFPS SHUFPD PSLLDQ PSRLDQ PEXTRW PINSRW
//
// (c) 2024-2026 Zayn Otley - GPLv3 or later

package cpu

import "github.com/intuitionamiga/amd64core/vec"

// Shuffle is dst = fn(src, imm8) for the immediate-controlled permutes.
type Shuffle struct {
	insn
	imm uint8
	fn  func(src vec.Vector128, imm uint8) vec.Vector128
}

func (u *Shuffle) Execute(s *State) (uint64, error) {
	if err := u.bind(s, 0); err != nil {
		return 0, err
	}
	v, err := u.rd[1].ReadI128(s)
	if err != nil {
		return 0, err
	}
	if err := u.wr[0].WriteI128(s, u.fn(v, u.imm)); err != nil {
		return 0, err
	}
	return u.Next(), nil
}

// pshufd: dst dword i = src dword (imm >> 2i) & 3.
func pshufd(src vec.Vector128, imm uint8) vec.Vector128 {
	var r vec.Vector128
	for i := 0; i < 4; i++ {
		r.SetU32(i, src.U32(int(imm>>(2*i))&3))
	}
	return r
}

// pshufhw permutes words 4..7 and copies the low quadword.
func pshufhw(src vec.Vector128, imm uint8) vec.Vector128 {
	r := src
	for i := 0; i < 4; i++ {
		r.SetU16(4+i, src.U16(4+int(imm>>(2*i))&3))
	}
	return r
}

// pshuflw permutes words 0..3 and copies the high quadword.
func pshuflw(src vec.Vector128, imm uint8) vec.Vector128 {
	r := src
	for i := 0; i < 4; i++ {
		r.SetU16(i, src.U16(int(imm>>(2*i))&3))
	}
	return r
}

// ShuffleTwo is SHUFPS/SHUFPD: the low half of the result is picked from the
// destination and the high half from the source, under the control byte.
type ShuffleTwo struct {
	insn
	imm uint8
	fn  func(dst, src vec.Vector128, imm uint8) vec.Vector128
}

func (u *ShuffleTwo) Execute(s *State) (uint64, error) {
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
	if err := u.wr[0].WriteI128(s, u.fn(a, b, u.imm)); err != nil {
		return 0, err
	}
	return u.Next(), nil
}

func shufps(dst, src vec.Vector128, imm uint8) vec.Vector128 {
	var r vec.Vector128
	r.SetU32(0, dst.U32(int(imm)&3))
	r.SetU32(1, dst.U32(int(imm>>2)&3))
	r.SetU32(2, src.U32(int(imm>>4)&3))
	r.SetU32(3, src.U32(int(imm>>6)&3))
	return r
}

func shufpd(dst, src vec.Vector128, imm uint8) vec.Vector128 {
	return vec.FromU64s(dst.U64(int(imm)&1), src.U64(int(imm>>1)&1))
}

// ByteShift is PSLLDQ/PSRLDQ. Counts above 15 clear the register.
type ByteShift struct {
	insn
	count uint
	left  bool
}

func (u *ByteShift) Execute(s *State) (uint64, error) {
	if err := u.bind(s, 0); err != nil {
		return 0, err
	}
	v, err := u.rd[0].ReadI128(s)
	if err != nil {
		return 0, err
	}
	if u.left {
		v = v.ShiftBytesLeft(u.count)
	} else {
		v = v.ShiftBytesRight(u.count)
	}
	if err := u.wr[0].WriteI128(s, v); err != nil {
		return 0, err
	}
	return u.Next(), nil
}

// Pextrw copies word imm&7 of an XMM register, zero-extended into a general
// register or stored as 16 bits to memory.
type Pextrw struct {
	insn
	sel int
}

func (u *Pextrw) Execute(s *State) (uint64, error) {
	if err := u.bind(s, 0); err != nil {
		return 0, err
	}
	v, err := u.rd[1].ReadI128(s)
	if err != nil {
		return 0, err
	}
	w := v.U16(u.sel)
	if isMem(u.operands[0]) {
		err = u.wr[0].WriteI16(s, w)
	} else {
		err = u.wr[0].WriteI32(s, uint32(w))
	}
	if err != nil {
		return 0, err
	}
	return u.Next(), nil
}

// Pinsrw replaces word imm&7 of an XMM register with the low 16 bits of the
// source. The other words are kept.
type Pinsrw struct {
	insn
	sel int
}

func (u *Pinsrw) Execute(s *State) (uint64, error) {
	if err := u.bind(s, 0); err != nil {
		return 0, err
	}
	v, err := u.rd[0].ReadI128(s)
	if err != nil {
		return 0, err
	}
	w, err := u.rd[1].ReadI16(s)
	if err != nil {
		return 0, err
	}
	v.SetU16(u.sel, w)
	if err := u.wr[0].WriteI128(s, v); err != nil {
		return 0, err
	}
	return u.Next(), nil
}

// immOperand returns the control byte at ops[k].
func immOperand(ops []Operand, k int) (uint8, error) {
	imm, ok := ops[k].(ImmediateOperand)
	if !ok {
		return 0, OperandError{ops[k], ErrOperandKind}
	}
	return uint8(imm.Value), nil
}

func init() {
	for _, f := range []struct {
		m  string
		fn func(vec.Vector128, uint8) vec.Vector128
	}{{"pshufd", pshufd}, {"pshufhw", pshufhw}, {"pshuflw", pshuflw}} {
		register(Implemented, arity(f.m, 3, func(pc uint64, raw []byte, ops []Operand) (Instruction, error) {
			imm, err := immOperand(ops, 2)
			if err != nil {
				return nil, err
			}
			if !isXMM(ops[0]) {
				return nil, OperandError{ops[0], ErrOperandKind}
			}
			return &Shuffle{newInsn(pc, raw, f.m, aligned16(ops)...), imm, f.fn}, nil
		}), f.m)
	}

	for _, f := range []struct {
		m  string
		fn func(vec.Vector128, vec.Vector128, uint8) vec.Vector128
	}{{"shufps", shufps}, {"shufpd", shufpd}} {
		register(Implemented, arity(f.m, 3, func(pc uint64, raw []byte, ops []Operand) (Instruction, error) {
			imm, err := immOperand(ops, 2)
			if err != nil {
				return nil, err
			}
			if !isXMM(ops[0]) {
				return nil, OperandError{ops[0], ErrOperandKind}
			}
			return &ShuffleTwo{newInsn(pc, raw, f.m, aligned16(ops)...), imm, f.fn}, nil
		}), f.m)
	}

	for _, f := range []struct {
		m    string
		left bool
	}{{"pslldq", true}, {"psrldq", false}} {
		register(Implemented, arity(f.m, 2, func(pc uint64, raw []byte, ops []Operand) (Instruction, error) {
			imm, err := immOperand(ops, 1)
			if err != nil {
				return nil, err
			}
			if !isXMM(ops[0]) {
				return nil, OperandError{ops[0], ErrOperandKind}
			}
			return &ByteShift{newInsn(pc, raw, f.m, ops...), uint(imm), f.left}, nil
		}), f.m)
	}

	register(Implemented, arity("pextrw", 3, func(pc uint64, raw []byte, ops []Operand) (Instruction, error) {
		imm, err := immOperand(ops, 2)
		if err != nil {
			return nil, err
		}
		if !isXMM(ops[1]) {
			return nil, OperandError{ops[1], ErrOperandKind}
		}
		return &Pextrw{newInsn(pc, raw, "pextrw", ops...), int(imm & 7)}, nil
	}), "pextrw")

	register(Implemented, arity("pinsrw", 3, func(pc uint64, raw []byte, ops []Operand) (Instruction, error) {
		imm, err := immOperand(ops, 2)
		if err != nil {
			return nil, err
		}
		if !isXMM(ops[0]) {
			return nil, OperandError{ops[0], ErrOperandKind}
		}
		return &Pinsrw{newInsn(pc, raw, "pinsrw", ops...), int(imm & 7)}, nil
	}), "pinsrw")
}

// ops_sse_logic.go - 128-bit bitwise operations
//
// (c) 2024-2026 Zayn Otley - GPLv3 or later

package cpu

import "github.com/intuitionamiga/amd64core/vec"

// Packed is a two-operand 128-bit operation dst = fn(dst, src). The bitwise,
// lane arithmetic, compare, unpack and pack families are all Packed with a
// different fn.
type Packed struct {
	insn
	fn func(dst, src vec.Vector128) vec.Vector128
}

func (u *Packed) Execute(s *State) (uint64, error) {
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
	if err := u.wr[0].WriteI128(s, u.fn(a, b)); err != nil {
		return 0, err
	}
	return u.Next(), nil
}

func registerPacked(m string, fn func(dst, src vec.Vector128) vec.Vector128) {
	register(Implemented, arity(m, 2, func(pc uint64, raw []byte, ops []Operand) (Instruction, error) {
		if !isXMM(ops[0]) {
			return nil, OperandError{ops[0], ErrOperandKind}
		}
		return &Packed{newInsn(pc, raw, m, aligned16(ops)...), fn}, nil
	}), m)
}

func init() {
	and := vec.Vector128.And
	or := vec.Vector128.Or
	xor := vec.Vector128.Xor
	andn := vec.Vector128.AndNot

	// The ps/pd/integer spellings differ only in the execution domain on
	// hardware; the bits are the same.
	for _, m := range []string{"andps", "andpd", "pand"} {
		registerPacked(m, and)
	}
	for _, m := range []string{"orps", "orpd", "por"} {
		registerPacked(m, or)
	}
	for _, m := range []string{"xorps", "xorpd", "pxor"} {
		registerPacked(m, xor)
	}
	for _, m := range []string{"andnps", "andnpd", "pandn"} {
		registerPacked(m, andn)
	}
}

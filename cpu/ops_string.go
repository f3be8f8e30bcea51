// ops_string.go - string instructions MOVS STOS LODS SCAS CMPS and their REP forms
//
// (c) 2024-2026 Zayn Otley - GPLv3 or later

package cpu

import (
	"fmt"
	"strings"
)

type stringOp uint8

const (
	strMovs stringOp = iota
	strStos
	strLods
	strScas
	strCmps
)

var stringBases = map[string]stringOp{
	"movs": strMovs, "stos": strStos, "lods": strLods, "scas": strScas, "cmps": strCmps,
}

type repeat uint8

const (
	repNone repeat = iota
	repCount
	repWhileEqual
	repWhileNotEqual
)

var repeatPrefixes = map[string]repeat{
	"rep": repCount, "repe": repWhileEqual, "repne": repWhileNotEqual,
}

// StringOp is one element of a string instruction at width T: RSI is the
// source, RDI the destination, and both step by the element size, downwards
// when DF is set. SCAS and CMPS set flags as CMP does.
//
// A repeated form does nothing while RCX is zero. Otherwise it processes one
// element, decrements RCX and returns its own address until RCX reaches zero
// or, for REPE and REPNE, ZF ends the scan. Each element is therefore one
// step for the driver, and a fault leaves RSI RDI and RCX pointing at the
// element that faulted.
type StringOp[T Int] struct {
	insn
	op  stringOp
	rep repeat
}

func (u *StringOp[T]) Execute(s *State) (uint64, error) {
	if u.rep != repNone && s.gpr[RCX] == 0 {
		return u.Next(), nil
	}
	n := bitsOf[T]()
	step := uint64(n / 8)
	if s.Flag(FlagDF) {
		step = -step
	}
	acc := RAX.Sized(n)
	si, di := s.gpr[RSI], s.gpr[RDI]

	switch u.op {
	case strMovs:
		v, err := readAt[T](s, si)
		if err != nil {
			return 0, err
		}
		if err := writeAt(s, di, v); err != nil {
			return 0, err
		}
		s.gpr[RSI], s.gpr[RDI] = si+step, di+step
	case strStos:
		if err := writeAt(s, di, T(s.Get(acc))); err != nil {
			return 0, err
		}
		s.gpr[RDI] = di + step
	case strLods:
		v, err := readAt[T](s, si)
		if err != nil {
			return 0, err
		}
		s.Set(acc, uint64(v))
		s.gpr[RSI] = si + step
	case strScas:
		v, err := readAt[T](s, di)
		if err != nil {
			return 0, err
		}
		subFlags(s, T(s.Get(acc)), v, false)
		s.gpr[RDI] = di + step
	case strCmps:
		a, err := readAt[T](s, si)
		if err != nil {
			return 0, err
		}
		b, err := readAt[T](s, di)
		if err != nil {
			return 0, err
		}
		subFlags(s, a, b, false)
		s.gpr[RSI], s.gpr[RDI] = si+step, di+step
	}

	if u.rep == repNone {
		return u.Next(), nil
	}
	s.gpr[RCX]--
	switch {
	case s.gpr[RCX] == 0:
		return u.Next(), nil
	case u.rep == repWhileEqual && !s.Flag(FlagZF):
		return u.Next(), nil
	case u.rep == repWhileNotEqual && s.Flag(FlagZF):
		return u.Next(), nil
	}
	return u.PC(), nil
}

// newString builds a string instruction from its full mnemonic, such as
// "stosb" or "repne scasq".
func newString(m string) Constructor {
	rep := repNone
	base := m
	if prefix, rest, ok := strings.Cut(m, " "); ok {
		rep, base = repeatPrefixes[prefix], rest
	}
	op := stringBases[base[:4]]
	// REPE and REPNE repeat MOVS STOS LODS unconditionally.
	if rep != repNone && op != strScas && op != strCmps {
		rep = repCount
	}
	return nullary(m, func(pc uint64, raw []byte) Instruction {
		in := newInsn(pc, raw, m)
		switch base[4] {
		case 'b':
			return &StringOp[uint8]{in, op, rep}
		case 'w':
			return &StringOp[uint16]{in, op, rep}
		case 'd':
			return &StringOp[uint32]{in, op, rep}
		}
		return &StringOp[uint64]{in, op, rep}
	})
}

// withStringForm shares a mnemonic between an SSE instruction and the string
// instruction of the same spelling (MOVSD, CMPSD). The string form is the one
// without operands.
func withStringForm(m string, sse Constructor) Constructor {
	str := newString(m)
	return func(pc uint64, raw []byte, ops []Operand) (Instruction, error) {
		if len(ops) == 0 {
			return str(pc, raw, ops)
		}
		return sse(pc, raw, ops)
	}
}

// stringMnemonics lists every plain string mnemonic. MOVSD and CMPSD are
// registered by their SSE namesakes through withStringForm.
func stringMnemonics() []string {
	var out []string
	for _, base := range []string{"movs", "stos", "lods", "scas", "cmps"} {
		for _, w := range "bwdq" {
			out = append(out, fmt.Sprintf("%s%c", base, w))
		}
	}
	return out
}

func init() {
	for _, m := range stringMnemonics() {
		if m != "movsd" && m != "cmpsd" {
			register(Implemented, newString(m), m)
		}
		op := stringBases[m[:4]]
		if op == strScas || op == strCmps {
			register(Implemented, newString("repe "+m), "repe "+m)
			register(Implemented, newString("repne "+m), "repne "+m)
		} else {
			register(Implemented, newString("rep "+m), "rep "+m)
		}
	}
}

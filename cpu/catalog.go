// catalog.go - mnemonic to instruction unit registry
//
// (c) 2024-2026 Zayn Otley - GPLv3 or later

package cpu

import (
	"fmt"
	"sort"
)

// Constructor builds one unit from decoded fields. ops are in Intel order,
// destination first.
type Constructor func(pc uint64, raw []byte, ops []Operand) (Instruction, error)

type catalogEntry struct {
	build Constructor
	cap   Capability
}

// catalog is filled by init() in each ops_*.go file.
var catalog = map[string]catalogEntry{}

func register(c Capability, build Constructor, mnemonics ...string) {
	for _, m := range mnemonics {
		if _, dup := catalog[m]; dup {
			panic("cpu: duplicate catalog entry " + m)
		}
		catalog[m] = catalogEntry{build: build, cap: c}
	}
}

// New builds the unit for a lower-case mnemonic.
func New(mnemonic string, pc uint64, raw []byte, ops ...Operand) (Instruction, error) {
	e, ok := catalog[mnemonic]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMnemonic, mnemonic)
	}
	return e.build(pc, raw, ops)
}

// Lookup reports whether a mnemonic is in the catalog and how faithfully it
// is modeled.
func Lookup(mnemonic string) (Capability, bool) {
	e, ok := catalog[mnemonic]
	return e.cap, ok
}

// Mnemonics lists every catalog entry in sorted order.
func Mnemonics() []string {
	out := make([]string, 0, len(catalog))
	for m := range catalog {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}

// sized picks the constructor matching an operand width in bits. A nil slot
// means the width is not encodable for that mnemonic.
func sized(mnemonic string, bits int, b8, b16, b32, b64 func() Instruction) (Instruction, error) {
	var f func() Instruction
	switch bits {
	case 8:
		f = b8
	case 16:
		f = b16
	case 32:
		f = b32
	case 64:
		f = b64
	}
	if f == nil {
		return nil, fmt.Errorf("%s: %w: %d-bit operand", mnemonic, ErrOperandKind, bits)
	}
	return f(), nil
}

// nullary wraps a builder for a form with no explicit operands.
func nullary(m string, build func(pc uint64, raw []byte) Instruction) Constructor {
	return func(pc uint64, raw []byte, ops []Operand) (Instruction, error) {
		if err := checkOperands(m, ops, 0); err != nil {
			return nil, err
		}
		return build(pc, raw), nil
	}
}

// arity wraps a builder needing exactly n explicit operands.
func arity(m string, n int, build func(pc uint64, raw []byte, ops []Operand) (Instruction, error)) Constructor {
	return func(pc uint64, raw []byte, ops []Operand) (Instruction, error) {
		if err := checkOperands(m, ops, n); err != nil {
			return nil, err
		}
		return build(pc, raw, ops)
	}
}

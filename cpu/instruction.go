// instruction.go - instruction unit contract and shared base
//
// (c) 2024-2026 Zayn Otley - GPLv3 or later

package cpu

import (
	"fmt"
	"strings"

	"github.com/intuitionamiga/amd64core/log"
)

// Instruction is one decoded occurrence of an instruction form. Execute runs it
// against s and returns the address to continue at: Next() for ordinary
// instructions, the computed target for control flow.
//
// Units memoize their operand bindings on first execution and are not safe
// for concurrent use.
type Instruction interface {
	Execute(s *State) (uint64, error)

	PC() uint64
	Next() uint64
	Len() int
	Bytes() []byte

	IsControlFlow() bool
	// BranchTargets lists statically known targets. It is empty when the
	// target depends on runtime data, as for RET or an indirect jump.
	BranchTargets() []uint64

	// Disassemble returns the mnemonic followed by one token per operand.
	Disassemble() []string

	Capability() Capability
}

// Capability separates real semantics from forward-progress stubs.
type Capability uint8

const (
	Implemented Capability = iota
	Stub
)

func (c Capability) String() string {
	if c == Stub {
		return "stub"
	}
	return "implemented"
}

// Disassembler is the display side of an instruction.
type Disassembler interface {
	Disassemble() []string
}

// FormatDisassembly joins the mnemonic and operands as "mnemonic\top1,op2".
func FormatDisassembly(d Disassembler) string {
	parts := d.Disassemble()
	if len(parts) == 0 {
		return ""
	}
	if len(parts) == 1 {
		return parts[0]
	}
	return parts[0] + "\t" + strings.Join(parts[1:], ",")
}

// insn carries what every unit shares. Concrete types embed it and override
// IsControlFlow, BranchTargets and Capability when they differ.
//
// operands are displayed by Disassemble; implicit operands (the EDX of CDQ,
// the RSP of PUSH) are bound the same way but not shown. Handles are resolved
// on first execution and kept; indices run over operands then implicit.
type insn struct {
	pc       uint64
	raw      []byte
	mnemonic string
	operands []Operand
	implicit []Operand

	bound bool
	rd    []ReadHandle
	wr    []WriteHandle
}

func newInsn(pc uint64, raw []byte, mnemonic string, ops ...Operand) insn {
	return insn{pc: pc, raw: raw, mnemonic: mnemonic, operands: ops}
}

func (i *insn) PC() uint64              { return i.pc }
func (i *insn) Len() int                { return len(i.raw) }
func (i *insn) Next() uint64            { return i.pc + uint64(len(i.raw)) }
func (i *insn) Bytes() []byte           { return i.raw }
func (i *insn) IsControlFlow() bool     { return false }
func (i *insn) BranchTargets() []uint64 { return nil }
func (i *insn) Capability() Capability  { return Implemented }
func (i *insn) Mnemonic() string        { return i.mnemonic }

func (i *insn) Disassemble() []string {
	out := make([]string, 0, 1+len(i.operands))
	out = append(out, i.mnemonic)
	for _, op := range i.operands {
		out = append(out, op.String())
	}
	return out
}

func (i *insn) String() string {
	return fmt.Sprintf("0x%x: %s", i.pc, FormatDisassembly(i))
}

func (i *insn) operand(k int) Operand {
	if k < len(i.operands) {
		return i.operands[k]
	}
	return i.implicit[k-len(i.operands)]
}

// bind resolves every operand for reading, and the operands at the indices in
// dst for writing too. Only the first call does any work.
func (i *insn) bind(s *State, dst ...int) error {
	if i.bound {
		return nil
	}
	n := len(i.operands) + len(i.implicit)
	rd := make([]ReadHandle, n)
	wr := make([]WriteHandle, n)
	for k := 0; k < n; k++ {
		h, err := s.Resolver().ResolveRead(i.operand(k), i.Next())
		if err != nil {
			return err
		}
		rd[k] = h
	}
	for _, k := range dst {
		h, err := s.Resolver().ResolveWrite(i.operand(k), i.Next())
		if err != nil {
			return err
		}
		wr[k] = h
	}
	i.rd, i.wr, i.bound = rd, wr, true
	return nil
}

// checkOperands guards constructors against descriptor lists of the wrong size.
func checkOperands(mnemonic string, ops []Operand, want int) error {
	if len(ops) != want {
		return fmt.Errorf("%s: %w: got %d, want %d", mnemonic, ErrOperandCount, len(ops), want)
	}
	return nil
}

// ---- Stubs ----

// stub is embedded by units whose hardware effect is deliberately not
// modeled. The first execution of each unit logs a warning.
type stub struct {
	insn
	warned bool
}

func (u *stub) Capability() Capability { return Stub }

func (u *stub) warnOnce() {
	if u.warned {
		return
	}
	u.warned = true
	log.Warn(log.Core, "stub instruction executed", "mnemonic", u.mnemonic, "pc", fmt.Sprintf("0x%016x", u.pc))
}

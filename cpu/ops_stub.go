// ops_stub.go - fences, prefetch, control word access, shadow stack reads, NOP and
// the stand-in for instructions outside the catalog
//
// (c) 2024-2026 Zayn Otley - GPLv3 or later

package cpu

// Reset values reported by the control word stores. Neither MXCSR nor the
// x87 control word is modeled, so these never change.
const (
	MXCSRReset = 0x1F80
	FCWReset   = 0x037F
)

// NoEffect accepts its operands and does nothing: memory ordering, cache
// and spin-loop hints, EMMS and RDSSP with shadow stacks disabled.
type NoEffect struct {
	stub
}

func (u *NoEffect) Execute(s *State) (uint64, error) {
	u.warnOnce()
	return u.Next(), nil
}

// ControlLoad reads its memory operand so faults surface, then drops the
// value (LDMXCSR, FLDCW).
type ControlLoad struct {
	stub
	bits int
}

func (u *ControlLoad) Execute(s *State) (uint64, error) {
	u.warnOnce()
	if err := u.bind(s); err != nil {
		return 0, err
	}
	if _, err := readWidth(u.rd[0], s, u.bits); err != nil {
		return 0, err
	}
	return u.Next(), nil
}

// ControlStore writes a fixed reset value (STMXCSR, FNSTCW).
type ControlStore struct {
	stub
	bits  int
	value uint64
}

func (u *ControlStore) Execute(s *State) (uint64, error) {
	u.warnOnce()
	if err := u.bind(s, 0); err != nil {
		return 0, err
	}
	if err := writeWidth(u.wr[0], s, u.bits, u.value); err != nil {
		return 0, err
	}
	return u.Next(), nil
}

// Nop covers NOP in all its lengths and ENDBR32/64. The multi-byte NOP's
// memory operand is never accessed.
type Nop struct {
	insn
}

func (u *Nop) Execute(s *State) (uint64, error) {
	return u.Next(), nil
}

// Unsupported stands in for an instruction the catalog has no entry for. It
// warns on first execution and falls through.
type Unsupported struct {
	stub
}

func (u *Unsupported) Execute(s *State) (uint64, error) {
	u.warnOnce()
	return u.Next(), nil
}

// NewUnsupported returns the stand-in for the encoding raw at pc. raw is
// kept, not copied.
func NewUnsupported(mnemonic string, pc uint64, raw []byte) Instruction {
	return &Unsupported{stub{insn: newInsn(pc, raw, mnemonic)}}
}

func newStub(m string, n int) Constructor {
	return arity(m, n, func(pc uint64, raw []byte, ops []Operand) (Instruction, error) {
		return &NoEffect{stub{insn: newInsn(pc, raw, m, ops...)}}, nil
	})
}

func init() {
	for _, m := range []string{"mfence", "lfence", "sfence", "emms", "pause"} {
		register(Stub, newStub(m, 0), m)
	}
	for _, m := range []string{"prefetchnta", "prefetcht0", "prefetcht1", "prefetcht2", "prefetchw"} {
		register(Stub, newStub(m, 1), m)
	}
	for _, m := range []string{"rdsspd", "rdsspq"} {
		register(Stub, newStub(m, 1), m)
	}

	for _, f := range []struct {
		m    string
		bits int
	}{{"ldmxcsr", 32}, {"fldcw", 16}} {
		register(Stub, arity(f.m, 1, func(pc uint64, raw []byte, ops []Operand) (Instruction, error) {
			if !isMem(ops[0]) {
				return nil, OperandError{ops[0], ErrOperandKind}
			}
			return &ControlLoad{stub{insn: newInsn(pc, raw, f.m, ops...)}, f.bits}, nil
		}), f.m)
	}
	for _, f := range []struct {
		m     string
		bits  int
		value uint64
	}{{"stmxcsr", 32, MXCSRReset}, {"fnstcw", 16, FCWReset}} {
		register(Stub, arity(f.m, 1, func(pc uint64, raw []byte, ops []Operand) (Instruction, error) {
			if !isMem(ops[0]) {
				return nil, OperandError{ops[0], ErrOperandKind}
			}
			return &ControlStore{stub{insn: newInsn(pc, raw, f.m, ops...)}, f.bits, f.value}, nil
		}), f.m)
	}

	register(Implemented, func(pc uint64, raw []byte, ops []Operand) (Instruction, error) {
		return &Nop{newInsn(pc, raw, "nop", ops...)}, nil
	}, "nop")
	for _, m := range []string{"endbr64", "endbr32"} {
		register(Implemented, nullary(m, func(pc uint64, raw []byte) Instruction {
			return &Nop{newInsn(pc, raw, m)}
		}), m)
	}
}

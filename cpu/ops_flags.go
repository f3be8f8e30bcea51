// ops_flags.go - LAHF, SAHF and the single flag instructions
//
// (c) 2024-2026 Zayn Otley - GPLv3 or later

package cpu

// Lahf loads AH with SF ZF 0 AF 0 PF 1 CF.
type Lahf struct {
	insn
}

func (u *Lahf) Execute(s *State) (uint64, error) {
	if err := u.bind(s, 0); err != nil {
		return 0, err
	}
	if err := u.wr[0].WriteI8(s, s.PackFlags8()); err != nil {
		return 0, err
	}
	return u.Next(), nil
}

// Sahf stores AH into SF ZF AF PF CF. Other flags are untouched.
type Sahf struct {
	insn
}

func (u *Sahf) Execute(s *State) (uint64, error) {
	if err := u.bind(s); err != nil {
		return 0, err
	}
	v, err := u.rd[0].ReadI8(s)
	if err != nil {
		return 0, err
	}
	s.UnpackFlags8(v)
	return u.Next(), nil
}

// FlagOp sets, clears or complements one flag.
type FlagOp struct {
	insn
	flag Flag
	op   func(bool) bool
}

func (u *FlagOp) Execute(s *State) (uint64, error) {
	s.SetFlag(u.flag, u.op(s.Flag(u.flag)))
	return u.Next(), nil
}

func init() {
	register(Implemented, nullary("lahf", func(pc uint64, raw []byte) Instruction {
		u := &Lahf{newInsn(pc, raw, "lahf")}
		u.implicit = []Operand{Reg(AH)}
		return u
	}), "lahf")
	register(Implemented, nullary("sahf", func(pc uint64, raw []byte) Instruction {
		u := &Sahf{newInsn(pc, raw, "sahf")}
		u.implicit = []Operand{Reg(AH)}
		return u
	}), "sahf")

	set := func(bool) bool { return true }
	reset := func(bool) bool { return false }
	flip := func(v bool) bool { return !v }
	for _, f := range []struct {
		m    string
		flag Flag
		op   func(bool) bool
	}{
		{"clc", FlagCF, reset}, {"stc", FlagCF, set}, {"cmc", FlagCF, flip},
		{"cld", FlagDF, reset}, {"std", FlagDF, set},
	} {
		register(Implemented, nullary(f.m, func(pc uint64, raw []byte) Instruction {
			return &FlagOp{newInsn(pc, raw, f.m), f.flag, f.op}
		}), f.m)
	}
}

// ops_shift.go - shifts and rotates: SHL SAL SHR SAR ROL ROR RCL RCR SHLD SHRD
//
// (c) 2024-2026 Zayn Otley - GPLv3 or later

package cpu

type shiftOp uint8

const (
	shiftShl shiftOp = iota
	shiftShr
	shiftSar
	shiftRol
	shiftRor
	shiftRcl
	shiftRcr
)

var shiftNames = map[string]shiftOp{
	"shl": shiftShl, "sal": shiftShl, "shr": shiftShr, "sar": shiftSar,
	"rol": shiftRol, "ror": shiftRor, "rcl": shiftRcl, "rcr": shiftRcr,
}

// shiftCount masks a raw count the way the hardware does: six bits for
// 64-bit operands, five otherwise.
func shiftCount(raw uint64, n uint) uint {
	if n == 64 {
		return uint(raw & 0x3F)
	}
	return uint(raw & 0x1F)
}

// Shift is a shift or rotate of the destination by an immediate or CL.
//
// A masked count of zero changes neither the destination nor the flags. OF is
// defined only for a count of one and is left alone otherwise. Shifts set SF
// ZF PF from the result and clear AF; rotates touch only CF and OF.
type Shift[T Int] struct {
	insn
	op shiftOp
}

func (u *Shift[T]) Execute(s *State) (uint64, error) {
	if err := u.bind(s, 0); err != nil {
		return 0, err
	}
	a, err := readInt[T](u.rd[0], s)
	if err != nil {
		return 0, err
	}
	raw, err := readWidth(u.rd[1], s, 8)
	if err != nil {
		return 0, err
	}
	n := uint(bitsOf[T]())
	count := shiftCount(raw, n)
	if count == 0 {
		return u.Next(), nil
	}

	saved := s.rflags
	var r T
	switch u.op {
	case shiftShl:
		r = a << count
		cf := count <= n && (a>>(n-count))&1 != 0
		s.SetFlag(FlagCF, cf)
		if count == 1 {
			s.SetFlag(FlagOF, isNeg(r) != cf)
		}
		s.SetFlag(FlagAF, false)
		resultFlags(s, r)
	case shiftShr:
		r = a >> count
		s.SetFlag(FlagCF, (a>>(count-1))&1 != 0)
		if count == 1 {
			s.SetFlag(FlagOF, isNeg(a))
		}
		s.SetFlag(FlagAF, false)
		resultFlags(s, r)
	case shiftSar:
		sa := int64(signExtend(a))
		r = T(uint64(sa >> count))
		s.SetFlag(FlagCF, (sa>>(count-1))&1 != 0)
		if count == 1 {
			s.SetFlag(FlagOF, false)
		}
		s.SetFlag(FlagAF, false)
		resultFlags(s, r)
	case shiftRol:
		k := count % n
		r = a<<k | a>>((n-k)%n)
		cf := r&1 != 0
		s.SetFlag(FlagCF, cf)
		if count == 1 {
			s.SetFlag(FlagOF, isNeg(r) != cf)
		}
	case shiftRor:
		k := count % n
		r = a>>k | a<<((n-k)%n)
		s.SetFlag(FlagCF, isNeg(r))
		if count == 1 {
			s.SetFlag(FlagOF, isNeg(r) != isNeg(r<<1))
		}
	case shiftRcl, shiftRcr:
		r = u.rotateCarry(s, a, count, n)
	}

	staged := s.stageFlags(saved)
	if err := writeInt(u.wr[0], s, r); err != nil {
		return 0, err
	}
	s.rflags = staged
	return u.Next(), nil
}

// rotateCarry rotates a through CF, an n+1 bit rotation. 8 and 16-bit counts
// are reduced modulo 9 and 17.
func (u *Shift[T]) rotateCarry(s *State, a T, count, n uint) T {
	if n < 32 {
		count %= n + 1
	}
	cf := s.Flag(FlagCF)
	if u.op == shiftRcr && count == 1 {
		s.SetFlag(FlagOF, isNeg(a) != cf)
	}
	for i := uint(0); i < count; i++ {
		var out bool
		if u.op == shiftRcl {
			out = isNeg(a)
			a <<= 1
			if cf {
				a |= 1
			}
		} else {
			out = a&1 != 0
			a >>= 1
			if cf {
				a |= signBit[T]()
			}
		}
		cf = out
	}
	s.SetFlag(FlagCF, cf)
	if u.op == shiftRcl && count == 1 {
		s.SetFlag(FlagOF, isNeg(a) != cf)
	}
	return a
}

func newShift(m string) Constructor {
	op := shiftNames[m]
	return arity(m, 2, func(pc uint64, raw []byte, ops []Operand) (Instruction, error) {
		if !isCount(ops[1]) {
			return nil, OperandError{ops[1], ErrOperandKind}
		}
		in := newInsn(pc, raw, m, ops...)
		return sized(m, ops[0].Bits(),
			func() Instruction { return &Shift[uint8]{in, op} },
			func() Instruction { return &Shift[uint16]{in, op} },
			func() Instruction { return &Shift[uint32]{in, op} },
			func() Instruction { return &Shift[uint64]{in, op} })
	})
}

// isCount accepts the two count sources: an immediate or CL.
func isCount(op Operand) bool {
	switch o := op.(type) {
	case ImmediateOperand:
		return true
	case RegisterOperand:
		return o.Reg == CL
	}
	return false
}

// DoubleShift is SHLD/SHRD: the destination shifts and the vacated bits are
// filled from the source, which is not modified. The 16-bit forms shift the
// 48-bit string dst:src:dst, which defines counts between 17 and 31 too.
type DoubleShift[T Int] struct {
	insn
	left bool
}

func (u *DoubleShift[T]) Execute(s *State) (uint64, error) {
	if err := u.bind(s, 0); err != nil {
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
	raw, err := readWidth(u.rd[2], s, 8)
	if err != nil {
		return 0, err
	}
	n := uint(bitsOf[T]())
	count := shiftCount(raw, n)
	if count == 0 {
		return u.Next(), nil
	}

	var r T
	var cf bool
	switch {
	case n == 16:
		wide := uint64(a)<<32 | uint64(b)<<16 | uint64(a)
		if u.left {
			r = T(wide >> (32 - count))
			cf = (wide>>(48-count))&1 != 0
		} else {
			r = T(wide >> count)
			cf = (wide>>(count-1))&1 != 0
		}
	case u.left:
		r = a<<count | b>>(n-count)
		cf = (a>>(n-count))&1 != 0
	default:
		r = a>>count | b<<(n-count)
		cf = (a>>(count-1))&1 != 0
	}

	saved := s.rflags
	s.SetFlag(FlagCF, cf)
	if count == 1 {
		s.SetFlag(FlagOF, isNeg(r) != isNeg(a))
	}
	s.SetFlag(FlagAF, false)
	resultFlags(s, r)

	staged := s.stageFlags(saved)
	if err := writeInt(u.wr[0], s, r); err != nil {
		return 0, err
	}
	s.rflags = staged
	return u.Next(), nil
}

func newDoubleShift(m string, left bool) Constructor {
	return arity(m, 3, func(pc uint64, raw []byte, ops []Operand) (Instruction, error) {
		if _, ok := ops[1].(RegisterOperand); !ok {
			return nil, OperandError{ops[1], ErrOperandKind}
		}
		if !isCount(ops[2]) {
			return nil, OperandError{ops[2], ErrOperandKind}
		}
		in := newInsn(pc, raw, m, ops...)
		return sized(m, ops[0].Bits(), nil,
			func() Instruction { return &DoubleShift[uint16]{in, left} },
			func() Instruction { return &DoubleShift[uint32]{in, left} },
			func() Instruction { return &DoubleShift[uint64]{in, left} })
	})
}

func init() {
	for m := range shiftNames {
		register(Implemented, newShift(m), m)
	}
	register(Implemented, newDoubleShift("shld", true), "shld")
	register(Implemented, newDoubleShift("shrd", false), "shrd")
}

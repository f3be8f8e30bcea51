// ops_bits.go - BSWAP, bit tests BT BTS BTR BTC, bit scans BSF BSR TZCNT LZCNT POPCNT
//
// (c) 2024-2026 Zayn Otley - GPLv3 or later

package cpu

import "math/bits"

// Bswap reverses the byte order of a register in place. The 16-bit form swaps
// its two bytes so every width is its own inverse.
type Bswap[T Int] struct {
	insn
}

func (u *Bswap[T]) Execute(s *State) (uint64, error) {
	if err := u.bind(s, 0); err != nil {
		return 0, err
	}
	v, err := readInt[T](u.rd[0], s)
	if err != nil {
		return 0, err
	}
	if err := writeInt(u.wr[0], s, reverseBytes(v)); err != nil {
		return 0, err
	}
	return u.Next(), nil
}

func reverseBytes[T Int](v T) T {
	switch x := any(v).(type) {
	case uint16:
		return T(bits.ReverseBytes16(x))
	case uint32:
		return T(bits.ReverseBytes32(x))
	case uint64:
		return T(bits.ReverseBytes64(x))
	}
	return v
}

type bitTestOp uint8

const (
	bitTest bitTestOp = iota
	bitSet
	bitReset
	bitComplement
)

var bitTestNames = map[string]bitTestOp{
	"bt": bitTest, "bts": bitSet, "btr": bitReset, "btc": bitComplement,
}

// BitTest copies one bit of the base operand into CF and, except for BT,
// sets, clears or flips it. Other flags are left alone.
//
// An immediate offset, or any offset into a register, is taken modulo the
// operand width. A register offset into memory is a signed bit string
// index: the access moves by whole operands from the base address.
type BitTest[T Int] struct {
	insn
	op bitTestOp
}

func (u *BitTest[T]) Execute(s *State) (uint64, error) {
	var dst []int
	if u.op != bitTest {
		dst = []int{0}
	}
	if err := u.bind(s, dst...); err != nil {
		return 0, err
	}
	off, err := readInt[T](u.rd[1], s)
	if err != nil {
		return 0, err
	}
	n := bitsOf[T]()
	rd, wr := u.rd[0], WriteHandle(nil)
	if u.op != bitTest {
		wr = u.wr[0]
	}
	if m, ok := u.operands[0].(MemoryOperand); ok {
		if _, reg := u.operands[1].(RegisterOperand); reg {
			m.Disp += (int64(signExtend(off)) >> bits.TrailingZeros(uint(n))) * int64(n/8)
			if rd, err = s.Resolver().ResolveRead(m, u.Next()); err != nil {
				return 0, err
			}
			if u.op != bitTest {
				if wr, err = s.Resolver().ResolveWrite(m, u.Next()); err != nil {
					return 0, err
				}
			}
		}
	}
	mask := T(1) << (uint(off) & uint(n-1))

	v, err := readInt[T](rd, s)
	if err != nil {
		return 0, err
	}
	cf := v&mask != 0
	switch u.op {
	case bitSet:
		v |= mask
	case bitReset:
		v &^= mask
	case bitComplement:
		v ^= mask
	}
	if wr != nil {
		if err := writeInt(wr, s, v); err != nil {
			return 0, err
		}
	}
	s.SetFlag(FlagCF, cf)
	return u.Next(), nil
}

func newBitTest(m string) Constructor {
	op := bitTestNames[m]
	return arity(m, 2, func(pc uint64, raw []byte, ops []Operand) (Instruction, error) {
		if _, ok := ops[0].(ImmediateOperand); ok {
			return nil, OperandError{ops[0], ErrOperandKind}
		}
		in := newInsn(pc, raw, m, ops...)
		return sized(m, ops[0].Bits(), nil,
			func() Instruction { return &BitTest[uint16]{in, op} },
			func() Instruction { return &BitTest[uint32]{in, op} },
			func() Instruction { return &BitTest[uint64]{in, op} })
	})
}

type bitScanOp uint8

const (
	scanForward bitScanOp = iota
	scanReverse
	countTrailing
	countLeading
	countOnes
)

var bitScanNames = map[string]bitScanOp{
	"bsf": scanForward, "bsr": scanReverse,
	"tzcnt": countTrailing, "lzcnt": countLeading, "popcnt": countOnes,
}

// BitScan finds or counts bits of the source into a register.
//
// BSF and BSR set ZF and leave the destination unchanged when the source is
// zero. TZCNT and LZCNT return the width for a zero source and report it in
// CF, with ZF for a zero count. POPCNT sets ZF for a zero source and clears
// CF OF SF AF PF. Flags not listed are left alone.
type BitScan[T Int] struct {
	insn
	op bitScanOp
}

func (u *BitScan[T]) Execute(s *State) (uint64, error) {
	if err := u.bind(s, 0); err != nil {
		return 0, err
	}
	v, err := readInt[T](u.rd[1], s)
	if err != nil {
		return 0, err
	}
	n := bitsOf[T]()
	x := uint64(v)

	var r int
	switch u.op {
	case scanForward, scanReverse:
		if v == 0 {
			s.SetFlag(FlagZF, true)
			return u.Next(), nil
		}
		if u.op == scanForward {
			r = bits.TrailingZeros64(x)
		} else {
			r = 63 - bits.LeadingZeros64(x)
		}
	case countTrailing:
		r = min(bits.TrailingZeros64(x), n)
	case countLeading:
		r = bits.LeadingZeros64(x) - (64 - n)
	case countOnes:
		r = bits.OnesCount64(x)
	}

	if err := writeInt(u.wr[0], s, T(r)); err != nil {
		return 0, err
	}
	switch u.op {
	case scanForward, scanReverse:
		s.SetFlag(FlagZF, false)
	case countTrailing, countLeading:
		s.SetFlag(FlagCF, v == 0)
		s.SetFlag(FlagZF, r == 0)
	case countOnes:
		s.rflags &^= uint64(FlagCF | FlagOF | FlagSF | FlagAF | FlagPF)
		s.SetFlag(FlagZF, v == 0)
	}
	return u.Next(), nil
}

func newBitScan(m string) Constructor {
	op := bitScanNames[m]
	return arity(m, 2, func(pc uint64, raw []byte, ops []Operand) (Instruction, error) {
		if _, ok := ops[0].(RegisterOperand); !ok {
			return nil, OperandError{ops[0], ErrOperandKind}
		}
		in := newInsn(pc, raw, m, ops...)
		return sized(m, ops[0].Bits(), nil,
			func() Instruction { return &BitScan[uint16]{in, op} },
			func() Instruction { return &BitScan[uint32]{in, op} },
			func() Instruction { return &BitScan[uint64]{in, op} })
	})
}

func init() {
	for m := range bitTestNames {
		register(Implemented, newBitTest(m), m)
	}
	for m := range bitScanNames {
		register(Implemented, newBitScan(m), m)
	}
	register(Implemented, arity("bswap", 1, func(pc uint64, raw []byte, ops []Operand) (Instruction, error) {
		if _, ok := ops[0].(RegisterOperand); !ok {
			return nil, OperandError{ops[0], ErrOperandKind}
		}
		in := newInsn(pc, raw, "bswap", ops...)
		return sized("bswap", ops[0].Bits(), nil,
			func() Instruction { return &Bswap[uint16]{in} },
			func() Instruction { return &Bswap[uint32]{in} },
			func() Instruction { return &Bswap[uint64]{in} })
	}), "bswap")
}

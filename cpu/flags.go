// flags.go - RFLAGS bits and arithmetic flag computation
//
// (c) 2024-2026 Zayn Otley - GPLv3 or later

package cpu

import "math/bits"

// Flag is a single RFLAGS bit.
type Flag uint64

const (
	FlagCF Flag = 1 << 0  // Carry
	FlagPF Flag = 1 << 2  // Parity
	FlagAF Flag = 1 << 4  // Auxiliary carry
	FlagZF Flag = 1 << 6  // Zero
	FlagSF Flag = 1 << 7  // Sign
	FlagTF Flag = 1 << 8  // Trap
	FlagIF Flag = 1 << 9  // Interrupt enable
	FlagDF Flag = 1 << 10 // Direction
	FlagOF Flag = 1 << 11 // Overflow
	FlagAC Flag = 1 << 18 // Alignment check
	FlagID Flag = 1 << 21 // CPUID available
)

// flagsReserved is bit 1, which always reads as one.
const flagsReserved = 1 << 1

const (
	// Bits carried by LAHF/SAHF.
	flagsByteMask = FlagCF | FlagPF | FlagAF | FlagZF | FlagSF
	// Bits carried by the 16-bit image.
	flagsWordMask = flagsByteMask | FlagDF | FlagOF
	// Bits a user-mode POPF may change.
	flagsUserMask = flagsWordMask | FlagTF | FlagAC | FlagID
	// Bits PUSHF reports.
	flagsImageMask = flagsUserMask | FlagIF
)

// ResetFlags is RFLAGS after reset: reserved bit plus interrupts enabled.
const ResetFlags = flagsReserved | uint64(FlagIF)

var flagNames = []struct {
	f    Flag
	name string
}{
	{FlagCF, "CF"}, {FlagPF, "PF"}, {FlagAF, "AF"}, {FlagZF, "ZF"}, {FlagSF, "SF"},
	{FlagTF, "TF"}, {FlagIF, "IF"}, {FlagDF, "DF"}, {FlagOF, "OF"}, {FlagAC, "AC"},
	{FlagID, "ID"},
}

func (f Flag) String() string {
	for _, n := range flagNames {
		if n.f == f {
			return n.name
		}
	}
	return "?"
}

// FlagString renders the set flags of an RFLAGS image, e.g. "ZF PF IF".
func FlagString(rflags uint64) string {
	out := ""
	for _, n := range flagNames {
		if rflags&uint64(n.f) != 0 {
			if out != "" {
				out += " "
			}
			out += n.name
		}
	}
	return out
}

// ---- Flag Access ----

func (s *State) Flag(f Flag) bool {
	return s.rflags&uint64(f) != 0
}

func (s *State) SetFlag(f Flag, set bool) {
	if set {
		s.rflags |= uint64(f)
	} else {
		s.rflags &^= uint64(f)
	}
}

func (s *State) RFLAGS() uint64 {
	return s.rflags | flagsReserved
}

// SetRFLAGS replaces the whole image. Bit 1 is forced on.
func (s *State) SetRFLAGS(v uint64) {
	s.rflags = v | flagsReserved
}

// PackFlags8 is the byte LAHF stores: SF ZF 0 AF 0 PF 1 CF.
func (s *State) PackFlags8() uint8 {
	return uint8(s.rflags&uint64(flagsByteMask)) | flagsReserved
}

// UnpackFlags8 loads SF ZF AF PF CF from b, leaving every other flag alone.
func (s *State) UnpackFlags8(b uint8) {
	s.rflags = (s.rflags &^ uint64(flagsByteMask)) | (uint64(b) & uint64(flagsByteMask))
}

// PackFlags16 adds DF and OF to the byte image.
func (s *State) PackFlags16() uint16 {
	return uint16(s.rflags&uint64(flagsWordMask)) | flagsReserved
}

func (s *State) UnpackFlags16(w uint16) {
	s.rflags = (s.rflags &^ uint64(flagsWordMask)) | (uint64(w) & uint64(flagsWordMask))
}

// pushImage is what PUSHF stores.
func (s *State) pushImage() uint64 {
	return s.rflags&uint64(flagsImageMask) | flagsReserved
}

// popImage applies a POPF value. IF and privileged bits are kept.
func (s *State) popImage(v uint64) {
	s.rflags = (s.rflags &^ uint64(flagsUserMask)) | (v & uint64(flagsUserMask)) | flagsReserved
}

// stageFlags returns the image computed since saved was taken and puts saved
// back. Units that store a result commit the staged image only once the
// store has succeeded, so a faulting store leaves RFLAGS untouched.
func (s *State) stageFlags(saved uint64) uint64 {
	staged := s.rflags
	s.rflags = saved
	return staged
}

// ---- Flag Computation ----

// parity is true when the low byte has an even number of set bits.
func parity(v byte) bool {
	v ^= v >> 4
	v ^= v >> 2
	v ^= v >> 1
	return (v & 1) == 0
}

func (s *State) setResultFlags(r, sign uint64) {
	s.SetFlag(FlagZF, r == 0)
	s.SetFlag(FlagSF, r&sign != 0)
	s.SetFlag(FlagPF, parity(byte(r)))
}

// addFlags computes a + b + carry at width T and sets CF OF AF ZF SF PF.
func addFlags[T Int](s *State, a, b T, carry bool) T {
	var c uint64
	if carry {
		c = 1
	}
	n := bitsOf[T]()
	var r T
	var cf bool
	if n == 64 {
		sum, co := bits.Add64(uint64(a), uint64(b), c)
		r, cf = T(sum), co != 0
	} else {
		wide := uint64(a) + uint64(b) + c
		r, cf = T(wide), wide>>n != 0
	}
	sign := signBit[T]()
	s.SetFlag(FlagCF, cf)
	s.SetFlag(FlagOF, (^(a^b))&(a^r)&sign != 0)
	s.SetFlag(FlagAF, (a^b^r)&0x10 != 0)
	s.setResultFlags(uint64(r), uint64(sign))
	return r
}

// subFlags computes a - b - borrow at width T and sets CF OF AF ZF SF PF.
func subFlags[T Int](s *State, a, b T, borrow bool) T {
	var c uint64
	if borrow {
		c = 1
	}
	diff, bo := bits.Sub64(uint64(a), uint64(b), c)
	r := T(diff)
	sign := signBit[T]()
	s.SetFlag(FlagCF, bo != 0)
	s.SetFlag(FlagOF, (a^b)&(a^r)&sign != 0)
	s.SetFlag(FlagAF, (a^b^r)&0x10 != 0)
	s.setResultFlags(uint64(r), uint64(sign))
	return r
}

// logicFlags is the flag effect shared by AND OR XOR TEST: CF=OF=0, AF cleared.
func logicFlags[T Int](s *State, r T) {
	s.SetFlag(FlagCF, false)
	s.SetFlag(FlagOF, false)
	s.SetFlag(FlagAF, false)
	s.setResultFlags(uint64(r), uint64(signBit[T]()))
}

// cond.go - condition codes for Jcc, SETcc and CMOVcc
//
// (c) 2024-2026 Zayn Otley - GPLv3 or later

package cpu

// Cond is the 4-bit condition field shared by Jcc, SETcc and CMOVcc, in
// hardware encoding order.
type Cond uint8

const (
	CondO Cond = iota
	CondNO
	CondB
	CondAE
	CondE
	CondNE
	CondBE
	CondA
	CondS
	CondNS
	CondP
	CondNP
	CondL
	CondGE
	CondLE
	CondG
)

var condSuffix = [16]string{"o", "no", "b", "ae", "e", "ne", "be", "a", "s", "ns", "p", "np", "l", "ge", "le", "g"}

func (c Cond) String() string {
	return condSuffix[c&15]
}

// Test evaluates c against the current flags.
func (s *State) Test(c Cond) bool {
	var r bool
	switch c &^ 1 {
	case CondO:
		r = s.Flag(FlagOF)
	case CondB:
		r = s.Flag(FlagCF)
	case CondE:
		r = s.Flag(FlagZF)
	case CondBE:
		r = s.Flag(FlagCF) || s.Flag(FlagZF)
	case CondS:
		r = s.Flag(FlagSF)
	case CondP:
		r = s.Flag(FlagPF)
	case CondL:
		r = s.Flag(FlagSF) != s.Flag(FlagOF)
	case CondLE:
		r = s.Flag(FlagZF) || s.Flag(FlagSF) != s.Flag(FlagOF)
	}
	// Odd encodings are the negation of the even one below them.
	if c&1 != 0 {
		return !r
	}
	return r
}

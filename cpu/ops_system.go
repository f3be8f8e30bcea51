// ops_system.go - CPUID and RDTSC
//
// (c) 2024-2026 Zayn Otley - GPLv3 or later

package cpu

import "encoding/binary"

// Identification reported by CPUID. The vendor string is twelve bytes and
// the brand string at most 48.
const (
	CPUIDVendor = "AMD64CoreSim"
	CPUIDBrand  = "amd64core instruction semantics engine"
)

// Feature bits advertised by CPUID. Only families the catalog executes are
// claimed. Leaf 1 EDX: TSC, CMOV, SSE, SSE2. Leaf 1 ECX: POPCNT.
// Leaf 0x80000001 ECX: LAHF/SAHF, LZCNT. Leaf 0x80000001 EDX: long mode.
const (
	cpuidLeaf1EDX = 1<<4 | 1<<15 | 1<<25 | 1<<26
	cpuidLeaf1ECX = 1 << 23
	cpuidExtECX   = 1<<0 | 1<<5
	cpuidExtEDX   = 1 << 29

	cpuidMaxLeaf = 1
	cpuidMaxExt  = 0x80000004
)

// cpuidLeaf returns EAX EBX ECX EDX for a leaf. Leaves above the maxima
// report zeros.
func cpuidLeaf(leaf uint32) (a, b, c, d uint32) {
	switch {
	case leaf == 0:
		v := []byte(CPUIDVendor)
		return cpuidMaxLeaf, binary.LittleEndian.Uint32(v[0:]),
			binary.LittleEndian.Uint32(v[8:]), binary.LittleEndian.Uint32(v[4:])
	case leaf == 1:
		// family 6 model 0 stepping 0
		return 0x600, 0, cpuidLeaf1ECX, cpuidLeaf1EDX
	case leaf == 0x80000000:
		return cpuidMaxExt, 0, 0, 0
	case leaf == 0x80000001:
		return 0, 0, cpuidExtECX, cpuidExtEDX
	case leaf >= 0x80000002 && leaf <= cpuidMaxExt:
		var brand [48]byte
		copy(brand[:], CPUIDBrand)
		off := int(leaf-0x80000002) * 16
		w := brand[off : off+16]
		return binary.LittleEndian.Uint32(w[0:]), binary.LittleEndian.Uint32(w[4:]),
			binary.LittleEndian.Uint32(w[8:]), binary.LittleEndian.Uint32(w[12:])
	}
	return 0, 0, 0, 0
}

// Cpuid answers from a fixed table indexed by EAX. ECX is not consulted by
// any reported leaf. The upper halves of RAX RBX RCX RDX are cleared.
type Cpuid struct {
	insn
}

func (u *Cpuid) Execute(s *State) (uint64, error) {
	a, b, c, d := cpuidLeaf(uint32(s.gpr[RAX]))
	s.Set(EAX, uint64(a))
	s.Set(EBX, uint64(b))
	s.Set(ECX, uint64(c))
	s.Set(EDX, uint64(d))
	return u.Next(), nil
}

// Rdtsc loads the time-stamp counter into EDX:EAX.
type Rdtsc struct {
	insn
}

func (u *Rdtsc) Execute(s *State) (uint64, error) {
	t := s.timestamp()
	s.Set(EAX, t&0xFFFFFFFF)
	s.Set(EDX, t>>32)
	return u.Next(), nil
}

func (s *State) timestamp() uint64 {
	if s.Clock != nil {
		return s.Clock()
	}
	s.tsc++
	return s.tsc
}

func init() {
	register(Implemented, nullary("cpuid", func(pc uint64, raw []byte) Instruction {
		return &Cpuid{newInsn(pc, raw, "cpuid")}
	}), "cpuid")
	register(Implemented, nullary("rdtsc", func(pc uint64, raw []byte) Instruction {
		return &Rdtsc{newInsn(pc, raw, "rdtsc")}
	}), "rdtsc")
}

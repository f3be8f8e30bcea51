// machine_state.go - AMD64 architectural state
//
// (c) 2024-2026 Zayn Otley - GPLv3 or later

/*
State is the register file, RFLAGS, the XMM bank and a handle on memory for one
emulated CPU context. Instruction units receive it explicitly on every Execute
call and touch it only through the accessors in this file, flags.go and the
operand resolver.

General purpose registers are an arena of sixteen 64-bit slots. Every named
Register is a projection onto one slot:

	8-bit and 16-bit writes replace only their bits
	32-bit writes zero the upper half of the slot
	64-bit writes replace the slot

A State is not safe for concurrent use. Several States may share one Memory.
*/

package cpu

import (
	"github.com/intuitionamiga/amd64core/vec"
)

type State struct {
	gpr    [16]uint64
	rip    uint64
	rflags uint64
	xmm    [16]vec.Vector128

	// Segment bases for FS/GS relative addressing.
	FSBase uint64
	GSBase uint64

	// AlignmentCheck plays the part of CR0.AM: with it set, a misaligned
	// 16, 32 or 64-bit data access faults while RFLAGS.AC is set. 128-bit
	// accesses are never subject to it; the aligned SSE forms carry their
	// own requirement on the operand.
	AlignmentCheck bool

	// Clock supplies the time-stamp counter RDTSC reads. When nil, RDTSC
	// reads a counter that advances by one on every read.
	Clock func() uint64
	tsc   uint64

	mem      Memory
	resolver OperandResolver
}

// NewState returns a reset State over mem. mem may be nil for register-only use;
// any memory access then faults as unmapped.
func NewState(mem Memory) *State {
	s := &State{mem: mem, resolver: DefaultResolver{}}
	s.Reset()
	return s
}

// Reset clears every register and restores RFLAGS to its reset value.
func (s *State) Reset() {
	s.gpr = [16]uint64{}
	s.xmm = [16]vec.Vector128{}
	s.rip = 0
	s.rflags = ResetFlags
	s.FSBase, s.GSBase = 0, 0
	s.tsc = 0
}

func (s *State) Memory() Memory {
	if s.mem == nil {
		return nullMemory{}
	}
	return s.mem
}

func (s *State) SetMemory(m Memory) {
	s.mem = m
}

// Resolver returns the collaborator instruction units bind operands through.
func (s *State) Resolver() OperandResolver {
	return s.resolver
}

func (s *State) SetResolver(r OperandResolver) {
	s.resolver = r
}

// ---- Register Access ----

// Get returns the value of view r, zero-extended.
func (s *State) Get(r Register) uint64 {
	if r == RIP {
		return s.rip
	}
	v := regViews[r]
	x := s.gpr[v.slot] >> (uint(v.offset) * 8)
	if v.width == 8 {
		return x
	}
	return x & (uint64(1)<<(uint(v.width)*8) - 1)
}

// Set writes view r with the AMD64 aliasing rules.
func (s *State) Set(r Register, x uint64) {
	if r == RIP {
		s.rip = x
		return
	}
	v := regViews[r]
	switch v.width {
	case 8:
		s.gpr[v.slot] = x
	case 4:
		s.gpr[v.slot] = uint64(uint32(x))
	default:
		shift := uint(v.offset) * 8
		mask := (uint64(1)<<(uint(v.width)*8) - 1) << shift
		s.gpr[v.slot] = s.gpr[v.slot]&^mask | (x<<shift)&mask
	}
}

func (s *State) RIP() uint64     { return s.rip }
func (s *State) SetRIP(v uint64) { s.rip = v }

// ---- Vector Register Access ----

func (s *State) XMM(i int) vec.Vector128 {
	return s.xmm[i&15]
}

func (s *State) SetXMM(i int, v vec.Vector128) {
	s.xmm[i&15] = v
}

// ---- Memory Access ----

// alignCheck faults a misaligned access when AlignmentCheck and RFLAGS.AC
// are both set.
func (s *State) alignCheck(addr uint64, width int, write bool) error {
	if s.AlignmentCheck && s.rflags&uint64(FlagAC) != 0 && addr&uint64(width-1) != 0 {
		return &MemoryFault{Addr: addr, Width: width, Write: write, Kind: FaultUnaligned}
	}
	return nil
}

func (s *State) Read8(addr uint64) (uint8, error) { return s.Memory().Read8(addr) }

func (s *State) Read16(addr uint64) (uint16, error) {
	if err := s.alignCheck(addr, 2, false); err != nil {
		return 0, err
	}
	return s.Memory().Read16(addr)
}

func (s *State) Read32(addr uint64) (uint32, error) {
	if err := s.alignCheck(addr, 4, false); err != nil {
		return 0, err
	}
	return s.Memory().Read32(addr)
}

func (s *State) Read64(addr uint64) (uint64, error) {
	if err := s.alignCheck(addr, 8, false); err != nil {
		return 0, err
	}
	return s.Memory().Read64(addr)
}

func (s *State) Write8(addr uint64, v uint8) error { return s.Memory().Write8(addr, v) }

func (s *State) Write16(addr uint64, v uint16) error {
	if err := s.alignCheck(addr, 2, true); err != nil {
		return err
	}
	return s.Memory().Write16(addr, v)
}

func (s *State) Write32(addr uint64, v uint32) error {
	if err := s.alignCheck(addr, 4, true); err != nil {
		return err
	}
	return s.Memory().Write32(addr, v)
}

func (s *State) Write64(addr uint64, v uint64) error {
	if err := s.alignCheck(addr, 8, true); err != nil {
		return err
	}
	return s.Memory().Write64(addr, v)
}

func (s *State) Read128(addr uint64) (vec.Vector128, error) {
	return s.Memory().Read128(addr)
}

func (s *State) Write128(addr uint64, v vec.Vector128) error {
	return s.Memory().Write128(addr, v)
}

// ---- Stack ----

// push64 stores v below RSP. RSP only moves once the store succeeded.
func (s *State) push64(v uint64) error {
	sp := s.gpr[RSP] - 8
	if err := s.Write64(sp, v); err != nil {
		return err
	}
	s.gpr[RSP] = sp
	return nil
}

// pop64 loads from RSP. RSP only moves once the load succeeded.
func (s *State) pop64() (uint64, error) {
	v, err := s.Read64(s.gpr[RSP])
	if err != nil {
		return 0, err
	}
	s.gpr[RSP] += 8
	return v, nil
}

// ---- Snapshot ----

// Snapshot is a comparable copy of the register state.
type Snapshot struct {
	GPR    [16]uint64
	RIP    uint64
	RFLAGS uint64
	XMM    [16]vec.Vector128
	FSBase uint64
	GSBase uint64
}

func (s *State) Snapshot() Snapshot {
	return Snapshot{
		GPR:    s.gpr,
		RIP:    s.rip,
		RFLAGS: s.RFLAGS(),
		XMM:    s.xmm,
		FSBase: s.FSBase,
		GSBase: s.GSBase,
	}
}

// Restore loads registers from a Snapshot. Memory is untouched.
func (s *State) Restore(snap Snapshot) {
	s.gpr = snap.GPR
	s.rip = snap.RIP
	s.SetRFLAGS(snap.RFLAGS)
	s.xmm = snap.XMM
	s.FSBase = snap.FSBase
	s.GSBase = snap.GSBase
}

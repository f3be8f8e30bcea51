// operand.go - decoded operand descriptors
//
// (c) 2024-2026 Zayn Otley - GPLv3 or later

package cpu

import (
	"fmt"
	"strings"
)

// Operand is a decoded reference to an instruction input or output. It is one
// of RegisterOperand, VectorOperand, MemoryOperand or ImmediateOperand and
// carries no execution state.
type Operand interface {
	fmt.Stringer
	// Bits is the access width the operand was decoded with.
	Bits() int
	isOperand()
}

type RegisterOperand struct {
	Reg Register
}

func Reg(r Register) RegisterOperand { return RegisterOperand{Reg: r} }

func (o RegisterOperand) Bits() int      { return o.Reg.Width() }
func (o RegisterOperand) String() string { return o.Reg.String() }
func (RegisterOperand) isOperand()       {}

type VectorOperand struct {
	Index int
}

func XMM(i int) VectorOperand { return VectorOperand{Index: i} }

func (o VectorOperand) Bits() int      { return 128 }
func (o VectorOperand) String() string { return fmt.Sprintf("xmm%d", o.Index) }
func (VectorOperand) isOperand()       {}

// Segment selects the base added to a memory operand's address. Only FS and GS
// carry a non-zero base in 64-bit mode.
type Segment uint8

const (
	SegNone Segment = iota
	SegFS
	SegGS
)

func (s Segment) String() string {
	switch s {
	case SegFS:
		return "fs"
	case SegGS:
		return "gs"
	}
	return ""
}

// MemoryOperand addresses Width bits at
// segment base + Disp + Base + Index*Scale.
// A RIP base is relative to the address of the next instruction.
type MemoryOperand struct {
	Segment    Segment
	Base       Register // NoRegister when absent
	Index      Register // NoRegister when absent
	Scale      uint8    // 1, 2, 4 or 8
	Disp       int64
	Width      int  // bits
	AddrSize32 bool // 0x67 prefix: address arithmetic wraps at 32 bits
	Align      int  // bytes the address must be a multiple of; 0 for none
}

// Mem builds a base+disp operand, the common stack and field access shape.
func Mem(base Register, disp int64, bits int) MemoryOperand {
	return MemoryOperand{Base: base, Index: NoRegister, Scale: 1, Disp: disp, Width: bits}
}

// MemIndex builds a base+index*scale+disp operand.
func MemIndex(base, index Register, scale uint8, disp int64, bits int) MemoryOperand {
	return MemoryOperand{Base: base, Index: index, Scale: scale, Disp: disp, Width: bits}
}

func (o MemoryOperand) Bits() int { return o.Width }
func (MemoryOperand) isOperand()  {}

// WithWidth returns a copy accessing a different number of bits at the same address.
func (o MemoryOperand) WithWidth(bits int) MemoryOperand {
	o.Width = bits
	return o
}

// Aligned returns a copy whose accesses fault unless the address is a
// multiple of n bytes.
func (o MemoryOperand) Aligned(n int) MemoryOperand {
	o.Align = n
	return o
}

func (o MemoryOperand) String() string {
	var buf strings.Builder
	if o.Base != NoRegister {
		buf.WriteString(o.Base.String())
	}
	if o.Index != NoRegister {
		if buf.Len() > 0 {
			buf.WriteByte('+')
		}
		buf.WriteString(o.Index.String())
		if o.Scale > 1 {
			fmt.Fprintf(&buf, "*%d", o.Scale)
		}
	}
	if buf.Len() == 0 || o.Disp != 0 {
		switch {
		case o.Disp < 0:
			fmt.Fprintf(&buf, "-0x%x", uint64(-o.Disp))
		case buf.Len() > 0:
			fmt.Fprintf(&buf, "+0x%x", o.Disp)
		default:
			fmt.Fprintf(&buf, "0x%x", o.Disp)
		}
	}
	if o.Segment != SegNone {
		return o.Segment.String() + ":[" + buf.String() + "]"
	}
	return "[" + buf.String() + "]"
}

// ImmediateOperand holds a sign-extended immediate decoded at Width bits.
type ImmediateOperand struct {
	Value int64
	Width int
}

func Imm(v int64, bits int) ImmediateOperand { return ImmediateOperand{Value: v, Width: bits} }

func (o ImmediateOperand) Bits() int { return o.Width }
func (ImmediateOperand) isOperand()  {}

func (o ImmediateOperand) String() string {
	if o.Value < 0 {
		return fmt.Sprintf("-0x%x", uint64(-o.Value))
	}
	return fmt.Sprintf("0x%x", o.Value)
}

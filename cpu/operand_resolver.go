// operand_resolver.go - binding operand descriptors to typed access handles
//
// (c) 2024-2026 Zayn Otley - GPLv3 or later

package cpu

import (
	"math"

	"github.com/intuitionamiga/amd64core/vec"
)

// ReadHandle reads an operand at a chosen width or kind. Integer reads are
// zero-extended into the result type.
type ReadHandle interface {
	ReadI8(s *State) (uint8, error)
	ReadI16(s *State) (uint16, error)
	ReadI32(s *State) (uint32, error)
	ReadI64(s *State) (uint64, error)
	ReadI128(s *State) (vec.Vector128, error)
	ReadF32(s *State) (float32, error)
	ReadF64(s *State) (float64, error)
}

type WriteHandle interface {
	WriteI8(s *State, v uint8) error
	WriteI16(s *State, v uint16) error
	WriteI32(s *State, v uint32) error
	WriteI64(s *State, v uint64) error
	WriteI128(s *State, v vec.Vector128) error
	WriteF32(s *State, v float32) error
	WriteF64(s *State, v float64) error
}

// OperandResolver turns a descriptor into a handle. next is the address of the
// instruction after the one owning the operand, used for RIP-relative memory.
type OperandResolver interface {
	ResolveRead(op Operand, next uint64) (ReadHandle, error)
	ResolveWrite(op Operand, next uint64) (WriteHandle, error)
}

// DefaultResolver binds descriptors directly against State.
type DefaultResolver struct{}

func (DefaultResolver) ResolveRead(op Operand, next uint64) (ReadHandle, error) {
	switch o := op.(type) {
	case RegisterOperand:
		return regHandle{o}, nil
	case VectorOperand:
		return xmmHandle{o}, nil
	case MemoryOperand:
		return memHandle{o, next}, nil
	case ImmediateOperand:
		return immHandle{o}, nil
	}
	return nil, OperandError{op, ErrOperandKind}
}

func (DefaultResolver) ResolveWrite(op Operand, next uint64) (WriteHandle, error) {
	switch o := op.(type) {
	case RegisterOperand:
		return regHandle{o}, nil
	case VectorOperand:
		return xmmHandle{o}, nil
	case MemoryOperand:
		return memHandle{o, next}, nil
	}
	return nil, OperandError{op, ErrNotWritable}
}

// EffectiveAddress computes segment base + Disp + Base + Index*Scale from the
// current register values. It is evaluated on every access and never cached.
func EffectiveAddress(s *State, m MemoryOperand, next uint64) uint64 {
	ea := uint64(m.Disp)
	switch m.Base {
	case NoRegister:
	case RIP:
		ea += next
	default:
		ea += s.Get(m.Base)
	}
	if m.Index != NoRegister {
		scale := uint64(m.Scale)
		if scale == 0 {
			scale = 1
		}
		ea += s.Get(m.Index) * scale
	}
	if m.AddrSize32 {
		ea = uint64(uint32(ea))
	}
	switch m.Segment {
	case SegFS:
		ea += s.FSBase
	case SegGS:
		ea += s.GSBase
	}
	return ea
}

// ---- Register Handle ----

// regHandle accesses a general purpose register view. Reads narrower than the
// view return its low bits. A write of the view's own width goes through the
// view (so AH stays AH); other widths go to the low view of that width, which
// gives 32-bit writes their zero extension.
type regHandle struct {
	op RegisterOperand
}

func (h regHandle) read(s *State, bits int) uint64 {
	v := s.Get(h.op.Reg)
	if bits >= 64 {
		return v
	}
	return v & (uint64(1)<<bits - 1)
}

func (h regHandle) write(s *State, bits int, v uint64) {
	r := h.op.Reg
	if r.Width() != bits {
		r = r.Sized(bits)
	}
	s.Set(r, v)
}

func (h regHandle) ReadI8(s *State) (uint8, error)   { return uint8(h.read(s, 8)), nil }
func (h regHandle) ReadI16(s *State) (uint16, error) { return uint16(h.read(s, 16)), nil }
func (h regHandle) ReadI32(s *State) (uint32, error) { return uint32(h.read(s, 32)), nil }
func (h regHandle) ReadI64(s *State) (uint64, error) { return h.read(s, 64), nil }

func (h regHandle) ReadI128(s *State) (vec.Vector128, error) {
	return vec.Vector128{}, OperandError{h.op, ErrOperandKind}
}

func (h regHandle) ReadF32(s *State) (float32, error) {
	return math.Float32frombits(uint32(h.read(s, 32))), nil
}

func (h regHandle) ReadF64(s *State) (float64, error) {
	return math.Float64frombits(h.read(s, 64)), nil
}

func (h regHandle) WriteI8(s *State, v uint8) error   { h.write(s, 8, uint64(v)); return nil }
func (h regHandle) WriteI16(s *State, v uint16) error { h.write(s, 16, uint64(v)); return nil }
func (h regHandle) WriteI32(s *State, v uint32) error { h.write(s, 32, uint64(v)); return nil }
func (h regHandle) WriteI64(s *State, v uint64) error { h.write(s, 64, v); return nil }

func (h regHandle) WriteI128(s *State, v vec.Vector128) error {
	return OperandError{h.op, ErrOperandKind}
}

func (h regHandle) WriteF32(s *State, v float32) error {
	h.write(s, 32, uint64(math.Float32bits(v)))
	return nil
}

func (h regHandle) WriteF64(s *State, v float64) error {
	h.write(s, 64, math.Float64bits(v))
	return nil
}

// ---- Vector Handle ----

// xmmHandle accesses an XMM register. Scalar reads see the low lane; scalar
// writes replace only the low bits and keep the rest of the register.
type xmmHandle struct {
	op VectorOperand
}

func (h xmmHandle) low(s *State) uint64 { return s.XMM(h.op.Index).Lo() }

func (h xmmHandle) merge(s *State, bits int, v uint64) {
	x := s.XMM(h.op.Index)
	lo := x.Lo()
	if bits >= 64 {
		lo = v
	} else {
		mask := uint64(1)<<bits - 1
		lo = lo&^mask | v&mask
	}
	x.SetU64(0, lo)
	s.SetXMM(h.op.Index, x)
}

func (h xmmHandle) ReadI8(s *State) (uint8, error)   { return uint8(h.low(s)), nil }
func (h xmmHandle) ReadI16(s *State) (uint16, error) { return uint16(h.low(s)), nil }
func (h xmmHandle) ReadI32(s *State) (uint32, error) { return uint32(h.low(s)), nil }
func (h xmmHandle) ReadI64(s *State) (uint64, error) { return h.low(s), nil }

func (h xmmHandle) ReadI128(s *State) (vec.Vector128, error) {
	return s.XMM(h.op.Index), nil
}

func (h xmmHandle) ReadF32(s *State) (float32, error) {
	return math.Float32frombits(uint32(h.low(s))), nil
}

func (h xmmHandle) ReadF64(s *State) (float64, error) {
	return math.Float64frombits(h.low(s)), nil
}

func (h xmmHandle) WriteI8(s *State, v uint8) error   { h.merge(s, 8, uint64(v)); return nil }
func (h xmmHandle) WriteI16(s *State, v uint16) error { h.merge(s, 16, uint64(v)); return nil }
func (h xmmHandle) WriteI32(s *State, v uint32) error { h.merge(s, 32, uint64(v)); return nil }
func (h xmmHandle) WriteI64(s *State, v uint64) error { h.merge(s, 64, v); return nil }

func (h xmmHandle) WriteI128(s *State, v vec.Vector128) error {
	s.SetXMM(h.op.Index, v)
	return nil
}

func (h xmmHandle) WriteF32(s *State, v float32) error {
	h.merge(s, 32, uint64(math.Float32bits(v)))
	return nil
}

func (h xmmHandle) WriteF64(s *State, v float64) error {
	h.merge(s, 64, math.Float64bits(v))
	return nil
}

// ---- Memory Handle ----

type memHandle struct {
	op   MemoryOperand
	next uint64
}

func (h memHandle) addr(s *State) uint64 {
	return EffectiveAddress(s, h.op, h.next)
}

func (h memHandle) ReadI8(s *State) (uint8, error)   { return s.Read8(h.addr(s)) }
func (h memHandle) ReadI16(s *State) (uint16, error) { return s.Read16(h.addr(s)) }
func (h memHandle) ReadI32(s *State) (uint32, error) { return s.Read32(h.addr(s)) }
func (h memHandle) ReadI64(s *State) (uint64, error) { return s.Read64(h.addr(s)) }

// aligned returns the effective address, or a fault when the operand
// carries an alignment requirement the address misses.
func (h memHandle) aligned(s *State, write bool) (uint64, error) {
	a := h.addr(s)
	if n := uint64(h.op.Align); n > 1 && a&(n-1) != 0 {
		return a, &MemoryFault{Addr: a, Width: h.op.Width / 8, Write: write, Kind: FaultUnaligned}
	}
	return a, nil
}

func (h memHandle) ReadI128(s *State) (vec.Vector128, error) {
	a, err := h.aligned(s, false)
	if err != nil {
		return vec.Zero, err
	}
	return s.Read128(a)
}

func (h memHandle) ReadF32(s *State) (float32, error) {
	v, err := s.Read32(h.addr(s))
	return math.Float32frombits(v), err
}

func (h memHandle) ReadF64(s *State) (float64, error) {
	v, err := s.Read64(h.addr(s))
	return math.Float64frombits(v), err
}

func (h memHandle) WriteI8(s *State, v uint8) error   { return s.Write8(h.addr(s), v) }
func (h memHandle) WriteI16(s *State, v uint16) error { return s.Write16(h.addr(s), v) }
func (h memHandle) WriteI32(s *State, v uint32) error { return s.Write32(h.addr(s), v) }
func (h memHandle) WriteI64(s *State, v uint64) error { return s.Write64(h.addr(s), v) }

func (h memHandle) WriteI128(s *State, v vec.Vector128) error {
	a, err := h.aligned(s, true)
	if err != nil {
		return err
	}
	return s.Write128(a, v)
}

func (h memHandle) WriteF32(s *State, v float32) error {
	return s.Write32(h.addr(s), math.Float32bits(v))
}

func (h memHandle) WriteF64(s *State, v float64) error {
	return s.Write64(h.addr(s), math.Float64bits(v))
}

// ---- Immediate Handle ----

type immHandle struct {
	op ImmediateOperand
}

func (h immHandle) ReadI8(*State) (uint8, error)   { return uint8(h.op.Value), nil }
func (h immHandle) ReadI16(*State) (uint16, error) { return uint16(h.op.Value), nil }
func (h immHandle) ReadI32(*State) (uint32, error) { return uint32(h.op.Value), nil }
func (h immHandle) ReadI64(*State) (uint64, error) { return uint64(h.op.Value), nil }

func (h immHandle) ReadI128(*State) (vec.Vector128, error) {
	return vec.Vector128{}, OperandError{h.op, ErrOperandKind}
}

func (h immHandle) ReadF32(*State) (float32, error) {
	return 0, OperandError{h.op, ErrOperandKind}
}

func (h immHandle) ReadF64(*State) (float64, error) {
	return 0, OperandError{h.op, ErrOperandKind}
}

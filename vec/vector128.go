// vector128.go - 128-bit SIMD value with typed lane views
//
// (c) 2024-2026 Zayn Otley - GPLv3 or later

// Package vec holds the 128-bit value carried by the XMM register bank.
//
// A Vector128 is 16 little-endian bytes. Lane 0 of every view is the least
// significant lane, so I32(0) aliases bytes 0-3 and I16(7) aliases bytes 14-15.
// All lane accessors read or write the same backing bytes; there is no
// conversion between lane counts.
package vec

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Vector128 is passed by value. Setters take a pointer and mutate in place.
type Vector128 [16]byte

// Zero is the all-zero vector.
var Zero Vector128

// ---- Constructors ----

func FromBytes(b []byte) Vector128 {
	var v Vector128
	copy(v[:], b)
	return v
}

func FromU64s(lo, hi uint64) Vector128 {
	var v Vector128
	v.SetU64(0, lo)
	v.SetU64(1, hi)
	return v
}

func FromI64s(l [2]int64) Vector128 {
	return FromU64s(uint64(l[0]), uint64(l[1]))
}

func FromI32s(l [4]int32) Vector128 {
	var v Vector128
	for i, x := range l {
		v.SetI32(i, x)
	}
	return v
}

func FromI16s(l [8]int16) Vector128 {
	var v Vector128
	for i, x := range l {
		v.SetI16(i, x)
	}
	return v
}

func FromI8s(l [16]int8) Vector128 {
	var v Vector128
	for i, x := range l {
		v[i] = byte(x)
	}
	return v
}

func FromF64s(l [2]float64) Vector128 {
	var v Vector128
	for i, x := range l {
		v.SetF64(i, x)
	}
	return v
}

func FromF32s(l [4]float32) Vector128 {
	var v Vector128
	for i, x := range l {
		v.SetF32(i, x)
	}
	return v
}

// ---- Lane accessors ----

func (v Vector128) U64(i int) uint64 { return binary.LittleEndian.Uint64(v[i*8:]) }
func (v Vector128) U32(i int) uint32 { return binary.LittleEndian.Uint32(v[i*4:]) }
func (v Vector128) U16(i int) uint16 { return binary.LittleEndian.Uint16(v[i*2:]) }
func (v Vector128) U8(i int) uint8   { return v[i] }

func (v Vector128) I64(i int) int64 { return int64(v.U64(i)) }
func (v Vector128) I32(i int) int32 { return int32(v.U32(i)) }
func (v Vector128) I16(i int) int16 { return int16(v.U16(i)) }
func (v Vector128) I8(i int) int8   { return int8(v[i]) }

func (v Vector128) F64(i int) float64 { return math.Float64frombits(v.U64(i)) }
func (v Vector128) F32(i int) float32 { return math.Float32frombits(v.U32(i)) }

func (v *Vector128) SetU64(i int, x uint64) { binary.LittleEndian.PutUint64(v[i*8:], x) }
func (v *Vector128) SetU32(i int, x uint32) { binary.LittleEndian.PutUint32(v[i*4:], x) }
func (v *Vector128) SetU16(i int, x uint16) { binary.LittleEndian.PutUint16(v[i*2:], x) }
func (v *Vector128) SetU8(i int, x uint8)   { v[i] = x }

func (v *Vector128) SetI64(i int, x int64) { v.SetU64(i, uint64(x)) }
func (v *Vector128) SetI32(i int, x int32) { v.SetU32(i, uint32(x)) }
func (v *Vector128) SetI16(i int, x int16) { v.SetU16(i, uint16(x)) }
func (v *Vector128) SetI8(i int, x int8)   { v[i] = byte(x) }

func (v *Vector128) SetF64(i int, x float64) { v.SetU64(i, math.Float64bits(x)) }
func (v *Vector128) SetF32(i int, x float32) { v.SetU32(i, math.Float32bits(x)) }

// Lo and Hi return the two 64-bit halves.
func (v Vector128) Lo() uint64 { return v.U64(0) }
func (v Vector128) Hi() uint64 { return v.U64(1) }

// ---- Bitwise operations ----

func (v Vector128) And(o Vector128) Vector128 {
	return FromU64s(v.Lo()&o.Lo(), v.Hi()&o.Hi())
}

func (v Vector128) Or(o Vector128) Vector128 {
	return FromU64s(v.Lo()|o.Lo(), v.Hi()|o.Hi())
}

func (v Vector128) Xor(o Vector128) Vector128 {
	return FromU64s(v.Lo()^o.Lo(), v.Hi()^o.Hi())
}

// AndNot returns ^v & o, the operand order of ANDNPS and PANDN.
func (v Vector128) AndNot(o Vector128) Vector128 {
	return FromU64s(^v.Lo()&o.Lo(), ^v.Hi()&o.Hi())
}

// ShiftBytesLeft moves every byte n lanes towards the most significant end.
// Counts above 15 clear the whole value.
func (v Vector128) ShiftBytesLeft(n uint) Vector128 {
	var r Vector128
	if n > 15 {
		return r
	}
	copy(r[n:], v[:16-n])
	return r
}

// ShiftBytesRight moves every byte n lanes towards lane 0.
// Counts above 15 clear the whole value.
func (v Vector128) ShiftBytesRight(n uint) Vector128 {
	var r Vector128
	if n > 15 {
		return r
	}
	copy(r[:16-n], v[n:])
	return r
}

func (v Vector128) IsZero() bool {
	return v == Zero
}

// String renders the value as one 128-bit hex number, most significant byte first.
func (v Vector128) String() string {
	return fmt.Sprintf("0x%016x%016x", v.Hi(), v.Lo())
}

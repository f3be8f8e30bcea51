// ops_sse_int.go - packed integer lane arithmetic, compare, unpack, pack and mask extraction
//
// (c) 2024-2026 Zayn Otley - GPLv3 or later

package cpu

import (
	"math"

	"github.com/intuitionamiga/amd64core/vec"
)

// ---- Lane helpers ----

// lanewise applies fn to each pair of size-byte lanes.
func lanewise(a, b vec.Vector128, size int, fn func(x, y uint64) uint64) vec.Vector128 {
	var r vec.Vector128
	for i := 0; i < 16/size; i++ {
		switch size {
		case 1:
			r.SetU8(i, uint8(fn(uint64(a.U8(i)), uint64(b.U8(i)))))
		case 2:
			r.SetU16(i, uint16(fn(uint64(a.U16(i)), uint64(b.U16(i)))))
		case 4:
			r.SetU32(i, uint32(fn(uint64(a.U32(i)), uint64(b.U32(i)))))
		default:
			r.SetU64(i, fn(a.U64(i), b.U64(i)))
		}
	}
	return r
}

func laneGet(v vec.Vector128, size, i int) uint64 {
	switch size {
	case 1:
		return uint64(v.U8(i))
	case 2:
		return uint64(v.U16(i))
	case 4:
		return uint64(v.U32(i))
	}
	return v.U64(i)
}

func laneSet(v *vec.Vector128, size, i int, x uint64) {
	switch size {
	case 1:
		v.SetU8(i, uint8(x))
	case 2:
		v.SetU16(i, uint16(x))
	case 4:
		v.SetU32(i, uint32(x))
	default:
		v.SetU64(i, x)
	}
}

// unpack interleaves the low (high=false) or high halves of a and b:
// r[2i] = a[base+i], r[2i+1] = b[base+i].
func unpack(a, b vec.Vector128, size int, high bool) vec.Vector128 {
	var r vec.Vector128
	n := 16 / size / 2
	base := 0
	if high {
		base = n
	}
	for i := 0; i < n; i++ {
		laneSet(&r, size, 2*i, laneGet(a, size, base+i))
		laneSet(&r, size, 2*i+1, laneGet(b, size, base+i))
	}
	return r
}

// ---- Saturation ----

func saturateInt16(v int32) int16 {
	switch {
	case v > math.MaxInt16:
		return math.MaxInt16
	case v < math.MinInt16:
		return math.MinInt16
	}
	return int16(v)
}

func saturateInt8(v int16) int8 {
	switch {
	case v > math.MaxInt8:
		return math.MaxInt8
	case v < math.MinInt8:
		return math.MinInt8
	}
	return int8(v)
}

func saturateUint8(v int16) uint8 {
	switch {
	case v > math.MaxUint8:
		return math.MaxUint8
	case v < 0:
		return 0
	}
	return uint8(v)
}

// packSSDW narrows dst's dwords into the low four words and src's into the
// high four, with signed saturation.
func packSSDW(dst, src vec.Vector128) vec.Vector128 {
	var r vec.Vector128
	for i := 0; i < 4; i++ {
		r.SetI16(i, saturateInt16(dst.I32(i)))
		r.SetI16(i+4, saturateInt16(src.I32(i)))
	}
	return r
}

func packSSWB(dst, src vec.Vector128) vec.Vector128 {
	var r vec.Vector128
	for i := 0; i < 8; i++ {
		r.SetI8(i, saturateInt8(dst.I16(i)))
		r.SetI8(i+8, saturateInt8(src.I16(i)))
	}
	return r
}

func packUSWB(dst, src vec.Vector128) vec.Vector128 {
	var r vec.Vector128
	for i := 0; i < 8; i++ {
		r.SetU8(i, saturateUint8(dst.I16(i)))
		r.SetU8(i+8, saturateUint8(src.I16(i)))
	}
	return r
}

// pmaddwd multiplies signed words and adds adjacent products into dwords.
func pmaddwd(dst, src vec.Vector128) vec.Vector128 {
	var r vec.Vector128
	for i := 0; i < 4; i++ {
		lo := int32(dst.I16(2*i)) * int32(src.I16(2*i))
		hi := int32(dst.I16(2*i+1)) * int32(src.I16(2*i+1))
		r.SetI32(i, lo+hi)
	}
	return r
}

// ---- Mask extraction ----

// MaskExtract gathers the sign bit of every size-byte lane of an XMM register
// into the low bits of a general register, zero-extended.
type MaskExtract struct {
	insn
	size int
}

func (u *MaskExtract) Execute(s *State) (uint64, error) {
	if err := u.bind(s, 0); err != nil {
		return 0, err
	}
	v, err := u.rd[1].ReadI128(s)
	if err != nil {
		return 0, err
	}
	if err := u.wr[0].WriteI32(s, signMask(v, u.size)); err != nil {
		return 0, err
	}
	return u.Next(), nil
}

func signMask(v vec.Vector128, size int) uint32 {
	var m uint32
	for i := 0; i < 16/size; i++ {
		if v.U8(i*size+size-1)&0x80 != 0 {
			m |= 1 << i
		}
	}
	return m
}

func init() {
	for _, f := range []struct {
		suffix string
		size   int
	}{{"b", 1}, {"w", 2}, {"d", 4}, {"q", 8}} {
		size := f.size
		registerPacked("padd"+f.suffix, func(a, b vec.Vector128) vec.Vector128 {
			return lanewise(a, b, size, func(x, y uint64) uint64 { return x + y })
		})
		registerPacked("psub"+f.suffix, func(a, b vec.Vector128) vec.Vector128 {
			return lanewise(a, b, size, func(x, y uint64) uint64 { return x - y })
		})
		registerPacked("pcmpgt"+f.suffix, func(a, b vec.Vector128) vec.Vector128 {
			return lanewise(a, b, size, func(x, y uint64) uint64 {
				if int64(sextBits(x, size*8)) > int64(sextBits(y, size*8)) {
					return math.MaxUint64
				}
				return 0
			})
		})
		if size < 8 {
			registerPacked("pcmpeq"+f.suffix, func(a, b vec.Vector128) vec.Vector128 {
				return lanewise(a, b, size, func(x, y uint64) uint64 {
					if x == y {
						return math.MaxUint64
					}
					return 0
				})
			})
		}
	}

	for _, f := range []struct {
		suffix string
		size   int
	}{{"bw", 1}, {"wd", 2}, {"dq", 4}, {"qdq", 8}} {
		size := f.size
		registerPacked("punpckl"+f.suffix, func(a, b vec.Vector128) vec.Vector128 {
			return unpack(a, b, size, false)
		})
		registerPacked("punpckh"+f.suffix, func(a, b vec.Vector128) vec.Vector128 {
			return unpack(a, b, size, true)
		})
	}

	registerPacked("packssdw", packSSDW)
	registerPacked("packsswb", packSSWB)
	registerPacked("packuswb", packUSWB)
	registerPacked("pmaddwd", pmaddwd)

	for _, f := range []struct {
		m    string
		size int
	}{{"pmovmskb", 1}, {"movmskps", 4}, {"movmskpd", 8}} {
		register(Implemented, arity(f.m, 2, func(pc uint64, raw []byte, ops []Operand) (Instruction, error) {
			if _, ok := ops[0].(RegisterOperand); !ok || !isXMM(ops[1]) {
				return nil, OperandError{ops[0], ErrOperandKind}
			}
			return &MaskExtract{newInsn(pc, raw, f.m, ops...), f.size}, nil
		}), f.m)
	}
}

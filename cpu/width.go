// width.go - operand width helpers shared by the integer instruction families
//
// (c) 2024-2026 Zayn Otley - GPLv3 or later

package cpu

// Int is the set of unsigned integer operand widths. Instruction families that
// behave the same at every width are written once over Int.
type Int interface {
	~uint8 | ~uint16 | ~uint32 | ~uint64
}

func bitsOf[T Int]() int {
	var zero T
	switch any(zero).(type) {
	case uint8:
		return 8
	case uint16:
		return 16
	case uint32:
		return 32
	}
	return 64
}

func signBit[T Int]() T {
	return T(1) << (bitsOf[T]() - 1)
}

func isNeg[T Int](v T) bool {
	return v&signBit[T]() != 0
}

// signExtend widens a T to 64 bits, replicating its sign bit.
func signExtend[T Int](v T) uint64 {
	switch x := any(v).(type) {
	case uint8:
		return uint64(int64(int8(x)))
	case uint16:
		return uint64(int64(int16(x)))
	case uint32:
		return uint64(int64(int32(x)))
	}
	return uint64(v)
}

func readInt[T Int](h ReadHandle, s *State) (T, error) {
	var zero T
	switch any(zero).(type) {
	case uint8:
		v, err := h.ReadI8(s)
		return T(v), err
	case uint16:
		v, err := h.ReadI16(s)
		return T(v), err
	case uint32:
		v, err := h.ReadI32(s)
		return T(v), err
	}
	v, err := h.ReadI64(s)
	return T(v), err
}

func writeInt[T Int](h WriteHandle, s *State, v T) error {
	switch x := any(v).(type) {
	case uint8:
		return h.WriteI8(s, x)
	case uint16:
		return h.WriteI16(s, x)
	case uint32:
		return h.WriteI32(s, x)
	}
	return h.WriteI64(s, uint64(v))
}

// readWidth reads an integer of the given bit width, zero-extended.
func readWidth(h ReadHandle, s *State, bits int) (uint64, error) {
	switch bits {
	case 8:
		v, err := h.ReadI8(s)
		return uint64(v), err
	case 16:
		v, err := h.ReadI16(s)
		return uint64(v), err
	case 32:
		v, err := h.ReadI32(s)
		return uint64(v), err
	}
	return h.ReadI64(s)
}

func writeWidth(h WriteHandle, s *State, bits int, v uint64) error {
	switch bits {
	case 8:
		return h.WriteI8(s, uint8(v))
	case 16:
		return h.WriteI16(s, uint16(v))
	case 32:
		return h.WriteI32(s, uint32(v))
	}
	return h.WriteI64(s, v)
}

// readAt loads a T from memory at addr.
func readAt[T Int](s *State, addr uint64) (T, error) {
	var zero T
	switch any(zero).(type) {
	case uint8:
		v, err := s.Read8(addr)
		return T(v), err
	case uint16:
		v, err := s.Read16(addr)
		return T(v), err
	case uint32:
		v, err := s.Read32(addr)
		return T(v), err
	}
	v, err := s.Read64(addr)
	return T(v), err
}

func writeAt[T Int](s *State, addr uint64, v T) error {
	switch x := any(v).(type) {
	case uint8:
		return s.Write8(addr, x)
	case uint16:
		return s.Write16(addr, x)
	case uint32:
		return s.Write32(addr, x)
	}
	return s.Write64(addr, uint64(v))
}

// resultFlags sets ZF SF PF from r at width T.
func resultFlags[T Int](s *State, r T) {
	s.setResultFlags(uint64(r), uint64(signBit[T]()))
}

// ops_sse_shift.go - per-lane shifts: PSLLW/D/Q PSRLW/D/Q PSRAW/D
//
// (c) 2024-2026 Zayn Otley - GPLv3 or later

package cpu

import "github.com/intuitionamiga/amd64core/vec"

// LaneShift shifts every size-byte lane by the same count, taken from an
// immediate or from the low quadword of an XMM register or m128. Logical
// shifts by the lane width or more clear the lane; PSRA fills it with the
// sign bit instead.
type LaneShift struct {
	insn
	size   int
	op     shiftOp
	imm    uint64
	hasImm bool
}

func (u *LaneShift) Execute(s *State) (uint64, error) {
	if err := u.bind(s, 0); err != nil {
		return 0, err
	}
	v, err := u.rd[0].ReadI128(s)
	if err != nil {
		return 0, err
	}
	count := u.imm
	if !u.hasImm {
		c, err := u.rd[1].ReadI128(s)
		if err != nil {
			return 0, err
		}
		count = c.Lo()
	}
	if err := u.wr[0].WriteI128(s, shiftLanes(v, u.size, u.op, count)); err != nil {
		return 0, err
	}
	return u.Next(), nil
}

func shiftLanes(v vec.Vector128, size int, op shiftOp, count uint64) vec.Vector128 {
	width := uint64(size * 8)
	var r vec.Vector128
	for i := 0; i < 16/size; i++ {
		x := laneGet(v, size, i)
		switch {
		case op == shiftSar:
			c := min(count, width-1)
			x = uint64(int64(sextBits(x, size*8)) >> c)
		case count >= width:
			x = 0
		case op == shiftShl:
			x <<= count
		default:
			x >>= count
		}
		laneSet(&r, size, i, x)
	}
	return r
}

func newLaneShift(m string, size int, op shiftOp) Constructor {
	return arity(m, 2, func(pc uint64, raw []byte, ops []Operand) (Instruction, error) {
		if !isXMM(ops[0]) {
			return nil, OperandError{ops[0], ErrOperandKind}
		}
		in := newInsn(pc, raw, m, aligned16(ops)...)
		if imm, ok := ops[1].(ImmediateOperand); ok {
			return &LaneShift{in, size, op, uint64(uint8(imm.Value)), true}, nil
		}
		return &LaneShift{insn: in, size: size, op: op}, nil
	})
}

func init() {
	for _, f := range []struct {
		suffix string
		size   int
	}{{"w", 2}, {"d", 4}, {"q", 8}} {
		register(Implemented, newLaneShift("psll"+f.suffix, f.size, shiftShl), "psll"+f.suffix)
		register(Implemented, newLaneShift("psrl"+f.suffix, f.size, shiftShr), "psrl"+f.suffix)
		if f.size < 8 {
			register(Implemented, newLaneShift("psra"+f.suffix, f.size, shiftSar), "psra"+f.suffix)
		}
	}
}
